// Package models defines the core domain models for company onboarding:
// the onboarding Record, the Product entity, the in-progress product Draft,
// and the Stage / ProductField enumerations together with the pure
// derivation functions that position a record inside the collection flow.
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Stage identifies the field or phase an onboarding record is waiting on.
type Stage string

const (
	StageIndustry             Stage = "industry"
	StageCapitalAmount        Stage = "capital_amount"
	StageInventionPatentCount Stage = "invention_patent_count"
	StageUtilityPatentCount   Stage = "utility_patent_count"
	StageCertificationCount   Stage = "certification_count"
	StageESGCertification     Stage = "esg_certification"
	StageProduct              Stage = "product"
	StageCompleted            Stage = "completed"
)

// StageOrder is the fixed collection order. StageProduct and StageCompleted
// are reached only after every fixed field is set.
var StageOrder = []Stage{
	StageIndustry,
	StageCapitalAmount,
	StageInventionPatentCount,
	StageUtilityPatentCount,
	StageCertificationCount,
	StageESGCertification,
	StageProduct,
	StageCompleted,
}

// ProductField identifies a single field of a product draft.
type ProductField string

const (
	FieldProductID           ProductField = "product_id"
	FieldProductName         ProductField = "product_name"
	FieldPrice               ProductField = "price"
	FieldMainRawMaterials    ProductField = "main_raw_materials"
	FieldProductStandard     ProductField = "product_standard"
	FieldTechnicalAdvantages ProductField = "technical_advantages"
)

// ProductFieldOrder is the fixed per-product collection order.
var ProductFieldOrder = []ProductField{
	FieldProductID,
	FieldProductName,
	FieldPrice,
	FieldMainRawMaterials,
	FieldProductStandard,
	FieldTechnicalAdvantages,
}

// Draft is the buffer for the product currently being entered, keyed by
// field. Values are the validator-normalized raw strings; they are parsed
// into typed Product fields only at promotion time.
type Draft map[ProductField]string

// Record is the domain model for one company's onboarding state.
type Record struct {
	// CompanyID is the externally assigned company identifier.
	CompanyID uuid.UUID
	// Industry is the company's industry sector; nil while unset.
	Industry *string
	// CapitalAmount is the registered capital; nil while unset.
	CapitalAmount *decimal.Decimal
	// InventionPatentCount is the number of invention patents held.
	InventionPatentCount *int
	// UtilityPatentCount is the number of utility-model patents held.
	UtilityPatentCount *int
	// CertificationCount is the number of company certifications,
	// ESG certifications excluded.
	CertificationCount *int
	// ESGCertification lists the company's ESG certifications, or "none".
	ESGCertification *string
	// Draft holds the product currently being entered; nil when no
	// product is mid-entry.
	Draft Draft
	// ProductsFinished marks the explicit end of product collection.
	ProductsFinished bool
	// Version is the optimistic-lock counter guarding concurrent submissions.
	Version int64
	// CreatedAt records when onboarding began.
	CreatedAt time.Time
	// UpdatedAt records the last mutation.
	UpdatedAt time.Time
}

// Product is a finalized product belonging to a company. All six fields are
// required before a draft is promoted.
type Product struct {
	CompanyID           uuid.UUID
	ProductID           string
	ProductName         string
	Price               decimal.Decimal
	MainRawMaterials    string
	ProductStandard     string
	TechnicalAdvantages string
	CreatedAt           time.Time
}

// Prompt tells the caller what to submit next. Field is empty once the
// record is completed; during the product stage it names the active product
// field (or FieldProductID when no draft has been started).
type Prompt struct {
	Stage Stage        `json:"stage"`
	Field ProductField `json:"field,omitempty"`
}

// Progress summarizes how far collection has come, mirroring the
// fixed-field and draft fill counts reported to the caller.
type Progress struct {
	Stage            Stage    `json:"stage"`
	FieldsCompleted  int      `json:"fields_completed"`
	FieldsTotal      int      `json:"fields_total"`
	MissingFields    []string `json:"missing_fields"`
	DraftFields      int      `json:"draft_fields"`
	DraftTotal       int      `json:"draft_total"`
	ProductCount     int      `json:"product_count"`
	ProductsFinished bool     `json:"products_finished"`
}

// CurrentStage derives the record's stage from stored data alone: the first
// unset fixed field in order, then StageProduct, then StageCompleted once
// product collection has been explicitly finished. The stored stage column
// is a cached projection of this function and is never trusted directly.
func (r *Record) CurrentStage() Stage {
	switch {
	case r.Industry == nil:
		return StageIndustry
	case r.CapitalAmount == nil:
		return StageCapitalAmount
	case r.InventionPatentCount == nil:
		return StageInventionPatentCount
	case r.UtilityPatentCount == nil:
		return StageUtilityPatentCount
	case r.CertificationCount == nil:
		return StageCertificationCount
	case r.ESGCertification == nil:
		return StageESGCertification
	case !r.ProductsFinished:
		return StageProduct
	default:
		return StageCompleted
	}
}

// CurrentProductField derives the active field of the draft: the first
// field in order without a collected value. A nil draft means no product is
// mid-entry, for which the next field to collect is still FieldProductID.
func (d Draft) CurrentProductField() (ProductField, bool) {
	for _, f := range ProductFieldOrder {
		if d[f] == "" {
			return f, true
		}
	}
	return "", false
}

// Complete reports whether all six product fields have been collected.
func (d Draft) Complete() bool {
	_, missing := d.CurrentProductField()
	return !missing
}

// InProgress reports whether any product field has been collected.
func (d Draft) InProgress() bool {
	for _, f := range ProductFieldOrder {
		if d[f] != "" {
			return true
		}
	}
	return false
}

// NextPrompt derives the full prompt for the record's current position.
func (r *Record) NextPrompt() Prompt {
	stage := r.CurrentStage()
	if stage != StageProduct {
		return Prompt{Stage: stage}
	}
	field, ok := r.Draft.CurrentProductField()
	if !ok {
		// Fully filled draft awaiting promotion; the caller reviews and
		// finishes the product before anything else is collected.
		return Prompt{Stage: stage}
	}
	return Prompt{Stage: stage, Field: field}
}

// FixedFieldSet reports whether the fixed field backing the given stage is
// set. Stages without a backing field report false.
func (r *Record) FixedFieldSet(s Stage) bool {
	switch s {
	case StageIndustry:
		return r.Industry != nil
	case StageCapitalAmount:
		return r.CapitalAmount != nil
	case StageInventionPatentCount:
		return r.InventionPatentCount != nil
	case StageUtilityPatentCount:
		return r.UtilityPatentCount != nil
	case StageCertificationCount:
		return r.CertificationCount != nil
	case StageESGCertification:
		return r.ESGCertification != nil
	}
	return false
}

// FixedStages lists the six fixed-field stages in collection order.
var FixedStages = StageOrder[:6]

// Progress builds the caller-facing progress summary.
func (r *Record) Progress(productCount int) Progress {
	p := Progress{
		Stage:            r.CurrentStage(),
		FieldsTotal:      len(FixedStages),
		DraftTotal:       len(ProductFieldOrder),
		ProductCount:     productCount,
		ProductsFinished: r.ProductsFinished,
	}
	for _, s := range FixedStages {
		if r.FixedFieldSet(s) {
			p.FieldsCompleted++
		} else {
			p.MissingFields = append(p.MissingFields, string(s))
		}
	}
	for _, f := range ProductFieldOrder {
		if r.Draft[f] != "" {
			p.DraftFields++
		}
	}
	return p
}
