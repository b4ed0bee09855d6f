// Package models contains the persistence models for onboarding state,
// configured to work using GORM as the ORM.
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// OnboardingRecord is the stored onboarding state for one company.
// CurrentStage and CurrentProductField are cached projections of the
// derivation over the fixed fields; they are rewritten on every mutation
// and never read as a source of truth. Version guards concurrent
// submissions via optimistic locking.
type OnboardingRecord struct {
	CompanyID            uuid.UUID        `gorm:"type:uuid;primaryKey"`
	Industry             *string          `gorm:"size:255"`
	CapitalAmount        *decimal.Decimal `gorm:"type:decimal(20,2)"`
	InventionPatentCount *int             `gorm:"check:invention_patent_count >= 0"`
	UtilityPatentCount   *int             `gorm:"check:utility_patent_count >= 0"`
	CertificationCount   *int             `gorm:"check:certification_count >= 0"`
	ESGCertification     *string          `gorm:"size:1000"`
	CurrentStage         string           `gorm:"size:32;index"`
	CurrentProductField  *string          `gorm:"size:32"`
	CurrentProductDraft  datatypes.JSON
	ProductsFinished     bool
	Version              int64
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Product is a finalized product row. ProductID is unique per company,
// case-sensitive.
type Product struct {
	ID                  int64           `gorm:"primaryKey"`
	CompanyID           uuid.UUID       `gorm:"type:uuid;index;uniqueIndex:idx_company_product"`
	ProductID           string          `gorm:"size:255;uniqueIndex:idx_company_product"`
	ProductName         string          `gorm:"size:255"`
	Price               decimal.Decimal `gorm:"type:decimal(20,2)"`
	MainRawMaterials    string          `gorm:"size:1000"`
	ProductStandard     string          `gorm:"size:1000"`
	TechnicalAdvantages string          `gorm:"size:3000"`
	CreatedAt           time.Time
}
