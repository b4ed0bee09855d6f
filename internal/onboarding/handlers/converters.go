package handlers

import (
	"time"

	"github.com/thkuo/onboarding/internal/onboarding/models"
)

// recordView is the JSON shape of an onboarding record. The stage and
// product field are derived on the way out; unset fields serialize as null.
type recordView struct {
	CompanyID            string            `json:"company_id"`
	Industry             *string           `json:"industry"`
	CapitalAmount        *string           `json:"capital_amount"`
	InventionPatentCount *int              `json:"invention_patent_count"`
	UtilityPatentCount   *int              `json:"utility_patent_count"`
	CertificationCount   *int              `json:"certification_count"`
	ESGCertification     *string           `json:"esg_certification"`
	CurrentStage         models.Stage      `json:"current_stage"`
	CurrentProductField  string            `json:"current_product_field,omitempty"`
	Draft                map[string]string `json:"draft,omitempty"`
	CreatedAt            time.Time         `json:"created_at"`
	UpdatedAt            time.Time         `json:"updated_at"`
}

type productView struct {
	ProductID           string `json:"product_id"`
	ProductName         string `json:"product_name"`
	Price               string `json:"price"`
	MainRawMaterials    string `json:"main_raw_materials"`
	ProductStandard     string `json:"product_standard"`
	TechnicalAdvantages string `json:"technical_advantages"`
}

func recordToView(record *models.Record) recordView {
	view := recordView{
		CompanyID:            record.CompanyID.String(),
		Industry:             record.Industry,
		InventionPatentCount: record.InventionPatentCount,
		UtilityPatentCount:   record.UtilityPatentCount,
		CertificationCount:   record.CertificationCount,
		ESGCertification:     record.ESGCertification,
		CreatedAt:            record.CreatedAt,
		UpdatedAt:            record.UpdatedAt,
	}
	if record.CapitalAmount != nil {
		s := record.CapitalAmount.String()
		view.CapitalAmount = &s
	}
	prompt := record.NextPrompt()
	view.CurrentStage = prompt.Stage
	view.CurrentProductField = string(prompt.Field)
	if record.Draft.InProgress() {
		view.Draft = make(map[string]string, len(record.Draft))
		for field, value := range record.Draft {
			view.Draft[string(field)] = value
		}
	}
	return view
}

func productToView(product *models.Product) productView {
	return productView{
		ProductID:           product.ProductID,
		ProductName:         product.ProductName,
		Price:               product.Price.String(),
		MainRawMaterials:    product.MainRawMaterials,
		ProductStandard:     product.ProductStandard,
		TechnicalAdvantages: product.TechnicalAdvantages,
	}
}
