package models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/thkuo/onboarding/internal/pkg/utils"
)

// setFixedField fills the fixed field backing FixedStages[i] with an
// arbitrary valid value.
func setFixedField(r *Record, i int) {
	switch FixedStages[i] {
	case StageIndustry:
		r.Industry = utils.Ptr("manufacturing")
	case StageCapitalAmount:
		d := decimal.NewFromInt(5000000)
		r.CapitalAmount = &d
	case StageInventionPatentCount:
		r.InventionPatentCount = utils.Ptr(3)
	case StageUtilityPatentCount:
		r.UtilityPatentCount = utils.Ptr(0)
	case StageCertificationCount:
		r.CertificationCount = utils.Ptr(2)
	case StageESGCertification:
		r.ESGCertification = utils.Ptr("none")
	}
}

// TestCurrentStageAllSubsets sweeps every subset of set fixed fields and
// checks the derived stage is always the first unset field in order,
// regardless of which later fields happen to be set.
func TestCurrentStageAllSubsets(t *testing.T) {
	for mask := 0; mask < 1<<len(FixedStages); mask++ {
		r := &Record{CompanyID: uuid.New()}
		for i := range FixedStages {
			if mask&(1<<i) != 0 {
				setFixedField(r, i)
			}
		}

		expected := StageProduct
		for i := range FixedStages {
			if mask&(1<<i) == 0 {
				expected = FixedStages[i]
				break
			}
		}

		assert.Equal(t, expected, r.CurrentStage(), "mask %06b", mask)
	}
}

// TestCurrentStageCompleted checks the terminal stage is reached only with
// every fixed field set and product collection explicitly finished.
func TestCurrentStageCompleted(t *testing.T) {
	r := &Record{CompanyID: uuid.New()}
	for i := range FixedStages {
		setFixedField(r, i)
	}

	assert.Equal(t, StageProduct, r.CurrentStage(), "finished flag not set yet")

	r.ProductsFinished = true
	assert.Equal(t, StageCompleted, r.CurrentStage())

	// The flag alone does not complete a record with missing fields.
	partial := &Record{CompanyID: uuid.New(), ProductsFinished: true}
	assert.Equal(t, StageIndustry, partial.CurrentStage())
}

func TestDraftCurrentProductField(t *testing.T) {
	tests := []struct {
		name     string
		draft    Draft
		expected ProductField
		missing  bool
	}{
		{
			name:     "nil draft starts at product_id",
			draft:    nil,
			expected: FieldProductID,
			missing:  true,
		},
		{
			name:     "empty draft starts at product_id",
			draft:    Draft{},
			expected: FieldProductID,
			missing:  true,
		},
		{
			name:     "first gap wins",
			draft:    Draft{FieldProductID: "P-1", FieldProductName: "Widget"},
			expected: FieldPrice,
			missing:  true,
		},
		{
			name: "full draft has no active field",
			draft: Draft{
				FieldProductID:           "P-1",
				FieldProductName:         "Widget",
				FieldPrice:               "9.99",
				FieldMainRawMaterials:    "steel",
				FieldProductStandard:     "ISO 9001",
				FieldTechnicalAdvantages: "durable",
			},
			missing: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			field, ok := tt.draft.CurrentProductField()
			assert.Equal(t, tt.missing, ok)
			if tt.missing {
				assert.Equal(t, tt.expected, field)
			}
		})
	}
}

func TestDraftCompleteAndInProgress(t *testing.T) {
	var nilDraft Draft
	assert.False(t, nilDraft.Complete())
	assert.False(t, nilDraft.InProgress())

	partial := Draft{FieldProductID: "P-1"}
	assert.False(t, partial.Complete())
	assert.True(t, partial.InProgress())

	full := Draft{
		FieldProductID:           "P-1",
		FieldProductName:         "Widget",
		FieldPrice:               "9.99",
		FieldMainRawMaterials:    "steel",
		FieldProductStandard:     "ISO 9001",
		FieldTechnicalAdvantages: "durable",
	}
	assert.True(t, full.Complete())
	assert.True(t, full.InProgress())
}

func TestNextPrompt(t *testing.T) {
	r := &Record{CompanyID: uuid.New()}
	assert.Equal(t, Prompt{Stage: StageIndustry}, r.NextPrompt())

	for i := range FixedStages {
		setFixedField(r, i)
	}
	assert.Equal(t, Prompt{Stage: StageProduct, Field: FieldProductID}, r.NextPrompt())

	r.Draft = Draft{FieldProductID: "P-1", FieldProductName: "Widget"}
	assert.Equal(t, Prompt{Stage: StageProduct, Field: FieldPrice}, r.NextPrompt())

	r.Draft = Draft{
		FieldProductID:           "P-1",
		FieldProductName:         "Widget",
		FieldPrice:               "9.99",
		FieldMainRawMaterials:    "steel",
		FieldProductStandard:     "ISO 9001",
		FieldTechnicalAdvantages: "durable",
	}
	assert.Equal(t, Prompt{Stage: StageProduct}, r.NextPrompt(), "full draft waits for promotion")

	r.Draft = nil
	r.ProductsFinished = true
	assert.Equal(t, Prompt{Stage: StageCompleted}, r.NextPrompt())
}

func TestProgress(t *testing.T) {
	r := &Record{CompanyID: uuid.New()}
	setFixedField(r, 0)
	setFixedField(r, 1)
	r.Draft = Draft{FieldProductID: "P-1"}

	p := r.Progress(2)
	assert.Equal(t, StageInventionPatentCount, p.Stage)
	assert.Equal(t, 2, p.FieldsCompleted)
	assert.Equal(t, 6, p.FieldsTotal)
	assert.Equal(t, []string{
		"invention_patent_count",
		"utility_patent_count",
		"certification_count",
		"esg_certification",
	}, p.MissingFields)
	assert.Equal(t, 1, p.DraftFields)
	assert.Equal(t, 6, p.DraftTotal)
	assert.Equal(t, 2, p.ProductCount)
	assert.False(t, p.ProductsFinished)
}
