// Package controller implements the core business logic (service layer)
// for company onboarding: the stage machine over the fixed company fields,
// the nested product-field machine over the current draft, and the
// promotion of drafts into finalized products.
package controller

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/thkuo/onboarding/internal/onboarding/db"
	e "github.com/thkuo/onboarding/internal/onboarding/errors"
	"github.com/thkuo/onboarding/internal/onboarding/events"
	"github.com/thkuo/onboarding/internal/onboarding/models"
	"github.com/thkuo/onboarding/internal/onboarding/validate"
	"go.uber.org/zap"
)

type EventProducer interface {
	Produce(eventType events.EventType, record *models.Record)
}

// Repository defines the storage interface for onboarding state.
type Repository interface {
	CreateRecord(ctx context.Context, record *models.Record) error
	GetRecord(ctx context.Context, companyID uuid.UUID) (*models.Record, error)
	SaveField(ctx context.Context, companyID uuid.UUID, field models.Stage, value interface{}) error
	SaveStage(ctx context.Context, companyID uuid.UUID, stage models.Stage, productField *models.ProductField, draft models.Draft, finished bool, expectedVersion int64) error
	AppendProduct(ctx context.Context, product *models.Product) error
	ListProducts(ctx context.Context, companyID uuid.UUID) ([]models.Product, error)
	ProductExists(ctx context.Context, companyID uuid.UUID, productID string) (bool, error)
	WithTransaction(ctx context.Context, fn func(repo *db.Repository) error) error
	Close() error
}

// OnboardingService drives a company record through the fixed field
// sequence and the per-product field cycle. Every mutation runs in one
// transaction: the field write and the stage projection write are never
// observed independently, and the projection write carries the optimistic
// version check that serializes concurrent submissions per company.
type OnboardingService struct {
	repo     Repository
	producer EventProducer
	logger   *zap.Logger
}

// NewOnboardingService constructs an OnboardingService with a repository,
// an event producer, and a logger.
func NewOnboardingService(repo Repository, producer EventProducer, logger *zap.Logger) *OnboardingService {
	return &OnboardingService{
		repo:     repo,
		producer: producer,
		logger:   logger.Named("onboarding_service"),
	}
}

// StartOnboarding creates the onboarding record for a company, positioned
// at the industry stage with every field unset. Starting an already
// started company returns the existing record unchanged.
func (s *OnboardingService) StartOnboarding(ctx context.Context, companyID uuid.UUID) (*models.Record, error) {
	if companyID == uuid.Nil {
		return nil, fmt.Errorf("%w: company_id: must not be nil", e.ErrValidation)
	}

	existing, err := s.repo.GetRecord(ctx, companyID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, e.ErrNotFound) {
		return nil, fmt.Errorf("failed to check for existing record: %w", err)
	}

	record := &models.Record{CompanyID: companyID, Version: 1}
	if err := s.repo.CreateRecord(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to create record: %w", err)
	}
	go func() {
		s.producer.Produce(events.OnboardingStarted, record)
	}()
	return record, nil
}

// GetRecord retrieves a company's onboarding record, with the stage
// re-derived from stored fields rather than read from the cached column.
func (s *OnboardingService) GetRecord(ctx context.Context, companyID uuid.UUID) (*models.Record, error) {
	record, err := s.repo.GetRecord(ctx, companyID)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	return record, nil
}

// NextPrompt reports the single field the company should submit next.
func (s *OnboardingService) NextPrompt(ctx context.Context, companyID uuid.UUID) (models.Prompt, error) {
	record, err := s.GetRecord(ctx, companyID)
	if err != nil {
		return models.Prompt{}, err
	}
	return record.NextPrompt(), nil
}

// Progress reports how many fields have been collected so far, which are
// missing, and how many products have been finalized.
func (s *OnboardingService) Progress(ctx context.Context, companyID uuid.UUID) (models.Progress, error) {
	record, err := s.GetRecord(ctx, companyID)
	if err != nil {
		return models.Progress{}, err
	}
	products, err := s.repo.ListProducts(ctx, companyID)
	if err != nil {
		return models.Progress{}, fmt.Errorf("failed to list products: %w", err)
	}
	return record.Progress(len(products)), nil
}

// ListProducts returns the company's finalized products.
func (s *OnboardingService) ListProducts(ctx context.Context, companyID uuid.UUID) ([]models.Product, error) {
	if _, err := s.GetRecord(ctx, companyID); err != nil {
		return nil, err
	}
	products, err := s.repo.ListProducts(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

// SubmitValue validates and applies one submitted value. The field must be
// exactly the one the machine is waiting on; anything else fails with
// ErrOutOfSequence and leaves stored state untouched. On success the stage
// projection is recomputed and written under the version check, and the
// prompt for the following field is returned.
func (s *OnboardingService) SubmitValue(ctx context.Context, companyID uuid.UUID, field, raw string) (models.Prompt, error) {
	var updated *models.Record
	err := s.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		record, err := tx.GetRecord(ctx, companyID)
		if err != nil {
			return err
		}

		stage := record.CurrentStage()
		switch stage {
		case models.StageCompleted:
			return fmt.Errorf("%w: onboarding already completed", e.ErrOutOfSequence)
		case models.StageProduct:
			if err := s.submitProductField(ctx, tx, record, field, raw); err != nil {
				return err
			}
		default:
			if err := s.submitFixedField(ctx, tx, record, stage, field, raw); err != nil {
				return err
			}
		}

		prompt := record.NextPrompt()
		var productField *models.ProductField
		if prompt.Field != "" {
			productField = &prompt.Field
		}
		if err := tx.SaveStage(ctx, companyID, prompt.Stage, productField, record.Draft, record.ProductsFinished, record.Version); err != nil {
			return err
		}
		record.Version++
		updated = record
		return nil
	})
	if err != nil {
		return models.Prompt{}, err
	}

	go func() {
		s.producer.Produce(events.FieldSubmitted, updated)
	}()
	return updated.NextPrompt(), nil
}

// submitFixedField handles the six company-level stages.
func (s *OnboardingService) submitFixedField(ctx context.Context, tx *db.Repository, record *models.Record, stage models.Stage, field, raw string) error {
	if field != string(stage) {
		return fmt.Errorf("%w: expected %q, got %q", e.ErrOutOfSequence, stage, field)
	}

	switch stage {
	case models.StageIndustry:
		v, err := validate.Text(field, raw)
		if err != nil {
			return err
		}
		record.Industry = &v
		return tx.SaveField(ctx, record.CompanyID, stage, v)
	case models.StageCapitalAmount:
		v, err := validate.Money(field, raw)
		if err != nil {
			return err
		}
		record.CapitalAmount = &v
		return tx.SaveField(ctx, record.CompanyID, stage, v)
	case models.StageInventionPatentCount, models.StageUtilityPatentCount, models.StageCertificationCount:
		v, err := validate.Count(field, raw)
		if err != nil {
			return err
		}
		switch stage {
		case models.StageInventionPatentCount:
			record.InventionPatentCount = &v
		case models.StageUtilityPatentCount:
			record.UtilityPatentCount = &v
		default:
			record.CertificationCount = &v
		}
		return tx.SaveField(ctx, record.CompanyID, stage, v)
	default:
		v, err := validate.ESG(field, raw)
		if err != nil {
			return err
		}
		record.ESGCertification = &v
		return tx.SaveField(ctx, record.CompanyID, stage, v)
	}
}

// submitProductField handles the nested product machine. Submitting while
// no draft exists implicitly starts one.
func (s *OnboardingService) submitProductField(ctx context.Context, tx *db.Repository, record *models.Record, field, raw string) error {
	if record.Draft == nil {
		record.Draft = models.Draft{}
	}
	expected, ok := record.Draft.CurrentProductField()
	if !ok {
		return fmt.Errorf("%w: draft is full, finish the current product first", e.ErrOutOfSequence)
	}
	if field != string(expected) {
		return fmt.Errorf("%w: expected %q, got %q", e.ErrOutOfSequence, expected, field)
	}

	var value string
	switch expected {
	case models.FieldPrice:
		d, err := validate.Money(field, raw)
		if err != nil {
			return err
		}
		value = d.String()
	default:
		v, err := validate.Text(field, raw)
		if err != nil {
			return err
		}
		value = v
	}

	if expected == models.FieldProductID {
		exists, err := tx.ProductExists(ctx, record.CompanyID, value)
		if err != nil {
			return fmt.Errorf("failed to check product id: %w", err)
		}
		if exists {
			return fmt.Errorf("%w: %q", e.ErrDuplicateProductID, value)
		}
	}

	record.Draft[expected] = value
	return nil
}

// FinishCurrentProduct promotes a fully filled draft into the finalized
// product collection and clears the draft, returning the machine to the
// awaiting-new-product state.
func (s *OnboardingService) FinishCurrentProduct(ctx context.Context, companyID uuid.UUID) (*models.Product, error) {
	var (
		product *models.Product
		updated *models.Record
	)
	err := s.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		record, err := tx.GetRecord(ctx, companyID)
		if err != nil {
			return err
		}
		if stage := record.CurrentStage(); stage != models.StageProduct {
			return fmt.Errorf("%w: not collecting products at stage %q", e.ErrOutOfSequence, stage)
		}
		if !record.Draft.Complete() {
			return e.ErrIncompleteDraft
		}

		product, err = promote(record)
		if err != nil {
			return err
		}
		if err := tx.AppendProduct(ctx, product); err != nil {
			return err
		}

		record.Draft = nil
		if err := tx.SaveStage(ctx, companyID, models.StageProduct, nil, nil, false, record.Version); err != nil {
			return err
		}
		record.Version++
		updated = record
		return nil
	})
	if err != nil {
		return nil, err
	}

	go func() {
		s.producer.Produce(events.ProductAdded, updated)
	}()
	return product, nil
}

// FinishAllProducts ends product collection, moving the record to the
// terminal completed stage. A draft in progress must be finished or
// abandoned by the caller first. Finishing a completed record is a no-op.
func (s *OnboardingService) FinishAllProducts(ctx context.Context, companyID uuid.UUID) error {
	var updated *models.Record
	err := s.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		record, err := tx.GetRecord(ctx, companyID)
		if err != nil {
			return err
		}
		switch stage := record.CurrentStage(); stage {
		case models.StageCompleted:
			return nil
		case models.StageProduct:
		default:
			return fmt.Errorf("%w: fixed fields not complete at stage %q", e.ErrOutOfSequence, stage)
		}
		if record.Draft.InProgress() {
			return e.ErrDraftInProgress
		}

		record.ProductsFinished = true
		if err := tx.SaveStage(ctx, companyID, models.StageCompleted, nil, nil, true, record.Version); err != nil {
			return err
		}
		record.Version++
		updated = record
		return nil
	})
	if err != nil {
		return err
	}

	if updated != nil {
		go func() {
			s.producer.Produce(events.OnboardingCompleted, updated)
		}()
	}
	return nil
}

// promote builds the finalized Product from a complete draft.
func promote(record *models.Record) (*models.Product, error) {
	price, err := validate.Money(string(models.FieldPrice), record.Draft[models.FieldPrice])
	if err != nil {
		// Draft values are validated on submission; a bad price here
		// means the stored draft blob is corrupt.
		return nil, fmt.Errorf("%w: bad draft price", e.ErrIncompleteDraft)
	}
	return &models.Product{
		CompanyID:           record.CompanyID,
		ProductID:           record.Draft[models.FieldProductID],
		ProductName:         record.Draft[models.FieldProductName],
		Price:               price,
		MainRawMaterials:    record.Draft[models.FieldMainRawMaterials],
		ProductStandard:     record.Draft[models.FieldProductStandard],
		TechnicalAdvantages: record.Draft[models.FieldTechnicalAdvantages],
	}, nil
}
