package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	dbmodels "github.com/thkuo/onboarding/internal/onboarding/db/models"
	e "github.com/thkuo/onboarding/internal/onboarding/errors"
	"github.com/thkuo/onboarding/internal/onboarding/models"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

func NewRepository(cfg *Config) (*Repository, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return NewRepositoryWithDB(db)
}

// NewRepositoryWithDB wraps an already opened gorm connection and runs
// migrations. Used by callers that manage the connection themselves.
func NewRepositoryWithDB(db *gorm.DB) (*Repository, error) {
	if err := db.AutoMigrate(&dbmodels.OnboardingRecord{}, &dbmodels.Product{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &Repository{db: db}, nil
}

// CreateRecord inserts a fresh onboarding record. The caller sets the
// initial projection; Version starts at 1.
func (r *Repository) CreateRecord(ctx context.Context, record *models.Record) error {
	row, err := toRow(record)
	if err != nil {
		return err
	}
	result := r.db.WithContext(ctx).Create(row)
	if result.Error != nil {
		return result.Error
	}
	record.CreatedAt = row.CreatedAt
	record.UpdatedAt = row.UpdatedAt
	return nil
}

// GetRecord loads one company's onboarding record.
func (r *Repository) GetRecord(ctx context.Context, companyID uuid.UUID) (*models.Record, error) {
	var row dbmodels.OnboardingRecord
	result := r.db.WithContext(ctx).First(&row, "company_id = ?", companyID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, e.ErrNotFound
		}
		return nil, result.Error
	}
	return toDomain(&row)
}

// SaveField upserts one fixed-field column. Field names are the stage
// names; anything else is rejected before reaching SQL.
func (r *Repository) SaveField(ctx context.Context, companyID uuid.UUID, field models.Stage, value interface{}) error {
	if !validColumn(field) {
		return fmt.Errorf("%w: unknown field %q", e.ErrValidation, field)
	}
	result := r.db.WithContext(ctx).Model(&dbmodels.OnboardingRecord{}).
		Where("company_id = ?", companyID).
		Update(string(field), value)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return e.ErrNotFound
	}
	return nil
}

// SaveStage writes the derived projection (stage, active product field,
// draft, finished flag) and bumps the version. Guarded by optimistic
// locking: a stale expectedVersion means another submission won the race.
func (r *Repository) SaveStage(
	ctx context.Context,
	companyID uuid.UUID,
	stage models.Stage,
	productField *models.ProductField,
	draft models.Draft,
	finished bool,
	expectedVersion int64,
) error {
	blob, err := draftJSON(draft)
	if err != nil {
		return err
	}
	var fieldCol *string
	if productField != nil {
		s := string(*productField)
		fieldCol = &s
	}
	result := r.db.WithContext(ctx).Model(&dbmodels.OnboardingRecord{}).
		Where("company_id = ? AND version = ?", companyID, expectedVersion).
		Updates(map[string]interface{}{
			"current_stage":         string(stage),
			"current_product_field": fieldCol,
			"current_product_draft": blob,
			"products_finished":     finished,
			"version":               expectedVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return e.ErrConcurrentModification
	}
	return nil
}

// AppendProduct stores a finalized product. The composite unique index on
// (company_id, product_id) backs the duplicate check.
func (r *Repository) AppendProduct(ctx context.Context, product *models.Product) error {
	row := &dbmodels.Product{
		CompanyID:           product.CompanyID,
		ProductID:           product.ProductID,
		ProductName:         product.ProductName,
		Price:               product.Price,
		MainRawMaterials:    product.MainRawMaterials,
		ProductStandard:     product.ProductStandard,
		TechnicalAdvantages: product.TechnicalAdvantages,
	}
	result := r.db.WithContext(ctx).Create(row)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return e.ErrDuplicateProductID
		}
		return result.Error
	}
	product.CreatedAt = row.CreatedAt
	return nil
}

// ListProducts returns the company's finalized products in insertion order.
func (r *Repository) ListProducts(ctx context.Context, companyID uuid.UUID) ([]models.Product, error) {
	var rows []dbmodels.Product
	result := r.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("id").
		Find(&rows)
	if result.Error != nil {
		return nil, result.Error
	}
	out := make([]models.Product, 0, len(rows))
	for _, row := range rows {
		out = append(out, models.Product{
			CompanyID:           row.CompanyID,
			ProductID:           row.ProductID,
			ProductName:         row.ProductName,
			Price:               row.Price,
			MainRawMaterials:    row.MainRawMaterials,
			ProductStandard:     row.ProductStandard,
			TechnicalAdvantages: row.TechnicalAdvantages,
			CreatedAt:           row.CreatedAt,
		})
	}
	return out, nil
}

// ProductExists reports whether the company already has a finalized product
// with the given id. Case-sensitive, scoped per company.
func (r *Repository) ProductExists(ctx context.Context, companyID uuid.UUID, productID string) (bool, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&dbmodels.Product{}).
		Where("company_id = ? AND product_id = ?", companyID, productID).
		Limit(1).
		Count(&count)
	return count > 0, result.Error
}

func (r *Repository) WithTransaction(ctx context.Context, fn func(repo *Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repository{db: tx})
	})
}

func (r *Repository) Exec(ctx context.Context, query string, params ...interface{}) error {
	result := r.db.WithContext(ctx).Exec(query, params...)
	if result.Error != nil {
		return result.Error
	}
	return nil
}

func (r *Repository) Close() error {
	db, err := r.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}

var columns = map[models.Stage]bool{
	models.StageIndustry:             true,
	models.StageCapitalAmount:        true,
	models.StageInventionPatentCount: true,
	models.StageUtilityPatentCount:   true,
	models.StageCertificationCount:   true,
	models.StageESGCertification:     true,
}

func validColumn(field models.Stage) bool {
	return columns[field]
}

func draftJSON(draft models.Draft) (datatypes.JSON, error) {
	if draft == nil {
		return nil, nil
	}
	blob, err := json.Marshal(draft)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize draft: %w", err)
	}
	return datatypes.JSON(blob), nil
}

func toRow(record *models.Record) (*dbmodels.OnboardingRecord, error) {
	blob, err := draftJSON(record.Draft)
	if err != nil {
		return nil, err
	}
	prompt := record.NextPrompt()
	var fieldCol *string
	if prompt.Field != "" {
		s := string(prompt.Field)
		fieldCol = &s
	}
	return &dbmodels.OnboardingRecord{
		CompanyID:            record.CompanyID,
		Industry:             record.Industry,
		CapitalAmount:        record.CapitalAmount,
		InventionPatentCount: record.InventionPatentCount,
		UtilityPatentCount:   record.UtilityPatentCount,
		CertificationCount:   record.CertificationCount,
		ESGCertification:     record.ESGCertification,
		CurrentStage:         string(prompt.Stage),
		CurrentProductField:  fieldCol,
		CurrentProductDraft:  blob,
		ProductsFinished:     record.ProductsFinished,
		Version:              record.Version,
	}, nil
}

func toDomain(row *dbmodels.OnboardingRecord) (*models.Record, error) {
	record := &models.Record{
		CompanyID:            row.CompanyID,
		Industry:             row.Industry,
		CapitalAmount:        row.CapitalAmount,
		InventionPatentCount: row.InventionPatentCount,
		UtilityPatentCount:   row.UtilityPatentCount,
		CertificationCount:   row.CertificationCount,
		ESGCertification:     row.ESGCertification,
		ProductsFinished:     row.ProductsFinished,
		Version:              row.Version,
		CreatedAt:            row.CreatedAt,
		UpdatedAt:            row.UpdatedAt,
	}
	if len(row.CurrentProductDraft) > 0 {
		var draft models.Draft
		if err := json.Unmarshal(row.CurrentProductDraft, &draft); err != nil {
			return nil, fmt.Errorf("failed to parse draft: %w", err)
		}
		if draft.InProgress() {
			record.Draft = draft
		}
	}
	return record, nil
}
