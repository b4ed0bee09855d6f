package db

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	e "github.com/thkuo/onboarding/internal/onboarding/errors"
	"github.com/thkuo/onboarding/internal/onboarding/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// SetupTestDB initializes an in-memory SQLite database for testing.
func SetupTestDB(t *testing.T) *Repository {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err, "failed to open test database")

	repo, err := NewRepositoryWithDB(db)
	require.NoError(t, err, "failed to migrate test database")

	return repo
}

// newRecord creates and stores a fresh record at the industry stage.
func newRecord(t *testing.T, repo *Repository) *models.Record {
	record := &models.Record{CompanyID: uuid.New(), Version: 1}
	require.NoError(t, repo.CreateRecord(context.Background(), record), "CreateRecord should succeed")
	return record
}

// fullDraft returns a draft with all six product fields collected.
func fullDraft(productID string) models.Draft {
	return models.Draft{
		models.FieldProductID:           productID,
		models.FieldProductName:         "Widget",
		models.FieldPrice:               "9.99",
		models.FieldMainRawMaterials:    "steel",
		models.FieldProductStandard:     "ISO 9001",
		models.FieldTechnicalAdvantages: "durable",
	}
}

// TestCreateAndGetRecord tests storing and retrieving an onboarding record.
func TestCreateAndGetRecord(t *testing.T) {
	repo := SetupTestDB(t)
	ctx := context.Background()

	record := newRecord(t, repo)

	retrieved, err := repo.GetRecord(ctx, record.CompanyID)
	assert.NoError(t, err, "GetRecord should retrieve the created record")
	assert.Equal(t, record.CompanyID, retrieved.CompanyID)
	assert.Equal(t, int64(1), retrieved.Version)
	assert.Equal(t, models.StageIndustry, retrieved.CurrentStage())
	assert.Nil(t, retrieved.Draft)
}

// TestGetRecordNotFound verifies error handling when the record does not exist.
func TestGetRecordNotFound(t *testing.T) {
	repo := SetupTestDB(t)

	_, err := repo.GetRecord(context.Background(), uuid.New())
	assert.ErrorIs(t, err, e.ErrNotFound, "GetRecord should return ErrNotFound for non-existent record")
}

// TestSaveField checks that fixed-field writes land and change the derived stage.
func TestSaveField(t *testing.T) {
	repo := SetupTestDB(t)
	ctx := context.Background()

	record := newRecord(t, repo)

	err := repo.SaveField(ctx, record.CompanyID, models.StageIndustry, "manufacturing")
	assert.NoError(t, err, "SaveField should not return an error")

	updated, err := repo.GetRecord(ctx, record.CompanyID)
	require.NoError(t, err)
	require.NotNil(t, updated.Industry)
	assert.Equal(t, "manufacturing", *updated.Industry)
	assert.Equal(t, models.StageCapitalAmount, updated.CurrentStage())
}

// TestSaveFieldUnknownColumn rejects writes outside the fixed-field set.
func TestSaveFieldUnknownColumn(t *testing.T) {
	repo := SetupTestDB(t)
	record := newRecord(t, repo)

	err := repo.SaveField(context.Background(), record.CompanyID, models.Stage("version"), 99)
	assert.ErrorIs(t, err, e.ErrValidation, "SaveField should reject unknown columns")
}

// TestSaveFieldNotFound tests writing a field for a missing record.
func TestSaveFieldNotFound(t *testing.T) {
	repo := SetupTestDB(t)

	err := repo.SaveField(context.Background(), uuid.New(), models.StageIndustry, "manufacturing")
	assert.ErrorIs(t, err, e.ErrNotFound)
}

// TestSaveStage verifies the projection write and the draft round trip.
func TestSaveStage(t *testing.T) {
	repo := SetupTestDB(t)
	ctx := context.Background()

	record := newRecord(t, repo)

	draft := models.Draft{models.FieldProductID: "P-1"}
	field := models.FieldProductName
	err := repo.SaveStage(ctx, record.CompanyID, models.StageProduct, &field, draft, false, 1)
	assert.NoError(t, err, "SaveStage should succeed with the current version")

	updated, err := repo.GetRecord(ctx, record.CompanyID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.Version, "version should be bumped")
	assert.Equal(t, draft, updated.Draft)
}

// TestSaveStageVersionConflict verifies the optimistic lock: a stale
// version loses the race.
func TestSaveStageVersionConflict(t *testing.T) {
	repo := SetupTestDB(t)
	ctx := context.Background()

	record := newRecord(t, repo)

	err := repo.SaveStage(ctx, record.CompanyID, models.StageIndustry, nil, nil, false, 1)
	require.NoError(t, err)

	// Replaying with the old version must fail.
	err = repo.SaveStage(ctx, record.CompanyID, models.StageIndustry, nil, nil, false, 1)
	assert.ErrorIs(t, err, e.ErrConcurrentModification)
}

// TestAppendProductDuplicate checks per-company product id uniqueness.
func TestAppendProductDuplicate(t *testing.T) {
	repo := SetupTestDB(t)
	ctx := context.Background()

	companyID := uuid.New()
	product := &models.Product{
		CompanyID:   companyID,
		ProductID:   "P-1",
		ProductName: "Widget",
		Price:       decimal.NewFromFloat(9.99),
	}
	require.NoError(t, repo.AppendProduct(ctx, product))

	dup := &models.Product{CompanyID: companyID, ProductID: "P-1", ProductName: "Other"}
	err := repo.AppendProduct(ctx, dup)
	assert.ErrorIs(t, err, e.ErrDuplicateProductID)

	// The same id under another company is fine.
	other := &models.Product{CompanyID: uuid.New(), ProductID: "P-1", ProductName: "Widget"}
	assert.NoError(t, repo.AppendProduct(ctx, other))
}

// TestListProducts verifies products come back in insertion order.
func TestListProducts(t *testing.T) {
	repo := SetupTestDB(t)
	ctx := context.Background()

	companyID := uuid.New()
	for _, id := range []string{"P-1", "P-2", "P-3"} {
		require.NoError(t, repo.AppendProduct(ctx, &models.Product{
			CompanyID:   companyID,
			ProductID:   id,
			ProductName: "Widget " + id,
			Price:       decimal.NewFromInt(10),
		}))
	}

	products, err := repo.ListProducts(ctx, companyID)
	assert.NoError(t, err)
	require.Len(t, products, 3)
	assert.Equal(t, "P-1", products[0].ProductID)
	assert.Equal(t, "P-2", products[1].ProductID)
	assert.Equal(t, "P-3", products[2].ProductID)

	empty, err := repo.ListProducts(ctx, uuid.New())
	assert.NoError(t, err)
	assert.Empty(t, empty)
}

// TestProductExists verifies the duplicate pre-check is case sensitive.
func TestProductExists(t *testing.T) {
	repo := SetupTestDB(t)
	ctx := context.Background()

	companyID := uuid.New()
	require.NoError(t, repo.AppendProduct(ctx, &models.Product{
		CompanyID: companyID,
		ProductID: "P-1",
	}))

	exists, err := repo.ProductExists(ctx, companyID, "P-1")
	assert.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ProductExists(ctx, companyID, "p-1")
	assert.NoError(t, err)
	assert.False(t, exists, "product id comparison should be case sensitive")

	exists, err = repo.ProductExists(ctx, uuid.New(), "P-1")
	assert.NoError(t, err)
	assert.False(t, exists, "product ids are scoped per company")
}

// TestWithTransaction ensures transactional writes commit together and roll
// back together.
func TestWithTransaction(t *testing.T) {
	repo := SetupTestDB(t)
	ctx := context.Background()

	record := newRecord(t, repo)

	err := repo.WithTransaction(ctx, func(txRepo *Repository) error {
		if err := txRepo.SaveField(ctx, record.CompanyID, models.StageIndustry, "manufacturing"); err != nil {
			return err
		}
		return txRepo.SaveStage(ctx, record.CompanyID, models.StageCapitalAmount, nil, nil, false, 1)
	})
	assert.NoError(t, err, "WithTransaction should execute successfully")

	updated, err := repo.GetRecord(ctx, record.CompanyID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.Version)

	// A failing callback must roll back every write in it.
	err = repo.WithTransaction(ctx, func(txRepo *Repository) error {
		if err := txRepo.SaveField(ctx, record.CompanyID, models.StageIndustry, "chemicals"); err != nil {
			return err
		}
		return e.ErrConcurrentModification
	})
	assert.ErrorIs(t, err, e.ErrConcurrentModification)

	unchanged, err := repo.GetRecord(ctx, record.CompanyID)
	require.NoError(t, err)
	require.NotNil(t, unchanged.Industry)
	assert.Equal(t, "manufacturing", *unchanged.Industry, "rolled back write should not be visible")
}

// TestCompleteDraftRoundTrip stores a full draft and checks it survives the
// projection round trip intact.
func TestCompleteDraftRoundTrip(t *testing.T) {
	repo := SetupTestDB(t)
	ctx := context.Background()

	record := newRecord(t, repo)
	draft := fullDraft("P-9")

	err := repo.SaveStage(ctx, record.CompanyID, models.StageProduct, nil, draft, false, 1)
	require.NoError(t, err)

	updated, err := repo.GetRecord(ctx, record.CompanyID)
	require.NoError(t, err)
	assert.Equal(t, draft, updated.Draft)
	assert.True(t, updated.Draft.Complete())
}
