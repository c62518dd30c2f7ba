package persistence

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/truthsource/backend/internal/domain/shared"
)

// newMockDB creates a GORM connection backed by sqlmock
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return gormDB, mock, mockDB
}

func TestGormProductRepository_FindByIDForTenant(t *testing.T) {
	t.Run("finds existing product", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormProductRepository(db)

		productID := uuid.New()
		tenantID := uuid.New()

		rows := sqlmock.NewRows([]string{"id", "tenant_id", "sku", "name", "unit_price", "cost", "currency", "status"}).
			AddRow(productID, tenantID, "WIDGET-1", "Widget", decimal.NewFromInt(25), decimal.NewFromInt(10), "USD", "active")

		mock.ExpectQuery(`SELECT \* FROM "products" WHERE tenant_id = \$1 AND id = \$2 ORDER BY .* LIMIT .*`).
			WithArgs(tenantID, productID, 1).
			WillReturnRows(rows)

		product, err := repo.FindByIDForTenant(context.Background(), tenantID, productID)

		require.NoError(t, err)
		assert.Equal(t, productID, product.ID)
		assert.Equal(t, "WIDGET-1", product.SKU)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("maps a missing row to ErrNotFound", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormProductRepository(db)

		productID := uuid.New()
		tenantID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "products" WHERE tenant_id = \$1 AND id = \$2 ORDER BY .* LIMIT .*`).
			WithArgs(tenantID, productID, 1).
			WillReturnError(gorm.ErrRecordNotFound)

		product, err := repo.FindByIDForTenant(context.Background(), tenantID, productID)

		assert.Nil(t, product)
		assert.Equal(t, shared.ErrNotFound, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormProductRepository_ExistsBySKU(t *testing.T) {
	db, mock, mockDB := newMockDB(t)
	defer mockDB.Close()
	repo := NewGormProductRepository(db)

	tenantID := uuid.New()

	mock.ExpectQuery(`SELECT count\(\*\) FROM "products" WHERE tenant_id = \$1 AND sku = \$2`).
		WithArgs(tenantID, "WIDGET-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	exists, err := repo.ExistsBySKU(context.Background(), tenantID, "WIDGET-1")

	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormProductRepository_DeleteForTenant(t *testing.T) {
	t.Run("deletes an existing product", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormProductRepository(db)

		productID := uuid.New()
		tenantID := uuid.New()

		mock.ExpectExec(`DELETE FROM "products" WHERE tenant_id = \$1 AND id = \$2`).
			WithArgs(tenantID, productID).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.DeleteForTenant(context.Background(), tenantID, productID))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns ErrNotFound when nothing was deleted", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormProductRepository(db)

		productID := uuid.New()
		tenantID := uuid.New()

		mock.ExpectExec(`DELETE FROM "products" WHERE tenant_id = \$1 AND id = \$2`).
			WithArgs(tenantID, productID).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.DeleteForTenant(context.Background(), tenantID, productID)

		assert.Equal(t, shared.ErrNotFound, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
