package persistence

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/truthsource/backend/internal/domain/inventory"
	"github.com/truthsource/backend/internal/domain/shared"
)

func TestGormLevelRepository_Save(t *testing.T) {
	tenantID := uuid.New()
	productID := uuid.New()
	locationID := uuid.New()

	t.Run("updates with a version check", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormLevelRepository(db)

		level := inventory.NewInventoryLevel(tenantID, productID, locationID)
		_, err := level.Adjust(10, inventory.ReasonManual, "", nil)
		require.NoError(t, err)
		require.Equal(t, 2, level.Version)

		mock.ExpectExec(`UPDATE "inventory_levels" SET .* WHERE \(id = \$\d+ AND version = \$\d+\) AND "id" = \$\d+`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.Save(context.Background(), level))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("fails when another writer advanced the version", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormLevelRepository(db)

		level := inventory.NewInventoryLevel(tenantID, productID, locationID)
		_, err := level.Adjust(10, inventory.ReasonManual, "", nil)
		require.NoError(t, err)

		mock.ExpectExec(`UPDATE "inventory_levels" SET .* WHERE \(id = \$\d+ AND version = \$\d+\) AND "id" = \$\d+`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err = repo.Save(context.Background(), level)

		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "OPTIMISTIC_LOCK_FAILED", domainErr.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormLevelRepository_FindOrCreate(t *testing.T) {
	tenantID := uuid.New()
	productID := uuid.New()
	locationID := uuid.New()

	t.Run("returns the existing row", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormLevelRepository(db)

		levelID := uuid.New()
		rows := sqlmock.NewRows([]string{"id", "tenant_id", "product_id", "location_id", "quantity_on_hand", "version"}).
			AddRow(levelID, tenantID, productID, locationID, 42, 3)

		mock.ExpectQuery(`SELECT \* FROM "inventory_levels" WHERE tenant_id = \$1 AND product_id = \$2 AND location_id = \$3 ORDER BY .* LIMIT .*`).
			WithArgs(tenantID, productID, locationID, 1).
			WillReturnRows(rows)

		level, err := repo.FindOrCreate(context.Background(), tenantID, productID, locationID)

		require.NoError(t, err)
		assert.Equal(t, levelID, level.ID)
		assert.Equal(t, int64(42), level.QuantityOnHand)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("creates a zero-quantity row when none exists", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormLevelRepository(db)

		mock.ExpectQuery(`SELECT \* FROM "inventory_levels" WHERE tenant_id = \$1 AND product_id = \$2 AND location_id = \$3 ORDER BY .* LIMIT .*`).
			WithArgs(tenantID, productID, locationID, 1).
			WillReturnError(gorm.ErrRecordNotFound)

		mock.ExpectExec(`INSERT INTO "inventory_levels"`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		level, err := repo.FindOrCreate(context.Background(), tenantID, productID, locationID)

		require.NoError(t, err)
		assert.Equal(t, int64(0), level.QuantityOnHand)
		assert.Equal(t, tenantID, level.TenantID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormLevelRepository_TotalOnHand(t *testing.T) {
	db, mock, mockDB := newMockDB(t)
	defer mockDB.Close()
	repo := NewGormLevelRepository(db)

	tenantID := uuid.New()
	productID := uuid.New()

	mock.ExpectQuery(`SELECT COALESCE\(SUM\(quantity_on_hand\), 0\) FROM "inventory_levels" WHERE tenant_id = \$1 AND product_id = \$2`).
		WithArgs(tenantID, productID).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(57))

	total, err := repo.TotalOnHand(context.Background(), tenantID, productID)

	require.NoError(t, err)
	assert.Equal(t, int64(57), total)
	assert.NoError(t, mock.ExpectationsWereMet())
}
