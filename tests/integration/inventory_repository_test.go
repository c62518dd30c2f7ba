package integration

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/truthsource/backend/internal/domain/inventory"
	"github.com/truthsource/backend/internal/domain/shared"
	"github.com/truthsource/backend/internal/infrastructure/persistence"
)

// TestLevelRepository_Integration tests the inventory level repository
// against a real PostgreSQL database
func TestLevelRepository_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := NewTestDB(t)
	repo := persistence.NewGormLevelRepository(testDB.DB)
	ctx := context.Background()
	tenantID := uuid.New()
	locationID := uuid.New()

	testDB.CreateTestOrganization(tenantID)
	testDB.CreateTestLocation(tenantID, locationID)

	t.Run("FindOrCreate creates a zero-quantity level", func(t *testing.T) {
		productID := uuid.New()
		testDB.CreateTestProduct(tenantID, productID)

		level, err := repo.FindOrCreate(ctx, tenantID, productID, locationID)
		require.NoError(t, err)
		assert.Equal(t, int64(0), level.QuantityOnHand)
		assert.Equal(t, int64(0), level.QuantityReserved)

		// Second call returns the same row
		again, err := repo.FindOrCreate(ctx, tenantID, productID, locationID)
		require.NoError(t, err)
		assert.Equal(t, level.ID, again.ID)
	})

	t.Run("Adjust and Save round-trip", func(t *testing.T) {
		productID := uuid.New()
		testDB.CreateTestProduct(tenantID, productID)

		level, err := repo.FindOrCreate(ctx, tenantID, productID, locationID)
		require.NoError(t, err)

		_, err = level.Adjust(25, inventory.ReasonManual, "initial stock", nil)
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, level))

		found, err := repo.Find(ctx, tenantID, productID, locationID)
		require.NoError(t, err)
		assert.Equal(t, int64(25), found.QuantityOnHand)
	})

	t.Run("optimistic lock rejects stale writes", func(t *testing.T) {
		productID := uuid.New()
		testDB.CreateTestProduct(tenantID, productID)

		level, err := repo.FindOrCreate(ctx, tenantID, productID, locationID)
		require.NoError(t, err)
		_, err = level.Adjust(10, inventory.ReasonManual, "seed", nil)
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, level))

		// Two readers adjust the same row
		a, err := repo.Find(ctx, tenantID, productID, locationID)
		require.NoError(t, err)
		b, err := repo.Find(ctx, tenantID, productID, locationID)
		require.NoError(t, err)

		_, err = a.Adjust(5, inventory.ReasonManual, "first writer", nil)
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, a))

		_, err = b.Adjust(-3, inventory.ReasonManual, "second writer", nil)
		require.NoError(t, err)
		err = repo.Save(ctx, b)
		require.Error(t, err, "stale write should be rejected")
	})

	t.Run("FindBelowReorderPoint", func(t *testing.T) {
		productID := uuid.New()
		testDB.CreateTestProduct(tenantID, productID)

		level, err := repo.FindOrCreate(ctx, tenantID, productID, locationID)
		require.NoError(t, err)
		_, err = level.Adjust(3, inventory.ReasonManual, "seed", nil)
		require.NoError(t, err)
		require.NoError(t, level.SetReorderPoint(5, 20))
		require.NoError(t, repo.Save(ctx, level))

		low, err := repo.FindBelowReorderPoint(ctx, tenantID)
		require.NoError(t, err)

		var ids []uuid.UUID
		for _, l := range low {
			ids = append(ids, l.ID)
		}
		assert.Contains(t, ids, level.ID)
	})

	t.Run("TotalOnHand sums across locations", func(t *testing.T) {
		productID := uuid.New()
		secondLocation := uuid.New()
		testDB.CreateTestProduct(tenantID, productID)
		testDB.CreateTestLocation(tenantID, secondLocation)

		first, err := repo.FindOrCreate(ctx, tenantID, productID, locationID)
		require.NoError(t, err)
		_, err = first.Adjust(7, inventory.ReasonManual, "", nil)
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, first))

		second, err := repo.FindOrCreate(ctx, tenantID, productID, secondLocation)
		require.NoError(t, err)
		_, err = second.Adjust(8, inventory.ReasonManual, "", nil)
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, second))

		total, err := repo.TotalOnHand(ctx, tenantID, productID)
		require.NoError(t, err)
		assert.Equal(t, int64(15), total)
	})

	t.Run("Find returns not found for unknown pair", func(t *testing.T) {
		_, err := repo.Find(ctx, tenantID, uuid.New(), locationID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}
