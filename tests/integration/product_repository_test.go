package integration

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/truthsource/backend/internal/domain/catalog"
	"github.com/truthsource/backend/internal/domain/shared"
	"github.com/truthsource/backend/internal/infrastructure/persistence"
)

// TestMain runs before any tests and handles cleanup
func TestMain(m *testing.M) {
	code := m.Run()
	CleanupSharedContainer()
	os.Exit(code)
}

// TestProductRepository_Integration tests the product repository against a real PostgreSQL database
func TestProductRepository_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := NewTestDB(t)
	repo := persistence.NewGormProductRepository(testDB.DB)
	ctx := context.Background()
	tenantID := uuid.New()

	// Create organization first (required for foreign key)
	testDB.CreateTestOrganization(tenantID)

	t.Run("Save and FindByID", func(t *testing.T) {
		product, err := catalog.NewProduct(tenantID, "wdg-001", "Widget", decimal.NewFromFloat(19.99))
		require.NoError(t, err)

		err = repo.Save(ctx, product)
		require.NoError(t, err)

		found, err := repo.FindByID(ctx, product.ID)
		require.NoError(t, err)
		assert.Equal(t, product.ID, found.ID)
		assert.Equal(t, "WDG-001", found.SKU)
		assert.Equal(t, product.Name, found.Name)
		assert.Equal(t, product.TenantID, found.TenantID)
		assert.True(t, found.UnitPrice.Equal(decimal.NewFromFloat(19.99)))
	})

	t.Run("FindByIDForTenant", func(t *testing.T) {
		product, err := catalog.NewProduct(tenantID, "WDG-002", "Tenant Widget", decimal.NewFromInt(5))
		require.NoError(t, err)

		err = repo.Save(ctx, product)
		require.NoError(t, err)

		// Should find with correct tenant
		found, err := repo.FindByIDForTenant(ctx, tenantID, product.ID)
		require.NoError(t, err)
		assert.Equal(t, product.ID, found.ID)

		// Should not find with different tenant
		otherTenant := uuid.New()
		_, err = repo.FindByIDForTenant(ctx, otherTenant, product.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("FindBySKU", func(t *testing.T) {
		product, err := catalog.NewProduct(tenantID, "wdg-003", "SKU Widget", decimal.NewFromInt(7))
		require.NoError(t, err)

		err = repo.Save(ctx, product)
		require.NoError(t, err)

		// SKUs are stored uppercase
		found, err := repo.FindBySKU(ctx, tenantID, "WDG-003")
		require.NoError(t, err)
		assert.Equal(t, "WDG-003", found.SKU)
	})

	t.Run("FindByBarcode", func(t *testing.T) {
		product, err := catalog.NewProduct(tenantID, "WDG-004", "Barcode Widget", decimal.NewFromInt(3))
		require.NoError(t, err)
		err = product.SetBarcode("1234567890123")
		require.NoError(t, err)

		err = repo.Save(ctx, product)
		require.NoError(t, err)

		found, err := repo.FindByBarcode(ctx, tenantID, "1234567890123")
		require.NoError(t, err)
		assert.Equal(t, product.ID, found.ID)
		assert.Equal(t, "1234567890123", found.Barcode)
	})

	t.Run("FindAllForTenant with pagination", func(t *testing.T) {
		// Create multiple products
		for i := 0; i < 10; i++ {
			product, err := catalog.NewProduct(tenantID, fmt.Sprintf("BULK-%03d", i), fmt.Sprintf("Bulk Widget %d", i), decimal.NewFromInt(1))
			require.NoError(t, err)
			err = repo.Save(ctx, product)
			require.NoError(t, err)
		}

		filter := shared.Filter{
			Page:     1,
			PageSize: 5,
		}
		products, err := repo.FindAllForTenant(ctx, tenantID, filter)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(products), 5)

		// Second page
		filter.Page = 2
		page2, err := repo.FindAllForTenant(ctx, tenantID, filter)
		require.NoError(t, err)
		assert.NotEmpty(t, page2)

		// Pages should not overlap
		firstIDs := make(map[uuid.UUID]bool)
		for _, p := range products {
			firstIDs[p.ID] = true
		}
		for _, p := range page2 {
			assert.False(t, firstIDs[p.ID], "page 2 should not repeat page 1 results")
		}
	})

	t.Run("ExistsBySKU", func(t *testing.T) {
		product, err := catalog.NewProduct(tenantID, "WDG-005", "Exists Widget", decimal.NewFromInt(2))
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, product))

		exists, err := repo.ExistsBySKU(ctx, tenantID, "WDG-005")
		require.NoError(t, err)
		assert.True(t, exists)

		exists, err = repo.ExistsBySKU(ctx, tenantID, "NOPE-999")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("DeleteForTenant", func(t *testing.T) {
		product, err := catalog.NewProduct(tenantID, "WDG-006", "Doomed Widget", decimal.NewFromInt(2))
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, product))

		err = repo.DeleteForTenant(ctx, tenantID, product.ID)
		require.NoError(t, err)

		_, err = repo.FindByIDForTenant(ctx, tenantID, product.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}
