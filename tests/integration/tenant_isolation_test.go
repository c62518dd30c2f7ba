// Tenant isolation tests: one organization must never be able to read,
// update, or delete another organization's records through the repositories.
package integration

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/truthsource/backend/internal/domain/catalog"
	"github.com/truthsource/backend/internal/domain/customer"
	"github.com/truthsource/backend/internal/domain/identity"
	"github.com/truthsource/backend/internal/domain/shared"
	"github.com/truthsource/backend/internal/infrastructure/persistence"
)

// tenantIsolationSetup provides test infrastructure with two isolated organizations
type tenantIsolationSetup struct {
	DB           *TestDB
	OrgRepo      *persistence.GormOrganizationRepository
	ProductRepo  *persistence.GormProductRepository
	CustomerRepo *persistence.GormCustomerRepository
	OrgA         *identity.Organization
	OrgB         *identity.Organization
}

func newTenantIsolationSetup(t *testing.T) *tenantIsolationSetup {
	t.Helper()

	testDB := NewTestDB(t)
	ctx := context.Background()

	orgRepo := persistence.NewGormOrganizationRepository(testDB.DB)

	orgA, err := identity.NewOrganization("acme-corp", "Acme Corp")
	require.NoError(t, err)
	require.NoError(t, orgRepo.Save(ctx, orgA))

	orgB, err := identity.NewOrganization("globex", "Globex Inc")
	require.NoError(t, err)
	require.NoError(t, orgRepo.Save(ctx, orgB))

	return &tenantIsolationSetup{
		DB:           testDB,
		OrgRepo:      orgRepo,
		ProductRepo:  persistence.NewGormProductRepository(testDB.DB),
		CustomerRepo: persistence.NewGormCustomerRepository(testDB.DB),
		OrgA:         orgA,
		OrgB:         orgB,
	}
}

func TestTenantIsolation_Products(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	setup := newTenantIsolationSetup(t)
	ctx := context.Background()

	productA, err := catalog.NewProduct(setup.OrgA.ID, "ISO-A-001", "Org A Widget", decimal.NewFromInt(10))
	require.NoError(t, err)
	require.NoError(t, setup.ProductRepo.Save(ctx, productA))

	productB, err := catalog.NewProduct(setup.OrgB.ID, "ISO-B-001", "Org B Widget", decimal.NewFromInt(20))
	require.NoError(t, err)
	require.NoError(t, setup.ProductRepo.Save(ctx, productB))

	t.Run("tenant-scoped reads do not cross organizations", func(t *testing.T) {
		// Org A sees its own product
		found, err := setup.ProductRepo.FindByIDForTenant(ctx, setup.OrgA.ID, productA.ID)
		require.NoError(t, err)
		assert.Equal(t, productA.ID, found.ID)

		// Org A cannot see org B's product
		_, err = setup.ProductRepo.FindByIDForTenant(ctx, setup.OrgA.ID, productB.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)

		// SKU lookup is tenant scoped as well
		_, err = setup.ProductRepo.FindBySKU(ctx, setup.OrgA.ID, "ISO-B-001")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("listings only return the organization's own rows", func(t *testing.T) {
		products, err := setup.ProductRepo.FindAllForTenant(ctx, setup.OrgA.ID, shared.Filter{Page: 1, PageSize: 100})
		require.NoError(t, err)
		for _, p := range products {
			assert.Equal(t, setup.OrgA.ID, p.TenantID)
		}
	})

	t.Run("cross-tenant delete does not remove the row", func(t *testing.T) {
		err := setup.ProductRepo.DeleteForTenant(ctx, setup.OrgA.ID, productB.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)

		// Org B's product is still there
		found, err := setup.ProductRepo.FindByIDForTenant(ctx, setup.OrgB.ID, productB.ID)
		require.NoError(t, err)
		assert.Equal(t, productB.ID, found.ID)
	})

	t.Run("same SKU can exist in both organizations", func(t *testing.T) {
		dup, err := catalog.NewProduct(setup.OrgB.ID, "ISO-A-001", "Org B Duplicate SKU", decimal.NewFromInt(5))
		require.NoError(t, err)
		require.NoError(t, setup.ProductRepo.Save(ctx, dup))

		foundA, err := setup.ProductRepo.FindBySKU(ctx, setup.OrgA.ID, "ISO-A-001")
		require.NoError(t, err)
		foundB, err := setup.ProductRepo.FindBySKU(ctx, setup.OrgB.ID, "ISO-A-001")
		require.NoError(t, err)
		assert.NotEqual(t, foundA.ID, foundB.ID)
	})
}

func TestTenantIsolation_Customers(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	setup := newTenantIsolationSetup(t)
	ctx := context.Background()

	custA, err := customer.NewCustomer(setup.OrgA.ID, "CUST-A", "Alpha Retail")
	require.NoError(t, err)
	require.NoError(t, setup.CustomerRepo.Save(ctx, custA))

	custB, err := customer.NewCustomer(setup.OrgB.ID, "CUST-B", "Beta Wholesale")
	require.NoError(t, err)
	require.NoError(t, setup.CustomerRepo.Save(ctx, custB))

	t.Run("tenant-scoped reads do not cross organizations", func(t *testing.T) {
		found, err := setup.CustomerRepo.FindByIDForTenant(ctx, setup.OrgA.ID, custA.ID)
		require.NoError(t, err)
		assert.Equal(t, custA.ID, found.ID)

		_, err = setup.CustomerRepo.FindByIDForTenant(ctx, setup.OrgA.ID, custB.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("code existence checks are tenant scoped", func(t *testing.T) {
		exists, err := setup.CustomerRepo.ExistsByCode(ctx, setup.OrgA.ID, custB.Code)
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("counts are tenant scoped", func(t *testing.T) {
		countA, err := setup.CustomerRepo.CountForTenant(ctx, setup.OrgA.ID, shared.Filter{})
		require.NoError(t, err)
		assert.Equal(t, int64(1), countA)
	})
}

func TestTenantIsolation_SuspendedOrganization(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	setup := newTenantIsolationSetup(t)
	ctx := context.Background()

	require.NoError(t, setup.OrgA.Suspend("payment failure"))
	require.NoError(t, setup.OrgRepo.Save(ctx, setup.OrgA))

	found, err := setup.OrgRepo.FindByID(ctx, setup.OrgA.ID)
	require.NoError(t, err)
	assert.Equal(t, identity.OrganizationStatusSuspended, found.Status)
	assert.False(t, found.IsActive())

	// Active listing excludes the suspended organization
	active, err := setup.OrgRepo.FindAllActive(ctx)
	require.NoError(t, err)
	for _, org := range active {
		assert.NotEqual(t, setup.OrgA.ID, org.ID)
	}
}
