package integration

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	orderapp "github.com/truthsource/backend/internal/application/order"
	"github.com/truthsource/backend/internal/domain/catalog"
	"github.com/truthsource/backend/internal/domain/integration"
	"github.com/truthsource/backend/internal/domain/shared"
)

type engineFixture struct {
	engine          *SyncEngine
	integrationRepo *MockIntegrationRepository
	jobRepo         *MockSyncJobRepository
	mappingRepo     *MockMappingRepository
	conflictRepo    *MockConflictRepository
	products        *MockProductStore
	stock           *MockStockReader
	stockWriter     *MockStockWriter
	orders          *MockOrderIngestor
	connector       *MockConnector
	integ           *integration.Integration
	orgID           uuid.UUID
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()

	f := &engineFixture{
		integrationRepo: new(MockIntegrationRepository),
		jobRepo:         new(MockSyncJobRepository),
		mappingRepo:     new(MockMappingRepository),
		conflictRepo:    new(MockConflictRepository),
		products:        new(MockProductStore),
		stock:           new(MockStockReader),
		stockWriter:     new(MockStockWriter),
		orders:          new(MockOrderIngestor),
		connector:       new(MockConnector),
		orgID:           uuid.New(),
	}

	integ, err := integration.NewIntegration(f.orgID, integration.PlatformShopify, "Main store", integration.Credentials{
		ShopDomain:  "acme.myshopify.com",
		AccessToken: "shpat_test",
	})
	require.NoError(t, err)
	integ.ClearDomainEvents()
	f.integ = integ

	f.engine = NewSyncEngine(f.integrationRepo, f.jobRepo, f.mappingRepo, f.conflictRepo,
		f.products, f.stock, f.stockWriter, f.orders, stubRegistry{connector: f.connector}, zap.NewNop())
	return f
}

func (f *engineFixture) newJob(t *testing.T, direction integration.SyncDirection, entity integration.SyncEntity) *integration.SyncJob {
	t.Helper()
	job, err := integration.NewSyncJob(f.orgID, f.integ, direction, entity, integration.SyncTriggerManual)
	require.NoError(t, err)
	return job
}

func TestRunJobProducts(t *testing.T) {
	ctx := context.Background()

	t.Run("creates unmatched remote product with mapping", func(t *testing.T) {
		f := newEngineFixture(t)
		job := f.newJob(t, integration.SyncDirectionPull, integration.SyncEntityProducts)

		remote := RemoteProduct{
			ExternalID: "gid-900", SKU: "WID-001", Name: "Widget",
			Price: decimal.NewFromInt(25), Active: true, UpdatedAt: time.Now(),
		}

		f.integrationRepo.On("FindByID", ctx, f.integ.ID).Return(f.integ, nil)
		f.jobRepo.On("Save", ctx, job).Return(nil)
		f.connector.On("PullProducts", ctx, f.integ.Credentials, mock.AnythingOfType("time.Time")).
			Return([]RemoteProduct{remote}, nil)
		f.mappingRepo.On("FindByExternalID", ctx, f.integ.ID, "gid-900").Return(nil, shared.ErrNotFound)
		f.products.On("FindBySKU", ctx, f.orgID, "WID-001").Return(nil, shared.ErrNotFound)
		f.products.On("Save", ctx, mock.AnythingOfType("*catalog.Product")).Return(nil)
		f.mappingRepo.On("Save", ctx, mock.MatchedBy(func(m *integration.ProductMapping) bool {
			return m.ExternalProductID == "gid-900" && m.IntegrationID == f.integ.ID
		})).Return(nil)
		f.integrationRepo.On("Save", ctx, f.integ).Return(nil)

		err := f.engine.RunJob(ctx, job)
		require.NoError(t, err)
		assert.Equal(t, integration.SyncJobStatusSucceeded, job.Status)
		assert.Equal(t, 1, job.Counters.Created)
		require.NotNil(t, f.integ.LastProductSyncAt)
	})

	t.Run("local edit conflicts are recorded remote wins", func(t *testing.T) {
		f := newEngineFixture(t)
		job := f.newJob(t, integration.SyncDirectionPull, integration.SyncEntityProducts)

		product, err := catalog.NewProduct(f.orgID, "WID-001", "Widget (local rename)", decimal.NewFromInt(30))
		require.NoError(t, err)
		product.ClearDomainEvents()

		mapping, err := integration.NewProductMapping(f.orgID, f.integ.ID, product.ID, "gid-900", "")
		require.NoError(t, err)
		// last sync predates the local edit
		mapping.MarkSynced("stale", product.UpdatedAt.Add(-time.Hour))

		remote := RemoteProduct{
			ExternalID: "gid-900", SKU: "WID-001", Name: "Widget",
			Price: decimal.NewFromInt(25), Active: true, UpdatedAt: time.Now(),
		}

		f.integrationRepo.On("FindByID", ctx, f.integ.ID).Return(f.integ, nil)
		f.jobRepo.On("Save", ctx, job).Return(nil)
		f.connector.On("PullProducts", ctx, f.integ.Credentials, mock.AnythingOfType("time.Time")).
			Return([]RemoteProduct{remote}, nil)
		f.mappingRepo.On("FindByExternalID", ctx, f.integ.ID, "gid-900").Return(mapping, nil)
		f.products.On("FindByIDForTenant", ctx, f.orgID, product.ID).Return(product, nil)
		f.conflictRepo.On("Save", ctx, mock.AnythingOfType("*integration.SyncConflict")).Return(nil)
		f.products.On("Save", ctx, product).Return(nil)
		f.mappingRepo.On("Save", ctx, mapping).Return(nil)
		f.integrationRepo.On("Save", ctx, f.integ).Return(nil)

		err = f.engine.RunJob(ctx, job)
		require.NoError(t, err)

		// remote values applied
		assert.Equal(t, "Widget", product.Name)
		assert.True(t, product.UnitPrice.Equal(decimal.NewFromInt(25)))
		assert.Equal(t, 1, job.Counters.Updated)
		// one conflict per overwritten field
		f.conflictRepo.AssertNumberOfCalls(t, "Save", 2)
	})

	t.Run("connector failure schedules a retry", func(t *testing.T) {
		f := newEngineFixture(t)
		job := f.newJob(t, integration.SyncDirectionPull, integration.SyncEntityProducts)

		f.integrationRepo.On("FindByID", ctx, f.integ.ID).Return(f.integ, nil)
		f.jobRepo.On("Save", ctx, job).Return(nil)
		f.connector.On("PullProducts", ctx, f.integ.Credentials, mock.AnythingOfType("time.Time")).
			Return([]RemoteProduct{}, errors.New("429 too many requests"))
		f.integrationRepo.On("Save", ctx, f.integ).Return(nil)

		err := f.engine.RunJob(ctx, job)
		require.Error(t, err)
		assert.Equal(t, integration.SyncJobStatusFailed, job.Status)
		assert.Contains(t, job.LastError, "429")
		require.NotNil(t, job.NextRetryAt)
		assert.Equal(t, 1, f.integ.ConsecutiveFailures)
	})

	t.Run("inactive integration abandons the job", func(t *testing.T) {
		f := newEngineFixture(t)
		require.NoError(t, f.integ.Pause())
		f.integ.ClearDomainEvents()
		job := f.newJob(t, integration.SyncDirectionPull, integration.SyncEntityProducts)

		f.integrationRepo.On("FindByID", ctx, f.integ.ID).Return(f.integ, nil)
		f.jobRepo.On("Save", ctx, job).Return(nil)

		err := f.engine.RunJob(ctx, job)
		require.NoError(t, err)
		assert.Equal(t, integration.SyncJobStatusCancelled, job.Status)
	})
}

func TestRunJobInventoryPush(t *testing.T) {
	ctx := context.Background()

	newMapped := func(t *testing.T, f *engineFixture, sku, externalID string, price int64) (*catalog.Product, *integration.ProductMapping) {
		t.Helper()
		product, err := catalog.NewProduct(f.orgID, sku, sku, decimal.NewFromInt(price))
		require.NoError(t, err)
		product.ClearDomainEvents()
		mapping, err := integration.NewProductMapping(f.orgID, f.integ.ID, product.ID, externalID, "")
		require.NoError(t, err)
		return product, mapping
	}

	t.Run("pushes changed quantities and prices, skips unchanged ones", func(t *testing.T) {
		f := newEngineFixture(t)
		job := f.newJob(t, integration.SyncDirectionPush, integration.SyncEntityInventory)

		changedProduct, changed := newMapped(t, f, "WID-001", "ext-1", 25)
		unchangedProduct, unchanged := newMapped(t, f, "WID-002", "ext-2", 30)
		unchanged.MarkSynced(pushHash("ext-2", 40, unchangedProduct.UnitPrice), time.Now())

		f.integrationRepo.On("FindByID", ctx, f.integ.ID).Return(f.integ, nil)
		f.jobRepo.On("Save", ctx, job).Return(nil)
		f.mappingRepo.On("FindAllForIntegration", ctx, f.integ.ID).
			Return([]integration.ProductMapping{*changed, *unchanged}, nil)
		f.connector.On("PullInventory", ctx, f.integ.Credentials, time.Time{}).
			Return([]RemoteInventory{}, nil)
		f.stock.On("TotalOnHand", ctx, f.orgID, changedProduct.ID).Return(int64(12), nil)
		f.stock.On("TotalOnHand", ctx, f.orgID, unchangedProduct.ID).Return(int64(40), nil)
		f.products.On("FindByIDForTenant", ctx, f.orgID, changedProduct.ID).Return(changedProduct, nil)
		f.products.On("FindByIDForTenant", ctx, f.orgID, unchangedProduct.ID).Return(unchangedProduct, nil)
		f.connector.On("PushInventory", ctx, f.integ.Credentials, mock.MatchedBy(func(updates []InventoryPush) bool {
			return len(updates) == 1 && updates[0].ExternalProductID == "ext-1" && updates[0].Quantity == 12
		})).Return(nil)
		f.connector.On("PushPrice", ctx, f.integ.Credentials, mock.MatchedBy(func(updates []PricePush) bool {
			return len(updates) == 1 && updates[0].ExternalProductID == "ext-1" &&
				updates[0].Price.Equal(decimal.NewFromInt(25))
		})).Return(nil)
		f.mappingRepo.On("Save", ctx, mock.AnythingOfType("*integration.ProductMapping")).Return(nil)
		f.integrationRepo.On("Save", ctx, f.integ).Return(nil)

		err := f.engine.RunJob(ctx, job)
		require.NoError(t, err)
		assert.Equal(t, integration.SyncJobStatusSucceeded, job.Status)
		assert.Equal(t, 1, job.Counters.Updated)
		assert.Equal(t, 1, job.Counters.Skipped)
	})

	t.Run("platform drift is kept as a conflict before the overwrite", func(t *testing.T) {
		f := newEngineFixture(t)
		job := f.newJob(t, integration.SyncDirectionPush, integration.SyncEntityInventory)

		product, mapping := newMapped(t, f, "WID-001", "ext-1", 25)

		f.integrationRepo.On("FindByID", ctx, f.integ.ID).Return(f.integ, nil)
		f.jobRepo.On("Save", ctx, job).Return(nil)
		f.mappingRepo.On("FindAllForIntegration", ctx, f.integ.ID).
			Return([]integration.ProductMapping{*mapping}, nil)
		f.connector.On("PullInventory", ctx, f.integ.Credentials, time.Time{}).
			Return([]RemoteInventory{{ExternalProductID: "ext-1", Quantity: 99}}, nil)
		f.stock.On("TotalOnHand", ctx, f.orgID, product.ID).Return(int64(12), nil)
		f.products.On("FindByIDForTenant", ctx, f.orgID, product.ID).Return(product, nil)
		f.conflictRepo.On("Save", ctx, mock.MatchedBy(func(c *integration.SyncConflict) bool {
			return c.EntityType == "inventory" && c.Field == "quantity_on_hand" &&
				c.LocalValue == "12" && c.RemoteValue == "99"
		})).Return(nil)
		f.connector.On("PushInventory", ctx, f.integ.Credentials, mock.Anything).Return(nil)
		f.connector.On("PushPrice", ctx, f.integ.Credentials, mock.Anything).Return(nil)
		f.mappingRepo.On("Save", ctx, mock.AnythingOfType("*integration.ProductMapping")).Return(nil)
		f.integrationRepo.On("Save", ctx, f.integ).Return(nil)

		err := f.engine.RunJob(ctx, job)
		require.NoError(t, err)
		f.conflictRepo.AssertNumberOfCalls(t, "Save", 1)
		assert.Equal(t, 1, job.Counters.Updated)
	})

	t.Run("nothing to push completes without calling the platform", func(t *testing.T) {
		f := newEngineFixture(t)
		job := f.newJob(t, integration.SyncDirectionPush, integration.SyncEntityInventory)

		f.integrationRepo.On("FindByID", ctx, f.integ.ID).Return(f.integ, nil)
		f.jobRepo.On("Save", ctx, job).Return(nil)
		f.mappingRepo.On("FindAllForIntegration", ctx, f.integ.ID).
			Return([]integration.ProductMapping{}, nil)
		f.integrationRepo.On("Save", ctx, f.integ).Return(nil)

		err := f.engine.RunJob(ctx, job)
		require.NoError(t, err)
		assert.Equal(t, integration.SyncJobStatusSucceeded, job.Status)
		f.connector.AssertNotCalled(t, "PushInventory", mock.Anything, mock.Anything, mock.Anything)
		f.connector.AssertNotCalled(t, "PushPrice", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestApplyInventory(t *testing.T) {
	ctx := context.Background()

	t.Run("mapped product takes the platform quantity", func(t *testing.T) {
		f := newEngineFixture(t)
		productID := uuid.New()

		mapping, err := integration.NewProductMapping(f.orgID, f.integ.ID, productID, "ext-1", "")
		require.NoError(t, err)

		f.mappingRepo.On("FindByExternalID", ctx, f.integ.ID, "ext-1").Return(mapping, nil)
		f.stockWriter.On("SetFromPlatform", ctx, f.orgID, productID, int64(7), "webhook:shopify").Return(nil)

		err = f.engine.ApplyInventory(ctx, f.integ, &RemoteInventory{ExternalProductID: "ext-1", Quantity: 7})
		require.NoError(t, err)
		f.stockWriter.AssertExpectations(t)
	})

	t.Run("variant-only record resolves through the variant mapping", func(t *testing.T) {
		f := newEngineFixture(t)
		productID := uuid.New()

		mapping, err := integration.NewProductMapping(f.orgID, f.integ.ID, productID, "ext-1", "var-9")
		require.NoError(t, err)

		f.mappingRepo.On("FindByExternalVariantID", ctx, f.integ.ID, "var-9").Return(mapping, nil)
		f.stockWriter.On("SetFromPlatform", ctx, f.orgID, productID, int64(3), mock.AnythingOfType("string")).Return(nil)

		err = f.engine.ApplyInventory(ctx, f.integ, &RemoteInventory{ExternalVariantID: "var-9", Quantity: 3})
		require.NoError(t, err)
	})

	t.Run("sync-disabled mapping leaves the ledger alone", func(t *testing.T) {
		f := newEngineFixture(t)

		mapping, err := integration.NewProductMapping(f.orgID, f.integ.ID, uuid.New(), "ext-1", "")
		require.NoError(t, err)
		mapping.DisableSync()

		f.mappingRepo.On("FindByExternalID", ctx, f.integ.ID, "ext-1").Return(mapping, nil)

		err = f.engine.ApplyInventory(ctx, f.integ, &RemoteInventory{ExternalProductID: "ext-1", Quantity: 7})
		require.NoError(t, err)
		f.stockWriter.AssertNotCalled(t, "SetFromPlatform",
			mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unmapped record falls back to SKU", func(t *testing.T) {
		f := newEngineFixture(t)

		product, err := catalog.NewProduct(f.orgID, "WID-001", "Widget", decimal.NewFromInt(25))
		require.NoError(t, err)
		product.ClearDomainEvents()

		f.mappingRepo.On("FindByExternalID", ctx, f.integ.ID, "ext-1").Return(nil, shared.ErrNotFound)
		f.products.On("FindBySKU", ctx, f.orgID, "WID-001").Return(product, nil)
		f.stockWriter.On("SetFromPlatform", ctx, f.orgID, product.ID, int64(12), mock.AnythingOfType("string")).Return(nil)

		err = f.engine.ApplyInventory(ctx, f.integ, &RemoteInventory{ExternalProductID: "ext-1", SKU: "WID-001", Quantity: 12})
		require.NoError(t, err)
	})

	t.Run("record matching nothing reports an error", func(t *testing.T) {
		f := newEngineFixture(t)

		f.mappingRepo.On("FindByExternalID", ctx, f.integ.ID, "ext-x").Return(nil, shared.ErrNotFound)

		err := f.engine.ApplyInventory(ctx, f.integ, &RemoteInventory{ExternalProductID: "ext-x", Quantity: 5})
		require.Error(t, err)
	})
}

func TestApplyOrderAndProduct(t *testing.T) {
	ctx := context.Background()

	t.Run("order apply ingests through the order pipeline", func(t *testing.T) {
		f := newEngineFixture(t)

		f.orders.On("Ingest", ctx, mock.MatchedBy(func(in orderapp.IngestOrderInput) bool {
			return in.ExternalID == "1001" && in.Platform == "shopify" && in.OrgID == f.orgID
		})).Return(&orderapp.IngestResult{Created: true}, nil)

		err := f.engine.ApplyOrder(ctx, f.integ, &RemoteOrder{
			ExternalID: "1001", OrderNumber: "#1001", Status: "processing", Total: decimal.NewFromInt(50),
		})
		require.NoError(t, err)
	})

	t.Run("product apply creates an unmatched product with mapping", func(t *testing.T) {
		f := newEngineFixture(t)

		f.mappingRepo.On("FindByExternalID", ctx, f.integ.ID, "gid-900").Return(nil, shared.ErrNotFound)
		f.products.On("FindBySKU", ctx, f.orgID, "WID-001").Return(nil, shared.ErrNotFound)
		f.products.On("Save", ctx, mock.AnythingOfType("*catalog.Product")).Return(nil)
		f.mappingRepo.On("Save", ctx, mock.MatchedBy(func(m *integration.ProductMapping) bool {
			return m.ExternalProductID == "gid-900"
		})).Return(nil)

		err := f.engine.ApplyProduct(ctx, f.integ, &RemoteProduct{
			ExternalID: "gid-900", SKU: "WID-001", Name: "Widget",
			Price: decimal.NewFromInt(25), Active: true, UpdatedAt: time.Now(),
		})
		require.NoError(t, err)
	})
}

func TestRunJobOrders(t *testing.T) {
	ctx := context.Background()

	t.Run("ingests pulled orders and tallies outcomes", func(t *testing.T) {
		f := newEngineFixture(t)
		job := f.newJob(t, integration.SyncDirectionPull, integration.SyncEntityOrders)

		remotes := []RemoteOrder{
			{ExternalID: "1001", OrderNumber: "#1001", Status: "processing", Total: decimal.NewFromInt(50)},
			{ExternalID: "1002", OrderNumber: "#1002", Status: "shipped", Total: decimal.NewFromInt(75)},
		}

		f.integrationRepo.On("FindByID", ctx, f.integ.ID).Return(f.integ, nil)
		f.jobRepo.On("Save", ctx, job).Return(nil)
		f.connector.On("PullOrders", ctx, f.integ.Credentials,
			mock.AnythingOfType("time.Time"), mock.AnythingOfType("time.Time")).
			Return(remotes, nil)
		f.orders.On("Ingest", ctx, mock.MatchedBy(func(in orderapp.IngestOrderInput) bool {
			return in.ExternalID == "1001" && in.Platform == "shopify"
		})).Return(&orderapp.IngestResult{Created: true}, nil)
		f.orders.On("Ingest", ctx, mock.MatchedBy(func(in orderapp.IngestOrderInput) bool {
			return in.ExternalID == "1002"
		})).Return(&orderapp.IngestResult{Skipped: true}, nil)
		f.integrationRepo.On("Save", ctx, f.integ).Return(nil)

		err := f.engine.RunJob(ctx, job)
		require.NoError(t, err)
		assert.Equal(t, integration.SyncJobStatusSucceeded, job.Status)
		assert.Equal(t, 1, job.Counters.Created)
		assert.Equal(t, 1, job.Counters.Skipped)
		require.NotNil(t, f.integ.LastOrderSyncAt)
	})

	t.Run("record level failures yield partial status", func(t *testing.T) {
		f := newEngineFixture(t)
		job := f.newJob(t, integration.SyncDirectionPull, integration.SyncEntityOrders)

		remotes := []RemoteOrder{
			{ExternalID: "1001", Status: "processing"},
			{ExternalID: "bad", Status: "processing"},
		}

		f.integrationRepo.On("FindByID", ctx, f.integ.ID).Return(f.integ, nil)
		f.jobRepo.On("Save", ctx, job).Return(nil)
		f.connector.On("PullOrders", ctx, f.integ.Credentials,
			mock.AnythingOfType("time.Time"), mock.AnythingOfType("time.Time")).
			Return(remotes, nil)
		f.orders.On("Ingest", ctx, mock.MatchedBy(func(in orderapp.IngestOrderInput) bool {
			return in.ExternalID == "1001"
		})).Return(&orderapp.IngestResult{Created: true}, nil)
		f.orders.On("Ingest", ctx, mock.MatchedBy(func(in orderapp.IngestOrderInput) bool {
			return in.ExternalID == "bad"
		})).Return(nil, shared.NewDomainError("INVALID_TOTAL", "Order total cannot be negative"))
		f.integrationRepo.On("Save", ctx, f.integ).Return(nil)

		err := f.engine.RunJob(ctx, job)
		require.NoError(t, err)
		assert.Equal(t, integration.SyncJobStatusPartial, job.Status)
		assert.Equal(t, 1, job.Counters.Failed)
	})
}
