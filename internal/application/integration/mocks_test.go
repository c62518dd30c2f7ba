package integration

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	orderapp "github.com/truthsource/backend/internal/application/order"
	"github.com/truthsource/backend/internal/domain/catalog"
	"github.com/truthsource/backend/internal/domain/integration"
	"github.com/truthsource/backend/internal/domain/shared"
)

type MockIntegrationRepository struct{ mock.Mock }

func (m *MockIntegrationRepository) FindByID(ctx context.Context, id uuid.UUID) (*integration.Integration, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.Integration), args.Error(1)
}

func (m *MockIntegrationRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*integration.Integration, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.Integration), args.Error(1)
}

func (m *MockIntegrationRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]integration.Integration, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).([]integration.Integration), args.Error(1)
}

func (m *MockIntegrationRepository) FindAllActive(ctx context.Context) ([]integration.Integration, error) {
	args := m.Called(ctx)
	return args.Get(0).([]integration.Integration), args.Error(1)
}

func (m *MockIntegrationRepository) FindActiveByPlatform(ctx context.Context, tenantID uuid.UUID, platform integration.Platform) (*integration.Integration, error) {
	args := m.Called(ctx, tenantID, platform)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.Integration), args.Error(1)
}

func (m *MockIntegrationRepository) Save(ctx context.Context, integ *integration.Integration) error {
	args := m.Called(ctx, integ)
	return args.Error(0)
}

func (m *MockIntegrationRepository) Delete(ctx context.Context, integ *integration.Integration) error {
	args := m.Called(ctx, integ)
	return args.Error(0)
}

func (m *MockIntegrationRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).(int64), args.Error(1)
}

type MockSyncJobRepository struct{ mock.Mock }

func (m *MockSyncJobRepository) FindByID(ctx context.Context, id uuid.UUID) (*integration.SyncJob, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.SyncJob), args.Error(1)
}

func (m *MockSyncJobRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*integration.SyncJob, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.SyncJob), args.Error(1)
}

func (m *MockSyncJobRepository) FindQueued(ctx context.Context, limit int) ([]integration.SyncJob, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]integration.SyncJob), args.Error(1)
}

func (m *MockSyncJobRepository) FindRetryDue(ctx context.Context, now time.Time, limit int) ([]integration.SyncJob, error) {
	args := m.Called(ctx, now, limit)
	return args.Get(0).([]integration.SyncJob), args.Error(1)
}

func (m *MockSyncJobRepository) FindStaleRunning(ctx context.Context, cutoff time.Time) ([]integration.SyncJob, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).([]integration.SyncJob), args.Error(1)
}

func (m *MockSyncJobRepository) FindRecentForIntegration(ctx context.Context, tenantID, integrationID uuid.UUID, limit int) ([]integration.SyncJob, error) {
	args := m.Called(ctx, tenantID, integrationID, limit)
	return args.Get(0).([]integration.SyncJob), args.Error(1)
}

func (m *MockSyncJobRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]integration.SyncJob, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).([]integration.SyncJob), args.Error(1)
}

func (m *MockSyncJobRepository) HasPending(ctx context.Context, integrationID uuid.UUID, entity integration.SyncEntity) (bool, error) {
	args := m.Called(ctx, integrationID, entity)
	return args.Bool(0), args.Error(1)
}

func (m *MockSyncJobRepository) Save(ctx context.Context, job *integration.SyncJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

type MockMappingRepository struct{ mock.Mock }

func (m *MockMappingRepository) FindByProduct(ctx context.Context, integrationID, productID uuid.UUID) (*integration.ProductMapping, error) {
	args := m.Called(ctx, integrationID, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.ProductMapping), args.Error(1)
}

func (m *MockMappingRepository) FindByExternalID(ctx context.Context, integrationID uuid.UUID, externalProductID string) (*integration.ProductMapping, error) {
	args := m.Called(ctx, integrationID, externalProductID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.ProductMapping), args.Error(1)
}

func (m *MockMappingRepository) FindByExternalVariantID(ctx context.Context, integrationID uuid.UUID, externalVariantID string) (*integration.ProductMapping, error) {
	args := m.Called(ctx, integrationID, externalVariantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.ProductMapping), args.Error(1)
}

func (m *MockMappingRepository) FindAllForIntegration(ctx context.Context, integrationID uuid.UUID) ([]integration.ProductMapping, error) {
	args := m.Called(ctx, integrationID)
	return args.Get(0).([]integration.ProductMapping), args.Error(1)
}

func (m *MockMappingRepository) Save(ctx context.Context, mapping *integration.ProductMapping) error {
	args := m.Called(ctx, mapping)
	return args.Error(0)
}

func (m *MockMappingRepository) Delete(ctx context.Context, mapping *integration.ProductMapping) error {
	args := m.Called(ctx, mapping)
	return args.Error(0)
}

type MockConflictRepository struct{ mock.Mock }

func (m *MockConflictRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*integration.SyncConflict, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.SyncConflict), args.Error(1)
}

func (m *MockConflictRepository) FindUnresolvedForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]integration.SyncConflict, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).([]integration.SyncConflict), args.Error(1)
}

func (m *MockConflictRepository) Save(ctx context.Context, conflict *integration.SyncConflict) error {
	args := m.Called(ctx, conflict)
	return args.Error(0)
}

type MockWebhookEventRepository struct{ mock.Mock }

func (m *MockWebhookEventRepository) FindByID(ctx context.Context, id uuid.UUID) (*integration.WebhookEvent, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.WebhookEvent), args.Error(1)
}

func (m *MockWebhookEventRepository) FindRetryable(ctx context.Context, limit int) ([]integration.WebhookEvent, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]integration.WebhookEvent), args.Error(1)
}

func (m *MockWebhookEventRepository) FindAllForIntegration(ctx context.Context, tenantID, integrationID uuid.UUID, filter shared.Filter) ([]integration.WebhookEvent, error) {
	args := m.Called(ctx, tenantID, integrationID, filter)
	return args.Get(0).([]integration.WebhookEvent), args.Error(1)
}

func (m *MockWebhookEventRepository) Save(ctx context.Context, event *integration.WebhookEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockWebhookEventRepository) DeleteProcessedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

type MockProductStore struct{ mock.Mock }

func (m *MockProductStore) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*catalog.Product, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockProductStore) FindBySKU(ctx context.Context, tenantID uuid.UUID, sku string) (*catalog.Product, error) {
	args := m.Called(ctx, tenantID, sku)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockProductStore) Save(ctx context.Context, product *catalog.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

type MockStockReader struct{ mock.Mock }

func (m *MockStockReader) TotalOnHand(ctx context.Context, tenantID, productID uuid.UUID) (int64, error) {
	args := m.Called(ctx, tenantID, productID)
	return args.Get(0).(int64), args.Error(1)
}

type MockStockWriter struct{ mock.Mock }

func (m *MockStockWriter) SetFromPlatform(ctx context.Context, orgID, productID uuid.UUID, quantity int64, reference string) error {
	args := m.Called(ctx, orgID, productID, quantity, reference)
	return args.Error(0)
}

type MockOrderIngestor struct{ mock.Mock }

func (m *MockOrderIngestor) Ingest(ctx context.Context, input orderapp.IngestOrderInput) (*orderapp.IngestResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*orderapp.IngestResult), args.Error(1)
}

type MockConnector struct{ mock.Mock }

func (m *MockConnector) Platform() integration.Platform {
	args := m.Called()
	return args.Get(0).(integration.Platform)
}

func (m *MockConnector) PullProducts(ctx context.Context, creds integration.Credentials, since time.Time) ([]RemoteProduct, error) {
	args := m.Called(ctx, creds, since)
	return args.Get(0).([]RemoteProduct), args.Error(1)
}

func (m *MockConnector) PullOrders(ctx context.Context, creds integration.Credentials, from, to time.Time) ([]RemoteOrder, error) {
	args := m.Called(ctx, creds, from, to)
	return args.Get(0).([]RemoteOrder), args.Error(1)
}

func (m *MockConnector) Ping(ctx context.Context, creds integration.Credentials) error {
	args := m.Called(ctx, creds)
	return args.Error(0)
}

func (m *MockConnector) PullInventory(ctx context.Context, creds integration.Credentials, since time.Time) ([]RemoteInventory, error) {
	args := m.Called(ctx, creds, since)
	return args.Get(0).([]RemoteInventory), args.Error(1)
}

func (m *MockConnector) PushInventory(ctx context.Context, creds integration.Credentials, updates []InventoryPush) error {
	args := m.Called(ctx, creds, updates)
	return args.Error(0)
}

func (m *MockConnector) PushPrice(ctx context.Context, creds integration.Credentials, updates []PricePush) error {
	args := m.Called(ctx, creds, updates)
	return args.Error(0)
}

func (m *MockConnector) UpdateOrderStatus(ctx context.Context, creds integration.Credentials, externalID, status string) error {
	args := m.Called(ctx, creds, externalID, status)
	return args.Error(0)
}

func (m *MockConnector) ParseProductWebhook(payload []byte) ([]RemoteProduct, error) {
	args := m.Called(payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]RemoteProduct), args.Error(1)
}

func (m *MockConnector) ParseInventoryWebhook(payload []byte) (*RemoteInventory, error) {
	args := m.Called(payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*RemoteInventory), args.Error(1)
}

func (m *MockConnector) ParseOrderWebhook(payload []byte) (*RemoteOrder, error) {
	args := m.Called(payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*RemoteOrder), args.Error(1)
}

type MockChangeApplier struct{ mock.Mock }

func (m *MockChangeApplier) ApplyProduct(ctx context.Context, integ *integration.Integration, remote *RemoteProduct) error {
	args := m.Called(ctx, integ, remote)
	return args.Error(0)
}

func (m *MockChangeApplier) ApplyInventory(ctx context.Context, integ *integration.Integration, remote *RemoteInventory) error {
	args := m.Called(ctx, integ, remote)
	return args.Error(0)
}

func (m *MockChangeApplier) ApplyOrder(ctx context.Context, integ *integration.Integration, remote *RemoteOrder) error {
	args := m.Called(ctx, integ, remote)
	return args.Error(0)
}

// stubDedup remembers seen keys in memory
type stubDedup struct {
	seen map[string]bool
	err  error
}

func newStubDedup() *stubDedup {
	return &stubDedup{seen: make(map[string]bool)}
}

func (d *stubDedup) MarkProcessed(_ context.Context, key string, _ time.Duration) (bool, error) {
	if d.err != nil {
		return false, d.err
	}
	if d.seen[key] {
		return false, nil
	}
	d.seen[key] = true
	return true, nil
}

func (d *stubDedup) IsProcessed(_ context.Context, key string) (bool, error) {
	return d.seen[key], d.err
}

func (d *stubDedup) Close() error { return nil }

// stubRegistry resolves every platform to one connector
type stubRegistry struct{ connector Connector }

func (r stubRegistry) Connector(integration.Platform) (Connector, bool) {
	if r.connector == nil {
		return nil, false
	}
	return r.connector, true
}

// stubQuota allows or denies everything
type stubQuota struct{ err error }

func (q stubQuota) EnsureIntegrationAllowance(context.Context, uuid.UUID) error { return q.err }
func (q stubQuota) EnsureSyncAllowance(context.Context, uuid.UUID) error       { return q.err }
