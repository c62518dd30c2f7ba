package integration

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/truthsource/backend/internal/domain/shared"
)

// Repository defines the interface for integration persistence
type Repository interface {
	// FindByID finds an integration by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Integration, error)

	// FindByIDForTenant finds an integration by ID within an organization
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Integration, error)

	// FindAllForTenant finds all integrations for an organization
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]Integration, error)

	// FindAllActive finds active integrations across all organizations;
	// the sync scheduler iterates these
	FindAllActive(ctx context.Context) ([]Integration, error)

	// FindActiveByPlatform finds the organization's active integration
	// for one platform
	FindActiveByPlatform(ctx context.Context, tenantID uuid.UUID, platform Platform) (*Integration, error)

	// Save creates or updates an integration
	Save(ctx context.Context, integ *Integration) error

	// Delete removes an integration and its mappings
	Delete(ctx context.Context, integ *Integration) error

	// CountForTenant counts integrations for an organization
	CountForTenant(ctx context.Context, tenantID uuid.UUID) (int64, error)
}

// SyncJobRepository defines the interface for sync job persistence
type SyncJobRepository interface {
	// FindByID finds a sync job by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*SyncJob, error)

	// FindByIDForTenant finds a sync job by ID within an organization
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*SyncJob, error)

	// FindQueued returns queued jobs oldest-first, up to limit
	FindQueued(ctx context.Context, limit int) ([]SyncJob, error)

	// FindRetryDue returns failed jobs whose retry time has arrived
	FindRetryDue(ctx context.Context, now time.Time, limit int) ([]SyncJob, error)

	// FindStaleRunning returns running jobs started before the cutoff;
	// the reconciler sweep fails these so they can retry
	FindStaleRunning(ctx context.Context, cutoff time.Time) ([]SyncJob, error)

	// FindRecentForIntegration lists the latest jobs for an integration,
	// newest first
	FindRecentForIntegration(ctx context.Context, tenantID, integrationID uuid.UUID, limit int) ([]SyncJob, error)

	// FindAllForTenant lists jobs for an organization
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]SyncJob, error)

	// HasPending reports whether a queued or running job already exists for
	// the integration and entity; the scheduler skips enqueueing duplicates
	HasPending(ctx context.Context, integrationID uuid.UUID, entity SyncEntity) (bool, error)

	// Save creates or updates a sync job
	Save(ctx context.Context, job *SyncJob) error
}

// MappingRepository defines the interface for product mapping persistence
type MappingRepository interface {
	// FindByProduct finds the mapping for a product on one integration
	FindByProduct(ctx context.Context, integrationID, productID uuid.UUID) (*ProductMapping, error)

	// FindByExternalID finds a mapping by the platform's product ID
	FindByExternalID(ctx context.Context, integrationID uuid.UUID, externalProductID string) (*ProductMapping, error)

	// FindByExternalVariantID finds a mapping by the platform's variant ID;
	// Shopify inventory webhooks identify stock by variant, not product
	FindByExternalVariantID(ctx context.Context, integrationID uuid.UUID, externalVariantID string) (*ProductMapping, error)

	// FindAllForIntegration lists all mappings for an integration
	FindAllForIntegration(ctx context.Context, integrationID uuid.UUID) ([]ProductMapping, error)

	// Save creates or updates a mapping
	Save(ctx context.Context, mapping *ProductMapping) error

	// Delete removes a mapping
	Delete(ctx context.Context, mapping *ProductMapping) error
}

// ConflictRepository defines the interface for sync conflict persistence
type ConflictRepository interface {
	// FindByIDForTenant finds a conflict by ID within an organization
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*SyncConflict, error)

	// FindUnresolvedForTenant lists open conflicts for an organization
	FindUnresolvedForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]SyncConflict, error)

	// Save creates or updates a conflict record
	Save(ctx context.Context, conflict *SyncConflict) error
}

// WebhookEventRepository defines the interface for webhook event persistence
type WebhookEventRepository interface {
	// FindByID finds a webhook event by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*WebhookEvent, error)

	// FindRetryable returns failed events with attempts remaining
	FindRetryable(ctx context.Context, limit int) ([]WebhookEvent, error)

	// FindAllForIntegration lists stored deliveries for an integration
	FindAllForIntegration(ctx context.Context, tenantID, integrationID uuid.UUID, filter shared.Filter) ([]WebhookEvent, error)

	// Save creates or updates a webhook event
	Save(ctx context.Context, event *WebhookEvent) error

	// DeleteProcessedBefore prunes processed deliveries older than the cutoff
	DeleteProcessedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
