package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/truthsource/backend/internal/domain/integration"
	"github.com/truthsource/backend/internal/domain/shared"
)

// GormIntegrationRepository implements integration.Repository using GORM
type GormIntegrationRepository struct {
	db *gorm.DB
}

// NewGormIntegrationRepository creates a new GormIntegrationRepository
func NewGormIntegrationRepository(db *gorm.DB) *GormIntegrationRepository {
	return &GormIntegrationRepository{db: db}
}

// FindByID finds an integration by its ID
func (r *GormIntegrationRepository) FindByID(ctx context.Context, id uuid.UUID) (*integration.Integration, error) {
	var integ integration.Integration
	if err := r.db.WithContext(ctx).First(&integ, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &integ, nil
}

// FindByIDForTenant finds an integration by ID within an organization
func (r *GormIntegrationRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*integration.Integration, error) {
	var integ integration.Integration
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&integ).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &integ, nil
}

// FindAllForTenant finds all integrations for an organization
func (r *GormIntegrationRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]integration.Integration, error) {
	var integrations []integration.Integration
	query := r.db.WithContext(ctx).Model(&integration.Integration{}).Where("tenant_id = ?", tenantID)
	query = applySearch(query, filter, "display_name", "platform")
	query = applyFilter(query, filter, "created_at ASC")
	if err := query.Find(&integrations).Error; err != nil {
		return nil, err
	}
	return integrations, nil
}

// FindAllActive finds active integrations across all organizations
func (r *GormIntegrationRepository) FindAllActive(ctx context.Context) ([]integration.Integration, error) {
	var integrations []integration.Integration
	if err := r.db.WithContext(ctx).
		Where("status = ?", integration.IntegrationStatusActive).
		Order("created_at ASC").
		Find(&integrations).Error; err != nil {
		return nil, err
	}
	return integrations, nil
}

// FindActiveByPlatform finds the organization's active integration for one platform
func (r *GormIntegrationRepository) FindActiveByPlatform(ctx context.Context, tenantID uuid.UUID, platform integration.Platform) (*integration.Integration, error) {
	var integ integration.Integration
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND platform = ? AND status = ?", tenantID, platform, integration.IntegrationStatusActive).
		First(&integ).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &integ, nil
}

// Save creates or updates an integration
func (r *GormIntegrationRepository) Save(ctx context.Context, integ *integration.Integration) error {
	return r.db.WithContext(ctx).Save(integ).Error
}

// Delete removes an integration and its product mappings
func (r *GormIntegrationRepository) Delete(ctx context.Context, integ *integration.Integration) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&integration.ProductMapping{}, "integration_id = ?", integ.ID).Error; err != nil {
			return err
		}
		result := tx.Delete(&integration.Integration{}, "tenant_id = ? AND id = ?", integ.TenantID, integ.ID)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// CountForTenant counts integrations for an organization
func (r *GormIntegrationRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&integration.Integration{}).
		Where("tenant_id = ?", tenantID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// GormSyncJobRepository implements integration.SyncJobRepository using GORM
type GormSyncJobRepository struct {
	db *gorm.DB
}

// NewGormSyncJobRepository creates a new GormSyncJobRepository
func NewGormSyncJobRepository(db *gorm.DB) *GormSyncJobRepository {
	return &GormSyncJobRepository{db: db}
}

// FindByID finds a sync job by its ID
func (r *GormSyncJobRepository) FindByID(ctx context.Context, id uuid.UUID) (*integration.SyncJob, error) {
	var job integration.SyncJob
	if err := r.db.WithContext(ctx).First(&job, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &job, nil
}

// FindByIDForTenant finds a sync job by ID within an organization
func (r *GormSyncJobRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*integration.SyncJob, error) {
	var job integration.SyncJob
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&job).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &job, nil
}

// FindQueued returns queued jobs oldest-first, up to limit
func (r *GormSyncJobRepository) FindQueued(ctx context.Context, limit int) ([]integration.SyncJob, error) {
	var jobs []integration.SyncJob
	if err := r.db.WithContext(ctx).
		Where("status = ?", integration.SyncJobStatusQueued).
		Order("created_at ASC").
		Limit(limit).
		Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

// FindRetryDue returns failed jobs whose retry time has arrived
func (r *GormSyncJobRepository) FindRetryDue(ctx context.Context, now time.Time, limit int) ([]integration.SyncJob, error) {
	var jobs []integration.SyncJob
	if err := r.db.WithContext(ctx).
		Where("status = ? AND attempts < max_attempts AND (next_retry_at IS NULL OR next_retry_at <= ?)",
			integration.SyncJobStatusFailed, now).
		Order("next_retry_at ASC").
		Limit(limit).
		Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

// FindStaleRunning returns running jobs started before the cutoff
func (r *GormSyncJobRepository) FindStaleRunning(ctx context.Context, cutoff time.Time) ([]integration.SyncJob, error) {
	var jobs []integration.SyncJob
	if err := r.db.WithContext(ctx).
		Where("status = ? AND started_at IS NOT NULL AND started_at < ?",
			integration.SyncJobStatusRunning, cutoff).
		Order("started_at ASC").
		Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

// FindRecentForIntegration lists the latest jobs for an integration, newest first
func (r *GormSyncJobRepository) FindRecentForIntegration(ctx context.Context, tenantID, integrationID uuid.UUID, limit int) ([]integration.SyncJob, error) {
	var jobs []integration.SyncJob
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND integration_id = ?", tenantID, integrationID).
		Order("created_at DESC").
		Limit(limit).
		Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

// FindAllForTenant lists jobs for an organization
func (r *GormSyncJobRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]integration.SyncJob, error) {
	var jobs []integration.SyncJob
	query := r.db.WithContext(ctx).Model(&integration.SyncJob{}).Where("tenant_id = ?", tenantID)
	query = applyFilter(query, filter, "created_at DESC")
	if err := query.Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

// HasPending reports whether a queued or running job already exists for the
// integration and entity
func (r *GormSyncJobRepository) HasPending(ctx context.Context, integrationID uuid.UUID, entity integration.SyncEntity) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&integration.SyncJob{}).
		Where("integration_id = ? AND entity = ? AND status IN ?", integrationID, entity,
			[]integration.SyncJobStatus{integration.SyncJobStatusQueued, integration.SyncJobStatusRunning}).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Save creates or updates a sync job
func (r *GormSyncJobRepository) Save(ctx context.Context, job *integration.SyncJob) error {
	return r.db.WithContext(ctx).Save(job).Error
}

// GormMappingRepository implements integration.MappingRepository using GORM
type GormMappingRepository struct {
	db *gorm.DB
}

// NewGormMappingRepository creates a new GormMappingRepository
func NewGormMappingRepository(db *gorm.DB) *GormMappingRepository {
	return &GormMappingRepository{db: db}
}

// FindByProduct finds the mapping for a product on one integration
func (r *GormMappingRepository) FindByProduct(ctx context.Context, integrationID, productID uuid.UUID) (*integration.ProductMapping, error) {
	var mapping integration.ProductMapping
	if err := r.db.WithContext(ctx).
		Where("integration_id = ? AND product_id = ?", integrationID, productID).
		First(&mapping).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &mapping, nil
}

// FindByExternalID finds a mapping by the platform's product ID
func (r *GormMappingRepository) FindByExternalID(ctx context.Context, integrationID uuid.UUID, externalProductID string) (*integration.ProductMapping, error) {
	var mapping integration.ProductMapping
	if err := r.db.WithContext(ctx).
		Where("integration_id = ? AND external_product_id = ?", integrationID, externalProductID).
		First(&mapping).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &mapping, nil
}

// FindByExternalVariantID finds a mapping by the platform's variant ID
func (r *GormMappingRepository) FindByExternalVariantID(ctx context.Context, integrationID uuid.UUID, externalVariantID string) (*integration.ProductMapping, error) {
	var mapping integration.ProductMapping
	if err := r.db.WithContext(ctx).
		Where("integration_id = ? AND external_variant_id = ?", integrationID, externalVariantID).
		First(&mapping).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &mapping, nil
}

// FindAllForIntegration lists all mappings for an integration
func (r *GormMappingRepository) FindAllForIntegration(ctx context.Context, integrationID uuid.UUID) ([]integration.ProductMapping, error) {
	var mappings []integration.ProductMapping
	if err := r.db.WithContext(ctx).
		Where("integration_id = ?", integrationID).
		Order("created_at ASC").
		Find(&mappings).Error; err != nil {
		return nil, err
	}
	return mappings, nil
}

// Save creates or updates a mapping
func (r *GormMappingRepository) Save(ctx context.Context, mapping *integration.ProductMapping) error {
	return r.db.WithContext(ctx).Save(mapping).Error
}

// Delete removes a mapping
func (r *GormMappingRepository) Delete(ctx context.Context, mapping *integration.ProductMapping) error {
	result := r.db.WithContext(ctx).Delete(&integration.ProductMapping{}, "id = ?", mapping.ID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// GormConflictRepository implements integration.ConflictRepository using GORM
type GormConflictRepository struct {
	db *gorm.DB
}

// NewGormConflictRepository creates a new GormConflictRepository
func NewGormConflictRepository(db *gorm.DB) *GormConflictRepository {
	return &GormConflictRepository{db: db}
}

// FindByIDForTenant finds a conflict by ID within an organization
func (r *GormConflictRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*integration.SyncConflict, error) {
	var conflict integration.SyncConflict
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&conflict).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &conflict, nil
}

// FindUnresolvedForTenant lists open conflicts for an organization
func (r *GormConflictRepository) FindUnresolvedForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]integration.SyncConflict, error) {
	var conflicts []integration.SyncConflict
	query := r.db.WithContext(ctx).
		Model(&integration.SyncConflict{}).
		Where("tenant_id = ? AND resolved = ?", tenantID, false)
	query = applyFilter(query, filter, "created_at DESC")
	if err := query.Find(&conflicts).Error; err != nil {
		return nil, err
	}
	return conflicts, nil
}

// Save creates or updates a conflict record
func (r *GormConflictRepository) Save(ctx context.Context, conflict *integration.SyncConflict) error {
	return r.db.WithContext(ctx).Save(conflict).Error
}

// GormWebhookEventRepository implements integration.WebhookEventRepository using GORM
type GormWebhookEventRepository struct {
	db *gorm.DB
}

// NewGormWebhookEventRepository creates a new GormWebhookEventRepository
func NewGormWebhookEventRepository(db *gorm.DB) *GormWebhookEventRepository {
	return &GormWebhookEventRepository{db: db}
}

// FindByID finds a webhook event by its ID
func (r *GormWebhookEventRepository) FindByID(ctx context.Context, id uuid.UUID) (*integration.WebhookEvent, error) {
	var event integration.WebhookEvent
	if err := r.db.WithContext(ctx).First(&event, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &event, nil
}

// FindRetryable returns failed events with attempts remaining
func (r *GormWebhookEventRepository) FindRetryable(ctx context.Context, limit int) ([]integration.WebhookEvent, error) {
	var events []integration.WebhookEvent
	if err := r.db.WithContext(ctx).
		Where("status = ? AND attempts < ?", integration.WebhookStatusFailed, integration.WebhookMaxAttempts).
		Order("created_at ASC").
		Limit(limit).
		Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

// FindAllForIntegration lists stored deliveries for an integration
func (r *GormWebhookEventRepository) FindAllForIntegration(ctx context.Context, tenantID, integrationID uuid.UUID, filter shared.Filter) ([]integration.WebhookEvent, error) {
	var events []integration.WebhookEvent
	query := r.db.WithContext(ctx).
		Model(&integration.WebhookEvent{}).
		Where("tenant_id = ? AND integration_id = ?", tenantID, integrationID)
	query = applyFilter(query, filter, "created_at DESC")
	if err := query.Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

// Save creates or updates a webhook event
func (r *GormWebhookEventRepository) Save(ctx context.Context, event *integration.WebhookEvent) error {
	return r.db.WithContext(ctx).Save(event).Error
}

// DeleteProcessedBefore prunes processed deliveries older than the cutoff
func (r *GormWebhookEventRepository) DeleteProcessedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", integration.WebhookStatusProcessed, cutoff).
		Delete(&integration.WebhookEvent{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
