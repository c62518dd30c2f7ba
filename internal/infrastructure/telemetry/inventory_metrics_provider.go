// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormInventoryMetricsProvider implements InventoryMetricsProvider using GORM.
// It queries the inventory_levels table directly for aggregated metrics.
type GormInventoryMetricsProvider struct {
	db *gorm.DB
}

// NewGormInventoryMetricsProvider creates a new GormInventoryMetricsProvider.
func NewGormInventoryMetricsProvider(db *gorm.DB) *GormInventoryMetricsProvider {
	return &GormInventoryMetricsProvider{db: db}
}

// GetLowStockCount returns how many levels sit at or below their reorder
// point for an organization.
func (p *GormInventoryMetricsProvider) GetLowStockCount(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var count int64
	err := p.db.WithContext(ctx).
		Table("inventory_levels").
		Where("tenant_id = ?", tenantID).
		Where("reorder_point > 0 AND (quantity_on_hand - quantity_reserved) <= reorder_point").
		Count(&count).Error

	return count, err
}

// GormSyncMetricsProvider implements SyncMetricsProvider using GORM.
type GormSyncMetricsProvider struct {
	db *gorm.DB
}

// NewGormSyncMetricsProvider creates a new GormSyncMetricsProvider.
func NewGormSyncMetricsProvider(db *gorm.DB) *GormSyncMetricsProvider {
	return &GormSyncMetricsProvider{db: db}
}

// GetQueuedJobCount returns how many sync jobs are waiting for a worker.
func (p *GormSyncMetricsProvider) GetQueuedJobCount(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var count int64
	err := p.db.WithContext(ctx).
		Table("sync_jobs").
		Where("tenant_id = ? AND status = ?", tenantID, "queued").
		Count(&count).Error

	return count, err
}

// GormTenantProvider implements TenantProvider using GORM.
type GormTenantProvider struct {
	db *gorm.DB
}

// NewGormTenantProvider creates a new GormTenantProvider.
func NewGormTenantProvider(db *gorm.DB) *GormTenantProvider {
	return &GormTenantProvider{db: db}
}

// GetActiveTenantIDs returns the IDs of organizations that are not suspended.
func (p *GormTenantProvider) GetActiveTenantIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := p.db.WithContext(ctx).
		Table("organizations").
		Select("id").
		Where("status IN ?", []string{"active", "trial"}).
		Find(&ids).Error

	return ids, err
}
