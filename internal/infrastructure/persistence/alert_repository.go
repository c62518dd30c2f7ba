package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/truthsource/backend/internal/domain/alert"
	"github.com/truthsource/backend/internal/domain/shared"
)

// GormAlertRepository implements alert.Repository using GORM
type GormAlertRepository struct {
	db *gorm.DB
}

// NewGormAlertRepository creates a new GormAlertRepository
func NewGormAlertRepository(db *gorm.DB) *GormAlertRepository {
	return &GormAlertRepository{db: db}
}

// FindByIDForTenant finds an alert by ID within an organization
func (r *GormAlertRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*alert.Alert, error) {
	var a alert.Alert
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&a).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// FindAllForTenant lists alerts for an organization
func (r *GormAlertRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, alertType *alert.Type, status *alert.Status, filter shared.Filter) ([]alert.Alert, error) {
	var alerts []alert.Alert
	query := r.db.WithContext(ctx).Model(&alert.Alert{}).Where("tenant_id = ?", tenantID)
	if alertType != nil {
		query = query.Where("type = ?", *alertType)
	}
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	query = applySearch(query, filter, "title", "message")
	query = applyFilter(query, filter, "created_at DESC")
	if err := query.Find(&alerts).Error; err != nil {
		return nil, err
	}
	return alerts, nil
}

// CountOpenForTenant counts open alerts
func (r *GormAlertRepository) CountOpenForTenant(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&alert.Alert{}).
		Where("tenant_id = ? AND status = ?", tenantID, alert.StatusOpen).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// HasOpenForEntity reports whether an open alert of the type already covers
// the entity
func (r *GormAlertRepository) HasOpenForEntity(ctx context.Context, tenantID uuid.UUID, alertType alert.Type, entityID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&alert.Alert{}).
		Where("tenant_id = ? AND type = ? AND entity_id = ? AND status = ?",
			tenantID, alertType, entityID, alert.StatusOpen).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Save creates or updates an alert
func (r *GormAlertRepository) Save(ctx context.Context, a *alert.Alert) error {
	return r.db.WithContext(ctx).Save(a).Error
}

// DeleteResolvedBefore prunes resolved alerts older than the cutoff
func (r *GormAlertRepository) DeleteResolvedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("status = ? AND updated_at < ?", alert.StatusResolved, cutoff).
		Delete(&alert.Alert{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
