package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/truthsource/backend/internal/domain/audit"
	"github.com/truthsource/backend/internal/domain/shared"
)

// GormAuditRepository implements audit.Repository using GORM
type GormAuditRepository struct {
	db *gorm.DB
}

// NewGormAuditRepository creates a new GormAuditRepository
func NewGormAuditRepository(db *gorm.DB) *GormAuditRepository {
	return &GormAuditRepository{db: db}
}

// SaveBatch appends a batch of entries
func (r *GormAuditRepository) SaveBatch(ctx context.Context, entries []audit.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(entries, 200).Error
}

// FindForTenant queries entries for an organization, newest first
func (r *GormAuditRepository) FindForTenant(ctx context.Context, tenantID uuid.UUID, query audit.Query, filter shared.Filter) ([]audit.Entry, error) {
	var entries []audit.Entry
	q := r.applyQuery(r.db.WithContext(ctx).Model(&audit.Entry{}).Where("tenant_id = ?", tenantID), query)
	q = applyFilter(q, filter, "created_at DESC")
	if err := q.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// CountForTenant counts entries matching a query
func (r *GormAuditRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, query audit.Query) (int64, error) {
	var count int64
	q := r.applyQuery(r.db.WithContext(ctx).Model(&audit.Entry{}).Where("tenant_id = ?", tenantID), query)
	if err := q.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// DeleteOlderThan removes entries past the retention window
func (r *GormAuditRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&audit.Entry{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *GormAuditRepository) applyQuery(q *gorm.DB, query audit.Query) *gorm.DB {
	if query.ActorID != nil {
		q = q.Where("actor_id = ?", *query.ActorID)
	}
	if query.Action != nil {
		q = q.Where("action = ?", *query.Action)
	}
	if query.EntityType != "" {
		q = q.Where("entity_type = ?", query.EntityType)
	}
	if query.EntityID != nil {
		q = q.Where("entity_id = ?", *query.EntityID)
	}
	if query.From != nil {
		q = q.Where("created_at >= ?", *query.From)
	}
	if query.To != nil {
		q = q.Where("created_at <= ?", *query.To)
	}
	return q
}
