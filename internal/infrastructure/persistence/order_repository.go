package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/truthsource/backend/internal/domain/order"
	"github.com/truthsource/backend/internal/domain/shared"
)

// GormOrderRepository implements order.Repository using GORM
type GormOrderRepository struct {
	db          *gorm.DB
	outboxSaver shared.OutboxEventSaver // optional, for transactional outbox pattern
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// SetOutboxEventSaver sets the outbox event saver for transactional event publishing
func (r *GormOrderRepository) SetOutboxEventSaver(saver shared.OutboxEventSaver) {
	r.outboxSaver = saver
}

// FindByID finds an order with its items by ID
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	var o order.Order
	if err := r.db.WithContext(ctx).
		Preload("Items").
		First(&o, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

// FindByIDForTenant finds an order by ID within an organization
func (r *GormOrderRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*order.Order, error) {
	var o order.Order
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&o).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

// FindByExternalID finds an order by platform and external ID
func (r *GormOrderRepository) FindByExternalID(ctx context.Context, tenantID uuid.UUID, platform, externalID string) (*order.Order, error) {
	var o order.Order
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("tenant_id = ? AND platform = ? AND external_id = ?", tenantID, platform, externalID).
		First(&o).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

// FindAllForTenant finds all orders for an organization
func (r *GormOrderRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]order.Order, error) {
	var orders []order.Order
	query := r.db.WithContext(ctx).
		Model(&order.Order{}).
		Preload("Items").
		Where("tenant_id = ?", tenantID)
	query = applySearch(query, filter, "order_number", "customer_email")
	query = applyFilter(query, filter, "placed_at DESC")
	if err := query.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// FindPlacedBetween lists orders placed inside a window, oldest first
func (r *GormOrderRepository) FindPlacedBetween(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]order.Order, error) {
	var orders []order.Order
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("tenant_id = ? AND placed_at >= ? AND placed_at < ?", tenantID, from, to).
		Order("placed_at ASC").
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// Save creates or updates an order including its items. Existing item rows
// are replaced so platform edits (added or removed lines) land cleanly.
// Pending domain events are written to the outbox in the same transaction
// when a saver is configured.
func (r *GormOrderRepository) Save(ctx context.Context, o *order.Order) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&order.OrderItem{}, "order_id = ?", o.ID).Error; err != nil {
			return err
		}
		if err := tx.Save(o).Error; err != nil {
			return err
		}

		if events := o.GetDomainEvents(); r.outboxSaver != nil && len(events) > 0 {
			if err := r.outboxSaver.SaveEvents(ctx, tx, events...); err != nil {
				return fmt.Errorf("failed to save events to outbox: %w", err)
			}
		}
		return nil
	})
}

// CountForTenant counts orders for an organization
func (r *GormOrderRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&order.Order{}).Where("tenant_id = ?", tenantID)
	query = applySearch(query, filter, "order_number", "customer_email")
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountPlacedSince counts orders placed after the given time
func (r *GormOrderRepository) CountPlacedSince(ctx context.Context, tenantID uuid.UUID, since time.Time) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&order.Order{}).
		Where("tenant_id = ? AND placed_at > ?", tenantID, since).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
