package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/truthsource/backend/internal/domain/billing"
	"github.com/truthsource/backend/internal/domain/integration"
	"github.com/truthsource/backend/internal/domain/shared"
)

// GormSubscriptionRepository implements billing.SubscriptionRepository using GORM
type GormSubscriptionRepository struct {
	db *gorm.DB
}

// NewGormSubscriptionRepository creates a new GormSubscriptionRepository
func NewGormSubscriptionRepository(db *gorm.DB) *GormSubscriptionRepository {
	return &GormSubscriptionRepository{db: db}
}

// FindByTenant finds an organization's subscription
func (r *GormSubscriptionRepository) FindByTenant(ctx context.Context, tenantID uuid.UUID) (*billing.Subscription, error) {
	var sub billing.Subscription
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		First(&sub).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &sub, nil
}

// FindByStripeCustomer resolves a Stripe customer ID to a subscription
func (r *GormSubscriptionRepository) FindByStripeCustomer(ctx context.Context, stripeCustomerID string) (*billing.Subscription, error) {
	var sub billing.Subscription
	if err := r.db.WithContext(ctx).
		Where("stripe_customer_id = ?", stripeCustomerID).
		First(&sub).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &sub, nil
}

// Save creates or updates a subscription
func (r *GormSubscriptionRepository) Save(ctx context.Context, sub *billing.Subscription) error {
	return r.db.WithContext(ctx).Save(sub).Error
}

// GormUsageRepository implements billing.UsageRepository by counting rows in
// the sync job and webhook event tables
type GormUsageRepository struct {
	db *gorm.DB
}

// NewGormUsageRepository creates a new GormUsageRepository
func NewGormUsageRepository(db *gorm.DB) *GormUsageRepository {
	return &GormUsageRepository{db: db}
}

// CountSyncJobsSince counts sync jobs created after the given time
func (r *GormUsageRepository) CountSyncJobsSince(ctx context.Context, tenantID uuid.UUID, since time.Time) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&integration.SyncJob{}).
		Where("tenant_id = ? AND created_at >= ?", tenantID, since).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountWebhookEventsSince counts webhook deliveries stored after the given time
func (r *GormUsageRepository) CountWebhookEventsSince(ctx context.Context, tenantID uuid.UUID, since time.Time) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&integration.WebhookEvent{}).
		Where("tenant_id = ? AND created_at >= ?", tenantID, since).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
