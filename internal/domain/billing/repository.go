package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SubscriptionRepository defines the interface for subscription persistence
type SubscriptionRepository interface {
	// FindByTenant finds an organization's subscription
	FindByTenant(ctx context.Context, tenantID uuid.UUID) (*Subscription, error)

	// FindByStripeCustomer resolves a Stripe customer ID to a subscription;
	// webhook handlers use this to locate the tenant
	FindByStripeCustomer(ctx context.Context, stripeCustomerID string) (*Subscription, error)

	// Save creates or updates a subscription
	Save(ctx context.Context, sub *Subscription) error
}

// UsageRepository measures metered resources per organization
type UsageRepository interface {
	// CountSyncJobsSince counts sync jobs created after the given time
	CountSyncJobsSince(ctx context.Context, tenantID uuid.UUID, since time.Time) (int64, error)

	// CountWebhookEventsSince counts webhook deliveries stored after the
	// given time
	CountWebhookEventsSince(ctx context.Context, tenantID uuid.UUID, since time.Time) (int64, error)
}
