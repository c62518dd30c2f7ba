package billing

import (
	"github.com/truthsource/backend/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeSubscription = "Subscription"

// Event type constants
const (
	EventTypeSubscriptionProvisioned = "SubscriptionProvisioned"
	EventTypeSubscriptionChanged     = "SubscriptionChanged"
)

// SubscriptionProvisionedEvent is published when a new organization gets its
// Stripe customer and trial subscription
type SubscriptionProvisionedEvent struct {
	shared.BaseDomainEvent
	PlanCode         PlanCode `json:"plan_code"`
	StripeCustomerID string   `json:"stripe_customer_id"`
}

// NewSubscriptionProvisionedEvent creates a new SubscriptionProvisionedEvent
func NewSubscriptionProvisionedEvent(sub *Subscription) *SubscriptionProvisionedEvent {
	return &SubscriptionProvisionedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeSubscriptionProvisioned, AggregateTypeSubscription, sub.ID, sub.TenantID),
		PlanCode:         sub.PlanCode,
		StripeCustomerID: sub.StripeCustomerID,
	}
}

// SubscriptionChangedEvent is published when a subscription's plan or billing
// status changes, locally or via a Stripe webhook
type SubscriptionChangedEvent struct {
	shared.BaseDomainEvent
	PlanCode PlanCode           `json:"plan_code"`
	Status   SubscriptionStatus `json:"status"`
}

// NewSubscriptionChangedEvent creates a new SubscriptionChangedEvent
func NewSubscriptionChangedEvent(sub *Subscription) *SubscriptionChangedEvent {
	return &SubscriptionChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSubscriptionChanged, AggregateTypeSubscription, sub.ID, sub.TenantID),
		PlanCode:        sub.PlanCode,
		Status:          sub.Status,
	}
}
