package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/truthsource/backend/internal/domain/shared"
)

// SubscriptionStatus mirrors the Stripe subscription lifecycle states the
// application acts on
type SubscriptionStatus string

const (
	SubscriptionTrialing SubscriptionStatus = "trialing"
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionPastDue  SubscriptionStatus = "past_due"
	SubscriptionCanceled SubscriptionStatus = "canceled"
)

// IsValid returns true for a known status
func (s SubscriptionStatus) IsValid() bool {
	switch s {
	case SubscriptionTrialing, SubscriptionActive, SubscriptionPastDue, SubscriptionCanceled:
		return true
	}
	return false
}

// Subscription links an organization to its Stripe subscription
type Subscription struct {
	shared.TenantAggregateRoot
	PlanCode             PlanCode           `gorm:"type:varchar(20);not null"`
	StripeCustomerID     string             `gorm:"type:varchar(100);not null;index"`
	StripeSubscriptionID string             `gorm:"type:varchar(100);index"`
	Status               SubscriptionStatus `gorm:"type:varchar(20);not null;default:'trialing'"`
	CurrentPeriodEnd     *time.Time         ``
}

// TableName returns the table name for GORM
func (Subscription) TableName() string {
	return "subscriptions"
}

// NewSubscription creates a trialing subscription for an organization
func NewSubscription(tenantID uuid.UUID, planCode PlanCode, stripeCustomerID string) (*Subscription, error) {
	if !planCode.IsValid() {
		return nil, shared.NewDomainError("UNKNOWN_PLAN", "Unknown plan code")
	}
	if stripeCustomerID == "" {
		return nil, shared.NewDomainError("INVALID_CUSTOMER", "Stripe customer ID cannot be empty")
	}

	return &Subscription{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		PlanCode:            planCode,
		StripeCustomerID:    stripeCustomerID,
		Status:              SubscriptionTrialing,
	}, nil
}

// Plan returns the subscribed plan's limits
func (s *Subscription) Plan() Plan {
	p, err := PlanByCode(s.PlanCode)
	if err != nil {
		// stored codes are validated on write; fail closed to the
		// smallest plan rather than panic
		p = plans[PlanStarter]
	}
	return p
}

// ApplyStripeUpdate syncs the local record from a Stripe lifecycle event
func (s *Subscription) ApplyStripeUpdate(stripeSubscriptionID string, status SubscriptionStatus, periodEnd *time.Time) error {
	if !status.IsValid() {
		return shared.NewDomainError("INVALID_STATUS", "Unknown subscription status")
	}

	if stripeSubscriptionID != "" {
		s.StripeSubscriptionID = stripeSubscriptionID
	}
	s.Status = status
	s.CurrentPeriodEnd = periodEnd
	s.Touch()
	s.IncrementVersion()

	return nil
}

// ChangePlan moves the subscription to another tier
func (s *Subscription) ChangePlan(planCode PlanCode) error {
	if !planCode.IsValid() {
		return shared.NewDomainError("UNKNOWN_PLAN", "Unknown plan code")
	}
	if s.Status == SubscriptionCanceled {
		return shared.NewDomainError("INVALID_STATE", "Canceled subscriptions cannot change plan")
	}

	s.PlanCode = planCode
	s.Touch()
	s.IncrementVersion()

	return nil
}

// IsUsable reports whether the organization gets service. Past-due keeps
// access until Stripe cancels.
func (s *Subscription) IsUsable() bool {
	return s.Status != SubscriptionCanceled
}
