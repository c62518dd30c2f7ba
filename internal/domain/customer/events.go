package customer

import (
	"github.com/google/uuid"
	"github.com/truthsource/backend/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeCustomer = "Customer"

// Event type constants
const (
	EventTypeCustomerCreated     = "CustomerCreated"
	EventTypeCustomerTierChanged = "CustomerTierChanged"
)

// CustomerCreatedEvent is published when a new customer is created
type CustomerCreatedEvent struct {
	shared.BaseDomainEvent
	CustomerID  uuid.UUID `json:"customer_id"`
	Code        string    `json:"code"`
	CompanyName string    `json:"company_name"`
}

// NewCustomerCreatedEvent creates a new CustomerCreatedEvent
func NewCustomerCreatedEvent(customer *Customer) *CustomerCreatedEvent {
	return &CustomerCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCustomerCreated, AggregateTypeCustomer, customer.ID, customer.TenantID),
		CustomerID:      customer.ID,
		Code:            customer.Code,
		CompanyName:     customer.CompanyName,
	}
}

// CustomerTierChangedEvent is published when a customer's pricing tier changes.
// Cached price quotes for the customer become stale at that point.
type CustomerTierChangedEvent struct {
	shared.BaseDomainEvent
	CustomerID uuid.UUID `json:"customer_id"`
	Code       string    `json:"code"`
	OldTier    Tier      `json:"old_tier"`
	NewTier    Tier      `json:"new_tier"`
}

// NewCustomerTierChangedEvent creates a new CustomerTierChangedEvent
func NewCustomerTierChangedEvent(customer *Customer, oldTier, newTier Tier) *CustomerTierChangedEvent {
	return &CustomerTierChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCustomerTierChanged, AggregateTypeCustomer, customer.ID, customer.TenantID),
		CustomerID:      customer.ID,
		Code:            customer.Code,
		OldTier:         oldTier,
		NewTier:         newTier,
	}
}
