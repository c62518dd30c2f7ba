package order

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/truthsource/backend/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeOrder = "Order"

// Event type constants
const (
	EventTypeOrderIngested      = "OrderIngested"
	EventTypeOrderStatusChanged = "OrderStatusChanged"
)

// OrderIngestedEvent is published when an order first arrives from a platform
type OrderIngestedEvent struct {
	shared.BaseDomainEvent
	OrderID     uuid.UUID       `json:"order_id"`
	Platform    string          `json:"platform"`
	ExternalID  string          `json:"external_id"`
	OrderNumber string          `json:"order_number"`
	Total       decimal.Decimal `json:"total"`
}

// NewOrderIngestedEvent creates a new OrderIngestedEvent
func NewOrderIngestedEvent(o *Order) *OrderIngestedEvent {
	return &OrderIngestedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderIngested, AggregateTypeOrder, o.ID, o.TenantID),
		OrderID:         o.ID,
		Platform:        o.Platform,
		ExternalID:      o.ExternalID,
		OrderNumber:     o.OrderNumber,
		Total:           o.Total,
	}
}

// OrderStatusChangedEvent is published when the normalized status changes.
// Inventory reservation release and platform push-back both subscribe.
type OrderStatusChangedEvent struct {
	shared.BaseDomainEvent
	OrderID     uuid.UUID `json:"order_id"`
	Platform    string    `json:"platform"`
	OrderNumber string    `json:"order_number"`
	OldStatus   Status    `json:"old_status"`
	NewStatus   Status    `json:"new_status"`
}

// NewOrderStatusChangedEvent creates a new OrderStatusChangedEvent
func NewOrderStatusChangedEvent(o *Order, oldStatus, newStatus Status) *OrderStatusChangedEvent {
	return &OrderStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderStatusChanged, AggregateTypeOrder, o.ID, o.TenantID),
		OrderID:         o.ID,
		Platform:        o.Platform,
		OrderNumber:     o.OrderNumber,
		OldStatus:       oldStatus,
		NewStatus:       newStatus,
	}
}
