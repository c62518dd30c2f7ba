package order

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/truthsource/backend/internal/domain/shared"
)

// Status represents the normalized order status
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

// IsValid returns true for a known status
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// IsTerminal returns true when no further transitions are allowed
func (s Status) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// validTransitions maps each status to the statuses it may move to
var validTransitions = map[Status][]Status{
	StatusPending:    {StatusProcessing, StatusShipped, StatusCancelled},
	StatusProcessing: {StatusShipped, StatusCancelled},
	StatusShipped:    {StatusDelivered},
	StatusDelivered:  {},
	StatusCancelled:  {},
}

// CanTransitionTo returns true if the move is allowed
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Order is an order ingested from an external commerce platform. It is keyed
// by (platform, external ID); repeated deliveries of the same order update the
// local copy instead of duplicating it.
type Order struct {
	shared.TenantAggregateRoot
	Platform          string          `gorm:"type:varchar(20);not null;uniqueIndex:idx_order_tenant_platform_ext,priority:2"`
	ExternalID        string          `gorm:"type:varchar(100);not null;uniqueIndex:idx_order_tenant_platform_ext,priority:3"`
	OrderNumber       string          `gorm:"type:varchar(100);not null;index"`
	CustomerID        *uuid.UUID      `gorm:"type:uuid;index"`
	CustomerEmail     string          `gorm:"type:varchar(200);index"`
	Status            Status          `gorm:"type:varchar(20);not null;default:'pending'"`
	RawPlatformStatus string          `gorm:"type:varchar(50)"` // status string as the platform reported it
	Currency          string          `gorm:"type:varchar(3);not null;default:'USD'"`
	Subtotal          decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	ShippingTotal     decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	TaxTotal          decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Total             decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	PlacedAt          time.Time       `gorm:"not null;index"`
	PlatformUpdatedAt time.Time       `gorm:"not null"`
	ShippingAddress   string          `gorm:"type:jsonb"` // address snapshot as JSON
	Items             []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

// OrderItem is one line of an order
type OrderItem struct {
	shared.BaseEntity
	OrderID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID *uuid.UUID      `gorm:"type:uuid;index"` // set when the SKU maps to a local product
	SKU       string          `gorm:"type:varchar(64);not null"`
	Name      string          `gorm:"type:varchar(200)"`
	Quantity  int64           `gorm:"not null"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	LineTotal decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (Order) TableName() string {
	return "orders"
}

// TableName returns the table name for GORM
func (OrderItem) TableName() string {
	return "order_items"
}

// NewOrder creates a new order from platform data
func NewOrder(tenantID uuid.UUID, platform, externalID, orderNumber string, placedAt time.Time) (*Order, error) {
	platform = strings.ToLower(strings.TrimSpace(platform))
	if platform == "" {
		return nil, shared.NewDomainError("INVALID_PLATFORM", "Platform cannot be empty")
	}
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return nil, shared.NewDomainError("INVALID_EXTERNAL_ID", "External order ID cannot be empty")
	}
	if orderNumber == "" {
		orderNumber = externalID
	}
	if placedAt.IsZero() {
		placedAt = time.Now()
	}

	o := &Order{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Platform:            platform,
		ExternalID:          externalID,
		OrderNumber:         orderNumber,
		Status:              StatusPending,
		Currency:            "USD",
		Subtotal:            decimal.Zero,
		ShippingTotal:       decimal.Zero,
		TaxTotal:            decimal.Zero,
		Total:               decimal.Zero,
		PlacedAt:            placedAt,
		PlatformUpdatedAt:   placedAt,
		ShippingAddress:     "{}",
	}

	o.AddDomainEvent(NewOrderIngestedEvent(o))

	return o, nil
}

// ReplaceItems swaps the full item list. Platform pulls always deliver the
// complete set of lines, so sync does item-level replace rather than merge.
func (o *Order) ReplaceItems(items []OrderItem) error {
	for i := range items {
		if items[i].Quantity <= 0 {
			return shared.NewDomainError("INVALID_QUANTITY", "Item quantity must be positive")
		}
		if items[i].SKU == "" {
			return shared.NewDomainError("INVALID_SKU", "Item SKU cannot be empty")
		}
		items[i].OrderID = o.ID
		if items[i].ID == uuid.Nil {
			items[i].BaseEntity = shared.NewBaseEntity()
			items[i].OrderID = o.ID
		}
		if items[i].LineTotal.IsZero() {
			items[i].LineTotal = items[i].UnitPrice.Mul(decimal.NewFromInt(items[i].Quantity))
		}
	}

	o.Items = items
	o.Touch()
	o.IncrementVersion()

	return nil
}

// SetTotals sets the money fields from platform data
func (o *Order) SetTotals(currency string, subtotal, shipping, tax, total decimal.Decimal) error {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency != "" && len(currency) != 3 {
		return shared.NewDomainError("INVALID_CURRENCY", "Currency must be a 3-letter ISO code")
	}
	if total.IsNegative() {
		return shared.NewDomainError("INVALID_TOTAL", "Order total cannot be negative")
	}

	if currency != "" {
		o.Currency = currency
	}
	o.Subtotal = subtotal
	o.ShippingTotal = shipping
	o.TaxTotal = tax
	o.Total = total
	o.Touch()
	o.IncrementVersion()

	return nil
}

// SetCustomer links the order to a local customer record
func (o *Order) SetCustomer(customerID *uuid.UUID, email string) {
	o.CustomerID = customerID
	o.CustomerEmail = strings.ToLower(strings.TrimSpace(email))
	o.Touch()
}

// SetShippingAddress stores the address snapshot as JSON
func (o *Order) SetShippingAddress(addressJSON string) {
	if addressJSON == "" {
		addressJSON = "{}"
	}
	o.ShippingAddress = addressJSON
	o.Touch()
}

// UpdateStatus moves the order to a new status, enforcing the transition table
func (o *Order) UpdateStatus(next Status, rawPlatformStatus string) error {
	if !next.IsValid() {
		return shared.NewDomainError("INVALID_STATUS", "Unknown order status")
	}
	if next == o.Status {
		o.RawPlatformStatus = rawPlatformStatus
		return nil
	}
	if !o.Status.CanTransitionTo(next) {
		return shared.NewDomainError("INVALID_STATE",
			"Cannot move order from "+string(o.Status)+" to "+string(next))
	}

	oldStatus := o.Status
	o.Status = next
	o.RawPlatformStatus = rawPlatformStatus
	o.Touch()
	o.IncrementVersion()

	o.AddDomainEvent(NewOrderStatusChangedEvent(o, oldStatus, next))

	return nil
}

// MarkPlatformUpdated records the platform's updated_at timestamp.
// Ingestion skips updates whose timestamp is not newer than this.
func (o *Order) MarkPlatformUpdated(at time.Time) {
	if at.After(o.PlatformUpdatedAt) {
		o.PlatformUpdatedAt = at
	}
}

// IsNewerThan returns true if the platform copy is newer than the local one
func (o *Order) IsNewerThan(platformUpdatedAt time.Time) bool {
	return o.PlatformUpdatedAt.After(platformUpdatedAt) || o.PlatformUpdatedAt.Equal(platformUpdatedAt)
}

// NeedsInventoryReservation returns true while the order holds stock
func (o *Order) NeedsInventoryReservation() bool {
	return o.Status == StatusPending || o.Status == StatusProcessing
}

// TotalQuantity sums the item quantities
func (o *Order) TotalQuantity() int64 {
	var total int64
	for _, item := range o.Items {
		total += item.Quantity
	}
	return total
}
