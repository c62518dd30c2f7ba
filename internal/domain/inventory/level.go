package inventory

import (
	"github.com/google/uuid"
	"github.com/truthsource/backend/internal/domain/shared"
)

// AdjustmentReason classifies why an inventory level changed
type AdjustmentReason string

const (
	ReasonManual AdjustmentReason = "manual" // operator adjustment via API/UI
	ReasonSync   AdjustmentReason = "sync"   // value set from an external platform
	ReasonImport AdjustmentReason = "import" // CSV bulk import
	ReasonOrder  AdjustmentReason = "order"  // order reservation / fulfillment
)

// IsValid returns true for a known adjustment reason
func (r AdjustmentReason) IsValid() bool {
	switch r {
	case ReasonManual, ReasonSync, ReasonImport, ReasonOrder:
		return true
	}
	return false
}

// InventoryLevel is the quantity of one product at one location. It is the
// aggregate root for stock operations; every change is recorded as a
// StockAdjustment and raises an InventoryLevelChanged event.
type InventoryLevel struct {
	shared.TenantAggregateRoot
	ProductID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_level_tenant_product_location,priority:2"`
	LocationID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_level_tenant_product_location,priority:3"`
	QuantityOnHand  int64     `gorm:"not null;default:0"`
	QuantityReserved int64    `gorm:"not null;default:0"`
	ReorderPoint    int64     `gorm:"not null;default:0"`
	ReorderQuantity int64     `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (InventoryLevel) TableName() string {
	return "inventory_levels"
}

// NewInventoryLevel creates a zero-quantity level for a product at a location
func NewInventoryLevel(tenantID, productID, locationID uuid.UUID) *InventoryLevel {
	return &InventoryLevel{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		ProductID:           productID,
		LocationID:          locationID,
	}
}

// Available returns the quantity available for sale
func (l *InventoryLevel) Available() int64 {
	return l.QuantityOnHand - l.QuantityReserved
}

// IsBelowReorderPoint returns true when available stock has reached the reorder point
func (l *InventoryLevel) IsBelowReorderPoint() bool {
	return l.ReorderPoint > 0 && l.Available() <= l.ReorderPoint
}

// Adjust applies a delta to the on-hand quantity. The resulting quantity must
// stay non-negative and cover the reserved amount.
func (l *InventoryLevel) Adjust(delta int64, reason AdjustmentReason, reference string, actorID *uuid.UUID) (*StockAdjustment, error) {
	if !reason.IsValid() {
		return nil, shared.NewDomainError("INVALID_REASON", "Adjustment reason must be manual, sync, import, or order")
	}
	if delta == 0 {
		return nil, shared.NewDomainError("INVALID_DELTA", "Adjustment delta cannot be zero")
	}

	newQuantity := l.QuantityOnHand + delta
	if newQuantity < 0 {
		return nil, shared.ErrInsufficientStock
	}
	if newQuantity < l.QuantityReserved {
		return nil, shared.NewDomainError("RESERVED_EXCEEDS_STOCK", "Adjustment would drop stock below the reserved quantity")
	}

	previous := l.QuantityOnHand
	l.QuantityOnHand = newQuantity
	l.Touch()
	l.IncrementVersion()

	adjustment := newStockAdjustment(l, delta, previous, reason, reference, actorID)
	l.AddDomainEvent(NewInventoryLevelChangedEvent(l, delta, previous, reason, reference))

	return adjustment, nil
}

// Set replaces the on-hand quantity with an absolute value, recording the
// implied delta. Platform syncs and imports report absolute counts.
func (l *InventoryLevel) Set(quantity int64, reason AdjustmentReason, reference string, actorID *uuid.UUID) (*StockAdjustment, error) {
	if quantity < 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity cannot be negative")
	}
	delta := quantity - l.QuantityOnHand
	if delta == 0 {
		return nil, nil
	}
	return l.Adjust(delta, reason, reference, actorID)
}

// Reserve holds stock for an unfulfilled order
func (l *InventoryLevel) Reserve(quantity int64) error {
	if quantity <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Reserve quantity must be positive")
	}
	if l.QuantityReserved+quantity > l.QuantityOnHand {
		return shared.ErrInsufficientStock
	}

	l.QuantityReserved += quantity
	l.Touch()
	l.IncrementVersion()

	return nil
}

// Release returns reserved stock to the available pool
func (l *InventoryLevel) Release(quantity int64) error {
	if quantity <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Release quantity must be positive")
	}
	if quantity > l.QuantityReserved {
		return shared.NewDomainError("INVALID_QUANTITY", "Cannot release more than is reserved")
	}

	l.QuantityReserved -= quantity
	l.Touch()
	l.IncrementVersion()

	return nil
}

// Fulfill consumes reserved stock when an order ships
func (l *InventoryLevel) Fulfill(quantity int64, reference string, actorID *uuid.UUID) (*StockAdjustment, error) {
	if quantity <= 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Fulfill quantity must be positive")
	}
	if quantity > l.QuantityReserved {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Cannot fulfill more than is reserved")
	}

	l.QuantityReserved -= quantity
	return l.Adjust(-quantity, ReasonOrder, reference, actorID)
}

// SetReorderPoint configures the low-stock alert threshold and the suggested
// reorder quantity.
func (l *InventoryLevel) SetReorderPoint(point, quantity int64) error {
	if point < 0 || quantity < 0 {
		return shared.NewDomainError("INVALID_REORDER", "Reorder point and quantity cannot be negative")
	}

	l.ReorderPoint = point
	l.ReorderQuantity = quantity
	l.Touch()
	l.IncrementVersion()

	return nil
}
