package inventory

import (
	"github.com/google/uuid"
	"github.com/truthsource/backend/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeInventoryLevel = "InventoryLevel"

// Event type constants
const (
	EventTypeInventoryLevelChanged = "InventoryLevelChanged"
	EventTypeLowStockDetected      = "LowStockDetected"
)

// InventoryLevelChangedEvent is published on every stock change.
// Low-stock alerting, anomaly detection, and platform push all subscribe.
type InventoryLevelChangedEvent struct {
	shared.BaseDomainEvent
	ProductID        uuid.UUID        `json:"product_id"`
	LocationID       uuid.UUID        `json:"location_id"`
	Delta            int64            `json:"delta"`
	QuantityBefore   int64            `json:"quantity_before"`
	QuantityAfter    int64            `json:"quantity_after"`
	Reason           AdjustmentReason `json:"reason"`
	Reference        string           `json:"reference,omitempty"`
	BelowReorderPoint bool            `json:"below_reorder_point"`
}

// NewInventoryLevelChangedEvent creates a new InventoryLevelChangedEvent
func NewInventoryLevelChangedEvent(level *InventoryLevel, delta, previous int64, reason AdjustmentReason, reference string) *InventoryLevelChangedEvent {
	return &InventoryLevelChangedEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(EventTypeInventoryLevelChanged, AggregateTypeInventoryLevel, level.ID, level.TenantID),
		ProductID:         level.ProductID,
		LocationID:        level.LocationID,
		Delta:             delta,
		QuantityBefore:    previous,
		QuantityAfter:     level.QuantityOnHand,
		Reason:            reason,
		Reference:         reference,
		BelowReorderPoint: level.IsBelowReorderPoint(),
	}
}
