package inventory

import (
	"github.com/google/uuid"
	"github.com/truthsource/backend/internal/domain/shared"
)

// StockAdjustment is the immutable record of one inventory change. Rollbacks
// and the audit trail replay these records; they are never updated in place.
type StockAdjustment struct {
	shared.BaseEntity
	TenantID         uuid.UUID        `gorm:"type:uuid;not null;index"`
	ProductID        uuid.UUID        `gorm:"type:uuid;not null;index"`
	LocationID       uuid.UUID        `gorm:"type:uuid;not null;index"`
	Delta            int64            `gorm:"not null"`
	QuantityBefore   int64            `gorm:"not null"`
	QuantityAfter    int64            `gorm:"not null"`
	Reason           AdjustmentReason `gorm:"type:varchar(20);not null"`
	Reference        string           `gorm:"type:varchar(200)"` // order number, sync job ID, import ID
	ActorID          *uuid.UUID       `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (StockAdjustment) TableName() string {
	return "stock_adjustments"
}

func newStockAdjustment(level *InventoryLevel, delta, previous int64, reason AdjustmentReason, reference string, actorID *uuid.UUID) *StockAdjustment {
	return &StockAdjustment{
		BaseEntity:     shared.NewBaseEntity(),
		TenantID:       level.TenantID,
		ProductID:      level.ProductID,
		LocationID:     level.LocationID,
		Delta:          delta,
		QuantityBefore: previous,
		QuantityAfter:  level.QuantityOnHand,
		Reason:         reason,
		Reference:      reference,
		ActorID:        actorID,
	}
}
