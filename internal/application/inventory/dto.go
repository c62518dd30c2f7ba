package inventory

import (
	"time"

	"github.com/google/uuid"

	"github.com/truthsource/backend/internal/domain/inventory"
)

// CreateLocationInput contains the input for location creation
type CreateLocationInput struct {
	OrgID   uuid.UUID
	Code    string
	Name    string
	Type    inventory.LocationType
	Address string
}

// UpdateLocationInput contains the input for location updates
type UpdateLocationInput struct {
	OrgID      uuid.UUID
	LocationID uuid.UUID
	Name       string
	Address    string
}

// LocationInfo contains location information returned by the API
type LocationInfo struct {
	ID        uuid.UUID
	OrgID     uuid.UUID
	Code      string
	Name      string
	Type      inventory.LocationType
	Address   string
	Active    bool
	CreatedAt time.Time
}

// AdjustStockInput contains the input for a relative stock adjustment
type AdjustStockInput struct {
	OrgID      uuid.UUID
	ProductID  uuid.UUID
	LocationID uuid.UUID
	Delta      int64
	Reason     inventory.AdjustmentReason
	Reference  string
	ActorID    *uuid.UUID
}

// SetStockInput contains the input for an absolute stock set
type SetStockInput struct {
	OrgID      uuid.UUID
	ProductID  uuid.UUID
	LocationID uuid.UUID
	Quantity   int64
	Reason     inventory.AdjustmentReason
	Reference  string
	ActorID    *uuid.UUID
}

// SetReorderPointInput configures the low-stock threshold for a level
type SetReorderPointInput struct {
	OrgID           uuid.UUID
	ProductID       uuid.UUID
	LocationID      uuid.UUID
	ReorderPoint    int64
	ReorderQuantity int64
}

// LevelInfo contains inventory level information returned by the API
type LevelInfo struct {
	ID               uuid.UUID
	OrgID            uuid.UUID
	ProductID        uuid.UUID
	LocationID       uuid.UUID
	QuantityOnHand   int64
	QuantityReserved int64
	Available        int64
	ReorderPoint     int64
	ReorderQuantity  int64
	BelowReorder     bool
	UpdatedAt        time.Time
}

// AdjustmentInfo contains one stock movement record
type AdjustmentInfo struct {
	ID             uuid.UUID
	ProductID      uuid.UUID
	LocationID     uuid.UUID
	Delta          int64
	QuantityBefore int64
	QuantityAfter  int64
	Reason         inventory.AdjustmentReason
	Reference      string
	ActorID        *uuid.UUID
	CreatedAt      time.Time
}

func toLocationInfo(l *inventory.Location) LocationInfo {
	return LocationInfo{
		ID:        l.ID,
		OrgID:     l.TenantID,
		Code:      l.Code,
		Name:      l.Name,
		Type:      l.Type,
		Address:   l.Address,
		Active:    l.Active,
		CreatedAt: l.CreatedAt,
	}
}

func toLevelInfo(l *inventory.InventoryLevel) LevelInfo {
	return LevelInfo{
		ID:               l.ID,
		OrgID:            l.TenantID,
		ProductID:        l.ProductID,
		LocationID:       l.LocationID,
		QuantityOnHand:   l.QuantityOnHand,
		QuantityReserved: l.QuantityReserved,
		Available:        l.Available(),
		ReorderPoint:     l.ReorderPoint,
		ReorderQuantity:  l.ReorderQuantity,
		BelowReorder:     l.IsBelowReorderPoint(),
		UpdatedAt:        l.UpdatedAt,
	}
}

func toAdjustmentInfo(a *inventory.StockAdjustment) AdjustmentInfo {
	return AdjustmentInfo{
		ID:             a.ID,
		ProductID:      a.ProductID,
		LocationID:     a.LocationID,
		Delta:          a.Delta,
		QuantityBefore: a.QuantityBefore,
		QuantityAfter:  a.QuantityAfter,
		Reason:         a.Reason,
		Reference:      a.Reference,
		ActorID:        a.ActorID,
		CreatedAt:      a.CreatedAt,
	}
}
