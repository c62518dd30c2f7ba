package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/truthsource/backend/internal/domain/shared"
)

// LocationRepository defines the interface for location persistence
type LocationRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Location, error)
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Location, error)
	FindByCode(ctx context.Context, tenantID uuid.UUID, code string) (*Location, error)
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]Location, error)
	FindActiveForTenant(ctx context.Context, tenantID uuid.UUID) ([]Location, error)
	Save(ctx context.Context, location *Location) error
	DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error
	CountForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (int64, error)
	ExistsByCode(ctx context.Context, tenantID uuid.UUID, code string) (bool, error)
}

// LevelRepository defines the interface for inventory level persistence
type LevelRepository interface {
	// FindByID finds a level by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*InventoryLevel, error)

	// Find finds the level for a product at a location
	Find(ctx context.Context, tenantID, productID, locationID uuid.UUID) (*InventoryLevel, error)

	// FindOrCreate finds the level for a product at a location, creating a
	// zero-quantity row when none exists
	FindOrCreate(ctx context.Context, tenantID, productID, locationID uuid.UUID) (*InventoryLevel, error)

	// FindByProduct finds all levels for a product across locations
	FindByProduct(ctx context.Context, tenantID, productID uuid.UUID) ([]InventoryLevel, error)

	// FindAllForTenant finds all levels for an organization
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]InventoryLevel, error)

	// FindBelowReorderPoint finds levels at or below their reorder point
	FindBelowReorderPoint(ctx context.Context, tenantID uuid.UUID) ([]InventoryLevel, error)

	// TotalOnHand sums the on-hand quantity for a product across locations
	TotalOnHand(ctx context.Context, tenantID, productID uuid.UUID) (int64, error)

	// Save persists a level with optimistic locking on Version
	Save(ctx context.Context, level *InventoryLevel) error

	// CountForTenant counts levels for an organization
	CountForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (int64, error)
}

// AdjustmentRepository defines the interface for stock adjustment persistence
type AdjustmentRepository interface {
	// Save appends adjustment records
	Save(ctx context.Context, adjustments ...*StockAdjustment) error

	// FindForLevel lists adjustments for a product/location pair, newest first
	FindForLevel(ctx context.Context, tenantID, productID, locationID uuid.UUID, filter shared.Filter) ([]StockAdjustment, error)

	// FindForTenant lists adjustments for an organization, newest first
	FindForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]StockAdjustment, error)

	// FindSince lists adjustments created after the given time.
	// The anomaly baseline builds its movement series from this.
	FindSince(ctx context.Context, tenantID uuid.UUID, since time.Time) ([]StockAdjustment, error)

	// CountForTenant counts adjustments for an organization
	CountForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (int64, error)
}
