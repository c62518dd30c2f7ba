package order

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/truthsource/backend/internal/domain/shared"
)

// Repository defines the interface for order persistence
type Repository interface {
	// FindByID finds an order (with items) by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)

	// FindByIDForTenant finds an order by ID within an organization
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Order, error)

	// FindByExternalID finds an order by platform and external ID
	FindByExternalID(ctx context.Context, tenantID uuid.UUID, platform, externalID string) (*Order, error)

	// FindAllForTenant finds all orders for an organization
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]Order, error)

	// FindPlacedBetween lists orders placed inside a window; the demand
	// forecaster and the order anomaly baseline consume this
	FindPlacedBetween(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]Order, error)

	// Save creates or updates an order including its items
	Save(ctx context.Context, order *Order) error

	// CountForTenant counts orders for an organization
	CountForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (int64, error)

	// CountPlacedSince counts orders placed after the given time
	CountPlacedSince(ctx context.Context, tenantID uuid.UUID, since time.Time) (int64, error)
}
