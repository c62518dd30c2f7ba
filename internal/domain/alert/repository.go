package alert

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/truthsource/backend/internal/domain/shared"
)

// Repository defines the interface for alert persistence
type Repository interface {
	// FindByIDForTenant finds an alert by ID within an organization
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Alert, error)

	// FindAllForTenant lists alerts for an organization
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, alertType *Type, status *Status, filter shared.Filter) ([]Alert, error)

	// CountOpenForTenant counts open alerts
	CountOpenForTenant(ctx context.Context, tenantID uuid.UUID) (int64, error)

	// HasOpenForEntity reports whether an open alert of the type already
	// covers the entity, so repeated events don't stack duplicates
	HasOpenForEntity(ctx context.Context, tenantID uuid.UUID, alertType Type, entityID uuid.UUID) (bool, error)

	// Save creates or updates an alert
	Save(ctx context.Context, alert *Alert) error

	// DeleteResolvedBefore prunes resolved alerts older than the cutoff
	DeleteResolvedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
