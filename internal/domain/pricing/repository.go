package pricing

import (
	"context"

	"github.com/google/uuid"
	"github.com/truthsource/backend/internal/domain/shared"
)

// RuleRepository defines the interface for pricing rule persistence
type RuleRepository interface {
	// FindByID finds a rule by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Rule, error)

	// FindByIDForTenant finds a rule by ID within an organization
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Rule, error)

	// FindAllForTenant finds all rules for an organization
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]Rule, error)

	// FindActiveOrdered returns active rules in ascending priority order.
	// Ties are broken by creation time so evaluation stays deterministic.
	FindActiveOrdered(ctx context.Context, tenantID uuid.UUID) ([]Rule, error)

	// Save creates or updates a rule
	Save(ctx context.Context, rule *Rule) error

	// SaveBatch persists multiple rules (priority reorder)
	SaveBatch(ctx context.Context, rules []*Rule) error

	// DeleteForTenant deletes a rule within an organization
	DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error

	// CountForTenant counts rules for an organization
	CountForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (int64, error)
}
