package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/truthsource/backend/internal/domain/shared"
)

// CategoryRepository defines the interface for category persistence
type CategoryRepository interface {
	// FindByID finds a category by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Category, error)

	// FindByIDForTenant finds a category by ID within an organization
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Category, error)

	// FindByName finds a category by its name within an organization
	FindByName(ctx context.Context, tenantID uuid.UUID, name string) (*Category, error)

	// FindAllForTenant finds all categories for an organization
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]Category, error)

	// Save creates or updates a category
	Save(ctx context.Context, category *Category) error

	// DeleteForTenant deletes a category within an organization
	DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error

	// HasProducts checks if any product references the category
	HasProducts(ctx context.Context, tenantID, categoryID uuid.UUID) (bool, error)

	// CountForTenant counts categories for an organization
	CountForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (int64, error)

	// ExistsByName checks if a category with the given name exists in the organization
	ExistsByName(ctx context.Context, tenantID uuid.UUID, name string) (bool, error)
}
