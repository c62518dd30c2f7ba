package identity

import (
	"context"

	"github.com/google/uuid"
	"github.com/truthsource/backend/internal/domain/shared"
)

// OrganizationRepository defines the interface for organization persistence
type OrganizationRepository interface {
	// FindByID finds an organization by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Organization, error)

	// FindBySlug finds an organization by its slug
	FindBySlug(ctx context.Context, slug string) (*Organization, error)

	// FindAll finds all organizations matching the filter (platform operators only)
	FindAll(ctx context.Context, filter shared.Filter) ([]Organization, error)

	// FindAllActive returns every organization that can run scheduled syncs
	FindAllActive(ctx context.Context) ([]Organization, error)

	// Save creates or updates an organization
	Save(ctx context.Context, org *Organization) error

	// Count counts organizations matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)

	// ExistsBySlug checks if the slug is taken
	ExistsBySlug(ctx context.Context, slug string) (bool, error)
}

// UserRepository defines the interface for user persistence
type UserRepository interface {
	// FindByID finds a user by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)

	// FindByIDForTenant finds a user by ID within an organization
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*User, error)

	// FindByEmail finds a user by email within an organization
	FindByEmail(ctx context.Context, tenantID uuid.UUID, email string) (*User, error)

	// FindByEmailGlobal finds a user by email across organizations.
	// Login identifies the organization from the user record.
	FindByEmailGlobal(ctx context.Context, email string) (*User, error)

	// FindAllForTenant finds all users for an organization
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]User, error)

	// Save creates or updates a user
	Save(ctx context.Context, user *User) error

	// DeleteForTenant deletes a user within an organization
	DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error

	// CountForTenant counts users for an organization
	CountForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (int64, error)

	// CountAdmins counts active admin users in an organization.
	// Used to protect the last admin from demotion or deactivation.
	CountAdmins(ctx context.Context, tenantID uuid.UUID) (int64, error)

	// ExistsByEmail checks if a user with the email exists in the organization
	ExistsByEmail(ctx context.Context, tenantID uuid.UUID, email string) (bool, error)
}
