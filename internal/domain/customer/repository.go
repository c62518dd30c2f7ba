package customer

import (
	"context"

	"github.com/google/uuid"
	"github.com/truthsource/backend/internal/domain/shared"
)

// Repository defines the interface for customer persistence
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Customer, error)
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Customer, error)
	FindByCode(ctx context.Context, tenantID uuid.UUID, code string) (*Customer, error)
	FindByEmail(ctx context.Context, tenantID uuid.UUID, email string) (*Customer, error)
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]Customer, error)
	Save(ctx context.Context, customer *Customer) error
	DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error
	CountForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (int64, error)
	ExistsByCode(ctx context.Context, tenantID uuid.UUID, code string) (bool, error)
}
