package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/truthsource/backend/internal/domain/shared"
)

// ProductRepository defines the interface for product persistence
type ProductRepository interface {
	// FindByID finds a product by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)

	// FindByIDForTenant finds a product by ID within an organization
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Product, error)

	// FindBySKU finds a product by its SKU within an organization
	FindBySKU(ctx context.Context, tenantID uuid.UUID, sku string) (*Product, error)

	// FindByBarcode finds a product by its barcode within an organization
	FindByBarcode(ctx context.Context, tenantID uuid.UUID, barcode string) (*Product, error)

	// FindAll finds all products matching the filter
	FindAll(ctx context.Context, filter shared.Filter) ([]Product, error)

	// FindAllForTenant finds all products for an organization
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]Product, error)

	// FindByCategory finds all products in a specific category
	FindByCategory(ctx context.Context, tenantID, categoryID uuid.UUID, filter shared.Filter) ([]Product, error)

	// FindByStatus finds products by status for an organization
	FindByStatus(ctx context.Context, tenantID uuid.UUID, status ProductStatus, filter shared.Filter) ([]Product, error)

	// FindByIDs finds multiple products by their IDs
	FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]Product, error)

	// FindBySKUs finds multiple products by their SKUs
	FindBySKUs(ctx context.Context, tenantID uuid.UUID, skus []string) ([]Product, error)

	// Save creates or updates a product
	Save(ctx context.Context, product *Product) error

	// SaveBatch creates or updates multiple products
	SaveBatch(ctx context.Context, products []*Product) error

	// Delete deletes a product
	Delete(ctx context.Context, id uuid.UUID) error

	// DeleteForTenant deletes a product within an organization
	DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error

	// Count counts products matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)

	// CountForTenant counts products for an organization
	CountForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (int64, error)

	// CountByStatus counts products by status for an organization
	CountByStatus(ctx context.Context, tenantID uuid.UUID, status ProductStatus) (int64, error)

	// ExistsBySKU checks if a product with the given SKU exists in the organization
	ExistsBySKU(ctx context.Context, tenantID uuid.UUID, sku string) (bool, error)

	// ExistsByBarcode checks if a product with the given barcode exists in the organization
	ExistsByBarcode(ctx context.Context, tenantID uuid.UUID, barcode string) (bool, error)
}
