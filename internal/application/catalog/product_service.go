package catalog

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/truthsource/backend/internal/domain/catalog"
	"github.com/truthsource/backend/internal/domain/shared"
)

// ProductQuota checks the organization's plan allowance before a product
// is added. Implemented by the billing quota service.
type ProductQuota interface {
	EnsureProductAllowance(ctx context.Context, orgID uuid.UUID) error
}

// ReferenceChecker reports whether orders, inventory levels, or platform
// mappings still point at a product.
type ReferenceChecker interface {
	IsReferenced(ctx context.Context, orgID, productID uuid.UUID) (bool, error)
}

// bulkPriceBatchSize is how many products a bulk price update reads per page
const bulkPriceBatchSize = 200

// ProductService handles product catalog operations
type ProductService struct {
	productRepo    catalog.ProductRepository
	categoryRepo   catalog.CategoryRepository
	quota          ProductQuota
	refs           ReferenceChecker
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewProductService creates a new product service
func NewProductService(
	productRepo catalog.ProductRepository,
	categoryRepo catalog.CategoryRepository,
	quota ProductQuota,
	logger *zap.Logger,
) *ProductService {
	return &ProductService{
		productRepo:  productRepo,
		categoryRepo: categoryRepo,
		quota:        quota,
		logger:       logger,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *ProductService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetReferenceChecker sets the checker Delete consults before removing a
// product permanently
func (s *ProductService) SetReferenceChecker(refs ReferenceChecker) {
	s.refs = refs
}

// Create adds a product to the organization's catalog
func (s *ProductService) Create(ctx context.Context, input CreateProductInput) (*ProductInfo, error) {
	if s.quota != nil {
		if err := s.quota.EnsureProductAllowance(ctx, input.OrgID); err != nil {
			return nil, err
		}
	}

	exists, err := s.productRepo.ExistsBySKU(ctx, input.OrgID, input.SKU)
	if err != nil {
		s.logger.Error("SKU lookup failed", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to check SKU availability")
	}
	if exists {
		return nil, shared.NewDomainError("SKU_TAKEN", "A product with this SKU already exists")
	}

	var product *catalog.Product
	if input.Draft {
		product, err = catalog.NewDraftProduct(input.OrgID, input.SKU, input.Name, input.UnitPrice)
	} else {
		product, err = catalog.NewProduct(input.OrgID, input.SKU, input.Name, input.UnitPrice)
	}
	if err != nil {
		return nil, err
	}

	if err := s.applyOptionalFields(ctx, product, input); err != nil {
		return nil, err
	}

	if err := s.productRepo.Save(ctx, product); err != nil {
		s.logger.Error("Failed to save product", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to create product")
	}

	s.publishEvents(ctx, product.GetDomainEvents())
	product.ClearDomainEvents()

	s.logger.Info("Product created",
		zap.String("org_id", input.OrgID.String()),
		zap.String("product_id", product.ID.String()),
		zap.String("sku", product.SKU))

	info := toProductInfo(product)
	return &info, nil
}

// Get returns a product within the organization
func (s *ProductService) Get(ctx context.Context, orgID, productID uuid.UUID) (*ProductInfo, error) {
	product, err := s.productRepo.FindByIDForTenant(ctx, orgID, productID)
	if err != nil {
		return nil, shared.NewDomainError("PRODUCT_NOT_FOUND", "Product not found")
	}
	info := toProductInfo(product)
	return &info, nil
}

// GetBySKU returns a product looked up by SKU
func (s *ProductService) GetBySKU(ctx context.Context, orgID uuid.UUID, sku string) (*ProductInfo, error) {
	product, err := s.productRepo.FindBySKU(ctx, orgID, sku)
	if err != nil {
		return nil, shared.NewDomainError("PRODUCT_NOT_FOUND", "Product not found")
	}
	info := toProductInfo(product)
	return &info, nil
}

// List returns the organization's products
func (s *ProductService) List(ctx context.Context, orgID uuid.UUID, filter shared.Filter) (*shared.Paginated[ProductInfo], error) {
	products, err := s.productRepo.FindAllForTenant(ctx, orgID, filter)
	if err != nil {
		s.logger.Error("Failed to list products", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to list products")
	}

	total, err := s.productRepo.CountForTenant(ctx, orgID, filter)
	if err != nil {
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to count products")
	}

	infos := make([]ProductInfo, 0, len(products))
	for i := range products {
		infos = append(infos, toProductInfo(&products[i]))
	}

	result := shared.NewPaginated(infos, total, filter.Page, filter.PageSize)
	return &result, nil
}

// Update modifies an existing product
func (s *ProductService) Update(ctx context.Context, input UpdateProductInput) (*ProductInfo, error) {
	product, err := s.productRepo.FindByIDForTenant(ctx, input.OrgID, input.ProductID)
	if err != nil {
		return nil, shared.NewDomainError("PRODUCT_NOT_FOUND", "Product not found")
	}

	if input.Name != nil || input.Description != nil {
		name := product.Name
		desc := product.Description
		if input.Name != nil {
			name = *input.Name
		}
		if input.Description != nil {
			desc = *input.Description
		}
		if err := product.Update(name, desc); err != nil {
			return nil, err
		}
	}

	if input.Barcode != nil {
		if err := product.SetBarcode(*input.Barcode); err != nil {
			return nil, err
		}
	}
	if input.ClearCategory {
		product.SetCategory(nil)
	} else if input.CategoryID != nil {
		if _, err := s.categoryRepo.FindByIDForTenant(ctx, input.OrgID, *input.CategoryID); err != nil {
			return nil, shared.NewDomainError("CATEGORY_NOT_FOUND", "Category not found")
		}
		product.SetCategory(input.CategoryID)
	}
	if input.UnitPrice != nil {
		if err := product.SetUnitPrice(*input.UnitPrice); err != nil {
			return nil, err
		}
	}
	if input.Cost != nil {
		if err := product.SetCost(*input.Cost); err != nil {
			return nil, err
		}
	}
	if input.Currency != nil {
		if err := product.SetCurrency(*input.Currency); err != nil {
			return nil, err
		}
	}
	if input.Weight != nil {
		if err := product.SetWeight(*input.Weight); err != nil {
			return nil, err
		}
	}
	if input.Attributes != nil {
		if err := product.SetAttributes(*input.Attributes); err != nil {
			return nil, err
		}
	}

	if err := s.productRepo.Save(ctx, product); err != nil {
		s.logger.Error("Failed to update product", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to update product")
	}

	s.publishEvents(ctx, product.GetDomainEvents())
	product.ClearDomainEvents()

	info := toProductInfo(product)
	return &info, nil
}

// Activate moves a draft or archived product to active
func (s *ProductService) Activate(ctx context.Context, orgID, productID uuid.UUID) error {
	return s.transition(ctx, orgID, productID, func(p *catalog.Product) error { return p.Activate() })
}

// Archive removes a product from active use without deleting it
func (s *ProductService) Archive(ctx context.Context, orgID, productID uuid.UUID) error {
	return s.transition(ctx, orgID, productID, func(p *catalog.Product) error { return p.Archive() })
}

// Delete removes a product. A product that orders, inventory levels, or
// platform mappings still reference is archived instead so those records
// stay resolvable.
func (s *ProductService) Delete(ctx context.Context, orgID, productID uuid.UUID) error {
	product, err := s.productRepo.FindByIDForTenant(ctx, orgID, productID)
	if err != nil {
		return shared.NewDomainError("PRODUCT_NOT_FOUND", "Product not found")
	}

	if s.refs != nil {
		referenced, err := s.refs.IsReferenced(ctx, orgID, productID)
		if err != nil {
			s.logger.Error("Failed to check product references", zap.Error(err))
			return shared.NewDomainError("INTERNAL_ERROR", "Failed to check product references")
		}
		if referenced {
			if product.IsArchived() {
				return nil
			}
			if err := product.Archive(); err != nil {
				return err
			}
			if err := s.productRepo.Save(ctx, product); err != nil {
				s.logger.Error("Failed to archive referenced product", zap.Error(err))
				return shared.NewDomainError("INTERNAL_ERROR", "Failed to archive product")
			}
			s.publishEvents(ctx, product.GetDomainEvents())
			product.ClearDomainEvents()

			s.logger.Info("Product archived in place of deletion",
				zap.String("org_id", orgID.String()),
				zap.String("product_id", productID.String()))
			return nil
		}
	}

	if err := s.productRepo.DeleteForTenant(ctx, orgID, productID); err != nil {
		s.logger.Error("Failed to delete product", zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to delete product")
	}

	s.logger.Info("Product deleted",
		zap.String("org_id", orgID.String()),
		zap.String("product_id", productID.String()))
	return nil
}

// BulkUpdatePrice reprices every product in a category, either shifting each
// price by a percentage or overwriting it with an absolute value. Prices that
// would not change are skipped.
func (s *ProductService) BulkUpdatePrice(ctx context.Context, input BulkPriceUpdateInput) (*BulkPriceUpdateResult, error) {
	if (input.Percent == nil) == (input.NewPrice == nil) {
		return nil, shared.NewDomainError("INVALID_ADJUSTMENT", "Provide either a percentage or an absolute price, not both")
	}
	if input.NewPrice != nil && input.NewPrice.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Unit price cannot be negative")
	}
	if _, err := s.categoryRepo.FindByIDForTenant(ctx, input.OrgID, input.CategoryID); err != nil {
		return nil, shared.NewDomainError("CATEGORY_NOT_FOUND", "Category not found")
	}

	result := &BulkPriceUpdateResult{}
	filter := shared.DefaultFilter()
	filter.PageSize = bulkPriceBatchSize
	for filter.Page = 1; ; filter.Page++ {
		products, err := s.productRepo.FindByCategory(ctx, input.OrgID, input.CategoryID, filter)
		if err != nil {
			s.logger.Error("Failed to load category products", zap.Error(err))
			return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to load category products")
		}

		batch := make([]*catalog.Product, 0, len(products))
		for i := range products {
			product := &products[i]

			next := product.UnitPrice
			if input.Percent != nil {
				next = product.ApplyPercentage(*input.Percent)
			} else {
				next = *input.NewPrice
			}
			if next.Equal(product.UnitPrice) {
				result.Skipped++
				continue
			}
			if err := product.SetUnitPrice(next); err != nil {
				return nil, err
			}
			batch = append(batch, product)
		}

		if err := s.productRepo.SaveBatch(ctx, batch); err != nil {
			s.logger.Error("Failed to save bulk price update", zap.Error(err))
			return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to save price updates")
		}
		for _, product := range batch {
			s.publishEvents(ctx, product.GetDomainEvents())
			product.ClearDomainEvents()
		}
		result.Updated += len(batch)

		if len(products) < filter.PageSize {
			break
		}
	}

	s.logger.Info("Bulk price update applied",
		zap.String("org_id", input.OrgID.String()),
		zap.String("category_id", input.CategoryID.String()),
		zap.Int("updated", result.Updated),
		zap.Int("skipped", result.Skipped))
	return result, nil
}

func (s *ProductService) transition(ctx context.Context, orgID, productID uuid.UUID, fn func(*catalog.Product) error) error {
	product, err := s.productRepo.FindByIDForTenant(ctx, orgID, productID)
	if err != nil {
		return shared.NewDomainError("PRODUCT_NOT_FOUND", "Product not found")
	}

	if err := fn(product); err != nil {
		return err
	}

	if err := s.productRepo.Save(ctx, product); err != nil {
		s.logger.Error("Failed to save product transition", zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to update product")
	}

	s.publishEvents(ctx, product.GetDomainEvents())
	product.ClearDomainEvents()
	return nil
}

func (s *ProductService) applyOptionalFields(ctx context.Context, product *catalog.Product, input CreateProductInput) error {
	if input.Description != "" {
		if err := product.Update(product.Name, input.Description); err != nil {
			return err
		}
	}
	if input.Barcode != "" {
		if err := product.SetBarcode(input.Barcode); err != nil {
			return err
		}
	}
	if input.CategoryID != nil {
		if _, err := s.categoryRepo.FindByIDForTenant(ctx, input.OrgID, *input.CategoryID); err != nil {
			return shared.NewDomainError("CATEGORY_NOT_FOUND", "Category not found")
		}
		product.SetCategory(input.CategoryID)
	}
	if !input.Cost.IsZero() {
		if err := product.SetCost(input.Cost); err != nil {
			return err
		}
	}
	if input.Currency != "" {
		if err := product.SetCurrency(input.Currency); err != nil {
			return err
		}
	}
	if !input.Weight.IsZero() {
		if err := product.SetWeight(input.Weight); err != nil {
			return err
		}
	}
	if input.Attributes != "" {
		if err := product.SetAttributes(input.Attributes); err != nil {
			return err
		}
	}
	return nil
}

func (s *ProductService) publishEvents(ctx context.Context, events []shared.DomainEvent) {
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	_ = s.eventPublisher.Publish(ctx, events...)
}
