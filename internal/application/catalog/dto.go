package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/truthsource/backend/internal/domain/catalog"
)

// CreateProductInput contains the input for product creation
type CreateProductInput struct {
	OrgID       uuid.UUID
	SKU         string
	Name        string
	Description string
	Barcode     string
	CategoryID  *uuid.UUID
	UnitPrice   decimal.Decimal
	Cost        decimal.Decimal
	Currency    string
	Weight      decimal.Decimal
	Attributes  string
	Draft       bool
}

// UpdateProductInput contains the input for product updates.
// Nil pointers leave the field unchanged.
type UpdateProductInput struct {
	OrgID         uuid.UUID
	ProductID     uuid.UUID
	Name          *string
	Description   *string
	Barcode       *string
	CategoryID    *uuid.UUID
	ClearCategory bool
	UnitPrice     *decimal.Decimal
	Cost          *decimal.Decimal
	Currency      *string
	Weight        *decimal.Decimal
	Attributes    *string
}

// ProductInfo contains product information returned by the API
type ProductInfo struct {
	ID          uuid.UUID
	OrgID       uuid.UUID
	SKU         string
	Name        string
	Description string
	Barcode     string
	CategoryID  *uuid.UUID
	UnitPrice   decimal.Decimal
	Cost        decimal.Decimal
	Currency    string
	Weight      decimal.Decimal
	Status      catalog.ProductStatus
	Attributes  string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// BulkPriceUpdateInput adjusts the price of every product in a category.
// Exactly one of Percent or NewPrice is set: Percent shifts each product's
// current price, NewPrice overwrites it.
type BulkPriceUpdateInput struct {
	OrgID      uuid.UUID
	CategoryID uuid.UUID
	Percent    *decimal.Decimal
	NewPrice   *decimal.Decimal
}

// BulkPriceUpdateResult reports what a bulk price update touched
type BulkPriceUpdateResult struct {
	Updated int
	Skipped int
}

// CreateCategoryInput contains the input for category creation
type CreateCategoryInput struct {
	OrgID       uuid.UUID
	Name        string
	Description string
	SortOrder   int
}

// UpdateCategoryInput contains the input for category updates
type UpdateCategoryInput struct {
	OrgID       uuid.UUID
	CategoryID  uuid.UUID
	Name        string
	Description string
	SortOrder   *int
}

// CategoryInfo contains category information returned by the API
type CategoryInfo struct {
	ID          uuid.UUID
	OrgID       uuid.UUID
	Name        string
	Description string
	SortOrder   int
	Status      catalog.CategoryStatus
	CreatedAt   time.Time
}

func toProductInfo(p *catalog.Product) ProductInfo {
	return ProductInfo{
		ID:          p.ID,
		OrgID:       p.TenantID,
		SKU:         p.SKU,
		Name:        p.Name,
		Description: p.Description,
		Barcode:     p.Barcode,
		CategoryID:  p.CategoryID,
		UnitPrice:   p.UnitPrice,
		Cost:        p.Cost,
		Currency:    p.Currency,
		Weight:      p.Weight,
		Status:      p.Status,
		Attributes:  p.Attributes,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func toCategoryInfo(c *catalog.Category) CategoryInfo {
	return CategoryInfo{
		ID:          c.ID,
		OrgID:       c.TenantID,
		Name:        c.Name,
		Description: c.Description,
		SortOrder:   c.SortOrder,
		Status:      c.Status,
		CreatedAt:   c.CreatedAt,
	}
}
