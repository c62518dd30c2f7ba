package catalog

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/truthsource/backend/internal/domain/shared"
)

// ProductStatus represents the status of a product
type ProductStatus string

const (
	ProductStatusDraft    ProductStatus = "draft"
	ProductStatusActive   ProductStatus = "active"
	ProductStatusArchived ProductStatus = "archived"
)

// Product is a sellable item tracked across connected commerce platforms.
// It is the aggregate root for catalog operations; the SKU is the join key
// used when matching records pulled from external platforms.
type Product struct {
	shared.TenantAggregateRoot
	SKU         string          `gorm:"type:varchar(64);not null;uniqueIndex:idx_product_tenant_sku,priority:2"`
	Name        string          `gorm:"type:varchar(200);not null"`
	Description string          `gorm:"type:text"`
	Barcode     string          `gorm:"type:varchar(64);index"`
	CategoryID  *uuid.UUID      `gorm:"type:uuid;index"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Cost        decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Currency    string          `gorm:"type:varchar(3);not null;default:'USD'"`
	Weight      decimal.Decimal `gorm:"type:decimal(12,4);not null;default:0"` // shipping weight in lbs
	Status      ProductStatus   `gorm:"type:varchar(20);not null;default:'active'"`
	Attributes  string          `gorm:"type:jsonb"` // custom attributes as a JSON object
}

// TableName returns the table name for GORM
func (Product) TableName() string {
	return "products"
}

// NewProduct creates a new active product
func NewProduct(tenantID uuid.UUID, sku, name string, unitPrice decimal.Decimal) (*Product, error) {
	if err := validateSKU(sku); err != nil {
		return nil, err
	}
	if err := validateProductName(name); err != nil {
		return nil, err
	}
	if unitPrice.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Unit price cannot be negative")
	}

	product := &Product{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		SKU:                 strings.ToUpper(sku),
		Name:                name,
		UnitPrice:           unitPrice,
		Cost:                decimal.Zero,
		Currency:            "USD",
		Weight:              decimal.Zero,
		Status:              ProductStatusActive,
		Attributes:          "{}",
	}

	product.AddDomainEvent(NewProductCreatedEvent(product))

	return product, nil
}

// NewDraftProduct creates a product in draft status, used when records arrive
// from a platform sync before anyone has reviewed them locally.
func NewDraftProduct(tenantID uuid.UUID, sku, name string, unitPrice decimal.Decimal) (*Product, error) {
	product, err := NewProduct(tenantID, sku, name, unitPrice)
	if err != nil {
		return nil, err
	}
	product.Status = ProductStatusDraft
	return product, nil
}

// Update updates the product's basic information
func (p *Product) Update(name, description string) error {
	if err := validateProductName(name); err != nil {
		return err
	}

	p.Name = name
	p.Description = description
	p.Touch()
	p.IncrementVersion()

	p.AddDomainEvent(NewProductUpdatedEvent(p))

	return nil
}

// UpdateSKU changes the product SKU.
// External platform mappings key off the SKU, so callers must resync mappings afterwards.
func (p *Product) UpdateSKU(sku string) error {
	if err := validateSKU(sku); err != nil {
		return err
	}

	p.SKU = strings.ToUpper(sku)
	p.Touch()
	p.IncrementVersion()

	p.AddDomainEvent(NewProductUpdatedEvent(p))

	return nil
}

// SetBarcode sets the product barcode (UPC/EAN)
func (p *Product) SetBarcode(barcode string) error {
	if barcode != "" && len(barcode) > 64 {
		return shared.NewDomainError("INVALID_BARCODE", "Barcode cannot exceed 64 characters")
	}

	p.Barcode = barcode
	p.Touch()
	p.IncrementVersion()

	return nil
}

// SetCategory sets the product category
func (p *Product) SetCategory(categoryID *uuid.UUID) {
	p.CategoryID = categoryID
	p.Touch()
	p.IncrementVersion()

	p.AddDomainEvent(NewProductUpdatedEvent(p))
}

// SetUnitPrice updates the list price
func (p *Product) SetUnitPrice(price decimal.Decimal) error {
	if price.IsNegative() {
		return shared.NewDomainError("INVALID_PRICE", "Unit price cannot be negative")
	}

	oldPrice := p.UnitPrice
	p.UnitPrice = price
	p.Touch()
	p.IncrementVersion()

	p.AddDomainEvent(NewProductPriceChangedEvent(p, oldPrice))

	return nil
}

// SetCost updates the unit cost
func (p *Product) SetCost(cost decimal.Decimal) error {
	if cost.IsNegative() {
		return shared.NewDomainError("INVALID_COST", "Cost cannot be negative")
	}

	p.Cost = cost
	p.Touch()
	p.IncrementVersion()

	return nil
}

// SetCurrency sets the ISO currency code for the product's prices
func (p *Product) SetCurrency(currency string) error {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if len(currency) != 3 {
		return shared.NewDomainError("INVALID_CURRENCY", "Currency must be a 3-letter ISO code")
	}

	p.Currency = currency
	p.Touch()
	p.IncrementVersion()

	return nil
}

// SetWeight sets the shipping weight in pounds
func (p *Product) SetWeight(weight decimal.Decimal) error {
	if weight.IsNegative() {
		return shared.NewDomainError("INVALID_WEIGHT", "Weight cannot be negative")
	}

	p.Weight = weight
	p.Touch()
	p.IncrementVersion()

	return nil
}

// SetAttributes sets custom attributes as JSON
func (p *Product) SetAttributes(attributes string) error {
	if attributes == "" {
		attributes = "{}"
	}
	trimmed := strings.TrimSpace(attributes)
	if !strings.HasPrefix(trimmed, "{") || !strings.HasSuffix(trimmed, "}") {
		return shared.NewDomainError("INVALID_ATTRIBUTES", "Attributes must be a valid JSON object")
	}

	p.Attributes = trimmed
	p.Touch()
	p.IncrementVersion()

	return nil
}

// Activate publishes a draft product
func (p *Product) Activate() error {
	if p.Status == ProductStatusActive {
		return shared.NewDomainError("ALREADY_ACTIVE", "Product is already active")
	}
	if p.Status == ProductStatusArchived {
		return shared.NewDomainError("CANNOT_ACTIVATE", "Cannot activate an archived product")
	}

	oldStatus := p.Status
	p.Status = ProductStatusActive
	p.Touch()
	p.IncrementVersion()

	p.AddDomainEvent(NewProductStatusChangedEvent(p, oldStatus, ProductStatusActive))

	return nil
}

// Archive retires the product. Archived products are excluded from sync and
// pricing but stay queryable because orders and import logs reference them.
func (p *Product) Archive() error {
	if p.Status == ProductStatusArchived {
		return shared.NewDomainError("ALREADY_ARCHIVED", "Product is already archived")
	}

	oldStatus := p.Status
	p.Status = ProductStatusArchived
	p.Touch()
	p.IncrementVersion()

	p.AddDomainEvent(NewProductStatusChangedEvent(p, oldStatus, ProductStatusArchived))

	return nil
}

// IsActive returns true if the product is active
func (p *Product) IsActive() bool {
	return p.Status == ProductStatusActive
}

// IsDraft returns true if the product is a draft
func (p *Product) IsDraft() bool {
	return p.Status == ProductStatusDraft
}

// IsArchived returns true if the product is archived
func (p *Product) IsArchived() bool {
	return p.Status == ProductStatusArchived
}

// HasCategory returns true if the product has a category assigned
func (p *Product) HasCategory() bool {
	return p.CategoryID != nil
}

// Margin returns the gross margin percentage.
// Returns 0 when cost is zero.
func (p *Product) Margin() decimal.Decimal {
	if p.Cost.IsZero() {
		return decimal.Zero
	}
	profit := p.UnitPrice.Sub(p.Cost)
	return profit.Div(p.Cost).Mul(decimal.NewFromInt(100))
}

// ApplyPercentage returns the unit price adjusted by the given percentage,
// rounded to 2 decimal places and floored at zero.
func (p *Product) ApplyPercentage(percent decimal.Decimal) decimal.Decimal {
	factor := decimal.NewFromInt(1).Add(percent.Div(decimal.NewFromInt(100)))
	adjusted := p.UnitPrice.Mul(factor).Round(2)
	if adjusted.IsNegative() {
		return decimal.Zero
	}
	return adjusted
}

// validateSKU validates the product SKU
func validateSKU(sku string) error {
	if sku == "" {
		return shared.NewDomainError("INVALID_SKU", "SKU cannot be empty")
	}
	if len(sku) > 64 {
		return shared.NewDomainError("INVALID_SKU", "SKU cannot exceed 64 characters")
	}
	for _, r := range sku {
		if !((r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '-' || r == '.') {
			return shared.NewDomainError("INVALID_SKU", "SKU can only contain letters, numbers, dots, underscores, and hyphens")
		}
	}
	return nil
}

// validateProductName validates the product name
func validateProductName(name string) error {
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Product name cannot be empty")
	}
	if len(name) > 200 {
		return shared.NewDomainError("INVALID_NAME", "Product name cannot exceed 200 characters")
	}
	return nil
}
