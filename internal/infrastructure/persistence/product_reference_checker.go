package persistence

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/truthsource/backend/internal/domain/integration"
	"github.com/truthsource/backend/internal/domain/inventory"
	"github.com/truthsource/backend/internal/domain/order"
)

// ProductReferenceChecker answers whether other aggregates still point at a
// product. Deletion falls back to archiving when they do.
type ProductReferenceChecker struct {
	db *gorm.DB
}

// NewProductReferenceChecker creates a new ProductReferenceChecker
func NewProductReferenceChecker(db *gorm.DB) *ProductReferenceChecker {
	return &ProductReferenceChecker{db: db}
}

// IsReferenced checks order items, inventory levels, and platform mappings
// for rows pointing at the product
func (c *ProductReferenceChecker) IsReferenced(ctx context.Context, orgID, productID uuid.UUID) (bool, error) {
	var count int64

	if err := c.db.WithContext(ctx).
		Model(&order.OrderItem{}).
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.tenant_id = ? AND order_items.product_id = ?", orgID, productID).
		Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return true, nil
	}

	if err := c.db.WithContext(ctx).
		Model(&inventory.InventoryLevel{}).
		Where("tenant_id = ? AND product_id = ?", orgID, productID).
		Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return true, nil
	}

	if err := c.db.WithContext(ctx).
		Model(&integration.ProductMapping{}).
		Where("tenant_id = ? AND product_id = ?", orgID, productID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
