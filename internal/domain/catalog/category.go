package catalog

import (
	"strings"

	"github.com/google/uuid"
	"github.com/truthsource/backend/internal/domain/shared"
)

// CategoryStatus represents the status of a category
type CategoryStatus string

const (
	CategoryStatusActive   CategoryStatus = "active"
	CategoryStatusInactive CategoryStatus = "inactive"
)

// Category groups products for filtering and bulk price updates.
// Categories are flat; external platform collections map onto them by name.
type Category struct {
	shared.TenantAggregateRoot
	Name        string         `gorm:"type:varchar(100);not null;uniqueIndex:idx_category_tenant_name,priority:2"`
	Description string         `gorm:"type:text"`
	SortOrder   int            `gorm:"not null;default:0"`
	Status      CategoryStatus `gorm:"type:varchar(20);not null;default:'active'"`
}

// TableName returns the table name for GORM
func (Category) TableName() string {
	return "categories"
}

// NewCategory creates a new category
func NewCategory(tenantID uuid.UUID, name string) (*Category, error) {
	if err := validateCategoryName(name); err != nil {
		return nil, err
	}

	category := &Category{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Name:                strings.TrimSpace(name),
		Status:              CategoryStatusActive,
	}

	category.AddDomainEvent(NewCategoryCreatedEvent(category))

	return category, nil
}

// Update updates the category's basic information
func (c *Category) Update(name, description string) error {
	if err := validateCategoryName(name); err != nil {
		return err
	}

	c.Name = strings.TrimSpace(name)
	c.Description = description
	c.Touch()
	c.IncrementVersion()

	c.AddDomainEvent(NewCategoryUpdatedEvent(c))

	return nil
}

// SetSortOrder sets the display order of the category
func (c *Category) SetSortOrder(order int) {
	c.SortOrder = order
	c.Touch()
	c.IncrementVersion()
}

// Activate activates the category
func (c *Category) Activate() error {
	if c.Status == CategoryStatusActive {
		return shared.NewDomainError("ALREADY_ACTIVE", "Category is already active")
	}

	c.Status = CategoryStatusActive
	c.Touch()
	c.IncrementVersion()

	return nil
}

// Deactivate deactivates the category.
// Products keep their category reference; inactive categories are hidden from pickers.
func (c *Category) Deactivate() error {
	if c.Status == CategoryStatusInactive {
		return shared.NewDomainError("ALREADY_INACTIVE", "Category is already inactive")
	}

	c.Status = CategoryStatusInactive
	c.Touch()
	c.IncrementVersion()

	return nil
}

// IsActive returns true if the category is active
func (c *Category) IsActive() bool {
	return c.Status == CategoryStatusActive
}

// validateCategoryName validates the category name
func validateCategoryName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Category name cannot be empty")
	}
	if len(name) > 100 {
		return shared.NewDomainError("INVALID_NAME", "Category name cannot exceed 100 characters")
	}
	return nil
}
