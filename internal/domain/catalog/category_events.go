package catalog

import (
	"github.com/google/uuid"
	"github.com/truthsource/backend/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeCategory = "Category"

// Event type constants
const (
	EventTypeCategoryCreated = "CategoryCreated"
	EventTypeCategoryUpdated = "CategoryUpdated"
	EventTypeCategoryDeleted = "CategoryDeleted"
)

// CategoryCreatedEvent is published when a new category is created
type CategoryCreatedEvent struct {
	shared.BaseDomainEvent
	CategoryID uuid.UUID `json:"category_id"`
	Name       string    `json:"name"`
}

// NewCategoryCreatedEvent creates a new CategoryCreatedEvent
func NewCategoryCreatedEvent(category *Category) *CategoryCreatedEvent {
	return &CategoryCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCategoryCreated, AggregateTypeCategory, category.ID, category.TenantID),
		CategoryID:      category.ID,
		Name:            category.Name,
	}
}

// CategoryUpdatedEvent is published when a category is updated
type CategoryUpdatedEvent struct {
	shared.BaseDomainEvent
	CategoryID uuid.UUID `json:"category_id"`
	Name       string    `json:"name"`
}

// NewCategoryUpdatedEvent creates a new CategoryUpdatedEvent
func NewCategoryUpdatedEvent(category *Category) *CategoryUpdatedEvent {
	return &CategoryUpdatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCategoryUpdated, AggregateTypeCategory, category.ID, category.TenantID),
		CategoryID:      category.ID,
		Name:            category.Name,
	}
}

// CategoryDeletedEvent is published when a category is deleted
type CategoryDeletedEvent struct {
	shared.BaseDomainEvent
	CategoryID uuid.UUID `json:"category_id"`
	Name       string    `json:"name"`
}

// NewCategoryDeletedEvent creates a new CategoryDeletedEvent
func NewCategoryDeletedEvent(category *Category) *CategoryDeletedEvent {
	return &CategoryDeletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCategoryDeleted, AggregateTypeCategory, category.ID, category.TenantID),
		CategoryID:      category.ID,
		Name:            category.Name,
	}
}
