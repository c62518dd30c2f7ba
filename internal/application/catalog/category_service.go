package catalog

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/truthsource/backend/internal/domain/catalog"
	"github.com/truthsource/backend/internal/domain/shared"
)

// CategoryService handles category operations
type CategoryService struct {
	categoryRepo   catalog.CategoryRepository
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewCategoryService creates a new category service
func NewCategoryService(categoryRepo catalog.CategoryRepository, logger *zap.Logger) *CategoryService {
	return &CategoryService{
		categoryRepo: categoryRepo,
		logger:       logger,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *CategoryService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Create adds a category
func (s *CategoryService) Create(ctx context.Context, input CreateCategoryInput) (*CategoryInfo, error) {
	exists, err := s.categoryRepo.ExistsByName(ctx, input.OrgID, input.Name)
	if err != nil {
		s.logger.Error("Category name lookup failed", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to check category name")
	}
	if exists {
		return nil, shared.NewDomainError("CATEGORY_NAME_TAKEN", "A category with this name already exists")
	}

	category, err := catalog.NewCategory(input.OrgID, input.Name)
	if err != nil {
		return nil, err
	}
	if input.Description != "" {
		if err := category.Update(category.Name, input.Description); err != nil {
			return nil, err
		}
	}
	if input.SortOrder != 0 {
		category.SetSortOrder(input.SortOrder)
	}

	if err := s.categoryRepo.Save(ctx, category); err != nil {
		s.logger.Error("Failed to save category", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to create category")
	}

	s.publishEvents(ctx, category.GetDomainEvents())
	category.ClearDomainEvents()

	info := toCategoryInfo(category)
	return &info, nil
}

// List returns the organization's categories
func (s *CategoryService) List(ctx context.Context, orgID uuid.UUID, filter shared.Filter) (*shared.Paginated[CategoryInfo], error) {
	categories, err := s.categoryRepo.FindAllForTenant(ctx, orgID, filter)
	if err != nil {
		s.logger.Error("Failed to list categories", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to list categories")
	}

	total, err := s.categoryRepo.CountForTenant(ctx, orgID, filter)
	if err != nil {
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to count categories")
	}

	infos := make([]CategoryInfo, 0, len(categories))
	for i := range categories {
		infos = append(infos, toCategoryInfo(&categories[i]))
	}

	result := shared.NewPaginated(infos, total, filter.Page, filter.PageSize)
	return &result, nil
}

// Update modifies a category
func (s *CategoryService) Update(ctx context.Context, input UpdateCategoryInput) (*CategoryInfo, error) {
	category, err := s.categoryRepo.FindByIDForTenant(ctx, input.OrgID, input.CategoryID)
	if err != nil {
		return nil, shared.NewDomainError("CATEGORY_NOT_FOUND", "Category not found")
	}

	if err := category.Update(input.Name, input.Description); err != nil {
		return nil, err
	}
	if input.SortOrder != nil {
		category.SetSortOrder(*input.SortOrder)
	}

	if err := s.categoryRepo.Save(ctx, category); err != nil {
		s.logger.Error("Failed to update category", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to update category")
	}

	info := toCategoryInfo(category)
	return &info, nil
}

// Delete removes an empty category. Categories still referenced by
// products cannot be deleted.
func (s *CategoryService) Delete(ctx context.Context, orgID, categoryID uuid.UUID) error {
	category, err := s.categoryRepo.FindByIDForTenant(ctx, orgID, categoryID)
	if err != nil {
		return shared.NewDomainError("CATEGORY_NOT_FOUND", "Category not found")
	}

	inUse, err := s.categoryRepo.HasProducts(ctx, orgID, categoryID)
	if err != nil {
		s.logger.Error("Category usage check failed", zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to check category usage")
	}
	if inUse {
		return shared.NewDomainError("CATEGORY_IN_USE", "Category still has products assigned")
	}

	if err := s.categoryRepo.DeleteForTenant(ctx, orgID, categoryID); err != nil {
		s.logger.Error("Failed to delete category", zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to delete category")
	}

	s.publishEvents(ctx, []shared.DomainEvent{catalog.NewCategoryDeletedEvent(category)})
	return nil
}

func (s *CategoryService) publishEvents(ctx context.Context, events []shared.DomainEvent) {
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	_ = s.eventPublisher.Publish(ctx, events...)
}
