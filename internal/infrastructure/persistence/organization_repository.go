package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/truthsource/backend/internal/domain/identity"
	"github.com/truthsource/backend/internal/domain/shared"
)

// GormOrganizationRepository implements identity.OrganizationRepository using GORM
type GormOrganizationRepository struct {
	db *gorm.DB
}

// NewGormOrganizationRepository creates a new GormOrganizationRepository
func NewGormOrganizationRepository(db *gorm.DB) *GormOrganizationRepository {
	return &GormOrganizationRepository{db: db}
}

// FindByID finds an organization by its ID
func (r *GormOrganizationRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.Organization, error) {
	var org identity.Organization
	if err := r.db.WithContext(ctx).First(&org, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &org, nil
}

// FindBySlug finds an organization by its slug
func (r *GormOrganizationRepository) FindBySlug(ctx context.Context, slug string) (*identity.Organization, error) {
	var org identity.Organization
	if err := r.db.WithContext(ctx).
		Where("slug = ?", strings.ToLower(slug)).
		First(&org).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &org, nil
}

// FindAll finds all organizations matching the filter
func (r *GormOrganizationRepository) FindAll(ctx context.Context, filter shared.Filter) ([]identity.Organization, error) {
	var orgs []identity.Organization
	query := r.db.WithContext(ctx).Model(&identity.Organization{})
	query = applySearch(query, filter, "name", "slug")
	query = applyFilter(query, filter, "created_at DESC")
	if err := query.Find(&orgs).Error; err != nil {
		return nil, err
	}
	return orgs, nil
}

// FindAllActive returns every organization that can run scheduled syncs
func (r *GormOrganizationRepository) FindAllActive(ctx context.Context) ([]identity.Organization, error) {
	var orgs []identity.Organization
	if err := r.db.WithContext(ctx).
		Where("status IN ?", []identity.OrganizationStatus{
			identity.OrganizationStatusActive,
			identity.OrganizationStatusTrial,
		}).
		Order("created_at ASC").
		Find(&orgs).Error; err != nil {
		return nil, err
	}
	return orgs, nil
}

// Save creates or updates an organization
func (r *GormOrganizationRepository) Save(ctx context.Context, org *identity.Organization) error {
	return r.db.WithContext(ctx).Save(org).Error
}

// Count counts organizations matching the filter
func (r *GormOrganizationRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&identity.Organization{})
	query = applySearch(query, filter, "name", "slug")
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ExistsBySlug checks if the slug is taken
func (r *GormOrganizationRepository) ExistsBySlug(ctx context.Context, slug string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&identity.Organization{}).
		Where("slug = ?", strings.ToLower(slug)).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
