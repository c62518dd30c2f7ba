package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/truthsource/backend/internal/domain/pricing"
	"github.com/truthsource/backend/internal/domain/shared"
)

// GormRuleRepository implements pricing.RuleRepository using GORM
type GormRuleRepository struct {
	db *gorm.DB
}

// NewGormRuleRepository creates a new GormRuleRepository
func NewGormRuleRepository(db *gorm.DB) *GormRuleRepository {
	return &GormRuleRepository{db: db}
}

// FindByID finds a rule by its ID
func (r *GormRuleRepository) FindByID(ctx context.Context, id uuid.UUID) (*pricing.Rule, error) {
	var rule pricing.Rule
	if err := r.db.WithContext(ctx).First(&rule, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &rule, nil
}

// FindByIDForTenant finds a rule by ID within an organization
func (r *GormRuleRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*pricing.Rule, error) {
	var rule pricing.Rule
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&rule).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &rule, nil
}

// FindAllForTenant finds all rules for an organization
func (r *GormRuleRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]pricing.Rule, error) {
	var rules []pricing.Rule
	query := r.db.WithContext(ctx).Model(&pricing.Rule{}).Where("tenant_id = ?", tenantID)
	query = applySearch(query, filter, "name")
	query = applyFilter(query, filter, "priority ASC")
	if err := query.Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}

// FindActiveOrdered returns active rules in ascending priority order with
// creation time as the tie breaker
func (r *GormRuleRepository) FindActiveOrdered(ctx context.Context, tenantID uuid.UUID) ([]pricing.Rule, error) {
	var rules []pricing.Rule
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND active = ?", tenantID, true).
		Order("priority ASC, created_at ASC").
		Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}

// Save creates or updates a rule
func (r *GormRuleRepository) Save(ctx context.Context, rule *pricing.Rule) error {
	return r.db.WithContext(ctx).Save(rule).Error
}

// SaveBatch persists multiple rules in a single transaction
func (r *GormRuleRepository) SaveBatch(ctx context.Context, rules []*pricing.Rule) error {
	if len(rules) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, rule := range rules {
			if err := tx.Save(rule).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteForTenant deletes a rule within an organization
func (r *GormRuleRepository) DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&pricing.Rule{}, "tenant_id = ? AND id = ?", tenantID, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// CountForTenant counts rules for an organization
func (r *GormRuleRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&pricing.Rule{}).Where("tenant_id = ?", tenantID)
	query = applySearch(query, filter, "name")
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
