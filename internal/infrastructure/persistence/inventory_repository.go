package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/truthsource/backend/internal/domain/inventory"
	"github.com/truthsource/backend/internal/domain/shared"
)

// GormLocationRepository implements inventory.LocationRepository using GORM
type GormLocationRepository struct {
	db *gorm.DB
}

// NewGormLocationRepository creates a new GormLocationRepository
func NewGormLocationRepository(db *gorm.DB) *GormLocationRepository {
	return &GormLocationRepository{db: db}
}

// FindByID finds a location by its ID
func (r *GormLocationRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.Location, error) {
	var location inventory.Location
	if err := r.db.WithContext(ctx).First(&location, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &location, nil
}

// FindByIDForTenant finds a location by ID within an organization
func (r *GormLocationRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*inventory.Location, error) {
	var location inventory.Location
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&location).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &location, nil
}

// FindByCode finds a location by code within an organization
func (r *GormLocationRepository) FindByCode(ctx context.Context, tenantID uuid.UUID, code string) (*inventory.Location, error) {
	var location inventory.Location
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND code = ?", tenantID, code).
		First(&location).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &location, nil
}

// FindAllForTenant finds all locations for an organization
func (r *GormLocationRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]inventory.Location, error) {
	var locations []inventory.Location
	query := r.db.WithContext(ctx).Model(&inventory.Location{}).Where("tenant_id = ?", tenantID)
	query = applySearch(query, filter, "code", "name")
	query = applyFilter(query, filter, "code ASC")
	if err := query.Find(&locations).Error; err != nil {
		return nil, err
	}
	return locations, nil
}

// FindActiveForTenant finds active locations for an organization
func (r *GormLocationRepository) FindActiveForTenant(ctx context.Context, tenantID uuid.UUID) ([]inventory.Location, error) {
	var locations []inventory.Location
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND active = ?", tenantID, true).
		Order("code ASC").
		Find(&locations).Error; err != nil {
		return nil, err
	}
	return locations, nil
}

// Save creates or updates a location
func (r *GormLocationRepository) Save(ctx context.Context, location *inventory.Location) error {
	return r.db.WithContext(ctx).Save(location).Error
}

// DeleteForTenant deletes a location within an organization
func (r *GormLocationRepository) DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&inventory.Location{}, "tenant_id = ? AND id = ?", tenantID, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// CountForTenant counts locations for an organization
func (r *GormLocationRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&inventory.Location{}).Where("tenant_id = ?", tenantID)
	query = applySearch(query, filter, "code", "name")
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ExistsByCode checks if a location with the code exists in the organization
func (r *GormLocationRepository) ExistsByCode(ctx context.Context, tenantID uuid.UUID, code string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&inventory.Location{}).
		Where("tenant_id = ? AND code = ?", tenantID, code).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// GormLevelRepository implements inventory.LevelRepository using GORM
type GormLevelRepository struct {
	db *gorm.DB
}

// NewGormLevelRepository creates a new GormLevelRepository
func NewGormLevelRepository(db *gorm.DB) *GormLevelRepository {
	return &GormLevelRepository{db: db}
}

// FindByID finds a level by its ID
func (r *GormLevelRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.InventoryLevel, error) {
	var level inventory.InventoryLevel
	if err := r.db.WithContext(ctx).First(&level, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &level, nil
}

// Find finds the level for a product at a location
func (r *GormLevelRepository) Find(ctx context.Context, tenantID, productID, locationID uuid.UUID) (*inventory.InventoryLevel, error) {
	var level inventory.InventoryLevel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND product_id = ? AND location_id = ?", tenantID, productID, locationID).
		First(&level).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &level, nil
}

// FindOrCreate finds the level for a product at a location, creating a
// zero-quantity row when none exists
func (r *GormLevelRepository) FindOrCreate(ctx context.Context, tenantID, productID, locationID uuid.UUID) (*inventory.InventoryLevel, error) {
	level, err := r.Find(ctx, tenantID, productID, locationID)
	if err == nil {
		return level, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	level = inventory.NewInventoryLevel(tenantID, productID, locationID)
	if err := r.db.WithContext(ctx).Create(level).Error; err != nil {
		// Lost the race against a concurrent create; read the winner's row.
		if existing, findErr := r.Find(ctx, tenantID, productID, locationID); findErr == nil {
			return existing, nil
		}
		return nil, err
	}
	return level, nil
}

// FindByProduct finds all levels for a product across locations
func (r *GormLevelRepository) FindByProduct(ctx context.Context, tenantID, productID uuid.UUID) ([]inventory.InventoryLevel, error) {
	var levels []inventory.InventoryLevel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND product_id = ?", tenantID, productID).
		Order("created_at ASC").
		Find(&levels).Error; err != nil {
		return nil, err
	}
	return levels, nil
}

// FindAllForTenant finds all levels for an organization
func (r *GormLevelRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]inventory.InventoryLevel, error) {
	var levels []inventory.InventoryLevel
	query := r.db.WithContext(ctx).Model(&inventory.InventoryLevel{}).Where("tenant_id = ?", tenantID)
	query = applyFilter(query, filter, "updated_at DESC")
	if err := query.Find(&levels).Error; err != nil {
		return nil, err
	}
	return levels, nil
}

// FindBelowReorderPoint finds levels at or below their reorder point
func (r *GormLevelRepository) FindBelowReorderPoint(ctx context.Context, tenantID uuid.UUID) ([]inventory.InventoryLevel, error) {
	var levels []inventory.InventoryLevel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND reorder_point > 0 AND quantity_on_hand - quantity_reserved <= reorder_point", tenantID).
		Order("updated_at ASC").
		Find(&levels).Error; err != nil {
		return nil, err
	}
	return levels, nil
}

// TotalOnHand sums the on-hand quantity for a product across locations
func (r *GormLevelRepository) TotalOnHand(ctx context.Context, tenantID, productID uuid.UUID) (int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).
		Model(&inventory.InventoryLevel{}).
		Where("tenant_id = ? AND product_id = ?", tenantID, productID).
		Select("COALESCE(SUM(quantity_on_hand), 0)").
		Scan(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// Save persists a level. New rows are inserted; updates check the version
// column so concurrent adjustments to the same row fail instead of silently
// overwriting each other.
func (r *GormLevelRepository) Save(ctx context.Context, level *inventory.InventoryLevel) error {
	if level.Version <= 1 {
		return r.db.WithContext(ctx).Save(level).Error
	}

	result := r.db.WithContext(ctx).
		Model(level).
		Where("id = ? AND version = ?", level.ID, level.Version-1).
		Updates(map[string]interface{}{
			"quantity_on_hand":  level.QuantityOnHand,
			"quantity_reserved": level.QuantityReserved,
			"reorder_point":     level.ReorderPoint,
			"reorder_quantity":  level.ReorderQuantity,
			"version":           level.Version,
			"updated_at":        level.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError("OPTIMISTIC_LOCK_FAILED", "Inventory level was modified by another transaction")
	}
	return nil
}

// CountForTenant counts levels for an organization
func (r *GormLevelRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&inventory.InventoryLevel{}).
		Where("tenant_id = ?", tenantID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// GormAdjustmentRepository implements inventory.AdjustmentRepository using GORM
type GormAdjustmentRepository struct {
	db *gorm.DB
}

// NewGormAdjustmentRepository creates a new GormAdjustmentRepository
func NewGormAdjustmentRepository(db *gorm.DB) *GormAdjustmentRepository {
	return &GormAdjustmentRepository{db: db}
}

// Save appends adjustment records
func (r *GormAdjustmentRepository) Save(ctx context.Context, adjustments ...*inventory.StockAdjustment) error {
	if len(adjustments) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(adjustments).Error
}

// FindForLevel lists adjustments for a product/location pair, newest first
func (r *GormAdjustmentRepository) FindForLevel(ctx context.Context, tenantID, productID, locationID uuid.UUID, filter shared.Filter) ([]inventory.StockAdjustment, error) {
	var adjustments []inventory.StockAdjustment
	query := r.db.WithContext(ctx).
		Model(&inventory.StockAdjustment{}).
		Where("tenant_id = ? AND product_id = ? AND location_id = ?", tenantID, productID, locationID)
	query = applyFilter(query, filter, "created_at DESC")
	if err := query.Find(&adjustments).Error; err != nil {
		return nil, err
	}
	return adjustments, nil
}

// FindForTenant lists adjustments for an organization, newest first
func (r *GormAdjustmentRepository) FindForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]inventory.StockAdjustment, error) {
	var adjustments []inventory.StockAdjustment
	query := r.db.WithContext(ctx).
		Model(&inventory.StockAdjustment{}).
		Where("tenant_id = ?", tenantID)
	query = applyFilter(query, filter, "created_at DESC")
	if err := query.Find(&adjustments).Error; err != nil {
		return nil, err
	}
	return adjustments, nil
}

// FindSince lists adjustments created after the given time
func (r *GormAdjustmentRepository) FindSince(ctx context.Context, tenantID uuid.UUID, since time.Time) ([]inventory.StockAdjustment, error) {
	var adjustments []inventory.StockAdjustment
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND created_at > ?", tenantID, since).
		Order("created_at ASC").
		Find(&adjustments).Error; err != nil {
		return nil, err
	}
	return adjustments, nil
}

// CountForTenant counts adjustments for an organization
func (r *GormAdjustmentRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&inventory.StockAdjustment{}).
		Where("tenant_id = ?", tenantID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
