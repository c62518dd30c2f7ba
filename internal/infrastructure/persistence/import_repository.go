package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/truthsource/backend/internal/domain/bulk"
	"github.com/truthsource/backend/internal/domain/shared"
)

// GormImportHistoryRepository implements bulk.HistoryRepository using GORM
type GormImportHistoryRepository struct {
	db *gorm.DB
}

// NewGormImportHistoryRepository creates a new GormImportHistoryRepository
func NewGormImportHistoryRepository(db *gorm.DB) *GormImportHistoryRepository {
	return &GormImportHistoryRepository{db: db}
}

// FindByIDForTenant finds an import by ID within an organization
func (r *GormImportHistoryRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*bulk.ImportHistory, error) {
	var history bulk.ImportHistory
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&history).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &history, nil
}

// FindAllForTenant lists imports for an organization
func (r *GormImportHistoryRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]bulk.ImportHistory, error) {
	var histories []bulk.ImportHistory
	query := r.db.WithContext(ctx).Model(&bulk.ImportHistory{}).Where("tenant_id = ?", tenantID)
	query = applySearch(query, filter, "file_name")
	query = applyFilter(query, filter, "created_at DESC")
	if err := query.Find(&histories).Error; err != nil {
		return nil, err
	}
	return histories, nil
}

// FindStuckProcessing finds imports left processing after a restart
func (r *GormImportHistoryRepository) FindStuckProcessing(ctx context.Context) ([]bulk.ImportHistory, error) {
	var histories []bulk.ImportHistory
	if err := r.db.WithContext(ctx).
		Where("status = ?", bulk.ImportStatusProcessing).
		Order("created_at ASC").
		Find(&histories).Error; err != nil {
		return nil, err
	}
	return histories, nil
}

// Save creates or updates an import history
func (r *GormImportHistoryRepository) Save(ctx context.Context, history *bulk.ImportHistory) error {
	return r.db.WithContext(ctx).Save(history).Error
}

// CountForTenant counts imports for an organization
func (r *GormImportHistoryRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&bulk.ImportHistory{}).Where("tenant_id = ?", tenantID)
	query = applySearch(query, filter, "file_name")
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// GormImportOperationRepository implements bulk.OperationRepository using GORM
type GormImportOperationRepository struct {
	db *gorm.DB
}

// NewGormImportOperationRepository creates a new GormImportOperationRepository
func NewGormImportOperationRepository(db *gorm.DB) *GormImportOperationRepository {
	return &GormImportOperationRepository{db: db}
}

// AppendBatch stores a batch of operation-log entries
func (r *GormImportOperationRepository) AppendBatch(ctx context.Context, ops []bulk.ImportOperation) error {
	if len(ops) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(ops, 200).Error
}

// FindByImportReversed returns an import's log in reverse sequence order
func (r *GormImportOperationRepository) FindByImportReversed(ctx context.Context, tenantID, importID uuid.UUID) ([]bulk.ImportOperation, error) {
	var ops []bulk.ImportOperation
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND import_id = ?", tenantID, importID).
		Order("sequence DESC").
		Find(&ops).Error; err != nil {
		return nil, err
	}
	return ops, nil
}

// NextSequence returns the next sequence number for an import
func (r *GormImportOperationRepository) NextSequence(ctx context.Context, importID uuid.UUID) (int, error) {
	var max int
	if err := r.db.WithContext(ctx).
		Model(&bulk.ImportOperation{}).
		Where("import_id = ?", importID).
		Select("COALESCE(MAX(sequence), 0)").
		Scan(&max).Error; err != nil {
		return 0, err
	}
	return max + 1, nil
}
