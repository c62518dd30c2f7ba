package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/truthsource/backend/internal/domain/insights"
	"github.com/truthsource/backend/internal/domain/shared"
)

// GormForecastRepository implements insights.ForecastRepository using GORM
type GormForecastRepository struct {
	db *gorm.DB
}

// NewGormForecastRepository creates a new GormForecastRepository
func NewGormForecastRepository(db *gorm.DB) *GormForecastRepository {
	return &GormForecastRepository{db: db}
}

// FindLatestForProduct returns the most recently generated forecast
func (r *GormForecastRepository) FindLatestForProduct(ctx context.Context, tenantID, productID uuid.UUID) (*insights.Forecast, error) {
	var forecast insights.Forecast
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND product_id = ?", tenantID, productID).
		Order("generated_at DESC").
		First(&forecast).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &forecast, nil
}

// Save stores a forecast
func (r *GormForecastRepository) Save(ctx context.Context, forecast *insights.Forecast) error {
	return r.db.WithContext(ctx).Save(forecast).Error
}

// DeleteOlderThan prunes stale forecasts, keeping the newest keepPerProduct
// rows for each product
func (r *GormForecastRepository) DeleteOlderThan(ctx context.Context, tenantID uuid.UUID, keepPerProduct int) error {
	if keepPerProduct < 1 {
		keepPerProduct = 1
	}
	return r.db.WithContext(ctx).Exec(`
		DELETE FROM demand_forecasts
		WHERE tenant_id = ? AND id IN (
			SELECT id FROM (
				SELECT id, ROW_NUMBER() OVER (
					PARTITION BY product_id ORDER BY generated_at DESC
				) AS rn
				FROM demand_forecasts
				WHERE tenant_id = ?
			) ranked
			WHERE ranked.rn > ?
		)`, tenantID, tenantID, keepPerProduct).Error
}

// GormAnomalyRepository implements insights.AnomalyRepository using GORM
type GormAnomalyRepository struct {
	db *gorm.DB
}

// NewGormAnomalyRepository creates a new GormAnomalyRepository
func NewGormAnomalyRepository(db *gorm.DB) *GormAnomalyRepository {
	return &GormAnomalyRepository{db: db}
}

// FindByIDForTenant finds an anomaly by ID within an organization
func (r *GormAnomalyRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*insights.Anomaly, error) {
	var anomaly insights.Anomaly
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&anomaly).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &anomaly, nil
}

// FindAllForTenant lists anomalies for an organization
func (r *GormAnomalyRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, severity *insights.Severity, status *insights.AnomalyStatus, filter shared.Filter) ([]insights.Anomaly, error) {
	var anomalies []insights.Anomaly
	query := r.db.WithContext(ctx).Model(&insights.Anomaly{}).Where("tenant_id = ?", tenantID)
	if severity != nil {
		query = query.Where("severity = ?", *severity)
	}
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	query = applySearch(query, filter, "metric", "description")
	query = applyFilter(query, filter, "observed_at DESC")
	if err := query.Find(&anomalies).Error; err != nil {
		return nil, err
	}
	return anomalies, nil
}

// CountOpenForTenant counts unreviewed anomalies
func (r *GormAnomalyRepository) CountOpenForTenant(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&insights.Anomaly{}).
		Where("tenant_id = ? AND status = ?", tenantID, insights.AnomalyStatusOpen).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// SaveBatch stores a detection run's findings
func (r *GormAnomalyRepository) SaveBatch(ctx context.Context, anomalies []*insights.Anomaly) error {
	if len(anomalies) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(anomalies, 200).Error
}

// Save creates or updates a single anomaly
func (r *GormAnomalyRepository) Save(ctx context.Context, anomaly *insights.Anomaly) error {
	return r.db.WithContext(ctx).Save(anomaly).Error
}
