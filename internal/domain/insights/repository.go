package insights

import (
	"context"

	"github.com/google/uuid"
	"github.com/truthsource/backend/internal/domain/shared"
)

// ForecastRepository defines the interface for forecast persistence
type ForecastRepository interface {
	// FindLatestForProduct returns the most recently generated forecast
	FindLatestForProduct(ctx context.Context, tenantID, productID uuid.UUID) (*Forecast, error)

	// Save stores a forecast
	Save(ctx context.Context, forecast *Forecast) error

	// DeleteOlderThan prunes stale forecasts, keeping the latest per product
	DeleteOlderThan(ctx context.Context, tenantID uuid.UUID, keepPerProduct int) error
}

// AnomalyRepository defines the interface for anomaly persistence
type AnomalyRepository interface {
	// FindByIDForTenant finds an anomaly by ID within an organization
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Anomaly, error)

	// FindAllForTenant lists anomalies for an organization; Filter search
	// matches metric and description
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, severity *Severity, status *AnomalyStatus, filter shared.Filter) ([]Anomaly, error)

	// CountOpenForTenant counts unreviewed anomalies
	CountOpenForTenant(ctx context.Context, tenantID uuid.UUID) (int64, error)

	// SaveBatch stores a detection run's findings
	SaveBatch(ctx context.Context, anomalies []*Anomaly) error

	// Save creates or updates a single anomaly
	Save(ctx context.Context, anomaly *Anomaly) error
}
