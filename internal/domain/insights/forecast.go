package insights

import (
	"time"

	"github.com/google/uuid"
	"github.com/truthsource/backend/internal/domain/shared"
)

// Forecast horizon bounds in days
const (
	MinForecastDays     = 1
	MaxForecastDays     = 365
	DefaultForecastDays = 30
)

// Minimum series length before the blended model kicks in; shorter series
// fall back to moving average alone.
const MinPointsForBlend = 14

// Trend describes where a demand series is heading
type Trend string

const (
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
	TrendStable     Trend = "stable"
)

// DailyPrediction is one forecast day
type DailyPrediction struct {
	Date     time.Time `json:"date"`
	Quantity float64   `json:"quantity"`
}

// SeasonalFactor is the demand multiplier observed for one month
type SeasonalFactor struct {
	Month  time.Month `json:"month"`
	Factor float64    `json:"factor"`
}

// Forecast is a stored demand forecast for one product
type Forecast struct {
	shared.TenantAggregateRoot
	ProductID       uuid.UUID         `gorm:"type:uuid;not null;index"`
	HorizonDays     int               `gorm:"not null"`
	DataPoints      int               `gorm:"not null"`
	ModelsUsed      int               `gorm:"not null"`
	Predictions     []DailyPrediction `gorm:"serializer:json"`
	TotalPredicted  float64           `gorm:"not null;default:0"`
	Trend           Trend             `gorm:"type:varchar(20);not null"`
	Confidence      float64           `gorm:"not null;default:0"`
	SeasonalFactors []SeasonalFactor  `gorm:"serializer:json"`
	GeneratedAt     time.Time         `gorm:"not null"`
}

// TableName returns the table name for GORM
func (Forecast) TableName() string {
	return "demand_forecasts"
}

// NewForecast stores a generated forecast
func NewForecast(tenantID, productID uuid.UUID, horizonDays, dataPoints, modelsUsed int, predictions []DailyPrediction, trend Trend, seasonal []SeasonalFactor) (*Forecast, error) {
	if horizonDays < MinForecastDays || horizonDays > MaxForecastDays {
		return nil, shared.NewDomainError("INVALID_HORIZON", "Forecast horizon must be between 1 and 365 days")
	}

	total := 0.0
	for _, p := range predictions {
		total += p.Quantity
	}

	return &Forecast{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		ProductID:           productID,
		HorizonDays:         horizonDays,
		DataPoints:          dataPoints,
		ModelsUsed:          modelsUsed,
		Predictions:         predictions,
		TotalPredicted:      total,
		Trend:               trend,
		Confidence:          ModelConfidence(dataPoints, modelsUsed),
		SeasonalFactors:     seasonal,
		GeneratedAt:         time.Now(),
	}, nil
}

// ModelConfidence scores a forecast by data volume and model count:
// (min(points/100, 1) + min(models/10, 1)) / 2.
func ModelConfidence(dataPoints, modelsUsed int) float64 {
	dataScore := float64(dataPoints) / 100
	if dataScore > 1 {
		dataScore = 1
	}
	modelScore := float64(modelsUsed) / 10
	if modelScore > 1 {
		modelScore = 1
	}
	return (dataScore + modelScore) / 2
}

// ClassifyTrend maps a regression slope to a trend label. The slope's
// cumulative effect over the observed window is compared against a 5% band
// of the series mean; changes inside the band count as stable.
func ClassifyTrend(slope, mean float64, days int) Trend {
	band := mean * 0.05
	if band < 0 {
		band = -band
	}
	change := slope * float64(days)
	switch {
	case change > band:
		return TrendIncreasing
	case change < -band:
		return TrendDecreasing
	default:
		return TrendStable
	}
}
