package insights

import (
	"time"

	"github.com/google/uuid"

	"github.com/truthsource/backend/internal/domain/insights"
)

// GenerateForecastInput requests a demand forecast for one product
type GenerateForecastInput struct {
	OrgID       uuid.UUID
	ProductID   uuid.UUID
	HorizonDays int
}

// ForecastInfo contains forecast information returned by the API
type ForecastInfo struct {
	ID              uuid.UUID                  `json:"id"`
	ProductID       uuid.UUID                  `json:"product_id"`
	HorizonDays     int                        `json:"horizon_days"`
	DataPoints      int                        `json:"data_points"`
	ModelsUsed      int                        `json:"models_used"`
	Predictions     []insights.DailyPrediction `json:"predictions"`
	TotalPredicted  float64                    `json:"total_predicted"`
	Trend           insights.Trend             `json:"trend"`
	Confidence      float64                    `json:"confidence"`
	SeasonalFactors []insights.SeasonalFactor  `json:"seasonal_factors,omitempty"`
	Summary         string                     `json:"summary,omitempty"`
	GeneratedAt     time.Time                  `json:"generated_at"`
}

func toForecastInfo(f *insights.Forecast, summary string) ForecastInfo {
	return ForecastInfo{
		ID:              f.ID,
		ProductID:       f.ProductID,
		HorizonDays:     f.HorizonDays,
		DataPoints:      f.DataPoints,
		ModelsUsed:      f.ModelsUsed,
		Predictions:     f.Predictions,
		TotalPredicted:  f.TotalPredicted,
		Trend:           f.Trend,
		Confidence:      f.Confidence,
		SeasonalFactors: f.SeasonalFactors,
		Summary:         summary,
		GeneratedAt:     f.GeneratedAt,
	}
}

// DetectAnomaliesInput requests a detection run over one data class
type DetectAnomaliesInput struct {
	OrgID       uuid.UUID
	DataType    insights.DataType
	Sensitivity *float64
}

// AnomalyInfo contains anomaly information returned by the API
type AnomalyInfo struct {
	ID            uuid.UUID              `json:"id"`
	DataType      insights.DataType      `json:"data_type"`
	Metric        string                 `json:"metric"`
	EntityType    string                 `json:"entity_type,omitempty"`
	EntityID      *uuid.UUID             `json:"entity_id,omitempty"`
	ObservedValue float64                `json:"observed_value"`
	ExpectedValue float64                `json:"expected_value"`
	Deviation     float64                `json:"deviation"`
	Severity      insights.Severity      `json:"severity"`
	Status        insights.AnomalyStatus `json:"status"`
	Description   string                 `json:"description,omitempty"`
	ObservedAt    time.Time              `json:"observed_at"`
}

func toAnomalyInfo(a *insights.Anomaly) AnomalyInfo {
	return AnomalyInfo{
		ID:            a.ID,
		DataType:      a.DataType,
		Metric:        a.Metric,
		EntityType:    a.EntityType,
		EntityID:      a.EntityID,
		ObservedValue: a.ObservedValue,
		ExpectedValue: a.ExpectedValue,
		Deviation:     a.Deviation,
		Severity:      a.Severity,
		Status:        a.Status,
		Description:   a.Description,
		ObservedAt:    a.ObservedAt,
	}
}

// DetectionResult is the outcome of one detection run
type DetectionResult struct {
	DataType    insights.DataType `json:"data_type"`
	PointsRead  int               `json:"points_read"`
	Anomalies   []AnomalyInfo     `json:"anomalies"`
	NextCheckIn time.Duration     `json:"next_check_in"`
	Summary     string            `json:"summary,omitempty"`
}

// PredictDeliveryInput requests a transit estimate for one shipment
type PredictDeliveryInput struct {
	Carrier   string
	Service   insights.ServiceLevel
	OriginZip string
	DestZip   string
	ShipDate  time.Time
}
