package insights

import (
	"github.com/google/uuid"
	"github.com/truthsource/backend/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeAnomaly = "Anomaly"

// Event type constant
const EventTypeAnomalyDetected = "AnomalyDetected"

// AnomalyDetectedEvent is published when a detection run records an anomaly.
// The alerts module subscribes.
type AnomalyDetectedEvent struct {
	shared.BaseDomainEvent
	AnomalyID     uuid.UUID `json:"anomaly_id"`
	DataType      DataType  `json:"data_type"`
	Metric        string    `json:"metric"`
	Severity      Severity  `json:"severity"`
	ObservedValue float64   `json:"observed_value"`
	ExpectedValue float64   `json:"expected_value"`
	Description   string    `json:"description"`
}

// NewAnomalyDetectedEvent creates a new AnomalyDetectedEvent
func NewAnomalyDetectedEvent(a *Anomaly) *AnomalyDetectedEvent {
	return &AnomalyDetectedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeAnomalyDetected, AggregateTypeAnomaly, a.ID, a.TenantID),
		AnomalyID:       a.ID,
		DataType:        a.DataType,
		Metric:          a.Metric,
		Severity:        a.Severity,
		ObservedValue:   a.ObservedValue,
		ExpectedValue:   a.ExpectedValue,
		Description:     a.Description,
	}
}
