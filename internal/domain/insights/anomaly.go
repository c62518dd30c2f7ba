package insights

import (
	"time"

	"github.com/google/uuid"
	"github.com/truthsource/backend/internal/domain/shared"
)

// DataType is the class of metric an anomaly scan inspects
type DataType string

const (
	DataTypeInventory DataType = "inventory"
	DataTypePricing   DataType = "pricing"
	DataTypeOrders    DataType = "orders"
)

// IsValid returns true for a known data type
func (d DataType) IsValid() bool {
	switch d {
	case DataTypeInventory, DataTypePricing, DataTypeOrders:
		return true
	}
	return false
}

// Severity ranks an anomaly by how far it sits outside the baseline
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// AnomalyStatus is the review state of a detected anomaly
type AnomalyStatus string

const (
	AnomalyStatusOpen         AnomalyStatus = "open"
	AnomalyStatusAcknowledged AnomalyStatus = "acknowledged"
	AnomalyStatusResolved     AnomalyStatus = "resolved"
)

// Sensitivity bounds; higher means tighter thresholds
const (
	MinSensitivity     = 0.0
	MaxSensitivity     = 1.0
	DefaultSensitivity = 0.5
)

// Anomaly is one out-of-band data point found by a detection run
type Anomaly struct {
	shared.TenantAggregateRoot
	DataType       DataType      `gorm:"type:varchar(20);not null;index"`
	Metric         string        `gorm:"type:varchar(60);not null"`
	EntityType     string        `gorm:"type:varchar(30)"`
	EntityID       *uuid.UUID    `gorm:"type:uuid;index"`
	ObservedValue  float64       `gorm:"not null"`
	ExpectedValue  float64       `gorm:"not null"` // baseline average
	Deviation      float64       `gorm:"not null"` // multiples of the baseline std
	Severity       Severity      `gorm:"type:varchar(10);not null;index"`
	Status         AnomalyStatus `gorm:"type:varchar(20);not null;default:'open';index"`
	Description    string        `gorm:"type:text"`
	ObservedAt     time.Time     `gorm:"not null"`
	AcknowledgedBy *uuid.UUID    `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (Anomaly) TableName() string {
	return "anomalies"
}

// NewAnomaly records an out-of-band observation. Severity is derived from
// the deviation multiple.
func NewAnomaly(tenantID uuid.UUID, dataType DataType, metric string, entityType string, entityID *uuid.UUID, observed, expected, deviation float64, description string, observedAt time.Time) (*Anomaly, error) {
	if !dataType.IsValid() {
		return nil, shared.NewDomainError("INVALID_DATA_TYPE", "Data type must be inventory, pricing, or orders")
	}
	if metric == "" {
		return nil, shared.NewDomainError("INVALID_METRIC", "Metric cannot be empty")
	}

	a := &Anomaly{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		DataType:            dataType,
		Metric:              metric,
		EntityType:          entityType,
		EntityID:            entityID,
		ObservedValue:       observed,
		ExpectedValue:       expected,
		Deviation:           deviation,
		Severity:            ClassifySeverity(deviation),
		Status:              AnomalyStatusOpen,
		Description:         description,
		ObservedAt:          observedAt,
	}

	a.AddDomainEvent(NewAnomalyDetectedEvent(a))

	return a, nil
}

// Acknowledge marks the anomaly as seen by a user
func (a *Anomaly) Acknowledge(userID uuid.UUID) error {
	if a.Status != AnomalyStatusOpen {
		return shared.NewDomainError("INVALID_STATE", "Only open anomalies can be acknowledged")
	}

	a.Status = AnomalyStatusAcknowledged
	a.AcknowledgedBy = &userID
	a.Touch()
	a.IncrementVersion()

	return nil
}

// Resolve closes the anomaly
func (a *Anomaly) Resolve() error {
	if a.Status == AnomalyStatusResolved {
		return shared.NewDomainError("INVALID_STATE", "Anomaly is already resolved")
	}

	a.Status = AnomalyStatusResolved
	a.Touch()
	a.IncrementVersion()

	return nil
}

// ClassifySeverity buckets a deviation multiple: <2.5 low, <3 medium,
// <4 high, else critical.
func ClassifySeverity(deviation float64) Severity {
	if deviation < 0 {
		deviation = -deviation
	}
	switch {
	case deviation < 2.5:
		return SeverityLow
	case deviation < 3:
		return SeverityMedium
	case deviation < 4:
		return SeverityHigh
	default:
		return SeverityCritical
	}
}

// ThresholdBand returns the acceptance band around a baseline:
// avg ± std × (2.0 − sensitivity).
func ThresholdBand(avg, std, sensitivity float64) (low, high float64) {
	if sensitivity < MinSensitivity {
		sensitivity = MinSensitivity
	}
	if sensitivity > MaxSensitivity {
		sensitivity = MaxSensitivity
	}
	width := std * (2.0 - sensitivity)
	return avg - width, avg + width
}

// RecommendNextCheck picks the next scan interval from the worst finding:
// 15 minutes with any critical, 1 hour with any anomaly, else 4 hours.
func RecommendNextCheck(anomalies []Anomaly) time.Duration {
	if len(anomalies) == 0 {
		return 4 * time.Hour
	}
	for _, a := range anomalies {
		if a.Severity == SeverityCritical {
			return 15 * time.Minute
		}
	}
	return time.Hour
}
