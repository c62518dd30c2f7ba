package alert

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/truthsource/backend/internal/domain/shared"
)

// Type categorizes what condition raised the alert
type Type string

const (
	TypeLowStock       Type = "low_stock"
	TypeAnomaly        Type = "anomaly"
	TypeSyncFailure    Type = "sync_failure"
	TypeWebhookFailure Type = "webhook_failure"
)

// IsValid returns true for a known alert type
func (t Type) IsValid() bool {
	switch t {
	case TypeLowStock, TypeAnomaly, TypeSyncFailure, TypeWebhookFailure:
		return true
	}
	return false
}

// Severity ranks alert urgency
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Status is the review state of an alert
type Status string

const (
	StatusOpen         Status = "open"
	StatusAcknowledged Status = "acknowledged"
	StatusResolved     Status = "resolved"
)

// Alert is a user-facing notification raised by the event handlers
// subscribed to inventory, insights, and sync failures.
type Alert struct {
	shared.TenantAggregateRoot
	Type           Type       `gorm:"type:varchar(30);not null;index"`
	Severity       Severity   `gorm:"type:varchar(10);not null;index"`
	Title          string     `gorm:"type:varchar(200);not null"`
	Message        string     `gorm:"type:text;not null"`
	EntityType     string     `gorm:"type:varchar(30)"`
	EntityID       *uuid.UUID `gorm:"type:uuid;index"`
	Status         Status     `gorm:"type:varchar(20);not null;default:'open';index"`
	AcknowledgedBy *uuid.UUID `gorm:"type:uuid"`
	ResolvedAt     *time.Time ``
}

// TableName returns the table name for GORM
func (Alert) TableName() string {
	return "alerts"
}

// NewAlert creates an open alert
func NewAlert(tenantID uuid.UUID, alertType Type, severity Severity, title, message string, entityType string, entityID *uuid.UUID) (*Alert, error) {
	if !alertType.IsValid() {
		return nil, shared.NewDomainError("INVALID_ALERT_TYPE", "Unknown alert type")
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, shared.NewDomainError("INVALID_TITLE", "Alert title cannot be empty")
	}
	switch severity {
	case SeverityInfo, SeverityWarning, SeverityCritical:
	default:
		return nil, shared.NewDomainError("INVALID_SEVERITY", "Severity must be info, warning, or critical")
	}

	return &Alert{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Type:                alertType,
		Severity:            severity,
		Title:               title,
		Message:             message,
		EntityType:          entityType,
		EntityID:            entityID,
		Status:              StatusOpen,
	}, nil
}

// Acknowledge marks the alert as seen by a user
func (a *Alert) Acknowledge(userID uuid.UUID) error {
	if a.Status != StatusOpen {
		return shared.NewDomainError("INVALID_STATE", "Only open alerts can be acknowledged")
	}

	a.Status = StatusAcknowledged
	a.AcknowledgedBy = &userID
	a.Touch()
	a.IncrementVersion()

	return nil
}

// Resolve closes the alert
func (a *Alert) Resolve() error {
	if a.Status == StatusResolved {
		return shared.NewDomainError("INVALID_STATE", "Alert is already resolved")
	}

	now := time.Now()
	a.Status = StatusResolved
	a.ResolvedAt = &now
	a.Touch()
	a.IncrementVersion()

	return nil
}
