package integration

import (
	"time"

	"github.com/google/uuid"
	"github.com/truthsource/backend/internal/domain/shared"
)

// WebhookEventStatus represents the processing state of a received webhook
type WebhookEventStatus string

const (
	WebhookStatusReceived  WebhookEventStatus = "received"
	WebhookStatusProcessed WebhookEventStatus = "processed"
	WebhookStatusFailed    WebhookEventStatus = "failed"
	WebhookStatusSkipped   WebhookEventStatus = "skipped" // unknown topic, stored for inspection
)

// Maximum processing attempts before a webhook event is left failed
const WebhookMaxAttempts = 3

// WebhookEvent is a webhook delivery persisted for processing and audit.
// Duplicate deliveries are detected by (integration, external event ID)
// before a row is written.
type WebhookEvent struct {
	shared.TenantAggregateRoot
	IntegrationID   uuid.UUID          `gorm:"type:uuid;not null;index"`
	Platform        Platform           `gorm:"type:varchar(20);not null"`
	Topic           string             `gorm:"type:varchar(100);not null;index"`
	ExternalEventID string             `gorm:"type:varchar(200);not null;index"`
	Payload         []byte             `gorm:"type:jsonb;not null"`
	Status          WebhookEventStatus `gorm:"type:varchar(20);not null;default:'received';index"`
	Attempts        int                `gorm:"not null;default:0"`
	LastError       string             `gorm:"type:text"`
	ProcessedAt     *time.Time         ``
}

// TableName returns the table name for GORM
func (WebhookEvent) TableName() string {
	return "webhook_events"
}

// NewWebhookEvent stores a verified webhook delivery
func NewWebhookEvent(tenantID, integrationID uuid.UUID, platform Platform, topic, externalEventID string, payload []byte) (*WebhookEvent, error) {
	if topic == "" {
		return nil, shared.NewDomainError("INVALID_TOPIC", "Webhook topic cannot be empty")
	}
	if len(payload) == 0 {
		return nil, shared.NewDomainError("INVALID_PAYLOAD", "Webhook payload cannot be empty")
	}

	event := &WebhookEvent{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		IntegrationID:       integrationID,
		Platform:            platform,
		Topic:               topic,
		ExternalEventID:     externalEventID,
		Payload:             payload,
		Status:              WebhookStatusReceived,
	}

	event.AddDomainEvent(NewWebhookReceivedEvent(event))

	return event, nil
}

// MarkProcessed records successful processing
func (e *WebhookEvent) MarkProcessed() {
	now := time.Now()
	e.Status = WebhookStatusProcessed
	e.ProcessedAt = &now
	e.LastError = ""
	e.Touch()
}

// MarkFailed records a processing failure; the reconciler sweep retries
// failed events until the attempt budget runs out.
func (e *WebhookEvent) MarkFailed(errMsg string) {
	e.Attempts++
	e.Status = WebhookStatusFailed
	e.LastError = errMsg
	e.Touch()

	if !e.CanRetry() {
		e.AddDomainEvent(NewWebhookFailedEvent(e))
	}
}

// MarkSkipped records an unknown-topic delivery
func (e *WebhookEvent) MarkSkipped() {
	e.Status = WebhookStatusSkipped
	e.Touch()
}

// CanRetry returns true while attempts remain
func (e *WebhookEvent) CanRetry() bool {
	return e.Status == WebhookStatusFailed && e.Attempts < WebhookMaxAttempts
}
