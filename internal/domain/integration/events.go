package integration

import (
	"github.com/google/uuid"
	"github.com/truthsource/backend/internal/domain/shared"
)

// Aggregate type constants
const (
	AggregateTypeIntegration  = "Integration"
	AggregateTypeSyncJob      = "SyncJob"
	AggregateTypeWebhookEvent = "WebhookEvent"
)

// Event type constants
const (
	EventTypeIntegrationConnected = "IntegrationConnected"
	EventTypeIntegrationPaused    = "IntegrationPaused"
	EventTypeIntegrationFailed    = "IntegrationFailed"
	EventTypeSyncCompleted        = "SyncCompleted"
	EventTypeSyncFailed           = "SyncFailed"
	EventTypeWebhookReceived      = "WebhookReceived"
	EventTypeWebhookFailed        = "WebhookFailed"
)

// IntegrationConnectedEvent is published when a platform connection is created
type IntegrationConnectedEvent struct {
	shared.BaseDomainEvent
	IntegrationID uuid.UUID `json:"integration_id"`
	Platform      Platform  `json:"platform"`
	DisplayName   string    `json:"display_name"`
}

// NewIntegrationConnectedEvent creates a new IntegrationConnectedEvent
func NewIntegrationConnectedEvent(i *Integration) *IntegrationConnectedEvent {
	return &IntegrationConnectedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeIntegrationConnected, AggregateTypeIntegration, i.ID, i.TenantID),
		IntegrationID:   i.ID,
		Platform:        i.Platform,
		DisplayName:     i.DisplayName,
	}
}

// IntegrationPausedEvent is published when an integration is paused
type IntegrationPausedEvent struct {
	shared.BaseDomainEvent
	IntegrationID uuid.UUID `json:"integration_id"`
	Platform      Platform  `json:"platform"`
}

// NewIntegrationPausedEvent creates a new IntegrationPausedEvent
func NewIntegrationPausedEvent(i *Integration) *IntegrationPausedEvent {
	return &IntegrationPausedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeIntegrationPaused, AggregateTypeIntegration, i.ID, i.TenantID),
		IntegrationID:   i.ID,
		Platform:        i.Platform,
	}
}

// IntegrationFailedEvent is published when consecutive sync failures move an
// integration to error status. The alerting pipeline subscribes.
type IntegrationFailedEvent struct {
	shared.BaseDomainEvent
	IntegrationID uuid.UUID `json:"integration_id"`
	Platform      Platform  `json:"platform"`
	DisplayName   string    `json:"display_name"`
	LastError     string    `json:"last_error"`
}

// NewIntegrationFailedEvent creates a new IntegrationFailedEvent
func NewIntegrationFailedEvent(i *Integration, lastError string) *IntegrationFailedEvent {
	return &IntegrationFailedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeIntegrationFailed, AggregateTypeIntegration, i.ID, i.TenantID),
		IntegrationID:   i.ID,
		Platform:        i.Platform,
		DisplayName:     i.DisplayName,
		LastError:       lastError,
	}
}

// SyncCompletedEvent is published when a sync job finishes a run
type SyncCompletedEvent struct {
	shared.BaseDomainEvent
	SyncJobID     uuid.UUID     `json:"sync_job_id"`
	IntegrationID uuid.UUID     `json:"integration_id"`
	Platform      Platform      `json:"platform"`
	Direction     SyncDirection `json:"direction"`
	Entity        SyncEntity    `json:"entity"`
	Status        SyncJobStatus `json:"status"`
	Counters      SyncCounters  `json:"counters"`
}

// NewSyncCompletedEvent creates a new SyncCompletedEvent
func NewSyncCompletedEvent(j *SyncJob) *SyncCompletedEvent {
	return &SyncCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSyncCompleted, AggregateTypeSyncJob, j.ID, j.TenantID),
		SyncJobID:       j.ID,
		IntegrationID:   j.IntegrationID,
		Platform:        j.Platform,
		Direction:       j.Direction,
		Entity:          j.Entity,
		Status:          j.Status,
		Counters:        j.Counters,
	}
}

// SyncFailedEvent is published when a sync job exhausts its retry budget
type SyncFailedEvent struct {
	shared.BaseDomainEvent
	SyncJobID     uuid.UUID     `json:"sync_job_id"`
	IntegrationID uuid.UUID     `json:"integration_id"`
	Platform      Platform      `json:"platform"`
	Direction     SyncDirection `json:"direction"`
	Entity        SyncEntity    `json:"entity"`
	Attempts      int           `json:"attempts"`
	LastError     string        `json:"last_error"`
}

// NewSyncFailedEvent creates a new SyncFailedEvent
func NewSyncFailedEvent(j *SyncJob) *SyncFailedEvent {
	return &SyncFailedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSyncFailed, AggregateTypeSyncJob, j.ID, j.TenantID),
		SyncJobID:       j.ID,
		IntegrationID:   j.IntegrationID,
		Platform:        j.Platform,
		Direction:       j.Direction,
		Entity:          j.Entity,
		Attempts:        j.Attempts,
		LastError:       j.LastError,
	}
}

// WebhookReceivedEvent is published when a verified webhook delivery is stored
type WebhookReceivedEvent struct {
	shared.BaseDomainEvent
	WebhookEventID  uuid.UUID `json:"webhook_event_id"`
	IntegrationID   uuid.UUID `json:"integration_id"`
	Platform        Platform  `json:"platform"`
	Topic           string    `json:"topic"`
	ExternalEventID string    `json:"external_event_id"`
}

// NewWebhookReceivedEvent creates a new WebhookReceivedEvent
func NewWebhookReceivedEvent(e *WebhookEvent) *WebhookReceivedEvent {
	return &WebhookReceivedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeWebhookReceived, AggregateTypeWebhookEvent, e.ID, e.TenantID),
		WebhookEventID:  e.ID,
		IntegrationID:   e.IntegrationID,
		Platform:        e.Platform,
		Topic:           e.Topic,
		ExternalEventID: e.ExternalEventID,
	}
}

// WebhookFailedEvent is published when a webhook delivery exhausts processing
// attempts. The alerting pipeline subscribes.
type WebhookFailedEvent struct {
	shared.BaseDomainEvent
	WebhookEventID uuid.UUID `json:"webhook_event_id"`
	IntegrationID  uuid.UUID `json:"integration_id"`
	Platform       Platform  `json:"platform"`
	Topic          string    `json:"topic"`
	Attempts       int       `json:"attempts"`
	LastError      string    `json:"last_error"`
}

// NewWebhookFailedEvent creates a new WebhookFailedEvent
func NewWebhookFailedEvent(e *WebhookEvent) *WebhookFailedEvent {
	return &WebhookFailedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeWebhookFailed, AggregateTypeWebhookEvent, e.ID, e.TenantID),
		WebhookEventID:  e.ID,
		IntegrationID:   e.IntegrationID,
		Platform:        e.Platform,
		Topic:           e.Topic,
		Attempts:        e.Attempts,
		LastError:       e.LastError,
	}
}
