package integration

import (
	"time"

	"github.com/google/uuid"

	"github.com/truthsource/backend/internal/domain/integration"
)

// ConnectInput contains the input for connecting a platform
type ConnectInput struct {
	OrgID       uuid.UUID
	Platform    integration.Platform
	DisplayName string
	Credentials integration.Credentials
}

// UpdateIntegrationInput contains the input for integration updates. Blank
// credential fields keep their stored values.
type UpdateIntegrationInput struct {
	OrgID               uuid.UUID
	IntegrationID       uuid.UUID
	DisplayName         *string
	SyncIntervalMinutes *int
	Credentials         *integration.Credentials
}

// TriggerSyncInput contains the input for a manual sync run
type TriggerSyncInput struct {
	OrgID         uuid.UUID
	IntegrationID uuid.UUID
	Entity        integration.SyncEntity
	Direction     integration.SyncDirection
}

// ResolveConflictInput contains the input for resolving a sync conflict
type ResolveConflictInput struct {
	OrgID      uuid.UUID
	ConflictID uuid.UUID
	Resolution integration.ConflictResolution
}

// IntegrationInfo contains integration information returned by the API.
// Credential secrets are never included; ShopDomain identifies the account.
type IntegrationInfo struct {
	ID                  uuid.UUID
	OrgID               uuid.UUID
	Platform            integration.Platform
	DisplayName         string
	Status              integration.IntegrationStatus
	ShopDomain          string
	AccountID           string
	SyncIntervalMinutes int
	LastProductSyncAt   *time.Time
	LastInventorySyncAt *time.Time
	LastOrderSyncAt     *time.Time
	LastError           string
	ConsecutiveFailures int
	CreatedAt           time.Time
}

// SyncJobInfo contains sync job information returned by the API
type SyncJobInfo struct {
	ID            uuid.UUID
	OrgID         uuid.UUID
	IntegrationID uuid.UUID
	Platform      integration.Platform
	Direction     integration.SyncDirection
	Entity        integration.SyncEntity
	Trigger       integration.SyncTrigger
	Status        integration.SyncJobStatus
	Attempts      int
	MaxAttempts   int
	Counters      integration.SyncCounters
	LastError     string
	NextRetryAt   *time.Time
	StartedAt     *time.Time
	FinishedAt    *time.Time
	CreatedAt     time.Time
}

// ConflictInfo contains sync conflict information returned by the API
type ConflictInfo struct {
	ID            uuid.UUID
	IntegrationID uuid.UUID
	EntityType    string
	EntityID      uuid.UUID
	Field         string
	LocalValue    string
	RemoteValue   string
	Resolution    integration.ConflictResolution
	Resolved      bool
	CreatedAt     time.Time
}

// WebhookEventInfo contains stored webhook delivery information
type WebhookEventInfo struct {
	ID              uuid.UUID
	IntegrationID   uuid.UUID
	Platform        integration.Platform
	Topic           string
	ExternalEventID string
	Status          integration.WebhookEventStatus
	Attempts        int
	LastError       string
	ProcessedAt     *time.Time
	CreatedAt       time.Time
}

func toIntegrationInfo(i *integration.Integration) IntegrationInfo {
	return IntegrationInfo{
		ID:                  i.ID,
		OrgID:               i.TenantID,
		Platform:            i.Platform,
		DisplayName:         i.DisplayName,
		Status:              i.Status,
		ShopDomain:          i.Credentials.ShopDomain,
		AccountID:           i.Credentials.AccountID,
		SyncIntervalMinutes: i.SyncIntervalMinutes,
		LastProductSyncAt:   i.LastProductSyncAt,
		LastInventorySyncAt: i.LastInventorySyncAt,
		LastOrderSyncAt:     i.LastOrderSyncAt,
		LastError:           i.LastError,
		ConsecutiveFailures: i.ConsecutiveFailures,
		CreatedAt:           i.CreatedAt,
	}
}

func toSyncJobInfo(j *integration.SyncJob) SyncJobInfo {
	return SyncJobInfo{
		ID:            j.ID,
		OrgID:         j.TenantID,
		IntegrationID: j.IntegrationID,
		Platform:      j.Platform,
		Direction:     j.Direction,
		Entity:        j.Entity,
		Trigger:       j.Trigger,
		Status:        j.Status,
		Attempts:      j.Attempts,
		MaxAttempts:   j.MaxAttempts,
		Counters:      j.Counters,
		LastError:     j.LastError,
		NextRetryAt:   j.NextRetryAt,
		StartedAt:     j.StartedAt,
		FinishedAt:    j.FinishedAt,
		CreatedAt:     j.CreatedAt,
	}
}

func toConflictInfo(c *integration.SyncConflict) ConflictInfo {
	return ConflictInfo{
		ID:            c.ID,
		IntegrationID: c.IntegrationID,
		EntityType:    c.EntityType,
		EntityID:      c.EntityID,
		Field:         c.Field,
		LocalValue:    c.LocalValue,
		RemoteValue:   c.RemoteValue,
		Resolution:    c.Resolution,
		Resolved:      c.Resolved,
		CreatedAt:     c.CreatedAt,
	}
}

func toWebhookEventInfo(e *integration.WebhookEvent) WebhookEventInfo {
	return WebhookEventInfo{
		ID:              e.ID,
		IntegrationID:   e.IntegrationID,
		Platform:        e.Platform,
		Topic:           e.Topic,
		ExternalEventID: e.ExternalEventID,
		Status:          e.Status,
		Attempts:        e.Attempts,
		LastError:       e.LastError,
		ProcessedAt:     e.ProcessedAt,
		CreatedAt:       e.CreatedAt,
	}
}
