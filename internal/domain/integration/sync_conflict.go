package integration

import (
	"github.com/google/uuid"
	"github.com/truthsource/backend/internal/domain/shared"
)

// ConflictResolution records how a field conflict was settled
type ConflictResolution string

const (
	ResolutionRemoteWins ConflictResolution = "remote_wins" // default: platform value applied
	ResolutionLocalWins  ConflictResolution = "local_wins"
	ResolutionManual     ConflictResolution = "manual" // operator picked a value later
)

// SyncConflict records a field that was edited locally since the last sync
// while the platform copy also changed. The default policy applies the remote
// value and keeps this record so an operator can review or override.
type SyncConflict struct {
	shared.TenantAggregateRoot
	IntegrationID uuid.UUID          `gorm:"type:uuid;not null;index"`
	SyncJobID     *uuid.UUID         `gorm:"type:uuid;index"`
	EntityType    string             `gorm:"type:varchar(30);not null"` // product|inventory|order
	EntityID      uuid.UUID          `gorm:"type:uuid;not null;index"`
	Field         string             `gorm:"type:varchar(60);not null"`
	LocalValue    string             `gorm:"type:text"`
	RemoteValue   string             `gorm:"type:text"`
	Resolution    ConflictResolution `gorm:"type:varchar(20);not null;default:'remote_wins'"`
	Resolved      bool               `gorm:"not null;default:false;index"`
}

// TableName returns the table name for GORM
func (SyncConflict) TableName() string {
	return "sync_conflicts"
}

// NewSyncConflict records a conflict resolved remote-wins
func NewSyncConflict(tenantID, integrationID uuid.UUID, syncJobID *uuid.UUID, entityType string, entityID uuid.UUID, field, localValue, remoteValue string) *SyncConflict {
	return &SyncConflict{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		IntegrationID:       integrationID,
		SyncJobID:           syncJobID,
		EntityType:          entityType,
		EntityID:            entityID,
		Field:               field,
		LocalValue:          localValue,
		RemoteValue:         remoteValue,
		Resolution:          ResolutionRemoteWins,
	}
}

// Resolve marks the conflict reviewed with a final resolution
func (c *SyncConflict) Resolve(resolution ConflictResolution) error {
	if c.Resolved {
		return shared.NewDomainError("ALREADY_RESOLVED", "Conflict is already resolved")
	}
	switch resolution {
	case ResolutionRemoteWins, ResolutionLocalWins, ResolutionManual:
	default:
		return shared.NewDomainError("INVALID_RESOLUTION", "Unknown conflict resolution")
	}

	c.Resolution = resolution
	c.Resolved = true
	c.Touch()
	c.IncrementVersion()

	return nil
}
