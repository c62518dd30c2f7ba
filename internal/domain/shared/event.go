package shared

import (
	"time"

	"github.com/google/uuid"
)

// DomainEvent is a fact recorded by an aggregate. Events are serialized into
// the outbox, so implementations must be JSON-marshalable.
type DomainEvent interface {
	EventID() uuid.UUID
	EventType() string
	OccurredAt() time.Time
	AggregateID() uuid.UUID
	AggregateType() string
	TenantID() uuid.UUID
}

// VersionedEvent adds schema versioning. Events implement this when their
// payload shape needs to evolve without breaking consumers of previously
// stored outbox entries.
type VersionedEvent interface {
	DomainEvent
	SchemaVersion() int
}

// BaseDomainEvent implements DomainEvent for embedding in concrete events.
type BaseDomainEvent struct {
	ID            uuid.UUID `json:"id"`
	Type          string    `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggID         uuid.UUID `json:"aggregate_id"`
	AggType       string    `json:"aggregate_type"`
	TenantIDValue uuid.UUID `json:"tenant_id"`
	Version       int       `json:"schema_version,omitempty"`
}

// NewBaseDomainEvent builds an event at schema version 1.
func NewBaseDomainEvent(eventType, aggType string, aggID, tenantID uuid.UUID) BaseDomainEvent {
	return NewVersionedBaseDomainEvent(eventType, aggType, aggID, tenantID, 1)
}

// NewVersionedBaseDomainEvent builds an event with an explicit schema version.
func NewVersionedBaseDomainEvent(eventType, aggType string, aggID, tenantID uuid.UUID, schemaVersion int) BaseDomainEvent {
	if schemaVersion < 1 {
		schemaVersion = 1
	}
	return BaseDomainEvent{
		ID:            uuid.New(),
		Type:          eventType,
		Timestamp:     time.Now(),
		AggID:         aggID,
		AggType:       aggType,
		TenantIDValue: tenantID,
		Version:       schemaVersion,
	}
}

func (e *BaseDomainEvent) EventID() uuid.UUID { return e.ID }

func (e *BaseDomainEvent) EventType() string { return e.Type }

func (e *BaseDomainEvent) OccurredAt() time.Time { return e.Timestamp }

func (e *BaseDomainEvent) AggregateID() uuid.UUID { return e.AggID }

func (e *BaseDomainEvent) AggregateType() string { return e.AggType }

// TenantID returns the organization the event belongs to.
func (e *BaseDomainEvent) TenantID() uuid.UUID { return e.TenantIDValue }

// SchemaVersion treats unset as version 1 so unversioned stored events stay
// readable.
func (e *BaseDomainEvent) SchemaVersion() int {
	if e.Version == 0 {
		return 1
	}
	return e.Version
}
