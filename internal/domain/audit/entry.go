package audit

import (
	"github.com/google/uuid"
	"github.com/truthsource/backend/internal/domain/shared"
)

// Action is the kind of activity an audit entry records
type Action string

const (
	ActionCreate    Action = "create"
	ActionUpdate    Action = "update"
	ActionDelete    Action = "delete"
	ActionLogin     Action = "login"
	ActionSync      Action = "sync"
	ActionImport    Action = "import"
	ActionRollback  Action = "rollback"
	ActionPriceCalc Action = "price_calc"
)

// IsValid returns true for a known action
func (a Action) IsValid() bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete, ActionLogin,
		ActionSync, ActionImport, ActionRollback, ActionPriceCalc:
		return true
	}
	return false
}

// Entry is one immutable audit-log record. Entries are written append-only
// through the Recorder and never updated.
type Entry struct {
	shared.BaseEntity
	TenantID   uuid.UUID  `gorm:"type:uuid;not null;index:idx_audit_tenant_time,priority:1"`
	ActorID    *uuid.UUID `gorm:"type:uuid;index"` // nil for system actors (sync workers, schedulers)
	Action     Action     `gorm:"type:varchar(20);not null;index"`
	EntityType string     `gorm:"type:varchar(40);not null;index"`
	EntityID   *uuid.UUID `gorm:"type:uuid;index"`
	Before     []byte     `gorm:"type:jsonb"`
	After      []byte     `gorm:"type:jsonb"`
	RequestID  string     `gorm:"type:varchar(64)"`
	IP         string     `gorm:"type:varchar(45)"`
	UserAgent  string     `gorm:"type:varchar(300)"`
}

// TableName returns the table name for GORM
func (Entry) TableName() string {
	return "audit_entries"
}

// NewEntry creates an audit entry
func NewEntry(tenantID uuid.UUID, actorID *uuid.UUID, action Action, entityType string, entityID *uuid.UUID) (*Entry, error) {
	if !action.IsValid() {
		return nil, shared.NewDomainError("INVALID_ACTION", "Unknown audit action")
	}
	if entityType == "" {
		return nil, shared.NewDomainError("INVALID_ENTITY_TYPE", "Entity type cannot be empty")
	}

	return &Entry{
		BaseEntity: shared.NewBaseEntity(),
		TenantID:   tenantID,
		ActorID:    actorID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
	}, nil
}

// WithDiff attaches before/after JSON snapshots
func (e *Entry) WithDiff(before, after []byte) *Entry {
	e.Before = before
	e.After = after
	return e
}

// WithRequestContext attaches HTTP request metadata
func (e *Entry) WithRequestContext(requestID, ip, userAgent string) *Entry {
	e.RequestID = requestID
	e.IP = ip
	if len(userAgent) > 300 {
		userAgent = userAgent[:300]
	}
	e.UserAgent = userAgent
	return e
}
