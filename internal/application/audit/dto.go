package audit

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/truthsource/backend/internal/domain/audit"
)

// ListInput filters an audit-log listing
type ListInput struct {
	OrgID      uuid.UUID
	ActorID    *uuid.UUID
	Action     *audit.Action
	EntityType string
	EntityID   *uuid.UUID
	From       *time.Time
	To         *time.Time
}

// EntryInfo is the audit entry data returned to the API layer
type EntryInfo struct {
	ID         uuid.UUID       `json:"id"`
	ActorID    *uuid.UUID      `json:"actor_id,omitempty"`
	Action     audit.Action    `json:"action"`
	EntityType string          `json:"entity_type"`
	EntityID   *uuid.UUID      `json:"entity_id,omitempty"`
	Before     json.RawMessage `json:"before,omitempty"`
	After      json.RawMessage `json:"after,omitempty"`
	RequestID  string          `json:"request_id,omitempty"`
	IP         string          `json:"ip,omitempty"`
	UserAgent  string          `json:"user_agent,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

func toEntryInfo(e *audit.Entry) EntryInfo {
	return EntryInfo{
		ID:         e.ID,
		ActorID:    e.ActorID,
		Action:     e.Action,
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		Before:     json.RawMessage(e.Before),
		After:      json.RawMessage(e.After),
		RequestID:  e.RequestID,
		IP:         e.IP,
		UserAgent:  e.UserAgent,
		CreatedAt:  e.CreatedAt,
	}
}
