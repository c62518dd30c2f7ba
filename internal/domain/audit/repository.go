package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/truthsource/backend/internal/domain/shared"
)

// Query filters an audit-log listing
type Query struct {
	ActorID    *uuid.UUID
	Action     *Action
	EntityType string
	EntityID   *uuid.UUID
	From       *time.Time
	To         *time.Time
}

// Repository defines the interface for audit entry persistence
type Repository interface {
	// SaveBatch appends a batch of entries
	SaveBatch(ctx context.Context, entries []Entry) error

	// FindForTenant queries entries for an organization, newest first
	FindForTenant(ctx context.Context, tenantID uuid.UUID, query Query, filter shared.Filter) ([]Entry, error)

	// CountForTenant counts entries matching a query
	CountForTenant(ctx context.Context, tenantID uuid.UUID, query Query) (int64, error)

	// DeleteOlderThan removes entries past the retention window
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
