package bulk

import (
	"context"

	"github.com/google/uuid"
	"github.com/truthsource/backend/internal/domain/shared"
)

// HistoryRepository defines the interface for import history persistence
type HistoryRepository interface {
	// FindByIDForTenant finds an import by ID within an organization
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*ImportHistory, error)

	// FindAllForTenant lists imports for an organization
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]ImportHistory, error)

	// FindStuckProcessing finds imports left processing after a restart
	FindStuckProcessing(ctx context.Context) ([]ImportHistory, error)

	// Save creates or updates an import history
	Save(ctx context.Context, history *ImportHistory) error

	// CountForTenant counts imports for an organization
	CountForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (int64, error)
}

// OperationRepository defines the interface for the import operation log
type OperationRepository interface {
	// AppendBatch stores a batch of operation-log entries
	AppendBatch(ctx context.Context, ops []ImportOperation) error

	// FindByImportReversed returns an import's log in reverse sequence
	// order, which is the order rollback replays it
	FindByImportReversed(ctx context.Context, tenantID, importID uuid.UUID) ([]ImportOperation, error)

	// NextSequence returns the next sequence number for an import
	NextSequence(ctx context.Context, importID uuid.UUID) (int, error)
}
