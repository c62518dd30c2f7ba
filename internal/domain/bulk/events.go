package bulk

import (
	"github.com/google/uuid"
	"github.com/truthsource/backend/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeImport = "ImportHistory"

// Event type constants
const (
	EventTypeImportCompleted  = "ImportCompleted"
	EventTypeImportRolledBack = "ImportRolledBack"
)

// ImportCompletedEvent is published when an import finishes applying rows
type ImportCompletedEvent struct {
	shared.BaseDomainEvent
	ImportID    uuid.UUID        `json:"import_id"`
	EntityType  ImportEntityType `json:"entity_type"`
	FileName    string           `json:"file_name"`
	TotalRows   int              `json:"total_rows"`
	SuccessRows int              `json:"success_rows"`
	UpdatedRows int              `json:"updated_rows"`
	ErrorRows   int              `json:"error_rows"`
	SkippedRows int              `json:"skipped_rows"`
}

// NewImportCompletedEvent creates a new ImportCompletedEvent
func NewImportCompletedEvent(h *ImportHistory) *ImportCompletedEvent {
	return &ImportCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeImportCompleted, AggregateTypeImport, h.ID, h.TenantID),
		ImportID:        h.ID,
		EntityType:      h.EntityType,
		FileName:        h.FileName,
		TotalRows:       h.TotalRows,
		SuccessRows:     h.SuccessRows,
		UpdatedRows:     h.UpdatedRows,
		ErrorRows:       h.ErrorRows,
		SkippedRows:     h.SkippedRows,
	}
}

// ImportRolledBackEvent is published when an import's changes are reverted
type ImportRolledBackEvent struct {
	shared.BaseDomainEvent
	ImportID       uuid.UUID        `json:"import_id"`
	EntityType     ImportEntityType `json:"entity_type"`
	RolledBackRows int              `json:"rolled_back_rows"`
}

// NewImportRolledBackEvent creates a new ImportRolledBackEvent
func NewImportRolledBackEvent(h *ImportHistory) *ImportRolledBackEvent {
	return &ImportRolledBackEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeImportRolledBack, AggregateTypeImport, h.ID, h.TenantID),
		ImportID:        h.ID,
		EntityType:      h.EntityType,
		RolledBackRows:  h.RolledBackRows,
	}
}
