package bulk

import (
	"github.com/google/uuid"
	"github.com/truthsource/backend/internal/domain/shared"
)

// OperationType is the kind of change an import applied to one entity
type OperationType string

const (
	OperationCreate OperationType = "create"
	OperationUpdate OperationType = "update"
)

// ImportOperation is one entry in an import's operation log. Rollback replays
// the log in reverse sequence: creates are undone by delete (or archive when
// the entity is referenced), updates by restoring the before-values.
type ImportOperation struct {
	shared.BaseEntity
	TenantID   uuid.UUID     `gorm:"type:uuid;not null;index"`
	ImportID   uuid.UUID     `gorm:"type:uuid;not null;uniqueIndex:idx_import_op_seq,priority:1"`
	Sequence   int           `gorm:"not null;uniqueIndex:idx_import_op_seq,priority:2"`
	EntityType string        `gorm:"type:varchar(30);not null"`
	EntityID   uuid.UUID     `gorm:"type:uuid;not null;index"`
	Operation  OperationType `gorm:"type:varchar(10);not null"`
	// Before and After hold only the fields the row touched, as JSON
	Before []byte `gorm:"type:jsonb"`
	After  []byte `gorm:"type:jsonb"`
}

// TableName returns the table name for GORM
func (ImportOperation) TableName() string {
	return "import_operations"
}

// NewImportOperation appends an entry to an import's operation log
func NewImportOperation(tenantID, importID uuid.UUID, sequence int, entityType string, entityID uuid.UUID, op OperationType, before, after []byte) (*ImportOperation, error) {
	if op != OperationCreate && op != OperationUpdate {
		return nil, shared.NewDomainError("INVALID_OPERATION", "Operation must be create or update")
	}
	if sequence < 1 {
		return nil, shared.NewDomainError("INVALID_SEQUENCE", "Sequence must be positive")
	}
	if op == OperationUpdate && len(before) == 0 {
		return nil, shared.NewDomainError("MISSING_BEFORE", "Update operations must record before-values")
	}

	return &ImportOperation{
		BaseEntity: shared.NewBaseEntity(),
		TenantID:   tenantID,
		ImportID:   importID,
		Sequence:   sequence,
		EntityType: entityType,
		EntityID:   entityID,
		Operation:  op,
		Before:     before,
		After:      after,
	}, nil
}
