package bulk

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/truthsource/backend/internal/domain/shared"
)

// ImportEntityType represents the type of entity being imported
type ImportEntityType string

const (
	ImportEntityProducts     ImportEntityType = "products"
	ImportEntityInventory    ImportEntityType = "inventory"
	ImportEntityPricingRules ImportEntityType = "pricing_rules"
	ImportEntityCustomers    ImportEntityType = "customers"
)

// IsValid checks if the entity type is valid
func (e ImportEntityType) IsValid() bool {
	switch e {
	case ImportEntityProducts, ImportEntityInventory, ImportEntityPricingRules, ImportEntityCustomers:
		return true
	}
	return false
}

// ImportStatus represents the status of an import
type ImportStatus string

const (
	ImportStatusPending    ImportStatus = "pending"
	ImportStatusProcessing ImportStatus = "processing"
	ImportStatusCompleted  ImportStatus = "completed"
	ImportStatusFailed     ImportStatus = "failed"
	ImportStatusCancelled  ImportStatus = "cancelled"
	ImportStatusRolledBack ImportStatus = "rolled_back"
)

// IsTerminal returns true if this is a terminal state
func (s ImportStatus) IsTerminal() bool {
	switch s {
	case ImportStatusCompleted, ImportStatusFailed, ImportStatusCancelled, ImportStatusRolledBack:
		return true
	}
	return false
}

// ConflictMode defines how rows matching existing records are handled
type ConflictMode string

const (
	ConflictModeSkip   ConflictMode = "skip"
	ConflictModeUpdate ConflictMode = "update"
	ConflictModeFail   ConflictMode = "fail"
)

// IsValid checks if the conflict mode is valid
func (c ConflictMode) IsValid() bool {
	switch c {
	case ConflictModeSkip, ConflictModeUpdate, ConflictModeFail:
		return true
	}
	return false
}

// Row error details are capped so a garbage file can't bloat the row
const MaxErrorDetails = 100

// ImportErrorDetail is one row-level validation or apply error
type ImportErrorDetail struct {
	Row     int    `json:"row"`
	Column  string `json:"column,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

// ImportHistory tracks one CSV import from upload through completion and,
// optionally, rollback.
type ImportHistory struct {
	shared.TenantAggregateRoot
	EntityType     ImportEntityType    `gorm:"type:varchar(30);not null;index"`
	FileName       string              `gorm:"type:varchar(300);not null"`
	FileSize       int64               `gorm:"not null;default:0"`
	StorageKey     string              `gorm:"type:varchar(500)"` // archived copy, imports/{tenant}/{id}.csv
	TotalRows      int                 `gorm:"not null;default:0"`
	SuccessRows    int                 `gorm:"not null;default:0"`
	ErrorRows      int                 `gorm:"not null;default:0"`
	SkippedRows    int                 `gorm:"not null;default:0"`
	UpdatedRows    int                 `gorm:"not null;default:0"`
	RolledBackRows int                 `gorm:"not null;default:0"`
	ConflictMode   ConflictMode        `gorm:"type:varchar(10);not null"`
	Status         ImportStatus        `gorm:"type:varchar(20);not null;default:'pending';index"`
	ErrorDetails   []ImportErrorDetail `gorm:"serializer:json"`
	StartedAt      *time.Time          ``
	CompletedAt    *time.Time          ``
	RolledBackAt   *time.Time          ``
}

// TableName returns the table name for GORM
func (ImportHistory) TableName() string {
	return "import_histories"
}

// NewImportHistory creates a pending import record
func NewImportHistory(tenantID uuid.UUID, entityType ImportEntityType, fileName string, fileSize int64, conflictMode ConflictMode, importedBy uuid.UUID) (*ImportHistory, error) {
	if !entityType.IsValid() {
		return nil, shared.NewDomainError("INVALID_ENTITY_TYPE", fmt.Sprintf("Invalid entity type: %s", entityType))
	}
	if fileName == "" {
		return nil, shared.NewDomainError("INVALID_FILE_NAME", "File name cannot be empty")
	}
	if fileSize < 0 {
		return nil, shared.NewDomainError("INVALID_FILE_SIZE", "File size cannot be negative")
	}
	if !conflictMode.IsValid() {
		return nil, shared.NewDomainError("INVALID_CONFLICT_MODE", fmt.Sprintf("Invalid conflict mode: %s", conflictMode))
	}

	return &ImportHistory{
		TenantAggregateRoot: shared.NewTenantAggregateRootWithCreator(tenantID, importedBy),
		EntityType:          entityType,
		FileName:            fileName,
		FileSize:            fileSize,
		ConflictMode:        conflictMode,
		Status:              ImportStatusPending,
		ErrorDetails:        make([]ImportErrorDetail, 0),
	}, nil
}

// SetStorageKey records where the uploaded file was archived
func (h *ImportHistory) SetStorageKey(key string) {
	h.StorageKey = key
	h.Touch()
}

// StartProcessing marks the import as started
func (h *ImportHistory) StartProcessing(totalRows int) error {
	if h.Status != ImportStatusPending {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot start processing from state: %s", h.Status))
	}
	if totalRows < 0 {
		return shared.NewDomainError("INVALID_TOTAL_ROWS", "Total rows cannot be negative")
	}

	now := time.Now()
	h.Status = ImportStatusProcessing
	h.TotalRows = totalRows
	h.StartedAt = &now
	h.Touch()
	h.IncrementVersion()

	return nil
}

// Complete finishes the import. All rows erroring with nothing applied marks
// it failed rather than completed.
func (h *ImportHistory) Complete(successRows, errorRows, skippedRows, updatedRows int, errors []ImportErrorDetail) error {
	if h.Status != ImportStatusProcessing {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot complete from state: %s", h.Status))
	}

	status := ImportStatusCompleted
	if errorRows > 0 && successRows == 0 && updatedRows == 0 {
		status = ImportStatusFailed
	}

	if len(errors) > MaxErrorDetails {
		errors = errors[:MaxErrorDetails]
	}

	now := time.Now()
	h.Status = status
	h.SuccessRows = successRows
	h.ErrorRows = errorRows
	h.SkippedRows = skippedRows
	h.UpdatedRows = updatedRows
	h.ErrorDetails = errors
	h.CompletedAt = &now
	h.Touch()
	h.IncrementVersion()

	if status == ImportStatusCompleted {
		h.AddDomainEvent(NewImportCompletedEvent(h))
	}

	return nil
}

// Fail marks the import as failed
func (h *ImportHistory) Fail(errors []ImportErrorDetail) error {
	if h.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot fail from terminal state: %s", h.Status))
	}

	if len(errors) > MaxErrorDetails {
		errors = errors[:MaxErrorDetails]
	}

	now := time.Now()
	h.Status = ImportStatusFailed
	h.ErrorDetails = errors
	h.CompletedAt = &now
	h.Touch()
	h.IncrementVersion()

	return nil
}

// Cancel marks the import as cancelled
func (h *ImportHistory) Cancel() error {
	if h.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot cancel from terminal state: %s", h.Status))
	}

	now := time.Now()
	h.Status = ImportStatusCancelled
	h.CompletedAt = &now
	h.Touch()
	h.IncrementVersion()

	return nil
}

// CanRollBack reports whether a rollback may start. A processing import must
// finish first and a rolled-back import stays rolled back.
func (h *ImportHistory) CanRollBack() bool {
	return h.Status == ImportStatusCompleted
}

// RollBack records a completed rollback with the number of reverted rows
func (h *ImportHistory) RollBack(rolledBackRows int) error {
	if h.Status == ImportStatusRolledBack {
		// idempotent: a second rollback is a no-op
		return nil
	}
	if !h.CanRollBack() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot roll back from state: %s", h.Status))
	}

	now := time.Now()
	h.Status = ImportStatusRolledBack
	h.RolledBackRows = rolledBackRows
	h.RolledBackAt = &now
	h.Touch()
	h.IncrementVersion()

	h.AddDomainEvent(NewImportRolledBackEvent(h))

	return nil
}

// SuccessRate returns the applied-row share as a percentage
func (h *ImportHistory) SuccessRate() float64 {
	if h.TotalRows == 0 {
		return 0
	}
	return float64(h.SuccessRows+h.UpdatedRows) / float64(h.TotalRows) * 100
}

// Duration returns how long the import ran
func (h *ImportHistory) Duration() time.Duration {
	if h.StartedAt == nil {
		return 0
	}
	end := time.Now()
	if h.CompletedAt != nil {
		end = *h.CompletedAt
	}
	return end.Sub(*h.StartedAt)
}

// ErrorDetailsJSON returns the error details as a JSON string
func (h *ImportHistory) ErrorDetailsJSON() (string, error) {
	if len(h.ErrorDetails) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(h.ErrorDetails)
	if err != nil {
		return "", fmt.Errorf("failed to marshal error details: %w", err)
	}
	return string(data), nil
}
