package importapp

import (
	"time"

	"github.com/google/uuid"

	"github.com/truthsource/backend/internal/domain/bulk"
)

// RunImportInput contains an uploaded CSV and how to apply it
type RunImportInput struct {
	OrgID        uuid.UUID
	UserID       uuid.UUID
	EntityType   bulk.ImportEntityType
	FileName     string
	ConflictMode bulk.ConflictMode
	Data         []byte
}

// HistoryInfo contains import history information returned by the API
type HistoryInfo struct {
	ID             uuid.UUID
	OrgID          uuid.UUID
	EntityType     bulk.ImportEntityType
	FileName       string
	FileSize       int64
	TotalRows      int
	SuccessRows    int
	ErrorRows      int
	SkippedRows    int
	UpdatedRows    int
	RolledBackRows int
	ConflictMode   bulk.ConflictMode
	Status         bulk.ImportStatus
	ErrorDetails   []bulk.ImportErrorDetail
	SuccessRate    float64
	StartedAt      *time.Time
	CompletedAt    *time.Time
	RolledBackAt   *time.Time
	CreatedAt      time.Time
}

// RollbackResult reports what a rollback reverted
type RollbackResult struct {
	ImportID       uuid.UUID
	RolledBackRows int
	AlreadyRolled  bool
}

func toHistoryInfo(h *bulk.ImportHistory) HistoryInfo {
	return HistoryInfo{
		ID:             h.ID,
		OrgID:          h.TenantID,
		EntityType:     h.EntityType,
		FileName:       h.FileName,
		FileSize:       h.FileSize,
		TotalRows:      h.TotalRows,
		SuccessRows:    h.SuccessRows,
		ErrorRows:      h.ErrorRows,
		SkippedRows:    h.SkippedRows,
		UpdatedRows:    h.UpdatedRows,
		RolledBackRows: h.RolledBackRows,
		ConflictMode:   h.ConflictMode,
		Status:         h.Status,
		ErrorDetails:   h.ErrorDetails,
		SuccessRate:    h.SuccessRate(),
		StartedAt:      h.StartedAt,
		CompletedAt:    h.CompletedAt,
		RolledBackAt:   h.RolledBackAt,
		CreatedAt:      h.CreatedAt,
	}
}
