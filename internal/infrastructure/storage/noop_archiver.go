package storage

import (
	"context"

	"github.com/google/uuid"

	importapp "github.com/truthsource/backend/internal/application/import"
)

// NoopArchiver is used when object storage is disabled. Imports proceed
// without an archived copy.
type NoopArchiver struct{}

// NewNoopArchiver creates a no-op archiver
func NewNoopArchiver() *NoopArchiver {
	return &NoopArchiver{}
}

// ArchiveImport discards the file and returns an empty storage key
func (a *NoopArchiver) ArchiveImport(ctx context.Context, orgID, importID uuid.UUID, fileName string, data []byte) (string, error) {
	return "", nil
}

var _ importapp.FileArchiver = (*NoopArchiver)(nil)
