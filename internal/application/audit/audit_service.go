package audit

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/truthsource/backend/internal/domain/audit"
	"github.com/truthsource/backend/internal/domain/shared"
)

// Service reads the audit log. Writes go through the audit.Recorder port
// instead, so request handling never waits on the log.
type Service struct {
	auditRepo audit.Repository
	logger    *zap.Logger
}

// NewService creates a new audit query service
func NewService(auditRepo audit.Repository, logger *zap.Logger) *Service {
	return &Service{
		auditRepo: auditRepo,
		logger:    logger,
	}
}

// List returns audit entries for an organization, newest first
func (s *Service) List(ctx context.Context, input ListInput, filter shared.Filter) (*shared.Paginated[EntryInfo], error) {
	if input.From != nil && input.To != nil && input.To.Before(*input.From) {
		return nil, shared.NewDomainError("INVALID_RANGE", "Time range end must not precede its start")
	}

	query := audit.Query{
		ActorID:    input.ActorID,
		Action:     input.Action,
		EntityType: input.EntityType,
		EntityID:   input.EntityID,
		From:       input.From,
		To:         input.To,
	}

	entries, err := s.auditRepo.FindForTenant(ctx, input.OrgID, query, filter)
	if err != nil {
		s.logger.Error("Failed to list audit entries", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to list audit entries")
	}
	total, err := s.auditRepo.CountForTenant(ctx, input.OrgID, query)
	if err != nil {
		s.logger.Error("Failed to count audit entries", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to count audit entries")
	}

	infos := make([]EntryInfo, 0, len(entries))
	for i := range entries {
		infos = append(infos, toEntryInfo(&entries[i]))
	}
	result := shared.NewPaginated(infos, total, filter.Page, filter.PageSize)
	return &result, nil
}

// Prune deletes entries older than the retention window
func (s *Service) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	deleted, err := s.auditRepo.DeleteOlderThan(ctx, time.Now().Add(-retention))
	if err != nil {
		s.logger.Error("Failed to prune audit entries", zap.Error(err))
		return 0, err
	}
	if deleted > 0 {
		s.logger.Info("Pruned audit entries", zap.Int64("deleted", deleted))
	}
	return deleted, nil
}
