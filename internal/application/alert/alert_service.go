package alert

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/truthsource/backend/internal/domain/alert"
	"github.com/truthsource/backend/internal/domain/shared"
)

// Service manages the alert review lifecycle
type Service struct {
	alertRepo alert.Repository
	logger    *zap.Logger
}

// NewService creates a new alert service
func NewService(alertRepo alert.Repository, logger *zap.Logger) *Service {
	return &Service{
		alertRepo: alertRepo,
		logger:    logger,
	}
}

// List returns alerts for an organization, optionally filtered by type and status
func (s *Service) List(ctx context.Context, orgID uuid.UUID, alertType *alert.Type, status *alert.Status, filter shared.Filter) ([]Info, error) {
	alerts, err := s.alertRepo.FindAllForTenant(ctx, orgID, alertType, status, filter)
	if err != nil {
		s.logger.Error("Failed to list alerts", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to list alerts")
	}

	infos := make([]Info, 0, len(alerts))
	for i := range alerts {
		infos = append(infos, toInfo(&alerts[i]))
	}
	return infos, nil
}

// Get returns a single alert
func (s *Service) Get(ctx context.Context, orgID, alertID uuid.UUID) (*Info, error) {
	a, err := s.find(ctx, orgID, alertID)
	if err != nil {
		return nil, err
	}
	info := toInfo(a)
	return &info, nil
}

// Acknowledge marks an alert as seen by a user
func (s *Service) Acknowledge(ctx context.Context, orgID, alertID, userID uuid.UUID) error {
	return s.mutate(ctx, orgID, alertID, func(a *alert.Alert) error {
		return a.Acknowledge(userID)
	})
}

// Resolve closes an alert
func (s *Service) Resolve(ctx context.Context, orgID, alertID uuid.UUID) error {
	return s.mutate(ctx, orgID, alertID, func(a *alert.Alert) error {
		return a.Resolve()
	})
}

// CountOpen returns the number of open alerts for the dashboard badge
func (s *Service) CountOpen(ctx context.Context, orgID uuid.UUID) (int64, error) {
	return s.alertRepo.CountOpenForTenant(ctx, orgID)
}

// PruneResolved deletes resolved alerts older than the retention window
func (s *Service) PruneResolved(ctx context.Context, retention time.Duration) (int64, error) {
	deleted, err := s.alertRepo.DeleteResolvedBefore(ctx, time.Now().Add(-retention))
	if err != nil {
		s.logger.Error("Failed to prune resolved alerts", zap.Error(err))
		return 0, err
	}
	if deleted > 0 {
		s.logger.Info("Pruned resolved alerts", zap.Int64("deleted", deleted))
	}
	return deleted, nil
}

func (s *Service) find(ctx context.Context, orgID, alertID uuid.UUID) (*alert.Alert, error) {
	a, err := s.alertRepo.FindByIDForTenant(ctx, orgID, alertID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("ALERT_NOT_FOUND", "Alert not found")
		}
		s.logger.Error("Failed to find alert", zap.Error(err), zap.String("alert_id", alertID.String()))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to find alert")
	}
	return a, nil
}

func (s *Service) mutate(ctx context.Context, orgID, alertID uuid.UUID, fn func(*alert.Alert) error) error {
	a, err := s.find(ctx, orgID, alertID)
	if err != nil {
		return err
	}
	if err := fn(a); err != nil {
		return err
	}
	if err := s.alertRepo.Save(ctx, a); err != nil {
		s.logger.Error("Failed to save alert", zap.Error(err), zap.String("alert_id", alertID.String()))
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to save alert")
	}
	return nil
}
