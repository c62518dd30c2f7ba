package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// AuditPruner deletes audit entries past the retention window
type AuditPruner interface {
	Prune(ctx context.Context, retention time.Duration) (int64, error)
}

// AlertPruner deletes resolved alerts past the retention window
type AlertPruner interface {
	PruneResolved(ctx context.Context, retention time.Duration) (int64, error)
}

// RetentionConfig holds retention sweep configuration
type RetentionConfig struct {
	// Interval is the sweep cadence
	Interval time.Duration
	// AuditRetention is how long audit entries are kept
	AuditRetention time.Duration
	// AlertRetention is how long resolved alerts are kept
	AlertRetention time.Duration
}

// DefaultRetentionConfig returns the default retention configuration
func DefaultRetentionConfig() RetentionConfig {
	return RetentionConfig{
		Interval:       24 * time.Hour,
		AuditRetention: 180 * 24 * time.Hour,
		AlertRetention: 30 * 24 * time.Hour,
	}
}

// RetentionSweeper periodically deletes aged audit entries and resolved
// alerts so both tables stay bounded.
type RetentionSweeper struct {
	config RetentionConfig
	audit  AuditPruner
	alerts AlertPruner
	logger *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	isRunning bool
}

// NewRetentionSweeper creates a retention sweeper
func NewRetentionSweeper(config RetentionConfig, audit AuditPruner, alerts AlertPruner, logger *zap.Logger) *RetentionSweeper {
	return &RetentionSweeper{
		config: config,
		audit:  audit,
		alerts: alerts,
		logger: logger,
	}
}

// Start launches the sweep loop
func (s *RetentionSweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.runLoop(ctx)

	s.logger.Info("Retention sweeper started",
		zap.Duration("interval", s.config.Interval),
		zap.Duration("audit_retention", s.config.AuditRetention),
	)
	return nil
}

// Stop stops the sweep loop
func (s *RetentionSweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Retention sweeper stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *RetentionSweeper) runLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one retention pass
func (s *RetentionSweeper) Sweep(ctx context.Context) {
	if s.audit != nil {
		deleted, err := s.audit.Prune(ctx, s.config.AuditRetention)
		if err != nil {
			s.logger.Warn("Audit retention sweep failed", zap.Error(err))
		} else if deleted > 0 {
			s.logger.Info("Pruned audit entries", zap.Int64("count", deleted))
		}
	}

	if s.alerts != nil {
		deleted, err := s.alerts.PruneResolved(ctx, s.config.AlertRetention)
		if err != nil {
			s.logger.Warn("Alert retention sweep failed", zap.Error(err))
		} else if deleted > 0 {
			s.logger.Info("Pruned resolved alerts", zap.Int64("count", deleted))
		}
	}
}
