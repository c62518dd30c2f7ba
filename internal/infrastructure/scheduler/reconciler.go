package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/truthsource/backend/internal/domain/integration"
)

// WebhookSweeper retries and prunes stored webhook events
type WebhookSweeper interface {
	RetryFailed(ctx context.Context, limit int) (int, error)
	PruneProcessed(ctx context.Context, retention time.Duration) (int64, error)
}

// ImportSweeper fails imports abandoned mid-run
type ImportSweeper interface {
	CancelStuck(ctx context.Context) (int, error)
}

// ReconcilerConfig holds sweep configuration
type ReconcilerConfig struct {
	// Interval is the sweep cadence
	Interval time.Duration
	// JobTimeout mirrors the worker pool deadline; running jobs older
	// than twice this are considered lost
	JobTimeout time.Duration
	// RetryBaseDelay seeds the backoff for jobs failed by the sweep
	RetryBaseDelay time.Duration
	// RetryBatch bounds retry-due jobs requeued per sweep
	RetryBatch int
	// WebhookRetryBatch bounds webhook events retried per sweep
	WebhookRetryBatch int
	// WebhookRetention is how long processed webhook events are kept
	WebhookRetention time.Duration
}

// DefaultReconcilerConfig returns the default sweep configuration
func DefaultReconcilerConfig() ReconcilerConfig {
	return ReconcilerConfig{
		Interval:          10 * time.Minute,
		JobTimeout:        10 * time.Minute,
		RetryBaseDelay:    time.Minute,
		RetryBatch:        50,
		WebhookRetryBatch: 50,
		WebhookRetention:  7 * 24 * time.Hour,
	}
}

// Reconciler periodically repairs background state: failed sync jobs whose
// retry time arrived go back in the queue, running jobs whose worker died
// are failed so they can retry, failed webhook events get another delivery
// attempt, old processed events are pruned, and imports stuck in processing
// are cancelled.
type Reconciler struct {
	config   ReconcilerConfig
	jobs     integration.SyncJobRepository
	webhooks WebhookSweeper
	imports  ImportSweeper
	logger   *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	isRunning bool
}

// NewReconciler creates a reconciler
func NewReconciler(
	config ReconcilerConfig,
	jobs integration.SyncJobRepository,
	webhooks WebhookSweeper,
	imports ImportSweeper,
	logger *zap.Logger,
) *Reconciler {
	return &Reconciler{
		config:   config,
		jobs:     jobs,
		webhooks: webhooks,
		imports:  imports,
		logger:   logger,
	}
}

// Start launches the sweep loop
func (r *Reconciler) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.isRunning {
		r.mu.Unlock()
		return nil
	}
	r.isRunning = true
	r.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	r.wg.Add(1)
	go r.runLoop(ctx)

	r.logger.Info("Reconciler started", zap.Duration("interval", r.config.Interval))
	return nil
}

// Stop stops the sweep loop
func (r *Reconciler) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.isRunning {
		r.mu.Unlock()
		return nil
	}
	r.isRunning = false
	r.mu.Unlock()

	if r.cancel != nil {
		r.cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("Reconciler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Reconciler) runLoop(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

func (r *Reconciler) sweep(ctx context.Context) {
	now := time.Now()

	r.requeueRetryDue(ctx, now)
	r.failStaleRunning(ctx, now)
	r.sweepWebhooks(ctx)
	r.cancelStuckImports(ctx)
}

func (r *Reconciler) requeueRetryDue(ctx context.Context, now time.Time) {
	due, err := r.jobs.FindRetryDue(ctx, now, r.config.RetryBatch)
	if err != nil {
		r.logger.Warn("Fetching retry-due sync jobs failed", zap.Error(err))
		return
	}

	requeued := 0
	for i := range due {
		job := &due[i]
		if err := job.Requeue(); err != nil {
			continue
		}
		if err := r.jobs.Save(ctx, job); err != nil {
			r.logger.Warn("Requeueing sync job failed",
				zap.String("job_id", job.ID.String()),
				zap.Error(err),
			)
			continue
		}
		requeued++
	}

	if requeued > 0 {
		r.logger.Info("Requeued retry-due sync jobs", zap.Int("count", requeued))
	}
}

func (r *Reconciler) failStaleRunning(ctx context.Context, now time.Time) {
	cutoff := now.Add(-2 * r.config.JobTimeout)
	stale, err := r.jobs.FindStaleRunning(ctx, cutoff)
	if err != nil {
		r.logger.Warn("Fetching stale running sync jobs failed", zap.Error(err))
		return
	}

	for i := range stale {
		job := &stale[i]
		if err := job.Fail("worker lost before the job finished", r.config.RetryBaseDelay); err != nil {
			continue
		}
		if err := r.jobs.Save(ctx, job); err != nil {
			r.logger.Warn("Failing stale sync job failed",
				zap.String("job_id", job.ID.String()),
				zap.Error(err),
			)
			continue
		}
		r.logger.Warn("Failed stale running sync job",
			zap.String("job_id", job.ID.String()),
			zap.String("tenant_id", job.TenantID.String()),
		)
	}
}

func (r *Reconciler) sweepWebhooks(ctx context.Context) {
	if r.webhooks == nil {
		return
	}

	retried, err := r.webhooks.RetryFailed(ctx, r.config.WebhookRetryBatch)
	if err != nil {
		r.logger.Warn("Retrying failed webhook events failed", zap.Error(err))
	} else if retried > 0 {
		r.logger.Info("Retried failed webhook events", zap.Int("count", retried))
	}

	pruned, err := r.webhooks.PruneProcessed(ctx, r.config.WebhookRetention)
	if err != nil {
		r.logger.Warn("Pruning processed webhook events failed", zap.Error(err))
	} else if pruned > 0 {
		r.logger.Info("Pruned processed webhook events", zap.Int64("count", pruned))
	}
}

func (r *Reconciler) cancelStuckImports(ctx context.Context) {
	if r.imports == nil {
		return
	}

	cancelled, err := r.imports.CancelStuck(ctx)
	if err != nil {
		r.logger.Warn("Cancelling stuck imports failed", zap.Error(err))
		return
	}
	if cancelled > 0 {
		r.logger.Info("Cancelled stuck imports", zap.Int("count", cancelled))
	}
}
