package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/truthsource/backend/internal/domain/integration"
)

// SyncCronTriggerConfig holds configuration for the scheduled sync trigger
type SyncCronTriggerConfig struct {
	// CheckInterval is how often active integrations are scanned
	CheckInterval time.Duration
	// OrderLookback bounds the order pull window on an integration's
	// first sync
	OrderLookback time.Duration
}

// DefaultSyncCronTriggerConfig returns the default trigger configuration
func DefaultSyncCronTriggerConfig() SyncCronTriggerConfig {
	return SyncCronTriggerConfig{
		CheckInterval: time.Minute,
		OrderLookback: 24 * time.Hour,
	}
}

// SyncCronTrigger scans active integrations and enqueues pull jobs for every
// entity whose sync interval has elapsed. Duplicate work is avoided by the
// pending-job check, so overlapping scans are harmless.
type SyncCronTrigger struct {
	config       SyncCronTriggerConfig
	integrations integration.Repository
	jobs         integration.SyncJobRepository
	scheduler    *SyncScheduler
	logger       *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	isRunning bool
}

// NewSyncCronTrigger creates a sync cron trigger
func NewSyncCronTrigger(
	config SyncCronTriggerConfig,
	integrations integration.Repository,
	jobs integration.SyncJobRepository,
	scheduler *SyncScheduler,
	logger *zap.Logger,
) *SyncCronTrigger {
	return &SyncCronTrigger{
		config:       config,
		integrations: integrations,
		jobs:         jobs,
		scheduler:    scheduler,
		logger:       logger,
	}
}

// Start launches the scan loop
func (c *SyncCronTrigger) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = true
	c.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	c.wg.Add(1)
	go c.runLoop(ctx)

	c.logger.Info("Sync cron trigger started",
		zap.Duration("check_interval", c.config.CheckInterval),
	)

	return nil
}

// Stop stops the scan loop
func (c *SyncCronTrigger) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = false
	c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.logger.Info("Sync cron trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *SyncCronTrigger) runLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.scan(ctx)
		}
	}
}

func (c *SyncCronTrigger) scan(ctx context.Context) {
	integs, err := c.integrations.FindAllActive(ctx)
	if err != nil {
		c.logger.Warn("Scanning active integrations failed", zap.Error(err))
		return
	}

	now := time.Now()
	entities := []integration.SyncEntity{
		integration.SyncEntityProducts,
		integration.SyncEntityInventory,
		integration.SyncEntityOrders,
	}

	for i := range integs {
		integ := &integs[i]
		for _, entity := range entities {
			if !integ.SyncDue(entity, now) {
				continue
			}
			if err := c.enqueue(ctx, integ, entity, now); err != nil {
				c.logger.Warn("Enqueueing scheduled sync failed",
					zap.String("integration_id", integ.ID.String()),
					zap.String("entity", string(entity)),
					zap.Error(err),
				)
			}
		}
	}
}

func (c *SyncCronTrigger) enqueue(ctx context.Context, integ *integration.Integration, entity integration.SyncEntity, now time.Time) error {
	pending, err := c.jobs.HasPending(ctx, integ.ID, entity)
	if err != nil {
		return err
	}
	if pending {
		return nil
	}

	job, err := integration.NewSyncJob(integ.TenantID, integ, integration.SyncDirectionPull, entity, integration.SyncTriggerScheduled)
	if err != nil {
		return err
	}

	if entity == integration.SyncEntityOrders {
		start := now.Add(-c.config.OrderLookback)
		if integ.LastOrderSyncAt != nil {
			start = *integ.LastOrderSyncAt
		}
		if err := job.SetWindow(start, now); err != nil {
			return err
		}
	}

	if err := c.jobs.Save(ctx, job); err != nil {
		return err
	}

	c.logger.Debug("Scheduled sync enqueued",
		zap.String("job_id", job.ID.String()),
		zap.String("integration_id", integ.ID.String()),
		zap.String("entity", string(entity)),
	)

	// Best effort; a full queue just means the dispatch loop picks the
	// saved job up on a later poll.
	if c.scheduler != nil {
		_ = c.scheduler.Submit(job)
	}
	return nil
}
