// Package scheduler runs the background loops: the sync worker pool, the
// cron trigger that enqueues due syncs, the reconciler sweep, and the
// scheduled insights scans.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/truthsource/backend/internal/domain/integration"
	"github.com/truthsource/backend/internal/infrastructure/telemetry"
)

// JobRunner executes one sync job to completion or failure
type JobRunner interface {
	RunJob(ctx context.Context, job *integration.SyncJob) error
}

// SyncSchedulerConfig holds worker pool configuration
type SyncSchedulerConfig struct {
	// Workers is the number of concurrent sync workers
	Workers int
	// JobTimeout is the per-job deadline
	JobTimeout time.Duration
	// QueueCapacity bounds the in-memory job queue
	QueueCapacity int
	// PollInterval is how often queued jobs are fetched from the store
	PollInterval time.Duration
	// HistoryLimit caps the in-memory record of finished jobs
	HistoryLimit int
}

// DefaultSyncSchedulerConfig returns the default worker pool configuration
func DefaultSyncSchedulerConfig() SyncSchedulerConfig {
	return SyncSchedulerConfig{
		Workers:       4,
		JobTimeout:    10 * time.Minute,
		QueueCapacity: 256,
		PollInterval:  5 * time.Second,
		HistoryLimit:  200,
	}
}

// Validate checks the configuration
func (c *SyncSchedulerConfig) Validate() error {
	if c.Workers <= 0 || c.JobTimeout <= 0 || c.QueueCapacity <= 0 ||
		c.PollInterval <= 0 || c.HistoryLimit <= 0 {
		return ErrInvalidConfig
	}
	return nil
}

// JobRecord is the in-memory trace of one finished job run, kept in a ring
// buffer for the sync status endpoint
type JobRecord struct {
	JobID         uuid.UUID
	TenantID      uuid.UUID
	IntegrationID uuid.UUID
	Platform      integration.Platform
	Entity        integration.SyncEntity
	Direction     integration.SyncDirection
	Status        integration.SyncJobStatus
	Error         string
	Duration      time.Duration
	FinishedAt    time.Time
}

// SyncScheduler owns the sync worker pool. A dispatch loop pulls queued jobs
// from the store and feeds them to workers; each worker hands the job to the
// runner under a per-job timeout. Jobs that never make it into the queue stay
// queued in the store and are picked up on a later poll.
type SyncScheduler struct {
	config  SyncSchedulerConfig
	runner  JobRunner
	jobRepo integration.SyncJobRepository
	logger  *zap.Logger

	queue  chan *integration.SyncJob
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	isRunning bool

	// inflight guards against dispatching the same job twice while a
	// worker still holds it
	inflightMu sync.Mutex
	inflight   map[uuid.UUID]struct{}

	historyMu sync.RWMutex
	history   []JobRecord
}

// NewSyncScheduler creates a sync scheduler
func NewSyncScheduler(config SyncSchedulerConfig, runner JobRunner, jobRepo integration.SyncJobRepository, logger *zap.Logger) (*SyncScheduler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &SyncScheduler{
		config:   config,
		runner:   runner,
		jobRepo:  jobRepo,
		logger:   logger,
		queue:    make(chan *integration.SyncJob, config.QueueCapacity),
		inflight: make(map[uuid.UUID]struct{}),
		history:  make([]JobRecord, 0, config.HistoryLimit),
	}, nil
}

// Start launches the workers and the dispatch loop
func (s *SyncScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	for i := 0; i < s.config.Workers; i++ {
		s.wg.Add(1)
		go s.worker(ctx, i)
	}

	s.wg.Add(1)
	go s.dispatchLoop(ctx)

	s.logger.Info("Sync scheduler started",
		zap.Int("workers", s.config.Workers),
		zap.Duration("job_timeout", s.config.JobTimeout),
		zap.Duration("poll_interval", s.config.PollInterval),
	)

	return nil
}

// Stop drains the pool: workers finish their current job, then exit. The
// given context bounds the wait.
func (s *SyncScheduler) Stop(ctx context.Context) error {
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
		s.logger.Info("Sync scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Sync scheduler stop timed out")
		return ctx.Err()
	}
}

// Submit offers a job to the pool without waiting for the next poll. The
// caller must have saved the job already; a full queue is not an error for
// scheduled work since the dispatch loop will find the job later.
func (s *SyncScheduler) Submit(job *integration.SyncJob) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return ErrSchedulerNotRunning
	}
	s.mu.Unlock()

	if !s.markInflight(job.ID) {
		return nil
	}

	select {
	case s.queue <- job:
		return nil
	default:
		s.clearInflight(job.ID)
		return ErrJobQueueFull
	}
}

// History returns the most recent finished jobs, newest first
func (s *SyncScheduler) History(limit int) []JobRecord {
	s.historyMu.RLock()
	defer s.historyMu.RUnlock()

	if limit <= 0 || limit > len(s.history) {
		limit = len(s.history)
	}
	result := make([]JobRecord, limit)
	copy(result, s.history[:limit])
	return result
}

func (s *SyncScheduler) dispatchLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.dispatch(ctx)
		}
	}
}

func (s *SyncScheduler) dispatch(ctx context.Context) {
	free := cap(s.queue) - len(s.queue)
	if free <= 0 {
		return
	}

	jobs, err := s.jobRepo.FindQueued(ctx, free)
	if err != nil {
		s.logger.Warn("Fetching queued sync jobs failed", zap.Error(err))
		return
	}

	for i := range jobs {
		job := jobs[i]
		if !s.markInflight(job.ID) {
			continue
		}
		select {
		case s.queue <- &job:
		default:
			s.clearInflight(job.ID)
			return
		}
	}
}

func (s *SyncScheduler) worker(ctx context.Context, workerID int) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case job := <-s.queue:
			s.process(ctx, job, workerID)
		}
	}
}

// process runs one job. The job context survives scheduler shutdown so an
// in-flight run can drain instead of aborting mid-sync.
func (s *SyncScheduler) process(ctx context.Context, job *integration.SyncJob, workerID int) {
	defer s.clearInflight(job.ID)

	jobCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.JobTimeout)
	defer cancel()

	jobCtx, span := telemetry.StartServiceSpan(jobCtx, "sync", "RunJob",
		telemetry.WithAttribute("tenant_id", job.TenantID.String()),
		telemetry.WithAttribute("platform", string(job.Platform)),
		telemetry.WithAttribute("entity", string(job.Entity)),
		telemetry.WithAttribute("direction", string(job.Direction)),
	)
	defer span.End()

	start := time.Now()
	var runErr error
	labels := telemetry.OperationLabels("sync_run", map[string]string{
		telemetry.ProfilingLabelTenantID: job.TenantID.String(),
		"platform":                       string(job.Platform),
	})
	telemetry.WithProfilingLabels(jobCtx, labels, func(jobCtx context.Context) {
		runErr = s.runner.RunJob(jobCtx, job)
	})
	if runErr != nil {
		telemetry.RecordError(span, runErr)
		s.logger.Error("Sync job run failed",
			zap.Int("worker_id", workerID),
			zap.String("job_id", job.ID.String()),
			zap.String("tenant_id", job.TenantID.String()),
			zap.Error(runErr),
		)
	} else {
		telemetry.SetOK(span)
	}

	s.record(job, time.Since(start))
}

func (s *SyncScheduler) record(job *integration.SyncJob, elapsed time.Duration) {
	rec := JobRecord{
		JobID:         job.ID,
		TenantID:      job.TenantID,
		IntegrationID: job.IntegrationID,
		Platform:      job.Platform,
		Entity:        job.Entity,
		Direction:     job.Direction,
		Status:        job.Status,
		Error:         job.LastError,
		Duration:      elapsed,
		FinishedAt:    time.Now(),
	}

	s.historyMu.Lock()
	defer s.historyMu.Unlock()

	s.history = append([]JobRecord{rec}, s.history...)
	if len(s.history) > s.config.HistoryLimit {
		s.history = s.history[:s.config.HistoryLimit]
	}
}

func (s *SyncScheduler) markInflight(id uuid.UUID) bool {
	s.inflightMu.Lock()
	defer s.inflightMu.Unlock()

	if _, exists := s.inflight[id]; exists {
		return false
	}
	s.inflight[id] = struct{}{}
	return true
}

func (s *SyncScheduler) clearInflight(id uuid.UUID) {
	s.inflightMu.Lock()
	defer s.inflightMu.Unlock()
	delete(s.inflight, id)
}
