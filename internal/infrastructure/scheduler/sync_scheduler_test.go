package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/truthsource/backend/internal/domain/integration"
	"github.com/truthsource/backend/internal/domain/shared"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeJobRunner records the jobs it ran and optionally blocks until released
type fakeJobRunner struct {
	mu      sync.Mutex
	started int
	ran     map[uuid.UUID]int
	block   chan struct{}
	err     error
	repo    *fakeSyncJobRepo
}

func newFakeJobRunner() *fakeJobRunner {
	return &fakeJobRunner{ran: make(map[uuid.UUID]int)}
}

func (r *fakeJobRunner) RunJob(ctx context.Context, job *integration.SyncJob) error {
	r.mu.Lock()
	r.started++
	block := r.block
	r.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	_ = job.Start()
	_ = job.Complete(integration.SyncCounters{Total: 1, Created: 1})
	if r.repo != nil {
		_ = r.repo.Save(ctx, job)
	}

	r.mu.Lock()
	r.ran[job.ID]++
	r.mu.Unlock()
	return r.err
}

func (r *fakeJobRunner) startedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.started
}

func (r *fakeJobRunner) ranCount(id uuid.UUID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ran[id]
}

func (r *fakeJobRunner) totalRan() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := 0
	for _, n := range r.ran {
		total += n
	}
	return total
}

// fakeSyncJobRepo is an in-memory integration.SyncJobRepository
type fakeSyncJobRepo struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*integration.SyncJob
}

func newFakeSyncJobRepo() *fakeSyncJobRepo {
	return &fakeSyncJobRepo{jobs: make(map[uuid.UUID]*integration.SyncJob)}
}

func (f *fakeSyncJobRepo) FindByID(ctx context.Context, id uuid.UUID) (*integration.SyncJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return job, nil
}

func (f *fakeSyncJobRepo) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*integration.SyncJob, error) {
	job, err := f.FindByID(ctx, id)
	if err != nil || job.TenantID != tenantID {
		return nil, shared.ErrNotFound
	}
	return job, nil
}

func (f *fakeSyncJobRepo) FindQueued(ctx context.Context, limit int) ([]integration.SyncJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []integration.SyncJob
	for _, job := range f.jobs {
		if job.Status == integration.SyncJobStatusQueued && len(out) < limit {
			out = append(out, *job)
		}
	}
	return out, nil
}

func (f *fakeSyncJobRepo) FindRetryDue(ctx context.Context, now time.Time, limit int) ([]integration.SyncJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []integration.SyncJob
	for _, job := range f.jobs {
		if job.RetryDue(now) && len(out) < limit {
			out = append(out, *job)
		}
	}
	return out, nil
}

func (f *fakeSyncJobRepo) FindStaleRunning(ctx context.Context, cutoff time.Time) ([]integration.SyncJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []integration.SyncJob
	for _, job := range f.jobs {
		if job.Status == integration.SyncJobStatusRunning && job.StartedAt != nil && job.StartedAt.Before(cutoff) {
			out = append(out, *job)
		}
	}
	return out, nil
}

func (f *fakeSyncJobRepo) FindRecentForIntegration(ctx context.Context, tenantID, integrationID uuid.UUID, limit int) ([]integration.SyncJob, error) {
	return nil, nil
}

func (f *fakeSyncJobRepo) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]integration.SyncJob, error) {
	return nil, nil
}

func (f *fakeSyncJobRepo) HasPending(ctx context.Context, integrationID uuid.UUID, entity integration.SyncEntity) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, job := range f.jobs {
		if job.IntegrationID != integrationID || job.Entity != entity {
			continue
		}
		if job.Status == integration.SyncJobStatusQueued || job.Status == integration.SyncJobStatusRunning {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeSyncJobRepo) Save(ctx context.Context, job *integration.SyncJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *job
	f.jobs[job.ID] = &copied
	return nil
}

func (f *fakeSyncJobRepo) get(id uuid.UUID) *integration.SyncJob {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.jobs[id]
}

func (f *fakeSyncJobRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.jobs)
}

func testIntegration(t *testing.T) *integration.Integration {
	t.Helper()
	return &integration.Integration{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(uuid.New()),
		Platform:            integration.PlatformShopify,
		Status:              integration.IntegrationStatusActive,
		SyncIntervalMinutes: 60,
	}
}

func queuedJob(t *testing.T, integ *integration.Integration, entity integration.SyncEntity) *integration.SyncJob {
	t.Helper()
	job, err := integration.NewSyncJob(integ.TenantID, integ, integration.SyncDirectionPull, entity, integration.SyncTriggerScheduled)
	require.NoError(t, err)
	return job
}

func fastSchedulerConfig() SyncSchedulerConfig {
	cfg := DefaultSyncSchedulerConfig()
	cfg.Workers = 2
	cfg.PollInterval = 10 * time.Millisecond
	cfg.JobTimeout = time.Second
	return cfg
}

func stopScheduler(t *testing.T, s *SyncScheduler) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
}

func TestSyncSchedulerRunsQueuedJobs(t *testing.T) {
	runner := newFakeJobRunner()
	repo := newFakeSyncJobRepo()
	runner.repo = repo
	integ := testIntegration(t)

	job1 := queuedJob(t, integ, integration.SyncEntityProducts)
	job2 := queuedJob(t, integ, integration.SyncEntityInventory)
	require.NoError(t, repo.Save(context.Background(), job1))
	require.NoError(t, repo.Save(context.Background(), job2))

	s, err := NewSyncScheduler(fastSchedulerConfig(), runner, repo, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))
	defer stopScheduler(t, s)

	require.Eventually(t, func() bool {
		return runner.ranCount(job1.ID) == 1 && runner.ranCount(job2.ID) == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		return len(s.History(10)) == 2
	}, 2*time.Second, 10*time.Millisecond)

	for _, rec := range s.History(10) {
		assert.Equal(t, integration.SyncJobStatusSucceeded, rec.Status)
		assert.Equal(t, integ.TenantID, rec.TenantID)
		assert.Equal(t, integration.PlatformShopify, rec.Platform)
		assert.False(t, rec.FinishedAt.IsZero())
	}
}

func TestSyncSchedulerDoesNotDispatchRunningJobTwice(t *testing.T) {
	runner := newFakeJobRunner()
	runner.block = make(chan struct{})
	repo := newFakeSyncJobRepo()
	runner.repo = repo
	integ := testIntegration(t)

	job := queuedJob(t, integ, integration.SyncEntityProducts)
	require.NoError(t, repo.Save(context.Background(), job))

	s, err := NewSyncScheduler(fastSchedulerConfig(), runner, repo, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))
	defer stopScheduler(t, s)

	// The job stays queued in the store while the worker holds it; several
	// polls must not hand it to a second worker.
	require.Eventually(t, func() bool {
		return runner.startedCount() == 1
	}, 2*time.Second, 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, runner.startedCount())

	close(runner.block)
	require.Eventually(t, func() bool {
		return runner.totalRan() == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSyncSchedulerSubmit(t *testing.T) {
	t.Run("rejects when not running", func(t *testing.T) {
		s, err := NewSyncScheduler(fastSchedulerConfig(), newFakeJobRunner(), newFakeSyncJobRepo(), zap.NewNop())
		require.NoError(t, err)

		integ := testIntegration(t)
		err = s.Submit(queuedJob(t, integ, integration.SyncEntityProducts))
		assert.ErrorIs(t, err, ErrSchedulerNotRunning)
	})

	t.Run("reports a full queue", func(t *testing.T) {
		runner := newFakeJobRunner()
		runner.block = make(chan struct{})
		defer close(runner.block)

		cfg := fastSchedulerConfig()
		cfg.Workers = 1
		cfg.QueueCapacity = 1
		// Long poll so the dispatcher does not interfere
		cfg.PollInterval = time.Hour

		s, err := NewSyncScheduler(cfg, runner, newFakeSyncJobRepo(), zap.NewNop())
		require.NoError(t, err)
		require.NoError(t, s.Start(context.Background()))
		defer stopScheduler(t, s)

		integ := testIntegration(t)
		require.NoError(t, s.Submit(queuedJob(t, integ, integration.SyncEntityProducts)))
		require.Eventually(t, func() bool {
			return runner.startedCount() == 1
		}, 2*time.Second, 10*time.Millisecond)

		require.NoError(t, s.Submit(queuedJob(t, integ, integration.SyncEntityInventory)))
		err = s.Submit(queuedJob(t, integ, integration.SyncEntityOrders))
		assert.ErrorIs(t, err, ErrJobQueueFull)
	})

	t.Run("ignores a job already in flight", func(t *testing.T) {
		runner := newFakeJobRunner()
		runner.block = make(chan struct{})
		defer close(runner.block)

		cfg := fastSchedulerConfig()
		cfg.PollInterval = time.Hour

		s, err := NewSyncScheduler(cfg, runner, newFakeSyncJobRepo(), zap.NewNop())
		require.NoError(t, err)
		require.NoError(t, s.Start(context.Background()))
		defer stopScheduler(t, s)

		integ := testIntegration(t)
		job := queuedJob(t, integ, integration.SyncEntityProducts)
		require.NoError(t, s.Submit(job))
		require.NoError(t, s.Submit(job))

		require.Eventually(t, func() bool {
			return runner.startedCount() == 1
		}, 2*time.Second, 10*time.Millisecond)
		time.Sleep(20 * time.Millisecond)
		assert.Equal(t, 1, runner.startedCount())
	})
}

func TestSyncSchedulerConfigValidation(t *testing.T) {
	cfg := DefaultSyncSchedulerConfig()
	cfg.Workers = 0

	_, err := NewSyncScheduler(cfg, newFakeJobRunner(), newFakeSyncJobRepo(), zap.NewNop())
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestSyncSchedulerStartStopIdempotent(t *testing.T) {
	s, err := NewSyncScheduler(fastSchedulerConfig(), newFakeJobRunner(), newFakeSyncJobRepo(), zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Start(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	require.NoError(t, s.Stop(ctx))
}
