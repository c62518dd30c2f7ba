package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/truthsource/backend/internal/domain/integration"
)

type fakeWebhookSweeper struct {
	mu      sync.Mutex
	retried int
	pruned  int
}

func (f *fakeWebhookSweeper) RetryFailed(ctx context.Context, limit int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.retried++
	return 2, nil
}

func (f *fakeWebhookSweeper) PruneProcessed(ctx context.Context, retention time.Duration) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pruned++
	return 5, nil
}

func (f *fakeWebhookSweeper) calls() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.retried, f.pruned
}

type fakeImportSweeper struct {
	mu        sync.Mutex
	cancelled int
}

func (f *fakeImportSweeper) CancelStuck(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled++
	return 1, nil
}

func (f *fakeImportSweeper) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cancelled
}

func fastReconcilerConfig() ReconcilerConfig {
	cfg := DefaultReconcilerConfig()
	cfg.Interval = 10 * time.Millisecond
	return cfg
}

func stopReconciler(t *testing.T, r *Reconciler) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, r.Stop(ctx))
}

func TestReconcilerRequeuesRetryDueJobs(t *testing.T) {
	repo := newFakeSyncJobRepo()
	integ := testIntegration(t)

	job := queuedJob(t, integ, integration.SyncEntityProducts)
	require.NoError(t, job.Start())
	require.NoError(t, job.Fail("connector timeout", time.Minute))
	past := time.Now().Add(-time.Second)
	job.NextRetryAt = &past
	require.NoError(t, repo.Save(context.Background(), job))

	r := NewReconciler(fastReconcilerConfig(), repo, &fakeWebhookSweeper{}, &fakeImportSweeper{}, zap.NewNop())
	require.NoError(t, r.Start(context.Background()))
	defer stopReconciler(t, r)

	require.Eventually(t, func() bool {
		saved := repo.get(job.ID)
		return saved != nil && saved.Status == integration.SyncJobStatusQueued
	}, 2*time.Second, 10*time.Millisecond)
}

func TestReconcilerFailsStaleRunningJobs(t *testing.T) {
	repo := newFakeSyncJobRepo()
	integ := testIntegration(t)

	job := queuedJob(t, integ, integration.SyncEntityInventory)
	require.NoError(t, job.Start())
	longAgo := time.Now().Add(-time.Hour)
	job.StartedAt = &longAgo
	require.NoError(t, repo.Save(context.Background(), job))

	cfg := fastReconcilerConfig()
	cfg.JobTimeout = time.Minute

	r := NewReconciler(cfg, repo, &fakeWebhookSweeper{}, &fakeImportSweeper{}, zap.NewNop())
	require.NoError(t, r.Start(context.Background()))
	defer stopReconciler(t, r)

	require.Eventually(t, func() bool {
		saved := repo.get(job.ID)
		return saved != nil && saved.Status == integration.SyncJobStatusFailed
	}, 2*time.Second, 10*time.Millisecond)

	saved := repo.get(job.ID)
	assert.Contains(t, saved.LastError, "worker lost")
	// First attempt failed, so a retry is scheduled
	require.NotNil(t, saved.NextRetryAt)
}

func TestReconcilerLeavesFreshRunningJobsAlone(t *testing.T) {
	repo := newFakeSyncJobRepo()
	integ := testIntegration(t)

	job := queuedJob(t, integ, integration.SyncEntityOrders)
	require.NoError(t, job.Start())
	require.NoError(t, repo.Save(context.Background(), job))

	r := NewReconciler(fastReconcilerConfig(), repo, &fakeWebhookSweeper{}, &fakeImportSweeper{}, zap.NewNop())
	require.NoError(t, r.Start(context.Background()))
	defer stopReconciler(t, r)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, integration.SyncJobStatusRunning, repo.get(job.ID).Status)
}

func TestReconcilerSweepsWebhooksAndImports(t *testing.T) {
	webhooks := &fakeWebhookSweeper{}
	imports := &fakeImportSweeper{}

	r := NewReconciler(fastReconcilerConfig(), newFakeSyncJobRepo(), webhooks, imports, zap.NewNop())
	require.NoError(t, r.Start(context.Background()))
	defer stopReconciler(t, r)

	require.Eventually(t, func() bool {
		retried, pruned := webhooks.calls()
		return retried >= 1 && pruned >= 1 && imports.calls() >= 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestReconcilerToleratesMissingSweepers(t *testing.T) {
	r := NewReconciler(fastReconcilerConfig(), newFakeSyncJobRepo(), nil, nil, zap.NewNop())
	require.NoError(t, r.Start(context.Background()))
	defer stopReconciler(t, r)

	time.Sleep(50 * time.Millisecond)
}
