package event

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/truthsource/backend/internal/domain/shared"
)

// stubOutboxRepo keeps entries in a map; only the methods OutboxService
// touches have real behavior.
type stubOutboxRepo struct {
	entries map[uuid.UUID]*shared.OutboxEntry
}

func newStubOutboxRepo() *stubOutboxRepo {
	return &stubOutboxRepo{entries: make(map[uuid.UUID]*shared.OutboxEntry)}
}

func (r *stubOutboxRepo) add(status shared.OutboxStatus) *shared.OutboxEntry {
	entry := &shared.OutboxEntry{
		ID:            uuid.New(),
		TenantID:      uuid.New(),
		EventID:       uuid.New(),
		EventType:     "inventory.level_changed",
		AggregateID:   uuid.New(),
		AggregateType: "StockLevel",
		Status:        status,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	if status == shared.OutboxStatusDead {
		entry.RetryCount = shared.DefaultMaxRetries
		entry.MaxRetries = shared.DefaultMaxRetries
		entry.LastError = "connector unreachable"
	}
	r.entries[entry.ID] = entry
	return entry
}

func (r *stubOutboxRepo) Save(ctx context.Context, entries ...*shared.OutboxEntry) error {
	for _, e := range entries {
		r.entries[e.ID] = e
	}
	return nil
}

func (r *stubOutboxRepo) FindPending(ctx context.Context, limit int) ([]*shared.OutboxEntry, error) {
	return nil, nil
}

func (r *stubOutboxRepo) FindRetryable(ctx context.Context, before time.Time, limit int) ([]*shared.OutboxEntry, error) {
	return nil, nil
}

func (r *stubOutboxRepo) FindDead(ctx context.Context, page, pageSize int) ([]*shared.OutboxEntry, int64, error) {
	var dead []*shared.OutboxEntry
	for _, e := range r.entries {
		if e.Status == shared.OutboxStatusDead {
			dead = append(dead, e)
		}
	}
	total := int64(len(dead))

	start := (page - 1) * pageSize
	if start >= len(dead) {
		return nil, total, nil
	}
	end := start + pageSize
	if end > len(dead) {
		end = len(dead)
	}
	return dead[start:end], total, nil
}

func (r *stubOutboxRepo) FindByID(ctx context.Context, id uuid.UUID) (*shared.OutboxEntry, error) {
	return r.entries[id], nil
}

func (r *stubOutboxRepo) MarkProcessing(ctx context.Context, ids []uuid.UUID) ([]*shared.OutboxEntry, error) {
	return nil, nil
}

func (r *stubOutboxRepo) Update(ctx context.Context, entry *shared.OutboxEntry) error {
	r.entries[entry.ID] = entry
	return nil
}

func (r *stubOutboxRepo) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

func (r *stubOutboxRepo) CountByStatus(ctx context.Context) (map[shared.OutboxStatus]int64, error) {
	counts := make(map[shared.OutboxStatus]int64)
	for _, e := range r.entries {
		counts[e.Status]++
	}
	return counts, nil
}

func newOutboxFixture() (*OutboxService, *stubOutboxRepo) {
	repo := newStubOutboxRepo()
	return NewOutboxService(repo, zap.NewNop()), repo
}

func TestOutboxService_GetDeadLetterEntries(t *testing.T) {
	service, repo := newOutboxFixture()

	for i := 0; i < 5; i++ {
		repo.add(shared.OutboxStatusDead)
	}
	repo.add(shared.OutboxStatusPending)
	repo.add(shared.OutboxStatusSent)

	result, err := service.GetDeadLetterEntries(context.Background(), OutboxFilter{Page: 1, PageSize: 10})
	require.NoError(t, err)

	assert.Equal(t, int64(5), result.Total)
	assert.Equal(t, 1, result.TotalPages)
	require.Len(t, result.Entries, 5)
	for _, entry := range result.Entries {
		assert.Equal(t, "DEAD", entry.Status)
	}
}

func TestOutboxService_GetDeadLetterEntries_DefaultsPagination(t *testing.T) {
	service, repo := newOutboxFixture()
	repo.add(shared.OutboxStatusDead)

	// Zero values fall back to page 1, size 20
	result, err := service.GetDeadLetterEntries(context.Background(), OutboxFilter{})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Page)
	assert.Equal(t, 20, result.PageSize)
	assert.Len(t, result.Entries, 1)
}

func TestOutboxService_GetEntry(t *testing.T) {
	service, repo := newOutboxFixture()
	entry := repo.add(shared.OutboxStatusDead)

	got, err := service.GetEntry(context.Background(), entry.ID)
	require.NoError(t, err)
	assert.Equal(t, entry.ID, got.ID)
	assert.Equal(t, "inventory.level_changed", got.EventType)

	_, err = service.GetEntry(context.Background(), uuid.New())
	assert.Error(t, err)
}

func TestOutboxService_RetryDeadEntry(t *testing.T) {
	service, repo := newOutboxFixture()

	t.Run("resets a dead entry to pending", func(t *testing.T) {
		entry := repo.add(shared.OutboxStatusDead)

		result, err := service.RetryDeadEntry(context.Background(), entry.ID)
		require.NoError(t, err)

		assert.Equal(t, "PENDING", result.Status)
		assert.Equal(t, 0, result.RetryCount)
		assert.Empty(t, result.LastError)
	})

	t.Run("unknown entry", func(t *testing.T) {
		_, err := service.RetryDeadEntry(context.Background(), uuid.New())
		assert.Error(t, err)
	})

	t.Run("entry not dead", func(t *testing.T) {
		entry := repo.add(shared.OutboxStatusPending)

		_, err := service.RetryDeadEntry(context.Background(), entry.ID)
		assert.Error(t, err)
	})
}

func TestOutboxService_RetryAllDeadEntries(t *testing.T) {
	service, repo := newOutboxFixture()

	for i := 0; i < 3; i++ {
		repo.add(shared.OutboxStatusDead)
	}
	pending := repo.add(shared.OutboxStatusPending)

	count, err := service.RetryAllDeadEntries(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	for _, entry := range repo.entries {
		if entry.ID == pending.ID {
			continue
		}
		assert.Equal(t, shared.OutboxStatusPending, entry.Status)
		assert.Equal(t, 0, entry.RetryCount)
	}

	// Nothing left to requeue
	count, err = service.RetryAllDeadEntries(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestOutboxService_GetStats(t *testing.T) {
	service, repo := newOutboxFixture()

	for _, status := range []shared.OutboxStatus{
		shared.OutboxStatusPending, shared.OutboxStatusPending,
		shared.OutboxStatusProcessing,
		shared.OutboxStatusSent, shared.OutboxStatusSent, shared.OutboxStatusSent,
		shared.OutboxStatusFailed,
		shared.OutboxStatusDead,
	} {
		repo.add(status)
	}

	stats, err := service.GetStats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(2), stats.Pending)
	assert.Equal(t, int64(1), stats.Processing)
	assert.Equal(t, int64(3), stats.Sent)
	assert.Equal(t, int64(1), stats.Failed)
	assert.Equal(t, int64(1), stats.Dead)
	assert.Equal(t, int64(8), stats.Total)
}
