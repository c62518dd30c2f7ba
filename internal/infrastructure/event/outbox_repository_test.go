package event

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/truthsource/backend/internal/domain/shared"
)

func TestGormOutboxRepositoryFindPending(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGormOutboxRepository(db)

	entryID := uuid.New()
	rows := sqlmock.NewRows([]string{"id", "event_type", "status"}).
		AddRow(entryID, "ProductCreated", string(shared.OutboxStatusPending))

	mock.ExpectQuery(`SELECT \* FROM "outbox_entries" WHERE status = \$1 ORDER BY created_at ASC LIMIT \$2`).
		WithArgs(string(shared.OutboxStatusPending), 50).
		WillReturnRows(rows)

	entries, err := repo.FindPending(context.Background(), 50)

	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, entryID, entries[0].ID)
	assert.Equal(t, "ProductCreated", entries[0].EventType)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGormOutboxRepositoryFindRetryable(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGormOutboxRepository(db)

	before := time.Now()
	mock.ExpectQuery(`SELECT \* FROM "outbox_entries" WHERE status = \$1 AND next_retry_at <= \$2 ORDER BY next_retry_at ASC LIMIT \$3`).
		WithArgs(string(shared.OutboxStatusFailed), sqlmock.AnyArg(), 20).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	entries, err := repo.FindRetryable(context.Background(), before, 20)

	require.NoError(t, err)
	assert.Empty(t, entries)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGormOutboxRepositoryDeleteOlderThan(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGormOutboxRepository(db)

	mock.ExpectExec(`DELETE FROM "outbox_entries" WHERE status = \$1 AND processed_at < \$2`).
		WithArgs(string(shared.OutboxStatusSent), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 17))

	deleted, err := repo.DeleteOlderThan(context.Background(), time.Now().Add(-7*24*time.Hour))

	require.NoError(t, err)
	assert.Equal(t, int64(17), deleted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGormOutboxRepositoryCountByStatus(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGormOutboxRepository(db)

	rows := sqlmock.NewRows([]string{"status", "count"}).
		AddRow(string(shared.OutboxStatusPending), 3).
		AddRow(string(shared.OutboxStatusDead), 1)

	mock.ExpectQuery(`SELECT status, count\(\*\) as count FROM "outbox_entries" GROUP BY .*status.*`).
		WillReturnRows(rows)

	counts, err := repo.CountByStatus(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(3), counts[shared.OutboxStatusPending])
	assert.Equal(t, int64(1), counts[shared.OutboxStatusDead])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGormOutboxRepositorySaveNothing(t *testing.T) {
	db, _ := newMockDB(t)
	repo := NewGormOutboxRepository(db)

	require.NoError(t, repo.Save(context.Background()))
}
