package audit

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/truthsource/backend/internal/domain/audit"
	"github.com/truthsource/backend/internal/domain/shared"
)

type MockAuditRepository struct {
	mock.Mock
}

func (m *MockAuditRepository) SaveBatch(ctx context.Context, entries []audit.Entry) error {
	args := m.Called(ctx, entries)
	return args.Error(0)
}

func (m *MockAuditRepository) FindForTenant(ctx context.Context, tenantID uuid.UUID, query audit.Query, filter shared.Filter) ([]audit.Entry, error) {
	args := m.Called(ctx, tenantID, query, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]audit.Entry), args.Error(1)
}

func (m *MockAuditRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, query audit.Query) (int64, error) {
	args := m.Called(ctx, tenantID, query)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAuditRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

func TestListAuditEntries(t *testing.T) {
	ctx := context.Background()
	orgID := uuid.New()
	actorID := uuid.New()
	productID := uuid.New()

	t.Run("filters pass through to the repository", func(t *testing.T) {
		repo := new(MockAuditRepository)
		svc := NewService(repo, zap.NewNop())

		entry, err := audit.NewEntry(orgID, &actorID, audit.ActionUpdate, "product", &productID)
		require.NoError(t, err)
		entry.WithDiff([]byte(`{"unit_price":"10.00"}`), []byte(`{"unit_price":"12.00"}`))

		action := audit.ActionUpdate
		wantQuery := audit.Query{ActorID: &actorID, Action: &action, EntityType: "product"}
		filter := shared.Filter{Page: 1, PageSize: 50}

		repo.On("FindForTenant", ctx, orgID, wantQuery, filter).Return([]audit.Entry{*entry}, nil)
		repo.On("CountForTenant", ctx, orgID, wantQuery).Return(int64(1), nil)

		page, err := svc.List(ctx, ListInput{
			OrgID:      orgID,
			ActorID:    &actorID,
			Action:     &action,
			EntityType: "product",
		}, filter)
		require.NoError(t, err)
		require.Len(t, page.Items, 1)
		assert.Equal(t, int64(1), page.Total)
		assert.Equal(t, audit.ActionUpdate, page.Items[0].Action)
		assert.JSONEq(t, `{"unit_price":"12.00"}`, string(page.Items[0].After))
	})

	t.Run("inverted time range is rejected", func(t *testing.T) {
		repo := new(MockAuditRepository)
		svc := NewService(repo, zap.NewNop())

		from := time.Now()
		to := from.Add(-time.Hour)
		_, err := svc.List(ctx, ListInput{OrgID: orgID, From: &from, To: &to}, shared.Filter{Page: 1, PageSize: 20})

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_RANGE", domainErr.Code)
		repo.AssertNotCalled(t, "FindForTenant", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestPruneAuditEntries(t *testing.T) {
	ctx := context.Background()

	repo := new(MockAuditRepository)
	svc := NewService(repo, zap.NewNop())

	repo.On("DeleteOlderThan", ctx, mock.MatchedBy(func(cutoff time.Time) bool {
		return time.Since(cutoff) > 89*24*time.Hour
	})).Return(int64(120), nil)

	deleted, err := svc.Prune(ctx, 90*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(120), deleted)
}
