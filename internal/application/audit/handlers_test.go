package audit

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/truthsource/backend/internal/domain/audit"
	"github.com/truthsource/backend/internal/domain/catalog"
	"github.com/truthsource/backend/internal/domain/identity"
	"github.com/truthsource/backend/internal/domain/shared"
)

type capturingRecorder struct {
	mu      sync.Mutex
	entries []*audit.Entry
}

func (r *capturingRecorder) Record(_ context.Context, entry *audit.Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
}

func (r *capturingRecorder) Flush(context.Context) error { return nil }
func (r *capturingRecorder) Dropped() int64              { return 0 }

func TestTrailHandle(t *testing.T) {
	ctx := context.Background()
	orgID := uuid.New()

	t.Run("login event carries the actor", func(t *testing.T) {
		recorder := &capturingRecorder{}
		trail := NewTrail(recorder, zap.NewNop())

		userID := uuid.New()
		evt := &identity.UserLoggedInEvent{
			BaseDomainEvent: shared.NewBaseDomainEvent(identity.EventTypeUserLoggedIn, identity.AggregateTypeUser, userID, orgID),
			UserID:          userID,
			Email:           "ops@acme.test",
		}

		require.NoError(t, trail.Handle(ctx, evt))
		require.Len(t, recorder.entries, 1)

		entry := recorder.entries[0]
		assert.Equal(t, audit.ActionLogin, entry.Action)
		assert.Equal(t, orgID, entry.TenantID)
		require.NotNil(t, entry.ActorID)
		assert.Equal(t, userID, *entry.ActorID)
		require.NotNil(t, entry.EntityID)
		assert.Equal(t, userID, *entry.EntityID)
	})

	t.Run("product update is recorded as system activity with payload", func(t *testing.T) {
		recorder := &capturingRecorder{}
		trail := NewTrail(recorder, zap.NewNop())

		productID := uuid.New()
		evt := &catalog.ProductUpdatedEvent{
			BaseDomainEvent: shared.NewBaseDomainEvent(catalog.EventTypeProductUpdated, catalog.AggregateTypeProduct, productID, orgID),
			ProductID:       productID,
			SKU:             "WID-001",
			Name:            "Widget",
		}

		require.NoError(t, trail.Handle(ctx, evt))
		require.Len(t, recorder.entries, 1)

		entry := recorder.entries[0]
		assert.Equal(t, audit.ActionUpdate, entry.Action)
		assert.Nil(t, entry.ActorID)
		assert.Nil(t, entry.Before)
		assert.Contains(t, string(entry.After), "WID-001")
	})

	t.Run("unmapped events are ignored", func(t *testing.T) {
		recorder := &capturingRecorder{}
		trail := NewTrail(recorder, zap.NewNop())

		evt := &catalog.ProductUpdatedEvent{
			BaseDomainEvent: shared.NewBaseDomainEvent("SomethingElse", catalog.AggregateTypeProduct, uuid.New(), orgID),
		}

		require.NoError(t, trail.Handle(ctx, evt))
		assert.Empty(t, recorder.entries)
	})

	t.Run("every subscribed type maps to an action", func(t *testing.T) {
		trail := NewTrail(&capturingRecorder{}, zap.NewNop())
		for _, eventType := range trail.EventTypes() {
			action, ok := actionForEvent(eventType)
			assert.True(t, ok, eventType)
			assert.True(t, action.IsValid(), eventType)
		}
	})
}
