package event

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/truthsource/backend/internal/domain/shared"
)

type testEvent struct {
	shared.BaseDomainEvent
	Data string `json:"data"`
}

func newTestEvent(eventType string, tenantID uuid.UUID) *testEvent {
	return &testEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, "TestAggregate", uuid.New(), tenantID),
		Data:            "payload",
	}
}

type testHandler struct {
	mu         sync.Mutex
	eventTypes []string
	handled    []shared.DomainEvent
	err        error
	panics     bool
}

func newTestHandler(eventTypes ...string) *testHandler {
	return &testHandler{eventTypes: eventTypes}
}

func (h *testHandler) Handle(ctx context.Context, evt shared.DomainEvent) error {
	if h.panics {
		panic("handler exploded")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handled = append(h.handled, evt)
	return h.err
}

func (h *testHandler) EventTypes() []string {
	return h.eventTypes
}

func (h *testHandler) handledCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.handled)
}

func TestInMemoryEventBusPublish(t *testing.T) {
	tenantID := uuid.New()

	t.Run("routes events to matching handlers only", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		created := newTestHandler("ProductCreated")
		updated := newTestHandler("ProductUpdated")
		bus.Subscribe(created)
		bus.Subscribe(updated)

		err := bus.Publish(context.Background(), newTestEvent("ProductCreated", tenantID))

		require.NoError(t, err)
		assert.Equal(t, 1, created.handledCount())
		assert.Zero(t, updated.handledCount())
	})

	t.Run("wildcard handler receives every event", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		all := newTestHandler()
		bus.Subscribe(all)

		require.NoError(t, bus.Publish(context.Background(),
			newTestEvent("ProductCreated", tenantID),
			newTestEvent("OrderIngested", tenantID),
		))

		assert.Equal(t, 2, all.handledCount())
	})

	t.Run("one failing handler does not block the others", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		failing := newTestHandler("SyncCompleted")
		failing.err = errors.New("boom")
		healthy := newTestHandler("SyncCompleted")
		bus.Subscribe(failing)
		bus.Subscribe(healthy)

		require.NoError(t, bus.Publish(context.Background(), newTestEvent("SyncCompleted", tenantID)))

		assert.Equal(t, 1, healthy.handledCount())
	})

	t.Run("panicking handler is contained", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		panicking := newTestHandler("SyncFailed")
		panicking.panics = true
		healthy := newTestHandler("SyncFailed")
		bus.Subscribe(panicking)
		bus.Subscribe(healthy)

		require.NotPanics(t, func() {
			require.NoError(t, bus.Publish(context.Background(), newTestEvent("SyncFailed", tenantID)))
		})
		assert.Equal(t, 1, healthy.handledCount())
	})

	t.Run("unsubscribed handler stops receiving", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		handler := newTestHandler("WebhookReceived")
		bus.Subscribe(handler)
		bus.Unsubscribe(handler)

		require.NoError(t, bus.Publish(context.Background(), newTestEvent("WebhookReceived", tenantID)))

		assert.Zero(t, handler.handledCount())
	})
}

func TestInMemoryEventBusLifecycle(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	require.NoError(t, bus.Start(context.Background()))
	require.NoError(t, bus.Stop(context.Background()))
}
