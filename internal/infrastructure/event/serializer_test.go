package event

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/truthsource/backend/internal/domain/inventory"
	"github.com/truthsource/backend/internal/domain/shared"
)

func TestEventSerializerRoundTrip(t *testing.T) {
	serializer := NewEventSerializer()
	serializer.Register("TestEvent", &testEvent{})

	original := newTestEvent("TestEvent", uuid.New())
	payload, err := serializer.Serialize(original)
	require.NoError(t, err)

	decoded, err := serializer.Deserialize("TestEvent", payload)
	require.NoError(t, err)

	restored, ok := decoded.(*testEvent)
	require.True(t, ok)
	assert.Equal(t, original.EventID(), restored.EventID())
	assert.Equal(t, original.TenantID(), restored.TenantID())
	assert.Equal(t, original.Data, restored.Data)
}

func TestEventSerializerUnknownType(t *testing.T) {
	serializer := NewEventSerializer()

	_, err := serializer.Deserialize("Mystery", []byte(`{}`))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown event type")
}

func TestEventSerializerBadPayload(t *testing.T) {
	serializer := NewEventSerializer()
	serializer.Register("TestEvent", &testEvent{})

	_, err := serializer.Deserialize("TestEvent", []byte(`not json`))

	require.Error(t, err)
}

func TestRegisterAllEvents(t *testing.T) {
	serializer := NewEventSerializer()
	RegisterAllEvents(serializer)

	for _, eventType := range []string{
		"OrganizationRegistered",
		"UserCreated",
		"ProductCreated",
		"InventoryLevelChanged",
		"OrderIngested",
		"PricingRuleChanged",
		"SyncCompleted",
		"WebhookReceived",
		"ImportCompleted",
		"AnomalyDetected",
		"SubscriptionProvisioned",
	} {
		assert.True(t, serializer.IsRegistered(eventType), eventType)
	}

	t.Run("registered types deserialize to their concrete structs", func(t *testing.T) {
		evt := &inventory.InventoryLevelChangedEvent{
			BaseDomainEvent: shared.NewBaseDomainEvent(
				inventory.EventTypeInventoryLevelChanged,
				inventory.AggregateTypeInventoryLevel,
				uuid.New(), uuid.New(),
			),
			ProductID:     uuid.New(),
			LocationID:    uuid.New(),
			Delta:         -3,
			QuantityAfter: 7,
		}

		payload, err := serializer.Serialize(evt)
		require.NoError(t, err)

		decoded, err := serializer.Deserialize(inventory.EventTypeInventoryLevelChanged, payload)
		require.NoError(t, err)

		restored, ok := decoded.(*inventory.InventoryLevelChangedEvent)
		require.True(t, ok)
		assert.Equal(t, evt.ProductID, restored.ProductID)
		assert.Equal(t, int64(-3), restored.Delta)
	})
}
