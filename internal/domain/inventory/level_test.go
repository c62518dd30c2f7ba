package inventory

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/truthsource/backend/internal/domain/shared"
)

func newLevel(t *testing.T) *InventoryLevel {
	t.Helper()
	return NewInventoryLevel(uuid.New(), uuid.New(), uuid.New())
}

func TestInventoryLevelAdjust(t *testing.T) {
	t.Run("positive delta", func(t *testing.T) {
		level := newLevel(t)

		adj, err := level.Adjust(50, ReasonManual, "initial count", nil)
		require.NoError(t, err)
		require.NotNil(t, adj)

		assert.Equal(t, int64(50), level.QuantityOnHand)
		assert.Equal(t, int64(50), level.Available())
		assert.Equal(t, int64(50), adj.Delta)
		assert.Equal(t, int64(0), adj.QuantityBefore)
		assert.Equal(t, int64(50), adj.QuantityAfter)
		assert.Equal(t, ReasonManual, adj.Reason)
		assert.Equal(t, "initial count", adj.Reference)

		events := level.GetDomainEvents()
		require.Len(t, events, 1)
		event, ok := events[0].(*InventoryLevelChangedEvent)
		require.True(t, ok)
		assert.Equal(t, int64(50), event.Delta)
		assert.False(t, event.BelowReorderPoint)
	})

	t.Run("negative delta below zero fails", func(t *testing.T) {
		level := newLevel(t)
		_, err := level.Adjust(10, ReasonManual, "", nil)
		require.NoError(t, err)

		_, err = level.Adjust(-11, ReasonManual, "", nil)
		require.ErrorIs(t, err, shared.ErrInsufficientStock)
		assert.Equal(t, int64(10), level.QuantityOnHand)
	})

	t.Run("zero delta rejected", func(t *testing.T) {
		level := newLevel(t)
		_, err := level.Adjust(0, ReasonManual, "", nil)
		require.Error(t, err)
	})

	t.Run("unknown reason rejected", func(t *testing.T) {
		level := newLevel(t)
		_, err := level.Adjust(5, AdjustmentReason("magic"), "", nil)
		require.Error(t, err)
	})

	t.Run("cannot drop below reserved", func(t *testing.T) {
		level := newLevel(t)
		_, err := level.Adjust(10, ReasonManual, "", nil)
		require.NoError(t, err)
		require.NoError(t, level.Reserve(6))

		_, err = level.Adjust(-5, ReasonManual, "", nil)
		require.Error(t, err)
		assert.Equal(t, int64(10), level.QuantityOnHand)
	})
}

func TestInventoryLevelSet(t *testing.T) {
	level := newLevel(t)
	_, err := level.Adjust(20, ReasonManual, "", nil)
	require.NoError(t, err)

	t.Run("records implied delta", func(t *testing.T) {
		adj, err := level.Set(35, ReasonSync, "job-1", nil)
		require.NoError(t, err)
		require.NotNil(t, adj)
		assert.Equal(t, int64(15), adj.Delta)
		assert.Equal(t, int64(35), level.QuantityOnHand)
	})

	t.Run("no-op when unchanged", func(t *testing.T) {
		adj, err := level.Set(35, ReasonSync, "job-2", nil)
		require.NoError(t, err)
		assert.Nil(t, adj)
	})

	t.Run("rejects negative", func(t *testing.T) {
		_, err := level.Set(-1, ReasonSync, "", nil)
		require.Error(t, err)
	})
}

func TestInventoryLevelReservation(t *testing.T) {
	level := newLevel(t)
	_, err := level.Adjust(10, ReasonManual, "", nil)
	require.NoError(t, err)

	t.Run("reserve reduces available", func(t *testing.T) {
		require.NoError(t, level.Reserve(4))
		assert.Equal(t, int64(6), level.Available())
		assert.Equal(t, int64(10), level.QuantityOnHand)
	})

	t.Run("cannot over-reserve", func(t *testing.T) {
		require.ErrorIs(t, level.Reserve(7), shared.ErrInsufficientStock)
	})

	t.Run("release returns stock", func(t *testing.T) {
		require.NoError(t, level.Release(2))
		assert.Equal(t, int64(8), level.Available())

		require.Error(t, level.Release(3), "more than reserved")
		require.Error(t, level.Release(0))
	})

	t.Run("fulfill consumes reservation and stock", func(t *testing.T) {
		adj, err := level.Fulfill(2, "ORD-1001", nil)
		require.NoError(t, err)
		require.NotNil(t, adj)
		assert.Equal(t, int64(-2), adj.Delta)
		assert.Equal(t, ReasonOrder, adj.Reason)
		assert.Equal(t, int64(8), level.QuantityOnHand)
		assert.Equal(t, int64(0), level.QuantityReserved)

		_, err = level.Fulfill(1, "ORD-1001", nil)
		require.Error(t, err, "nothing reserved")
	})
}

func TestInventoryLevelReorderPoint(t *testing.T) {
	level := newLevel(t)
	_, err := level.Adjust(10, ReasonManual, "", nil)
	require.NoError(t, err)

	require.NoError(t, level.SetReorderPoint(5, 20))
	assert.False(t, level.IsBelowReorderPoint())

	level.ClearDomainEvents()
	_, err = level.Adjust(-5, ReasonManual, "", nil)
	require.NoError(t, err)
	assert.True(t, level.IsBelowReorderPoint())

	events := level.GetDomainEvents()
	require.Len(t, events, 1)
	event := events[0].(*InventoryLevelChangedEvent)
	assert.True(t, event.BelowReorderPoint)

	require.Error(t, level.SetReorderPoint(-1, 0))
}

func TestNewLocation(t *testing.T) {
	tenantID := uuid.New()

	t.Run("creates warehouse by default", func(t *testing.T) {
		loc, err := NewLocation(tenantID, "main-dc", "Main DC", "")
		require.NoError(t, err)
		assert.Equal(t, "MAIN-DC", loc.Code)
		assert.Equal(t, LocationTypeWarehouse, loc.Type)
		assert.True(t, loc.Active)
	})

	t.Run("rejects bad codes", func(t *testing.T) {
		for _, code := range []string{"", "has space", "slash/"} {
			_, err := NewLocation(tenantID, code, "Name", LocationTypeStore)
			assert.Error(t, err, code)
		}
	})

	t.Run("rejects unknown type", func(t *testing.T) {
		_, err := NewLocation(tenantID, "A1", "Name", LocationType("moon"))
		require.Error(t, err)
	})

	t.Run("deactivate and activate", func(t *testing.T) {
		loc, _ := NewLocation(tenantID, "A1", "Name", LocationTypeStore)
		require.NoError(t, loc.Deactivate())
		require.Error(t, loc.Deactivate())
		require.NoError(t, loc.Activate())
		require.Error(t, loc.Activate())
	})
}
