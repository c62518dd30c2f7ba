package bulk

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestImport(t *testing.T) *ImportHistory {
	t.Helper()
	h, err := NewImportHistory(uuid.New(), ImportEntityProducts, "products.csv", 2048, ConflictModeUpdate, uuid.New())
	require.NoError(t, err)
	return h
}

func TestNewImportHistory(t *testing.T) {
	t.Run("creates pending import", func(t *testing.T) {
		h := newTestImport(t)
		assert.Equal(t, ImportStatusPending, h.Status)
		assert.False(t, h.Status.IsTerminal())
	})

	t.Run("rejects invalid inputs", func(t *testing.T) {
		tenantID := uuid.New()
		actor := uuid.New()

		_, err := NewImportHistory(tenantID, ImportEntityType("suppliers"), "f.csv", 1, ConflictModeSkip, actor)
		assert.Error(t, err)

		_, err = NewImportHistory(tenantID, ImportEntityProducts, "", 1, ConflictModeSkip, actor)
		assert.Error(t, err)

		_, err = NewImportHistory(tenantID, ImportEntityProducts, "f.csv", -1, ConflictModeSkip, actor)
		assert.Error(t, err)

		_, err = NewImportHistory(tenantID, ImportEntityProducts, "f.csv", 1, ConflictMode("merge"), actor)
		assert.Error(t, err)
	})
}

func TestImportHistoryLifecycle(t *testing.T) {
	t.Run("happy path publishes completed event", func(t *testing.T) {
		h := newTestImport(t)

		require.NoError(t, h.StartProcessing(100))
		assert.Equal(t, ImportStatusProcessing, h.Status)

		require.NoError(t, h.Complete(80, 5, 10, 5, []ImportErrorDetail{{Row: 3, Code: "INVALID_PRICE", Message: "not a number"}}))
		assert.Equal(t, ImportStatusCompleted, h.Status)
		assert.InDelta(t, 85.0, h.SuccessRate(), 0.01)

		events := h.GetDomainEvents()
		require.Len(t, events, 1)
		assert.Equal(t, EventTypeImportCompleted, events[0].EventType())
	})

	t.Run("all rows erroring marks import failed", func(t *testing.T) {
		h := newTestImport(t)
		require.NoError(t, h.StartProcessing(10))
		require.NoError(t, h.Complete(0, 10, 0, 0, nil))
		assert.Equal(t, ImportStatusFailed, h.Status)
		assert.Empty(t, h.GetDomainEvents())
	})

	t.Run("error details cap at the limit", func(t *testing.T) {
		h := newTestImport(t)
		require.NoError(t, h.StartProcessing(500))

		errs := make([]ImportErrorDetail, 150)
		for i := range errs {
			errs[i] = ImportErrorDetail{Row: i + 1, Code: "BAD_ROW", Message: "invalid"}
		}
		require.NoError(t, h.Complete(350, 150, 0, 0, errs))
		assert.Len(t, h.ErrorDetails, MaxErrorDetails)
	})

	t.Run("cannot start twice or complete from pending", func(t *testing.T) {
		h := newTestImport(t)
		assert.Error(t, h.Complete(1, 0, 0, 0, nil))

		require.NoError(t, h.StartProcessing(1))
		assert.Error(t, h.StartProcessing(1))
	})

	t.Run("cancel is refused after completion", func(t *testing.T) {
		h := newTestImport(t)
		require.NoError(t, h.StartProcessing(1))
		require.NoError(t, h.Complete(1, 0, 0, 0, nil))
		assert.Error(t, h.Cancel())
	})
}

func TestImportHistoryRollback(t *testing.T) {
	t.Run("completed import rolls back once", func(t *testing.T) {
		h := newTestImport(t)
		require.NoError(t, h.StartProcessing(20))
		require.NoError(t, h.Complete(20, 0, 0, 0, nil))
		h.ClearDomainEvents()

		require.NoError(t, h.RollBack(20))
		assert.Equal(t, ImportStatusRolledBack, h.Status)
		assert.Equal(t, 20, h.RolledBackRows)
		assert.NotNil(t, h.RolledBackAt)

		events := h.GetDomainEvents()
		require.Len(t, events, 1)
		assert.Equal(t, EventTypeImportRolledBack, events[0].EventType())

		// second rollback is a no-op
		h.ClearDomainEvents()
		require.NoError(t, h.RollBack(0))
		assert.Equal(t, 20, h.RolledBackRows)
		assert.Empty(t, h.GetDomainEvents())
	})

	t.Run("rollback refused while processing", func(t *testing.T) {
		h := newTestImport(t)
		require.NoError(t, h.StartProcessing(5))
		assert.False(t, h.CanRollBack())
		assert.Error(t, h.RollBack(5))
	})

	t.Run("rollback refused for failed import", func(t *testing.T) {
		h := newTestImport(t)
		require.NoError(t, h.StartProcessing(5))
		require.NoError(t, h.Fail(nil))
		assert.Error(t, h.RollBack(5))
	})
}

func TestImportOperation(t *testing.T) {
	tenantID := uuid.New()
	importID := uuid.New()

	t.Run("update requires before-values", func(t *testing.T) {
		_, err := NewImportOperation(tenantID, importID, 1, "product", uuid.New(), OperationUpdate, nil, []byte(`{"unit_price":"12.00"}`))
		assert.Error(t, err)
	})

	t.Run("create needs no before-values", func(t *testing.T) {
		op, err := NewImportOperation(tenantID, importID, 1, "product", uuid.New(), OperationCreate, nil, []byte(`{"sku":"WIDGET-1"}`))
		require.NoError(t, err)
		assert.Equal(t, OperationCreate, op.Operation)
	})

	t.Run("rejects invalid op and sequence", func(t *testing.T) {
		_, err := NewImportOperation(tenantID, importID, 1, "product", uuid.New(), OperationType("delete"), nil, nil)
		assert.Error(t, err)

		_, err = NewImportOperation(tenantID, importID, 0, "product", uuid.New(), OperationCreate, nil, nil)
		assert.Error(t, err)
	})
}
