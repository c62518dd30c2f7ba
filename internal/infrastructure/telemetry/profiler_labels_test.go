package telemetry_test

import (
	"context"
	"runtime/pprof"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/truthsource/backend/internal/infrastructure/telemetry"
)

// labelsInside collects the pprof labels visible to fn when run under
// WithProfilingLabels.
func labelsInside(ctx context.Context, labels map[string]string) map[string]string {
	seen := make(map[string]string)
	telemetry.WithProfilingLabels(ctx, labels, func(ctx context.Context) {
		pprof.ForLabels(ctx, func(key, value string) bool {
			seen[key] = value
			return true
		})
	})
	return seen
}

func TestWithProfilingLabels(t *testing.T) {
	t.Run("nil labels still runs fn", func(t *testing.T) {
		called := false
		telemetry.WithProfilingLabels(context.Background(), nil, func(ctx context.Context) {
			called = true
		})
		assert.True(t, called)
	})

	t.Run("empty labels attach nothing", func(t *testing.T) {
		seen := labelsInside(context.Background(), map[string]string{})
		assert.Empty(t, seen)
	})

	t.Run("basic labels visible in context", func(t *testing.T) {
		seen := labelsInside(context.Background(), map[string]string{
			telemetry.ProfilingLabelRoute:  "/api/products/:id",
			telemetry.ProfilingLabelMethod: "GET",
		})
		assert.Equal(t, "/api/products/:id", seen[telemetry.ProfilingLabelRoute])
		assert.Equal(t, "GET", seen[telemetry.ProfilingLabelMethod])
	})

	t.Run("high cardinality labels dropped", func(t *testing.T) {
		seen := labelsInside(context.Background(), map[string]string{
			"user_id":                        "u-1234",
			"request_id":                     "req-5678",
			"trace_id":                       "abcdef",
			telemetry.ProfilingLabelTenantID: "tenant-1",
		})
		assert.NotContains(t, seen, "user_id")
		assert.NotContains(t, seen, "request_id")
		assert.NotContains(t, seen, "trace_id")
		assert.Equal(t, "tenant-1", seen[telemetry.ProfilingLabelTenantID])
	})

	t.Run("long values truncated", func(t *testing.T) {
		long := strings.Repeat("x", telemetry.MaxLabelValueLength+50)
		seen := labelsInside(context.Background(), map[string]string{
			telemetry.ProfilingLabelRoute: long,
		})
		require.Contains(t, seen, telemetry.ProfilingLabelRoute)
		assert.Len(t, seen[telemetry.ProfilingLabelRoute], telemetry.MaxLabelValueLength)
	})

	t.Run("empty keys and values skipped", func(t *testing.T) {
		seen := labelsInside(context.Background(), map[string]string{
			"":                             "value",
			telemetry.ProfilingLabelRoute:  "",
			telemetry.ProfilingLabelMethod: "POST",
		})
		assert.NotContains(t, seen, "")
		assert.NotContains(t, seen, telemetry.ProfilingLabelRoute)
		assert.Equal(t, "POST", seen[telemetry.ProfilingLabelMethod])
	})

	t.Run("keys normalized to snake_case", func(t *testing.T) {
		seen := labelsInside(context.Background(), map[string]string{
			"Sync-Entity":  "products",
			"batch size!":  "500",
			"!!!":          "dropped entirely",
			"already_fine": "yes",
		})
		assert.Equal(t, "products", seen["sync_entity"])
		assert.Equal(t, "500", seen["batch_size"])
		assert.Equal(t, "yes", seen["already_fine"])
		assert.NotContains(t, seen, "")
	})

	t.Run("caller map not mutated", func(t *testing.T) {
		labels := map[string]string{
			"user_id":                     "u-1",
			telemetry.ProfilingLabelRoute: "/api/orders",
		}
		telemetry.WithProfilingLabels(context.Background(), labels, func(ctx context.Context) {})
		assert.Len(t, labels, 2)
		assert.Equal(t, "u-1", labels["user_id"])
	})
}

func TestOperationLabels(t *testing.T) {
	t.Run("sets operation key", func(t *testing.T) {
		labels := telemetry.OperationLabels("sync_run", nil)
		assert.Equal(t, map[string]string{
			telemetry.ProfilingLabelOperation: "sync_run",
		}, labels)
	})

	t.Run("merges extra labels", func(t *testing.T) {
		labels := telemetry.OperationLabels("reconcile", map[string]string{
			telemetry.ProfilingLabelTenantID: "tenant-9",
			"platform":                       "shopify",
		})
		assert.Equal(t, "reconcile", labels[telemetry.ProfilingLabelOperation])
		assert.Equal(t, "tenant-9", labels[telemetry.ProfilingLabelTenantID])
		assert.Equal(t, "shopify", labels["platform"])
	})

	t.Run("operation labels usable under profiling", func(t *testing.T) {
		labels := telemetry.OperationLabels("inventory_reconcile", map[string]string{
			telemetry.ProfilingLabelTenantID: "tenant-3",
		})
		seen := labelsInside(context.Background(), labels)
		assert.Equal(t, "inventory_reconcile", seen[telemetry.ProfilingLabelOperation])
		assert.Equal(t, "tenant-3", seen[telemetry.ProfilingLabelTenantID])
	})
}
