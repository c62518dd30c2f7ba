package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap/zaptest"

	"github.com/truthsource/backend/internal/infrastructure/telemetry"
)

// manualMeter builds a meter backed by a manual reader so tests can collect
// and inspect what was recorded.
func manualMeter(t *testing.T) (metric.Meter, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() {
		_ = provider.Shutdown(context.Background())
	})
	return provider.Meter("test"), reader
}

// collectMetric returns the single exported metric with the given name.
func collectMetric(t *testing.T, reader *sdkmetric.ManualReader, name string) metricdata.Metrics {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name == name {
				return m
			}
		}
	}
	t.Fatalf("metric %q not exported", name)
	return metricdata.Metrics{}
}

func TestNewMeterProvider_Disabled(t *testing.T) {
	ctx := context.Background()
	cfg := telemetry.MetricsConfig{
		Enabled:           false,
		CollectorEndpoint: "localhost:14317",
		ServiceName:       "truthsource-test",
	}

	mp, err := telemetry.NewMeterProvider(ctx, cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NotNil(t, mp)

	assert.False(t, mp.IsEnabled())
	assert.Equal(t, "truthsource-test", mp.GetConfig().ServiceName)

	// Disabled provider still hands out usable (no-op) meters
	assert.NotNil(t, mp.Meter("sync"))

	// Lifecycle calls are no-ops, even with a dead context
	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.NoError(t, mp.ForceFlush(cancelled))
	assert.NoError(t, mp.Shutdown(cancelled))
}

func TestCounter(t *testing.T) {
	meter, reader := manualMeter(t)
	ctx := context.Background()

	counter, err := telemetry.NewCounter(meter, "sync_runs_total", "Completed sync runs", "{run}")
	require.NoError(t, err)

	counter.Add(ctx, 5, telemetry.AttrPlatform.String("shopify"))
	counter.Inc(ctx, telemetry.AttrPlatform.String("shopify"))
	counter.Inc(ctx, telemetry.AttrPlatform.String("bigcommerce"))

	m := collectMetric(t, reader, "sync_runs_total")
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 2)

	byPlatform := make(map[string]int64)
	for _, dp := range sum.DataPoints {
		platform, _ := dp.Attributes.Value("platform")
		byPlatform[platform.AsString()] = dp.Value
	}
	assert.Equal(t, int64(6), byPlatform["shopify"])
	assert.Equal(t, int64(1), byPlatform["bigcommerce"])
}

func TestHistogram(t *testing.T) {
	meter, reader := manualMeter(t)
	ctx := context.Background()

	histogram, err := telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:        "http_request_duration_seconds",
		Description: "HTTP request duration",
		Unit:        "s",
		Boundaries:  telemetry.HTTPDurationBuckets,
	})
	require.NoError(t, err)

	histogram.Record(ctx, 0.02, telemetry.AttrHTTPMethod.String("GET"))
	histogram.RecordDuration(ctx, 80*time.Millisecond, telemetry.AttrHTTPMethod.String("GET"))

	m := collectMetric(t, reader, "http_request_duration_seconds")
	hist, ok := m.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)

	dp := hist.DataPoints[0]
	assert.Equal(t, uint64(2), dp.Count)
	assert.InDelta(t, 0.1, dp.Sum, 1e-9)
	assert.Equal(t, telemetry.HTTPDurationBuckets, dp.Bounds)
}

func TestHistogram_DefaultBoundaries(t *testing.T) {
	meter, reader := manualMeter(t)

	histogram, err := telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:        "webhook_dispatch_seconds",
		Description: "Webhook dispatch duration",
		Unit:        "s",
	})
	require.NoError(t, err)

	histogram.Record(context.Background(), 1.5)

	m := collectMetric(t, reader, "webhook_dispatch_seconds")
	hist, ok := m.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	// SDK default buckets apply when none are given
	assert.NotEqual(t, telemetry.HTTPDurationBuckets, hist.DataPoints[0].Bounds)
}

func TestGauge(t *testing.T) {
	meter, reader := manualMeter(t)
	ctx := context.Background()

	gauge, err := telemetry.NewGauge(meter, "db_pool_connections", "Open pool connections", "{connection}")
	require.NoError(t, err)

	gauge.Record(ctx, 10, telemetry.AttrDBState.String("in_use"))
	gauge.Record(ctx, 4, telemetry.AttrDBState.String("in_use"))

	m := collectMetric(t, reader, "db_pool_connections")
	data, ok := m.Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, data.DataPoints, 1)
	// Gauges keep only the last recorded value
	assert.Equal(t, int64(4), data.DataPoints[0].Value)
}

func TestFloatGauge(t *testing.T) {
	meter, reader := manualMeter(t)

	gauge, err := telemetry.NewFloatGauge(meter, "cache_hit_ratio", "Cache hit ratio", "1")
	require.NoError(t, err)

	gauge.Record(context.Background(), 0.93)

	m := collectMetric(t, reader, "cache_hit_ratio")
	data, ok := m.Data.(metricdata.Gauge[float64])
	require.True(t, ok)
	require.Len(t, data.DataPoints, 1)
	assert.InDelta(t, 0.93, data.DataPoints[0].Value, 1e-9)
}

func TestSharedAttributeKeys(t *testing.T) {
	keys := map[attribute.Key]string{
		telemetry.AttrTenantID:       "tenant_id",
		telemetry.AttrUserID:         "user_id",
		telemetry.AttrHTTPMethod:     "http.method",
		telemetry.AttrHTTPStatusCode: "http.status_code",
		telemetry.AttrHTTPRoute:      "http.route",
		telemetry.AttrDBOperation:    "db.operation",
		telemetry.AttrDBTable:        "db.table",
		telemetry.AttrDBState:        "db.pool.state",
		telemetry.AttrPlatform:       "platform",
		telemetry.AttrOutcome:        "outcome",
		telemetry.AttrJobResult:      "job_result",
		telemetry.AttrLocationID:     "location_id",
		telemetry.AttrProductID:      "product_id",
		telemetry.AttrCategoryID:     "category_id",
	}
	for key, expected := range keys {
		assert.Equal(t, expected, string(key))
	}
}

func TestBucketBoundariesAscending(t *testing.T) {
	for name, buckets := range map[string][]float64{
		"http":  telemetry.HTTPDurationBuckets,
		"db":    telemetry.DBDurationBuckets,
		"small": telemetry.SmallDurationBuckets,
	} {
		require.NotEmpty(t, buckets, name)
		for i := 1; i < len(buckets); i++ {
			assert.Greater(t, buckets[i], buckets[i-1], name)
		}
	}
}
