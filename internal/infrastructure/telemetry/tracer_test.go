package telemetry_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap/zaptest"

	"github.com/truthsource/backend/internal/infrastructure/telemetry"
)

func disabledTracerConfig() telemetry.Config {
	return telemetry.Config{
		Enabled:           false,
		CollectorEndpoint: "localhost:14317",
		SamplingRatio:     1.0,
		ServiceName:       "truthsource-test",
	}
}

// newEnabledTracerProvider builds a real provider against an endpoint nothing
// listens on. The OTLP gRPC exporter connects lazily, so construction and
// shutdown work without a collector as long as no spans need exporting.
func newEnabledTracerProvider(t *testing.T, ratio float64) *telemetry.TracerProvider {
	t.Helper()

	previous := otel.GetTracerProvider()
	cfg := telemetry.Config{
		Enabled:           true,
		CollectorEndpoint: "localhost:1",
		SamplingRatio:     ratio,
		ServiceName:       "truthsource-test",
		Insecure:          true,
	}

	tp, err := telemetry.NewTracerProvider(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(previous)
	})
	return tp
}

func TestNewTracerProvider_Disabled(t *testing.T) {
	ctx := context.Background()

	tp, err := telemetry.NewTracerProvider(ctx, disabledTracerConfig(), zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NotNil(t, tp)

	assert.False(t, tp.IsEnabled())
	assert.Equal(t, "truthsource-test", tp.GetConfig().ServiceName)

	// Disabled provider still hands out usable no-op tracers
	tracer := tp.Tracer("sync")
	require.NotNil(t, tracer)
	_, span := tracer.Start(ctx, "noop")
	span.End()

	// Lifecycle calls are no-ops, even with a dead context
	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.NoError(t, tp.ForceFlush(cancelled))
	assert.NoError(t, tp.Shutdown(cancelled))
}

func TestNewTracerProvider_DefaultServiceName(t *testing.T) {
	cfg := disabledTracerConfig()
	cfg.ServiceName = ""

	tp, err := telemetry.NewTracerProvider(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Equal(t, "truthsource-backend", tp.GetConfig().ServiceName)
}

func TestNewTracerProvider_Enabled(t *testing.T) {
	for _, ratio := range []float64{0.0, 0.5, 1.0} {
		tp := newEnabledTracerProvider(t, ratio)
		assert.True(t, tp.IsEnabled())
		assert.NotNil(t, tp.Tracer("sync"))
	}
}

func TestEnableSpanProfiles(t *testing.T) {
	t.Run("disabled provider is a no-op", func(t *testing.T) {
		tp, err := telemetry.NewTracerProvider(context.Background(), disabledTracerConfig(), zaptest.NewLogger(t))
		require.NoError(t, err)

		require.NoError(t, tp.EnableSpanProfiles())
		assert.False(t, tp.IsSpanProfilesEnabled())
	})

	t.Run("off by default", func(t *testing.T) {
		tp := newEnabledTracerProvider(t, 1.0)
		assert.False(t, tp.IsSpanProfilesEnabled())
	})

	t.Run("enables once and stays on", func(t *testing.T) {
		tp := newEnabledTracerProvider(t, 1.0)

		require.NoError(t, tp.EnableSpanProfiles())
		assert.True(t, tp.IsSpanProfilesEnabled())

		// Second call must not rewrap the global provider
		require.NoError(t, tp.EnableSpanProfiles())
		assert.True(t, tp.IsSpanProfilesEnabled())
	})

	t.Run("spans still start through the wrapped provider", func(t *testing.T) {
		tp := newEnabledTracerProvider(t, 1.0)
		require.NoError(t, tp.EnableSpanProfiles())

		_, span := otel.GetTracerProvider().Tracer("sync").Start(context.Background(), "sync.run")
		assert.True(t, span.SpanContext().IsValid())
		span.End()
	})

	t.Run("concurrent enable and check", func(t *testing.T) {
		tp := newEnabledTracerProvider(t, 1.0)

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(2)
			go func() {
				defer wg.Done()
				_ = tp.EnableSpanProfiles()
			}()
			go func() {
				defer wg.Done()
				_ = tp.IsSpanProfilesEnabled()
			}()
		}
		wg.Wait()

		assert.True(t, tp.IsSpanProfilesEnabled())
	})
}
