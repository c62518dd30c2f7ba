package telemetry_test

import (
	"net/http"
	"net/http/httptest"
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/truthsource/backend/internal/infrastructure/telemetry"
)

// ingestServer stands in for a Pyroscope server and swallows profile uploads.
func ingestServer(t *testing.T) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)
	return server
}

func startedProfiler(t *testing.T, cfg telemetry.ProfilerConfig) *telemetry.Profiler {
	t.Helper()

	p, err := telemetry.NewProfiler(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = p.Stop()
	})
	return p
}

func TestNewProfiler_Disabled(t *testing.T) {
	p, err := telemetry.NewProfiler(telemetry.ProfilerConfig{Enabled: false}, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NotNil(t, p)

	assert.False(t, p.IsEnabled())
	assert.NoError(t, p.Stop())
}

func TestNewProfiler_Validation(t *testing.T) {
	t.Run("server address required", func(t *testing.T) {
		_, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
			Enabled:         true,
			ApplicationName: "truthsource-backend",
		}, zaptest.NewLogger(t))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "server address")
	})

	t.Run("application name required", func(t *testing.T) {
		_, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
			Enabled:       true,
			ServerAddress: "http://localhost:4040",
		}, zaptest.NewLogger(t))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "application name")
	})
}

func TestNewProfiler_Started(t *testing.T) {
	server := ingestServer(t)

	p := startedProfiler(t, telemetry.ProfilerConfig{
		Enabled:           true,
		ServerAddress:     server.URL,
		ApplicationName:   "truthsource-backend",
		ProfileCPU:        true,
		ProfileInuseSpace: true,
	})

	assert.True(t, p.IsEnabled())
	assert.NoError(t, p.Stop())
}

func TestProfiler_StopIdempotent(t *testing.T) {
	server := ingestServer(t)

	p := startedProfiler(t, telemetry.ProfilerConfig{
		Enabled:         true,
		ServerAddress:   server.URL,
		ApplicationName: "truthsource-backend",
		ProfileCPU:      true,
	})

	assert.NoError(t, p.Stop())
	assert.NoError(t, p.Stop())
}

func TestProfiler_StopConcurrent(t *testing.T) {
	server := ingestServer(t)

	p := startedProfiler(t, telemetry.ProfilerConfig{
		Enabled:         true,
		ServerAddress:   server.URL,
		ApplicationName: "truthsource-backend",
		ProfileCPU:      true,
	})

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, p.Stop())
		}()
	}
	wg.Wait()
}

func TestProfiler_MutexProfileFraction(t *testing.T) {
	previous := runtime.SetMutexProfileFraction(-1)
	defer runtime.SetMutexProfileFraction(previous)

	server := ingestServer(t)
	startedProfiler(t, telemetry.ProfilerConfig{
		Enabled:              true,
		ServerAddress:        server.URL,
		ApplicationName:      "truthsource-backend",
		ProfileMutexCount:    true,
		MutexProfileFraction: 7,
	})

	assert.Equal(t, 7, runtime.SetMutexProfileFraction(-1))
}

func TestProfiler_MutexProfileFractionDefault(t *testing.T) {
	previous := runtime.SetMutexProfileFraction(-1)
	defer runtime.SetMutexProfileFraction(previous)

	server := ingestServer(t)
	startedProfiler(t, telemetry.ProfilerConfig{
		Enabled:              true,
		ServerAddress:        server.URL,
		ApplicationName:      "truthsource-backend",
		ProfileMutexDuration: true,
	})

	assert.Equal(t, 5, runtime.SetMutexProfileFraction(-1))
}

func TestProfiler_BlockProfiling(t *testing.T) {
	defer runtime.SetBlockProfileRate(0)

	server := ingestServer(t)
	p := startedProfiler(t, telemetry.ProfilerConfig{
		Enabled:           true,
		ServerAddress:     server.URL,
		ApplicationName:   "truthsource-backend",
		ProfileBlockCount: true,
		BlockProfileRate:  3,
	})

	assert.True(t, p.IsEnabled())
}

func TestProfiler_GetConfig(t *testing.T) {
	cfg := telemetry.ProfilerConfig{
		Enabled:         false,
		ServerAddress:   "http://pyroscope:4040",
		ApplicationName: "truthsource-backend",
		ProfileCPU:      true,
	}

	p, err := telemetry.NewProfiler(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)

	got := p.GetConfig()
	assert.Equal(t, cfg, got)

	// Mutating the copy must not touch the profiler's config
	got.ApplicationName = "changed"
	assert.Equal(t, "truthsource-backend", p.GetConfig().ApplicationName)
}
