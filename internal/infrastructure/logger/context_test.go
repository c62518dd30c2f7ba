package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func newCaptureLogger() (*zap.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(zapcore.EncoderConfig{
			LevelKey:    "level",
			MessageKey:  "msg",
			EncodeLevel: zapcore.LowercaseLevelEncoder,
		}),
		zapcore.AddSync(&buf),
		zapcore.DebugLevel,
	)
	return zap.New(core), &buf
}

func TestWithContext(t *testing.T) {
	logger, _ := newCaptureLogger()

	ctx := WithContext(context.Background(), logger)

	assert.Same(t, logger, FromContext(ctx))
}

func TestFromContext_NotFound(t *testing.T) {
	// Falls back to a no-op logger
	assert.NotNil(t, FromContext(context.Background()))
}

func TestWithRequestID(t *testing.T) {
	logger, buf := newCaptureLogger()

	ctx, enriched := WithRequestID(context.Background(), logger, "req-123")

	assert.Equal(t, "req-123", GetRequestID(ctx))
	assert.Same(t, enriched, FromContext(ctx))

	enriched.Info("ping")
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "req-123", entry["request_id"])
}

func TestWithTenantID(t *testing.T) {
	logger, buf := newCaptureLogger()

	ctx, enriched := WithTenantID(context.Background(), logger, "tenant-456")

	assert.Equal(t, "tenant-456", GetTenantID(ctx))

	enriched.Info("ping")
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "tenant-456", entry["tenant_id"])
}

func TestWithUserID(t *testing.T) {
	logger, _ := newCaptureLogger()

	ctx, enriched := WithUserID(context.Background(), logger, "user-789")

	assert.Equal(t, "user-789", GetUserID(ctx))
	assert.NotNil(t, enriched)
}

func TestContextGetters_NotFound(t *testing.T) {
	ctx := context.Background()

	assert.Empty(t, GetRequestID(ctx))
	assert.Empty(t, GetTenantID(ctx))
	assert.Empty(t, GetUserID(ctx))
}

func TestContextChaining(t *testing.T) {
	logger, _ := newCaptureLogger()
	ctx := context.Background()

	ctx, logger = WithRequestID(ctx, logger, "req-1")
	ctx, logger = WithTenantID(ctx, logger, "tenant-1")
	ctx, logger = WithUserID(ctx, logger, "user-1")

	assert.Equal(t, "req-1", GetRequestID(ctx))
	assert.Equal(t, "tenant-1", GetTenantID(ctx))
	assert.Equal(t, "user-1", GetUserID(ctx))
	assert.NotNil(t, logger)
}

func TestContextKeys(t *testing.T) {
	assert.NotEqual(t, LoggerKey, RequestIDKey)
	assert.NotEqual(t, RequestIDKey, TenantIDKey)
	assert.NotEqual(t, TenantIDKey, UserIDKey)
	assert.NotEqual(t, LoggerKey, UserIDKey)
}
