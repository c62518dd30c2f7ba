package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

var _ gormlogger.Interface = (*GormLogger)(nil)

func observedGormLogger(level gormlogger.LogLevel, opts ...GormLoggerOption) (*GormLogger, *observer.ObservedLogs) {
	core, recorded := observer.New(zapcore.DebugLevel)
	return NewGormLogger(zap.New(core), level, opts...), recorded
}

func loggedField(t *testing.T, entry observer.LoggedEntry, key string) (zapcore.Field, bool) {
	t.Helper()
	for _, field := range entry.Context {
		if field.Key == key {
			return field, true
		}
	}
	return zapcore.Field{}, false
}

func selectProducts() (string, int64) {
	return "SELECT * FROM products", 5
}

func TestNewGormLogger(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		l, _ := observedGormLogger(gormlogger.Info)
		assert.Equal(t, gormlogger.Info, l.logLevel)
		assert.Equal(t, defaultSlowThreshold, l.slowThreshold)
		assert.True(t, l.ignoreRecordNotFoundError)
	})

	t.Run("options override defaults", func(t *testing.T) {
		l, _ := observedGormLogger(gormlogger.Info,
			WithSlowThreshold(500*time.Millisecond),
			WithIgnoreRecordNotFoundError(false),
		)
		assert.Equal(t, 500*time.Millisecond, l.slowThreshold)
		assert.False(t, l.ignoreRecordNotFoundError)
	})
}

func TestGormLoggerLogMode(t *testing.T) {
	l, _ := observedGormLogger(gormlogger.Info)

	clone, ok := l.LogMode(gormlogger.Warn).(*GormLogger)
	require.True(t, ok)
	assert.Equal(t, gormlogger.Warn, clone.logLevel)
	// the original keeps its level
	assert.Equal(t, gormlogger.Info, l.logLevel)
}

func TestGormLoggerLevels(t *testing.T) {
	t.Run("info formats arguments", func(t *testing.T) {
		l, recorded := observedGormLogger(gormlogger.Info)
		l.Info(context.Background(), "migrating %s", "stock_levels")

		logs := recorded.All()
		require.Len(t, logs, 1)
		assert.Equal(t, "migrating stock_levels", logs[0].Message)
	})

	t.Run("warn", func(t *testing.T) {
		l, recorded := observedGormLogger(gormlogger.Warn)
		l.Warn(context.Background(), "retrying %d", 2)

		logs := recorded.All()
		require.Len(t, logs, 1)
		assert.Equal(t, zapcore.WarnLevel, logs[0].Level)
	})

	t.Run("error", func(t *testing.T) {
		l, recorded := observedGormLogger(gormlogger.Error)
		l.Error(context.Background(), "connection lost")

		logs := recorded.All()
		require.Len(t, logs, 1)
		assert.Equal(t, zapcore.ErrorLevel, logs[0].Level)
	})

	t.Run("silent suppresses everything", func(t *testing.T) {
		l, recorded := observedGormLogger(gormlogger.Silent)
		l.Info(context.Background(), "hidden")
		l.Warn(context.Background(), "hidden")
		l.Error(context.Background(), "hidden")
		assert.Empty(t, recorded.All())
	})
}

func TestGormLoggerTrace(t *testing.T) {
	t.Run("failed query logs at error level", func(t *testing.T) {
		l, recorded := observedGormLogger(gormlogger.Error)
		l.Trace(context.Background(), time.Now(), selectProducts, errors.New("deadlock detected"))

		logs := recorded.All()
		require.Len(t, logs, 1)
		assert.Equal(t, "SQL Error", logs[0].Message)

		sqlField, ok := loggedField(t, logs[0], "sql")
		require.True(t, ok)
		assert.Equal(t, "SELECT * FROM products", sqlField.String)
	})

	t.Run("record not found is ignored by default", func(t *testing.T) {
		l, recorded := observedGormLogger(gormlogger.Error)
		l.Trace(context.Background(), time.Now(), selectProducts, gormlogger.ErrRecordNotFound)
		assert.Empty(t, recorded.All())
	})

	t.Run("record not found logs when not ignored", func(t *testing.T) {
		l, recorded := observedGormLogger(gormlogger.Error, WithIgnoreRecordNotFoundError(false))
		l.Trace(context.Background(), time.Now(), selectProducts, gormlogger.ErrRecordNotFound)
		require.Len(t, recorded.All(), 1)
	})

	t.Run("query over the threshold warns", func(t *testing.T) {
		l, recorded := observedGormLogger(gormlogger.Warn, WithSlowThreshold(time.Nanosecond))
		l.Trace(context.Background(), time.Now().Add(-time.Second), selectProducts, nil)

		logs := recorded.All()
		require.Len(t, logs, 1)
		assert.Equal(t, zapcore.WarnLevel, logs[0].Level)
		assert.Contains(t, logs[0].Message, "SLOW SQL")
	})

	t.Run("zero threshold disables slow query warnings", func(t *testing.T) {
		l, recorded := observedGormLogger(gormlogger.Warn, WithSlowThreshold(0))
		l.Trace(context.Background(), time.Now().Add(-time.Second), selectProducts, nil)
		assert.Empty(t, recorded.All())
	})

	t.Run("ordinary query logs at debug", func(t *testing.T) {
		l, recorded := observedGormLogger(gormlogger.Info)
		l.Trace(context.Background(), time.Now(), selectProducts, nil)

		logs := recorded.All()
		require.Len(t, logs, 1)
		assert.Equal(t, "SQL Query", logs[0].Message)
		assert.Equal(t, zapcore.DebugLevel, logs[0].Level)

		rowsField, ok := loggedField(t, logs[0], "rows")
		require.True(t, ok)
		assert.Equal(t, int64(5), rowsField.Integer)
	})

	t.Run("silent logs nothing", func(t *testing.T) {
		l, recorded := observedGormLogger(gormlogger.Silent)
		l.Trace(context.Background(), time.Now(), selectProducts, errors.New("boom"))
		assert.Empty(t, recorded.All())
	})
}

func TestGormLoggerTraceCorrelation(t *testing.T) {
	l, recorded := observedGormLogger(gormlogger.Info)

	ctx := context.WithValue(context.Background(), RequestIDKey, "req-42")
	ctx = context.WithValue(ctx, TenantIDKey, "4c0f2a9e-1d3b-4e5f-8a7c-6b9d0e1f2a3b")
	l.Trace(ctx, time.Now(), selectProducts, nil)

	logs := recorded.All()
	require.Len(t, logs, 1)

	requestID, ok := loggedField(t, logs[0], "request_id")
	require.True(t, ok)
	assert.Equal(t, "req-42", requestID.String)

	tenantID, ok := loggedField(t, logs[0], "tenant_id")
	require.True(t, ok)
	assert.Equal(t, "4c0f2a9e-1d3b-4e5f-8a7c-6b9d0e1f2a3b", tenantID.String)
}

func TestMapGormLogLevel(t *testing.T) {
	cases := map[string]gormlogger.LogLevel{
		"silent":  gormlogger.Silent,
		"error":   gormlogger.Error,
		"warn":    gormlogger.Warn,
		"info":    gormlogger.Info,
		"debug":   gormlogger.Info,
		"unknown": gormlogger.Warn,
		"":        gormlogger.Warn,
	}

	for level, want := range cases {
		t.Run(level, func(t *testing.T) {
			assert.Equal(t, want, MapGormLogLevel(level))
		})
	}
}
