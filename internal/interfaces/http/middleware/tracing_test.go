package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// serverSpanRecorder installs a recording tracer provider globally so otelgin
// picks it up, restoring the previous one afterwards.
func serverSpanRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() {
		otel.SetTracerProvider(previous)
		_ = provider.Shutdown(context.Background())
	})
	return recorder
}

func spanAttrs(span sdktrace.ReadOnlySpan) map[attribute.Key]string {
	attrs := make(map[attribute.Key]string)
	for _, kv := range span.Attributes() {
		attrs[kv.Key] = kv.Value.Emit()
	}
	return attrs
}

// tracedRouter mounts extra middleware ahead of tracing, mirroring how the
// server wires RequestID and JWT middleware before it.
func tracedRouter(cfg TracingConfig, pre ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	for _, mw := range pre {
		router.Use(mw)
	}
	router.Use(TracingWithConfig(cfg)...)
	router.GET("/api/v1/products/:id", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": c.Param("id")})
	})
	return router
}

func TestTracingWithConfig_Disabled(t *testing.T) {
	recorder := serverSpanRecorder(t)
	router := tracedRouter(TracingConfig{Enabled: false})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/products/42", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, recorder.Ended())
}

func TestTracingWithConfig_ServerSpan(t *testing.T) {
	recorder := serverSpanRecorder(t)
	router := tracedRouter(DefaultTracingConfig())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/products/42", nil))
	require.Equal(t, http.StatusOK, w.Code)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	// otelgin names the span after the matched route pattern
	assert.Equal(t, "GET /api/v1/products/:id", spans[0].Name())
}

func TestTracing_RequestIDAttribute(t *testing.T) {
	t.Run("prefers the generated request id", func(t *testing.T) {
		recorder := serverSpanRecorder(t)
		router := tracedRouter(DefaultTracingConfig(), func(c *gin.Context) {
			c.Set("request_id", "generated-id")
			c.Next()
		})

		req := httptest.NewRequest("GET", "/api/v1/products/42", nil)
		req.Header.Set("X-Request-ID", "header-id")
		router.ServeHTTP(httptest.NewRecorder(), req)

		spans := recorder.Ended()
		require.Len(t, spans, 1)
		assert.Equal(t, "generated-id", spanAttrs(spans[0])["request_id"])
	})

	t.Run("falls back to the header", func(t *testing.T) {
		recorder := serverSpanRecorder(t)
		router := tracedRouter(DefaultTracingConfig())

		req := httptest.NewRequest("GET", "/api/v1/products/42", nil)
		req.Header.Set("X-Request-ID", "header-id")
		router.ServeHTTP(httptest.NewRecorder(), req)

		spans := recorder.Ended()
		require.Len(t, spans, 1)
		assert.Equal(t, "header-id", spanAttrs(spans[0])["request_id"])
	})

	t.Run("truncates oversized header ids", func(t *testing.T) {
		recorder := serverSpanRecorder(t)
		router := tracedRouter(DefaultTracingConfig())

		req := httptest.NewRequest("GET", "/api/v1/products/42", nil)
		req.Header.Set("X-Request-ID", strings.Repeat("a", MaxRequestIDLength+50))
		router.ServeHTTP(httptest.NewRecorder(), req)

		spans := recorder.Ended()
		require.Len(t, spans, 1)
		got := spanAttrs(spans[0])["request_id"]
		assert.Len(t, got, MaxRequestIDLength)
	})

	t.Run("absent when nothing is set", func(t *testing.T) {
		recorder := serverSpanRecorder(t)
		router := tracedRouter(DefaultTracingConfig())

		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/v1/products/42", nil))

		spans := recorder.Ended()
		require.Len(t, spans, 1)
		_, ok := spanAttrs(spans[0])["request_id"]
		assert.False(t, ok)
	})
}

func TestTracing_TenantIDAttribute(t *testing.T) {
	const orgID = "3d0f8a4e-9b6c-4f2d-8e1a-7c5b9d2f6a31"

	t.Run("prefers the jwt claim over the header", func(t *testing.T) {
		recorder := serverSpanRecorder(t)
		router := tracedRouter(DefaultTracingConfig(), func(c *gin.Context) {
			c.Set(JWTOrgIDKey, orgID)
			c.Next()
		})

		req := httptest.NewRequest("GET", "/api/v1/products/42", nil)
		req.Header.Set("X-Tenant-ID", "11111111-2222-3333-4444-555555555555")
		router.ServeHTTP(httptest.NewRecorder(), req)

		spans := recorder.Ended()
		require.Len(t, spans, 1)
		assert.Equal(t, orgID, spanAttrs(spans[0])["tenant_id"])
	})

	t.Run("accepts a uuid header", func(t *testing.T) {
		recorder := serverSpanRecorder(t)
		router := tracedRouter(DefaultTracingConfig())

		req := httptest.NewRequest("GET", "/api/v1/products/42", nil)
		req.Header.Set("X-Tenant-ID", orgID)
		router.ServeHTTP(httptest.NewRecorder(), req)

		spans := recorder.Ended()
		require.Len(t, spans, 1)
		assert.Equal(t, orgID, spanAttrs(spans[0])["tenant_id"])
	})

	t.Run("rejects a non-uuid header", func(t *testing.T) {
		recorder := serverSpanRecorder(t)
		router := tracedRouter(DefaultTracingConfig())

		req := httptest.NewRequest("GET", "/api/v1/products/42", nil)
		req.Header.Set("X-Tenant-ID", "not-a-uuid'; DROP TABLE tenants;--")
		router.ServeHTTP(httptest.NewRecorder(), req)

		spans := recorder.Ended()
		require.Len(t, spans, 1)
		_, ok := spanAttrs(spans[0])["tenant_id"]
		assert.False(t, ok)
	})
}

func TestTracing_UserIDAttribute(t *testing.T) {
	recorder := serverSpanRecorder(t)
	router := tracedRouter(DefaultTracingConfig(), func(c *gin.Context) {
		c.Set(JWTUserIDKey, "user-7")
		c.Next()
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/v1/products/42", nil))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "user-7", spanAttrs(spans[0])["user_id"])
}

func TestIsValidTenantID(t *testing.T) {
	cases := []struct {
		name     string
		tenantID string
		want     bool
	}{
		{"lowercase uuid", "3d0f8a4e-9b6c-4f2d-8e1a-7c5b9d2f6a31", true},
		{"uppercase uuid", "3D0F8A4E-9B6C-4F2D-8E1A-7C5B9D2F6A31", true},
		{"empty", "", false},
		{"missing dashes", "3d0f8a4e9b6c4f2d8e1a7c5b9d2f6a31", false},
		{"wrong segment length", "3d0f8a4e-9b6c-4f2d-8e1a-7c5b9d2f6a3", false},
		{"non-hex characters", "3d0f8a4e-9b6c-4f2d-8e1a-7c5b9d2f6azz", false},
		{"over length limit", strings.Repeat("a", MaxTenantIDLength+1), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, isValidTenantID(tc.tenantID))
		})
	}
}

func TestDefaultTracingConfig(t *testing.T) {
	cfg := DefaultTracingConfig()
	assert.True(t, cfg.Enabled)
	assert.Equal(t, "truthsource-backend", cfg.ServiceName)
}
