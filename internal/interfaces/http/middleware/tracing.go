// Package middleware provides the HTTP middleware chain for the TruthSource API.
package middleware

import (
	"regexp"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	// MaxRequestIDLength caps request IDs copied from headers into trace
	// attributes.
	MaxRequestIDLength = 128
	// MaxTenantIDLength caps organization IDs read from headers.
	MaxTenantIDLength = 64
)

var uuidRegex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// TracingConfig configures the tracing middleware.
type TracingConfig struct {
	ServiceName string
	Enabled     bool
}

func DefaultTracingConfig() TracingConfig {
	return TracingConfig{
		ServiceName: "truthsource-backend",
		Enabled:     true,
	}
}

// Tracing returns the tracing middleware chain with defaults.
func Tracing() []gin.HandlerFunc {
	return TracingWithConfig(DefaultTracingConfig())
}

// TracingWithConfig returns otelgin's server span wrapper followed by an
// enrichment handler that adds request_id, tenant_id and user_id. The span
// name comes from otelgin as "METHOD route_pattern"; header-sourced values
// are validated before they become attributes. Enrichment runs after the
// rest of the chain so values set by downstream middleware (JWT claims) are
// present, and before otelgin ends the span.
func TracingWithConfig(cfg TracingConfig) []gin.HandlerFunc {
	if !cfg.Enabled {
		return []gin.HandlerFunc{func(c *gin.Context) {
			c.Next()
		}}
	}

	return []gin.HandlerFunc{
		otelgin.Middleware(cfg.ServiceName),
		func(c *gin.Context) {
			c.Next()

			span := trace.SpanFromContext(c.Request.Context())
			if span.IsRecording() {
				enrichSpan(c, span)
			}
		},
	}
}

func enrichSpan(c *gin.Context, span trace.Span) {
	if requestID := getRequestID(c); requestID != "" {
		span.SetAttributes(attribute.String("request_id", requestID))
	}
	if tenantID := getTenantID(c); tenantID != "" {
		span.SetAttributes(attribute.String("tenant_id", tenantID))
	}
	if userID := getUserID(c); userID != "" {
		span.SetAttributes(attribute.String("user_id", userID))
	}
}

// getRequestID prefers the ID the RequestID middleware stored; the inbound
// header is a fallback and gets truncated so oversized headers cannot bloat
// trace storage.
func getRequestID(c *gin.Context) string {
	if id := c.GetString("request_id"); id != "" {
		return id
	}

	headerID := c.GetHeader("X-Request-ID")
	if len(headerID) > MaxRequestIDLength {
		return headerID[:MaxRequestIDLength]
	}
	return headerID
}

// getTenantID prefers the JWT claim; the X-Tenant-ID header only counts when
// it parses as a UUID, so arbitrary header content never lands in traces.
func getTenantID(c *gin.Context) string {
	if id := c.GetString(JWTOrgIDKey); id != "" {
		return id
	}

	headerTenantID := c.GetHeader("X-Tenant-ID")
	if headerTenantID != "" && isValidTenantID(headerTenantID) {
		return headerTenantID
	}
	return ""
}

func isValidTenantID(tenantID string) bool {
	if len(tenantID) > MaxTenantIDLength {
		return false
	}
	return uuidRegex.MatchString(tenantID)
}

func getUserID(c *gin.Context) string {
	return c.GetString(JWTUserIDKey)
}
