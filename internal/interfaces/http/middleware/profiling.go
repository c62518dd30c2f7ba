package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/truthsource/backend/internal/infrastructure/telemetry"
)

// ProfilingConfig configures the profiling-label middleware.
type ProfilingConfig struct {
	Enabled bool
	// SkipPaths and SkipPathPrefixes exclude endpoints that would only add
	// noise, such as health checks.
	SkipPaths        []string
	SkipPathPrefixes []string
}

func DefaultProfilingConfig() ProfilingConfig {
	return ProfilingConfig{
		Enabled: true,
		SkipPaths: []string{
			"/health",
			"/healthz",
			"/ready",
			"/metrics",
		},
		SkipPathPrefixes: []string{
			"/swagger",
			"/api-docs",
		},
	}
}

// Profiling returns the profiling middleware with defaults.
func Profiling() gin.HandlerFunc {
	return ProfilingWithConfig(DefaultProfilingConfig())
}

// ProfilingWithConfig tags each request's goroutines with pprof labels
// (controller, route, method, tenant_id) so Pyroscope can slice CPU profiles
// by those dimensions. Labels use the route pattern, never the raw path, to
// keep cardinality bounded.
func ProfilingWithConfig(cfg ProfilingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		path := c.Request.URL.Path

		for _, skipPath := range cfg.SkipPaths {
			if path == skipPath {
				c.Next()
				return
			}
		}
		for _, prefix := range cfg.SkipPathPrefixes {
			if strings.HasPrefix(path, prefix) {
				c.Next()
				return
			}
		}

		labels := profilingLabels(c)
		telemetry.WithProfilingLabels(c.Request.Context(), labels, func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}

func profilingLabels(c *gin.Context) map[string]string {
	labels := make(map[string]string, 4)

	if method := c.Request.Method; method != "" {
		labels[telemetry.ProfilingLabelMethod] = method
	}

	route := c.FullPath()
	if route != "" {
		labels[telemetry.ProfilingLabelRoute] = route
	}

	if controller := controllerFromRoute(route); controller != "" {
		labels[telemetry.ProfilingLabelController] = controller
	}

	if tenantID := profilingTenantID(c); tenantID != "" {
		labels[telemetry.ProfilingLabelTenantID] = tenantID
	}

	return labels
}

// controllerFromRoute derives the resource segment from a route pattern:
// "/api/v1/products/:id" yields "products".
func controllerFromRoute(route string) string {
	if route == "" {
		return ""
	}

	for _, part := range strings.Split(route, "/") {
		if part == "" || part == "api" || isVersionSegment(part) {
			continue
		}
		if strings.HasPrefix(part, ":") || strings.HasPrefix(part, "*") {
			continue
		}
		return part
	}
	return ""
}

func isVersionSegment(segment string) bool {
	if len(segment) < 2 || (segment[0] != 'v' && segment[0] != 'V') {
		return false
	}
	for i := 1; i < len(segment); i++ {
		if segment[i] < '0' || segment[i] > '9' {
			return false
		}
	}
	return true
}

// profilingTenantID reads the organization scope from JWT claims, falling
// back to the tenant middleware's resolved UUID.
func profilingTenantID(c *gin.Context) string {
	if id := c.GetString(JWTOrgIDKey); id != "" {
		return id
	}

	if value, exists := c.Get(TenantIDKey); exists {
		switch id := value.(type) {
		case uuid.UUID:
			if id != uuid.Nil {
				return id.String()
			}
		case string:
			return id
		}
	}
	return ""
}
