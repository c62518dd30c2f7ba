package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Tenant context keys
const (
	TenantIDKey = "tenant_id"
)

// TenantMiddlewareConfig holds configuration for tenant middleware
type TenantMiddlewareConfig struct {
	// SkipPaths are paths that don't require an organization scope
	SkipPaths []string
	// SkipPathPrefixes are path prefixes that don't require one
	SkipPathPrefixes []string
	// Logger for middleware logging
	Logger *zap.Logger
}

// DefaultTenantConfig returns default tenant middleware configuration
func DefaultTenantConfig() TenantMiddlewareConfig {
	return TenantMiddlewareConfig{
		SkipPaths: []string{
			"/health",
			"/healthz",
			"/ready",
			"/metrics",
			"/api/v1/health",
			"/api/v1/auth/login",
			"/api/v1/auth/refresh",
			"/api/v1/organizations/register",
		},
		SkipPathPrefixes: []string{
			"/swagger",
			"/api/v1/webhooks",
		},
	}
}

// TenantMiddleware resolves the organization scope for the request from the
// authenticated JWT claims. Every tenant-scoped handler reads the resulting
// tenant_id, so requests without one stop here.
func TenantMiddleware() gin.HandlerFunc {
	return TenantMiddlewareWithConfig(DefaultTenantConfig())
}

// TenantMiddlewareWithConfig returns tenant middleware with custom configuration
func TenantMiddlewareWithConfig(cfg TenantMiddlewareConfig) gin.HandlerFunc {
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

		orgIDStr := GetJWTOrgID(c)
		if orgIDStr == "" {
			abortMissingTenant(c, cfg, "No organization in token")
			return
		}

		orgID, err := uuid.Parse(orgIDStr)
		if err != nil || orgID == uuid.Nil {
			abortMissingTenant(c, cfg, "Invalid organization in token")
			return
		}

		c.Set(TenantIDKey, orgID)
		c.Next()
	}
}

func abortMissingTenant(c *gin.Context, cfg TenantMiddlewareConfig, message string) {
	if cfg.Logger != nil {
		cfg.Logger.Warn("Request rejected without organization scope",
			zap.String("path", c.Request.URL.Path),
			zap.String("reason", message),
		)
	}

	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "MISSING_ORGANIZATION",
			"message": message,
		},
	})
}

// GetTenantID retrieves the organization scope set by TenantMiddleware
func GetTenantID(c *gin.Context) (uuid.UUID, bool) {
	value, exists := c.Get(TenantIDKey)
	if !exists {
		return uuid.Nil, false
	}
	id, ok := value.(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}
