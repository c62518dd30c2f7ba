package middleware

import (
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func swaggerRouter(cfg SwaggerConfig, jwtMiddleware gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/swagger/*any", SwaggerProtection(cfg, jwtMiddleware), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "docs"})
	})
	return router
}

func getSwagger(router *gin.Engine, remoteAddr string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/swagger/index.html", nil)
	if remoteAddr != "" {
		req.RemoteAddr = remoteAddr
	}
	router.ServeHTTP(w, req)
	return w
}

func TestSwaggerProtection(t *testing.T) {
	t.Run("disabled docs answer 404", func(t *testing.T) {
		router := swaggerRouter(SwaggerConfig{Enabled: false}, nil)

		w := getSwagger(router, "")
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), "not_found")
	})

	t.Run("enabled with no restrictions", func(t *testing.T) {
		router := swaggerRouter(SwaggerConfig{Enabled: true}, nil)

		w := getSwagger(router, "")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("allowlisted IP passes", func(t *testing.T) {
		router := swaggerRouter(SwaggerConfig{
			Enabled:    true,
			AllowedIPs: []string{"127.0.0.1"},
		}, nil)

		w := getSwagger(router, "127.0.0.1:12345")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("unlisted IP refused", func(t *testing.T) {
		router := swaggerRouter(SwaggerConfig{
			Enabled:    true,
			AllowedIPs: []string{"10.0.0.1"},
		}, nil)

		w := getSwagger(router, "192.168.1.1:12345")
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Contains(t, w.Body.String(), "forbidden")
	})

	t.Run("CIDR range honored", func(t *testing.T) {
		router := swaggerRouter(SwaggerConfig{
			Enabled:    true,
			AllowedIPs: []string{"10.0.0.0/8"},
		}, nil)

		assert.Equal(t, http.StatusOK, getSwagger(router, "10.50.100.200:12345").Code)
		assert.Equal(t, http.StatusForbidden, getSwagger(router, "192.168.1.1:12345").Code)
	})

	t.Run("auth middleware can refuse", func(t *testing.T) {
		deny := func(c *gin.Context) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		}
		router := swaggerRouter(SwaggerConfig{Enabled: true, RequireAuth: true}, deny)

		assert.Equal(t, http.StatusUnauthorized, getSwagger(router, "").Code)
	})

	t.Run("auth middleware can pass through", func(t *testing.T) {
		allow := func(c *gin.Context) {
			c.Set("user_id", "user-1")
			c.Next()
		}
		router := swaggerRouter(SwaggerConfig{Enabled: true, RequireAuth: true}, allow)

		assert.Equal(t, http.StatusOK, getSwagger(router, "").Code)
	})

	t.Run("allowlist checked before auth", func(t *testing.T) {
		allow := func(c *gin.Context) { c.Next() }
		router := swaggerRouter(SwaggerConfig{
			Enabled:     true,
			RequireAuth: true,
			AllowedIPs:  []string{"127.0.0.1"},
		}, allow)

		assert.Equal(t, http.StatusOK, getSwagger(router, "127.0.0.1:12345").Code)
		assert.Equal(t, http.StatusForbidden, getSwagger(router, "192.168.1.1:12345").Code)
	})
}

func TestIPAllowlist(t *testing.T) {
	tests := []struct {
		name    string
		ip      string
		entries []string
		want    bool
	}{
		{"exact match", "192.168.1.1", []string{"192.168.1.1"}, true},
		{"no match", "192.168.1.2", []string{"192.168.1.1"}, false},
		{"inside CIDR", "10.0.0.5", []string{"10.0.0.0/8"}, true},
		{"outside CIDR", "11.0.0.5", []string{"10.0.0.0/8"}, false},
		{"mixed entries", "172.16.3.9", []string{"127.0.0.1", "172.16.0.0/12"}, true},
		{"IPv6 localhost", "::1", []string{"::1"}, true},
		{"malformed entries ignored", "192.168.1.1", []string{"not-an-ip", "300.0.0.0/8"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list := parseAllowlist(tt.entries)
			assert.Equal(t, tt.want, list.contains(net.ParseIP(tt.ip)))
		})
	}
}

func TestIPAllowlist_NilIP(t *testing.T) {
	list := parseAllowlist([]string{"10.0.0.0/8"})
	assert.False(t, list.contains(nil))
}
