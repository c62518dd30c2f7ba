package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tenantTestRouter(orgID string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if orgID != "" {
			c.Set(JWTOrgIDKey, orgID)
		}
	})
	r.Use(TenantMiddleware())
	r.GET("/api/v1/orders", func(c *gin.Context) {
		id, ok := GetTenantID(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"tenant_id": id.String()})
	})
	r.GET("/health", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func TestTenantMiddleware(t *testing.T) {
	t.Run("scopes request to the token's organization", func(t *testing.T) {
		orgID := uuid.New()
		r := tenantTestRouter(orgID.String())

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil))

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), orgID.String())
	})

	t.Run("rejects without organization claim", func(t *testing.T) {
		r := tenantTestRouter("")

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil))

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Contains(t, w.Body.String(), "MISSING_ORGANIZATION")
	})

	t.Run("rejects malformed organization claim", func(t *testing.T) {
		r := tenantTestRouter("not-a-uuid")

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil))

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("skip path needs no organization", func(t *testing.T) {
		r := tenantTestRouter("")

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestGetTenantIDMissing(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	_, ok := GetTenantID(c)
	assert.False(t, ok)
}
