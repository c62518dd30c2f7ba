package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func bodyLimitRouter(maxBytes int64) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(BodyLimit(maxBytes))
	router.POST("/api/import/products", func(c *gin.Context) {
		if _, err := io.ReadAll(c.Request.Body); err != nil {
			c.String(http.StatusRequestEntityTooLarge, "too large")
			return
		}
		c.String(http.StatusOK, "ok")
	})
	router.GET("/api/products", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return router
}

func TestBodyLimit(t *testing.T) {
	t.Run("body within limit passes", func(t *testing.T) {
		router := bodyLimitRouter(1024)

		req := httptest.NewRequest("POST", "/api/import/products", strings.NewReader("sku,name\nW-100,Widget\n"))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("declared length over limit rejected before reading", func(t *testing.T) {
		router := bodyLimitRouter(100)

		req := httptest.NewRequest("POST", "/api/import/products", strings.NewReader(strings.Repeat("x", 200)))
		req.ContentLength = 200
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.Contains(t, w.Body.String(), "REQUEST_TOO_LARGE")
		assert.Contains(t, w.Body.String(), "100 byte limit")
	})

	t.Run("streaming body capped by reader", func(t *testing.T) {
		router := bodyLimitRouter(50)

		// ContentLength -1 simulates a chunked upload with no declared size
		req := httptest.NewRequest("POST", "/api/import/products", strings.NewReader(strings.Repeat("x", 200)))
		req.ContentLength = -1
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})

	t.Run("bodyless request unaffected", func(t *testing.T) {
		router := bodyLimitRouter(10)

		req := httptest.NewRequest("GET", "/api/products", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}
