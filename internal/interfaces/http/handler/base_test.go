package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/truthsource/backend/internal/domain/shared"
	"github.com/truthsource/backend/internal/interfaces/http/dto"
	"github.com/truthsource/backend/internal/interfaces/http/middleware"
	"github.com/truthsource/backend/internal/interfaces/http/router"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// authContext simulates what the JWT and tenant middleware set on
// authenticated requests
func authContext(orgID, userID uuid.UUID, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.TenantIDKey, orgID)
		c.Set(middleware.JWTUserIDKey, userID.String())
		c.Set(middleware.JWTOrgIDKey, orgID.String())
		c.Set(middleware.JWTRoleKey, role)
		c.Next()
	}
}

// newTestRouter builds an engine with one registrar mounted under /api/v1
// behind simulated auth context
func newTestRouter(registrar router.RouteRegistrar, orgID, userID uuid.UUID, role string) *gin.Engine {
	engine := gin.New()
	engine.Use(authContext(orgID, userID, role))
	router.NewRouter(engine).Register(registrar).Setup()
	return engine
}

func decodeResponse(t *testing.T, body []byte) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(body, &resp))
	return resp
}

func TestGetRequestID(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(*gin.Context)
		expectedID string
	}{
		{
			name: "from the RequestID middleware key",
			setup: func(c *gin.Context) {
				c.Set("request_id", "ctx-request-id")
			},
			expectedID: "ctx-request-id",
		},
		{
			name: "from header when context empty",
			setup: func(c *gin.Context) {
				c.Request.Header.Set("X-Request-ID", "header-request-id")
			},
			expectedID: "header-request-id",
		},
		{
			name:       "empty when not set",
			setup:      func(c *gin.Context) {},
			expectedID: "",
		},
		{
			name: "middleware key takes precedence over header",
			setup: func(c *gin.Context) {
				c.Set("request_id", "ctx-id")
				c.Request.Header.Set("X-Request-ID", "header-id")
			},
			expectedID: "ctx-id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest("GET", "/", nil)
			tt.setup(c)

			assert.Equal(t, tt.expectedID, getRequestID(c))
		})
	}
}

func TestGetTenantID(t *testing.T) {
	t.Run("set by middleware", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		orgID := uuid.New()
		c.Set(middleware.TenantIDKey, orgID)

		got, err := getTenantID(c)
		require.NoError(t, err)
		assert.Equal(t, orgID, got)
	})

	t.Run("missing", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)

		_, err := getTenantID(c)
		assert.Error(t, err)
	})
}

func TestParseFilter(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		expected shared.Filter
	}{
		{
			name:     "defaults",
			query:    "",
			expected: shared.DefaultFilter(),
		},
		{
			name:  "pagination and search",
			query: "page=3&page_size=25&search=widget",
			expected: func() shared.Filter {
				f := shared.DefaultFilter()
				f.Page = 3
				f.PageSize = 25
				f.Search = "widget"
				return f
			}(),
		},
		{
			name:  "ordering",
			query: "order_by=created_at&order_dir=asc",
			expected: func() shared.Filter {
				f := shared.DefaultFilter()
				f.OrderBy = "created_at"
				f.OrderDir = "asc"
				return f
			}(),
		},
		{
			name:     "invalid values ignored",
			query:    "page=-1&page_size=abc&order_dir=sideways",
			expected: shared.DefaultFilter(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest("GET", "/?"+tt.query, nil)

			assert.Equal(t, tt.expected, parseFilter(c))
		})
	}
}

func TestBaseHandlerSuccess(t *testing.T) {
	h := &BaseHandler{}
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	h.Success(c, map[string]string{"key": "value"})

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w.Body.Bytes())
	assert.True(t, resp.Success)
}

func TestBaseHandlerPaginated(t *testing.T) {
	h := &BaseHandler{}
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	filter := shared.DefaultFilter()
	filter.Page = 2
	filter.PageSize = 10
	h.Paginated(c, []string{"a", "b"}, 35, filter)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w.Body.Bytes())
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(35), resp.Meta.Total)
	assert.Equal(t, 2, resp.Meta.Page)
	assert.Equal(t, 4, resp.Meta.TotalPages)
}

func TestBaseHandlerNoContent(t *testing.T) {
	h := &BaseHandler{}

	engine := gin.New()
	engine.DELETE("/test", func(c *gin.Context) {
		h.NoContent(c)
	})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest("DELETE", "/test", nil))

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.Bytes())
}

func TestBaseHandlerErrorMethods(t *testing.T) {
	tests := []struct {
		name         string
		method       func(*BaseHandler, *gin.Context)
		expectedCode int
	}{
		{
			name:         "BadRequest",
			method:       func(h *BaseHandler, c *gin.Context) { h.BadRequest(c, "bad") },
			expectedCode: http.StatusBadRequest,
		},
		{
			name:         "Unauthorized",
			method:       func(h *BaseHandler, c *gin.Context) { h.Unauthorized(c, "no") },
			expectedCode: http.StatusUnauthorized,
		},
		{
			name:         "Forbidden",
			method:       func(h *BaseHandler, c *gin.Context) { h.Forbidden(c, "no") },
			expectedCode: http.StatusForbidden,
		},
		{
			name:         "NotFound",
			method:       func(h *BaseHandler, c *gin.Context) { h.NotFound(c, "gone") },
			expectedCode: http.StatusNotFound,
		},
		{
			name:         "Conflict",
			method:       func(h *BaseHandler, c *gin.Context) { h.Conflict(c, "dup") },
			expectedCode: http.StatusConflict,
		},
		{
			name:         "PayloadTooLarge",
			method:       func(h *BaseHandler, c *gin.Context) { h.PayloadTooLarge(c, "big") },
			expectedCode: http.StatusRequestEntityTooLarge,
		},
		{
			name:         "InternalError",
			method:       func(h *BaseHandler, c *gin.Context) { h.InternalError(c, "boom") },
			expectedCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &BaseHandler{}
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest("GET", "/", nil)

			tt.method(h, c)

			assert.Equal(t, tt.expectedCode, w.Code)
			resp := decodeResponse(t, w.Body.Bytes())
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.NotEmpty(t, resp.Error.Code)
		})
	}
}

func TestHandleDomainError(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		expectedCode int
	}{
		{
			name:         "domain error maps by code",
			err:          shared.NewDomainError("NOT_FOUND", "Product not found"),
			expectedCode: http.StatusNotFound,
		},
		{
			name:         "plan limit",
			err:          shared.NewDomainError("PLAN_LIMIT_REACHED", "Plan limit reached"),
			expectedCode: http.StatusForbidden,
		},
		{
			name:         "sentinel not found",
			err:          shared.ErrNotFound,
			expectedCode: http.StatusNotFound,
		},
		{
			name:         "unknown error is internal",
			err:          assert.AnError,
			expectedCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &BaseHandler{}
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest("GET", "/", nil)

			h.HandleDomainError(c, tt.err)

			assert.Equal(t, tt.expectedCode, w.Code)
			resp := decodeResponse(t, w.Body.Bytes())
			assert.False(t, resp.Success)
		})
	}
}
