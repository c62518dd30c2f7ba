package handler

import (
	"github.com/gin-gonic/gin"

	alertapp "github.com/truthsource/backend/internal/application/alert"
	"github.com/truthsource/backend/internal/domain/alert"
	"github.com/truthsource/backend/internal/interfaces/http/middleware"
)

// AlertHandler handles operational alert API endpoints
type AlertHandler struct {
	BaseHandler
	alertService *alertapp.Service
}

// NewAlertHandler creates a new AlertHandler
func NewAlertHandler(alertService *alertapp.Service) *AlertHandler {
	return &AlertHandler{alertService: alertService}
}

// RegisterRoutes registers alert routes
func (h *AlertHandler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/alerts")
	group.GET("", h.List)
	group.GET("/open-count", h.CountOpen)
	group.GET("/:id", h.Get)

	write := group.Group("", middleware.RequireWriteAccess())
	write.POST("/:id/acknowledge", h.Acknowledge)
	write.POST("/:id/resolve", h.Resolve)
}

// List godoc
// @Summary      List alerts
// @Tags         alerts
// @Produce      json
// @Param        type query string false "Filter by alert type"
// @Param        status query string false "Filter by status" Enums(open, acknowledged, resolved)
// @Param        page query int false "Page number"
// @Param        page_size query int false "Page size"
// @Success      200 {object} APIResponse[[]alertapp.Info]
// @Security     BearerAuth
// @Router       /alerts [get]
func (h *AlertHandler) List(c *gin.Context) {
	orgID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var alertType *alert.Type
	if raw := c.Query("type"); raw != "" {
		t := alert.Type(raw)
		alertType = &t
	}
	var status *alert.Status
	if raw := c.Query("status"); raw != "" {
		s := alert.Status(raw)
		status = &s
	}

	alerts, err := h.alertService.List(c.Request.Context(), orgID, alertType, status, parseFilter(c))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, alerts)
}

// Get godoc
// @Summary      Get an alert
// @Tags         alerts
// @Produce      json
// @Param        id path string true "Alert ID" format(uuid)
// @Success      200 {object} APIResponse[alertapp.Info]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /alerts/{id} [get]
func (h *AlertHandler) Get(c *gin.Context) {
	orgID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	alertID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid alert ID")
		return
	}

	info, err := h.alertService.Get(c.Request.Context(), orgID, alertID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, info)
}

// CountOpen godoc
// @Summary      Count open alerts
// @Tags         alerts
// @Produce      json
// @Success      200 {object} APIResponse[CountData]
// @Security     BearerAuth
// @Router       /alerts/open-count [get]
func (h *AlertHandler) CountOpen(c *gin.Context) {
	orgID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	count, err := h.alertService.CountOpen(c.Request.Context(), orgID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, CountData{Count: count})
}

// Acknowledge godoc
// @Summary      Acknowledge an alert
// @Tags         alerts
// @Param        id path string true "Alert ID" format(uuid)
// @Success      204
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /alerts/{id}/acknowledge [post]
func (h *AlertHandler) Acknowledge(c *gin.Context) {
	orgID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	alertID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid alert ID")
		return
	}

	if err := h.alertService.Acknowledge(c.Request.Context(), orgID, alertID, userID); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}

// Resolve godoc
// @Summary      Resolve an alert
// @Tags         alerts
// @Param        id path string true "Alert ID" format(uuid)
// @Success      204
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /alerts/{id}/resolve [post]
func (h *AlertHandler) Resolve(c *gin.Context) {
	orgID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	alertID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid alert ID")
		return
	}

	if err := h.alertService.Resolve(c.Request.Context(), orgID, alertID); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}
