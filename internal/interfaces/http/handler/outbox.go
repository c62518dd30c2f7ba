package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	eventapp "github.com/truthsource/backend/internal/application/event"
	"github.com/truthsource/backend/internal/domain/identity"
	"github.com/truthsource/backend/internal/interfaces/http/middleware"
)

// OutboxHandler exposes the event outbox to operators: delivery stats and
// dead letter inspection and retry. Admin-only.
type OutboxHandler struct {
	BaseHandler
	outboxService *eventapp.OutboxService
}

// NewOutboxHandler creates a new OutboxHandler
func NewOutboxHandler(outboxService *eventapp.OutboxService) *OutboxHandler {
	return &OutboxHandler{outboxService: outboxService}
}

// RegisterRoutes registers outbox admin routes
func (h *OutboxHandler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/outbox", middleware.RequireRole(identity.RoleAdmin))
	group.GET("/stats", h.GetStats)
	group.GET("/dead", h.ListDead)
	group.POST("/dead/:id/retry", h.RetryDead)
	group.POST("/dead/retry-all", h.RetryAllDead)
}

// GetStats godoc
// @Summary      Outbox delivery statistics
// @Description  Count outbox entries per delivery status
// @Tags         outbox
// @Produce      json
// @Success      200 {object} APIResponse[eventapp.OutboxStatsDTO]
// @Failure      403 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /outbox/stats [get]
func (h *OutboxHandler) GetStats(c *gin.Context) {
	stats, err := h.outboxService.GetStats(c.Request.Context())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, stats)
}

// ListDead godoc
// @Summary      List dead letter entries
// @Description  Page through outbox entries that exhausted their retries
// @Tags         outbox
// @Produce      json
// @Param        page query int false "Page number"
// @Param        page_size query int false "Page size"
// @Success      200 {object} APIResponse[eventapp.OutboxListResult]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /outbox/dead [get]
func (h *OutboxHandler) ListDead(c *gin.Context) {
	var filter eventapp.OutboxFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.outboxService.GetDeadLetterEntries(c.Request.Context(), filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, result)
}

// RetryDead godoc
// @Summary      Retry one dead letter entry
// @Description  Reset a dead entry so the outbox processor delivers it again
// @Tags         outbox
// @Produce      json
// @Param        id path string true "Outbox entry ID" format(uuid)
// @Success      200 {object} APIResponse[eventapp.OutboxEntryDTO]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /outbox/dead/{id}/retry [post]
func (h *OutboxHandler) RetryDead(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid entry ID")
		return
	}

	entry, err := h.outboxService.RetryDeadEntry(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, entry)
}

// RetryAllDeadResponse reports how many entries were requeued
type RetryAllDeadResponse struct {
	Retried int64 `json:"retried"`
}

// RetryAllDead godoc
// @Summary      Retry every dead letter entry
// @Description  Reset all dead entries for redelivery
// @Tags         outbox
// @Produce      json
// @Success      200 {object} APIResponse[RetryAllDeadResponse]
// @Failure      403 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /outbox/dead/retry-all [post]
func (h *OutboxHandler) RetryAllDead(c *gin.Context) {
	count, err := h.outboxService.RetryAllDeadEntries(c.Request.Context())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, RetryAllDeadResponse{Retried: count})
}
