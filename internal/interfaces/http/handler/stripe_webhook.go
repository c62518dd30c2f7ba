package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	billingapp "github.com/truthsource/backend/internal/application/billing"
	"github.com/truthsource/backend/internal/interfaces/http/dto"
)

// StripeWebhookHandler receives Stripe billing events. The route is public;
// Stripe's signature header is the authentication.
type StripeWebhookHandler struct {
	BaseHandler
	webhookService *billingapp.StripeWebhookService
	logger         *zap.Logger
}

// NewStripeWebhookHandler creates a new StripeWebhookHandler
func NewStripeWebhookHandler(webhookService *billingapp.StripeWebhookService, logger *zap.Logger) *StripeWebhookHandler {
	return &StripeWebhookHandler{
		webhookService: webhookService,
		logger:         logger,
	}
}

// RegisterRoutes registers the Stripe webhook route
func (h *StripeWebhookHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/webhooks/stripe", h.Receive)
}

// Receive godoc
// @Summary      Receive a Stripe webhook
// @Tags         webhooks
// @Accept       json
// @Produce      json
// @Success      200 {object} APIResponse[billingapp.WebhookResult]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Router       /webhooks/stripe [post]
func (h *StripeWebhookHandler) Receive(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.BadRequest(c, "Failed to read request body")
		return
	}

	signature := c.GetHeader("Stripe-Signature")
	if signature == "" {
		h.Unauthorized(c, "Missing Stripe signature")
		return
	}

	result, err := h.webhookService.ProcessWebhook(c.Request.Context(), payload, signature)
	if err != nil {
		h.logger.Warn("Stripe webhook rejected", zap.Error(err))
		h.Unauthorized(c, "Webhook verification failed")
		return
	}

	c.JSON(http.StatusOK, dto.NewSuccessResponse(result))
}
