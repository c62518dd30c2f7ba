package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	integrationapp "github.com/truthsource/backend/internal/application/integration"
	"github.com/truthsource/backend/internal/domain/integration"
	"github.com/truthsource/backend/internal/domain/shared"
	"github.com/truthsource/backend/internal/infrastructure/commerce"
	"github.com/truthsource/backend/internal/interfaces/http/dto"
)

// WebhookHandler receives platform webhook deliveries. These routes are
// public: authentication is the per-integration HMAC signature, verified
// before anything else happens.
type WebhookHandler struct {
	BaseHandler
	webhookService  *integrationapp.WebhookService
	integrationRepo integration.Repository
	verifier        *commerce.WebhookVerifier
	logger          *zap.Logger
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(
	webhookService *integrationapp.WebhookService,
	integrationRepo integration.Repository,
	verifier *commerce.WebhookVerifier,
	logger *zap.Logger,
) *WebhookHandler {
	return &WebhookHandler{
		webhookService:  webhookService,
		integrationRepo: integrationRepo,
		verifier:        verifier,
		logger:          logger,
	}
}

// RegisterRoutes registers webhook receiver routes
func (h *WebhookHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/webhooks/:platform/:integrationID", h.Receive)
}

// WebhookAckResponse acknowledges a delivery
type WebhookAckResponse struct {
	Received  bool `json:"received"`
	Duplicate bool `json:"duplicate,omitempty"`
}

// Receive godoc
// @Summary      Receive a platform webhook
// @Description  Verify the delivery signature, store the event, and queue a targeted sync
// @Tags         webhooks
// @Accept       json
// @Produce      json
// @Param        platform path string true "Platform" Enums(shopify, netsuite, woocommerce)
// @Param        integrationID path string true "Integration ID" format(uuid)
// @Success      200 {object} APIResponse[WebhookAckResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      413 {object} ErrorResponse
// @Router       /webhooks/{platform}/{integrationID} [post]
func (h *WebhookHandler) Receive(c *gin.Context) {
	platform := integration.Platform(c.Param("platform"))
	switch platform {
	case integration.PlatformShopify, integration.PlatformNetSuite, integration.PlatformWooCommerce:
	default:
		h.NotFound(c, "Unknown platform")
		return
	}

	integrationID, err := parseUUIDParam(c, "integrationID")
	if err != nil {
		h.NotFound(c, "Unknown integration")
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.PayloadTooLarge(c, "Webhook payload too large")
			return
		}
		h.BadRequest(c, "Failed to read request body")
		return
	}

	integ, err := h.integrationRepo.FindByID(c.Request.Context(), integrationID)
	if err != nil || integ.Platform != platform {
		// Same response as a bad signature so probing reveals nothing
		h.Unauthorized(c, "Webhook verification failed")
		return
	}

	if err := h.verifier.Verify(platform, integ.Credentials.WebhookSecret, c.Request.Header, body); err != nil {
		h.logger.Warn("Webhook signature rejected",
			zap.String("platform", string(platform)),
			zap.String("integration_id", integrationID.String()))
		h.Unauthorized(c, "Webhook verification failed")
		return
	}

	if !json.Valid(body) {
		h.BadRequest(c, "Malformed JSON payload")
		return
	}

	topic, externalEventID := deliveryMetadata(platform, c.Request.Header)

	result, err := h.webhookService.Receive(c.Request.Context(), integrationapp.ReceiveWebhookInput{
		IntegrationID:   integrationID,
		Topic:           topic,
		ExternalEventID: externalEventID,
		Payload:         body,
	})
	if err != nil {
		var domainErr *shared.DomainError
		if errors.As(err, &domainErr) && domainErr.Code == "INTEGRATION_NOT_FOUND" {
			h.Unauthorized(c, "Webhook verification failed")
			return
		}
		h.HandleDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewSuccessResponse(WebhookAckResponse{
		Received:  true,
		Duplicate: result.Duplicate,
	}))
}

// deliveryMetadata extracts the topic and delivery ID from the platform's
// webhook headers
func deliveryMetadata(platform integration.Platform, header http.Header) (topic, externalEventID string) {
	switch platform {
	case integration.PlatformShopify:
		return header.Get("X-Shopify-Topic"), header.Get("X-Shopify-Webhook-Id")
	case integration.PlatformWooCommerce:
		return header.Get("X-WC-Webhook-Topic"), header.Get("X-WC-Webhook-Delivery-ID")
	case integration.PlatformNetSuite:
		return header.Get("X-NS-Topic"), header.Get("X-NS-Event-Id")
	}
	return "", ""
}
