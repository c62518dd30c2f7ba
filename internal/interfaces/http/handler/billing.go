package handler

import (
	"github.com/gin-gonic/gin"

	billingapp "github.com/truthsource/backend/internal/application/billing"
	"github.com/truthsource/backend/internal/domain/billing"
	"github.com/truthsource/backend/internal/domain/identity"
	"github.com/truthsource/backend/internal/interfaces/http/middleware"
)

// BillingHandler handles subscription and plan API endpoints
type BillingHandler struct {
	BaseHandler
	subscriptionService *billingapp.SubscriptionService
}

// NewBillingHandler creates a new BillingHandler
func NewBillingHandler(subscriptionService *billingapp.SubscriptionService) *BillingHandler {
	return &BillingHandler{subscriptionService: subscriptionService}
}

// RegisterRoutes registers billing routes
func (h *BillingHandler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/billing")
	group.GET("/plans", h.Plans)
	group.GET("/subscription", h.GetSubscription)

	admin := group.Group("", middleware.RequireRole(identity.RoleAdmin))
	admin.PUT("/subscription/plan", h.ChangePlan)
	admin.POST("/subscription/cancel", h.Cancel)
	admin.POST("/checkout-session", h.CreateCheckoutSession)
	admin.POST("/portal-session", h.CreatePortalSession)
}

// ChangePlanRequest represents a plan change request
type ChangePlanRequest struct {
	PlanCode string `json:"plan_code" binding:"required,oneof=starter growth scale"`
}

// SessionResponse carries the URL of a hosted Stripe page
type SessionResponse struct {
	URL string `json:"url"`
}

// Plans godoc
// @Summary      List subscription plans
// @Tags         billing
// @Produce      json
// @Success      200 {object} APIResponse[[]billingapp.PlanInfo]
// @Security     BearerAuth
// @Router       /billing/plans [get]
func (h *BillingHandler) Plans(c *gin.Context) {
	h.Success(c, h.subscriptionService.Plans())
}

// GetSubscription godoc
// @Summary      Get the organization's subscription
// @Description  Returns the current plan, status, and metered usage against quotas
// @Tags         billing
// @Produce      json
// @Success      200 {object} APIResponse[billingapp.SubscriptionInfo]
// @Failure      401 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /billing/subscription [get]
func (h *BillingHandler) GetSubscription(c *gin.Context) {
	orgID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	sub, err := h.subscriptionService.Get(c.Request.Context(), orgID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, sub)
}

// ChangePlan godoc
// @Summary      Change the subscription plan
// @Tags         billing
// @Accept       json
// @Produce      json
// @Param        request body ChangePlanRequest true "Plan"
// @Success      204
// @Failure      400 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /billing/subscription/plan [put]
func (h *BillingHandler) ChangePlan(c *gin.Context) {
	orgID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req ChangePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	if err := h.subscriptionService.ChangePlan(c.Request.Context(), orgID, billing.PlanCode(req.PlanCode)); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}

// CreateCheckoutSession godoc
// @Summary      Start a hosted checkout for a plan
// @Tags         billing
// @Accept       json
// @Produce      json
// @Param        request body ChangePlanRequest true "Plan"
// @Success      200 {object} APIResponse[SessionResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /billing/checkout-session [post]
func (h *BillingHandler) CreateCheckoutSession(c *gin.Context) {
	orgID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req ChangePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	url, err := h.subscriptionService.CreateCheckoutSession(c.Request.Context(), orgID, billing.PlanCode(req.PlanCode))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, SessionResponse{URL: url})
}

// CreatePortalSession godoc
// @Summary      Open the billing portal
// @Description  Returns the URL of a hosted page for managing payment methods and invoices
// @Tags         billing
// @Produce      json
// @Success      200 {object} APIResponse[SessionResponse]
// @Failure      401 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /billing/portal-session [post]
func (h *BillingHandler) CreatePortalSession(c *gin.Context) {
	orgID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	url, err := h.subscriptionService.CreatePortalSession(c.Request.Context(), orgID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, SessionResponse{URL: url})
}

// Cancel godoc
// @Summary      Cancel the subscription
// @Description  Downgrade to the starter plan at the end of the current period
// @Tags         billing
// @Success      204
// @Failure      401 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /billing/subscription/cancel [post]
func (h *BillingHandler) Cancel(c *gin.Context) {
	orgID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	if err := h.subscriptionService.Cancel(c.Request.Context(), orgID); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}
