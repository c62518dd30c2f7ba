package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	pricingapp "github.com/truthsource/backend/internal/application/pricing"
	"github.com/truthsource/backend/internal/domain/customer"
	"github.com/truthsource/backend/internal/domain/pricing"
	"github.com/truthsource/backend/internal/interfaces/http/middleware"
)

// PricingHandler handles dynamic pricing API endpoints
type PricingHandler struct {
	BaseHandler
	pricingService *pricingapp.Service
}

// NewPricingHandler creates a new PricingHandler
func NewPricingHandler(pricingService *pricingapp.Service) *PricingHandler {
	return &PricingHandler{pricingService: pricingService}
}

// RegisterRoutes registers pricing routes
func (h *PricingHandler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/pricing")
	group.POST("/quote", h.Quote)
	group.GET("/rules", h.ListRules)
	group.GET("/rules/:id", h.GetRule)

	write := group.Group("", middleware.RequireWriteAccess())
	write.POST("/rules", h.CreateRule)
	write.PUT("/rules/:id", h.UpdateRule)
	write.POST("/rules/:id/enable", h.EnableRule)
	write.POST("/rules/:id/disable", h.DisableRule)
	write.POST("/rules/:id/reorder", h.ReorderRule)
	write.DELETE("/rules/:id", h.DeleteRule)
}

// RuleConditionsRequest represents pricing rule conditions
type RuleConditionsRequest struct {
	MinInventory *int64     `json:"min_inventory" binding:"omitempty,min=0"`
	MaxInventory *int64     `json:"max_inventory" binding:"omitempty,min=0"`
	MinQuantity  *int64     `json:"min_quantity" binding:"omitempty,min=1"`
	CustomerTier *string    `json:"customer_tier" binding:"omitempty,oneof=standard silver gold platinum"`
	StartsAt     *time.Time `json:"starts_at"`
	EndsAt       *time.Time `json:"ends_at"`
}

// CreateRuleRequest represents a request to create a pricing rule
type CreateRuleRequest struct {
	Name              string                `json:"name" binding:"required,min=1,max=200"`
	Type              string                `json:"type" binding:"required,oneof=inventory_level quantity_break customer_tier date_window"`
	Priority          int                   `json:"priority" binding:"min=0"`
	AdjustmentPercent float64               `json:"adjustment_percent" binding:"required"`
	CategoryID        *string               `json:"category_id" binding:"omitempty,uuid"`
	ProductID         *string               `json:"product_id" binding:"omitempty,uuid"`
	Conditions        RuleConditionsRequest `json:"conditions"`
}

// UpdateRuleRequest represents a request to update a pricing rule
type UpdateRuleRequest struct {
	Name              string                `json:"name" binding:"required,min=1,max=200"`
	AdjustmentPercent float64               `json:"adjustment_percent" binding:"required"`
	Priority          *int                  `json:"priority" binding:"omitempty,min=0"`
	CategoryID        *string               `json:"category_id" binding:"omitempty,uuid"`
	ProductID         *string               `json:"product_id" binding:"omitempty,uuid"`
	Conditions        RuleConditionsRequest `json:"conditions"`
}

// QuoteRequest represents a price calculation request. At lets callers
// dry-run a quote as of a specific time; empty means now.
type QuoteRequest struct {
	ProductID  string     `json:"product_id" binding:"required,uuid"`
	Quantity   int64      `json:"quantity" binding:"required,min=1"`
	CustomerID *string    `json:"customer_id" binding:"omitempty,uuid"`
	At         *time.Time `json:"at"`
}

// ReorderRuleRequest names the rule to swap evaluation positions with
type ReorderRuleRequest struct {
	SwapWith string `json:"swap_with" binding:"required,uuid"`
}

// RuleResponse represents a pricing rule in API responses
type RuleResponse struct {
	ID                string             `json:"id"`
	Name              string             `json:"name"`
	Type              string             `json:"type"`
	Priority          int                `json:"priority"`
	AdjustmentPercent string             `json:"adjustment_percent"`
	Active            bool               `json:"active"`
	CategoryID        *string            `json:"category_id,omitempty"`
	ProductID         *string            `json:"product_id,omitempty"`
	Conditions        pricing.Conditions `json:"conditions"`
	CreatedAt         time.Time          `json:"created_at"`
}

func toRuleResponse(r pricingapp.RuleInfo) RuleResponse {
	resp := RuleResponse{
		ID:                r.ID.String(),
		Name:              r.Name,
		Type:              string(r.Type),
		Priority:          r.Priority,
		AdjustmentPercent: r.AdjustmentPercent.String(),
		Active:            r.Active,
		Conditions:        r.Conditions,
		CreatedAt:         r.CreatedAt,
	}
	if r.CategoryID != nil {
		id := r.CategoryID.String()
		resp.CategoryID = &id
	}
	if r.ProductID != nil {
		id := r.ProductID.String()
		resp.ProductID = &id
	}
	return resp
}

func (r RuleConditionsRequest) toDomain() pricing.Conditions {
	cond := pricing.Conditions{
		MinInventory: r.MinInventory,
		MaxInventory: r.MaxInventory,
		MinQuantity:  r.MinQuantity,
		StartsAt:     r.StartsAt,
		EndsAt:       r.EndsAt,
	}
	if r.CustomerTier != nil {
		tier := customer.Tier(*r.CustomerTier)
		cond.CustomerTier = &tier
	}
	return cond
}

// Quote godoc
// @Summary      Calculate a price
// @Description  Evaluate active pricing rules and return the effective unit price
// @Tags         pricing
// @Accept       json
// @Produce      json
// @Param        request body QuoteRequest true "Quote request"
// @Success      200 {object} APIResponse[pricing.Quote]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /pricing/quote [post]
func (h *PricingHandler) Quote(c *gin.Context) {
	orgID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		h.BadRequest(c, "Invalid product ID")
		return
	}

	input := pricingapp.CalculatePriceInput{
		OrgID:     orgID,
		ProductID: productID,
		Quantity:  req.Quantity,
		At:        req.At,
	}
	if req.CustomerID != nil && *req.CustomerID != "" {
		customerID, err := uuid.Parse(*req.CustomerID)
		if err != nil {
			h.BadRequest(c, "Invalid customer ID")
			return
		}
		input.CustomerID = &customerID
	}

	quote, err := h.pricingService.CalculatePrice(c.Request.Context(), input)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, quote)
}

// CreateRule godoc
// @Summary      Create a pricing rule
// @Tags         pricing
// @Accept       json
// @Produce      json
// @Param        request body CreateRuleRequest true "Rule"
// @Success      201 {object} APIResponse[RuleResponse]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /pricing/rules [post]
func (h *PricingHandler) CreateRule(c *gin.Context) {
	orgID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req CreateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	input := pricingapp.CreateRuleInput{
		OrgID:             orgID,
		Name:              req.Name,
		Type:              pricing.RuleType(req.Type),
		Priority:          req.Priority,
		AdjustmentPercent: toDecimal(req.AdjustmentPercent),
		Conditions:        req.Conditions.toDomain(),
	}
	if err := parseOptionalUUID(req.CategoryID, &input.CategoryID); err != nil {
		h.BadRequest(c, "Invalid category ID")
		return
	}
	if err := parseOptionalUUID(req.ProductID, &input.ProductID); err != nil {
		h.BadRequest(c, "Invalid product ID")
		return
	}

	rule, err := h.pricingService.CreateRule(c.Request.Context(), input)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, toRuleResponse(*rule))
}

// ListRules godoc
// @Summary      List pricing rules
// @Tags         pricing
// @Produce      json
// @Success      200 {object} APIResponse[[]RuleResponse]
// @Security     BearerAuth
// @Router       /pricing/rules [get]
func (h *PricingHandler) ListRules(c *gin.Context) {
	orgID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	filter := parseFilter(c)
	page, err := h.pricingService.ListRules(c.Request.Context(), orgID, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	rules := make([]RuleResponse, 0, len(page.Items))
	for _, r := range page.Items {
		rules = append(rules, toRuleResponse(r))
	}
	h.Paginated(c, rules, page.Total, filter)
}

// GetRule godoc
// @Summary      Get a pricing rule
// @Tags         pricing
// @Produce      json
// @Param        id path string true "Rule ID" format(uuid)
// @Success      200 {object} APIResponse[RuleResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /pricing/rules/{id} [get]
func (h *PricingHandler) GetRule(c *gin.Context) {
	orgID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	ruleID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid rule ID")
		return
	}

	rule, err := h.pricingService.GetRule(c.Request.Context(), orgID, ruleID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toRuleResponse(*rule))
}

// UpdateRule godoc
// @Summary      Update a pricing rule
// @Tags         pricing
// @Accept       json
// @Produce      json
// @Param        id path string true "Rule ID" format(uuid)
// @Param        request body UpdateRuleRequest true "Update"
// @Success      200 {object} APIResponse[RuleResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /pricing/rules/{id} [put]
func (h *PricingHandler) UpdateRule(c *gin.Context) {
	orgID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	ruleID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid rule ID")
		return
	}

	var req UpdateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	input := pricingapp.UpdateRuleInput{
		OrgID:             orgID,
		RuleID:            ruleID,
		Name:              req.Name,
		AdjustmentPercent: toDecimal(req.AdjustmentPercent),
		Conditions:        req.Conditions.toDomain(),
		Priority:          req.Priority,
	}
	if err := parseOptionalUUID(req.CategoryID, &input.CategoryID); err != nil {
		h.BadRequest(c, "Invalid category ID")
		return
	}
	if err := parseOptionalUUID(req.ProductID, &input.ProductID); err != nil {
		h.BadRequest(c, "Invalid product ID")
		return
	}

	rule, err := h.pricingService.UpdateRule(c.Request.Context(), input)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toRuleResponse(*rule))
}

// EnableRule godoc
// @Summary      Enable a pricing rule
// @Tags         pricing
// @Param        id path string true "Rule ID" format(uuid)
// @Success      204
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /pricing/rules/{id}/enable [post]
func (h *PricingHandler) EnableRule(c *gin.Context) {
	h.mutateRule(c, h.pricingService.EnableRule)
}

// DisableRule godoc
// @Summary      Disable a pricing rule
// @Tags         pricing
// @Param        id path string true "Rule ID" format(uuid)
// @Success      204
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /pricing/rules/{id}/disable [post]
func (h *PricingHandler) DisableRule(c *gin.Context) {
	h.mutateRule(c, h.pricingService.DisableRule)
}

// ReorderRule godoc
// @Summary      Swap two rules' evaluation positions
// @Tags         pricing
// @Accept       json
// @Param        id path string true "Rule ID" format(uuid)
// @Param        request body ReorderRuleRequest true "Swap target"
// @Success      204
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /pricing/rules/{id}/reorder [post]
func (h *PricingHandler) ReorderRule(c *gin.Context) {
	orgID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	ruleID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid rule ID")
		return
	}

	var req ReorderRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	swapWithID, err := uuid.Parse(req.SwapWith)
	if err != nil {
		h.BadRequest(c, "Invalid rule ID")
		return
	}

	if err := h.pricingService.ReorderRules(c.Request.Context(), orgID, ruleID, swapWithID); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}

// DeleteRule godoc
// @Summary      Delete a pricing rule
// @Tags         pricing
// @Param        id path string true "Rule ID" format(uuid)
// @Success      204
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /pricing/rules/{id} [delete]
func (h *PricingHandler) DeleteRule(c *gin.Context) {
	h.mutateRule(c, h.pricingService.DeleteRule)
}

func (h *PricingHandler) mutateRule(c *gin.Context, fn func(ctx context.Context, orgID, ruleID uuid.UUID) error) {
	orgID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	ruleID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid rule ID")
		return
	}

	if err := fn(c.Request.Context(), orgID, ruleID); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}
