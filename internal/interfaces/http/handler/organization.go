package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	identityapp "github.com/truthsource/backend/internal/application/identity"
	"github.com/truthsource/backend/internal/domain/identity"
	"github.com/truthsource/backend/internal/interfaces/http/middleware"
)

// OrganizationHandler handles organization API endpoints
type OrganizationHandler struct {
	BaseHandler
	orgService *identityapp.OrganizationService
}

// NewOrganizationHandler creates a new OrganizationHandler
func NewOrganizationHandler(orgService *identityapp.OrganizationService) *OrganizationHandler {
	return &OrganizationHandler{orgService: orgService}
}

// RegisterRoutes registers organization routes
func (h *OrganizationHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/organizations/register", h.Register)

	group := rg.Group("/organizations")
	group.GET("/me", h.Get)
	group.PUT("/me", middleware.RequireRole(identity.RoleAdmin), h.Update)
	group.PUT("/me/settings", middleware.RequireRole(identity.RoleAdmin), h.UpdateSettings)
}

// RegisterOrganizationRequest represents an organization signup request
type RegisterOrganizationRequest struct {
	OrgSlug      string `json:"org_slug" binding:"required,min=3,max=50" example:"acme-wholesale"`
	OrgName      string `json:"org_name" binding:"required,min=1,max=200" example:"Acme Wholesale"`
	ContactEmail string `json:"contact_email" binding:"omitempty,email" example:"billing@acme.com"`
	AdminEmail   string `json:"admin_email" binding:"required,email" example:"owner@acme.com"`
	AdminName    string `json:"admin_name" binding:"required,min=1,max=200" example:"Jo Acme"`
	Password     string `json:"password" binding:"required,min=8"`
}

// UpdateOrganizationRequest represents an organization profile update
type UpdateOrganizationRequest struct {
	Name         string `json:"name" binding:"required,min=1,max=200"`
	ContactEmail string `json:"contact_email" binding:"omitempty,email"`
}

// UpdateSettingsRequest represents an organization settings update
type UpdateSettingsRequest struct {
	Currency          string `json:"currency" binding:"required,len=3" example:"USD"`
	Timezone          string `json:"timezone" binding:"required" example:"America/New_York"`
	LowStockThreshold int    `json:"low_stock_threshold" binding:"min=0"`
	SyncPaused        bool   `json:"sync_paused"`
	Settings          string `json:"settings"`
}

// OrganizationResponse represents an organization in API responses
type OrganizationResponse struct {
	ID          string                        `json:"id"`
	Slug        string                        `json:"slug"`
	Name        string                        `json:"name"`
	PlanCode    string                        `json:"plan_code"`
	Status      string                        `json:"status"`
	TrialEndsAt *time.Time                    `json:"trial_ends_at,omitempty"`
	Settings    identity.OrganizationSettings `json:"settings"`
	CreatedAt   time.Time                     `json:"created_at"`
}

// RegisterOrganizationResponse represents a completed signup
type RegisterOrganizationResponse struct {
	Organization OrganizationResponse `json:"organization"`
	User         UserResponse         `json:"user"`
	Tokens       TokenResponse        `json:"tokens"`
}

func toOrganizationResponse(o identityapp.OrganizationInfo) OrganizationResponse {
	return OrganizationResponse{
		ID:          o.ID.String(),
		Slug:        o.Slug,
		Name:        o.Name,
		PlanCode:    o.PlanCode,
		Status:      string(o.Status),
		TrialEndsAt: o.TrialEndsAt,
		Settings:    o.Settings,
		CreatedAt:   o.CreatedAt,
	}
}

// Register godoc
// @Summary      Register an organization
// @Description  Create a new organization with its first admin user and log them in
// @Tags         organizations
// @Accept       json
// @Produce      json
// @Param        request body RegisterOrganizationRequest true "Signup request"
// @Success      201 {object} APIResponse[RegisterOrganizationResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Router       /organizations/register [post]
func (h *OrganizationHandler) Register(c *gin.Context) {
	var req RegisterOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.orgService.Register(c.Request.Context(), identityapp.RegisterInput{
		OrgSlug:      req.OrgSlug,
		OrgName:      req.OrgName,
		ContactEmail: req.ContactEmail,
		AdminEmail:   req.AdminEmail,
		AdminName:    req.AdminName,
		Password:     req.Password,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, RegisterOrganizationResponse{
		Organization: toOrganizationResponse(result.Organization),
		User:         toUserResponse(result.User),
		Tokens:       toTokenResponse(result.Tokens),
	})
}

// Get godoc
// @Summary      Get current organization
// @Tags         organizations
// @Produce      json
// @Success      200 {object} APIResponse[OrganizationResponse]
// @Failure      401 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /organizations/me [get]
func (h *OrganizationHandler) Get(c *gin.Context) {
	orgID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	org, err := h.orgService.Get(c.Request.Context(), orgID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toOrganizationResponse(*org))
}

// Update godoc
// @Summary      Update organization profile
// @Tags         organizations
// @Accept       json
// @Produce      json
// @Param        request body UpdateOrganizationRequest true "Update request"
// @Success      200 {object} APIResponse[OrganizationResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /organizations/me [put]
func (h *OrganizationHandler) Update(c *gin.Context) {
	orgID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req UpdateOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	org, err := h.orgService.Update(c.Request.Context(), identityapp.UpdateOrganizationInput{
		OrgID:        orgID,
		Name:         req.Name,
		ContactEmail: req.ContactEmail,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toOrganizationResponse(*org))
}

// UpdateSettings godoc
// @Summary      Update organization settings
// @Tags         organizations
// @Accept       json
// @Produce      json
// @Param        request body UpdateSettingsRequest true "Settings"
// @Success      200 {object} APIResponse[OrganizationResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /organizations/me/settings [put]
func (h *OrganizationHandler) UpdateSettings(c *gin.Context) {
	orgID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	org, err := h.orgService.UpdateSettings(c.Request.Context(), orgID, identity.OrganizationSettings{
		Currency:          req.Currency,
		Timezone:          req.Timezone,
		LowStockThreshold: req.LowStockThreshold,
		SyncPaused:        req.SyncPaused,
		Settings:          req.Settings,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toOrganizationResponse(*org))
}
