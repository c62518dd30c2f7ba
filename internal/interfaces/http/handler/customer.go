package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	customerapp "github.com/truthsource/backend/internal/application/customer"
	"github.com/truthsource/backend/internal/domain/customer"
	"github.com/truthsource/backend/internal/interfaces/http/middleware"
)

// CustomerHandler handles B2B customer API endpoints
type CustomerHandler struct {
	BaseHandler
	customerService *customerapp.Service
}

// NewCustomerHandler creates a new CustomerHandler
func NewCustomerHandler(customerService *customerapp.Service) *CustomerHandler {
	return &CustomerHandler{customerService: customerService}
}

// RegisterRoutes registers customer routes
func (h *CustomerHandler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/customers")
	group.GET("", h.List)
	group.GET("/:id", h.Get)

	write := group.Group("", middleware.RequireWriteAccess())
	write.POST("", h.Create)
	write.PUT("/:id", h.Update)
	write.PUT("/:id/tier", h.ChangeTier)
	write.POST("/:id/deactivate", h.Deactivate)
	write.POST("/:id/activate", h.Activate)
}

// CreateCustomerRequest represents a request to create a customer
type CreateCustomerRequest struct {
	Code         string `json:"code" binding:"required,min=1,max=50" example:"CUST-0042"`
	CompanyName  string `json:"company_name" binding:"required,min=1,max=300"`
	ContactName  string `json:"contact_name" binding:"max=200"`
	ContactEmail string `json:"contact_email" binding:"omitempty,email"`
	Phone        string `json:"phone" binding:"max=50"`
	Tier         string `json:"tier" binding:"omitempty,oneof=standard silver gold platinum"`
	Notes        string `json:"notes" binding:"max=5000"`
}

// UpdateCustomerRequest represents a request to update a customer
type UpdateCustomerRequest struct {
	CompanyName  string  `json:"company_name" binding:"required,min=1,max=300"`
	ContactName  string  `json:"contact_name" binding:"max=200"`
	ContactEmail string  `json:"contact_email" binding:"omitempty,email"`
	Phone        string  `json:"phone" binding:"max=50"`
	Notes        *string `json:"notes" binding:"omitempty,max=5000"`
}

// ChangeTierRequest represents a pricing tier change
type ChangeTierRequest struct {
	Tier string `json:"tier" binding:"required,oneof=standard silver gold platinum"`
}

// CustomerResponse represents a customer in API responses
type CustomerResponse struct {
	ID           string    `json:"id"`
	OrgID        string    `json:"org_id"`
	Code         string    `json:"code"`
	CompanyName  string    `json:"company_name"`
	ContactName  string    `json:"contact_name,omitempty"`
	ContactEmail string    `json:"contact_email,omitempty"`
	Phone        string    `json:"phone,omitempty"`
	Tier         string    `json:"tier"`
	Status       string    `json:"status"`
	Notes        string    `json:"notes,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

func toCustomerResponse(cu customerapp.CustomerInfo) CustomerResponse {
	return CustomerResponse{
		ID:           cu.ID.String(),
		OrgID:        cu.OrgID.String(),
		Code:         cu.Code,
		CompanyName:  cu.CompanyName,
		ContactName:  cu.ContactName,
		ContactEmail: cu.ContactEmail,
		Phone:        cu.Phone,
		Tier:         string(cu.Tier),
		Status:       string(cu.Status),
		Notes:        cu.Notes,
		CreatedAt:    cu.CreatedAt,
	}
}

// Create godoc
// @Summary      Create a customer
// @Tags         customers
// @Accept       json
// @Produce      json
// @Param        request body CreateCustomerRequest true "Customer"
// @Success      201 {object} APIResponse[CustomerResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /customers [post]
func (h *CustomerHandler) Create(c *gin.Context) {
	orgID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req CreateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	tier := customer.TierStandard
	if req.Tier != "" {
		tier = customer.Tier(req.Tier)
	}

	created, err := h.customerService.Create(c.Request.Context(), customerapp.CreateCustomerInput{
		OrgID:        orgID,
		Code:         req.Code,
		CompanyName:  req.CompanyName,
		ContactName:  req.ContactName,
		ContactEmail: req.ContactEmail,
		Phone:        req.Phone,
		Tier:         tier,
		Notes:        req.Notes,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, toCustomerResponse(*created))
}

// Get godoc
// @Summary      Get a customer
// @Tags         customers
// @Produce      json
// @Param        id path string true "Customer ID" format(uuid)
// @Success      200 {object} APIResponse[CustomerResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /customers/{id} [get]
func (h *CustomerHandler) Get(c *gin.Context) {
	orgID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	customerID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid customer ID")
		return
	}

	found, err := h.customerService.Get(c.Request.Context(), orgID, customerID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toCustomerResponse(*found))
}

// List godoc
// @Summary      List customers
// @Tags         customers
// @Produce      json
// @Param        page query int false "Page number"
// @Param        page_size query int false "Page size"
// @Param        search query string false "Search by code or company name"
// @Success      200 {object} APIResponse[[]CustomerResponse]
// @Security     BearerAuth
// @Router       /customers [get]
func (h *CustomerHandler) List(c *gin.Context) {
	orgID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	filter := parseFilter(c)
	if tier := c.Query("tier"); tier != "" {
		filter.Filters["tier"] = tier
	}

	page, err := h.customerService.List(c.Request.Context(), orgID, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	customers := make([]CustomerResponse, 0, len(page.Items))
	for _, cu := range page.Items {
		customers = append(customers, toCustomerResponse(cu))
	}
	h.Paginated(c, customers, page.Total, filter)
}

// Update godoc
// @Summary      Update a customer
// @Tags         customers
// @Accept       json
// @Produce      json
// @Param        id path string true "Customer ID" format(uuid)
// @Param        request body UpdateCustomerRequest true "Update"
// @Success      200 {object} APIResponse[CustomerResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /customers/{id} [put]
func (h *CustomerHandler) Update(c *gin.Context) {
	orgID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	customerID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid customer ID")
		return
	}

	var req UpdateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	updated, err := h.customerService.Update(c.Request.Context(), customerapp.UpdateCustomerInput{
		OrgID:        orgID,
		CustomerID:   customerID,
		CompanyName:  req.CompanyName,
		ContactName:  req.ContactName,
		ContactEmail: req.ContactEmail,
		Phone:        req.Phone,
		Notes:        req.Notes,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toCustomerResponse(*updated))
}

// ChangeTier godoc
// @Summary      Change a customer's pricing tier
// @Tags         customers
// @Accept       json
// @Produce      json
// @Param        id path string true "Customer ID" format(uuid)
// @Param        request body ChangeTierRequest true "Tier"
// @Success      200 {object} APIResponse[CustomerResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /customers/{id}/tier [put]
func (h *CustomerHandler) ChangeTier(c *gin.Context) {
	orgID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	customerID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid customer ID")
		return
	}

	var req ChangeTierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	updated, err := h.customerService.ChangeTier(c.Request.Context(), orgID, customerID, customer.Tier(req.Tier))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toCustomerResponse(*updated))
}

// Deactivate godoc
// @Summary      Deactivate a customer
// @Tags         customers
// @Param        id path string true "Customer ID" format(uuid)
// @Success      204
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /customers/{id}/deactivate [post]
func (h *CustomerHandler) Deactivate(c *gin.Context) {
	h.toggle(c, h.customerService.Deactivate)
}

// Activate godoc
// @Summary      Reactivate a customer
// @Tags         customers
// @Param        id path string true "Customer ID" format(uuid)
// @Success      204
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /customers/{id}/activate [post]
func (h *CustomerHandler) Activate(c *gin.Context) {
	h.toggle(c, h.customerService.Activate)
}

func (h *CustomerHandler) toggle(c *gin.Context, fn func(ctx context.Context, orgID, customerID uuid.UUID) error) {
	orgID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	customerID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid customer ID")
		return
	}

	if err := fn(c.Request.Context(), orgID, customerID); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}
