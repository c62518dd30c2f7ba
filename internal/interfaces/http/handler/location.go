package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	inventoryapp "github.com/truthsource/backend/internal/application/inventory"
	"github.com/truthsource/backend/internal/domain/inventory"
	"github.com/truthsource/backend/internal/interfaces/http/middleware"
)

// LocationHandler handles stock location API endpoints
type LocationHandler struct {
	BaseHandler
	locationService *inventoryapp.LocationService
}

// NewLocationHandler creates a new LocationHandler
func NewLocationHandler(locationService *inventoryapp.LocationService) *LocationHandler {
	return &LocationHandler{locationService: locationService}
}

// RegisterRoutes registers location routes
func (h *LocationHandler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/inventory/locations")
	group.GET("", h.List)
	group.GET("/:id", h.Get)

	write := group.Group("", middleware.RequireWriteAccess())
	write.POST("", h.Create)
	write.PUT("/:id", h.Update)
	write.POST("/:id/deactivate", h.Deactivate)
	write.POST("/:id/activate", h.Activate)
}

// CreateLocationRequest represents a request to create a location
type CreateLocationRequest struct {
	Code    string `json:"code" binding:"required,min=1,max=50" example:"WH-EAST"`
	Name    string `json:"name" binding:"required,min=1,max=200" example:"East coast warehouse"`
	Type    string `json:"type" binding:"required,oneof=warehouse store virtual"`
	Address string `json:"address" binding:"max=500"`
}

// UpdateLocationRequest represents a request to update a location
type UpdateLocationRequest struct {
	Name    string `json:"name" binding:"required,min=1,max=200"`
	Address string `json:"address" binding:"max=500"`
}

// LocationResponse represents a location in API responses
type LocationResponse struct {
	ID        string    `json:"id"`
	OrgID     string    `json:"org_id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Address   string    `json:"address,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

func toLocationResponse(l inventoryapp.LocationInfo) LocationResponse {
	return LocationResponse{
		ID:        l.ID.String(),
		OrgID:     l.OrgID.String(),
		Code:      l.Code,
		Name:      l.Name,
		Type:      string(l.Type),
		Address:   l.Address,
		Active:    l.Active,
		CreatedAt: l.CreatedAt,
	}
}

// Create godoc
// @Summary      Create a location
// @Tags         locations
// @Accept       json
// @Produce      json
// @Param        request body CreateLocationRequest true "Location"
// @Success      201 {object} APIResponse[LocationResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /inventory/locations [post]
func (h *LocationHandler) Create(c *gin.Context) {
	orgID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req CreateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	location, err := h.locationService.Create(c.Request.Context(), inventoryapp.CreateLocationInput{
		OrgID:   orgID,
		Code:    req.Code,
		Name:    req.Name,
		Type:    inventory.LocationType(req.Type),
		Address: req.Address,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, toLocationResponse(*location))
}

// List godoc
// @Summary      List locations
// @Tags         locations
// @Produce      json
// @Success      200 {object} APIResponse[[]LocationResponse]
// @Security     BearerAuth
// @Router       /inventory/locations [get]
func (h *LocationHandler) List(c *gin.Context) {
	orgID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	filter := parseFilter(c)
	page, err := h.locationService.List(c.Request.Context(), orgID, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	locations := make([]LocationResponse, 0, len(page.Items))
	for _, l := range page.Items {
		locations = append(locations, toLocationResponse(l))
	}
	h.Paginated(c, locations, page.Total, filter)
}

// Get godoc
// @Summary      Get a location
// @Tags         locations
// @Produce      json
// @Param        id path string true "Location ID" format(uuid)
// @Success      200 {object} APIResponse[LocationResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /inventory/locations/{id} [get]
func (h *LocationHandler) Get(c *gin.Context) {
	orgID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	locationID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid location ID")
		return
	}

	location, err := h.locationService.Get(c.Request.Context(), orgID, locationID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toLocationResponse(*location))
}

// Update godoc
// @Summary      Update a location
// @Tags         locations
// @Accept       json
// @Produce      json
// @Param        id path string true "Location ID" format(uuid)
// @Param        request body UpdateLocationRequest true "Update"
// @Success      200 {object} APIResponse[LocationResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /inventory/locations/{id} [put]
func (h *LocationHandler) Update(c *gin.Context) {
	orgID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	locationID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid location ID")
		return
	}

	var req UpdateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	location, err := h.locationService.Update(c.Request.Context(), inventoryapp.UpdateLocationInput{
		OrgID:      orgID,
		LocationID: locationID,
		Name:       req.Name,
		Address:    req.Address,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toLocationResponse(*location))
}

// Deactivate godoc
// @Summary      Deactivate a location
// @Tags         locations
// @Param        id path string true "Location ID" format(uuid)
// @Success      204
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /inventory/locations/{id}/deactivate [post]
func (h *LocationHandler) Deactivate(c *gin.Context) {
	h.toggle(c, h.locationService.Deactivate)
}

// Activate godoc
// @Summary      Activate a location
// @Tags         locations
// @Param        id path string true "Location ID" format(uuid)
// @Success      204
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /inventory/locations/{id}/activate [post]
func (h *LocationHandler) Activate(c *gin.Context) {
	h.toggle(c, h.locationService.Activate)
}

func (h *LocationHandler) toggle(c *gin.Context, fn func(ctx context.Context, orgID, locationID uuid.UUID) error) {
	orgID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	locationID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid location ID")
		return
	}

	if err := fn(c.Request.Context(), orgID, locationID); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}
