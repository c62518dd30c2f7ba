package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	catalogapp "github.com/truthsource/backend/internal/application/catalog"
	"github.com/truthsource/backend/internal/interfaces/http/middleware"
)

// CategoryHandler handles product category API endpoints
type CategoryHandler struct {
	BaseHandler
	categoryService *catalogapp.CategoryService
}

// NewCategoryHandler creates a new CategoryHandler
func NewCategoryHandler(categoryService *catalogapp.CategoryService) *CategoryHandler {
	return &CategoryHandler{categoryService: categoryService}
}

// RegisterRoutes registers category routes
func (h *CategoryHandler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/catalog/categories")
	group.GET("", h.List)

	write := group.Group("", middleware.RequireWriteAccess())
	write.POST("", h.Create)
	write.PUT("/:id", h.Update)
	write.DELETE("/:id", h.Delete)
}

// CreateCategoryRequest represents a request to create a category
type CreateCategoryRequest struct {
	Name        string `json:"name" binding:"required,min=1,max=200"`
	Description string `json:"description" binding:"max=2000"`
	SortOrder   int    `json:"sort_order"`
}

// UpdateCategoryRequest represents a request to update a category
type UpdateCategoryRequest struct {
	Name        string `json:"name" binding:"required,min=1,max=200"`
	Description string `json:"description" binding:"max=2000"`
	SortOrder   *int   `json:"sort_order"`
}

// CategoryResponse represents a category in API responses
type CategoryResponse struct {
	ID          string    `json:"id"`
	OrgID       string    `json:"org_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	SortOrder   int       `json:"sort_order"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

func toCategoryResponse(cat catalogapp.CategoryInfo) CategoryResponse {
	return CategoryResponse{
		ID:          cat.ID.String(),
		OrgID:       cat.OrgID.String(),
		Name:        cat.Name,
		Description: cat.Description,
		SortOrder:   cat.SortOrder,
		Status:      string(cat.Status),
		CreatedAt:   cat.CreatedAt,
	}
}

// Create godoc
// @Summary      Create a category
// @Tags         categories
// @Accept       json
// @Produce      json
// @Param        request body CreateCategoryRequest true "Category"
// @Success      201 {object} APIResponse[CategoryResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /catalog/categories [post]
func (h *CategoryHandler) Create(c *gin.Context) {
	orgID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	category, err := h.categoryService.Create(c.Request.Context(), catalogapp.CreateCategoryInput{
		OrgID:       orgID,
		Name:        req.Name,
		Description: req.Description,
		SortOrder:   req.SortOrder,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, toCategoryResponse(*category))
}

// List godoc
// @Summary      List categories
// @Tags         categories
// @Produce      json
// @Success      200 {object} APIResponse[[]CategoryResponse]
// @Security     BearerAuth
// @Router       /catalog/categories [get]
func (h *CategoryHandler) List(c *gin.Context) {
	orgID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	filter := parseFilter(c)
	page, err := h.categoryService.List(c.Request.Context(), orgID, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	categories := make([]CategoryResponse, 0, len(page.Items))
	for _, cat := range page.Items {
		categories = append(categories, toCategoryResponse(cat))
	}
	h.Paginated(c, categories, page.Total, filter)
}

// Update godoc
// @Summary      Update a category
// @Tags         categories
// @Accept       json
// @Produce      json
// @Param        id path string true "Category ID" format(uuid)
// @Param        request body UpdateCategoryRequest true "Update"
// @Success      200 {object} APIResponse[CategoryResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /catalog/categories/{id} [put]
func (h *CategoryHandler) Update(c *gin.Context) {
	orgID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	categoryID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid category ID")
		return
	}

	var req UpdateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	category, err := h.categoryService.Update(c.Request.Context(), catalogapp.UpdateCategoryInput{
		OrgID:       orgID,
		CategoryID:  categoryID,
		Name:        req.Name,
		Description: req.Description,
		SortOrder:   req.SortOrder,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toCategoryResponse(*category))
}

// Delete godoc
// @Summary      Delete a category
// @Tags         categories
// @Param        id path string true "Category ID" format(uuid)
// @Success      204
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /catalog/categories/{id} [delete]
func (h *CategoryHandler) Delete(c *gin.Context) {
	orgID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	categoryID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid category ID")
		return
	}

	if err := h.categoryService.Delete(c.Request.Context(), orgID, categoryID); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}
