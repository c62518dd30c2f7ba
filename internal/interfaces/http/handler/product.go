package handler

import (
	"context"
	"encoding/csv"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	catalogapp "github.com/truthsource/backend/internal/application/catalog"
	"github.com/truthsource/backend/internal/domain/shared"
	"github.com/truthsource/backend/internal/interfaces/http/middleware"
)

// ProductHandler handles product catalog API endpoints
type ProductHandler struct {
	BaseHandler
	productService *catalogapp.ProductService
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(productService *catalogapp.ProductService) *ProductHandler {
	return &ProductHandler{productService: productService}
}

// RegisterRoutes registers product routes
func (h *ProductHandler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/catalog/products")
	group.GET("", h.List)
	group.GET("/:id", h.Get)
	group.GET("/sku/:sku", h.GetBySKU)

	write := group.Group("", middleware.RequireWriteAccess())
	write.POST("", h.Create)
	write.PUT("/:id", h.Update)
	write.POST("/:id/activate", h.Activate)
	write.POST("/:id/archive", h.Archive)
	write.POST("/bulk-price", h.BulkUpdatePrice)
	write.DELETE("/:id", h.Delete)
}

// CreateProductRequest represents a request to create a product
type CreateProductRequest struct {
	SKU         string   `json:"sku" binding:"required,min=1,max=100" example:"WID-001"`
	Name        string   `json:"name" binding:"required,min=1,max=300" example:"Widget, blue"`
	Description string   `json:"description" binding:"max=5000"`
	Barcode     string   `json:"barcode" binding:"max=50"`
	CategoryID  *string  `json:"category_id" binding:"omitempty,uuid"`
	UnitPrice   float64  `json:"unit_price" binding:"min=0" example:"19.99"`
	Cost        float64  `json:"cost" binding:"min=0" example:"8.50"`
	Currency    string   `json:"currency" binding:"omitempty,len=3" example:"USD"`
	Weight      float64  `json:"weight" binding:"min=0"`
	Attributes  string   `json:"attributes"`
	Draft       bool     `json:"draft"`
}

// UpdateProductRequest represents a request to update a product. Absent
// fields keep their stored values; an empty category_id clears the category.
type UpdateProductRequest struct {
	Name        *string  `json:"name" binding:"omitempty,min=1,max=300"`
	Description *string  `json:"description" binding:"omitempty,max=5000"`
	Barcode     *string  `json:"barcode" binding:"omitempty,max=50"`
	CategoryID  *string  `json:"category_id"`
	UnitPrice   *float64 `json:"unit_price" binding:"omitempty,min=0"`
	Cost        *float64 `json:"cost" binding:"omitempty,min=0"`
	Currency    *string  `json:"currency" binding:"omitempty,len=3"`
	Weight      *float64 `json:"weight" binding:"omitempty,min=0"`
	Attributes  *string  `json:"attributes"`
}

// BulkPriceUpdateRequest reprices every product in a category. Exactly one
// of adjustment_percent or unit_price must be set.
type BulkPriceUpdateRequest struct {
	CategoryID        string   `json:"category_id" binding:"required,uuid"`
	AdjustmentPercent *float64 `json:"adjustment_percent"`
	UnitPrice         *float64 `json:"unit_price" binding:"omitempty,min=0"`
}

// BulkPriceUpdateResponse reports what a bulk price update touched
type BulkPriceUpdateResponse struct {
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

// ProductResponse represents a product in API responses
type ProductResponse struct {
	ID          string    `json:"id"`
	OrgID       string    `json:"org_id"`
	SKU         string    `json:"sku"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Barcode     string    `json:"barcode,omitempty"`
	CategoryID  *string   `json:"category_id,omitempty"`
	UnitPrice   string    `json:"unit_price"`
	Cost        string    `json:"cost"`
	Currency    string    `json:"currency"`
	Weight      string    `json:"weight"`
	Status      string    `json:"status"`
	Attributes  string    `json:"attributes,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toProductResponse(p catalogapp.ProductInfo) ProductResponse {
	resp := ProductResponse{
		ID:          p.ID.String(),
		OrgID:       p.OrgID.String(),
		SKU:         p.SKU,
		Name:        p.Name,
		Description: p.Description,
		Barcode:     p.Barcode,
		UnitPrice:   p.UnitPrice.String(),
		Cost:        p.Cost.String(),
		Currency:    p.Currency,
		Weight:      p.Weight.String(),
		Status:      string(p.Status),
		Attributes:  p.Attributes,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	if p.CategoryID != nil {
		id := p.CategoryID.String()
		resp.CategoryID = &id
	}
	return resp
}

// Create godoc
// @Summary      Create a product
// @Tags         products
// @Accept       json
// @Produce      json
// @Param        request body CreateProductRequest true "Product"
// @Success      201 {object} APIResponse[ProductResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /catalog/products [post]
func (h *ProductHandler) Create(c *gin.Context) {
	orgID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	input := catalogapp.CreateProductInput{
		OrgID:       orgID,
		SKU:         req.SKU,
		Name:        req.Name,
		Description: req.Description,
		Barcode:     req.Barcode,
		UnitPrice:   toDecimal(req.UnitPrice),
		Cost:        toDecimal(req.Cost),
		Currency:    req.Currency,
		Weight:      toDecimal(req.Weight),
		Attributes:  req.Attributes,
		Draft:       req.Draft,
	}
	if req.CategoryID != nil && *req.CategoryID != "" {
		catID, err := uuid.Parse(*req.CategoryID)
		if err != nil {
			h.BadRequest(c, "Invalid category ID")
			return
		}
		input.CategoryID = &catID
	}

	product, err := h.productService.Create(c.Request.Context(), input)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, toProductResponse(*product))
}

// Get godoc
// @Summary      Get a product
// @Tags         products
// @Produce      json
// @Param        id path string true "Product ID" format(uuid)
// @Success      200 {object} APIResponse[ProductResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /catalog/products/{id} [get]
func (h *ProductHandler) Get(c *gin.Context) {
	orgID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	productID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid product ID")
		return
	}

	product, err := h.productService.Get(c.Request.Context(), orgID, productID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toProductResponse(*product))
}

// GetBySKU godoc
// @Summary      Get a product by SKU
// @Tags         products
// @Produce      json
// @Param        sku path string true "Product SKU"
// @Success      200 {object} APIResponse[ProductResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /catalog/products/sku/{sku} [get]
func (h *ProductHandler) GetBySKU(c *gin.Context) {
	orgID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	product, err := h.productService.GetBySKU(c.Request.Context(), orgID, c.Param("sku"))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toProductResponse(*product))
}

// List godoc
// @Summary      List products
// @Tags         products
// @Produce      json
// @Param        page query int false "Page number"
// @Param        page_size query int false "Page size"
// @Param        search query string false "Search by SKU or name"
// @Param        format query string false "Set to csv for a streamed CSV download"
// @Success      200 {object} APIResponse[[]ProductResponse]
// @Security     BearerAuth
// @Router       /catalog/products [get]
func (h *ProductHandler) List(c *gin.Context) {
	orgID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	filter := parseFilter(c)
	if status := c.Query("status"); status != "" {
		filter.Filters["status"] = status
	}
	if categoryID := c.Query("category_id"); categoryID != "" {
		catID, err := uuid.Parse(categoryID)
		if err != nil {
			h.BadRequest(c, "Invalid category ID")
			return
		}
		filter.Filters["category_id"] = catID
	}

	if c.Query("format") == "csv" {
		h.exportCSV(c, orgID, filter)
		return
	}

	page, err := h.productService.List(c.Request.Context(), orgID, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	products := make([]ProductResponse, 0, len(page.Items))
	for _, p := range page.Items {
		products = append(products, toProductResponse(p))
	}
	h.Paginated(c, products, page.Total, filter)
}

// exportCSV streams the filtered catalog as a CSV download
func (h *ProductHandler) exportCSV(c *gin.Context, orgID uuid.UUID, filter shared.Filter) {
	fileName := fmt.Sprintf("products-%s.csv", time.Now().UTC().Format("20060102-150405"))
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="`+fileName+`"`)
	c.Status(200)

	w := csv.NewWriter(c.Writer)
	_ = w.Write([]string{"sku", "name", "status", "category_id", "unit_price", "cost", "currency", "barcode", "created_at"})

	filter.PageSize = exportPageSize
	for filter.Page = 1; ; filter.Page++ {
		page, err := h.productService.List(c.Request.Context(), orgID, filter)
		if err != nil {
			// headers are already out; stop the stream where it is
			break
		}
		for i := range page.Items {
			p := &page.Items[i]
			record := []string{
				p.SKU,
				p.Name,
				string(p.Status),
				uuidOrEmpty(p.CategoryID),
				p.UnitPrice.String(),
				p.Cost.String(),
				p.Currency,
				p.Barcode,
				p.CreatedAt.UTC().Format(time.RFC3339),
			}
			if err := w.Write(record); err != nil {
				w.Flush()
				return
			}
		}
		if len(page.Items) < filter.PageSize {
			break
		}
	}
	w.Flush()
}

// BulkUpdatePrice godoc
// @Summary      Bulk update prices in a category
// @Description  Shift every product's price by a percentage, or set an absolute price
// @Tags         products
// @Accept       json
// @Produce      json
// @Param        request body BulkPriceUpdateRequest true "Bulk price update"
// @Success      200 {object} APIResponse[BulkPriceUpdateResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /catalog/products/bulk-price [post]
func (h *ProductHandler) BulkUpdatePrice(c *gin.Context) {
	orgID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req BulkPriceUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	categoryID, err := uuid.Parse(req.CategoryID)
	if err != nil {
		h.BadRequest(c, "Invalid category ID")
		return
	}

	input := catalogapp.BulkPriceUpdateInput{
		OrgID:      orgID,
		CategoryID: categoryID,
	}
	if req.AdjustmentPercent != nil {
		input.Percent = toDecimalPtr(*req.AdjustmentPercent)
	}
	if req.UnitPrice != nil {
		input.NewPrice = toDecimalPtr(*req.UnitPrice)
	}

	result, err := h.productService.BulkUpdatePrice(c.Request.Context(), input)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, BulkPriceUpdateResponse{Updated: result.Updated, Skipped: result.Skipped})
}

// Update godoc
// @Summary      Update a product
// @Tags         products
// @Accept       json
// @Produce      json
// @Param        id path string true "Product ID" format(uuid)
// @Param        request body UpdateProductRequest true "Update"
// @Success      200 {object} APIResponse[ProductResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /catalog/products/{id} [put]
func (h *ProductHandler) Update(c *gin.Context) {
	orgID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	productID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid product ID")
		return
	}

	var req UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	input := catalogapp.UpdateProductInput{
		OrgID:       orgID,
		ProductID:   productID,
		Name:        req.Name,
		Description: req.Description,
		Barcode:     req.Barcode,
		Currency:    req.Currency,
		Attributes:  req.Attributes,
	}
	if req.CategoryID != nil {
		if *req.CategoryID == "" {
			input.ClearCategory = true
		} else {
			catID, err := uuid.Parse(*req.CategoryID)
			if err != nil {
				h.BadRequest(c, "Invalid category ID")
				return
			}
			input.CategoryID = &catID
		}
	}
	if req.UnitPrice != nil {
		input.UnitPrice = toDecimalPtr(*req.UnitPrice)
	}
	if req.Cost != nil {
		input.Cost = toDecimalPtr(*req.Cost)
	}
	if req.Weight != nil {
		input.Weight = toDecimalPtr(*req.Weight)
	}

	product, err := h.productService.Update(c.Request.Context(), input)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toProductResponse(*product))
}

// Activate godoc
// @Summary      Activate a product
// @Tags         products
// @Param        id path string true "Product ID" format(uuid)
// @Success      204
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /catalog/products/{id}/activate [post]
func (h *ProductHandler) Activate(c *gin.Context) {
	h.mutateProduct(c, h.productService.Activate)
}

// Archive godoc
// @Summary      Archive a product
// @Tags         products
// @Param        id path string true "Product ID" format(uuid)
// @Success      204
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /catalog/products/{id}/archive [post]
func (h *ProductHandler) Archive(c *gin.Context) {
	h.mutateProduct(c, h.productService.Archive)
}

// Delete godoc
// @Summary      Delete a product
// @Tags         products
// @Param        id path string true "Product ID" format(uuid)
// @Success      204
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /catalog/products/{id} [delete]
func (h *ProductHandler) Delete(c *gin.Context) {
	h.mutateProduct(c, h.productService.Delete)
}

func (h *ProductHandler) mutateProduct(c *gin.Context, fn func(ctx context.Context, orgID, productID uuid.UUID) error) {
	orgID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	productID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid product ID")
		return
	}

	if err := fn(c.Request.Context(), orgID, productID); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}
