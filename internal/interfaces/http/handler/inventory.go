package handler

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	inventoryapp "github.com/truthsource/backend/internal/application/inventory"
	"github.com/truthsource/backend/internal/domain/inventory"
	"github.com/truthsource/backend/internal/domain/shared"
	"github.com/truthsource/backend/internal/interfaces/http/middleware"
)

// InventoryHandler handles inventory level API endpoints
type InventoryHandler struct {
	BaseHandler
	inventoryService *inventoryapp.InventoryService
}

// NewInventoryHandler creates a new InventoryHandler
func NewInventoryHandler(inventoryService *inventoryapp.InventoryService) *InventoryHandler {
	return &InventoryHandler{inventoryService: inventoryService}
}

// RegisterRoutes registers inventory routes
func (h *InventoryHandler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/inventory")
	group.GET("/levels", h.ListLevels)
	group.GET("/levels/low-stock", h.ListLowStock)
	group.GET("/products/:productID/levels", h.GetProductLevels)
	group.GET("/products/:productID/locations/:locationID", h.GetLevel)
	group.GET("/products/:productID/locations/:locationID/adjustments", h.ListAdjustments)

	write := group.Group("", middleware.RequireWriteAccess())
	write.POST("/adjustments", h.Adjust)
	write.POST("/set", h.Set)
	write.POST("/reserve", h.Reserve)
	write.POST("/release", h.Release)
	write.POST("/reorder-point", h.SetReorderPoint)
}

// AdjustStockRequest represents a relative stock adjustment
type AdjustStockRequest struct {
	ProductID  string `json:"product_id" binding:"required,uuid"`
	LocationID string `json:"location_id" binding:"required,uuid"`
	Delta      int64  `json:"delta" binding:"required"`
	Reference  string `json:"reference" binding:"max=200"`
}

// SetStockRequest represents an absolute stock set
type SetStockRequest struct {
	ProductID  string `json:"product_id" binding:"required,uuid"`
	LocationID string `json:"location_id" binding:"required,uuid"`
	Quantity   int64  `json:"quantity" binding:"min=0"`
	Reference  string `json:"reference" binding:"max=200"`
}

// ReservationRequest represents a stock reserve or release
type ReservationRequest struct {
	ProductID  string `json:"product_id" binding:"required,uuid"`
	LocationID string `json:"location_id" binding:"required,uuid"`
	Quantity   int64  `json:"quantity" binding:"required,min=1"`
}

// SetReorderPointRequest configures the low-stock threshold
type SetReorderPointRequest struct {
	ProductID       string `json:"product_id" binding:"required,uuid"`
	LocationID      string `json:"location_id" binding:"required,uuid"`
	ReorderPoint    int64  `json:"reorder_point" binding:"min=0"`
	ReorderQuantity int64  `json:"reorder_quantity" binding:"min=0"`
}

// LevelResponse represents an inventory level in API responses
type LevelResponse struct {
	ID               string    `json:"id"`
	ProductID        string    `json:"product_id"`
	LocationID       string    `json:"location_id"`
	QuantityOnHand   int64     `json:"quantity_on_hand"`
	QuantityReserved int64     `json:"quantity_reserved"`
	Available        int64     `json:"available"`
	ReorderPoint     int64     `json:"reorder_point"`
	ReorderQuantity  int64     `json:"reorder_quantity"`
	BelowReorder     bool      `json:"below_reorder"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// AdjustmentResponse represents one stock movement in API responses
type AdjustmentResponse struct {
	ID             string    `json:"id"`
	ProductID      string    `json:"product_id"`
	LocationID     string    `json:"location_id"`
	Delta          int64     `json:"delta"`
	QuantityBefore int64     `json:"quantity_before"`
	QuantityAfter  int64     `json:"quantity_after"`
	Reason         string    `json:"reason"`
	Reference      string    `json:"reference,omitempty"`
	ActorID        *string   `json:"actor_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

func toLevelResponse(l inventoryapp.LevelInfo) LevelResponse {
	return LevelResponse{
		ID:               l.ID.String(),
		ProductID:        l.ProductID.String(),
		LocationID:       l.LocationID.String(),
		QuantityOnHand:   l.QuantityOnHand,
		QuantityReserved: l.QuantityReserved,
		Available:        l.Available,
		ReorderPoint:     l.ReorderPoint,
		ReorderQuantity:  l.ReorderQuantity,
		BelowReorder:     l.BelowReorder,
		UpdatedAt:        l.UpdatedAt,
	}
}

func toAdjustmentResponse(a inventoryapp.AdjustmentInfo) AdjustmentResponse {
	resp := AdjustmentResponse{
		ID:             a.ID.String(),
		ProductID:      a.ProductID.String(),
		LocationID:     a.LocationID.String(),
		Delta:          a.Delta,
		QuantityBefore: a.QuantityBefore,
		QuantityAfter:  a.QuantityAfter,
		Reason:         string(a.Reason),
		Reference:      a.Reference,
		CreatedAt:      a.CreatedAt,
	}
	if a.ActorID != nil {
		id := a.ActorID.String()
		resp.ActorID = &id
	}
	return resp
}

// Adjust godoc
// @Summary      Adjust stock
// @Description  Apply a relative delta to a product's on-hand quantity at one location
// @Tags         inventory
// @Accept       json
// @Produce      json
// @Param        request body AdjustStockRequest true "Adjustment"
// @Success      200 {object} APIResponse[LevelResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /inventory/adjustments [post]
func (h *InventoryHandler) Adjust(c *gin.Context) {
	orgID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req AdjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	productID, locationID, err := parseLevelIDs(req.ProductID, req.LocationID)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	input := inventoryapp.AdjustStockInput{
		OrgID:      orgID,
		ProductID:  productID,
		LocationID: locationID,
		Delta:      req.Delta,
		Reason:     inventory.ReasonManual,
		Reference:  req.Reference,
	}
	if actorID, err := getUserID(c); err == nil {
		input.ActorID = &actorID
	}

	level, err := h.inventoryService.Adjust(c.Request.Context(), input)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toLevelResponse(*level))
}

// Set godoc
// @Summary      Set stock
// @Description  Set a product's on-hand quantity at one location to an absolute value
// @Tags         inventory
// @Accept       json
// @Produce      json
// @Param        request body SetStockRequest true "Stock set"
// @Success      200 {object} APIResponse[LevelResponse]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /inventory/set [post]
func (h *InventoryHandler) Set(c *gin.Context) {
	orgID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req SetStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	productID, locationID, err := parseLevelIDs(req.ProductID, req.LocationID)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	input := inventoryapp.SetStockInput{
		OrgID:      orgID,
		ProductID:  productID,
		LocationID: locationID,
		Quantity:   req.Quantity,
		Reason:     inventory.ReasonManual,
		Reference:  req.Reference,
	}
	if actorID, err := getUserID(c); err == nil {
		input.ActorID = &actorID
	}

	level, err := h.inventoryService.Set(c.Request.Context(), input)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toLevelResponse(*level))
}

// Reserve godoc
// @Summary      Reserve stock
// @Tags         inventory
// @Accept       json
// @Produce      json
// @Param        request body ReservationRequest true "Reservation"
// @Success      200 {object} APIResponse[LevelResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /inventory/reserve [post]
func (h *InventoryHandler) Reserve(c *gin.Context) {
	h.reservation(c, h.inventoryService.Reserve)
}

// Release godoc
// @Summary      Release reserved stock
// @Tags         inventory
// @Accept       json
// @Produce      json
// @Param        request body ReservationRequest true "Release"
// @Success      200 {object} APIResponse[LevelResponse]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /inventory/release [post]
func (h *InventoryHandler) Release(c *gin.Context) {
	h.reservation(c, h.inventoryService.Release)
}

func (h *InventoryHandler) reservation(c *gin.Context, fn func(ctx context.Context, orgID, productID, locationID uuid.UUID, quantity int64) (*inventoryapp.LevelInfo, error)) {
	orgID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req ReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	productID, locationID, err := parseLevelIDs(req.ProductID, req.LocationID)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	level, err := fn(c.Request.Context(), orgID, productID, locationID, req.Quantity)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toLevelResponse(*level))
}

// SetReorderPoint godoc
// @Summary      Set reorder point
// @Tags         inventory
// @Accept       json
// @Produce      json
// @Param        request body SetReorderPointRequest true "Reorder point"
// @Success      200 {object} APIResponse[LevelResponse]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /inventory/reorder-point [post]
func (h *InventoryHandler) SetReorderPoint(c *gin.Context) {
	orgID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req SetReorderPointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	productID, locationID, err := parseLevelIDs(req.ProductID, req.LocationID)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	level, err := h.inventoryService.SetReorderPoint(c.Request.Context(), inventoryapp.SetReorderPointInput{
		OrgID:           orgID,
		ProductID:       productID,
		LocationID:      locationID,
		ReorderPoint:    req.ReorderPoint,
		ReorderQuantity: req.ReorderQuantity,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toLevelResponse(*level))
}

// GetLevel godoc
// @Summary      Get one inventory level
// @Tags         inventory
// @Produce      json
// @Param        productID path string true "Product ID" format(uuid)
// @Param        locationID path string true "Location ID" format(uuid)
// @Success      200 {object} APIResponse[LevelResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /inventory/products/{productID}/locations/{locationID} [get]
func (h *InventoryHandler) GetLevel(c *gin.Context) {
	orgID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	productID, locationID, err := parseLevelIDs(c.Param("productID"), c.Param("locationID"))
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	level, err := h.inventoryService.GetLevel(c.Request.Context(), orgID, productID, locationID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toLevelResponse(*level))
}

// GetProductLevels godoc
// @Summary      Get a product's levels across locations
// @Tags         inventory
// @Produce      json
// @Param        productID path string true "Product ID" format(uuid)
// @Success      200 {object} APIResponse[[]LevelResponse]
// @Security     BearerAuth
// @Router       /inventory/products/{productID}/levels [get]
func (h *InventoryHandler) GetProductLevels(c *gin.Context) {
	orgID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	productID, err := parseUUIDParam(c, "productID")
	if err != nil {
		h.BadRequest(c, "Invalid product ID")
		return
	}

	levels, err := h.inventoryService.GetProductLevels(c.Request.Context(), orgID, productID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, levelResponses(levels))
}

// ListLevels godoc
// @Summary      List inventory levels
// @Tags         inventory
// @Produce      json
// @Param        page query int false "Page number"
// @Param        page_size query int false "Page size"
// @Param        format query string false "Set to csv for a streamed CSV download"
// @Success      200 {object} APIResponse[[]LevelResponse]
// @Security     BearerAuth
// @Router       /inventory/levels [get]
func (h *InventoryHandler) ListLevels(c *gin.Context) {
	orgID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	filter := parseFilter(c)
	if locationID := c.Query("location_id"); locationID != "" {
		id, err := uuid.Parse(locationID)
		if err != nil {
			h.BadRequest(c, "Invalid location ID")
			return
		}
		filter.Filters["location_id"] = id
	}

	if c.Query("format") == "csv" {
		h.exportCSV(c, orgID, filter)
		return
	}

	page, err := h.inventoryService.ListLevels(c.Request.Context(), orgID, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Paginated(c, levelResponses(page.Items), page.Total, filter)
}

// exportCSV streams the filtered levels as a CSV download
func (h *InventoryHandler) exportCSV(c *gin.Context, orgID uuid.UUID, filter shared.Filter) {
	fileName := fmt.Sprintf("inventory-%s.csv", time.Now().UTC().Format("20060102-150405"))
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="`+fileName+`"`)
	c.Status(200)

	w := csv.NewWriter(c.Writer)
	_ = w.Write([]string{"product_id", "location_id", "quantity_on_hand", "quantity_reserved", "available", "reorder_point", "below_reorder", "updated_at"})

	filter.PageSize = exportPageSize
	for filter.Page = 1; ; filter.Page++ {
		page, err := h.inventoryService.ListLevels(c.Request.Context(), orgID, filter)
		if err != nil {
			// headers are already out; stop the stream where it is
			break
		}
		for i := range page.Items {
			l := &page.Items[i]
			record := []string{
				l.ProductID.String(),
				l.LocationID.String(),
				strconv.FormatInt(l.QuantityOnHand, 10),
				strconv.FormatInt(l.QuantityReserved, 10),
				strconv.FormatInt(l.Available, 10),
				strconv.FormatInt(l.ReorderPoint, 10),
				strconv.FormatBool(l.BelowReorder),
				l.UpdatedAt.UTC().Format(time.RFC3339),
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

// ListLowStock godoc
// @Summary      List levels at or below their reorder point
// @Tags         inventory
// @Produce      json
// @Success      200 {object} APIResponse[[]LevelResponse]
// @Security     BearerAuth
// @Router       /inventory/levels/low-stock [get]
func (h *InventoryHandler) ListLowStock(c *gin.Context) {
	orgID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	levels, err := h.inventoryService.ListLowStock(c.Request.Context(), orgID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, levelResponses(levels))
}

// ListAdjustments godoc
// @Summary      List stock movements for one level
// @Tags         inventory
// @Produce      json
// @Param        productID path string true "Product ID" format(uuid)
// @Param        locationID path string true "Location ID" format(uuid)
// @Success      200 {object} APIResponse[[]AdjustmentResponse]
// @Security     BearerAuth
// @Router       /inventory/products/{productID}/locations/{locationID}/adjustments [get]
func (h *InventoryHandler) ListAdjustments(c *gin.Context) {
	orgID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	productID, locationID, err := parseLevelIDs(c.Param("productID"), c.Param("locationID"))
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	filter := parseFilter(c)
	adjustments, err := h.inventoryService.ListAdjustments(c.Request.Context(), orgID, productID, locationID, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	responses := make([]AdjustmentResponse, 0, len(adjustments))
	for _, a := range adjustments {
		responses = append(responses, toAdjustmentResponse(a))
	}
	h.Success(c, responses)
}

func levelResponses(levels []inventoryapp.LevelInfo) []LevelResponse {
	responses := make([]LevelResponse, 0, len(levels))
	for _, l := range levels {
		responses = append(responses, toLevelResponse(l))
	}
	return responses
}

var (
	errInvalidProductID  = errors.New("invalid product ID")
	errInvalidLocationID = errors.New("invalid location ID")
)

// parseLevelIDs parses the product/location UUID pair that addresses a level
func parseLevelIDs(productID, locationID string) (uuid.UUID, uuid.UUID, error) {
	pid, err := uuid.Parse(productID)
	if err != nil {
		return uuid.Nil, uuid.Nil, errInvalidProductID
	}
	lid, err := uuid.Parse(locationID)
	if err != nil {
		return uuid.Nil, uuid.Nil, errInvalidLocationID
	}
	return pid, lid, nil
}
