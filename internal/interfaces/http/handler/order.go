package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	orderapp "github.com/truthsource/backend/internal/application/order"
	"github.com/truthsource/backend/internal/domain/order"
	"github.com/truthsource/backend/internal/interfaces/http/middleware"
)

// OrderHandler handles order API endpoints. Orders arrive through platform
// syncs and webhooks; the HTTP surface is read plus manual status changes.
type OrderHandler struct {
	BaseHandler
	orderService *orderapp.Service
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orderService *orderapp.Service) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

// RegisterRoutes registers order routes
func (h *OrderHandler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/orders")
	group.GET("", h.List)
	group.GET("/:id", h.Get)
	group.PUT("/:id/status", middleware.RequireWriteAccess(), h.UpdateStatus)
}

// UpdateOrderStatusRequest represents a manual order status change
type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=pending processing shipped delivered cancelled"`
}

// OrderItemResponse represents one order line in API responses
type OrderItemResponse struct {
	ID        string  `json:"id"`
	ProductID *string `json:"product_id,omitempty"`
	SKU       string  `json:"sku"`
	Name      string  `json:"name"`
	Quantity  int64   `json:"quantity"`
	UnitPrice string  `json:"unit_price"`
	LineTotal string  `json:"line_total"`
}

// OrderResponse represents an order in API responses
type OrderResponse struct {
	ID                string              `json:"id"`
	Platform          string              `json:"platform"`
	ExternalID        string              `json:"external_id"`
	OrderNumber       string              `json:"order_number"`
	CustomerID        *string             `json:"customer_id,omitempty"`
	CustomerEmail     string              `json:"customer_email,omitempty"`
	Status            string              `json:"status"`
	RawPlatformStatus string              `json:"raw_platform_status,omitempty"`
	Currency          string              `json:"currency"`
	Subtotal          string              `json:"subtotal"`
	ShippingTotal     string              `json:"shipping_total"`
	TaxTotal          string              `json:"tax_total"`
	Total             string              `json:"total"`
	PlacedAt          time.Time           `json:"placed_at"`
	PlatformUpdatedAt time.Time           `json:"platform_updated_at"`
	Items             []OrderItemResponse `json:"items"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
}

func toOrderResponse(o orderapp.OrderInfo) OrderResponse {
	items := make([]OrderItemResponse, 0, len(o.Items))
	for _, item := range o.Items {
		line := OrderItemResponse{
			ID:        item.ID.String(),
			SKU:       item.SKU,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice.String(),
			LineTotal: item.LineTotal.String(),
		}
		if item.ProductID != nil {
			id := item.ProductID.String()
			line.ProductID = &id
		}
		items = append(items, line)
	}

	resp := OrderResponse{
		ID:                o.ID.String(),
		Platform:          o.Platform,
		ExternalID:        o.ExternalID,
		OrderNumber:       o.OrderNumber,
		CustomerEmail:     o.CustomerEmail,
		Status:            string(o.Status),
		RawPlatformStatus: o.RawPlatformStatus,
		Currency:          o.Currency,
		Subtotal:          o.Subtotal.String(),
		ShippingTotal:     o.ShippingTotal.String(),
		TaxTotal:          o.TaxTotal.String(),
		Total:             o.Total.String(),
		PlacedAt:          o.PlacedAt,
		PlatformUpdatedAt: o.PlatformUpdatedAt,
		Items:             items,
		CreatedAt:         o.CreatedAt,
		UpdatedAt:         o.UpdatedAt,
	}
	if o.CustomerID != nil {
		id := o.CustomerID.String()
		resp.CustomerID = &id
	}
	return resp
}

// List godoc
// @Summary      List orders
// @Tags         orders
// @Produce      json
// @Param        page query int false "Page number"
// @Param        page_size query int false "Page size"
// @Param        status query string false "Filter by status"
// @Param        platform query string false "Filter by source platform"
// @Success      200 {object} APIResponse[[]OrderResponse]
// @Security     BearerAuth
// @Router       /orders [get]
func (h *OrderHandler) List(c *gin.Context) {
	orgID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	filter := parseFilter(c)
	if status := c.Query("status"); status != "" {
		filter.Filters["status"] = status
	}
	if platform := c.Query("platform"); platform != "" {
		filter.Filters["platform"] = platform
	}

	page, err := h.orderService.List(c.Request.Context(), orgID, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	orders := make([]OrderResponse, 0, len(page.Items))
	for _, o := range page.Items {
		orders = append(orders, toOrderResponse(o))
	}
	h.Paginated(c, orders, page.Total, filter)
}

// Get godoc
// @Summary      Get an order
// @Tags         orders
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Success      200 {object} APIResponse[OrderResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /orders/{id} [get]
func (h *OrderHandler) Get(c *gin.Context) {
	orgID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	orderID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid order ID")
		return
	}

	found, err := h.orderService.Get(c.Request.Context(), orgID, orderID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toOrderResponse(*found))
}

// UpdateStatus godoc
// @Summary      Update order status
// @Description  Manually move an order through its lifecycle
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Param        request body UpdateOrderStatusRequest true "Status"
// @Success      200 {object} APIResponse[OrderResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /orders/{id}/status [put]
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	orgID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	orderID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid order ID")
		return
	}

	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	updated, err := h.orderService.UpdateStatus(c.Request.Context(), orderapp.UpdateStatusInput{
		OrgID:   orgID,
		OrderID: orderID,
		Status:  order.Status(req.Status),
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toOrderResponse(*updated))
}
