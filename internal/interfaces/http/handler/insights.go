package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	insightsapp "github.com/truthsource/backend/internal/application/insights"
	"github.com/truthsource/backend/internal/domain/insights"
	"github.com/truthsource/backend/internal/interfaces/http/middleware"
)

// InsightsGate decides whether the organization's plan includes insights
type InsightsGate interface {
	AIInsightsEnabled(ctx context.Context, orgID uuid.UUID) (bool, error)
}

// InsightsHandler handles forecasting, anomaly detection, and delivery
// estimate API endpoints
type InsightsHandler struct {
	BaseHandler
	forecastService *insightsapp.ForecastService
	anomalyService  *insightsapp.AnomalyService
	deliveryService *insightsapp.DeliveryService
	gate            InsightsGate
}

// NewInsightsHandler creates a new InsightsHandler
func NewInsightsHandler(
	forecastService *insightsapp.ForecastService,
	anomalyService *insightsapp.AnomalyService,
	deliveryService *insightsapp.DeliveryService,
	gate InsightsGate,
) *InsightsHandler {
	return &InsightsHandler{
		forecastService: forecastService,
		anomalyService:  anomalyService,
		deliveryService: deliveryService,
		gate:            gate,
	}
}

// RegisterRoutes registers insights routes
func (h *InsightsHandler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/insights")
	group.GET("/forecasts/:productID", h.GetLatestForecast)
	group.GET("/anomalies", h.ListAnomalies)
	group.GET("/anomalies/open-count", h.CountOpenAnomalies)
	group.POST("/delivery/estimate", h.EstimateDelivery)

	write := group.Group("", middleware.RequireWriteAccess())
	write.POST("/forecasts", h.GenerateForecast)
	write.POST("/anomalies/detect", h.DetectAnomalies)
	write.POST("/anomalies/:id/acknowledge", h.AcknowledgeAnomaly)
	write.POST("/anomalies/:id/resolve", h.ResolveAnomaly)
}

// GenerateForecastRequest requests a demand forecast for one product
type GenerateForecastRequest struct {
	ProductID   string `json:"product_id" binding:"required,uuid"`
	HorizonDays int    `json:"horizon_days" binding:"omitempty,min=1,max=90"`
}

// DetectAnomaliesRequest requests a detection run over one data class
type DetectAnomaliesRequest struct {
	DataType    string   `json:"data_type" binding:"required,oneof=inventory pricing orders"`
	Sensitivity *float64 `json:"sensitivity" binding:"omitempty,gt=0,lte=10"`
}

// EstimateDeliveryRequest requests a transit estimate for one shipment
type EstimateDeliveryRequest struct {
	Carrier   string     `json:"carrier" binding:"required"`
	Service   string     `json:"service" binding:"required,oneof=standard expedited overnight"`
	OriginZip string     `json:"origin_zip" binding:"required,len=5"`
	DestZip   string     `json:"dest_zip" binding:"required,len=5"`
	ShipDate  *time.Time `json:"ship_date"`
}

// requirePlan aborts unless the organization's plan includes insights
func (h *InsightsHandler) requirePlan(c *gin.Context, orgID uuid.UUID) bool {
	if h.gate == nil {
		return true
	}
	enabled, err := h.gate.AIInsightsEnabled(c.Request.Context(), orgID)
	if err != nil {
		h.HandleDomainError(c, err)
		return false
	}
	if !enabled {
		h.Forbidden(c, "Insights are not included in the current plan")
		return false
	}
	return true
}

// GenerateForecast godoc
// @Summary      Generate a demand forecast
// @Description  Run the forecast models over the product's sales history
// @Tags         insights
// @Accept       json
// @Produce      json
// @Param        request body GenerateForecastRequest true "Forecast request"
// @Success      200 {object} APIResponse[insightsapp.ForecastInfo]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /insights/forecasts [post]
func (h *InsightsHandler) GenerateForecast(c *gin.Context) {
	orgID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	if !h.requirePlan(c, orgID) {
		return
	}

	var req GenerateForecastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		h.BadRequest(c, "Invalid product ID")
		return
	}

	forecast, err := h.forecastService.Generate(c.Request.Context(), insightsapp.GenerateForecastInput{
		OrgID:       orgID,
		ProductID:   productID,
		HorizonDays: req.HorizonDays,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, forecast)
}

// GetLatestForecast godoc
// @Summary      Get the latest forecast for a product
// @Tags         insights
// @Produce      json
// @Param        productID path string true "Product ID" format(uuid)
// @Success      200 {object} APIResponse[insightsapp.ForecastInfo]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /insights/forecasts/{productID} [get]
func (h *InsightsHandler) GetLatestForecast(c *gin.Context) {
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

	forecast, err := h.forecastService.GetLatest(c.Request.Context(), orgID, productID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, forecast)
}

// DetectAnomalies godoc
// @Summary      Run anomaly detection
// @Description  Scan one data class for statistical anomalies
// @Tags         insights
// @Accept       json
// @Produce      json
// @Param        request body DetectAnomaliesRequest true "Detection request"
// @Success      200 {object} APIResponse[insightsapp.DetectionResult]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /insights/anomalies/detect [post]
func (h *InsightsHandler) DetectAnomalies(c *gin.Context) {
	orgID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	if !h.requirePlan(c, orgID) {
		return
	}

	var req DetectAnomaliesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.anomalyService.Detect(c.Request.Context(), insightsapp.DetectAnomaliesInput{
		OrgID:       orgID,
		DataType:    insights.DataType(req.DataType),
		Sensitivity: req.Sensitivity,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// ListAnomalies godoc
// @Summary      List anomalies
// @Tags         insights
// @Produce      json
// @Param        severity query string false "Filter by severity" Enums(low, medium, high, critical)
// @Param        status query string false "Filter by status" Enums(open, acknowledged, resolved)
// @Success      200 {object} APIResponse[[]insightsapp.AnomalyInfo]
// @Security     BearerAuth
// @Router       /insights/anomalies [get]
func (h *InsightsHandler) ListAnomalies(c *gin.Context) {
	orgID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var severity *insights.Severity
	if raw := c.Query("severity"); raw != "" {
		s := insights.Severity(raw)
		severity = &s
	}
	var status *insights.AnomalyStatus
	if raw := c.Query("status"); raw != "" {
		s := insights.AnomalyStatus(raw)
		status = &s
	}

	anomalies, err := h.anomalyService.List(c.Request.Context(), orgID, severity, status, parseFilter(c))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, anomalies)
}

// CountOpenAnomalies godoc
// @Summary      Count open anomalies
// @Tags         insights
// @Produce      json
// @Success      200 {object} APIResponse[CountData]
// @Security     BearerAuth
// @Router       /insights/anomalies/open-count [get]
func (h *InsightsHandler) CountOpenAnomalies(c *gin.Context) {
	orgID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	count, err := h.anomalyService.CountOpen(c.Request.Context(), orgID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, CountData{Count: count})
}

// AcknowledgeAnomaly godoc
// @Summary      Acknowledge an anomaly
// @Tags         insights
// @Param        id path string true "Anomaly ID" format(uuid)
// @Success      204
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /insights/anomalies/{id}/acknowledge [post]
func (h *InsightsHandler) AcknowledgeAnomaly(c *gin.Context) {
	orgID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	anomalyID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid anomaly ID")
		return
	}

	if err := h.anomalyService.Acknowledge(c.Request.Context(), orgID, anomalyID, userID); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}

// ResolveAnomaly godoc
// @Summary      Resolve an anomaly
// @Tags         insights
// @Param        id path string true "Anomaly ID" format(uuid)
// @Success      204
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /insights/anomalies/{id}/resolve [post]
func (h *InsightsHandler) ResolveAnomaly(c *gin.Context) {
	orgID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	anomalyID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid anomaly ID")
		return
	}

	if err := h.anomalyService.Resolve(c.Request.Context(), orgID, anomalyID); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}

// EstimateDelivery godoc
// @Summary      Estimate delivery
// @Description  Predict transit days for a carrier and service level between two ZIP codes
// @Tags         insights
// @Accept       json
// @Produce      json
// @Param        request body EstimateDeliveryRequest true "Estimate request"
// @Success      200 {object} APIResponse[insights.DeliveryEstimate]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /insights/delivery/estimate [post]
func (h *InsightsHandler) EstimateDelivery(c *gin.Context) {
	var req EstimateDeliveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	shipDate := time.Now()
	if req.ShipDate != nil {
		shipDate = *req.ShipDate
	}

	estimate, err := h.deliveryService.Predict(c.Request.Context(), insightsapp.PredictDeliveryInput{
		Carrier:   req.Carrier,
		Service:   insights.ServiceLevel(req.Service),
		OriginZip: req.OriginZip,
		DestZip:   req.DestZip,
		ShipDate:  shipDate,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, estimate)
}
