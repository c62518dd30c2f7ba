package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	integrationapp "github.com/truthsource/backend/internal/application/integration"
	"github.com/truthsource/backend/internal/domain/integration"
	"github.com/truthsource/backend/internal/interfaces/http/dto"
	"github.com/truthsource/backend/internal/interfaces/http/middleware"
)

// IntegrationHandler handles platform connection and sync API endpoints
type IntegrationHandler struct {
	BaseHandler
	integrationService *integrationapp.Service
	webhookService     *integrationapp.WebhookService
}

// NewIntegrationHandler creates a new IntegrationHandler
func NewIntegrationHandler(integrationService *integrationapp.Service, webhookService *integrationapp.WebhookService) *IntegrationHandler {
	return &IntegrationHandler{
		integrationService: integrationService,
		webhookService:     webhookService,
	}
}

// RegisterRoutes registers integration and sync routes
func (h *IntegrationHandler) RegisterRoutes(rg *gin.RouterGroup) {
	integrations := rg.Group("/integrations")
	integrations.GET("", h.List)
	integrations.GET("/:id", h.Get)
	integrations.GET("/:id/jobs", h.RecentJobs)
	integrations.GET("/:id/webhooks", h.ListWebhookEvents)

	integrationsWrite := integrations.Group("", middleware.RequireWriteAccess())
	integrationsWrite.POST("", h.Connect)
	integrationsWrite.PUT("/:id", h.Update)
	integrationsWrite.POST("/:id/pause", h.Pause)
	integrationsWrite.POST("/:id/resume", h.Resume)
	integrationsWrite.DELETE("/:id", h.Disconnect)
	integrationsWrite.POST("/:id/sync", h.TriggerSync)

	sync := rg.Group("/sync")
	sync.GET("/jobs", h.ListJobs)
	sync.GET("/jobs/:id", h.GetJob)
	sync.GET("/conflicts", h.ListConflicts)

	syncWrite := sync.Group("", middleware.RequireWriteAccess())
	syncWrite.POST("/jobs/:id/cancel", h.CancelJob)
	syncWrite.POST("/conflicts/:id/resolve", h.ResolveConflict)
}

// CredentialsRequest carries platform credentials. Fields a platform does not
// use stay empty.
type CredentialsRequest struct {
	APIKey        string `json:"api_key" binding:"max=200"`
	APISecret     string `json:"api_secret" binding:"max=200"`
	AccessToken   string `json:"access_token" binding:"max=500"`
	WebhookSecret string `json:"webhook_secret" binding:"max=200"`
	ShopDomain    string `json:"shop_domain" binding:"max=300"`
	AccountID     string `json:"account_id" binding:"max=100"`
}

// ConnectIntegrationRequest represents a request to connect a platform
type ConnectIntegrationRequest struct {
	Platform    string             `json:"platform" binding:"required,oneof=shopify netsuite woocommerce"`
	DisplayName string             `json:"display_name" binding:"required,min=1,max=200"`
	Credentials CredentialsRequest `json:"credentials" binding:"required"`
}

// UpdateIntegrationRequest represents an integration update. Blank credential
// fields keep their stored values.
type UpdateIntegrationRequest struct {
	DisplayName         *string             `json:"display_name" binding:"omitempty,min=1,max=200"`
	SyncIntervalMinutes *int                `json:"sync_interval_minutes" binding:"omitempty,min=5,max=1440"`
	Credentials         *CredentialsRequest `json:"credentials"`
}

// TriggerSyncRequest represents a manual sync request
type TriggerSyncRequest struct {
	Entity    string `json:"entity" binding:"required,oneof=products inventory orders all"`
	Direction string `json:"direction" binding:"omitempty,oneof=pull push"`
}

// ResolveConflictRequest represents a conflict resolution choice
type ResolveConflictRequest struct {
	Resolution string `json:"resolution" binding:"required,oneof=remote_wins local_wins manual"`
}

// IntegrationResponse represents an integration in API responses. Credential
// secrets never appear here.
type IntegrationResponse struct {
	ID                  string     `json:"id"`
	Platform            string     `json:"platform"`
	DisplayName         string     `json:"display_name"`
	Status              string     `json:"status"`
	ShopDomain          string     `json:"shop_domain,omitempty"`
	AccountID           string     `json:"account_id,omitempty"`
	SyncIntervalMinutes int        `json:"sync_interval_minutes"`
	LastProductSyncAt   *time.Time `json:"last_product_sync_at,omitempty"`
	LastInventorySyncAt *time.Time `json:"last_inventory_sync_at,omitempty"`
	LastOrderSyncAt     *time.Time `json:"last_order_sync_at,omitempty"`
	LastError           string     `json:"last_error,omitempty"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
	CreatedAt           time.Time  `json:"created_at"`
}

// SyncJobResponse represents a sync job in API responses
type SyncJobResponse struct {
	ID            string                   `json:"id"`
	IntegrationID string                   `json:"integration_id"`
	Platform      string                   `json:"platform"`
	Direction     string                   `json:"direction"`
	Entity        string                   `json:"entity"`
	Trigger       string                   `json:"trigger"`
	Status        string                   `json:"status"`
	Attempts      int                      `json:"attempts"`
	MaxAttempts   int                      `json:"max_attempts"`
	Counters      integration.SyncCounters `json:"counters"`
	LastError     string                   `json:"last_error,omitempty"`
	NextRetryAt   *time.Time               `json:"next_retry_at,omitempty"`
	StartedAt     *time.Time               `json:"started_at,omitempty"`
	FinishedAt    *time.Time               `json:"finished_at,omitempty"`
	CreatedAt     time.Time                `json:"created_at"`
}

// ConflictResponse represents a sync conflict in API responses
type ConflictResponse struct {
	ID            string    `json:"id"`
	IntegrationID string    `json:"integration_id"`
	EntityType    string    `json:"entity_type"`
	EntityID      string    `json:"entity_id"`
	Field         string    `json:"field"`
	LocalValue    string    `json:"local_value"`
	RemoteValue   string    `json:"remote_value"`
	Resolution    string    `json:"resolution"`
	Resolved      bool      `json:"resolved"`
	CreatedAt     time.Time `json:"created_at"`
}

// WebhookEventResponse represents a stored webhook delivery
type WebhookEventResponse struct {
	ID              string     `json:"id"`
	IntegrationID   string     `json:"integration_id"`
	Platform        string     `json:"platform"`
	Topic           string     `json:"topic"`
	ExternalEventID string     `json:"external_event_id,omitempty"`
	Status          string     `json:"status"`
	Attempts        int        `json:"attempts"`
	LastError       string     `json:"last_error,omitempty"`
	ProcessedAt     *time.Time `json:"processed_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

func toIntegrationResponse(i integrationapp.IntegrationInfo) IntegrationResponse {
	return IntegrationResponse{
		ID:                  i.ID.String(),
		Platform:            string(i.Platform),
		DisplayName:         i.DisplayName,
		Status:              string(i.Status),
		ShopDomain:          i.ShopDomain,
		AccountID:           i.AccountID,
		SyncIntervalMinutes: i.SyncIntervalMinutes,
		LastProductSyncAt:   i.LastProductSyncAt,
		LastInventorySyncAt: i.LastInventorySyncAt,
		LastOrderSyncAt:     i.LastOrderSyncAt,
		LastError:           i.LastError,
		ConsecutiveFailures: i.ConsecutiveFailures,
		CreatedAt:           i.CreatedAt,
	}
}

func toSyncJobResponse(j integrationapp.SyncJobInfo) SyncJobResponse {
	return SyncJobResponse{
		ID:            j.ID.String(),
		IntegrationID: j.IntegrationID.String(),
		Platform:      string(j.Platform),
		Direction:     string(j.Direction),
		Entity:        string(j.Entity),
		Trigger:       string(j.Trigger),
		Status:        string(j.Status),
		Attempts:      j.Attempts,
		MaxAttempts:   j.MaxAttempts,
		Counters:      j.Counters,
		LastError:     j.LastError,
		NextRetryAt:   j.NextRetryAt,
		StartedAt:     j.StartedAt,
		FinishedAt:    j.FinishedAt,
		CreatedAt:     j.CreatedAt,
	}
}

func toConflictResponse(cf integrationapp.ConflictInfo) ConflictResponse {
	return ConflictResponse{
		ID:            cf.ID.String(),
		IntegrationID: cf.IntegrationID.String(),
		EntityType:    cf.EntityType,
		EntityID:      cf.EntityID.String(),
		Field:         cf.Field,
		LocalValue:    cf.LocalValue,
		RemoteValue:   cf.RemoteValue,
		Resolution:    string(cf.Resolution),
		Resolved:      cf.Resolved,
		CreatedAt:     cf.CreatedAt,
	}
}

func toWebhookEventResponse(e integrationapp.WebhookEventInfo) WebhookEventResponse {
	return WebhookEventResponse{
		ID:              e.ID.String(),
		IntegrationID:   e.IntegrationID.String(),
		Platform:        string(e.Platform),
		Topic:           e.Topic,
		ExternalEventID: e.ExternalEventID,
		Status:          string(e.Status),
		Attempts:        e.Attempts,
		LastError:       e.LastError,
		ProcessedAt:     e.ProcessedAt,
		CreatedAt:       e.CreatedAt,
	}
}

func (r CredentialsRequest) toDomain() integration.Credentials {
	return integration.Credentials{
		APIKey:        r.APIKey,
		APISecret:     r.APISecret,
		AccessToken:   r.AccessToken,
		WebhookSecret: r.WebhookSecret,
		ShopDomain:    r.ShopDomain,
		AccountID:     r.AccountID,
	}
}

// Connect godoc
// @Summary      Connect a platform
// @Tags         integrations
// @Accept       json
// @Produce      json
// @Param        request body ConnectIntegrationRequest true "Connection"
// @Success      201 {object} APIResponse[IntegrationResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /integrations [post]
func (h *IntegrationHandler) Connect(c *gin.Context) {
	orgID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req ConnectIntegrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	created, err := h.integrationService.Connect(c.Request.Context(), integrationapp.ConnectInput{
		OrgID:       orgID,
		Platform:    integration.Platform(req.Platform),
		DisplayName: req.DisplayName,
		Credentials: req.Credentials.toDomain(),
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, toIntegrationResponse(*created))
}

// List godoc
// @Summary      List integrations
// @Tags         integrations
// @Produce      json
// @Success      200 {object} APIResponse[[]IntegrationResponse]
// @Security     BearerAuth
// @Router       /integrations [get]
func (h *IntegrationHandler) List(c *gin.Context) {
	orgID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	integrations, err := h.integrationService.List(c.Request.Context(), orgID, parseFilter(c))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	responses := make([]IntegrationResponse, 0, len(integrations))
	for _, i := range integrations {
		responses = append(responses, toIntegrationResponse(i))
	}
	h.Success(c, responses)
}

// Get godoc
// @Summary      Get an integration
// @Tags         integrations
// @Produce      json
// @Param        id path string true "Integration ID" format(uuid)
// @Success      200 {object} APIResponse[IntegrationResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /integrations/{id} [get]
func (h *IntegrationHandler) Get(c *gin.Context) {
	orgID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	integrationID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid integration ID")
		return
	}

	found, err := h.integrationService.Get(c.Request.Context(), orgID, integrationID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toIntegrationResponse(*found))
}

// Update godoc
// @Summary      Update an integration
// @Tags         integrations
// @Accept       json
// @Produce      json
// @Param        id path string true "Integration ID" format(uuid)
// @Param        request body UpdateIntegrationRequest true "Update"
// @Success      200 {object} APIResponse[IntegrationResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /integrations/{id} [put]
func (h *IntegrationHandler) Update(c *gin.Context) {
	orgID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	integrationID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid integration ID")
		return
	}

	var req UpdateIntegrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	input := integrationapp.UpdateIntegrationInput{
		OrgID:               orgID,
		IntegrationID:       integrationID,
		DisplayName:         req.DisplayName,
		SyncIntervalMinutes: req.SyncIntervalMinutes,
	}
	if req.Credentials != nil {
		creds := req.Credentials.toDomain()
		input.Credentials = &creds
	}

	updated, err := h.integrationService.Update(c.Request.Context(), input)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toIntegrationResponse(*updated))
}

// Pause godoc
// @Summary      Pause an integration
// @Tags         integrations
// @Param        id path string true "Integration ID" format(uuid)
// @Success      204
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /integrations/{id}/pause [post]
func (h *IntegrationHandler) Pause(c *gin.Context) {
	h.mutateIntegration(c, h.integrationService.Pause)
}

// Resume godoc
// @Summary      Resume a paused integration
// @Tags         integrations
// @Param        id path string true "Integration ID" format(uuid)
// @Success      204
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /integrations/{id}/resume [post]
func (h *IntegrationHandler) Resume(c *gin.Context) {
	h.mutateIntegration(c, h.integrationService.Resume)
}

// Disconnect godoc
// @Summary      Disconnect a platform
// @Tags         integrations
// @Param        id path string true "Integration ID" format(uuid)
// @Success      204
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /integrations/{id} [delete]
func (h *IntegrationHandler) Disconnect(c *gin.Context) {
	h.mutateIntegration(c, h.integrationService.Disconnect)
}

func (h *IntegrationHandler) mutateIntegration(c *gin.Context, fn func(ctx context.Context, orgID, integrationID uuid.UUID) error) {
	orgID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	integrationID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid integration ID")
		return
	}

	if err := fn(c.Request.Context(), orgID, integrationID); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}

// TriggerSync godoc
// @Summary      Trigger a sync
// @Description  Queue a manual sync job for one entity class
// @Tags         sync
// @Accept       json
// @Produce      json
// @Param        id path string true "Integration ID" format(uuid)
// @Param        request body TriggerSyncRequest true "Sync request"
// @Success      202 {object} APIResponse[SyncJobResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /integrations/{id}/sync [post]
func (h *IntegrationHandler) TriggerSync(c *gin.Context) {
	orgID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	integrationID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid integration ID")
		return
	}

	var req TriggerSyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	direction := integration.SyncDirectionPull
	if req.Direction != "" {
		direction = integration.SyncDirection(req.Direction)
	}

	job, err := h.integrationService.TriggerSync(c.Request.Context(), integrationapp.TriggerSyncInput{
		OrgID:         orgID,
		IntegrationID: integrationID,
		Entity:        integration.SyncEntity(req.Entity),
		Direction:     direction,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, dto.NewSuccessResponse(toSyncJobResponse(*job)))
}

// ListJobs godoc
// @Summary      List sync jobs
// @Tags         sync
// @Produce      json
// @Param        page query int false "Page number"
// @Param        page_size query int false "Page size"
// @Success      200 {object} APIResponse[[]SyncJobResponse]
// @Security     BearerAuth
// @Router       /sync/jobs [get]
func (h *IntegrationHandler) ListJobs(c *gin.Context) {
	orgID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	jobs, err := h.integrationService.ListJobs(c.Request.Context(), orgID, parseFilter(c))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, syncJobResponses(jobs))
}

// GetJob godoc
// @Summary      Get a sync job
// @Tags         sync
// @Produce      json
// @Param        id path string true "Job ID" format(uuid)
// @Success      200 {object} APIResponse[SyncJobResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /sync/jobs/{id} [get]
func (h *IntegrationHandler) GetJob(c *gin.Context) {
	orgID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	jobID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid job ID")
		return
	}

	job, err := h.integrationService.GetJob(c.Request.Context(), orgID, jobID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toSyncJobResponse(*job))
}

// RecentJobs godoc
// @Summary      List recent sync jobs for an integration
// @Tags         sync
// @Produce      json
// @Param        id path string true "Integration ID" format(uuid)
// @Param        limit query int false "Max jobs to return"
// @Success      200 {object} APIResponse[[]SyncJobResponse]
// @Security     BearerAuth
// @Router       /integrations/{id}/jobs [get]
func (h *IntegrationHandler) RecentJobs(c *gin.Context) {
	orgID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	integrationID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid integration ID")
		return
	}

	limit := 20
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 200 {
			limit = parsed
		}
	}

	jobs, err := h.integrationService.RecentJobs(c.Request.Context(), orgID, integrationID, limit)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, syncJobResponses(jobs))
}

// CancelJob godoc
// @Summary      Cancel a queued sync job
// @Tags         sync
// @Param        id path string true "Job ID" format(uuid)
// @Success      204
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /sync/jobs/{id}/cancel [post]
func (h *IntegrationHandler) CancelJob(c *gin.Context) {
	orgID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	jobID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid job ID")
		return
	}

	if err := h.integrationService.CancelJob(c.Request.Context(), orgID, jobID); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}

// ListConflicts godoc
// @Summary      List sync conflicts
// @Tags         sync
// @Produce      json
// @Success      200 {object} APIResponse[[]ConflictResponse]
// @Security     BearerAuth
// @Router       /sync/conflicts [get]
func (h *IntegrationHandler) ListConflicts(c *gin.Context) {
	orgID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	conflicts, err := h.integrationService.ListConflicts(c.Request.Context(), orgID, parseFilter(c))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	responses := make([]ConflictResponse, 0, len(conflicts))
	for _, cf := range conflicts {
		responses = append(responses, toConflictResponse(cf))
	}
	h.Success(c, responses)
}

// ResolveConflict godoc
// @Summary      Resolve a sync conflict
// @Tags         sync
// @Accept       json
// @Produce      json
// @Param        id path string true "Conflict ID" format(uuid)
// @Param        request body ResolveConflictRequest true "Resolution"
// @Success      200 {object} APIResponse[ConflictResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /sync/conflicts/{id}/resolve [post]
func (h *IntegrationHandler) ResolveConflict(c *gin.Context) {
	orgID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	conflictID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid conflict ID")
		return
	}

	var req ResolveConflictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resolved, err := h.integrationService.ResolveConflict(c.Request.Context(), integrationapp.ResolveConflictInput{
		OrgID:      orgID,
		ConflictID: conflictID,
		Resolution: integration.ConflictResolution(req.Resolution),
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toConflictResponse(*resolved))
}

// ListWebhookEvents godoc
// @Summary      List stored webhook deliveries for an integration
// @Tags         webhooks
// @Produce      json
// @Param        id path string true "Integration ID" format(uuid)
// @Success      200 {object} APIResponse[[]WebhookEventResponse]
// @Security     BearerAuth
// @Router       /integrations/{id}/webhooks [get]
func (h *IntegrationHandler) ListWebhookEvents(c *gin.Context) {
	orgID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	integrationID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid integration ID")
		return
	}

	events, err := h.webhookService.ListForIntegration(c.Request.Context(), orgID, integrationID, parseFilter(c))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	responses := make([]WebhookEventResponse, 0, len(events))
	for _, e := range events {
		responses = append(responses, toWebhookEventResponse(e))
	}
	h.Success(c, responses)
}

func syncJobResponses(jobs []integrationapp.SyncJobInfo) []SyncJobResponse {
	responses := make([]SyncJobResponse, 0, len(jobs))
	for _, j := range jobs {
		responses = append(responses, toSyncJobResponse(j))
	}
	return responses
}
