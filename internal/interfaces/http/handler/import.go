package handler

import (
	"io"
	"time"

	"github.com/gin-gonic/gin"

	importapp "github.com/truthsource/backend/internal/application/import"
	"github.com/truthsource/backend/internal/domain/bulk"
	"github.com/truthsource/backend/internal/interfaces/http/middleware"
)

// defaultMaxImportBytes caps uploaded CSV files when no limit is configured
const defaultMaxImportBytes = 10 << 20

// ImportHandler handles CSV bulk import API endpoints
type ImportHandler struct {
	BaseHandler
	importService   *importapp.Service
	rollbackService *importapp.RollbackService
	maxFileBytes    int64
}

// NewImportHandler creates a new ImportHandler
func NewImportHandler(importService *importapp.Service, rollbackService *importapp.RollbackService, maxFileBytes int64) *ImportHandler {
	if maxFileBytes <= 0 {
		maxFileBytes = defaultMaxImportBytes
	}
	return &ImportHandler{
		importService:   importService,
		rollbackService: rollbackService,
		maxFileBytes:    maxFileBytes,
	}
}

// RegisterRoutes registers import routes
func (h *ImportHandler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/imports")
	group.GET("", h.List)
	group.GET("/:id", h.Get)

	write := group.Group("", middleware.RequireWriteAccess())
	write.POST("", h.Run)
	write.POST("/:id/rollback", h.Rollback)
}

// ImportErrorDetailResponse is one row-level import error
type ImportErrorDetailResponse struct {
	Row     int    `json:"row"`
	Column  string `json:"column,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

// ImportHistoryResponse represents an import run in API responses
type ImportHistoryResponse struct {
	ID             string                      `json:"id"`
	EntityType     string                      `json:"entity_type"`
	FileName       string                      `json:"file_name"`
	FileSize       int64                       `json:"file_size"`
	TotalRows      int                         `json:"total_rows"`
	SuccessRows    int                         `json:"success_rows"`
	ErrorRows      int                         `json:"error_rows"`
	SkippedRows    int                         `json:"skipped_rows"`
	UpdatedRows    int                         `json:"updated_rows"`
	RolledBackRows int                         `json:"rolled_back_rows"`
	ConflictMode   string                      `json:"conflict_mode"`
	Status         string                      `json:"status"`
	Errors         []ImportErrorDetailResponse `json:"errors,omitempty"`
	SuccessRate    float64                     `json:"success_rate"`
	StartedAt      *time.Time                  `json:"started_at,omitempty"`
	CompletedAt    *time.Time                  `json:"completed_at,omitempty"`
	RolledBackAt   *time.Time                  `json:"rolled_back_at,omitempty"`
	CreatedAt      time.Time                   `json:"created_at"`
}

// RollbackResponse reports what a rollback reverted
type RollbackResponse struct {
	ImportID       string `json:"import_id"`
	RolledBackRows int    `json:"rolled_back_rows"`
	AlreadyRolled  bool   `json:"already_rolled,omitempty"`
}

func toImportHistoryResponse(info importapp.HistoryInfo) ImportHistoryResponse {
	details := make([]ImportErrorDetailResponse, 0, len(info.ErrorDetails))
	for _, d := range info.ErrorDetails {
		details = append(details, ImportErrorDetailResponse{
			Row:     d.Row,
			Column:  d.Column,
			Code:    d.Code,
			Message: d.Message,
			Value:   d.Value,
		})
	}

	return ImportHistoryResponse{
		ID:             info.ID.String(),
		EntityType:     string(info.EntityType),
		FileName:       info.FileName,
		FileSize:       info.FileSize,
		TotalRows:      info.TotalRows,
		SuccessRows:    info.SuccessRows,
		ErrorRows:      info.ErrorRows,
		SkippedRows:    info.SkippedRows,
		UpdatedRows:    info.UpdatedRows,
		RolledBackRows: info.RolledBackRows,
		ConflictMode:   string(info.ConflictMode),
		Status:         string(info.Status),
		Errors:         details,
		SuccessRate:    info.SuccessRate,
		StartedAt:      info.StartedAt,
		CompletedAt:    info.CompletedAt,
		RolledBackAt:   info.RolledBackAt,
		CreatedAt:      info.CreatedAt,
	}
}

// Run godoc
// @Summary      Run a CSV import
// @Description  Upload a CSV file and apply it to one entity class
// @Tags         imports
// @Accept       multipart/form-data
// @Produce      json
// @Param        file formData file true "CSV file"
// @Param        entity_type formData string true "Entity class" Enums(products, inventory, pricing_rules, customers)
// @Param        conflict_mode formData string false "Conflict handling" Enums(skip, update, fail)
// @Success      200 {object} APIResponse[ImportHistoryResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      413 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /imports [post]
func (h *ImportHandler) Run(c *gin.Context) {
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

	entityType := bulk.ImportEntityType(c.PostForm("entity_type"))
	switch entityType {
	case bulk.ImportEntityProducts, bulk.ImportEntityInventory, bulk.ImportEntityPricingRules, bulk.ImportEntityCustomers:
	default:
		h.BadRequest(c, "Invalid entity type")
		return
	}

	conflictMode := bulk.ConflictModeSkip
	if raw := c.PostForm("conflict_mode"); raw != "" {
		conflictMode = bulk.ConflictMode(raw)
		switch conflictMode {
		case bulk.ConflictModeSkip, bulk.ConflictModeUpdate, bulk.ConflictModeFail:
		default:
			h.BadRequest(c, "Invalid conflict mode")
			return
		}
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		h.BadRequest(c, "Missing file upload")
		return
	}
	defer file.Close()

	if header.Size > h.maxFileBytes {
		h.PayloadTooLarge(c, "Import file too large")
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, h.maxFileBytes+1))
	if err != nil {
		h.BadRequest(c, "Failed to read uploaded file")
		return
	}
	if int64(len(data)) > h.maxFileBytes {
		h.PayloadTooLarge(c, "Import file too large")
		return
	}

	result, err := h.importService.Run(c.Request.Context(), importapp.RunImportInput{
		OrgID:        orgID,
		UserID:       userID,
		EntityType:   entityType,
		FileName:     header.Filename,
		ConflictMode: conflictMode,
		Data:         data,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toImportHistoryResponse(*result))
}

// List godoc
// @Summary      List import runs
// @Tags         imports
// @Produce      json
// @Param        page query int false "Page number"
// @Param        page_size query int false "Page size"
// @Success      200 {object} APIResponse[[]ImportHistoryResponse]
// @Security     BearerAuth
// @Router       /imports [get]
func (h *ImportHandler) List(c *gin.Context) {
	orgID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	filter := parseFilter(c)
	page, err := h.importService.List(c.Request.Context(), orgID, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	imports := make([]ImportHistoryResponse, 0, len(page.Items))
	for _, info := range page.Items {
		imports = append(imports, toImportHistoryResponse(info))
	}
	h.Paginated(c, imports, page.Total, filter)
}

// Get godoc
// @Summary      Get an import run
// @Tags         imports
// @Produce      json
// @Param        id path string true "Import ID" format(uuid)
// @Success      200 {object} APIResponse[ImportHistoryResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /imports/{id} [get]
func (h *ImportHandler) Get(c *gin.Context) {
	orgID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	importID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid import ID")
		return
	}

	info, err := h.importService.Get(c.Request.Context(), orgID, importID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toImportHistoryResponse(*info))
}

// Rollback godoc
// @Summary      Roll back an import
// @Description  Revert every change the import applied, using its operation log
// @Tags         imports
// @Produce      json
// @Param        id path string true "Import ID" format(uuid)
// @Success      200 {object} APIResponse[RollbackResponse]
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /imports/{id}/rollback [post]
func (h *ImportHandler) Rollback(c *gin.Context) {
	orgID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	importID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid import ID")
		return
	}

	result, err := h.rollbackService.Rollback(c.Request.Context(), orgID, importID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, RollbackResponse{
		ImportID:       result.ImportID.String(),
		RolledBackRows: result.RolledBackRows,
		AlreadyRolled:  result.AlreadyRolled,
	})
}
