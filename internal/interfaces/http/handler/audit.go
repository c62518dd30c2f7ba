package handler

import (
	"encoding/csv"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	auditapp "github.com/truthsource/backend/internal/application/audit"
	"github.com/truthsource/backend/internal/domain/audit"
	"github.com/truthsource/backend/internal/domain/identity"
	"github.com/truthsource/backend/internal/domain/shared"
	"github.com/truthsource/backend/internal/interfaces/http/middleware"
)

// exportPageSize is the batch size the CSV export reads the trail in
const exportPageSize = 500

// AuditHandler handles audit log API endpoints. Reading the audit trail is
// admin-only.
type AuditHandler struct {
	BaseHandler
	auditService *auditapp.Service
}

// NewAuditHandler creates a new AuditHandler
func NewAuditHandler(auditService *auditapp.Service) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

// RegisterRoutes registers audit routes
func (h *AuditHandler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/audit", middleware.RequireRole(identity.RoleAdmin))
	group.GET("", h.List)
	group.GET("/export", h.Export)
}

// parseListInput reads the audit query filters off the request. A nil return
// means a response has already been written.
func (h *AuditHandler) parseListInput(c *gin.Context, orgID uuid.UUID) *auditapp.ListInput {
	input := auditapp.ListInput{
		OrgID:      orgID,
		EntityType: c.Query("entity_type"),
	}

	if raw := c.Query("actor_id"); raw != "" {
		actorID, err := uuid.Parse(raw)
		if err != nil {
			h.BadRequest(c, "Invalid actor ID")
			return nil
		}
		input.ActorID = &actorID
	}
	if raw := c.Query("entity_id"); raw != "" {
		entityID, err := uuid.Parse(raw)
		if err != nil {
			h.BadRequest(c, "Invalid entity ID")
			return nil
		}
		input.EntityID = &entityID
	}
	if raw := c.Query("action"); raw != "" {
		action := audit.Action(raw)
		input.Action = &action
	}
	if raw := c.Query("from"); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			h.BadRequest(c, "Invalid from time, expected RFC 3339")
			return nil
		}
		input.From = &from
	}
	if raw := c.Query("to"); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			h.BadRequest(c, "Invalid to time, expected RFC 3339")
			return nil
		}
		input.To = &to
	}

	return &input
}

// List godoc
// @Summary      List audit entries
// @Description  Query the organization's audit trail with optional actor, action, entity, and time filters
// @Tags         audit
// @Produce      json
// @Param        actor_id query string false "Filter by actor" format(uuid)
// @Param        action query string false "Filter by action"
// @Param        entity_type query string false "Filter by entity type"
// @Param        entity_id query string false "Filter by entity" format(uuid)
// @Param        from query string false "Entries at or after this time" format(date-time)
// @Param        to query string false "Entries before this time" format(date-time)
// @Param        page query int false "Page number"
// @Param        page_size query int false "Page size"
// @Success      200 {object} APIResponse[[]auditapp.EntryInfo]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /audit [get]
func (h *AuditHandler) List(c *gin.Context) {
	orgID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	input := h.parseListInput(c, orgID)
	if input == nil {
		return
	}

	filter := parseFilter(c)
	page, err := h.auditService.List(c.Request.Context(), *input, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Paginated(c, page.Items, page.Total, filter)
}

// Export godoc
// @Summary      Export audit entries as CSV
// @Description  Stream the filtered audit trail as a CSV download
// @Tags         audit
// @Produce      text/csv
// @Param        actor_id query string false "Filter by actor" format(uuid)
// @Param        action query string false "Filter by action"
// @Param        entity_type query string false "Filter by entity type"
// @Param        entity_id query string false "Filter by entity" format(uuid)
// @Param        from query string false "Entries at or after this time" format(date-time)
// @Param        to query string false "Entries before this time" format(date-time)
// @Success      200 {string} string "CSV payload"
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /audit/export [get]
func (h *AuditHandler) Export(c *gin.Context) {
	orgID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	input := h.parseListInput(c, orgID)
	if input == nil {
		return
	}

	fileName := fmt.Sprintf("audit-%s.csv", time.Now().UTC().Format("20060102-150405"))
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="`+fileName+`"`)
	c.Status(200)

	w := csv.NewWriter(c.Writer)
	_ = w.Write([]string{"created_at", "actor_id", "action", "entity_type", "entity_id", "request_id", "ip"})

	filter := shared.DefaultFilter()
	filter.PageSize = exportPageSize
	for filter.Page = 1; ; filter.Page++ {
		page, err := h.auditService.List(c.Request.Context(), *input, filter)
		if err != nil {
			// headers are already out; stop the stream where it is
			break
		}
		for i := range page.Items {
			e := &page.Items[i]
			record := []string{
				e.CreatedAt.UTC().Format(time.RFC3339),
				uuidOrEmpty(e.ActorID),
				string(e.Action),
				e.EntityType,
				uuidOrEmpty(e.EntityID),
				e.RequestID,
				e.IP,
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

func uuidOrEmpty(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}
