package alert

import (
	"time"

	"github.com/google/uuid"

	"github.com/truthsource/backend/internal/domain/alert"
)

// Info is the alert data returned to the API layer
type Info struct {
	ID             uuid.UUID      `json:"id"`
	Type           alert.Type     `json:"type"`
	Severity       alert.Severity `json:"severity"`
	Title          string         `json:"title"`
	Message        string         `json:"message"`
	EntityType     string         `json:"entity_type,omitempty"`
	EntityID       *uuid.UUID     `json:"entity_id,omitempty"`
	Status         alert.Status   `json:"status"`
	AcknowledgedBy *uuid.UUID     `json:"acknowledged_by,omitempty"`
	ResolvedAt     *time.Time     `json:"resolved_at,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

func toInfo(a *alert.Alert) Info {
	return Info{
		ID:             a.ID,
		Type:           a.Type,
		Severity:       a.Severity,
		Title:          a.Title,
		Message:        a.Message,
		EntityType:     a.EntityType,
		EntityID:       a.EntityID,
		Status:         a.Status,
		AcknowledgedBy: a.AcknowledgedBy,
		ResolvedAt:     a.ResolvedAt,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}
