package alert

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/truthsource/backend/internal/domain/alert"
	"github.com/truthsource/backend/internal/domain/insights"
	"github.com/truthsource/backend/internal/domain/integration"
	"github.com/truthsource/backend/internal/domain/inventory"
	"github.com/truthsource/backend/internal/domain/shared"
)

// Notifier turns domain events into user-facing alerts. It subscribes to
// stock changes, anomaly detections, and sync and webhook failures, and
// suppresses duplicates while an open alert already covers the entity.
type Notifier struct {
	alertRepo alert.Repository
	logger    *zap.Logger
}

// NewNotifier creates a new alert notifier
func NewNotifier(alertRepo alert.Repository, logger *zap.Logger) *Notifier {
	return &Notifier{
		alertRepo: alertRepo,
		logger:    logger,
	}
}

// EventTypes returns the event types the notifier subscribes to
func (n *Notifier) EventTypes() []string {
	return []string{
		inventory.EventTypeInventoryLevelChanged,
		insights.EventTypeAnomalyDetected,
		integration.EventTypeSyncFailed,
		integration.EventTypeIntegrationFailed,
		integration.EventTypeWebhookFailed,
	}
}

// Handle processes a domain event
func (n *Notifier) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *inventory.InventoryLevelChangedEvent:
		return n.onInventoryLevelChanged(ctx, e)
	case *insights.AnomalyDetectedEvent:
		return n.onAnomalyDetected(ctx, e)
	case *integration.SyncFailedEvent:
		return n.onSyncFailed(ctx, e)
	case *integration.IntegrationFailedEvent:
		return n.onIntegrationFailed(ctx, e)
	case *integration.WebhookFailedEvent:
		return n.onWebhookFailed(ctx, e)
	}
	return nil
}

func (n *Notifier) onInventoryLevelChanged(ctx context.Context, e *inventory.InventoryLevelChangedEvent) error {
	if !e.BelowReorderPoint {
		return nil
	}
	return n.raise(ctx, e.TenantID(), alert.TypeLowStock, alert.SeverityWarning,
		"Low stock",
		fmt.Sprintf("Stock dropped to %d units (reason: %s), at or below the reorder point", e.QuantityAfter, e.Reason),
		"product", &e.ProductID)
}

func (n *Notifier) onAnomalyDetected(ctx context.Context, e *insights.AnomalyDetectedEvent) error {
	return n.raise(ctx, e.TenantID(), alert.TypeAnomaly, anomalySeverity(e.Severity),
		fmt.Sprintf("%s anomaly detected", e.DataType),
		e.Description,
		"anomaly", &e.AnomalyID)
}

func (n *Notifier) onSyncFailed(ctx context.Context, e *integration.SyncFailedEvent) error {
	return n.raise(ctx, e.TenantID(), alert.TypeSyncFailure, alert.SeverityWarning,
		fmt.Sprintf("%s %s sync failed", e.Platform, e.Entity),
		fmt.Sprintf("Sync gave up after %d attempts: %s", e.Attempts, e.LastError),
		"integration", &e.IntegrationID)
}

func (n *Notifier) onIntegrationFailed(ctx context.Context, e *integration.IntegrationFailedEvent) error {
	return n.raise(ctx, e.TenantID(), alert.TypeSyncFailure, alert.SeverityCritical,
		fmt.Sprintf("%s connection failing", e.Platform),
		fmt.Sprintf("%s moved to error status after repeated sync failures: %s", e.DisplayName, e.LastError),
		"integration", &e.IntegrationID)
}

func (n *Notifier) onWebhookFailed(ctx context.Context, e *integration.WebhookFailedEvent) error {
	return n.raise(ctx, e.TenantID(), alert.TypeWebhookFailure, alert.SeverityWarning,
		fmt.Sprintf("%s webhook processing failed", e.Platform),
		fmt.Sprintf("Delivery for topic %q failed after %d attempts: %s", e.Topic, e.Attempts, e.LastError),
		"integration", &e.IntegrationID)
}

func (n *Notifier) raise(ctx context.Context, orgID uuid.UUID, alertType alert.Type, severity alert.Severity, title, message, entityType string, entityID *uuid.UUID) error {
	if entityID != nil {
		open, err := n.alertRepo.HasOpenForEntity(ctx, orgID, alertType, *entityID)
		if err != nil {
			n.logger.Error("Failed to check for open alert", zap.Error(err))
			return err
		}
		if open {
			return nil
		}
	}

	a, err := alert.NewAlert(orgID, alertType, severity, title, message, entityType, entityID)
	if err != nil {
		return err
	}
	if err := n.alertRepo.Save(ctx, a); err != nil {
		n.logger.Error("Failed to save alert", zap.Error(err), zap.String("type", string(alertType)))
		return err
	}

	n.logger.Info("Alert raised",
		zap.String("org_id", orgID.String()),
		zap.String("type", string(alertType)),
		zap.String("severity", string(severity)),
		zap.String("title", title))
	return nil
}

// anomalySeverity maps the detector's four-level scale onto the three alert levels
func anomalySeverity(s insights.Severity) alert.Severity {
	switch s {
	case insights.SeverityCritical:
		return alert.SeverityCritical
	case insights.SeverityHigh:
		return alert.SeverityWarning
	default:
		return alert.SeverityInfo
	}
}
