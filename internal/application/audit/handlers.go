package audit

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/truthsource/backend/internal/domain/audit"
	"github.com/truthsource/backend/internal/domain/bulk"
	"github.com/truthsource/backend/internal/domain/catalog"
	"github.com/truthsource/backend/internal/domain/customer"
	"github.com/truthsource/backend/internal/domain/identity"
	"github.com/truthsource/backend/internal/domain/integration"
	"github.com/truthsource/backend/internal/domain/order"
	"github.com/truthsource/backend/internal/domain/pricing"
	"github.com/truthsource/backend/internal/domain/shared"
)

// Trail subscribes to domain events and appends audit entries for them.
// Entries go through the async recorder, so a slow audit store never backs
// up into the event bus.
type Trail struct {
	recorder audit.Recorder
	logger   *zap.Logger
}

// NewTrail creates a new audit trail subscriber
func NewTrail(recorder audit.Recorder, logger *zap.Logger) *Trail {
	return &Trail{
		recorder: recorder,
		logger:   logger,
	}
}

// EventTypes returns the event types the trail subscribes to
func (t *Trail) EventTypes() []string {
	return []string{
		identity.EventTypeOrganizationRegistered,
		identity.EventTypeUserCreated,
		identity.EventTypeUserLoggedIn,
		catalog.EventTypeProductCreated,
		catalog.EventTypeProductUpdated,
		catalog.EventTypeProductStatusChanged,
		catalog.EventTypeProductPriceChanged,
		customer.EventTypeCustomerCreated,
		customer.EventTypeCustomerTierChanged,
		order.EventTypeOrderIngested,
		order.EventTypeOrderStatusChanged,
		pricing.EventTypeRuleChanged,
		integration.EventTypeIntegrationConnected,
		integration.EventTypeIntegrationPaused,
		integration.EventTypeSyncCompleted,
		integration.EventTypeSyncFailed,
		bulk.EventTypeImportCompleted,
		bulk.EventTypeImportRolledBack,
	}
}

// Handle converts one domain event into an audit entry
func (t *Trail) Handle(ctx context.Context, event shared.DomainEvent) error {
	action, ok := actionForEvent(event.EventType())
	if !ok {
		return nil
	}

	actorID := actorForEvent(event)
	entityID := event.AggregateID()
	entry, err := audit.NewEntry(event.TenantID(), actorID, action, event.AggregateType(), &entityID)
	if err != nil {
		t.logger.Error("Failed to build audit entry from event",
			zap.String("event_type", event.EventType()),
			zap.Error(err),
		)
		return nil
	}

	// the event payload is the closest thing to an after-image the bus
	// carries; services that want a real diff attach one at the source
	if after, err := json.Marshal(event); err == nil {
		entry.WithDiff(nil, after)
	}

	t.recorder.Record(ctx, entry)
	return nil
}

func actionForEvent(eventType string) (audit.Action, bool) {
	switch eventType {
	case identity.EventTypeOrganizationRegistered,
		identity.EventTypeUserCreated,
		catalog.EventTypeProductCreated,
		customer.EventTypeCustomerCreated,
		order.EventTypeOrderIngested,
		integration.EventTypeIntegrationConnected:
		return audit.ActionCreate, true
	case catalog.EventTypeProductUpdated,
		catalog.EventTypeProductStatusChanged,
		catalog.EventTypeProductPriceChanged,
		customer.EventTypeCustomerTierChanged,
		order.EventTypeOrderStatusChanged,
		pricing.EventTypeRuleChanged,
		integration.EventTypeIntegrationPaused:
		return audit.ActionUpdate, true
	case identity.EventTypeUserLoggedIn:
		return audit.ActionLogin, true
	case integration.EventTypeSyncCompleted,
		integration.EventTypeSyncFailed:
		return audit.ActionSync, true
	case bulk.EventTypeImportCompleted:
		return audit.ActionImport, true
	case bulk.EventTypeImportRolledBack:
		return audit.ActionRollback, true
	}
	return "", false
}

// actorForEvent extracts the acting user where the event names one. Most
// events are recorded as system activity (nil actor).
func actorForEvent(event shared.DomainEvent) *uuid.UUID {
	switch e := event.(type) {
	case *identity.UserLoggedInEvent:
		id := e.UserID
		return &id
	case *identity.UserCreatedEvent:
		id := e.UserID
		return &id
	}
	return nil
}
