package integration

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/truthsource/backend/internal/domain/integration"
	"github.com/truthsource/backend/internal/domain/shared"
)

// Bounded time for one inline webhook dispatch
const webhookDispatchTimeout = 15 * time.Second

// How long a platform event ID stays deduplicated
const webhookDedupTTL = 24 * time.Hour

// ReceiveWebhookInput is a verified webhook delivery. Signature verification
// happens at the HTTP layer before this service sees the payload.
type ReceiveWebhookInput struct {
	IntegrationID   uuid.UUID
	Topic           string
	ExternalEventID string
	Payload         []byte
}

// ReceiveResult reports what happened to a delivery
type ReceiveResult struct {
	Event     WebhookEventInfo
	Duplicate bool
}

// ChangeApplier applies one parsed platform change to local state; the sync
// engine implements it
type ChangeApplier interface {
	ApplyProduct(ctx context.Context, integ *integration.Integration, remote *RemoteProduct) error
	ApplyInventory(ctx context.Context, integ *integration.Integration, remote *RemoteInventory) error
	ApplyOrder(ctx context.Context, integ *integration.Integration, remote *RemoteOrder) error
}

// WebhookService stores and processes webhook deliveries. Each delivery is
// dispatched inline: the connector decodes the payload and the change is
// applied to local state under a bounded timeout. The platform reported the
// change, so its value wins, inventory included.
type WebhookService struct {
	webhookRepo     integration.WebhookEventRepository
	integrationRepo integration.Repository
	connectors      ConnectorRegistry
	applier         ChangeApplier
	dedup           shared.IdempotencyStore
	eventPublisher  shared.EventPublisher
	logger          *zap.Logger
}

// NewWebhookService creates a new webhook service
func NewWebhookService(
	webhookRepo integration.WebhookEventRepository,
	integrationRepo integration.Repository,
	connectors ConnectorRegistry,
	applier ChangeApplier,
	logger *zap.Logger,
) *WebhookService {
	return &WebhookService{
		webhookRepo:     webhookRepo,
		integrationRepo: integrationRepo,
		connectors:      connectors,
		applier:         applier,
		logger:          logger,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *WebhookService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetDedupStore sets the store that remembers seen platform event IDs
func (s *WebhookService) SetDedupStore(store shared.IdempotencyStore) {
	s.dedup = store
}

// Receive stores a verified delivery and processes it. Duplicate deliveries
// (same integration and external event ID inside the dedup window) are
// acknowledged without storing a second row. Deliveries for paused
// integrations are stored but left unprocessed; resuming the integration
// picks them up via the retry sweep.
func (s *WebhookService) Receive(ctx context.Context, input ReceiveWebhookInput) (*ReceiveResult, error) {
	integ, err := s.integrationRepo.FindByID(ctx, input.IntegrationID)
	if err != nil {
		return nil, shared.NewDomainError("INTEGRATION_NOT_FOUND", "Integration not found")
	}

	if input.ExternalEventID != "" && s.dedup != nil {
		key := "webhook:" + integ.ID.String() + ":" + input.ExternalEventID
		fresh, err := s.dedup.MarkProcessed(ctx, key, webhookDedupTTL)
		if err != nil {
			// at-least-once beats dropping the change
			s.logger.Warn("Webhook dedup store unavailable", zap.Error(err))
		} else if !fresh {
			s.logger.Debug("Duplicate webhook delivery acknowledged",
				zap.String("integration_id", integ.ID.String()),
				zap.String("external_event_id", input.ExternalEventID))
			return &ReceiveResult{Duplicate: true}, nil
		}
	}

	event, err := integration.NewWebhookEvent(integ.TenantID, integ.ID, integ.Platform, input.Topic, input.ExternalEventID, input.Payload)
	if err != nil {
		return nil, err
	}

	if err := s.webhookRepo.Save(ctx, event); err != nil {
		s.logger.Error("Failed to store webhook event", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to store webhook")
	}

	s.publishEvents(ctx, event.GetDomainEvents())
	event.ClearDomainEvents()

	if integ.IsActive() {
		s.process(ctx, integ, event)
		if err := s.webhookRepo.Save(ctx, event); err != nil {
			s.logger.Error("Failed to update webhook event state", zap.Error(err))
		}
		s.publishEvents(ctx, event.GetDomainEvents())
		event.ClearDomainEvents()
	}

	info := toWebhookEventInfo(event)
	return &ReceiveResult{Event: info}, nil
}

// process applies the change a stored delivery describes. Failures mark the
// event failed; the reconciler sweep retries it while attempts remain.
func (s *WebhookService) process(ctx context.Context, integ *integration.Integration, event *integration.WebhookEvent) {
	entity, ok := classifyTopic(event.Topic)
	if !ok {
		s.logger.Info("Webhook topic has no handler",
			zap.String("platform", string(event.Platform)),
			zap.String("topic", event.Topic))
		event.MarkSkipped()
		return
	}

	connector, ok := s.connectors.Connector(integ.Platform)
	if !ok {
		event.MarkFailed("no connector for platform " + string(integ.Platform))
		return
	}

	ctx, cancel := context.WithTimeout(ctx, webhookDispatchTimeout)
	defer cancel()

	if err := s.dispatch(ctx, connector, integ, entity, event.Payload); err != nil {
		event.MarkFailed(err.Error())
		return
	}
	event.MarkProcessed()
}

// dispatch decodes the payload and applies the change it describes
func (s *WebhookService) dispatch(ctx context.Context, connector Connector, integ *integration.Integration, entity integration.SyncEntity, payload []byte) error {
	switch entity {
	case integration.SyncEntityProducts:
		remotes, err := connector.ParseProductWebhook(payload)
		if err != nil {
			return err
		}
		for i := range remotes {
			if err := s.applier.ApplyProduct(ctx, integ, &remotes[i]); err != nil {
				return err
			}
		}
		return nil
	case integration.SyncEntityInventory:
		remote, err := connector.ParseInventoryWebhook(payload)
		if err != nil {
			return err
		}
		return s.applier.ApplyInventory(ctx, integ, remote)
	case integration.SyncEntityOrders:
		remote, err := connector.ParseOrderWebhook(payload)
		if err != nil {
			return err
		}
		return s.applier.ApplyOrder(ctx, integ, remote)
	}
	return errors.New("unhandled sync entity " + string(entity))
}

// RetryFailed reprocesses failed deliveries with attempts remaining. The
// reconciler sweep calls this.
func (s *WebhookService) RetryFailed(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = 50
	}

	events, err := s.webhookRepo.FindRetryable(ctx, limit)
	if err != nil {
		return 0, err
	}

	retried := 0
	for i := range events {
		event := &events[i]
		integ, err := s.integrationRepo.FindByID(ctx, event.IntegrationID)
		if err != nil || !integ.IsActive() {
			continue
		}

		s.process(ctx, integ, event)
		if err := s.webhookRepo.Save(ctx, event); err != nil {
			s.logger.Error("Failed to save retried webhook event", zap.Error(err))
			continue
		}
		s.publishEvents(ctx, event.GetDomainEvents())
		event.ClearDomainEvents()
		retried++
	}

	return retried, nil
}

// ListForIntegration returns stored deliveries for an integration
func (s *WebhookService) ListForIntegration(ctx context.Context, orgID, integrationID uuid.UUID, filter shared.Filter) ([]WebhookEventInfo, error) {
	events, err := s.webhookRepo.FindAllForIntegration(ctx, orgID, integrationID, filter)
	if err != nil {
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to list webhook events")
	}

	infos := make([]WebhookEventInfo, 0, len(events))
	for i := range events {
		infos = append(infos, toWebhookEventInfo(&events[i]))
	}
	return infos, nil
}

// PruneProcessed deletes processed deliveries older than the retention window
func (s *WebhookService) PruneProcessed(ctx context.Context, retention time.Duration) (int64, error) {
	return s.webhookRepo.DeleteProcessedBefore(ctx, time.Now().Add(-retention))
}

// classifyTopic maps a platform webhook topic to the entity it changes
func classifyTopic(topic string) (integration.SyncEntity, bool) {
	t := strings.ToLower(topic)
	switch {
	case strings.Contains(t, "order"):
		return integration.SyncEntityOrders, true
	case strings.Contains(t, "product") || strings.Contains(t, "item"):
		return integration.SyncEntityProducts, true
	case strings.Contains(t, "inventory") || strings.Contains(t, "stock"):
		return integration.SyncEntityInventory, true
	}
	return "", false
}

func (s *WebhookService) publishEvents(ctx context.Context, events []shared.DomainEvent) {
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	_ = s.eventPublisher.Publish(ctx, events...)
}
