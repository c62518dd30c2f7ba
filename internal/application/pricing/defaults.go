package pricing

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/truthsource/backend/internal/domain/identity"
	"github.com/truthsource/backend/internal/domain/pricing"
	"github.com/truthsource/backend/internal/domain/shared"
)

// DefaultsHandler seeds a new organization with starter pricing rules when it
// registers. The rules are created disabled so registration never changes a
// quote until an admin opts in.
type DefaultsHandler struct {
	ruleRepo       pricing.RuleRepository
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewDefaultsHandler creates a new defaults handler
func NewDefaultsHandler(ruleRepo pricing.RuleRepository, logger *zap.Logger) *DefaultsHandler {
	return &DefaultsHandler{ruleRepo: ruleRepo, logger: logger}
}

// SetEventPublisher sets the event publisher for the handler
func (h *DefaultsHandler) SetEventPublisher(publisher shared.EventPublisher) {
	h.eventPublisher = publisher
}

// EventTypes returns the event types the handler subscribes to
func (h *DefaultsHandler) EventTypes() []string {
	return []string{identity.EventTypeOrganizationRegistered}
}

// Handle processes a domain event
func (h *DefaultsHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	registered, ok := event.(*identity.OrganizationRegisteredEvent)
	if !ok {
		return nil
	}

	// retried deliveries must not seed twice
	count, err := h.ruleRepo.CountForTenant(ctx, registered.OrganizationID, shared.Filter{})
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	rules, err := defaultRules(registered.OrganizationID)
	if err != nil {
		return err
	}

	if err := h.ruleRepo.SaveBatch(ctx, rules); err != nil {
		h.logger.Error("Failed to seed default pricing rules",
			zap.Error(err), zap.String("org_id", registered.OrganizationID.String()))
		return err
	}

	for _, rule := range rules {
		h.publish(ctx, rule.GetDomainEvents()...)
		rule.ClearDomainEvents()
	}
	h.logger.Info("Seeded default pricing rules",
		zap.String("org_id", registered.OrganizationID.String()),
		zap.Int("rules", len(rules)))
	return nil
}

// defaultRules builds the starter rule set for a tenant
func defaultRules(orgID uuid.UUID) ([]*pricing.Rule, error) {
	minQty := int64(100)
	volume, err := pricing.NewRule(orgID, "Volume discount", pricing.RuleTypeQuantityBreak, 200,
		decimal.NewFromInt(-5), pricing.Conditions{MinQuantity: &minQty})
	if err != nil {
		return nil, err
	}
	volume.Disable()

	maxInv := int64(10)
	lowStock, err := pricing.NewRule(orgID, "Low stock markup", pricing.RuleTypeInventoryLevel, 100,
		decimal.NewFromInt(10), pricing.Conditions{MaxInventory: &maxInv})
	if err != nil {
		return nil, err
	}
	lowStock.Disable()

	return []*pricing.Rule{lowStock, volume}, nil
}

func (h *DefaultsHandler) publish(ctx context.Context, events ...shared.DomainEvent) {
	if h.eventPublisher == nil || len(events) == 0 {
		return
	}
	_ = h.eventPublisher.Publish(ctx, events...)
}
