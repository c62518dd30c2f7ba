package pricing

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/truthsource/backend/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeRule = "PricingRule"

// Event type constant
const EventTypeRuleChanged = "PricingRuleChanged"

// RuleChangedEvent is published when a rule is created, updated, enabled, or
// disabled. Platform price push uses it to know quotes need recomputing.
type RuleChangedEvent struct {
	shared.BaseDomainEvent
	RuleID            uuid.UUID       `json:"rule_id"`
	Name              string          `json:"name"`
	RuleType          RuleType        `json:"rule_type"`
	Change            string          `json:"change"` // created|updated|enabled|disabled
	AdjustmentPercent decimal.Decimal `json:"adjustment_percent"`
}

// NewRuleChangedEvent creates a new RuleChangedEvent
func NewRuleChangedEvent(rule *Rule, change string) *RuleChangedEvent {
	return &RuleChangedEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(EventTypeRuleChanged, AggregateTypeRule, rule.ID, rule.TenantID),
		RuleID:            rule.ID,
		Name:              rule.Name,
		RuleType:          rule.Type,
		Change:            change,
		AdjustmentPercent: rule.AdjustmentPercent,
	}
}
