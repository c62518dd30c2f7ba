// Package pricing provides the rule evaluators behind price calculation.
// Each evaluator handles one rule type; the registry resolves them during
// quote evaluation.
package pricing

import (
	"github.com/truthsource/backend/internal/domain/pricing"
)

// InventoryLevelEvaluator matches rules bounded by the product's total
// on-hand stock.
type InventoryLevelEvaluator struct{}

func (InventoryLevelEvaluator) RuleType() pricing.RuleType {
	return pricing.RuleTypeInventoryLevel
}

func (InventoryLevelEvaluator) Matches(rule *pricing.Rule, qc pricing.QuoteContext) bool {
	c := rule.Conditions
	if c.MinInventory != nil && qc.InventoryOnHand < *c.MinInventory {
		return false
	}
	if c.MaxInventory != nil && qc.InventoryOnHand > *c.MaxInventory {
		return false
	}
	return true
}

// QuantityBreakEvaluator matches volume discounts by ordered quantity.
type QuantityBreakEvaluator struct{}

func (QuantityBreakEvaluator) RuleType() pricing.RuleType {
	return pricing.RuleTypeQuantityBreak
}

func (QuantityBreakEvaluator) Matches(rule *pricing.Rule, qc pricing.QuoteContext) bool {
	c := rule.Conditions
	return c.MinQuantity != nil && qc.Quantity >= *c.MinQuantity
}

// CustomerTierEvaluator matches tier-specific pricing. Quotes without a
// customer never match tier rules.
type CustomerTierEvaluator struct{}

func (CustomerTierEvaluator) RuleType() pricing.RuleType {
	return pricing.RuleTypeCustomerTier
}

func (CustomerTierEvaluator) Matches(rule *pricing.Rule, qc pricing.QuoteContext) bool {
	c := rule.Conditions
	if c.CustomerTier == nil || qc.CustomerTier == nil {
		return false
	}
	return *c.CustomerTier == *qc.CustomerTier
}

// DateWindowEvaluator matches seasonal and promotional windows. An open
// bound means the window extends indefinitely in that direction.
type DateWindowEvaluator struct{}

func (DateWindowEvaluator) RuleType() pricing.RuleType {
	return pricing.RuleTypeDateWindow
}

func (DateWindowEvaluator) Matches(rule *pricing.Rule, qc pricing.QuoteContext) bool {
	c := rule.Conditions
	if c.StartsAt != nil && qc.At.Before(*c.StartsAt) {
		return false
	}
	if c.EndsAt != nil && qc.At.After(*c.EndsAt) {
		return false
	}
	return true
}

// Registry maps rule types to their evaluators
type Registry struct {
	evaluators map[pricing.RuleType]pricing.Evaluator
}

// NewRegistry creates a registry with the default evaluator per rule type
func NewRegistry() *Registry {
	r := &Registry{evaluators: make(map[pricing.RuleType]pricing.Evaluator)}
	for _, e := range []pricing.Evaluator{
		InventoryLevelEvaluator{},
		QuantityBreakEvaluator{},
		CustomerTierEvaluator{},
		DateWindowEvaluator{},
	} {
		r.evaluators[e.RuleType()] = e
	}
	return r
}

// Evaluator resolves the evaluator for a rule type
func (r *Registry) Evaluator(ruleType pricing.RuleType) (pricing.Evaluator, bool) {
	e, ok := r.evaluators[ruleType]
	return e, ok
}
