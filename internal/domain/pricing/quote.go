package pricing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/truthsource/backend/internal/domain/customer"
)

// QuoteContext carries everything a rule evaluator may consult
type QuoteContext struct {
	TenantID     uuid.UUID
	ProductID    uuid.UUID
	CategoryID   *uuid.UUID
	BasePrice    decimal.Decimal
	Quantity     int64
	CustomerID   *uuid.UUID
	CustomerTier *customer.Tier
	// InventoryOnHand is the product's total on-hand quantity across locations
	InventoryOnHand int64
	At              time.Time
}

// Quote is the result of a price calculation
type Quote struct {
	ProductID         uuid.UUID       `json:"product_id"`
	BasePrice         decimal.Decimal `json:"base_price"`
	FinalPrice        decimal.Decimal `json:"final_price"`
	AdjustmentPercent decimal.Decimal `json:"adjustment_percent"`
	AppliedRuleID     *uuid.UUID      `json:"applied_rule_id,omitempty"`
	AppliedRuleName   string          `json:"applied_rule_name,omitempty"`
	Quantity          int64           `json:"quantity"`
	CalculatedAt      time.Time       `json:"calculated_at"`
}

// Evaluator decides whether a single rule type's conditions match a context.
// One evaluator is registered per RuleType.
type Evaluator interface {
	// RuleType returns the rule type this evaluator handles
	RuleType() RuleType
	// Matches reports whether the rule's conditions hold for the context
	Matches(rule *Rule, qc QuoteContext) bool
}

// EvaluatorRegistry resolves the evaluator for a rule type
type EvaluatorRegistry interface {
	Evaluator(ruleType RuleType) (Evaluator, bool)
}
