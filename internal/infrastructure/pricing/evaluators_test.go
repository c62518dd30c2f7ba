package pricing

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/truthsource/backend/internal/domain/customer"
	"github.com/truthsource/backend/internal/domain/pricing"
)

func i64(v int64) *int64 { return &v }

func newRule(t *testing.T, ruleType pricing.RuleType, conditions pricing.Conditions) *pricing.Rule {
	t.Helper()
	rule, err := pricing.NewRule(uuid.New(), "test rule", ruleType, 100, decimal.NewFromInt(-10), conditions)
	require.NoError(t, err)
	return rule
}

func TestInventoryLevelEvaluator(t *testing.T) {
	e := InventoryLevelEvaluator{}

	t.Run("inside band matches", func(t *testing.T) {
		rule := newRule(t, pricing.RuleTypeInventoryLevel, pricing.Conditions{
			MinInventory: i64(10), MaxInventory: i64(100),
		})
		assert.True(t, e.Matches(rule, pricing.QuoteContext{InventoryOnHand: 50}))
		assert.False(t, e.Matches(rule, pricing.QuoteContext{InventoryOnHand: 9}))
		assert.False(t, e.Matches(rule, pricing.QuoteContext{InventoryOnHand: 101}))
	})

	t.Run("open max is overstock rule", func(t *testing.T) {
		rule := newRule(t, pricing.RuleTypeInventoryLevel, pricing.Conditions{MinInventory: i64(500)})
		assert.True(t, e.Matches(rule, pricing.QuoteContext{InventoryOnHand: 800}))
		assert.False(t, e.Matches(rule, pricing.QuoteContext{InventoryOnHand: 400}))
	})
}

func TestQuantityBreakEvaluator(t *testing.T) {
	e := QuantityBreakEvaluator{}
	rule := newRule(t, pricing.RuleTypeQuantityBreak, pricing.Conditions{MinQuantity: i64(50)})

	assert.True(t, e.Matches(rule, pricing.QuoteContext{Quantity: 50}))
	assert.True(t, e.Matches(rule, pricing.QuoteContext{Quantity: 500}))
	assert.False(t, e.Matches(rule, pricing.QuoteContext{Quantity: 49}))
}

func TestCustomerTierEvaluator(t *testing.T) {
	e := CustomerTierEvaluator{}
	gold := customer.TierGold
	silver := customer.TierSilver
	rule := newRule(t, pricing.RuleTypeCustomerTier, pricing.Conditions{CustomerTier: &gold})

	assert.True(t, e.Matches(rule, pricing.QuoteContext{CustomerTier: &gold}))
	assert.False(t, e.Matches(rule, pricing.QuoteContext{CustomerTier: &silver}))
	// anonymous quotes never match tier rules
	assert.False(t, e.Matches(rule, pricing.QuoteContext{}))
}

func TestDateWindowEvaluator(t *testing.T) {
	e := DateWindowEvaluator{}
	start := time.Date(2026, 11, 25, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 11, 30, 23, 59, 59, 0, time.UTC)
	rule := newRule(t, pricing.RuleTypeDateWindow, pricing.Conditions{StartsAt: &start, EndsAt: &end})

	assert.True(t, e.Matches(rule, pricing.QuoteContext{At: start.Add(24 * time.Hour)}))
	assert.False(t, e.Matches(rule, pricing.QuoteContext{At: start.Add(-time.Hour)}))
	assert.False(t, e.Matches(rule, pricing.QuoteContext{At: end.Add(time.Hour)}))

	t.Run("open-ended window", func(t *testing.T) {
		rule := newRule(t, pricing.RuleTypeDateWindow, pricing.Conditions{StartsAt: &start})
		assert.True(t, e.Matches(rule, pricing.QuoteContext{At: start.AddDate(1, 0, 0)}))
	})
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	for _, rt := range []pricing.RuleType{
		pricing.RuleTypeInventoryLevel,
		pricing.RuleTypeQuantityBreak,
		pricing.RuleTypeCustomerTier,
		pricing.RuleTypeDateWindow,
	} {
		e, ok := r.Evaluator(rt)
		require.True(t, ok, rt)
		assert.Equal(t, rt, e.RuleType())
	}

	_, ok := r.Evaluator(pricing.RuleType("bogus"))
	assert.False(t, ok)
}
