package pricing

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/truthsource/backend/internal/domain/customer"
	"github.com/truthsource/backend/internal/domain/shared"
)

// RuleType classifies what condition a pricing rule evaluates
type RuleType string

const (
	RuleTypeInventoryLevel RuleType = "inventory_level" // adjust when stock is inside a band
	RuleTypeQuantityBreak  RuleType = "quantity_break"  // volume discount by order quantity
	RuleTypeCustomerTier   RuleType = "customer_tier"   // tier-specific pricing
	RuleTypeDateWindow     RuleType = "date_window"     // seasonal / promotional window
)

// IsValid returns true for a known rule type
func (t RuleType) IsValid() bool {
	switch t {
	case RuleTypeInventoryLevel, RuleTypeQuantityBreak, RuleTypeCustomerTier, RuleTypeDateWindow:
		return true
	}
	return false
}

// Conditions holds the per-type condition fields of a rule. Only the fields
// relevant to the rule's type are consulted during evaluation.
type Conditions struct {
	MinInventory *int64         `json:"min_inventory,omitempty" gorm:"column:cond_min_inventory"`
	MaxInventory *int64         `json:"max_inventory,omitempty" gorm:"column:cond_max_inventory"`
	MinQuantity  *int64         `json:"min_quantity,omitempty" gorm:"column:cond_min_quantity"`
	CustomerTier *customer.Tier `json:"customer_tier,omitempty" gorm:"column:cond_customer_tier;type:varchar(20)"`
	StartsAt     *time.Time     `json:"starts_at,omitempty" gorm:"column:cond_starts_at"`
	EndsAt       *time.Time     `json:"ends_at,omitempty" gorm:"column:cond_ends_at"`
}

// Rule is a dynamic pricing rule. Active rules are evaluated in ascending
// priority order; the first rule whose conditions match wins and no further
// rules stack on top of it.
type Rule struct {
	shared.TenantAggregateRoot
	Name              string          `gorm:"type:varchar(200);not null"`
	Type              RuleType        `gorm:"type:varchar(30);not null"`
	Priority          int             `gorm:"not null;default:100;index"`
	AdjustmentPercent decimal.Decimal `gorm:"type:decimal(8,4);not null"` // positive = markup, negative = discount
	Active            bool            `gorm:"not null;default:true"`
	CategoryID        *uuid.UUID      `gorm:"type:uuid;index"` // nil = applies to all products
	ProductID         *uuid.UUID      `gorm:"type:uuid;index"` // nil = applies to all products
	Conditions        Conditions      `gorm:"embedded"`
}

// TableName returns the table name for GORM
func (Rule) TableName() string {
	return "pricing_rules"
}

// NewRule creates a new active pricing rule
func NewRule(tenantID uuid.UUID, name string, ruleType RuleType, priority int, adjustmentPercent decimal.Decimal, conditions Conditions) (*Rule, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Rule name cannot be empty")
	}
	if !ruleType.IsValid() {
		return nil, shared.NewDomainError("INVALID_RULE_TYPE", "Unknown pricing rule type")
	}
	if err := validateAdjustment(adjustmentPercent); err != nil {
		return nil, err
	}
	if err := validateConditions(ruleType, conditions); err != nil {
		return nil, err
	}

	rule := &Rule{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Name:                name,
		Type:                ruleType,
		Priority:            priority,
		AdjustmentPercent:   adjustmentPercent,
		Active:              true,
		Conditions:          conditions,
	}

	rule.AddDomainEvent(NewRuleChangedEvent(rule, "created"))

	return rule, nil
}

// Update updates the rule's name, adjustment, and conditions
func (r *Rule) Update(name string, adjustmentPercent decimal.Decimal, conditions Conditions) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Rule name cannot be empty")
	}
	if err := validateAdjustment(adjustmentPercent); err != nil {
		return err
	}
	if err := validateConditions(r.Type, conditions); err != nil {
		return err
	}

	r.Name = name
	r.AdjustmentPercent = adjustmentPercent
	r.Conditions = conditions
	r.Touch()
	r.IncrementVersion()

	r.AddDomainEvent(NewRuleChangedEvent(r, "updated"))

	return nil
}

// SetPriority changes the evaluation order position
func (r *Rule) SetPriority(priority int) {
	r.Priority = priority
	r.Touch()
	r.IncrementVersion()
}

// SetScope restricts the rule to a category and/or product
func (r *Rule) SetScope(categoryID, productID *uuid.UUID) {
	r.CategoryID = categoryID
	r.ProductID = productID
	r.Touch()
	r.IncrementVersion()
}

// Enable activates the rule
func (r *Rule) Enable() {
	if r.Active {
		return
	}
	r.Active = true
	r.Touch()
	r.IncrementVersion()
	r.AddDomainEvent(NewRuleChangedEvent(r, "enabled"))
}

// Disable deactivates the rule without deleting it
func (r *Rule) Disable() {
	if !r.Active {
		return
	}
	r.Active = false
	r.Touch()
	r.IncrementVersion()
	r.AddDomainEvent(NewRuleChangedEvent(r, "disabled"))
}

// AppliesTo returns true if the rule's scope covers the product
func (r *Rule) AppliesTo(productID uuid.UUID, categoryID *uuid.UUID) bool {
	if r.ProductID != nil && *r.ProductID != productID {
		return false
	}
	if r.CategoryID != nil {
		if categoryID == nil || *r.CategoryID != *categoryID {
			return false
		}
	}
	return true
}

// validateAdjustment enforces a sane adjustment range
func validateAdjustment(percent decimal.Decimal) error {
	if percent.LessThan(decimal.NewFromInt(-100)) {
		return shared.NewDomainError("INVALID_ADJUSTMENT", "Adjustment cannot discount below -100%")
	}
	if percent.GreaterThan(decimal.NewFromInt(1000)) {
		return shared.NewDomainError("INVALID_ADJUSTMENT", "Adjustment cannot exceed 1000%")
	}
	return nil
}

// validateConditions checks the fields required by each rule type
func validateConditions(ruleType RuleType, c Conditions) error {
	switch ruleType {
	case RuleTypeInventoryLevel:
		if c.MinInventory == nil && c.MaxInventory == nil {
			return shared.NewDomainError("INVALID_CONDITIONS", "Inventory rules need a min or max inventory bound")
		}
		if c.MinInventory != nil && c.MaxInventory != nil && *c.MinInventory > *c.MaxInventory {
			return shared.NewDomainError("INVALID_CONDITIONS", "Min inventory cannot exceed max inventory")
		}
	case RuleTypeQuantityBreak:
		if c.MinQuantity == nil || *c.MinQuantity < 1 {
			return shared.NewDomainError("INVALID_CONDITIONS", "Quantity break rules need a positive min quantity")
		}
	case RuleTypeCustomerTier:
		if c.CustomerTier == nil || !c.CustomerTier.IsValid() {
			return shared.NewDomainError("INVALID_CONDITIONS", "Customer tier rules need a valid tier")
		}
	case RuleTypeDateWindow:
		if c.StartsAt == nil && c.EndsAt == nil {
			return shared.NewDomainError("INVALID_CONDITIONS", "Date window rules need a start or end time")
		}
		if c.StartsAt != nil && c.EndsAt != nil && c.StartsAt.After(*c.EndsAt) {
			return shared.NewDomainError("INVALID_CONDITIONS", "Window start cannot be after its end")
		}
	}
	return nil
}
