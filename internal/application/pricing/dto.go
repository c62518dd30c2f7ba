package pricing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/truthsource/backend/internal/domain/pricing"
)

// CreateRuleInput contains the input for pricing rule creation
type CreateRuleInput struct {
	OrgID             uuid.UUID
	Name              string
	Type              pricing.RuleType
	Priority          int
	AdjustmentPercent decimal.Decimal
	CategoryID        *uuid.UUID
	ProductID         *uuid.UUID
	Conditions        pricing.Conditions
}

// UpdateRuleInput contains the input for pricing rule updates
type UpdateRuleInput struct {
	OrgID             uuid.UUID
	RuleID            uuid.UUID
	Name              string
	AdjustmentPercent decimal.Decimal
	Conditions        pricing.Conditions
	Priority          *int
	CategoryID        *uuid.UUID
	ProductID         *uuid.UUID
}

// RuleInfo contains pricing rule information returned by the API
type RuleInfo struct {
	ID                uuid.UUID
	OrgID             uuid.UUID
	Name              string
	Type              pricing.RuleType
	Priority          int
	AdjustmentPercent decimal.Decimal
	Active            bool
	CategoryID        *uuid.UUID
	ProductID         *uuid.UUID
	Conditions        pricing.Conditions
	CreatedAt         time.Time
}

// CalculatePriceInput contains the input for a price calculation. At pins
// the evaluation time for date-window rules; nil means now.
type CalculatePriceInput struct {
	OrgID      uuid.UUID
	ProductID  uuid.UUID
	Quantity   int64
	CustomerID *uuid.UUID
	At         *time.Time
}

func toRuleInfo(r *pricing.Rule) RuleInfo {
	return RuleInfo{
		ID:                r.ID,
		OrgID:             r.TenantID,
		Name:              r.Name,
		Type:              r.Type,
		Priority:          r.Priority,
		AdjustmentPercent: r.AdjustmentPercent,
		Active:            r.Active,
		CategoryID:        r.CategoryID,
		ProductID:         r.ProductID,
		Conditions:        r.Conditions,
		CreatedAt:         r.CreatedAt,
	}
}
