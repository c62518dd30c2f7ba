package billing

import (
	"github.com/shopspring/decimal"
	"github.com/truthsource/backend/internal/domain/shared"
)

// PlanCode identifies a subscription tier
type PlanCode string

const (
	PlanStarter PlanCode = "starter"
	PlanGrowth  PlanCode = "growth"
	PlanScale   PlanCode = "scale"
)

// IsValid returns true for a known plan code
func (c PlanCode) IsValid() bool {
	switch c {
	case PlanStarter, PlanGrowth, PlanScale:
		return true
	}
	return false
}

// Unlimited marks a plan limit that is not enforced
const Unlimited = -1

// Plan is a subscription tier with its price and usage limits
type Plan struct {
	Code            PlanCode        `json:"code"`
	Name            string          `json:"name"`
	MonthlyPrice    decimal.Decimal `json:"monthly_price"`
	StripePriceID   string          `json:"-"`
	MaxProducts     int64           `json:"max_products"`
	MaxIntegrations int64           `json:"max_integrations"`
	MaxSyncsPerMo   int64           `json:"max_syncs_per_month"`
	AIInsights      bool            `json:"ai_insights"`
}

// plans is the catalog of offered tiers
var plans = map[PlanCode]Plan{
	PlanStarter: {
		Code:            PlanStarter,
		Name:            "Starter",
		MonthlyPrice:    decimal.NewFromInt(49),
		MaxProducts:     1000,
		MaxIntegrations: 2,
		MaxSyncsPerMo:   500,
		AIInsights:      false,
	},
	PlanGrowth: {
		Code:            PlanGrowth,
		Name:            "Growth",
		MonthlyPrice:    decimal.NewFromInt(199),
		MaxProducts:     10000,
		MaxIntegrations: 5,
		MaxSyncsPerMo:   5000,
		AIInsights:      true,
	},
	PlanScale: {
		Code:            PlanScale,
		Name:            "Scale",
		MonthlyPrice:    decimal.NewFromInt(499),
		MaxProducts:     Unlimited,
		MaxIntegrations: Unlimited,
		MaxSyncsPerMo:   Unlimited,
		AIInsights:      true,
	},
}

// PlanByCode looks up a plan from the catalog
func PlanByCode(code PlanCode) (Plan, error) {
	p, ok := plans[code]
	if !ok {
		return Plan{}, shared.NewDomainError("UNKNOWN_PLAN", "Unknown plan code")
	}
	return p, nil
}

// AllPlans lists the catalog in ascending price order
func AllPlans() []Plan {
	return []Plan{plans[PlanStarter], plans[PlanGrowth], plans[PlanScale]}
}

// Allows reports whether a count fits within a plan limit
func (p Plan) Allows(limit, current int64) bool {
	return limit == Unlimited || current < limit
}

// AllowsProducts reports whether another product can be created
func (p Plan) AllowsProducts(current int64) bool {
	return p.Allows(p.MaxProducts, current)
}

// AllowsIntegrations reports whether another integration can be connected
func (p Plan) AllowsIntegrations(current int64) bool {
	return p.Allows(p.MaxIntegrations, current)
}

// AllowsSyncs reports whether another sync job fits this month's quota
func (p Plan) AllowsSyncs(currentMonth int64) bool {
	return p.Allows(p.MaxSyncsPerMo, currentMonth)
}
