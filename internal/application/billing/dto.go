package billing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/truthsource/backend/internal/domain/billing"
)

// PlanInfo describes a subscription tier for the plan listing
type PlanInfo struct {
	Code            billing.PlanCode `json:"code"`
	Name            string           `json:"name"`
	MonthlyPrice    decimal.Decimal  `json:"monthly_price"`
	MaxProducts     int64            `json:"max_products"`
	MaxIntegrations int64            `json:"max_integrations"`
	MaxSyncsPerMo   int64            `json:"max_syncs_per_month"`
	AIInsights      bool             `json:"ai_insights"`
}

func toPlanInfo(p billing.Plan) PlanInfo {
	return PlanInfo{
		Code:            p.Code,
		Name:            p.Name,
		MonthlyPrice:    p.MonthlyPrice,
		MaxProducts:     p.MaxProducts,
		MaxIntegrations: p.MaxIntegrations,
		MaxSyncsPerMo:   p.MaxSyncsPerMo,
		AIInsights:      p.AIInsights,
	}
}

// UsageInfo is one metered resource compared against its plan quota
type UsageInfo struct {
	Resource  string  `json:"resource"`
	Used      int64   `json:"used"`
	Limit     int64   `json:"limit"` // -1 when unlimited
	UsedPct   float64 `json:"used_pct"`
	Remaining int64   `json:"remaining"` // -1 when unlimited
}

// SubscriptionInfo is the billing state returned to the API layer
type SubscriptionInfo struct {
	Plan             PlanInfo                   `json:"plan"`
	Status           billing.SubscriptionStatus `json:"status"`
	CurrentPeriodEnd *time.Time                 `json:"current_period_end,omitempty"`
	Usage            []UsageInfo                `json:"usage"`
}
