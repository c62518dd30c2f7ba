package billing

import (
	"time"

	"github.com/google/uuid"
)

// UsageType names a metered resource
type UsageType string

const (
	UsageSyncJobs      UsageType = "sync_jobs"
	UsageWebhookEvents UsageType = "webhook_events"
)

// UsageMeter is a snapshot of one organization's metered usage over a
// billing month, compared against the plan quota.
type UsageMeter struct {
	TenantID    uuid.UUID `json:"tenant_id"`
	UsageType   UsageType `json:"usage_type"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
	TotalUsage  int64     `json:"total_usage"`
	QuotaLimit  int64     `json:"quota_limit"` // Unlimited when not enforced
	QuotaUsed   float64   `json:"quota_used"`  // percent, 0 when unlimited
}

// NewUsageMeterForMonth builds a meter covering the calendar month of t
func NewUsageMeterForMonth(tenantID uuid.UUID, usageType UsageType, t time.Time) *UsageMeter {
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return &UsageMeter{
		TenantID:    tenantID,
		UsageType:   usageType,
		PeriodStart: start,
		PeriodEnd:   start.AddDate(0, 1, 0).Add(-time.Nanosecond),
		QuotaLimit:  Unlimited,
	}
}

// WithUsage sets the measured total and recomputes the quota percentage
func (m *UsageMeter) WithUsage(total int64) *UsageMeter {
	m.TotalUsage = total
	m.recalc()
	return m
}

// WithQuota sets the plan limit and recomputes the quota percentage
func (m *UsageMeter) WithQuota(limit int64) *UsageMeter {
	m.QuotaLimit = limit
	m.recalc()
	return m
}

func (m *UsageMeter) recalc() {
	if m.QuotaLimit > 0 {
		m.QuotaUsed = float64(m.TotalUsage) / float64(m.QuotaLimit) * 100
	} else {
		m.QuotaUsed = 0
	}
}

// IsOverQuota returns true if usage exceeds the enforced limit
func (m *UsageMeter) IsOverQuota() bool {
	return m.QuotaLimit != Unlimited && m.TotalUsage >= m.QuotaLimit
}

// Remaining returns the unused quota, or Unlimited when not enforced
func (m *UsageMeter) Remaining() int64 {
	if m.QuotaLimit == Unlimited {
		return Unlimited
	}
	remaining := m.QuotaLimit - m.TotalUsage
	if remaining < 0 {
		return 0
	}
	return remaining
}
