package identity

import (
	"regexp"
	"strings"
	"time"

	"github.com/truthsource/backend/internal/domain/shared"
)

// OrganizationStatus represents the status of an organization
type OrganizationStatus string

const (
	OrganizationStatusActive    OrganizationStatus = "active"
	OrganizationStatusSuspended OrganizationStatus = "suspended" // Suspended for billing/violation issues
	OrganizationStatusTrial     OrganizationStatus = "trial"
)

// OrganizationSettings holds configurable settings for an organization
type OrganizationSettings struct {
	Currency          string `json:"currency"`            // Default currency code
	Timezone          string `json:"timezone"`            // Organization timezone
	LowStockThreshold int    `json:"low_stock_threshold"` // Fallback reorder point when a level has none
	SyncPaused        bool   `json:"sync_paused"`         // Global pause switch for all integrations
	Settings          string `json:"settings"`            // JSON object of additional settings
}

// DefaultOrganizationSettings returns the default settings for a new organization
func DefaultOrganizationSettings() OrganizationSettings {
	return OrganizationSettings{
		Currency:          "USD",
		Timezone:          "America/New_York",
		LowStockThreshold: 10,
		Settings:          "{}",
	}
}

// Organization is a customer account. Every piece of synced data is scoped to
// exactly one organization; it is the tenant of the multi-tenant system.
type Organization struct {
	shared.BaseAggregateRoot
	Slug         string               `gorm:"type:varchar(60);not null;uniqueIndex"`
	Name         string               `gorm:"type:varchar(200);not null"`
	ContactEmail string               `gorm:"type:varchar(200)"`
	PlanCode     string               `gorm:"type:varchar(20);not null;default:'starter'"`
	Status       OrganizationStatus   `gorm:"type:varchar(20);not null;default:'active'"`
	TrialEndsAt  *time.Time           ``
	SuspendedAt  *time.Time           ``
	Settings     OrganizationSettings `gorm:"embedded;embeddedPrefix:settings_"`
}

// TableName returns the table name for GORM
func (Organization) TableName() string {
	return "organizations"
}

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// NewOrganization creates a new active organization
func NewOrganization(slug, name string) (*Organization, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if err := validateSlug(slug); err != nil {
		return nil, err
	}
	if err := validateOrgName(name); err != nil {
		return nil, err
	}

	org := &Organization{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Slug:              slug,
		Name:              strings.TrimSpace(name),
		PlanCode:          "starter",
		Status:            OrganizationStatusActive,
		Settings:          DefaultOrganizationSettings(),
	}

	org.AddDomainEvent(NewOrganizationRegisteredEvent(org))

	return org, nil
}

// NewTrialOrganization creates an organization in trial status
func NewTrialOrganization(slug, name string, trialDays int) (*Organization, error) {
	if trialDays <= 0 {
		return nil, shared.NewDomainError("INVALID_TRIAL_DAYS", "Trial days must be positive")
	}

	org, err := NewOrganization(slug, name)
	if err != nil {
		return nil, err
	}

	trialEnds := time.Now().AddDate(0, 0, trialDays)
	org.Status = OrganizationStatusTrial
	org.TrialEndsAt = &trialEnds
	return org, nil
}

// Update updates the organization's basic information
func (o *Organization) Update(name, contactEmail string) error {
	if err := validateOrgName(name); err != nil {
		return err
	}

	o.Name = strings.TrimSpace(name)
	o.ContactEmail = strings.ToLower(strings.TrimSpace(contactEmail))
	o.Touch()
	o.IncrementVersion()

	return nil
}

// UpdateSettings replaces the organization settings
func (o *Organization) UpdateSettings(settings OrganizationSettings) error {
	if settings.Currency != "" && len(settings.Currency) != 3 {
		return shared.NewDomainError("INVALID_CURRENCY", "Currency must be a 3-letter ISO code")
	}
	if settings.LowStockThreshold < 0 {
		return shared.NewDomainError("INVALID_THRESHOLD", "Low stock threshold cannot be negative")
	}
	if settings.Settings == "" {
		settings.Settings = "{}"
	}

	o.Settings = settings
	o.Touch()
	o.IncrementVersion()

	return nil
}

// ChangePlan sets the subscription plan code.
// Plan limits are enforced by the billing module against this code.
func (o *Organization) ChangePlan(planCode string) error {
	planCode = strings.ToLower(strings.TrimSpace(planCode))
	if planCode == "" {
		return shared.NewDomainError("INVALID_PLAN", "Plan code cannot be empty")
	}

	o.PlanCode = planCode
	o.Touch()
	o.IncrementVersion()

	return nil
}

// Suspend suspends the organization. Suspended organizations cannot
// authenticate and their scheduled syncs are skipped.
func (o *Organization) Suspend(reason string) error {
	if o.Status == OrganizationStatusSuspended {
		return shared.NewDomainError("ALREADY_SUSPENDED", "Organization is already suspended")
	}

	now := time.Now()
	o.Status = OrganizationStatusSuspended
	o.SuspendedAt = &now
	o.Touch()
	o.IncrementVersion()

	o.AddDomainEvent(NewOrganizationSuspendedEvent(o, reason))

	return nil
}

// Activate reactivates a suspended or trial organization
func (o *Organization) Activate() error {
	if o.Status == OrganizationStatusActive {
		return shared.NewDomainError("ALREADY_ACTIVE", "Organization is already active")
	}

	o.Status = OrganizationStatusActive
	o.SuspendedAt = nil
	o.TrialEndsAt = nil
	o.Touch()
	o.IncrementVersion()

	return nil
}

// IsActive returns true when the organization can use the service.
// Trial organizations count as active until the trial expires.
func (o *Organization) IsActive() bool {
	if o.Status == OrganizationStatusActive {
		return true
	}
	if o.Status == OrganizationStatusTrial {
		return o.TrialEndsAt == nil || o.TrialEndsAt.After(time.Now())
	}
	return false
}

// IsSuspended returns true if the organization is suspended
func (o *Organization) IsSuspended() bool {
	return o.Status == OrganizationStatusSuspended
}

// validateSlug validates the organization slug
func validateSlug(slug string) error {
	if slug == "" {
		return shared.NewDomainError("INVALID_SLUG", "Slug cannot be empty")
	}
	if len(slug) > 60 {
		return shared.NewDomainError("INVALID_SLUG", "Slug cannot exceed 60 characters")
	}
	if !slugPattern.MatchString(slug) {
		return shared.NewDomainError("INVALID_SLUG", "Slug can only contain lowercase letters, numbers, and hyphens")
	}
	return nil
}

// validateOrgName validates the organization name
func validateOrgName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Organization name cannot be empty")
	}
	if len(name) > 200 {
		return shared.NewDomainError("INVALID_NAME", "Organization name cannot exceed 200 characters")
	}
	return nil
}
