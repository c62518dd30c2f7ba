package integration

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/truthsource/backend/internal/domain/shared"
)

// Platform identifies an external commerce platform
type Platform string

const (
	PlatformShopify     Platform = "shopify"
	PlatformNetSuite    Platform = "netsuite"
	PlatformWooCommerce Platform = "woocommerce"
)

// IsValid returns true for a supported platform
func (p Platform) IsValid() bool {
	switch p {
	case PlatformShopify, PlatformNetSuite, PlatformWooCommerce:
		return true
	}
	return false
}

// IntegrationStatus represents the status of a platform connection
type IntegrationStatus string

const (
	IntegrationStatusActive IntegrationStatus = "active"
	IntegrationStatusPaused IntegrationStatus = "paused"
	IntegrationStatusError  IntegrationStatus = "error"
)

// Credentials holds the connection secrets for a platform. Secret fields are
// write-only at the API layer; responses never echo them back.
type Credentials struct {
	APIKey        string `gorm:"column:cred_api_key;type:varchar(200)" json:"-"`
	APISecret     string `gorm:"column:cred_api_secret;type:varchar(200)" json:"-"`
	AccessToken   string `gorm:"column:cred_access_token;type:varchar(500)" json:"-"`
	WebhookSecret string `gorm:"column:cred_webhook_secret;type:varchar(200)" json:"-"`
	// ShopDomain is the Shopify shop domain or the WooCommerce/NetSuite base URL
	ShopDomain string `gorm:"column:cred_shop_domain;type:varchar(300)" json:"shop_domain"`
	// AccountID is the NetSuite account identifier
	AccountID string `gorm:"column:cred_account_id;type:varchar(100)" json:"account_id,omitempty"`
}

// SyncEntity names a class of records a sync job can move
type SyncEntity string

const (
	SyncEntityProducts  SyncEntity = "products"
	SyncEntityInventory SyncEntity = "inventory"
	SyncEntityOrders    SyncEntity = "orders"
	SyncEntityAll       SyncEntity = "all"
)

// IsValid returns true for a known sync entity
func (e SyncEntity) IsValid() bool {
	switch e {
	case SyncEntityProducts, SyncEntityInventory, SyncEntityOrders, SyncEntityAll:
		return true
	}
	return false
}

// Integration is a connection between an organization and one external
// platform account. An organization can hold several integrations, including
// several to the same platform.
type Integration struct {
	shared.TenantAggregateRoot
	Platform            Platform          `gorm:"type:varchar(20);not null;index"`
	DisplayName         string            `gorm:"type:varchar(200);not null"`
	Status              IntegrationStatus `gorm:"type:varchar(20);not null;default:'active'"`
	Credentials         Credentials       `gorm:"embedded"`
	SyncIntervalMinutes int               `gorm:"not null;default:60"`
	LastProductSyncAt   *time.Time        ``
	LastInventorySyncAt *time.Time        ``
	LastOrderSyncAt     *time.Time        ``
	LastError           string            `gorm:"type:text"`
	ConsecutiveFailures int               `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (Integration) TableName() string {
	return "integrations"
}

// NewIntegration creates a new active integration
func NewIntegration(tenantID uuid.UUID, platform Platform, displayName string, creds Credentials) (*Integration, error) {
	if !platform.IsValid() {
		return nil, shared.NewDomainError("INVALID_PLATFORM", "Platform must be shopify, netsuite, or woocommerce")
	}
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Display name cannot be empty")
	}
	if err := validateCredentials(platform, creds); err != nil {
		return nil, err
	}

	integ := &Integration{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Platform:            platform,
		DisplayName:         displayName,
		Status:              IntegrationStatusActive,
		Credentials:         creds,
		SyncIntervalMinutes: 60,
	}

	integ.AddDomainEvent(NewIntegrationConnectedEvent(integ))

	return integ, nil
}

// UpdateCredentials replaces the stored credentials. Blank secret fields keep
// their current values so partial updates don't wipe secrets.
func (i *Integration) UpdateCredentials(creds Credentials) error {
	if creds.APIKey == "" {
		creds.APIKey = i.Credentials.APIKey
	}
	if creds.APISecret == "" {
		creds.APISecret = i.Credentials.APISecret
	}
	if creds.AccessToken == "" {
		creds.AccessToken = i.Credentials.AccessToken
	}
	if creds.WebhookSecret == "" {
		creds.WebhookSecret = i.Credentials.WebhookSecret
	}
	if creds.ShopDomain == "" {
		creds.ShopDomain = i.Credentials.ShopDomain
	}
	if creds.AccountID == "" {
		creds.AccountID = i.Credentials.AccountID
	}
	if err := validateCredentials(i.Platform, creds); err != nil {
		return err
	}

	i.Credentials = creds
	i.Touch()
	i.IncrementVersion()

	return nil
}

// Rename changes the display name
func (i *Integration) Rename(displayName string) error {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return shared.NewDomainError("INVALID_NAME", "Display name cannot be empty")
	}

	i.DisplayName = displayName
	i.Touch()
	i.IncrementVersion()

	return nil
}

// SetSyncInterval sets how often scheduled pulls run, in minutes
func (i *Integration) SetSyncInterval(minutes int) error {
	if minutes < 5 || minutes > 24*60 {
		return shared.NewDomainError("INVALID_INTERVAL", "Sync interval must be between 5 minutes and 24 hours")
	}

	i.SyncIntervalMinutes = minutes
	i.Touch()
	i.IncrementVersion()

	return nil
}

// Pause stops scheduled syncs and webhook processing for the integration
func (i *Integration) Pause() error {
	if i.Status == IntegrationStatusPaused {
		return shared.NewDomainError("ALREADY_PAUSED", "Integration is already paused")
	}

	i.Status = IntegrationStatusPaused
	i.Touch()
	i.IncrementVersion()

	i.AddDomainEvent(NewIntegrationPausedEvent(i))

	return nil
}

// Resume reactivates a paused or errored integration
func (i *Integration) Resume() error {
	if i.Status == IntegrationStatusActive {
		return shared.NewDomainError("ALREADY_ACTIVE", "Integration is already active")
	}

	i.Status = IntegrationStatusActive
	i.LastError = ""
	i.ConsecutiveFailures = 0
	i.Touch()
	i.IncrementVersion()

	return nil
}

// RecordSyncSuccess marks a completed sync for an entity class
func (i *Integration) RecordSyncSuccess(entity SyncEntity, at time.Time) {
	switch entity {
	case SyncEntityProducts:
		i.LastProductSyncAt = &at
	case SyncEntityInventory:
		i.LastInventorySyncAt = &at
	case SyncEntityOrders:
		i.LastOrderSyncAt = &at
	case SyncEntityAll:
		i.LastProductSyncAt = &at
		i.LastInventorySyncAt = &at
		i.LastOrderSyncAt = &at
	}
	i.LastError = ""
	i.ConsecutiveFailures = 0
	i.Touch()
}

// RecordSyncFailure notes a failed sync. Three consecutive failures move the
// integration to error status so the scheduler stops hammering a dead endpoint.
func (i *Integration) RecordSyncFailure(errMsg string) {
	i.LastError = errMsg
	i.ConsecutiveFailures++
	if i.ConsecutiveFailures >= 3 && i.Status == IntegrationStatusActive {
		i.Status = IntegrationStatusError
		i.AddDomainEvent(NewIntegrationFailedEvent(i, errMsg))
	}
	i.Touch()
}

// IsActive returns true if the integration syncs and receives webhooks
func (i *Integration) IsActive() bool {
	return i.Status == IntegrationStatusActive
}

// SyncDue returns true when the scheduled pull for an entity class is due
func (i *Integration) SyncDue(entity SyncEntity, now time.Time) bool {
	if !i.IsActive() {
		return false
	}

	var last *time.Time
	switch entity {
	case SyncEntityProducts:
		last = i.LastProductSyncAt
	case SyncEntityInventory:
		last = i.LastInventorySyncAt
	case SyncEntityOrders:
		last = i.LastOrderSyncAt
	default:
		return false
	}

	if last == nil {
		return true
	}
	return now.Sub(*last) >= time.Duration(i.SyncIntervalMinutes)*time.Minute
}

// validateCredentials checks the platform-specific required fields
func validateCredentials(platform Platform, creds Credentials) error {
	switch platform {
	case PlatformShopify:
		if creds.ShopDomain == "" || creds.AccessToken == "" {
			return shared.NewDomainError("INVALID_CREDENTIALS", "Shopify requires a shop domain and access token")
		}
	case PlatformWooCommerce:
		if creds.ShopDomain == "" || creds.APIKey == "" || creds.APISecret == "" {
			return shared.NewDomainError("INVALID_CREDENTIALS", "WooCommerce requires a base URL, consumer key, and consumer secret")
		}
	case PlatformNetSuite:
		if creds.AccountID == "" || creds.APIKey == "" || creds.APISecret == "" || creds.AccessToken == "" {
			return shared.NewDomainError("INVALID_CREDENTIALS", "NetSuite requires an account ID, consumer key/secret, and token")
		}
	}
	return nil
}
