package integration

import (
	"time"

	"github.com/google/uuid"
	"github.com/truthsource/backend/internal/domain/shared"
)

// ProductMapping links a local product to its counterpart on one platform.
// The sync engine reads and writes external records through this link; a
// product without a mapping is matched by SKU and mapped on first sight.
type ProductMapping struct {
	shared.TenantAggregateRoot
	IntegrationID     uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_mapping_integration_product,priority:1"`
	ProductID         uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_mapping_integration_product,priority:2"`
	ExternalProductID string     `gorm:"type:varchar(100);not null;index"`
	ExternalVariantID string     `gorm:"type:varchar(100)"` // Shopify variant / Woo variation, empty elsewhere
	SyncEnabled       bool       `gorm:"not null;default:true"`
	LastSyncedAt      *time.Time ``
	LastSyncedHash    string     `gorm:"type:varchar(64)"` // content hash of the last pushed/pulled state
}

// TableName returns the table name for GORM
func (ProductMapping) TableName() string {
	return "product_mappings"
}

// NewProductMapping creates a new enabled mapping
func NewProductMapping(tenantID, integrationID, productID uuid.UUID, externalProductID, externalVariantID string) (*ProductMapping, error) {
	if externalProductID == "" {
		return nil, shared.NewDomainError("INVALID_EXTERNAL_ID", "External product ID cannot be empty")
	}

	return &ProductMapping{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		IntegrationID:       integrationID,
		ProductID:           productID,
		ExternalProductID:   externalProductID,
		ExternalVariantID:   externalVariantID,
		SyncEnabled:         true,
	}, nil
}

// MarkSynced records a completed sync of this product with a content hash.
// The hash lets the pusher skip records whose state hasn't changed.
func (m *ProductMapping) MarkSynced(hash string, at time.Time) {
	m.LastSyncedAt = &at
	m.LastSyncedHash = hash
	m.Touch()
}

// NeedsSync returns true when the content hash differs from the last synced one
func (m *ProductMapping) NeedsSync(hash string) bool {
	return m.SyncEnabled && m.LastSyncedHash != hash
}

// EnableSync includes the product in sync runs
func (m *ProductMapping) EnableSync() {
	if m.SyncEnabled {
		return
	}
	m.SyncEnabled = true
	m.Touch()
	m.IncrementVersion()
}

// DisableSync excludes the product from sync runs without unmapping it
func (m *ProductMapping) DisableSync() {
	if !m.SyncEnabled {
		return
	}
	m.SyncEnabled = false
	m.Touch()
	m.IncrementVersion()
}
