package inventory

import (
	"strings"

	"github.com/google/uuid"
	"github.com/truthsource/backend/internal/domain/shared"
)

// LocationType represents the kind of stock location
type LocationType string

const (
	LocationTypeWarehouse LocationType = "warehouse"
	LocationTypeStore     LocationType = "store"
	LocationTypeVirtual   LocationType = "virtual" // dropship / in-transit buckets
)

// Location is a place stock is held. External platform locations
// (Shopify locations, NetSuite subsidiaries) map onto it by code.
type Location struct {
	shared.TenantAggregateRoot
	Code    string       `gorm:"type:varchar(50);not null;uniqueIndex:idx_location_tenant_code,priority:2"`
	Name    string       `gorm:"type:varchar(200);not null"`
	Type    LocationType `gorm:"type:varchar(20);not null;default:'warehouse'"`
	Address string       `gorm:"type:text"`
	Active  bool         `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (Location) TableName() string {
	return "locations"
}

// NewLocation creates a new active location
func NewLocation(tenantID uuid.UUID, code, name string, locType LocationType) (*Location, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if err := validateLocationCode(code); err != nil {
		return nil, err
	}
	if strings.TrimSpace(name) == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Location name cannot be empty")
	}
	if locType == "" {
		locType = LocationTypeWarehouse
	}
	if locType != LocationTypeWarehouse && locType != LocationTypeStore && locType != LocationTypeVirtual {
		return nil, shared.NewDomainError("INVALID_TYPE", "Location type must be warehouse, store, or virtual")
	}

	return &Location{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Code:                code,
		Name:                strings.TrimSpace(name),
		Type:                locType,
		Active:              true,
	}, nil
}

// Update updates the location's basic information
func (l *Location) Update(name, address string) error {
	if strings.TrimSpace(name) == "" {
		return shared.NewDomainError("INVALID_NAME", "Location name cannot be empty")
	}

	l.Name = strings.TrimSpace(name)
	l.Address = address
	l.Touch()
	l.IncrementVersion()

	return nil
}

// Deactivate hides the location from sync and adjustment targets.
// Existing levels stay readable.
func (l *Location) Deactivate() error {
	if !l.Active {
		return shared.NewDomainError("ALREADY_INACTIVE", "Location is already inactive")
	}

	l.Active = false
	l.Touch()
	l.IncrementVersion()

	return nil
}

// Activate re-enables the location
func (l *Location) Activate() error {
	if l.Active {
		return shared.NewDomainError("ALREADY_ACTIVE", "Location is already active")
	}

	l.Active = true
	l.Touch()
	l.IncrementVersion()

	return nil
}

// validateLocationCode validates the location code
func validateLocationCode(code string) error {
	if code == "" {
		return shared.NewDomainError("INVALID_CODE", "Location code cannot be empty")
	}
	if len(code) > 50 {
		return shared.NewDomainError("INVALID_CODE", "Location code cannot exceed 50 characters")
	}
	for _, r := range code {
		if !((r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' || r == '-') {
			return shared.NewDomainError("INVALID_CODE", "Location code can only contain letters, numbers, underscores, and hyphens")
		}
	}
	return nil
}
