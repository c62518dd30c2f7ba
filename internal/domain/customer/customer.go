package customer

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/truthsource/backend/internal/domain/shared"
)

// Tier represents a customer's pricing tier
type Tier string

const (
	TierStandard Tier = "standard"
	TierSilver   Tier = "silver"
	TierGold     Tier = "gold"
	TierPlatinum Tier = "platinum"
)

// IsValid returns true for a known tier
func (t Tier) IsValid() bool {
	switch t {
	case TierStandard, TierSilver, TierGold, TierPlatinum:
		return true
	}
	return false
}

// CustomerStatus represents the status of a customer
type CustomerStatus string

const (
	CustomerStatusActive   CustomerStatus = "active"
	CustomerStatusInactive CustomerStatus = "inactive"
)

// Customer is a B2B buyer. The tier participates in customer-tier pricing
// rules; orders pulled from platforms are linked to customers by email.
type Customer struct {
	shared.TenantAggregateRoot
	Code         string         `gorm:"type:varchar(50);not null;uniqueIndex:idx_customer_tenant_code,priority:2"`
	CompanyName  string         `gorm:"type:varchar(200);not null"`
	ContactName  string         `gorm:"type:varchar(200)"`
	ContactEmail string         `gorm:"type:varchar(200);index"`
	Phone        string         `gorm:"type:varchar(50)"`
	Tier         Tier           `gorm:"type:varchar(20);not null;default:'standard'"`
	Status       CustomerStatus `gorm:"type:varchar(20);not null;default:'active'"`
	Notes        string         `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (Customer) TableName() string {
	return "customers"
}

var customerEmailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// NewCustomer creates a new active customer in the standard tier
func NewCustomer(tenantID uuid.UUID, code, companyName string) (*Customer, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if err := validateCustomerCode(code); err != nil {
		return nil, err
	}
	if strings.TrimSpace(companyName) == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Company name cannot be empty")
	}
	if len(companyName) > 200 {
		return nil, shared.NewDomainError("INVALID_NAME", "Company name cannot exceed 200 characters")
	}

	customer := &Customer{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Code:                code,
		CompanyName:         strings.TrimSpace(companyName),
		Tier:                TierStandard,
		Status:              CustomerStatusActive,
	}

	customer.AddDomainEvent(NewCustomerCreatedEvent(customer))

	return customer, nil
}

// Update updates the customer's contact information
func (c *Customer) Update(companyName, contactName, contactEmail, phone string) error {
	companyName = strings.TrimSpace(companyName)
	if companyName == "" {
		return shared.NewDomainError("INVALID_NAME", "Company name cannot be empty")
	}
	contactEmail = strings.ToLower(strings.TrimSpace(contactEmail))
	if contactEmail != "" && !customerEmailPattern.MatchString(contactEmail) {
		return shared.NewDomainError("INVALID_EMAIL", "Contact email format is invalid")
	}

	c.CompanyName = companyName
	c.ContactName = strings.TrimSpace(contactName)
	c.ContactEmail = contactEmail
	c.Phone = strings.TrimSpace(phone)
	c.Touch()
	c.IncrementVersion()

	return nil
}

// ChangeTier moves the customer to a new pricing tier
func (c *Customer) ChangeTier(tier Tier) error {
	if !tier.IsValid() {
		return shared.NewDomainError("INVALID_TIER", "Tier must be standard, silver, gold, or platinum")
	}
	if tier == c.Tier {
		return nil
	}

	oldTier := c.Tier
	c.Tier = tier
	c.Touch()
	c.IncrementVersion()

	c.AddDomainEvent(NewCustomerTierChangedEvent(c, oldTier, tier))

	return nil
}

// Deactivate hides the customer from pickers; history stays intact
func (c *Customer) Deactivate() error {
	if c.Status == CustomerStatusInactive {
		return shared.NewDomainError("ALREADY_INACTIVE", "Customer is already inactive")
	}

	c.Status = CustomerStatusInactive
	c.Touch()
	c.IncrementVersion()

	return nil
}

// Activate re-enables the customer
func (c *Customer) Activate() error {
	if c.Status == CustomerStatusActive {
		return shared.NewDomainError("ALREADY_ACTIVE", "Customer is already active")
	}

	c.Status = CustomerStatusActive
	c.Touch()
	c.IncrementVersion()

	return nil
}

// IsActive returns true if the customer is active
func (c *Customer) IsActive() bool {
	return c.Status == CustomerStatusActive
}

// validateCustomerCode validates the customer code
func validateCustomerCode(code string) error {
	if code == "" {
		return shared.NewDomainError("INVALID_CODE", "Customer code cannot be empty")
	}
	if len(code) > 50 {
		return shared.NewDomainError("INVALID_CODE", "Customer code cannot exceed 50 characters")
	}
	for _, r := range code {
		if !((r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' || r == '-') {
			return shared.NewDomainError("INVALID_CODE", "Customer code can only contain letters, numbers, underscores, and hyphens")
		}
	}
	return nil
}
