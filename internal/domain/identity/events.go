package identity

import (
	"github.com/google/uuid"
	"github.com/truthsource/backend/internal/domain/shared"
)

// Aggregate type constants
const (
	AggregateTypeOrganization = "Organization"
	AggregateTypeUser         = "User"
)

// Event type constants
const (
	EventTypeOrganizationRegistered = "OrganizationRegistered"
	EventTypeOrganizationSuspended  = "OrganizationSuspended"
	EventTypeUserCreated            = "UserCreated"
	EventTypeUserLoggedIn           = "UserLoggedIn"
)

// OrganizationRegisteredEvent is published when a new organization signs up
type OrganizationRegisteredEvent struct {
	shared.BaseDomainEvent
	OrganizationID uuid.UUID `json:"organization_id"`
	Slug           string    `json:"slug"`
	Name           string    `json:"name"`
	PlanCode       string    `json:"plan_code"`
}

// NewOrganizationRegisteredEvent creates a new OrganizationRegisteredEvent
func NewOrganizationRegisteredEvent(org *Organization) *OrganizationRegisteredEvent {
	return &OrganizationRegisteredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrganizationRegistered, AggregateTypeOrganization, org.ID, org.ID),
		OrganizationID:  org.ID,
		Slug:            org.Slug,
		Name:            org.Name,
		PlanCode:        org.PlanCode,
	}
}

// OrganizationSuspendedEvent is published when an organization is suspended
type OrganizationSuspendedEvent struct {
	shared.BaseDomainEvent
	OrganizationID uuid.UUID `json:"organization_id"`
	Slug           string    `json:"slug"`
	Reason         string    `json:"reason"`
}

// NewOrganizationSuspendedEvent creates a new OrganizationSuspendedEvent
func NewOrganizationSuspendedEvent(org *Organization, reason string) *OrganizationSuspendedEvent {
	return &OrganizationSuspendedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrganizationSuspended, AggregateTypeOrganization, org.ID, org.ID),
		OrganizationID:  org.ID,
		Slug:            org.Slug,
		Reason:          reason,
	}
}

// UserCreatedEvent is published when a new user is created
type UserCreatedEvent struct {
	shared.BaseDomainEvent
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email"`
	Role   UserRole  `json:"role"`
}

// NewUserCreatedEvent creates a new UserCreatedEvent
func NewUserCreatedEvent(user *User) *UserCreatedEvent {
	return &UserCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeUserCreated, AggregateTypeUser, user.ID, user.TenantID),
		UserID:          user.ID,
		Email:           user.Email,
		Role:            user.Role,
	}
}

// UserLoggedInEvent is published on every successful login; the audit trail
// subscribes to it.
type UserLoggedInEvent struct {
	shared.BaseDomainEvent
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email"`
	IP     string    `json:"ip"`
}

// NewUserLoggedInEvent creates a new UserLoggedInEvent
func NewUserLoggedInEvent(user *User, ip string) *UserLoggedInEvent {
	return &UserLoggedInEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeUserLoggedIn, AggregateTypeUser, user.ID, user.TenantID),
		UserID:          user.ID,
		Email:           user.Email,
		IP:              ip,
	}
}
