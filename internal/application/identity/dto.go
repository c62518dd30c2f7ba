package identity

import (
	"time"

	"github.com/google/uuid"

	"github.com/truthsource/backend/internal/domain/identity"
)

// RegisterInput contains the input for organization registration
type RegisterInput struct {
	OrgSlug      string
	OrgName      string
	ContactEmail string
	AdminEmail   string
	AdminName    string
	Password     string
}

// RegisterResult contains the newly created organization and admin user
type RegisterResult struct {
	Organization OrganizationInfo
	User         UserInfo
	Tokens       TokenInfo
}

// LoginInput contains the input for user login
type LoginInput struct {
	Email    string
	Password string
	IP       string // Client IP for login tracking
}

// LoginResult contains the result of a successful login
type LoginResult struct {
	Tokens TokenInfo
	User   UserInfo
}

// TokenInfo carries an issued token pair
type TokenInfo struct {
	AccessToken           string
	RefreshToken          string
	AccessTokenExpiresAt  time.Time
	RefreshTokenExpiresAt time.Time
	TokenType             string
}

// UserInfo contains user information returned by the API
type UserInfo struct {
	ID          uuid.UUID
	OrgID       uuid.UUID
	Email       string
	FullName    string
	Role        identity.UserRole
	Status      identity.UserStatus
	LastLoginAt *time.Time
	CreatedAt   time.Time
}

// OrganizationInfo contains organization information returned by the API
type OrganizationInfo struct {
	ID          uuid.UUID
	Slug        string
	Name        string
	PlanCode    string
	Status      identity.OrganizationStatus
	TrialEndsAt *time.Time
	Settings    identity.OrganizationSettings
	CreatedAt   time.Time
}

// RefreshTokenInput contains the input for token refresh
type RefreshTokenInput struct {
	RefreshToken string
}

// LogoutInput contains the input for user logout
type LogoutInput struct {
	UserID     uuid.UUID
	OrgID      uuid.UUID
	AccessJTI  string        // jti of the presented access token
	AccessTTL  time.Duration // remaining lifetime of the access token
	RefreshJTI string        // jti of the refresh token, if the client sent it
	RefreshTTL time.Duration
}

// ChangePasswordInput contains the input for password change
type ChangePasswordInput struct {
	UserID          uuid.UUID
	OrgID           uuid.UUID
	CurrentPassword string
	NewPassword     string
}

// InviteUserInput contains the input for adding a user to an organization
type InviteUserInput struct {
	OrgID    uuid.UUID
	Email    string
	FullName string
	Role     identity.UserRole
	Password string
}

// UpdateUserInput contains the input for updating a user
type UpdateUserInput struct {
	OrgID    uuid.UUID
	UserID   uuid.UUID
	FullName *string
	Role     *identity.UserRole
}

// UpdateOrganizationInput contains the input for updating an organization
type UpdateOrganizationInput struct {
	OrgID        uuid.UUID
	Name         string
	ContactEmail string
}

func toUserInfo(u *identity.User) UserInfo {
	return UserInfo{
		ID:          u.ID,
		OrgID:       u.TenantID,
		Email:       u.Email,
		FullName:    u.FullName,
		Role:        u.Role,
		Status:      u.Status,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
	}
}

func toOrganizationInfo(o *identity.Organization) OrganizationInfo {
	return OrganizationInfo{
		ID:          o.ID,
		Slug:        o.Slug,
		Name:        o.Name,
		PlanCode:    o.PlanCode,
		Status:      o.Status,
		TrialEndsAt: o.TrialEndsAt,
		Settings:    o.Settings,
		CreatedAt:   o.CreatedAt,
	}
}
