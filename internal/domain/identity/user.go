package identity

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/truthsource/backend/internal/domain/shared"
)

// UserStatus represents the status of a user
type UserStatus string

const (
	UserStatusActive      UserStatus = "active"
	UserStatusLocked      UserStatus = "locked" // Locked after repeated failed logins
	UserStatusDeactivated UserStatus = "deactivated"
)

// UserRole represents the role of a user within an organization
type UserRole string

const (
	RoleAdmin    UserRole = "admin"    // Full control including user and billing management
	RoleMember   UserRole = "member"   // Day-to-day data management
	RoleReadonly UserRole = "readonly" // Dashboards and reports only
)

// Password cost for bcrypt
const bcryptCost = 12

// Lockout policy
const (
	maxFailedAttempts = 5
	lockoutDuration   = 15 * time.Minute
)

// User is a person who can sign in to an organization. Email is the login
// identifier and is unique per organization.
type User struct {
	shared.TenantAggregateRoot
	Email          string     `gorm:"type:varchar(200);not null;uniqueIndex:idx_user_tenant_email,priority:2"`
	PasswordHash   string     `gorm:"type:varchar(100);not null"`
	FullName       string     `gorm:"type:varchar(200)"`
	Role           UserRole   `gorm:"type:varchar(20);not null;default:'member'"`
	Status         UserStatus `gorm:"type:varchar(20);not null;default:'active'"`
	LastLoginAt    *time.Time ``
	LastLoginIP    string     `gorm:"type:varchar(45)"` // IPv6 max length
	FailedAttempts int        `gorm:"not null;default:0"`
	LockedUntil    *time.Time ``
}

// TableName returns the table name for GORM
func (User) TableName() string {
	return "users"
}

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// NewUser creates a new active user
func NewUser(tenantID uuid.UUID, email, password, fullName string, role UserRole) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}
	if !role.IsValid() {
		return nil, shared.NewDomainError("INVALID_ROLE", "Role must be admin, member, or readonly")
	}

	hash, err := hashPassword(password)
	if err != nil {
		return nil, shared.NewDomainError("PASSWORD_HASH_ERROR", "Failed to hash password")
	}

	user := &User{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Email:               email,
		PasswordHash:        hash,
		FullName:            strings.TrimSpace(fullName),
		Role:                role,
		Status:              UserStatusActive,
	}

	user.AddDomainEvent(NewUserCreatedEvent(user))

	return user, nil
}

// IsValid returns true for a known role
func (r UserRole) IsValid() bool {
	switch r {
	case RoleAdmin, RoleMember, RoleReadonly:
		return true
	}
	return false
}

// CanWrite returns true if the role allows data modification
func (r UserRole) CanWrite() bool {
	return r == RoleAdmin || r == RoleMember
}

// IsAdmin returns true for the admin role
func (r UserRole) IsAdmin() bool {
	return r == RoleAdmin
}

// UpdateProfile updates the user's display information
func (u *User) UpdateProfile(fullName string) error {
	if len(fullName) > 200 {
		return shared.NewDomainError("INVALID_NAME", "Full name cannot exceed 200 characters")
	}

	u.FullName = strings.TrimSpace(fullName)
	u.Touch()
	u.IncrementVersion()

	return nil
}

// ChangeRole changes the user's role.
// The caller is responsible for the last-admin check, which needs repository access.
func (u *User) ChangeRole(role UserRole) error {
	if !role.IsValid() {
		return shared.NewDomainError("INVALID_ROLE", "Role must be admin, member, or readonly")
	}

	u.Role = role
	u.Touch()
	u.IncrementVersion()

	return nil
}

// VerifyPassword checks the given password against the stored hash
func (u *User) VerifyPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// ChangePassword verifies the current password and sets a new one
func (u *User) ChangePassword(currentPassword, newPassword string) error {
	if !u.VerifyPassword(currentPassword) {
		return shared.NewDomainError("INVALID_PASSWORD", "Current password is incorrect")
	}
	return u.ResetPassword(newPassword)
}

// ResetPassword sets a new password without verifying the old one
func (u *User) ResetPassword(newPassword string) error {
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}

	hash, err := hashPassword(newPassword)
	if err != nil {
		return shared.NewDomainError("PASSWORD_HASH_ERROR", "Failed to hash password")
	}

	u.PasswordHash = hash
	u.Touch()
	u.IncrementVersion()

	return nil
}

// RecordLogin records a successful login and clears the failure counter
func (u *User) RecordLogin(ip string) {
	now := time.Now()
	u.LastLoginAt = &now
	u.LastLoginIP = ip
	u.FailedAttempts = 0
	u.LockedUntil = nil
	u.Touch()

	u.AddDomainEvent(NewUserLoggedInEvent(u, ip))
}

// RecordFailedLogin increments the failure counter, locking the account
// once it crosses the threshold.
func (u *User) RecordFailedLogin() {
	u.FailedAttempts++
	if u.FailedAttempts >= maxFailedAttempts {
		until := time.Now().Add(lockoutDuration)
		u.Status = UserStatusLocked
		u.LockedUntil = &until
	}
	u.Touch()
}

// IsLocked returns true while the lockout window is in effect
func (u *User) IsLocked() bool {
	if u.Status != UserStatusLocked {
		return false
	}
	if u.LockedUntil != nil && u.LockedUntil.Before(time.Now()) {
		return false
	}
	return true
}

// Unlock clears the lockout
func (u *User) Unlock() {
	u.Status = UserStatusActive
	u.FailedAttempts = 0
	u.LockedUntil = nil
	u.Touch()
}

// Deactivate disables the account
func (u *User) Deactivate() error {
	if u.Status == UserStatusDeactivated {
		return shared.NewDomainError("ALREADY_DEACTIVATED", "User is already deactivated")
	}

	u.Status = UserStatusDeactivated
	u.Touch()
	u.IncrementVersion()

	return nil
}

// Reactivate re-enables a deactivated account
func (u *User) Reactivate() error {
	if u.Status != UserStatusDeactivated {
		return shared.NewDomainError("NOT_DEACTIVATED", "User is not deactivated")
	}

	u.Status = UserStatusActive
	u.FailedAttempts = 0
	u.LockedUntil = nil
	u.Touch()
	u.IncrementVersion()

	return nil
}

// IsActive returns true if the user can sign in
func (u *User) IsActive() bool {
	return u.Status == UserStatusActive || (u.Status == UserStatusLocked && !u.IsLocked())
}

// validateEmail validates an email address
func validateEmail(email string) error {
	if email == "" {
		return shared.NewDomainError("INVALID_EMAIL", "Email cannot be empty")
	}
	if len(email) > 200 {
		return shared.NewDomainError("INVALID_EMAIL", "Email cannot exceed 200 characters")
	}
	if !emailPattern.MatchString(email) {
		return shared.NewDomainError("INVALID_EMAIL", "Email format is invalid")
	}
	return nil
}

// ValidatePassword enforces the password policy
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return shared.NewDomainError("WEAK_PASSWORD", "Password must be at least 8 characters")
	}
	if len(password) > 72 {
		// bcrypt input limit
		return shared.NewDomainError("INVALID_PASSWORD", "Password cannot exceed 72 characters")
	}

	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case r >= '0' && r <= '9':
			hasDigit = true
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			hasLetter = true
		}
	}
	if !hasLetter || !hasDigit {
		return shared.NewDomainError("WEAK_PASSWORD", "Password must contain both letters and digits")
	}
	return nil
}

// hashPassword hashes a password using bcrypt
func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
