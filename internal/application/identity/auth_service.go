package identity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/truthsource/backend/internal/domain/identity"
	"github.com/truthsource/backend/internal/domain/shared"
	"github.com/truthsource/backend/internal/infrastructure/auth"
)

// AuthService handles authentication operations
type AuthService struct {
	userRepo       identity.UserRepository
	orgRepo        identity.OrganizationRepository
	jwtService     *auth.JWTService
	blacklist      auth.TokenBlacklist
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(
	userRepo identity.UserRepository,
	orgRepo identity.OrganizationRepository,
	jwtService *auth.JWTService,
	blacklist auth.TokenBlacklist,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		orgRepo:    orgRepo,
		jwtService: jwtService,
		blacklist:  blacklist,
		logger:     logger,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *AuthService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Login authenticates a user by email and returns a token pair. Email is
// globally unique across organizations, so the organization is resolved
// from the user record.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	user, err := s.userRepo.FindByEmailGlobal(ctx, input.Email)
	if err != nil {
		s.logger.Warn("Login for unknown email", zap.String("email", input.Email))
		return nil, shared.NewDomainError("INVALID_CREDENTIALS", "Invalid email or password")
	}

	org, err := s.orgRepo.FindByID(ctx, user.TenantID)
	if err != nil {
		s.logger.Error("Organization lookup failed during login",
			zap.String("org_id", user.TenantID.String()), zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to resolve organization")
	}
	if !org.IsActive() {
		s.logger.Warn("Login for inactive organization",
			zap.String("org_id", org.ID.String()),
			zap.String("status", string(org.Status)))
		return nil, shared.NewDomainError("ORG_SUSPENDED", "Organization is suspended or the trial has expired")
	}

	if user.IsLocked() {
		s.logger.Warn("Login for locked account", zap.String("user_id", user.ID.String()))
		return nil, shared.NewDomainError("ACCOUNT_LOCKED", "Account is locked. Try again later")
	}
	if !user.IsActive() {
		s.logger.Warn("Login for deactivated account", zap.String("user_id", user.ID.String()))
		return nil, shared.NewDomainError("ACCOUNT_DEACTIVATED", "Account has been deactivated")
	}

	if !user.VerifyPassword(input.Password) {
		user.RecordFailedLogin()
		if err := s.userRepo.Save(ctx, user); err != nil {
			s.logger.Error("Failed to record login failure", zap.Error(err))
		}

		if user.IsLocked() {
			s.logger.Warn("Account locked after repeated failures",
				zap.String("user_id", user.ID.String()),
				zap.Int("attempts", user.FailedAttempts))
			return nil, shared.NewDomainError("ACCOUNT_LOCKED", "Too many failed login attempts. Account has been locked")
		}
		return nil, shared.NewDomainError("INVALID_CREDENTIALS", "Invalid email or password")
	}

	pair, err := s.jwtService.GenerateTokenPair(auth.GenerateTokenInput{
		OrgID:  user.TenantID,
		UserID: user.ID,
		Email:  user.Email,
		Role:   string(user.Role),
	})
	if err != nil {
		s.logger.Error("Failed to generate token pair", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to generate authentication tokens")
	}

	user.RecordLogin(input.IP)
	if err := s.userRepo.Save(ctx, user); err != nil {
		// Do not fail the login over bookkeeping
		s.logger.Error("Failed to record successful login", zap.Error(err))
	}
	s.publishEvents(ctx, user.GetDomainEvents())
	user.ClearDomainEvents()

	s.logger.Info("User logged in",
		zap.String("user_id", user.ID.String()),
		zap.String("org_id", user.TenantID.String()))

	return &LoginResult{
		Tokens: toTokenInfo(pair),
		User:   toUserInfo(user),
	}, nil
}

// RefreshToken rotates a token pair using a valid refresh token
func (s *AuthService) RefreshToken(ctx context.Context, input RefreshTokenInput) (*TokenInfo, error) {
	claims, err := s.jwtService.ValidateRefreshToken(input.RefreshToken)
	if err != nil {
		return nil, mapTokenError(err)
	}

	if revoked, err := s.blacklist.IsBlacklisted(ctx, claims.ID); err != nil {
		s.logger.Error("Blacklist check failed", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to validate token")
	} else if revoked {
		return nil, shared.NewDomainError("TOKEN_REVOKED", "Refresh token has been revoked")
	}

	if invalidated, err := s.blacklist.IsUserTokenInvalidated(ctx, claims.UserID, claims.GetIssuedAtTime()); err != nil {
		s.logger.Error("User invalidation check failed", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to validate token")
	} else if invalidated {
		return nil, shared.NewDomainError("TOKEN_REVOKED", "Session has been invalidated. Please log in again")
	}

	userID, err := claims.GetUserUUID()
	if err != nil {
		return nil, shared.NewDomainError("TOKEN_INVALID", "Invalid user ID in token")
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, shared.NewDomainError("USER_NOT_FOUND", "User not found")
	}
	if !user.IsActive() {
		return nil, shared.NewDomainError("ACCOUNT_INACTIVE", "Account is no longer active")
	}

	org, err := s.orgRepo.FindByID(ctx, user.TenantID)
	if err != nil || !org.IsActive() {
		return nil, shared.NewDomainError("ORG_SUSPENDED", "Organization is suspended or the trial has expired")
	}

	// Role is reloaded so a role change takes effect on refresh
	pair, err := s.jwtService.RefreshTokenPair(input.RefreshToken, user.Email, string(user.Role))
	if err != nil {
		return nil, mapTokenError(err)
	}

	info := toTokenInfo(pair)
	return &info, nil
}

// Logout revokes the presented tokens. Stateless JWTs stay valid until
// expiry, so revocation goes through the blacklist.
func (s *AuthService) Logout(ctx context.Context, input LogoutInput) error {
	if input.AccessJTI != "" {
		if err := s.blacklist.AddToBlacklist(ctx, input.AccessJTI, input.AccessTTL); err != nil {
			s.logger.Error("Failed to blacklist access token", zap.Error(err))
			return shared.NewDomainError("INTERNAL_ERROR", "Failed to log out")
		}
	}
	if input.RefreshJTI != "" {
		if err := s.blacklist.AddToBlacklist(ctx, input.RefreshJTI, input.RefreshTTL); err != nil {
			s.logger.Error("Failed to blacklist refresh token", zap.Error(err))
			return shared.NewDomainError("INTERNAL_ERROR", "Failed to log out")
		}
	}

	s.logger.Info("User logged out",
		zap.String("user_id", input.UserID.String()),
		zap.String("org_id", input.OrgID.String()))
	return nil
}

// GetCurrentUser retrieves the authenticated user's profile
func (s *AuthService) GetCurrentUser(ctx context.Context, orgID, userID uuid.UUID) (*UserInfo, error) {
	user, err := s.userRepo.FindByIDForTenant(ctx, orgID, userID)
	if err != nil {
		return nil, shared.NewDomainError("USER_NOT_FOUND", "User not found")
	}
	info := toUserInfo(user)
	return &info, nil
}

// ChangePassword verifies the current password, sets a new one, and
// invalidates every previously issued token for the user.
func (s *AuthService) ChangePassword(ctx context.Context, input ChangePasswordInput) error {
	user, err := s.userRepo.FindByIDForTenant(ctx, input.OrgID, input.UserID)
	if err != nil {
		return shared.NewDomainError("USER_NOT_FOUND", "User not found")
	}

	if err := user.ChangePassword(input.CurrentPassword, input.NewPassword); err != nil {
		return err
	}

	if err := s.userRepo.Save(ctx, user); err != nil {
		s.logger.Error("Failed to persist password change", zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to update password")
	}

	ttl := s.jwtService.GetRefreshTokenExpiration()
	if err := s.blacklist.AddUserTokensToBlacklist(ctx, input.UserID.String(), time.Now(), ttl); err != nil {
		s.logger.Error("Failed to invalidate prior sessions", zap.Error(err))
	}

	s.logger.Info("Password changed", zap.String("user_id", input.UserID.String()))
	return nil
}

func (s *AuthService) publishEvents(ctx context.Context, events []shared.DomainEvent) {
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	// Errors are logged by the event bus, not propagated
	_ = s.eventPublisher.Publish(ctx, events...)
}

func toTokenInfo(pair *auth.TokenPair) TokenInfo {
	return TokenInfo{
		AccessToken:           pair.AccessToken,
		RefreshToken:          pair.RefreshToken,
		AccessTokenExpiresAt:  pair.AccessTokenExpiresAt,
		RefreshTokenExpiresAt: pair.RefreshTokenExpiresAt,
		TokenType:             pair.TokenType,
	}
}

func mapTokenError(err error) error {
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return shared.NewDomainError("TOKEN_EXPIRED", "Refresh token has expired")
	case errors.Is(err, auth.ErrMaxRefreshExceeded):
		return shared.NewDomainError("TOKEN_MAX_REFRESH", "Maximum token refresh count exceeded. Please log in again")
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrInvalidTokenType), errors.Is(err, auth.ErrInvalidClaims):
		return shared.NewDomainError("TOKEN_INVALID", "Invalid refresh token")
	default:
		return shared.NewDomainError("TOKEN_ERROR", "Failed to validate refresh token")
	}
}
