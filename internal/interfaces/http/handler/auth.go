package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	identityapp "github.com/truthsource/backend/internal/application/identity"
	"github.com/truthsource/backend/internal/domain/identity"
	"github.com/truthsource/backend/internal/infrastructure/auth"
	"github.com/truthsource/backend/internal/interfaces/http/middleware"
)

// AuthHandler handles authentication API endpoints
type AuthHandler struct {
	BaseHandler
	authService *identityapp.AuthService
	jwtService  *auth.JWTService
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(authService *identityapp.AuthService, jwtService *auth.JWTService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		jwtService:  jwtService,
	}
}

// RegisterRoutes registers authentication routes
func (h *AuthHandler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/auth")
	group.POST("/login", h.Login)
	group.POST("/refresh", h.Refresh)
	group.POST("/logout", h.Logout)
	group.GET("/me", h.Me)
	group.GET("/csrf", h.CSRFToken)
	group.POST("/change-password", h.ChangePassword)
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email" example:"ops@acme.com"`
	Password string `json:"password" binding:"required,min=8" example:"s3cret-pass"`
}

// RefreshRequest represents a token refresh request
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// LogoutRequest represents a logout request. The refresh token is optional;
// when present its remaining lifetime is revoked too.
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// ChangePasswordRequest represents a password change request
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8"`
}

// TokenResponse represents an issued token pair
type TokenResponse struct {
	AccessToken           string    `json:"access_token"`
	RefreshToken          string    `json:"refresh_token"`
	AccessTokenExpiresAt  time.Time `json:"access_token_expires_at"`
	RefreshTokenExpiresAt time.Time `json:"refresh_token_expires_at"`
	TokenType             string    `json:"token_type" example:"Bearer"`
}

// UserResponse represents a user in API responses
type UserResponse struct {
	ID          string     `json:"id"`
	OrgID       string     `json:"org_id"`
	Email       string     `json:"email"`
	FullName    string     `json:"full_name"`
	Role        string     `json:"role"`
	Status      string     `json:"status"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// LoginResponse represents a successful login
type LoginResponse struct {
	Tokens TokenResponse `json:"tokens"`
	User   UserResponse  `json:"user"`
}

func toTokenResponse(t identityapp.TokenInfo) TokenResponse {
	return TokenResponse{
		AccessToken:           t.AccessToken,
		RefreshToken:          t.RefreshToken,
		AccessTokenExpiresAt:  t.AccessTokenExpiresAt,
		RefreshTokenExpiresAt: t.RefreshTokenExpiresAt,
		TokenType:             t.TokenType,
	}
}

func toUserResponse(u identityapp.UserInfo) UserResponse {
	return UserResponse{
		ID:          u.ID.String(),
		OrgID:       u.OrgID.String(),
		Email:       u.Email,
		FullName:    u.FullName,
		Role:        string(u.Role),
		Status:      string(u.Status),
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
	}
}

// Login godoc
// @Summary      Log in
// @Description  Authenticate with email and password and receive a token pair
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body LoginRequest true "Login request"
// @Success      200 {object} APIResponse[LoginResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.authService.Login(c.Request.Context(), identityapp.LoginInput{
		Email:    req.Email,
		Password: req.Password,
		IP:       c.ClientIP(),
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, LoginResponse{
		Tokens: toTokenResponse(result.Tokens),
		User:   toUserResponse(result.User),
	})
}

// Refresh godoc
// @Summary      Refresh tokens
// @Description  Exchange a refresh token for a new token pair
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body RefreshRequest true "Refresh request"
// @Success      200 {object} APIResponse[TokenResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Router       /auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	tokens, err := h.authService.RefreshToken(c.Request.Context(), identityapp.RefreshTokenInput{
		RefreshToken: req.RefreshToken,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toTokenResponse(*tokens))
}

// Logout godoc
// @Summary      Log out
// @Description  Revoke the presented access token, and the refresh token when provided
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body LogoutRequest false "Logout request"
// @Success      204
// @Failure      401 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	orgID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	input := identityapp.LogoutInput{
		UserID: userID,
		OrgID:  orgID,
	}
	if claims := middleware.GetJWTClaims(c); claims != nil {
		input.AccessJTI = claims.ID
		if claims.ExpiresAt != nil {
			input.AccessTTL = time.Until(claims.ExpiresAt.Time)
		}
	}

	// Body is optional; clients that still hold a refresh token send it so
	// its remaining lifetime gets revoked too.
	var req LogoutRequest
	if err := c.ShouldBindJSON(&req); err == nil && req.RefreshToken != "" {
		if refreshClaims, err := h.jwtService.ValidateRefreshToken(req.RefreshToken); err == nil {
			input.RefreshJTI = refreshClaims.ID
			if refreshClaims.ExpiresAt != nil {
				input.RefreshTTL = time.Until(refreshClaims.ExpiresAt.Time)
			}
		}
	}

	if err := h.authService.Logout(c.Request.Context(), input); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}

// Me godoc
// @Summary      Get current user
// @Description  Returns the authenticated user's profile
// @Tags         auth
// @Produce      json
// @Success      200 {object} APIResponse[UserResponse]
// @Failure      401 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	orgID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	user, err := h.authService.GetCurrentUser(c.Request.Context(), orgID, userID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toUserResponse(*user))
}

// ChangePassword godoc
// @Summary      Change password
// @Description  Change the authenticated user's password. All previously issued tokens are invalidated.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body ChangePasswordRequest true "Password change request"
// @Success      204
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /auth/change-password [post]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	orgID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	if err := h.authService.ChangePassword(c.Request.Context(), identityapp.ChangePasswordInput{
		UserID:          userID,
		OrgID:           orgID,
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	}); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}

// CSRFTokenResponse carries a freshly issued CSRF token
type CSRFTokenResponse struct {
	Token string `json:"token"`
}

// CSRFToken godoc
// @Summary      Issue a CSRF token
// @Description  Set the double-submit CSRF cookie and return the token for browser clients
// @Tags         auth
// @Produce      json
// @Success      200 {object} APIResponse[CSRFTokenResponse]
// @Failure      500 {object} ErrorResponse
// @Router       /auth/csrf [get]
func (h *AuthHandler) CSRFToken(c *gin.Context) {
	token, err := middleware.IssueCSRFToken(c, middleware.DefaultCSRFConfig())
	if err != nil {
		h.InternalError(c, "Failed to issue CSRF token")
		return
	}
	h.Success(c, CSRFTokenResponse{Token: token})
}

// roleFromString parses a role string into a domain role
func roleFromString(role string) (identity.UserRole, bool) {
	switch identity.UserRole(role) {
	case identity.RoleAdmin, identity.RoleMember, identity.RoleReadonly:
		return identity.UserRole(role), true
	}
	return "", false
}
