package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	identityapp "github.com/truthsource/backend/internal/application/identity"
	"github.com/truthsource/backend/internal/domain/identity"
	"github.com/truthsource/backend/internal/interfaces/http/middleware"
)

// UserHandler handles organization user management endpoints
type UserHandler struct {
	BaseHandler
	userService *identityapp.UserService
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userService *identityapp.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// RegisterRoutes registers user management routes
func (h *UserHandler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/users")
	group.GET("", h.List)
	group.GET("/:id", h.Get)

	admin := group.Group("", middleware.RequireRole(identity.RoleAdmin))
	admin.POST("", h.Invite)
	admin.PUT("/:id", h.Update)
	admin.POST("/:id/deactivate", h.Deactivate)
	admin.POST("/:id/reactivate", h.Reactivate)
	admin.POST("/:id/unlock", h.Unlock)
	admin.DELETE("/:id", h.Delete)
}

// InviteUserRequest represents a request to add a user to the organization
type InviteUserRequest struct {
	Email    string `json:"email" binding:"required,email"`
	FullName string `json:"full_name" binding:"required,min=1,max=200"`
	Role     string `json:"role" binding:"required,oneof=admin member readonly"`
	Password string `json:"password" binding:"required,min=8"`
}

// UpdateUserRequest represents a user update request
type UpdateUserRequest struct {
	FullName *string `json:"full_name" binding:"omitempty,min=1,max=200"`
	Role     *string `json:"role" binding:"omitempty,oneof=admin member readonly"`
}

// Invite godoc
// @Summary      Invite a user
// @Description  Add a user to the organization with the given role
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        request body InviteUserRequest true "Invite request"
// @Success      201 {object} APIResponse[UserResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /users [post]
func (h *UserHandler) Invite(c *gin.Context) {
	orgID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req InviteUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	role, ok := roleFromString(req.Role)
	if !ok {
		h.BadRequest(c, "Invalid role")
		return
	}

	user, err := h.userService.Invite(c.Request.Context(), identityapp.InviteUserInput{
		OrgID:    orgID,
		Email:    req.Email,
		FullName: req.FullName,
		Role:     role,
		Password: req.Password,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, toUserResponse(*user))
}

// List godoc
// @Summary      List organization users
// @Tags         users
// @Produce      json
// @Param        page query int false "Page number"
// @Param        page_size query int false "Page size"
// @Success      200 {object} APIResponse[[]UserResponse]
// @Security     BearerAuth
// @Router       /users [get]
func (h *UserHandler) List(c *gin.Context) {
	orgID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	filter := parseFilter(c)
	page, err := h.userService.List(c.Request.Context(), orgID, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	users := make([]UserResponse, 0, len(page.Items))
	for _, u := range page.Items {
		users = append(users, toUserResponse(u))
	}
	h.Paginated(c, users, page.Total, filter)
}

// Get godoc
// @Summary      Get a user
// @Tags         users
// @Produce      json
// @Param        id path string true "User ID" format(uuid)
// @Success      200 {object} APIResponse[UserResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /users/{id} [get]
func (h *UserHandler) Get(c *gin.Context) {
	orgID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	userID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid user ID")
		return
	}

	user, err := h.userService.Get(c.Request.Context(), orgID, userID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toUserResponse(*user))
}

// Update godoc
// @Summary      Update a user
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        id path string true "User ID" format(uuid)
// @Param        request body UpdateUserRequest true "Update request"
// @Success      200 {object} APIResponse[UserResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /users/{id} [put]
func (h *UserHandler) Update(c *gin.Context) {
	orgID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	userID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid user ID")
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	input := identityapp.UpdateUserInput{
		OrgID:    orgID,
		UserID:   userID,
		FullName: req.FullName,
	}
	if req.Role != nil {
		role, ok := roleFromString(*req.Role)
		if !ok {
			h.BadRequest(c, "Invalid role")
			return
		}
		input.Role = &role
	}

	user, err := h.userService.Update(c.Request.Context(), input)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toUserResponse(*user))
}

// Deactivate godoc
// @Summary      Deactivate a user
// @Tags         users
// @Param        id path string true "User ID" format(uuid)
// @Success      204
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /users/{id}/deactivate [post]
func (h *UserHandler) Deactivate(c *gin.Context) {
	h.mutateUser(c, h.userService.Deactivate)
}

// Reactivate godoc
// @Summary      Reactivate a user
// @Tags         users
// @Param        id path string true "User ID" format(uuid)
// @Success      204
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /users/{id}/reactivate [post]
func (h *UserHandler) Reactivate(c *gin.Context) {
	h.mutateUser(c, h.userService.Reactivate)
}

// Unlock godoc
// @Summary      Unlock a locked-out user
// @Tags         users
// @Param        id path string true "User ID" format(uuid)
// @Success      204
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /users/{id}/unlock [post]
func (h *UserHandler) Unlock(c *gin.Context) {
	h.mutateUser(c, h.userService.Unlock)
}

// Delete godoc
// @Summary      Delete a user
// @Tags         users
// @Param        id path string true "User ID" format(uuid)
// @Success      204
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /users/{id} [delete]
func (h *UserHandler) Delete(c *gin.Context) {
	h.mutateUser(c, h.userService.Delete)
}

func (h *UserHandler) mutateUser(c *gin.Context, fn func(ctx context.Context, orgID, userID uuid.UUID) error) {
	orgID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	userID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid user ID")
		return
	}

	if err := fn(c.Request.Context(), orgID, userID); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}
