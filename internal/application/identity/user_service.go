package identity

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/truthsource/backend/internal/domain/identity"
	"github.com/truthsource/backend/internal/domain/shared"
)

// UserService handles user management within an organization
type UserService struct {
	userRepo       identity.UserRepository
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewUserService creates a new user service
func NewUserService(userRepo identity.UserRepository, logger *zap.Logger) *UserService {
	return &UserService{
		userRepo: userRepo,
		logger:   logger,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *UserService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Invite adds a user to an organization with an initial password
func (s *UserService) Invite(ctx context.Context, input InviteUserInput) (*UserInfo, error) {
	// email must be globally unique; login resolves the org from the user
	if existing, err := s.userRepo.FindByEmailGlobal(ctx, input.Email); err == nil && existing != nil {
		return nil, shared.NewDomainError("EMAIL_TAKEN", "A user with this email already exists")
	}

	user, err := identity.NewUser(input.OrgID, input.Email, input.Password, input.FullName, input.Role)
	if err != nil {
		return nil, err
	}

	if err := s.userRepo.Save(ctx, user); err != nil {
		s.logger.Error("Failed to save invited user", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to create user")
	}

	s.publishEvents(ctx, user.GetDomainEvents())
	user.ClearDomainEvents()

	s.logger.Info("User invited",
		zap.String("org_id", input.OrgID.String()),
		zap.String("user_id", user.ID.String()),
		zap.String("role", string(input.Role)))

	info := toUserInfo(user)
	return &info, nil
}

// List returns the organization's users
func (s *UserService) List(ctx context.Context, orgID uuid.UUID, filter shared.Filter) (*shared.Paginated[UserInfo], error) {
	users, err := s.userRepo.FindAllForTenant(ctx, orgID, filter)
	if err != nil {
		s.logger.Error("Failed to list users", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to list users")
	}

	total, err := s.userRepo.CountForTenant(ctx, orgID, filter)
	if err != nil {
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to count users")
	}

	infos := make([]UserInfo, 0, len(users))
	for i := range users {
		infos = append(infos, toUserInfo(&users[i]))
	}

	result := shared.NewPaginated(infos, total, filter.Page, filter.PageSize)
	return &result, nil
}

// Get returns a single user within the organization
func (s *UserService) Get(ctx context.Context, orgID, userID uuid.UUID) (*UserInfo, error) {
	user, err := s.userRepo.FindByIDForTenant(ctx, orgID, userID)
	if err != nil {
		return nil, shared.NewDomainError("USER_NOT_FOUND", "User not found")
	}
	info := toUserInfo(user)
	return &info, nil
}

// Update changes a user's profile or role. Demoting the last admin of an
// organization is refused.
func (s *UserService) Update(ctx context.Context, input UpdateUserInput) (*UserInfo, error) {
	user, err := s.userRepo.FindByIDForTenant(ctx, input.OrgID, input.UserID)
	if err != nil {
		return nil, shared.NewDomainError("USER_NOT_FOUND", "User not found")
	}

	if input.FullName != nil {
		if err := user.UpdateProfile(*input.FullName); err != nil {
			return nil, err
		}
	}

	if input.Role != nil && *input.Role != user.Role {
		if user.Role.IsAdmin() && !input.Role.IsAdmin() {
			if err := s.ensureNotLastAdmin(ctx, input.OrgID); err != nil {
				return nil, err
			}
		}
		if err := user.ChangeRole(*input.Role); err != nil {
			return nil, err
		}
	}

	if err := s.userRepo.Save(ctx, user); err != nil {
		s.logger.Error("Failed to update user", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to update user")
	}

	info := toUserInfo(user)
	return &info, nil
}

// Deactivate disables a user's account. The last admin cannot be deactivated.
func (s *UserService) Deactivate(ctx context.Context, orgID, userID uuid.UUID) error {
	user, err := s.userRepo.FindByIDForTenant(ctx, orgID, userID)
	if err != nil {
		return shared.NewDomainError("USER_NOT_FOUND", "User not found")
	}

	if user.Role.IsAdmin() {
		if err := s.ensureNotLastAdmin(ctx, orgID); err != nil {
			return err
		}
	}

	if err := user.Deactivate(); err != nil {
		return err
	}

	if err := s.userRepo.Save(ctx, user); err != nil {
		s.logger.Error("Failed to deactivate user", zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to deactivate user")
	}

	s.logger.Info("User deactivated",
		zap.String("org_id", orgID.String()),
		zap.String("user_id", userID.String()))
	return nil
}

// Reactivate re-enables a deactivated account
func (s *UserService) Reactivate(ctx context.Context, orgID, userID uuid.UUID) error {
	user, err := s.userRepo.FindByIDForTenant(ctx, orgID, userID)
	if err != nil {
		return shared.NewDomainError("USER_NOT_FOUND", "User not found")
	}

	if err := user.Reactivate(); err != nil {
		return err
	}

	if err := s.userRepo.Save(ctx, user); err != nil {
		s.logger.Error("Failed to reactivate user", zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to reactivate user")
	}
	return nil
}

// Unlock clears a lockout before the window expires
func (s *UserService) Unlock(ctx context.Context, orgID, userID uuid.UUID) error {
	user, err := s.userRepo.FindByIDForTenant(ctx, orgID, userID)
	if err != nil {
		return shared.NewDomainError("USER_NOT_FOUND", "User not found")
	}

	user.Unlock()

	if err := s.userRepo.Save(ctx, user); err != nil {
		s.logger.Error("Failed to unlock user", zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to unlock user")
	}

	s.logger.Info("User unlocked",
		zap.String("org_id", orgID.String()),
		zap.String("user_id", userID.String()))
	return nil
}

// Delete removes a user from the organization. The last admin cannot be
// deleted.
func (s *UserService) Delete(ctx context.Context, orgID, userID uuid.UUID) error {
	user, err := s.userRepo.FindByIDForTenant(ctx, orgID, userID)
	if err != nil {
		return shared.NewDomainError("USER_NOT_FOUND", "User not found")
	}

	if user.Role.IsAdmin() {
		if err := s.ensureNotLastAdmin(ctx, orgID); err != nil {
			return err
		}
	}

	if err := s.userRepo.DeleteForTenant(ctx, orgID, userID); err != nil {
		s.logger.Error("Failed to delete user", zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to delete user")
	}

	s.logger.Info("User deleted",
		zap.String("org_id", orgID.String()),
		zap.String("user_id", userID.String()))
	return nil
}

func (s *UserService) ensureNotLastAdmin(ctx context.Context, orgID uuid.UUID) error {
	admins, err := s.userRepo.CountAdmins(ctx, orgID)
	if err != nil {
		s.logger.Error("Failed to count admins", zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to verify admin count")
	}
	if admins <= 1 {
		return shared.NewDomainError("LAST_ADMIN", "An organization must keep at least one admin")
	}
	return nil
}

func (s *UserService) publishEvents(ctx context.Context, events []shared.DomainEvent) {
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	_ = s.eventPublisher.Publish(ctx, events...)
}
