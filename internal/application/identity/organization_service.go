package identity

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/truthsource/backend/internal/domain/identity"
	"github.com/truthsource/backend/internal/domain/shared"
	"github.com/truthsource/backend/internal/infrastructure/auth"
)

// OrganizationService handles organization lifecycle operations
type OrganizationService struct {
	orgRepo        identity.OrganizationRepository
	userRepo       identity.UserRepository
	jwtService     *auth.JWTService
	trialDays      int
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewOrganizationService creates a new organization service
func NewOrganizationService(
	orgRepo identity.OrganizationRepository,
	userRepo identity.UserRepository,
	jwtService *auth.JWTService,
	trialDays int,
	logger *zap.Logger,
) *OrganizationService {
	return &OrganizationService{
		orgRepo:    orgRepo,
		userRepo:   userRepo,
		jwtService: jwtService,
		trialDays:  trialDays,
		logger:     logger,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *OrganizationService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Register creates a new trial organization with its first admin user and
// signs the admin in. Billing provisioning listens for the registration
// event and creates the Stripe customer asynchronously.
func (s *OrganizationService) Register(ctx context.Context, input RegisterInput) (*RegisterResult, error) {
	taken, err := s.orgRepo.ExistsBySlug(ctx, input.OrgSlug)
	if err != nil {
		s.logger.Error("Slug lookup failed", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to check slug availability")
	}
	if taken {
		return nil, shared.NewDomainError("SLUG_TAKEN", "An organization with this slug already exists")
	}

	if existing, err := s.userRepo.FindByEmailGlobal(ctx, input.AdminEmail); err == nil && existing != nil {
		return nil, shared.NewDomainError("EMAIL_TAKEN", "A user with this email already exists")
	}

	org, err := identity.NewTrialOrganization(input.OrgSlug, input.OrgName, s.trialDays)
	if err != nil {
		return nil, err
	}
	if input.ContactEmail != "" {
		if err := org.Update(org.Name, input.ContactEmail); err != nil {
			return nil, err
		}
	}

	admin, err := identity.NewUser(org.ID, input.AdminEmail, input.Password, input.AdminName, identity.RoleAdmin)
	if err != nil {
		return nil, err
	}

	if err := s.orgRepo.Save(ctx, org); err != nil {
		s.logger.Error("Failed to save organization", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to create organization")
	}
	if err := s.userRepo.Save(ctx, admin); err != nil {
		s.logger.Error("Failed to save admin user", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to create admin user")
	}

	s.publishEvents(ctx, org.GetDomainEvents())
	s.publishEvents(ctx, admin.GetDomainEvents())
	org.ClearDomainEvents()
	admin.ClearDomainEvents()

	pair, err := s.jwtService.GenerateTokenPair(auth.GenerateTokenInput{
		OrgID:  org.ID,
		UserID: admin.ID,
		Email:  admin.Email,
		Role:   string(admin.Role),
	})
	if err != nil {
		s.logger.Error("Failed to generate tokens after registration", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to generate authentication tokens")
	}

	s.logger.Info("Organization registered",
		zap.String("org_id", org.ID.String()),
		zap.String("slug", org.Slug),
		zap.Int("trial_days", s.trialDays))

	return &RegisterResult{
		Organization: toOrganizationInfo(org),
		User:         toUserInfo(admin),
		Tokens:       toTokenInfo(pair),
	}, nil
}

// Get returns an organization's profile
func (s *OrganizationService) Get(ctx context.Context, orgID uuid.UUID) (*OrganizationInfo, error) {
	org, err := s.orgRepo.FindByID(ctx, orgID)
	if err != nil {
		return nil, shared.NewDomainError("ORG_NOT_FOUND", "Organization not found")
	}
	info := toOrganizationInfo(org)
	return &info, nil
}

// Update updates an organization's basic information
func (s *OrganizationService) Update(ctx context.Context, input UpdateOrganizationInput) (*OrganizationInfo, error) {
	org, err := s.orgRepo.FindByID(ctx, input.OrgID)
	if err != nil {
		return nil, shared.NewDomainError("ORG_NOT_FOUND", "Organization not found")
	}

	if err := org.Update(input.Name, input.ContactEmail); err != nil {
		return nil, err
	}

	if err := s.orgRepo.Save(ctx, org); err != nil {
		s.logger.Error("Failed to update organization", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to update organization")
	}

	info := toOrganizationInfo(org)
	return &info, nil
}

// UpdateSettings replaces the organization's settings
func (s *OrganizationService) UpdateSettings(ctx context.Context, orgID uuid.UUID, settings identity.OrganizationSettings) (*OrganizationInfo, error) {
	org, err := s.orgRepo.FindByID(ctx, orgID)
	if err != nil {
		return nil, shared.NewDomainError("ORG_NOT_FOUND", "Organization not found")
	}

	if err := org.UpdateSettings(settings); err != nil {
		return nil, err
	}

	if err := s.orgRepo.Save(ctx, org); err != nil {
		s.logger.Error("Failed to update organization settings", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to update settings")
	}

	info := toOrganizationInfo(org)
	return &info, nil
}

// Suspend suspends an organization. Suspended organizations cannot log in
// and their scheduled syncs are skipped.
func (s *OrganizationService) Suspend(ctx context.Context, orgID uuid.UUID, reason string) error {
	org, err := s.orgRepo.FindByID(ctx, orgID)
	if err != nil {
		return shared.NewDomainError("ORG_NOT_FOUND", "Organization not found")
	}

	if err := org.Suspend(reason); err != nil {
		return err
	}

	if err := s.orgRepo.Save(ctx, org); err != nil {
		s.logger.Error("Failed to suspend organization", zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to suspend organization")
	}

	s.publishEvents(ctx, org.GetDomainEvents())
	org.ClearDomainEvents()

	s.logger.Warn("Organization suspended",
		zap.String("org_id", orgID.String()),
		zap.String("reason", reason))
	return nil
}

// Activate reactivates a suspended or trial organization
func (s *OrganizationService) Activate(ctx context.Context, orgID uuid.UUID) error {
	org, err := s.orgRepo.FindByID(ctx, orgID)
	if err != nil {
		return shared.NewDomainError("ORG_NOT_FOUND", "Organization not found")
	}

	if err := org.Activate(); err != nil {
		return err
	}

	if err := s.orgRepo.Save(ctx, org); err != nil {
		s.logger.Error("Failed to activate organization", zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to activate organization")
	}

	s.logger.Info("Organization activated", zap.String("org_id", orgID.String()))
	return nil
}

// ChangePlan updates the plan code cached on the organization. Called by
// billing when a subscription changes.
func (s *OrganizationService) ChangePlan(ctx context.Context, orgID uuid.UUID, planCode string) error {
	org, err := s.orgRepo.FindByID(ctx, orgID)
	if err != nil {
		return shared.NewDomainError("ORG_NOT_FOUND", "Organization not found")
	}

	if err := org.ChangePlan(planCode); err != nil {
		return err
	}

	if err := s.orgRepo.Save(ctx, org); err != nil {
		s.logger.Error("Failed to change plan", zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to change plan")
	}

	s.logger.Info("Plan changed",
		zap.String("org_id", orgID.String()),
		zap.String("plan", planCode))
	return nil
}

func (s *OrganizationService) publishEvents(ctx context.Context, events []shared.DomainEvent) {
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	_ = s.eventPublisher.Publish(ctx, events...)
}
