package billing

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/truthsource/backend/internal/domain/billing"
	"github.com/truthsource/backend/internal/domain/shared"
)

// ProductCounter counts an organization's products. The catalog product
// repository satisfies it.
type ProductCounter interface {
	CountForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (int64, error)
}

// IntegrationCounter counts an organization's connected platforms. The
// integration repository satisfies it.
type IntegrationCounter interface {
	CountForTenant(ctx context.Context, tenantID uuid.UUID) (int64, error)
}

// QuotaService enforces plan limits. The catalog and integration services
// call it through their quota ports before creating billable resources.
type QuotaService struct {
	subscriptionRepo billing.SubscriptionRepository
	usageRepo        billing.UsageRepository
	products         ProductCounter
	integrations     IntegrationCounter
	logger           *zap.Logger
}

// NewQuotaService creates a new quota service
func NewQuotaService(
	subscriptionRepo billing.SubscriptionRepository,
	usageRepo billing.UsageRepository,
	products ProductCounter,
	integrations IntegrationCounter,
	logger *zap.Logger,
) *QuotaService {
	return &QuotaService{
		subscriptionRepo: subscriptionRepo,
		usageRepo:        usageRepo,
		products:         products,
		integrations:     integrations,
		logger:           logger,
	}
}

// EnsureProductAllowance fails with ErrPlanLimitReached when the plan's
// product cap is already filled
func (s *QuotaService) EnsureProductAllowance(ctx context.Context, orgID uuid.UUID) error {
	plan, err := s.planFor(ctx, orgID)
	if err != nil {
		return err
	}
	if plan.MaxProducts == billing.Unlimited {
		return nil
	}

	count, err := s.products.CountForTenant(ctx, orgID, shared.Filter{})
	if err != nil {
		s.logger.Error("Failed to count products for quota check", zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to check plan quota")
	}
	if count >= plan.MaxProducts {
		return shared.ErrPlanLimitReached
	}
	return nil
}

// EnsureIntegrationAllowance fails when the plan's connected-platform cap is
// already filled
func (s *QuotaService) EnsureIntegrationAllowance(ctx context.Context, orgID uuid.UUID) error {
	plan, err := s.planFor(ctx, orgID)
	if err != nil {
		return err
	}
	if plan.MaxIntegrations == billing.Unlimited {
		return nil
	}

	count, err := s.integrations.CountForTenant(ctx, orgID)
	if err != nil {
		s.logger.Error("Failed to count integrations for quota check", zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to check plan quota")
	}
	if count >= plan.MaxIntegrations {
		return shared.ErrPlanLimitReached
	}
	return nil
}

// EnsureSyncAllowance fails when the calendar month's sync budget is spent
func (s *QuotaService) EnsureSyncAllowance(ctx context.Context, orgID uuid.UUID) error {
	plan, err := s.planFor(ctx, orgID)
	if err != nil {
		return err
	}
	if plan.MaxSyncsPerMo == billing.Unlimited {
		return nil
	}

	count, err := s.usageRepo.CountSyncJobsSince(ctx, orgID, monthStart(time.Now()))
	if err != nil {
		s.logger.Error("Failed to count sync jobs for quota check", zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to check plan quota")
	}
	if count >= plan.MaxSyncsPerMo {
		return shared.ErrPlanLimitReached
	}
	return nil
}

// AIInsightsEnabled reports whether the plan includes AI narration
func (s *QuotaService) AIInsightsEnabled(ctx context.Context, orgID uuid.UUID) (bool, error) {
	plan, err := s.planFor(ctx, orgID)
	if err != nil {
		return false, err
	}
	return plan.AIInsights, nil
}

// planFor resolves the organization's effective plan. Organizations without
// a stored subscription run on Starter limits until provisioning completes.
func (s *QuotaService) planFor(ctx context.Context, orgID uuid.UUID) (billing.Plan, error) {
	sub, err := s.subscriptionRepo.FindByTenant(ctx, orgID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return billing.PlanByCode(billing.PlanStarter)
		}
		s.logger.Error("Failed to load subscription", zap.Error(err), zap.String("org_id", orgID.String()))
		return billing.Plan{}, shared.NewDomainError("INTERNAL_ERROR", "Failed to load subscription")
	}
	if !sub.IsUsable() {
		return billing.Plan{}, shared.NewDomainError("SUBSCRIPTION_CANCELED", "Subscription has been canceled")
	}
	return sub.Plan(), nil
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}
