package billing

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/truthsource/backend/internal/domain/billing"
	"github.com/truthsource/backend/internal/domain/identity"
	"github.com/truthsource/backend/internal/domain/shared"
)

// StripeGateway is the outbound port to Stripe. The infrastructure adapter
// owns API keys and price IDs.
type StripeGateway interface {
	// CreateCustomer creates a Stripe customer for a new organization
	CreateCustomer(ctx context.Context, orgID uuid.UUID, name, slug string) (string, error)
	// CreateSubscription starts a subscription on the plan's price
	CreateSubscription(ctx context.Context, customerID string, plan billing.PlanCode) (string, error)
	// ChangePlan moves an existing subscription to another plan's price
	ChangePlan(ctx context.Context, subscriptionID string, plan billing.PlanCode) error
	// CancelSubscription cancels at period end
	CancelSubscription(ctx context.Context, subscriptionID string) error
	// CreateCheckoutSession returns the URL of a hosted checkout page
	CreateCheckoutSession(ctx context.Context, customerID string, plan billing.PlanCode) (string, error)
	// CreatePortalSession returns the URL of a hosted billing portal session
	CreatePortalSession(ctx context.Context, customerID string) (string, error)
}

// SubscriptionService manages an organization's billing state
type SubscriptionService struct {
	subscriptionRepo billing.SubscriptionRepository
	usageRepo        billing.UsageRepository
	products         ProductCounter
	integrations     IntegrationCounter
	gateway          StripeGateway
	eventPublisher   shared.EventPublisher
	logger           *zap.Logger
}

// NewSubscriptionService creates a new subscription service
func NewSubscriptionService(
	subscriptionRepo billing.SubscriptionRepository,
	usageRepo billing.UsageRepository,
	products ProductCounter,
	integrations IntegrationCounter,
	gateway StripeGateway,
	logger *zap.Logger,
) *SubscriptionService {
	return &SubscriptionService{
		subscriptionRepo: subscriptionRepo,
		usageRepo:        usageRepo,
		products:         products,
		integrations:     integrations,
		gateway:          gateway,
		logger:           logger,
	}
}

// SetEventPublisher sets the event publisher for the service
func (s *SubscriptionService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Plans returns the offered tiers
func (s *SubscriptionService) Plans() []PlanInfo {
	codes := []billing.PlanCode{billing.PlanStarter, billing.PlanGrowth, billing.PlanScale}
	infos := make([]PlanInfo, 0, len(codes))
	for _, code := range codes {
		p, err := billing.PlanByCode(code)
		if err != nil {
			continue
		}
		infos = append(infos, toPlanInfo(p))
	}
	return infos
}

// Get returns the organization's subscription with current usage meters
func (s *SubscriptionService) Get(ctx context.Context, orgID uuid.UUID) (*SubscriptionInfo, error) {
	sub, err := s.find(ctx, orgID)
	if err != nil {
		return nil, err
	}
	plan := sub.Plan()

	info := &SubscriptionInfo{
		Plan:             toPlanInfo(plan),
		Status:           sub.Status,
		CurrentPeriodEnd: sub.CurrentPeriodEnd,
	}

	productCount, err := s.products.CountForTenant(ctx, orgID, shared.Filter{})
	if err != nil {
		s.logger.Error("Failed to count products for usage", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to measure usage")
	}
	integrationCount, err := s.integrations.CountForTenant(ctx, orgID)
	if err != nil {
		s.logger.Error("Failed to count integrations for usage", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to measure usage")
	}

	syncMeter := billing.NewUsageMeterForMonth(orgID, billing.UsageSyncJobs, time.Now())
	syncCount, err := s.usageRepo.CountSyncJobsSince(ctx, orgID, syncMeter.PeriodStart)
	if err != nil {
		s.logger.Error("Failed to count sync jobs for usage", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to measure usage")
	}
	syncMeter.WithUsage(syncCount).WithQuota(plan.MaxSyncsPerMo)

	info.Usage = []UsageInfo{
		usageOf("products", productCount, plan.MaxProducts),
		usageOf("integrations", integrationCount, plan.MaxIntegrations),
		{
			Resource:  string(billing.UsageSyncJobs),
			Used:      syncMeter.TotalUsage,
			Limit:     syncMeter.QuotaLimit,
			UsedPct:   syncMeter.QuotaUsed,
			Remaining: syncMeter.Remaining(),
		},
	}
	return info, nil
}

// ChangePlan moves the organization to another tier, in Stripe first
func (s *SubscriptionService) ChangePlan(ctx context.Context, orgID uuid.UUID, planCode billing.PlanCode) error {
	if !planCode.IsValid() {
		return shared.NewDomainError("UNKNOWN_PLAN", "Unknown plan code")
	}
	sub, err := s.find(ctx, orgID)
	if err != nil {
		return err
	}
	if sub.PlanCode == planCode {
		return nil
	}

	if sub.StripeSubscriptionID != "" {
		if err := s.gateway.ChangePlan(ctx, sub.StripeSubscriptionID, planCode); err != nil {
			s.logger.Error("Stripe plan change failed", zap.Error(err), zap.String("org_id", orgID.String()))
			return shared.NewDomainError("BILLING_UNAVAILABLE", "Plan change failed, try again later")
		}
	}

	if err := sub.ChangePlan(planCode); err != nil {
		return err
	}
	if err := s.subscriptionRepo.Save(ctx, sub); err != nil {
		s.logger.Error("Failed to save subscription", zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to save subscription")
	}

	s.publish(ctx, billing.NewSubscriptionChangedEvent(sub))
	s.logger.Info("Plan changed",
		zap.String("org_id", orgID.String()),
		zap.String("plan", string(planCode)))
	return nil
}

// Cancel cancels the subscription at period end
func (s *SubscriptionService) Cancel(ctx context.Context, orgID uuid.UUID) error {
	sub, err := s.find(ctx, orgID)
	if err != nil {
		return err
	}
	if sub.Status == billing.SubscriptionCanceled {
		return nil
	}

	if sub.StripeSubscriptionID != "" {
		if err := s.gateway.CancelSubscription(ctx, sub.StripeSubscriptionID); err != nil {
			s.logger.Error("Stripe cancellation failed", zap.Error(err), zap.String("org_id", orgID.String()))
			return shared.NewDomainError("BILLING_UNAVAILABLE", "Cancellation failed, try again later")
		}
	}

	if err := sub.ApplyStripeUpdate("", billing.SubscriptionCanceled, sub.CurrentPeriodEnd); err != nil {
		return err
	}
	if err := s.subscriptionRepo.Save(ctx, sub); err != nil {
		s.logger.Error("Failed to save subscription", zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to save subscription")
	}

	s.publish(ctx, billing.NewSubscriptionChangedEvent(sub))
	return nil
}

// CreateCheckoutSession returns a hosted checkout URL for moving the
// organization onto a paid plan
func (s *SubscriptionService) CreateCheckoutSession(ctx context.Context, orgID uuid.UUID, planCode billing.PlanCode) (string, error) {
	if !planCode.IsValid() {
		return "", shared.NewDomainError("UNKNOWN_PLAN", "Unknown plan code")
	}
	if s.gateway == nil {
		return "", shared.NewDomainError("BILLING_UNAVAILABLE", "Billing is not enabled")
	}
	sub, err := s.find(ctx, orgID)
	if err != nil {
		return "", err
	}
	if sub.StripeCustomerID == "" {
		return "", shared.NewDomainError("BILLING_UNAVAILABLE", "No billing account for this organization")
	}

	url, err := s.gateway.CreateCheckoutSession(ctx, sub.StripeCustomerID, planCode)
	if err != nil {
		s.logger.Error("Stripe checkout session failed", zap.Error(err), zap.String("org_id", orgID.String()))
		return "", shared.NewDomainError("BILLING_UNAVAILABLE", "Checkout is unavailable, try again later")
	}
	return url, nil
}

// CreatePortalSession returns a hosted billing portal URL
func (s *SubscriptionService) CreatePortalSession(ctx context.Context, orgID uuid.UUID) (string, error) {
	if s.gateway == nil {
		return "", shared.NewDomainError("BILLING_UNAVAILABLE", "Billing is not enabled")
	}
	sub, err := s.find(ctx, orgID)
	if err != nil {
		return "", err
	}
	if sub.StripeCustomerID == "" {
		return "", shared.NewDomainError("BILLING_UNAVAILABLE", "No billing account for this organization")
	}

	url, err := s.gateway.CreatePortalSession(ctx, sub.StripeCustomerID)
	if err != nil {
		s.logger.Error("Stripe portal session failed", zap.Error(err), zap.String("org_id", orgID.String()))
		return "", shared.NewDomainError("BILLING_UNAVAILABLE", "Billing portal is unavailable, try again later")
	}
	return url, nil
}

func (s *SubscriptionService) find(ctx context.Context, orgID uuid.UUID) (*billing.Subscription, error) {
	sub, err := s.subscriptionRepo.FindByTenant(ctx, orgID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("SUBSCRIPTION_NOT_FOUND", "No subscription for this organization")
		}
		s.logger.Error("Failed to load subscription", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to load subscription")
	}
	return sub, nil
}

func (s *SubscriptionService) publish(ctx context.Context, events ...shared.DomainEvent) {
	if s.eventPublisher == nil {
		return
	}
	_ = s.eventPublisher.Publish(ctx, events...)
}

func usageOf(resource string, used, limit int64) UsageInfo {
	u := UsageInfo{Resource: resource, Used: used, Limit: limit, Remaining: billing.Unlimited}
	if limit != billing.Unlimited {
		u.UsedPct = float64(used) / float64(limit) * 100
		u.Remaining = limit - used
		if u.Remaining < 0 {
			u.Remaining = 0
		}
	}
	return u
}

// ProvisioningHandler creates the Stripe customer and trial subscription
// when a new organization registers
type ProvisioningHandler struct {
	subscriptionRepo billing.SubscriptionRepository
	gateway          StripeGateway
	eventPublisher   shared.EventPublisher
	logger           *zap.Logger
}

// NewProvisioningHandler creates a new provisioning handler
func NewProvisioningHandler(subscriptionRepo billing.SubscriptionRepository, gateway StripeGateway, logger *zap.Logger) *ProvisioningHandler {
	return &ProvisioningHandler{
		subscriptionRepo: subscriptionRepo,
		gateway:          gateway,
		logger:           logger,
	}
}

// SetEventPublisher sets the event publisher for the handler
func (h *ProvisioningHandler) SetEventPublisher(publisher shared.EventPublisher) {
	h.eventPublisher = publisher
}

// EventTypes returns the event types the handler subscribes to
func (h *ProvisioningHandler) EventTypes() []string {
	return []string{identity.EventTypeOrganizationRegistered}
}

// Handle processes a domain event
func (h *ProvisioningHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	registered, ok := event.(*identity.OrganizationRegisteredEvent)
	if !ok {
		return nil
	}

	// retried deliveries must not create a second customer
	if _, err := h.subscriptionRepo.FindByTenant(ctx, registered.OrganizationID); err == nil {
		return nil
	} else if !errors.Is(err, shared.ErrNotFound) {
		return err
	}

	planCode := billing.PlanCode(registered.PlanCode)
	if !planCode.IsValid() {
		planCode = billing.PlanStarter
	}

	customerID, err := h.gateway.CreateCustomer(ctx, registered.OrganizationID, registered.Name, registered.Slug)
	if err != nil {
		h.logger.Error("Failed to create Stripe customer",
			zap.Error(err), zap.String("org_id", registered.OrganizationID.String()))
		return err
	}

	sub, err := billing.NewSubscription(registered.OrganizationID, planCode, customerID)
	if err != nil {
		return err
	}

	stripeSubID, err := h.gateway.CreateSubscription(ctx, customerID, planCode)
	if err != nil {
		// keep the trialing record; the reconciler retries Stripe later
		h.logger.Warn("Failed to create Stripe subscription, organization stays on trial",
			zap.Error(err), zap.String("org_id", registered.OrganizationID.String()))
	} else {
		sub.StripeSubscriptionID = stripeSubID
	}

	if err := h.subscriptionRepo.Save(ctx, sub); err != nil {
		h.logger.Error("Failed to save subscription", zap.Error(err))
		return err
	}

	h.publish(ctx, billing.NewSubscriptionProvisionedEvent(sub))
	h.logger.Info("Subscription provisioned",
		zap.String("org_id", registered.OrganizationID.String()),
		zap.String("plan", string(planCode)))
	return nil
}

func (h *ProvisioningHandler) publish(ctx context.Context, events ...shared.DomainEvent) {
	if h.eventPublisher == nil {
		return
	}
	_ = h.eventPublisher.Publish(ctx, events...)
}
