package billing

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/truthsource/backend/internal/domain/billing"
	"github.com/truthsource/backend/internal/domain/identity"
	"github.com/truthsource/backend/internal/domain/shared"
)

type subscriptionFixture struct {
	svc          *SubscriptionService
	subs         *MockSubscriptionRepository
	usage        *MockUsageRepository
	products     *MockProductCounter
	integrations *MockIntegrationCounter
	gateway      *MockStripeGateway
	orgID        uuid.UUID
}

func newSubscriptionFixture(t *testing.T) *subscriptionFixture {
	t.Helper()
	f := &subscriptionFixture{
		subs:         new(MockSubscriptionRepository),
		usage:        new(MockUsageRepository),
		products:     new(MockProductCounter),
		integrations: new(MockIntegrationCounter),
		gateway:      new(MockStripeGateway),
		orgID:        uuid.New(),
	}
	f.svc = NewSubscriptionService(f.subs, f.usage, f.products, f.integrations, f.gateway, zap.NewNop())
	return f
}

func TestGetSubscription(t *testing.T) {
	ctx := context.Background()

	t.Run("returns plan limits with usage meters", func(t *testing.T) {
		f := newSubscriptionFixture(t)
		sub := subscriptionOn(t, f.orgID, billing.PlanStarter)

		f.subs.On("FindByTenant", ctx, f.orgID).Return(sub, nil)
		f.products.On("CountForTenant", ctx, f.orgID, shared.Filter{}).Return(int64(250), nil)
		f.integrations.On("CountForTenant", ctx, f.orgID).Return(int64(1), nil)
		f.usage.On("CountSyncJobsSince", ctx, f.orgID, mock.Anything).Return(int64(100), nil)

		info, err := f.svc.Get(ctx, f.orgID)
		require.NoError(t, err)
		assert.Equal(t, billing.PlanStarter, info.Plan.Code)
		assert.Equal(t, billing.SubscriptionTrialing, info.Status)
		require.Len(t, info.Usage, 3)

		products := info.Usage[0]
		assert.Equal(t, "products", products.Resource)
		assert.Equal(t, int64(250), products.Used)
		assert.Equal(t, int64(1000), products.Limit)
		assert.InDelta(t, 25.0, products.UsedPct, 1e-9)
		assert.Equal(t, int64(750), products.Remaining)

		syncs := info.Usage[2]
		assert.Equal(t, "sync_jobs", syncs.Resource)
		assert.InDelta(t, 20.0, syncs.UsedPct, 1e-9)
	})

	t.Run("scale plan reports unlimited meters", func(t *testing.T) {
		f := newSubscriptionFixture(t)
		sub := subscriptionOn(t, f.orgID, billing.PlanScale)

		f.subs.On("FindByTenant", ctx, f.orgID).Return(sub, nil)
		f.products.On("CountForTenant", ctx, f.orgID, shared.Filter{}).Return(int64(50000), nil)
		f.integrations.On("CountForTenant", ctx, f.orgID).Return(int64(9), nil)
		f.usage.On("CountSyncJobsSince", ctx, f.orgID, mock.Anything).Return(int64(9000), nil)

		info, err := f.svc.Get(ctx, f.orgID)
		require.NoError(t, err)
		for _, u := range info.Usage {
			assert.Equal(t, int64(billing.Unlimited), u.Limit)
			assert.Zero(t, u.UsedPct)
			assert.Equal(t, int64(billing.Unlimited), u.Remaining)
		}
	})

	t.Run("unknown organization", func(t *testing.T) {
		f := newSubscriptionFixture(t)
		f.subs.On("FindByTenant", ctx, f.orgID).Return(nil, shared.ErrNotFound)

		_, err := f.svc.Get(ctx, f.orgID)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "SUBSCRIPTION_NOT_FOUND", domainErr.Code)
	})
}

func TestChangePlan(t *testing.T) {
	ctx := context.Background()

	t.Run("updates Stripe before the local record", func(t *testing.T) {
		f := newSubscriptionFixture(t)
		sub := subscriptionOn(t, f.orgID, billing.PlanStarter)
		require.NoError(t, sub.ApplyStripeUpdate("sub_42", billing.SubscriptionActive, nil))

		f.subs.On("FindByTenant", ctx, f.orgID).Return(sub, nil)
		f.gateway.On("ChangePlan", ctx, "sub_42", billing.PlanGrowth).Return(nil)
		f.subs.On("Save", ctx, sub).Return(nil)

		require.NoError(t, f.svc.ChangePlan(ctx, f.orgID, billing.PlanGrowth))
		assert.Equal(t, billing.PlanGrowth, sub.PlanCode)
		f.gateway.AssertExpectations(t)
	})

	t.Run("a Stripe failure leaves the plan untouched", func(t *testing.T) {
		f := newSubscriptionFixture(t)
		sub := subscriptionOn(t, f.orgID, billing.PlanStarter)
		require.NoError(t, sub.ApplyStripeUpdate("sub_42", billing.SubscriptionActive, nil))

		f.subs.On("FindByTenant", ctx, f.orgID).Return(sub, nil)
		f.gateway.On("ChangePlan", ctx, "sub_42", billing.PlanScale).Return(assert.AnError)

		err := f.svc.ChangePlan(ctx, f.orgID, billing.PlanScale)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "BILLING_UNAVAILABLE", domainErr.Code)
		assert.Equal(t, billing.PlanStarter, sub.PlanCode)
		f.subs.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("same plan is a no-op", func(t *testing.T) {
		f := newSubscriptionFixture(t)
		sub := subscriptionOn(t, f.orgID, billing.PlanGrowth)
		f.subs.On("FindByTenant", ctx, f.orgID).Return(sub, nil)

		require.NoError(t, f.svc.ChangePlan(ctx, f.orgID, billing.PlanGrowth))
		f.gateway.AssertNotCalled(t, "ChangePlan", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown plan is rejected", func(t *testing.T) {
		f := newSubscriptionFixture(t)

		err := f.svc.ChangePlan(ctx, f.orgID, billing.PlanCode("enterprise"))
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "UNKNOWN_PLAN", domainErr.Code)
	})
}

func TestCancelSubscription(t *testing.T) {
	ctx := context.Background()

	f := newSubscriptionFixture(t)
	sub := subscriptionOn(t, f.orgID, billing.PlanGrowth)
	require.NoError(t, sub.ApplyStripeUpdate("sub_42", billing.SubscriptionActive, nil))

	f.subs.On("FindByTenant", ctx, f.orgID).Return(sub, nil)
	f.gateway.On("CancelSubscription", ctx, "sub_42").Return(nil)
	f.subs.On("Save", ctx, sub).Return(nil)

	require.NoError(t, f.svc.Cancel(ctx, f.orgID))
	assert.Equal(t, billing.SubscriptionCanceled, sub.Status)

	// second cancel is a no-op
	require.NoError(t, f.svc.Cancel(ctx, f.orgID))
	f.gateway.AssertNumberOfCalls(t, "CancelSubscription", 1)
}

func TestHostedSessions(t *testing.T) {
	ctx := context.Background()

	t.Run("checkout session URL comes from the gateway", func(t *testing.T) {
		f := newSubscriptionFixture(t)
		sub := subscriptionOn(t, f.orgID, billing.PlanStarter)

		f.subs.On("FindByTenant", ctx, f.orgID).Return(sub, nil)
		f.gateway.On("CreateCheckoutSession", ctx, "cus_123", billing.PlanGrowth).
			Return("https://checkout.stripe.com/c/pay_123", nil)

		url, err := f.svc.CreateCheckoutSession(ctx, f.orgID, billing.PlanGrowth)
		require.NoError(t, err)
		assert.Equal(t, "https://checkout.stripe.com/c/pay_123", url)
	})

	t.Run("unknown plan is rejected before calling Stripe", func(t *testing.T) {
		f := newSubscriptionFixture(t)

		_, err := f.svc.CreateCheckoutSession(ctx, f.orgID, billing.PlanCode("enterprise"))
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "UNKNOWN_PLAN", domainErr.Code)
		f.gateway.AssertNotCalled(t, "CreateCheckoutSession", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("portal session URL comes from the gateway", func(t *testing.T) {
		f := newSubscriptionFixture(t)
		sub := subscriptionOn(t, f.orgID, billing.PlanGrowth)

		f.subs.On("FindByTenant", ctx, f.orgID).Return(sub, nil)
		f.gateway.On("CreatePortalSession", ctx, "cus_123").
			Return("https://billing.stripe.com/p/session_123", nil)

		url, err := f.svc.CreatePortalSession(ctx, f.orgID)
		require.NoError(t, err)
		assert.Equal(t, "https://billing.stripe.com/p/session_123", url)
	})

	t.Run("a gateway failure maps to a billing error", func(t *testing.T) {
		f := newSubscriptionFixture(t)
		sub := subscriptionOn(t, f.orgID, billing.PlanGrowth)

		f.subs.On("FindByTenant", ctx, f.orgID).Return(sub, nil)
		f.gateway.On("CreatePortalSession", ctx, "cus_123").Return("", assert.AnError)

		_, err := f.svc.CreatePortalSession(ctx, f.orgID)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "BILLING_UNAVAILABLE", domainErr.Code)
	})
}

func TestProvisioningHandler(t *testing.T) {
	ctx := context.Background()
	orgID := uuid.New()

	registered := &identity.OrganizationRegisteredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(identity.EventTypeOrganizationRegistered,
			identity.AggregateTypeOrganization, orgID, orgID),
		OrganizationID: orgID,
		Slug:           "acme",
		Name:           "Acme Wholesale",
		PlanCode:       "growth",
	}

	t.Run("creates customer and subscription on registration", func(t *testing.T) {
		subs := new(MockSubscriptionRepository)
		gateway := new(MockStripeGateway)
		h := NewProvisioningHandler(subs, gateway, zap.NewNop())

		subs.On("FindByTenant", ctx, orgID).Return(nil, shared.ErrNotFound)
		gateway.On("CreateCustomer", ctx, orgID, "Acme Wholesale", "acme").Return("cus_new", nil)
		gateway.On("CreateSubscription", ctx, "cus_new", billing.PlanGrowth).Return("sub_new", nil)
		subs.On("Save", ctx, mock.MatchedBy(func(sub *billing.Subscription) bool {
			return sub.TenantID == orgID &&
				sub.PlanCode == billing.PlanGrowth &&
				sub.StripeCustomerID == "cus_new" &&
				sub.StripeSubscriptionID == "sub_new" &&
				sub.Status == billing.SubscriptionTrialing
		})).Return(nil)

		require.NoError(t, h.Handle(ctx, registered))
		gateway.AssertExpectations(t)
		subs.AssertExpectations(t)
	})

	t.Run("a redelivered event does not create a second customer", func(t *testing.T) {
		subs := new(MockSubscriptionRepository)
		gateway := new(MockStripeGateway)
		h := NewProvisioningHandler(subs, gateway, zap.NewNop())

		subs.On("FindByTenant", ctx, orgID).Return(subscriptionOn(t, orgID, billing.PlanGrowth), nil)

		require.NoError(t, h.Handle(ctx, registered))
		gateway.AssertNotCalled(t, "CreateCustomer", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("a Stripe subscription failure still stores the trial", func(t *testing.T) {
		subs := new(MockSubscriptionRepository)
		gateway := new(MockStripeGateway)
		h := NewProvisioningHandler(subs, gateway, zap.NewNop())

		subs.On("FindByTenant", ctx, orgID).Return(nil, shared.ErrNotFound)
		gateway.On("CreateCustomer", ctx, orgID, "Acme Wholesale", "acme").Return("cus_new", nil)
		gateway.On("CreateSubscription", ctx, "cus_new", billing.PlanGrowth).Return("", assert.AnError)
		subs.On("Save", ctx, mock.MatchedBy(func(sub *billing.Subscription) bool {
			return sub.StripeSubscriptionID == "" && sub.Status == billing.SubscriptionTrialing
		})).Return(nil)

		require.NoError(t, h.Handle(ctx, registered))
	})

	t.Run("subscribes to organization registrations", func(t *testing.T) {
		h := NewProvisioningHandler(new(MockSubscriptionRepository), new(MockStripeGateway), zap.NewNop())
		assert.Equal(t, []string{identity.EventTypeOrganizationRegistered}, h.EventTypes())
	})
}
