package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/truthsource/backend/internal/domain/billing"
	"github.com/truthsource/backend/internal/domain/shared"
)

type MockSubscriptionRepository struct {
	mock.Mock
}

func (m *MockSubscriptionRepository) FindByTenant(ctx context.Context, tenantID uuid.UUID) (*billing.Subscription, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepository) FindByStripeCustomer(ctx context.Context, stripeCustomerID string) (*billing.Subscription, error) {
	args := m.Called(ctx, stripeCustomerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepository) Save(ctx context.Context, sub *billing.Subscription) error {
	args := m.Called(ctx, sub)
	return args.Error(0)
}

type MockUsageRepository struct {
	mock.Mock
}

func (m *MockUsageRepository) CountSyncJobsSince(ctx context.Context, tenantID uuid.UUID, since time.Time) (int64, error) {
	args := m.Called(ctx, tenantID, since)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockUsageRepository) CountWebhookEventsSince(ctx context.Context, tenantID uuid.UUID, since time.Time) (int64, error) {
	args := m.Called(ctx, tenantID, since)
	return args.Get(0).(int64), args.Error(1)
}

type MockProductCounter struct {
	mock.Mock
}

func (m *MockProductCounter) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).(int64), args.Error(1)
}

type MockIntegrationCounter struct {
	mock.Mock
}

func (m *MockIntegrationCounter) CountForTenant(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).(int64), args.Error(1)
}

type MockStripeGateway struct {
	mock.Mock
}

func (m *MockStripeGateway) CreateCustomer(ctx context.Context, orgID uuid.UUID, name, slug string) (string, error) {
	args := m.Called(ctx, orgID, name, slug)
	return args.String(0), args.Error(1)
}

func (m *MockStripeGateway) CreateSubscription(ctx context.Context, customerID string, plan billing.PlanCode) (string, error) {
	args := m.Called(ctx, customerID, plan)
	return args.String(0), args.Error(1)
}

func (m *MockStripeGateway) ChangePlan(ctx context.Context, subscriptionID string, plan billing.PlanCode) error {
	args := m.Called(ctx, subscriptionID, plan)
	return args.Error(0)
}

func (m *MockStripeGateway) CancelSubscription(ctx context.Context, subscriptionID string) error {
	args := m.Called(ctx, subscriptionID)
	return args.Error(0)
}

func (m *MockStripeGateway) CreateCheckoutSession(ctx context.Context, customerID string, plan billing.PlanCode) (string, error) {
	args := m.Called(ctx, customerID, plan)
	return args.String(0), args.Error(1)
}

func (m *MockStripeGateway) CreatePortalSession(ctx context.Context, customerID string) (string, error) {
	args := m.Called(ctx, customerID)
	return args.String(0), args.Error(1)
}
