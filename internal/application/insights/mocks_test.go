package insights

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/truthsource/backend/internal/domain/catalog"
	"github.com/truthsource/backend/internal/domain/insights"
	"github.com/truthsource/backend/internal/domain/inventory"
	"github.com/truthsource/backend/internal/domain/order"
	"github.com/truthsource/backend/internal/domain/pricing"
	"github.com/truthsource/backend/internal/domain/shared"
)

type MockForecastRepository struct {
	mock.Mock
}

func (m *MockForecastRepository) FindLatestForProduct(ctx context.Context, tenantID, productID uuid.UUID) (*insights.Forecast, error) {
	args := m.Called(ctx, tenantID, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*insights.Forecast), args.Error(1)
}

func (m *MockForecastRepository) Save(ctx context.Context, forecast *insights.Forecast) error {
	args := m.Called(ctx, forecast)
	return args.Error(0)
}

func (m *MockForecastRepository) DeleteOlderThan(ctx context.Context, tenantID uuid.UUID, keepPerProduct int) error {
	args := m.Called(ctx, tenantID, keepPerProduct)
	return args.Error(0)
}

type MockAnomalyRepository struct {
	mock.Mock
}

func (m *MockAnomalyRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*insights.Anomaly, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*insights.Anomaly), args.Error(1)
}

func (m *MockAnomalyRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, severity *insights.Severity, status *insights.AnomalyStatus, filter shared.Filter) ([]insights.Anomaly, error) {
	args := m.Called(ctx, tenantID, severity, status, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]insights.Anomaly), args.Error(1)
}

func (m *MockAnomalyRepository) CountOpenForTenant(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAnomalyRepository) SaveBatch(ctx context.Context, anomalies []*insights.Anomaly) error {
	args := m.Called(ctx, anomalies)
	return args.Error(0)
}

func (m *MockAnomalyRepository) Save(ctx context.Context, anomaly *insights.Anomaly) error {
	args := m.Called(ctx, anomaly)
	return args.Error(0)
}

type MockProductReader struct {
	mock.Mock
}

func (m *MockProductReader) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*catalog.Product, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

type MockOrderHistory struct {
	mock.Mock
}

func (m *MockOrderHistory) FindPlacedBetween(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]order.Order, error) {
	args := m.Called(ctx, tenantID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]order.Order), args.Error(1)
}

type MockMovementReader struct {
	mock.Mock
}

func (m *MockMovementReader) FindSince(ctx context.Context, tenantID uuid.UUID, since time.Time) ([]inventory.StockAdjustment, error) {
	args := m.Called(ctx, tenantID, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]inventory.StockAdjustment), args.Error(1)
}

type MockProductLister struct {
	mock.Mock
}

func (m *MockProductLister) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]catalog.Product, error) {
	args := m.Called(ctx, tenantID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.Product), args.Error(1)
}

type MockRuleReader struct {
	mock.Mock
}

func (m *MockRuleReader) FindActiveOrdered(ctx context.Context, tenantID uuid.UUID) ([]pricing.Rule, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]pricing.Rule), args.Error(1)
}

// stubNarrator returns a fixed summary
type stubNarrator struct {
	text string
	err  error
}

func (n stubNarrator) SummarizeForecast(ctx context.Context, productName string, forecast *insights.Forecast) (string, error) {
	return n.text, n.err
}

func (n stubNarrator) SummarizeAnomalies(ctx context.Context, dataType insights.DataType, anomalies []insights.Anomaly) (string, error) {
	return n.text, n.err
}
