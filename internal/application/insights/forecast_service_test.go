package insights

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/truthsource/backend/internal/domain/catalog"
	"github.com/truthsource/backend/internal/domain/insights"
	"github.com/truthsource/backend/internal/domain/order"
	"github.com/truthsource/backend/internal/domain/shared"
)

// salesHistory builds one delivered order per day for the given daily
// quantities, ending yesterday.
func salesHistory(orgID, productID uuid.UUID, daily []int64) []order.Order {
	orders := make([]order.Order, 0, len(daily))
	start := time.Now().AddDate(0, 0, -len(daily))
	for i, qty := range daily {
		pid := productID
		o := order.Order{
			TenantAggregateRoot: shared.NewTenantAggregateRoot(orgID),
			Platform:            "shopify",
			ExternalID:          uuid.NewString(),
			Status:              order.StatusDelivered,
			PlacedAt:            start.AddDate(0, 0, i),
			Items: []order.OrderItem{
				{ProductID: &pid, SKU: "WID-1", Quantity: qty},
			},
		}
		orders = append(orders, o)
	}
	return orders
}

func newForecastFixture(t *testing.T) (*ForecastService, *MockForecastRepository, *MockProductReader, *MockOrderHistory, *catalog.Product, uuid.UUID) {
	t.Helper()
	forecastRepo := new(MockForecastRepository)
	products := new(MockProductReader)
	orders := new(MockOrderHistory)
	orgID := uuid.New()

	product, err := catalog.NewProduct(orgID, "WID-1", "Widget", decimal.NewFromInt(20))
	require.NoError(t, err)
	product.ClearDomainEvents()

	svc := NewForecastService(forecastRepo, products, orders, zap.NewNop())
	return svc, forecastRepo, products, orders, product, orgID
}

func TestGenerateForecast(t *testing.T) {
	ctx := context.Background()

	t.Run("rising demand produces an increasing trend", func(t *testing.T) {
		svc, forecastRepo, products, orders, product, orgID := newForecastFixture(t)

		daily := make([]int64, 60)
		for i := range daily {
			daily[i] = int64(1 + i/4) // climbs from 1 to ~15
		}

		products.On("FindByIDForTenant", ctx, orgID, product.ID).Return(product, nil)
		orders.On("FindPlacedBetween", ctx, orgID, mock.Anything, mock.Anything).
			Return(salesHistory(orgID, product.ID, daily), nil)
		forecastRepo.On("Save", ctx, mock.AnythingOfType("*insights.Forecast")).Return(nil)
		forecastRepo.On("DeleteOlderThan", ctx, orgID, keepForecastsPerProduct).Return(nil)

		info, err := svc.Generate(ctx, GenerateForecastInput{
			OrgID:       orgID,
			ProductID:   product.ID,
			HorizonDays: 30,
		})
		require.NoError(t, err)
		assert.Equal(t, insights.TrendIncreasing, info.Trend)
		assert.Len(t, info.Predictions, 30)
		assert.Greater(t, info.TotalPredicted, 0.0)
		assert.GreaterOrEqual(t, info.DataPoints, 60)
		// blended: moving average + regression + exponential smoothing
		assert.GreaterOrEqual(t, info.ModelsUsed, 3)
		assert.InDelta(t, insights.ModelConfidence(info.DataPoints, info.ModelsUsed), info.Confidence, 1e-9)
	})

	t.Run("flat demand is stable and never predicts negative", func(t *testing.T) {
		svc, forecastRepo, products, orders, product, orgID := newForecastFixture(t)

		daily := make([]int64, 30)
		for i := range daily {
			daily[i] = 5
		}

		products.On("FindByIDForTenant", ctx, orgID, product.ID).Return(product, nil)
		orders.On("FindPlacedBetween", ctx, orgID, mock.Anything, mock.Anything).
			Return(salesHistory(orgID, product.ID, daily), nil)
		forecastRepo.On("Save", ctx, mock.AnythingOfType("*insights.Forecast")).Return(nil)
		forecastRepo.On("DeleteOlderThan", ctx, orgID, keepForecastsPerProduct).Return(nil)

		info, err := svc.Generate(ctx, GenerateForecastInput{OrgID: orgID, ProductID: product.ID})
		require.NoError(t, err)
		assert.Equal(t, insights.TrendStable, info.Trend)
		assert.Len(t, info.Predictions, insights.DefaultForecastDays)
		for _, p := range info.Predictions {
			assert.GreaterOrEqual(t, p.Quantity, 0.0)
		}
	})

	t.Run("no sales history is rejected", func(t *testing.T) {
		svc, _, products, orders, product, orgID := newForecastFixture(t)

		products.On("FindByIDForTenant", ctx, orgID, product.ID).Return(product, nil)
		orders.On("FindPlacedBetween", ctx, orgID, mock.Anything, mock.Anything).
			Return([]order.Order{}, nil)

		_, err := svc.Generate(ctx, GenerateForecastInput{OrgID: orgID, ProductID: product.ID})
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INSUFFICIENT_DATA", domainErr.Code)
	})

	t.Run("cancelled orders do not count as demand", func(t *testing.T) {
		svc, _, products, orders, product, orgID := newForecastFixture(t)

		history := salesHistory(orgID, product.ID, []int64{3, 4, 5})
		for i := range history {
			history[i].Status = order.StatusCancelled
		}

		products.On("FindByIDForTenant", ctx, orgID, product.ID).Return(product, nil)
		orders.On("FindPlacedBetween", ctx, orgID, mock.Anything, mock.Anything).Return(history, nil)

		_, err := svc.Generate(ctx, GenerateForecastInput{OrgID: orgID, ProductID: product.ID})
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INSUFFICIENT_DATA", domainErr.Code)
	})

	t.Run("horizon outside bounds is rejected", func(t *testing.T) {
		svc, _, _, _, product, orgID := newForecastFixture(t)

		_, err := svc.Generate(ctx, GenerateForecastInput{
			OrgID:       orgID,
			ProductID:   product.ID,
			HorizonDays: 1000,
		})
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_HORIZON", domainErr.Code)
	})

	t.Run("narrator failure does not break generation", func(t *testing.T) {
		svc, forecastRepo, products, orders, product, orgID := newForecastFixture(t)
		svc.SetNarrator(stubNarrator{err: context.DeadlineExceeded})

		daily := make([]int64, 20)
		for i := range daily {
			daily[i] = 2
		}

		products.On("FindByIDForTenant", ctx, orgID, product.ID).Return(product, nil)
		orders.On("FindPlacedBetween", ctx, orgID, mock.Anything, mock.Anything).
			Return(salesHistory(orgID, product.ID, daily), nil)
		forecastRepo.On("Save", ctx, mock.Anything).Return(nil)
		forecastRepo.On("DeleteOlderThan", ctx, orgID, keepForecastsPerProduct).Return(nil)

		info, err := svc.Generate(ctx, GenerateForecastInput{OrgID: orgID, ProductID: product.ID})
		require.NoError(t, err)
		assert.Empty(t, info.Summary)
	})
}

func TestForecastMath(t *testing.T) {
	t.Run("moving average uses the last window", func(t *testing.T) {
		assert.InDelta(t, 8.0, movingAverage([]float64{1, 1, 1, 7, 8, 9}, 3), 1e-9)
		assert.InDelta(t, 2.0, movingAverage([]float64{2, 2}, 7), 1e-9)
		assert.Zero(t, movingAverage(nil, 7))
	})

	t.Run("regression recovers a linear series", func(t *testing.T) {
		series := []float64{1, 3, 5, 7, 9}
		slope, intercept := linearRegression(series)
		assert.InDelta(t, 2.0, slope, 1e-9)
		assert.InDelta(t, 1.0, intercept, 1e-9)
	})

	t.Run("exponential smoothing weights recent observations", func(t *testing.T) {
		// level walks 10 -> 10 -> 10 -> 0.3*20 + 0.7*10 = 13
		assert.InDelta(t, 13.0, exponentialSmoothing([]float64{10, 10, 10, 20}, 0.3), 1e-9)
		assert.InDelta(t, 4.0, exponentialSmoothing([]float64{4}, 0.3), 1e-9)
		assert.Zero(t, exponentialSmoothing(nil, 0.3))
	})

	t.Run("long series average all three models", func(t *testing.T) {
		series := []float64{2, 4, 6, 8, 10}
		ma := movingAverage(series, len(series))
		slope, intercept := linearRegression(series)
		smoothed := exponentialSmoothing(series, smoothingAlpha)
		projected := intercept + slope*float64(len(series))

		expected := (ma + projected + smoothed) / 3
		assert.InDelta(t, (6.0+12.0+smoothed)/3, expected, 1e-9)
		assert.Greater(t, math.Abs((ma+projected)/2-expected), 0.01)
	})

	t.Run("seasonal factors need at least a week per month", func(t *testing.T) {
		monthly := map[time.Month][]float64{
			time.June: {10, 10, 10, 10, 10, 10, 10},
			time.July: {2, 2}, // too short
		}
		factors := seasonalFactors(monthly, 5)
		require.Len(t, factors, 1)
		assert.Equal(t, time.June, factors[0].Month)
		assert.InDelta(t, 2.0, factors[0].Factor, 1e-9)
	})
}
