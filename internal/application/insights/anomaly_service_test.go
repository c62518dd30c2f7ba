package insights

import (
	"context"
	"fmt"
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
	"github.com/truthsource/backend/internal/domain/inventory"
	"github.com/truthsource/backend/internal/domain/order"
	"github.com/truthsource/backend/internal/domain/pricing"
	"github.com/truthsource/backend/internal/domain/shared"
)

type anomalyFixture struct {
	svc         *AnomalyService
	anomalyRepo *MockAnomalyRepository
	movements   *MockMovementReader
	orders      *MockOrderHistory
	products    *MockProductLister
	rules       *MockRuleReader
	orgID       uuid.UUID
}

func newAnomalyFixture(t *testing.T) *anomalyFixture {
	t.Helper()
	f := &anomalyFixture{
		anomalyRepo: new(MockAnomalyRepository),
		movements:   new(MockMovementReader),
		orders:      new(MockOrderHistory),
		products:    new(MockProductLister),
		rules:       new(MockRuleReader),
		orgID:       uuid.New(),
	}
	f.svc = NewAnomalyService(f.anomalyRepo, f.movements, f.orders, f.products, f.rules, zap.NewNop())
	return f
}

func adjustment(orgID uuid.UUID, delta int64, daysAgo int) inventory.StockAdjustment {
	adj := inventory.StockAdjustment{
		BaseEntity: shared.NewBaseEntity(),
		TenantID:   orgID,
		ProductID:  uuid.New(),
		LocationID: uuid.New(),
		Delta:      delta,
		Reason:     inventory.ReasonManual,
	}
	adj.CreatedAt = time.Now().AddDate(0, 0, -daysAgo)
	return adj
}

func TestDetectInventoryAnomalies(t *testing.T) {
	ctx := context.Background()

	t.Run("a day of outsized net movement is flagged", func(t *testing.T) {
		f := newAnomalyFixture(t)

		// nine days with a net of +10 and one day draining 100
		adjustments := make([]inventory.StockAdjustment, 0, 10)
		for day := 1; day <= 9; day++ {
			adjustments = append(adjustments, adjustment(f.orgID, 10, day))
		}
		adjustments = append(adjustments, adjustment(f.orgID, -100, 15))

		f.movements.On("FindSince", ctx, f.orgID, mock.Anything).Return(adjustments, nil)
		f.anomalyRepo.On("SaveBatch", ctx, mock.MatchedBy(func(found []*insights.Anomaly) bool {
			return len(found) == 1 && found[0].Metric == "daily_net_movement"
		})).Return(nil)

		result, err := f.svc.Detect(ctx, DetectAnomaliesInput{
			OrgID:    f.orgID,
			DataType: insights.DataTypeInventory,
		})
		require.NoError(t, err)
		require.Len(t, result.Anomalies, 1)
		a := result.Anomalies[0]
		assert.Equal(t, "daily_net_movement", a.Metric)
		assert.Equal(t, -100.0, a.ObservedValue)
		assert.Equal(t, insights.SeverityCritical, a.Severity)
		assert.Equal(t, 15*time.Minute, result.NextCheckIn)
	})

	t.Run("a burst of movements is flagged by the count baseline", func(t *testing.T) {
		f := newAnomalyFixture(t)

		// one receipt per day, plus ten offsetting pairs on one day so the
		// net stays flat while the count spikes
		adjustments := make([]inventory.StockAdjustment, 0, 50)
		for day := 0; day < baselineWindowDays; day++ {
			adjustments = append(adjustments, adjustment(f.orgID, 10, day))
		}
		for i := 0; i < 10; i++ {
			adjustments = append(adjustments, adjustment(f.orgID, 10, 10))
			adjustments = append(adjustments, adjustment(f.orgID, -10, 10))
		}

		f.movements.On("FindSince", ctx, f.orgID, mock.Anything).Return(adjustments, nil)
		f.anomalyRepo.On("SaveBatch", ctx, mock.Anything).Return(nil)

		result, err := f.svc.Detect(ctx, DetectAnomaliesInput{
			OrgID:    f.orgID,
			DataType: insights.DataTypeInventory,
		})
		require.NoError(t, err)
		require.Len(t, result.Anomalies, 1)
		assert.Equal(t, "daily_movement_count", result.Anomalies[0].Metric)
		assert.Equal(t, 21.0, result.Anomalies[0].ObservedValue)
	})

	t.Run("too few movements yields no findings", func(t *testing.T) {
		f := newAnomalyFixture(t)

		f.movements.On("FindSince", ctx, f.orgID, mock.Anything).
			Return([]inventory.StockAdjustment{adjustment(f.orgID, 500, 1)}, nil)

		result, err := f.svc.Detect(ctx, DetectAnomaliesInput{
			OrgID:    f.orgID,
			DataType: insights.DataTypeInventory,
		})
		require.NoError(t, err)
		assert.Empty(t, result.Anomalies)
		assert.Equal(t, 4*time.Hour, result.NextCheckIn)
		f.anomalyRepo.AssertNotCalled(t, "SaveBatch", mock.Anything, mock.Anything)
	})

	t.Run("a steady movement each day never alarms", func(t *testing.T) {
		f := newAnomalyFixture(t)

		adjustments := make([]inventory.StockAdjustment, 0, baselineWindowDays)
		for day := 0; day < baselineWindowDays; day++ {
			adjustments = append(adjustments, adjustment(f.orgID, 10, day))
		}
		f.movements.On("FindSince", ctx, f.orgID, mock.Anything).Return(adjustments, nil)

		result, err := f.svc.Detect(ctx, DetectAnomaliesInput{
			OrgID:    f.orgID,
			DataType: insights.DataTypeInventory,
		})
		require.NoError(t, err)
		assert.Empty(t, result.Anomalies)
	})
}

func TestDetectOrderAnomalies(t *testing.T) {
	ctx := context.Background()

	t.Run("an order-volume spike day goes critical", func(t *testing.T) {
		f := newAnomalyFixture(t)

		// one order per day for 30 days plus 19 extra on one day
		from := time.Now().AddDate(0, 0, -baselineWindowDays)
		orders := make([]order.Order, 0, 49)
		for day := 0; day < baselineWindowDays; day++ {
			n := 1
			if day == 15 {
				n = 20
			}
			for i := 0; i < n; i++ {
				orders = append(orders, order.Order{
					TenantAggregateRoot: shared.NewTenantAggregateRoot(f.orgID),
					Platform:            "shopify",
					ExternalID:          uuid.NewString(),
					Status:              order.StatusPending,
					PlacedAt:            from.AddDate(0, 0, day).Add(time.Hour),
				})
			}
		}

		f.orders.On("FindPlacedBetween", ctx, f.orgID, mock.Anything, mock.Anything).Return(orders, nil)
		f.anomalyRepo.On("SaveBatch", ctx, mock.Anything).Return(nil)

		result, err := f.svc.Detect(ctx, DetectAnomaliesInput{
			OrgID:    f.orgID,
			DataType: insights.DataTypeOrders,
		})
		require.NoError(t, err)
		require.Len(t, result.Anomalies, 1)
		assert.Equal(t, "daily_order_volume", result.Anomalies[0].Metric)
		assert.Equal(t, 20.0, result.Anomalies[0].ObservedValue)
		assert.Equal(t, insights.SeverityCritical, result.Anomalies[0].Severity)
		assert.Equal(t, 15*time.Minute, result.NextCheckIn)
	})

	t.Run("higher sensitivity tightens the band", func(t *testing.T) {
		f := newAnomalyFixture(t)

		from := time.Now().AddDate(0, 0, -baselineWindowDays)
		orders := make([]order.Order, 0, 40)
		for day := 0; day < baselineWindowDays; day++ {
			n := 1
			if day == 10 {
				n = 5
			}
			for i := 0; i < n; i++ {
				orders = append(orders, order.Order{
					TenantAggregateRoot: shared.NewTenantAggregateRoot(f.orgID),
					Platform:            "shopify",
					ExternalID:          uuid.NewString(),
					PlacedAt:            from.AddDate(0, 0, day).Add(time.Hour),
				})
			}
		}

		f.orders.On("FindPlacedBetween", ctx, f.orgID, mock.Anything, mock.Anything).Return(orders, nil)
		f.anomalyRepo.On("SaveBatch", ctx, mock.Anything).Return(nil).Maybe()

		loose := 0.0
		looseResult, err := f.svc.Detect(ctx, DetectAnomaliesInput{
			OrgID: f.orgID, DataType: insights.DataTypeOrders, Sensitivity: &loose,
		})
		require.NoError(t, err)

		tight := 1.0
		tightResult, err := f.svc.Detect(ctx, DetectAnomaliesInput{
			OrgID: f.orgID, DataType: insights.DataTypeOrders, Sensitivity: &tight,
		})
		require.NoError(t, err)

		assert.GreaterOrEqual(t, len(tightResult.Anomalies), len(looseResult.Anomalies))
	})

	t.Run("a revenue spike is flagged by the daily total", func(t *testing.T) {
		f := newAnomalyFixture(t)

		// one order per day, all worth 100 except a single 2000 order
		from := time.Now().AddDate(0, 0, -baselineWindowDays)
		orders := make([]order.Order, 0, baselineWindowDays)
		for day := 0; day < baselineWindowDays; day++ {
			total := decimal.NewFromInt(100)
			if day == 20 {
				total = decimal.NewFromInt(2000)
			}
			orders = append(orders, order.Order{
				TenantAggregateRoot: shared.NewTenantAggregateRoot(f.orgID),
				Platform:            "shopify",
				ExternalID:          uuid.NewString(),
				Status:              order.StatusPending,
				Total:               total,
				PlacedAt:            from.AddDate(0, 0, day).Add(time.Hour),
			})
		}

		f.orders.On("FindPlacedBetween", ctx, f.orgID, mock.Anything, mock.Anything).Return(orders, nil)
		f.anomalyRepo.On("SaveBatch", ctx, mock.Anything).Return(nil)

		result, err := f.svc.Detect(ctx, DetectAnomaliesInput{
			OrgID:    f.orgID,
			DataType: insights.DataTypeOrders,
		})
		require.NoError(t, err)
		require.Len(t, result.Anomalies, 1)
		assert.Equal(t, "daily_order_total", result.Anomalies[0].Metric)
		assert.Equal(t, 2000.0, result.Anomalies[0].ObservedValue)
	})

	t.Run("unknown data type is rejected", func(t *testing.T) {
		f := newAnomalyFixture(t)

		_, err := f.svc.Detect(ctx, DetectAnomaliesInput{OrgID: f.orgID, DataType: "weather"})
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_DATA_TYPE", domainErr.Code)
	})
}

func TestDetectPricingAnomalies(t *testing.T) {
	ctx := context.Background()

	catalogProduct := func(t *testing.T, orgID uuid.UUID, sku string, price int64) catalog.Product {
		t.Helper()
		p, err := catalog.NewProduct(orgID, sku, "Widget", decimal.NewFromInt(price))
		require.NoError(t, err)
		p.ClearDomainEvents()
		return *p
	}

	discountRule := func(t *testing.T, orgID uuid.UUID, name string, percent int64) pricing.Rule {
		t.Helper()
		minQty := int64(1)
		r, err := pricing.NewRule(orgID, name, pricing.RuleTypeQuantityBreak, 100,
			decimal.NewFromInt(percent), pricing.Conditions{MinQuantity: &minQty})
		require.NoError(t, err)
		r.ClearDomainEvents()
		return *r
	}

	t.Run("a price far outside the catalog distribution is flagged", func(t *testing.T) {
		f := newAnomalyFixture(t)

		products := make([]catalog.Product, 0, 10)
		for i := 0; i < 9; i++ {
			products = append(products, catalogProduct(t, f.orgID, fmt.Sprintf("WID-%03d", i), 20))
		}
		products = append(products, catalogProduct(t, f.orgID, "WID-OUT", 500))

		f.products.On("FindAllForTenant", ctx, f.orgID, mock.Anything).Return(products, nil)
		f.rules.On("FindActiveOrdered", ctx, f.orgID).Return([]pricing.Rule{}, nil)
		f.anomalyRepo.On("SaveBatch", ctx, mock.Anything).Return(nil)

		result, err := f.svc.Detect(ctx, DetectAnomaliesInput{
			OrgID:    f.orgID,
			DataType: insights.DataTypePricing,
		})
		require.NoError(t, err)
		require.Len(t, result.Anomalies, 1)
		assert.Equal(t, "unit_price", result.Anomalies[0].Metric)
		assert.Equal(t, 500.0, result.Anomalies[0].ObservedValue)
	})

	t.Run("an outsized discount rule is flagged", func(t *testing.T) {
		f := newAnomalyFixture(t)

		rules := make([]pricing.Rule, 0, 6)
		for i := 0; i < 5; i++ {
			rules = append(rules, discountRule(t, f.orgID, fmt.Sprintf("volume %d", i), -5))
		}
		rules = append(rules, discountRule(t, f.orgID, "clearance", -90))

		f.products.On("FindAllForTenant", ctx, f.orgID, mock.Anything).Return([]catalog.Product{}, nil)
		f.rules.On("FindActiveOrdered", ctx, f.orgID).Return(rules, nil)
		f.anomalyRepo.On("SaveBatch", ctx, mock.MatchedBy(func(found []*insights.Anomaly) bool {
			return len(found) == 1 && found[0].Metric == "discount_percent"
		})).Return(nil)

		result, err := f.svc.Detect(ctx, DetectAnomaliesInput{
			OrgID:    f.orgID,
			DataType: insights.DataTypePricing,
		})
		require.NoError(t, err)
		require.Len(t, result.Anomalies, 1)
		assert.Equal(t, "discount_percent", result.Anomalies[0].Metric)
		assert.Equal(t, -90.0, result.Anomalies[0].ObservedValue)
	})
}

func TestAnomalyReview(t *testing.T) {
	ctx := context.Background()

	f := newAnomalyFixture(t)
	userID := uuid.New()
	entityID := uuid.New()
	a, err := insights.NewAnomaly(f.orgID, insights.DataTypeInventory, "stock_movement",
		"product", &entityID, 100, 19, 3.0, "spike", time.Now())
	require.NoError(t, err)
	a.ClearDomainEvents()

	f.anomalyRepo.On("FindByIDForTenant", ctx, f.orgID, a.ID).Return(a, nil)
	f.anomalyRepo.On("Save", ctx, a).Return(nil)

	require.NoError(t, f.svc.Acknowledge(ctx, f.orgID, a.ID, userID))
	assert.Equal(t, insights.AnomalyStatusAcknowledged, a.Status)
	assert.Equal(t, &userID, a.AcknowledgedBy)

	require.NoError(t, f.svc.Resolve(ctx, f.orgID, a.ID))
	assert.Equal(t, insights.AnomalyStatusResolved, a.Status)

	// resolving twice fails
	err = f.svc.Resolve(ctx, f.orgID, a.ID)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "INVALID_STATE", domainErr.Code)
}
