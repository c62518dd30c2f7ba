package insights

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModelConfidence(t *testing.T) {
	// few points, one model
	assert.InDelta(t, (0.07+0.1)/2, ModelConfidence(7, 1), 0.001)
	// plenty of points, three models
	assert.InDelta(t, (1.0+0.3)/2, ModelConfidence(250, 3), 0.001)
	// both capped
	assert.InDelta(t, 1.0, ModelConfidence(1000, 20), 0.001)
}

func TestClassifyTrend(t *testing.T) {
	t.Run("cumulative change above the 5% band is increasing", func(t *testing.T) {
		assert.Equal(t, TrendIncreasing, ClassifyTrend(1.0, 10, 30))
		// gentle slope still counts once the window is long enough
		assert.Equal(t, TrendIncreasing, ClassifyTrend(0.25, 8, 60))
	})

	t.Run("cumulative change below the negative band is decreasing", func(t *testing.T) {
		assert.Equal(t, TrendDecreasing, ClassifyTrend(-1.0, 10, 30))
	})

	t.Run("change inside the band is stable", func(t *testing.T) {
		assert.Equal(t, TrendStable, ClassifyTrend(0.01, 10, 30))
		assert.Equal(t, TrendStable, ClassifyTrend(-0.01, 10, 30))
		assert.Equal(t, TrendStable, ClassifyTrend(0, 0, 0))
	})
}

func TestNewForecast(t *testing.T) {
	tenantID := uuid.New()
	productID := uuid.New()

	t.Run("totals predictions and scores confidence", func(t *testing.T) {
		preds := []DailyPrediction{
			{Date: time.Now(), Quantity: 4.5},
			{Date: time.Now().AddDate(0, 0, 1), Quantity: 5.5},
		}
		f, err := NewForecast(tenantID, productID, 30, 60, 3, preds, TrendStable, nil)
		require.NoError(t, err)

		assert.InDelta(t, 10.0, f.TotalPredicted, 0.001)
		assert.InDelta(t, ModelConfidence(60, 3), f.Confidence, 0.001)
	})

	t.Run("rejects out-of-range horizon", func(t *testing.T) {
		_, err := NewForecast(tenantID, productID, 0, 10, 1, nil, TrendStable, nil)
		assert.Error(t, err)

		_, err = NewForecast(tenantID, productID, 366, 10, 1, nil, TrendStable, nil)
		assert.Error(t, err)
	})
}

func TestEstimateDistanceMiles(t *testing.T) {
	t.Run("prefix difference times fifty", func(t *testing.T) {
		// 941xx (SF) to 100xx (NYC): |941-100| × 50, capped at 3000
		assert.InDelta(t, 3000.0, EstimateDistanceMiles("94103", "10001"), 0.001)
		// 941 to 900: 41 × 50
		assert.InDelta(t, 2050.0, EstimateDistanceMiles("94103", "90001"), 0.001)
	})

	t.Run("unparsable zips get the default", func(t *testing.T) {
		assert.InDelta(t, 500.0, EstimateDistanceMiles("", "10001"), 0.001)
		assert.InDelta(t, 500.0, EstimateDistanceMiles("94103", "AB"), 0.001)
	})
}

func TestPredictDelivery(t *testing.T) {
	ship := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	t.Run("standard cross-country on fedex", func(t *testing.T) {
		est, err := PredictDelivery("fedex", ServiceStandard, "94103", "10001", ship)
		require.NoError(t, err)

		// 4 base + ceil(3000/1500)=2 − 1 reliability bonus
		assert.Equal(t, 5, est.PredictedDays)
		assert.Equal(t, ship.AddDate(0, 0, 5), est.EstimatedDelivery)
		assert.InDelta(t, 0.92, est.CarrierReliability, 0.001)
		assert.InDelta(t, 0.8, est.Confidence, 0.001)
	})

	t.Run("slow carrier gets a day added", func(t *testing.T) {
		est, err := PredictDelivery("usps", ServiceExpedited, "94103", "94110", ship)
		require.NoError(t, err)
		// 3 base + ceil(~0..50/1500)=1 + 1 slow-carrier penalty
		assert.GreaterOrEqual(t, est.PredictedDays, 4)
	})

	t.Run("unknown carrier falls back to default profile", func(t *testing.T) {
		est, err := PredictDelivery("dhl", ServiceOvernight, "94103", "94110", ship)
		require.NoError(t, err)
		assert.Equal(t, "default", est.Carrier)
		assert.InDelta(t, 0.89, est.CarrierReliability, 0.001)
	})

	t.Run("rejects unknown service", func(t *testing.T) {
		_, err := PredictDelivery("ups", ServiceLevel("same_day"), "94103", "94110", ship)
		assert.Error(t, err)
	})
}

func TestRecommendCarrier(t *testing.T) {
	ship := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	est, err := RecommendCarrier(ServiceStandard, "94103", "10001", ship)
	require.NoError(t, err)
	require.NotNil(t, est)

	// fedex wins the long haul via its reliability bonus
	assert.Equal(t, "fedex", est.Carrier)

	for _, p := range KnownCarriers() {
		other, err := PredictDelivery(p.Code, ServiceStandard, "94103", "10001", ship)
		require.NoError(t, err)
		assert.LessOrEqual(t, est.PredictedDays, other.PredictedDays)
	}
}
