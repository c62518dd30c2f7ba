package insights

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/truthsource/backend/internal/domain/catalog"
	"github.com/truthsource/backend/internal/domain/insights"
	"github.com/truthsource/backend/internal/domain/order"
	"github.com/truthsource/backend/internal/domain/shared"
)

const (
	// demandWindowDays is how far back the demand series reaches
	demandWindowDays = 180

	// keepForecastsPerProduct bounds stored history per product
	keepForecastsPerProduct = 3

	movingAverageWindow = 7

	smoothingAlpha = 0.3
)

// ProductReader resolves the product a forecast is generated for
type ProductReader interface {
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*catalog.Product, error)
}

// OrderHistory supplies the order stream the demand series is built from
type OrderHistory interface {
	FindPlacedBetween(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]order.Order, error)
}

// ForecastService generates and stores demand forecasts
type ForecastService struct {
	forecastRepo insights.ForecastRepository
	products     ProductReader
	orders       OrderHistory
	narrator     insights.Narrator
	logger       *zap.Logger
}

// NewForecastService creates a new forecast service
func NewForecastService(forecastRepo insights.ForecastRepository, products ProductReader, orders OrderHistory, logger *zap.Logger) *ForecastService {
	return &ForecastService{
		forecastRepo: forecastRepo,
		products:     products,
		orders:       orders,
		logger:       logger,
	}
}

// SetNarrator sets the optional natural-language summarizer
func (s *ForecastService) SetNarrator(narrator insights.Narrator) {
	s.narrator = narrator
}

// Generate builds a demand forecast for one product from its order history.
// Short series use a moving average alone; longer ones average three models
// (moving average, linear-regression projection, exponential smoothing) and
// apply per-month seasonal factors.
func (s *ForecastService) Generate(ctx context.Context, input GenerateForecastInput) (*ForecastInfo, error) {
	horizon := input.HorizonDays
	if horizon == 0 {
		horizon = insights.DefaultForecastDays
	}
	if horizon < insights.MinForecastDays || horizon > insights.MaxForecastDays {
		return nil, shared.NewDomainError("INVALID_HORIZON", "Forecast horizon must be between 1 and 365 days")
	}

	product, err := s.products.FindByIDForTenant(ctx, input.OrgID, input.ProductID)
	if err != nil {
		return nil, shared.NewDomainError("PRODUCT_NOT_FOUND", "Product not found")
	}

	now := time.Now()
	from := now.AddDate(0, 0, -demandWindowDays)
	orders, err := s.orders.FindPlacedBetween(ctx, input.OrgID, from, now)
	if err != nil {
		s.logger.Error("Failed to load order history for forecast", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to load order history")
	}

	series, monthly := buildDemandSeries(orders, input.ProductID, from, now)
	if len(series) == 0 {
		return nil, shared.NewDomainError("INSUFFICIENT_DATA", "No sales history for this product")
	}

	ma := movingAverage(series, movingAverageWindow)
	slope, intercept := linearRegression(series)
	smoothed := exponentialSmoothing(series, smoothingAlpha)
	mean := seriesMean(series)
	seasonal := seasonalFactors(monthly, mean)

	blend := len(series) >= insights.MinPointsForBlend
	modelsUsed := 1
	if blend {
		modelsUsed += 2 // regression and smoothing join the average
	}
	if len(seasonal) >= 2 {
		modelsUsed++
	}

	predictions := make([]insights.DailyPrediction, 0, horizon)
	n := float64(len(series))
	for d := 1; d <= horizon; d++ {
		date := now.AddDate(0, 0, d)
		qty := ma
		if blend {
			projected := intercept + slope*(n+float64(d)-1)
			qty = (ma + projected + smoothed) / 3
		}
		if factor, ok := factorForMonth(seasonal, date.Month()); ok {
			qty *= factor
		}
		if qty < 0 {
			qty = 0
		}
		predictions = append(predictions, insights.DailyPrediction{Date: date, Quantity: qty})
	}

	forecast, err := insights.NewForecast(input.OrgID, input.ProductID, horizon,
		len(series), modelsUsed, predictions, insights.ClassifyTrend(slope, mean, len(series)), seasonal)
	if err != nil {
		return nil, err
	}

	if err := s.forecastRepo.Save(ctx, forecast); err != nil {
		s.logger.Error("Failed to save forecast", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to save forecast")
	}
	if err := s.forecastRepo.DeleteOlderThan(ctx, input.OrgID, keepForecastsPerProduct); err != nil {
		s.logger.Warn("Failed to prune old forecasts", zap.Error(err))
	}

	summary := s.summarize(ctx, product.Name, forecast)

	s.logger.Info("Forecast generated",
		zap.String("org_id", input.OrgID.String()),
		zap.String("product_id", input.ProductID.String()),
		zap.Int("horizon_days", horizon),
		zap.Int("data_points", len(series)),
		zap.String("trend", string(forecast.Trend)))

	info := toForecastInfo(forecast, summary)
	return &info, nil
}

// GetLatest returns the most recent stored forecast for a product
func (s *ForecastService) GetLatest(ctx context.Context, orgID, productID uuid.UUID) (*ForecastInfo, error) {
	forecast, err := s.forecastRepo.FindLatestForProduct(ctx, orgID, productID)
	if err != nil {
		return nil, shared.NewDomainError("FORECAST_NOT_FOUND", "No forecast for this product")
	}
	info := toForecastInfo(forecast, "")
	return &info, nil
}

func (s *ForecastService) summarize(ctx context.Context, productName string, forecast *insights.Forecast) string {
	if s.narrator == nil {
		return ""
	}
	summary, err := s.narrator.SummarizeForecast(ctx, productName, forecast)
	if err != nil {
		s.logger.Warn("Forecast summary failed", zap.Error(err))
		return ""
	}
	return summary
}

// buildDemandSeries turns the order stream into a zero-filled daily quantity
// series for one product, plus per-month totals for seasonal factors. The
// series starts on the first day the product sold.
func buildDemandSeries(orders []order.Order, productID uuid.UUID, from, to time.Time) ([]float64, map[time.Month][]float64) {
	byDay := make(map[string]float64)
	var firstSale time.Time

	for i := range orders {
		o := &orders[i]
		if o.Status == order.StatusCancelled {
			continue
		}
		for j := range o.Items {
			item := &o.Items[j]
			if item.ProductID == nil || *item.ProductID != productID {
				continue
			}
			day := o.PlacedAt.Truncate(24 * time.Hour)
			byDay[day.Format("2006-01-02")] += float64(item.Quantity)
			if firstSale.IsZero() || day.Before(firstSale) {
				firstSale = day
			}
		}
	}
	if firstSale.IsZero() {
		return nil, nil
	}

	series := make([]float64, 0, demandWindowDays)
	monthly := make(map[time.Month][]float64)
	for day := firstSale; !day.After(to); day = day.AddDate(0, 0, 1) {
		qty := byDay[day.Format("2006-01-02")]
		series = append(series, qty)
		monthly[day.Month()] = append(monthly[day.Month()], qty)
	}
	return series, monthly
}

// movingAverage averages the last window points of the series
func movingAverage(series []float64, window int) float64 {
	if len(series) == 0 {
		return 0
	}
	if window > len(series) {
		window = len(series)
	}
	sum := 0.0
	for _, v := range series[len(series)-window:] {
		sum += v
	}
	return sum / float64(window)
}

// linearRegression fits y = intercept + slope*x by least squares over the
// series index.
func linearRegression(series []float64) (slope, intercept float64) {
	n := float64(len(series))
	if n < 2 {
		if n == 1 {
			return 0, series[0]
		}
		return 0, 0
	}

	var sumX, sumY, sumXY, sumXX float64
	for i, y := range series {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}

	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0, sumY / n
	}
	slope = (n*sumXY - sumX*sumY) / denom
	intercept = (sumY - slope*sumX) / n
	return slope, intercept
}

// exponentialSmoothing returns the final smoothed level of the series,
// weighting recent observations by alpha.
func exponentialSmoothing(series []float64, alpha float64) float64 {
	if len(series) == 0 {
		return 0
	}
	level := series[0]
	for _, v := range series[1:] {
		level = alpha*v + (1-alpha)*level
	}
	return level
}

func seriesMean(series []float64) float64 {
	if len(series) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range series {
		sum += v
	}
	return sum / float64(len(series))
}

// seasonalFactors computes month-average / overall-average for months with
// data. Months need at least a week of observations to count.
func seasonalFactors(monthly map[time.Month][]float64, overallMean float64) []insights.SeasonalFactor {
	if overallMean == 0 {
		return nil
	}
	factors := make([]insights.SeasonalFactor, 0, len(monthly))
	for m := time.January; m <= time.December; m++ {
		values := monthly[m]
		if len(values) < 7 {
			continue
		}
		factors = append(factors, insights.SeasonalFactor{
			Month:  m,
			Factor: seriesMean(values) / overallMean,
		})
	}
	return factors
}

func factorForMonth(factors []insights.SeasonalFactor, m time.Month) (float64, bool) {
	for _, f := range factors {
		if f.Month == m {
			return f.Factor, true
		}
	}
	return 0, false
}
