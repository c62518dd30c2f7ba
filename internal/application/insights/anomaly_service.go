package insights

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/truthsource/backend/internal/domain/catalog"
	"github.com/truthsource/backend/internal/domain/insights"
	"github.com/truthsource/backend/internal/domain/inventory"
	"github.com/truthsource/backend/internal/domain/pricing"
	"github.com/truthsource/backend/internal/domain/shared"
)

const (
	// baselineWindowDays is how far back the baseline reaches
	baselineWindowDays = 30

	// minBaselinePoints guards against flagging noise in tiny samples
	minBaselinePoints = 5

	// pricingScanPageSize bounds the product scan per run
	pricingScanPageSize = 1000
)

// MovementReader supplies the stock-movement series for inventory scans
type MovementReader interface {
	FindSince(ctx context.Context, tenantID uuid.UUID, since time.Time) ([]inventory.StockAdjustment, error)
}

// ProductLister supplies the price distribution for pricing scans
type ProductLister interface {
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]catalog.Product, error)
}

// RuleReader supplies the active discount distribution for pricing scans
type RuleReader interface {
	FindActiveOrdered(ctx context.Context, tenantID uuid.UUID) ([]pricing.Rule, error)
}

// AnomalyService runs statistical scans over inventory movements, order
// volume and price distributions.
type AnomalyService struct {
	anomalyRepo    insights.AnomalyRepository
	movements      MovementReader
	orders         OrderHistory
	products       ProductLister
	rules          RuleReader
	narrator       insights.Narrator
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewAnomalyService creates a new anomaly service
func NewAnomalyService(anomalyRepo insights.AnomalyRepository, movements MovementReader, orders OrderHistory, products ProductLister, rules RuleReader, logger *zap.Logger) *AnomalyService {
	return &AnomalyService{
		anomalyRepo: anomalyRepo,
		movements:   movements,
		orders:      orders,
		products:    products,
		rules:       rules,
		logger:      logger,
	}
}

// SetNarrator sets the optional natural-language summarizer
func (s *AnomalyService) SetNarrator(narrator insights.Narrator) {
	s.narrator = narrator
}

// SetEventPublisher sets the event publisher for domain events
func (s *AnomalyService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Detect scans one data class for out-of-band points. Observations outside
// avg ± std×(2−sensitivity) become anomalies; the run recommends when to
// scan next based on the worst finding.
func (s *AnomalyService) Detect(ctx context.Context, input DetectAnomaliesInput) (*DetectionResult, error) {
	if !input.DataType.IsValid() {
		return nil, shared.NewDomainError("INVALID_DATA_TYPE", "Data type must be inventory, pricing, or orders")
	}
	sensitivity := insights.DefaultSensitivity
	if input.Sensitivity != nil {
		sensitivity = *input.Sensitivity
	}

	var (
		anomalies []*insights.Anomaly
		points    int
		err       error
	)
	switch input.DataType {
	case insights.DataTypeInventory:
		anomalies, points, err = s.scanInventory(ctx, input.OrgID, sensitivity)
	case insights.DataTypeOrders:
		anomalies, points, err = s.scanOrders(ctx, input.OrgID, sensitivity)
	case insights.DataTypePricing:
		anomalies, points, err = s.scanPricing(ctx, input.OrgID, sensitivity)
	}
	if err != nil {
		return nil, err
	}

	if len(anomalies) > 0 {
		if err := s.anomalyRepo.SaveBatch(ctx, anomalies); err != nil {
			s.logger.Error("Failed to save anomalies", zap.Error(err))
			return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to save detection results")
		}
		for _, a := range anomalies {
			s.publishEvents(ctx, a)
		}
	}

	found := make([]insights.Anomaly, 0, len(anomalies))
	infos := make([]AnomalyInfo, 0, len(anomalies))
	for _, a := range anomalies {
		found = append(found, *a)
		infos = append(infos, toAnomalyInfo(a))
	}

	result := &DetectionResult{
		DataType:    input.DataType,
		PointsRead:  points,
		Anomalies:   infos,
		NextCheckIn: insights.RecommendNextCheck(found),
	}
	result.Summary = s.summarize(ctx, input.DataType, found)

	s.logger.Info("Anomaly scan finished",
		zap.String("org_id", input.OrgID.String()),
		zap.String("data_type", string(input.DataType)),
		zap.Int("points", points),
		zap.Int("anomalies", len(anomalies)))

	return result, nil
}

// scanInventory aggregates stock movements per day and checks the net
// movement and movement count series against their baselines.
func (s *AnomalyService) scanInventory(ctx context.Context, orgID uuid.UUID, sensitivity float64) ([]*insights.Anomaly, int, error) {
	since := time.Now().AddDate(0, 0, -baselineWindowDays)
	adjustments, err := s.movements.FindSince(ctx, orgID, since)
	if err != nil {
		s.logger.Error("Failed to load stock movements", zap.Error(err))
		return nil, 0, shared.NewDomainError("INTERNAL_ERROR", "Failed to load stock movements")
	}
	if len(adjustments) < minBaselinePoints {
		return nil, len(adjustments), nil
	}

	net := make([]float64, baselineWindowDays)
	count := make([]float64, baselineWindowDays)
	for i := range adjustments {
		day := int(adjustments[i].CreatedAt.Sub(since).Hours() / 24)
		if day >= 0 && day < baselineWindowDays {
			net[day] += float64(adjustments[i].Delta)
			count[day]++
		}
	}

	found := dailyOutliers(orgID, insights.DataTypeInventory, "daily_net_movement", since, net, sensitivity,
		func(day time.Time, v, avg float64) string {
			return fmt.Sprintf("net stock movement of %+.0f on %s against a daily average of %.1f",
				v, day.Format("2006-01-02"), avg)
		})
	found = append(found, dailyOutliers(orgID, insights.DataTypeInventory, "daily_movement_count", since, count, sensitivity,
		func(day time.Time, v, avg float64) string {
			return fmt.Sprintf("%.0f stock movements on %s against a daily average of %.1f",
				v, day.Format("2006-01-02"), avg)
		})...)
	return found, len(adjustments), nil
}

// scanOrders inspects daily order counts and daily revenue totals against
// their baselines.
func (s *AnomalyService) scanOrders(ctx context.Context, orgID uuid.UUID, sensitivity float64) ([]*insights.Anomaly, int, error) {
	now := time.Now()
	from := now.AddDate(0, 0, -baselineWindowDays)
	orders, err := s.orders.FindPlacedBetween(ctx, orgID, from, now)
	if err != nil {
		s.logger.Error("Failed to load order history", zap.Error(err))
		return nil, 0, shared.NewDomainError("INTERNAL_ERROR", "Failed to load order history")
	}
	if len(orders) < minBaselinePoints {
		return nil, len(orders), nil
	}

	counts := make([]float64, baselineWindowDays)
	totals := make([]float64, baselineWindowDays)
	for i := range orders {
		day := int(orders[i].PlacedAt.Sub(from).Hours() / 24)
		if day >= 0 && day < baselineWindowDays {
			counts[day]++
			total, _ := orders[i].Total.Float64()
			totals[day] += total
		}
	}

	found := dailyOutliers(orgID, insights.DataTypeOrders, "daily_order_volume", from, counts, sensitivity,
		func(day time.Time, v, avg float64) string {
			return fmt.Sprintf("%.0f orders on %s against a daily average of %.1f",
				v, day.Format("2006-01-02"), avg)
		})
	found = append(found, dailyOutliers(orgID, insights.DataTypeOrders, "daily_order_total", from, totals, sensitivity,
		func(day time.Time, v, avg float64) string {
			return fmt.Sprintf("order revenue of %.2f on %s against a daily average of %.2f",
				v, day.Format("2006-01-02"), avg)
		})...)
	return found, len(orders), nil
}

// dailyOutliers flags days whose value falls outside the series' baseline band
func dailyOutliers(orgID uuid.UUID, dataType insights.DataType, metric string, from time.Time, series []float64, sensitivity float64, describe func(day time.Time, v, avg float64) string) []*insights.Anomaly {
	avg, std := meanStd(series)
	if std == 0 {
		return nil
	}
	low, high := insights.ThresholdBand(avg, std, sensitivity)

	var found []*insights.Anomaly
	for day, v := range series {
		if v >= low && v <= high {
			continue
		}
		observedAt := from.AddDate(0, 0, day)
		a, err := insights.NewAnomaly(orgID, dataType, metric,
			"", nil, v, avg, deviation(v, avg, std),
			describe(observedAt, v, avg), observedAt)
		if err != nil {
			continue
		}
		found = append(found, a)
	}
	return found
}

// scanPricing inspects the active price distribution and the discount
// percents of active rules for outliers.
func (s *AnomalyService) scanPricing(ctx context.Context, orgID uuid.UUID, sensitivity float64) ([]*insights.Anomaly, int, error) {
	products, err := s.products.FindAllForTenant(ctx, orgID, shared.Filter{Page: 1, PageSize: pricingScanPageSize})
	if err != nil {
		s.logger.Error("Failed to load products for pricing scan", zap.Error(err))
		return nil, 0, shared.NewDomainError("INTERNAL_ERROR", "Failed to load products")
	}
	rules, err := s.rules.FindActiveOrdered(ctx, orgID)
	if err != nil {
		s.logger.Error("Failed to load pricing rules for pricing scan", zap.Error(err))
		return nil, 0, shared.NewDomainError("INTERNAL_ERROR", "Failed to load pricing rules")
	}
	points := len(products) + len(rules)

	now := time.Now()
	var found []*insights.Anomaly

	if len(products) >= minBaselinePoints {
		values := make([]float64, len(products))
		for i := range products {
			values[i], _ = products[i].UnitPrice.Float64()
		}
		avg, std := meanStd(values)
		if std != 0 {
			low, high := insights.ThresholdBand(avg, std, sensitivity)
			for i := range products {
				v := values[i]
				if v >= low && v <= high {
					continue
				}
				productID := products[i].ID
				a, err := insights.NewAnomaly(orgID, insights.DataTypePricing, "unit_price",
					"product", &productID, v, avg, deviation(v, avg, std),
					fmt.Sprintf("%s priced at %.2f against a catalog average of %.2f",
						products[i].SKU, v, avg),
					now)
				if err != nil {
					continue
				}
				found = append(found, a)
			}
		}
	}

	if len(rules) >= minBaselinePoints {
		discounts := make([]float64, len(rules))
		for i := range rules {
			discounts[i], _ = rules[i].AdjustmentPercent.Float64()
		}
		avg, std := meanStd(discounts)
		if std != 0 {
			low, high := insights.ThresholdBand(avg, std, sensitivity)
			for i := range rules {
				v := discounts[i]
				if v >= low && v <= high {
					continue
				}
				ruleID := rules[i].ID
				a, err := insights.NewAnomaly(orgID, insights.DataTypePricing, "discount_percent",
					"rule", &ruleID, v, avg, deviation(v, avg, std),
					fmt.Sprintf("%s adjusts prices by %+.1f%% against a typical %+.1f%%",
						rules[i].Name, v, avg),
					now)
				if err != nil {
					continue
				}
				found = append(found, a)
			}
		}
	}

	return found, points, nil
}

// Acknowledge marks an anomaly as seen
func (s *AnomalyService) Acknowledge(ctx context.Context, orgID, anomalyID, userID uuid.UUID) error {
	return s.mutate(ctx, orgID, anomalyID, func(a *insights.Anomaly) error {
		return a.Acknowledge(userID)
	})
}

// Resolve closes an anomaly
func (s *AnomalyService) Resolve(ctx context.Context, orgID, anomalyID uuid.UUID) error {
	return s.mutate(ctx, orgID, anomalyID, func(a *insights.Anomaly) error {
		return a.Resolve()
	})
}

func (s *AnomalyService) mutate(ctx context.Context, orgID, anomalyID uuid.UUID, fn func(*insights.Anomaly) error) error {
	a, err := s.anomalyRepo.FindByIDForTenant(ctx, orgID, anomalyID)
	if err != nil {
		return shared.NewDomainError("ANOMALY_NOT_FOUND", "Anomaly not found")
	}
	if err := fn(a); err != nil {
		return err
	}
	if err := s.anomalyRepo.Save(ctx, a); err != nil {
		s.logger.Error("Failed to update anomaly", zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to update anomaly")
	}
	return nil
}

// List returns anomalies for an organization with optional filters
func (s *AnomalyService) List(ctx context.Context, orgID uuid.UUID, severity *insights.Severity, status *insights.AnomalyStatus, filter shared.Filter) ([]AnomalyInfo, error) {
	anomalies, err := s.anomalyRepo.FindAllForTenant(ctx, orgID, severity, status, filter)
	if err != nil {
		s.logger.Error("Failed to list anomalies", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to list anomalies")
	}

	infos := make([]AnomalyInfo, 0, len(anomalies))
	for i := range anomalies {
		infos = append(infos, toAnomalyInfo(&anomalies[i]))
	}
	return infos, nil
}

// CountOpen returns the number of unreviewed anomalies
func (s *AnomalyService) CountOpen(ctx context.Context, orgID uuid.UUID) (int64, error) {
	return s.anomalyRepo.CountOpenForTenant(ctx, orgID)
}

func (s *AnomalyService) summarize(ctx context.Context, dataType insights.DataType, anomalies []insights.Anomaly) string {
	if s.narrator == nil {
		return ""
	}
	summary, err := s.narrator.SummarizeAnomalies(ctx, dataType, anomalies)
	if err != nil {
		s.logger.Warn("Anomaly summary failed", zap.Error(err))
		return ""
	}
	return summary
}

func (s *AnomalyService) publishEvents(ctx context.Context, a *insights.Anomaly) {
	if s.eventPublisher == nil {
		return
	}
	events := a.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	_ = s.eventPublisher.Publish(ctx, events...)
	a.ClearDomainEvents()
}

func meanStd(values []float64) (avg, std float64) {
	if len(values) == 0 {
		return 0, 0
	}
	for _, v := range values {
		avg += v
	}
	avg /= float64(len(values))

	var variance float64
	for _, v := range values {
		variance += (v - avg) * (v - avg)
	}
	variance /= float64(len(values))
	return avg, math.Sqrt(variance)
}

func deviation(v, avg, std float64) float64 {
	if std == 0 {
		return 0
	}
	return math.Abs(v-avg) / std
}
