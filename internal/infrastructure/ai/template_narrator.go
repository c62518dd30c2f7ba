package ai

import (
	"context"
	"fmt"

	"github.com/truthsource/backend/internal/domain/insights"
)

// TemplateNarrator renders summaries from fixed templates. It serves
// deployments without a model API key and backs up the AI narrator.
type TemplateNarrator struct{}

// SummarizeForecast describes a demand forecast in a sentence
func (TemplateNarrator) SummarizeForecast(ctx context.Context, productName string, forecast *insights.Forecast) (string, error) {
	trend := "holding steady"
	switch forecast.Trend {
	case insights.TrendIncreasing:
		trend = "trending up"
	case insights.TrendDecreasing:
		trend = "trending down"
	}

	return fmt.Sprintf(
		"%s is expected to sell about %.0f units over the next %d days, with demand %s (%.0f%% confidence).",
		productName, forecast.TotalPredicted, forecast.HorizonDays, trend, forecast.Confidence*100,
	), nil
}

// SummarizeAnomalies describes a detection run's findings in a sentence
func (TemplateNarrator) SummarizeAnomalies(ctx context.Context, dataType insights.DataType, anomalies []insights.Anomaly) (string, error) {
	if len(anomalies) == 0 {
		return fmt.Sprintf("No anomalies detected in %s data.", dataType), nil
	}

	worst := &anomalies[0]
	for i := range anomalies {
		if severityRank(anomalies[i].Severity) > severityRank(worst.Severity) {
			worst = &anomalies[i]
		}
	}

	return fmt.Sprintf(
		"Found %d anomalies in %s data; the most severe is %s on %s (observed %.2f against an expected %.2f).",
		len(anomalies), dataType, worst.Severity, worst.Metric, worst.ObservedValue, worst.ExpectedValue,
	), nil
}

func severityRank(s insights.Severity) int {
	switch s {
	case insights.SeverityCritical:
		return 4
	case insights.SeverityHigh:
		return 3
	case insights.SeverityMedium:
		return 2
	case insights.SeverityLow:
		return 1
	}
	return 0
}
