package ai

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/truthsource/backend/internal/domain/insights"
)

func TestTemplateNarratorForecast(t *testing.T) {
	n := TemplateNarrator{}

	forecast := &insights.Forecast{
		HorizonDays:    30,
		TotalPredicted: 412,
		Trend:          insights.TrendIncreasing,
		Confidence:     0.82,
		GeneratedAt:    time.Now(),
	}

	summary, err := n.SummarizeForecast(context.Background(), "Widget, blue", forecast)
	require.NoError(t, err)
	assert.Contains(t, summary, "Widget, blue")
	assert.Contains(t, summary, "412")
	assert.Contains(t, summary, "trending up")
	assert.Contains(t, summary, "82%")
}

func TestTemplateNarratorAnomalies(t *testing.T) {
	n := TemplateNarrator{}

	t.Run("no findings", func(t *testing.T) {
		summary, err := n.SummarizeAnomalies(context.Background(), insights.DataTypeInventory, nil)
		require.NoError(t, err)
		assert.Contains(t, summary, "No anomalies")
	})

	t.Run("names the most severe finding", func(t *testing.T) {
		entityID := uuid.New()
		anomalies := []insights.Anomaly{
			{
				DataType:      insights.DataTypeOrders,
				Metric:        "daily_order_count",
				ObservedValue: 12,
				ExpectedValue: 40,
				Deviation:     3.1,
				Severity:      insights.SeverityMedium,
			},
			{
				DataType:      insights.DataTypeOrders,
				Metric:        "order_total",
				EntityID:      &entityID,
				ObservedValue: 90000,
				ExpectedValue: 1200,
				Deviation:     8.4,
				Severity:      insights.SeverityCritical,
			},
		}

		summary, err := n.SummarizeAnomalies(context.Background(), insights.DataTypeOrders, anomalies)
		require.NoError(t, err)
		assert.Contains(t, summary, "2 anomalies")
		assert.Contains(t, summary, "critical")
		assert.Contains(t, summary, "order_total")
	})
}
