package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/truthsource/backend/internal/domain/insights"
)

// narrationTimeout bounds one model call; a slow narrator must not hold up
// the forecast response
const narrationTimeout = 10 * time.Second

// GenAINarrator summarizes insights results through the Gemini API. On any
// model failure it falls back to the template narrator, so callers always
// get a summary.
type GenAINarrator struct {
	client   *genai.Client
	model    string
	fallback TemplateNarrator
	logger   *zap.Logger
}

// NewGenAINarrator creates a narrator backed by the Gemini API
func NewGenAINarrator(ctx context.Context, apiKey, model string, logger *zap.Logger) (*GenAINarrator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("genai narrator requires an API key")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}

	return &GenAINarrator{
		client: client,
		model:  model,
		logger: logger,
	}, nil
}

// SummarizeForecast describes a demand forecast in a sentence or two
func (n *GenAINarrator) SummarizeForecast(ctx context.Context, productName string, forecast *insights.Forecast) (string, error) {
	prompt := fmt.Sprintf(
		"You are summarizing a demand forecast for an inventory manager. "+
			"Product: %s. Horizon: %d days. Total predicted demand: %.0f units. "+
			"Trend: %s. Confidence: %.0f%%. "+
			"Write one or two plain sentences. No markdown, no preamble.",
		productName, forecast.HorizonDays, forecast.TotalPredicted,
		forecast.Trend, forecast.Confidence*100,
	)

	summary, err := n.generate(ctx, prompt)
	if err != nil {
		n.logger.Warn("Narrator model call failed, using template summary", zap.Error(err))
		return n.fallback.SummarizeForecast(ctx, productName, forecast)
	}
	return summary, nil
}

// SummarizeAnomalies describes a detection run's findings
func (n *GenAINarrator) SummarizeAnomalies(ctx context.Context, dataType insights.DataType, anomalies []insights.Anomaly) (string, error) {
	if len(anomalies) == 0 {
		return n.fallback.SummarizeAnomalies(ctx, dataType, anomalies)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb,
		"You are summarizing anomaly detection results for an operations dashboard. "+
			"Data class: %s. %d anomalies found:\n", dataType, len(anomalies))
	for i := range anomalies {
		a := &anomalies[i]
		fmt.Fprintf(&sb, "- %s %s: observed %.2f, expected %.2f (%.1f standard deviations)\n",
			a.Severity, a.Metric, a.ObservedValue, a.ExpectedValue, a.Deviation)
	}
	sb.WriteString("Write one or two plain sentences highlighting what matters most. No markdown, no preamble.")

	summary, err := n.generate(ctx, sb.String())
	if err != nil {
		n.logger.Warn("Narrator model call failed, using template summary", zap.Error(err))
		return n.fallback.SummarizeAnomalies(ctx, dataType, anomalies)
	}
	return summary, nil
}

func (n *GenAINarrator) generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, narrationTimeout)
	defer cancel()

	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}
	result, err := n.client.Models.GenerateContent(ctx, n.model, contents, nil)
	if err != nil {
		return "", err
	}

	text := strings.TrimSpace(result.Text())
	if text == "" {
		return "", fmt.Errorf("model returned an empty summary")
	}
	return text, nil
}
