package insights

import "context"

// Narrator renders a short natural-language summary of an insights result.
// The AI-backed implementation lives in infrastructure; a template fallback
// covers deployments without an API key.
type Narrator interface {
	// SummarizeForecast describes a demand forecast in a sentence or two
	SummarizeForecast(ctx context.Context, productName string, forecast *Forecast) (string, error)

	// SummarizeAnomalies describes a detection run's findings
	SummarizeAnomalies(ctx context.Context, dataType DataType, anomalies []Anomaly) (string, error)
}
