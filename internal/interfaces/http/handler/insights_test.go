package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	insightsapp "github.com/truthsource/backend/internal/application/insights"
)

type stubInsightsGate struct {
	enabled bool
	err     error
}

func (g *stubInsightsGate) AIInsightsEnabled(ctx context.Context, orgID uuid.UUID) (bool, error) {
	return g.enabled, g.err
}

func TestInsightsPlanGate(t *testing.T) {
	orgID := uuid.New()
	userID := uuid.New()

	t.Run("generate blocked when plan lacks insights", func(t *testing.T) {
		h := NewInsightsHandler(nil, nil, insightsapp.NewDeliveryService(zap.NewNop()), &stubInsightsGate{enabled: false})
		engine := newTestRouter(h, orgID, userID, "member")

		body := []byte(`{"product_id":"` + uuid.New().String() + `","horizon_days":30}`)
		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/api/v1/insights/forecasts", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("detect blocked when plan lacks insights", func(t *testing.T) {
		h := NewInsightsHandler(nil, nil, insightsapp.NewDeliveryService(zap.NewNop()), &stubInsightsGate{enabled: false})
		engine := newTestRouter(h, orgID, userID, "member")

		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/api/v1/insights/anomalies/detect", bytes.NewReader([]byte(`{"data_type":"inventory"}`)))
		req.Header.Set("Content-Type", "application/json")
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("delivery estimate is not gated", func(t *testing.T) {
		h := NewInsightsHandler(nil, nil, insightsapp.NewDeliveryService(zap.NewNop()), &stubInsightsGate{enabled: false})
		engine := newTestRouter(h, orgID, userID, "readonly")

		body := []byte(`{"carrier":"ups","service":"standard","origin_zip":"94103","dest_zip":"10001"}`)
		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/api/v1/insights/delivery/estimate", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		resp := decodeResponse(t, w.Body.Bytes())
		require.True(t, resp.Success)
		data, ok := resp.Data.(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "ups", data["carrier"])
		assert.Greater(t, data["predicted_days"], float64(0))
	})

	t.Run("invalid service level rejected", func(t *testing.T) {
		h := NewInsightsHandler(nil, nil, insightsapp.NewDeliveryService(zap.NewNop()), &stubInsightsGate{enabled: true})
		engine := newTestRouter(h, orgID, userID, "member")

		body := []byte(`{"carrier":"ups","service":"teleport","origin_zip":"94103","dest_zip":"10001"}`)
		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/api/v1/insights/delivery/estimate", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
