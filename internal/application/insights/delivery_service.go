package insights

import (
	"context"

	"go.uber.org/zap"

	"github.com/truthsource/backend/internal/domain/insights"
)

// DeliveryService estimates shipment transit times from carrier performance
// profiles and route distance.
type DeliveryService struct {
	logger *zap.Logger
}

// NewDeliveryService creates a new delivery prediction service
func NewDeliveryService(logger *zap.Logger) *DeliveryService {
	return &DeliveryService{logger: logger}
}

// Predict estimates delivery for one carrier and service level
func (s *DeliveryService) Predict(ctx context.Context, input PredictDeliveryInput) (*insights.DeliveryEstimate, error) {
	service := input.Service
	if service == "" {
		service = insights.ServiceStandard
	}
	return insights.PredictDelivery(input.Carrier, service, input.OriginZip, input.DestZip, input.ShipDate)
}

// Recommend picks the fastest known carrier for the route
func (s *DeliveryService) Recommend(ctx context.Context, input PredictDeliveryInput) (*insights.DeliveryEstimate, error) {
	service := input.Service
	if service == "" {
		service = insights.ServiceStandard
	}
	return insights.RecommendCarrier(service, input.OriginZip, input.DestZip, input.ShipDate)
}
