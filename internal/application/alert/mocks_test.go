package alert

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/truthsource/backend/internal/domain/alert"
	"github.com/truthsource/backend/internal/domain/shared"
)

type MockAlertRepository struct {
	mock.Mock
}

func (m *MockAlertRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*alert.Alert, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*alert.Alert), args.Error(1)
}

func (m *MockAlertRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, alertType *alert.Type, status *alert.Status, filter shared.Filter) ([]alert.Alert, error) {
	args := m.Called(ctx, tenantID, alertType, status, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]alert.Alert), args.Error(1)
}

func (m *MockAlertRepository) CountOpenForTenant(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAlertRepository) HasOpenForEntity(ctx context.Context, tenantID uuid.UUID, alertType alert.Type, entityID uuid.UUID) (bool, error) {
	args := m.Called(ctx, tenantID, alertType, entityID)
	return args.Bool(0), args.Error(1)
}

func (m *MockAlertRepository) Save(ctx context.Context, a *alert.Alert) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *MockAlertRepository) DeleteResolvedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}
