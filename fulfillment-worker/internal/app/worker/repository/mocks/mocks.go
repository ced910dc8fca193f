package mocks

import (
	"context"
	"time"

	"pharmacart/fulfillment-worker/internal/app/worker/entity"

	"github.com/stretchr/testify/mock"
)

// MockTriageRepository мок для TriageRepository
type MockTriageRepository struct {
	mock.Mock
}

func (m *MockTriageRepository) Insert(ctx context.Context, record *entity.TriageRecord) (bool, error) {
	args := m.Called(ctx, record)
	return args.Bool(0), args.Error(1)
}

func (m *MockTriageRepository) GetByOrderID(ctx context.Context, orderID string) (*entity.TriageRecord, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.TriageRecord), args.Error(1)
}

func (m *MockTriageRepository) ListByStatus(ctx context.Context, statuses []entity.TriageStatus, limit int) ([]entity.TriageRecord, error) {
	args := m.Called(ctx, statuses, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.TriageRecord), args.Error(1)
}

func (m *MockTriageRepository) EscalateStale(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}
