package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"pharmacart/fulfillment-worker/internal/app/worker/entity"
	"pharmacart/fulfillment-worker/internal/app/worker/repository/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// ===================== ProcessOrderEvent Tests =====================

func TestProcessOrderEvent_RoutesByPharmacy(t *testing.T) {
	placedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		pharmacyID string
		expected   entity.TriageStatus
	}{
		{"resolved pharmacy", "ph-1", entity.TriageRouted},
		{"unresolved pharmacy", "", entity.TriageNeeded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			repo := new(mocks.MockTriageRepository)
			service := NewTriageService(repo, time.Hour)
			ctx := context.Background()

			event := &entity.OrderEvent{
				EventType:    entity.EventTypeOrderCreated,
				OrderID:      "order-1",
				UserID:       "cust-1",
				OrderType:    "cart",
				PharmacyID:   tt.pharmacyID,
				PharmacyName: "Nile Pharmacy",
				TotalPrice:   85,
				ItemsCount:   2,
				Timestamp:    placedAt,
			}

			repo.On("Insert", ctx, mock.MatchedBy(func(r *entity.TriageRecord) bool {
				return r.OrderID == "order-1" &&
					r.Status == tt.expected &&
					r.PharmacyID == tt.pharmacyID &&
					r.TotalPrice == 85 &&
					r.ItemsCount == 2 &&
					r.OrderedAt.Equal(placedAt)
			})).Return(true, nil)

			// Act
			err := service.ProcessOrderEvent(ctx, event)

			// Assert
			assert.NoError(t, err)
			repo.AssertExpectations(t)
		})
	}
}

func TestProcessOrderEvent_MissingTimestampUsesClock(t *testing.T) {
	// Arrange
	repo := new(mocks.MockTriageRepository)
	service := NewTriageService(repo, time.Hour)
	now := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	service.now = fixedClock(now)
	ctx := context.Background()

	repo.On("Insert", ctx, mock.MatchedBy(func(r *entity.TriageRecord) bool {
		return r.OrderedAt.Equal(now)
	})).Return(true, nil)

	// Act
	err := service.ProcessOrderEvent(ctx, &entity.OrderEvent{
		EventType: entity.EventTypeOrderCreated,
		OrderID:   "order-2",
	})

	// Assert
	assert.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestProcessOrderEvent_Duplicate(t *testing.T) {
	// Arrange
	repo := new(mocks.MockTriageRepository)
	service := NewTriageService(repo, time.Hour)
	ctx := context.Background()

	repo.On("Insert", ctx, mock.Anything).Return(false, nil)

	// Act
	err := service.ProcessOrderEvent(ctx, &entity.OrderEvent{
		EventType:  entity.EventTypeOrderCreated,
		OrderID:    "order-1",
		PharmacyID: "ph-1",
	})

	// Assert
	assert.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestProcessOrderEvent_SkipsOtherEvents(t *testing.T) {
	// Arrange
	repo := new(mocks.MockTriageRepository)
	service := NewTriageService(repo, time.Hour)

	// Act
	err := service.ProcessOrderEvent(context.Background(), &entity.OrderEvent{
		EventType: "ORDER_UPDATED",
		OrderID:   "order-1",
	})

	// Assert
	assert.NoError(t, err)
	repo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestProcessOrderEvent_InvalidEvent(t *testing.T) {
	// Arrange
	repo := new(mocks.MockTriageRepository)
	service := NewTriageService(repo, time.Hour)

	// Act
	err := service.ProcessOrderEvent(context.Background(), &entity.OrderEvent{
		EventType: entity.EventTypeOrderCreated,
	})

	// Assert
	assert.ErrorIs(t, err, ErrInvalidEvent)
	repo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestProcessOrderEvent_RepositoryError(t *testing.T) {
	// Arrange
	repo := new(mocks.MockTriageRepository)
	service := NewTriageService(repo, time.Hour)
	ctx := context.Background()

	repo.On("Insert", ctx, mock.Anything).Return(false, errors.New("connection refused"))

	// Act
	err := service.ProcessOrderEvent(ctx, &entity.OrderEvent{
		EventType: entity.EventTypeOrderCreated,
		OrderID:   "order-1",
	})

	// Assert
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "order-1")
	assert.NotErrorIs(t, err, ErrInvalidEvent)
}

// ===================== EscalateStale Tests =====================

func TestEscalateStale_UsesCutoff(t *testing.T) {
	// Arrange
	repo := new(mocks.MockTriageRepository)
	service := NewTriageService(repo, 2*time.Hour)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	service.now = fixedClock(now)
	ctx := context.Background()

	repo.On("EscalateStale", ctx, now.Add(-2*time.Hour)).Return(int64(4), nil)

	// Act
	n, err := service.EscalateStale(ctx)

	// Assert
	assert.NoError(t, err)
	assert.Equal(t, int64(4), n)
	repo.AssertExpectations(t)
}

func TestEscalateStale_Disabled(t *testing.T) {
	// Arrange
	repo := new(mocks.MockTriageRepository)
	service := NewTriageService(repo, 0)

	// Act
	n, err := service.EscalateStale(context.Background())

	// Assert
	assert.NoError(t, err)
	assert.Zero(t, n)
	repo.AssertNotCalled(t, "EscalateStale", mock.Anything, mock.Anything)
}

func TestEscalateStale_Error(t *testing.T) {
	// Arrange
	repo := new(mocks.MockTriageRepository)
	service := NewTriageService(repo, time.Hour)
	ctx := context.Background()

	repo.On("EscalateStale", ctx, mock.Anything).Return(int64(0), errors.New("db down"))

	// Act
	_, err := service.EscalateStale(ctx)

	// Assert
	assert.Error(t, err)
}

// ===================== ListUnrouted Tests =====================

func TestListUnrouted_ClampsLimit(t *testing.T) {
	unrouted := []entity.TriageStatus{entity.TriageNeeded, entity.TriageEscalated}

	tests := []struct {
		name     string
		limit    int
		expected int
	}{
		{"default", 0, defaultListLimit},
		{"within range", 10, 10},
		{"too large", 5000, defaultListLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			repo := new(mocks.MockTriageRepository)
			service := NewTriageService(repo, time.Hour)
			ctx := context.Background()

			records := []entity.TriageRecord{{OrderID: "order-1", Status: entity.TriageNeeded}}
			repo.On("ListByStatus", ctx, unrouted, tt.expected).Return(records, nil)

			// Act
			got, err := service.ListUnrouted(ctx, tt.limit)

			// Assert
			assert.NoError(t, err)
			assert.Equal(t, records, got)
			repo.AssertExpectations(t)
		})
	}
}
