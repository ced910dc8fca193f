package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pharmacart/fulfillment-worker/internal/app/worker/entity"
	"pharmacart/fulfillment-worker/internal/app/worker/repository"
	"pharmacart/pkg/logger"
	"pharmacart/pkg/metrics"
)

// ErrInvalidEvent - событие без id заказа, повторять его бессмысленно
var ErrInvalidEvent = errors.New("invalid order event")

const defaultListLimit = 100

// TriageService раскладывает созданные заказы по журналу маршрутизации
type TriageService struct {
	repo       repository.TriageRepository
	staleAfter time.Duration
	now        func() time.Time
}

func NewTriageService(repo repository.TriageRepository, staleAfter time.Duration) *TriageService {
	return &TriageService{
		repo:       repo,
		staleAfter: staleAfter,
		now:        time.Now,
	}
}

// ProcessOrderEvent обрабатывает событие из order_events.
// Заказ без pharmacy_id попадает в needs_triage, остальные - в routed.
func (s *TriageService) ProcessOrderEvent(ctx context.Context, event *entity.OrderEvent) error {
	if event.EventType != entity.EventTypeOrderCreated {
		logger.Debug().
			Str("event_type", event.EventType).
			Str("order_id", event.OrderID).
			Msg("Skipping order event")
		return nil
	}
	if event.OrderID == "" {
		return ErrInvalidEvent
	}

	timer := metrics.NewTimer()
	defer func() {
		metrics.WorkerProcessingDuration.Observe(timer.Seconds())
	}()

	record := recordFromEvent(event, s.now())
	created, err := s.repo.Insert(ctx, record)
	if err != nil {
		metrics.WorkerOrdersProcessed.WithLabelValues("failed").Inc()
		return fmt.Errorf("failed to record order %s: %w", event.OrderID, err)
	}
	if !created {
		logger.Info().Str("order_id", event.OrderID).Msg("Order already in triage ledger")
		return nil
	}

	metrics.WorkerOrdersProcessed.WithLabelValues(string(record.Status)).Inc()

	if record.Status == entity.TriageNeeded {
		logger.Warn().
			Str("order_id", record.OrderID).
			Str("pharmacy_name", record.PharmacyName).
			Msg("Order has no resolved pharmacy, needs triage")
	} else {
		logger.Info().
			Str("order_id", record.OrderID).
			Str("pharmacy_id", record.PharmacyID).
			Msg("Order routed")
	}
	return nil
}

func recordFromEvent(event *entity.OrderEvent, now time.Time) *entity.TriageRecord {
	status := entity.TriageRouted
	if event.PharmacyID == "" {
		status = entity.TriageNeeded
	}

	orderedAt := event.Timestamp
	if orderedAt.IsZero() {
		orderedAt = now
	}

	return &entity.TriageRecord{
		OrderID:      event.OrderID,
		UserID:       event.UserID,
		OrderType:    event.OrderType,
		PharmacyID:   event.PharmacyID,
		PharmacyName: event.PharmacyName,
		TotalPrice:   event.TotalPrice,
		ItemsCount:   event.ItemsCount,
		Status:       status,
		OrderedAt:    orderedAt,
	}
}

// EscalateStale - задача cron: needs_triage старше staleAfter уходят в escalated
func (s *TriageService) EscalateStale(ctx context.Context) (int64, error) {
	if s.staleAfter <= 0 {
		return 0, nil
	}

	n, err := s.repo.EscalateStale(ctx, s.now().Add(-s.staleAfter))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		metrics.WorkerTriageEscalations.Add(float64(n))
		logger.Warn().Int64("escalated", n).Msg("Stale triage records escalated")
	}
	return n, nil
}

// ListUnrouted - заказы, ожидающие ручного разбора, старые первыми
func (s *TriageService) ListUnrouted(ctx context.Context, limit int) ([]entity.TriageRecord, error) {
	if limit <= 0 || limit > defaultListLimit {
		limit = defaultListLimit
	}
	return s.repo.ListByStatus(ctx, []entity.TriageStatus{entity.TriageNeeded, entity.TriageEscalated}, limit)
}

func (s *TriageService) Get(ctx context.Context, orderID string) (*entity.TriageRecord, error) {
	return s.repo.GetByOrderID(ctx, orderID)
}
