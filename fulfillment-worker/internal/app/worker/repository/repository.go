package repository

import (
	"context"
	"errors"
	"time"

	"pharmacart/fulfillment-worker/internal/app/worker/entity"
)

var ErrRecordNotFound = errors.New("triage record not found")

// TriageRepository - журнал маршрутизации заказов в PostgreSQL
type TriageRepository interface {
	// Insert добавляет запись; повторная доставка того же заказа ничего не меняет
	Insert(ctx context.Context, record *entity.TriageRecord) (bool, error)

	GetByOrderID(ctx context.Context, orderID string) (*entity.TriageRecord, error)

	// ListByStatus - записи в порядке поступления заказов
	ListByStatus(ctx context.Context, statuses []entity.TriageStatus, limit int) ([]entity.TriageRecord, error)

	// EscalateStale переводит needs_triage старше before в escalated
	EscalateStale(ctx context.Context, before time.Time) (int64, error)
}
