package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pharmacart/fulfillment-worker/internal/app/worker/entity"
	"pharmacart/pkg/metrics"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	serviceName = "fulfillment-worker"
	triageTable = "order_triage"
)

type triageRepository struct {
	db *gorm.DB
}

func NewTriageRepository(db *gorm.DB) TriageRepository {
	return &triageRepository{db: db}
}

// Insert пишет запись через INSERT ... ON CONFLICT DO NOTHING.
// Эскалированная запись не откатывается повторным событием.
func (r *triageRepository) Insert(ctx context.Context, record *entity.TriageRecord) (bool, error) {
	timer := metrics.NewDbTimer(serviceName, metrics.DbOpInsert, triageTable)

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "order_id"}},
			DoNothing: true,
		}).
		Create(record)
	timer.Done(result.Error)

	if result.Error != nil {
		return false, fmt.Errorf("failed to insert triage record: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *triageRepository) GetByOrderID(ctx context.Context, orderID string) (*entity.TriageRecord, error) {
	timer := metrics.NewDbTimer(serviceName, metrics.DbOpSelect, triageTable)

	var record entity.TriageRecord
	result := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&record)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		timer.Done(nil)
		return nil, ErrRecordNotFound
	}
	timer.Done(result.Error)

	if result.Error != nil {
		return nil, fmt.Errorf("failed to get triage record: %w", result.Error)
	}
	return &record, nil
}

func (r *triageRepository) ListByStatus(ctx context.Context, statuses []entity.TriageStatus, limit int) ([]entity.TriageRecord, error) {
	timer := metrics.NewDbTimer(serviceName, metrics.DbOpSelect, triageTable)

	query := r.db.WithContext(ctx).
		Where("status IN ?", statuses).
		Order("ordered_at")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var records []entity.TriageRecord
	result := query.Find(&records)
	timer.Done(result.Error)

	if result.Error != nil {
		return nil, fmt.Errorf("failed to list triage records: %w", result.Error)
	}
	return records, nil
}

func (r *triageRepository) EscalateStale(ctx context.Context, before time.Time) (int64, error) {
	timer := metrics.NewDbTimer(serviceName, metrics.DbOpUpdate, triageTable)

	result := r.db.WithContext(ctx).
		Model(&entity.TriageRecord{}).
		Where("status = ? AND ordered_at < ?", entity.TriageNeeded, before).
		Updates(map[string]interface{}{
			"status":     entity.TriageEscalated,
			"updated_at": time.Now(),
		})
	timer.Done(result.Error)

	if result.Error != nil {
		return 0, fmt.Errorf("failed to escalate stale triage records: %w", result.Error)
	}
	return result.RowsAffected, nil
}
