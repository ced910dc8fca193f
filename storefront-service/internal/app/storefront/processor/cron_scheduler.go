package processor

import (
	"context"
	"time"

	"pharmacart/pkg/logger"

	"github.com/robfig/cron/v3"
)

type RatingReconciler interface {
	RecomputeAll(ctx context.Context) (int, error)
}

type DirectoryRefresher interface {
	Refresh(ctx context.Context) (int, error)
}

type SessionEvictor interface {
	EvictIdle(maxIdle time.Duration) int
}

// Schedules - пятипольные cron выражения; пустая строка отключает задачу
type Schedules struct {
	RatingReconcile  string
	DirectoryRefresh string
	SessionEviction  string
	SessionIdleTTL   time.Duration
}

// CronScheduler - периодические задачи витрины
type CronScheduler struct {
	cron      *cron.Cron
	ratings   RatingReconciler
	directory DirectoryRefresher
	sessions  SessionEvictor
}

func NewCronScheduler(ratings RatingReconciler, directory DirectoryRefresher, sessions SessionEvictor) *CronScheduler {
	c := cron.New(cron.WithLogger(cron.PrintfLogger(logger.Logger())))

	return &CronScheduler{
		cron:      c,
		ratings:   ratings,
		directory: directory,
		sessions:  sessions,
	}
}

func (s *CronScheduler) Start(ctx context.Context, schedules Schedules) error {
	jobs := []struct {
		name     string
		schedule string
		run      func()
	}{
		{"rating_reconcile", schedules.RatingReconcile, func() { s.reconcileRatings(ctx) }},
		{"directory_refresh", schedules.DirectoryRefresh, func() { s.refreshDirectory(ctx) }},
		{"session_eviction", schedules.SessionEviction, func() { s.evictSessions(schedules.SessionIdleTTL) }},
	}

	for _, job := range jobs {
		if job.schedule == "" {
			logger.Info().Str("job", job.name).Msg("Cron job disabled")
			continue
		}
		if _, err := s.cron.AddFunc(job.schedule, job.run); err != nil {
			return err
		}
		logger.Info().Str("job", job.name).Str("schedule", job.schedule).Msg("Cron job registered")
	}

	s.cron.Start()
	logger.Info().Int("jobs", len(s.cron.Entries())).Msg("Cron scheduler started")

	// справочник аптек прогреваем сразу, чтобы первая сборка заказа не ходила в хранилище
	s.refreshDirectory(ctx)
	return nil
}

func (s *CronScheduler) Stop() {
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	logger.Info().Msg("Cron scheduler stopped")
}

func (s *CronScheduler) GetEntries() []cron.Entry {
	return s.cron.Entries()
}

func (s *CronScheduler) reconcileRatings(ctx context.Context) {
	start := time.Now()
	n, err := s.ratings.RecomputeAll(ctx)
	if err != nil {
		logger.Error().Err(err).Int("reconciled", n).Msg("Rating reconciliation finished with errors")
		return
	}
	logger.Info().Int("reconciled", n).Dur("duration", time.Since(start)).Msg("Rating reconciliation completed")
}

func (s *CronScheduler) refreshDirectory(ctx context.Context) {
	n, err := s.directory.Refresh(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to refresh pharmacy directory")
		return
	}
	logger.Info().Int("pharmacies", n).Msg("Pharmacy directory refreshed")
}

func (s *CronScheduler) evictSessions(maxIdle time.Duration) {
	if maxIdle <= 0 {
		return
	}
	if n := s.sessions.EvictIdle(maxIdle); n > 0 {
		logger.Info().Int("evicted", n).Msg("Idle sessions evicted")
	}
}
