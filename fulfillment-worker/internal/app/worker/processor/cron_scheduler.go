package processor

import (
	"context"

	"pharmacart/pkg/logger"

	"github.com/robfig/cron/v3"
)

// TriageEscalator - задача эскалации залежавшихся заказов
type TriageEscalator interface {
	EscalateStale(ctx context.Context) (int64, error)
}

type CronScheduler struct {
	cron      *cron.Cron
	escalator TriageEscalator
}

func NewCronScheduler(escalator TriageEscalator) *CronScheduler {
	c := cron.New(cron.WithLogger(cron.PrintfLogger(logger.Logger())))

	return &CronScheduler{
		cron:      c,
		escalator: escalator,
	}
}

// Start регистрирует эскалацию по пятипольному расписанию и сразу выполняет ее один раз
func (s *CronScheduler) Start(ctx context.Context, schedule string) error {
	logger.Info().Str("schedule", schedule).Msg("Starting cron scheduler")

	if _, err := s.cron.AddFunc(schedule, func() { s.escalate(ctx) }); err != nil {
		return err
	}

	s.cron.Start()
	s.escalate(ctx)
	return nil
}

func (s *CronScheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info().Msg("Cron scheduler stopped")
}

func (s *CronScheduler) Entries() []cron.Entry {
	return s.cron.Entries()
}

func (s *CronScheduler) escalate(ctx context.Context) {
	n, err := s.escalator.EscalateStale(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to escalate stale triage records")
		return
	}
	logger.Debug().Int64("escalated", n).Msg("Triage escalation completed")
}
