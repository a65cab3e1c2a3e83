// Package scheduler fires the weekly and monthly period resets on cron schedules.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/aimd54/campus-rewards/internal/config"
	"github.com/aimd54/campus-rewards/internal/service/reset"
	"github.com/aimd54/campus-rewards/internal/service/rewards"
	"github.com/aimd54/campus-rewards/pkg/logger"
)

// Resetter runs the period resets.
type Resetter interface {
	RunWeekly(ctx context.Context, now time.Time) (*reset.Report, error)
	RunMonthly(ctx context.Context, now time.Time) (*reset.Report, error)
}

// Service handles reset scheduling.
type Service struct {
	config   *config.SchedulerConfig
	resetter Resetter
	log      *logger.Logger
	cron     *cron.Cron
	now      func() time.Time
}

// NewService creates a new scheduler service.
func NewService(cfg *config.SchedulerConfig, resetter Resetter, log *logger.Logger) *Service {
	return &Service{
		config:   cfg,
		resetter: resetter,
		log:      log,
		now:      time.Now,
	}
}

// Start validates both schedules and starts the cron scheduler.
func (s *Service) Start() error {
	if !s.config.Enabled {
		s.log.Info().Msg("Scheduler is disabled in configuration")
		return nil
	}

	location, err := s.config.GetLocation()
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", s.config.Timezone, err)
	}

	for _, expr := range []string{s.config.Weekly, s.config.Monthly} {
		if err := validateSchedule(expr); err != nil {
			return err
		}
	}

	s.cron = cron.New(cron.WithLocation(location))

	if _, err := s.cron.AddFunc(s.config.Weekly, func() {
		s.runWeekly(context.Background())
	}); err != nil {
		return fmt.Errorf("failed to register weekly reset job: %w", err)
	}

	if _, err := s.cron.AddFunc(s.config.Monthly, func() {
		s.runMonthly(context.Background())
	}); err != nil {
		return fmt.Errorf("failed to register monthly reset job: %w", err)
	}

	s.cron.Start()

	entries := s.cron.Entries()
	s.log.Info().
		Str("weekly", s.config.Weekly).
		Str("monthly", s.config.Monthly).
		Str("timezone", s.config.Timezone).
		Str("next_weekly", entries[0].Next.Format(time.RFC3339)).
		Str("next_monthly", entries[1].Next.Format(time.RFC3339)).
		Msg("Scheduler started successfully")

	return nil
}

// Stop gracefully shuts down the scheduler, waiting for a running reset.
func (s *Service) Stop() {
	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
		s.log.Info().Msg("Scheduler stopped")
	}
}

// Entries returns the number of registered jobs.
func (s *Service) Entries() int {
	if s.cron == nil {
		return 0
	}
	return len(s.cron.Entries())
}

// validateSchedule checks a standard five-field cron expression.
func validateSchedule(expr string) error {
	if expr == "" {
		return errors.New("empty cron expression")
	}
	if _, err := cron.ParseStandard(expr); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return nil
}

func (s *Service) runWeekly(ctx context.Context) {
	s.log.Info().Msg("Running weekly reset job")
	report, err := s.resetter.RunWeekly(ctx, s.now())
	s.logResult("weekly", report, err)
}

func (s *Service) runMonthly(ctx context.Context) {
	s.log.Info().Msg("Running monthly reset job")
	report, err := s.resetter.RunMonthly(ctx, s.now())
	s.logResult("monthly", report, err)
}

// logResult treats an already closed or locked period as a skip, not a failure.
func (s *Service) logResult(job string, report *reset.Report, err error) {
	switch {
	case err == nil:
		s.log.Info().
			Str("job", job).
			Str("period", report.PeriodKey).
			Int("awards", report.Awards).
			Msg("Scheduled reset completed")
	case errors.Is(err, rewards.ErrPeriodAlreadyProcessed), errors.Is(err, reset.ErrLocked):
		s.log.Info().Err(err).Str("job", job).Msg("Scheduled reset skipped")
	default:
		s.log.Error().Err(err).Str("job", job).Msg("Scheduled reset failed")
	}
}
