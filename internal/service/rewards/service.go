// Package rewards dispatches the balance changes that follow verifiable campus
// actions: joining and grading challenges, completing events, reviewing tasks,
// voting in polls, daily logins and project approvals.
package rewards

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aimd54/campus-rewards/internal/config"
	prommetrics "github.com/aimd54/campus-rewards/internal/metrics"
	"github.com/aimd54/campus-rewards/internal/repository"
	"github.com/aimd54/campus-rewards/internal/service/ledger"
	"github.com/aimd54/campus-rewards/pkg/logger"
)

// Service handles reward dispatch.
type Service struct {
	db         *repository.DB
	ledger     *ledger.Service
	users      *repository.UserRepository
	clubs      *repository.ClubRepository
	events     *repository.EventRepository
	challenges *repository.ChallengeRepository
	tasks      *repository.TaskRepository
	polls      *repository.PollRepository
	projects   *repository.ProjectRepository
	notifier   Notifier
	cfg        config.RewardsConfig
	loc        *time.Location
	now        func() time.Time
	newCode    func() string
	log        *logger.Logger
}

// Option customizes a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithNotifier overrides the notification sink.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithCodeGenerator overrides join code generation.
func WithCodeGenerator(gen func() string) Option {
	return func(s *Service) { s.newCode = gen }
}

// NewService creates a new reward dispatcher. loc defines calendar days for the
// daily login reward.
func NewService(
	db *repository.DB,
	repos *repository.Repositories,
	ledgerSvc *ledger.Service,
	cfg config.RewardsConfig,
	loc *time.Location,
	log *logger.Logger,
	opts ...Option,
) *Service {
	if loc == nil {
		loc = time.UTC
	}
	s := &Service{
		db:         db,
		ledger:     ledgerSvc,
		users:      repos.Users,
		clubs:      repos.Clubs,
		events:     repos.Events,
		challenges: repos.Challenges,
		tasks:      repos.Tasks,
		polls:      repos.Polls,
		projects:   repos.Projects,
		notifier:   NewStoreNotifier(repos.Users),
		cfg:        cfg,
		loc:        loc,
		now:        time.Now,
		newCode:    NewJoinCode,
		log:        log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewJoinCode returns an 8 character upper-case code.
func NewJoinCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// stepFailed records a failed step of a best-effort sequence. Callers add
// subject fields and send the event.
func (s *Service) stepFailed(operation, step string, err error) *zerolog.Event {
	prommetrics.RecordPartialFailure(operation, step)
	return s.log.Error().
		Err(err).
		Str("operation", operation).
		Str("step", step)
}

func (s *Service) notify(ctx context.Context, userID uint, title, message string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, userID, title, message); err != nil {
		s.log.Warn().
			Err(err).
			Uint("user_id", userID).
			Str("title", title).
			Msg("Failed to queue notification")
	}
}

func (s *Service) done(action string, err error) error {
	status := "success"
	if err != nil {
		status = "rejected"
	}
	prommetrics.RecordAction(action, status)
	return err
}

func uintPtr(v uint) *uint {
	return &v
}
