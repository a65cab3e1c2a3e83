// Package reset ranks the closing period, issues rank badges and achievements
// and zeroes the period counters.
package reset

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/aimd54/campus-rewards/internal/mattermost"
	prommetrics "github.com/aimd54/campus-rewards/internal/metrics"
	"github.com/aimd54/campus-rewards/internal/models"
	"github.com/aimd54/campus-rewards/internal/repository"
	"github.com/aimd54/campus-rewards/internal/service/rewards"
	"github.com/aimd54/campus-rewards/pkg/logger"
)

// TopN is the number of ranked subjects per college or club.
const TopN = 3

// ErrLocked is returned when another replica holds the lock for the period.
var ErrLocked = errors.New("reset already running for this period")

// Locker is the subset of the cache used for job locks.
type Locker interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error)
	Release(ctx context.Context, key, token string) (bool, error)
}

// Announcer publishes reset winners.
type Announcer interface {
	SendWeeklyWinners(ctx context.Context, week string, winners []mattermost.Winner) error
	SendMonthlyWinners(ctx context.Context, month string, winners []mattermost.Winner) error
}

// Report describes one reset run.
type Report struct {
	Job            string              `json:"job"`
	PeriodKey      string              `json:"period_key"`
	PeriodStart    time.Time           `json:"period_start"`
	Awards         int                 `json:"awards"`
	ClubAwards     int                 `json:"club_awards,omitempty"`
	SubjectsReset  int64               `json:"subjects_reset"`
	ClosedManually bool                `json:"closed_manually,omitempty"`
	Winners        []mattermost.Winner `json:"-"`
}

// Service runs the weekly and monthly resets.
type Service struct {
	db        *repository.DB
	users     *repository.UserRepository
	clubs     *repository.ClubRepository
	periods   *repository.PeriodRepository
	locker    Locker
	announcer Announcer
	loc       *time.Location
	lockTTL   time.Duration
	log       *logger.Logger
}

// NewService creates a new reset service. locker and announcer may be nil.
func NewService(
	db *repository.DB,
	repos *repository.Repositories,
	locker Locker,
	announcer Announcer,
	loc *time.Location,
	lockTTL time.Duration,
	log *logger.Logger,
) *Service {
	if loc == nil {
		loc = time.UTC
	}
	if lockTTL <= 0 {
		lockTTL = 30 * time.Minute
	}
	return &Service{
		db:        db,
		users:     repos.Users,
		clubs:     repos.Clubs,
		periods:   repos.Periods,
		locker:    locker,
		announcer: announcer,
		loc:       loc,
		lockTTL:   lockTTL,
		log:       log,
	}
}

// RunWeekly closes the week that ended at the last Monday boundary: the top
// students of every college get a rank badge, then weekly XP is zeroed for
// every user. A week already closed by RunWeeklyManual keeps its badges; only
// the XP earned since is zeroed.
func (s *Service) RunWeekly(ctx context.Context, now time.Time) (*Report, error) {
	weekStart := ClosedWeek(now, s.loc)
	key := WeekKey(weekStart)
	return s.run(ctx, models.JobWeekly, key, weekStart, now, false, func(tx *repository.DB, r *Report) error {
		closed, err := s.periods.WithTx(tx).HasRun(ctx, models.JobWeeklyManual, key)
		if err != nil {
			return err
		}
		if closed {
			r.ClosedManually = true
			n, err := s.users.WithTx(tx).ResetWeeklyXP(ctx)
			if err != nil {
				return err
			}
			r.SubjectsReset = n
			s.log.Info().Str("period", key).Msg("Week was closed manually, skipping awards")
			return nil
		}
		return s.weeklyPass(ctx, tx, r, weekStart, now, false)
	})
}

// RunWeeklyManual closes the current week early. In addition to the college
// ranking it ranks each club's members. force reruns a week that was already
// closed manually.
func (s *Service) RunWeeklyManual(ctx context.Context, now time.Time, force bool) (*Report, error) {
	weekStart := WeekStart(now, s.loc)
	return s.run(ctx, models.JobWeeklyManual, WeekKey(weekStart), weekStart, now, force, func(tx *repository.DB, r *Report) error {
		return s.weeklyPass(ctx, tx, r, weekStart, now, true)
	})
}

// RunMonthly closes the month that ended at the last month boundary: the top
// clubs of every college get an achievement, then monthly points are zeroed
// for every club.
func (s *Service) RunMonthly(ctx context.Context, now time.Time) (*Report, error) {
	monthStart := ClosedMonth(now, s.loc)
	return s.run(ctx, models.JobMonthly, MonthKey(monthStart), monthStart, now, false, func(tx *repository.DB, r *Report) error {
		return s.monthlyPass(ctx, tx, r, monthStart, now)
	})
}

// History returns the most recent runs of a job, newest first.
func (s *Service) History(ctx context.Context, job string, limit int) ([]models.PeriodRun, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.periods.Latest(ctx, job, limit)
}

// run wraps one pass with the lock, the period marker and metrics. The pass,
// the global zero-out and the marker commit together.
func (s *Service) run(
	ctx context.Context,
	job, key string,
	periodStart, now time.Time,
	force bool,
	pass func(tx *repository.DB, r *Report) error,
) (*Report, error) {
	start := time.Now()
	defer func() {
		prommetrics.ObserveResetJobDuration(job, time.Since(start).Seconds())
	}()

	report := &Report{Job: job, PeriodKey: key, PeriodStart: periodStart}

	if !force {
		done, err := s.periods.HasRun(ctx, job, key)
		if err != nil {
			prommetrics.RecordResetJobRun(job, "error")
			return nil, err
		}
		if done {
			prommetrics.RecordResetJobRun(job, "skipped")
			return nil, fmt.Errorf("%s %s: %w", job, key, rewards.ErrPeriodAlreadyProcessed)
		}
	}

	release, err := s.lock(ctx, job, key)
	if err != nil {
		prommetrics.RecordResetJobRun(job, "locked")
		return nil, err
	}
	defer release()

	err = s.db.Transaction(ctx, func(tx *repository.DB) error {
		if err := pass(tx, report); err != nil {
			return err
		}
		run := &models.PeriodRun{
			Job:           job,
			PeriodKey:     key,
			AwardsIssued:  report.Awards + report.ClubAwards,
			SubjectsReset: report.SubjectsReset,
			RanAt:         now,
		}
		periods := s.periods.WithTx(tx)
		if force {
			return periods.Replace(ctx, run)
		}
		if err := periods.Record(ctx, run); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return fmt.Errorf("%s %s: %w", job, key, rewards.ErrPeriodAlreadyProcessed)
			}
			return err
		}
		return nil
	})
	if err != nil {
		status := "error"
		if errors.Is(err, rewards.ErrPeriodAlreadyProcessed) {
			status = "skipped"
		}
		prommetrics.RecordResetJobRun(job, status)
		s.log.Error().Err(err).Str("job", job).Str("period", key).Msg("Reset failed, nothing was changed")
		return nil, err
	}

	prommetrics.RecordResetJobRun(job, "success")
	prommetrics.SetResetJobLastRun(job)
	prommetrics.SetResetSubjectsReset(job, report.SubjectsReset)

	s.announce(ctx, report)

	s.log.Info().
		Str("job", job).
		Str("period", key).
		Int("awards", report.Awards).
		Int("club_awards", report.ClubAwards).
		Int64("subjects_reset", report.SubjectsReset).
		Bool("force", force).
		Msg("Reset completed")
	return report, nil
}

// LockKey is the cache key guarding one job and period.
func LockKey(job, periodKey string) string {
	return fmt.Sprintf("campus-rewards:lock:reset:%s:%s", job, periodKey)
}

func (s *Service) lock(ctx context.Context, job, key string) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}
	lockKey := LockKey(job, key)
	token := uuid.NewString()
	ok, err := s.locker.SetNX(ctx, lockKey, token, s.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire reset lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%s %s: %w", job, key, ErrLocked)
	}
	return func() {
		released, err := s.locker.Release(context.Background(), lockKey, token)
		if err != nil {
			s.log.Warn().Err(err).Str("key", lockKey).Msg("Failed to release reset lock")
			return
		}
		if !released {
			s.log.Warn().Str("key", lockKey).Dur("ttl", s.lockTTL).Msg("Reset lock expired before the run finished")
		}
	}, nil
}

func (s *Service) weeklyPass(ctx context.Context, tx *repository.DB, r *Report, weekStart, now time.Time, perClub bool) error {
	users := s.users.WithTx(tx)
	_, week := weekStart.ISOWeek()

	colleges, err := users.CollegeKeys(ctx)
	if err != nil {
		return err
	}

	var badges []models.UserBadge
	for _, college := range colleges {
		top, err := users.TopByWeeklyXP(ctx, college, TopN)
		if err != nil {
			return err
		}
		for i, u := range top {
			rank := i + 1
			badges = append(badges, models.UserBadge{
				UserID:      u.ID,
				Kind:        models.BadgeKindWeeklyRank,
				Name:        fmt.Sprintf("Week %d - Rank %d", week, rank),
				Icon:        Medal(rank),
				Description: fmt.Sprintf("Ranked #%d in %s with %d XP", rank, u.College, u.WeeklyXP),
				Rank:        intPtr(rank),
				WeekStart:   timePtr(weekStart),
				EarnedAt:    now,
			})
			r.Winners = append(r.Winners, mattermost.Winner{College: u.College, Rank: rank, Name: u.Username, Score: u.WeeklyXP})
		}
	}
	r.Awards = len(badges)

	if perClub {
		clubBadges, err := s.clubPass(ctx, tx, weekStart, week, now)
		if err != nil {
			return err
		}
		r.ClubAwards = len(clubBadges)
		badges = append(badges, clubBadges...)
	}

	if err := users.AddBadges(ctx, badges); err != nil {
		return err
	}

	n, err := users.ResetWeeklyXP(ctx)
	if err != nil {
		return err
	}
	r.SubjectsReset = n

	prommetrics.RecordBadgesAwarded(models.BadgeKindWeeklyRank, r.Awards)
	if perClub {
		prommetrics.RecordBadgesAwarded(models.BadgeKindClubWeeklyRank, r.ClubAwards)
	}
	return nil
}

func (s *Service) clubPass(ctx context.Context, tx *repository.DB, weekStart time.Time, week int, now time.Time) ([]models.UserBadge, error) {
	clubs := s.clubs.WithTx(tx)
	ids, err := clubs.ListIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list clubs: %w", err)
	}

	var badges []models.UserBadge
	for _, id := range ids {
		top, err := clubs.TopMembersByWeeklyXP(ctx, id, TopN)
		if err != nil {
			return nil, err
		}
		for i, u := range top {
			rank := i + 1
			badges = append(badges, models.UserBadge{
				UserID:      u.ID,
				Kind:        models.BadgeKindClubWeeklyRank,
				Name:        fmt.Sprintf("Club Week %d - Rank %d", week, rank),
				Icon:        Medal(rank),
				Description: fmt.Sprintf("Ranked #%d in the club with %d XP", rank, u.WeeklyXP),
				ClubID:      uintPtr(id),
				Rank:        intPtr(rank),
				WeekStart:   timePtr(weekStart),
				EarnedAt:    now,
			})
		}
	}
	return badges, nil
}

func (s *Service) monthlyPass(ctx context.Context, tx *repository.DB, r *Report, monthStart, now time.Time) error {
	clubs := s.clubs.WithTx(tx)
	month := monthStart.Format("January 2006")

	colleges, err := clubs.CollegeKeys(ctx)
	if err != nil {
		return err
	}

	var achievements []models.ClubAchievement
	for _, college := range colleges {
		top, err := clubs.TopByMonthlyPoints(ctx, college, TopN)
		if err != nil {
			return err
		}
		for i, c := range top {
			rank := i + 1
			achievements = append(achievements, models.ClubAchievement{
				ClubID:      c.ID,
				Title:       fmt.Sprintf("%s - Rank %d", month, rank),
				Icon:        Medal(rank),
				Description: fmt.Sprintf("Ranked #%d in %s with %d points", rank, c.College, c.MonthlyPoints),
				Rank:        intPtr(rank),
				PeriodStart: timePtr(monthStart),
				EarnedAt:    now,
			})
			r.Winners = append(r.Winners, mattermost.Winner{College: c.College, Rank: rank, Name: c.Name, Score: c.MonthlyPoints})
		}
	}

	if err := clubs.AddAchievements(ctx, achievements); err != nil {
		return err
	}
	r.Awards = len(achievements)

	n, err := clubs.ResetMonthlyPoints(ctx)
	if err != nil {
		return err
	}
	r.SubjectsReset = n

	prommetrics.RecordAchievementsAwarded(r.Awards)
	return nil
}

func (s *Service) announce(ctx context.Context, r *Report) {
	if s.announcer == nil || len(r.Winners) == 0 {
		return
	}

	var err error
	switch r.Job {
	case models.JobMonthly:
		err = s.announcer.SendMonthlyWinners(ctx, r.PeriodStart.Format("January 2006"), r.Winners)
	default:
		_, week := r.PeriodStart.ISOWeek()
		err = s.announcer.SendWeeklyWinners(ctx, fmt.Sprintf("Week %d", week), r.Winners)
	}
	if err != nil {
		prommetrics.RecordAnnouncement("error")
		s.log.Warn().Err(err).Str("job", r.Job).Str("period", r.PeriodKey).Msg("Failed to announce reset winners")
		return
	}
	prommetrics.RecordAnnouncement("success")
}

// Medal returns the icon for a rank.
func Medal(rank int) string {
	switch rank {
	case 1:
		return "🥇"
	case 2:
		return "🥈"
	case 3:
		return "🥉"
	}
	return "🏅"
}

func intPtr(v int) *int {
	return &v
}

func uintPtr(v uint) *uint {
	return &v
}

func timePtr(t time.Time) *time.Time {
	return &t
}
