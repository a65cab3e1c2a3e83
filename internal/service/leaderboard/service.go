// Package leaderboard provides leaderboard and ranking reads. Nothing here is
// materialized: every call ranks the live counters.
package leaderboard

import (
	"context"
	"errors"
	"fmt"

	"github.com/aimd54/campus-rewards/internal/config"
	"github.com/aimd54/campus-rewards/internal/models"
	"github.com/aimd54/campus-rewards/internal/repository"
	"github.com/aimd54/campus-rewards/internal/service/levels"
	"github.com/aimd54/campus-rewards/internal/service/rewards"
	"github.com/aimd54/campus-rewards/pkg/logger"
)

// UserRepository interface for user operations.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	Leaderboard(ctx context.Context, college string, limit int) ([]models.User, error)
	CountBadges(ctx context.Context, userID uint) (int64, error)
	Badges(ctx context.Context, userID uint) ([]models.UserBadge, error)
}

// ClubRepository interface for club operations.
type ClubRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Club, error)
	Leaderboard(ctx context.Context, college string, limit int) ([]models.Club, error)
	Achievements(ctx context.Context, clubID uint) ([]models.ClubAchievement, error)
}

// ChallengeRepository interface for challenge operations.
type ChallengeRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Challenge, error)
	Standings(ctx context.Context, challengeID uint, limit int) ([]repository.ChallengeStanding, error)
}

// Viewer is the caller a leaderboard is rendered for.
type Viewer struct {
	UserID  uint
	College string
	Role    string
}

// Privileged reports whether the viewer sees every college.
func (v Viewer) Privileged() bool {
	return v.Role == models.RoleAdmin
}

// UserEntry is one row of the student leaderboard.
type UserEntry struct {
	Rank     int    `json:"rank"`
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	College  string `json:"college"`
	WeeklyXP int64  `json:"weekly_xp"`
	Level    int    `json:"level"`
}

// ClubEntry is one row of the club leaderboard.
type ClubEntry struct {
	Rank          int    `json:"rank"`
	ClubID        uint   `json:"club_id"`
	Name          string `json:"name"`
	College       string `json:"college"`
	MonthlyPoints int64  `json:"monthly_points"`
}

// ChallengeEntry is one row of a challenge leaderboard.
type ChallengeEntry struct {
	Rank int `json:"rank"`
	repository.ChallengeStanding
}

// Service handles leaderboard generation and user standings.
type Service struct {
	userRepo      UserRepository
	clubRepo      ClubRepository
	challengeRepo ChallengeRepository
	levels        *levels.Calculator
	limits        config.LeaderboardConfig
	log           *logger.Logger
}

// NewService creates a new leaderboard service with concrete repository types.
func NewService(
	repos *repository.Repositories,
	calc *levels.Calculator,
	limits config.LeaderboardConfig,
	log *logger.Logger,
) *Service {
	return NewServiceWithInterfaces(repos.Users, repos.Clubs, repos.Challenges, calc, limits, log)
}

// NewServiceWithInterfaces creates a new leaderboard service with interface dependencies (useful for testing).
func NewServiceWithInterfaces(
	userRepo UserRepository,
	clubRepo ClubRepository,
	challengeRepo ChallengeRepository,
	calc *levels.Calculator,
	limits config.LeaderboardConfig,
	log *logger.Logger,
) *Service {
	if limits.DefaultLimit <= 0 {
		limits.DefaultLimit = 10
	}
	if limits.MaxLimit < limits.DefaultLimit {
		limits.MaxLimit = limits.DefaultLimit
	}
	return &Service{
		userRepo:      userRepo,
		clubRepo:      clubRepo,
		challengeRepo: challengeRepo,
		levels:        calc,
		limits:        limits,
		log:           log,
	}
}

// UserLeaderboard ranks students by weekly XP within the viewer's college bubble.
func (s *Service) UserLeaderboard(ctx context.Context, viewer Viewer, limit int) ([]UserEntry, error) {
	key, ok := s.bubble(viewer)
	if !ok {
		return []UserEntry{}, nil
	}

	users, err := s.userRepo.Leaderboard(ctx, key, s.clamp(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to get user leaderboard: %w", err)
	}

	entries := make([]UserEntry, 0, len(users))
	for i, u := range users {
		entries = append(entries, UserEntry{
			Rank:     i + 1,
			UserID:   u.ID,
			Username: u.Username,
			College:  u.College,
			WeeklyXP: u.WeeklyXP,
			Level:    u.Level,
		})
	}
	return entries, nil
}

// ClubLeaderboard ranks clubs by monthly points within the viewer's college bubble.
func (s *Service) ClubLeaderboard(ctx context.Context, viewer Viewer, limit int) ([]ClubEntry, error) {
	key, ok := s.bubble(viewer)
	if !ok {
		return []ClubEntry{}, nil
	}

	clubs, err := s.clubRepo.Leaderboard(ctx, key, s.clamp(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to get club leaderboard: %w", err)
	}

	entries := make([]ClubEntry, 0, len(clubs))
	for i, c := range clubs {
		entries = append(entries, ClubEntry{
			Rank:          i + 1,
			ClubID:        c.ID,
			Name:          c.Name,
			College:       c.College,
			MonthlyPoints: c.MonthlyPoints,
		})
	}
	return entries, nil
}

// ChallengeLeaderboard ranks approved submissions by marks, earlier submissions first on ties.
func (s *Service) ChallengeLeaderboard(ctx context.Context, challengeID uint, limit int) ([]ChallengeEntry, error) {
	if _, err := s.challengeRepo.GetByID(ctx, challengeID); err != nil {
		return nil, notFound(err, "challenge", challengeID)
	}

	standings, err := s.challengeRepo.Standings(ctx, challengeID, s.clamp(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to get challenge leaderboard: %w", err)
	}

	entries := make([]ChallengeEntry, 0, len(standings))
	for i, st := range standings {
		entries = append(entries, ChallengeEntry{Rank: i + 1, ChallengeStanding: st})
	}
	return entries, nil
}

// bubble returns the college to filter on. Privileged viewers get the empty
// college, meaning every college. A regular viewer without a college has no
// bubble and sees nothing.
func (s *Service) bubble(viewer Viewer) (string, bool) {
	if viewer.Privileged() {
		return "", true
	}
	college := models.TrimCollege(viewer.College)
	return college, college != ""
}

func (s *Service) clamp(limit int) int {
	if limit <= 0 {
		return s.limits.DefaultLimit
	}
	if limit > s.limits.MaxLimit {
		return s.limits.MaxLimit
	}
	return limit
}

func notFound(err error, what string, id uint) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%s %d: %w", what, id, rewards.ErrNotFound)
	}
	return fmt.Errorf("failed to get %s %d: %w", what, id, err)
}
