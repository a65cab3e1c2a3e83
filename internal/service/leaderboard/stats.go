package leaderboard

import (
	"context"

	"github.com/aimd54/campus-rewards/internal/service/levels"
)

// Standing is a student's balances and level progress.
type Standing struct {
	UserID     uint            `json:"user_id"`
	Username   string          `json:"username"`
	College    string          `json:"college"`
	Points     int64           `json:"points"`
	WeeklyXP   int64           `json:"weekly_xp"`
	Progress   levels.Progress `json:"progress"`
	BadgeCount int64           `json:"badge_count"`
}

// UserStanding returns a student's balances, level progress and badge count.
func (s *Service) UserStanding(ctx context.Context, userID uint) (*Standing, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, notFound(err, "user", userID)
	}

	standing := &Standing{
		UserID:   user.ID,
		Username: user.Username,
		College:  user.College,
		Points:   user.Points,
		WeeklyXP: user.WeeklyXP,
		Progress: s.levels.Progress(user.TotalEarnedXP),
	}

	count, err := s.userRepo.CountBadges(ctx, userID)
	if err != nil {
		s.log.Warn().Err(err).Uint("user_id", userID).Msg("Failed to get badge count")
	} else {
		standing.BadgeCount = count
	}

	return standing, nil
}
