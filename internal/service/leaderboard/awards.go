package leaderboard

import (
	"context"
	"fmt"

	"github.com/aimd54/campus-rewards/internal/models"
)

// UserBadges returns a student's badges, newest first.
func (s *Service) UserBadges(ctx context.Context, userID uint) ([]models.UserBadge, error) {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return nil, notFound(err, "user", userID)
	}
	badges, err := s.userRepo.Badges(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get badges: %w", err)
	}
	return badges, nil
}

// ClubAchievements returns a club's achievements, newest first.
func (s *Service) ClubAchievements(ctx context.Context, clubID uint) ([]models.ClubAchievement, error) {
	if _, err := s.clubRepo.GetByID(ctx, clubID); err != nil {
		return nil, notFound(err, "club", clubID)
	}
	achievements, err := s.clubRepo.Achievements(ctx, clubID)
	if err != nil {
		return nil, fmt.Errorf("failed to get achievements: %w", err)
	}
	return achievements, nil
}
