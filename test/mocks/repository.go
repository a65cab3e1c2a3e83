package mocks

import (
	"context"

	"github.com/aimd54/campus-rewards/internal/models"
	"github.com/aimd54/campus-rewards/internal/repository"
)

// MockUserRepository is a simple mock for user repository
type MockUserRepository struct {
	GetByIDFunc     func(id uint) (*models.User, error)
	LeaderboardFunc func(college string, limit int) ([]models.User, error)
	CountBadgesFunc func(userID uint) (int64, error)
	BadgesFunc      func(userID uint) ([]models.UserBadge, error)
}

func (m *MockUserRepository) GetByID(_ context.Context, id uint) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(id)
	}
	return nil, repository.ErrNotFound
}

func (m *MockUserRepository) Leaderboard(_ context.Context, college string, limit int) ([]models.User, error) {
	if m.LeaderboardFunc != nil {
		return m.LeaderboardFunc(college, limit)
	}
	return []models.User{}, nil
}

func (m *MockUserRepository) CountBadges(_ context.Context, userID uint) (int64, error) {
	if m.CountBadgesFunc != nil {
		return m.CountBadgesFunc(userID)
	}
	return 0, nil
}

func (m *MockUserRepository) Badges(_ context.Context, userID uint) ([]models.UserBadge, error) {
	if m.BadgesFunc != nil {
		return m.BadgesFunc(userID)
	}
	return []models.UserBadge{}, nil
}

// MockClubRepository is a simple mock for club repository
type MockClubRepository struct {
	GetByIDFunc      func(id uint) (*models.Club, error)
	LeaderboardFunc  func(college string, limit int) ([]models.Club, error)
	AchievementsFunc func(clubID uint) ([]models.ClubAchievement, error)
}

func (m *MockClubRepository) GetByID(_ context.Context, id uint) (*models.Club, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(id)
	}
	return nil, repository.ErrNotFound
}

func (m *MockClubRepository) Achievements(_ context.Context, clubID uint) ([]models.ClubAchievement, error) {
	if m.AchievementsFunc != nil {
		return m.AchievementsFunc(clubID)
	}
	return []models.ClubAchievement{}, nil
}

func (m *MockClubRepository) Leaderboard(_ context.Context, college string, limit int) ([]models.Club, error) {
	if m.LeaderboardFunc != nil {
		return m.LeaderboardFunc(college, limit)
	}
	return []models.Club{}, nil
}

// MockChallengeRepository is a simple mock for challenge repository
type MockChallengeRepository struct {
	GetByIDFunc   func(id uint) (*models.Challenge, error)
	StandingsFunc func(challengeID uint, limit int) ([]repository.ChallengeStanding, error)
}

func (m *MockChallengeRepository) GetByID(_ context.Context, id uint) (*models.Challenge, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(id)
	}
	return nil, repository.ErrNotFound
}

func (m *MockChallengeRepository) Standings(_ context.Context, challengeID uint, limit int) ([]repository.ChallengeStanding, error) {
	if m.StandingsFunc != nil {
		return m.StandingsFunc(challengeID, limit)
	}
	return []repository.ChallengeStanding{}, nil
}
