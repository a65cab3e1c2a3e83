package repository

import (
	"context"
	"fmt"

	"github.com/aimd54/campus-rewards/internal/models"
)

// ClubRepository handles club-related database operations.
type ClubRepository struct {
	db *DB
}

// NewClubRepository creates a new club repository.
func NewClubRepository(db *DB) *ClubRepository {
	return &ClubRepository{db: db}
}

// WithTx returns a copy bound to an open transaction.
func (r *ClubRepository) WithTx(tx *DB) *ClubRepository {
	return &ClubRepository{db: tx}
}

// Create creates a new club.
func (r *ClubRepository) Create(ctx context.Context, club *models.Club) error {
	if err := r.db.WithContext(ctx).Create(club).Error; err != nil {
		return fmt.Errorf("failed to create club: %w", translate(err))
	}
	return nil
}

// GetByID retrieves a club by ID.
func (r *ClubRepository) GetByID(ctx context.Context, id uint) (*models.Club, error) {
	var club models.Club
	if err := r.db.WithContext(ctx).First(&club, id).Error; err != nil {
		return nil, fmt.Errorf("failed to get club by id %d: %w", id, translate(err))
	}
	return &club, nil
}

// AddMember adds a user to a club roster.
func (r *ClubRepository) AddMember(ctx context.Context, member *models.ClubMember) error {
	if err := r.db.WithContext(ctx).Create(member).Error; err != nil {
		return fmt.Errorf("failed to add club member: %w", translate(err))
	}
	return nil
}

// ListIDs returns every club id.
func (r *ClubRepository) ListIDs(ctx context.Context) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.Club{}).Order("id ASC").Pluck("id", &ids).Error
	return ids, err
}

// Leaderboard returns clubs ordered by monthly points. An empty college means all colleges.
func (r *ClubRepository) Leaderboard(ctx context.Context, college string, limit int) ([]models.Club, error) {
	query := r.db.WithContext(ctx).Model(&models.Club{})
	if college != "" {
		query = query.Where(collegeKeyExpr+" = "+collegeKeyArg, college)
	}
	var clubs []models.Club
	if err := query.Order("monthly_points DESC, id ASC").Limit(limit).Find(&clubs).Error; err != nil {
		return nil, fmt.Errorf("failed to load club leaderboard: %w", err)
	}
	return clubs, nil
}

// CollegeKeys lists the distinct normalized colleges that have clubs.
func (r *ClubRepository) CollegeKeys(ctx context.Context) ([]string, error) {
	var keys []string
	err := r.db.WithContext(ctx).
		Raw("SELECT DISTINCT " + collegeKeyExpr + " AS college_key FROM clubs WHERE " + collegeKeyExpr + " <> '' ORDER BY college_key").
		Scan(&keys).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list club colleges: %w", err)
	}
	return keys, nil
}

// TopByMonthlyPoints returns up to n clubs of a college with positive monthly points.
func (r *ClubRepository) TopByMonthlyPoints(ctx context.Context, collegeKey string, n int) ([]models.Club, error) {
	var clubs []models.Club
	err := r.db.WithContext(ctx).
		Where(collegeKeyExpr+" = "+collegeKeyArg+" AND monthly_points > 0", collegeKey).
		Order("monthly_points DESC, id ASC").
		Limit(n).
		Find(&clubs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to rank clubs of %q: %w", collegeKey, err)
	}
	return clubs, nil
}

// TopMembersByWeeklyXP returns up to n members of a club with positive weekly XP.
func (r *ClubRepository) TopMembersByWeeklyXP(ctx context.Context, clubID uint, n int) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Joins("JOIN club_members ON club_members.user_id = users.id").
		Where("club_members.club_id = ? AND users.weekly_xp > 0", clubID).
		Order("users.weekly_xp DESC, users.id ASC").
		Limit(n).
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("failed to rank members of club %d: %w", clubID, err)
	}
	return users, nil
}

// ResetMonthlyPoints zeroes monthly points for every club in one statement.
func (r *ClubRepository) ResetMonthlyPoints(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Club{}).
		Where("monthly_points <> 0").
		UpdateColumn("monthly_points", 0)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to reset monthly points: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// AddAchievements appends achievements. Achievements are never removed.
func (r *ClubRepository) AddAchievements(ctx context.Context, achievements []models.ClubAchievement) error {
	if len(achievements) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(&achievements).Error; err != nil {
		return fmt.Errorf("failed to add achievements: %w", err)
	}
	return nil
}

// Achievements returns a club's achievements, newest first.
func (r *ClubRepository) Achievements(ctx context.Context, clubID uint) ([]models.ClubAchievement, error) {
	var out []models.ClubAchievement
	err := r.db.WithContext(ctx).Where("club_id = ?", clubID).Order("earned_at DESC, id DESC").Find(&out).Error
	return out, err
}
