package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm/clause"

	"github.com/aimd54/campus-rewards/internal/models"
)

// collegeKeyExpr is the normalized college of a row. collegeKeyArg normalizes
// a bound college name the same way.
const (
	collegeKeyExpr = "LOWER(TRIM(college, '" + models.CollegeCutset + "'))"
	collegeKeyArg  = "LOWER(TRIM(?, '" + models.CollegeCutset + "'))"
)

// UserRepository handles user-related database operations.
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a new user repository.
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

// WithTx returns a copy bound to an open transaction.
func (r *UserRepository) WithTx(tx *DB) *UserRepository {
	return &UserRepository{db: tx}
}

// Create creates a new user.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", translate(err))
	}
	return nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, fmt.Errorf("failed to get user by id %d: %w", id, translate(err))
	}
	return &user, nil
}

// Leaderboard returns users ordered by weekly XP. An empty college means all colleges.
func (r *UserRepository) Leaderboard(ctx context.Context, college string, limit int) ([]models.User, error) {
	query := r.db.WithContext(ctx).Model(&models.User{})
	if college != "" {
		query = query.Where(collegeKeyExpr+" = "+collegeKeyArg, college)
	}
	var users []models.User
	if err := query.Order("weekly_xp DESC, id ASC").Limit(limit).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to load user leaderboard: %w", err)
	}
	return users, nil
}

// CollegeKeys lists the distinct normalized colleges that have users.
func (r *UserRepository) CollegeKeys(ctx context.Context) ([]string, error) {
	var keys []string
	err := r.db.WithContext(ctx).
		Raw("SELECT DISTINCT " + collegeKeyExpr + " AS college_key FROM users WHERE " + collegeKeyExpr + " <> '' ORDER BY college_key").
		Scan(&keys).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list colleges: %w", err)
	}
	return keys, nil
}

// TopByWeeklyXP returns up to n users of a college with positive weekly XP.
func (r *UserRepository) TopByWeeklyXP(ctx context.Context, collegeKey string, n int) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).
		Where(collegeKeyExpr+" = "+collegeKeyArg+" AND weekly_xp > 0", collegeKey).
		Order("weekly_xp DESC, id ASC").
		Limit(n).
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("failed to rank users of %q: %w", collegeKey, err)
	}
	return users, nil
}

// ResetWeeklyXP zeroes weekly XP for every user in one statement.
func (r *UserRepository) ResetWeeklyXP(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("weekly_xp <> 0").
		UpdateColumn("weekly_xp", 0)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to reset weekly xp: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// ClaimDailyLogin stamps last_login_date unless the user already logged in on or
// after dayStart. It reports whether this call won the day.
func (r *UserRepository) ClaimDailyLogin(ctx context.Context, userID uint, dayStart, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ? AND (last_login_date IS NULL OR last_login_date < ?)", userID, dayStart).
		UpdateColumn("last_login_date", now)
	if res.Error != nil {
		return false, fmt.Errorf("failed to stamp login for user %d: %w", userID, res.Error)
	}
	return res.RowsAffected == 1, nil
}

// AddBadges appends badges. Badges are never removed.
func (r *UserRepository) AddBadges(ctx context.Context, badges []models.UserBadge) error {
	if len(badges) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(&badges).Error; err != nil {
		return fmt.Errorf("failed to add badges: %w", err)
	}
	return nil
}

// Badges returns a user's badges, newest first.
func (r *UserRepository) Badges(ctx context.Context, userID uint) ([]models.UserBadge, error) {
	var badges []models.UserBadge
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("earned_at DESC, id DESC").Find(&badges).Error
	return badges, err
}

// CountBadges counts a user's badges.
func (r *UserRepository) CountBadges(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.UserBadge{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

// AddSkill grants a skill; granting an existing skill is a no-op.
func (r *UserRepository) AddSkill(ctx context.Context, skill *models.UserSkill) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(skill).Error
	if err != nil && !errors.Is(translate(err), ErrDuplicate) {
		return fmt.Errorf("failed to add skill: %w", err)
	}
	return nil
}

// Notify stores a notification for external delivery.
func (r *UserRepository) Notify(ctx context.Context, n *models.Notification) error {
	if err := r.db.WithContext(ctx).Create(n).Error; err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}
