package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/aimd54/campus-rewards/internal/models"
)

// ChallengeStanding is one row of a challenge leaderboard.
type ChallengeStanding struct {
	UserID      uint      `json:"user_id"`
	Username    string    `json:"username"`
	Marks       int       `json:"marks"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// ChallengeRepository handles challenges, participation, teams, submissions and activities.
type ChallengeRepository struct {
	db *DB
}

// NewChallengeRepository creates a new challenge repository.
func NewChallengeRepository(db *DB) *ChallengeRepository {
	return &ChallengeRepository{db: db}
}

// WithTx returns a copy bound to an open transaction.
func (r *ChallengeRepository) WithTx(tx *DB) *ChallengeRepository {
	return &ChallengeRepository{db: tx}
}

// Create creates a challenge.
func (r *ChallengeRepository) Create(ctx context.Context, c *models.Challenge) error {
	if err := r.db.WithContext(ctx).Create(c).Error; err != nil {
		return fmt.Errorf("failed to create challenge: %w", translate(err))
	}
	return nil
}

// GetByID retrieves a challenge by ID.
func (r *ChallengeRepository) GetByID(ctx context.Context, id uint) (*models.Challenge, error) {
	var c models.Challenge
	if err := r.db.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, fmt.Errorf("failed to get challenge by id %d: %w", id, translate(err))
	}
	return &c, nil
}

// GetByJoinCode retrieves a challenge by its join code.
func (r *ChallengeRepository) GetByJoinCode(ctx context.Context, code string) (*models.Challenge, error) {
	var c models.Challenge
	if err := r.db.WithContext(ctx).Where("join_code = ?", code).First(&c).Error; err != nil {
		return nil, fmt.Errorf("failed to get challenge by code: %w", translate(err))
	}
	return &c, nil
}

// SetJoinCodeIfMissing assigns a join code unless one is already set.
func (r *ChallengeRepository) SetJoinCodeIfMissing(ctx context.Context, id uint, code string) error {
	err := r.db.WithContext(ctx).
		Model(&models.Challenge{}).
		Where("id = ? AND join_code IS NULL", id).
		UpdateColumn("join_code", code).Error
	if err != nil {
		return fmt.Errorf("failed to set join code for challenge %d: %w", id, err)
	}
	return nil
}

// AddParticipant inserts a participation row. A second row for the same pair fails with ErrDuplicate.
func (r *ChallengeRepository) AddParticipant(ctx context.Context, p *models.ChallengeParticipant) error {
	if err := r.db.WithContext(ctx).Create(p).Error; err != nil {
		return fmt.Errorf("failed to add participant: %w", translate(err))
	}
	return nil
}

// IsParticipant reports whether a user has joined a challenge.
func (r *ChallengeRepository) IsParticipant(ctx context.Context, challengeID, userID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ChallengeParticipant{}).
		Where("challenge_id = ? AND user_id = ?", challengeID, userID).
		Count(&count).Error
	return count > 0, err
}

// IncrementParticipants bumps the participant counter in place.
func (r *ChallengeRepository) IncrementParticipants(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).
		Model(&models.Challenge{}).
		Where("id = ?", id).
		UpdateColumn("participants", gorm.Expr("participants + 1")).Error
	if err != nil {
		return fmt.Errorf("failed to count participant on challenge %d: %w", id, err)
	}
	return nil
}

// CreateTeam creates a challenge team.
func (r *ChallengeRepository) CreateTeam(ctx context.Context, team *models.ChallengeTeam) error {
	if err := r.db.WithContext(ctx).Create(team).Error; err != nil {
		return fmt.Errorf("failed to create team: %w", translate(err))
	}
	return nil
}

// GetTeamByCode retrieves a team by its invite code.
func (r *ChallengeRepository) GetTeamByCode(ctx context.Context, code string) (*models.ChallengeTeam, error) {
	var team models.ChallengeTeam
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&team).Error; err != nil {
		return nil, fmt.Errorf("failed to get team by code: %w", translate(err))
	}
	return &team, nil
}

// CountTeamMembers counts participants attached to a team.
func (r *ChallengeRepository) CountTeamMembers(ctx context.Context, teamID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ChallengeParticipant{}).Where("team_id = ?", teamID).Count(&count).Error
	return count, err
}

// UpsertActivity records a user's activity status for a challenge or project.
func (r *ChallengeRepository) UpsertActivity(ctx context.Context, a *models.Activity) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "kind"}, {Name: "ref_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"status", "updated_at"}),
		}).
		Create(a).Error
	if err != nil {
		return fmt.Errorf("failed to record activity: %w", err)
	}
	return nil
}

// GetSubmission retrieves a submission by ID.
func (r *ChallengeRepository) GetSubmission(ctx context.Context, id uint) (*models.ChallengeSubmission, error) {
	var s models.ChallengeSubmission
	if err := r.db.WithContext(ctx).First(&s, id).Error; err != nil {
		return nil, fmt.Errorf("failed to get submission by id %d: %w", id, translate(err))
	}
	return &s, nil
}

// GradeSubmission moves a pending submission to its final status.
// It returns false if the submission was no longer pending.
func (r *ChallengeRepository) GradeSubmission(ctx context.Context, id uint, status string, marks int, feedback string, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.ChallengeSubmission{}).
		Where("id = ? AND status = ?", id, models.SubmissionPending).
		Updates(map[string]interface{}{
			"status":    status,
			"marks":     marks,
			"feedback":  feedback,
			"graded_at": now,
		})
	if res.Error != nil {
		return false, fmt.Errorf("failed to grade submission %d: %w", id, res.Error)
	}
	return res.RowsAffected == 1, nil
}

// Standings returns approved submissions ordered by marks, earlier submissions first on ties.
func (r *ChallengeRepository) Standings(ctx context.Context, challengeID uint, limit int) ([]ChallengeStanding, error) {
	var rows []ChallengeStanding
	err := r.db.WithContext(ctx).
		Table("challenge_submissions").
		Select("challenge_submissions.user_id, users.username, challenge_submissions.marks, challenge_submissions.submitted_at").
		Joins("JOIN users ON users.id = challenge_submissions.user_id").
		Where("challenge_submissions.challenge_id = ? AND challenge_submissions.status = ?", challengeID, models.SubmissionApproved).
		Order("challenge_submissions.marks DESC, challenge_submissions.submitted_at ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load standings for challenge %d: %w", challengeID, err)
	}
	return rows, nil
}
