package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/aimd54/campus-rewards/internal/models"
)

// TaskRepository handles club tasks and their submissions.
type TaskRepository struct {
	db *DB
}

// NewTaskRepository creates a new task repository.
func NewTaskRepository(db *DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// WithTx returns a copy bound to an open transaction.
func (r *TaskRepository) WithTx(tx *DB) *TaskRepository {
	return &TaskRepository{db: tx}
}

// Create creates a task.
func (r *TaskRepository) Create(ctx context.Context, t *models.Task) error {
	if err := r.db.WithContext(ctx).Create(t).Error; err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

// GetByID retrieves a task by ID.
func (r *TaskRepository) GetByID(ctx context.Context, id uint) (*models.Task, error) {
	var t models.Task
	if err := r.db.WithContext(ctx).First(&t, id).Error; err != nil {
		return nil, fmt.Errorf("failed to get task by id %d: %w", id, translate(err))
	}
	return &t, nil
}

// GetSubmission retrieves a task submission by ID.
func (r *TaskRepository) GetSubmission(ctx context.Context, id uint) (*models.TaskSubmission, error) {
	var s models.TaskSubmission
	if err := r.db.WithContext(ctx).First(&s, id).Error; err != nil {
		return nil, fmt.Errorf("failed to get task submission by id %d: %w", id, translate(err))
	}
	return &s, nil
}

// ReviewSubmission moves a pending submission to its final status.
// It returns false if the submission was no longer pending.
func (r *TaskRepository) ReviewSubmission(ctx context.Context, id uint, status string, points int64, feedback string, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.TaskSubmission{}).
		Where("id = ? AND status = ?", id, models.SubmissionPending).
		Updates(map[string]interface{}{
			"status":         status,
			"points_awarded": points,
			"feedback":       feedback,
			"reviewed_at":    now,
		})
	if res.Error != nil {
		return false, fmt.Errorf("failed to review task submission %d: %w", id, res.Error)
	}
	return res.RowsAffected == 1, nil
}

// PollRepository handles polls, options and votes.
type PollRepository struct {
	db *DB
}

// NewPollRepository creates a new poll repository.
func NewPollRepository(db *DB) *PollRepository {
	return &PollRepository{db: db}
}

// WithTx returns a copy bound to an open transaction.
func (r *PollRepository) WithTx(tx *DB) *PollRepository {
	return &PollRepository{db: tx}
}

func orderedOptions(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

// Create creates a poll with its options.
func (r *PollRepository) Create(ctx context.Context, p *models.Poll) error {
	if err := r.db.WithContext(ctx).Create(p).Error; err != nil {
		return fmt.Errorf("failed to create poll: %w", err)
	}
	return nil
}

// GetByID retrieves a poll with its options in position order.
func (r *PollRepository) GetByID(ctx context.Context, id uint) (*models.Poll, error) {
	var p models.Poll
	if err := r.db.WithContext(ctx).Preload("Options", orderedOptions).First(&p, id).Error; err != nil {
		return nil, fmt.Errorf("failed to get poll by id %d: %w", id, translate(err))
	}
	return &p, nil
}

// RatingPollsForEvent returns the rating polls attached to an event.
func (r *PollRepository) RatingPollsForEvent(ctx context.Context, eventID uint) ([]models.Poll, error) {
	var polls []models.Poll
	err := r.db.WithContext(ctx).
		Preload("Options", orderedOptions).
		Where("event_id = ? AND is_rating_poll = ?", eventID, true).
		Find(&polls).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load rating polls for event %d: %w", eventID, err)
	}
	return polls, nil
}

// Detach unlinks a poll from its event. The poll and its votes are kept.
func (r *PollRepository) Detach(ctx context.Context, pollID uint) error {
	err := r.db.WithContext(ctx).Model(&models.Poll{}).Where("id = ?", pollID).UpdateColumn("event_id", nil).Error
	if err != nil {
		return fmt.Errorf("failed to detach poll %d: %w", pollID, err)
	}
	return nil
}

// AddVote inserts a vote row. A second vote by the same user fails with ErrDuplicate.
func (r *PollRepository) AddVote(ctx context.Context, v *models.PollVote) error {
	if err := r.db.WithContext(ctx).Create(v).Error; err != nil {
		return fmt.Errorf("failed to add vote: %w", translate(err))
	}
	return nil
}

// IncrementVotes bumps an option's vote count in place.
func (r *PollRepository) IncrementVotes(ctx context.Context, pollID uint, position int) error {
	res := r.db.WithContext(ctx).
		Model(&models.PollOption{}).
		Where("poll_id = ? AND position = ?", pollID, position).
		UpdateColumn("votes", gorm.Expr("votes + 1"))
	if res.Error != nil {
		return fmt.Errorf("failed to count vote on poll %d: %w", pollID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ProjectRepository handles projects and their members.
type ProjectRepository struct {
	db *DB
}

// NewProjectRepository creates a new project repository.
func NewProjectRepository(db *DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// WithTx returns a copy bound to an open transaction.
func (r *ProjectRepository) WithTx(tx *DB) *ProjectRepository {
	return &ProjectRepository{db: tx}
}

// Create creates a project.
func (r *ProjectRepository) Create(ctx context.Context, p *models.Project) error {
	if err := r.db.WithContext(ctx).Create(p).Error; err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}
	return nil
}

// GetByID retrieves a project by ID.
func (r *ProjectRepository) GetByID(ctx context.Context, id uint) (*models.Project, error) {
	var p models.Project
	if err := r.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, fmt.Errorf("failed to get project by id %d: %w", id, translate(err))
	}
	return &p, nil
}

// GetByJoinCode retrieves a project by its join code.
func (r *ProjectRepository) GetByJoinCode(ctx context.Context, code string) (*models.Project, error) {
	var p models.Project
	if err := r.db.WithContext(ctx).Where("join_code = ?", code).First(&p).Error; err != nil {
		return nil, fmt.Errorf("failed to get project by code: %w", translate(err))
	}
	return &p, nil
}

// Approve moves a pending project to approved and assigns its join code.
// It returns false if the project was no longer pending.
func (r *ProjectRepository) Approve(ctx context.Context, id uint, code string, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Project{}).
		Where("id = ? AND status = ?", id, models.ProjectPending).
		Updates(map[string]interface{}{
			"status":      models.ProjectApproved,
			"join_code":   code,
			"approved_at": now,
		})
	if res.Error != nil {
		return false, fmt.Errorf("failed to approve project %d: %w", id, res.Error)
	}
	return res.RowsAffected == 1, nil
}

// AddMember inserts a membership row. A second row for the same pair fails with ErrDuplicate.
func (r *ProjectRepository) AddMember(ctx context.Context, m *models.ProjectMember) error {
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return fmt.Errorf("failed to add project member: %w", translate(err))
	}
	return nil
}

// IsMember reports whether a user belongs to a project.
func (r *ProjectRepository) IsMember(ctx context.Context, projectID, userID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ProjectMember{}).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Count(&count).Error
	return count > 0, err
}

// CountMembers counts a project's members.
func (r *ProjectRepository) CountMembers(ctx context.Context, projectID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ProjectMember{}).Where("project_id = ?", projectID).Count(&count).Error
	return count, err
}
