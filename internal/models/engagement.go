package models

import (
	"time"
)

// Task is a club task students submit work for.
type Task struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ClubID    uint      `gorm:"not null;index" json:"club_id"`
	Title     string    `gorm:"size:255;not null" json:"title"`
	Points    int64     `gorm:"not null;default:0" json:"points"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for Task model.
func (Task) TableName() string {
	return "tasks"
}

// TaskSubmission is a student's task submission awaiting review.
type TaskSubmission struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	TaskID        uint       `gorm:"not null;index" json:"task_id"`
	UserID        uint       `gorm:"not null;index" json:"user_id"`
	Status        string     `gorm:"size:20;not null;default:pending;index" json:"status"`
	PointsAwarded int64      `gorm:"not null;default:0" json:"points_awarded"`
	Feedback      string     `gorm:"type:text" json:"feedback,omitempty"`
	SubmittedAt   time.Time  `gorm:"not null" json:"submitted_at"`
	ReviewedAt    *time.Time `json:"reviewed_at,omitempty"`
}

// TableName specifies the table name for TaskSubmission model.
func (TaskSubmission) TableName() string {
	return "task_submissions"
}

// Poll is a club poll; rating polls credit their star value to the club.
type Poll struct {
	ID           uint         `gorm:"primaryKey" json:"id"`
	ClubID       uint         `gorm:"not null;index" json:"club_id"`
	EventID      *uint        `gorm:"index" json:"event_id,omitempty"`
	Question     string       `gorm:"type:text;not null" json:"question"`
	IsRatingPoll bool         `gorm:"not null;default:false" json:"is_rating_poll"`
	Active       bool         `gorm:"not null;default:true" json:"active"`
	ExpiresAt    *time.Time   `json:"expires_at,omitempty"`
	Options      []PollOption `gorm:"foreignKey:PollID" json:"options,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
}

// TableName specifies the table name for Poll model.
func (Poll) TableName() string {
	return "polls"
}

// IsOpen reports whether votes are accepted at now.
func (p *Poll) IsOpen(now time.Time) bool {
	return p.Active && (p.ExpiresAt == nil || now.Before(*p.ExpiresAt))
}

// PollOption is one choice; Position is the 0-based option index.
type PollOption struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	PollID   uint   `gorm:"not null;uniqueIndex:idx_poll_option" json:"poll_id"`
	Position int    `gorm:"not null;uniqueIndex:idx_poll_option" json:"position"`
	Label    string `gorm:"size:255;not null" json:"label"`
	Votes    int    `gorm:"not null;default:0" json:"votes"`
}

// TableName specifies the table name for PollOption model.
func (PollOption) TableName() string {
	return "poll_options"
}

// PollVote records a user's vote; the unique pair is the double-vote guard.
type PollVote struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	PollID      uint      `gorm:"not null;uniqueIndex:idx_poll_vote" json:"poll_id"`
	UserID      uint      `gorm:"not null;uniqueIndex:idx_poll_vote" json:"user_id"`
	OptionIndex int       `gorm:"not null" json:"option_index"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName specifies the table name for PollVote model.
func (PollVote) TableName() string {
	return "poll_votes"
}

// Project is a club project students can join once approved.
type Project struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	ClubID      uint       `gorm:"not null;index" json:"club_id"`
	Title       string     `gorm:"size:255;not null" json:"title"`
	Status      string     `gorm:"size:20;not null;default:pending;index" json:"status"`
	JoinCode    *string    `gorm:"size:20;uniqueIndex" json:"join_code,omitempty"`
	MaxTeamSize int        `gorm:"not null;default:0" json:"max_team_size"` // 0 = unlimited
	XPReward    int64      `gorm:"column:xp_reward;not null;default:0" json:"xp_reward"`
	ApprovedAt  *time.Time `json:"approved_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// TableName specifies the table name for Project model.
func (Project) TableName() string {
	return "projects"
}

// ProjectMember is a project roster row.
type ProjectMember struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ProjectID uint      `gorm:"not null;uniqueIndex:idx_project_member" json:"project_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_project_member" json:"user_id"`
	JoinedAt  time.Time `gorm:"not null" json:"joined_at"`
}

// TableName specifies the table name for ProjectMember model.
func (ProjectMember) TableName() string {
	return "project_members"
}

// Project status constants.
const (
	ProjectPending  = "pending"
	ProjectApproved = "approved"
	ProjectRejected = "rejected"
)
