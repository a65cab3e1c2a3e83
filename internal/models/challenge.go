package models

import (
	"time"
)

// Challenge is a club-hosted challenge with an optional entry fee.
type Challenge struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	ClubID       uint       `gorm:"not null;index" json:"club_id"`
	Title        string     `gorm:"size:255;not null" json:"title"`
	EntryFee     int64      `gorm:"not null;default:0" json:"entry_fee"`
	Points       int64      `gorm:"not null;default:0" json:"points"`
	JoinCode     *string    `gorm:"size:20;uniqueIndex" json:"join_code,omitempty"`
	Participants int        `gorm:"not null;default:0" json:"participants"`
	MaxTeamSize  int        `gorm:"not null;default:1" json:"max_team_size"`
	Deadline     *time.Time `json:"deadline,omitempty"`
	BadgeName    string     `gorm:"size:255" json:"badge_name,omitempty"`
	BadgeIcon    string     `gorm:"size:50" json:"badge_icon,omitempty"`
	SkillName    string     `gorm:"size:100" json:"skill_name,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// TableName specifies the table name for Challenge model.
func (Challenge) TableName() string {
	return "challenges"
}

// IsOpen reports whether the challenge still accepts participants at now.
func (c *Challenge) IsOpen(now time.Time) bool {
	return c.Deadline == nil || now.Before(*c.Deadline)
}

// ChallengeParticipant records that a user paid the fee and joined. The
// unique (challenge_id, user_id) pair is the double-debit guard.
type ChallengeParticipant struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ChallengeID uint      `gorm:"not null;uniqueIndex:idx_challenge_participant" json:"challenge_id"`
	UserID      uint      `gorm:"not null;uniqueIndex:idx_challenge_participant;index" json:"user_id"`
	TeamID      *uint     `gorm:"index" json:"team_id,omitempty"`
	FeePaid     int64     `gorm:"not null;default:0" json:"fee_paid"`
	JoinedAt    time.Time `gorm:"not null" json:"joined_at"`
}

// TableName specifies the table name for ChallengeParticipant model.
func (ChallengeParticipant) TableName() string {
	return "challenge_participants"
}

// ChallengeTeam groups participants of a team challenge.
type ChallengeTeam struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ChallengeID uint      `gorm:"not null;index" json:"challenge_id"`
	Name        string    `gorm:"size:255;not null" json:"name"`
	LeaderID    uint      `gorm:"not null" json:"leader_id"`
	Code        string    `gorm:"size:20;not null;uniqueIndex" json:"code"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName specifies the table name for ChallengeTeam model.
func (ChallengeTeam) TableName() string {
	return "challenge_teams"
}

// ChallengeSubmission is a participant's entry awaiting grading.
type ChallengeSubmission struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	ChallengeID uint       `gorm:"not null;index" json:"challenge_id"`
	UserID      uint       `gorm:"not null;index" json:"user_id"`
	Status      string     `gorm:"size:20;not null;default:pending;index" json:"status"`
	Marks       *int       `json:"marks,omitempty"`
	Feedback    string     `gorm:"type:text" json:"feedback,omitempty"`
	SubmittedAt time.Time  `gorm:"not null" json:"submitted_at"`
	GradedAt    *time.Time `json:"graded_at,omitempty"`
}

// TableName specifies the table name for ChallengeSubmission model.
func (ChallengeSubmission) TableName() string {
	return "challenge_submissions"
}

// Activity is the per-user activity log. One row per (user, kind, ref).
type Activity struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_activity_ref" json:"user_id"`
	Kind      string    `gorm:"size:20;not null;uniqueIndex:idx_activity_ref" json:"kind"`
	RefID     uint      `gorm:"not null;uniqueIndex:idx_activity_ref" json:"ref_id"`
	Title     string    `gorm:"size:255" json:"title"`
	Status    string    `gorm:"size:20;not null" json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for Activity model.
func (Activity) TableName() string {
	return "activities"
}

// Submission status constants, shared by challenge and task submissions.
const (
	SubmissionPending  = "pending"
	SubmissionApproved = "approved"
	SubmissionRejected = "rejected"
)

// Activity kinds and statuses.
const (
	ActivityChallenge = "challenge"
	ActivityProject   = "project"

	ActivityStarted   = "started"
	ActivityCompleted = "completed"
	ActivityRejected  = "rejected"
)
