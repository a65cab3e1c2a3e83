// Package models defines the persisted shapes of the rewards engine.
package models

import (
	"time"
)

// UserBadge is a badge granted to a user. Rows are never updated or deleted.
type UserBadge struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	UserID      uint       `gorm:"not null;index" json:"user_id"`
	Kind        string     `gorm:"size:50;not null;index" json:"kind"`
	Name        string     `gorm:"size:255;not null" json:"name"`
	Icon        string     `gorm:"size:50" json:"icon"`
	Description string     `gorm:"type:text" json:"description"`
	ClubID      *uint      `gorm:"index" json:"club_id,omitempty"`
	Rank        *int       `json:"rank,omitempty"`
	WeekStart   *time.Time `json:"week_start,omitempty"`
	EarnedAt    time.Time  `gorm:"not null" json:"earned_at"`
}

// TableName specifies the table name for UserBadge model.
func (UserBadge) TableName() string {
	return "user_badges"
}

// ClubAchievement is an achievement granted to a club. Rows are never updated or deleted.
type ClubAchievement struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	ClubID      uint       `gorm:"not null;index" json:"club_id"`
	Title       string     `gorm:"size:255;not null" json:"title"`
	Icon        string     `gorm:"size:50" json:"icon"`
	Description string     `gorm:"type:text" json:"description"`
	Rank        *int       `json:"rank,omitempty"`
	PeriodStart *time.Time `json:"period_start,omitempty"`
	EarnedAt    time.Time  `gorm:"not null" json:"earned_at"`
}

// TableName specifies the table name for ClubAchievement model.
func (ClubAchievement) TableName() string {
	return "club_achievements"
}

// PeriodRun marks a reset job as processed for one period boundary.
type PeriodRun struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Job           string    `gorm:"size:50;not null;uniqueIndex:idx_period_run" json:"job"`
	PeriodKey     string    `gorm:"size:50;not null;uniqueIndex:idx_period_run" json:"period_key"`
	AwardsIssued  int       `gorm:"not null;default:0" json:"awards_issued"`
	SubjectsReset int64     `gorm:"not null;default:0" json:"subjects_reset"`
	RanAt         time.Time `gorm:"not null" json:"ran_at"`
}

// TableName specifies the table name for PeriodRun model.
func (PeriodRun) TableName() string {
	return "period_runs"
}

// Badge kinds.
const (
	BadgeKindWeeklyRank     = "weekly_rank"
	BadgeKindClubWeeklyRank = "club_weekly_rank"
	BadgeKindChallenge      = "challenge"
)

// Reset job names.
const (
	JobWeekly       = "weekly"
	JobWeeklyManual = "weekly_manual"
	JobMonthly      = "monthly"
)
