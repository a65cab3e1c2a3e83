package models

import (
	"strings"
	"time"
)

// User is the primary ledger subject.
type User struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	Username      string     `gorm:"uniqueIndex;not null;size:255" json:"username"`
	Email         string     `gorm:"size:255" json:"email"`
	College       string     `gorm:"size:255;index" json:"college"`
	Role          string     `gorm:"size:50;default:student" json:"role"`
	Points        int64      `gorm:"not null;default:0" json:"points"`
	TotalEarnedXP int64      `gorm:"column:total_earned_xp;not null;default:0" json:"total_earned_xp"`
	WeeklyXP      int64      `gorm:"column:weekly_xp;not null;default:0;index" json:"weekly_xp"`
	Level         int        `gorm:"not null;default:1" json:"level"`
	LastLoginDate *time.Time `json:"last_login_date,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// TableName specifies the table name for User model.
func (User) TableName() string {
	return "users"
}

// UserSkill is a skill granted by completing a challenge.
type UserSkill struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"not null;uniqueIndex:idx_user_skill" json:"user_id"`
	Name        string    `gorm:"not null;size:100;uniqueIndex:idx_user_skill" json:"name"`
	ChallengeID *uint     `json:"challenge_id,omitempty"`
	EarnedAt    time.Time `gorm:"not null" json:"earned_at"`
}

// TableName specifies the table name for UserSkill model.
func (UserSkill) TableName() string {
	return "user_skills"
}

// Notification is a request for the external dispatcher to deliver a message.
type Notification struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Title     string    `gorm:"size:255;not null" json:"title"`
	Message   string    `gorm:"type:text" json:"message"`
	Delivered bool      `gorm:"not null;default:false;index" json:"delivered"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for Notification model.
func (Notification) TableName() string {
	return "notifications"
}

// User roles.
const (
	RoleStudent = "student"
	RoleAdmin   = "admin"
)

// CollegeCutset is the whitespace trimmed from college names before they are compared.
const CollegeCutset = " \t\n\v\f\r"

// TrimCollege strips the surrounding whitespace from a college name. Case is
// folded by the database so both sides of a comparison fold the same way.
func TrimCollege(college string) string {
	return strings.Trim(college, CollegeCutset)
}
