package models

import "time"

// Club is the secondary ledger subject.
type Club struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Name          string    `gorm:"size:255;not null" json:"name"`
	College       string    `gorm:"size:255;index" json:"college"`
	Points        int64     `gorm:"not null;default:0" json:"points"`
	MonthlyPoints int64     `gorm:"not null;default:0;index" json:"monthly_points"`
	Coins         int64     `gorm:"not null;default:0" json:"coins"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TableName specifies the table name for Club model.
func (Club) TableName() string {
	return "clubs"
}

// ClubMember links a user to a club roster.
type ClubMember struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	ClubID   uint      `gorm:"not null;uniqueIndex:idx_club_member" json:"club_id"`
	UserID   uint      `gorm:"not null;uniqueIndex:idx_club_member;index" json:"user_id"`
	JoinedAt time.Time `json:"joined_at"`
}

// TableName specifies the table name for ClubMember model.
func (ClubMember) TableName() string {
	return "club_members"
}
