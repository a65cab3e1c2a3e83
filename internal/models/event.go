package models

import (
	"time"
)

// Event is a club event. Report figures are frozen on completion so that a
// later deletion can reverse exactly what was credited.
type Event struct {
	ID                      uint       `gorm:"primaryKey" json:"id"`
	ClubID                  uint       `gorm:"not null;index" json:"club_id"`
	Title                   string     `gorm:"size:255;not null" json:"title"`
	Status                  string     `gorm:"size:20;not null;default:scheduled;index" json:"status"`
	RegistrationsAtCreation int        `gorm:"not null;default:0" json:"registrations_at_creation"`
	ChiefGuests             int        `gorm:"not null;default:0" json:"chief_guests"`
	Competitions            int        `gorm:"not null;default:0" json:"competitions"`
	Participants            int        `gorm:"not null;default:0" json:"participants"`
	Unannounced             bool       `gorm:"not null;default:false" json:"unannounced"`
	AwardedPoints           int64      `gorm:"not null;default:0" json:"awarded_points"`
	CompletedAt             *time.Time `json:"completed_at,omitempty"`
	CreatedAt               time.Time  `json:"created_at"`
	UpdatedAt               time.Time  `json:"updated_at"`

	Registrations []EventRegistration `gorm:"foreignKey:EventID" json:"registrations,omitempty"`
	Winners       []EventWinner       `gorm:"foreignKey:EventID" json:"winners,omitempty"`
	Collaborators []EventCollaborator `gorm:"foreignKey:EventID" json:"collaborators,omitempty"`
}

// TableName specifies the table name for Event model.
func (Event) TableName() string {
	return "events"
}

// IsCompleted reports whether rewards were granted for the event.
func (e *Event) IsCompleted() bool {
	return e.Status == EventStatusCompleted
}

// EventRegistration is a solo or team registration; UserID is the leader.
type EventRegistration struct {
	ID        uint              `gorm:"primaryKey" json:"id"`
	EventID   uint              `gorm:"not null;index" json:"event_id"`
	UserID    uint              `gorm:"not null;index" json:"user_id"`
	TeamName  string            `gorm:"size:255" json:"team_name,omitempty"`
	Members   []EventTeamMember `gorm:"foreignKey:RegistrationID" json:"members,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// TableName specifies the table name for EventRegistration model.
func (EventRegistration) TableName() string {
	return "event_registrations"
}

// UserIDs returns the leader followed by team members.
func (r *EventRegistration) UserIDs() []uint {
	ids := make([]uint, 0, len(r.Members)+1)
	ids = append(ids, r.UserID)
	for _, m := range r.Members {
		ids = append(ids, m.UserID)
	}
	return ids
}

// EventTeamMember is a non-leader member of a team registration.
type EventTeamMember struct {
	ID             uint `gorm:"primaryKey" json:"id"`
	RegistrationID uint `gorm:"not null;index" json:"registration_id"`
	UserID         uint `gorm:"not null;index" json:"user_id"`
}

// TableName specifies the table name for EventTeamMember model.
func (EventTeamMember) TableName() string {
	return "event_team_members"
}

// EventWinner places a registration at a podium position (1-based).
type EventWinner struct {
	ID             uint              `gorm:"primaryKey" json:"id"`
	EventID        uint              `gorm:"not null;index" json:"event_id"`
	Position       int               `gorm:"not null" json:"position"`
	RegistrationID uint              `gorm:"not null" json:"registration_id"`
	Registration   EventRegistration `gorm:"foreignKey:RegistrationID" json:"registration,omitempty"`
}

// TableName specifies the table name for EventWinner model.
func (EventWinner) TableName() string {
	return "event_winners"
}

// EventCollaborator is a club co-hosting an event.
type EventCollaborator struct {
	ID      uint `gorm:"primaryKey" json:"id"`
	EventID uint `gorm:"not null;uniqueIndex:idx_event_collaborator" json:"event_id"`
	ClubID  uint `gorm:"not null;uniqueIndex:idx_event_collaborator" json:"club_id"`
}

// TableName specifies the table name for EventCollaborator model.
func (EventCollaborator) TableName() string {
	return "event_collaborators"
}

// Event status constants.
const (
	EventStatusScheduled = "scheduled"
	EventStatusCompleted = "completed"
)
