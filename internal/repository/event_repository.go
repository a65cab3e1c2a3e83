package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/aimd54/campus-rewards/internal/models"
)

// EventCompletion is the report stored on an event when it completes.
type EventCompletion struct {
	ChiefGuests   int
	Competitions  int
	Participants  int
	Unannounced   bool
	AwardedPoints int64
	CompletedAt   time.Time
}

// EventRepository handles event-related database operations.
type EventRepository struct {
	db *DB
}

// NewEventRepository creates a new event repository.
func NewEventRepository(db *DB) *EventRepository {
	return &EventRepository{db: db}
}

// Create creates an event together with any nested registrations, winners and collaborators.
func (r *EventRepository) Create(ctx context.Context, event *models.Event) error {
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}
	return nil
}

// GetByID retrieves an event with registrations, team members, winners and collaborators.
func (r *EventRepository) GetByID(ctx context.Context, id uint) (*models.Event, error) {
	var event models.Event
	err := r.db.WithContext(ctx).
		Preload("Registrations.Members").
		Preload("Winners.Registration.Members").
		Preload("Collaborators").
		First(&event, id).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get event by id %d: %w", id, translate(err))
	}
	return &event, nil
}

// MarkCompleted flips a scheduled event to completed and stores the report.
// It returns false if the event was already completed.
func (r *EventRepository) MarkCompleted(ctx context.Context, id uint, c EventCompletion) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Event{}).
		Where("id = ? AND status <> ?", id, models.EventStatusCompleted).
		Updates(map[string]interface{}{
			"status":         models.EventStatusCompleted,
			"chief_guests":   c.ChiefGuests,
			"competitions":   c.Competitions,
			"participants":   c.Participants,
			"unannounced":    c.Unannounced,
			"awarded_points": c.AwardedPoints,
			"completed_at":   c.CompletedAt,
		})
	if res.Error != nil {
		return false, fmt.Errorf("failed to complete event %d: %w", id, res.Error)
	}
	return res.RowsAffected == 1, nil
}

// Delete removes an event and its registrations, team members, winners and collaborators.
func (r *EventRepository) Delete(ctx context.Context, id uint) error {
	return r.db.Transaction(ctx, func(tx *DB) error {
		regIDs := tx.Model(&models.EventRegistration{}).Select("id").Where("event_id = ?", id)
		if err := tx.Where("registration_id IN (?)", regIDs).Delete(&models.EventTeamMember{}).Error; err != nil {
			return fmt.Errorf("failed to delete team members: %w", err)
		}
		if err := tx.Where("event_id = ?", id).Delete(&models.EventWinner{}).Error; err != nil {
			return fmt.Errorf("failed to delete winners: %w", err)
		}
		if err := tx.Where("event_id = ?", id).Delete(&models.EventRegistration{}).Error; err != nil {
			return fmt.Errorf("failed to delete registrations: %w", err)
		}
		if err := tx.Where("event_id = ?", id).Delete(&models.EventCollaborator{}).Error; err != nil {
			return fmt.Errorf("failed to delete collaborators: %w", err)
		}
		if err := tx.Model(&models.Poll{}).Where("event_id = ?", id).UpdateColumn("event_id", nil).Error; err != nil {
			return fmt.Errorf("failed to detach polls: %w", err)
		}
		res := tx.Delete(&models.Event{}, id)
		if res.Error != nil {
			return fmt.Errorf("failed to delete event %d: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}
