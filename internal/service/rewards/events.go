package rewards

import (
	"context"
	"fmt"

	prommetrics "github.com/aimd54/campus-rewards/internal/metrics"
	"github.com/aimd54/campus-rewards/internal/models"
	"github.com/aimd54/campus-rewards/internal/repository"
	"github.com/aimd54/campus-rewards/internal/service/ledger"
)

// EventReport is the organizer's completion report.
type EventReport struct {
	ChiefGuests  int `json:"chief_guests" binding:"min=0"`
	Competitions int `json:"competitions" binding:"min=0"`
}

// EventAward summarizes what an event completion credited.
type EventAward struct {
	EventID             uint     `json:"event_id"`
	ClubPoints          int64    `json:"club_points"`
	CollaboratorPoints  int64    `json:"collaborator_points"`
	Participants        int      `json:"participants"`
	Unannounced         bool     `json:"unannounced"`
	RegistrantsCredited int      `json:"registrants_credited"`
	WinnersCredited     int      `json:"winners_credited"`
	FailedSteps         []string `json:"failed_steps,omitempty"`
}

// RegistrantIDs returns every distinct user on an event's registrations, leaders first.
func RegistrantIDs(event *models.Event) []uint {
	seen := make(map[uint]bool)
	var ids []uint
	for i := range event.Registrations {
		for _, id := range event.Registrations[i].UserIDs() {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	return ids
}

// WinnerIDs returns the distinct users of a winning registration.
func WinnerIDs(w *models.EventWinner) []uint {
	seen := make(map[uint]bool)
	var ids []uint
	for _, id := range w.Registration.UserIDs() {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}

// CollaboratorIDs returns the collaborating club ids, excluding the host.
func CollaboratorIDs(event *models.Event) []uint {
	var ids []uint
	for _, c := range event.Collaborators {
		if c.ClubID != event.ClubID {
			ids = append(ids, c.ClubID)
		}
	}
	return ids
}

// CompleteEvent marks an event completed and awards the host club, the
// collaborating clubs, every registrant and the winners. The completion flag is
// set first so an event is never paid twice; the awards that follow are
// best-effort and failures are logged per subject.
func (s *Service) CompleteEvent(ctx context.Context, eventID uint, report EventReport) (*EventAward, error) {
	if report.ChiefGuests < 0 || report.Competitions < 0 {
		return nil, s.done("complete_event", ErrInvalidAmount)
	}

	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, s.done("complete_event", notFound(err, "event", eventID))
	}
	if event.IsCompleted() {
		return nil, s.done("complete_event", ErrAlreadyCompleted)
	}

	now := s.now()
	participants := len(event.Registrations)
	unannounced := event.RegistrationsAtCreation == 0 ||
		event.CreatedAt.After(now.Add(-s.cfg.UnannouncedWindow))
	total := EventClubPoints(s.cfg, report.ChiefGuests, report.Competitions, participants, unannounced)

	award := &EventAward{
		EventID:            event.ID,
		ClubPoints:         total,
		CollaboratorPoints: CollaboratorPoints(s.cfg, total),
		Participants:       participants,
		Unannounced:        unannounced,
	}

	ok, err := s.events.MarkCompleted(ctx, event.ID, repository.EventCompletion{
		ChiefGuests:   report.ChiefGuests,
		Competitions:  report.Competitions,
		Participants:  participants,
		Unannounced:   unannounced,
		AwardedPoints: total,
		CompletedAt:   now,
	})
	if err != nil {
		return nil, s.done("complete_event", err)
	}
	if !ok {
		return nil, s.done("complete_event", ErrAlreadyCompleted)
	}

	source := uintPtr(event.ID)
	if total > 0 {
		m := ledger.ClubPoints(event.ClubID, total, "Event completed: "+event.Title, models.SourceEvent, source)
		if _, err := s.ledger.Apply(ctx, m); err != nil {
			award.FailedSteps = append(award.FailedSteps, "club")
			s.stepFailed("complete_event", "club", err).
				Uint("event_id", event.ID).
				Uint("club_id", event.ClubID).
				Int64("amount", total).
				Msg("Failed to credit host club")
		}
	}

	if collaborators := CollaboratorIDs(event); len(collaborators) > 0 && award.CollaboratorPoints > 0 {
		m := ledger.ClubPoints(0, award.CollaboratorPoints, "Event collaboration: "+event.Title, models.SourceEvent, source)
		if _, err := s.ledger.ApplyClubs(ctx, collaborators, m); err != nil {
			award.FailedSteps = append(award.FailedSteps, "collaborators")
			s.stepFailed("complete_event", "collaborators", err).
				Uint("event_id", event.ID).
				Interface("club_ids", collaborators).
				Int64("amount", award.CollaboratorPoints).
				Msg("Failed to credit collaborating clubs")
		}
	}

	if s.cfg.EventRegistrantXP > 0 {
		for _, userID := range RegistrantIDs(event) {
			m := ledger.UserXP(userID, s.cfg.EventRegistrantXP, "Event participation: "+event.Title, models.SourceEvent, source)
			if _, err := s.ledger.Apply(ctx, m); err != nil {
				award.FailedSteps = append(award.FailedSteps, fmt.Sprintf("registrant:%d", userID))
				s.stepFailed("complete_event", "registrant", err).
					Uint("event_id", event.ID).
					Uint("user_id", userID).
					Msg("Failed to credit registrant")
				continue
			}
			award.RegistrantsCredited++
		}
	}

	for i := range event.Winners {
		w := &event.Winners[i]
		xp := WinnerXP(s.cfg, w.Position)
		if xp <= 0 {
			continue
		}
		reason := fmt.Sprintf("Event winner #%d: %s", w.Position, event.Title)
		for _, userID := range WinnerIDs(w) {
			if _, err := s.ledger.Apply(ctx, ledger.UserXP(userID, xp, reason, models.SourceEvent, source)); err != nil {
				award.FailedSteps = append(award.FailedSteps, fmt.Sprintf("winner:%d", userID))
				s.stepFailed("complete_event", "winner", err).
					Uint("event_id", event.ID).
					Uint("user_id", userID).
					Int("position", w.Position).
					Msg("Failed to credit winner")
				continue
			}
			award.WinnersCredited++
		}
	}

	prommetrics.ObserveEventAward(total)
	s.log.Info().
		Uint("event_id", event.ID).
		Int64("club_points", total).
		Bool("unannounced", unannounced).
		Int("participants", participants).
		Int("registrants", award.RegistrantsCredited).
		Int("winners", award.WinnersCredited).
		Int("failed_steps", len(award.FailedSteps)).
		Msg("Event completed")
	return award, s.done("complete_event", nil)
}
