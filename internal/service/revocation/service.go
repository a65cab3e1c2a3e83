// Package revocation reverses the rewards of a completed event when it is deleted.
package revocation

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aimd54/campus-rewards/internal/config"
	prommetrics "github.com/aimd54/campus-rewards/internal/metrics"
	"github.com/aimd54/campus-rewards/internal/models"
	"github.com/aimd54/campus-rewards/internal/repository"
	"github.com/aimd54/campus-rewards/internal/service/ledger"
	"github.com/aimd54/campus-rewards/internal/service/rewards"
	"github.com/aimd54/campus-rewards/pkg/logger"
)

const operation = "delete_event"

// Result summarizes a deletion. Shortfall is the clamped amount per counter,
// summed over every subject. FailedSteps names the reversals that could not
// be applied; those subjects need manual reconciliation.
type Result struct {
	EventID            uint             `json:"event_id"`
	WasCompleted       bool             `json:"was_completed"`
	ClubPoints         int64            `json:"club_points"`
	CollaboratorPoints int64            `json:"collaborator_points"`
	RatingPoints       int64            `json:"rating_points"`
	RegistrantsRevoked int              `json:"registrants_revoked"`
	WinnersRevoked     int              `json:"winners_revoked"`
	Shortfall          map[string]int64 `json:"shortfall,omitempty"`
	FailedSteps        []string         `json:"failed_steps,omitempty"`
	Deleted            bool             `json:"deleted"`
}

func (r *Result) addShortfall(applied *ledger.Result) {
	for counter, missing := range applied.Shortfall {
		r.Shortfall[counter] += missing
	}
}

// Service handles event revocation.
type Service struct {
	events *repository.EventRepository
	polls  *repository.PollRepository
	ledger *ledger.Service
	cfg    config.RewardsConfig
	log    *logger.Logger
}

// NewService creates a new revocation service.
func NewService(
	events *repository.EventRepository,
	polls *repository.PollRepository,
	ledgerSvc *ledger.Service,
	cfg config.RewardsConfig,
	log *logger.Logger,
) *Service {
	return &Service{
		events: events,
		polls:  polls,
		ledger: ledgerSvc,
		cfg:    cfg,
		log:    log,
	}
}

// DeleteEvent deletes an event. A completed event first has everything it
// credited subtracted again, clamped at zero: the host club total, the
// collaborator shares, the registrant and winner XP and the rating poll stars.
// Every reversal is attempted and the event is deleted afterwards; failed
// reversals are logged and reported in the result.
//
// Each subject loses at most what the event still nets for it in the ledger,
// so running DeleteEvent again after a failed delete never revokes twice.
func (s *Service) DeleteEvent(ctx context.Context, eventID uint) (*Result, error) {
	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			err = fmt.Errorf("event %d: %w", eventID, rewards.ErrNotFound)
		}
		prommetrics.RecordAction(operation, "rejected")
		return nil, err
	}

	res := &Result{EventID: event.ID, WasCompleted: event.IsCompleted(), Shortfall: map[string]int64{}}
	if res.WasCompleted {
		s.revoke(ctx, event, res)
	}

	if err := s.events.Delete(ctx, event.ID); err != nil {
		prommetrics.RecordAction(operation, "error")
		return res, fmt.Errorf("failed to delete event %d: %w", event.ID, err)
	}
	res.Deleted = true

	if len(res.FailedSteps) > 0 {
		prommetrics.RecordAction(operation, "partial")
		s.log.Warn().
			Uint("event_id", event.ID).
			Strs("failed_steps", res.FailedSteps).
			Msg("Event deleted with reversals that need manual reconciliation")
	} else {
		prommetrics.RecordAction(operation, "success")
	}

	s.log.Info().
		Uint("event_id", event.ID).
		Bool("was_completed", res.WasCompleted).
		Int64("club_points", res.ClubPoints).
		Int64("rating_points", res.RatingPoints).
		Int("registrants", res.RegistrantsRevoked).
		Int("winners", res.WinnersRevoked).
		Interface("shortfall", res.Shortfall).
		Msg("Event deleted")
	return res, nil
}

func (s *Service) revoke(ctx context.Context, event *models.Event, res *Result) {
	source := &event.ID
	reason := "revoked: " + event.Title

	res.ClubPoints = rewards.EventClubPoints(s.cfg, event.ChiefGuests, event.Competitions, event.Participants, event.Unannounced)
	if res.ClubPoints != event.AwardedPoints {
		s.log.Warn().
			Uint("event_id", event.ID).
			Int64("recomputed", res.ClubPoints).
			Int64("awarded", event.AwardedPoints).
			Msg("Recomputed event total differs from the awarded total")
	}
	if res.ClubPoints > 0 {
		s.reverse(ctx, event, res, "club", "club", models.SubjectClub, event.ClubID, res.ClubPoints, func(amount int64) ledger.Mutation {
			return ledger.ClubPoints(event.ClubID, -amount, reason, models.SourceEvent, source)
		})
	}

	res.CollaboratorPoints = rewards.CollaboratorPoints(s.cfg, res.ClubPoints)
	if collaborators := rewards.CollaboratorIDs(event); len(collaborators) > 0 && res.CollaboratorPoints > 0 {
		s.revokeCollaborators(ctx, event, res, collaborators, reason)
	}

	if s.cfg.EventRegistrantXP > 0 {
		for _, userID := range rewards.RegistrantIDs(event) {
			ok := s.reverse(ctx, event, res, "registrant", fmt.Sprintf("registrant:%d", userID), models.SubjectUser, userID, s.cfg.EventRegistrantXP, func(amount int64) ledger.Mutation {
				return ledger.UserXP(userID, -amount, reason, models.SourceEvent, source)
			})
			if ok {
				res.RegistrantsRevoked++
			}
		}
	}

	for i := range event.Winners {
		w := &event.Winners[i]
		xp := rewards.WinnerXP(s.cfg, w.Position)
		if xp <= 0 {
			continue
		}
		for _, userID := range rewards.WinnerIDs(w) {
			ok := s.reverse(ctx, event, res, "winner", fmt.Sprintf("winner:%d", userID), models.SubjectUser, userID, xp, func(amount int64) ledger.Mutation {
				return ledger.UserXP(userID, -amount, reason, models.SourceEvent, source)
			})
			if ok {
				res.WinnersRevoked++
			}
		}
	}

	s.revokeRatings(ctx, event, res)
}

// reverse subtracts up to amount from one subject, bounded by what the event
// still nets for it. It reports whether the subject ends up fully reversed.
func (s *Service) reverse(
	ctx context.Context,
	event *models.Event,
	res *Result,
	step, detail string,
	subject models.SubjectType,
	subjectID uint,
	amount int64,
	mutation func(amount int64) ledger.Mutation,
) bool {
	net, err := s.ledger.Net(ctx, subject, subjectID, models.SourceEvent, event.ID)
	if err != nil {
		s.fail(res, step, detail, err).Uint("event_id", event.ID).Uint("subject_id", subjectID).Msg("Failed to read event ledger")
		return false
	}
	if net <= 0 {
		s.log.Debug().
			Uint("event_id", event.ID).
			Str("subject", string(subject)).
			Uint("subject_id", subjectID).
			Msg("Nothing left to revoke")
		return false
	}

	applied, err := s.ledger.Apply(ctx, mutation(min(amount, net)))
	if err != nil {
		s.fail(res, step, detail, err).Uint("event_id", event.ID).Uint("subject_id", subjectID).Msg("Failed to revoke event reward")
		return false
	}
	res.addShortfall(applied)
	return true
}

// revokeCollaborators takes the share back from every collaborating club still
// holding it in one bulk statement. Clubs holding less lose only what they hold.
func (s *Service) revokeCollaborators(ctx context.Context, event *models.Event, res *Result, collaborators []uint, reason string) {
	share := res.CollaboratorPoints
	source := &event.ID

	var bulk []uint
	for _, clubID := range collaborators {
		net, err := s.ledger.Net(ctx, models.SubjectClub, clubID, models.SourceEvent, event.ID)
		if err != nil {
			s.fail(res, "collaborators", fmt.Sprintf("collaborator:%d", clubID), err).Uint("event_id", event.ID).Uint("club_id", clubID).Msg("Failed to read event ledger")
			continue
		}
		switch {
		case net >= share:
			bulk = append(bulk, clubID)
		case net > 0:
			s.reverse(ctx, event, res, "collaborators", fmt.Sprintf("collaborator:%d", clubID), models.SubjectClub, clubID, share, func(amount int64) ledger.Mutation {
				return ledger.ClubPoints(clubID, -amount, reason, models.SourceEvent, source)
			})
		}
	}
	if len(bulk) == 0 {
		return
	}

	results, err := s.ledger.ApplyClubs(ctx, bulk, ledger.ClubPoints(0, -share, reason, models.SourceEvent, source))
	if err != nil {
		s.fail(res, "collaborators", "collaborators", err).Uint("event_id", event.ID).Interface("club_ids", bulk).Msg("Failed to revoke collaborator points")
		return
	}
	for _, applied := range results {
		res.addShortfall(applied)
	}
}

// revokeRatings takes back the stars of the event's rating polls. A poll is
// detached once its stars are reversed so it is never counted again.
func (s *Service) revokeRatings(ctx context.Context, event *models.Event, res *Result) {
	polls, err := s.polls.RatingPollsForEvent(ctx, event.ID)
	if err != nil {
		s.fail(res, "rating_polls", "rating_polls", err).Uint("event_id", event.ID).Msg("Failed to load rating polls")
		return
	}
	for i := range polls {
		poll := &polls[i]
		if stars := RatingTotal(poll); stars > 0 {
			m := ledger.ClubPoints(poll.ClubID, -stars, "revoked rating: "+event.Title, models.SourceBonus, &poll.ID)
			applied, err := s.ledger.Apply(ctx, m)
			if err != nil {
				s.fail(res, "rating_poll", fmt.Sprintf("rating_poll:%d", poll.ID), err).Uint("event_id", event.ID).Uint("poll_id", poll.ID).Msg("Failed to revoke rating points")
				continue
			}
			res.RatingPoints += stars
			res.addShortfall(applied)
		}
		if err := s.polls.Detach(ctx, poll.ID); err != nil {
			s.fail(res, "rating_poll", fmt.Sprintf("rating_poll:%d", poll.ID), err).Uint("event_id", event.ID).Uint("poll_id", poll.ID).Msg("Failed to detach rating poll")
		}
	}
}

// RatingTotal is Σ votes × stars over a rating poll's options.
func RatingTotal(p *models.Poll) int64 {
	var total int64
	for _, o := range p.Options {
		total += int64(o.Votes) * rewards.RatingStars(o.Label)
	}
	return total
}

// fail records a failed reversal. step labels the metric; detail names the subject.
func (s *Service) fail(res *Result, step, detail string, err error) *zerolog.Event {
	res.FailedSteps = append(res.FailedSteps, detail)
	prommetrics.RecordPartialFailure(operation, step)
	return s.log.Error().Err(err).Str("operation", operation).Str("step", step)
}
