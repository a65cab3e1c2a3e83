package rewards

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aimd54/campus-rewards/internal/models"
	"github.com/aimd54/campus-rewards/internal/repository"
	"github.com/aimd54/campus-rewards/internal/service/ledger"
)

// GradeResult is the outcome of grading a challenge submission.
type GradeResult struct {
	SubmissionID uint   `json:"submission_id"`
	Status       string `json:"status"`
	Marks        int    `json:"marks"`
	Awarded      int64  `json:"awarded"`
}

// joinHook runs inside the join transaction before the fee is taken.
type joinHook func(ctx context.Context, tx *repository.DB, p *models.ChallengeParticipant) error

// JoinChallenge enrolls a user, taking the entry fee.
func (s *Service) JoinChallenge(ctx context.Context, userID, challengeID uint) (*models.ChallengeParticipant, error) {
	challenge, err := s.challenges.GetByID(ctx, challengeID)
	if err != nil {
		return nil, s.done("join_challenge", notFound(err, "challenge", challengeID))
	}
	p, err := s.joinChallenge(ctx, userID, challenge, nil)
	return p, s.done("join_challenge", err)
}

// JoinChallengeByCode enrolls a user through a challenge's join code.
func (s *Service) JoinChallengeByCode(ctx context.Context, userID uint, code string) (*models.ChallengeParticipant, error) {
	challenge, err := s.challenges.GetByJoinCode(ctx, code)
	if err != nil {
		return nil, s.done("join_challenge", notFound(err, "challenge code", code))
	}
	p, err := s.joinChallenge(ctx, userID, challenge, nil)
	return p, s.done("join_challenge", err)
}

// CreateChallengeTeam creates a team led by the user and enrolls the user in it.
func (s *Service) CreateChallengeTeam(ctx context.Context, userID, challengeID uint, name string) (*models.ChallengeTeam, error) {
	challenge, err := s.challenges.GetByID(ctx, challengeID)
	if err != nil {
		return nil, s.done("create_team", notFound(err, "challenge", challengeID))
	}

	team := &models.ChallengeTeam{
		ChallengeID: challenge.ID,
		Name:        name,
		LeaderID:    userID,
		Code:        s.newCode(),
	}
	_, err = s.joinChallenge(ctx, userID, challenge, func(ctx context.Context, tx *repository.DB, p *models.ChallengeParticipant) error {
		if err := s.challenges.WithTx(tx).CreateTeam(ctx, team); err != nil {
			return err
		}
		p.TeamID = &team.ID
		return nil
	})
	if err != nil {
		return nil, s.done("create_team", err)
	}
	return team, s.done("create_team", nil)
}

// JoinChallengeTeam enrolls a user into an existing team by its code.
func (s *Service) JoinChallengeTeam(ctx context.Context, userID uint, teamCode string) (*models.ChallengeParticipant, error) {
	team, err := s.challenges.GetTeamByCode(ctx, teamCode)
	if err != nil {
		return nil, s.done("join_team", notFound(err, "team code", teamCode))
	}
	challenge, err := s.challenges.GetByID(ctx, team.ChallengeID)
	if err != nil {
		return nil, s.done("join_team", notFound(err, "challenge", team.ChallengeID))
	}

	full := func(ctx context.Context, repo *repository.ChallengeRepository) error {
		n, err := repo.CountTeamMembers(ctx, team.ID)
		if err != nil {
			return fmt.Errorf("failed to count team members: %w", err)
		}
		if challenge.MaxTeamSize > 0 && n >= int64(challenge.MaxTeamSize) {
			return ErrTeamFull
		}
		return nil
	}
	if err := full(ctx, s.challenges); err != nil {
		return nil, s.done("join_team", err)
	}

	p, err := s.joinChallenge(ctx, userID, challenge, func(ctx context.Context, tx *repository.DB, p *models.ChallengeParticipant) error {
		if err := full(ctx, s.challenges.WithTx(tx)); err != nil {
			return err
		}
		p.TeamID = &team.ID
		return nil
	})
	return p, s.done("join_team", err)
}

func (s *Service) joinChallenge(ctx context.Context, userID uint, c *models.Challenge, hook joinHook) (*models.ChallengeParticipant, error) {
	now := s.now()
	if !c.IsOpen(now) {
		return nil, ErrDeadlinePassed
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, notFound(err, "user", userID)
	}
	joined, err := s.challenges.IsParticipant(ctx, c.ID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to check participation: %w", err)
	}
	if joined {
		return nil, ErrAlreadyJoined
	}
	if user.Points < c.EntryFee {
		return nil, ErrInsufficientPoints
	}

	p := &models.ChallengeParticipant{
		ChallengeID: c.ID,
		UserID:      userID,
		FeePaid:     c.EntryFee,
		JoinedAt:    now,
	}
	err = s.db.Transaction(ctx, func(tx *repository.DB) error {
		challenges := s.challenges.WithTx(tx)
		if hook != nil {
			if err := hook(ctx, tx, p); err != nil {
				return err
			}
		}
		if err := challenges.AddParticipant(ctx, p); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return ErrAlreadyJoined
			}
			return err
		}
		if c.EntryFee > 0 {
			_, err := s.ledger.WithTx(tx).Debit(ctx, userID, c.EntryFee, "Entry fee: "+c.Title, models.SourceChallenge, uintPtr(c.ID))
			if errors.Is(err, repository.ErrInsufficientPoints) {
				return ErrInsufficientPoints
			}
			if err != nil {
				return err
			}
		}
		if err := challenges.IncrementParticipants(ctx, c.ID); err != nil {
			return err
		}
		return challenges.UpsertActivity(ctx, &models.Activity{
			UserID:    userID,
			Kind:      models.ActivityChallenge,
			RefID:     c.ID,
			Title:     c.Title,
			Status:    models.ActivityStarted,
			CreatedAt: now,
			UpdatedAt: now,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to join challenge %d: %w", c.ID, err)
	}

	if s.cfg.ChallengeJoinClubCoins > 0 {
		coins := ledger.ClubCoins(c.ClubID, s.cfg.ChallengeJoinClubCoins, models.SourceChallenge, uintPtr(c.ID))
		if _, err := s.ledger.Apply(ctx, coins); err != nil {
			s.stepFailed("join_challenge", "club_coins", err).
				Uint("challenge_id", c.ID).
				Uint("club_id", c.ClubID).
				Uint("user_id", userID).
				Msg("Participant enrolled but club coins were not credited")
		}
	}

	s.log.Info().
		Uint("user_id", userID).
		Uint("challenge_id", c.ID).
		Int64("fee", c.EntryFee).
		Msg("User joined challenge")
	return p, nil
}

// GradeSubmission grades a pending submission. Marks at or above the pass mark
// credit round(marks/100 × challenge points) XP.
func (s *Service) GradeSubmission(ctx context.Context, submissionID uint, marks int, feedback string) (*GradeResult, error) {
	if marks < 0 || marks > 100 {
		return nil, s.done("grade_submission", ErrInvalidMarks)
	}

	sub, err := s.challenges.GetSubmission(ctx, submissionID)
	if err != nil {
		return nil, s.done("grade_submission", notFound(err, "submission", submissionID))
	}
	if sub.Status != models.SubmissionPending {
		return nil, s.done("grade_submission", ErrAlreadyReviewed)
	}
	challenge, err := s.challenges.GetByID(ctx, sub.ChallengeID)
	if err != nil {
		return nil, s.done("grade_submission", notFound(err, "challenge", sub.ChallengeID))
	}

	now := s.now()
	result := &GradeResult{SubmissionID: sub.ID, Marks: marks, Status: models.SubmissionRejected}
	activity := models.ActivityRejected
	if marks >= s.cfg.ChallengePassMarks {
		result.Status = models.SubmissionApproved
		result.Awarded = GradeCredit(marks, challenge.Points)
		activity = models.ActivityCompleted
	}

	err = s.db.Transaction(ctx, func(tx *repository.DB) error {
		challenges := s.challenges.WithTx(tx)
		ok, err := challenges.GradeSubmission(ctx, sub.ID, result.Status, marks, feedback, now)
		if err != nil {
			return err
		}
		if !ok {
			return ErrAlreadyReviewed
		}
		if result.Awarded > 0 {
			reason := fmt.Sprintf("Challenge completed: %s (%d/100)", challenge.Title, marks)
			credit := ledger.UserXP(sub.UserID, result.Awarded, reason, models.SourceChallenge, uintPtr(challenge.ID))
			if _, err := s.ledger.WithTx(tx).Apply(ctx, credit); err != nil {
				return err
			}
		}
		return challenges.UpsertActivity(ctx, &models.Activity{
			UserID:    sub.UserID,
			Kind:      models.ActivityChallenge,
			RefID:     challenge.ID,
			Title:     challenge.Title,
			Status:    activity,
			CreatedAt: now,
			UpdatedAt: now,
		})
	})
	if err != nil {
		return nil, s.done("grade_submission", fmt.Errorf("failed to grade submission %d: %w", sub.ID, err))
	}

	if result.Status == models.SubmissionApproved {
		s.grantChallengeRewards(ctx, sub.UserID, challenge, now)
		s.notify(ctx, sub.UserID, "Challenge passed",
			fmt.Sprintf("You scored %d/100 on %s and earned %d XP.", marks, challenge.Title, result.Awarded))
	} else {
		s.notify(ctx, sub.UserID, "Challenge graded",
			fmt.Sprintf("You scored %d/100 on %s. The pass mark is %d.", marks, challenge.Title, s.cfg.ChallengePassMarks))
	}

	s.log.Info().
		Uint("submission_id", sub.ID).
		Uint("user_id", sub.UserID).
		Int("marks", marks).
		Int64("awarded", result.Awarded).
		Str("status", result.Status).
		Msg("Submission graded")
	return result, s.done("grade_submission", nil)
}

func (s *Service) grantChallengeRewards(ctx context.Context, userID uint, c *models.Challenge, now time.Time) {
	if c.BadgeName != "" {
		badge := models.UserBadge{
			UserID:      userID,
			Kind:        models.BadgeKindChallenge,
			Name:        c.BadgeName,
			Icon:        c.BadgeIcon,
			Description: "Completed " + c.Title,
			EarnedAt:    now,
		}
		if err := s.users.AddBadges(ctx, []models.UserBadge{badge}); err != nil {
			s.stepFailed("grade_submission", "badge", err).
				Uint("user_id", userID).
				Uint("challenge_id", c.ID).
				Msg("XP credited but challenge badge was not granted")
		}
	}
	if c.SkillName != "" {
		skill := &models.UserSkill{UserID: userID, Name: c.SkillName, ChallengeID: uintPtr(c.ID), EarnedAt: now}
		if err := s.users.AddSkill(ctx, skill); err != nil {
			s.stepFailed("grade_submission", "skill", err).
				Uint("user_id", userID).
				Uint("challenge_id", c.ID).
				Msg("XP credited but skill was not granted")
		}
	}
}

// RecordChallengeCreated rewards the hosting club for publishing a challenge
// and assigns a join code if the challenge has none.
func (s *Service) RecordChallengeCreated(ctx context.Context, challengeID uint) (*models.Challenge, error) {
	challenge, err := s.challenges.GetByID(ctx, challengeID)
	if err != nil {
		return nil, s.done("challenge_created", notFound(err, "challenge", challengeID))
	}

	m := ledger.ClubPoints(challenge.ClubID, s.cfg.ChallengeCreateClubPoints,
		"Challenge created: "+challenge.Title, models.SourceBonus, uintPtr(challenge.ID))
	m.Coins = s.cfg.ChallengeCreateClubCoins
	if _, err := s.ledger.Apply(ctx, m); err != nil {
		return nil, s.done("challenge_created", fmt.Errorf("failed to reward club %d: %w", challenge.ClubID, notFound(err, "club", challenge.ClubID)))
	}

	if challenge.JoinCode == nil {
		if err := s.challenges.SetJoinCodeIfMissing(ctx, challenge.ID, s.newCode()); err != nil {
			s.stepFailed("challenge_created", "join_code", err).
				Uint("challenge_id", challenge.ID).
				Msg("Club rewarded but join code was not assigned")
		}
	}

	s.log.Info().
		Uint("challenge_id", challenge.ID).
		Uint("club_id", challenge.ClubID).
		Msg("Challenge creation rewarded")

	updated, err := s.challenges.GetByID(ctx, challenge.ID)
	if err != nil {
		return challenge, s.done("challenge_created", nil)
	}
	return updated, s.done("challenge_created", nil)
}
