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

// ReviewTaskSubmission approves or rejects a pending task submission. Approval
// credits the student the awarded XP and the hosting club a fixed bonus.
func (s *Service) ReviewTaskSubmission(ctx context.Context, submissionID uint, status string, pointsAwarded int64, feedback string) (*models.TaskSubmission, error) {
	if status != models.SubmissionApproved && status != models.SubmissionRejected {
		return nil, s.done("review_task", ErrInvalidStatus)
	}
	if pointsAwarded < 0 {
		return nil, s.done("review_task", ErrInvalidAmount)
	}
	if status == models.SubmissionRejected {
		pointsAwarded = 0
	}

	sub, err := s.tasks.GetSubmission(ctx, submissionID)
	if err != nil {
		return nil, s.done("review_task", notFound(err, "task submission", submissionID))
	}
	if sub.Status != models.SubmissionPending {
		return nil, s.done("review_task", ErrAlreadyReviewed)
	}
	task, err := s.tasks.GetByID(ctx, sub.TaskID)
	if err != nil {
		return nil, s.done("review_task", notFound(err, "task", sub.TaskID))
	}

	now := s.now()
	err = s.db.Transaction(ctx, func(tx *repository.DB) error {
		ok, err := s.tasks.WithTx(tx).ReviewSubmission(ctx, sub.ID, status, pointsAwarded, feedback, now)
		if err != nil {
			return err
		}
		if !ok {
			return ErrAlreadyReviewed
		}
		if status != models.SubmissionApproved {
			return nil
		}

		ledgerTx := s.ledger.WithTx(tx)
		source := uintPtr(task.ID)
		if pointsAwarded > 0 {
			if _, err := ledgerTx.Apply(ctx, ledger.UserXP(sub.UserID, pointsAwarded, "Task approved: "+task.Title, models.SourceTask, source)); err != nil {
				return err
			}
		}
		if s.cfg.TaskApprovalClubPoints > 0 {
			m := ledger.ClubPoints(task.ClubID, s.cfg.TaskApprovalClubPoints, "Task submission approved: "+task.Title, models.SourceTask, source)
			if _, err := ledgerTx.Apply(ctx, m); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, s.done("review_task", fmt.Errorf("failed to review task submission %d: %w", sub.ID, err))
	}

	sub.Status = status
	sub.PointsAwarded = pointsAwarded
	sub.Feedback = feedback
	sub.ReviewedAt = &now

	if status == models.SubmissionApproved {
		s.notify(ctx, sub.UserID, "Task approved",
			fmt.Sprintf("Your submission for %s was approved. You earned %d XP.", task.Title, pointsAwarded))
	} else {
		s.notify(ctx, sub.UserID, "Task reviewed", fmt.Sprintf("Your submission for %s was not approved.", task.Title))
	}

	s.log.Info().
		Uint("submission_id", sub.ID).
		Uint("user_id", sub.UserID).
		Str("status", status).
		Int64("points", pointsAwarded).
		Msg("Task submission reviewed")
	return sub, s.done("review_task", nil)
}

// CastVote records a vote. Votes on rating polls credit the option's star value
// to the poll's club.
func (s *Service) CastVote(ctx context.Context, userID, pollID uint, optionIndex int) (*models.PollVote, error) {
	poll, err := s.polls.GetByID(ctx, pollID)
	if err != nil {
		return nil, s.done("cast_vote", notFound(err, "poll", pollID))
	}
	now := s.now()
	if !poll.IsOpen(now) {
		return nil, s.done("cast_vote", ErrPollClosed)
	}
	if optionIndex < 0 || optionIndex >= len(poll.Options) {
		return nil, s.done("cast_vote", ErrInvalidOption)
	}
	option := poll.Options[optionIndex]

	vote := &models.PollVote{PollID: poll.ID, UserID: userID, OptionIndex: optionIndex, CreatedAt: now}
	var stars int64
	err = s.db.Transaction(ctx, func(tx *repository.DB) error {
		polls := s.polls.WithTx(tx)
		if err := polls.AddVote(ctx, vote); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return ErrAlreadyVoted
			}
			return err
		}
		if err := polls.IncrementVotes(ctx, poll.ID, option.Position); err != nil {
			return err
		}
		if !poll.IsRatingPoll {
			return nil
		}
		stars = RatingStars(option.Label)
		if stars <= 0 {
			return nil
		}
		m := ledger.ClubPoints(poll.ClubID, stars, fmt.Sprintf("Rating: %s", option.Label), models.SourceBonus, uintPtr(poll.ID))
		_, err := s.ledger.WithTx(tx).Apply(ctx, m)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrAlreadyVoted) {
			return nil, s.done("cast_vote", ErrAlreadyVoted)
		}
		return nil, s.done("cast_vote", fmt.Errorf("failed to vote on poll %d: %w", poll.ID, err))
	}

	s.log.Debug().
		Uint("poll_id", poll.ID).
		Uint("user_id", userID).
		Int("option", optionIndex).
		Int64("stars", stars).
		Msg("Vote recorded")
	return vote, s.done("cast_vote", nil)
}

// RecordLogin credits the daily login bonus the first time a user logs in on a
// calendar day. It reports whether the bonus was paid.
func (s *Service) RecordLogin(ctx context.Context, userID uint) (bool, error) {
	now := s.now().In(s.loc)
	y, m, d := now.Date()
	dayStart := time.Date(y, m, d, 0, 0, 0, 0, s.loc).UTC()
	stamp := now.UTC()

	credited := false
	err := s.db.Transaction(ctx, func(tx *repository.DB) error {
		ok, err := s.users.WithTx(tx).ClaimDailyLogin(ctx, userID, dayStart, stamp)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if s.cfg.DailyLoginXP > 0 {
			if _, err := s.ledger.WithTx(tx).Apply(ctx, ledger.UserXP(userID, s.cfg.DailyLoginXP, "Daily login", models.SourceBonus, nil)); err != nil {
				return notFound(err, "user", userID)
			}
		}
		credited = true
		return nil
	})
	if err != nil {
		return false, s.done("daily_login", fmt.Errorf("failed to record login for user %d: %w", userID, err))
	}
	if !credited {
		// Either already claimed today or the user does not exist.
		if _, err := s.users.GetByID(ctx, userID); err != nil {
			return false, s.done("daily_login", notFound(err, "user", userID))
		}
	}
	return credited, s.done("daily_login", nil)
}

// ApproveProject approves a pending project, assigns its join code and credits
// the hosting club.
func (s *Service) ApproveProject(ctx context.Context, projectID uint) (*models.Project, error) {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, s.done("approve_project", notFound(err, "project", projectID))
	}
	if project.Status != models.ProjectPending {
		return nil, s.done("approve_project", ErrAlreadyReviewed)
	}

	now := s.now()
	code := s.newCode()
	err = s.db.Transaction(ctx, func(tx *repository.DB) error {
		ok, err := s.projects.WithTx(tx).Approve(ctx, project.ID, code, now)
		if err != nil {
			return err
		}
		if !ok {
			return ErrAlreadyReviewed
		}
		if s.cfg.ProjectApprovalClubPoints <= 0 {
			return nil
		}
		m := ledger.ClubPoints(project.ClubID, s.cfg.ProjectApprovalClubPoints, "Project approved: "+project.Title, models.SourceBonus, uintPtr(project.ID))
		_, err = s.ledger.WithTx(tx).Apply(ctx, m)
		return err
	})
	if err != nil {
		return nil, s.done("approve_project", fmt.Errorf("failed to approve project %d: %w", project.ID, err))
	}

	project.Status = models.ProjectApproved
	project.JoinCode = &code
	project.ApprovedAt = &now

	s.log.Info().
		Uint("project_id", project.ID).
		Uint("club_id", project.ClubID).
		Str("join_code", code).
		Msg("Project approved")
	return project, s.done("approve_project", nil)
}

// JoinProject adds a user to an approved project and credits the project's XP reward.
func (s *Service) JoinProject(ctx context.Context, userID, projectID uint) (*models.ProjectMember, error) {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, s.done("join_project", notFound(err, "project", projectID))
	}
	m, err := s.joinProject(ctx, userID, project)
	return m, s.done("join_project", err)
}

// JoinProjectByCode adds a user to an approved project through its join code.
func (s *Service) JoinProjectByCode(ctx context.Context, userID uint, code string) (*models.ProjectMember, error) {
	project, err := s.projects.GetByJoinCode(ctx, code)
	if err != nil {
		return nil, s.done("join_project", notFound(err, "project code", code))
	}
	m, err := s.joinProject(ctx, userID, project)
	return m, s.done("join_project", err)
}

func (s *Service) joinProject(ctx context.Context, userID uint, p *models.Project) (*models.ProjectMember, error) {
	if p.Status != models.ProjectApproved {
		return nil, ErrNotApproved
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, notFound(err, "user", userID)
	}
	member, err := s.projects.IsMember(ctx, p.ID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to check project membership: %w", err)
	}
	if member {
		return nil, ErrAlreadyMember
	}

	now := s.now()
	row := &models.ProjectMember{ProjectID: p.ID, UserID: userID, JoinedAt: now}
	err = s.db.Transaction(ctx, func(tx *repository.DB) error {
		projects := s.projects.WithTx(tx)
		if p.MaxTeamSize > 0 {
			n, err := projects.CountMembers(ctx, p.ID)
			if err != nil {
				return fmt.Errorf("failed to count project members: %w", err)
			}
			if n >= int64(p.MaxTeamSize) {
				return ErrTeamFull
			}
		}
		if err := projects.AddMember(ctx, row); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return ErrAlreadyMember
			}
			return err
		}
		if p.XPReward > 0 {
			if _, err := s.ledger.WithTx(tx).Apply(ctx, ledger.UserXP(userID, p.XPReward, "Joined project: "+p.Title, models.SourceBonus, uintPtr(p.ID))); err != nil {
				return err
			}
		}
		return s.challenges.WithTx(tx).UpsertActivity(ctx, &models.Activity{
			UserID:    userID,
			Kind:      models.ActivityProject,
			RefID:     p.ID,
			Title:     p.Title,
			Status:    models.ActivityStarted,
			CreatedAt: now,
			UpdatedAt: now,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to join project %d: %w", p.ID, err)
	}

	s.log.Info().
		Uint("user_id", userID).
		Uint("project_id", p.ID).
		Int64("xp", p.XPReward).
		Msg("User joined project")
	return row, nil
}
