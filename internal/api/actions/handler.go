// Package actions provides the REST endpoints collaborating services call to
// report reward-relevant actions, plus the admin reset triggers.
package actions

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aimd54/campus-rewards/internal/api/apierr"
	"github.com/aimd54/campus-rewards/internal/api/identity"
	"github.com/aimd54/campus-rewards/internal/models"
	"github.com/aimd54/campus-rewards/internal/service/reset"
	"github.com/aimd54/campus-rewards/internal/service/revocation"
	"github.com/aimd54/campus-rewards/internal/service/rewards"
	"github.com/aimd54/campus-rewards/pkg/logger"
)

// RewardService interface for reward dispatch operations.
type RewardService interface {
	CompleteEvent(ctx context.Context, eventID uint, report rewards.EventReport) (*rewards.EventAward, error)
	JoinChallenge(ctx context.Context, userID, challengeID uint) (*models.ChallengeParticipant, error)
	JoinChallengeByCode(ctx context.Context, userID uint, code string) (*models.ChallengeParticipant, error)
	RecordChallengeCreated(ctx context.Context, challengeID uint) (*models.Challenge, error)
	CreateChallengeTeam(ctx context.Context, userID, challengeID uint, name string) (*models.ChallengeTeam, error)
	JoinChallengeTeam(ctx context.Context, userID uint, teamCode string) (*models.ChallengeParticipant, error)
	GradeSubmission(ctx context.Context, submissionID uint, marks int, feedback string) (*rewards.GradeResult, error)
	ReviewTaskSubmission(ctx context.Context, submissionID uint, status string, pointsAwarded int64, feedback string) (*models.TaskSubmission, error)
	CastVote(ctx context.Context, userID, pollID uint, optionIndex int) (*models.PollVote, error)
	RecordLogin(ctx context.Context, userID uint) (bool, error)
	ApproveProject(ctx context.Context, projectID uint) (*models.Project, error)
	JoinProject(ctx context.Context, userID, projectID uint) (*models.ProjectMember, error)
	JoinProjectByCode(ctx context.Context, userID uint, code string) (*models.ProjectMember, error)
}

// RevocationService interface for event deletion.
type RevocationService interface {
	DeleteEvent(ctx context.Context, eventID uint) (*revocation.Result, error)
}

// ResetService interface for the admin reset triggers.
type ResetService interface {
	RunWeeklyManual(ctx context.Context, now time.Time, force bool) (*reset.Report, error)
	RunMonthly(ctx context.Context, now time.Time) (*reset.Report, error)
}

// Handler handles action and admin requests.
type Handler struct {
	rewardService     RewardService
	revocationService RevocationService
	resetService      ResetService
	log               *logger.Logger
	now               func() time.Time
}

// NewHandler creates a new action handler.
func NewHandler(rewardService *rewards.Service, revocationService *revocation.Service, resetService *reset.Service, log *logger.Logger) *Handler {
	return NewHandlerWithInterfaces(rewardService, revocationService, resetService, log)
}

// NewHandlerWithInterfaces creates a new action handler with interface dependencies (useful for testing).
func NewHandlerWithInterfaces(rewardService RewardService, revocationService RevocationService, resetService ResetService, log *logger.Logger) *Handler {
	return &Handler{
		rewardService:     rewardService,
		revocationService: revocationService,
		resetService:      resetService,
		log:               log,
		now:               time.Now,
	}
}

// Register mounts the action routes on actions and the reset triggers on admin.
func (h *Handler) Register(actions, admin *gin.RouterGroup) {
	actions.POST("/events/:id/complete", h.CompleteEvent)
	actions.DELETE("/events/:id", h.DeleteEvent)
	actions.POST("/challenges/:id/created", h.RecordChallengeCreated)
	actions.POST("/submissions/:id/grade", h.GradeSubmission)
	actions.POST("/task-submissions/:id/review", h.ReviewTaskSubmission)
	actions.POST("/projects/:id/approve", h.ApproveProject)

	user := actions.Group("", identity.RequireUser())
	user.POST("/challenges/:id/join", h.JoinChallenge)
	user.POST("/challenges/join-by-code", h.JoinChallengeByCode)
	user.POST("/challenges/:id/teams", h.CreateChallengeTeam)
	user.POST("/challenge-teams/join", h.JoinChallengeTeam)
	user.POST("/polls/:id/vote", h.CastVote)
	user.POST("/logins", h.RecordLogin)
	user.POST("/projects/:id/join", h.JoinProject)
	user.POST("/projects/join-by-code", h.JoinProjectByCode)

	admin.POST("/resets/weekly", h.RunWeeklyReset)
	admin.POST("/resets/monthly", h.RunMonthlyReset)
}

type codeRequest struct {
	Code string `json:"code" binding:"required"`
}

type teamRequest struct {
	Name string `json:"name" binding:"required,max=255"`
}

type gradeRequest struct {
	Marks    *int   `json:"marks" binding:"required"`
	Feedback string `json:"feedback"`
}

type reviewRequest struct {
	Status        string `json:"status" binding:"required,oneof=approved rejected"`
	PointsAwarded int64  `json:"points_awarded" binding:"min=0"`
	Feedback      string `json:"feedback"`
}

type voteRequest struct {
	OptionIndex *int `json:"option_index" binding:"required,min=0"`
}

// CompleteEvent credits the host, collaborators, registrants and winners.
// POST /api/v1/actions/events/:id/complete.
func (h *Handler) CompleteEvent(c *gin.Context) {
	eventID, ok := h.id(c, "event")
	if !ok {
		return
	}
	var report rewards.EventReport
	if !h.bind(c, &report) {
		return
	}

	award, err := h.rewardService.CompleteEvent(c.Request.Context(), eventID, report)
	h.respond(c, award, err)
}

// DeleteEvent reverses a completed event's rewards and deletes it.
// DELETE /api/v1/actions/events/:id.
func (h *Handler) DeleteEvent(c *gin.Context) {
	eventID, ok := h.id(c, "event")
	if !ok {
		return
	}

	res, err := h.revocationService.DeleteEvent(c.Request.Context(), eventID)
	if err == nil && len(res.FailedSteps) > 0 {
		h.log.Warn().Uint("event_id", eventID).Strs("failed_steps", res.FailedSteps).Msg("Event deleted with failed reversals")
	}
	h.respond(c, res, err)
}

// JoinChallenge enrolls the caller, taking the entry fee.
// POST /api/v1/actions/challenges/:id/join.
func (h *Handler) JoinChallenge(c *gin.Context) {
	challengeID, ok := h.id(c, "challenge")
	if !ok {
		return
	}

	p, err := h.rewardService.JoinChallenge(c.Request.Context(), identity.Viewer(c).UserID, challengeID)
	h.respond(c, p, err)
}

// JoinChallengeByCode enrolls the caller by join code.
// POST /api/v1/actions/challenges/join-by-code.
func (h *Handler) JoinChallengeByCode(c *gin.Context) {
	var req codeRequest
	if !h.bind(c, &req) {
		return
	}

	p, err := h.rewardService.JoinChallengeByCode(c.Request.Context(), identity.Viewer(c).UserID, req.Code)
	h.respond(c, p, err)
}

// RecordChallengeCreated credits the hosting club for a new challenge.
// POST /api/v1/actions/challenges/:id/created.
func (h *Handler) RecordChallengeCreated(c *gin.Context) {
	challengeID, ok := h.id(c, "challenge")
	if !ok {
		return
	}

	challenge, err := h.rewardService.RecordChallengeCreated(c.Request.Context(), challengeID)
	h.respond(c, challenge, err)
}

// CreateChallengeTeam creates a team with the caller as leader.
// POST /api/v1/actions/challenges/:id/teams.
func (h *Handler) CreateChallengeTeam(c *gin.Context) {
	challengeID, ok := h.id(c, "challenge")
	if !ok {
		return
	}
	var req teamRequest
	if !h.bind(c, &req) {
		return
	}

	team, err := h.rewardService.CreateChallengeTeam(c.Request.Context(), identity.Viewer(c).UserID, challengeID, req.Name)
	h.respond(c, team, err)
}

// JoinChallengeTeam adds the caller to a team by team code.
// POST /api/v1/actions/challenge-teams/join.
func (h *Handler) JoinChallengeTeam(c *gin.Context) {
	var req codeRequest
	if !h.bind(c, &req) {
		return
	}

	p, err := h.rewardService.JoinChallengeTeam(c.Request.Context(), identity.Viewer(c).UserID, req.Code)
	h.respond(c, p, err)
}

// GradeSubmission grades a challenge submission.
// POST /api/v1/actions/submissions/:id/grade.
func (h *Handler) GradeSubmission(c *gin.Context) {
	submissionID, ok := h.id(c, "submission")
	if !ok {
		return
	}
	var req gradeRequest
	if !h.bind(c, &req) {
		return
	}

	res, err := h.rewardService.GradeSubmission(c.Request.Context(), submissionID, *req.Marks, req.Feedback)
	h.respond(c, res, err)
}

// ReviewTaskSubmission approves or rejects a task submission.
// POST /api/v1/actions/task-submissions/:id/review.
func (h *Handler) ReviewTaskSubmission(c *gin.Context) {
	submissionID, ok := h.id(c, "task submission")
	if !ok {
		return
	}
	var req reviewRequest
	if !h.bind(c, &req) {
		return
	}

	sub, err := h.rewardService.ReviewTaskSubmission(c.Request.Context(), submissionID, req.Status, req.PointsAwarded, req.Feedback)
	h.respond(c, sub, err)
}

// CastVote records the caller's vote.
// POST /api/v1/actions/polls/:id/vote.
func (h *Handler) CastVote(c *gin.Context) {
	pollID, ok := h.id(c, "poll")
	if !ok {
		return
	}
	var req voteRequest
	if !h.bind(c, &req) {
		return
	}

	vote, err := h.rewardService.CastVote(c.Request.Context(), identity.Viewer(c).UserID, pollID, *req.OptionIndex)
	h.respond(c, vote, err)
}

// RecordLogin credits the caller's first login of the day.
// POST /api/v1/actions/logins.
func (h *Handler) RecordLogin(c *gin.Context) {
	credited, err := h.rewardService.RecordLogin(c.Request.Context(), identity.Viewer(c).UserID)
	h.respond(c, gin.H{"credited": credited}, err)
}

// ApproveProject approves a pending project and credits its club.
// POST /api/v1/actions/projects/:id/approve.
func (h *Handler) ApproveProject(c *gin.Context) {
	projectID, ok := h.id(c, "project")
	if !ok {
		return
	}

	project, err := h.rewardService.ApproveProject(c.Request.Context(), projectID)
	h.respond(c, project, err)
}

// JoinProject adds the caller to an approved project.
// POST /api/v1/actions/projects/:id/join.
func (h *Handler) JoinProject(c *gin.Context) {
	projectID, ok := h.id(c, "project")
	if !ok {
		return
	}

	member, err := h.rewardService.JoinProject(c.Request.Context(), identity.Viewer(c).UserID, projectID)
	h.respond(c, member, err)
}

// JoinProjectByCode adds the caller to an approved project by join code.
// POST /api/v1/actions/projects/join-by-code.
func (h *Handler) JoinProjectByCode(c *gin.Context) {
	var req codeRequest
	if !h.bind(c, &req) {
		return
	}

	member, err := h.rewardService.JoinProjectByCode(c.Request.Context(), identity.Viewer(c).UserID, req.Code)
	h.respond(c, member, err)
}

// RunWeeklyReset closes the current week early. ?force=true reruns a closed week.
// POST /api/v1/admin/resets/weekly.
func (h *Handler) RunWeeklyReset(c *gin.Context) {
	force, err := strconv.ParseBool(c.DefaultQuery("force", "false"))
	if err != nil {
		apierr.Message(c, http.StatusBadRequest, fmt.Sprintf("invalid force parameter: %s", c.Query("force")))
		return
	}

	report, err := h.resetService.RunWeeklyManual(c.Request.Context(), h.now(), force)
	if err == nil {
		h.log.Info().
			Uint("admin_id", identity.Viewer(c).UserID).
			Str("period", report.PeriodKey).
			Bool("force", force).
			Msg("Manual weekly reset triggered")
	}
	h.respond(c, report, err)
}

// RunMonthlyReset closes the previous month if it was not closed yet.
// POST /api/v1/admin/resets/monthly.
func (h *Handler) RunMonthlyReset(c *gin.Context) {
	report, err := h.resetService.RunMonthly(c.Request.Context(), h.now())
	h.respond(c, report, err)
}

// Helper functions

// id extracts and validates the :id URL parameter, writing a 400 on failure.
func (h *Handler) id(c *gin.Context, what string) (uint, bool) {
	idStr := c.Param("id")
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil || id == 0 {
		apierr.Message(c, http.StatusBadRequest, fmt.Sprintf("invalid %s ID: %s", what, idStr))
		return 0, false
	}
	return uint(id), true
}

// bind decodes and validates the JSON body, writing a 400 on failure.
func (h *Handler) bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		apierr.Message(c, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

func (h *Handler) respond(c *gin.Context, body interface{}, err error) {
	if err != nil {
		status := apierr.Status(err)
		event := h.log.Warn()
		if status == http.StatusInternalServerError {
			event = h.log.Error()
		}
		event.Err(err).Str("path", c.FullPath()).Int("status", status).Msg("Action failed")
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, body)
}
