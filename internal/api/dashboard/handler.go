// Package dashboard provides REST API handlers for the rewards dashboard.
// It exposes leaderboards, standings, ledger histories, badges and achievements.
package dashboard

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
	"github.com/aimd54/campus-rewards/internal/service/leaderboard"
	"github.com/aimd54/campus-rewards/internal/service/ledger"
	"github.com/aimd54/campus-rewards/pkg/logger"
)

// LeaderboardService interface for leaderboard operations.
type LeaderboardService interface {
	UserLeaderboard(ctx context.Context, viewer leaderboard.Viewer, limit int) ([]leaderboard.UserEntry, error)
	ClubLeaderboard(ctx context.Context, viewer leaderboard.Viewer, limit int) ([]leaderboard.ClubEntry, error)
	ChallengeLeaderboard(ctx context.Context, challengeID uint, limit int) ([]leaderboard.ChallengeEntry, error)
	UserStanding(ctx context.Context, userID uint) (*leaderboard.Standing, error)
	UserBadges(ctx context.Context, userID uint) ([]models.UserBadge, error)
	ClubAchievements(ctx context.Context, clubID uint) ([]models.ClubAchievement, error)
}

// LedgerService interface for ledger history reads.
type LedgerService interface {
	History(ctx context.Context, subject models.SubjectType, subjectID uint, limit int) ([]models.LedgerEntry, error)
}

// Handler handles dashboard API requests.
type Handler struct {
	leaderboardService LeaderboardService
	ledgerService      LedgerService
	log                *logger.Logger
}

// NewHandler creates a new dashboard handler.
func NewHandler(leaderboardService *leaderboard.Service, ledgerService *ledger.Service, log *logger.Logger) *Handler {
	return &Handler{
		leaderboardService: leaderboardService,
		ledgerService:      ledgerService,
		log:                log,
	}
}

// NewHandlerWithInterfaces creates a new dashboard handler with interface dependencies (useful for testing).
func NewHandlerWithInterfaces(leaderboardService LeaderboardService, ledgerService LedgerService, log *logger.Logger) *Handler {
	return &Handler{
		leaderboardService: leaderboardService,
		ledgerService:      ledgerService,
		log:                log,
	}
}

// Register mounts the read routes on group.
func (h *Handler) Register(group *gin.RouterGroup) {
	group.GET("/leaderboard/users", h.GetUserLeaderboard)
	group.GET("/leaderboard/clubs", h.GetClubLeaderboard)
	group.GET("/challenges/:id/leaderboard", h.GetChallengeLeaderboard)
	group.GET("/users/:id/standing", h.GetUserStanding)
	group.GET("/users/:id/ledger", h.GetUserLedger)
	group.GET("/users/:id/badges", h.GetUserBadges)
	group.GET("/clubs/:id/ledger", h.GetClubLedger)
	group.GET("/clubs/:id/achievements", h.GetClubAchievements)
}

// GetUserLeaderboard returns students ranked by weekly XP within the caller's college.
// GET /api/v1/leaderboard/users?limit=10.
func (h *Handler) GetUserLeaderboard(c *gin.Context) {
	limit, err := h.parseLimit(c, 0)
	if err != nil {
		apierr.Message(c, http.StatusBadRequest, err.Error())
		return
	}

	viewer := identity.Viewer(c)
	entries, err := h.leaderboardService.UserLeaderboard(c.Request.Context(), viewer, limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get user leaderboard")
		apierr.Respond(c, err)
		return
	}

	h.log.Debug().
		Str("college", viewer.College).
		Bool("privileged", viewer.Privileged()).
		Int("entries", len(entries)).
		Msg("Retrieved user leaderboard")

	c.JSON(http.StatusOK, gin.H{
		"leaderboard":   entries,
		"total_entries": len(entries),
		"generated_at":  time.Now().UTC(),
	})
}

// GetClubLeaderboard returns clubs ranked by monthly points within the caller's college.
// GET /api/v1/leaderboard/clubs?limit=10.
func (h *Handler) GetClubLeaderboard(c *gin.Context) {
	limit, err := h.parseLimit(c, 0)
	if err != nil {
		apierr.Message(c, http.StatusBadRequest, err.Error())
		return
	}

	entries, err := h.leaderboardService.ClubLeaderboard(c.Request.Context(), identity.Viewer(c), limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get club leaderboard")
		apierr.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"leaderboard":   entries,
		"total_entries": len(entries),
		"generated_at":  time.Now().UTC(),
	})
}

// GetChallengeLeaderboard returns approved submissions ranked by marks.
// GET /api/v1/challenges/:id/leaderboard.
func (h *Handler) GetChallengeLeaderboard(c *gin.Context) {
	challengeID, err := parseID(c, "challenge")
	if err != nil {
		apierr.Message(c, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := h.parseLimit(c, 0)
	if err != nil {
		apierr.Message(c, http.StatusBadRequest, err.Error())
		return
	}

	entries, err := h.leaderboardService.ChallengeLeaderboard(c.Request.Context(), challengeID, limit)
	if err != nil {
		h.log.Warn().Err(err).Uint("challenge_id", challengeID).Msg("Failed to get challenge leaderboard")
		apierr.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"challenge_id":  challengeID,
		"leaderboard":   entries,
		"total_entries": len(entries),
		"generated_at":  time.Now().UTC(),
	})
}

// GetUserStanding returns a student's balances and level progress.
// GET /api/v1/users/:id/standing.
func (h *Handler) GetUserStanding(c *gin.Context) {
	userID, err := parseID(c, "user")
	if err != nil {
		apierr.Message(c, http.StatusBadRequest, err.Error())
		return
	}

	standing, err := h.leaderboardService.UserStanding(c.Request.Context(), userID)
	if err != nil {
		h.log.Warn().Err(err).Uint("user_id", userID).Msg("Failed to get user standing")
		apierr.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, standing)
}

// GetUserLedger returns a student's ledger, newest first.
// GET /api/v1/users/:id/ledger?limit=50.
func (h *Handler) GetUserLedger(c *gin.Context) {
	h.getLedger(c, models.SubjectUser)
}

// GetClubLedger returns a club's ledger, newest first.
// GET /api/v1/clubs/:id/ledger?limit=50.
func (h *Handler) GetClubLedger(c *gin.Context) {
	h.getLedger(c, models.SubjectClub)
}

func (h *Handler) getLedger(c *gin.Context, subject models.SubjectType) {
	subjectID, err := parseID(c, string(subject))
	if err != nil {
		apierr.Message(c, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := h.parseLimit(c, 50)
	if err != nil {
		apierr.Message(c, http.StatusBadRequest, err.Error())
		return
	}

	entries, err := h.ledgerService.History(c.Request.Context(), subject, subjectID, limit)
	if err != nil {
		h.log.Error().Err(err).Str("subject", string(subject)).Uint("subject_id", subjectID).Msg("Failed to get ledger")
		apierr.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"subject_type":  subject,
		"subject_id":    subjectID,
		"entries":       entries,
		"total_entries": len(entries),
	})
}

// GetUserBadges returns all badges earned by a student.
// GET /api/v1/users/:id/badges.
func (h *Handler) GetUserBadges(c *gin.Context) {
	userID, err := parseID(c, "user")
	if err != nil {
		apierr.Message(c, http.StatusBadRequest, err.Error())
		return
	}

	badges, err := h.leaderboardService.UserBadges(c.Request.Context(), userID)
	if err != nil {
		h.log.Warn().Err(err).Uint("user_id", userID).Msg("Failed to get user badges")
		apierr.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":      userID,
		"badges":       badges,
		"total_badges": len(badges),
	})
}

// GetClubAchievements returns all achievements earned by a club.
// GET /api/v1/clubs/:id/achievements.
func (h *Handler) GetClubAchievements(c *gin.Context) {
	clubID, err := parseID(c, "club")
	if err != nil {
		apierr.Message(c, http.StatusBadRequest, err.Error())
		return
	}

	achievements, err := h.leaderboardService.ClubAchievements(c.Request.Context(), clubID)
	if err != nil {
		h.log.Warn().Err(err).Uint("club_id", clubID).Msg("Failed to get club achievements")
		apierr.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"club_id":            clubID,
		"achievements":       achievements,
		"total_achievements": len(achievements),
	})
}

// Helper functions

// parseID extracts and validates the :id URL parameter.
func parseID(c *gin.Context, what string) (uint, error) {
	idStr := c.Param("id")
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid %s ID: %s", what, idStr)
	}
	return uint(id), nil
}

// parseLimit extracts and validates the limit query parameter.
func (h *Handler) parseLimit(c *gin.Context, defaultLimit int) (int, error) {
	limitStr := c.Query("limit")
	if limitStr == "" {
		return defaultLimit, nil
	}

	limit, err := strconv.Atoi(limitStr)
	if err != nil {
		return 0, fmt.Errorf("invalid limit parameter: %s", limitStr)
	}

	if limit < 1 {
		return 0, fmt.Errorf("limit must be greater than 0")
	}

	if limit > 1000 {
		return 0, fmt.Errorf("limit cannot exceed 1000")
	}

	return limit, nil
}
