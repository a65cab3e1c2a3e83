//nolint:noctx // Test file uses http.NewRequest for simplicity
package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aimd54/campus-rewards/internal/api/identity"
	"github.com/aimd54/campus-rewards/internal/models"
	"github.com/aimd54/campus-rewards/internal/service/leaderboard"
	"github.com/aimd54/campus-rewards/internal/service/rewards"
	"github.com/aimd54/campus-rewards/pkg/logger"
)

// Mock Leaderboard Service
type mockLeaderboardService struct {
	users        []leaderboard.UserEntry
	clubs        []leaderboard.ClubEntry
	challenges   map[uint][]leaderboard.ChallengeEntry
	standings    map[uint]*leaderboard.Standing
	badges       map[uint][]models.UserBadge
	achievements map[uint][]models.ClubAchievement
	lastViewer   leaderboard.Viewer
	lastLimit    int
}

func newMockLeaderboardService() *mockLeaderboardService {
	return &mockLeaderboardService{
		challenges:   make(map[uint][]leaderboard.ChallengeEntry),
		standings:    make(map[uint]*leaderboard.Standing),
		badges:       make(map[uint][]models.UserBadge),
		achievements: make(map[uint][]models.ClubAchievement),
	}
}

func (m *mockLeaderboardService) UserLeaderboard(ctx context.Context, viewer leaderboard.Viewer, limit int) ([]leaderboard.UserEntry, error) {
	m.lastViewer, m.lastLimit = viewer, limit
	return m.users, nil
}

func (m *mockLeaderboardService) ClubLeaderboard(ctx context.Context, viewer leaderboard.Viewer, limit int) ([]leaderboard.ClubEntry, error) {
	m.lastViewer, m.lastLimit = viewer, limit
	return m.clubs, nil
}

func (m *mockLeaderboardService) ChallengeLeaderboard(ctx context.Context, challengeID uint, limit int) ([]leaderboard.ChallengeEntry, error) {
	entries, exists := m.challenges[challengeID]
	if !exists {
		return nil, fmt.Errorf("challenge %d: %w", challengeID, rewards.ErrNotFound)
	}
	return entries, nil
}

func (m *mockLeaderboardService) UserStanding(ctx context.Context, userID uint) (*leaderboard.Standing, error) {
	standing, exists := m.standings[userID]
	if !exists {
		return nil, fmt.Errorf("user %d: %w", userID, rewards.ErrNotFound)
	}
	return standing, nil
}

func (m *mockLeaderboardService) UserBadges(ctx context.Context, userID uint) ([]models.UserBadge, error) {
	badges, exists := m.badges[userID]
	if !exists {
		return nil, fmt.Errorf("user %d: %w", userID, rewards.ErrNotFound)
	}
	return badges, nil
}

func (m *mockLeaderboardService) ClubAchievements(ctx context.Context, clubID uint) ([]models.ClubAchievement, error) {
	achievements, exists := m.achievements[clubID]
	if !exists {
		return nil, fmt.Errorf("club %d: %w", clubID, rewards.ErrNotFound)
	}
	return achievements, nil
}

// Mock Ledger Service
type mockLedgerService struct {
	entries map[string][]models.LedgerEntry
	err     error
}

func (m *mockLedgerService) History(ctx context.Context, subject models.SubjectType, subjectID uint, limit int) ([]models.LedgerEntry, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.entries[fmt.Sprintf("%s:%d", subject, subjectID)], nil
}

func setupTestHandler() (*Handler, *mockLeaderboardService, *mockLedgerService) {
	leaderboardService := newMockLeaderboardService()
	ledgerService := &mockLedgerService{entries: make(map[string][]models.LedgerEntry)}
	log := logger.New("debug", "text", "stdout")

	handler := NewHandlerWithInterfaces(leaderboardService, ledgerService, log)

	return handler, leaderboardService, ledgerService
}

func setupRouter(handler *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(identity.Middleware())

	handler.Register(router.Group("/api/v1"))

	return router
}

func get(router *gin.Engine, path string, headers map[string]string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(http.MethodGet, path, http.NoBody)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// Tests

func TestGetUserLeaderboard_Success(t *testing.T) {
	handler, leaderboardService, _ := setupTestHandler()
	router := setupRouter(handler)

	leaderboardService.users = []leaderboard.UserEntry{
		{Rank: 1, UserID: 1, Username: "alice", College: "North", WeeklyXP: 300, Level: 3},
		{Rank: 2, UserID: 2, Username: "bob", College: "North", WeeklyXP: 120, Level: 2},
	}

	w := get(router, "/api/v1/leaderboard/users?limit=5", map[string]string{
		identity.HeaderUserID:  "9",
		identity.HeaderCollege: "North",
	})

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, float64(2), response["total_entries"])
	assert.Equal(t, leaderboard.Viewer{UserID: 9, College: "North"}, leaderboardService.lastViewer)
	assert.Equal(t, 5, leaderboardService.lastLimit)
}

func TestGetUserLeaderboard_InvalidLimit(t *testing.T) {
	handler, _, _ := setupTestHandler()
	router := setupRouter(handler)

	for _, limit := range []string{"abc", "0", "5000"} {
		w := get(router, "/api/v1/leaderboard/users?limit="+limit, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, limit)
	}
}

func TestGetClubLeaderboard_Success(t *testing.T) {
	handler, leaderboardService, _ := setupTestHandler()
	router := setupRouter(handler)

	leaderboardService.clubs = []leaderboard.ClubEntry{{Rank: 1, ClubID: 3, Name: "Chess", MonthlyPoints: 90}}

	w := get(router, "/api/v1/leaderboard/clubs", map[string]string{identity.HeaderRole: "admin"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, leaderboardService.lastViewer.Privileged())
	assert.Zero(t, leaderboardService.lastLimit)
}

func TestGetChallengeLeaderboard(t *testing.T) {
	handler, leaderboardService, _ := setupTestHandler()
	router := setupRouter(handler)

	leaderboardService.challenges[4] = []leaderboard.ChallengeEntry{{Rank: 1}}

	w := get(router, "/api/v1/challenges/4/leaderboard", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = get(router, "/api/v1/challenges/5/leaderboard", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = get(router, "/api/v1/challenges/abc/leaderboard", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetUserStanding(t *testing.T) {
	handler, leaderboardService, _ := setupTestHandler()
	router := setupRouter(handler)

	leaderboardService.standings[1] = &leaderboard.Standing{UserID: 1, Username: "alice", Points: 70, BadgeCount: 2}

	w := get(router, "/api/v1/users/1/standing", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var standing leaderboard.Standing
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &standing))
	assert.Equal(t, "alice", standing.Username)
	assert.Equal(t, int64(70), standing.Points)

	w = get(router, "/api/v1/users/2/standing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = get(router, "/api/v1/users/0/standing", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetLedger(t *testing.T) {
	handler, _, ledgerService := setupTestHandler()
	router := setupRouter(handler)

	ledgerService.entries["user:1"] = []models.LedgerEntry{{SubjectType: models.SubjectUser, SubjectID: 1, Amount: -30}}
	ledgerService.entries["club:1"] = []models.LedgerEntry{{SubjectType: models.SubjectClub, SubjectID: 1, Amount: 155}, {SubjectType: models.SubjectClub, SubjectID: 1, Amount: 2}}

	w := get(router, "/api/v1/users/1/ledger", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "user", response["subject_type"])
	assert.Equal(t, float64(1), response["total_entries"])

	w = get(router, "/api/v1/clubs/1/ledger?limit=10", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, float64(2), response["total_entries"])
}

func TestGetLedger_Error(t *testing.T) {
	handler, _, ledgerService := setupTestHandler()
	router := setupRouter(handler)
	ledgerService.err = fmt.Errorf("connection reset")

	w := get(router, "/api/v1/users/1/ledger", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "connection reset")
}

func TestGetUserBadges(t *testing.T) {
	handler, leaderboardService, _ := setupTestHandler()
	router := setupRouter(handler)

	leaderboardService.badges[1] = []models.UserBadge{{UserID: 1, Name: "Week 10 - Rank 1", Icon: "🥇"}}

	w := get(router, "/api/v1/users/1/badges", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, float64(1), response["total_badges"])

	w = get(router, "/api/v1/users/2/badges", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetClubAchievements(t *testing.T) {
	handler, leaderboardService, _ := setupTestHandler()
	router := setupRouter(handler)

	leaderboardService.achievements[3] = []models.ClubAchievement{{ClubID: 3, Title: "February 2026 - Rank 1"}}

	w := get(router, "/api/v1/clubs/3/achievements", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = get(router, "/api/v1/clubs/4/achievements", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
