package reset

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aimd54/campus-rewards/internal/models"
	"github.com/aimd54/campus-rewards/internal/repository"
	"github.com/aimd54/campus-rewards/internal/service/rewards"
	"github.com/aimd54/campus-rewards/pkg/logger"
	"github.com/aimd54/campus-rewards/test/mocks"
	"github.com/aimd54/campus-rewards/test/testdb"
)

// Wednesday of ISO week 11. The closed week is W10, the closed month February.
var testNow = time.Date(2026, 3, 11, 12, 0, 0, 0, time.UTC)

type fixture struct {
	db        *repository.DB
	repos     *repository.Repositories
	cache     *mocks.MockCache
	announcer *mocks.MockAnnouncer
	svc       *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testdb.New(t)
	repos := repository.NewRepositories(db)
	cache := mocks.NewMockCache()
	announcer := &mocks.MockAnnouncer{}

	return &fixture{
		db:        db,
		repos:     repos,
		cache:     cache,
		announcer: announcer,
		svc:       NewService(db, repos, cache, announcer, time.UTC, time.Minute, logger.Nop()),
	}
}

func TestRunWeekly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	alice := testdb.User(t, f.db, "alice", "North", 1000, 900, 300)
	bob := testdb.User(t, f.db, "bob", "north ", 800, 700, 200)
	carol := testdb.User(t, f.db, "carol", "North", 600, 500, 100)
	dave := testdb.User(t, f.db, "dave", "North", 400, 300, 50)
	erin := testdb.User(t, f.db, "erin", "South", 200, 100, 90)
	frank := testdb.User(t, f.db, "frank", "South", 0, 0, 0)
	nomad := testdb.User(t, f.db, "nomad", "", 500, 500, 500)

	report, err := f.svc.RunWeekly(ctx, testNow)
	require.NoError(t, err)

	assert.Equal(t, models.JobWeekly, report.Job)
	assert.Equal(t, "2026-W10", report.PeriodKey)
	assert.Equal(t, 4, report.Awards)
	assert.Zero(t, report.ClubAwards)
	assert.Equal(t, int64(6), report.SubjectsReset)

	for _, u := range []*models.User{alice, bob, carol, dave, erin, frank, nomad} {
		got := testdb.ReloadUser(t, f.db, u.ID)
		assert.Zero(t, got.WeeklyXP, u.Username)
		assert.Equal(t, u.Points, got.Points, u.Username)
		assert.Equal(t, u.TotalEarnedXP, got.TotalEarnedXP, u.Username)
	}

	expected := map[uint]string{alice.ID: "Week 10 - Rank 1", bob.ID: "Week 10 - Rank 2", carol.ID: "Week 10 - Rank 3", erin.ID: "Week 10 - Rank 1"}
	for id, name := range expected {
		badges, err := f.repos.Users.Badges(ctx, id)
		require.NoError(t, err)
		require.Len(t, badges, 1)
		assert.Equal(t, name, badges[0].Name)
		assert.Equal(t, models.BadgeKindWeeklyRank, badges[0].Kind)
		require.NotNil(t, badges[0].WeekStart)
		assert.True(t, badges[0].WeekStart.Equal(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)))
	}
	for _, u := range []*models.User{dave, frank, nomad} {
		n, err := f.repos.Users.CountBadges(ctx, u.ID)
		require.NoError(t, err)
		assert.Zero(t, n, u.Username)
	}

	aliceBadges, _ := f.repos.Users.Badges(ctx, alice.ID)
	assert.Equal(t, "🥇", aliceBadges[0].Icon)
	carolBadges, _ := f.repos.Users.Badges(ctx, carol.ID)
	assert.Equal(t, "🥉", carolBadges[0].Icon)

	require.Len(t, f.announcer.Sent, 1)
	assert.Equal(t, "weekly", f.announcer.Sent[0].Kind)
	assert.Equal(t, "Week 10", f.announcer.Sent[0].Period)
	assert.Len(t, f.announcer.Sent[0].Winners, 4)

	assert.Zero(t, f.cache.Keys(), "lock must be released")
}

func TestRunWeekly_OncePerPeriod(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := testdb.User(t, f.db, "alice", "North", 0, 0, 300)

	_, err := f.svc.RunWeekly(ctx, testNow)
	require.NoError(t, err)

	// XP earned after the reset belongs to the new week.
	require.NoError(t, f.db.Model(&models.User{}).Where("id = ?", u.ID).UpdateColumn("weekly_xp", 40).Error)

	_, err = f.svc.RunWeekly(ctx, testNow.Add(time.Hour))
	assert.True(t, errors.Is(err, rewards.ErrPeriodAlreadyProcessed))
	assert.Equal(t, int64(40), testdb.ReloadUser(t, f.db, u.ID).WeeklyXP)

	n, err := f.repos.Users.CountBadges(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	// The following Monday closes W11.
	report, err := f.svc.RunWeekly(ctx, testNow.AddDate(0, 0, 5))
	require.NoError(t, err)
	assert.Equal(t, "2026-W11", report.PeriodKey)
	assert.Zero(t, testdb.ReloadUser(t, f.db, u.ID).WeeklyXP)
}

func TestRunWeekly_Locked(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := testdb.User(t, f.db, "alice", "North", 0, 0, 300)

	ok, err := f.cache.SetNX(ctx, LockKey(models.JobWeekly, "2026-W10"), "other-replica", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = f.svc.RunWeekly(ctx, testNow)
	assert.True(t, errors.Is(err, ErrLocked))
	assert.Equal(t, int64(300), testdb.ReloadUser(t, f.db, u.ID).WeeklyXP)

	done, err := f.repos.Periods.HasRun(ctx, models.JobWeekly, "2026-W10")
	require.NoError(t, err)
	assert.False(t, done)
}

func TestRunWeekly_AnnouncementFailureKeepsReset(t *testing.T) {
	f := newFixture(t)
	f.announcer.Err = errors.New("webhook down")
	u := testdb.User(t, f.db, "alice", "North", 0, 0, 300)

	report, err := f.svc.RunWeekly(context.Background(), testNow)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Awards)
	assert.Zero(t, testdb.ReloadUser(t, f.db, u.ID).WeeklyXP)
}

func TestRunWeekly_NoLocker(t *testing.T) {
	db := testdb.New(t)
	repos := repository.NewRepositories(db)
	svc := NewService(db, repos, nil, nil, nil, 0, logger.Nop())
	testdb.User(t, db, "alice", "North", 0, 0, 300)

	report, err := svc.RunWeekly(context.Background(), testNow)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Awards)
}

func TestRunWeeklyManual(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	chess := testdb.Club(t, f.db, "Chess", "North", 0, 0)
	alice := testdb.User(t, f.db, "alice", "North", 0, 0, 300)
	bob := testdb.User(t, f.db, "bob", "North", 0, 0, 200)
	require.NoError(t, f.repos.Clubs.AddMember(ctx, &models.ClubMember{ClubID: chess.ID, UserID: alice.ID, JoinedAt: testNow}))
	require.NoError(t, f.repos.Clubs.AddMember(ctx, &models.ClubMember{ClubID: chess.ID, UserID: bob.ID, JoinedAt: testNow}))

	report, err := f.svc.RunWeeklyManual(ctx, testNow, false)
	require.NoError(t, err)
	assert.Equal(t, models.JobWeeklyManual, report.Job)
	assert.Equal(t, "2026-W11", report.PeriodKey)
	assert.Equal(t, 2, report.Awards)
	assert.Equal(t, 2, report.ClubAwards)

	badges, err := f.repos.Users.Badges(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, badges, 2)

	var club *models.UserBadge
	for i := range badges {
		if badges[i].Kind == models.BadgeKindClubWeeklyRank {
			club = &badges[i]
		}
	}
	require.NotNil(t, club)
	assert.Equal(t, "Club Week 11 - Rank 2", club.Name)
	assert.Equal(t, "🥈", club.Icon)
	require.NotNil(t, club.ClubID)
	assert.Equal(t, chess.ID, *club.ClubID)

	_, err = f.svc.RunWeeklyManual(ctx, testNow, false)
	assert.True(t, errors.Is(err, rewards.ErrPeriodAlreadyProcessed))

	// A forced rerun replaces the marker. Weekly XP is already zero, so nothing is awarded.
	report, err = f.svc.RunWeeklyManual(ctx, testNow, true)
	require.NoError(t, err)
	assert.Zero(t, report.Awards)

	runs, err := f.svc.History(ctx, models.JobWeeklyManual, 0)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestRunWeekly_AfterManualCloseAwardsNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := testdb.User(t, f.db, "alice", "North", 0, 0, 300)

	// Closed by hand during W10.
	_, err := f.svc.RunWeeklyManual(ctx, testNow.AddDate(0, 0, -7), false)
	require.NoError(t, err)

	// XP earned for the rest of W10.
	require.NoError(t, f.db.Model(&models.User{}).Where("id = ?", alice.ID).UpdateColumn("weekly_xp", 80).Error)

	report, err := f.svc.RunWeekly(ctx, testNow)
	require.NoError(t, err)
	assert.Equal(t, "2026-W10", report.PeriodKey)
	assert.True(t, report.ClosedManually)
	assert.Zero(t, report.Awards)
	assert.Equal(t, int64(1), report.SubjectsReset)
	assert.Zero(t, testdb.ReloadUser(t, f.db, alice.ID).WeeklyXP)

	n, err := f.repos.Users.CountBadges(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "the week's badge is issued once")

	done, err := f.repos.Periods.HasRun(ctx, models.JobWeekly, "2026-W10")
	require.NoError(t, err)
	assert.True(t, done)

	// Only the manual run announced winners.
	assert.Len(t, f.announcer.Sent, 1)
}

func TestRun_ReleaseKeepsLockTakenByAnotherReplica(t *testing.T) {
	f := newFixture(t)
	testdb.User(t, f.db, "alice", "North", 0, 0, 300)
	key := LockKey(models.JobWeekly, "2026-W10")

	// The lock expires while the run is still announcing and another replica takes it.
	f.announcer.OnSend = func() { f.cache.Steal(key, "other-replica") }

	_, err := f.svc.RunWeekly(context.Background(), testNow)
	require.NoError(t, err)
	assert.Equal(t, "other-replica", f.cache.Value(key))
}

func TestHistory_NewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, now := range []time.Time{testNow.AddDate(0, 0, -14), testNow.AddDate(0, 0, -7), testNow} {
		_, err := f.svc.RunWeekly(ctx, now)
		require.NoError(t, err)
	}

	runs, err := f.svc.History(ctx, models.JobWeekly, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "2026-W10", runs[0].PeriodKey)
	assert.Equal(t, "2026-W09", runs[1].PeriodKey)

	runs, err = f.svc.History(ctx, models.JobMonthly, 0)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestRunMonthly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	chess := testdb.Club(t, f.db, "Chess", "North", 900, 400)
	drama := testdb.Club(t, f.db, "Drama", "North", 800, 300)
	robotics := testdb.Club(t, f.db, "Robotics", "South", 100, 50)
	idle := testdb.Club(t, f.db, "Idle", "South", 70, 0)
	student := testdb.User(t, f.db, "alice", "North", 0, 0, 300)

	report, err := f.svc.RunMonthly(ctx, testNow)
	require.NoError(t, err)
	assert.Equal(t, "2026-02", report.PeriodKey)
	assert.Equal(t, 3, report.Awards)
	assert.Equal(t, int64(3), report.SubjectsReset)

	for _, c := range []*models.Club{chess, drama, robotics, idle} {
		got := testdb.ReloadClub(t, f.db, c.ID)
		assert.Zero(t, got.MonthlyPoints, c.Name)
		assert.Equal(t, c.Points, got.Points, c.Name)
	}

	achievements, err := f.repos.Clubs.Achievements(ctx, drama.ID)
	require.NoError(t, err)
	require.Len(t, achievements, 1)
	assert.Equal(t, "February 2026 - Rank 2", achievements[0].Title)
	assert.Equal(t, "🥈", achievements[0].Icon)

	achievements, err = f.repos.Clubs.Achievements(ctx, idle.ID)
	require.NoError(t, err)
	assert.Empty(t, achievements)

	// Weekly XP is untouched by the monthly reset.
	assert.Equal(t, int64(300), testdb.ReloadUser(t, f.db, student.ID).WeeklyXP)

	require.Len(t, f.announcer.Sent, 1)
	assert.Equal(t, "monthly", f.announcer.Sent[0].Kind)
	assert.Equal(t, "February 2026", f.announcer.Sent[0].Period)

	_, err = f.svc.RunMonthly(ctx, testNow)
	assert.True(t, errors.Is(err, rewards.ErrPeriodAlreadyProcessed))
}

func TestMedal(t *testing.T) {
	assert.Equal(t, "🥇", Medal(1))
	assert.Equal(t, "🥈", Medal(2))
	assert.Equal(t, "🥉", Medal(3))
	assert.Equal(t, "🏅", Medal(4))
}
