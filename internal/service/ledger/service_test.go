package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aimd54/campus-rewards/internal/models"
	"github.com/aimd54/campus-rewards/internal/repository"
	"github.com/aimd54/campus-rewards/internal/service/levels"
	"github.com/aimd54/campus-rewards/pkg/logger"
	"github.com/aimd54/campus-rewards/test/testdb"
)

func newTestService(t *testing.T) (*Service, *repository.DB) {
	t.Helper()
	db := testdb.New(t)
	log := logger.New("debug", "text", "stdout")
	return NewService(repository.NewLedgerRepository(db), levels.Default(), log), db
}

func TestApply_UserXPUpdatesLevel(t *testing.T) {
	svc, db := newTestService(t)
	user := testdb.User(t, db, "alice", "North", 0, 0, 0)

	res, err := svc.Apply(context.Background(), UserXP(user.ID, 260, "Challenge completed", models.SourceChallenge, nil))
	require.NoError(t, err)

	assert.Equal(t, int64(260), res.After.Points)
	assert.Equal(t, 3, res.After.Level)
	assert.Equal(t, 3, testdb.ReloadUser(t, db, user.ID).Level)
	assert.False(t, res.Clamped())
}

func TestDebit_EntryFee(t *testing.T) {
	svc, db := newTestService(t)
	user := testdb.User(t, db, "bob", "North", 100, 100, 100)
	challengeID := uint(9)

	_, err := svc.Debit(context.Background(), user.ID, 30, "Entry fee: Kata", models.SourceChallenge, &challengeID)
	require.NoError(t, err)

	got := testdb.ReloadUser(t, db, user.ID)
	assert.Equal(t, int64(70), got.Points)
	assert.Equal(t, int64(70), got.TotalEarnedXP)
	assert.Equal(t, int64(70), got.WeeklyXP)

	entries := testdb.Ledger(t, db, models.SubjectUser, user.ID)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(-30), entries[0].Amount)
	assert.Equal(t, models.SourceChallenge, entries[0].SourceType)
}

func TestDebit_InsufficientPointsLeavesStateUntouched(t *testing.T) {
	svc, db := newTestService(t)
	user := testdb.User(t, db, "carol", "North", 10, 10, 10)

	_, err := svc.Debit(context.Background(), user.ID, 30, "Entry fee", models.SourceChallenge, nil)
	assert.True(t, errors.Is(err, repository.ErrInsufficientPoints))
	assert.Equal(t, int64(10), testdb.ReloadUser(t, db, user.ID).Points)
	assert.Empty(t, testdb.Ledger(t, db, models.SubjectUser, user.ID))
}

func TestApply_ReversalReportsShortfall(t *testing.T) {
	svc, db := newTestService(t)
	club := testdb.Club(t, db, "Chess", "North", 100, 40)

	res, err := svc.Apply(context.Background(), ClubPoints(club.ID, -155, "revoked: Expo", models.SourceEvent, nil))
	require.NoError(t, err)

	assert.True(t, res.Clamped())
	assert.Equal(t, int64(55), res.Shortfall[repository.ColPoints])
	assert.Equal(t, int64(115), res.Shortfall[repository.ColMonthlyPoints])

	got := testdb.ReloadClub(t, db, club.ID)
	assert.Equal(t, int64(0), got.Points)
	assert.Equal(t, int64(0), got.MonthlyPoints)
}

func TestApply_RejectsUnknownSource(t *testing.T) {
	svc, db := newTestService(t)
	user := testdb.User(t, db, "dave", "North", 0, 0, 0)

	_, err := svc.Apply(context.Background(), UserXP(user.ID, 5, "x", models.SourceType("gift"), nil))
	assert.Error(t, err)
}

func TestApplyClubs_OneRowPerClub(t *testing.T) {
	svc, db := newTestService(t)
	a := testdb.Club(t, db, "A", "North", 200, 200)
	b := testdb.Club(t, db, "B", "North", 10, 10)

	results, err := svc.ApplyClubs(context.Background(), []uint{a.ID, b.ID}, ClubPoints(0, 116, "Collaboration: Expo", models.SourceEvent, nil))
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, int64(316), testdb.ReloadClub(t, db, a.ID).Points)
	assert.Equal(t, int64(126), testdb.ReloadClub(t, db, b.ID).MonthlyPoints)
	assert.Len(t, testdb.Ledger(t, db, models.SubjectClub, a.ID), 1)
	assert.Len(t, testdb.Ledger(t, db, models.SubjectClub, b.ID), 1)
}

func TestWithTx_RollsBackWithCaller(t *testing.T) {
	svc, db := newTestService(t)
	user := testdb.User(t, db, "erin", "North", 0, 0, 0)
	boom := errors.New("boom")

	err := db.Transaction(context.Background(), func(tx *repository.DB) error {
		if _, err := svc.WithTx(tx).Apply(context.Background(), UserXP(user.ID, 50, "bonus", models.SourceBonus, nil)); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	assert.Equal(t, int64(0), testdb.ReloadUser(t, db, user.ID).Points)
	assert.Empty(t, testdb.Ledger(t, db, models.SubjectUser, user.ID))
}

func TestNet_SumsOneSourceOnly(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	user := testdb.User(t, db, "erin", "North", 0, 0, 0)
	eventID, otherID := uint(3), uint(4)

	_, err := svc.Apply(ctx, UserXP(user.ID, 100, "Event participation: Expo", models.SourceEvent, &eventID))
	require.NoError(t, err)
	_, err = svc.Apply(ctx, UserXP(user.ID, 50, "Event winner #1: Expo", models.SourceEvent, &eventID))
	require.NoError(t, err)
	_, err = svc.Apply(ctx, UserXP(user.ID, 100, "Event participation: Fair", models.SourceEvent, &otherID))
	require.NoError(t, err)
	_, err = svc.Apply(ctx, UserXP(user.ID, -100, "revoked: Expo", models.SourceEvent, &eventID))
	require.NoError(t, err)

	net, err := svc.Net(ctx, models.SubjectUser, user.ID, models.SourceEvent, eventID)
	require.NoError(t, err)
	assert.Equal(t, int64(50), net)

	net, err = svc.Net(ctx, models.SubjectUser, user.ID, models.SourceTask, eventID)
	require.NoError(t, err)
	assert.Zero(t, net)
}
