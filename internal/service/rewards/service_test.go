package rewards

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aimd54/campus-rewards/internal/config"
	"github.com/aimd54/campus-rewards/internal/models"
	"github.com/aimd54/campus-rewards/internal/repository"
	"github.com/aimd54/campus-rewards/internal/service/ledger"
	"github.com/aimd54/campus-rewards/internal/service/levels"
	"github.com/aimd54/campus-rewards/pkg/logger"
	"github.com/aimd54/campus-rewards/test/testdb"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type fixture struct {
	svc   *Service
	db    *repository.DB
	repos *repository.Repositories
	now   time.Time
}

func (f *fixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testdb.New(t)
	repos := repository.NewRepositories(db)
	log := logger.Nop()
	ledgerSvc := ledger.NewService(repos.Ledger, levels.Default(), log)

	f := &fixture{db: db, repos: repos, now: testNow}
	codes := 0
	f.svc = NewService(db, repos, ledgerSvc, config.DefaultRewards(), time.UTC, log,
		WithClock(func() time.Time { return f.now }),
		WithCodeGenerator(func() string {
			codes++
			return fmt.Sprintf("CODE%04d", codes)
		}),
	)
	return f
}

func (f *fixture) challenge(t *testing.T, clubID uint, fee, points int64) *models.Challenge {
	t.Helper()

	c := &models.Challenge{ClubID: clubID, Title: "Kata", EntryFee: fee, Points: points, MaxTeamSize: 1}
	require.NoError(t, f.repos.Challenges.Create(context.Background(), c))
	return c
}

func TestJoinChallenge_DebitsFeeOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	club := testdb.Club(t, f.db, "Coders", "North", 0, 0)
	user := testdb.User(t, f.db, "alice", "North", 100, 100, 100)
	challenge := f.challenge(t, club.ID, 30, 200)

	p, err := f.svc.JoinChallenge(ctx, user.ID, challenge.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(30), p.FeePaid)

	got := testdb.ReloadUser(t, f.db, user.ID)
	assert.Equal(t, int64(70), got.Points)
	assert.Equal(t, int64(70), got.WeeklyXP)

	entries := testdb.Ledger(t, f.db, models.SubjectUser, user.ID)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(-30), entries[0].Amount)
	assert.Equal(t, models.SourceChallenge, entries[0].SourceType)

	assert.Equal(t, int64(2), testdb.ReloadClub(t, f.db, club.ID).Coins)

	reloaded, err := f.repos.Challenges.GetByID(ctx, challenge.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, reloaded.Participants)

	activity := testdb.Activity(t, f.db, user.ID, models.ActivityChallenge, challenge.ID)
	assert.Equal(t, models.ActivityStarted, activity.Status)

	// Second attempt is rejected without another debit.
	_, err = f.svc.JoinChallenge(ctx, user.ID, challenge.ID)
	assert.True(t, errors.Is(err, ErrAlreadyJoined))
	assert.Equal(t, int64(70), testdb.ReloadUser(t, f.db, user.ID).Points)
	assert.Len(t, testdb.Ledger(t, f.db, models.SubjectUser, user.ID), 1)
}

func TestJoinChallenge_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	club := testdb.Club(t, f.db, "Coders", "North", 0, 0)
	poor := testdb.User(t, f.db, "poor", "North", 10, 10, 10)
	challenge := f.challenge(t, club.ID, 30, 200)

	_, err := f.svc.JoinChallenge(ctx, poor.ID, challenge.ID)
	assert.True(t, errors.Is(err, ErrInsufficientPoints))
	assert.Equal(t, int64(10), testdb.ReloadUser(t, f.db, poor.ID).Points)

	_, err = f.svc.JoinChallenge(ctx, poor.ID, 9999)
	assert.True(t, errors.Is(err, ErrNotFound))

	deadline := testNow.Add(-time.Hour)
	closed := &models.Challenge{ClubID: club.ID, Title: "Closed", Deadline: &deadline}
	require.NoError(t, f.repos.Challenges.Create(ctx, closed))
	_, err = f.svc.JoinChallenge(ctx, poor.ID, closed.ID)
	assert.True(t, errors.Is(err, ErrDeadlinePassed))
}

func TestChallengeTeams(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	club := testdb.Club(t, f.db, "Coders", "North", 0, 0)
	leader := testdb.User(t, f.db, "leader", "North", 50, 50, 50)
	mate := testdb.User(t, f.db, "mate", "North", 50, 50, 50)
	late := testdb.User(t, f.db, "late", "North", 50, 50, 50)

	c := &models.Challenge{ClubID: club.ID, Title: "Hackathon", EntryFee: 10, MaxTeamSize: 2}
	require.NoError(t, f.repos.Challenges.Create(ctx, c))

	team, err := f.svc.CreateChallengeTeam(ctx, leader.ID, c.ID, "Rockets")
	require.NoError(t, err)
	assert.Equal(t, "CODE0001", team.Code)

	p, err := f.svc.JoinChallengeTeam(ctx, mate.ID, team.Code)
	require.NoError(t, err)
	require.NotNil(t, p.TeamID)
	assert.Equal(t, team.ID, *p.TeamID)

	_, err = f.svc.JoinChallengeTeam(ctx, late.ID, team.Code)
	assert.True(t, errors.Is(err, ErrTeamFull))
	assert.Equal(t, int64(50), testdb.ReloadUser(t, f.db, late.ID).Points)

	assert.Equal(t, int64(40), testdb.ReloadUser(t, f.db, leader.ID).Points)
	assert.Equal(t, int64(40), testdb.ReloadUser(t, f.db, mate.ID).Points)
}

func TestGradeSubmission_CreditsOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	club := testdb.Club(t, f.db, "Coders", "North", 0, 0)
	user := testdb.User(t, f.db, "alice", "North", 0, 0, 0)
	c := &models.Challenge{ClubID: club.ID, Title: "Graphs", Points: 200, BadgeName: "Graph Guru", SkillName: "Graphs"}
	require.NoError(t, f.repos.Challenges.Create(ctx, c))

	sub := &models.ChallengeSubmission{ChallengeID: c.ID, UserID: user.ID, Status: models.SubmissionPending, SubmittedAt: testNow}
	require.NoError(t, f.db.Create(sub).Error)

	res, err := f.svc.GradeSubmission(ctx, sub.ID, 85, "nice")
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionApproved, res.Status)
	assert.Equal(t, int64(170), res.Awarded)

	got := testdb.ReloadUser(t, f.db, user.ID)
	assert.Equal(t, int64(170), got.Points)
	assert.Equal(t, int64(170), got.TotalEarnedXP)
	assert.Equal(t, 2, got.Level)

	badges, err := f.repos.Users.Badges(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, badges, 1)
	assert.Equal(t, "Graph Guru", badges[0].Name)

	var skills int64
	require.NoError(t, f.db.Model(&models.UserSkill{}).Where("user_id = ?", user.ID).Count(&skills).Error)
	assert.Equal(t, int64(1), skills)

	var notifications int64
	require.NoError(t, f.db.Model(&models.Notification{}).Where("user_id = ?", user.ID).Count(&notifications).Error)
	assert.Equal(t, int64(1), notifications)

	_, err = f.svc.GradeSubmission(ctx, sub.ID, 100, "again")
	assert.True(t, errors.Is(err, ErrAlreadyReviewed))
	assert.Equal(t, int64(170), testdb.ReloadUser(t, f.db, user.ID).Points)
}

func TestGradeSubmission_BelowPassMark(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	club := testdb.Club(t, f.db, "Coders", "North", 0, 0)
	user := testdb.User(t, f.db, "bob", "North", 0, 0, 0)
	c := f.challenge(t, club.ID, 0, 200)
	sub := &models.ChallengeSubmission{ChallengeID: c.ID, UserID: user.ID, Status: models.SubmissionPending, SubmittedAt: testNow}
	require.NoError(t, f.db.Create(sub).Error)

	res, err := f.svc.GradeSubmission(ctx, sub.ID, 39, "")
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionRejected, res.Status)
	assert.Zero(t, res.Awarded)
	assert.Empty(t, testdb.Ledger(t, f.db, models.SubjectUser, user.ID))

	_, err = f.svc.GradeSubmission(ctx, sub.ID, 101, "")
	assert.True(t, errors.Is(err, ErrInvalidMarks))
}

func TestRecordChallengeCreated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	club := testdb.Club(t, f.db, "Coders", "North", 0, 0)
	c := f.challenge(t, club.ID, 0, 100)

	updated, err := f.svc.RecordChallengeCreated(ctx, c.ID)
	require.NoError(t, err)
	require.NotNil(t, updated.JoinCode)
	assert.Equal(t, "CODE0001", *updated.JoinCode)

	got := testdb.ReloadClub(t, f.db, club.ID)
	assert.Equal(t, int64(50), got.Points)
	assert.Equal(t, int64(50), got.MonthlyPoints)
	assert.Equal(t, int64(100), got.Coins)

	entries := testdb.Ledger(t, f.db, models.SubjectClub, club.ID)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(50), entries[0].Amount)
	assert.Equal(t, models.SourceBonus, entries[0].SourceType)
}

// seedEvent creates an event hosted by host with one solo registration per user.
func seedEvent(t *testing.T, f *fixture, host uint, users []*models.User, atCreation int, createdAt time.Time) *models.Event {
	t.Helper()

	event := &models.Event{
		ClubID:                  host,
		Title:                   "Expo",
		Status:                  models.EventStatusScheduled,
		RegistrationsAtCreation: atCreation,
		CreatedAt:               createdAt,
	}
	for _, u := range users {
		event.Registrations = append(event.Registrations, models.EventRegistration{UserID: u.ID})
	}
	require.NoError(t, f.repos.Events.Create(context.Background(), event))
	return event
}

func TestCompleteEvent_AwardsEveryone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	host := testdb.Club(t, f.db, "Host", "North", 0, 0)
	partner := testdb.Club(t, f.db, "Partner", "North", 0, 0)

	var users []*models.User
	for i := 0; i < 10; i++ {
		users = append(users, testdb.User(t, f.db, fmt.Sprintf("student%d", i), "North", 0, 0, 0))
	}
	event := seedEvent(t, f, host.ID, users, 5, testNow.Add(-48*time.Hour))
	require.NoError(t, f.db.Create(&models.EventCollaborator{EventID: event.ID, ClubID: partner.ID}).Error)
	require.NoError(t, f.db.Create(&models.EventCollaborator{EventID: event.ID, ClubID: host.ID}).Error)
	require.NoError(t, f.db.Create(&models.EventWinner{EventID: event.ID, Position: 1, RegistrationID: event.Registrations[0].ID}).Error)

	award, err := f.svc.CompleteEvent(ctx, event.ID, EventReport{ChiefGuests: 2, Competitions: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(155), award.ClubPoints)
	assert.Equal(t, int64(116), award.CollaboratorPoints)
	assert.False(t, award.Unannounced)
	assert.Equal(t, 10, award.Participants)
	assert.Equal(t, 10, award.RegistrantsCredited)
	assert.Equal(t, 1, award.WinnersCredited)
	assert.Empty(t, award.FailedSteps)

	assert.Equal(t, int64(155), testdb.ReloadClub(t, f.db, host.ID).Points)
	assert.Equal(t, int64(116), testdb.ReloadClub(t, f.db, partner.ID).Points)
	assert.Equal(t, int64(150), testdb.ReloadUser(t, f.db, users[0].ID).Points)
	assert.Equal(t, int64(100), testdb.ReloadUser(t, f.db, users[9].ID).Points)

	stored, err := f.repos.Events.GetByID(ctx, event.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsCompleted())
	assert.Equal(t, int64(155), stored.AwardedPoints)
	assert.Equal(t, 2, stored.ChiefGuests)

	_, err = f.svc.CompleteEvent(ctx, event.ID, EventReport{ChiefGuests: 2, Competitions: 1})
	assert.True(t, errors.Is(err, ErrAlreadyCompleted))
	assert.Equal(t, int64(155), testdb.ReloadClub(t, f.db, host.ID).Points)
}

func TestCompleteEvent_MissingRegistrantIsReported(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	host := testdb.Club(t, f.db, "Host", "North", 0, 0)

	var users []*models.User
	for i := 0; i < 10; i++ {
		users = append(users, testdb.User(t, f.db, fmt.Sprintf("student%d", i), "North", 0, 0, 0))
	}
	event := seedEvent(t, f, host.ID, users, 5, testNow.Add(-48*time.Hour))
	gone := users[4]
	require.NoError(t, f.db.Delete(&models.User{}, gone.ID).Error)

	award, err := f.svc.CompleteEvent(ctx, event.ID, EventReport{ChiefGuests: 2, Competitions: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{fmt.Sprintf("registrant:%d", gone.ID)}, award.FailedSteps)
	assert.Equal(t, 9, award.RegistrantsCredited)

	assert.Equal(t, int64(155), testdb.ReloadClub(t, f.db, host.ID).Points)
	for i, u := range users {
		if i == 4 {
			continue
		}
		assert.Equal(t, int64(100), testdb.ReloadUser(t, f.db, u.ID).Points)
	}
	assert.Empty(t, testdb.Ledger(t, f.db, models.SubjectUser, gone.ID))

	stored, err := f.repos.Events.GetByID(ctx, event.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsCompleted())
}

func TestCompleteEvent_MissingHostStillCreditsStudents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	host := testdb.Club(t, f.db, "Host", "North", 0, 0)
	users := []*models.User{testdb.User(t, f.db, "solo", "North", 0, 0, 0)}
	event := seedEvent(t, f, host.ID, users, 1, testNow.Add(-48*time.Hour))
	require.NoError(t, f.db.Delete(&models.Club{}, host.ID).Error)

	award, err := f.svc.CompleteEvent(ctx, event.ID, EventReport{ChiefGuests: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"club"}, award.FailedSteps)
	assert.Equal(t, 1, award.RegistrantsCredited)
	assert.Equal(t, int64(100), testdb.ReloadUser(t, f.db, users[0].ID).Points)
}

func TestCompleteEvent_Unannounced(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	host := testdb.Club(t, f.db, "Host", "North", 0, 0)

	var users []*models.User
	for i := 0; i < 10; i++ {
		users = append(users, testdb.User(t, f.db, fmt.Sprintf("walkin%d", i), "North", 0, 0, 0))
	}
	event := seedEvent(t, f, host.ID, users, 0, testNow.Add(-48*time.Hour))

	award, err := f.svc.CompleteEvent(ctx, event.ID, EventReport{ChiefGuests: 2, Competitions: 1})
	require.NoError(t, err)
	assert.True(t, award.Unannounced)
	assert.Equal(t, int64(78), award.ClubPoints)
	assert.Equal(t, int64(78), testdb.ReloadClub(t, f.db, host.ID).Points)
}

func TestCompleteEvent_CreatedJustBeforeCompletion(t *testing.T) {
	f := newFixture(t)
	host := testdb.Club(t, f.db, "Host", "North", 0, 0)
	user := testdb.User(t, f.db, "solo", "North", 0, 0, 0)
	event := seedEvent(t, f, host.ID, []*models.User{user}, 1, testNow.Add(-time.Minute))

	award, err := f.svc.CompleteEvent(context.Background(), event.ID, EventReport{})
	require.NoError(t, err)
	assert.True(t, award.Unannounced)
	assert.Equal(t, int64(5), award.ClubPoints)
}

func TestCompleteEvent_RejectsNegativeReport(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CompleteEvent(context.Background(), 1, EventReport{ChiefGuests: -1})
	assert.True(t, errors.Is(err, ErrInvalidAmount))
}

func TestReviewTaskSubmission(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	club := testdb.Club(t, f.db, "Makers", "North", 0, 0)
	user := testdb.User(t, f.db, "alice", "North", 0, 0, 0)

	task := &models.Task{ClubID: club.ID, Title: "Poster", Points: 40}
	require.NoError(t, f.repos.Tasks.Create(ctx, task))
	sub := &models.TaskSubmission{TaskID: task.ID, UserID: user.ID, Status: models.SubmissionPending, SubmittedAt: testNow}
	require.NoError(t, f.db.Create(sub).Error)

	_, err := f.svc.ReviewTaskSubmission(ctx, sub.ID, "maybe", 40, "")
	assert.True(t, errors.Is(err, ErrInvalidStatus))

	reviewed, err := f.svc.ReviewTaskSubmission(ctx, sub.ID, models.SubmissionApproved, 40, "great")
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionApproved, reviewed.Status)

	assert.Equal(t, int64(40), testdb.ReloadUser(t, f.db, user.ID).Points)
	assert.Equal(t, int64(5), testdb.ReloadClub(t, f.db, club.ID).Points)

	entries := testdb.Ledger(t, f.db, models.SubjectClub, club.ID)
	require.Len(t, entries, 1)
	assert.Equal(t, models.SourceTask, entries[0].SourceType)

	_, err = f.svc.ReviewTaskSubmission(ctx, sub.ID, models.SubmissionApproved, 40, "")
	assert.True(t, errors.Is(err, ErrAlreadyReviewed))
	assert.Equal(t, int64(40), testdb.ReloadUser(t, f.db, user.ID).Points)
}

func TestReviewTaskSubmission_RejectCreditsNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	club := testdb.Club(t, f.db, "Makers", "North", 0, 0)
	user := testdb.User(t, f.db, "bob", "North", 0, 0, 0)
	task := &models.Task{ClubID: club.ID, Title: "Poster", Points: 40}
	require.NoError(t, f.repos.Tasks.Create(ctx, task))
	sub := &models.TaskSubmission{TaskID: task.ID, UserID: user.ID, Status: models.SubmissionPending, SubmittedAt: testNow}
	require.NoError(t, f.db.Create(sub).Error)

	_, err := f.svc.ReviewTaskSubmission(ctx, sub.ID, models.SubmissionRejected, 40, "incomplete")
	require.NoError(t, err)
	assert.Empty(t, testdb.Ledger(t, f.db, models.SubjectUser, user.ID))
	assert.Empty(t, testdb.Ledger(t, f.db, models.SubjectClub, club.ID))
}

func ratingPoll(t *testing.T, f *fixture, clubID uint, eventID *uint) *models.Poll {
	t.Helper()

	poll := &models.Poll{ClubID: clubID, EventID: eventID, Question: "Rate the event", IsRatingPoll: true, Active: true}
	for i := 1; i <= 5; i++ {
		poll.Options = append(poll.Options, models.PollOption{Position: i - 1, Label: fmt.Sprintf("%d stars", i)})
	}
	require.NoError(t, f.repos.Polls.Create(context.Background(), poll))
	return poll
}

func TestCastVote_RatingPollCreditsStars(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	club := testdb.Club(t, f.db, "Drama", "North", 0, 0)
	user := testdb.User(t, f.db, "alice", "North", 0, 0, 0)
	poll := ratingPoll(t, f, club.ID, nil)

	_, err := f.svc.CastVote(ctx, user.ID, poll.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(4), testdb.ReloadClub(t, f.db, club.ID).Points)

	reloaded, err := f.repos.Polls.GetByID(ctx, poll.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, reloaded.Options[3].Votes)

	_, err = f.svc.CastVote(ctx, user.ID, poll.ID, 4)
	assert.True(t, errors.Is(err, ErrAlreadyVoted))
	assert.Equal(t, int64(4), testdb.ReloadClub(t, f.db, club.ID).Points)

	_, err = f.svc.CastVote(ctx, user.ID, poll.ID, 5)
	assert.True(t, errors.Is(err, ErrInvalidOption))
}

func TestCastVote_ClosedPoll(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	club := testdb.Club(t, f.db, "Drama", "North", 0, 0)
	user := testdb.User(t, f.db, "alice", "North", 0, 0, 0)

	expired := testNow.Add(-time.Minute)
	poll := &models.Poll{ClubID: club.ID, Question: "Pizza?", Active: true, ExpiresAt: &expired,
		Options: []models.PollOption{{Position: 0, Label: "Yes"}, {Position: 1, Label: "No"}}}
	require.NoError(t, f.repos.Polls.Create(ctx, poll))

	_, err := f.svc.CastVote(ctx, user.ID, poll.ID, 0)
	assert.True(t, errors.Is(err, ErrPollClosed))
}

func TestRecordLogin_OncePerDay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := testdb.User(t, f.db, "alice", "North", 0, 0, 0)

	credited, err := f.svc.RecordLogin(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, credited)

	f.advance(6 * time.Hour)
	credited, err = f.svc.RecordLogin(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, credited)
	assert.Equal(t, int64(20), testdb.ReloadUser(t, f.db, user.ID).Points)

	f.advance(12 * time.Hour)
	credited, err = f.svc.RecordLogin(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, credited)
	assert.Equal(t, int64(40), testdb.ReloadUser(t, f.db, user.ID).Points)

	_, err = f.svc.RecordLogin(ctx, 9999)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestProjects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	club := testdb.Club(t, f.db, "Robotics", "North", 0, 0)
	alice := testdb.User(t, f.db, "alice", "North", 0, 0, 0)
	bob := testdb.User(t, f.db, "bob", "North", 0, 0, 0)

	project := &models.Project{ClubID: club.ID, Title: "Rover", Status: models.ProjectPending, MaxTeamSize: 1, XPReward: 30}
	require.NoError(t, f.repos.Projects.Create(ctx, project))

	_, err := f.svc.JoinProject(ctx, alice.ID, project.ID)
	assert.True(t, errors.Is(err, ErrNotApproved))

	approved, err := f.svc.ApproveProject(ctx, project.ID)
	require.NoError(t, err)
	require.NotNil(t, approved.JoinCode)
	assert.Equal(t, int64(10), testdb.ReloadClub(t, f.db, club.ID).Points)

	_, err = f.svc.ApproveProject(ctx, project.ID)
	assert.True(t, errors.Is(err, ErrAlreadyReviewed))
	assert.Equal(t, int64(10), testdb.ReloadClub(t, f.db, club.ID).Points)

	_, err = f.svc.JoinProjectByCode(ctx, alice.ID, *approved.JoinCode)
	require.NoError(t, err)
	assert.Equal(t, int64(30), testdb.ReloadUser(t, f.db, alice.ID).Points)

	_, err = f.svc.JoinProject(ctx, alice.ID, project.ID)
	assert.True(t, errors.Is(err, ErrAlreadyMember))

	_, err = f.svc.JoinProject(ctx, bob.ID, project.ID)
	assert.True(t, errors.Is(err, ErrTeamFull))
	assert.Zero(t, testdb.ReloadUser(t, f.db, bob.ID).Points)

	activity := testdb.Activity(t, f.db, alice.ID, models.ActivityProject, project.ID)
	assert.Equal(t, models.ActivityStarted, activity.Status)
}
