package services

import (
	"context"
	"os"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gritfulAPI/internal/challenge"
	"gritfulAPI/internal/civildate"
	"gritfulAPI/internal/email"
	"gritfulAPI/internal/entry"
	"gritfulAPI/internal/logger"
	"gritfulAPI/internal/notification"
	"gritfulAPI/internal/scoring"
	"gritfulAPI/internal/user"
)

func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	require.NoError(t, err)
	require.NoError(t, pool.Ping(ctx))

	schema, err := os.ReadFile("../db/schema.sql")
	require.NoError(t, err)
	_, err = pool.Exec(ctx, string(schema))
	require.NoError(t, err)

	t.Cleanup(pool.Close)
	return pool
}

type testApp struct {
	users         *UserService
	challenges    *ChallengeService
	entries       *EntryService
	tasks         *TaskService
	participants  *ParticipantService
	feed          *FeedService
	notifications *NotificationService
	emails        *EmailService
}

func newTestApp(t *testing.T, pool *pgxpool.Pool) *testApp {
	log := logger.Nop()
	notifications := NewNotificationService(pool, &notification.LogPushProvider{Log: log}, log)
	t.Cleanup(notifications.Close)
	feedSvc := NewFeedService(pool, notifications, log)
	return &testApp{
		users:         NewUserService(pool, "UTC"),
		challenges:    NewChallengeService(pool, feedSvc, notifications, log),
		entries:       NewEntryService(pool, feedSvc, notifications, log),
		tasks:         NewTaskService(pool, feedSvc, log),
		participants:  NewParticipantService(pool, log),
		feed:          feedSvc,
		notifications: notifications,
		emails:        NewEmailService(pool),
	}
}

func createTestUser(t *testing.T, app *testApp, name string) Caller {
	t.Helper()
	clerkID := "test_" + name + "_" + uuid.NewString()[:8]
	_, err := app.users.CreateUser(context.Background(), &user.CreateUserRequest{
		ClerkID:  clerkID,
		Email:    clerkID + "@example.com",
		Username: clerkID,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = app.users.DeleteUserByClerkID(context.Background(), clerkID)
	})
	return Caller{ClerkID: clerkID, Timezone: "UTC"}
}

func testMetrics() []scoring.Task {
	return []scoring.Task{
		{ID: "workout", Name: "Workout", Type: scoring.TypeBoolean, Frequency: scoring.FrequencyDaily, Points: 10},
		{ID: "read", Name: "Read", Type: scoring.TypeNumber, Frequency: scoring.FrequencyDaily, Points: 5, Optional: true},
		{ID: "long-run", Name: "Long run", Type: scoring.TypeBoolean, Frequency: scoring.FrequencyWeekly, Points: 20},
		{ID: "race", Name: "Race", Type: scoring.TypeBoolean, Frequency: scoring.FrequencyOnetime, Points: 50},
	}
}

func TestChallengeLifecycle(t *testing.T) {
	pool := setupTestDB(t)
	app := newTestApp(t, pool)
	ctx := context.Background()

	alice := createTestUser(t, app, "alice")
	bob := createTestUser(t, app, "bob")

	today := civildate.TodayAt(time.Now(), time.UTC)
	duration := 30
	created, err := app.challenges.CreateChallenge(ctx, alice, &challenge.CreateChallengeRequest{
		Name:         "Thirty days",
		StartsAt:     today.AddDays(-3).String(),
		DurationDays: &duration,
		Metrics:      testMetrics(),
		BonusEnabled: true,
		BonusPoints:  3,
	})
	require.NoError(t, err)
	assert.Equal(t, challenge.StateActive, created.State.State)
	assert.True(t, created.IsCreator)
	require.NotNil(t, created.EndsAt)
	assert.Equal(t, today.AddDays(26), *created.EndsAt)

	// daily entries for the last three days build a streak
	for i := 2; i >= 0; i-- {
		_, err := app.entries.SubmitDailyEntry(ctx, alice, created.ID, &entry.SubmitDailyEntryRequest{
			EntryDate: today.AddDays(-i).String(),
			Values:    map[string]any{"workout": true},
		})
		require.NoError(t, err)
	}
	resp, err := app.entries.SubmitDailyEntry(ctx, alice, created.ID, &entry.SubmitDailyEntryRequest{
		Values: map[string]any{"workout": true, "read": 12},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, resp.CurrentStreak)
	assert.Equal(t, 15, resp.Entry.PointsEarned)
	assert.Equal(t, 3, resp.Entry.BonusPoints)
	assert.Equal(t, 10+3+10+3+15+3, resp.TotalPoints)

	_, err = app.entries.SubmitDailyEntry(ctx, alice, created.ID, &entry.SubmitDailyEntryRequest{
		EntryDate: today.AddDays(1).String(),
		Values:    map[string]any{"workout": true},
	})
	assert.ErrorIs(t, err, scoring.ErrFutureDate)

	_, err = app.entries.SubmitDailyEntry(ctx, alice, created.ID, &entry.SubmitDailyEntryRequest{
		EntryDate: today.AddDays(-4).String(),
		Values:    map[string]any{"workout": true},
	})
	assert.ErrorIs(t, err, scoring.ErrBeforeStart)

	// periodic tasks complete once per period and can be undone
	_, err = app.tasks.CompleteTask(ctx, alice, created.ID, "long-run", nil)
	require.NoError(t, err)
	_, err = app.tasks.CompleteTask(ctx, alice, created.ID, "long-run", nil)
	assert.ErrorIs(t, err, scoring.ErrDuplicateCompletion)
	_, err = app.tasks.UndoPeriodicTask(ctx, alice, created.ID, "long-run")
	require.NoError(t, err)
	_, err = app.tasks.CompleteTask(ctx, alice, created.ID, "long-run", nil)
	require.NoError(t, err)

	_, err = app.tasks.CompleteTask(ctx, alice, created.ID, "race", nil)
	require.NoError(t, err)
	_, err = app.tasks.CompleteTask(ctx, alice, created.ID, "race", nil)
	assert.ErrorIs(t, err, scoring.ErrAlreadyCompleted)

	statuses, err := app.tasks.GetTaskStatus(ctx, alice, created.ID)
	require.NoError(t, err)
	require.Len(t, statuses, 2)
	assert.True(t, statuses[0].Completed)
	assert.True(t, statuses[1].Completed)

	st, err := app.participants.GetParticipantStats(ctx, alice, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 44+20+50, st.TotalPoints)
	assert.Equal(t, 3, st.CurrentStreak)

	// bob needs the invite code
	_, err = app.entries.GetDailyEntries(ctx, bob, created.ID, nil, nil)
	assert.ErrorIs(t, err, ErrNotParticipant)
	_, err = app.challenges.JoinChallenge(ctx, bob, &challenge.JoinChallengeRequest{InviteCode: created.InviteCode})
	require.NoError(t, err)
	_, err = app.challenges.JoinChallenge(ctx, bob, &challenge.JoinChallengeRequest{InviteCode: created.InviteCode})
	assert.ErrorIs(t, err, ErrAlreadyParticipant)

	lb, err := app.participants.GetLeaderboard(ctx, bob, created.ID)
	require.NoError(t, err)
	require.Len(t, lb.Entries, 2)
	assert.Equal(t, 1, lb.Entries[0].Rank)
	assert.Equal(t, 3, lb.Entries[0].CurrentStreak)
	require.NotNil(t, lb.UserPosition)
	assert.Equal(t, 2, lb.UserPosition.Rank)

	// only the creator may end it; ending opens the grace window
	_, err = app.challenges.EndChallenge(ctx, bob, created.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	ended, err := app.challenges.EndChallenge(ctx, alice, created.ID)
	require.NoError(t, err)
	assert.Equal(t, challenge.StateActive, ended.State.State)

	_, err = app.challenges.EndChallenge(ctx, alice, created.ID)
	assert.ErrorIs(t, err, scoring.ErrChallengeEnded)

	list, err := app.challenges.ListChallenges(ctx, bob, challenge.ViewActive)
	require.NoError(t, err)
	found := false
	for _, c := range list {
		if c.ID == created.ID {
			found = true
		}
	}
	assert.True(t, found)

	count, err := app.notifications.GetUnreadCount(ctx, bob.ClerkID)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, count, 1)

	require.NoError(t, app.challenges.LeaveChallenge(ctx, bob, created.ID))
	assert.ErrorIs(t, app.challenges.LeaveChallenge(ctx, alice, created.ID), ErrForbidden)
}

func TestEndChallengeAfterScheduledEnd(t *testing.T) {
	pool := setupTestDB(t)
	app := newTestApp(t, pool)
	ctx := context.Background()

	alice := createTestUser(t, app, "alice")
	today := civildate.TodayAt(time.Now(), time.UTC)
	duration := 10

	for _, tc := range []struct {
		name  string
		start civil.Date
		state challenge.State
	}{
		{"grace period", today.AddDays(-15), challenge.StateGracePeriod},
		{"archived", today.AddDays(-60), challenge.StateArchived},
	} {
		t.Run(tc.name, func(t *testing.T) {
			created, err := app.challenges.CreateChallenge(ctx, alice, &challenge.CreateChallengeRequest{
				Name:         "Past " + tc.name,
				StartsAt:     tc.start.String(),
				DurationDays: &duration,
				Metrics:      testMetrics(),
			})
			require.NoError(t, err)
			require.Equal(t, tc.state, created.State.State)

			_, err = app.challenges.EndChallenge(ctx, alice, created.ID)
			assert.ErrorIs(t, err, scoring.ErrChallengeEnded)

			after, err := app.challenges.GetChallenge(ctx, alice, created.ID)
			require.NoError(t, err)
			assert.Nil(t, after.EndedAt)
			assert.Equal(t, tc.state, after.State.State)
		})
	}
}

func TestEmailQueueClaim(t *testing.T) {
	pool := setupTestDB(t)
	svc := NewEmailService(pool)
	ctx := context.Background()

	id, err := svc.Enqueue(ctx, &email.EnqueueRequest{ToAddress: "test-queue@example.com", Subject: "hello", TextBody: "hi"})
	require.NoError(t, err)
	t.Cleanup(func() { _, _ = pool.Exec(context.Background(), `DELETE FROM email_queue WHERE id = $1`, id) })

	claimed, err := svc.ClaimDue(ctx, 500)
	require.NoError(t, err)
	var mine *email.Message
	for _, m := range claimed {
		if m.ID == id {
			mine = m
		}
	}
	require.NotNil(t, mine)
	assert.Equal(t, email.StatusSending, mine.Status)

	// claimed rows are leased and invisible to the next drain
	again, err := svc.ClaimDue(ctx, 500)
	require.NoError(t, err)
	for _, m := range again {
		assert.NotEqual(t, id, m.ID)
	}

	require.NoError(t, svc.MarkFailed(ctx, id, email.StatusPending, 1, time.Now().Add(-time.Second), "boom"))
	claimed, err = svc.ClaimDue(ctx, 500)
	require.NoError(t, err)
	mine = nil
	for _, m := range claimed {
		if m.ID == id {
			mine = m
		}
	}
	require.NotNil(t, mine)
	assert.Equal(t, 1, mine.Attempts)
	require.NoError(t, svc.MarkSent(ctx, id))
}

func claimOne(t *testing.T, svc *EmailService, id uuid.UUID) *email.Message {
	t.Helper()
	claimed, err := svc.ClaimDue(context.Background(), 500)
	require.NoError(t, err)
	for _, m := range claimed {
		if m.ID == id {
			return m
		}
	}
	return nil
}

func TestEmailQueueExpiredLeaseCountsAsAttempt(t *testing.T) {
	pool := setupTestDB(t)
	svc := NewEmailService(pool)
	ctx := context.Background()

	id, err := svc.Enqueue(ctx, &email.EnqueueRequest{ToAddress: "test-lease@example.com", Subject: "hello", TextBody: "hi"})
	require.NoError(t, err)
	t.Cleanup(func() { _, _ = pool.Exec(context.Background(), `DELETE FROM email_queue WHERE id = $1`, id) })

	expire := func() {
		_, err := pool.Exec(ctx, `UPDATE email_queue SET next_attempt_at = NOW() - interval '1 second' WHERE id = $1`, id)
		require.NoError(t, err)
	}

	first := claimOne(t, svc, id)
	require.NotNil(t, first)
	assert.Equal(t, 0, first.Attempts)

	// the sender died without marking the row; the lease runs out
	for want := 1; want <= email.MaxRetries; want++ {
		expire()
		m := claimOne(t, svc, id)
		require.NotNil(t, m, "reclaim %d", want)
		assert.Equal(t, want, m.Attempts)
		require.NotNil(t, m.LastError)
		assert.Equal(t, "send lease expired", *m.LastError)
	}

	expire()
	assert.Nil(t, claimOne(t, svc, id))

	var status string
	var attempts int
	require.NoError(t, pool.QueryRow(ctx, `SELECT status, attempts FROM email_queue WHERE id = $1`, id).Scan(&status, &attempts))
	assert.Equal(t, string(email.StatusFailed), status)
	assert.Equal(t, email.MaxRetries+1, attempts)
}

func TestUndecodableEntryValuesSurfaceAsErrors(t *testing.T) {
	pool := setupTestDB(t)
	app := newTestApp(t, pool)
	ctx := context.Background()

	alice := createTestUser(t, app, "alice")
	today := civildate.TodayAt(time.Now(), time.UTC)
	created, err := app.challenges.CreateChallenge(ctx, alice, &challenge.CreateChallengeRequest{
		Name:     "Corrupt values",
		StartsAt: today.String(),
		Metrics:  testMetrics(),
	})
	require.NoError(t, err)

	resp, err := app.entries.SubmitDailyEntry(ctx, alice, created.ID, &entry.SubmitDailyEntryRequest{
		Values: map[string]any{"workout": true},
	})
	require.NoError(t, err)

	_, err = pool.Exec(ctx, `UPDATE daily_entries SET metric_values = '[1, 2]'::jsonb WHERE id = $1`, resp.Entry.ID)
	require.NoError(t, err)

	_, err = app.entries.GetDailyEntries(ctx, alice, created.ID, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode values of entry")
}

func TestResubmissionKeepsFirstSubmittedAt(t *testing.T) {
	pool := setupTestDB(t)
	app := newTestApp(t, pool)
	ctx := context.Background()

	alice := createTestUser(t, app, "alice")
	today := civildate.TodayAt(time.Now(), time.UTC)
	created, err := app.challenges.CreateChallenge(ctx, alice, &challenge.CreateChallengeRequest{
		Name:     "Backfill",
		StartsAt: today.AddDays(-5).String(),
		Metrics:  testMetrics(),
	})
	require.NoError(t, err)

	day := today.AddDays(-2).String()
	first, err := app.entries.SubmitDailyEntry(ctx, alice, created.ID, &entry.SubmitDailyEntryRequest{
		EntryDate: day,
		Values:    map[string]any{"workout": false},
	})
	require.NoError(t, err)
	assert.True(t, first.Entry.IsLate)

	second, err := app.entries.SubmitDailyEntry(ctx, alice, created.ID, &entry.SubmitDailyEntryRequest{
		EntryDate: day,
		Values:    map[string]any{"workout": true},
	})
	require.NoError(t, err)
	assert.Equal(t, first.Entry.ID, second.Entry.ID)
	assert.True(t, second.Entry.SubmittedAt.Equal(first.Entry.SubmittedAt))
	assert.True(t, second.Entry.IsCompleted)
	assert.True(t, second.Entry.IsLate)
}
