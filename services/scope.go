package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"gritfulAPI/internal/challenge"
	"gritfulAPI/internal/civildate"
	"gritfulAPI/internal/entry"
	"gritfulAPI/internal/scoring"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Caller identifies the authenticated user of a request. Timezone, when set,
// overrides the zone stored on the user row.
type Caller struct {
	ClerkID  string
	Timezone string
}

type callerInfo struct {
	UserID   uuid.UUID
	Email    string
	Username string
	Loc      *time.Location
}

func resolveCaller(ctx context.Context, q DBTX, c Caller) (*callerInfo, error) {
	info := &callerInfo{}
	var tz string
	err := q.QueryRow(ctx, `SELECT id, email, username, timezone FROM users WHERE clerk_id = $1`, c.ClerkID).
		Scan(&info.UserID, &info.Email, &info.Username, &tz)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to resolve user: %w", err)
	}
	if c.Timezone != "" {
		tz = c.Timezone
	}
	info.Loc, err = civildate.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTimezone, err)
	}
	return info, nil
}

// scope is a caller acting inside one challenge they participate in.
type scope struct {
	*callerInfo
	Today       civil.Date
	Challenge   *challenge.Challenge
	Participant *challenge.Participant
}

func (sc *scope) state() challenge.StateResult {
	return challenge.StateOn(sc.Challenge.Schedule(), sc.Today, sc.Loc)
}

func (sc *scope) window() scoring.Window {
	w := scoring.Window{
		Today:          sc.Today,
		StartsAt:       sc.Challenge.StartsAt,
		EntriesAllowed: sc.state().IsEntryAllowed,
	}
	if end, ok := sc.Challenge.Schedule().EffectiveEnd(sc.Loc); ok {
		w.End = &end
	}
	return w
}

func loadScope(ctx context.Context, q DBTX, c Caller, challengeID uuid.UUID) (*scope, error) {
	info, err := resolveCaller(ctx, q, c)
	if err != nil {
		return nil, err
	}
	ch, err := loadChallenge(ctx, q, challengeID)
	if err != nil {
		return nil, err
	}
	p, err := loadParticipant(ctx, q, challengeID, info.UserID)
	if err != nil {
		return nil, err
	}
	return &scope{
		callerInfo:  info,
		Today:       civildate.TodayAt(time.Now(), info.Loc),
		Challenge:   ch,
		Participant: p,
	}, nil
}

const challengeColumns = `id, creator_id, name, description, invite_code, starts_at, ends_at, ended_at,
	grace_period_days, metrics, bonus_enabled, bonus_points, is_public, created_at, updated_at`

func scanChallenge(row pgx.Row) (*challenge.Challenge, error) {
	c := &challenge.Challenge{}
	var startsAt time.Time
	var endsAt *time.Time
	var metrics []byte
	err := row.Scan(
		&c.ID, &c.CreatorID, &c.Name, &c.Description, &c.InviteCode,
		&startsAt, &endsAt, &c.EndedAt,
		&c.GracePeriodDays, &metrics, &c.BonusEnabled, &c.BonusPoints, &c.IsPublic,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.StartsAt = civildate.FromDBDate(startsAt)
	c.EndsAt = civildate.FromDBDatePtr(endsAt)
	if len(metrics) > 0 {
		if err := json.Unmarshal(metrics, &c.Metrics); err != nil {
			return nil, fmt.Errorf("failed to decode metrics: %w", err)
		}
	}
	return c, nil
}

func loadChallenge(ctx context.Context, q DBTX, id uuid.UUID) (*challenge.Challenge, error) {
	c, err := scanChallenge(q.QueryRow(ctx, `SELECT `+challengeColumns+` FROM challenges WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load challenge: %w", err)
	}
	return c, nil
}

const participantColumns = `id, challenge_id, user_id, current_streak, longest_streak, total_points, joined_at, updated_at`

func scanParticipant(row pgx.Row) (*challenge.Participant, error) {
	p := &challenge.Participant{}
	err := row.Scan(&p.ID, &p.ChallengeID, &p.UserID, &p.CurrentStreak, &p.LongestStreak, &p.TotalPoints, &p.JoinedAt, &p.UpdatedAt)
	return p, err
}

func loadParticipant(ctx context.Context, q DBTX, challengeID, userID uuid.UUID) (*challenge.Participant, error) {
	p, err := scanParticipant(q.QueryRow(ctx,
		`SELECT `+participantColumns+` FROM challenge_participants WHERE challenge_id = $1 AND user_id = $2`,
		challengeID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotParticipant
		}
		return nil, fmt.Errorf("failed to load participant: %w", err)
	}
	return p, nil
}

func loadDailyEntries(ctx context.Context, q DBTX, participantID uuid.UUID) ([]*entry.DailyEntry, error) {
	rows, err := q.Query(ctx, `
		SELECT id, participant_id, entry_date, metric_values, is_completed, points_earned, bonus_points, submitted_at, updated_at
		FROM daily_entries
		WHERE participant_id = $1
		ORDER BY entry_date`, participantID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch daily entries: %w", err)
	}
	defer rows.Close()

	var out []*entry.DailyEntry
	for rows.Next() {
		e := &entry.DailyEntry{}
		var entryDate time.Time
		var values []byte
		if err := rows.Scan(&e.ID, &e.ParticipantID, &entryDate, &values, &e.IsCompleted,
			&e.PointsEarned, &e.BonusPoints, &e.SubmittedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan daily entry: %w", err)
		}
		e.EntryDate = civildate.FromDBDate(entryDate)
		if len(values) > 0 {
			if err := json.Unmarshal(values, &e.Values); err != nil {
				return nil, fmt.Errorf("failed to decode values of entry %s: %w", e.ID, err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func loadPeriodicCompletions(ctx context.Context, q DBTX, participantID uuid.UUID) ([]*entry.PeriodicTaskCompletion, error) {
	rows, err := q.Query(ctx, `
		SELECT id, participant_id, task_id, period_start, period_end, value, points_earned, completed_at
		FROM periodic_task_completions
		WHERE participant_id = $1
		ORDER BY period_start`, participantID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch periodic completions: %w", err)
	}
	defer rows.Close()

	var out []*entry.PeriodicTaskCompletion
	for rows.Next() {
		c := &entry.PeriodicTaskCompletion{}
		var start, end time.Time
		var value []byte
		if err := rows.Scan(&c.ID, &c.ParticipantID, &c.TaskID, &start, &end, &value, &c.PointsEarned, &c.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan periodic completion: %w", err)
		}
		c.PeriodStart = civildate.FromDBDate(start)
		c.PeriodEnd = civildate.FromDBDate(end)
		if len(value) > 0 {
			if err := json.Unmarshal(value, &c.Value); err != nil {
				return nil, fmt.Errorf("failed to decode value of periodic completion %s: %w", c.ID, err)
			}
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func loadOnetimeCompletions(ctx context.Context, q DBTX, participantID uuid.UUID) ([]*entry.OnetimeTaskCompletion, error) {
	rows, err := q.Query(ctx, `
		SELECT id, participant_id, task_id, value, points_earned, completed_at
		FROM onetime_task_completions
		WHERE participant_id = $1
		ORDER BY completed_at`, participantID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch onetime completions: %w", err)
	}
	defer rows.Close()

	var out []*entry.OnetimeTaskCompletion
	for rows.Next() {
		c := &entry.OnetimeTaskCompletion{}
		var value []byte
		if err := rows.Scan(&c.ID, &c.ParticipantID, &c.TaskID, &value, &c.PointsEarned, &c.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan onetime completion: %w", err)
		}
		if len(value) > 0 {
			if err := json.Unmarshal(value, &c.Value); err != nil {
				return nil, fmt.Errorf("failed to decode value of onetime completion %s: %w", c.ID, err)
			}
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
