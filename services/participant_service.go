package services

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"gritfulAPI/internal/civildate"
	"gritfulAPI/internal/entry"
	"gritfulAPI/internal/leaderboard"
	"gritfulAPI/internal/logger"
	"gritfulAPI/internal/scoring"
	"gritfulAPI/internal/stats"
	"gritfulAPI/internal/streak"
)

type ParticipantService struct {
	db  *pgxpool.Pool
	log *logger.Logger
}

func NewParticipantService(db *pgxpool.Pool, log *logger.Logger) *ParticipantService {
	return &ParticipantService{db: db, log: log.With("service", "participant")}
}

// Recomputed is the fresh aggregate written back to the participant row.
type Recomputed struct {
	Totals scoring.Totals `json:"totals"`
	Streak streak.Streak  `json:"streak"`
}

// recomputeParticipant rebuilds total_points and both streaks from every
// stored record and persists them. The stored copy is advisory; read paths
// recompute streaks again.
func recomputeParticipant(ctx context.Context, q DBTX, participantID uuid.UUID, today civil.Date) (*Recomputed, error) {
	entries, err := loadDailyEntries(ctx, q, participantID)
	if err != nil {
		return nil, err
	}
	periodic, err := loadPeriodicCompletions(ctx, q, participantID)
	if err != nil {
		return nil, err
	}
	onetime, err := loadOnetimeCompletions(ctx, q, participantID)
	if err != nil {
		return nil, err
	}

	res := &Recomputed{
		Totals: scoring.Aggregate(entry.DailyRecords(entries), entry.OnetimeRecords(onetime), entry.PeriodicRecords(periodic)),
		Streak: streak.Calculate(entry.StreakDays(entries), today),
	}

	_, err = q.Exec(ctx, `
		UPDATE challenge_participants
		SET total_points = $2, current_streak = $3, longest_streak = $4, updated_at = NOW()
		WHERE id = $1`,
		participantID, res.Totals.TotalPoints, res.Streak.CurrentStreak, res.Streak.LongestStreak)
	if err != nil {
		return nil, fmt.Errorf("failed to persist participant totals: %w", err)
	}
	return res, nil
}

func (s *ParticipantService) RecomputeParticipant(ctx context.Context, caller Caller, challengeID uuid.UUID) (*Recomputed, error) {
	sc, err := loadScope(ctx, s.db, caller, challengeID)
	if err != nil {
		return nil, err
	}
	return recomputeParticipant(ctx, s.db, sc.Participant.ID, sc.Today)
}

// GetLeaderboard ranks every participant. Streaks are recomputed here from
// entries using each participant's own timezone rather than read from the
// stored counters.
func (s *ParticipantService) GetLeaderboard(ctx context.Context, caller Caller, challengeID uuid.UUID) (*leaderboard.Leaderboard, error) {
	sc, err := loadScope(ctx, s.db, caller, challengeID)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, `
		SELECT cp.id, cp.user_id, u.username, NULLIF(u.image_url, ''), cp.total_points, u.timezone
		FROM challenge_participants cp
		JOIN users u ON u.id = cp.user_id
		WHERE cp.challenge_id = $1`, challengeID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch participants: %w", err)
	}
	defer rows.Close()

	var entries []*leaderboard.LeaderboardEntry
	zones := map[uuid.UUID]string{}
	for rows.Next() {
		e := &leaderboard.LeaderboardEntry{}
		var tz string
		if err := rows.Scan(&e.ParticipantID, &e.UserID, &e.Username, &e.ImageURL, &e.TotalPoints, &tz); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		zones[e.ParticipantID] = tz
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate participants: %w", err)
	}

	days, err := s.completionDays(ctx, challengeID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	for _, e := range entries {
		loc, err := civildate.LoadLocation(zones[e.ParticipantID])
		if err != nil {
			loc = sc.Loc
		}
		st := streak.Calculate(days[e.ParticipantID], civildate.TodayAt(now, loc))
		e.CurrentStreak = st.CurrentStreak
		e.LongestStreak = st.LongestStreak
		for _, d := range days[e.ParticipantID] {
			if d.Completed {
				e.DaysCompleted++
			}
		}
	}

	return leaderboard.Build(challengeID, sc.UserID, entries), nil
}

func (s *ParticipantService) completionDays(ctx context.Context, challengeID uuid.UUID) (map[uuid.UUID][]streak.Day, error) {
	rows, err := s.db.Query(ctx, `
		SELECT de.participant_id, de.entry_date, de.is_completed
		FROM daily_entries de
		JOIN challenge_participants cp ON cp.id = de.participant_id
		WHERE cp.challenge_id = $1`, challengeID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch entries: %w", err)
	}
	defer rows.Close()

	out := map[uuid.UUID][]streak.Day{}
	for rows.Next() {
		var pid uuid.UUID
		var d time.Time
		var completed bool
		if err := rows.Scan(&pid, &d, &completed); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		out[pid] = append(out[pid], streak.Day{Date: civildate.FromDBDate(d), Completed: completed})
	}
	return out, rows.Err()
}

func (s *ParticipantService) GetParticipantStats(ctx context.Context, caller Caller, challengeID uuid.UUID) (*stats.ParticipantStats, error) {
	sc, err := loadScope(ctx, s.db, caller, challengeID)
	if err != nil {
		return nil, err
	}

	in := stats.Input{
		Today:        sc.Today,
		StartsAt:     sc.Challenge.StartsAt,
		OnetimeTasks: len(sc.Challenge.TasksByFrequency(scoring.FrequencyOnetime)),
	}
	if end, ok := sc.Challenge.Schedule().EffectiveEnd(sc.Loc); ok {
		in.End = &end
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		in.Entries, err = loadDailyEntries(gctx, s.db, sc.Participant.ID)
		return err
	})
	g.Go(func() error {
		var err error
		in.Periodic, err = loadPeriodicCompletions(gctx, s.db, sc.Participant.ID)
		return err
	})
	g.Go(func() error {
		var err error
		in.Onetime, err = loadOnetimeCompletions(gctx, s.db, sc.Participant.ID)
		return err
	})
	if err := g.Wait(); err != nil {
		s.log.Error("Stats: failed to load records", "challenge_id", challengeID, "error", err)
		return nil, err
	}

	markLate(in.Entries, sc.Loc)
	st := stats.Compute(in)
	return &st, nil
}

func markLate(entries []*entry.DailyEntry, loc *time.Location) {
	for _, e := range entries {
		e.IsLate = scoring.IsLate(e.EntryDate, e.SubmittedAt, loc)
	}
}
