package services

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"gritfulAPI/internal/calendar"
	"gritfulAPI/internal/civildate"
	"gritfulAPI/internal/entry"
	"gritfulAPI/internal/feed"
	"gritfulAPI/internal/logger"
	"gritfulAPI/internal/notification"
	"gritfulAPI/internal/scoring"
)

type EntryService struct {
	db            *pgxpool.Pool
	feed          *FeedService
	notifications *NotificationService
	log           *logger.Logger
}

func NewEntryService(db *pgxpool.Pool, feed *FeedService, notifications *NotificationService, log *logger.Logger) *EntryService {
	return &EntryService{db: db, feed: feed, notifications: notifications, log: log.With("service", "entry")}
}

// SubmitDailyEntry upserts the caller's entry for one civil date, scores it
// and recomputes the participant in the same transaction. The first
// submission time is kept on resubmission so a backfill stays late.
func (s *EntryService) SubmitDailyEntry(ctx context.Context, caller Caller, challengeID uuid.UUID, req *entry.SubmitDailyEntryRequest) (*entry.SubmitDailyEntryResponse, error) {
	var resp *entry.SubmitDailyEntryResponse
	var sc *scope
	previousStreak := 0

	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		var err error
		sc, err = loadScope(ctx, tx, caller, challengeID)
		if err != nil {
			return err
		}
		previousStreak = sc.Participant.CurrentStreak

		entryDate := sc.Today
		if req.EntryDate != "" {
			if entryDate, err = civildate.ParseCivilDate(req.EntryDate); err != nil {
				return fmt.Errorf("%w: entry_date: %v", ErrInvalidInput, err)
			}
		}
		if err := scoring.CheckDailySubmission(sc.window(), entryDate); err != nil {
			return err
		}

		score := scoring.ScoreDailyEntry(sc.Challenge.Metrics, req.Values, sc.Challenge.Bonus())
		valuesJSON, err := json.Marshal(req.Values)
		if err != nil {
			return fmt.Errorf("failed to encode values: %w", err)
		}

		e := &entry.DailyEntry{
			ParticipantID: sc.Participant.ID,
			EntryDate:     entryDate,
			Values:        req.Values,
			IsCompleted:   score.IsCompleted,
			PointsEarned:  score.PointsEarned,
			BonusPoints:   score.BonusPoints,
		}
		// submitted_at is left out of the update so a backfilled day stays late
		// after it is edited.
		err = tx.QueryRow(ctx, `
			INSERT INTO daily_entries (id, participant_id, entry_date, metric_values, is_completed, points_earned, bonus_points, submitted_at, updated_at)
			VALUES ($1, $2, $3::date, $4, $5, $6, $7, NOW(), NOW())
			ON CONFLICT (participant_id, entry_date) DO UPDATE SET
				metric_values = EXCLUDED.metric_values,
				is_completed = EXCLUDED.is_completed,
				points_earned = EXCLUDED.points_earned,
				bonus_points = EXCLUDED.bonus_points,
				updated_at = NOW()
			RETURNING id, submitted_at, updated_at`,
			uuid.New(), e.ParticipantID, entryDate.String(), valuesJSON, e.IsCompleted, e.PointsEarned, e.BonusPoints,
		).Scan(&e.ID, &e.SubmittedAt, &e.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to save daily entry: %w", err)
		}
		e.IsLate = scoring.IsLate(e.EntryDate, e.SubmittedAt, sc.Loc)

		rec, err := recomputeParticipant(ctx, tx, sc.Participant.ID, sc.Today)
		if err != nil {
			return err
		}
		resp = &entry.SubmitDailyEntryResponse{
			Entry:         e,
			TotalPoints:   rec.Totals.TotalPoints,
			CurrentStreak: rec.Streak.CurrentStreak,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterSubmit(ctx, sc, resp, previousStreak)
	return resp, nil
}

func (s *EntryService) afterSubmit(ctx context.Context, sc *scope, resp *entry.SubmitDailyEntryResponse, previousStreak int) {
	if !resp.Entry.IsCompleted {
		return
	}
	s.feed.postActivitySafe(ctx, sc.Challenge.ID, sc.UserID, feed.ActivityDailyEntry, map[string]any{
		"entry_date": resp.Entry.EntryDate.String(),
		"points":     resp.Entry.PointsEarned + resp.Entry.BonusPoints,
	})

	streak := resp.CurrentStreak
	if streak == previousStreak || !feed.IsStreakMilestone(streak) {
		return
	}
	s.feed.postActivitySafe(ctx, sc.Challenge.ID, sc.UserID, feed.ActivityStreak, map[string]any{"streak": streak})
	if s.notifications == nil {
		return
	}
	_, err := s.notifications.CreateNotification(ctx, &notification.CreateNotificationRequest{
		UserID: sc.UserID,
		Type:   notification.TypeStreakMilestone,
		Title:  sc.Challenge.Name,
		Body:   fmt.Sprintf("%d days in a row. Keep going!", streak),
		Data:   map[string]any{"challenge_id": sc.Challenge.ID.String(), "streak": streak},
	})
	if err != nil {
		s.log.Warn("Entry: failed to send streak notification", "challenge_id", sc.Challenge.ID, "error", err)
	}
}

// GetDailyEntries lists the caller's entries in [from, to], either bound
// optional, each with its late flag resolved in the caller's zone.
func (s *EntryService) GetDailyEntries(ctx context.Context, caller Caller, challengeID uuid.UUID, from, to *civil.Date) ([]*entry.DailyEntry, error) {
	sc, err := loadScope(ctx, s.db, caller, challengeID)
	if err != nil {
		return nil, err
	}
	all, err := loadDailyEntries(ctx, s.db, sc.Participant.ID)
	if err != nil {
		return nil, err
	}

	out := make([]*entry.DailyEntry, 0, len(all))
	for _, e := range all {
		if from != nil && e.EntryDate.Before(*from) {
			continue
		}
		if to != nil && e.EntryDate.After(*to) {
			continue
		}
		out = append(out, e)
	}
	markLate(out, sc.Loc)
	return out, nil
}

// GetCalendar renders one month of the caller's entries.
func (s *EntryService) GetCalendar(ctx context.Context, caller Caller, challengeID uuid.UUID, year, month int) (*calendar.CalendarResponse, error) {
	sc, err := loadScope(ctx, s.db, caller, challengeID)
	if err != nil {
		return nil, err
	}
	if year == 0 || month == 0 {
		year, month = sc.Today.Year, int(sc.Today.Month)
	}

	entries, err := loadDailyEntries(ctx, s.db, sc.Participant.ID)
	if err != nil {
		return nil, err
	}
	markLate(entries, sc.Loc)

	var end *civil.Date
	if e, ok := sc.Challenge.Schedule().EffectiveEnd(sc.Loc); ok {
		end = &e
	}
	return calendar.BuildMonth(year, month, sc.Today, sc.Challenge.StartsAt, end, entries)
}

