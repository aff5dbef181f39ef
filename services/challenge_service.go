package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"gritfulAPI/internal/challenge"
	"gritfulAPI/internal/civildate"
	"gritfulAPI/internal/feed"
	"gritfulAPI/internal/logger"
	"gritfulAPI/internal/notification"
	"gritfulAPI/internal/scoring"
)

const uniqueViolation = "23505"

type ChallengeService struct {
	db            *pgxpool.Pool
	feed          *FeedService
	notifications *NotificationService
	log           *logger.Logger
}

func NewChallengeService(db *pgxpool.Pool, feed *FeedService, notifications *NotificationService, log *logger.Logger) *ChallengeService {
	return &ChallengeService{db: db, feed: feed, notifications: notifications, log: log.With("service", "challenge")}
}

func (s *ChallengeService) withState(c *challenge.Challenge, userID uuid.UUID, loc *time.Location, participantCount int, isParticipant bool) *challenge.ChallengeWithState {
	cs := &challenge.ChallengeWithState{
		Challenge:        c,
		State:            challenge.GetState(c.Schedule(), time.Now(), loc),
		ParticipantCount: participantCount,
		IsCreator:        c.CreatorID == userID,
		IsParticipant:    isParticipant,
	}
	if !isParticipant {
		cs.InviteCode = ""
	}
	return cs
}

// CreateChallenge validates the metric set, derives ends_at from the
// duration and enrolls the creator as the first participant.
func (s *ChallengeService) CreateChallenge(ctx context.Context, caller Caller, req *challenge.CreateChallengeRequest) (*challenge.ChallengeWithState, error) {
	info, err := resolveCaller(ctx, s.db, caller)
	if err != nil {
		return nil, err
	}
	if err := scoring.ValidateTasks(req.Metrics); err != nil {
		return nil, err
	}
	startsAt, err := civildate.ParseCivilDate(req.StartsAt)
	if err != nil {
		return nil, fmt.Errorf("%w: starts_at: %v", ErrInvalidInput, err)
	}

	c := &challenge.Challenge{
		ID:              uuid.New(),
		CreatorID:       info.UserID,
		Name:            req.Name,
		Description:     req.Description,
		StartsAt:        startsAt,
		GracePeriodDays: challenge.DefaultGracePeriodDays,
		Metrics:         req.Metrics,
		BonusEnabled:    req.BonusEnabled,
		BonusPoints:     req.BonusPoints,
		IsPublic:        req.IsPublic,
	}
	if req.DurationDays != nil {
		end := challenge.EndsFromDuration(startsAt, *req.DurationDays)
		c.EndsAt = &end
	}
	if req.GracePeriodDays != nil {
		c.GracePeriodDays = *req.GracePeriodDays
	}

	metricsJSON, err := json.Marshal(c.Metrics)
	if err != nil {
		return nil, fmt.Errorf("failed to encode metrics: %w", err)
	}
	var endsAt *string
	if c.EndsAt != nil {
		e := c.EndsAt.String()
		endsAt = &e
	}

	for attempt := 0; ; attempt++ {
		if c.InviteCode, err = challenge.NewInviteCode(); err != nil {
			return nil, fmt.Errorf("failed to generate invite code: %w", err)
		}
		err = pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
			err := tx.QueryRow(ctx, `
				INSERT INTO challenges (id, creator_id, name, description, invite_code, starts_at, ends_at,
					grace_period_days, metrics, bonus_enabled, bonus_points, is_public)
				VALUES ($1, $2, $3, $4, $5, $6::date, $7::date, $8, $9, $10, $11, $12)
				RETURNING created_at, updated_at`,
				c.ID, c.CreatorID, c.Name, c.Description, c.InviteCode, c.StartsAt.String(), endsAt,
				c.GracePeriodDays, metricsJSON, c.BonusEnabled, c.BonusPoints, c.IsPublic,
			).Scan(&c.CreatedAt, &c.UpdatedAt)
			if err != nil {
				return err
			}
			_, err = tx.Exec(ctx, `
				INSERT INTO challenge_participants (id, challenge_id, user_id)
				VALUES ($1, $2, $3)`, uuid.New(), c.ID, c.CreatorID)
			return err
		})
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == "challenges_invite_code_key" && attempt < 3 {
			continue
		}
		break
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create challenge: %w", err)
	}

	s.log.Info("Challenge: created", "challenge_id", c.ID, "user_id", info.UserID)
	s.feed.postActivitySafe(ctx, c.ID, info.UserID, feed.ActivityJoined, map[string]any{"creator": true})
	return s.withState(c, info.UserID, info.Loc, 1, true), nil
}

// GetChallenge is visible to participants and, for public challenges, to
// everyone.
func (s *ChallengeService) GetChallenge(ctx context.Context, caller Caller, id uuid.UUID) (*challenge.ChallengeWithState, error) {
	info, err := resolveCaller(ctx, s.db, caller)
	if err != nil {
		return nil, err
	}
	c, err := loadChallenge(ctx, s.db, id)
	if err != nil {
		return nil, err
	}

	var count int
	var isParticipant bool
	err = s.db.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(BOOL_OR(user_id = $2), false)
		FROM challenge_participants WHERE challenge_id = $1`, id, info.UserID).Scan(&count, &isParticipant)
	if err != nil {
		return nil, fmt.Errorf("failed to count participants: %w", err)
	}
	if !isParticipant && !c.IsPublic {
		return nil, ErrNotFound
	}
	return s.withState(c, info.UserID, info.Loc, count, isParticipant), nil
}

// ListChallenges returns the caller's challenges whose state belongs to view,
// newest start first.
func (s *ChallengeService) ListChallenges(ctx context.Context, caller Caller, view challenge.ListView) ([]*challenge.ChallengeWithState, error) {
	info, err := resolveCaller(ctx, s.db, caller)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, `
		SELECT c.id, c.creator_id, c.name, c.description, c.invite_code, c.starts_at, c.ends_at, c.ended_at,
			c.grace_period_days, c.metrics, c.bonus_enabled, c.bonus_points, c.is_public, c.created_at, c.updated_at,
			(SELECT COUNT(*) FROM challenge_participants x WHERE x.challenge_id = c.id)
		FROM challenges c
		JOIN challenge_participants cp ON cp.challenge_id = c.id
		WHERE cp.user_id = $1`, info.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list challenges: %w", err)
	}
	defer rows.Close()

	out := []*challenge.ChallengeWithState{}
	for rows.Next() {
		var count int
		c, err := scanChallenge(countingRow{rows, &count})
		if err != nil {
			return nil, fmt.Errorf("failed to scan challenge: %w", err)
		}
		cs := s.withState(c, info.UserID, info.Loc, count, true)
		if challenge.InView(cs.State.State, view) {
			out = append(out, cs)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate challenges: %w", err)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].StartsAt.After(out[j].StartsAt) })
	return out, nil
}

// countingRow lets scanChallenge read a row that carries one extra trailing
// count column.
type countingRow struct {
	pgx.Row
	count *int
}

func (r countingRow) Scan(dest ...any) error {
	return r.Row.Scan(append(dest, r.count)...)
}

// JoinChallenge enrolls the caller by invite code, or by id for public
// challenges. Archived challenges cannot be joined.
func (s *ChallengeService) JoinChallenge(ctx context.Context, caller Caller, req *challenge.JoinChallengeRequest) (*challenge.ChallengeWithState, error) {
	info, err := resolveCaller(ctx, s.db, caller)
	if err != nil {
		return nil, err
	}

	var c *challenge.Challenge
	switch {
	case req.InviteCode != "":
		c, err = scanChallenge(s.db.QueryRow(ctx, `SELECT `+challengeColumns+` FROM challenges WHERE invite_code = $1`,
			challenge.NormalizeInviteCode(req.InviteCode)))
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
	case req.ChallengeID != nil:
		c, err = loadChallenge(ctx, s.db, *req.ChallengeID)
		if err == nil && !c.IsPublic {
			return nil, ErrNotFound
		}
	default:
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	state := challenge.GetState(c.Schedule(), time.Now(), info.Loc)
	if state.State == challenge.StateArchived {
		return nil, scoring.ErrChallengeEnded
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO challenge_participants (id, challenge_id, user_id)
		VALUES ($1, $2, $3)`, uuid.New(), c.ID, info.UserID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, ErrAlreadyParticipant
		}
		return nil, fmt.Errorf("failed to join challenge: %w", err)
	}

	s.log.Info("Challenge: joined", "challenge_id", c.ID, "user_id", info.UserID)
	s.feed.postActivitySafe(ctx, c.ID, info.UserID, feed.ActivityJoined, nil)
	if s.notifications != nil && c.CreatorID != info.UserID {
		_, err := s.notifications.CreateNotification(ctx, &notification.CreateNotificationRequest{
			UserID: c.CreatorID,
			Type:   notification.TypeChallengeJoined,
			Title:  c.Name,
			Body:   info.Username + " joined your challenge",
			Data:   map[string]any{"challenge_id": c.ID.String(), "user_id": info.UserID.String()},
		})
		if err != nil {
			s.log.Warn("Challenge: failed to notify creator", "challenge_id", c.ID, "error", err)
		}
	}
	return s.GetChallenge(ctx, caller, c.ID)
}

// LeaveChallenge removes the caller's participation together with every
// entry and completion. The creator cannot leave.
func (s *ChallengeService) LeaveChallenge(ctx context.Context, caller Caller, id uuid.UUID) error {
	sc, err := loadScope(ctx, s.db, caller, id)
	if err != nil {
		return err
	}
	if sc.Challenge.CreatorID == sc.UserID {
		return ErrForbidden
	}

	if _, err := s.db.Exec(ctx, `DELETE FROM challenge_participants WHERE id = $1`, sc.Participant.ID); err != nil {
		return fmt.Errorf("failed to leave challenge: %w", err)
	}
	s.feed.postActivitySafe(ctx, id, sc.UserID, feed.ActivityLeft, nil)
	return nil
}

// EndChallenge stamps ended_at. From then on the effective end is the
// civil date of ended_at and the grace window counts from it.
func (s *ChallengeService) EndChallenge(ctx context.Context, caller Caller, id uuid.UUID) (*challenge.ChallengeWithState, error) {
	info, err := resolveCaller(ctx, s.db, caller)
	if err != nil {
		return nil, err
	}
	c, err := loadChallenge(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if c.CreatorID != info.UserID {
		return nil, ErrForbidden
	}
	today := civildate.TodayAt(time.Now(), info.Loc)
	if !c.Schedule().CanEnd(today, info.Loc) {
		return nil, scoring.ErrChallengeEnded
	}

	var endedAt time.Time
	err = s.db.QueryRow(ctx, `
		UPDATE challenges SET ended_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND ended_at IS NULL AND (ends_at IS NULL OR ends_at >= $2::date)
		RETURNING ended_at`, id, today.String()).Scan(&endedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, scoring.ErrChallengeEnded
		}
		return nil, fmt.Errorf("failed to end challenge: %w", err)
	}
	c.EndedAt = &endedAt

	s.log.Info("Challenge: ended", "challenge_id", id, "user_id", info.UserID)
	s.feed.postActivitySafe(ctx, id, info.UserID, feed.ActivityChallengeEnded, nil)

	state := challenge.GetState(c.Schedule(), time.Now(), info.Loc)
	body := "The challenge has ended."
	if state.GracePeriodEndsAt != nil {
		body = fmt.Sprintf("The challenge has ended. You can still log missed days until %s.", state.GracePeriodEndsAt.String())
	}
	if s.notifications != nil {
		s.notifications.notifyParticipants(ctx, id, info.UserID, notification.TypeChallengeEnded, c.Name, body,
			map[string]any{"challenge_id": id.String()}, true)
	}

	return s.GetChallenge(ctx, caller, id)
}
