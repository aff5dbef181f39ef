package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"gritfulAPI/internal/feed"
	"gritfulAPI/internal/logger"
	"gritfulAPI/internal/notification"
)

const (
	defaultFeedLimit = 50
	maxFeedLimit     = 200
)

type FeedService struct {
	db            *pgxpool.Pool
	notifications *NotificationService
	log           *logger.Logger
}

func NewFeedService(db *pgxpool.Pool, notifications *NotificationService, log *logger.Logger) *FeedService {
	return &FeedService{db: db, notifications: notifications, log: log.With("service", "feed")}
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultFeedLimit
	}
	if limit > maxFeedLimit {
		return maxFeedLimit
	}
	return limit
}

// PostActivity appends to the challenge feed. Feed rows are never updated.
func (s *FeedService) PostActivity(ctx context.Context, challengeID, userID uuid.UUID, kind feed.ActivityKind, payload map[string]any) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO activity_feed (id, challenge_id, user_id, kind, payload)
		VALUES ($1, $2, $3, $4, $5)`,
		uuid.New(), challengeID, userID, kind, payloadJSON)
	if err != nil {
		return fmt.Errorf("failed to post activity: %w", err)
	}
	return nil
}

// postActivitySafe is used after a mutation has already committed; a feed
// failure is logged and does not fail the request.
func (s *FeedService) postActivitySafe(ctx context.Context, challengeID, userID uuid.UUID, kind feed.ActivityKind, payload map[string]any) {
	if s == nil {
		return
	}
	if err := s.PostActivity(ctx, challengeID, userID, kind, payload); err != nil {
		s.log.Warn("Feed: failed to post activity", "challenge_id", challengeID, "kind", kind, "error", err)
	}
}

func (s *FeedService) ListActivity(ctx context.Context, caller Caller, challengeID uuid.UUID, limit int, before *time.Time) ([]*feed.ActivityFeedItem, error) {
	if _, err := loadScope(ctx, s.db, caller, challengeID); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, `
		SELECT af.id, af.challenge_id, af.user_id, u.username, NULLIF(u.image_url, ''), af.kind, af.payload, af.created_at
		FROM activity_feed af
		JOIN users u ON u.id = af.user_id
		WHERE af.challenge_id = $1
		  AND ($2::timestamptz IS NULL OR af.created_at < $2)
		ORDER BY af.created_at DESC
		LIMIT $3`, challengeID, before, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch activity: %w", err)
	}
	defer rows.Close()

	items := []*feed.ActivityFeedItem{}
	for rows.Next() {
		item := &feed.ActivityFeedItem{}
		var payload []byte
		if err := rows.Scan(&item.ID, &item.ChallengeID, &item.UserID, &item.Username, &item.ImageURL, &item.Kind, &payload, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &item.Payload); err != nil {
				s.log.Warn("Feed: undecodable activity payload", "activity_id", item.ID, "error", err)
			}
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// PostMessage lets any participant write to the challenge board. Only the
// creator may post announcements; announcements also notify every other
// participant.
func (s *FeedService) PostMessage(ctx context.Context, caller Caller, challengeID uuid.UUID, req *feed.PostMessageRequest) (*feed.ChallengeMessage, error) {
	sc, err := loadScope(ctx, s.db, caller, challengeID)
	if err != nil {
		return nil, err
	}
	if req.IsAnnouncement && sc.Challenge.CreatorID != sc.UserID {
		return nil, ErrForbidden
	}

	msg := &feed.ChallengeMessage{
		ID:             uuid.New(),
		ChallengeID:    challengeID,
		SenderID:       sc.UserID,
		SenderUsername: sc.Username,
		Body:           req.Body,
		IsAnnouncement: req.IsAnnouncement,
	}
	err = s.db.QueryRow(ctx, `
		INSERT INTO challenge_messages (id, challenge_id, sender_id, body, is_announcement)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`,
		msg.ID, msg.ChallengeID, msg.SenderID, msg.Body, msg.IsAnnouncement).Scan(&msg.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to post message: %w", err)
	}

	if msg.IsAnnouncement && s.notifications != nil {
		s.notifications.notifyParticipants(ctx, challengeID, sc.UserID, notification.TypeChallengeMessage,
			sc.Challenge.Name, msg.Body,
			map[string]any{"challenge_id": challengeID.String(), "message_id": msg.ID.String()}, false)
	}
	return msg, nil
}

func (s *FeedService) ListMessages(ctx context.Context, caller Caller, challengeID uuid.UUID, limit int, before *time.Time) ([]*feed.ChallengeMessage, error) {
	if _, err := loadScope(ctx, s.db, caller, challengeID); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, `
		SELECT m.id, m.challenge_id, m.sender_id, u.username, m.body, m.is_announcement, m.created_at
		FROM challenge_messages m
		JOIN users u ON u.id = m.sender_id
		WHERE m.challenge_id = $1
		  AND ($2::timestamptz IS NULL OR m.created_at < $2)
		ORDER BY m.created_at DESC
		LIMIT $3`, challengeID, before, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}
	defer rows.Close()

	msgs := []*feed.ChallengeMessage{}
	for rows.Next() {
		m := &feed.ChallengeMessage{}
		if err := rows.Scan(&m.ID, &m.ChallengeID, &m.SenderID, &m.SenderUsername, &m.Body, &m.IsAnnouncement, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}
