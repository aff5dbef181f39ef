package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"gritfulAPI/internal/email"
	"gritfulAPI/internal/logger"
	"gritfulAPI/internal/notification"
)

type NotificationService struct {
	db         *pgxpool.Pool
	dispatcher *NotificationDispatcher
	log        *logger.Logger
}

func NewNotificationService(db *pgxpool.Pool, push notification.PushProvider, log *logger.Logger) *NotificationService {
	s := &NotificationService{db: db, log: log.With("service", "notification")}
	s.dispatcher = NewNotificationDispatcher(s, push, log)
	return s
}

func (s *NotificationService) Close() {
	s.dispatcher.Stop()
}

// CreateNotification stores the notification and hands push delivery to the
// dispatcher. With req.Email set, an email is queued in the same transaction.
func (s *NotificationService) CreateNotification(ctx context.Context, req *notification.CreateNotificationRequest) (*notification.Notification, error) {
	dataJSON, err := json.Marshal(req.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode data: %w", err)
	}

	n := &notification.Notification{
		ID:     uuid.New(),
		UserID: req.UserID,
		Type:   req.Type,
		Title:  req.Title,
		Body:   req.Body,
		Data:   req.Data,
	}

	err = pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO notifications (id, user_id, type, title, body, data)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING created_at`,
			n.ID, n.UserID, n.Type, n.Title, n.Body, dataJSON).Scan(&n.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to create notification: %w", err)
		}
		if !req.Email {
			return nil
		}

		var to, name string
		if err := tx.QueryRow(ctx, `SELECT email, COALESCE(NULLIF(first_name, ''), username) FROM users WHERE id = $1`, req.UserID).Scan(&to, &name); err != nil {
			return fmt.Errorf("failed to load recipient: %w", err)
		}
		if to == "" {
			return nil
		}
		_, err = enqueueEmail(ctx, tx, &email.EnqueueRequest{
			ToAddress: to,
			ToName:    name,
			Subject:   n.Title,
			TextBody:  n.Body,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	tokens, err := s.deviceTokens(ctx, n.UserID)
	if err != nil {
		s.log.Warn("Notification: failed to load device tokens", "user_id", n.UserID, "error", err)
	}
	s.dispatcher.DispatchNotification(n, tokens)
	return n, nil
}

// notifyParticipants notifies everyone in the challenge except skipUser.
// Failures are logged per recipient.
func (s *NotificationService) notifyParticipants(ctx context.Context, challengeID, skipUser uuid.UUID, typ notification.NotificationType, title, body string, data map[string]any, withEmail bool) {
	rows, err := s.db.Query(ctx, `SELECT user_id FROM challenge_participants WHERE challenge_id = $1 AND user_id <> $2`, challengeID, skipUser)
	if err != nil {
		s.log.Error("Notification: failed to list participants", "challenge_id", challengeID, "error", err)
		return
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		s.log.Error("Notification: failed to scan participants", "challenge_id", challengeID, "error", err)
		return
	}

	for _, id := range ids {
		_, err := s.CreateNotification(ctx, &notification.CreateNotificationRequest{
			UserID: id, Type: typ, Title: title, Body: body, Data: data, Email: withEmail,
		})
		if err != nil {
			s.log.Warn("Notification: failed to notify participant", "challenge_id", challengeID, "user_id", id, "error", err)
		}
	}
}

func (s *NotificationService) GetNotifications(ctx context.Context, clerkID string, page, pageSize int, unreadOnly bool) (*notification.NotificationListResponse, error) {
	userID, err := userIDByClerkID(ctx, s.db, clerkID)
	if err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, type, title, body, data, read_at, created_at
		FROM notifications
		WHERE user_id = $1 AND (NOT $2 OR read_at IS NULL)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`, userID, unreadOnly, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch notifications: %w", err)
	}
	defer rows.Close()

	list := []*notification.Notification{}
	for rows.Next() {
		n := &notification.Notification{}
		var data []byte
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Body, &data, &n.ReadAt, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		if len(data) > 0 {
			if err := json.Unmarshal(data, &n.Data); err != nil {
				s.log.Warn("Notification: undecodable data", "notification_id", n.ID, "error", err)
			}
		}
		list = append(list, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate notifications: %w", err)
	}

	resp := &notification.NotificationListResponse{Notifications: list, Page: page, PageSize: pageSize}
	err = s.db.QueryRow(ctx, `
		SELECT COUNT(*) FILTER (WHERE read_at IS NULL), COUNT(*)
		FROM notifications WHERE user_id = $1`, userID).Scan(&resp.UnreadCount, &resp.TotalCount)
	if err != nil {
		return nil, fmt.Errorf("failed to count notifications: %w", err)
	}
	return resp, nil
}

func (s *NotificationService) GetUnreadCount(ctx context.Context, clerkID string) (int, error) {
	var count int
	err := s.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM notifications n
		JOIN users u ON u.id = n.user_id
		WHERE u.clerk_id = $1 AND n.read_at IS NULL`, clerkID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

func (s *NotificationService) MarkAsRead(ctx context.Context, notificationID uuid.UUID, clerkID string) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE notifications n SET read_at = NOW()
		FROM users u
		WHERE n.id = $1 AND n.user_id = u.id AND u.clerk_id = $2 AND n.read_at IS NULL`,
		notificationID, clerkID)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *NotificationService) MarkAllAsRead(ctx context.Context, clerkID string) (int64, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE notifications n SET read_at = NOW()
		FROM users u
		WHERE n.user_id = u.id AND u.clerk_id = $1 AND n.read_at IS NULL`, clerkID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *NotificationService) DeleteNotification(ctx context.Context, notificationID uuid.UUID, clerkID string) error {
	tag, err := s.db.Exec(ctx, `
		DELETE FROM notifications n
		USING users u
		WHERE n.id = $1 AND n.user_id = u.id AND u.clerk_id = $2`, notificationID, clerkID)
	if err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *NotificationService) RegisterDevice(ctx context.Context, clerkID string, req *notification.RegisterDeviceRequest) error {
	userID, err := userIDByClerkID(ctx, s.db, clerkID)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO device_tokens (user_id, token, platform)
		VALUES ($1, $2, $3)
		ON CONFLICT (token) DO UPDATE SET user_id = EXCLUDED.user_id, platform = EXCLUDED.platform, updated_at = NOW()`,
		userID, req.Token, req.Platform)
	if err != nil {
		return fmt.Errorf("failed to register device: %w", err)
	}
	return nil
}

func (s *NotificationService) deviceTokens(ctx context.Context, userID uuid.UUID) ([]notification.DeviceToken, error) {
	rows, err := s.db.Query(ctx, `SELECT token, platform FROM device_tokens WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[notification.DeviceToken])
}

func userIDByClerkID(ctx context.Context, q DBTX, clerkID string) (uuid.UUID, error) {
	var id uuid.UUID
	err := q.QueryRow(ctx, `SELECT id FROM users WHERE clerk_id = $1`, clerkID).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, ErrUserNotFound
		}
		return uuid.Nil, fmt.Errorf("failed to resolve user: %w", err)
	}
	return id, nil
}
