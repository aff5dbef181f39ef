package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"gritfulAPI/internal/email"
)

// claimLease is how long a claimed row stays invisible to other drains. A
// worker that dies mid-send leaves the row to be picked up after the lease.
const claimLease = 15 * time.Minute

type EmailService struct {
	db *pgxpool.Pool
}

func NewEmailService(db *pgxpool.Pool) *EmailService {
	return &EmailService{db: db}
}

func (s *EmailService) Enqueue(ctx context.Context, req *email.EnqueueRequest) (uuid.UUID, error) {
	return enqueueEmail(ctx, s.db, req)
}

func enqueueEmail(ctx context.Context, q DBTX, req *email.EnqueueRequest) (uuid.UUID, error) {
	if req.ToAddress == "" {
		return uuid.Nil, email.ErrNoRecipient
	}
	id := uuid.New()
	_, err := q.Exec(ctx, `
		INSERT INTO email_queue (id, to_address, to_name, subject, text_body, html_body, status, attempts, next_attempt_at)
		VALUES ($1, $2, $3, $4, $5, $6, 'pending', 0, NOW())`,
		id, req.ToAddress, req.ToName, req.Subject, req.TextBody, req.HTMLBody)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to enqueue email: %w", err)
	}
	return id, nil
}

// ClaimDue marks up to limit due rows as sending and returns them. Rows
// locked by a concurrent drain are skipped. A row whose lease expired counts
// as one failed attempt first, and fails for good past email.MaxRetries.
func (s *EmailService) ClaimDue(ctx context.Context, limit int) ([]*email.Message, error) {
	var out []*email.Message
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			UPDATE email_queue
			SET attempts = attempts + 1,
			    status = CASE WHEN attempts + 1 > $1 THEN 'failed' ELSE 'pending' END,
			    last_error = 'send lease expired'
			WHERE status = 'sending' AND next_attempt_at <= NOW()`, email.MaxRetries)
		if err != nil {
			return fmt.Errorf("failed to release expired leases: %w", err)
		}

		rows, err := tx.Query(ctx, `
			UPDATE email_queue
			SET status = 'sending', next_attempt_at = NOW() + $2::interval
			WHERE id IN (
				SELECT id FROM email_queue
				WHERE status = 'pending' AND next_attempt_at <= NOW()
				ORDER BY next_attempt_at
				LIMIT $1
				FOR UPDATE SKIP LOCKED
			)
			RETURNING id, to_address, to_name, subject, text_body, html_body, status, attempts,
			          next_attempt_at, last_error, created_at, sent_at`,
			limit, fmt.Sprintf("%d seconds", int(claimLease.Seconds())))
		if err != nil {
			return fmt.Errorf("failed to claim emails: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			m := &email.Message{}
			if err := rows.Scan(&m.ID, &m.ToAddress, &m.ToName, &m.Subject, &m.TextBody, &m.HTMLBody, &m.Status,
				&m.Attempts, &m.NextAttemptAt, &m.LastError, &m.CreatedAt, &m.SentAt); err != nil {
				return fmt.Errorf("failed to scan email: %w", err)
			}
			out = append(out, m)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *EmailService) MarkSent(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.Exec(ctx, `
		UPDATE email_queue SET status = 'sent', sent_at = NOW(), last_error = NULL
		WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to mark email sent: %w", err)
	}
	return nil
}

func (s *EmailService) MarkFailed(ctx context.Context, id uuid.UUID, status email.Status, attempts int, nextAttemptAt time.Time, lastErr string) error {
	_, err := s.db.Exec(ctx, `
		UPDATE email_queue
		SET status = $2, attempts = $3, next_attempt_at = $4, last_error = $5
		WHERE id = $1`, id, status, attempts, nextAttemptAt, lastErr)
	if err != nil {
		return fmt.Errorf("failed to mark email failed: %w", err)
	}
	return nil
}
