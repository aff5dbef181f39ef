package email

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusSending Status = "sending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
)

// MaxRetries is the number of retries after the first failed attempt.
const MaxRetries = 3

// retryDelays[n-1] is the wait after the n-th failed attempt.
var retryDelays = []time.Duration{5 * time.Minute, 15 * time.Minute, 45 * time.Minute}

var ErrNoRecipient = errors.New("email has no recipient")

type Message struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	ToAddress     string     `json:"to_address" db:"to_address"`
	ToName        string     `json:"to_name" db:"to_name"`
	Subject       string     `json:"subject" db:"subject"`
	TextBody      string     `json:"text_body" db:"text_body"`
	HTMLBody      string     `json:"html_body" db:"html_body"`
	Status        Status     `json:"status" db:"status"`
	Attempts      int        `json:"attempts" db:"attempts"`
	NextAttemptAt time.Time  `json:"next_attempt_at" db:"next_attempt_at"`
	LastError     *string    `json:"last_error" db:"last_error"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	SentAt        *time.Time `json:"sent_at" db:"sent_at"`
}

type EnqueueRequest struct {
	ToAddress string `json:"to_address" validate:"required,email"`
	ToName    string `json:"to_name"`
	Subject   string `json:"subject" validate:"required,max=300"`
	TextBody  string `json:"text_body" validate:"required_without=HTMLBody"`
	HTMLBody  string `json:"html_body"`
}

// Sender delivers a single message.
type Sender interface {
	Send(ctx context.Context, msg *Message) error
}

// RetryDelay returns the wait before the next attempt after attempts failures.
// ok is false once retries are exhausted.
func RetryDelay(attempts int) (time.Duration, bool) {
	if attempts < 1 || attempts > MaxRetries {
		return 0, false
	}
	return retryDelays[attempts-1], true
}

// NextAttempt decides what a failure does to a message that has now failed
// attempts times: either a new schedule time or a terminal failed status.
func NextAttempt(attempts int, now time.Time) (Status, time.Time) {
	delay, ok := RetryDelay(attempts)
	if !ok {
		return StatusFailed, now
	}
	return StatusPending, now.Add(delay)
}
