package email

import (
	"context"
	"sync"

	"gritfulAPI/internal/logger"
)

// ConsoleSender logs messages instead of delivering them. Used when no
// SendGrid key is configured.
type ConsoleSender struct {
	log *logger.Logger

	mu   sync.Mutex
	sent []Message
}

var _ Sender = (*ConsoleSender)(nil)

func NewConsoleSender(log *logger.Logger) *ConsoleSender {
	return &ConsoleSender{log: log.With("sender", "console")}
}

func (s *ConsoleSender) Send(ctx context.Context, msg *Message) error {
	if msg.ToAddress == "" {
		return ErrNoRecipient
	}
	s.log.Info("Email: would send",
		"to", msg.ToAddress,
		"subject", msg.Subject,
		"text", msg.TextBody,
	)
	s.mu.Lock()
	s.sent = append(s.sent, *msg)
	s.mu.Unlock()
	return nil
}

func (s *ConsoleSender) Sent() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.sent))
	copy(out, s.sent)
	return out
}
