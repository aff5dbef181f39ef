package workers

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"gritfulAPI/internal/email"
	"gritfulAPI/internal/logger"
)

// EmailQueue is the persistence side of the email drain.
type EmailQueue interface {
	ClaimDue(ctx context.Context, limit int) ([]*email.Message, error)
	MarkSent(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, status email.Status, attempts int, nextAttemptAt time.Time, lastErr string) error
}

// DrainResult summarizes one pass over the queue.
type DrainResult struct {
	Claimed  int `json:"claimed"`
	Sent     int `json:"sent"`
	Retrying int `json:"retrying"`
	Failed   int `json:"failed"`
}

type EmailWorker struct {
	queue     EmailQueue
	sender    email.Sender
	log       *logger.Logger
	batchSize int
	now       func() time.Time

	// OnResult, when set, observes every send outcome ("sent", "retry", "failed").
	OnResult func(outcome string)

	// one drain at a time per process; SKIP LOCKED covers other processes
	drainMu  sync.Mutex
	stopChan chan struct{}
	wg       sync.WaitGroup
}

func NewEmailWorker(queue EmailQueue, sender email.Sender, log *logger.Logger, batchSize int) *EmailWorker {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &EmailWorker{
		queue:     queue,
		sender:    sender,
		log:       log.With("worker", "email"),
		batchSize: batchSize,
		now:       time.Now,
		stopChan:  make(chan struct{}),
	}
}

// Drain claims at most one batch of due messages and tries to send each.
func (w *EmailWorker) Drain(ctx context.Context) (DrainResult, error) {
	w.drainMu.Lock()
	defer w.drainMu.Unlock()

	var res DrainResult
	msgs, err := w.queue.ClaimDue(ctx, w.batchSize)
	if err != nil {
		return res, err
	}
	res.Claimed = len(msgs)

	for _, msg := range msgs {
		sendErr := w.sender.Send(ctx, msg)
		if sendErr == nil {
			if err := w.queue.MarkSent(ctx, msg.ID); err != nil {
				w.log.Error("Email: failed to mark sent", "email_id", msg.ID, "error", err)
			}
			res.Sent++
			w.observe("sent")
			continue
		}

		attempts := msg.Attempts + 1
		status, next := email.NextAttempt(attempts, w.now())
		if status == email.StatusFailed {
			res.Failed++
			w.observe("failed")
			w.log.Warn("Email: giving up", "email_id", msg.ID, "attempts", attempts, "error", sendErr)
		} else {
			res.Retrying++
			w.observe("retry")
			w.log.Info("Email: send failed, retry scheduled", "email_id", msg.ID, "attempts", attempts, "next_attempt_at", next, "error", sendErr)
		}
		if err := w.queue.MarkFailed(ctx, msg.ID, status, attempts, next, sendErr.Error()); err != nil {
			w.log.Error("Email: failed to record failure", "email_id", msg.ID, "error", err)
		}
	}

	if res.Claimed > 0 {
		w.log.Info("Email: drain finished", "claimed", res.Claimed, "sent", res.Sent, "retrying", res.Retrying, "failed", res.Failed)
	}
	return res, nil
}

func (w *EmailWorker) observe(outcome string) {
	if w.OnResult != nil {
		w.OnResult(outcome)
	}
}

// Start drains the queue every interval until Stop is called.
func (w *EmailWorker) Start(interval time.Duration) {
	if interval <= 0 {
		w.log.Info("Email: poller disabled, relying on cron endpoint")
		return
	}
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), interval)
				if _, err := w.Drain(ctx); err != nil {
					w.log.Error("Email: drain failed", "error", err)
				}
				cancel()
			case <-w.stopChan:
				return
			}
		}
	}()
}

func (w *EmailWorker) Stop() {
	close(w.stopChan)
	w.wg.Wait()
}
