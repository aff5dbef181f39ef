package services

import (
	"context"
	"sync"
	"time"

	"gritfulAPI/internal/logger"
	"gritfulAPI/internal/notification"
)

// NotificationDispatcher delivers pushes off the request path with a small
// worker pool and prunes old read notifications once a day.
type NotificationDispatcher struct {
	service      *NotificationService
	pushProvider notification.PushProvider
	log          *logger.Logger
	workers      int
	jobQueue     chan *DispatchJob
	stopChan     chan struct{}
	stopOnce     sync.Once
	wg           sync.WaitGroup
}

type DispatchJob struct {
	Notification *notification.Notification
	Tokens       []notification.DeviceToken
}

func NewNotificationDispatcher(service *NotificationService, push notification.PushProvider, log *logger.Logger) *NotificationDispatcher {
	d := &NotificationDispatcher{
		service:      service,
		pushProvider: push,
		log:          log.With("component", "notification_dispatcher"),
		workers:      5,
		jobQueue:     make(chan *DispatchJob, 100),
		stopChan:     make(chan struct{}),
	}
	d.startWorkers()

	d.wg.Add(1)
	go d.cleanupLoop()
	return d
}

func (d *NotificationDispatcher) startWorkers() {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
}

func (d *NotificationDispatcher) worker() {
	defer d.wg.Done()
	for {
		select {
		case job := <-d.jobQueue:
			d.processJob(job)
		case <-d.stopChan:
			return
		}
	}
}

func (d *NotificationDispatcher) processJob(job *DispatchJob) {
	if d.pushProvider == nil || len(job.Tokens) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	n := job.Notification
	data := map[string]any{"notification_id": n.ID.String(), "type": string(n.Type)}
	for k, v := range n.Data {
		data[k] = v
	}
	if err := d.pushProvider.SendPush(ctx, job.Tokens, n.Title, n.Body, data); err != nil {
		d.log.Warn("Dispatcher: push failed", "notification_id", n.ID, "user_id", n.UserID, "error", err)
	}
}

// DispatchNotification queues a push. A full queue drops the push; the
// notification row is already stored.
func (d *NotificationDispatcher) DispatchNotification(n *notification.Notification, tokens []notification.DeviceToken) {
	if len(tokens) == 0 {
		return
	}
	select {
	case d.jobQueue <- &DispatchJob{Notification: n, Tokens: tokens}:
	case <-time.After(2 * time.Second):
		d.log.Warn("Dispatcher: queue full, dropping push", "notification_id", n.ID)
	case <-d.stopChan:
	}
}

func (d *NotificationDispatcher) cleanupLoop() {
	defer d.wg.Done()
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			d.performCleanup()
		case <-d.stopChan:
			return
		}
	}
}

func (d *NotificationDispatcher) performCleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	tag, err := d.service.db.Exec(ctx, `DELETE FROM notifications WHERE read_at < NOW() - INTERVAL '90 days'`)
	if err != nil {
		d.log.Error("Dispatcher: cleanup failed", "error", err)
		return
	}
	if n := tag.RowsAffected(); n > 0 {
		d.log.Info("Dispatcher: cleaned up old read notifications", "count", n)
	}
}

func (d *NotificationDispatcher) Stop() {
	d.stopOnce.Do(func() {
		d.log.Info("Dispatcher: stopping")
		close(d.stopChan)
		d.wg.Wait()
	})
}
