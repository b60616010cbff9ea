// Package dispatch hands stored notifications to the delivery queue.
//
// Notifications are written inside the swipe transaction and picked up here
// afterwards, so a broker outage never blocks or rolls back a swipe.
// Delivery is at least once: a crash between publish and MarkDelivered
// resends the batch.
package dispatch

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/oggyb/birdie/internal/app"
	"github.com/oggyb/birdie/internal/db"
	svcErr "github.com/oggyb/birdie/internal/errors"
	"github.com/oggyb/birdie/internal/repository"
)

// Publisher sends one keyed event.
type Publisher interface {
	Send(ctx context.Context, key, value []byte) error
}

// Event is the payload published per notification.
type Event struct {
	NotificationID   uint64 `json:"notification_id"`
	UserID           uint64 `json:"user_id"`
	RelatedUserID    uint64 `json:"related_user_id"`
	NotificationType string `json:"notification_type"`
	Message          string `json:"message"`
	CreatedAtUnix    int64  `json:"created_at_unix"`
}

// Dispatcher polls undelivered notifications on an interval.
type Dispatcher struct {
	repo      *repository.NotificationRepository
	pub       Publisher
	logger    *slog.Logger
	interval  time.Duration
	batchSize int

	mu    sync.Mutex
	sched gocron.Scheduler
}

// New creates a Dispatcher. Non-positive interval or batchSize fall back to
// 5s and 100.
func New(appCtx *app.AppContext, pub Publisher, interval time.Duration, batchSize int) *Dispatcher {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Dispatcher{
		repo:      repository.NewNotificationRepository(appCtx.DB),
		pub:       pub,
		logger:    appCtx.Logger.With("component", "dispatch"),
		interval:  interval,
		batchSize: batchSize,
	}
}

// RunOnce publishes one batch and returns how many notifications were
// marked delivered. It stops at the first publish failure; everything
// published before it is still marked.
func (d *Dispatcher) RunOnce(ctx context.Context) (int, error) {
	rows, err := d.repo.ListUndelivered(ctx, d.batchSize)
	if err != nil {
		return 0, svcErr.Wrap(svcErr.KindTransient, "list undelivered notifications", err)
	}

	sent := make([]uint64, 0, len(rows))
	var pubErr error
	for _, n := range rows {
		if err := d.publish(ctx, n); err != nil {
			pubErr = svcErr.Wrap(svcErr.KindTransient, "publish notification", err)
			break
		}
		sent = append(sent, n.ID)
	}

	if err := d.repo.MarkDelivered(ctx, sent, time.Now().UTC()); err != nil {
		return 0, svcErr.Wrap(svcErr.KindTransient, "mark notifications delivered", err)
	}
	return len(sent), pubErr
}

func (d *Dispatcher) publish(ctx context.Context, n db.Notification) error {
	body, err := json.Marshal(Event{
		NotificationID:   n.ID,
		UserID:           n.UserID,
		RelatedUserID:    n.RelatedUserID,
		NotificationType: string(n.NotificationType),
		Message:          n.Message,
		CreatedAtUnix:    n.CreatedAt.UnixMilli(),
	})
	if err != nil {
		return err
	}
	return d.pub.Send(ctx, []byte(strconv.FormatUint(n.UserID, 10)), body)
}

// Start schedules RunOnce every interval until Stop is called.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.sched != nil {
		return nil
	}

	sched, err := gocron.NewScheduler()
	if err != nil {
		return err
	}
	_, err = sched.NewJob(
		gocron.DurationJob(d.interval),
		gocron.NewTask(func() {
			n, err := d.RunOnce(ctx)
			switch {
			case svcErr.IsTransient(err):
				d.logger.Warn("notification dispatch interrupted, retrying next tick", "delivered", n, "error", err)
				return
			case err != nil:
				d.logger.Error("notification dispatch failed", "delivered", n, "error", err)
				return
			}
			if n > 0 {
				d.logger.Debug("notifications dispatched", "count", n)
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return err
	}

	sched.Start()
	d.sched = sched
	d.logger.Info("notification dispatcher started", "interval", d.interval, "batch", d.batchSize)
	return nil
}

// Stop waits for a running batch and shuts the scheduler down.
func (d *Dispatcher) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.sched == nil {
		return nil
	}
	err := d.sched.Shutdown()
	d.sched = nil
	return err
}
