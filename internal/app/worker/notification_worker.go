package worker

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"messagely/internal/domain/model"
	"messagely/internal/platform/metrics"

	"github.com/redis/go-redis/v9"
)

const (
	maxAttempts    = 3
	popTimeout     = time.Second
	claimTTL       = 24 * time.Hour
	claimKeyPrefix = "notified:"
)

// Notifier delivers a message event to its recipient.
type Notifier interface {
	Notify(ctx context.Context, event model.MessageEvent) error
}

// LogNotifier writes each event to the log. It is the default delivery
// channel until a push or mail transport exists.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, event model.MessageEvent) error {
	n.logger.InfoContext(ctx, "notification",
		"recipient", event.Recipient(),
		"type", event.Type,
		"message_id", event.MessageID,
	)
	return nil
}

// NotificationWorker drains the message event queue.
type NotificationWorker struct {
	rdb      *redis.Client
	queue    string
	notifier Notifier
	metrics  metrics.Recorder
	logger   *slog.Logger
}

func NewNotificationWorker(rdb *redis.Client, queue string, notifier Notifier, rec metrics.Recorder, logger *slog.Logger) *NotificationWorker {
	return &NotificationWorker{
		rdb:      rdb,
		queue:    queue,
		notifier: notifier,
		metrics:  rec,
		logger:   logger,
	}
}

// Start blocks until ctx is cancelled.
func (w *NotificationWorker) Start(ctx context.Context) error {
	w.logger.Info("notification worker started", "queue", w.queue)
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("notification worker stopping")
			return nil
		default:
		}

		res, err := w.rdb.BRPop(ctx, popTimeout, w.queue).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			w.logger.Error("failed to pop from event queue", "queue", w.queue, "error", err)
			sleepCtx(ctx, 5*time.Second)
			continue
		}

		// res is [queueName, value]
		if len(res) < 2 || res[1] == "" {
			w.logger.Warn("event queue returned an empty payload")
			continue
		}
		w.handle(ctx, res[1])
	}
}

func (w *NotificationWorker) handle(ctx context.Context, payload string) {
	var event model.MessageEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		w.logger.Error("dropping malformed message event", "error", err)
		return
	}

	claimed, err := w.claim(ctx, event.ID)
	if err != nil {
		w.logger.Error("failed to claim message event", "event_id", event.ID, "error", err)
		w.requeue(ctx, event)
		return
	}
	if !claimed {
		w.logger.Debug("message event already delivered", "event_id", event.ID)
		return
	}

	if err := w.notifier.Notify(ctx, event); err != nil {
		w.logger.Warn("notification failed", "event_id", event.ID, "attempt", event.Attempts+1, "error", err)
		if delErr := w.rdb.Del(ctx, claimKeyPrefix+event.ID).Err(); delErr != nil {
			w.logger.Error("failed to release event claim", "event_id", event.ID, "error", delErr)
		}
		w.requeue(ctx, event)
		return
	}

	w.metrics.RecordNotificationDelivered(string(event.Type))
}

func (w *NotificationWorker) claim(ctx context.Context, eventID string) (bool, error) {
	if eventID == "" {
		return true, nil
	}
	return w.rdb.SetNX(ctx, claimKeyPrefix+eventID, 1, claimTTL).Result()
}

// requeue pushes the event to the back of the line, or drops it once it has
// used up its attempts.
func (w *NotificationWorker) requeue(ctx context.Context, event model.MessageEvent) {
	event.Attempts++
	if event.Attempts >= maxAttempts {
		w.logger.Error("dropping message event after retries", "event_id", event.ID, "attempts", event.Attempts)
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		w.logger.Error("failed to marshal message event for requeue", "event_id", event.ID, "error", err)
		return
	}
	if err := w.rdb.LPush(ctx, w.queue, payload).Err(); err != nil {
		w.logger.Error("failed to requeue message event", "event_id", event.ID, "error", err)
	}
}

// sleepCtx waits for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
