package workers

import (
	"approval-notify/contract"
	"approval-notify/domain/event"
	"context"
	"log/slog"
)

// EventFanout drains queued notifications and hands them to the publisher.
//
// It provides best-effort fan-out with no guarantees regarding delivery,
// durability, or retries. EventFanout is not a message broker: whatever is
// still queued when the context ends is dropped.
type EventFanout struct {
	log           *slog.Logger
	publisher     contract.IPublisher
	notifications <-chan event.Notification
}

func NewEventFanout(log *slog.Logger, publisher contract.IPublisher, notifications <-chan event.Notification) *EventFanout {
	return &EventFanout{log: log, publisher: publisher, notifications: notifications}
}

func (w *EventFanout) Run(ctx context.Context) error {
	for {
		select {
		case notification, ok := <-w.notifications:
			if !ok {
				return nil
			}
			w.Fanout(ctx, notification)
		case <-ctx.Done():
			w.log.Debug("Context done, stopping notification fan-out")
			return nil
		}
	}
}

// Fanout publishes one notification. Errors only mean the attempt was not made.
func (w *EventFanout) Fanout(ctx context.Context, notification event.Notification) {
	if err := w.publisher.Publish(ctx, notification); err != nil {
		w.log.Error("Notification dropped", "target", notification.Target.Kind, "error", err)
	}
}
