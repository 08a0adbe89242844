package workers

import (
	"approval-notify/contract"
	"approval-notify/delivery"
	"approval-notify/domain/event"
	"context"
	"log/slog"
	"time"
)

const DefaultHeartbeatInterval = 30 * time.Second

// HeartbeatWorker pings every registered connection on a fixed
// period and evicts the ones that cannot be written to.
type HeartbeatWorker struct {
	log          *slog.Logger
	registry     contract.IRegistry
	interval     time.Duration
	writeTimeout time.Duration
	now          func() time.Time
}

func NewHeartbeatWorker(log *slog.Logger, registry contract.IRegistry, interval, writeTimeout time.Duration) *HeartbeatWorker {
	if interval <= 0 {
		interval = DefaultHeartbeatInterval
	}
	return &HeartbeatWorker{
		log:          log,
		registry:     registry,
		interval:     interval,
		writeTimeout: writeTimeout,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Run sweeps every interval until ctx is done. A failing sweep is logged and
// the next one happens on schedule.
func (w *HeartbeatWorker) Run(ctx context.Context) error {
	w.log.Info("Starting heartbeat worker", "interval", w.interval)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

// Sweep runs one ping pass. Only connections present when the sweep starts
// are pinged, so later registrations cannot be evicted by it.
func (w *HeartbeatWorker) Sweep(ctx context.Context) {
	at := w.now()
	conns := w.registry.Connections()
	if len(conns) == 0 {
		return
	}

	payload, err := event.Encode(event.Ping{}, at)
	if err != nil {
		w.log.Error("Failed to encode ping", "error", err)
		return
	}

	outcome := delivery.FanOut(ctx, conns, payload, w.writeTimeout)
	w.registry.Touch(outcome.Delivered, at)
	w.registry.Settle(0, outcome.Failed)

	if len(outcome.Failed) > 0 {
		w.log.Warn("Heartbeat evicted dead connections", "pinged", len(conns), "evicted", len(outcome.Failed))
	} else {
		w.log.Debug("Heartbeat sweep done", "pinged", len(conns))
	}
}
