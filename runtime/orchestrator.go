// Package runtime owns live connection state and the delivery of notifications.
// It orchestrates the system without containing business logic or domain rules.
package runtime

import (
	"approval-notify/contract"
	"approval-notify/domain/event"
	"approval-notify/errors"
	"approval-notify/observability"
	"approval-notify/runtime/workers"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

type OrchestratorConfig struct {
	WriteTimeout      time.Duration
	HeartbeatInterval time.Duration
	StatsInterval     time.Duration
	BufferSize        int
	PublishWorkers    int
}

// Orchestrator wires one registry to its publisher, its sessions and the
// supervised background workers (heartbeat, queued fan-out, stats).
type Orchestrator struct {
	mu            sync.Mutex
	log           *slog.Logger
	config        OrchestratorConfig
	registry      *Registry
	publisher     *Publisher
	session       *Session
	supervisor    contract.ISupervisor
	process       observability.IProcessMonitor
	notifications chan event.Notification
	cancel        context.CancelFunc
	done          chan struct{}
}

func NewOrchestrator(log *slog.Logger, supervisor contract.ISupervisor,
	process observability.IProcessMonitor, config OrchestratorConfig) *Orchestrator {
	registry := NewRegistry(log, config.WriteTimeout)
	return &Orchestrator{
		log:           log,
		config:        config,
		registry:      registry,
		publisher:     NewPublisher(log, registry, config.WriteTimeout),
		session:       NewSession(log, registry, config.WriteTimeout),
		supervisor:    supervisor,
		process:       process,
		notifications: make(chan event.Notification, max(1, config.BufferSize)),
	}
}

func (o *Orchestrator) Registry() *Registry { return o.registry }

func (o *Orchestrator) Publisher() *Publisher { return o.publisher }

func (o *Orchestrator) Session() *Session { return o.session }

// Dispatch queues a notification without blocking the caller.
// A full queue drops the notification.
func (o *Orchestrator) Dispatch(notification event.Notification) error {
	select {
	case o.notifications <- notification:
		return nil
	default:
		o.log.Warn("Notification queue full, dropping notification",
			"target", notification.Target.Kind, "type", typeOf(notification.Message))
		return fmt.Errorf("%w: capacity %d", errors.ErrQueueFull, cap(o.notifications))
	}
}

// Start prepares the workers, registers them with the supervisor and runs
// supervision in the background until ctx is done or Stop is called.
func (o *Orchestrator) Start(ctx context.Context) error {
	// 1. Preparation phase (No Lock)
	prepared := o.prepareWorkers()

	// 2. Critical Section (Short Lock)
	o.mu.Lock()
	if o.done != nil {
		o.mu.Unlock()
		return fmt.Errorf("orchestrator already started")
	}
	o.supervisor.Add(prepared...)
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	o.cancel = cancel
	o.done = done
	o.mu.Unlock()

	// 3. Execution phase (No Lock)
	o.log.Info("Starting orchestrator and all supervised workers", "workers", len(prepared))
	go func() {
		defer close(done)
		o.supervisor.Run(runCtx)
	}()
	return nil
}

func (o *Orchestrator) prepareWorkers() []contract.Worker {
	res := []contract.Worker{
		workers.NewHeartbeatWorker(o.log, o.registry, o.config.HeartbeatInterval, o.config.WriteTimeout),
	}
	for i := 0; i < max(1, o.config.PublishWorkers); i++ {
		res = append(res, workers.NewEventFanout(o.log, o.publisher, o.notifications))
	}
	if o.config.StatsInterval > 0 {
		res = append(res, workers.NewStatsReporter(o.log, o.registry, o.process, o.config.StatsInterval))
	}
	return res
}

// Stop initiates a graceful shutdown and waits for every worker to return.
// Queued notifications that were not published yet are dropped.
func (o *Orchestrator) Stop() {
	o.log.Info("Requesting orchestrator shutdown")

	o.mu.Lock()
	cancel, done := o.cancel, o.done
	o.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	o.supervisor.Stop()
	<-done
	o.log.Debug("Orchestrator stopped", "dropped_notifications", len(o.notifications))
}

func typeOf(msg event.Message) event.Type {
	if msg == nil {
		return ""
	}
	return msg.Type()
}
