package runtime_test

import (
	"approval-notify/domain"
	"approval-notify/domain/event"
	"approval-notify/errors"
	"approval-notify/runtime"
	"approval-notify/runtime/workers"
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type inboxConn struct {
	mu     sync.Mutex
	inbox  []string
}

func (c *inboxConn) ID() string { return "inbox" }
func (c *inboxConn) Accept(context.Context) error { return nil }
func (c *inboxConn) Close() error { return nil }

func (c *inboxConn) ReceiveText(ctx context.Context) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func (c *inboxConn) SendText(_ context.Context, data []byte) error {
	var frame struct {
		Type string `json:"type"`
	}
	_ = json.Unmarshal(data, &frame)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inbox = append(c.inbox, frame.Type)
	return nil
}

func (c *inboxConn) received(kind string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range c.inbox {
		if k == kind {
			return true
		}
	}
	return false
}

func newOrchestrator(bufferSize int) *runtime.Orchestrator {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	return runtime.NewOrchestrator(log, workers.NewSupervisor(log, 10*time.Millisecond), nil, runtime.OrchestratorConfig{
		WriteTimeout:      time.Second,
		HeartbeatInterval: time.Hour,
		BufferSize:        bufferSize,
		PublishWorkers:    2,
	})
}

func Test_Orchestrator_Dispatch_Drops_When_Queue_Is_Full(t *testing.T) {
	orchestrator := newOrchestrator(1)
	notification := event.Notification{Message: event.Generic{Kind: "x"}, Target: domain.ToAll()}

	// Not started, so nothing drains the queue
	assert.NoError(t, orchestrator.Dispatch(notification))
	assert.ErrorIs(t, orchestrator.Dispatch(notification), errors.ErrQueueFull)
}

func Test_Orchestrator_Publishes_Dispatched_Notifications(t *testing.T) {
	req := require.New(t)
	orchestrator := newOrchestrator(16)
	conn := &inboxConn{}

	req.NoError(orchestrator.Start(context.Background()))
	defer orchestrator.Stop()

	orchestrator.Registry().Connect(context.Background(), conn, "1", "")
	req.NoError(orchestrator.Dispatch(event.Notification{
		Message: event.StatusUpdate{RequestID: 1, Status: "approved"},
		Target:  domain.ToIdentity("1"),
	}))

	req.Eventually(func() bool { return conn.received("status_update") }, time.Second, 5*time.Millisecond)
	// The acknowledgement and the status update
	req.Eventually(func() bool { return orchestrator.Registry().Stats().MessagesSent == 2 }, time.Second, 5*time.Millisecond)
}

func Test_Orchestrator_Start_Twice_Fails(t *testing.T) {
	req := require.New(t)
	orchestrator := newOrchestrator(1)

	req.NoError(orchestrator.Start(context.Background()))
	defer orchestrator.Stop()
	req.Error(orchestrator.Start(context.Background()))
}

func Test_Orchestrator_Stop_Waits_For_Workers(t *testing.T) {
	orchestrator := newOrchestrator(1)
	// Stop before Start is a no-op
	orchestrator.Stop()

	require.NoError(t, orchestrator.Start(context.Background()))
	stopped := make(chan struct{})
	go func() {
		orchestrator.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Orchestrator did not stop in time")
	}
}
