// Package delivery writes encoded envelopes to live connections.
// It never touches registry state: callers snapshot their targets first
// and settle the outcome afterwards.
package delivery

import (
	"approval-notify/contract"
	"approval-notify/errors"
	"context"
	"fmt"
	"sync"
	"time"
)

// Outcome splits a fan-out into the connections that accepted the write
// and those that failed it.
type Outcome struct {
	Delivered []contract.Connection
	Failed    []contract.Connection
}

// Send writes one payload with a bounded timeout.
func Send(ctx context.Context, conn contract.Connection, payload []byte, timeout time.Duration) error {
	sendCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := conn.SendText(sendCtx, payload); err != nil {
		return fmt.Errorf("%w: conn %s: %v", errors.ErrTransport, conn.ID(), err)
	}
	return nil
}

// FanOut sends the same payload to every connection in parallel, so the
// whole pass lasts about one timeout regardless of how many clients stall.
func FanOut(ctx context.Context, conns []contract.Connection, payload []byte, timeout time.Duration) Outcome {
	var outcome Outcome
	if len(conns) == 0 {
		return outcome
	}

	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, conn := range conns {
		wg.Add(1)
		go func(c contract.Connection) {
			defer wg.Done()
			err := Send(ctx, c, payload, timeout)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				outcome.Failed = append(outcome.Failed, c)
				return
			}
			outcome.Delivered = append(outcome.Delivered, c)
		}(conn)
	}

	wg.Wait()
	return outcome
}
