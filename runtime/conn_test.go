package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
)

// recordingConn keeps every frame written to it. Once failing is set,
// writes return an error instead. Reads block until ctx is done or the
// connection is closed.
type recordingConn struct {
	id        string
	mu        sync.Mutex
	frames    [][]byte
	failing   atomic.Bool
	closed    atomic.Bool
	closeOnce sync.Once
	done      chan struct{}
}

func newRecordingConn(id string) *recordingConn {
	return &recordingConn{id: id, done: make(chan struct{})}
}

func (c *recordingConn) ID() string { return c.id }

func (c *recordingConn) Accept(context.Context) error { return nil }

func (c *recordingConn) SendText(_ context.Context, data []byte) error {
	if c.failing.Load() {
		return fmt.Errorf("connection %s reset", c.id)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, append([]byte(nil), data...))
	return nil
}

func (c *recordingConn) ReceiveText(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-c.done:
		return "", fmt.Errorf("connection %s closed", c.id)
	}
}

func (c *recordingConn) Close() error {
	c.closed.Store(true)
	c.closeOnce.Do(func() { close(c.done) })
	return nil
}

func (c *recordingConn) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.frames)
}

// last decodes the latest frame as a JSON object.
func (c *recordingConn) last() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.frames) == 0 {
		return nil
	}
	var frame map[string]any
	if err := json.Unmarshal(c.frames[len(c.frames)-1], &frame); err != nil {
		return map[string]any{"raw": string(c.frames[len(c.frames)-1])}
	}
	return frame
}

func (c *recordingConn) types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	res := make([]string, 0, len(c.frames))
	for _, raw := range c.frames {
		var frame map[string]any
		if err := json.Unmarshal(raw, &frame); err != nil {
			res = append(res, string(raw))
			continue
		}
		kind, _ := frame["type"].(string)
		res = append(res, kind)
	}
	return res
}
