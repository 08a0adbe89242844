package websocket

import (
	"approval-notify/errors"
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const closeTimeout = time.Second

// Conn adapts a gorilla WebSocket to contract.Connection.
// The upgrade is deferred to Accept so the session owns the handshake.
type Conn struct {
	id        string
	upgrader  *websocket.Upgrader
	w         http.ResponseWriter
	r         *http.Request
	readLimit int64

	conn *websocket.Conn

	// Write serialization
	writeMu sync.Mutex

	// State
	mu     sync.RWMutex
	closed bool
}

func NewConn(upgrader *websocket.Upgrader, w http.ResponseWriter, r *http.Request, readLimit int64) *Conn {
	return &Conn{
		id:        uuid.NewString(),
		upgrader:  upgrader,
		w:         w,
		r:         r,
		readLimit: readLimit,
	}
}

func (c *Conn) ID() string { return c.id }

// Accept completes the WebSocket handshake.
func (c *Conn) Accept(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return fmt.Errorf("%w: already closed", errors.ErrDisconnected)
	}
	if c.conn != nil {
		return nil
	}

	conn, err := c.upgrader.Upgrade(c.w, c.r, nil)
	if err != nil {
		return fmt.Errorf("%w: upgrade: %v", errors.ErrTransport, err)
	}
	if c.readLimit > 0 {
		conn.SetReadLimit(c.readLimit)
	}
	c.conn = conn
	return nil
}

// SendText writes one text frame. The write deadline comes from ctx.
func (c *Conn) SendText(ctx context.Context, data []byte) error {
	conn, err := c.live()
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	// A zero deadline means no deadline
	deadline, _ := ctx.Deadline()
	if err = conn.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrTransport, err)
	}
	if err = ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrTransport, err)
	}
	if err = conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrTransport, err)
	}
	return nil
}

// ReceiveText blocks until the next text frame. Binary frames are returned as text.
// Cancelling ctx closes the connection to unblock the read.
func (c *Conn) ReceiveText(ctx context.Context) (string, error) {
	conn, err := c.live()
	if err != nil {
		return "", err
	}

	stop := context.AfterFunc(ctx, func() { _ = c.Close() })
	defer stop()

	_, data, err := conn.ReadMessage()
	if err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrDisconnected, err)
	}
	return string(data), nil
}

// Close sends a normal closure frame and releases the socket. Safe to call twice.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return nil
	}

	// WriteControl may run concurrently with WriteMessage
	_ = conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(closeTimeout),
	)
	return conn.Close()
}

func (c *Conn) live() (*websocket.Conn, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed || c.conn == nil {
		return nil, fmt.Errorf("%w: not connected", errors.ErrDisconnected)
	}
	return c.conn, nil
}
