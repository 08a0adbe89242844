package runtime

import (
	"approval-notify/contract"
	"approval-notify/delivery"
	"approval-notify/domain"
	"approval-notify/domain/event"
	"approval-notify/errors"
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Session drives one client connection from handshake to disconnect.
type Session struct {
	log          *slog.Logger
	registry     contract.IRegistry
	writeTimeout time.Duration
}

func NewSession(log *slog.Logger, registry contract.IRegistry, writeTimeout time.Duration) *Session {
	return &Session{log: log, registry: registry, writeTimeout: writeTimeout}
}

// Serve accepts the connection, registers it and answers inbound control
// messages until the client goes away or ctx is cancelled.
// Once registered, whatever ends the session removes the connection from the
// registry and closes it. A duplicate registration is left to its first owner.
func (s *Session) Serve(ctx context.Context, conn contract.Connection, identity domain.Identity, role domain.Role) error {
	if err := conn.Accept(ctx); err != nil {
		return fmt.Errorf("handshake failed for user %s: %w", identity, err)
	}
	if !s.registry.Connect(ctx, conn, identity, role) {
		return fmt.Errorf("%w: conn %s", errors.ErrAlreadyRegistered, conn.ID())
	}
	defer func() {
		s.registry.Disconnect(conn)
		_ = conn.Close()
	}()

	for {
		text, err := conn.ReceiveText(ctx)
		if err != nil {
			if ctx.Err() == nil {
				s.log.Debug("Client gone", "user_id", identity, "conn", conn.ID(), "error", err)
			}
			return nil
		}
		if !s.handle(ctx, conn, identity, text) {
			return nil
		}
	}
}

// handle reports whether the session should keep reading.
func (s *Session) handle(ctx context.Context, conn contract.Connection, identity domain.Identity, text string) bool {
	inbound := event.ParseInbound(text)
	switch inbound.Kind {
	case event.InboundPing:
		if err := delivery.Send(ctx, conn, []byte(event.PongText), s.writeTimeout); err != nil {
			s.log.Warn("Pong failed, evicting connection", "conn", conn.ID(), "error", err)
			return false
		}
	case event.InboundSubscribe:
		// Logged only, routing is unchanged.
		s.log.Info("User subscribed", "user_id", identity, "events", inbound.Events)
	default:
	}
	return true
}
