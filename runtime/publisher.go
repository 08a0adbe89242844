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

// Publisher addresses messages to connections held by the registry.
// Delivery is best-effort: failed writes evict the connection and are
// never reported to the caller. A returned error means no attempt was made.
type Publisher struct {
	log          *slog.Logger
	registry     contract.IRegistry
	writeTimeout time.Duration
	now          func() time.Time
}

func NewPublisher(log *slog.Logger, registry contract.IRegistry, writeTimeout time.Duration) *Publisher {
	return &Publisher{
		log:          log,
		registry:     registry,
		writeTimeout: writeTimeout,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// SendToConnection writes to one registered connection. A connection the
// registry does not know is skipped, so it never counts as delivered.
func (p *Publisher) SendToConnection(ctx context.Context, msg event.Message, conn contract.Connection) error {
	payload, err := p.encode(msg)
	if err != nil {
		return err
	}
	if _, ok := p.registry.Metadata(conn); !ok {
		p.log.Debug("Connection not registered, skipping", "conn", conn.ID(), "type", msg.Type())
		return nil
	}
	p.deliver(ctx, msg.Type(), payload, []contract.Connection{conn})
	return nil
}

func (p *Publisher) SendToIdentity(ctx context.Context, msg event.Message, identity domain.Identity) error {
	payload, err := p.encode(msg)
	if err != nil {
		return err
	}
	conns := p.registry.ConnectionsOf(identity)
	if len(conns) == 0 {
		p.log.Debug("No active connections for user", "user_id", identity, "type", msg.Type())
		return nil
	}
	if sent := p.deliver(ctx, msg.Type(), payload, conns); sent > 0 {
		p.log.Debug("Sent message to user", "user_id", identity, "type", msg.Type(), "connections", sent)
	}
	return nil
}

func (p *Publisher) SendToRole(ctx context.Context, msg event.Message, role domain.Role) error {
	payload, err := p.encode(msg)
	if err != nil {
		return err
	}
	sent := p.deliver(ctx, msg.Type(), payload, p.registry.ConnectionsWithRole(role))
	p.log.Info("Sent message to role", "role", role, "type", msg.Type(), "connections", sent)
	return nil
}

func (p *Publisher) Broadcast(ctx context.Context, msg event.Message) error {
	payload, err := p.encode(msg)
	if err != nil {
		return err
	}
	sent := p.deliver(ctx, msg.Type(), payload, p.registry.Connections())
	p.log.Info("Broadcast message", "type", msg.Type(), "connections", sent)
	return nil
}

// Publish routes a notification according to its target kind.
func (p *Publisher) Publish(ctx context.Context, notification event.Notification) error {
	target := notification.Target
	switch target.Kind {
	case domain.TargetIdentity:
		return p.SendToIdentity(ctx, notification.Message, target.Identity)
	case domain.TargetRole:
		return p.SendToRole(ctx, notification.Message, target.Role)
	case domain.TargetBroadcast:
		return p.Broadcast(ctx, notification.Message)
	default:
		return fmt.Errorf("%w: kind %q", errors.ErrInvalidTarget, target.Kind)
	}
}

// encode runs once per publish call so every recipient shares the same timestamp.
func (p *Publisher) encode(msg event.Message) ([]byte, error) {
	payload, err := event.Encode(msg, p.now())
	if err != nil {
		p.log.Error("Message not published", "error", err)
		return nil, err
	}
	return payload, nil
}

// deliver sends to the snapshot without holding the registry lock, then
// settles delivered count and evictions in one step.
func (p *Publisher) deliver(ctx context.Context, kind event.Type, payload []byte, conns []contract.Connection) int {
	if len(conns) == 0 {
		return 0
	}

	outcome := delivery.FanOut(ctx, conns, payload, p.writeTimeout)
	for _, conn := range outcome.Failed {
		p.log.Warn("Delivery failed, evicting connection", "conn", conn.ID(), "type", kind)
	}
	p.registry.Settle(len(outcome.Delivered), outcome.Failed)
	return len(outcome.Delivered)
}
