package runtime

import (
	"approval-notify/contract"
	"approval-notify/delivery"
	"approval-notify/domain"
	"approval-notify/domain/event"
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"
)

const welcomeMessage = "Real-time connection established"

type Set map[contract.Connection]struct{}

// Registry owns every live connection. Three views are kept in step under a
// single lock: by identity, the role of each connection and its metadata.
// No I/O ever happens while the lock is held.
type Registry struct {
	mu               sync.RWMutex
	log              *slog.Logger
	writeTimeout     time.Duration
	now              func() time.Time
	byIdentity       map[domain.Identity]Set
	roleOf           map[contract.Connection]domain.Role
	metadataOf       map[contract.Connection]domain.ConnectionMetadata
	totalConnections int
	messagesSent     uint64
}

func NewRegistry(log *slog.Logger, writeTimeout time.Duration) *Registry {
	return &Registry{
		log:          log,
		writeTimeout: writeTimeout,
		now:          func() time.Time { return time.Now().UTC() },
		byIdentity:   make(map[domain.Identity]Set),
		roleOf:       make(map[contract.Connection]domain.Role),
		metadataOf:   make(map[contract.Connection]domain.ConnectionMetadata),
	}
}

// Connect registers an accepted connection and greets it with a
// connection_established acknowledgement. A connection that is already
// registered is left untouched and false is returned.
// If the acknowledgement cannot be written the connection is evicted straight away.
func (r *Registry) Connect(ctx context.Context, conn contract.Connection, identity domain.Identity, role domain.Role) bool {
	role = role.OrDefault()
	at := r.now()

	r.mu.Lock()
	if _, ok := r.metadataOf[conn]; ok {
		r.mu.Unlock()
		r.log.Warn("Connection already registered, ignoring",
			"conn", conn.ID(), "user_id", identity, "role", role)
		return false
	}
	if _, ok := r.byIdentity[identity]; !ok {
		r.byIdentity[identity] = make(Set)
	}
	r.byIdentity[identity][conn] = struct{}{}
	r.roleOf[conn] = role
	r.metadataOf[conn] = domain.ConnectionMetadata{
		Identity:        identity,
		Role:            role,
		ConnectedAt:     at,
		LastHeartbeatAt: at,
	}
	r.totalConnections++
	total := r.totalConnections
	r.mu.Unlock()

	r.log.Info("User connected", "user_id", identity, "role", role, "conn", conn.ID(), "total_connections", total)

	payload, err := event.Encode(event.ConnectionEstablished{
		Message:  welcomeMessage,
		Identity: identity,
	}, at)
	if err != nil {
		r.log.Error("Failed to encode acknowledgement", "conn", conn.ID(), "error", err)
		return true
	}
	if err = delivery.Send(ctx, conn, payload, r.writeTimeout); err != nil {
		r.log.Warn("Acknowledgement failed, evicting connection", "conn", conn.ID(), "error", err)
		r.Settle(0, []contract.Connection{conn})
		return true
	}
	r.Settle(1, nil)
	return true
}

// Disconnect is idempotent: an unknown connection is ignored.
// It reports whether the connection was registered.
func (r *Registry) Disconnect(conn contract.Connection) bool {
	r.mu.Lock()
	metadata, removed := r.remove(conn)
	total := r.totalConnections
	r.mu.Unlock()

	if removed {
		r.log.Info("User disconnected", "user_id", metadata.Identity, "conn", conn.ID(), "total_connections", total)
	}
	return removed
}

// Settle applies the outcome of a send pass in one critical section.
// Evicted connections are closed once the lock is released, which ends
// the session still reading from them.
func (r *Registry) Settle(delivered int, failed []contract.Connection) {
	if delivered <= 0 && len(failed) == 0 {
		return
	}

	r.mu.Lock()
	if delivered > 0 {
		r.messagesSent += uint64(delivered)
	}
	evicted := make(map[contract.Connection]domain.ConnectionMetadata)
	for _, conn := range failed {
		if metadata, ok := r.remove(conn); ok {
			evicted[conn] = metadata
		}
	}
	total := r.totalConnections
	r.mu.Unlock()

	for conn, metadata := range evicted {
		r.log.Warn("Evicted dead connection", "user_id", metadata.Identity, "role", metadata.Role,
			"conn", conn.ID(), "total_connections", total)
		if err := conn.Close(); err != nil {
			r.log.Debug("Close after eviction failed", "conn", conn.ID(), "error", err)
		}
	}
}

// remove must be called with the write lock held.
func (r *Registry) remove(conn contract.Connection) (domain.ConnectionMetadata, bool) {
	metadata, ok := r.metadataOf[conn]
	if !ok {
		return domain.ConnectionMetadata{}, false
	}

	if bucket, exists := r.byIdentity[metadata.Identity]; exists {
		delete(bucket, conn)
		if len(bucket) == 0 {
			delete(r.byIdentity, metadata.Identity)
		}
	}
	delete(r.roleOf, conn)
	delete(r.metadataOf, conn)
	r.totalConnections = max(0, r.totalConnections-1)
	return metadata, true
}

// ConnectionsOf returns a copy of the identity bucket.
func (r *Registry) ConnectionsOf(identity domain.Identity) []contract.Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bucket, ok := r.byIdentity[identity]
	if !ok {
		return nil
	}
	return lo.Keys(bucket)
}

// ConnectionsWithRole returns every connection whose role matches case-insensitively.
func (r *Registry) ConnectionsWithRole(role domain.Role) []contract.Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var conns []contract.Connection
	for conn, connRole := range r.roleOf {
		if connRole.Matches(role) {
			conns = append(conns, conn)
		}
	}
	return conns
}

func (r *Registry) Connections() []contract.Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Keys(r.metadataOf)
}

// Touch records a successful heartbeat. Connections evicted in the meantime are skipped.
func (r *Registry) Touch(conns []contract.Connection, at time.Time) {
	if len(conns) == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, conn := range conns {
		if metadata, ok := r.metadataOf[conn]; ok {
			metadata.LastHeartbeatAt = at
			r.metadataOf[conn] = metadata
		}
	}
}

func (r *Registry) Metadata(conn contract.Connection) (domain.ConnectionMetadata, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	metadata, ok := r.metadataOf[conn]
	return metadata, ok
}

// Stats is taken under the read lock so it never observes a torn state.
func (r *Registry) Stats() domain.Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	distribution := make(map[domain.Role]int)
	for _, role := range r.roleOf {
		distribution[role]++
	}

	identities := lo.Keys(r.byIdentity)
	sort.Slice(identities, func(i, j int) bool { return identities[i] < identities[j] })

	return domain.Stats{
		TotalConnections: r.totalConnections,
		UniqueIdentities: len(r.byIdentity),
		MessagesSent:     r.messagesSent,
		RoleDistribution: distribution,
		ActiveIdentities: identities,
	}
}
