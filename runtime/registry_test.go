package runtime

import (
	"approval-notify/contract"
	"approval-notify/domain"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func newTestRegistry() *Registry {
	return NewRegistry(logs.GetLoggerFromLevel(slog.LevelDebug), time.Second)
}

func TestRegistry_Connect_Registers_And_Acknowledges(t *testing.T) {
	req := require.New(t)
	registry := newTestRegistry()
	conn := newRecordingConn("a")

	// When a manager connects
	req.True(registry.Connect(context.Background(), conn, "7", domain.RoleManager))

	// Then the three views agree
	req.Equal([]contract.Connection{conn}, registry.ConnectionsOf("7"))
	req.Equal([]contract.Connection{conn}, registry.ConnectionsWithRole(domain.RoleManager))
	metadata, ok := registry.Metadata(conn)
	req.True(ok)
	req.Equal(domain.Identity("7"), metadata.Identity)
	req.Equal(metadata.ConnectedAt, metadata.LastHeartbeatAt)

	// And the client received its acknowledgement
	frame := conn.last()
	req.Equal("connection_established", frame["type"])
	req.Equal("7", frame["user_id"])
	req.Equal("Real-time connection established", frame["message"])
	req.NotEmpty(frame["timestamp"])

	stats := registry.Stats()
	req.Equal(1, stats.TotalConnections)
	req.Equal(uint64(1), stats.MessagesSent)
}

func TestRegistry_Connect_Applies_Default_Role(t *testing.T) {
	req := require.New(t)
	registry := newTestRegistry()
	conn := newRecordingConn("a")

	registry.Connect(context.Background(), conn, "1", "")

	req.Equal(map[domain.Role]int{domain.DefaultRole: 1}, registry.Stats().RoleDistribution)
}

func TestRegistry_Connect_Twice_Is_Ignored(t *testing.T) {
	req := require.New(t)
	registry := newTestRegistry()
	conn := newRecordingConn("a")

	req.True(registry.Connect(context.Background(), conn, "1", domain.RoleManager))
	// A second registration under another identity is refused
	req.False(registry.Connect(context.Background(), conn, "2", "user"))

	req.Equal(1, conn.count())
	req.Empty(registry.ConnectionsOf("2"))
	stats := registry.Stats()
	req.Equal(1, stats.TotalConnections)
	req.Equal(map[domain.Role]int{domain.RoleManager: 1}, stats.RoleDistribution)
}

func TestRegistry_Failed_Acknowledgement_Evicts(t *testing.T) {
	req := require.New(t)
	registry := newTestRegistry()
	conn := newRecordingConn("a")
	conn.failing.Store(true)

	req.True(registry.Connect(context.Background(), conn, "1", ""))

	_, ok := registry.Metadata(conn)
	req.False(ok)
	stats := registry.Stats()
	req.Zero(stats.TotalConnections)
	req.Zero(stats.UniqueIdentities)
	req.Zero(stats.MessagesSent)
}

func TestRegistry_Settle_Closes_Evicted_Connections(t *testing.T) {
	req := require.New(t)
	registry := newTestRegistry()
	evicted := newRecordingConn("evicted")
	kept := newRecordingConn("kept")
	registry.Connect(context.Background(), evicted, "1", "")
	registry.Connect(context.Background(), kept, "1", "")
	before := registry.Stats().MessagesSent

	registry.Settle(1, []contract.Connection{evicted})

	req.True(evicted.closed.Load())
	req.False(kept.closed.Load())
	req.Equal([]contract.Connection{kept}, registry.ConnectionsOf("1"))
	req.Equal(before+1, registry.Stats().MessagesSent)
}

func TestRegistry_Disconnect_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	registry := newTestRegistry()
	conn := newRecordingConn("a")
	other := newRecordingConn("b")

	registry.Connect(context.Background(), conn, "1", "")
	registry.Connect(context.Background(), other, "2", "")

	req.True(registry.Disconnect(conn))
	req.False(registry.Disconnect(conn))
	req.False(registry.Disconnect(newRecordingConn("never-registered")))

	// The empty bucket is gone and the other user is untouched
	req.Nil(registry.ConnectionsOf("1"))
	stats := registry.Stats()
	req.Equal(1, stats.TotalConnections)
	req.Equal([]domain.Identity{"2"}, stats.ActiveIdentities)
}

func TestRegistry_Concurrent_Disconnect_Removes_Once(t *testing.T) {
	req := require.New(t)
	registry := newTestRegistry()
	conn := newRecordingConn("a")
	registry.Connect(context.Background(), conn, "1", "")

	var wg sync.WaitGroup
	var mu sync.Mutex
	removed := 0
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if registry.Disconnect(conn) {
				mu.Lock()
				removed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	req.Equal(1, removed)
	req.Zero(registry.Stats().TotalConnections)
}

func TestRegistry_ConnectionsWithRole_Ignores_Case(t *testing.T) {
	req := require.New(t)
	registry := newTestRegistry()
	a := newRecordingConn("a")
	b := newRecordingConn("b")
	c := newRecordingConn("c")

	registry.Connect(context.Background(), a, "7", "Manager")
	registry.Connect(context.Background(), b, "8", "manager")
	registry.Connect(context.Background(), c, "9", "employee")

	req.ElementsMatch([]contract.Connection{a, b}, registry.ConnectionsWithRole("MANAGER"))
	req.Empty(registry.ConnectionsWithRole("auditor"))
}

func TestRegistry_Touch_Skips_Evicted_Connections(t *testing.T) {
	req := require.New(t)
	registry := newTestRegistry()
	alive := newRecordingConn("alive")
	gone := newRecordingConn("gone")
	registry.Connect(context.Background(), alive, "1", "")
	registry.Connect(context.Background(), gone, "2", "")
	registry.Disconnect(gone)

	at := time.Now().Add(time.Minute).UTC()
	registry.Touch([]contract.Connection{alive, gone}, at)

	metadata, ok := registry.Metadata(alive)
	req.True(ok)
	req.Equal(at, metadata.LastHeartbeatAt)
	_, ok = registry.Metadata(gone)
	req.False(ok)
}

func TestRegistry_Stats_Sorts_Active_Identities(t *testing.T) {
	req := require.New(t)
	registry := newTestRegistry()
	for i, identity := range []domain.Identity{"carol", "alice", "bob", "alice"} {
		registry.Connect(context.Background(), newRecordingConn(fmt.Sprint(i)), identity, "")
	}

	stats := registry.Stats()
	req.Equal(4, stats.TotalConnections)
	req.Equal(3, stats.UniqueIdentities)
	req.Equal([]domain.Identity{"alice", "bob", "carol"}, stats.ActiveIdentities)
}

// Any interleaving of connects and disconnects keeps the counter equal to the
// bucket sizes, and every view covers exactly the live connections.
func TestRegistry_Views_Stay_Consistent(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		registry := NewRegistry(logs.GetLoggerFromLevel(slog.LevelError), time.Second)
		pool := make([]*recordingConn, rapid.IntRange(1, 8).Draw(rt, "pool"))
		for i := range pool {
			pool[i] = newRecordingConn(fmt.Sprintf("c%d", i))
		}
		identities := []domain.Identity{"1", "2", "3"}
		roles := []domain.Role{"", "manager", "employee"}
		live := make(map[*recordingConn]domain.Identity)

		steps := rapid.IntRange(1, 50).Draw(rt, "steps")
		for step := 0; step < steps; step++ {
			conn := rapid.SampledFrom(pool).Draw(rt, "conn")
			if rapid.Bool().Draw(rt, "connect") {
				identity := rapid.SampledFrom(identities).Draw(rt, "identity")
				role := rapid.SampledFrom(roles).Draw(rt, "role")
				registry.Connect(context.Background(), conn, identity, role)
				if _, ok := live[conn]; !ok {
					live[conn] = identity
				}
			} else {
				times := rapid.IntRange(1, 2).Draw(rt, "times")
				for i := 0; i < times; i++ {
					registry.Disconnect(conn)
				}
				delete(live, conn)
			}

			stats := registry.Stats()
			bucketTotal := 0
			for _, identity := range identities {
				bucket := registry.ConnectionsOf(identity)
				bucketTotal += len(bucket)
				for _, c := range bucket {
					if live[c.(*recordingConn)] != identity {
						rt.Fatalf("connection %s listed under %s", c.ID(), identity)
					}
				}
			}
			roleTotal := 0
			for _, count := range stats.RoleDistribution {
				roleTotal += count
			}
			if stats.TotalConnections != len(live) || bucketTotal != len(live) ||
				roleTotal != len(live) || len(registry.Connections()) != len(live) {
				rt.Fatalf("views diverged: total=%d buckets=%d roles=%d live=%d",
					stats.TotalConnections, bucketTotal, roleTotal, len(live))
			}
			for _, identity := range stats.ActiveIdentities {
				if len(registry.ConnectionsOf(identity)) == 0 {
					rt.Fatalf("empty bucket kept for %s", identity)
				}
			}
		}
	})
}
