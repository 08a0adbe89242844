// Package domain contains core concepts of the notification system.
// This file defines the owner and role of a live connection.
// No runtime, network, or UI logic should be added here.
package domain

import (
	"strings"
	"time"
)

// Identity is the opaque key of the user owning zero or more connections.
type Identity string

// Role is a free-text tag used for group-addressed delivery.
type Role string

const (
	DefaultRole Role = "user"
	RoleManager Role = "manager"
)

// Matches compares roles case-insensitively.
func (r Role) Matches(other Role) bool {
	return strings.EqualFold(string(r), string(other))
}

// OrDefault falls back to DefaultRole when no role was supplied at handshake.
func (r Role) OrDefault() Role {
	if strings.TrimSpace(string(r)) == "" {
		return DefaultRole
	}
	return r
}

type ConnectionMetadata struct {
	Identity        Identity
	Role            Role
	ConnectedAt     time.Time
	LastHeartbeatAt time.Time
}
