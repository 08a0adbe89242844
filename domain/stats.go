package domain

// Stats is a point-in-time view of the registry.
type Stats struct {
	TotalConnections int          `json:"total_connections"`
	UniqueIdentities int          `json:"unique_users"`
	MessagesSent     uint64       `json:"messages_sent"`
	RoleDistribution map[Role]int `json:"role_distribution"`
	ActiveIdentities []Identity   `json:"active_users"`
}
