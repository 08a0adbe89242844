package domain

type TargetKind string

const (
	TargetIdentity  TargetKind = "identity"
	TargetRole      TargetKind = "role"
	TargetBroadcast TargetKind = "broadcast"
)

// Target tells the publisher which connections should receive a message.
type Target struct {
	Kind     TargetKind `json:"kind" validate:"required,oneof=identity role broadcast"`
	Identity Identity   `json:"identity,omitempty" validate:"required_if=Kind identity"`
	Role     Role       `json:"role,omitempty" validate:"required_if=Kind role"`
}

func ToIdentity(identity Identity) Target {
	return Target{Kind: TargetIdentity, Identity: identity}
}

func ToRole(role Role) Target {
	return Target{Kind: TargetRole, Role: role}
}

func ToAll() Target {
	return Target{Kind: TargetBroadcast}
}
