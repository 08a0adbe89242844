package domain

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
)

func TestRole_Matches_Ignores_Case(t *testing.T) {
	req := require.New(t)
	req.True(RoleManager.Matches("MANAGER"))
	req.True(Role("Employee").Matches("employee"))
	req.False(RoleManager.Matches("employee"))
}

func TestRole_OrDefault(t *testing.T) {
	req := require.New(t)
	req.Equal(DefaultRole, Role("").OrDefault())
	req.Equal(DefaultRole, Role("   ").OrDefault())
	req.Equal(RoleManager, RoleManager.OrDefault())
}

func TestTarget_Validation(t *testing.T) {
	req := require.New(t)
	validate := validator.New()

	req.NoError(validate.Struct(ToIdentity("7")))
	req.NoError(validate.Struct(ToRole(RoleManager)))
	req.NoError(validate.Struct(ToAll()))

	// Identity target without identity
	req.Error(validate.Struct(Target{Kind: TargetIdentity}))
	// Role target without role
	req.Error(validate.Struct(Target{Kind: TargetRole}))
	// Unknown kind
	req.Error(validate.Struct(Target{Kind: "room"}))
}
