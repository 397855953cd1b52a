package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRole_CanManageMembers(t *testing.T) {
	tests := []struct {
		name        string
		permissions string
		expected    bool
	}{
		{
			name:        "all member permissions",
			permissions: "members:add members:update members:remove",
			expected:    true,
		},
		{
			name:        "superset",
			permissions: "team:view team:update members:view members:add members:update members:remove",
			expected:    true,
		},
		{
			name:        "missing remove",
			permissions: "members:add members:update",
			expected:    false,
		},
		{
			name:        "wildcard is not expanded",
			permissions: "members:*",
			expected:    false,
		},
		{
			name:        "empty",
			permissions: "",
			expected:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Role{Permissions: tt.permissions}
			assert.Equal(t, tt.expected, r.CanManageMembers())
		})
	}
}

func TestRole_HasPermission(t *testing.T) {
	r := &Role{Permissions: "team:view members:view"}
	assert.True(t, r.HasPermission("team:view"))
	assert.False(t, r.HasPermission("team"))
	assert.False(t, r.HasPermission("team:update"))
}

func TestJoinPermissions(t *testing.T) {
	got := JoinPermissions([]string{"team:view", "members:add", "team:view"})
	assert.Equal(t, "members:add team:view", got)
}

func TestValidatePermissions(t *testing.T) {
	require.NoError(t, ValidatePermissions(KnownPermissions()))

	err := ValidatePermissions([]string{"team:view", "team:*", "billing:read"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "team:*")
	assert.Contains(t, err.Error(), "billing:read")
}
