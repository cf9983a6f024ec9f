package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront-api/internal/domain/user"
)

func TestCanCreate(t *testing.T) {
	tests := []struct {
		role    user.Role
		allowed bool
	}{
		{role: user.RoleVendor, allowed: true},
		{role: user.RoleAdmin, allowed: true},
		{role: user.RoleUser, allowed: false},
		{role: "", allowed: false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			err := CanCreate(Identity{UserID: "u1", Role: tt.role}, "create products")
			if tt.allowed {
				require.NoError(t, err)
				return
			}
			var fErr *ForbiddenError
			require.ErrorAs(t, err, &fErr)
			assert.Equal(t, "u1", fErr.UserID)
			assert.Equal(t, "User with ID u1 is not authorized to create products", err.Error())
		})
	}
}

func TestCanMutate(t *testing.T) {
	tests := []struct {
		name    string
		id      Identity
		owner   string
		allowed bool
	}{
		{name: "owner vendor", id: Identity{UserID: "v1", Role: user.RoleVendor}, owner: "v1", allowed: true},
		{name: "admin on foreign record", id: Identity{UserID: "a1", Role: user.RoleAdmin}, owner: "v1", allowed: true},
		{name: "other vendor", id: Identity{UserID: "v2", Role: user.RoleVendor}, owner: "v1", allowed: false},
		{name: "plain user", id: Identity{UserID: "u1", Role: user.RoleUser}, owner: "v1", allowed: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CanMutate(tt.id, tt.owner, "update this product")
			if tt.allowed {
				require.NoError(t, err)
				return
			}
			var fErr *ForbiddenError
			require.ErrorAs(t, err, &fErr)
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	require.NoError(t, RequireAdmin(Identity{UserID: "a", Role: user.RoleAdmin}, "update orders"))

	var fErr *ForbiddenError
	require.ErrorAs(t, RequireAdmin(Identity{UserID: "v", Role: user.RoleVendor}, "update orders"), &fErr)
}

func TestIdentityContext(t *testing.T) {
	_, err := Require(context.Background())
	require.ErrorIs(t, err, ErrUnauthenticated)

	ctx := WithIdentity(context.Background(), Identity{UserID: "u1", Role: user.RoleUser})
	id, err := Require(ctx)
	require.NoError(t, err)
	assert.Equal(t, "u1", id.UserID)
	assert.Equal(t, user.RoleUser, id.Role)
}

func TestHashAPIKey(t *testing.T) {
	a := HashAPIKey([]byte("pepper"), "key")
	b := HashAPIKey([]byte("pepper"), "key")
	c := HashAPIKey([]byte("other"), "key")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}
