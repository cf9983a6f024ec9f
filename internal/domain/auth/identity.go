// Package auth defines the acting identity of a request and the access gate
// that decides whether it may create or mutate owned records.
package auth

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/xenking/storefront-api/internal/domain/user"
)

// ErrUnauthenticated is returned when a protected operation runs without an
// identity in the context.
var ErrUnauthenticated = errors.New("not authorized to access this route")

// Identity is the authenticated caller.
type Identity struct {
	UserID string
	Role   user.Role
}

// IsAdmin reports whether the identity holds the admin role.
func (i Identity) IsAdmin() bool { return i.Role == user.RoleAdmin }

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// FromContext extracts the identity stored by WithIdentity.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

// Require returns the identity from ctx or ErrUnauthenticated.
func Require(ctx context.Context) (Identity, error) {
	id, ok := FromContext(ctx)
	if !ok || id.UserID == "" {
		return Identity{}, ErrUnauthenticated
	}
	return id, nil
}
