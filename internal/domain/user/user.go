// Package user holds the account records that own products, carts and orders.
package user

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when a requested user does not exist.
var ErrNotFound = errors.New("user not found")

// Role is the account role used by the access gate.
type Role string

const (
	RoleUser   Role = "user"
	RoleVendor Role = "vendor"
	RoleAdmin  Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleVendor, RoleAdmin:
		return true
	}
	return false
}

// User is an account that can authenticate against the API.
type User struct {
	ID        string
	Name      string
	Email     string
	Role      Role
	CreatedAt time.Time
}

// Summary is the public projection of a user joined into product responses.
type Summary struct {
	ID    string
	Name  string
	Email string
}

// Summary returns the public projection of u.
func (u *User) Summary() Summary {
	return Summary{ID: u.ID, Name: u.Name, Email: u.Email}
}

// VendorNotFoundError indicates that an id does not belong to a vendor account,
// either because no user exists or because the user holds another role.
type VendorNotFoundError struct {
	VendorID string
}

func (e *VendorNotFoundError) Error() string {
	return fmt.Sprintf("Vendor not found with id of %s", e.VendorID)
}

func (e *VendorNotFoundError) Unwrap() error { return ErrNotFound }

// Repository provides lookup of user accounts.
type Repository interface {
	GetByID(ctx context.Context, id string) (*User, error)
	Create(ctx context.Context, u *User) error
}

// LookupVendor loads id and checks that it holds the vendor role.
func LookupVendor(ctx context.Context, users Repository, id string) (*User, error) {
	u, err := users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, &VendorNotFoundError{VendorID: id}
		}
		return nil, errors.Wrapf(err, "get vendor %s", id)
	}
	if u.Role != RoleVendor {
		return nil, &VendorNotFoundError{VendorID: id}
	}
	return u, nil
}
