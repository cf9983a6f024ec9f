package auth

import (
	"fmt"

	"github.com/xenking/storefront-api/internal/domain/user"
)

// ForbiddenError is returned by the access gate when an authenticated identity
// is not permitted to perform an action.
type ForbiddenError struct {
	UserID string
	// Action is a phrase such as "create products" or "update this product".
	Action string
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("User with ID %s is not authorized to %s", e.UserID, e.Action)
}

// CanCreate permits creation of vendor-owned records for vendors and admins.
func CanCreate(id Identity, action string) error {
	if id.Role == user.RoleVendor || id.Role == user.RoleAdmin {
		return nil
	}
	return &ForbiddenError{UserID: id.UserID, Action: action}
}

// CanMutate permits mutation of a record owned by ownerID when the identity is
// the owner or an admin. Callers must establish that the record exists first.
func CanMutate(id Identity, ownerID, action string) error {
	if id.UserID == ownerID || id.IsAdmin() {
		return nil
	}
	return &ForbiddenError{UserID: id.UserID, Action: action}
}

// RequireAdmin permits admin-only operations.
func RequireAdmin(id Identity, action string) error {
	if id.IsAdmin() {
		return nil
	}
	return &ForbiddenError{UserID: id.UserID, Action: action}
}
