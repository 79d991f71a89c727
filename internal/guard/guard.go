// Package guard is the single enforcement point for the two authorization
// invariants of the service: a request may only touch rows of its own
// tenant, and privileged operations require the admin role. Handlers load a
// resource first and consult the guard before returning or mutating it, so
// a cross-tenant id guess comes back 403 rather than leaking data.
package guard

import (
	"errors"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"roadmap-service/internal/model"
)

// ContextKey is the echo context key the auth middleware stores the
// identity under.
const ContextKey = "identity"

// ErrForbidden is returned on tenant mismatch or insufficient role.
var ErrForbidden = errors.New("forbidden")

// Identity is the authenticated caller, as established by the auth
// middleware from the token plus a live user-row load.
type Identity struct {
	UserID   uuid.UUID
	TenantID uuid.UUID
	Email    string
	Role     string
}

// IsAdmin reports whether the caller holds the admin role.
func (id Identity) IsAdmin() bool {
	return id.Role == model.RoleAdmin
}

// RequireSameTenant checks the tenant-isolation invariant: the resource's
// tenant must be the caller's tenant. Checked after load, before any field
// is returned or mutated.
func RequireSameTenant(id Identity, resourceTenantID uuid.UUID) error {
	if id.TenantID != resourceTenantID {
		return ErrForbidden
	}
	return nil
}

// RequireRole checks that the caller holds the given role.
func RequireRole(id Identity, role string) error {
	if id.Role != role {
		return ErrForbidden
	}
	return nil
}

// RequireAdmin is shorthand for RequireRole(id, admin).
func RequireAdmin(id Identity) error {
	return RequireRole(id, model.RoleAdmin)
}

// FromEcho retrieves the identity stored by the auth middleware.
func FromEcho(c echo.Context) (Identity, bool) {
	identity, ok := c.Get(ContextKey).(Identity)
	return identity, ok
}
