package auth

import (
	"slices"
	"strings"
)

// Actor is the authenticated identity a request acts as.
type Actor struct {
	Email string   `json:"email"`
	Name  string   `json:"name"`
	Roles []string `json:"roles"`
}

func (a Actor) Authenticated() bool {
	return strings.TrimSpace(a.Email) != ""
}

func (a Actor) Can(permission string) bool {
	if !a.Authenticated() {
		return false
	}
	if slices.Contains(BasePermissions, permission) {
		return true
	}
	for _, role := range a.Roles {
		if slices.Contains(RolePermissions[role], permission) {
			return true
		}
	}
	return false
}

// Require returns ErrNotAuthenticated or ErrForbidden when the actor lacks permission.
func Require(a Actor, permission string) error {
	if !a.Authenticated() {
		return ErrNotAuthenticated
	}
	if !a.Can(permission) {
		return ErrForbidden
	}
	return nil
}

// RequireAny passes when the actor holds at least one of the permissions.
func RequireAny(a Actor, permissions ...string) error {
	if !a.Authenticated() {
		return ErrNotAuthenticated
	}
	for _, p := range permissions {
		if a.Can(p) {
			return nil
		}
	}
	return ErrForbidden
}

// NormalizeEmail lowercases and trims an address used as an identity key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeRoles keeps known roles only, deduplicated, in KnownRoles order.
func NormalizeRoles(roles []string) []string {
	seen := map[string]bool{}
	for _, r := range roles {
		seen[strings.ToLower(strings.TrimSpace(r))] = true
	}
	out := []string{}
	for _, r := range KnownRoles {
		if seen[r] {
			out = append(out, r)
		}
	}
	return out
}
