package model

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Role is the closed set of account roles. The zero value is not a valid
// role so that an unset field is never mistaken for a standard account.
type Role uint8

const (
	RoleStandard Role = iota + 1
	RoleAdmin
)

// String returns the persisted name of the role ("user" or "admin").
func (r Role) String() string {
	switch r {
	case RoleStandard:
		return "user"
	case RoleAdmin:
		return "admin"
	}
	return fmt.Sprintf("Role(%d)", uint8(r))
}

// Valid reports whether r is one of the declared roles.
func (r Role) Valid() bool {
	switch r {
	case RoleStandard, RoleAdmin:
		return true
	}
	return false
}

// ParseRole maps the persisted role name back to a Role.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "user":
		return RoleStandard, nil
	case "admin":
		return RoleAdmin, nil
	}
	return 0, fmt.Errorf("unknown role %q", s)
}

func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("invalid role %d", uint8(r))
	}
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(b []byte) error {
	v, err := ParseRole(string(b))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// User mirrors the `users` table.
//
// PasswordHash, ResetTokenHash and ResetTokenExpiresAt never leave the
// process: they are excluded from JSON. ResetTokenHash and
// ResetTokenExpiresAt are either both set or both nil.
type User struct {
	ID                  string     `json:"id"`
	Username            string     `json:"username"`
	Email               string     `json:"email"`
	PasswordHash        string     `json:"-"`
	Role                Role       `json:"role"`
	ResetTokenHash      *string    `json:"-"`
	ResetTokenExpiresAt *time.Time `json:"-"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// Identity returns the subset of the user consulted by authorization.
func (u User) Identity() Identity {
	return Identity{ID: u.ID, Role: u.Role}
}

// HasPendingReset reports whether a reset secret is outstanding and unexpired at now.
func (u User) HasPendingReset(now time.Time) bool {
	return u.ResetTokenHash != nil && u.ResetTokenExpiresAt != nil && u.ResetTokenExpiresAt.After(now)
}

// Identity is the authenticated caller attached to a request by the auth
// middleware. It is passed explicitly to every operation that needs it.
type Identity struct {
	ID   string
	Role Role
}

// IsAdmin reports whether the caller holds the admin role.
func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the identity stored by WithIdentity.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}
