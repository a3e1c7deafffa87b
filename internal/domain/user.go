package domain

import (
	"context"
	"strings"
)

// Role is the caller role carried by a verified identity.
type Role string

const (
	RoleStudent  Role = "student"
	RoleLecturer Role = "lecturer"
	RoleAdmin    Role = "admin"
)

// ParseRole normalizes s into a known Role.
func ParseRole(s string) (Role, bool) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleStudent, RoleLecturer, RoleAdmin:
		return r, true
	}
	return "", false
}

// Identity is the authenticated caller of a core operation.
type Identity struct {
	UserID string `json:"user_id"`
	Role   Role   `json:"role"`
}

// IsAdmin reports whether the identity bypasses ownership checks.
func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }

// User is a directory entry: the core reads it for contact details only.
// swagger:model User
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone,omitempty"`
	Role      Role   `json:"role"`
}

// FullName returns "First Last", falling back to the email when both are empty.
func (u *User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Email
	}
	return name
}

// TokenIssuer issues tokens (e.g. JWT) for an identity.
type TokenIssuer interface {
	Issue(identity Identity, email string) (string, error)
}

// TokenVerifier verifies a token and returns the identity it carries.
type TokenVerifier interface {
	Verify(token string) (Identity, error)
}

// UserDirectory resolves user ids to contact details.
type UserDirectory interface {
	GetByID(ctx context.Context, id string) (*User, error)
}
