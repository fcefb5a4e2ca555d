// Package models defines the user context supplied by the identity provider.
package models

// Role is the role of a signed-in Philview user.
type Role string

const (
	RoleOwner      Role = "owner"
	RoleDirector   Role = "director"
	RoleBroker     Role = "broker"
	RoleAccountant Role = "accountant"
	RoleMarketing  Role = "marketing"
	RoleClient     Role = "client"
	RoleUnknown    Role = ""
)

const unknownRoleName = "unknown role"

// IsValidRole checks if the given role is supported. The empty role means a guest.
func IsValidRole(r Role) bool {
	switch r {
	case RoleOwner, RoleDirector, RoleBroker, RoleAccountant, RoleMarketing, RoleClient, RoleUnknown:
		return true
	default:
		return false
	}
}

// DisplayName returns the role as shown to the language model.
func (r Role) DisplayName() string {
	if r == RoleUnknown {
		return unknownRoleName
	}
	return string(r)
}

// IsStaff reports whether the role belongs to brokerage staff rather than a client or guest.
func (r Role) IsStaff() bool {
	return r != RoleClient && r != RoleUnknown && IsValidRole(r)
}

// User is a signed-in user as returned by the identity provider.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// SignedIn reports whether the user context belongs to an authenticated user.
func (u *User) SignedIn() bool {
	return u != nil && u.ID != ""
}
