package models

import "strings"

// Role is a member's privilege level within a project.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
	RoleViewer Role = "viewer"
)

// Valid reports whether r is one of the four known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleMember, RoleViewer:
		return true
	}
	return false
}

// Rank orders roles by privilege. member and viewer share a rank.
func (r Role) Rank() int {
	switch r {
	case RoleOwner:
		return 3
	case RoleAdmin:
		return 2
	case RoleMember, RoleViewer:
		return 1
	}
	return 0
}

// IsAdmin is true for owner and admin.
func (r Role) IsAdmin() bool {
	return r == RoleOwner || r == RoleAdmin
}

// ParseRole normalises s. The second result is false for unknown roles.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	return r, r.Valid()
}
