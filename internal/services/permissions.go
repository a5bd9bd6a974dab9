package services

import "github.com/onboardhub/backend/internal/models"

// CanAssign reports whether actor may hand out role to someone else,
// through a role change, an email invitation or an invite code.
func CanAssign(actor, role models.Role) bool {
	if !role.Valid() || role == models.RoleOwner {
		return false
	}
	switch actor {
	case models.RoleOwner:
		return true
	case models.RoleAdmin:
		return role == models.RoleMember || role == models.RoleViewer
	}
	return false
}

// CanChangeRole reports whether actor may move a member from target to newRole.
// Nobody changes an owner and nobody grants ownership.
func CanChangeRole(actor, target, newRole models.Role) bool {
	if target == models.RoleOwner {
		return false
	}
	if !CanManage(actor, target) {
		return false
	}
	return CanAssign(actor, newRole)
}

// CanRemove reports whether actor may remove a member holding target.
func CanRemove(actor, target models.Role) bool {
	if target == models.RoleOwner {
		return false
	}
	return CanManage(actor, target)
}

// CanManage: owner manages every non-owner, admin manages member and viewer.
func CanManage(actor, target models.Role) bool {
	switch actor {
	case models.RoleOwner:
		return target != models.RoleOwner && target.Valid()
	case models.RoleAdmin:
		return target == models.RoleMember || target == models.RoleViewer
	}
	return false
}

// CanLeave: every member except the owner may leave.
func CanLeave(role models.Role) bool {
	return role.Valid() && role != models.RoleOwner
}
