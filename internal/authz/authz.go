// Package authz implements the authorization evaluator: pure decision
// functions over an actor's identity claim and, where the decision concerns
// another account, the stored target user.
//
// Privilege hierarchy, highest to lowest: god bypasses every check,
// super-admin has cross-tenant access, admin/tenant-admin have full access
// within their own tenant, then member, then guest. Every permission
// granted at a level holds at every higher level.
package authz

import (
	"github.com/hearthhub/hearth/internal/domain/identity"
)

// IsAdmin reports whether the actor holds admin privilege at any level.
func IsAdmin(actor *identity.Claim) bool {
	if actor == nil {
		return false
	}
	if actor.God || actor.SuperAdmin {
		return true
	}
	return actor.Role == identity.RoleAdmin || actor.Role == identity.RoleTenantAdmin
}

// CanManageUser reports whether the actor may edit, deactivate, or otherwise
// administer the target account. Super-admins manage all non-god users;
// plain admins manage non-super-admin users of their own tenant only.
func CanManageUser(actor *identity.Claim, target *identity.User) bool {
	if actor == nil || target == nil {
		return false
	}
	if actor.God {
		return true
	}
	if target.IsGod {
		return false
	}
	if actor.SuperAdmin {
		return true
	}
	if !IsAdmin(actor) {
		return false
	}
	return target.TenantID == actor.TenantID && !target.IsSuperAdmin
}

// CanImpersonate reports whether the actor may assume the target's identity.
// Self-impersonation is refused at every level. A plain admin may only
// impersonate ordinary members of their own tenant.
func CanImpersonate(actor *identity.Claim, target *identity.User) bool {
	if actor == nil || target == nil {
		return false
	}
	if actor.UserID == target.ID {
		return false
	}
	if actor.God {
		return true
	}
	if target.IsGod {
		return false
	}
	if actor.SuperAdmin {
		return !target.IsSuperAdmin
	}
	if !IsAdmin(actor) {
		return false
	}
	if target.TenantID != actor.TenantID {
		return false
	}
	if target.IsSuperAdmin {
		return false
	}
	switch target.Role {
	case identity.RoleAdmin, identity.RoleTenantAdmin, identity.RoleSuperAdmin:
		return false
	}
	return true
}

// CanManageSuperAdmins reports whether the actor may grant or revoke
// super-admin privilege. Reserved for platform operators.
func CanManageSuperAdmins(actor *identity.Claim) bool {
	return actor != nil && actor.God
}
