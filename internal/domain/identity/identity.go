// Package identity defines the authenticated identity model and the
// privilege hierarchy used by authorization decisions.
package identity

import "time"

// Role represents the authorization level of a user within a tenant.
type Role string

const (
	RoleGuest       Role = "guest"
	RoleMember      Role = "member"
	RoleAdmin       Role = "admin"
	RoleTenantAdmin Role = "tenant_admin"
	RoleSuperAdmin  Role = "super_admin"
	RoleGod         Role = "god"
)

// Level returns the position of the role in the privilege hierarchy:
// guest < member < admin/tenant_admin < super_admin < god. Every permission
// granted at a level is granted at every higher level.
func (r Role) Level() int {
	switch r {
	case RoleMember:
		return 1
	case RoleAdmin, RoleTenantAdmin:
		return 2
	case RoleSuperAdmin:
		return 3
	case RoleGod:
		return 4
	default:
		return 0
	}
}

// Claim is the identity derived from a bearer token or session. It is
// recomputed per request and never persisted.
type Claim struct {
	UserID     int64
	TenantID   int64 // 0 when the credential carries no tenant binding
	Role       Role
	God        bool
	SuperAdmin bool

	// FromToken is true when the claim was extracted from a bearer token
	// rather than a server-side session.
	FromToken bool
}

// Elevated reports whether the claim carries cross-tenant privilege.
func (c *Claim) Elevated() bool {
	return c != nil && (c.God || c.SuperAdmin)
}

// EffectiveRole folds the privilege flags into a single role for
// hierarchy comparisons.
func (c *Claim) EffectiveRole() Role {
	switch {
	case c == nil:
		return RoleGuest
	case c.God:
		return RoleGod
	case c.SuperAdmin:
		return RoleSuperAdmin
	default:
		return c.Role
	}
}

// User represents a stored account row, read for credential checks and for
// re-verifying privilege from storage.
type User struct {
	ID           int64     `json:"id"`
	TenantID     int64     `json:"tenant_id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	IsGod        bool      `json:"is_god"`
	IsSuperAdmin bool      `json:"is_super_admin"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// Claim derives an identity claim from the stored user.
func (u *User) Claim() *Claim {
	return &Claim{
		UserID:     u.ID,
		TenantID:   u.TenantID,
		Role:       u.Role,
		God:        u.IsGod,
		SuperAdmin: u.IsSuperAdmin,
	}
}
