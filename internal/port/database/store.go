// Package database defines the port interface for the persistence layer.
package database

import (
	"context"
	"time"

	"github.com/hearthhub/hearth/internal/domain/identity"
	"github.com/hearthhub/hearth/internal/domain/tenant"
)

// Store is the persistence port consumed by the resolver, the authorization
// layer, and the login guard.
type Store interface {
	// --- Tenants ---

	TenantByID(ctx context.Context, id int64) (*tenant.Tenant, error)
	TenantBySlug(ctx context.Context, slug string) (*tenant.Tenant, error)
	TenantByDomain(ctx context.Context, domain string) (*tenant.Tenant, error)
	ListTenants(ctx context.Context) ([]tenant.Tenant, error)
	CreateTenant(ctx context.Context, req tenant.CreateRequest) (*tenant.Tenant, error)
	UpdateTenant(ctx context.Context, t *tenant.Tenant) error

	// --- Users ---

	UserByID(ctx context.Context, id int64) (*identity.User, error)
	UserByEmail(ctx context.Context, tenantID int64, email string) (*identity.User, error)

	// UserPrivilege re-reads the god/super-admin flags from storage. Used
	// before granting cross-tenant privilege so a stale or forged token
	// claim can never escalate.
	UserPrivilege(ctx context.Context, userID int64) (god, superAdmin bool, err error)

	// --- Master static pages ---

	// MasterPageExists reports whether the platform tenant has a custom
	// static page at the given slug. Consulted before a path-based
	// resolution miss becomes a hard 404.
	MasterPageExists(ctx context.Context, slug string) (bool, error)

	// --- Login attempts ---

	CountFailedAttempts(ctx context.Context, identifier, kind string, since time.Time) (count int, last time.Time, err error)
	RecordAttempt(ctx context.Context, identifier, kind, ip string, success bool, at time.Time) error
	ClearFailedAttempts(ctx context.Context, identifier, kind string) error
	PruneAttemptsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
