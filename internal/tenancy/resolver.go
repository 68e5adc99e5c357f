// Package tenancy implements tenant resolution: deciding, for every inbound
// request, exactly which tenant the request is for.
//
// Precedence, strict and fail-closed:
//
//	custom domain > explicit X-Tenant-Id header > bearer-token tenant (API
//	routes) > path slug > reserved-route session fallback > master fallback.
//
// A custom domain is an operator-configured binding that arbitrary path or
// header manipulation must never override, while path slugs are untrusted
// user-navigable input and therefore resolve last among positive matches.
// A header/token disagreement aborts the request rather than silently
// preferring either signal.
package tenancy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/hearthhub/hearth/internal/domain"
	"github.com/hearthhub/hearth/internal/domain/apierror"
	"github.com/hearthhub/hearth/internal/domain/identity"
	"github.com/hearthhub/hearth/internal/domain/tenant"
	"github.com/hearthhub/hearth/internal/port/cache"
	"github.com/hearthhub/hearth/internal/port/database"
)

// reservedSlugs are first path segments that are never tenant slugs.
var reservedSlugs = map[string]bool{
	"login":     true,
	"logout":    true,
	"register":  true,
	"dashboard": true,
	"admin":     true,
	"api":       true,
	"assets":    true,
	"static":    true,
	"health":    true,
	"context":   true,
	"features":  true,
	"listings":  true,
	"messages":  true,
	"groups":    true,
	"members":   true,
	"pages":     true,
	"search":    true,
	"settings":  true,
	"profile":   true,
}

// ReservedSlug reports whether the first path segment can never be a slug.
func ReservedSlug(segment string) bool { return reservedSlugs[segment] }

// Request carries the resolution inputs extracted from an HTTP request.
// Route classification (API, super-admin) is set explicitly by the router
// mount, never guessed from path text.
type Request struct {
	Host           string
	HeaderTenantID string // raw X-Tenant-Id value, "" when absent
	Path           string

	// Identity is the verified claim from the credential verifier, nil for
	// anonymous requests. IdentityFromToken distinguishes bearer tokens
	// (whose embedded tenant participates in mismatch detection) from
	// server-side sessions.
	Identity *identity.Claim

	APIRoute        bool
	SuperAdminRoute bool
}

// Resolver owns the tenant resolution state machine. Tenant lookups go
// through the tiered cache before the datastore; an unreachable datastore
// degrades to the in-memory master fallback on read paths.
type Resolver struct {
	store    database.Store
	cache    cache.Cache
	cacheTTL time.Duration
}

// NewResolver creates a Resolver. cache may be nil to disable caching.
func NewResolver(store database.Store, c cache.Cache, cacheTTL time.Duration) *Resolver {
	return &Resolver{store: store, cache: c, cacheTTL: cacheTTL}
}

// Resolve runs the state machine. It always returns a non-nil context: on
// error the context is an id-0 placeholder so downstream reads never
// dereference nil, and the error carries the terminal kind. Resolve is
// deterministic; the HTTP middleware memoizes the result per request.
func (r *Resolver) Resolve(ctx context.Context, req Request) (*tenant.Context, error) {
	headerID := parseTenantHeader(req.HeaderTenantID)
	tokenID := int64(0)
	if req.Identity != nil && req.Identity.FromToken {
		tokenID = req.Identity.TenantID
	}

	// Step 1: custom domain. Exclusive when matched; no path override.
	host := normalizeHost(req.Host)
	if host != "" {
		t, found := r.lookup(ctx, "domain:"+host, func() (*tenant.Tenant, error) {
			return r.store.TenantByDomain(ctx, host)
		})
		if found && t.ID != tenant.MasterID {
			if !t.IsActive {
				return inactive(t, headerID, tokenID)
			}
			return tenant.NewContext(*t, "", headerID, tokenID), nil
		}
	}

	// Step 2: explicit tenant header. Conflicts fail closed.
	if headerID > 0 {
		if tokenID > 0 && tokenID != headerID {
			if !r.verifiedElevated(ctx, req.Identity) {
				return abort(headerID, tokenID, apierror.New(apierror.KindTenantMismatch,
					"tenant header disagrees with authenticated token"))
			}
		}
		t, found := r.lookup(ctx, "id:"+strconv.FormatInt(headerID, 10), func() (*tenant.Tenant, error) {
			return r.store.TenantByID(ctx, headerID)
		})
		if !found {
			return abort(headerID, tokenID, apierror.Newf(apierror.KindTenantInvalid,
				"unknown tenant id %d", headerID))
		}
		if !t.IsActive {
			return inactive(t, headerID, tokenID)
		}
		return tenant.NewContext(*t, "", headerID, tokenID), nil
	}

	// Step 3: bearer-token tenant on API routes. Best effort: failures fall
	// through instead of aborting.
	if tokenID > 0 && req.APIRoute {
		t, found := r.lookup(ctx, "id:"+strconv.FormatInt(tokenID, 10), func() (*tenant.Tenant, error) {
			return r.store.TenantByID(ctx, tokenID)
		})
		if found && t.IsActive {
			return tenant.NewContext(*t, "", headerID, tokenID), nil
		}
	}

	// Step 4: path slug.
	segment := firstSegment(req.Path)
	if segment != "" && !reservedSlugs[segment] {
		t, found := r.lookup(ctx, "slug:"+segment, func() (*tenant.Tenant, error) {
			return r.store.TenantBySlug(ctx, segment)
		})
		switch {
		case found && t.IsActive:
			return tenant.NewContext(*t, "/"+segment, headerID, tokenID), nil
		case found:
			return inactive(t, headerID, tokenID)
		default:
			exists, err := r.store.MasterPageExists(ctx, segment)
			if err != nil {
				slog.Warn("master page lookup failed, falling back to master tenant",
					"slug", segment, "error", err)
			} else if !exists {
				return abort(headerID, tokenID, apierror.Newf(apierror.KindTenantNotFound,
					"no tenant or page at /%s", segment))
			}
			// Custom master page: served by the platform tenant below.
		}
	}

	// Step 5: reserved route with an authenticated tenant binding.
	if segment != "" && reservedSlugs[segment] && req.Identity != nil && req.Identity.TenantID > 0 {
		id := req.Identity.TenantID
		t, found := r.lookup(ctx, "id:"+strconv.FormatInt(id, 10), func() (*tenant.Tenant, error) {
			return r.store.TenantByID(ctx, id)
		})
		if found {
			if !t.IsActive && !req.SuperAdminRoute {
				return inactive(t, headerID, tokenID)
			}
			base := ""
			if t.ID != tenant.MasterID {
				base = "/" + t.Slug
			}
			return tenant.NewContext(*t, base, headerID, tokenID), nil
		}
	}

	// Step 6: master fallback.
	t, found := r.lookup(ctx, "id:"+strconv.FormatInt(tenant.MasterID, 10), func() (*tenant.Tenant, error) {
		return r.store.TenantByID(ctx, tenant.MasterID)
	})
	if found {
		return tenant.NewContext(*t, "", headerID, tokenID), nil
	}

	// Step 7: datastore unreachable. Synthesize an in-memory master record
	// rather than failing the whole request pipeline. Write paths still
	// refuse independently (the query gate rejects unscoped writes).
	slog.Warn("datastore unreachable during resolution, using in-memory master tenant")
	return tenant.NewContext(tenant.Fallback(), "", headerID, tokenID), nil
}

// verifiedElevated re-reads the god/super-admin flags from storage before
// granting cross-tenant privilege. The token's embedded flags are not
// trusted here: a stale or forged claim must not bypass mismatch detection.
// An unreachable store fails closed.
func (r *Resolver) verifiedElevated(ctx context.Context, claim *identity.Claim) bool {
	if claim == nil {
		return false
	}
	god, super, err := r.store.UserPrivilege(ctx, claim.UserID)
	if err != nil {
		slog.Warn("privilege re-verification failed, denying cross-tenant access",
			"user_id", claim.UserID, "error", err)
		return false
	}
	return god || super
}

// lookup fetches a tenant through the cache, falling back to the datastore.
// Store errors (including not-found) report found=false; transient errors
// are logged and treated as misses so resolution can degrade.
func (r *Resolver) lookup(ctx context.Context, key string, fetch func() (*tenant.Tenant, error)) (*tenant.Tenant, bool) {
	cacheKey := "tenant:" + key
	if r.cache != nil {
		if data, ok, err := r.cache.Get(ctx, cacheKey); err == nil && ok {
			var t tenant.Tenant
			if err := json.Unmarshal(data, &t); err == nil {
				return &t, true
			}
		}
	}

	t, err := fetch()
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			slog.Warn("tenant lookup failed", "key", key, "error", err)
		}
		return nil, false
	}

	if r.cache != nil {
		if data, err := json.Marshal(t); err == nil {
			_ = r.cache.Set(ctx, cacheKey, data, r.cacheTTL)
		}
	}
	return t, true
}

// Invalidate drops a tenant's cached records after an update.
func (r *Resolver) Invalidate(ctx context.Context, t *tenant.Tenant) {
	if r.cache == nil || t == nil {
		return
	}
	_ = r.cache.Delete(ctx, fmt.Sprintf("tenant:id:%d", t.ID))
	if t.Slug != "" {
		_ = r.cache.Delete(ctx, "tenant:slug:"+t.Slug)
	}
	if t.Domain != "" {
		_ = r.cache.Delete(ctx, "tenant:domain:"+t.Domain)
	}
}

func inactive(t *tenant.Tenant, headerID, tokenID int64) (*tenant.Context, error) {
	return abort(headerID, tokenID, apierror.Newf(apierror.KindTenantInactive,
		"tenant %q is not active", t.Slug))
}

func abort(headerID, tokenID int64, err *apierror.Error) (*tenant.Context, error) {
	return tenant.Placeholder(headerID, tokenID), err
}

// parseTenantHeader returns the numeric header value, or 0 when the header
// is absent or non-numeric. Non-numeric values are ignored rather than
// rejected; only a well-formed header participates in precedence.
func parseTenantHeader(raw string) int64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 0 {
		return 0
	}
	return id
}

// normalizeHost lowercases the host, strips any port, and removes a
// leading "www.".
func normalizeHost(host string) string {
	if host == "" {
		return ""
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.ToLower(host)
	return strings.TrimPrefix(host, "www.")
}

// firstSegment returns the first path segment, "" for the root path.
func firstSegment(path string) string {
	path = strings.TrimPrefix(path, "/")
	if i := strings.IndexByte(path, '/'); i >= 0 {
		path = path[:i]
	}
	return strings.ToLower(path)
}
