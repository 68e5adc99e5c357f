package tenancy

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/hearthhub/hearth/internal/domain"
	"github.com/hearthhub/hearth/internal/domain/apierror"
	"github.com/hearthhub/hearth/internal/domain/identity"
	"github.com/hearthhub/hearth/internal/domain/tenant"
)

// fakeStore implements database.Store over in-memory maps.
type fakeStore struct {
	tenants    map[int64]tenant.Tenant
	privileges map[int64][2]bool // userID -> {god, superAdmin}
	pages      map[string]bool
	down       bool // simulate an unreachable datastore
	lookups    int
}

var errDown = errors.New("connection refused")

func (f *fakeStore) TenantByID(_ context.Context, id int64) (*tenant.Tenant, error) {
	f.lookups++
	if f.down {
		return nil, errDown
	}
	if t, ok := f.tenants[id]; ok {
		return &t, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeStore) TenantBySlug(_ context.Context, slug string) (*tenant.Tenant, error) {
	f.lookups++
	if f.down {
		return nil, errDown
	}
	for _, t := range f.tenants {
		if t.Slug == slug {
			return &t, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeStore) TenantByDomain(_ context.Context, d string) (*tenant.Tenant, error) {
	f.lookups++
	if f.down {
		return nil, errDown
	}
	for _, t := range f.tenants {
		if t.Domain == d {
			return &t, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeStore) ListTenants(context.Context) ([]tenant.Tenant, error) { return nil, nil }
func (f *fakeStore) CreateTenant(context.Context, tenant.CreateRequest) (*tenant.Tenant, error) {
	return nil, errors.New("not implemented")
}
func (f *fakeStore) UpdateTenant(context.Context, *tenant.Tenant) error { return nil }

func (f *fakeStore) UserByID(context.Context, int64) (*identity.User, error) {
	return nil, domain.ErrNotFound
}
func (f *fakeStore) UserByEmail(context.Context, int64, string) (*identity.User, error) {
	return nil, domain.ErrNotFound
}

func (f *fakeStore) UserPrivilege(_ context.Context, userID int64) (bool, bool, error) {
	if f.down {
		return false, false, errDown
	}
	p := f.privileges[userID]
	return p[0], p[1], nil
}

func (f *fakeStore) MasterPageExists(_ context.Context, slug string) (bool, error) {
	if f.down {
		return false, errDown
	}
	return f.pages[slug], nil
}

func (f *fakeStore) CountFailedAttempts(context.Context, string, string, time.Time) (int, time.Time, error) {
	return 0, time.Time{}, nil
}
func (f *fakeStore) RecordAttempt(context.Context, string, string, string, bool, time.Time) error {
	return nil
}
func (f *fakeStore) ClearFailedAttempts(context.Context, string, string) error { return nil }
func (f *fakeStore) PruneAttemptsBefore(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		tenants: map[int64]tenant.Tenant{
			1:  {ID: 1, Name: "Platform", Slug: "hearth", IsActive: true},
			5:  {ID: 5, Name: "Five", Slug: "five", IsActive: true},
			7:  {ID: 7, Name: "Beehive", Slug: "beehive", Domain: "b.example.com", IsActive: true},
			12: {ID: 12, Name: "Acme", Slug: "acme", IsActive: true},
			20: {ID: 20, Name: "Dormant", Slug: "dormant", IsActive: false},
		},
		privileges: map[int64][2]bool{},
		pages:      map[string]bool{},
	}
}

func resolve(t *testing.T, store *fakeStore, req Request) (*tenant.Context, error) {
	t.Helper()
	r := NewResolver(store, nil, time.Minute)
	tc, err := r.Resolve(context.Background(), req)
	if tc == nil {
		t.Fatal("Resolve must always return a non-nil context")
	}
	return tc, err
}

func TestResolveDomainMatch(t *testing.T) {
	// A custom domain binds the tenant with an empty base path.
	tc, err := resolve(t, newFakeStore(), Request{Host: "b.example.com", Path: "/dashboard"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tc.ID() != 7 || tc.BasePath() != "" {
		t.Fatalf("expected tenant 7 with empty base path, got id=%d base=%q", tc.ID(), tc.BasePath())
	}
}

func TestResolveDomainNormalization(t *testing.T) {
	tc, err := resolve(t, newFakeStore(), Request{Host: "WWW.B.Example.com:8443", Path: "/"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tc.ID() != 7 {
		t.Fatalf("expected tenant 7, got %d", tc.ID())
	}
}

func TestResolveDomainWinsOverPathSlug(t *testing.T) {
	// A path segment matching another tenant's slug never overrides a
	// custom-domain binding.
	tc, err := resolve(t, newFakeStore(), Request{Host: "b.example.com", Path: "/acme/listings"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tc.ID() != 7 {
		t.Fatalf("domain must win over path, got tenant %d", tc.ID())
	}
}

func TestResolveInactiveDomainTenant(t *testing.T) {
	store := newFakeStore()
	store.tenants[7] = tenant.Tenant{ID: 7, Slug: "beehive", Domain: "b.example.com", IsActive: false}

	tc, err := resolve(t, store, Request{Host: "b.example.com", Path: "/"})
	if !apierror.IsKind(err, apierror.KindTenantInactive) {
		t.Fatalf("expected TenantInactive, got %v", err)
	}
	if tc.ID() != 0 {
		t.Fatalf("expected placeholder context, got tenant %d", tc.ID())
	}
}

func TestResolveHeaderMatchesToken(t *testing.T) {
	// Header and token agree; plain member resolves cleanly.
	claim := &identity.Claim{UserID: 42, TenantID: 5, Role: identity.RoleMember, FromToken: true}
	tc, err := resolve(t, newFakeStore(), Request{
		Host: "app.hearth.test", HeaderTenantID: "5", Path: "/api/v1/listings",
		Identity: claim, APIRoute: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tc.ID() != 5 || tc.BasePath() != "" {
		t.Fatalf("expected tenant 5, got id=%d base=%q", tc.ID(), tc.BasePath())
	}
	if tc.HeaderTenantID() != 5 || tc.TokenTenantID() != 5 {
		t.Fatalf("expected transient ids 5/5, got %d/%d", tc.HeaderTenantID(), tc.TokenTenantID())
	}
}

func TestResolveHeaderTokenMismatchRejected(t *testing.T) {
	// Header/token disagreement without elevated privilege fails closed.
	claim := &identity.Claim{UserID: 42, TenantID: 5, Role: identity.RoleMember, FromToken: true}
	tc, err := resolve(t, newFakeStore(), Request{
		Host: "app.hearth.test", HeaderTenantID: "12", Path: "/api/v1/listings",
		Identity: claim, APIRoute: true,
	})
	if !apierror.IsKind(err, apierror.KindTenantMismatch) {
		t.Fatalf("expected TenantMismatch, got %v", err)
	}
	if tc.ID() != 0 {
		t.Fatalf("expected placeholder, got tenant %d", tc.ID())
	}
}

func TestResolveMismatchSpoofedClaimStillRejected(t *testing.T) {
	// The token's own elevated flags are not trusted: privilege is re-read
	// from storage, where this user has none.
	claim := &identity.Claim{UserID: 42, TenantID: 5, SuperAdmin: true, FromToken: true}
	_, err := resolve(t, newFakeStore(), Request{HeaderTenantID: "12", Identity: claim})
	if !apierror.IsKind(err, apierror.KindTenantMismatch) {
		t.Fatalf("expected TenantMismatch for spoofed claim, got %v", err)
	}
}

func TestResolveSuperAdminOverridesMismatch(t *testing.T) {
	// A storage-verified super-admin may bind the header tenant.
	store := newFakeStore()
	store.privileges[42] = [2]bool{false, true}
	claim := &identity.Claim{UserID: 42, TenantID: 5, Role: identity.RoleSuperAdmin, FromToken: true}

	tc, err := resolve(t, store, Request{HeaderTenantID: "12", Identity: claim})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tc.ID() != 12 {
		t.Fatalf("expected header tenant 12, got %d", tc.ID())
	}
}

func TestResolveUnknownHeaderTenant(t *testing.T) {
	tc, err := resolve(t, newFakeStore(), Request{HeaderTenantID: "999"})
	if !apierror.IsKind(err, apierror.KindTenantInvalid) {
		t.Fatalf("expected TenantInvalid, got %v", err)
	}
	if tc.ID() != 0 {
		t.Fatalf("expected placeholder, got %d", tc.ID())
	}
}

func TestResolveNonNumericHeaderIgnored(t *testing.T) {
	tc, err := resolve(t, newFakeStore(), Request{HeaderTenantID: "acme", Path: "/acme/x"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tc.ID() != 12 {
		t.Fatalf("expected path resolution to tenant 12, got %d", tc.ID())
	}
}

func TestResolveTokenTenantOnAPIRoute(t *testing.T) {
	claim := &identity.Claim{UserID: 42, TenantID: 5, FromToken: true}
	tc, err := resolve(t, newFakeStore(), Request{Path: "/api/v1/me", Identity: claim, APIRoute: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tc.ID() != 5 {
		t.Fatalf("expected token tenant 5, got %d", tc.ID())
	}
}

func TestResolveTokenTenantIgnoredOffAPIRoute(t *testing.T) {
	claim := &identity.Claim{UserID: 42, TenantID: 5, FromToken: true}
	tc, err := resolve(t, newFakeStore(), Request{Path: "/acme/listings", Identity: claim})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tc.ID() != 12 {
		t.Fatalf("expected path tenant 12, got %d", tc.ID())
	}
}

func TestResolvePathSlug(t *testing.T) {
	// A path-routed tenant carries its slug as base path.
	tc, err := resolve(t, newFakeStore(), Request{Host: "app.hearth.test", Path: "/acme/listings"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tc.ID() != 12 || tc.BasePath() != "/acme" {
		t.Fatalf("expected tenant 12 base /acme, got id=%d base=%q", tc.ID(), tc.BasePath())
	}
}

func TestResolveInactivePathSlug(t *testing.T) {
	_, err := resolve(t, newFakeStore(), Request{Path: "/dormant/anything"})
	if !apierror.IsKind(err, apierror.KindTenantInactive) {
		t.Fatalf("expected TenantInactive, got %v", err)
	}
}

func TestResolveUnknownSlugHard404(t *testing.T) {
	// An unknown slug with no master page terminates with 404.
	tc, err := resolve(t, newFakeStore(), Request{Path: "/acme2/whatever"})
	if !apierror.IsKind(err, apierror.KindTenantNotFound) {
		t.Fatalf("expected TenantNotFound, got %v", err)
	}
	if tc.ID() != 0 {
		t.Fatalf("expected placeholder, got %d", tc.ID())
	}
}

func TestResolveUnknownSlugWithMasterPage(t *testing.T) {
	store := newFakeStore()
	store.pages["about-us"] = true

	tc, err := resolve(t, store, Request{Path: "/about-us"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tc.ID() != tenant.MasterID || tc.BasePath() != "" {
		t.Fatalf("expected master tenant, got id=%d base=%q", tc.ID(), tc.BasePath())
	}
}

func TestResolveReservedRouteSessionFallback(t *testing.T) {
	claim := &identity.Claim{UserID: 9, TenantID: 12, Role: identity.RoleMember}
	tc, err := resolve(t, newFakeStore(), Request{Path: "/dashboard", Identity: claim})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tc.ID() != 12 || tc.BasePath() != "/acme" {
		t.Fatalf("expected session tenant 12 base /acme, got id=%d base=%q", tc.ID(), tc.BasePath())
	}
}

func TestResolveReservedRouteInactiveSessionTenant(t *testing.T) {
	claim := &identity.Claim{UserID: 9, TenantID: 20, Role: identity.RoleMember}

	_, err := resolve(t, newFakeStore(), Request{Path: "/dashboard", Identity: claim})
	if !apierror.IsKind(err, apierror.KindTenantInactive) {
		t.Fatalf("expected TenantInactive, got %v", err)
	}

	// Super-admin routes remain reachable for inactive tenants.
	tc, err := resolve(t, newFakeStore(), Request{Path: "/admin", Identity: claim, SuperAdminRoute: true})
	if err != nil {
		t.Fatalf("unexpected error on super-admin route: %v", err)
	}
	if tc.ID() != 20 {
		t.Fatalf("expected inactive tenant bound on super-admin route, got %d", tc.ID())
	}
}

func TestResolveMasterFallback(t *testing.T) {
	tc, err := resolve(t, newFakeStore(), Request{Host: "app.hearth.test", Path: "/"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tc.ID() != tenant.MasterID || tc.BasePath() != "" {
		t.Fatalf("expected master fallback, got id=%d base=%q", tc.ID(), tc.BasePath())
	}
}

func TestResolveHardFallbackWhenStoreDown(t *testing.T) {
	store := newFakeStore()
	store.down = true

	tc, err := resolve(t, store, Request{Host: "app.hearth.test", Path: "/"})
	if err != nil {
		t.Fatalf("expected degraded resolution, got error %v", err)
	}
	if tc.ID() != tenant.MasterID {
		t.Fatalf("expected synthesized master tenant, got %d", tc.ID())
	}
}

func TestResolveIdempotent(t *testing.T) {
	// Resolving the same request twice yields identical results.
	store := newFakeStore()
	r := NewResolver(store, nil, time.Minute)
	req := Request{Host: "b.example.com", Path: "/acme/x", HeaderTenantID: ""}

	first, err1 := r.Resolve(context.Background(), req)
	second, err2 := r.Resolve(context.Background(), req)
	if err1 != nil || err2 != nil {
		t.Fatalf("unexpected errors: %v / %v", err1, err2)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("resolution not idempotent: %+v vs %+v", first, second)
	}
}

func TestResolveCachesTenantLookups(t *testing.T) {
	store := newFakeStore()
	c := &mapCache{data: map[string][]byte{}}
	r := NewResolver(store, c, time.Minute)

	if _, err := r.Resolve(context.Background(), Request{Host: "b.example.com", Path: "/"}); err != nil {
		t.Fatal(err)
	}
	before := store.lookups
	if _, err := r.Resolve(context.Background(), Request{Host: "b.example.com", Path: "/"}); err != nil {
		t.Fatal(err)
	}
	if store.lookups != before {
		t.Fatalf("expected cached lookup, store hit %d more times", store.lookups-before)
	}
}

type mapCache struct {
	data map[string][]byte
}

func (m *mapCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *mapCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.data[key] = value
	return nil
}

func (m *mapCache) Delete(_ context.Context, key string) error {
	delete(m.data, key)
	return nil
}
