package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hearthhub/hearth/internal/domain"
	"github.com/hearthhub/hearth/internal/domain/identity"
	"github.com/hearthhub/hearth/internal/domain/tenant"
	"github.com/hearthhub/hearth/internal/tenancy"
)

// stubStore serves a fixed tenant set; everything else is not found.
type stubStore struct {
	tenants map[int64]tenant.Tenant
}

func (s *stubStore) TenantByID(_ context.Context, id int64) (*tenant.Tenant, error) {
	if t, ok := s.tenants[id]; ok {
		return &t, nil
	}
	return nil, domain.ErrNotFound
}

func (s *stubStore) TenantBySlug(_ context.Context, slug string) (*tenant.Tenant, error) {
	for _, t := range s.tenants {
		if t.Slug == slug {
			return &t, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *stubStore) TenantByDomain(_ context.Context, d string) (*tenant.Tenant, error) {
	for _, t := range s.tenants {
		if t.Domain == d {
			return &t, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *stubStore) ListTenants(context.Context) ([]tenant.Tenant, error) { return nil, nil }
func (s *stubStore) CreateTenant(context.Context, tenant.CreateRequest) (*tenant.Tenant, error) {
	return nil, domain.ErrConflict
}
func (s *stubStore) UpdateTenant(context.Context, *tenant.Tenant) error { return nil }
func (s *stubStore) UserByID(context.Context, int64) (*identity.User, error) {
	return nil, domain.ErrNotFound
}
func (s *stubStore) UserByEmail(context.Context, int64, string) (*identity.User, error) {
	return nil, domain.ErrNotFound
}
func (s *stubStore) UserPrivilege(context.Context, int64) (bool, bool, error) {
	return false, false, nil
}
func (s *stubStore) MasterPageExists(context.Context, string) (bool, error) { return false, nil }
func (s *stubStore) CountFailedAttempts(context.Context, string, string, time.Time) (int, time.Time, error) {
	return 0, time.Time{}, nil
}
func (s *stubStore) RecordAttempt(context.Context, string, string, string, bool, time.Time) error {
	return nil
}
func (s *stubStore) ClearFailedAttempts(context.Context, string, string) error { return nil }
func (s *stubStore) PruneAttemptsBefore(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func testResolver() *tenancy.Resolver {
	store := &stubStore{tenants: map[int64]tenant.Tenant{
		1:  {ID: 1, Name: "Platform", Slug: "hearth", IsActive: true},
		12: {ID: 12, Name: "Acme", Slug: "acme", IsActive: true},
	}}
	return tenancy.NewResolver(store, nil, time.Minute)
}

func withClaim(r *http.Request, claim *identity.Claim) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), claimCtxKey{}, claim))
}

func TestResolveTenantPublishesContext(t *testing.T) {
	var seen *tenant.Context
	handler := ResolveTenant(testResolver(), RouteClass{})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = TenantFromContext(r.Context())
		}))

	r := httptest.NewRequest("GET", "/acme/listings", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if seen == nil || seen.ID() != 12 || seen.BasePath() != "/acme" {
		t.Fatalf("unexpected resolved context %+v", seen)
	}
}

func TestResolveTenantErrorTerminates(t *testing.T) {
	called := false
	handler := ResolveTenant(testResolver(), RouteClass{})(
		http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))

	r := httptest.NewRequest("GET", "/nope/page", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	if called {
		t.Fatal("handler ran after resolution failure")
	}
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}

	var body struct {
		Success bool   `json:"success"`
		Code    string `json:"code"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Success || body.Code != "TENANT_NOT_FOUND" {
		t.Fatalf("unexpected body %s", w.Body.String())
	}
}

func TestResolveTenantErrorAsHTML(t *testing.T) {
	handler := ResolveTenant(testResolver(), RouteClass{})(
		http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	r := httptest.NewRequest("GET", "/nope/page", nil)
	r.Header.Set("Accept", "text/html")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	if ct := w.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Fatalf("content type = %q", ct)
	}
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestRequestIDGeneratedAndEchoed(t *testing.T) {
	handler := RequestID(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
	if w.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected generated request id")
	}

	w = httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("X-Request-ID", "fixed-id")
	handler.ServeHTTP(w, r)
	if got := w.Header().Get("X-Request-ID"); got != "fixed-id" {
		t.Fatalf("request id = %q, want fixed-id", got)
	}
}
