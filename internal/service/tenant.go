package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/hearthhub/hearth/internal/domain"
	"github.com/hearthhub/hearth/internal/domain/apierror"
	"github.com/hearthhub/hearth/internal/domain/tenant"
	"github.com/hearthhub/hearth/internal/port/database"
	"github.com/hearthhub/hearth/internal/tenancy"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{1,62}$`)

// TenantService manages tenant records. Mutations invalidate the resolver's
// cached lookups so routing picks up the change immediately.
type TenantService struct {
	store    database.Store
	resolver *tenancy.Resolver
}

// NewTenantService creates the tenant admin service.
func NewTenantService(store database.Store, resolver *tenancy.Resolver) *TenantService {
	return &TenantService{store: store, resolver: resolver}
}

func (s *TenantService) List(ctx context.Context) ([]tenant.Tenant, error) {
	return s.store.ListTenants(ctx)
}

func (s *TenantService) Get(ctx context.Context, id int64) (*tenant.Tenant, error) {
	return s.store.TenantByID(ctx, id)
}

// Create registers a new tenant. The slug becomes a routable path segment,
// so reserved segments and malformed slugs are refused up front; the slug
// is immutable afterwards.
func (s *TenantService) Create(ctx context.Context, req tenant.CreateRequest) (*tenant.Tenant, error) {
	if req.Name == "" {
		return nil, apierror.New(apierror.KindTenantInvalid, "tenant name is required")
	}
	if !slugPattern.MatchString(req.Slug) {
		return nil, apierror.Newf(apierror.KindTenantInvalid, "invalid slug %q", req.Slug)
	}
	if tenancy.ReservedSlug(req.Slug) {
		return nil, apierror.Newf(apierror.KindTenantInvalid, "slug %q is reserved", req.Slug)
	}

	t, err := s.store.CreateTenant(ctx, req)
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, apierror.Newf(apierror.KindTenantInvalid, "slug or domain already in use")
		}
		return nil, fmt.Errorf("create tenant: %w", err)
	}
	return t, nil
}

// Update applies the mutable tenant fields and drops the stale cache
// entries. Slug and domain are not updatable through this path.
func (s *TenantService) Update(ctx context.Context, id int64, req tenant.UpdateRequest) (*tenant.Tenant, error) {
	t, err := s.store.TenantByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != "" {
		t.Name = req.Name
	}
	if req.IsActive != nil {
		t.IsActive = *req.IsActive
	}
	if req.Features != nil {
		if t.Features == nil {
			t.Features = make(map[string]bool, len(req.Features))
		}
		for name, enabled := range req.Features {
			t.Features[name] = enabled
		}
	}

	if err := s.store.UpdateTenant(ctx, t); err != nil {
		return nil, fmt.Errorf("update tenant: %w", err)
	}
	s.resolver.Invalidate(ctx, t)
	return t, nil
}
