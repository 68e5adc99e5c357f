package middleware

import (
	"context"
	"net/http"

	hearthotel "github.com/hearthhub/hearth/internal/adapter/otel"
	"github.com/hearthhub/hearth/internal/domain/tenant"
	"github.com/hearthhub/hearth/internal/tenancy"
)

const headerTenantID = "X-Tenant-Id"

type tenantCtxKey struct{}

// RouteClass marks how a mounted route group participates in tenant
// resolution. Classification is declared at mount time, never inferred
// from path text.
type RouteClass struct {
	API        bool
	SuperAdmin bool
}

// ResolveTenant is middleware that runs the tenant resolver exactly once
// per request and publishes the immutable resolved context. Resolution
// errors terminate the request here; no handler runs with an ambiguous
// tenant.
func ResolveTenant(resolver *tenancy.Resolver, class RouteClass) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			spanCtx, span := hearthotel.StartResolveSpan(r.Context(), r.Host, r.URL.Path)
			r = r.WithContext(spanCtx)

			tc, err := resolver.Resolve(r.Context(), tenancy.Request{
				Host:            r.Host,
				HeaderTenantID:  r.Header.Get(headerTenantID),
				Path:            r.URL.Path,
				Identity:        ClaimFromContext(r.Context()),
				APIRoute:        class.API,
				SuperAdminRoute: class.SuperAdmin,
			})
			span.End()
			if err != nil {
				WriteError(w, r, err)
				return
			}

			ctx := context.WithValue(r.Context(), tenantCtxKey{}, tc)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// TenantFromContext returns the resolved tenant context, or nil when
// resolution middleware has not run.
func TenantFromContext(ctx context.Context) *tenant.Context {
	tc, _ := ctx.Value(tenantCtxKey{}).(*tenant.Context)
	return tc
}
