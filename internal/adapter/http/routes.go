package http

import (
	"github.com/go-chi/chi/v5"

	"github.com/hearthhub/hearth/internal/config"
	"github.com/hearthhub/hearth/internal/middleware"
	"github.com/hearthhub/hearth/internal/ratelimit"
	"github.com/hearthhub/hearth/internal/tenancy"
	"github.com/hearthhub/hearth/internal/token"
)

// RouterDeps carries the cross-cutting dependencies the router wires into
// middleware. Handlers receive their own dependencies separately.
type RouterDeps struct {
	Verifier *token.Verifier
	Resolver *tenancy.Resolver
	Limiter  *middleware.RateLimiter
	Throttle *ratelimit.Throttle
	Server   config.Server
	Rate     config.Rate
}

// NewRouter builds the full route tree. Route groups declare their tenant
// resolution class at mount time; nothing is inferred from path text.
func NewRouter(h *Handlers, d RouterDeps) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(SecurityHeaders)
	r.Use(CORS(d.Server.CORSOrigin))
	r.Use(Logger)
	r.Use(d.Limiter.Handler)
	r.Use(middleware.Identity(d.Verifier))

	// Probes stay outside tenant resolution so a broken datastore does not
	// hide liveness.
	r.Get("/health", h.Health)
	r.Get("/health/ready", h.Ready)

	// Browser routes on the bare host: tenant comes from the domain or the
	// session, never from headers.
	r.Group(func(r chi.Router) {
		r.Use(middleware.ResolveTenant(d.Resolver, middleware.RouteClass{}))
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)
		r.Get("/context", h.TenantContext)
	})

	// Browser routes addressed by tenant slug. chi prefers static segments,
	// so /login and /api/v1 are never captured here.
	r.Route("/{slug}", func(r chi.Router) {
		r.Use(middleware.ResolveTenant(d.Resolver, middleware.RouteClass{}))
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)
		r.Get("/context", h.TenantContext)
		r.Get("/features", h.Features)
		r.Get("/pages", h.Pages)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.ResolveTenant(d.Resolver, middleware.RouteClass{API: true}))
		r.Use(middleware.Throttle(d.Throttle, "api", int64(d.Rate.APIMaxAttempts), d.Rate.APIWindow))

		r.Post("/auth/login", h.Login)
		r.Post("/auth/logout", h.Logout)
		r.Get("/context", h.TenantContext)
		r.Get("/features", h.Features)
		r.Get("/pages", h.Pages)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Get("/auth/me", h.Me)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin)
			r.Get("/users/{id}/can-impersonate", h.ImpersonateCheck)
			r.Put("/tenant/features", h.UpdateFeatures)
		})
	})

	// Platform administration. Resolution still runs so handlers see a
	// tenant context, but inactive tenants do not lock super-admins out.
	r.Route("/admin/api", func(r chi.Router) {
		r.Use(middleware.ResolveTenant(d.Resolver, middleware.RouteClass{SuperAdmin: true}))
		r.Use(middleware.RequireSuperAdmin)

		r.Route("/tenants", func(r chi.Router) {
			r.Get("/", h.ListTenants)
			r.Post("/", h.CreateTenant)
			r.Get("/{id}", h.GetTenant)
			r.Put("/{id}", h.UpdateTenant)
		})
	})

	return r
}
