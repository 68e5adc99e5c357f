package http

import (
	"context"
	"net/http"

	"github.com/hearthhub/hearth/internal/domain/page"
	"github.com/hearthhub/hearth/internal/middleware"
	"github.com/hearthhub/hearth/internal/service"
)

// pinger is the slice of pgxpool.Pool used by the readiness probe.
type pinger interface {
	Ping(ctx context.Context) error
}

// pageLister is the slice of the postgres store serving tenant page reads.
type pageLister interface {
	PublishedPages(ctx context.Context, tenantID int64) ([]page.Page, error)
}

// Handlers bundles the HTTP handlers and their dependencies.
type Handlers struct {
	auth    *service.AuthService
	tenants *service.TenantService
	pages   pageLister
	db      pinger
}

// NewHandlers creates the handler set.
func NewHandlers(auth *service.AuthService, tenants *service.TenantService, pages pageLister, db pinger) *Handlers {
	return &Handlers{auth: auth, tenants: tenants, pages: pages, db: db}
}

// Health is the liveness probe.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready is the readiness probe; it fails when the datastore is unreachable.
func (h *Handlers) Ready(w http.ResponseWriter, r *http.Request) {
	if err := h.db.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// TenantContext reports how the current request resolved: tenant id, base
// path, and the effective feature map. Used by frontends and for routing
// diagnosis.
func (h *Handlers) TenantContext(w http.ResponseWriter, r *http.Request) {
	tc := middleware.TenantFromContext(r.Context())
	t := tc.Tenant()
	writeOK(w, http.StatusOK, map[string]any{
		"tenant_id": t.ID,
		"name":      t.Name,
		"slug":      t.Slug,
		"base_path": tc.BasePath(),
		"is_master": t.IsMaster(),
		"features":  t.EffectiveFeatures(),
	})
}

// Features returns the current tenant's effective feature map.
func (h *Handlers) Features(w http.ResponseWriter, r *http.Request) {
	t := middleware.TenantFromContext(r.Context()).Tenant()
	writeOK(w, http.StatusOK, t.EffectiveFeatures())
}

// Pages lists the resolved tenant's published pages.
func (h *Handlers) Pages(w http.ResponseWriter, r *http.Request) {
	tc := middleware.TenantFromContext(r.Context())
	pages, err := h.pages.PublishedPages(r.Context(), tc.ID())
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if pages == nil {
		pages = []page.Page{}
	}
	writeOK(w, http.StatusOK, pages)
}
