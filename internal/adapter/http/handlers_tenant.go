package http

import (
	"errors"
	"net/http"

	"github.com/hearthhub/hearth/internal/domain"
	"github.com/hearthhub/hearth/internal/domain/apierror"
	"github.com/hearthhub/hearth/internal/domain/tenant"
	"github.com/hearthhub/hearth/internal/middleware"
)

// ListTenants returns every tenant. Super-admin only.
func (h *Handlers) ListTenants(w http.ResponseWriter, r *http.Request) {
	tenants, err := h.tenants.List(r.Context())
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, tenants)
}

// CreateTenant registers a new tenant. Super-admin only.
func (h *Handlers) CreateTenant(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[tenant.CreateRequest](w, r)
	if !ok {
		return
	}

	created, err := h.tenants.Create(r.Context(), req)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, created)
}

// GetTenant returns one tenant by id. Super-admin only.
func (h *Handlers) GetTenant(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamInt64(w, r, "id")
	if !ok {
		return
	}

	t, err := h.tenants.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeErr(w, r, apierror.Newf(apierror.KindTenantInvalid, "unknown tenant id %d", id))
			return
		}
		writeErr(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, t)
}

// UpdateTenant applies name, activation, and feature changes. Super-admin
// only; deactivation takes effect on the next resolution.
func (h *Handlers) UpdateTenant(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamInt64(w, r, "id")
	if !ok {
		return
	}
	req, ok := readJSON[tenant.UpdateRequest](w, r)
	if !ok {
		return
	}

	updated, err := h.tenants.Update(r.Context(), id, req)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeErr(w, r, apierror.Newf(apierror.KindTenantInvalid, "unknown tenant id %d", id))
			return
		}
		writeErr(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, updated)
}

// UpdateFeatures toggles features on the caller's resolved tenant. Tenant
// admins may do this for their own tenant; the guard enforces that.
func (h *Handlers) UpdateFeatures(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[map[string]bool](w, r)
	if !ok {
		return
	}

	tc := middleware.TenantFromContext(r.Context())
	updated, err := h.tenants.Update(r.Context(), tc.ID(), tenant.UpdateRequest{Features: req})
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, updated.EffectiveFeatures())
}
