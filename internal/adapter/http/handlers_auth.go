package http

import (
	"net/http"

	"github.com/hearthhub/hearth/internal/middleware"
	"github.com/hearthhub/hearth/internal/service"
	"github.com/hearthhub/hearth/internal/token"
)

// Login authenticates against the resolved tenant, sets a session cookie
// for browser clients, and returns a bearer token for API clients.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[service.LoginRequest](w, r)
	if !ok {
		return
	}

	tc := middleware.TenantFromContext(r.Context())
	res, err := h.auth.Login(r.Context(), tc.ID(), req, middleware.ClientIP(r))
	if err != nil {
		writeErr(w, r, err)
		return
	}

	if res.SessionID != "" {
		http.SetCookie(w, &http.Cookie{
			Name:     token.SessionCookie,
			Value:    res.SessionID,
			Path:     "/",
			MaxAge:   int(h.auth.SessionTTL().Seconds()),
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}

	writeOK(w, http.StatusOK, map[string]any{
		"token": res.Token,
		"user": map[string]any{
			"id":    res.User.ID,
			"email": res.User.Email,
			"name":  res.User.Name,
			"role":  res.User.Role,
		},
	})
}

// Logout drops the server-side session and expires the cookie.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(token.SessionCookie); err == nil && cookie.Value != "" {
		if err := h.auth.Logout(r.Context(), cookie.Value); err != nil {
			writeErr(w, r, err)
			return
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     token.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeOK(w, http.StatusOK, map[string]any{"logged_out": true})
}

// Me returns the authenticated caller's identity.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	claim := middleware.ClaimFromContext(r.Context())
	writeOK(w, http.StatusOK, map[string]any{
		"user_id":        claim.UserID,
		"tenant_id":      claim.TenantID,
		"role":           claim.EffectiveRole(),
		"is_super_admin": claim.SuperAdmin,
		"is_god":         claim.God,
	})
}

// ImpersonateCheck reports whether the caller may impersonate the target
// user. Consumed by admin tooling before offering the action.
func (h *Handlers) ImpersonateCheck(w http.ResponseWriter, r *http.Request) {
	targetID, ok := urlParamInt64(w, r, "id")
	if !ok {
		return
	}

	claim := middleware.ClaimFromContext(r.Context())
	allowed, err := h.auth.CanImpersonate(r.Context(), claim, targetID)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{"allowed": allowed})
}
