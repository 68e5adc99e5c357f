package middleware

import (
	"net/http"

	"github.com/hearthhub/hearth/internal/authz"
	"github.com/hearthhub/hearth/internal/domain/apierror"
)

// RequireAuth rejects anonymous requests with a 401 so clients can
// distinguish "log in first" from "not allowed".
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ClaimFromContext(r.Context()) == nil {
			WriteError(w, r, apierror.New(apierror.KindAuthenticationRequired, "authentication required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin admits admins of the resolved tenant. The caller's tenant is
// cross-checked against the resolved context unless the caller carries
// cross-tenant privilege: an admin of tenant A must not administer tenant B
// by switching the URL's slug.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claim := ClaimFromContext(r.Context())
		if claim == nil {
			WriteError(w, r, apierror.New(apierror.KindAuthenticationRequired, "authentication required"))
			return
		}
		if claim.God {
			next.ServeHTTP(w, r)
			return
		}
		if !authz.IsAdmin(claim) {
			WriteError(w, r, apierror.New(apierror.KindAuthorizationDenied, "admin privilege required"))
			return
		}
		if !claim.Elevated() {
			tc := TenantFromContext(r.Context())
			if tc == nil || tc.ID() != claim.TenantID {
				WriteError(w, r, apierror.New(apierror.KindAuthorizationDenied, "not an admin of this tenant"))
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// RequireSuperAdmin admits super-admins and god.
func RequireSuperAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claim := ClaimFromContext(r.Context())
		if claim == nil {
			WriteError(w, r, apierror.New(apierror.KindAuthenticationRequired, "authentication required"))
			return
		}
		if !claim.Elevated() {
			WriteError(w, r, apierror.New(apierror.KindAuthorizationDenied, "super-admin privilege required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireGod admits only god.
func RequireGod(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claim := ClaimFromContext(r.Context())
		if claim == nil {
			WriteError(w, r, apierror.New(apierror.KindAuthenticationRequired, "authentication required"))
			return
		}
		if !claim.God {
			WriteError(w, r, apierror.New(apierror.KindAuthorizationDenied, "operator privilege required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
