package middleware

import (
	"context"
	"net/http"

	"github.com/hearthhub/hearth/internal/domain/identity"
	"github.com/hearthhub/hearth/internal/token"
)

type claimCtxKey struct{}

// Identity is middleware that extracts the request's identity claim from a
// bearer token or session cookie and stores it in the context. Anonymous
// requests pass through with no claim; guards decide whether that matters.
func Identity(verifier *token.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if claim := verifier.Identity(r.Context(), r); claim != nil {
				ctx := context.WithValue(r.Context(), claimCtxKey{}, claim)
				r = r.WithContext(ctx)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClaimFromContext returns the identity claim stored in ctx, or nil for
// anonymous requests.
func ClaimFromContext(ctx context.Context) *identity.Claim {
	claim, _ := ctx.Value(claimCtxKey{}).(*identity.Claim)
	return claim
}
