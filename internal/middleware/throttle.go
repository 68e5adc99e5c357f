package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/hearthhub/hearth/internal/domain/apierror"
	"github.com/hearthhub/hearth/internal/ratelimit"
)

// Throttle returns middleware enforcing a fixed-window budget per caller on
// the wrapped route group. Authenticated callers are keyed by user id so a
// shared NAT does not pool their budgets; anonymous callers fall back to
// the source IP.
func Throttle(th *ratelimit.Throttle, scope string, max int64, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := scope + ":ip:" + ClientIP(r)
			if claim := ClaimFromContext(r.Context()); claim != nil {
				key = fmt.Sprintf("%s:user:%d", scope, claim.UserID)
			}

			allowed, err := th.Attempt(r.Context(), key, max, window)
			if err != nil {
				// Both counter stores down. Failing open here would turn a
				// Redis and Postgres outage into an unthrottled surface.
				WriteError(w, r, apierror.New(apierror.KindDependencyFailure,
					"rate limiting unavailable").WithCause(err))
				return
			}

			state, err := th.GetState(r.Context(), key, max, window)
			if err == nil {
				w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", state.Limit))
				w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", state.Remaining))
				w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", state.ResetAt.Unix()))
			}

			if !allowed {
				retryAfter := time.Until(state.ResetAt)
				if retryAfter <= 0 {
					retryAfter = time.Second
				}
				WriteError(w, r, apierror.New(apierror.KindRateLimited,
					"rate limit exceeded").WithRetryAfter(retryAfter))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
