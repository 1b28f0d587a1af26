package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/equipqr/equipqr-backend/api/responses"
	pkgerrors "github.com/equipqr/equipqr-backend/pkg/errors"
	"github.com/equipqr/equipqr-backend/pkg/logger"
)

// RateLimiter is the counting surface the middleware needs from Redis.
type RateLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// RateLimit caps how often a caller may hit the wrapped routes inside a fixed
// window. The counter is scoped per organization (per user before org context
// is resolved) so one tenant cannot starve another.
func RateLimit(limiter RateLimiter, name string, limit int64, window time.Duration, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil {
				next.ServeHTTP(w, r)
				return
			}

			allowed, _, err := limiter.FixedWindowAllow(r.Context(), rateLimitScope(r, name), limit, window)
			if err != nil {
				// A Redis hiccup must not take write paths down with it.
				if logg != nil {
					logg.Error(r.Context(), "rate limit check failed", err)
				}
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				w.Header().Set("Retry-After", strconv.Itoa(int(window/time.Second)))
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeRateLimit, "rate limit exceeded"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func rateLimitScope(r *http.Request, name string) string {
	subject := OrgIDFromContext(r.Context())
	if subject == "" {
		subject = UserIDFromContext(r.Context())
	}
	if subject == "" {
		subject = "anonymous"
	}
	return fmt.Sprintf("%s:%s", name, subject)
}
