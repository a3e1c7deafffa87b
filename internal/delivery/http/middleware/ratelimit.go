package middleware

import (
	"context"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"

	"consultations/internal/adapters/ratelimit"
	h "consultations/internal/delivery/http/helpers"
)

// Limiter takes one token for key.
type Limiter interface {
	Allow(ctx context.Context, key string) (ratelimit.Result, error)
}

// RateLimit returns a wrapper that limits requests per caller and route. The
// caller is the authenticated user when known, else the client IP. A nil
// limiter disables limiting; limiter errors let the request through.
func RateLimit(limiter Limiter, logger *slog.Logger) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		if limiter == nil {
			return next
		}
		return func(w http.ResponseWriter, r *http.Request) {
			key := rateKey(r)
			res, err := limiter.Allow(r.Context(), key)
			if err != nil {
				logger.WarnContext(r.Context(), "rate limiter unavailable", "key", key, "err", err)
				next(w, r)
				return
			}
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			if !res.Allowed {
				secs := int(math.Ceil(res.RetryAfter.Seconds()))
				w.Header().Set("Retry-After", strconv.Itoa(secs))
				h.WriteJSONError(w, http.StatusTooManyRequests, h.ErrCodeRateLimited, "rate limit exceeded")
				return
			}
			next(w, r)
		}
	}
}

func rateKey(r *http.Request) string {
	route := r.Pattern
	if route == "" {
		route = r.Method + " " + r.URL.Path
	}
	if id, ok := IdentityFromContext(r.Context()); ok {
		return "user:" + id.UserID + ":" + route
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		ip = r.RemoteAddr
	}
	return "ip:" + ip + ":" + route
}
