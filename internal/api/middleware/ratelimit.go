package middleware

import (
	"encoding/json"
	"net"
	"net/http"

	"go.uber.org/zap"

	"github.com/ricirt/pulse/internal/domain"
	"github.com/ricirt/pulse/internal/ratelimiter"
)

// RateLimit rejects requests with 429 once the client IP has used up its
// token bucket. Place it after chi's RealIP so proxied clients are keyed by
// their own address.
func RateLimit(limiters *ratelimiter.ClientLimiters, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientKey(r)
			if !limiters.Allow(key) {
				logger.Debug("rate limited",
					zap.String("client", key),
					zap.String("path", r.URL.Path),
					zap.String("correlation_id", GetCorrelationID(r.Context())),
				)
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": domain.ErrRateLimited.Error()})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientKey(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
