package middleware

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/httprate"

	"github.com/leadbox/leadbox/internal/model"
)

// Limiter admits or rejects a request for a client key.
type Limiter interface {
	Allow(key string) bool
}

// ClientKey identifies the caller by IP. When RealIP runs earlier in the
// chain, RemoteAddr already holds the forwarded address without a port.
func ClientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Throttle rejects requests the limiter refuses with 429 and a
// {"status":"too_many_requests"} body.
func Throttle(limiter Limiter, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := ClientKey(r)
			if !limiter.Allow(key) {
				logger.Debug("submission throttled", "client", key, "request_id", GetRequestID(r.Context()))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(model.StatusResponse{Status: model.ResultTooManyRequests})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// LoginRateLimit caps login attempts per IP per minute using a sliding window.
func LoginRateLimit(requestsPerMinute int) func(http.Handler) http.Handler {
	return httprate.Limit(
		requestsPerMinute,
		time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "Too many login attempts. Try again later.", http.StatusTooManyRequests)
		}),
	)
}
