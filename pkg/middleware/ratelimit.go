package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/Dataset-Ingestion-Platform/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Dataset-Ingestion-Platform/pkg/ratelimit"
)

// RateLimit refuses requests with 429 once the client address has used up its
// tokens in limiter.
func RateLimit(limiter *ratelimit.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client := clientAddr(r)
			if limiter.Allow(client) {
				next.ServeHTTP(w, r)
				return
			}
			logger.FromContext(r.Context()).Warn("upload rate limited", "client", client)
			w.Header().Set("Retry-After", strconv.Itoa(max(int(limiter.RetryAfter().Seconds()), 1)))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]string{
				"error":   "RateLimited",
				"message": "too many uploads from this client; retry later",
			})
		})
	}
}

func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
