package middleware

import (
	"net/http"
	"time"

	"github.com/upb/identity-gateway/config"
	"github.com/upb/identity-gateway/utils"
	"golang.org/x/time/rate"
)

// RateLimiter applies a process-wide token bucket. A non-positive request
// count or interval disables limiting.
func RateLimiter(cfg config.RateLimitConfig) func(http.Handler) http.Handler {
	if cfg.Requests <= 0 || cfg.Interval <= 0 {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	perRequest := cfg.Interval / time.Duration(cfg.Requests)
	if perRequest <= 0 {
		perRequest = time.Second
	}

	limiter := rate.NewLimiter(rate.Every(perRequest), cfg.Requests)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				w.Header().Set("Retry-After", "1")
				_ = utils.WriteError(w, http.StatusTooManyRequests, utils.ErrorResponse{
					Error: "Rate limit exceeded",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
