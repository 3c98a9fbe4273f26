package server

import (
	"net/http"
	"sync"

	"golang.org/x/time/rate"

	"github.com/doodlesbykumbi/tenant-settings/pkg/identity"
	"github.com/doodlesbykumbi/tenant-settings/pkg/metrics"
	"github.com/doodlesbykumbi/tenant-settings/pkg/tenant"
)

// RateLimiter keeps one token bucket per tenant so a noisy school cannot
// starve the others. Requests without a tenant are bucketed by client IP.
type RateLimiter struct {
	limit rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewRateLimiter allows rps requests per second per tenant with bursts of
// up to burst.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	return &RateLimiter{
		limit:    rate.Limit(rps),
		burst:    burst,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Allow takes a token from the bucket of key.
func (l *RateLimiter) Allow(key string) bool {
	l.mu.Lock()
	lim, ok := l.limiters[key]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[key] = lim
	}
	l.mu.Unlock()
	return lim.Allow()
}

func bucketKey(r *http.Request) string {
	if id, ok := tenant.Current(r.Context()); ok {
		return "t:" + id
	}
	return "ip:" + identity.ClientIP(r.Context())
}

// Middleware answers 429 once a bucket is empty. It must run after the
// tenant and identity middleware.
func (l *RateLimiter) Middleware(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow(bucketKey(r)) {
				m.RateLimited()
				w.Header().Set("Retry-After", "1")
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
