package chi

import (
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"
)

// TenantRateLimiter throttles requests per tenant with a token bucket.
// Limiters are created lazily and kept for the process lifetime; tenant
// cardinality is bounded by the customer base.
type TenantRateLimiter struct {
	rps      rate.Limit
	burst    int
	limiters sync.Map // tenantID -> *rate.Limiter
}

// NewTenantRateLimiter creates a limiter allowing rps requests per second
// with the given burst per tenant.
func NewTenantRateLimiter(rps float64, burst int) *TenantRateLimiter {
	return &TenantRateLimiter{rps: rate.Limit(rps), burst: burst}
}

// Middleware rejects over-limit requests with 429. Must be mounted inside
// the tenant route scope so the tenantID URL parameter resolves.
func (t *TenantRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "tenantID")
		if key == "" {
			key = r.RemoteAddr
		}

		if !t.limiter(key).Allow() {
			writeError(w, http.StatusTooManyRequests, codeRateLimited, "rate limited")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (t *TenantRateLimiter) limiter(key string) *rate.Limiter {
	if l, ok := t.limiters.Load(key); ok {
		return l.(*rate.Limiter)
	}
	l, _ := t.limiters.LoadOrStore(key, rate.NewLimiter(t.rps, t.burst))
	return l.(*rate.Limiter)
}
