package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// RateLimiter bounds the request rate toward a single host.
type RateLimiter interface {
	Acquire(ctx context.Context, hostKey string) error
}

// HostLimiter keeps one token bucket per host key. Buckets are created
// lazily on first acquire and share the configured rate and burst.
type HostLimiter struct {
	rps      rate.Limit
	burst    int
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func NewHostLimiter(requestsPerSecond float64, burst int) *HostLimiter {
	return &HostLimiter{
		rps:      rate.Limit(requestsPerSecond),
		burst:    burst,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Acquire blocks until a token is available for the host or the context is
// cancelled. Waiting on one host never delays requests to another host.
func (h *HostLimiter) Acquire(ctx context.Context, hostKey string) error {
	return h.limiter(hostKey).Wait(ctx)
}

func (h *HostLimiter) limiter(hostKey string) *rate.Limiter {
	h.mu.Lock()
	defer h.mu.Unlock()

	limiter, ok := h.limiters[hostKey]
	if !ok {
		limiter = rate.NewLimiter(h.rps, h.burst)
		h.limiters[hostKey] = limiter
	}
	return limiter
}
