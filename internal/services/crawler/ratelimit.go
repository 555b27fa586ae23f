package crawler

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// HostRateLimiter paces requests per host. Each host gets its own token
// bucket with burst 1, so successive acquisitions for one host are spaced
// at least 1/rps seconds apart while different hosts never block each other.
type HostRateLimiter struct {
	rps      float64
	limiters map[string]*rate.Limiter
	mu       sync.Mutex
}

// NewHostRateLimiter creates a limiter enforcing the given requests/sec per
// host. Rates at or below zero are clamped to a safe floor of 0.1 rps.
func NewHostRateLimiter(rps float64) *HostRateLimiter {
	if rps <= 0 {
		rps = 0.1
	}
	return &HostRateLimiter{
		rps:      rps,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Acquire blocks until the host's rate limit allows another request, or the
// context is cancelled. The first acquisition for a host proceeds immediately.
func (l *HostRateLimiter) Acquire(ctx context.Context, host string) error {
	if host == "" {
		return nil
	}
	return l.limiterFor(host).Wait(ctx)
}

func (l *HostRateLimiter) limiterFor(host string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, ok := l.limiters[host]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(l.rps), 1)
		l.limiters[host] = limiter
	}
	return limiter
}
