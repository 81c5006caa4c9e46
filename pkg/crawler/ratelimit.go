package crawler

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DomainLimiter enforces a minimum delay between two fetches to the same
// domain. Each domain gets its own token bucket, so waiting on one domain
// never serializes fetches to another; the shared mutex only guards slot
// creation.
type DomainLimiter struct {
	interval time.Duration

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewDomainLimiter creates a limiter spacing same-domain requests at least
// interval apart. A non-positive interval disables all waiting.
func NewDomainLimiter(interval time.Duration) *DomainLimiter {
	return &DomainLimiter{
		interval: interval,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Wait blocks until the politeness delay for the domain has elapsed, then
// records the access. Returns early with the context error on cancellation.
func (d *DomainLimiter) Wait(ctx context.Context, domain string) error {
	if d == nil || d.interval <= 0 || domain == "" {
		return nil
	}
	return d.limiterFor(strings.ToLower(domain)).Wait(ctx)
}

func (d *DomainLimiter) limiterFor(domain string) *rate.Limiter {
	d.mu.Lock()
	defer d.mu.Unlock()
	limiter, ok := d.limiters[domain]
	if !ok {
		// Burst of one: consecutive events are spaced exactly one
		// interval apart.
		limiter = rate.NewLimiter(rate.Every(d.interval), 1)
		d.limiters[domain] = limiter
	}
	return limiter
}
