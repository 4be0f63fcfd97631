package worker

import (
	"context"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DomainGate enforces a minimum interval between requests to the same host,
// shared by every worker that fetches. Distinct hosts never wait on each
// other. The gate is an explicit object handed to fetch workers, not
// package-level state.
type DomainGate struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
	interval time.Duration
}

// NewDomainGate creates a gate with the given minimum per-host interval
func NewDomainGate(interval time.Duration) *DomainGate {
	if interval <= 0 {
		interval = time.Second
	}
	return &DomainGate{
		limiters: make(map[string]*rate.Limiter),
		interval: interval,
	}
}

// Wait blocks until a request to the URL's host is allowed
func (g *DomainGate) Wait(ctx context.Context, rawURL string) error {
	host, err := extractHost(rawURL)
	if err != nil {
		return err
	}
	return g.limiter(host).Wait(ctx)
}

// WaitHost blocks on a host directly, for requests routed through a
// different URL than the one being archived (e.g. a Wayback lookup).
func (g *DomainGate) WaitHost(ctx context.Context, host string) error {
	return g.limiter(host).Wait(ctx)
}

// Interval returns the configured minimum spacing
func (g *DomainGate) Interval() time.Duration {
	return g.interval
}

// limiter returns the per-host limiter, creating it on first use.
// Burst 1 with limit 1/interval gives exactly the min-spacing contract.
func (g *DomainGate) limiter(host string) *rate.Limiter {
	g.mu.RLock()
	limiter, exists := g.limiters[host]
	g.mu.RUnlock()

	if exists {
		return limiter
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if limiter, exists := g.limiters[host]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(rate.Every(g.interval), 1)
	g.limiters[host] = limiter
	return limiter
}

func extractHost(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	return parsed.Host, nil
}
