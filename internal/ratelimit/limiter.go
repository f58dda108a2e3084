// Package ratelimit enforces a minimum spacing between outbound requests.
package ratelimit

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter grants one request per MinInterval. Waiters are served in the
// order they called Acquire.
type Limiter struct {
	interval time.Duration
	lim      *rate.Limiter
}

// New returns a limiter spacing grants by at least minInterval.
// A non-positive interval never blocks.
func New(minInterval time.Duration) *Limiter {
	if minInterval <= 0 {
		return &Limiter{lim: rate.NewLimiter(rate.Inf, 1)}
	}
	return &Limiter{
		interval: minInterval,
		lim:      rate.NewLimiter(rate.Every(minInterval), 1),
	}
}

// Acquire blocks until the next grant is due or ctx ends. When ctx's
// deadline falls before the next grant it fails at once with an error
// matching context.DeadlineExceeded.
func (l *Limiter) Acquire(ctx context.Context) error {
	if err := l.lim.Wait(ctx); err != nil {
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		return fmt.Errorf("ratelimit: next grant is past the deadline: %w", context.DeadlineExceeded)
	}
	return nil
}

func (l *Limiter) MinInterval() time.Duration { return l.interval }

// HostLimiter keeps one Limiter per API host.
type HostLimiter struct {
	mu       sync.Mutex
	m        map[string]*Limiter
	interval time.Duration
}

func NewHostLimiter(minInterval time.Duration) *HostLimiter {
	return &HostLimiter{
		m:        make(map[string]*Limiter),
		interval: minInterval,
	}
}

// For returns the limiter shared by every caller targeting host.
func (hl *HostLimiter) For(host string) *Limiter {
	hl.mu.Lock()
	defer hl.mu.Unlock()

	if lim, ok := hl.m[host]; ok {
		return lim
	}
	lim := New(hl.interval)
	hl.m[host] = lim
	return lim
}

// ForURL picks the limiter by the host of raw. Unparseable URLs share one bucket.
func (hl *HostLimiter) ForURL(raw string) *Limiter {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return hl.For("_")
	}
	return hl.For(u.Host)
}
