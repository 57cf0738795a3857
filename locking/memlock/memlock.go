// Package memlock is an in-process locking.Provider used by workq's own
// test suite, standing in for redislock.Provider the way memstore stands
// in for redisstore. It throttles within a single process via a map of
// per-name expiry deadlines guarded by a mutex.
package memlock

import (
	"context"
	"sync"
	"time"

	"github.com/kart-io/workq/locking"
)

// Provider implements locking.Provider entirely in process memory.
type Provider struct {
	mu      sync.Mutex
	windows map[string]time.Time
}

// New creates an empty provider.
func New() *Provider {
	return &Provider{windows: make(map[string]time.Time)}
}

func (p *Provider) TryUsingLock(ctx context.Context, name string, throttle, acquireTimeout time.Duration, body func(ctx context.Context) error) error {
	deadline := time.Now().Add(acquireTimeout)

	for {
		if p.tryAcquire(name, throttle) {
			return body(ctx)
		}

		if time.Now().After(deadline) {
			return locking.ErrNotAcquired
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func (p *Provider) tryAcquire(name string, throttle time.Duration) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	if until, ok := p.windows[name]; ok && now.Before(until) {
		return false
	}
	p.windows[name] = now.Add(throttle)
	return true
}
