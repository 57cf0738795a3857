// Package redislock implements locking.Provider on top of Redis SETNX,
// the way the teacher leans on the same go-redis client for every
// cross-process coordination concern. The lock key doubles as the
// throttle marker: the first participant to SETNX it with a TTL equal
// to the throttle interval runs body; everyone else observes the key
// already present and skips. Nobody explicitly deletes the key — its
// TTL expiring is what opens the next throttle window.
package redislock

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kart-io/workq/internal/wqlog"
	"github.com/kart-io/workq/locking"
)

// pollInterval governs how often a participant retries SETNX while
// waiting out acquireTimeout on a window another participant already won.
const pollInterval = 50 * time.Millisecond

// Provider implements locking.Provider against a *redis.Client.
type Provider struct {
	client *redis.Client
	logger wqlog.Logger
}

// New wraps an existing Redis client. The client is typically the same
// one backing the queue's redisstore.Store.
func New(client *redis.Client, log wqlog.Logger) *Provider {
	if log == nil {
		log = wqlog.Discard
	}
	return &Provider{client: client, logger: log}
}

func (p *Provider) TryUsingLock(ctx context.Context, name string, throttle, acquireTimeout time.Duration, body func(ctx context.Context) error) error {
	deadline := time.Now().Add(acquireTimeout)
	token := fmt.Sprintf("%d", time.Now().UnixNano())

	for {
		ok, err := p.client.SetNX(ctx, lockKey(name), token, throttle).Result()
		if err != nil {
			return fmt.Errorf("redislock: setnx %s: %w", name, err)
		}
		if ok {
			p.logger.Debug("lock acquired", "name", name, "throttle", throttle)
			return body(ctx)
		}

		if time.Now().After(deadline) {
			return locking.ErrNotAcquired
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

func lockKey(name string) string {
	return "lock:" + name
}
