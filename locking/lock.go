// Package locking defines the distributed-lock-provider contract workq's
// maintenance loop uses to throttle itself across participants (§6.3,
// §4.3). A provider guarantees body runs at most once per throttle
// interval across every participant racing to acquire the same name; it
// does not guarantee mutual exclusion beyond that window.
package locking

import (
	"context"
	"errors"
	"time"
)

// ErrNotAcquired is returned by TryUsingLock when the lock could not be
// acquired before acquireTimeout elapsed — including the common case
// where another participant already ran body this interval. Callers
// treat it as "skip this pass", not as a fault.
var ErrNotAcquired = errors.New("locking: lock not acquired")

// Provider is the distributed lock contract external to the queue engine.
type Provider interface {
	// TryUsingLock acquires name, throttled to at most one successful
	// body execution per throttle across all participants, waiting up
	// to acquireTimeout to acquire. Returns ErrNotAcquired if the
	// deadline elapses first — including when another participant has
	// already run body for the current throttle window.
	TryUsingLock(ctx context.Context, name string, throttle, acquireTimeout time.Duration, body func(ctx context.Context) error) error
}
