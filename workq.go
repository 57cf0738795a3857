// Package workq implements a reliable, at-least-once distributed work
// queue backed by a shared key/value store with list primitives and a
// publish/subscribe channel. Producers enqueue typed payloads; one or
// more competing consumer processes dequeue and process them with
// timeouts, retries with backoff, a dead-letter sink, and cooperative
// maintenance performed by any healthy participant.
package workq

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/kart-io/workq/internal/telemetry"
	"github.com/kart-io/workq/internal/wqlog"
	"github.com/kart-io/workq/locking"
	"github.com/kart-io/workq/store"
)

// Queue is one producer/consumer/maintenance participant bound to a
// single logical queue name. Multiple Queue instances, in the same
// process or across processes, may share the same queueName and store.
type Queue struct {
	cfg   *Config
	keys  keySchema
	store store.Store
	lock  locking.Provider
	log   wqlog.Logger
	tel   *telemetry.Telemetry

	counters counters

	disposed int32

	workerMu     sync.Mutex
	working      bool
	workerCancel context.CancelFunc

	maintCancel context.CancelFunc
	maintDone   chan struct{}
}

// New constructs a Queue against st for queueName, applying opts over
// the documented defaults (§6.4). If lock is nil and maintenance is
// enabled, New returns an error: maintenance cannot run without a lock
// provider.
func New(queueName string, st store.Store, lock locking.Provider, log wqlog.Logger, tel *telemetry.Telemetry, opts ...Option) (*Queue, error) {
	cfg := defaultConfig(queueName)
	for _, opt := range opts {
		opt.apply(cfg)
	}
	if cfg.runMaintenanceTasks && lock == nil {
		return nil, fmt.Errorf("workq: runMaintenanceTasks requires a non-nil locking.Provider")
	}
	if log == nil {
		log = wqlog.Discard
	}

	q := &Queue{
		cfg:   cfg,
		keys:  newKeySchema(cfg.queueName),
		store: st,
		lock:  lock,
		log:   log,
		tel:   tel,
	}

	if cfg.runMaintenanceTasks {
		q.startMaintenance()
	}

	return q, nil
}

func (q *Queue) isDisposed() bool {
	return atomic.LoadInt32(&q.disposed) == 1
}

// DeleteQueue removes all four lists and their sidecar keys, and zeroes
// the cumulative counters (§6.1).
func (q *Queue) DeleteQueue(ctx context.Context) error {
	if q.isDisposed() {
		return ErrQueueDisposed
	}
	for _, list := range []string{q.keys.ready(), q.keys.inFlight(), q.keys.delayed(), q.keys.dead()} {
		ids, err := q.store.Range(ctx, list)
		if err != nil {
			return transientf("delete_queue", err)
		}
		for _, id := range ids {
			idStr := string(id)
			_ = q.store.Delete(ctx, q.keys.payload(idStr))
			_ = q.store.Delete(ctx, q.keys.attempts(idStr))
			_ = q.store.Delete(ctx, q.keys.enqueued(idStr))
			_ = q.store.Delete(ctx, q.keys.dequeued(idStr))
			_ = q.store.Delete(ctx, q.keys.waitUntil(idStr))
		}
		if err := q.store.Delete(ctx, list); err != nil {
			return transientf("delete_queue", err)
		}
	}
	q.counters.reset()
	return nil
}

// DeadLetterItems is explicitly not supported in the core (§6.1, §9):
// callers receive ErrNotImplemented rather than an invented capability.
func (q *Queue) DeadLetterItems(ctx context.Context) ([]string, error) {
	if q.isDisposed() {
		return nil, ErrQueueDisposed
	}
	return nil, ErrNotImplemented
}

// Dispose stops working (if active), stops maintenance (if active), and
// tears down the queue's pub/sub subscriptions. A disposed Queue rejects
// further operations with ErrQueueDisposed.
func (q *Queue) Dispose() error {
	if !atomic.CompareAndSwapInt32(&q.disposed, 0, 1) {
		return nil
	}
	q.StopWorking()
	q.stopMaintenance()
	return q.store.UnsubscribeAll()
}
