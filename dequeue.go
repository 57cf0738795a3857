package workq

import (
	"context"
	"errors"
	"time"

	"github.com/kart-io/workq/internal/telemetry"
	"github.com/kart-io/workq/store"
)

// defaultDequeueTimeout is applied when Dequeue's timeout argument is <= 0.
const defaultDequeueTimeout = 30 * time.Second

// pollInterval bounds how long the idle wait sleeps between notification
// wakes when nothing arrives on the notification channel — a fallback
// for missed publishes, matching the idle-poll fallback §9 allows.
const pollInterval = 200 * time.Millisecond

// Dequeue performs the atomic tail-pop-from-ready, head-push-to-in-flight
// move (§4.1 Dequeue). If ready is empty it waits for either a
// notification-channel wake, the timeout, or cancellation, whichever
// comes first. Returns (nil, nil) — "absent" — on timeout, cancellation,
// or a stale (payload-missing) entry.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (*QueueEntry, error) {
	if q.isDisposed() {
		return nil, ErrQueueDisposed
	}
	if timeout <= 0 {
		timeout = defaultDequeueTimeout
	}

	ctx, span := q.tel.StartSpan(ctx, q.cfg.queueName, "dequeue")
	defer telemetry.EndSpan(span)

	deadline := time.Now().Add(timeout)

	wake := make(chan struct{}, 1)
	cancel, err := q.store.Subscribe(ctx, q.keys.notifyChan(), func([]byte) {
		select {
		case wake <- struct{}{}:
		default:
		}
	})
	if err != nil {
		q.tel.RecordFault(ctx, span, "dequeue", err)
		return nil, transientf("dequeue", err)
	}
	defer cancel()

	for {
		id, err := q.store.TailPopHeadPush(ctx, q.keys.ready(), q.keys.inFlight())
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			q.tel.RecordFault(ctx, span, "dequeue", err)
			return nil, transientf("dequeue", err)
		}
		if err == nil {
			return q.onDequeued(ctx, string(id))
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, nil
		}
		wait := pollInterval
		if remaining < wait {
			wait = remaining
		}

		select {
		case <-ctx.Done():
			return nil, nil
		case <-wake:
		case <-time.After(wait):
		}
	}
}

// onDequeued stamps dequeue-time, fetches the payload/enqueue-time/
// attempts, and constructs the QueueEntry. A missing payload is treated
// as a stale ready-list artifact: the id is removed from in-flight and
// dequeue returns absent, per §4.1 Dequeue and §7.
func (q *Queue) onDequeued(ctx context.Context, id string) (*QueueEntry, error) {
	now := time.Now()
	if err := q.store.Set(ctx, q.keys.dequeued(id), encodeTime(now), q.cfg.dequeueTTL()); err != nil {
		q.log.Warn("failed to record dequeue time", "id", id, "error", err)
	}

	payload, err := q.store.Get(ctx, q.keys.payload(id))
	if errors.Is(err, store.ErrNotFound) {
		if err := q.store.Remove(ctx, q.keys.inFlight(), []byte(id)); err != nil {
			q.log.Warn("failed to remove stale in-flight id", "id", id, "error", err)
		}
		return nil, nil
	}
	if err != nil {
		return nil, transientf("dequeue", err)
	}

	// A missing enqueue-time defaults to the epoch; a missing attempts
	// counter defaults to 0 (never yet abandoned), matching Abandon's own
	// `attempts ?? 0` convention and the walked basic-lifecycle example
	// (first dequeue, attempts=0) in §4.1/§8.
	enqueuedAt := time.Unix(0, 0).UTC()
	if raw, err := q.store.Get(ctx, q.keys.enqueued(id)); err == nil {
		if t, ok := decodeTime(raw); ok {
			enqueuedAt = t
		}
	}

	attempts := 0
	if raw, err := q.store.Get(ctx, q.keys.attempts(id)); err == nil {
		if n, ok := decodeAttempts(raw); ok {
			attempts = n
		}
	}

	entry := &QueueEntry{
		ID:         id,
		Payload:    payload,
		EnqueuedAt: enqueuedAt,
		Attempts:   attempts,
		queue:      q,
	}

	q.counters.incDequeued()
	q.cfg.behaviors.OnDequeued(entry)

	return entry, nil
}
