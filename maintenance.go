package workq

import (
	"context"
	"errors"
	"time"

	"github.com/kart-io/workq/locking"
	"github.com/kart-io/workq/store"
)

// maintenanceAcquireTimeout is the fixed acquire-timeout for the
// throttled distributed lock (§4.3).
const maintenanceAcquireTimeout = 30 * time.Second

// startMaintenance launches the background goroutine that invokes
// maintenance passes back-to-back with no sleep — the throttled lock
// provides the effective cadence (§4.3).
func (q *Queue) startMaintenance() {
	ctx, cancel := context.WithCancel(context.Background())
	q.maintCancel = cancel
	q.maintDone = make(chan struct{})

	go func() {
		defer close(q.maintDone)
		lockName := q.cfg.queueName + "-maintenance"
		throttle := q.cfg.maintenanceThrottle()

		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			err := q.lock.TryUsingLock(ctx, lockName, throttle, maintenanceAcquireTimeout, q.maintenancePass)
			if err != nil && !errors.Is(err, locking.ErrNotAcquired) && !errors.Is(err, context.Canceled) {
				q.log.Warn("maintenance lock attempt failed", "error", err)
			}
		}
	}()
}

func (q *Queue) stopMaintenance() {
	if q.maintCancel == nil {
		return
	}
	q.maintCancel()
	<-q.maintDone
}

// maintenancePass runs the three sweeps in order (§4.3). Each sub-step's
// errors are logged and swallowed; subsequent sub-steps still run, and
// the next pass retries.
func (q *Queue) maintenancePass(ctx context.Context) error {
	q.tel.RecordMaintenancePass(ctx, q.cfg.queueName)

	if err := q.sweepInFlightTimeouts(ctx); err != nil {
		q.log.Error("in-flight timeout sweep failed", "error", err)
	}
	if err := q.sweepDelayedRelease(ctx); err != nil {
		q.log.Error("delayed release sweep failed", "error", err)
	}
	if err := q.sweepDeadLetterTrim(ctx); err != nil {
		q.log.Error("dead-letter trim failed", "error", err)
	}
	return nil
}

// sweepInFlightTimeouts walks the in-flight list in dequeue order
// (§9 open question: in-flight list ordering — dequeue head-pushes onto
// in-flight, so the oldest dequeued item is at the tail; Range returns
// head-to-tail, so we walk it in reverse to visit oldest-dequeued
// first). For each id, a missing dequeue-time is stamped now (deferring
// action one pass); an overdue dequeue-time triggers the Abandon
// transition and increments the work-item-timeout counter.
func (q *Queue) sweepInFlightTimeouts(ctx context.Context) error {
	ids, err := q.store.Range(ctx, q.keys.inFlight())
	if err != nil {
		return err
	}

	now := time.Now()
	for i := len(ids) - 1; i >= 0; i-- {
		id := string(ids[i])

		raw, err := q.store.Get(ctx, q.keys.dequeued(id))
		if errors.Is(err, store.ErrNotFound) {
			if err := q.store.Set(ctx, q.keys.dequeued(id), encodeTime(now), q.cfg.dequeueTTL()); err != nil {
				q.log.Warn("failed to stamp missing dequeue time", "id", id, "error", err)
			}
			continue
		}
		if err != nil {
			q.log.Warn("failed to read dequeue time", "id", id, "error", err)
			continue
		}

		dequeuedAt, ok := decodeTime(raw)
		if !ok || now.Sub(dequeuedAt) <= q.cfg.workItemTimeout {
			continue
		}

		if err := q.Abandon(ctx, id); err != nil {
			q.log.Warn("failed to abandon timed-out id", "id", id, "error", err)
			continue
		}
		q.counters.incWorkItemTimeouts()
	}
	return nil
}

// sweepDelayedRelease releases any delayed id whose wait-until has
// elapsed (or is absent) back onto ready, publishing a wake.
func (q *Queue) sweepDelayedRelease(ctx context.Context) error {
	ids, err := q.store.Range(ctx, q.keys.delayed())
	if err != nil {
		return err
	}

	now := time.Now()
	for _, idBytes := range ids {
		id := string(idBytes)

		raw, err := q.store.Get(ctx, q.keys.waitUntil(id))
		release := errors.Is(err, store.ErrNotFound)
		if err != nil && !release {
			q.log.Warn("failed to read wait-until", "id", id, "error", err)
			continue
		}
		if !release {
			waitUntil, ok := decodeTime(raw)
			release = !ok || !now.Before(waitUntil)
		}
		if !release {
			continue
		}

		txErr := q.store.Tx(ctx, func(tx store.Tx) error {
			tx.Remove(q.keys.delayed(), []byte(id))
			tx.HeadPush(q.keys.ready(), []byte(id))
			tx.Delete(q.keys.waitUntil(id))
			return nil
		})
		if txErr != nil {
			q.log.Warn("failed to release delayed id", "id", id, "error", txErr)
			continue
		}
		if err := q.store.Publish(ctx, q.keys.notifyChan(), []byte(id)); err != nil {
			q.log.Warn("failed to publish release notification", "id", id, "error", err)
		}
	}
	return nil
}

// sweepDeadLetterTrim drops every id beyond index deadLetterMaxItems on
// the dead list (head side holds the newest — §3.1 "head-pushed"), and
// deletes every sidecar key for each dropped id (§4.3, §3.3).
func (q *Queue) sweepDeadLetterTrim(ctx context.Context) error {
	ids, err := q.store.Range(ctx, q.keys.dead())
	if err != nil {
		return err
	}
	if len(ids) <= q.cfg.deadLetterMaxItems {
		return nil
	}

	for _, idBytes := range ids[q.cfg.deadLetterMaxItems:] {
		id := string(idBytes)
		if err := q.store.Remove(ctx, q.keys.dead(), idBytes); err != nil {
			q.log.Warn("failed to trim dead id", "id", id, "error", err)
			continue
		}
		_ = q.store.Delete(ctx, q.keys.payload(id))
		_ = q.store.Delete(ctx, q.keys.attempts(id))
		_ = q.store.Delete(ctx, q.keys.enqueued(id))
		_ = q.store.Delete(ctx, q.keys.dequeued(id))
		_ = q.store.Delete(ctx, q.keys.waitUntil(id))
	}
	return nil
}
