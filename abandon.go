package workq

import (
	"context"
	"time"

	"github.com/kart-io/workq/internal/telemetry"
	"github.com/kart-io/workq/store"
)

// Abandon increments id's attempt counter and transitions it out of
// in-flight: to dead if attempts now exceed retries, to delayed if a
// retry delay applies, or back to the head of ready otherwise (§4.1
// Abandon, §3.4 lifecycle). A failed transaction surfaces as a
// *TransientError (§9 Open question: abandon transaction failure).
func (q *Queue) Abandon(ctx context.Context, id string) error {
	if q.isDisposed() {
		return ErrQueueDisposed
	}

	ctx, span := q.tel.StartSpan(ctx, q.cfg.queueName, "abandon")
	defer telemetry.EndSpan(span)

	attempts, err := q.store.Increment(ctx, q.keys.attempts(id), 1, q.cfg.payloadTTL())
	if err != nil {
		q.tel.RecordFault(ctx, span, "abandon", err)
		return transientf("abandon", err)
	}

	var txErr error
	if int(attempts) > q.cfg.retries {
		// Clamp the payload's TTL to deadLetterTTL (§3.3) by rewriting it
		// under its existing bytes; a payload already missing by the time
		// it dead-letters is tolerated, matching §7's missing-payload rule.
		payload, getErr := q.store.Get(ctx, q.keys.payload(id))
		txErr = q.store.Tx(ctx, func(tx store.Tx) error {
			tx.Remove(q.keys.inFlight(), []byte(id))
			tx.HeadPush(q.keys.dead(), []byte(id))
			if getErr == nil {
				tx.Set(q.keys.payload(id), payload, q.cfg.deadLetterTTL)
			}
			return nil
		})
	} else {
		delay := q.cfg.retryDelayFor(int(attempts))
		if delay > 0 {
			waitUntil := time.Now().Add(delay)
			txErr = q.store.Tx(ctx, func(tx store.Tx) error {
				tx.Remove(q.keys.inFlight(), []byte(id))
				tx.HeadPush(q.keys.delayed(), []byte(id))
				tx.Set(q.keys.waitUntil(id), encodeTime(waitUntil), q.cfg.payloadTTL())
				return nil
			})
		} else {
			txErr = q.store.Tx(ctx, func(tx store.Tx) error {
				tx.Remove(q.keys.inFlight(), []byte(id))
				tx.HeadPush(q.keys.ready(), []byte(id))
				return nil
			})
			if txErr == nil {
				if err := q.store.Publish(ctx, q.keys.notifyChan(), []byte(id)); err != nil {
					q.log.Warn("failed to publish notification", "id", id, "error", err)
				}
			}
		}
	}

	if txErr != nil {
		q.tel.RecordFault(ctx, span, "abandon", txErr)
		return transientf("abandon", txErr)
	}

	q.counters.incAbandoned()
	q.cfg.behaviors.OnAbandoned(id, int(attempts))
	return nil
}
