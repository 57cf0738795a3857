package workq

import (
	"context"

	"github.com/kart-io/workq/internal/telemetry"
	"github.com/kart-io/workq/store"
)

// Complete removes id from in-flight and deletes its payload and every
// sidecar key, atomically in one transaction (§4.1 Complete). Calling
// Complete again on an already-completed id changes no list or key — it
// MUST NOT re-add the id to any list (§8 Idempotent completion) — though
// the completed counter and the OnCompleted hook still fire.
func (q *Queue) Complete(ctx context.Context, id string) error {
	if q.isDisposed() {
		return ErrQueueDisposed
	}

	ctx, span := q.tel.StartSpan(ctx, q.cfg.queueName, "complete")
	defer telemetry.EndSpan(span)

	err := q.store.Tx(ctx, func(b store.Tx) error {
		b.Remove(q.keys.inFlight(), []byte(id))
		b.Delete(q.keys.payload(id))
		b.Delete(q.keys.attempts(id))
		b.Delete(q.keys.enqueued(id))
		b.Delete(q.keys.dequeued(id))
		b.Delete(q.keys.waitUntil(id))
		return nil
	})
	if err != nil {
		q.tel.RecordFault(ctx, span, "complete", err)
		return transientf("complete", err)
	}

	q.counters.incCompleted()
	q.cfg.behaviors.OnCompleted(id)
	return nil
}
