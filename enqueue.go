package workq

import (
	"context"
	"time"

	"github.com/kart-io/workq/internal/telemetry"
)

// Enqueue adds payload to the queue, returning its new id, or ErrRejected
// if a behavior's OnEnqueuing hook vetoes it (§4.1 Enqueue).
func (q *Queue) Enqueue(ctx context.Context, payload any) (string, error) {
	if q.isDisposed() {
		return "", ErrQueueDisposed
	}

	ctx, span := q.tel.StartSpan(ctx, q.cfg.queueName, "enqueue")
	defer telemetry.EndSpan(span)

	id, err := generateID()
	if err != nil {
		return "", transientf("enqueue", err)
	}

	if !q.cfg.behaviors.OnEnqueuing(id, payload) {
		return "", ErrRejected
	}

	data, err := q.cfg.serializer.Serialize(payload)
	if err != nil {
		return "", transientf("enqueue", err)
	}

	added, err := q.store.AddIfAbsent(ctx, q.keys.payload(id), data, q.cfg.payloadTTL())
	if err != nil {
		q.tel.RecordFault(ctx, span, "enqueue", err)
		return "", transientf("enqueue", err)
	}
	if !added {
		err := ErrPayloadCollision
		q.tel.RecordFault(ctx, span, "enqueue", err)
		return "", err
	}

	if err := q.store.HeadPush(ctx, q.keys.ready(), []byte(id)); err != nil {
		q.tel.RecordFault(ctx, span, "enqueue", err)
		return "", transientf("enqueue", err)
	}

	if err := q.store.Set(ctx, q.keys.enqueued(id), encodeTime(time.Now()), q.cfg.payloadTTL()); err != nil {
		q.log.Warn("failed to record enqueue time", "id", id, "error", err)
	}

	if err := q.store.Publish(ctx, q.keys.notifyChan(), []byte(id)); err != nil {
		q.log.Warn("failed to publish notification", "id", id, "error", err)
	}

	q.counters.incEnqueued()
	q.cfg.behaviors.OnEnqueued(id, payload)

	return id, nil
}
