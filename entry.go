package workq

import (
	"context"
	"time"
)

// QueueEntry is the consumer-visible handle for one dequeue: an id, its
// payload as the serializer-produced bytes (Payload is not decoded;
// Unmarshal decodes it), timing metadata, and a back-reference to the
// queue so Complete/Abandon need no extra plumbing from the caller (§9:
// "a back-reference from QueueEntry to the queue suffices").
type QueueEntry struct {
	ID         string
	Payload    []byte
	EnqueuedAt time.Time
	Attempts   int

	queue *Queue
}

// Complete marks this entry done via the owning Queue.
func (e *QueueEntry) Complete(ctx context.Context) error {
	return e.queue.Complete(ctx, e.ID)
}

// Abandon returns this entry to retry or dead-letters it via the owning
// Queue.
func (e *QueueEntry) Abandon(ctx context.Context) error {
	return e.queue.Abandon(ctx, e.ID)
}

// Unmarshal deserializes the entry's payload into v using the queue's
// configured Serializer.
func (e *QueueEntry) Unmarshal(v any) error {
	return e.queue.cfg.serializer.Deserialize(e.Payload, v)
}
