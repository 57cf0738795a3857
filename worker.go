package workq

import (
	"context"
)

// Handler processes one dequeued entry. A returned error is treated as a
// handler exception (§7): the entry is abandoned and the worker-error
// counter is incremented.
type Handler func(ctx context.Context, entry *QueueEntry) error

// StartWorking begins the worker runloop: it repeatedly dequeues with
// the default dequeue timeout, invokes handler on a non-absent entry,
// abandons the entry when handler returns an error, and completes it on
// success when autoComplete is true. At most one runloop may run per
// Queue instance (§4.2).
func (q *Queue) StartWorking(ctx context.Context, handler Handler, autoComplete bool) error {
	if q.isDisposed() {
		return ErrQueueDisposed
	}
	if handler == nil {
		return ErrNoHandler
	}

	q.workerMu.Lock()
	if q.working {
		q.workerMu.Unlock()
		return ErrAlreadyWorking
	}
	workerCtx, cancel := context.WithCancel(ctx)
	q.working = true
	q.workerCancel = cancel
	q.workerMu.Unlock()

	go q.runLoop(workerCtx, handler, autoComplete)
	return nil
}

func (q *Queue) runLoop(ctx context.Context, handler Handler, autoComplete bool) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		entry, err := q.Dequeue(ctx, 0)
		if err != nil {
			// Disposal or a transient store fault: either way, go straight
			// on to the next loop iteration, which re-checks ctx.Done().
			continue
		}
		if entry == nil {
			continue
		}

		if handlerErr := handler(ctx, entry); handlerErr != nil {
			q.counters.incWorkerErrors()
			if err := q.Abandon(ctx, entry.ID); err != nil {
				q.log.Error("failed to abandon after handler error", "id", entry.ID, "error", err)
			}
			continue
		}

		if autoComplete {
			if err := q.Complete(ctx, entry.ID); err != nil {
				q.log.Error("failed to auto-complete", "id", entry.ID, "error", err)
			}
		}
	}
}

// StopWorking cancels the runloop's handle (§4.2). The runloop's pending
// Dequeue then returns, dropping its notification-channel subscription,
// and the loop exits.
func (q *Queue) StopWorking() {
	q.workerMu.Lock()
	defer q.workerMu.Unlock()

	if !q.working {
		return
	}
	q.working = false
	if q.workerCancel != nil {
		q.workerCancel()
		q.workerCancel = nil
	}
}
