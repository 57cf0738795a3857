package workq

import (
	"context"
	"sync/atomic"
)

// QueueStats is a call-time snapshot (§4.5): list lengths come from a
// direct length query; cumulative counters come from an atomic read of
// in-process 64-bit integers. Not transactional across its values.
type QueueStats struct {
	Ready    int64
	InFlight int64
	Dead     int64

	Enqueued         int64
	Dequeued         int64
	Completed        int64
	Abandoned        int64
	WorkerErrors     int64
	WorkItemTimeouts int64
}

// counters holds the cumulative, process-local statistics mutated only
// via atomic increment — no in-process mutex is required on the hot path
// (§5 Shared state).
type counters struct {
	enqueued         int64
	dequeued         int64
	completed        int64
	abandoned        int64
	workerErrors     int64
	workItemTimeouts int64
}

func (c *counters) incEnqueued()         { atomic.AddInt64(&c.enqueued, 1) }
func (c *counters) incDequeued()         { atomic.AddInt64(&c.dequeued, 1) }
func (c *counters) incCompleted()        { atomic.AddInt64(&c.completed, 1) }
func (c *counters) incAbandoned()        { atomic.AddInt64(&c.abandoned, 1) }
func (c *counters) incWorkerErrors()     { atomic.AddInt64(&c.workerErrors, 1) }
func (c *counters) incWorkItemTimeouts() { atomic.AddInt64(&c.workItemTimeouts, 1) }

func (c *counters) reset() {
	atomic.StoreInt64(&c.enqueued, 0)
	atomic.StoreInt64(&c.dequeued, 0)
	atomic.StoreInt64(&c.completed, 0)
	atomic.StoreInt64(&c.abandoned, 0)
	atomic.StoreInt64(&c.workerErrors, 0)
	atomic.StoreInt64(&c.workItemTimeouts, 0)
}

// Stats returns a snapshot of queue statistics.
func (q *Queue) Stats(ctx context.Context) (QueueStats, error) {
	if q.isDisposed() {
		return QueueStats{}, ErrQueueDisposed
	}
	ready, err := q.store.Length(ctx, q.keys.ready())
	if err != nil {
		return QueueStats{}, transientf("stats", err)
	}
	inFlight, err := q.store.Length(ctx, q.keys.inFlight())
	if err != nil {
		return QueueStats{}, transientf("stats", err)
	}
	dead, err := q.store.Length(ctx, q.keys.dead())
	if err != nil {
		return QueueStats{}, transientf("stats", err)
	}

	return QueueStats{
		Ready:            ready,
		InFlight:         inFlight,
		Dead:             dead,
		Enqueued:         atomic.LoadInt64(&q.counters.enqueued),
		Dequeued:         atomic.LoadInt64(&q.counters.dequeued),
		Completed:        atomic.LoadInt64(&q.counters.completed),
		Abandoned:        atomic.LoadInt64(&q.counters.abandoned),
		WorkerErrors:     atomic.LoadInt64(&q.counters.workerErrors),
		WorkItemTimeouts: atomic.LoadInt64(&q.counters.workItemTimeouts),
	}, nil
}
