package worker

import (
	"context"
	"log/slog"

	"github.com/pitabwire/frame/queue"
	"github.com/pitabwire/frame/workerpool"
)

// Dispatcher hands a pregeneration job to whatever runs it.
type Dispatcher interface {
	Dispatch(ctx context.Context, job PregenerateJob) error
}

// QueueDispatcher publishes jobs to a frame queue consumed by Subscriber.
type QueueDispatcher struct {
	queueMgr queue.Manager
	ref      string
}

// NewQueueDispatcher creates a dispatcher publishing to the queue ref.
func NewQueueDispatcher(queueMgr queue.Manager, ref string) *QueueDispatcher {
	return &QueueDispatcher{queueMgr: queueMgr, ref: ref}
}

func (d *QueueDispatcher) Dispatch(ctx context.Context, job PregenerateJob) error {
	return d.queueMgr.Publish(ctx, d.ref, job)
}

// PoolDispatcher runs jobs in-process on the worker pool. It is used when no
// pregeneration queue is configured.
type PoolDispatcher struct {
	pool workerpool.WorkerPool
	sub  *Subscriber
}

// NewPoolDispatcher creates a dispatcher running sub on pool. A nil pool
// runs each job on its own goroutine.
func NewPoolDispatcher(pool workerpool.WorkerPool, sub *Subscriber) *PoolDispatcher {
	return &PoolDispatcher{pool: pool, sub: sub}
}

func (d *PoolDispatcher) Dispatch(ctx context.Context, job PregenerateJob) error {
	// The job outlives the request that queued it.
	jobCtx := context.WithoutCancel(ctx)
	run := func() {
		if err := d.sub.Run(jobCtx, job); err != nil {
			slog.WarnContext(jobCtx, "pregenerate: job failed",
				slog.String("job_id", job.ID), slog.String("error", err.Error()))
		}
	}

	if d.pool == nil {
		go run()
		return nil
	}
	return d.pool.Submit(jobCtx, run)
}
