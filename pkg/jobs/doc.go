// Package jobs provides an at-least-once background job substrate with
// delayed dispatch, bounded retries, and unique-key deduplication.
//
// The package splits responsibilities across three cooperating types sharing
// one storage:
//
//   - Enqueuer: creates job rows, optionally delayed and optionally unique
//   - Worker: claims ready jobs, runs registered handlers, owns retries
//   - Scheduler: plants periodic job rows from cron expressions
//
// # Uniqueness contract
//
// A job enqueued with WithUniqueKey is refused (ErrDuplicateUniqueKey) while
// another job with the same key is pending or processing. Storage enforces
// this; an optional DedupGuard (Redis SET NX) extends the guarantee to
// deployments where job storage cannot. Downstream code builds calendar-day
// dedup on top of this, e.g. digest jobs keyed by (org, user, day).
//
// # Delivery semantics
//
// Execution is at-least-once: a worker crash after the handler ran but before
// the completion write causes re-execution, so handlers must be idempotent.
// Failed handlers are retried with backoff up to the per-job retry budget and
// then left in JobStatusFailed.
//
// # Basic usage
//
//	storage := jobs.NewMemoryStorage()
//	enqueuer, _ := jobs.NewEnqueuer(storage)
//	worker, _ := jobs.NewWorker(storage, jobs.WithConcurrency(4))
//
//	worker.RegisterHandlers(jobs.NewJobHandler(func(ctx context.Context, p SendReminder) error {
//	    return send(ctx, p)
//	}))
//
//	_ = worker.Start(ctx)
//	_ = enqueuer.Enqueue(ctx, SendReminder{UserID: "u1"}, jobs.WithDelay(time.Hour))
package jobs
