package jobs

import "time"

// EnqueuerOption is a functional option for configuring an Enqueuer.
type EnqueuerOption func(*enqueuerOptions)

type enqueuerOptions struct {
	defaultQueue string
	guard        DedupGuard
}

// WithDefaultQueue sets the default queue name.
func WithDefaultQueue(queue string) EnqueuerOption {
	return func(o *enqueuerOptions) {
		if queue != "" {
			o.defaultQueue = queue
		}
	}
}

// WithDedupGuard installs a distributed uniqueness guard consulted before
// storage for every job enqueued with a unique key.
func WithDedupGuard(guard DedupGuard) EnqueuerOption {
	return func(o *enqueuerOptions) {
		o.guard = guard
	}
}

// EnqueueOption is a functional option for the Enqueue method.
type EnqueueOption func(*enqueueOptions)

type enqueueOptions struct {
	queue      string
	maxRetries int8
	delay      time.Duration
	runAt      *time.Time
	name       string
	uniqueKey  *string
	guardGrace time.Duration
}

// WithQueue sets the queue for the job.
func WithQueue(queue string) EnqueueOption {
	return func(o *enqueueOptions) {
		if queue != "" {
			o.queue = queue
		}
	}
}

// WithMaxRetries sets the maximum number of retries (0-10).
// Capped at 10 to prevent infinite retry loops on persistent failures.
func WithMaxRetries(maxRetries int8) EnqueueOption {
	return func(o *enqueueOptions) {
		if maxRetries >= 0 && maxRetries <= 10 {
			o.maxRetries = maxRetries
		}
	}
}

// WithDelay sets a delay before the job can be processed.
func WithDelay(delay time.Duration) EnqueueOption {
	return func(o *enqueueOptions) {
		if delay > 0 {
			o.delay = delay
		}
	}
}

// WithRunAt sets a specific time for the job to be processed.
func WithRunAt(runAt time.Time) EnqueueOption {
	return func(o *enqueueOptions) {
		o.runAt = &runAt
	}
}

// WithJobName sets a custom job name.
func WithJobName(name string) EnqueueOption {
	return func(o *enqueueOptions) {
		if name != "" {
			o.name = name
		}
	}
}

// WithUniqueKey marks the job unique: while a job with the same key is
// pending or processing, further enqueues return ErrDuplicateUniqueKey.
func WithUniqueKey(key string) EnqueueOption {
	return func(o *enqueueOptions) {
		if key != "" {
			o.uniqueKey = &key
			if o.guardGrace == 0 {
				o.guardGrace = time.Minute
			}
		}
	}
}

// WithGuardGrace extends the dedup guard TTL beyond the job's scheduled time.
// Relevant only together with WithUniqueKey and a configured DedupGuard.
func WithGuardGrace(grace time.Duration) EnqueueOption {
	return func(o *enqueueOptions) {
		if grace > 0 {
			o.guardGrace = grace
		}
	}
}
