package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EnqueuerRepository defines the interface for job creation.
//
// CreateJob must return ErrDuplicateUniqueKey when the job carries a unique
// key and another job with the same key is pending or processing.
type EnqueuerRepository interface {
	CreateJob(ctx context.Context, job *Job) error
}

// Enqueuer handles job enqueueing.
type Enqueuer struct {
	repo         EnqueuerRepository
	guard        DedupGuard
	defaultQueue string
}

// NewEnqueuer creates a new Enqueuer.
func NewEnqueuer(repo EnqueuerRepository, opts ...EnqueuerOption) (*Enqueuer, error) {
	if repo == nil {
		return nil, ErrRepositoryNil
	}

	options := &enqueuerOptions{
		defaultQueue: DefaultQueueName,
	}

	for _, opt := range opts {
		opt(options)
	}

	return &Enqueuer{
		repo:         repo,
		guard:        options.guard,
		defaultQueue: options.defaultQueue,
	}, nil
}

// Enqueue adds a new job to the queue.
//
// When WithUniqueKey is used and a job with the same key is already pending,
// ErrDuplicateUniqueKey is returned. Callers relying on at-most-one semantics
// treat that as "already scheduled", not as a failure.
func (e *Enqueuer) Enqueue(ctx context.Context, payload any, opts ...EnqueueOption) error {
	if payload == nil {
		return ErrPayloadNil
	}

	options := &enqueueOptions{
		queue:      e.defaultQueue,
		maxRetries: 3,
	}

	for _, opt := range opts {
		opt(options)
	}

	job, err := e.buildJob(payload, options)
	if err != nil {
		return err
	}

	// The distributed guard runs before storage so that deployments whose
	// job store cannot enforce key uniqueness still get at-most-one
	// semantics across processes.
	if e.guard != nil && job.UniqueKey != nil {
		ttl := time.Until(job.ScheduledAt) + options.guardGrace
		acquired, err := e.guard.Acquire(ctx, *job.UniqueKey, ttl)
		if err != nil {
			return fmt.Errorf("dedup guard for key %q: %w", *job.UniqueKey, err)
		}
		if !acquired {
			return ErrDuplicateUniqueKey
		}
	}

	if err := e.repo.CreateJob(ctx, job); err != nil {
		if errors.Is(err, ErrDuplicateUniqueKey) {
			return ErrDuplicateUniqueKey
		}
		return fmt.Errorf("failed to create job %q in queue %q: %w", job.Name, job.Queue, err)
	}

	return nil
}

// buildJob constructs a Job from payload and options.
func (e *Enqueuer) buildJob(payload any, options *enqueueOptions) (*Job, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload of type %T: %w", payload, err)
	}

	name := options.name
	if name == "" {
		name = qualifiedStructName(payload)
	}

	scheduledAt := time.Now()
	if options.runAt != nil {
		scheduledAt = *options.runAt
	} else if options.delay > 0 {
		scheduledAt = scheduledAt.Add(options.delay)
	}

	return &Job{
		ID:          uuid.New(),
		Queue:       options.queue,
		Kind:        JobKindOneTime,
		Name:        name,
		Payload:     payloadBytes,
		Status:      JobStatusPending,
		UniqueKey:   options.uniqueKey,
		RetryCount:  0,
		MaxRetries:  options.maxRetries,
		ScheduledAt: scheduledAt,
		CreatedAt:   time.Now(),
	}, nil
}
