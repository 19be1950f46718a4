package jobs

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStorage implements the enqueuer, worker and scheduler repositories
// in process memory. Suitable for testing and local development.
type MemoryStorage struct {
	mu   sync.RWMutex
	jobs map[uuid.UUID]*Job

	// Indexes for efficient queries
	byStatus map[JobStatus][]uuid.UUID
	byKey    map[string]uuid.UUID // active unique keys -> job

	lockTicker *time.Ticker
	done       chan struct{}
	closeOnce  sync.Once
}

// NewMemoryStorage creates a new in-memory storage implementation.
func NewMemoryStorage() *MemoryStorage {
	ms := &MemoryStorage{
		jobs:     make(map[uuid.UUID]*Job),
		byStatus: make(map[JobStatus][]uuid.UUID),
		byKey:    make(map[string]uuid.UUID),
		done:     make(chan struct{}),
	}

	// Recover jobs locked by dead workers.
	ms.lockTicker = time.NewTicker(time.Second)
	go ms.lockExpirationLoop()

	return ms
}

// Close stops the background lock expiry goroutine.
func (ms *MemoryStorage) Close() error {
	ms.closeOnce.Do(func() {
		close(ms.done)
		ms.lockTicker.Stop()
	})
	return nil
}

// CreateJob implements EnqueuerRepository and SchedulerRepository.
// Jobs carrying a unique key are refused while another job with the same key
// is pending or processing.
func (ms *MemoryStorage) CreateJob(ctx context.Context, job *Job) error {
	if job == nil {
		return errors.New("job cannot be nil")
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	if _, exists := ms.jobs[job.ID]; exists {
		return fmt.Errorf("job with ID %s already exists", job.ID)
	}

	if job.UniqueKey != nil {
		if _, held := ms.byKey[*job.UniqueKey]; held {
			return ErrDuplicateUniqueKey
		}
		ms.byKey[*job.UniqueKey] = job.ID
	}

	// Clone to prevent external modifications.
	jobCopy := *job
	ms.jobs[job.ID] = &jobCopy

	ms.byStatus[job.Status] = append(ms.byStatus[job.Status], job.ID)

	return nil
}

// ClaimJob implements WorkerRepository. The earliest-scheduled ready job in
// the requested queues wins.
func (ms *MemoryStorage) ClaimJob(ctx context.Context, workerID uuid.UUID, queues []string, lockDuration time.Duration) (*Job, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := time.Now()
	var best *Job

	for _, jobID := range ms.byStatus[JobStatusPending] {
		job := ms.jobs[jobID]

		if !slices.Contains(queues, job.Queue) {
			continue
		}

		// Delayed jobs stay invisible until their scheduled time.
		if job.ScheduledAt.After(now) {
			continue
		}

		if job.LockedUntil != nil && job.LockedUntil.After(now) {
			continue
		}

		if best == nil || job.ScheduledAt.Before(best.ScheduledAt) {
			best = job
		}
	}

	if best == nil {
		return nil, ErrNoJobToClaim
	}

	lockUntil := now.Add(lockDuration)
	best.Status = JobStatusProcessing
	best.LockedUntil = &lockUntil
	best.LockedBy = &workerID

	ms.removeFromStatusIndex(best.ID, JobStatusPending)
	ms.byStatus[JobStatusProcessing] = append(ms.byStatus[JobStatusProcessing], best.ID)

	jobCopy := *best
	return &jobCopy, nil
}

// CompleteJob implements WorkerRepository.
func (ms *MemoryStorage) CompleteJob(ctx context.Context, jobID uuid.UUID) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	job, exists := ms.jobs[jobID]
	if !exists {
		return fmt.Errorf("job %s not found", jobID)
	}

	if job.Status != JobStatusProcessing {
		return fmt.Errorf("job %s is not in processing state", jobID)
	}

	now := time.Now()
	job.Status = JobStatusCompleted
	job.ProcessedAt = &now
	job.LockedUntil = nil
	job.LockedBy = nil

	ms.removeFromStatusIndex(jobID, JobStatusProcessing)
	ms.byStatus[JobStatusCompleted] = append(ms.byStatus[JobStatusCompleted], jobID)

	ms.releaseKey(job)

	return nil
}

// FailJob implements WorkerRepository. While the retry budget lasts the job
// is rescheduled with linear backoff; afterwards it is terminally failed.
func (ms *MemoryStorage) FailJob(ctx context.Context, jobID uuid.UUID, errorMsg string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	job, exists := ms.jobs[jobID]
	if !exists {
		return fmt.Errorf("job %s not found", jobID)
	}

	if job.Status != JobStatusProcessing {
		return fmt.Errorf("job %s is not in processing state", jobID)
	}

	job.RetryCount++
	job.Error = &errorMsg
	job.LockedUntil = nil
	job.LockedBy = nil

	if job.RetryCount >= job.MaxRetries {
		job.Status = JobStatusFailed
		ms.removeFromStatusIndex(jobID, JobStatusProcessing)
		ms.byStatus[JobStatusFailed] = append(ms.byStatus[JobStatusFailed], jobID)
		ms.releaseKey(job)
	} else {
		job.Status = JobStatusPending
		ms.removeFromStatusIndex(jobID, JobStatusProcessing)
		ms.byStatus[JobStatusPending] = append(ms.byStatus[JobStatusPending], jobID)

		// Linear backoff: 30s, 60s, 90s. Keeps retries prompt without
		// hammering a failing dependency.
		backoff := time.Duration(job.RetryCount) * 30 * time.Second
		job.ScheduledAt = time.Now().Add(backoff)
	}

	return nil
}

// GetPendingJobByName implements SchedulerRepository.
func (ms *MemoryStorage) GetPendingJobByName(ctx context.Context, name string) (*Job, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	for _, jobID := range ms.byStatus[JobStatusPending] {
		job := ms.jobs[jobID]
		if job.Name == name {
			jobCopy := *job
			return &jobCopy, nil
		}
	}

	return nil, nil
}

// JobByID returns a copy of the stored job. Test helper.
func (ms *MemoryStorage) JobByID(jobID uuid.UUID) (*Job, bool) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	job, exists := ms.jobs[jobID]
	if !exists {
		return nil, false
	}
	jobCopy := *job
	return &jobCopy, true
}

// JobsByStatus returns copies of all jobs in the given status. Test helper.
func (ms *MemoryStorage) JobsByStatus(status JobStatus) []*Job {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	out := make([]*Job, 0, len(ms.byStatus[status]))
	for _, id := range ms.byStatus[status] {
		jobCopy := *ms.jobs[id]
		out = append(out, &jobCopy)
	}
	return out
}

// releaseKey frees the unique key once the job reaches a terminal state.
// Must be called with the mutex held.
func (ms *MemoryStorage) releaseKey(job *Job) {
	if job.UniqueKey == nil {
		return
	}
	if holder, ok := ms.byKey[*job.UniqueKey]; ok && holder == job.ID {
		delete(ms.byKey, *job.UniqueKey)
	}
}

func (ms *MemoryStorage) removeFromStatusIndex(jobID uuid.UUID, status JobStatus) {
	ms.byStatus[status] = slices.DeleteFunc(ms.byStatus[status], func(id uuid.UUID) bool {
		return id == jobID
	})
}

// lockExpirationLoop recovers jobs claimed by workers that died mid-flight.
func (ms *MemoryStorage) lockExpirationLoop() {
	for {
		select {
		case <-ms.lockTicker.C:
			ms.expireLocks()
		case <-ms.done:
			return
		}
	}
}

// expireLocks resets processing jobs whose locks have lapsed back to pending
// so another worker can claim them. Retry counts are preserved. The expired
// ids are collected before any index mutation: removeFromStatusIndex edits
// the processing slice in place, so mutating while ranging over it would
// walk stale entries.
func (ms *MemoryStorage) expireLocks() {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := time.Now()
	var expired []uuid.UUID
	for _, jobID := range ms.byStatus[JobStatusProcessing] {
		job, ok := ms.jobs[jobID]
		if ok && job.LockedUntil != nil && job.LockedUntil.Before(now) {
			expired = append(expired, jobID)
		}
	}

	for _, jobID := range expired {
		job := ms.jobs[jobID]
		job.Status = JobStatusPending
		job.LockedUntil = nil
		job.LockedBy = nil

		ms.removeFromStatusIndex(jobID, JobStatusProcessing)
		ms.byStatus[JobStatusPending] = append(ms.byStatus[JobStatusPending], jobID)
	}
}
