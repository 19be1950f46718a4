package jobs

import (
	"time"

	"github.com/google/uuid"
)

// DefaultQueueName is the queue used when no queue is specified.
const DefaultQueueName = "default"

// JobStatus represents the lifecycle state of a job.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// JobKind distinguishes one-shot jobs from scheduler-created periodic runs.
type JobKind string

const (
	JobKindOneTime  JobKind = "one-time"
	JobKindPeriodic JobKind = "periodic"
)

// Job represents a unit of background work.
//
// UniqueKey carries the storage-level uniqueness contract: while a job with a
// given key is pending or processing, CreateJob must refuse a second job with
// the same key. The notification digest flow depends on this guarantee for
// its at-most-one-pending-digest-per-(org,user,day) invariant.
type Job struct {
	ID          uuid.UUID  `json:"id"`
	Queue       string     `json:"queue"`
	Kind        JobKind    `json:"kind"`
	Name        string     `json:"name"`
	Payload     []byte     `json:"payload,omitempty"`
	Status      JobStatus  `json:"status"`
	UniqueKey   *string    `json:"unique_key,omitempty"`
	RetryCount  int8       `json:"retry_count"`
	MaxRetries  int8       `json:"max_retries"`
	ScheduledAt time.Time  `json:"scheduled_at"`
	LockedUntil *time.Time `json:"locked_until,omitempty"`
	LockedBy    *uuid.UUID `json:"locked_by,omitempty"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
	Error       *string    `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}
