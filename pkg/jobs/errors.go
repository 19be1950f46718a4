package jobs

import "errors"

var (
	// ErrRepositoryNil is returned when a nil repository is provided
	ErrRepositoryNil = errors.New("repository cannot be nil")

	// ErrPayloadNil is returned when attempting to enqueue a nil payload
	ErrPayloadNil = errors.New("payload cannot be nil")

	// ErrDuplicateUniqueKey is returned when a job with the same unique key
	// is already pending or processing
	ErrDuplicateUniqueKey = errors.New("job with the same unique key already pending")

	// ErrHandlerNotFound is returned when no handler is registered for a job
	ErrHandlerNotFound = errors.New("no handler registered for job name")

	// ErrNoHandlers is returned when worker has no handlers registered
	ErrNoHandlers = errors.New("no job handlers registered")

	// ErrNoJobToClaim is returned by storage when no job is ready for claiming
	ErrNoJobToClaim = errors.New("no job available to claim")

	// ErrInvalidSchedule is returned when a cron expression cannot be parsed
	ErrInvalidSchedule = errors.New("invalid cron schedule expression")

	// ErrTaskAlreadyRegistered is returned when a periodic task name is reused
	ErrTaskAlreadyRegistered = errors.New("periodic task already registered")

	// ErrSchedulerNotConfigured is returned when the scheduler has no tasks
	ErrSchedulerNotConfigured = errors.New("scheduler has no registered tasks")
)
