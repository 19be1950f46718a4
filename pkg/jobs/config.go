package jobs

import "time"

// Config holds the configuration for the job queue.
type Config struct {
	PollInterval    time.Duration `env:"JOBS_POLL_INTERVAL" envDefault:"5s"`
	LockTimeout     time.Duration `env:"JOBS_LOCK_TIMEOUT" envDefault:"5m"`
	ShutdownTimeout time.Duration `env:"JOBS_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	Concurrency     int           `env:"JOBS_CONCURRENCY" envDefault:"10"`
}
