package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// SchedulerRepository defines the interface for scheduler operations.
type SchedulerRepository interface {
	// CreateJob creates a new job in the storage
	CreateJob(ctx context.Context, job *Job) error

	// GetPendingJobByName checks if a pending job with the given name exists
	GetPendingJobByName(ctx context.Context, name string) (*Job, error)
}

// Scheduler creates periodic jobs from cron expressions. It only plants job
// rows; execution stays with the Worker, so periodic work shares the same
// retry and locking machinery as one-shot jobs.
type Scheduler struct {
	repo     SchedulerRepository
	tasks    map[string]*periodicTask
	mu       sync.RWMutex
	interval time.Duration
	logger   *slog.Logger
}

type periodicTask struct {
	name            string
	schedule        cron.Schedule
	spec            string
	queue           string
	maxRetries      int8
	lastScheduledAt *time.Time
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*schedulerOptions)

type schedulerOptions struct {
	checkInterval time.Duration
	logger        *slog.Logger
}

// WithCheckInterval sets how often the scheduler looks for due tasks.
func WithCheckInterval(d time.Duration) SchedulerOption {
	return func(o *schedulerOptions) {
		if d > 0 {
			o.checkInterval = d
		}
	}
}

// WithSchedulerLogger sets the logger for the scheduler.
func WithSchedulerLogger(logger *slog.Logger) SchedulerOption {
	return func(o *schedulerOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// PeriodicTaskOption configures a registered periodic task.
type PeriodicTaskOption func(*periodicTaskOptions)

type periodicTaskOptions struct {
	queue      string
	maxRetries int8
}

// WithTaskQueue sets the queue periodic jobs are created in.
func WithTaskQueue(queue string) PeriodicTaskOption {
	return func(o *periodicTaskOptions) {
		if queue != "" {
			o.queue = queue
		}
	}
}

// WithTaskMaxRetries sets the retry budget for periodic jobs.
func WithTaskMaxRetries(maxRetries int8) PeriodicTaskOption {
	return func(o *periodicTaskOptions) {
		if maxRetries >= 0 && maxRetries <= 10 {
			o.maxRetries = maxRetries
		}
	}
}

// NewScheduler creates a new periodic job scheduler.
func NewScheduler(repo SchedulerRepository, opts ...SchedulerOption) (*Scheduler, error) {
	if repo == nil {
		return nil, ErrRepositoryNil
	}

	options := &schedulerOptions{
		checkInterval: 30 * time.Second,
		logger:        slog.Default(),
	}

	for _, opt := range opts {
		opt(options)
	}

	return &Scheduler{
		repo:     repo,
		tasks:    make(map[string]*periodicTask),
		interval: options.checkInterval,
		logger:   options.logger,
	}, nil
}

// AddTask registers a periodic task with a standard five-field cron spec
// (or a descriptor such as "@daily").
func (s *Scheduler) AddTask(name, cronSpec string, opts ...PeriodicTaskOption) error {
	schedule, err := cron.ParseStandard(cronSpec)
	if err != nil {
		return errors.Join(ErrInvalidSchedule, err)
	}

	taskOpts := &periodicTaskOptions{
		queue:      DefaultQueueName,
		maxRetries: 3,
	}

	for _, opt := range opts {
		opt(taskOpts)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[name]; exists {
		return ErrTaskAlreadyRegistered
	}

	s.tasks[name] = &periodicTask{
		name:       name,
		schedule:   schedule,
		spec:       cronSpec,
		queue:      taskOpts.queue,
		maxRetries: taskOpts.maxRetries,
	}

	s.logger.Info("registered periodic task",
		slog.String("task_name", name),
		slog.String("schedule", cronSpec))

	return nil
}

// Start begins the scheduler's periodic checking. It blocks until the context
// is canceled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.RLock()
	taskCount := len(s.tasks)
	s.mu.RUnlock()

	if taskCount == 0 {
		return ErrSchedulerNotConfigured
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Check immediately on start.
	s.checkTasks(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler shutting down")
			return ctx.Err()
		case <-ticker.C:
			s.checkTasks(ctx)
		}
	}
}

// checkTasks plants job rows for all due tasks.
func (s *Scheduler) checkTasks(ctx context.Context) {
	s.mu.RLock()
	tasks := make([]*periodicTask, 0, len(s.tasks))
	for _, task := range s.tasks {
		tasks = append(tasks, task)
	}
	s.mu.RUnlock()

	now := time.Now()

	for _, task := range tasks {
		if err := s.scheduleIfDue(ctx, task, now); err != nil {
			s.logger.Error("failed to schedule periodic task",
				slog.String("task_name", task.name),
				slog.String("error", err.Error()))
		}
	}
}

func (s *Scheduler) scheduleIfDue(ctx context.Context, task *periodicTask, now time.Time) error {
	nextRun := s.nextRun(task, now)

	if task.lastScheduledAt != nil && nextRun.After(now) {
		return nil
	}

	// A pending row for this task means the previous run has not executed
	// yet; planting another would double-run the task.
	existing, err := s.repo.GetPendingJobByName(ctx, task.name)
	if err == nil && existing != nil {
		s.updateTaskState(task.name, &existing.ScheduledAt)
		s.logger.Debug("periodic task already pending",
			slog.String("task_name", task.name),
			slog.Time("scheduled_for", existing.ScheduledAt))
		return nil
	}

	job := &Job{
		ID:          uuid.New(),
		Queue:       task.queue,
		Kind:        JobKindPeriodic,
		Name:        task.name,
		Status:      JobStatusPending,
		MaxRetries:  task.maxRetries,
		ScheduledAt: nextRun,
		CreatedAt:   now,
	}

	if err := s.repo.CreateJob(ctx, job); err != nil {
		return fmt.Errorf("failed to create periodic job: %w", err)
	}

	s.updateTaskState(task.name, &nextRun)

	s.logger.Info("created periodic job",
		slog.String("task_name", task.name),
		slog.Time("scheduled_for", nextRun))

	return nil
}

func (s *Scheduler) nextRun(task *periodicTask, now time.Time) time.Time {
	if task.lastScheduledAt == nil {
		return task.schedule.Next(now)
	}
	return task.schedule.Next(*task.lastScheduledAt)
}

func (s *Scheduler) updateTaskState(name string, scheduledAt *time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.tasks[name]; ok {
		t.lastScheduledAt = scheduledAt
	}
}
