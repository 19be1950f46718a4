package jobs_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edukit/notify/pkg/jobs"
)

type digestPayload struct {
	OrganizationID string `json:"organization_id"`
	UserID         string `json:"user_id"`
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met within timeout")
}

func TestWorker_ProcessesJob(t *testing.T) {
	storage := jobs.NewMemoryStorage()
	defer storage.Close()

	enqueuer, err := jobs.NewEnqueuer(storage)
	require.NoError(t, err)

	worker, err := jobs.NewWorker(storage, jobs.WithPollInterval(20*time.Millisecond))
	require.NoError(t, err)

	var processed atomic.Int32
	worker.RegisterHandlers(jobs.NewJobHandler(func(ctx context.Context, p digestPayload) error {
		if p.UserID == "u1" {
			processed.Add(1)
		}
		return nil
	}))

	ctx := context.Background()
	require.NoError(t, worker.Start(ctx))
	defer worker.Stop()

	require.NoError(t, enqueuer.Enqueue(ctx, digestPayload{OrganizationID: "o1", UserID: "u1"}))

	waitFor(t, 2*time.Second, func() bool { return processed.Load() == 1 })
	waitFor(t, 2*time.Second, func() bool {
		return len(storage.JobsByStatus(jobs.JobStatusCompleted)) == 1
	})
}

func TestWorker_RetriesThenFailsTerminally(t *testing.T) {
	storage := jobs.NewMemoryStorage()
	defer storage.Close()

	enqueuer, err := jobs.NewEnqueuer(storage)
	require.NoError(t, err)

	worker, err := jobs.NewWorker(storage, jobs.WithPollInterval(20*time.Millisecond))
	require.NoError(t, err)

	var attempts atomic.Int32
	worker.RegisterHandlers(jobs.NewJobHandler(func(ctx context.Context, p digestPayload) error {
		attempts.Add(1)
		return errors.New("transport unreachable")
	}))

	ctx := context.Background()
	require.NoError(t, worker.Start(ctx))
	defer worker.Stop()

	// MaxRetries 1 means a single attempt and a terminal failure.
	require.NoError(t, enqueuer.Enqueue(ctx, digestPayload{UserID: "u2"}, jobs.WithMaxRetries(1)))

	waitFor(t, 2*time.Second, func() bool {
		return len(storage.JobsByStatus(jobs.JobStatusFailed)) == 1
	})
	assert.Equal(t, int32(1), attempts.Load())

	failed := storage.JobsByStatus(jobs.JobStatusFailed)[0]
	require.NotNil(t, failed.Error)
	assert.Contains(t, *failed.Error, "transport unreachable")
}

func TestWorker_RecoversFromHandlerPanic(t *testing.T) {
	storage := jobs.NewMemoryStorage()
	defer storage.Close()

	enqueuer, err := jobs.NewEnqueuer(storage)
	require.NoError(t, err)

	worker, err := jobs.NewWorker(storage, jobs.WithPollInterval(20*time.Millisecond))
	require.NoError(t, err)

	worker.RegisterHandlers(jobs.NewJobHandler(func(ctx context.Context, p digestPayload) error {
		panic("boom")
	}))

	ctx := context.Background()
	require.NoError(t, worker.Start(ctx))
	defer worker.Stop()

	require.NoError(t, enqueuer.Enqueue(ctx, digestPayload{UserID: "u3"}, jobs.WithMaxRetries(1)))

	waitFor(t, 2*time.Second, func() bool {
		return len(storage.JobsByStatus(jobs.JobStatusFailed)) == 1
	})

	failed := storage.JobsByStatus(jobs.JobStatusFailed)[0]
	require.NotNil(t, failed.Error)
	assert.Contains(t, *failed.Error, "panic in handler")
}

func TestWorker_StartRequiresHandlers(t *testing.T) {
	storage := jobs.NewMemoryStorage()
	defer storage.Close()

	worker, err := jobs.NewWorker(storage)
	require.NoError(t, err)

	assert.ErrorIs(t, worker.Start(context.Background()), jobs.ErrNoHandlers)
}

func TestWorker_NilRepository(t *testing.T) {
	_, err := jobs.NewWorker(nil)
	assert.ErrorIs(t, err, jobs.ErrRepositoryNil)
}

func TestWorker_OnlyPollsConfiguredQueues(t *testing.T) {
	storage := jobs.NewMemoryStorage()
	defer storage.Close()

	enqueuer, err := jobs.NewEnqueuer(storage)
	require.NoError(t, err)

	worker, err := jobs.NewWorker(storage,
		jobs.WithPollInterval(20*time.Millisecond),
		jobs.WithQueues("other"))
	require.NoError(t, err)

	var processed atomic.Int32
	worker.RegisterHandlers(jobs.NewJobHandler(func(ctx context.Context, p digestPayload) error {
		processed.Add(1)
		return nil
	}))

	ctx := context.Background()
	require.NoError(t, worker.Start(ctx))
	defer worker.Stop()

	require.NoError(t, enqueuer.Enqueue(ctx, digestPayload{UserID: "u4"}))

	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, int32(0), processed.Load())
	assert.Len(t, storage.JobsByStatus(jobs.JobStatusPending), 1)
}

func TestWorker_MissingHandlerReschedulesWithBackoff(t *testing.T) {
	storage := jobs.NewMemoryStorage()
	defer storage.Close()

	enqueuer, err := jobs.NewEnqueuer(storage)
	require.NoError(t, err)

	worker, err := jobs.NewWorker(storage, jobs.WithPollInterval(20*time.Millisecond))
	require.NoError(t, err)
	worker.RegisterHandlers(jobs.NewPeriodicHandler("something-else", func(ctx context.Context) error {
		return nil
	}))

	ctx := context.Background()
	require.NoError(t, worker.Start(ctx))
	defer worker.Stop()

	require.NoError(t, enqueuer.Enqueue(ctx, digestPayload{UserID: "u4"},
		jobs.WithJobName("ghost"), jobs.WithMaxRetries(3)))

	// Without a handler the job is not failed terminally; it goes back to
	// pending with backoff so a worker that carries the handler can claim it.
	waitFor(t, 2*time.Second, func() bool {
		pending := storage.JobsByStatus(jobs.JobStatusPending)
		return len(pending) == 1 && pending[0].RetryCount == 1
	})

	pending := storage.JobsByStatus(jobs.JobStatusPending)[0]
	require.NotNil(t, pending.Error)
	assert.Contains(t, *pending.Error, "no handler registered")
	assert.True(t, pending.ScheduledAt.After(time.Now()), "backoff pushes the next attempt into the future")
	assert.Empty(t, storage.JobsByStatus(jobs.JobStatusFailed))
}

// cancelAwareRepository refuses bookkeeping calls on a canceled context, the
// way a database-backed repository would.
type cancelAwareRepository struct {
	*jobs.MemoryStorage
}

func (r cancelAwareRepository) CompleteJob(ctx context.Context, jobID uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.MemoryStorage.CompleteJob(ctx, jobID)
}

func TestWorker_RecordsCompletionDuringShutdown(t *testing.T) {
	storage := jobs.NewMemoryStorage()
	defer storage.Close()

	enqueuer, err := jobs.NewEnqueuer(storage)
	require.NoError(t, err)

	worker, err := jobs.NewWorker(cancelAwareRepository{storage}, jobs.WithPollInterval(20*time.Millisecond))
	require.NoError(t, err)

	started := make(chan struct{})
	release := make(chan struct{})
	worker.RegisterHandlers(jobs.NewJobHandler(func(ctx context.Context, p digestPayload) error {
		close(started)
		<-release
		return nil
	}))

	ctx := context.Background()
	require.NoError(t, worker.Start(ctx))
	require.NoError(t, enqueuer.Enqueue(ctx, digestPayload{UserID: "u5"}))

	<-started

	// Stop cancels the worker context, then waits for the in-flight job.
	stopDone := make(chan error, 1)
	go func() { stopDone <- worker.Stop() }()
	time.Sleep(100 * time.Millisecond)
	close(release)

	require.NoError(t, <-stopDone)
	assert.Len(t, storage.JobsByStatus(jobs.JobStatusCompleted), 1,
		"a job finishing during shutdown still persists its outcome")
}
