package jobs_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edukit/notify/pkg/jobs"
)

func TestScheduler_AddTask(t *testing.T) {
	storage := jobs.NewMemoryStorage()
	defer storage.Close()

	scheduler, err := jobs.NewScheduler(storage)
	require.NoError(t, err)

	require.NoError(t, scheduler.AddTask("retention-sweep", "@daily"))

	t.Run("duplicate name rejected", func(t *testing.T) {
		err := scheduler.AddTask("retention-sweep", "@daily")
		assert.ErrorIs(t, err, jobs.ErrTaskAlreadyRegistered)
	})

	t.Run("invalid cron spec rejected", func(t *testing.T) {
		err := scheduler.AddTask("broken", "not a cron spec")
		assert.ErrorIs(t, err, jobs.ErrInvalidSchedule)
	})
}

func TestScheduler_NilRepository(t *testing.T) {
	_, err := jobs.NewScheduler(nil)
	assert.ErrorIs(t, err, jobs.ErrRepositoryNil)
}

func TestScheduler_StartRequiresTasks(t *testing.T) {
	storage := jobs.NewMemoryStorage()
	defer storage.Close()

	scheduler, err := jobs.NewScheduler(storage)
	require.NoError(t, err)

	assert.ErrorIs(t, scheduler.Start(context.Background()), jobs.ErrSchedulerNotConfigured)
}

func TestScheduler_PlantsPeriodicJob(t *testing.T) {
	storage := jobs.NewMemoryStorage()
	defer storage.Close()

	scheduler, err := jobs.NewScheduler(storage,
		jobs.WithCheckInterval(20*time.Millisecond))
	require.NoError(t, err)

	require.NoError(t, scheduler.AddTask("retention-sweep", "@every 1s",
		jobs.WithTaskQueue("maintenance")))

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	_ = scheduler.Start(ctx)

	pending := storage.JobsByStatus(jobs.JobStatusPending)
	require.NotEmpty(t, pending)
	assert.Equal(t, "retention-sweep", pending[0].Name)
	assert.Equal(t, "maintenance", pending[0].Queue)
	assert.Equal(t, jobs.JobKindPeriodic, pending[0].Kind)
}

func TestScheduler_DoesNotDoublePlantPendingTask(t *testing.T) {
	storage := jobs.NewMemoryStorage()
	defer storage.Close()

	scheduler, err := jobs.NewScheduler(storage,
		jobs.WithCheckInterval(20*time.Millisecond))
	require.NoError(t, err)

	require.NoError(t, scheduler.AddTask("retention-sweep", "@every 1s"))

	// Run long enough for several check cycles; the earlier planted job is
	// still pending so no second row may appear.
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	_ = scheduler.Start(ctx)

	assert.Len(t, storage.JobsByStatus(jobs.JobStatusPending), 1)
}
