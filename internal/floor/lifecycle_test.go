package floor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopfloor-io/floorline/internal/core"
	"github.com/shopfloor-io/floorline/internal/testutil"
)

func TestLifecycle_JobStartsWithFirstOperation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	testutil.SeedCell(t, f.store, core.Cell{ID: "mill", Sequence: 10})
	testutil.SeedJob(t, f.store, "job-1")
	testutil.SeedPart(t, f.store, "part-1", "job-1")
	testutil.SeedOperation(t, f.store, "op-1", "part-1", "mill", 1, core.StatusNotStarted)
	testutil.SeedOperation(t, f.store, "op-2", "part-1", "mill", 2, core.StatusNotStarted)

	_, err := f.svc.AdvancePart(ctx, testutil.Ctx(), "part-1")
	require.NoError(t, err)

	job, err := f.store.GetJob(ctx, testutil.Tenant, "job-1")
	require.NoError(t, err)
	require.NotNil(t, job.StartedAt)
	assert.Equal(t, f.clock.Now(), *job.StartedAt)
	assert.Nil(t, job.CompletedAt)
}

func TestLifecycle_JobCompletesWithLastOperation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	testutil.SeedCell(t, f.store, core.Cell{ID: "mill", Sequence: 10})
	testutil.SeedJob(t, f.store, "job-1")
	testutil.SeedPart(t, f.store, "part-1", "job-1")
	testutil.SeedPart(t, f.store, "part-2", "job-1")
	testutil.SeedOperation(t, f.store, "op-1", "part-1", "mill", 1, core.StatusInProgress)
	testutil.SeedOperation(t, f.store, "op-2", "part-2", "mill", 1, core.StatusInProgress)

	require.NoError(t, f.svc.CompleteOperation(ctx, testutil.Ctx(), "op-1"))

	job, err := f.store.GetJob(ctx, testutil.Tenant, "job-1")
	require.NoError(t, err)
	assert.Nil(t, job.CompletedAt, "one part still open")

	f.clock.Advance(30 * time.Minute)
	require.NoError(t, f.svc.CompleteOperation(ctx, testutil.Ctx(), "op-2"))

	job, err = f.store.GetJob(ctx, testutil.Tenant, "job-1")
	require.NoError(t, err)
	require.NotNil(t, job.CompletedAt)
	assert.Equal(t, f.clock.Now(), *job.CompletedAt)
}

func TestLifecycle_PauseAndResumeStamps(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	testutil.SeedCell(t, f.store, core.Cell{ID: "mill", Sequence: 10})
	testutil.SeedJob(t, f.store, "job-1")
	testutil.SeedPart(t, f.store, "part-1", "job-1")
	testutil.SeedOperation(t, f.store, "op-1", "part-1", "mill", 1, core.StatusInProgress)

	pausedAt := f.clock.Now()
	require.NoError(t, f.svc.PauseOperation(ctx, testutil.Ctx(), "op-1"))

	job, err := f.store.GetJob(ctx, testutil.Tenant, "job-1")
	require.NoError(t, err)
	require.NotNil(t, job.PausedAt)
	assert.Equal(t, pausedAt, *job.PausedAt)
	assert.Nil(t, job.ResumedAt)

	f.clock.Advance(10 * time.Minute)
	require.NoError(t, f.svc.ResumeOperation(ctx, testutil.Ctx(), "op-1"))

	job, err = f.store.GetJob(ctx, testutil.Tenant, "job-1")
	require.NoError(t, err)
	require.NotNil(t, job.ResumedAt)
	assert.Equal(t, f.clock.Now(), *job.ResumedAt)
}

func TestDeriveJobTimestamps_EmptyOperationSet(t *testing.T) {
	job := core.Job{ID: "job-1"}
	at := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

	// A job with no operations never starts and never completes.
	derived := deriveJobTimestamps(job, nil, at)
	assert.Nil(t, derived.StartedAt)
	assert.Nil(t, derived.CompletedAt)
}

func TestDeriveJobTimestamps_KeepsExistingCompletion(t *testing.T) {
	earlier := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	later := earlier.Add(time.Hour)

	job := core.Job{ID: "job-1", CompletedAt: &earlier}
	ops := []core.Operation{
		{ID: "op-1", Status: core.StatusCompleted, StartedAt: &earlier},
	}

	derived := deriveJobTimestamps(job, ops, later)
	require.NotNil(t, derived.CompletedAt)
	assert.Equal(t, earlier, *derived.CompletedAt, "completion stamp is stable across replays")
}
