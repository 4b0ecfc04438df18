package timeseg

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopfloor-io/floorline/internal/core"
	"github.com/shopfloor-io/floorline/internal/events"
	"github.com/shopfloor-io/floorline/internal/store"
	"github.com/shopfloor-io/floorline/internal/testutil"
)

func newTestTracker(t *testing.T) (*Tracker, *store.Store, *core.FixedClock, *events.Recorder) {
	t.Helper()
	s := testutil.OpenStore(t)
	rec := &events.Recorder{}
	bus := events.NewBus(nil)
	bus.Subscribe("recorder", rec)
	clock := core.NewFixedClock(time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC))

	testutil.SeedCell(t, s, core.Cell{ID: "mill", Sequence: 10})
	testutil.SeedJob(t, s, "job-1")
	testutil.SeedPart(t, s, "part-1", "job-1")
	testutil.SeedOperation(t, s, "op-1", "part-1", "mill", 1, core.StatusInProgress)

	return NewTracker(s, bus, clock), s, clock, rec
}

func TestStartPauseResumeClose_DurationExcludesPause(t *testing.T) {
	tr, _, clock, rec := newTestTracker(t)
	ctx := context.Background()

	id, err := tr.Start(ctx, testutil.Ctx(), "op-1", core.SegmentRun)
	require.NoError(t, err)

	clock.Advance(5 * time.Minute)
	require.NoError(t, tr.Pause(ctx, testutil.Ctx(), id))

	clock.Advance(5 * time.Minute)
	require.NoError(t, tr.Resume(ctx, testutil.Ctx(), id))

	clock.Advance(10 * time.Minute)
	duration, err := tr.Close(ctx, testutil.Ctx(), id)
	require.NoError(t, err)

	// 20 minutes wall clock minus the 5 minute pause.
	assert.Equal(t, 15*time.Minute, duration)

	closedEvents := rec.ByType(events.TypeSegmentClosed)
	require.Len(t, closedEvents, 1)
	assert.Equal(t, id, closedEvents[0].Subject)
	assert.Equal(t, "15m0s", closedEvents[0].Fields["active_duration"])
}

func TestClose_UnresolvedPauseCountsToClose(t *testing.T) {
	tr, _, clock, _ := newTestTracker(t)
	ctx := context.Background()

	id, err := tr.Start(ctx, testutil.Ctx(), "op-1", core.SegmentBreakdown)
	require.NoError(t, err)

	clock.Advance(10 * time.Minute)
	require.NoError(t, tr.Pause(ctx, testutil.Ctx(), id))

	// Close without resuming: the pause runs to the close timestamp.
	clock.Advance(20 * time.Minute)
	duration, err := tr.Close(ctx, testutil.Ctx(), id)
	require.NoError(t, err)
	assert.Equal(t, 10*time.Minute, duration)
}

func TestStart_RejectsOverlap(t *testing.T) {
	tr, _, _, _ := newTestTracker(t)
	ctx := context.Background()

	_, err := tr.Start(ctx, testutil.Ctx(), "op-1", core.SegmentRun)
	require.NoError(t, err)

	// A second segment of any type on the same operation is refused.
	_, err = tr.Start(ctx, testutil.Ctx(), "op-1", core.SegmentSetup)
	assert.True(t, core.IsValidation(err), "expected Validation error, got %v", err)
}

func TestStart_AllowedAfterClose(t *testing.T) {
	tr, _, clock, _ := newTestTracker(t)
	ctx := context.Background()

	id, err := tr.Start(ctx, testutil.Ctx(), "op-1", core.SegmentSetup)
	require.NoError(t, err)
	clock.Advance(3 * time.Minute)
	_, err = tr.Close(ctx, testutil.Ctx(), id)
	require.NoError(t, err)

	_, err = tr.Start(ctx, testutil.Ctx(), "op-1", core.SegmentRun)
	assert.NoError(t, err)
}

func TestStart_InvalidType(t *testing.T) {
	tr, _, _, _ := newTestTracker(t)

	_, err := tr.Start(context.Background(), testutil.Ctx(), "op-1", "lunch")
	assert.True(t, core.IsValidation(err))
}

func TestStart_MissingOperation(t *testing.T) {
	tr, _, _, _ := newTestTracker(t)

	_, err := tr.Start(context.Background(), testutil.Ctx(), "missing", core.SegmentRun)
	assert.True(t, core.IsNotFound(err))
}

func TestPause_Guards(t *testing.T) {
	tr, _, clock, _ := newTestTracker(t)
	ctx := context.Background()

	id, err := tr.Start(ctx, testutil.Ctx(), "op-1", core.SegmentRun)
	require.NoError(t, err)

	require.NoError(t, tr.Pause(ctx, testutil.Ctx(), id))

	// Pausing a paused segment is rejected.
	err = tr.Pause(ctx, testutil.Ctx(), id)
	assert.True(t, core.IsValidation(err))

	// Pausing a closed segment is rejected.
	require.NoError(t, tr.Resume(ctx, testutil.Ctx(), id))
	clock.Advance(time.Minute)
	_, err = tr.Close(ctx, testutil.Ctx(), id)
	require.NoError(t, err)
	err = tr.Pause(ctx, testutil.Ctx(), id)
	assert.True(t, core.IsValidation(err))
}

func TestResume_NotPaused(t *testing.T) {
	tr, _, _, _ := newTestTracker(t)
	ctx := context.Background()

	id, err := tr.Start(ctx, testutil.Ctx(), "op-1", core.SegmentRun)
	require.NoError(t, err)

	err = tr.Resume(ctx, testutil.Ctx(), id)
	assert.True(t, core.IsValidation(err))
}

func TestClose_MissingSegment(t *testing.T) {
	tr, _, _, _ := newTestTracker(t)

	_, err := tr.Close(context.Background(), testutil.Ctx(), "missing")
	assert.True(t, core.IsNotFound(err))
}

func TestSegments_ListsInStartOrder(t *testing.T) {
	tr, _, clock, _ := newTestTracker(t)
	ctx := context.Background()

	first, err := tr.Start(ctx, testutil.Ctx(), "op-1", core.SegmentSetup)
	require.NoError(t, err)
	clock.Advance(5 * time.Minute)
	_, err = tr.Close(ctx, testutil.Ctx(), first)
	require.NoError(t, err)

	clock.Advance(time.Minute)
	second, err := tr.Start(ctx, testutil.Ctx(), "op-1", core.SegmentRun)
	require.NoError(t, err)

	segments, err := tr.Segments(ctx, testutil.Ctx(), "op-1")
	require.NoError(t, err)
	require.Len(t, segments, 2)
	assert.Equal(t, first, segments[0].ID)
	assert.Equal(t, core.SegmentSetup, segments[0].Type)
	assert.Equal(t, second, segments[1].ID)
	assert.Nil(t, segments[1].EndedAt)
}
