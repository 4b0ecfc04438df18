package capacity

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopfloor-io/floorline/internal/core"
	"github.com/shopfloor-io/floorline/internal/store"
	"github.com/shopfloor-io/floorline/internal/testutil"
)

// occupyCell seeds n distinct parts each with one occupying operation in the cell.
func occupyCell(t *testing.T, s *store.Store, cellID string, n int) {
	t.Helper()
	job := testutil.SeedJob(t, s, "job-"+cellID)
	for i := 0; i < n; i++ {
		partID := fmt.Sprintf("part-%s-%d", cellID, i)
		testutil.SeedPart(t, s, partID, job.ID)
		testutil.SeedOperation(t, s, "op-"+partID, partID, cellID, 1, core.StatusInProgress)
	}
}

func TestCurrentWIP_CountsDistinctParts(t *testing.T) {
	s := testutil.OpenStore(t)
	l := NewLedger(s)
	ctx := context.Background()

	testutil.SeedCell(t, s, core.Cell{ID: "mill", Sequence: 10})
	job := testutil.SeedJob(t, s, "job-1")
	testutil.SeedPart(t, s, "part-1", job.ID)
	testutil.SeedPart(t, s, "part-2", job.ID)

	// part-1 has two occupying operations in the cell but counts once.
	testutil.SeedOperation(t, s, "op-1", "part-1", "mill", 1, core.StatusNotStarted)
	testutil.SeedOperation(t, s, "op-2", "part-1", "mill", 2, core.StatusInProgress)
	// Paused and completed operations do not occupy.
	testutil.SeedOperation(t, s, "op-3", "part-2", "mill", 1, core.StatusCompleted)

	wip, err := l.CurrentWIP(ctx, testutil.Ctx(), "mill")
	require.NoError(t, err)
	assert.Equal(t, 1, wip)
}

func TestCurrentWIP_MissingCell(t *testing.T) {
	s := testutil.OpenStore(t)
	l := NewLedger(s)

	_, err := l.CurrentWIP(context.Background(), testutil.Ctx(), "missing")
	assert.True(t, core.IsNotFound(err), "expected NotFound, got %v", err)
}

func TestEvaluate_NoLimit(t *testing.T) {
	s := testutil.OpenStore(t)
	l := NewLedger(s)

	testutil.SeedCell(t, s, core.Cell{ID: "mill", Sequence: 10})
	occupyCell(t, s, "mill", 3)

	eval, err := l.Evaluate(context.Background(), testutil.Ctx(), "mill")
	require.NoError(t, err)
	assert.Equal(t, StatusNoLimit, eval.Status)
	assert.Equal(t, 3, eval.WIP)
	assert.Nil(t, eval.UtilizationPercent)
}

func TestEvaluate_StatusBands(t *testing.T) {
	cases := []struct {
		name       string
		wip        int
		limit      int
		threshold  *int
		wantStatus Status
		wantUtil   int
	}{
		{"normal below default threshold", 3, 5, nil, StatusNormal, 60},
		{"warning at default threshold", 4, 5, nil, StatusWarning, 80}, // floor(0.8*5) = 4
		{"at capacity at limit", 5, 5, nil, StatusAtCapacity, 100},
		{"at capacity over limit", 6, 5, nil, StatusAtCapacity, 120},
		{"explicit threshold overrides default", 2, 5, testutil.IntPtr(2), StatusWarning, 40},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			s := testutil.OpenStore(t)
			l := NewLedger(s)

			testutil.SeedCell(t, s, core.Cell{
				ID: "mill", Sequence: 10,
				WIPLimit: testutil.IntPtr(c.limit), WarningThreshold: c.threshold,
			})
			occupyCell(t, s, "mill", c.wip)

			eval, err := l.Evaluate(context.Background(), testutil.Ctx(), "mill")
			require.NoError(t, err)
			assert.Equal(t, c.wantStatus, eval.Status)
			require.NotNil(t, eval.UtilizationPercent)
			assert.Equal(t, c.wantUtil, *eval.UtilizationPercent)
		})
	}
}

func TestCheckAdmission_BlocksOnlyWhenEnforced(t *testing.T) {
	ctx := context.Background()

	// Destination at capacity (wip 5, limit 5) with the limit enforced.
	s := testutil.OpenStore(t)
	l := NewLedger(s)
	testutil.SeedCell(t, s, core.Cell{ID: "saw", Sequence: 10})
	testutil.SeedCell(t, s, core.Cell{ID: "mill", Sequence: 20, WIPLimit: testutil.IntPtr(5), EnforceWIPLimit: true})
	occupyCell(t, s, "mill", 5)

	d, err := l.CheckAdmission(ctx, testutil.Ctx(), "saw")
	require.NoError(t, err)
	assert.False(t, d.HasCapacity)
	assert.Equal(t, 5, d.CurrentWIP)
	require.NotNil(t, d.NextCell)
	assert.Equal(t, "mill", d.NextCell.ID)

	// Same occupancy without enforcement only warns.
	s2 := testutil.OpenStore(t)
	l2 := NewLedger(s2)
	testutil.SeedCell(t, s2, core.Cell{ID: "saw", Sequence: 10})
	testutil.SeedCell(t, s2, core.Cell{ID: "mill", Sequence: 20, WIPLimit: testutil.IntPtr(5), EnforceWIPLimit: false})
	occupyCell(t, s2, "mill", 5)

	d, err = l2.CheckAdmission(ctx, testutil.Ctx(), "saw")
	require.NoError(t, err)
	assert.True(t, d.HasCapacity)
	assert.True(t, d.Warning)
}

func TestCheckAdmission_WarningBand(t *testing.T) {
	s := testutil.OpenStore(t)
	l := NewLedger(s)

	testutil.SeedCell(t, s, core.Cell{ID: "saw", Sequence: 10})
	testutil.SeedCell(t, s, core.Cell{ID: "mill", Sequence: 20, WIPLimit: testutil.IntPtr(5), EnforceWIPLimit: true})
	occupyCell(t, s, "mill", 4) // at floor(0.8*5)

	d, err := l.CheckAdmission(context.Background(), testutil.Ctx(), "saw")
	require.NoError(t, err)
	assert.True(t, d.HasCapacity)
	assert.True(t, d.Warning)
}

func TestCheckAdmission_LastCell(t *testing.T) {
	s := testutil.OpenStore(t)
	l := NewLedger(s)

	testutil.SeedCell(t, s, core.Cell{ID: "pack", Sequence: 90})

	d, err := l.CheckAdmission(context.Background(), testutil.Ctx(), "pack")
	require.NoError(t, err)
	assert.True(t, d.HasCapacity)
	assert.Nil(t, d.NextCell)
	assert.Contains(t, d.Message, "leaves routing")
}

func TestCheckAdmission_SkipsInactiveCells(t *testing.T) {
	s := testutil.OpenStore(t)
	l := NewLedger(s)
	ctx := context.Background()

	testutil.SeedCell(t, s, core.Cell{ID: "saw", Sequence: 10})
	inactive := core.Cell{ID: "deburr", TenantID: testutil.Tenant, Name: "Deburr", Sequence: 15, Active: false}
	require.NoError(t, s.UpsertCell(ctx, inactive))
	testutil.SeedCell(t, s, core.Cell{ID: "mill", Sequence: 20})

	d, err := l.CheckAdmission(ctx, testutil.Ctx(), "saw")
	require.NoError(t, err)
	require.NotNil(t, d.NextCell)
	assert.Equal(t, "mill", d.NextCell.ID)
}

func TestCheckAdmission_DuplicateSequenceIsConfigurationError(t *testing.T) {
	s := testutil.OpenStore(t)
	l := NewLedger(s)

	testutil.SeedCell(t, s, core.Cell{ID: "saw", Sequence: 10})
	testutil.SeedCell(t, s, core.Cell{ID: "mill-a", Sequence: 20})
	testutil.SeedCell(t, s, core.Cell{ID: "mill-b", Sequence: 20})

	_, err := l.CheckAdmission(context.Background(), testutil.Ctx(), "saw")
	assert.True(t, core.IsConfiguration(err), "expected Configuration error, got %v", err)
}

func TestAdmit_EvaluatesDestinationDirectly(t *testing.T) {
	s := testutil.OpenStore(t)
	l := NewLedger(s)
	ctx := context.Background()

	testutil.SeedCell(t, s, core.Cell{ID: "mill", Sequence: 20, WIPLimit: testutil.IntPtr(2), EnforceWIPLimit: true})
	occupyCell(t, s, "mill", 2)

	d, err := l.Admit(ctx, testutil.Ctx(), "mill")
	require.NoError(t, err)
	assert.False(t, d.HasCapacity)
	assert.Equal(t, 2, d.CurrentWIP)
	require.NotNil(t, d.NextCell)
	assert.Equal(t, "mill", d.NextCell.ID)

	_, err = l.Admit(ctx, testutil.Ctx(), "missing")
	assert.True(t, core.IsNotFound(err))
}

func TestCheckAdmission_MissingFromCell(t *testing.T) {
	s := testutil.OpenStore(t)
	l := NewLedger(s)

	_, err := l.CheckAdmission(context.Background(), testutil.Ctx(), "missing")
	assert.True(t, core.IsNotFound(err))
}

func TestWIPCache_ServesUntilInvalidated(t *testing.T) {
	s := testutil.OpenStore(t)
	clock := core.NewFixedClock(time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC))
	l := NewLedger(s, WithWIPCache(30*time.Second, clock))
	ctx := context.Background()

	testutil.SeedCell(t, s, core.Cell{ID: "mill", Sequence: 10})
	occupyCell(t, s, "mill", 2)

	wip, err := l.CurrentWIP(ctx, testutil.Ctx(), "mill")
	require.NoError(t, err)
	require.Equal(t, 2, wip)

	// A new occupying part is invisible until invalidation.
	testutil.SeedPart(t, s, "part-late", "job-mill")
	testutil.SeedOperation(t, s, "op-late", "part-late", "mill", 1, core.StatusNotStarted)

	wip, err = l.CurrentWIP(ctx, testutil.Ctx(), "mill")
	require.NoError(t, err)
	assert.Equal(t, 2, wip, "cache should serve the stale count")

	l.Invalidate("mill")
	wip, err = l.CurrentWIP(ctx, testutil.Ctx(), "mill")
	require.NoError(t, err)
	assert.Equal(t, 3, wip, "invalidation should force a recount")
}

func TestWIPCache_ExpiresByTTL(t *testing.T) {
	s := testutil.OpenStore(t)
	clock := core.NewFixedClock(time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC))
	l := NewLedger(s, WithWIPCache(30*time.Second, clock))
	ctx := context.Background()

	testutil.SeedCell(t, s, core.Cell{ID: "mill", Sequence: 10})
	occupyCell(t, s, "mill", 1)

	wip, err := l.CurrentWIP(ctx, testutil.Ctx(), "mill")
	require.NoError(t, err)
	require.Equal(t, 1, wip)

	testutil.SeedPart(t, s, "part-late", "job-mill")
	testutil.SeedOperation(t, s, "op-late", "part-late", "mill", 1, core.StatusNotStarted)

	clock.Advance(time.Minute)
	wip, err = l.CurrentWIP(ctx, testutil.Ctx(), "mill")
	require.NoError(t, err)
	assert.Equal(t, 2, wip, "TTL expiry should force a recount")
}
