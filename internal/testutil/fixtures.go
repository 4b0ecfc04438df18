// Package testutil provides shared fixtures for component tests: a temp
// SQLite store and seed helpers for the shop-floor entity graph.
package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shopfloor-io/floorline/internal/core"
	"github.com/shopfloor-io/floorline/internal/store"
)

// Tenant is the tenant every fixture is seeded under.
const Tenant = "tenant-test"

// Ctx returns the tenant context fixtures run as.
func Ctx() core.TenantContext {
	return core.TenantContext{TenantID: Tenant, ActorID: "operator-test", Role: "operator"}
}

// OpenStore creates a store in a temp directory and closes it with the test.
func OpenStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "floorline.db"))
	require.NoError(t, err, "open test store")
	t.Cleanup(func() { s.Close() })
	return s
}

// IntPtr returns a pointer to v, for optional WIP limits and thresholds.
func IntPtr(v int) *int { return &v }

// SeedCell inserts an active cell.
func SeedCell(t *testing.T, s *store.Store, c core.Cell) core.Cell {
	t.Helper()
	if c.TenantID == "" {
		c.TenantID = Tenant
	}
	if c.Name == "" {
		c.Name = "Cell " + c.ID
	}
	c.Active = true
	require.NoError(t, s.UpsertCell(context.Background(), c), "seed cell %s", c.ID)
	return c
}

// SeedJob inserts a job.
func SeedJob(t *testing.T, s *store.Store, id string) core.Job {
	t.Helper()
	j := core.Job{ID: id, TenantID: Tenant, Number: "J-" + id}
	require.NoError(t, s.CreateJob(context.Background(), j), "seed job %s", id)
	return j
}

// SeedPart inserts a part under a job.
func SeedPart(t *testing.T, s *store.Store, id, jobID string) core.Part {
	t.Helper()
	p := core.Part{ID: id, TenantID: Tenant, JobID: jobID, Number: "P-" + id}
	require.NoError(t, s.CreatePart(context.Background(), p), "seed part %s", id)
	return p
}

// SeedOperation inserts an operation bound to a cell.
func SeedOperation(t *testing.T, s *store.Store, id, partID, cellID string, sequence int, status core.OperationStatus) core.Operation {
	t.Helper()
	op := core.Operation{
		ID:       id,
		TenantID: Tenant,
		PartID:   partID,
		CellID:   cellID,
		Sequence: sequence,
		Status:   status,
	}
	require.NoError(t, s.CreateOperation(context.Background(), op), "seed operation %s", id)
	return op
}

// SeedScrapReason inserts an active scrap reason.
func SeedScrapReason(t *testing.T, s *store.Store, id, code string, category core.ScrapCategory) core.ScrapReason {
	t.Helper()
	r := core.ScrapReason{ID: id, TenantID: Tenant, Code: code, Category: category, Active: true}
	require.NoError(t, s.UpsertScrapReason(context.Background(), r), "seed scrap reason %s", code)
	return r
}
