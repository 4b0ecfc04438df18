package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopfloor-io/floorline/internal/core"
)

const testTenant = "tenant-1"

// openTestStore creates a store in a temp directory.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func intPtr(v int) *int { return &v }

// seedCell inserts a cell and fails the test on error.
func seedCell(t *testing.T, s *Store, id string, sequence int, limit *int) core.Cell {
	t.Helper()
	c := core.Cell{
		ID:       id,
		TenantID: testTenant,
		Name:     "Cell " + id,
		Sequence: sequence,
		WIPLimit: limit,
		Active:   true,
	}
	if err := s.UpsertCell(context.Background(), c); err != nil {
		t.Fatalf("UpsertCell(%s) failed: %v", id, err)
	}
	return c
}

// seedJobPart inserts a job with one part and returns their IDs.
func seedJobPart(t *testing.T, s *Store, jobID, partID string) {
	t.Helper()
	ctx := context.Background()
	if err := s.CreateJob(ctx, core.Job{ID: jobID, TenantID: testTenant, Number: "J-" + jobID}); err != nil {
		t.Fatalf("CreateJob(%s) failed: %v", jobID, err)
	}
	if err := s.CreatePart(ctx, core.Part{ID: partID, TenantID: testTenant, JobID: jobID, Number: "P-" + partID}); err != nil {
		t.Fatalf("CreatePart(%s) failed: %v", partID, err)
	}
}

// seedOperation inserts an operation in the given status.
func seedOperation(t *testing.T, s *Store, id, partID, cellID string, sequence int, status core.OperationStatus) {
	t.Helper()
	op := core.Operation{
		ID:       id,
		TenantID: testTenant,
		PartID:   partID,
		CellID:   cellID,
		Sequence: sequence,
		Status:   status,
	}
	if err := s.CreateOperation(context.Background(), op); err != nil {
		t.Fatalf("CreateOperation(%s) failed: %v", id, err)
	}
}

func testTime(minutes int) time.Time {
	return time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC).Add(time.Duration(minutes) * time.Minute)
}
