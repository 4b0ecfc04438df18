package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopfloor-io/floorline/internal/core"
	"github.com/shopfloor-io/floorline/internal/store"
)

const testTenant = "tenant-test"

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

// seedDB creates a database file with a minimal entity graph and returns its
// path for --db.
func seedDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "floorline.db")
	s, err := store.Open(path)
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	limit := 3
	require.NoError(t, s.UpsertCell(ctx, core.Cell{
		ID: "lathe", TenantID: testTenant, Name: "Lathe Bay",
		Sequence: 10, WIPLimit: &limit, EnforceWIPLimit: true, Active: true,
	}))
	require.NoError(t, s.UpsertCell(ctx, core.Cell{
		ID: "mill", TenantID: testTenant, Name: "Milling", Sequence: 20, Active: true,
	}))
	require.NoError(t, s.CreateJob(ctx, core.Job{ID: "job-1", TenantID: testTenant, Number: "J-100"}))
	require.NoError(t, s.CreatePart(ctx, core.Part{ID: "part-1", TenantID: testTenant, JobID: "job-1", Number: "P-1"}))
	require.NoError(t, s.CreateOperation(ctx, core.Operation{
		ID: "op-1", TenantID: testTenant, PartID: "part-1", CellID: "lathe", Sequence: 1,
	}))
	require.NoError(t, s.UpsertScrapReason(ctx, core.ScrapReason{
		ID: "sr-1", TenantID: testTenant, Code: "porosity", Category: core.ScrapMaterial, Active: true,
	}))
	return path
}

func TestRootCommand_InvalidFormat(t *testing.T) {
	_, _, err := runCLI(t, "--format", "xml", "validate", "testdata/layout")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestValidateCommand_Text(t *testing.T) {
	out, _, err := runCLI(t, "validate", "testdata/layout")
	require.NoError(t, err)
	assert.Equal(t, "layout valid: 2 cell(s), 1 scrap reason(s)\n", out)
}

func TestValidateCommand_MissingDir(t *testing.T) {
	out, _, err := runCLI(t, "validate", "testdata/nope")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "CONFIGURATION")
}

func TestApplyThenWIP(t *testing.T) {
	db := filepath.Join(t.TempDir(), "floorline.db")

	_, _, err := runCLI(t, "apply", "testdata/layout", "--db", db, "--tenant", testTenant)
	require.NoError(t, err)

	out, _, err := runCLI(t, "wip", "lathe", "--db", db, "--tenant", testTenant)
	require.NoError(t, err)
	assert.Equal(t, "Lathe Bay: 0/3 part(s), status normal (0% utilized)\n", out)
}

func TestWIP_JSONEnvelope(t *testing.T) {
	db := seedDB(t)

	out, _, err := runCLI(t, "wip", "lathe", "--db", db, "--tenant", testTenant, "--format", "json")
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestWIP_MissingCell(t *testing.T) {
	db := seedDB(t)

	out, _, err := runCLI(t, "wip", "nope", "--db", db, "--tenant", testTenant)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "NOT_FOUND")
}

func TestAdvanceRecordTotalsFlow(t *testing.T) {
	db := seedDB(t)
	global := []string{"--db", db, "--tenant", testTenant, "--actor", "op-test"}

	out, _, err := runCLI(t, append([]string{"advance", "part-1"}, global...)...)
	require.NoError(t, err)
	assert.Equal(t, "started operation op-1 in cell lathe\n", out)

	_, _, err = runCLI(t, append([]string{
		"record", "op-1", "--produced", "10", "--good", "7", "--scrap", "3",
		"--reason", "porosity=3",
	}, global...)...)
	require.NoError(t, err)

	out, _, err = runCLI(t, append([]string{"totals", "op-1"}, global...)...)
	require.NoError(t, err)
	assert.Equal(t, "produced=10 good=7 scrap=3 rework=0 yield=70.00%\n", out)

	out, _, err = runCLI(t, append([]string{"scrap"}, global...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "porosity")

	out, _, err = runCLI(t, append([]string{"op", "complete", "op-1"}, global...)...)
	require.NoError(t, err)
	assert.Equal(t, "completed operation op-1\n", out)
}

func TestClockFlow(t *testing.T) {
	db := seedDB(t)
	global := []string{"--db", db, "--tenant", testTenant, "--actor", "op-test"}

	_, _, err := runCLI(t, append([]string{"advance", "part-1"}, global...)...)
	require.NoError(t, err)

	out, _, err := runCLI(t, append([]string{
		"clock", "start", "op-1", "--type", "run", "--format", "json",
	}, global...)...)
	require.NoError(t, err)

	var resp struct {
		Data struct {
			SegmentID string `json:"segment_id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.NotEmpty(t, resp.Data.SegmentID)

	out, _, err = runCLI(t, append([]string{"clock", "stop", resp.Data.SegmentID}, global...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "closed segment")

	out, _, err = runCLI(t, append([]string{"clock", "list", "op-1"}, global...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "run")
	assert.Contains(t, out, "closed")
}

func TestRecord_BadReasonFlag(t *testing.T) {
	db := seedDB(t)

	out, _, err := runCLI(t, "record", "op-1", "--produced", "1", "--good", "1",
		"--reason", "porosity", "--db", db, "--tenant", testTenant)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "VALIDATION")
}
