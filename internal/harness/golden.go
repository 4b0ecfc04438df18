package harness

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/shopfloor-io/floorline/internal/store"
)

// Snapshot is the canonical JSON form of a scenario trace.
type Snapshot struct {
	Scenario string       `json:"scenario"`
	Trace    []TraceEvent `json:"trace"`
}

// RunWithGolden loads a scenario, runs it against a fresh store, and compares
// the trace against testdata/golden/{name}.golden.
//
// Regenerate golden files with:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenarioPath string) {
	t.Helper()

	scenario, err := LoadScenario(scenarioPath)
	if err != nil {
		t.Fatalf("load scenario: %v", err)
	}

	st, err := store.Open(filepath.Join(t.TempDir(), "harness.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer st.Close()

	result, err := Run(scenario, st)
	if err != nil {
		t.Fatalf("run scenario: %v", err)
	}

	snapshot := Snapshot{Scenario: scenario.Name, Trace: result.Trace}
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		t.Fatalf("marshal snapshot: %v", err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)
}
