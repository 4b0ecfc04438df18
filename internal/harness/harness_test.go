package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFirstPieceFlow(t *testing.T) {
	RunWithGolden(t, filepath.Join("testdata", "scenarios", "first-piece-flow.yaml"))
}

func TestSaturatedGate(t *testing.T) {
	RunWithGolden(t, filepath.Join("testdata", "scenarios", "saturated-gate.yaml"))
}

func TestLoadScenario_Validation(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", "first-piece-flow.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "first-piece-flow", s.Name)
	assert.Len(t, s.Flow, 7)
	require.Len(t, s.Seed.Cells, 2)
	require.NotNil(t, s.Seed.Cells[0].WIPLimit)
	assert.Equal(t, 2, *s.Seed.Cells[0].WIPLimit)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join("testdata", "scenarios", "nope.yaml"))
	assert.Error(t, err)
}

func TestScenarioValidate_Rejections(t *testing.T) {
	cases := []struct {
		name     string
		scenario Scenario
	}{
		{"empty name", Scenario{Flow: []Step{{Action: "wip", Cell: "gate"}}}},
		{"empty flow", Scenario{Name: "x"}},
		{"unknown action", Scenario{Name: "x", Flow: []Step{{Action: "teleport"}}}},
		{"advance without part", Scenario{Name: "x", Flow: []Step{{Action: "advance"}}}},
		{"record without operation", Scenario{Name: "x", Flow: []Step{{Action: "record"}}}},
		{"wip without cell", Scenario{Name: "x", Flow: []Step{{Action: "wip"}}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Error(t, tc.scenario.validate())
		})
	}
}
