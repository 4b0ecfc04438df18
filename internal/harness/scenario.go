package harness

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario is a declarative shop-floor test case.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	Seed        Seed   `yaml:"seed"`
	Flow        []Step `yaml:"flow"`
}

// Seed declares the entity graph the scenario starts from.
type Seed struct {
	Cells        []SeedCell   `yaml:"cells"`
	Jobs         []SeedJob    `yaml:"jobs"`
	ScrapReasons []SeedReason `yaml:"scrap_reasons,omitempty"`
}

// SeedCell declares one cell. Cells are active unless stated otherwise.
type SeedCell struct {
	ID               string `yaml:"id"`
	Name             string `yaml:"name,omitempty"`
	Sequence         int    `yaml:"sequence"`
	WIPLimit         *int   `yaml:"wip_limit,omitempty"`
	WarningThreshold *int   `yaml:"warning_threshold,omitempty"`
	EnforceWIPLimit  bool   `yaml:"enforce_wip_limit,omitempty"`
}

// SeedJob declares a job and its parts.
type SeedJob struct {
	ID    string     `yaml:"id"`
	Parts []SeedPart `yaml:"parts"`
}

// SeedPart declares a part and its routed operations.
type SeedPart struct {
	ID         string   `yaml:"id"`
	Operations []SeedOp `yaml:"operations"`
}

// SeedOp declares one operation bound to a cell.
type SeedOp struct {
	ID       string `yaml:"id"`
	Cell     string `yaml:"cell"`
	Sequence int    `yaml:"sequence"`
}

// SeedReason declares one scrap registry entry.
type SeedReason struct {
	Code     string `yaml:"code"`
	Category string `yaml:"category"`
}

// Step is one operator action in the flow.
type Step struct {
	// Action is one of advance, complete, pause, resume, record, wip, totals.
	Action    string `yaml:"action"`
	Part      string `yaml:"part,omitempty"`
	Operation string `yaml:"operation,omitempty"`
	Cell      string `yaml:"cell,omitempty"`

	// Quantities for record steps.
	Produced int            `yaml:"produced,omitempty"`
	Good     int            `yaml:"good,omitempty"`
	Scrap    int            `yaml:"scrap,omitempty"`
	Rework   int            `yaml:"rework,omitempty"`
	Reasons  map[string]int `yaml:"reasons,omitempty"`
}

// LoadScenario reads and validates a scenario YAML file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}

	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	if err := s.validate(); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	return &s, nil
}

func (s *Scenario) validate() error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow must have at least one step")
	}
	for i, step := range s.Flow {
		switch step.Action {
		case "advance":
			if step.Part == "" {
				return fmt.Errorf("step %d: advance requires part", i+1)
			}
		case "complete", "pause", "resume", "record", "totals":
			if step.Operation == "" {
				return fmt.Errorf("step %d: %s requires operation", i+1, step.Action)
			}
		case "wip":
			if step.Cell == "" {
				return fmt.Errorf("step %d: wip requires cell", i+1)
			}
		default:
			return fmt.Errorf("step %d: unknown action %q", i+1, step.Action)
		}
	}
	return nil
}
