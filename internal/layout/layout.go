// Package layout loads the shop-floor layout from CUE files: the cell
// definitions and the scrap reason registry. The layout is declarative
// configuration; applying it upserts cells and reasons, it never touches
// jobs, parts, or operations.
package layout

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/shopfloor-io/floorline/internal/core"
	"github.com/shopfloor-io/floorline/internal/store"
)

// Layout is the decoded shop-floor configuration.
type Layout struct {
	Cells        []core.Cell
	ScrapReasons []core.ScrapReason
	FileCount    int
}

// Load reads every .cue file under dir and decodes the floor layout.
// The returned layout is already validated.
func Load(dir string) (*Layout, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, core.NewConfigurationError(fmt.Sprintf("layout directory not found: %s", dir))
	}
	if err != nil {
		return nil, fmt.Errorf("stat layout directory: %w", err)
	}
	if !info.IsDir() {
		return nil, core.NewConfigurationError(fmt.Sprintf("not a directory: %s", dir))
	}

	files, err := findCUEFiles(dir)
	if err != nil {
		return nil, fmt.Errorf("scan layout directory: %w", err)
	}
	if len(files) == 0 {
		return nil, core.NewConfigurationError(fmt.Sprintf("no CUE files found in %s", dir))
	}

	cuectx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, core.NewConfigurationError("no CUE instances loaded")
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, core.NewConfigurationError(fmt.Sprintf("loading CUE files: %v", inst.Err))
	}
	value := cuectx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, core.NewConfigurationError(fmt.Sprintf("building CUE value: %v", err))
	}

	layout := &Layout{FileCount: len(files)}
	if err := layout.decode(value); err != nil {
		return nil, err
	}
	if err := layout.validate(); err != nil {
		return nil, err
	}
	return layout, nil
}

// Apply upserts the layout's cells and scrap reasons for the tenant.
// Existing reason rows keep their IDs thanks to the (tenant, code) upsert key.
func (l *Layout) Apply(ctx context.Context, s *store.Store, tenantID string) error {
	for _, c := range l.Cells {
		c.TenantID = tenantID
		if err := s.UpsertCell(ctx, c); err != nil {
			return err
		}
	}
	for _, r := range l.ScrapReasons {
		r.ID = core.NewID()
		r.TenantID = tenantID
		if err := s.UpsertScrapReason(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

func (l *Layout) decode(value cue.Value) error {
	floorVal := value.LookupPath(cue.ParsePath("floor"))
	if !floorVal.Exists() {
		return core.NewConfigurationError(`layout has no "floor" root`)
	}

	cellsVal := floorVal.LookupPath(cue.ParsePath("cells"))
	if cellsVal.Exists() {
		iter, err := cellsVal.Fields()
		if err != nil {
			return core.NewConfigurationError(fmt.Sprintf("iterating cells: %v", err))
		}
		for iter.Next() {
			c, err := decodeCell(iter.Label(), iter.Value())
			if err != nil {
				return err
			}
			l.Cells = append(l.Cells, c)
		}
	}

	reasonsVal := floorVal.LookupPath(cue.ParsePath("scrap_reasons"))
	if reasonsVal.Exists() {
		iter, err := reasonsVal.Fields()
		if err != nil {
			return core.NewConfigurationError(fmt.Sprintf("iterating scrap reasons: %v", err))
		}
		for iter.Next() {
			r, err := decodeReason(iter.Label(), iter.Value())
			if err != nil {
				return err
			}
			l.ScrapReasons = append(l.ScrapReasons, r)
		}
	}
	return nil
}

func decodeCell(id string, v cue.Value) (core.Cell, error) {
	c := core.Cell{ID: id, Active: true}

	name, err := stringField(v, "name", true)
	if err != nil {
		return core.Cell{}, cellErr(id, err)
	}
	c.Name = core.NormalizeIdentity(name)

	seq, ok, err := intField(v, "sequence")
	if err != nil {
		return core.Cell{}, cellErr(id, err)
	}
	if !ok {
		return core.Cell{}, cellErr(id, fmt.Errorf("sequence is required"))
	}
	c.Sequence = seq

	if limit, ok, err := intField(v, "wip_limit"); err != nil {
		return core.Cell{}, cellErr(id, err)
	} else if ok {
		c.WIPLimit = &limit
	}
	if threshold, ok, err := intField(v, "warning_threshold"); err != nil {
		return core.Cell{}, cellErr(id, err)
	} else if ok {
		c.WarningThreshold = &threshold
	}
	if enforce, ok, err := boolField(v, "enforce_wip_limit"); err != nil {
		return core.Cell{}, cellErr(id, err)
	} else if ok {
		c.EnforceWIPLimit = enforce
	}
	if active, ok, err := boolField(v, "active"); err != nil {
		return core.Cell{}, cellErr(id, err)
	} else if ok {
		c.Active = active
	}
	return c, nil
}

func decodeReason(code string, v cue.Value) (core.ScrapReason, error) {
	r := core.ScrapReason{Code: core.NormalizeIdentity(code), Active: true}

	category, err := stringField(v, "category", true)
	if err != nil {
		return core.ScrapReason{}, reasonErr(code, err)
	}
	r.Category = core.ScrapCategory(category)

	if active, ok, err := boolField(v, "active"); err != nil {
		return core.ScrapReason{}, reasonErr(code, err)
	} else if ok {
		r.Active = active
	}
	return r, nil
}

func (l *Layout) validate() error {
	seqOwner := map[int]string{}
	for _, c := range l.Cells {
		if c.Name == "" {
			return core.NewConfigurationError(fmt.Sprintf("cell %s: name must not be empty", c.ID))
		}
		if c.WIPLimit != nil && *c.WIPLimit < 0 {
			return core.NewConfigurationError(fmt.Sprintf("cell %s: wip_limit must not be negative", c.ID))
		}
		if c.WarningThreshold != nil {
			if c.WIPLimit == nil {
				return core.NewConfigurationError(fmt.Sprintf("cell %s: warning_threshold requires wip_limit", c.ID))
			}
			if *c.WarningThreshold > *c.WIPLimit {
				return core.NewConfigurationError(fmt.Sprintf(
					"cell %s: warning_threshold %d exceeds wip_limit %d", c.ID, *c.WarningThreshold, *c.WIPLimit))
			}
		}
		if !c.Active {
			continue
		}
		if other, dup := seqOwner[c.Sequence]; dup {
			return core.NewConfigurationError(fmt.Sprintf(
				"cells %s and %s share sequence %d", other, c.ID, c.Sequence))
		}
		seqOwner[c.Sequence] = c.ID
	}

	codes := map[string]bool{}
	for _, r := range l.ScrapReasons {
		if !core.ValidScrapCategory(r.Category) {
			return core.NewConfigurationError(fmt.Sprintf(
				"scrap reason %s: unknown category %q", r.Code, r.Category))
		}
		if codes[r.Code] {
			return core.NewConfigurationError(fmt.Sprintf("duplicate scrap reason code %s", r.Code))
		}
		codes[r.Code] = true
	}
	return nil
}

func cellErr(id string, err error) error {
	return core.NewConfigurationError(fmt.Sprintf("cell %s: %v", id, err))
}

func reasonErr(code string, err error) error {
	return core.NewConfigurationError(fmt.Sprintf("scrap reason %s: %v", code, err))
}

func stringField(v cue.Value, field string, required bool) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		if required {
			return "", fmt.Errorf("%s is required", field)
		}
		return "", nil
	}
	s, err := fv.String()
	if err != nil {
		return "", fmt.Errorf("%s: %v", field, err)
	}
	return s, nil
}

func intField(v cue.Value, field string) (int, bool, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return 0, false, nil
	}
	n, err := fv.Int64()
	if err != nil {
		return 0, false, fmt.Errorf("%s: %v", field, err)
	}
	return int(n), true, nil
}

func boolField(v cue.Value, field string) (bool, bool, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return false, false, nil
	}
	b, err := fv.Bool()
	if err != nil {
		return false, false, fmt.Errorf("%s: %v", field, err)
	}
	return b, true, nil
}

func findCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}
