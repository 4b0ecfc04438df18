package capacity

import (
	"context"
	"fmt"
	"math"

	"github.com/shopfloor-io/floorline/internal/core"
	"github.com/shopfloor-io/floorline/internal/store"
)

// Status classifies a cell's occupancy against its WIP limit.
type Status string

const (
	// StatusNoLimit means the cell has no WIP limit configured.
	StatusNoLimit Status = "no_limit"
	// StatusNormal means WIP is below the warning threshold.
	StatusNormal Status = "normal"
	// StatusWarning means WIP reached the warning threshold but not the limit.
	StatusWarning Status = "warning"
	// StatusAtCapacity means WIP reached or exceeded the limit.
	StatusAtCapacity Status = "at_capacity"
)

// Evaluation is the result of evaluating a cell's capacity.
// UtilizationPercent is nil when the limit is absent or zero.
type Evaluation struct {
	CellID             string
	CellName           string
	Status             Status
	WIP                int
	Limit              *int
	WarningThreshold   int
	UtilizationPercent *int
}

// Decision is the result of an admission check toward the next cell.
//
// HasCapacity is false only when the next cell is at capacity AND enforces
// its limit; otherwise admission proceeds, with Warning set when the next
// cell is at or near capacity. NextCell is nil when the from-cell is the
// last routing stage.
type Decision struct {
	HasCapacity bool
	Warning     bool
	NextCell    *core.Cell
	CurrentWIP  int
	Limit       *int
	Message     string
}

// Ledger computes WIP occupancy and admission decisions over the store.
type Ledger struct {
	store *store.Store
	cache *wipCache
}

// Option configures a Ledger.
type Option func(*Ledger)

// NewLedger creates a ledger over the store.
func NewLedger(s *store.Store, opts ...Option) *Ledger {
	l := &Ledger{store: s}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// CurrentWIP counts distinct parts having at least one not_started or
// in_progress operation in the cell. Part-level occupancy is authoritative
// for admission control.
func (l *Ledger) CurrentWIP(ctx context.Context, tc core.TenantContext, cellID string) (int, error) {
	// Missing cell is a not-found error, not zero WIP.
	if _, err := l.store.GetCell(ctx, tc.TenantID, cellID); err != nil {
		return 0, err
	}

	if l.cache != nil {
		if wip, ok := l.cache.get(cellID); ok {
			return wip, nil
		}
	}

	wip, err := l.countWIP(ctx, tc.TenantID, cellID)
	if err != nil {
		return 0, err
	}

	if l.cache != nil {
		l.cache.put(cellID, wip)
	}
	return wip, nil
}

// Invalidate drops the cached WIP for a cell. Callers must invoke it after
// any write that changes operation status for the cell.
func (l *Ledger) Invalidate(cellID string) {
	if l.cache != nil {
		l.cache.invalidate(cellID)
	}
}

// Evaluate reports a cell's capacity status.
//
// The warning threshold is the configured value or floor(0.8 * limit) when
// unset, computed here at evaluation time so a changed limit is never paired
// with a stale persisted default.
func (l *Ledger) Evaluate(ctx context.Context, tc core.TenantContext, cellID string) (Evaluation, error) {
	cell, err := l.store.GetCell(ctx, tc.TenantID, cellID)
	if err != nil {
		return Evaluation{}, err
	}

	wip, err := l.CurrentWIP(ctx, tc, cellID)
	if err != nil {
		return Evaluation{}, err
	}
	return evaluate(cell, wip), nil
}

// CheckAdmission resolves the next cell after fromCellID by strictly
// increasing sequence among the tenant's active cells and evaluates its
// capacity. With no downstream cell the part is leaving the routing and
// admission trivially succeeds.
func (l *Ledger) CheckAdmission(ctx context.Context, tc core.TenantContext, fromCellID string) (Decision, error) {
	from, err := l.store.GetCell(ctx, tc.TenantID, fromCellID)
	if err != nil {
		return Decision{}, err
	}

	cells, err := l.store.ListActiveCells(ctx, tc.TenantID)
	if err != nil {
		return Decision{}, err
	}
	if err := checkSequenceUnique(cells); err != nil {
		return Decision{}, err
	}

	var next *core.Cell
	for i := range cells {
		if cells[i].Sequence > from.Sequence {
			next = &cells[i]
			break
		}
	}
	if next == nil {
		return Decision{
			HasCapacity: true,
			Message:     fmt.Sprintf("no cell downstream of %s; part leaves routing", from.Name),
		}, nil
	}

	wip, err := l.CurrentWIP(ctx, tc, next.ID)
	if err != nil {
		return Decision{}, err
	}
	return decide(*next, wip), nil
}

// Admit evaluates admission directly into a cell, for callers that already
// know the destination instead of deriving it from the routing sequence.
func (l *Ledger) Admit(ctx context.Context, tc core.TenantContext, cellID string) (Decision, error) {
	cell, err := l.store.GetCell(ctx, tc.TenantID, cellID)
	if err != nil {
		return Decision{}, err
	}
	wip, err := l.CurrentWIP(ctx, tc, cellID)
	if err != nil {
		return Decision{}, err
	}
	return decide(cell, wip), nil
}

// decide turns a cell evaluation into an admission decision. Admission is
// refused only when the cell is at capacity and enforces its limit.
func decide(cell core.Cell, wip int) Decision {
	eval := evaluate(cell, wip)
	d := Decision{
		HasCapacity: true,
		NextCell:    &cell,
		CurrentWIP:  wip,
		Limit:       cell.WIPLimit,
	}
	switch eval.Status {
	case StatusAtCapacity:
		if cell.EnforceWIPLimit {
			d.HasCapacity = false
			d.Message = fmt.Sprintf("%s is at capacity (%d/%d), limit enforced", cell.Name, wip, *cell.WIPLimit)
		} else {
			d.Warning = true
			d.Message = fmt.Sprintf("%s is at capacity (%d/%d), limit advisory", cell.Name, wip, *cell.WIPLimit)
		}
	case StatusWarning:
		d.Warning = true
		d.Message = fmt.Sprintf("%s is approaching capacity (%d/%d)", cell.Name, wip, *cell.WIPLimit)
	}
	return d
}

func (l *Ledger) countWIP(ctx context.Context, tenantID, cellID string) (int, error) {
	rows, err := l.store.Query(ctx, `
		SELECT COUNT(DISTINCT part_id)
		FROM operations
		WHERE tenant_id = ? AND cell_id = ? AND status IN ('not_started', 'in_progress')
	`, tenantID, cellID)
	if err != nil {
		return 0, fmt.Errorf("count wip: %w", err)
	}
	defer rows.Close()

	var wip int
	if rows.Next() {
		if err := rows.Scan(&wip); err != nil {
			return 0, fmt.Errorf("scan wip: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("count wip: %w", err)
	}
	return wip, nil
}

// evaluate is the pure capacity function over a cell and its current WIP.
func evaluate(cell core.Cell, wip int) Evaluation {
	eval := Evaluation{
		CellID:   cell.ID,
		CellName: cell.Name,
		WIP:      wip,
	}
	if cell.WIPLimit == nil {
		eval.Status = StatusNoLimit
		return eval
	}

	limit := *cell.WIPLimit
	eval.Limit = cell.WIPLimit
	eval.WarningThreshold = warningThreshold(cell)

	if limit > 0 {
		pct := int(math.Round(float64(wip) / float64(limit) * 100))
		eval.UtilizationPercent = &pct
	}

	switch {
	case wip >= limit:
		eval.Status = StatusAtCapacity
	case wip >= eval.WarningThreshold:
		eval.Status = StatusWarning
	default:
		eval.Status = StatusNormal
	}
	return eval
}

// warningThreshold returns the configured threshold or floor(0.8 * limit).
// Computed at evaluation time, never persisted.
func warningThreshold(cell core.Cell) int {
	if cell.WarningThreshold != nil {
		return *cell.WarningThreshold
	}
	if cell.WIPLimit == nil {
		return 0
	}
	return int(math.Floor(float64(*cell.WIPLimit) * 0.8))
}

// checkSequenceUnique surfaces a configuration error when two active cells
// share a sequence. The list is already ordered by (sequence, id).
func checkSequenceUnique(cells []core.Cell) error {
	for i := 1; i < len(cells); i++ {
		if cells[i].Sequence == cells[i-1].Sequence {
			return core.NewConfigurationError(fmt.Sprintf(
				"cells %s and %s share sequence %d",
				cells[i-1].ID, cells[i].ID, cells[i].Sequence))
		}
	}
	return nil
}
