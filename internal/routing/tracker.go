// Package routing reconstructs the ordered sequence of cells a part or job
// has visited. It is a pure read-side projection over the entity store:
// nothing here writes, and no caching is layered on top since routing is
// read far less often than capacity.
package routing

import (
	"context"
	"fmt"

	"github.com/shopfloor-io/floorline/internal/store"
)

// Entry describes one cell touched by a part or job. Cells with zero
// operations for the subject are omitted entirely.
//
// PartsInCell is populated for job routing only: the distinct count of the
// job's parts represented in the cell.
type Entry struct {
	CellID                  string `json:"cell_id"`
	CellName                string `json:"cell_name"`
	Sequence                int    `json:"sequence"`
	OperationCount          int    `json:"operation_count"`
	CompletedOperationCount int    `json:"completed_operation_count"`
	PartsInCell             int    `json:"parts_in_cell,omitempty"`
}

// Tracker aggregates routing history from the store.
type Tracker struct {
	store *store.Store
}

// NewTracker creates a tracker over the store.
func NewTracker(s *store.Store) *Tracker {
	return &Tracker{store: s}
}

// PartRouting returns the cells the part's operations touch, ordered by cell
// sequence with id tiebreak.
func (t *Tracker) PartRouting(ctx context.Context, tenantID, partID string) ([]Entry, error) {
	if _, err := t.store.GetPart(ctx, tenantID, partID); err != nil {
		return nil, err
	}

	rows, err := t.store.Query(ctx, `
		SELECT c.id, c.name, c.sequence,
		       COUNT(o.id),
		       SUM(CASE WHEN o.status = 'completed' THEN 1 ELSE 0 END)
		FROM operations o
		JOIN cells c ON o.cell_id = c.id
		WHERE o.tenant_id = ? AND o.part_id = ?
		GROUP BY c.id, c.name, c.sequence
		ORDER BY c.sequence ASC, c.id ASC
	`, tenantID, partID)
	if err != nil {
		return nil, fmt.Errorf("part routing: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows, false)
}

// JobRouting returns the cells touched by any part of the job, ordered by
// cell sequence, with per-cell distinct part counts.
func (t *Tracker) JobRouting(ctx context.Context, tenantID, jobID string) ([]Entry, error) {
	if _, err := t.store.GetJob(ctx, tenantID, jobID); err != nil {
		return nil, err
	}

	rows, err := t.store.Query(ctx, `
		SELECT c.id, c.name, c.sequence,
		       COUNT(o.id),
		       SUM(CASE WHEN o.status = 'completed' THEN 1 ELSE 0 END),
		       COUNT(DISTINCT o.part_id)
		FROM operations o
		JOIN parts p ON o.part_id = p.id
		JOIN cells c ON o.cell_id = c.id
		WHERE o.tenant_id = ? AND p.job_id = ?
		GROUP BY c.id, c.name, c.sequence
		ORDER BY c.sequence ASC, c.id ASC
	`, tenantID, jobID)
	if err != nil {
		return nil, fmt.Errorf("job routing: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows, true)
}

func scanEntries(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}, withParts bool) ([]Entry, error) {
	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var err error
		if withParts {
			err = rows.Scan(&e.CellID, &e.CellName, &e.Sequence, &e.OperationCount, &e.CompletedOperationCount, &e.PartsInCell)
		} else {
			err = rows.Scan(&e.CellID, &e.CellName, &e.Sequence, &e.OperationCount, &e.CompletedOperationCount)
		}
		if err != nil {
			return nil, fmt.Errorf("scan routing entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate routing entries: %w", err)
	}
	return entries, nil
}
