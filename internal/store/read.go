package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopfloor-io/floorline/internal/core"
)

// GetCell retrieves a cell by ID within the tenant.
// Returns a NotFound error if the cell does not exist.
func (s *Store) GetCell(ctx context.Context, tenantID, id string) (core.Cell, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, name, sequence, wip_limit, warning_threshold, enforce_wip_limit, active
		FROM cells
		WHERE tenant_id = ? AND id = ?
	`, tenantID, id)

	c, err := scanCell(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Cell{}, core.NewNotFoundError("cell", id)
	}
	return c, err
}

// ListActiveCells returns the tenant's active cells ordered by sequence,
// ties broken by id for determinism.
func (s *Store) ListActiveCells(ctx context.Context, tenantID string) ([]core.Cell, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tenant_id, name, sequence, wip_limit, warning_threshold, enforce_wip_limit, active
		FROM cells
		WHERE tenant_id = ? AND active = 1
		ORDER BY sequence ASC, id ASC
	`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list active cells: %w", err)
	}
	defer rows.Close()

	cells := []core.Cell{}
	for rows.Next() {
		c, err := scanCell(rows)
		if err != nil {
			return nil, err
		}
		cells = append(cells, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cells: %w", err)
	}
	return cells, nil
}

// GetJob retrieves a job by ID within the tenant.
func (s *Store) GetJob(ctx context.Context, tenantID, id string) (core.Job, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, number, started_at, paused_at, resumed_at, completed_at
		FROM jobs
		WHERE tenant_id = ? AND id = ?
	`, tenantID, id)

	var (
		j                                        core.Job
		startedAt, pausedAt, resumedAt, complete sql.NullString
	)
	err := row.Scan(&j.ID, &j.TenantID, &j.Number, &startedAt, &pausedAt, &resumedAt, &complete)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Job{}, core.NewNotFoundError("job", id)
	}
	if err != nil {
		return core.Job{}, fmt.Errorf("get job: %w", err)
	}

	if j.StartedAt, err = unmarshalNullTime(startedAt); err != nil {
		return core.Job{}, err
	}
	if j.PausedAt, err = unmarshalNullTime(pausedAt); err != nil {
		return core.Job{}, err
	}
	if j.ResumedAt, err = unmarshalNullTime(resumedAt); err != nil {
		return core.Job{}, err
	}
	if j.CompletedAt, err = unmarshalNullTime(complete); err != nil {
		return core.Job{}, err
	}
	return j, nil
}

// GetPart retrieves a part by ID within the tenant.
func (s *Store) GetPart(ctx context.Context, tenantID, id string) (core.Part, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, job_id, number
		FROM parts
		WHERE tenant_id = ? AND id = ?
	`, tenantID, id)

	var p core.Part
	err := row.Scan(&p.ID, &p.TenantID, &p.JobID, &p.Number)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Part{}, core.NewNotFoundError("part", id)
	}
	if err != nil {
		return core.Part{}, fmt.Errorf("get part: %w", err)
	}
	return p, nil
}

// GetOperation retrieves an operation by ID within the tenant.
func (s *Store) GetOperation(ctx context.Context, tenantID, id string) (core.Operation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, part_id, cell_id, sequence, status,
		       started_at, paused_at, resumed_at, planned_start, planned_end
		FROM operations
		WHERE tenant_id = ? AND id = ?
	`, tenantID, id)

	op, err := scanOperation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Operation{}, core.NewNotFoundError("operation", id)
	}
	return op, err
}

// ListOperationsByPart returns a part's operations in routing order.
func (s *Store) ListOperationsByPart(ctx context.Context, tenantID, partID string) ([]core.Operation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tenant_id, part_id, cell_id, sequence, status,
		       started_at, paused_at, resumed_at, planned_start, planned_end
		FROM operations
		WHERE tenant_id = ? AND part_id = ?
		ORDER BY sequence ASC, id ASC
	`, tenantID, partID)
	if err != nil {
		return nil, fmt.Errorf("list operations: %w", err)
	}
	defer rows.Close()

	ops := []core.Operation{}
	for rows.Next() {
		op, err := scanOperation(rows)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate operations: %w", err)
	}
	return ops, nil
}

// ListOperationsByJob returns every operation of every part of a job, in
// (part, sequence) order.
func (s *Store) ListOperationsByJob(ctx context.Context, tenantID, jobID string) ([]core.Operation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT o.id, o.tenant_id, o.part_id, o.cell_id, o.sequence, o.status,
		       o.started_at, o.paused_at, o.resumed_at, o.planned_start, o.planned_end
		FROM operations o
		JOIN parts p ON o.part_id = p.id
		WHERE o.tenant_id = ? AND p.job_id = ?
		ORDER BY o.part_id ASC, o.sequence ASC, o.id ASC
	`, tenantID, jobID)
	if err != nil {
		return nil, fmt.Errorf("list job operations: %w", err)
	}
	defer rows.Close()

	ops := []core.Operation{}
	for rows.Next() {
		op, err := scanOperation(rows)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate job operations: %w", err)
	}
	return ops, nil
}

// GetScrapReasonByCode looks up a registry entry by its normalized code.
func (s *Store) GetScrapReasonByCode(ctx context.Context, tenantID, code string) (core.ScrapReason, error) {
	code = core.NormalizeIdentity(code)
	row := s.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, code, category, active
		FROM scrap_reasons
		WHERE tenant_id = ? AND code = ?
	`, tenantID, code)

	var r core.ScrapReason
	var category string
	err := row.Scan(&r.ID, &r.TenantID, &r.Code, &category, &r.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ScrapReason{}, core.NewNotFoundError("scrap_reason", code)
	}
	if err != nil {
		return core.ScrapReason{}, fmt.Errorf("get scrap reason: %w", err)
	}
	r.Category = core.ScrapCategory(category)
	return r, nil
}

// ListActiveScrapReasons returns the tenant's active reasons ordered by code.
func (s *Store) ListActiveScrapReasons(ctx context.Context, tenantID string) ([]core.ScrapReason, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tenant_id, code, category, active
		FROM scrap_reasons
		WHERE tenant_id = ? AND active = 1
		ORDER BY code ASC, id ASC
	`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list scrap reasons: %w", err)
	}
	defer rows.Close()

	reasons := []core.ScrapReason{}
	for rows.Next() {
		var r core.ScrapReason
		var category string
		if err := rows.Scan(&r.ID, &r.TenantID, &r.Code, &category, &r.Active); err != nil {
			return nil, fmt.Errorf("scan scrap reason: %w", err)
		}
		r.Category = core.ScrapCategory(category)
		reasons = append(reasons, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scrap reasons: %w", err)
	}
	return reasons, nil
}

// scanner abstracts *sql.Row and *sql.Rows for shared scan helpers.
type scanner interface {
	Scan(dest ...any) error
}

func scanCell(sc scanner) (core.Cell, error) {
	var (
		c                       core.Cell
		wipLimit, warnThreshold sql.NullInt64
	)
	err := sc.Scan(&c.ID, &c.TenantID, &c.Name, &c.Sequence, &wipLimit, &warnThreshold, &c.EnforceWIPLimit, &c.Active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Cell{}, err
		}
		return core.Cell{}, fmt.Errorf("scan cell: %w", err)
	}
	c.WIPLimit = unmarshalNullInt(wipLimit)
	c.WarningThreshold = unmarshalNullInt(warnThreshold)
	return c, nil
}

func scanOperation(sc scanner) (core.Operation, error) {
	var (
		op                               core.Operation
		status                           string
		started, paused, resumed, ps, pe sql.NullString
	)
	err := sc.Scan(&op.ID, &op.TenantID, &op.PartID, &op.CellID, &op.Sequence, &status,
		&started, &paused, &resumed, &ps, &pe)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Operation{}, err
		}
		return core.Operation{}, fmt.Errorf("scan operation: %w", err)
	}
	op.Status = core.OperationStatus(status)
	if op.StartedAt, err = unmarshalNullTime(started); err != nil {
		return core.Operation{}, err
	}
	if op.PausedAt, err = unmarshalNullTime(paused); err != nil {
		return core.Operation{}, err
	}
	if op.ResumedAt, err = unmarshalNullTime(resumed); err != nil {
		return core.Operation{}, err
	}
	if op.PlannedStart, err = unmarshalNullTime(ps); err != nil {
		return core.Operation{}, err
	}
	if op.PlannedEnd, err = unmarshalNullTime(pe); err != nil {
		return core.Operation{}, err
	}
	return op, nil
}
