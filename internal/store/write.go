package store

import (
	"context"
	"fmt"

	"github.com/shopfloor-io/floorline/internal/core"
)

// UpsertCell inserts or replaces a cell definition. Layout application is the
// only writer of cells, so a full-row upsert keyed on id is sufficient.
func (s *Store) UpsertCell(ctx context.Context, c core.Cell) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cells
		(id, tenant_id, name, sequence, wip_limit, warning_threshold, enforce_wip_limit, active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			sequence = excluded.sequence,
			wip_limit = excluded.wip_limit,
			warning_threshold = excluded.warning_threshold,
			enforce_wip_limit = excluded.enforce_wip_limit,
			active = excluded.active
	`,
		c.ID,
		c.TenantID,
		core.NormalizeIdentity(c.Name),
		c.Sequence,
		marshalNullInt(c.WIPLimit),
		marshalNullInt(c.WarningThreshold),
		c.EnforceWIPLimit,
		c.Active,
	)
	if err != nil {
		return fmt.Errorf("upsert cell: %w", err)
	}
	return nil
}

// CreateJob inserts a job. Duplicate IDs are rejected by the primary key.
func (s *Store) CreateJob(ctx context.Context, j core.Job) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO jobs (id, tenant_id, number, started_at, paused_at, resumed_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		j.ID,
		j.TenantID,
		j.Number,
		marshalNullTime(j.StartedAt),
		marshalNullTime(j.PausedAt),
		marshalNullTime(j.ResumedAt),
		marshalNullTime(j.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

// UpdateJobTimestamps overwrites a job's derived lifecycle timestamps.
// Only the lifecycle projection writes these; they are never set directly
// by operator actions.
func (s *Store) UpdateJobTimestamps(ctx context.Context, j core.Job) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE jobs
		SET started_at = ?, paused_at = ?, resumed_at = ?, completed_at = ?
		WHERE id = ? AND tenant_id = ?
	`,
		marshalNullTime(j.StartedAt),
		marshalNullTime(j.PausedAt),
		marshalNullTime(j.ResumedAt),
		marshalNullTime(j.CompletedAt),
		j.ID,
		j.TenantID,
	)
	if err != nil {
		return fmt.Errorf("update job timestamps: %w", err)
	}
	return nil
}

// CreatePart inserts a part under its job.
func (s *Store) CreatePart(ctx context.Context, p core.Part) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO parts (id, tenant_id, job_id, number)
		VALUES (?, ?, ?, ?)
	`,
		p.ID, p.TenantID, p.JobID, p.Number,
	)
	if err != nil {
		return fmt.Errorf("create part: %w", err)
	}
	return nil
}

// CreateOperation inserts an operation into a part's routing.
func (s *Store) CreateOperation(ctx context.Context, op core.Operation) error {
	status := op.Status
	if status == "" {
		status = core.StatusNotStarted
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO operations
		(id, tenant_id, part_id, cell_id, sequence, status, started_at, paused_at, resumed_at, planned_start, planned_end)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		op.ID,
		op.TenantID,
		op.PartID,
		op.CellID,
		op.Sequence,
		string(status),
		marshalNullTime(op.StartedAt),
		marshalNullTime(op.PausedAt),
		marshalNullTime(op.ResumedAt),
		marshalNullTime(op.PlannedStart),
		marshalNullTime(op.PlannedEnd),
	)
	if err != nil {
		return fmt.Errorf("create operation: %w", err)
	}
	return nil
}

// UpsertScrapReason inserts or updates a registry entry keyed on
// (tenant_id, code). Codes are NFC-normalized before storage.
func (s *Store) UpsertScrapReason(ctx context.Context, r core.ScrapReason) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO scrap_reasons (id, tenant_id, code, category, active)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(tenant_id, code) DO UPDATE SET
			category = excluded.category,
			active = excluded.active
	`,
		r.ID,
		r.TenantID,
		core.NormalizeIdentity(r.Code),
		string(r.Category),
		r.Active,
	)
	if err != nil {
		return fmt.Errorf("upsert scrap reason: %w", err)
	}
	return nil
}
