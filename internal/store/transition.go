package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopfloor-io/floorline/internal/core"
)

// TransitionOperation performs a single-row conditional status update keyed on
// the expected prior status. This is the authoritative guard against
// concurrent transitions: of two racing writers at most one sees rows
// affected > 0; the loser gets a Conflict error and must re-read state.
//
// Timing side effects: entering in_progress from not_started stamps
// started_at; entering paused stamps paused_at; resuming from paused stamps
// resumed_at. completed is terminal and stamps no timing field.
func (s *Store) TransitionOperation(ctx context.Context, tenantID, opID string, from, to core.OperationStatus, at time.Time) error {
	if !from.CanTransitionTo(to) {
		return core.NewValidationError(fmt.Sprintf("illegal status transition %s -> %s", from, to))
	}

	// Pick the timing column the transition stamps, if any.
	var stampColumn string
	switch {
	case from == core.StatusNotStarted && to == core.StatusInProgress:
		stampColumn = "started_at"
	case to == core.StatusPaused:
		stampColumn = "paused_at"
	case from == core.StatusPaused && to == core.StatusInProgress:
		stampColumn = "resumed_at"
	}

	var (
		result sql.Result
		err    error
	)
	if stampColumn == "" {
		result, err = s.db.ExecContext(ctx, `
			UPDATE operations SET status = ?
			WHERE tenant_id = ? AND id = ? AND status = ?
		`, string(to), tenantID, opID, string(from))
	} else {
		result, err = s.db.ExecContext(ctx, fmt.Sprintf(`
			UPDATE operations SET status = ?, %s = ?
			WHERE tenant_id = ? AND id = ? AND status = ?
		`, stampColumn), string(to), marshalTime(at), tenantID, opID, string(from))
	}
	if err != nil {
		return fmt.Errorf("transition operation: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("transition operation: rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}

	// Nothing updated: either the operation is missing or its status moved
	// under us. Distinguish the two for the caller.
	var current string
	err = s.db.QueryRowContext(ctx, `
		SELECT status FROM operations WHERE tenant_id = ? AND id = ?
	`, tenantID, opID).Scan(&current)
	if err == sql.ErrNoRows {
		return core.NewNotFoundError("operation", opID)
	}
	if err != nil {
		return fmt.Errorf("transition operation: read status: %w", err)
	}
	return core.NewConflictError("operation", opID,
		fmt.Sprintf("expected status %s, found %s", from, current))
}
