package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopfloor-io/floorline/internal/core"
)

// InsertSegmentIfNone inserts a time segment only if the operation has no
// open segment of any type. Check and insert happen as one atomic statement
// (INSERT ... SELECT ... WHERE NOT EXISTS), so two operators cannot open
// duplicate segments through a check-then-insert race.
//
// A segment with an unresolved pause still has ended_at NULL, so the NOT
// EXISTS guard covers both open and paused segments.
//
// Returns inserted=false when an open or paused segment already exists.
func (s *Store) InsertSegmentIfNone(ctx context.Context, seg core.TimeSegment) (inserted bool, err error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO time_segments (id, tenant_id, operation_id, type, actor_id, started_at, ended_at)
		SELECT ?, ?, ?, ?, ?, ?, NULL
		WHERE NOT EXISTS (
			SELECT 1 FROM time_segments
			WHERE operation_id = ? AND ended_at IS NULL
		)
	`,
		seg.ID,
		seg.TenantID,
		seg.OperationID,
		string(seg.Type),
		seg.ActorID,
		marshalTime(seg.StartedAt),
		seg.OperationID,
	)
	if err != nil {
		return false, fmt.Errorf("insert segment: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert segment: rows affected: %w", err)
	}
	return affected > 0, nil
}

// GetSegment retrieves a segment with its pauses, ordered by pause time.
func (s *Store) GetSegment(ctx context.Context, tenantID, id string) (core.TimeSegment, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, operation_id, type, actor_id, started_at, ended_at
		FROM time_segments
		WHERE tenant_id = ? AND id = ?
	`, tenantID, id)

	var (
		seg       core.TimeSegment
		segType   string
		startedAt string
		endedAt   sql.NullString
	)
	err := row.Scan(&seg.ID, &seg.TenantID, &seg.OperationID, &segType, &seg.ActorID, &startedAt, &endedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.TimeSegment{}, core.NewNotFoundError("time_segment", id)
	}
	if err != nil {
		return core.TimeSegment{}, fmt.Errorf("get segment: %w", err)
	}
	seg.Type = core.SegmentType(segType)
	if seg.StartedAt, err = unmarshalTime(startedAt); err != nil {
		return core.TimeSegment{}, err
	}
	if seg.EndedAt, err = unmarshalNullTime(endedAt); err != nil {
		return core.TimeSegment{}, err
	}

	if seg.Pauses, err = s.listPauses(ctx, seg.ID); err != nil {
		return core.TimeSegment{}, err
	}
	return seg, nil
}

// ListSegmentsByOperation returns an operation's segments in start order.
func (s *Store) ListSegmentsByOperation(ctx context.Context, tenantID, operationID string) ([]core.TimeSegment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id
		FROM time_segments
		WHERE tenant_id = ? AND operation_id = ?
		ORDER BY started_at ASC, id ASC
	`, tenantID, operationID)
	if err != nil {
		return nil, fmt.Errorf("list segments: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan segment id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate segments: %w", err)
	}

	segments := make([]core.TimeSegment, 0, len(ids))
	for _, id := range ids {
		seg, err := s.GetSegment(ctx, tenantID, id)
		if err != nil {
			return nil, err
		}
		segments = append(segments, seg)
	}
	return segments, nil
}

// InsertPauseIfOpen inserts a pause only if the segment is open (ended_at
// NULL) and has no unresolved pause, as one atomic statement.
// Returns inserted=false when the guard fails.
func (s *Store) InsertPauseIfOpen(ctx context.Context, pauseID, segmentID string, at time.Time) (inserted bool, err error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO segment_pauses (id, segment_id, paused_at, resumed_at)
		SELECT ?, ?, ?, NULL
		WHERE EXISTS (
			SELECT 1 FROM time_segments WHERE id = ? AND ended_at IS NULL
		)
		AND NOT EXISTS (
			SELECT 1 FROM segment_pauses WHERE segment_id = ? AND resumed_at IS NULL
		)
	`, pauseID, segmentID, marshalTime(at), segmentID, segmentID)
	if err != nil {
		return false, fmt.Errorf("insert pause: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert pause: rows affected: %w", err)
	}
	return affected > 0, nil
}

// ResolvePause stamps resumed_at on the segment's unresolved pause.
// Returns resolved=false when no unresolved pause exists.
func (s *Store) ResolvePause(ctx context.Context, segmentID string, at time.Time) (resolved bool, err error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE segment_pauses SET resumed_at = ?
		WHERE segment_id = ? AND resumed_at IS NULL
	`, marshalTime(at), segmentID)
	if err != nil {
		return false, fmt.Errorf("resolve pause: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("resolve pause: rows affected: %w", err)
	}
	return affected > 0, nil
}

// CloseSegment stamps ended_at on an open segment. Conditional on ended_at
// still being NULL so concurrent closes cannot both succeed.
// Returns closed=false when the segment was already closed.
func (s *Store) CloseSegment(ctx context.Context, tenantID, segmentID string, at time.Time) (closed bool, err error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE time_segments SET ended_at = ?
		WHERE tenant_id = ? AND id = ? AND ended_at IS NULL
	`, marshalTime(at), tenantID, segmentID)
	if err != nil {
		return false, fmt.Errorf("close segment: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("close segment: rows affected: %w", err)
	}
	return affected > 0, nil
}

func (s *Store) listPauses(ctx context.Context, segmentID string) ([]core.Pause, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, segment_id, paused_at, resumed_at
		FROM segment_pauses
		WHERE segment_id = ?
		ORDER BY paused_at ASC, id ASC
	`, segmentID)
	if err != nil {
		return nil, fmt.Errorf("list pauses: %w", err)
	}
	defer rows.Close()

	pauses := []core.Pause{}
	for rows.Next() {
		var (
			p        core.Pause
			pausedAt string
			resumed  sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.SegmentID, &pausedAt, &resumed); err != nil {
			return nil, fmt.Errorf("scan pause: %w", err)
		}
		if p.PausedAt, err = unmarshalTime(pausedAt); err != nil {
			return nil, err
		}
		if p.ResumedAt, err = unmarshalNullTime(resumed); err != nil {
			return nil, err
		}
		pauses = append(pauses, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pauses: %w", err)
	}
	return pauses, nil
}
