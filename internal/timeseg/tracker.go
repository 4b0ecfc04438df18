// Package timeseg records typed time intervals (setup, run, wait, rework,
// breakdown) against operations, with pause/resume support.
//
// An operation has at most one open or paused segment of any type at a time.
// The tracker rejects overlapping segments instead of auto-closing the
// previous one: silently discarding operator intent is worse than making the
// second operator look at the floor. The overlap guard is a compare-and-insert
// at the store, not a check-then-insert here.
package timeseg

import (
	"context"
	"fmt"
	"time"

	"github.com/shopfloor-io/floorline/internal/core"
	"github.com/shopfloor-io/floorline/internal/events"
	"github.com/shopfloor-io/floorline/internal/store"
)

// Tracker records time segments over the store.
type Tracker struct {
	store *store.Store
	bus   *events.Bus
	clock core.Clock
}

// NewTracker creates a tracker. A nil bus disables event emission; a nil
// clock uses the system clock.
func NewTracker(s *store.Store, bus *events.Bus, clock core.Clock) *Tracker {
	if clock == nil {
		clock = core.SystemClock{}
	}
	return &Tracker{store: s, bus: bus, clock: clock}
}

// Start opens a segment of the given type for the operation.
// Returns the segment ID, or a validation error when the operation already
// has an open or paused segment.
func (t *Tracker) Start(ctx context.Context, tc core.TenantContext, operationID string, segType core.SegmentType) (string, error) {
	if !core.ValidSegmentType(segType) {
		return "", core.NewValidationError(fmt.Sprintf("unknown segment type %q", segType))
	}
	if _, err := t.store.GetOperation(ctx, tc.TenantID, operationID); err != nil {
		return "", err
	}

	seg := core.TimeSegment{
		ID:          core.NewID(),
		TenantID:    tc.TenantID,
		OperationID: operationID,
		Type:        segType,
		ActorID:     tc.ActorID,
		StartedAt:   t.clock.Now(),
	}
	inserted, err := t.store.InsertSegmentIfNone(ctx, seg)
	if err != nil {
		return "", err
	}
	if !inserted {
		return "", core.NewValidationError(
			fmt.Sprintf("operation %s already has an open or paused segment", operationID))
	}
	return seg.ID, nil
}

// Pause suspends an open segment. The pause stays unresolved until Resume;
// at close time an unresolved pause counts up to the close timestamp.
func (t *Tracker) Pause(ctx context.Context, tc core.TenantContext, segmentID string) error {
	seg, err := t.store.GetSegment(ctx, tc.TenantID, segmentID)
	if err != nil {
		return err
	}
	if seg.EndedAt != nil {
		return core.NewValidationError(fmt.Sprintf("segment %s is already closed", segmentID))
	}

	inserted, err := t.store.InsertPauseIfOpen(ctx, core.NewID(), segmentID, t.clock.Now())
	if err != nil {
		return err
	}
	if !inserted {
		return core.NewValidationError(fmt.Sprintf("segment %s is already paused", segmentID))
	}
	return nil
}

// Resume resolves the segment's pause.
func (t *Tracker) Resume(ctx context.Context, tc core.TenantContext, segmentID string) error {
	seg, err := t.store.GetSegment(ctx, tc.TenantID, segmentID)
	if err != nil {
		return err
	}
	if seg.EndedAt != nil {
		return core.NewValidationError(fmt.Sprintf("segment %s is already closed", segmentID))
	}

	resolved, err := t.store.ResolvePause(ctx, segmentID, t.clock.Now())
	if err != nil {
		return err
	}
	if !resolved {
		return core.NewValidationError(fmt.Sprintf("segment %s is not paused", segmentID))
	}
	return nil
}

// Close ends an open or paused segment and returns its active duration:
// (end - start) minus resolved pause durations, with an unresolved pause
// counting up to the close timestamp.
func (t *Tracker) Close(ctx context.Context, tc core.TenantContext, segmentID string) (time.Duration, error) {
	if _, err := t.store.GetSegment(ctx, tc.TenantID, segmentID); err != nil {
		return 0, err
	}

	now := t.clock.Now()
	closed, err := t.store.CloseSegment(ctx, tc.TenantID, segmentID, now)
	if err != nil {
		return 0, err
	}
	if !closed {
		return 0, core.NewConflictError("time_segment", segmentID, "segment was closed concurrently")
	}

	// Re-read with pauses to compute the active duration.
	seg, err := t.store.GetSegment(ctx, tc.TenantID, segmentID)
	if err != nil {
		return 0, err
	}
	duration := seg.ActiveDuration(now)

	if t.bus != nil {
		t.bus.Publish(ctx, events.Event{
			Type:       events.TypeSegmentClosed,
			TenantID:   tc.TenantID,
			ActorID:    tc.ActorID,
			Subject:    segmentID,
			OccurredAt: now,
			Fields: map[string]string{
				"operation_id":    seg.OperationID,
				"segment_type":    string(seg.Type),
				"active_duration": duration.String(),
			},
		})
	}
	return duration, nil
}

// Segments returns an operation's segments in start order, pauses included.
func (t *Tracker) Segments(ctx context.Context, tc core.TenantContext, operationID string) ([]core.TimeSegment, error) {
	if _, err := t.store.GetOperation(ctx, tc.TenantID, operationID); err != nil {
		return nil, err
	}
	return t.store.ListSegmentsByOperation(ctx, tc.TenantID, operationID)
}
