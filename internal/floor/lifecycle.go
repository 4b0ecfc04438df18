package floor

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/shopfloor-io/floorline/internal/core"
	"github.com/shopfloor-io/floorline/internal/events"
	"github.com/shopfloor-io/floorline/internal/store"
)

// LifecycleProjector derives job lifecycle timestamps from the job's
// operation set whenever an operation transitions. It subscribes to the
// event bus in place of database triggers, so the derivation logic lives in
// one reviewable place.
//
// Rules: started_at is the earliest operation start; paused_at and
// resumed_at are the latest operation stamps; completed_at is set when every
// operation of every part is completed, and cleared otherwise.
type LifecycleProjector struct {
	store *store.Store
	log   *slog.Logger
}

// NewLifecycleProjector creates a projector over the store.
func NewLifecycleProjector(s *store.Store, logger *slog.Logger) *LifecycleProjector {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(127)}))
	}
	return &LifecycleProjector{store: s, log: logger}
}

// Handle implements events.Subscriber.
func (p *LifecycleProjector) Handle(ctx context.Context, e events.Event) error {
	if e.Type != events.TypeOperationTransitioned {
		return nil
	}
	partID := e.Fields["part_id"]
	if partID == "" {
		return fmt.Errorf("operation transition event %s carries no part_id", e.Subject)
	}

	part, err := p.store.GetPart(ctx, e.TenantID, partID)
	if err != nil {
		return err
	}
	job, err := p.store.GetJob(ctx, e.TenantID, part.JobID)
	if err != nil {
		return err
	}
	ops, err := p.store.ListOperationsByJob(ctx, e.TenantID, part.JobID)
	if err != nil {
		return err
	}

	derived := deriveJobTimestamps(job, ops, e.OccurredAt)
	if err := p.store.UpdateJobTimestamps(ctx, derived); err != nil {
		return err
	}
	p.log.DebugContext(ctx, "projected job lifecycle",
		"job", job.ID, "operations", len(ops))
	return nil
}

func deriveJobTimestamps(job core.Job, ops []core.Operation, at time.Time) core.Job {
	var started, paused, resumed *time.Time
	completed := len(ops) > 0

	for _, op := range ops {
		if op.StartedAt != nil && (started == nil || op.StartedAt.Before(*started)) {
			started = op.StartedAt
		}
		if op.PausedAt != nil && (paused == nil || op.PausedAt.After(*paused)) {
			paused = op.PausedAt
		}
		if op.ResumedAt != nil && (resumed == nil || op.ResumedAt.After(*resumed)) {
			resumed = op.ResumedAt
		}
		if op.Status != core.StatusCompleted {
			completed = false
		}
	}

	job.StartedAt = started
	job.PausedAt = paused
	job.ResumedAt = resumed
	switch {
	case !completed:
		job.CompletedAt = nil
	case job.CompletedAt == nil:
		t := at
		job.CompletedAt = &t
	}
	return job
}
