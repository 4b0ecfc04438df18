package floor

import (
	"context"
	"fmt"
	"time"

	"github.com/shopfloor-io/floorline/internal/capacity"
	"github.com/shopfloor-io/floorline/internal/core"
	"github.com/shopfloor-io/floorline/internal/events"
	"github.com/shopfloor-io/floorline/internal/store"
)

// Service runs operator workflows over the store and capacity ledger.
type Service struct {
	store  *store.Store
	ledger *capacity.Ledger
	bus    *events.Bus
	clock  core.Clock
}

// NewService creates a service. A nil bus disables event emission; a nil
// clock uses the system clock.
func NewService(s *store.Store, l *capacity.Ledger, bus *events.Bus, clock core.Clock) *Service {
	if clock == nil {
		clock = core.SystemClock{}
	}
	return &Service{store: s, ledger: l, bus: bus, clock: clock}
}

// AdvanceResult reports the outcome of an advance attempt. Started is false
// when admission refused the destination cell; Decision carries the reason
// either way.
type AdvanceResult struct {
	Decision    capacity.Decision
	OperationID string
	CellID      string
	Started     bool
}

// AdvancePart starts the part's first not_started operation, subject to
// admission at the operation's cell.
//
// The admission check is advisory: the conditional status transition in the
// store is what actually serializes racing advances. A blocked admission
// returns the decision without mutating anything.
func (s *Service) AdvancePart(ctx context.Context, tc core.TenantContext, partID string) (AdvanceResult, error) {
	if _, err := s.store.GetPart(ctx, tc.TenantID, partID); err != nil {
		return AdvanceResult{}, err
	}

	ops, err := s.store.ListOperationsByPart(ctx, tc.TenantID, partID)
	if err != nil {
		return AdvanceResult{}, err
	}
	var next *core.Operation
	for i := range ops {
		if ops[i].Status == core.StatusNotStarted {
			next = &ops[i]
			break
		}
	}
	if next == nil {
		return AdvanceResult{}, core.NewValidationError(
			fmt.Sprintf("part %s has no pending operations", partID))
	}

	decision, err := s.ledger.Admit(ctx, tc, next.CellID)
	if err != nil {
		return AdvanceResult{}, err
	}
	result := AdvanceResult{
		Decision:    decision,
		OperationID: next.ID,
		CellID:      next.CellID,
	}

	if decision.Limit != nil && decision.CurrentWIP >= *decision.Limit {
		s.publish(ctx, tc, events.Event{
			Type:    events.TypeCapacityBreached,
			Subject: next.CellID,
			Fields: map[string]string{
				"part_id":   partID,
				"wip":       fmt.Sprintf("%d", decision.CurrentWIP),
				"wip_limit": fmt.Sprintf("%d", *decision.Limit),
				"enforced":  fmt.Sprintf("%t", !decision.HasCapacity),
			},
		})
	}
	if !decision.HasCapacity {
		return result, nil
	}

	now := s.clock.Now()
	err = s.store.TransitionOperation(ctx, tc.TenantID, next.ID,
		core.StatusNotStarted, core.StatusInProgress, now)
	if err != nil {
		return AdvanceResult{}, err
	}
	s.ledger.Invalidate(next.CellID)
	s.publishTransition(ctx, tc, *next, core.StatusInProgress, now)

	result.Started = true
	return result, nil
}

// CompleteOperation marks an in-progress operation completed, releasing its
// part's occupancy in the cell once no other occupying operation remains there.
func (s *Service) CompleteOperation(ctx context.Context, tc core.TenantContext, opID string) error {
	return s.transition(ctx, tc, opID, core.StatusInProgress, core.StatusCompleted)
}

// PauseOperation suspends an in-progress operation. Paused operations do not
// occupy WIP.
func (s *Service) PauseOperation(ctx context.Context, tc core.TenantContext, opID string) error {
	return s.transition(ctx, tc, opID, core.StatusInProgress, core.StatusPaused)
}

// ResumeOperation returns a paused operation to in_progress.
func (s *Service) ResumeOperation(ctx context.Context, tc core.TenantContext, opID string) error {
	return s.transition(ctx, tc, opID, core.StatusPaused, core.StatusInProgress)
}

func (s *Service) transition(ctx context.Context, tc core.TenantContext, opID string, from, to core.OperationStatus) error {
	op, err := s.store.GetOperation(ctx, tc.TenantID, opID)
	if err != nil {
		return err
	}
	if op.Status != from {
		return core.NewValidationError(
			fmt.Sprintf("operation %s is %s, expected %s", opID, op.Status, from))
	}

	now := s.clock.Now()
	if err := s.store.TransitionOperation(ctx, tc.TenantID, opID, from, to, now); err != nil {
		return err
	}
	s.ledger.Invalidate(op.CellID)
	s.publishTransition(ctx, tc, op, to, now)
	return nil
}

func (s *Service) publishTransition(ctx context.Context, tc core.TenantContext, op core.Operation, to core.OperationStatus, at time.Time) {
	s.publish(ctx, tc, events.Event{
		Type:       events.TypeOperationTransitioned,
		Subject:    op.ID,
		OccurredAt: at,
		Fields: map[string]string{
			"part_id":     op.PartID,
			"cell_id":     op.CellID,
			"from_status": string(op.Status),
			"to_status":   string(to),
		},
	})
}

func (s *Service) publish(ctx context.Context, tc core.TenantContext, e events.Event) {
	if s.bus == nil {
		return
	}
	e.TenantID = tc.TenantID
	e.ActorID = tc.ActorID
	if e.OccurredAt.IsZero() {
		e.OccurredAt = s.clock.Now()
	}
	s.bus.Publish(ctx, e)
}
