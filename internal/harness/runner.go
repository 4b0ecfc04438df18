package harness

import (
	"context"
	"fmt"
	"time"

	"github.com/shopfloor-io/floorline/internal/capacity"
	"github.com/shopfloor-io/floorline/internal/core"
	"github.com/shopfloor-io/floorline/internal/events"
	"github.com/shopfloor-io/floorline/internal/floor"
	"github.com/shopfloor-io/floorline/internal/quantity"
	"github.com/shopfloor-io/floorline/internal/store"
)

// Tenant all scenarios run under.
const Tenant = "tenant-harness"

// TraceEvent is one step outcome in a scenario trace. Detail keys are sorted
// by JSON encoding, so traces are byte-stable.
type TraceEvent struct {
	Seq     int               `json:"seq"`
	Action  string            `json:"action"`
	Subject string            `json:"subject"`
	Outcome string            `json:"outcome"`
	Detail  map[string]string `json:"detail,omitempty"`
}

// Result is the trace of a scenario run.
type Result struct {
	Trace []TraceEvent
}

// Run seeds the store and executes the scenario's flow at a fixed clock.
// A step that errors aborts the run; blocked admission is an outcome, not an
// error.
func Run(s *Scenario, st *store.Store) (*Result, error) {
	ctx := context.Background()
	tc := core.TenantContext{TenantID: Tenant, ActorID: "harness", Role: "operator"}
	clock := core.NewFixedClock(time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC))

	bus := events.NewBus(nil)
	bus.Subscribe("lifecycle", floor.NewLifecycleProjector(st, nil))

	ledger := capacity.NewLedger(st)
	svc := floor.NewService(st, ledger, bus, clock)
	reconciler := quantity.NewReconciler(st, bus, clock)

	if err := seed(ctx, st, s.Seed); err != nil {
		return nil, err
	}

	result := &Result{}
	for i, step := range s.Flow {
		ev, err := runStep(ctx, tc, step, svc, reconciler, ledger)
		if err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i+1, step.Action, err)
		}
		ev.Seq = i + 1
		result.Trace = append(result.Trace, ev)

		// Each step happens a minute apart.
		clock.Advance(time.Minute)
	}
	return result, nil
}

func runStep(ctx context.Context, tc core.TenantContext, step Step, svc *floor.Service, reconciler *quantity.Reconciler, ledger *capacity.Ledger) (TraceEvent, error) {
	switch step.Action {
	case "advance":
		res, err := svc.AdvancePart(ctx, tc, step.Part)
		if err != nil {
			return TraceEvent{}, err
		}
		ev := TraceEvent{Action: "advance", Subject: step.Part}
		if res.Started {
			ev.Outcome = "started"
			ev.Detail = map[string]string{"operation": res.OperationID, "cell": res.CellID}
			if res.Decision.Warning {
				ev.Detail["warning"] = "true"
			}
		} else {
			ev.Outcome = "blocked"
			ev.Detail = map[string]string{
				"cell": res.CellID,
				"wip":  fmt.Sprintf("%d", res.Decision.CurrentWIP),
			}
			if res.Decision.Limit != nil {
				ev.Detail["limit"] = fmt.Sprintf("%d", *res.Decision.Limit)
			}
		}
		return ev, nil

	case "complete":
		if err := svc.CompleteOperation(ctx, tc, step.Operation); err != nil {
			return TraceEvent{}, err
		}
		return TraceEvent{Action: "complete", Subject: step.Operation, Outcome: "completed"}, nil

	case "pause":
		if err := svc.PauseOperation(ctx, tc, step.Operation); err != nil {
			return TraceEvent{}, err
		}
		return TraceEvent{Action: "pause", Subject: step.Operation, Outcome: "paused"}, nil

	case "resume":
		if err := svc.ResumeOperation(ctx, tc, step.Operation); err != nil {
			return TraceEvent{}, err
		}
		return TraceEvent{Action: "resume", Subject: step.Operation, Outcome: "resumed"}, nil

	case "record":
		var attrs []quantity.Attribution
		for code, qty := range step.Reasons {
			attrs = append(attrs, quantity.Attribution{ReasonCode: code, Quantity: qty})
		}
		_, err := reconciler.Record(ctx, tc, quantity.RecordInput{
			OperationID:  step.Operation,
			Produced:     step.Produced,
			Good:         step.Good,
			Scrap:        step.Scrap,
			Rework:       step.Rework,
			Attributions: attrs,
		})
		if err != nil {
			return TraceEvent{}, err
		}
		return TraceEvent{
			Action: "record", Subject: step.Operation, Outcome: "recorded",
			Detail: map[string]string{
				"produced": fmt.Sprintf("%d", step.Produced),
				"good":     fmt.Sprintf("%d", step.Good),
				"scrap":    fmt.Sprintf("%d", step.Scrap),
				"rework":   fmt.Sprintf("%d", step.Rework),
			},
		}, nil

	case "wip":
		eval, err := ledger.Evaluate(ctx, tc, step.Cell)
		if err != nil {
			return TraceEvent{}, err
		}
		return TraceEvent{
			Action: "wip", Subject: step.Cell, Outcome: "evaluated",
			Detail: map[string]string{
				"wip":    fmt.Sprintf("%d", eval.WIP),
				"status": string(eval.Status),
			},
		}, nil

	case "totals":
		totals, err := reconciler.OperationTotals(ctx, tc, step.Operation)
		if err != nil {
			return TraceEvent{}, err
		}
		return TraceEvent{
			Action: "totals", Subject: step.Operation, Outcome: "totaled",
			Detail: map[string]string{
				"produced": fmt.Sprintf("%d", totals.Produced),
				"good":     fmt.Sprintf("%d", totals.Good),
				"scrap":    fmt.Sprintf("%d", totals.Scrap),
				"rework":   fmt.Sprintf("%d", totals.Rework),
				"yield":    fmt.Sprintf("%.2f", totals.YieldPercent),
			},
		}, nil
	}
	return TraceEvent{}, fmt.Errorf("unknown action %q", step.Action)
}

func seed(ctx context.Context, st *store.Store, s Seed) error {
	for _, c := range s.Cells {
		name := c.Name
		if name == "" {
			name = "Cell " + c.ID
		}
		err := st.UpsertCell(ctx, core.Cell{
			ID:               c.ID,
			TenantID:         Tenant,
			Name:             name,
			Sequence:         c.Sequence,
			WIPLimit:         c.WIPLimit,
			WarningThreshold: c.WarningThreshold,
			EnforceWIPLimit:  c.EnforceWIPLimit,
			Active:           true,
		})
		if err != nil {
			return err
		}
	}
	for _, r := range s.ScrapReasons {
		err := st.UpsertScrapReason(ctx, core.ScrapReason{
			ID:       core.NewID(),
			TenantID: Tenant,
			Code:     r.Code,
			Category: core.ScrapCategory(r.Category),
			Active:   true,
		})
		if err != nil {
			return err
		}
	}
	for _, j := range s.Jobs {
		if err := st.CreateJob(ctx, core.Job{ID: j.ID, TenantID: Tenant, Number: "J-" + j.ID}); err != nil {
			return err
		}
		for _, p := range j.Parts {
			if err := st.CreatePart(ctx, core.Part{ID: p.ID, TenantID: Tenant, JobID: j.ID, Number: "P-" + p.ID}); err != nil {
				return err
			}
			for _, op := range p.Operations {
				err := st.CreateOperation(ctx, core.Operation{
					ID:       op.ID,
					TenantID: Tenant,
					PartID:   p.ID,
					CellID:   op.Cell,
					Sequence: op.Sequence,
				})
				if err != nil {
					return err
				}
			}
		}
	}
	return nil
}
