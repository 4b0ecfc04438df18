// Package quantity validates and aggregates produced/good/scrap/rework
// counts per operation, with multi-reason scrap attribution.
//
// Records are append-only by design: the audit trail and yield history must
// survive corrections, so a wrong entry is remedied by a compensating record,
// never an edit. Aggregation happens on read.
package quantity

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/shopfloor-io/floorline/internal/core"
	"github.com/shopfloor-io/floorline/internal/events"
	"github.com/shopfloor-io/floorline/internal/store"
)

// Attribution assigns part of a record's scrap to a registry reason code.
type Attribution struct {
	ReasonCode string
	Quantity   int
}

// RecordInput is one production-reporting event to append.
type RecordInput struct {
	OperationID  string
	Produced     int
	Good         int
	Scrap        int
	Rework       int
	Attributions []Attribution
	Material     core.MaterialInfo
}

// Totals aggregates every record of an operation.
// YieldPercent is good/produced*100 rounded to two decimals, 0 when nothing
// was produced.
type Totals struct {
	Produced     int     `json:"produced"`
	Good         int     `json:"good"`
	Scrap        int     `json:"scrap"`
	Rework       int     `json:"rework"`
	YieldPercent float64 `json:"yield_percent"`
}

// ReasonBreakdown aggregates attributed scrap for one reason over a window.
type ReasonBreakdown struct {
	ReasonCode      string  `json:"reason_code"`
	Category        string  `json:"category"`
	TotalQuantity   int     `json:"total_quantity"`
	OccurrenceCount int     `json:"occurrence_count"`
	PercentOfTotal  float64 `json:"percent_of_total"`
}

// Reconciler appends quantity records and aggregates them on read.
type Reconciler struct {
	store *store.Store
	bus   *events.Bus
	clock core.Clock
}

// NewReconciler creates a reconciler. A nil bus disables event emission;
// a nil clock uses the system clock.
func NewReconciler(s *store.Store, bus *events.Bus, clock core.Clock) *Reconciler {
	if clock == nil {
		clock = core.SystemClock{}
	}
	return &Reconciler{store: s, bus: bus, clock: clock}
}

// Record validates and appends a quantity record with its attributions.
// Returns the new record's ID.
//
// Rejected with a validation error when quantities are negative, when
// produced != good + scrap + rework, when attributed quantities exceed
// scrap, or when a reason is unknown or inactive.
func (r *Reconciler) Record(ctx context.Context, tc core.TenantContext, in RecordInput) (string, error) {
	if err := validateInput(in); err != nil {
		return "", err
	}

	if _, err := r.store.GetOperation(ctx, tc.TenantID, in.OperationID); err != nil {
		return "", err
	}

	attrs, err := r.resolveAttributions(ctx, tc.TenantID, in)
	if err != nil {
		return "", err
	}

	rec := core.QuantityRecord{
		ID:          core.NewID(),
		TenantID:    tc.TenantID,
		OperationID: in.OperationID,
		Produced:    in.Produced,
		Good:        in.Good,
		Scrap:       in.Scrap,
		Rework:      in.Rework,
		Material:    in.Material,
		RecordedBy:  tc.ActorID,
		RecordedAt:  r.clock.Now(),
	}
	for i := range attrs {
		attrs[i].RecordID = rec.ID
	}

	if err := r.store.WriteQuantityRecord(ctx, rec, attrs); err != nil {
		return "", err
	}

	if r.bus != nil {
		r.bus.Publish(ctx, events.Event{
			Type:       events.TypeQuantityRecorded,
			TenantID:   tc.TenantID,
			ActorID:    tc.ActorID,
			Subject:    rec.ID,
			OccurredAt: rec.RecordedAt,
			Fields: map[string]string{
				"operation_id": rec.OperationID,
				"produced":     fmt.Sprintf("%d", rec.Produced),
				"good":         fmt.Sprintf("%d", rec.Good),
				"scrap":        fmt.Sprintf("%d", rec.Scrap),
				"rework":       fmt.Sprintf("%d", rec.Rework),
			},
		})
	}
	return rec.ID, nil
}

// OperationTotals sums every record of the operation. Idempotent: repeated
// calls without intervening writes return identical results.
func (r *Reconciler) OperationTotals(ctx context.Context, tc core.TenantContext, operationID string) (Totals, error) {
	if _, err := r.store.GetOperation(ctx, tc.TenantID, operationID); err != nil {
		return Totals{}, err
	}

	rows, err := r.store.Query(ctx, `
		SELECT COALESCE(SUM(quantity_produced), 0),
		       COALESCE(SUM(quantity_good), 0),
		       COALESCE(SUM(quantity_scrap), 0),
		       COALESCE(SUM(quantity_rework), 0)
		FROM quantity_records
		WHERE tenant_id = ? AND operation_id = ?
	`, tc.TenantID, operationID)
	if err != nil {
		return Totals{}, fmt.Errorf("operation totals: %w", err)
	}
	defer rows.Close()

	var t Totals
	if rows.Next() {
		if err := rows.Scan(&t.Produced, &t.Good, &t.Scrap, &t.Rework); err != nil {
			return Totals{}, fmt.Errorf("scan totals: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return Totals{}, fmt.Errorf("operation totals: %w", err)
	}

	if t.Produced > 0 {
		t.YieldPercent = round2(float64(t.Good) / float64(t.Produced) * 100)
	}
	return t, nil
}

// ScrapBreakdown aggregates attributed scrap by reason over the optional
// date window, ordered descending by total quantity with code tiebreak.
// PercentOfTotal is relative to the window's total scrap; all zeros when no
// scrap exists in the window.
func (r *Reconciler) ScrapBreakdown(ctx context.Context, tc core.TenantContext, from, to *time.Time) ([]ReasonBreakdown, error) {
	query := `
		SELECT sr.code, sr.category,
		       COALESCE(SUM(sa.quantity), 0),
		       COUNT(sa.id)
		FROM scrap_attributions sa
		JOIN quantity_records qr ON sa.record_id = qr.id
		JOIN scrap_reasons sr ON sa.reason_id = sr.id
		WHERE qr.tenant_id = ?`
	args := []any{tc.TenantID}
	if from != nil {
		query += ` AND qr.recorded_at >= ?`
		args = append(args, from.UTC().Format(time.RFC3339Nano))
	}
	if to != nil {
		query += ` AND qr.recorded_at <= ?`
		args = append(args, to.UTC().Format(time.RFC3339Nano))
	}
	query += `
		GROUP BY sr.code, sr.category
		ORDER BY SUM(sa.quantity) DESC, sr.code ASC`

	rows, err := r.store.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("scrap breakdown: %w", err)
	}
	defer rows.Close()

	breakdown := []ReasonBreakdown{}
	total := 0
	for rows.Next() {
		var b ReasonBreakdown
		if err := rows.Scan(&b.ReasonCode, &b.Category, &b.TotalQuantity, &b.OccurrenceCount); err != nil {
			return nil, fmt.Errorf("scan breakdown: %w", err)
		}
		total += b.TotalQuantity
		breakdown = append(breakdown, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scrap breakdown: %w", err)
	}

	if total > 0 {
		for i := range breakdown {
			breakdown[i].PercentOfTotal = round2(float64(breakdown[i].TotalQuantity) / float64(total) * 100)
		}
	}
	return breakdown, nil
}

func (r *Reconciler) resolveAttributions(ctx context.Context, tenantID string, in RecordInput) ([]core.ScrapAttribution, error) {
	if len(in.Attributions) == 0 {
		return nil, nil
	}

	attrs := make([]core.ScrapAttribution, 0, len(in.Attributions))
	for _, a := range in.Attributions {
		reason, err := r.store.GetScrapReasonByCode(ctx, tenantID, a.ReasonCode)
		if err != nil {
			return nil, err
		}
		if !reason.Active {
			return nil, core.NewValidationError(fmt.Sprintf("scrap reason %s is inactive", reason.Code))
		}
		attrs = append(attrs, core.ScrapAttribution{
			ID:       core.NewID(),
			ReasonID: reason.ID,
			Quantity: a.Quantity,
		})
	}
	return attrs, nil
}

func validateInput(in RecordInput) error {
	if in.Produced < 0 || in.Good < 0 || in.Scrap < 0 || in.Rework < 0 {
		return core.NewValidationError("quantities must not be negative")
	}
	if in.Produced != in.Good+in.Scrap+in.Rework {
		return core.NewValidationError(fmt.Sprintf(
			"produced (%d) must equal good + scrap + rework (%d)",
			in.Produced, in.Good+in.Scrap+in.Rework))
	}

	attributed := 0
	for _, a := range in.Attributions {
		if a.Quantity <= 0 {
			return core.NewValidationError("attributed quantities must be positive")
		}
		attributed += a.Quantity
	}
	if attributed > in.Scrap {
		return core.NewValidationError(fmt.Sprintf(
			"attributed scrap (%d) exceeds record scrap (%d)", attributed, in.Scrap))
	}
	return nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
