package core

import "time"

// OperationStatus is the lifecycle state of an operation within a part's routing.
//
// Transitions are monotonic except for the paused<->in_progress cycle:
//
//	not_started -> in_progress -> completed
//	                  ^    |
//	                  |    v
//	                 paused
//
// completed is terminal.
type OperationStatus string

const (
	StatusNotStarted OperationStatus = "not_started"
	StatusInProgress OperationStatus = "in_progress"
	StatusPaused     OperationStatus = "paused"
	StatusCompleted  OperationStatus = "completed"
)

// Occupying reports whether an operation in this status holds WIP in its cell.
// A part occupies a cell if at least one of its operations there is
// not_started or in_progress.
func (s OperationStatus) Occupying() bool {
	return s == StatusNotStarted || s == StatusInProgress
}

// CanTransitionTo reports whether the status transition is legal.
func (s OperationStatus) CanTransitionTo(next OperationStatus) bool {
	switch s {
	case StatusNotStarted:
		return next == StatusInProgress
	case StatusInProgress:
		return next == StatusPaused || next == StatusCompleted
	case StatusPaused:
		return next == StatusInProgress
	case StatusCompleted:
		return false
	}
	return false
}

// SegmentType classifies a time segment recorded against an operation.
type SegmentType string

const (
	SegmentSetup     SegmentType = "setup"
	SegmentRun       SegmentType = "run"
	SegmentWait      SegmentType = "wait"
	SegmentRework    SegmentType = "rework"
	SegmentBreakdown SegmentType = "breakdown"
)

// ValidSegmentType reports whether t is one of the five segment kinds.
func ValidSegmentType(t SegmentType) bool {
	switch t {
	case SegmentSetup, SegmentRun, SegmentWait, SegmentRework, SegmentBreakdown:
		return true
	}
	return false
}

// ScrapCategory groups scrap reasons for breakdown reporting.
type ScrapCategory string

const (
	ScrapMaterial  ScrapCategory = "material"
	ScrapProcess   ScrapCategory = "process"
	ScrapEquipment ScrapCategory = "equipment"
	ScrapOperator  ScrapCategory = "operator"
	ScrapDesign    ScrapCategory = "design"
	ScrapOther     ScrapCategory = "other"
)

// ValidScrapCategory reports whether c is a known scrap category.
func ValidScrapCategory(c ScrapCategory) bool {
	switch c {
	case ScrapMaterial, ScrapProcess, ScrapEquipment, ScrapOperator, ScrapDesign, ScrapOther:
		return true
	}
	return false
}

// Cell is a production station with an ordered position on the shop floor.
//
// Sequence defines routing order; ties are broken by ID for determinism.
// WIPLimit nil means unlimited. WarningThreshold nil means the evaluation-time
// default of floor(0.8 * limit) applies; the default is never persisted.
type Cell struct {
	ID               string
	TenantID         string
	Name             string
	Sequence         int
	WIPLimit         *int
	WarningThreshold *int
	EnforceWIPLimit  bool
	Active           bool
}

// Job is a customer order owning zero or more parts. Its lifecycle timestamps
// are derived from its parts' operations, never set independently ahead of them.
type Job struct {
	ID          string
	TenantID    string
	Number      string
	StartedAt   *time.Time
	PausedAt    *time.Time
	ResumedAt   *time.Time
	CompletedAt *time.Time
}

// Part belongs to a job and owns an ordered sequence of operations.
type Part struct {
	ID       string
	TenantID string
	JobID    string
	Number   string
}

// Operation is a unit of work bound to exactly one cell.
type Operation struct {
	ID           string
	TenantID     string
	PartID       string
	CellID       string
	Sequence     int
	Status       OperationStatus
	StartedAt    *time.Time
	PausedAt     *time.Time
	ResumedAt    *time.Time
	PlannedStart *time.Time
	PlannedEnd   *time.Time
}

// MaterialInfo carries optional material traceability for a quantity record.
type MaterialInfo struct {
	LotNumber   string
	Supplier    string
	Certificate string
}

// QuantityRecord is one production-reporting event for an operation.
// Immutable once created; corrections are compensating records, not edits.
// Invariant: Produced == Good + Scrap + Rework.
type QuantityRecord struct {
	ID          string
	TenantID    string
	OperationID string
	Produced    int
	Good        int
	Scrap       int
	Rework      int
	Material    MaterialInfo
	RecordedBy  string
	RecordedAt  time.Time
}

// ScrapAttribution assigns part of a record's scrap quantity to a reason.
// The attributed quantities of one record never exceed the record's scrap.
type ScrapAttribution struct {
	ID       string
	RecordID string
	ReasonID string
	Quantity int
}

// ScrapReason is an entry in the external reason registry. The core only
// reads active reasons for attribution.
type ScrapReason struct {
	ID       string
	TenantID string
	Code     string
	Category ScrapCategory
	Active   bool
}

// TimeSegment is a typed interval recorded against an operation.
// EndedAt nil means the segment is open (or paused, if it has an unresolved
// pause). Pause durations are excluded from the segment's active duration.
type TimeSegment struct {
	ID          string
	TenantID    string
	OperationID string
	Type        SegmentType
	ActorID     string
	StartedAt   time.Time
	EndedAt     *time.Time
	Pauses      []Pause
}

// Pause is a sub-interval of a time segment. ResumedAt nil means the pause is
// unresolved; at close time its duration counts up to the close timestamp.
type Pause struct {
	ID        string
	SegmentID string
	PausedAt  time.Time
	ResumedAt *time.Time
}

// ActiveDuration returns the segment's duration excluding pauses, measured up
// to end for open segments. Unresolved pauses count up to end.
func (s TimeSegment) ActiveDuration(end time.Time) time.Duration {
	if s.EndedAt != nil {
		end = *s.EndedAt
	}
	total := end.Sub(s.StartedAt)
	for _, p := range s.Pauses {
		until := end
		if p.ResumedAt != nil {
			until = *p.ResumedAt
		}
		if until.After(p.PausedAt) {
			total -= until.Sub(p.PausedAt)
		}
	}
	if total < 0 {
		return 0
	}
	return total
}
