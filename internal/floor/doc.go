// Package floor implements the operator-facing workflows that compose the
// capacity ledger, entity store, and event bus: advancing a part into its
// next cell under admission control, and operation status changes.
//
// The admission check is advisory; the authoritative guard is the store's
// conditional status transition. A caller that loses the race gets a
// Conflict error and should re-check capacity before retrying.
//
// The lifecycle projector replaces the trigger-driven timestamp derivation
// of conventional shop-floor databases: it subscribes to operation
// transitions and recomputes job aggregate timestamps from the operation
// set, so jobs never carry timestamps their operations cannot justify.
package floor
