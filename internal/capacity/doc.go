// Package capacity derives live WIP occupancy per cell and evaluates
// admission decisions for cell-to-cell transitions.
//
// WIP is always recomputed from the operation set (count of distinct parts
// with a not_started or in_progress operation in the cell), never kept as an
// incremented counter, so out-of-band status edits cannot cause drift. An
// optional short-TTL cache may be enabled; it is keyed by cell and must be
// explicitly invalidated by callers that write operation status for the cell.
//
// Admission decisions are advisory: the ledger never mutates state. The
// authoritative guard against capacity races is the conditional status
// transition at the store; a caller that loses it re-evaluates capacity.
package capacity
