// Package store provides the SQLite-backed entity store for floorline.
//
// It persists cells, jobs, parts, operations, quantity records, scrap
// attribution, and time segments, and is the single source of truth for all
// components. The components hold no mutable state of their own across calls.
//
// # Critical Patterns
//
// Conditional transitions:
//   - Operation status changes are single-row conditional UPDATEs keyed on
//     the expected prior status. Zero rows affected means a concurrent writer
//     won the race; callers surface ConflictError and re-read.
//
// Compare-and-insert:
//   - Starting a time segment inserts via INSERT ... SELECT ... WHERE NOT
//     EXISTS(open segment for the operation), so two operators cannot open
//     duplicate segments through check-then-insert races.
//
// Append-only accounting:
//   - quantity_records and scrap_attributions have no UPDATE path. A record
//     and its attributions commit in one transaction or not at all.
//
// Deterministic reads:
//   - Aggregation queries order by (sequence, id) so results are identical
//     across runs.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: enforce referential integrity
package store
