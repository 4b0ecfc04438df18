// Package core defines the domain model shared by every floorline component:
// cells, jobs, parts, operations, quantity records, scrap attribution, time
// segments, and the error taxonomy the components surface to callers.
//
// The four error kinds map to caller behavior:
//   - Validation: the input violates an invariant; fix the input, never retry.
//   - NotFound: the referenced entity does not exist; fatal to the call.
//   - Conflict: lost a concurrent status race; re-read state, retry at most once.
//   - Configuration: shop-floor layout is inconsistent; surfaced, not worked around.
//
// All identity strings (cell names, scrap reason codes) are NFC-normalized
// before storage so that lookups are stable across input sources.
package core
