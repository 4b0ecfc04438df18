package core

import (
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

// TenantContext identifies the actor and tenant boundary for a call.
// Resolved by the identity provider at the call site; the core trusts it and
// scopes every query by TenantID.
type TenantContext struct {
	TenantID string
	ActorID  string
	Role     string
}

// Valid reports whether the context carries both a tenant and an actor.
func (tc TenantContext) Valid() bool {
	return tc.TenantID != "" && tc.ActorID != ""
}

// NewID returns a UUIDv7 string. Time-ordered so that record IDs sort in
// creation order, which keeps deterministic tiebreak ordering stable.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// NormalizeIdentity NFC-normalizes and trims an identity string (cell name,
// scrap reason code). Lookups against stored identities are stable only if
// both sides pass through here.
func NormalizeIdentity(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}
