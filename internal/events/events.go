// Package events carries domain events from the accounting core to external
// subscribers (audit, notification, messaging). The core emits after each
// committed write; delivery, retry, and persistence are the subscriber's
// responsibility. This replaces the trigger-driven side effects of
// conventional shop-floor databases with explicit, testable control flow.
package events

import (
	"context"
	"time"
)

// Type identifies an event kind.
type Type string

const (
	// TypeQuantityRecorded fires after a quantity record commits.
	TypeQuantityRecorded Type = "quantity-recorded"

	// TypeCapacityBreached fires when an admission check finds the
	// destination cell at or over its WIP limit.
	TypeCapacityBreached Type = "capacity-breached"

	// TypeSegmentClosed fires after a time segment closes.
	TypeSegmentClosed Type = "segment-closed"

	// TypeOperationTransitioned fires after an operation status change
	// commits. The lifecycle projection listens for it.
	TypeOperationTransitioned Type = "operation-transitioned"
)

// Event is the envelope delivered to subscribers.
//
// Subject identifies the primary entity the event is about (record ID,
// cell ID, segment ID, operation ID). Fields carries type-specific values
// as plain strings for transport neutrality.
type Event struct {
	Type       Type              `json:"type"`
	TenantID   string            `json:"tenant_id"`
	ActorID    string            `json:"actor_id"`
	Subject    string            `json:"subject"`
	OccurredAt time.Time         `json:"occurred_at"`
	Fields     map[string]string `json:"fields,omitempty"`
}

// Subscriber receives events published on a Bus. Errors are logged by the
// bus, never propagated to the emitting component.
type Subscriber interface {
	Handle(ctx context.Context, e Event) error
}

// SubscriberFunc adapts a function to the Subscriber interface.
type SubscriberFunc func(ctx context.Context, e Event) error

// Handle implements Subscriber.
func (f SubscriberFunc) Handle(ctx context.Context, e Event) error {
	return f(ctx, e)
}
