package events

import (
	"context"
	"io"
	"log/slog"
	"sync"
)

// Bus is an in-process event dispatcher. Subscribers are invoked in
// registration order, synchronously; a failing subscriber is logged and
// skipped so the emitting write path never depends on downstream health.
//
// Thread-safety: Subscribe and Publish are safe from any goroutine.
// Subscribers registered during a Publish see only later events.
type Bus struct {
	mu     sync.RWMutex
	subs   []namedSubscriber
	logger *slog.Logger
}

type namedSubscriber struct {
	name string
	sub  Subscriber
}

// NewBus creates an empty bus. A nil logger silences delivery diagnostics.
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(127)}))
	}
	return &Bus{logger: logger}
}

// Subscribe registers a named subscriber for all event types. Filtering by
// type is the subscriber's concern; the event volume here is human-scale.
func (b *Bus) Subscribe(name string, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, namedSubscriber{name: name, sub: sub})
}

// Publish delivers the event to every subscriber. Subscriber errors are
// logged, not returned: the write the event describes has already committed.
func (b *Bus) Publish(ctx context.Context, e Event) {
	b.mu.RLock()
	subs := make([]namedSubscriber, len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	for _, ns := range subs {
		if err := ns.sub.Handle(ctx, e); err != nil {
			b.logger.Warn("event delivery failed",
				"subscriber", ns.name,
				"event", string(e.Type),
				"subject", e.Subject,
				"error", err,
			)
		}
	}
}

// AuditSubscriber logs every event through slog, the default stand-in for
// the external audit trail.
func AuditSubscriber(logger *slog.Logger) Subscriber {
	return SubscriberFunc(func(_ context.Context, e Event) error {
		logger.Info("domain event",
			"event", string(e.Type),
			"tenant", e.TenantID,
			"actor", e.ActorID,
			"subject", e.Subject,
		)
		return nil
	})
}
