package events

import (
	"context"
	"sync"
)

// Recorder is an in-memory subscriber that captures delivered events.
// Used by tests and by diagnostic tooling to observe emission.
type Recorder struct {
	mu     sync.Mutex
	Events []Event
}

// Handle implements Subscriber.
func (r *Recorder) Handle(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, e)
	return nil
}

// ByType returns the captured events of one type, in delivery order.
func (r *Recorder) ByType(typ Type) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Event
	for _, e := range r.Events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}
