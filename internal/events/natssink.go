package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
)

// NATSSink publishes events to NATS subjects of the form
// floorline.events.<type>, e.g. floorline.events.quantity-recorded.
// Payloads are the JSON-encoded Event envelope.
//
// The sink owns its connection lifecycle; the bus treats a publish failure
// like any other subscriber error (logged, not propagated).
type NATSSink struct {
	conn          *nats.Conn
	subjectPrefix string
}

// NATSSinkOption configures a NATSSink.
type NATSSinkOption func(*NATSSink)

// WithSubjectPrefix overrides the default "floorline.events" prefix.
func WithSubjectPrefix(prefix string) NATSSinkOption {
	return func(s *NATSSink) {
		s.subjectPrefix = prefix
	}
}

// NewNATSSink connects to the given NATS URL.
func NewNATSSink(url string, opts ...NATSSinkOption) (*NATSSink, error) {
	conn, err := nats.Connect(url, nats.Name("floorline-events"))
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	s := &NATSSink{conn: conn, subjectPrefix: "floorline.events"}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Handle implements Subscriber by publishing the event.
func (s *NATSSink) Handle(_ context.Context, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	subject := fmt.Sprintf("%s.%s", s.subjectPrefix, e.Type)
	if err := s.conn.Publish(subject, payload); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

// Close drains and closes the connection. Drain flushes buffered publishes
// before disconnecting.
func (s *NATSSink) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Drain()
}
