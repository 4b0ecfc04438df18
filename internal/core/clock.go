package core

import "time"

// Clock supplies wall time to components that stamp records. Injected so
// tests can drive segment durations deterministically.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the system wall clock in UTC.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// FixedClock returns a manually advanced time. Zero value starts at the zero
// time; use Set/Advance to move it. Not safe for concurrent use; tests only.
type FixedClock struct {
	t time.Time
}

// NewFixedClock creates a FixedClock pinned at t.
func NewFixedClock(t time.Time) *FixedClock {
	return &FixedClock{t: t}
}

// Now returns the pinned time.
func (c *FixedClock) Now() time.Time { return c.t }

// Set pins the clock at t.
func (c *FixedClock) Set(t time.Time) { c.t = t }

// Advance moves the clock forward by d.
func (c *FixedClock) Advance(d time.Duration) { c.t = c.t.Add(d) }
