package capacity

import (
	"sync"
	"time"

	"github.com/shopfloor-io/floorline/internal/core"
)

// WithWIPCache enables a short-TTL per-cell WIP cache. The cache is an
// optimization for hot admission paths only; correctness relies on callers
// invalidating after status writes, and on the TTL as a backstop.
func WithWIPCache(ttl time.Duration, clock core.Clock) Option {
	return func(l *Ledger) {
		if clock == nil {
			clock = core.SystemClock{}
		}
		l.cache = &wipCache{
			ttl:     ttl,
			clock:   clock,
			entries: make(map[string]wipEntry),
		}
	}
}

type wipEntry struct {
	wip     int
	expires time.Time
}

// wipCache holds per-cell WIP counts with a TTL. Safe for concurrent use.
type wipCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	clock   core.Clock
	entries map[string]wipEntry
}

func (c *wipCache) get(cellID string) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[cellID]
	if !ok {
		return 0, false
	}
	if c.clock.Now().After(e.expires) {
		delete(c.entries, cellID)
		return 0, false
	}
	return e.wip, true
}

func (c *wipCache) put(cellID string, wip int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cellID] = wipEntry{wip: wip, expires: c.clock.Now().Add(c.ttl)}
}

func (c *wipCache) invalidate(cellID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, cellID)
}
