package cache

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

type record struct {
	at    time.Time
	value string
}

// Expiring is a timestamp-keyed store that only exposes how many entries are
// younger than its window. It never holds more than capacity entries.
type Expiring struct {
	mu       sync.Mutex
	window   time.Duration
	capacity int
	clock    clock.Clock

	order   []int64 // keys in insertion order
	entries map[int64]record
}

// New returns an empty cache. A non-positive window disables age eviction and
// a non-positive capacity disables the size bound.
func New(window time.Duration, capacity int, clk clock.Clock) *Expiring {
	if clk == nil {
		clk = clock.New()
	}
	return &Expiring{
		window:   window,
		capacity: capacity,
		clock:    clk,
		entries:  make(map[int64]record),
	}
}

// Insert records value under the timestamp at. Expired entries are dropped
// first; if the cache is still full the oldest-inserted entry is dropped
// regardless of its age. Re-inserting an existing timestamp replaces its value.
func (c *Expiring) Insert(at time.Time, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.evictExpired()

	key := at.UnixNano()
	if _, ok := c.entries[key]; ok {
		c.entries[key] = record{at: at, value: value}
		return
	}
	for c.capacity > 0 && len(c.order) >= c.capacity {
		delete(c.entries, c.order[0])
		c.order = c.order[1:]
	}
	c.order = append(c.order, key)
	c.entries[key] = record{at: at, value: value}
}

// Size returns the number of entries that are younger than the window.
func (c *Expiring) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.evictExpired()
	return len(c.order)
}

// evictExpired must be called with mu held.
func (c *Expiring) evictExpired() {
	if c.window <= 0 || len(c.order) == 0 {
		return
	}
	now := c.clock.Now()
	kept := c.order[:0]
	for _, key := range c.order {
		if now.Sub(c.entries[key].at) < c.window {
			kept = append(kept, key)
			continue
		}
		delete(c.entries, key)
	}
	c.order = kept
}
