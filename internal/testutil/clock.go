package testutil

import (
	"sync"
	"time"
)

// Epoch is the default FixedClock start, 2020-10-21T10:00:00Z.
var Epoch = time.Date(2020, 10, 21, 10, 0, 0, 0, time.UTC)

// FixedClock provides a thread-safe settable wall clock for tests.
//
// Now returns the same instant until Set or Advance moves it, so
// timestamps and generated filenames are reproducible.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type FixedClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFixedClock creates a clock frozen at t. A zero t uses Epoch.
func NewFixedClock(t time.Time) *FixedClock {
	if t.IsZero() {
		t = Epoch
	}
	return &FixedClock{now: t.UTC()}
}

// Now returns the current frozen instant.
//
// Implements engine.Clock interface.
func (c *FixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set moves the clock to t.
func (c *FixedClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t.UTC()
}

// Advance moves the clock forward by d and returns the new instant.
func (c *FixedClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}
