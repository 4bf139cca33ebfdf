package testutil

import (
	"sync"
	"time"
)

// SuiteTime is the instant data-driven cases run at: 2024-03-17T12:55:48Z.
var SuiteTime = time.Date(2024, 3, 17, 12, 55, 48, 0, time.UTC)

// DeterministicClock is a manually advanced clock for tests.
//
// Now returns the same instant until Advance or Set is called, so
// created_at values in golden output never drift.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type DeterministicClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewDeterministicClock creates a clock reading start.
// A zero start reads SuiteTime.
func NewDeterministicClock(start time.Time) *DeterministicClock {
	if start.IsZero() {
		start = SuiteTime
	}
	return &DeterministicClock{now: start.UTC()}
}

// Now returns the clock's current instant.
func (c *DeterministicClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *DeterministicClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Set moves the clock to t.
func (c *DeterministicClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t.UTC()
}
