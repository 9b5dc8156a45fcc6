package fake

import (
	"context"
	"sync"
	"time"

	"vigil/internal/gate"
	"vigil/internal/soak"
)

var (
	_ soak.Clock = (*Clock)(nil)
	_ gate.Clock = (*Clock)(nil)
)

// Clock is a deterministic clock for testing. Sleep advances virtual time
// instantly, so hour-scale soak windows run in microseconds.
type Clock struct {
	mu  sync.Mutex
	now time.Time

	// OnSleep, when set, observes every Sleep and may cancel the wait by
	// returning false (simulating an external stop at a tick boundary).
	OnSleep func(d time.Duration) bool
}

// NewClock creates a Clock starting at the given time.
func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

// Now returns the current fake time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Sleep advances the clock by d and returns true, unless ctx is already
// canceled or OnSleep refuses the wait.
func (c *Clock) Sleep(ctx context.Context, d time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if c.OnSleep != nil && !c.OnSleep(d) {
		return false
	}
	c.Advance(d)
	return true
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// Set sets the clock to an exact time.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}
