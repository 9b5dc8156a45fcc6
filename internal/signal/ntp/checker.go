// Package ntp watches wall-clock sanity during long soak windows. The
// reading is advisory: it is attached to snapshots as evidence but never
// classified as an anomaly.
package ntp

import (
	"context"
	"sync"
	"time"

	"github.com/beevik/ntp"

	"vigil/internal/soak"
)

const (
	defaultPool      = "pool.ntp.org"
	defaultInterval  = 60 * time.Second
	defaultThreshold = 500 * time.Millisecond
)

// Status is one clock-skew reading.
type Status struct {
	Offset    time.Duration
	Healthy   bool
	Error     string
	CheckedAt time.Time
}

// Checker periodically queries an NTP pool and keeps the latest reading.
type Checker struct {
	mu        sync.RWMutex
	status    Status
	pool      string
	interval  time.Duration
	threshold time.Duration
	clock     soak.Clock
	query     func(pool string) (*ntp.Response, error)
}

func NewChecker() *Checker {
	return &Checker{
		pool:      defaultPool,
		interval:  defaultInterval,
		threshold: defaultThreshold,
		clock:     soak.RealClock{},
		query:     ntp.Query,
	}
}

// Run checks immediately and then on every interval until ctx is canceled.
func (c *Checker) Run(ctx context.Context) {
	c.check()
	for c.clock.Sleep(ctx, c.interval) {
		c.check()
	}
}

func (c *Checker) check() {
	resp, err := c.query(c.pool)
	now := c.clock.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.status = Status{
			Error:     err.Error(),
			Healthy:   false,
			CheckedAt: now,
		}
		return
	}

	offset := resp.ClockOffset
	if offset < 0 {
		offset = -offset
	}

	c.status = Status{
		Offset:    resp.ClockOffset,
		Healthy:   offset < c.threshold,
		CheckedAt: now,
	}
}

// Status returns the latest reading.
func (c *Checker) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}
