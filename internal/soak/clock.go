package soak

import (
	"context"
	"time"
)

// Clock abstracts wall-clock reads and interval waits so the sampling and
// checkpoint cadences are testable with virtual time.
type Clock interface {
	Now() time.Time
	// Sleep blocks for d or until ctx is canceled. Returns false on cancel.
	Sleep(ctx context.Context, d time.Duration) bool
}

// RealClock is the production Clock.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

func (RealClock) Sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
