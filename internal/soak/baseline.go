package soak

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"vigil/internal/stack"
)

// ErrUnhealthyStack means baseline capture was attempted while at least one
// service failed its probe. This is a hard precondition, not retryable.
var ErrUnhealthyStack = errors.New("cannot baseline an unhealthy stack")

// BaselineRecorder captures the one-time reference snapshot of the stack.
type BaselineRecorder struct {
	Roster     stack.Roster
	Prober     Prober
	ConfigPath string
	Clock      Clock
}

// Capture probes every service and records the reference state. Every
// service must be healthy; otherwise the capture fails fast naming the
// offenders. A missing config file is recorded as the absent sentinel, not
// an error; its later appearance would be drift.
func (r *BaselineRecorder) Capture(ctx context.Context) (Baseline, error) {
	results := r.Prober.ProbeAll(ctx, r.Roster)

	var unhealthy []string
	for _, name := range r.Roster.Names() {
		if !results[name].Healthy() {
			unhealthy = append(unhealthy, name)
		}
	}
	if len(unhealthy) > 0 {
		sort.Strings(unhealthy)
		return Baseline{}, fmt.Errorf("%w: %s", ErrUnhealthyStack, strings.Join(unhealthy, ", "))
	}

	base := Baseline{
		CapturedAt: r.Clock.Now(),
		ConfigHash: HashConfig(r.ConfigPath),
		Services:   make(map[string]ServiceBaseline, len(r.Roster.Services)),
	}
	for _, name := range r.Roster.Names() {
		res := results[name]
		sb := ServiceBaseline{PID: res.PID}
		if res.Metrics != nil {
			sb.RSSKB = res.Metrics.RSSKB
			sb.Handles = res.Metrics.Handles
			sb.Threads = res.Metrics.Threads
		}
		base.Services[name] = sb
	}
	return base, nil
}
