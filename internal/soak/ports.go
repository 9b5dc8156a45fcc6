package soak

import (
	"context"

	"vigil/internal/probe"
	"vigil/internal/stack"
)

// Prober reads the live state of the roster.
// Production: *probe.Prober
// Testing: fake with scripted per-service results
type Prober interface {
	ProbeAll(ctx context.Context, roster stack.Roster) map[string]probe.Result
}

// History is the append-only snapshot/checkpoint store for one run. There is
// exactly one writer (the controller); aggregations always re-read the full
// series instead of trusting running counters.
// Production: *store.RunHistory
// Testing: in-memory fake
type History interface {
	AppendSnapshot(ctx context.Context, snap Snapshot) error
	AppendCheckpoint(ctx context.Context, cp Checkpoint) error
	AppendMarker(ctx context.Context, m Marker) error
	Snapshots(ctx context.Context) ([]Snapshot, error)
}

// SpotResult is the determinism spot-check outcome consumed at finalization.
type SpotResult struct {
	Deterministic bool
	Passed        int
	Failed        int
}

// SpotChecker runs the fixed determinism workload twice.
// Production: lock.Lock via its SpotCheck method
// Testing: fake with canned results
type SpotChecker interface {
	Check(ctx context.Context) (SpotResult, error)
}
