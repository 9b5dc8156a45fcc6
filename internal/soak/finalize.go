package soak

import (
	"context"
	"fmt"
	"log/slog"

	"vigil/internal/stack"
)

// Finalizer renders the pass/fail verdict at the end of a soak window. It
// re-probes the live stack, recomputes every aggregate from the persisted
// history, and re-runs a determinism spot-check instead of using cached totals.
type Finalizer struct {
	Roster             stack.Roster
	Prober             Prober
	Baseline           Baseline
	History            History
	ConfigPath         string
	Clock              Clock
	Spot               SpotChecker
	ExpectedPassed     int
	ExpectedFailed     int
	MinAvailabilityPct float64
}

// Finalize computes the verdict. Errors are infrastructure faults (history
// unreadable, workload runner broken), distinct from a failing verdict.
func (f *Finalizer) Finalize(ctx context.Context) (Verdict, error) {
	v := Verdict{RenderedAt: f.Clock.Now()}

	v.ConfigMatch = HashConfig(f.ConfigPath) == f.Baseline.ConfigHash

	// "PID stable" means identical to baseline, not merely alive.
	results := f.Prober.ProbeAll(ctx, f.Roster)
	v.PIDStable = true
	v.FinalHealthy = true
	for _, name := range f.Roster.Names() {
		res := results[name]
		if !res.Healthy() {
			v.FinalHealthy = false
		}
		if !res.PIDKnown || res.PID != f.Baseline.Services[name].PID {
			v.PIDStable = false
		}
	}

	history, err := f.History.Snapshots(ctx)
	if err != nil {
		return Verdict{}, fmt.Errorf("load snapshot history: %w", err)
	}
	v.AvailabilityPct = Availability(history)
	v.AvailabilityOK = v.AvailabilityPct >= f.MinAvailabilityPct
	v.Anomalies = CountAnomalies(history)

	spot, err := f.Spot.Check(ctx)
	if err != nil {
		return Verdict{}, fmt.Errorf("determinism spot-check: %w", err)
	}
	v.Deterministic = spot.Deterministic
	v.SpotCheckMatched = spot.Deterministic &&
		spot.Passed == f.ExpectedPassed && spot.Failed == f.ExpectedFailed

	v.Pass = v.ConfigMatch && v.PIDStable && v.FinalHealthy &&
		v.AvailabilityOK && v.Anomalies == 0 && v.SpotCheckMatched

	slog.Info("soak verdict rendered",
		"pass", v.Pass,
		"config_match", v.ConfigMatch,
		"pid_stable", v.PIDStable,
		"final_healthy", v.FinalHealthy,
		"availability_pct", v.AvailabilityPct,
		"anomalies", v.Anomalies,
		"deterministic", v.Deterministic,
	)
	return v, nil
}
