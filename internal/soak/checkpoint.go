package soak

import (
	"math"

	"vigil/internal/check"
)

// Availability is healthy/total × 100 rounded to two decimals, recomputed
// from the full series every time. An empty history is 0, not a division
// error.
func Availability(history []Snapshot) float64 {
	if len(history) == 0 {
		return 0
	}
	healthy := 0
	for _, s := range history {
		if s.AllHealthy {
			healthy++
		}
	}
	return math.Round(float64(healthy)/float64(len(history))*100*100) / 100
}

// CountAnomalies totals anomaly events across the series.
func CountAnomalies(history []Snapshot) int {
	total := 0
	for _, s := range history {
		total += len(s.Anomalies)
	}
	return total
}

// BuildCheckpoint folds the full snapshot history into a cumulative summary.
// history must end with the snapshot taken this tick; the aggregation is
// pure, never an increment of previous checkpoint state.
func BuildCheckpoint(seq int, history []Snapshot) Checkpoint {
	check.Assert(len(history) > 0, "BuildCheckpoint: history must not be empty")
	current := history[len(history)-1]

	healthy := 0
	for _, s := range history {
		if s.AllHealthy {
			healthy++
		}
	}

	return Checkpoint{
		Seq:             seq,
		TakenAt:         current.TakenAt,
		Elapsed:         current.Elapsed,
		Snapshots:       len(history),
		Healthy:         healthy,
		AvailabilityPct: Availability(history),
		Anomalies:       CountAnomalies(history),
		Current:         current,
	}
}
