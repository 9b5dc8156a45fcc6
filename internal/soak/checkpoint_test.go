package soak

import (
	"testing"
	"time"
)

func snapshotSeries(healthy ...bool) []Snapshot {
	out := make([]Snapshot, len(healthy))
	for i, h := range healthy {
		out[i] = Snapshot{Seq: i + 1, AllHealthy: h}
		if !h {
			out[i].Anomalies = []AnomalyEvent{{Severity: Sev2, Subject: "api", Detail: "drift"}}
		}
	}
	return out
}

func TestAvailability(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		history []Snapshot
		want    float64
	}{
		{"empty history", nil, 0},
		{"all healthy", snapshotSeries(true, true, true), 100},
		{"two thirds", snapshotSeries(true, true, false), 66.67},
		{"one third", snapshotSeries(true, false, false), 33.33},
		{"rounding to two decimals", snapshotSeries(true, true, true, true, true, true, false), 85.71},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := Availability(tc.history); got != tc.want {
				t.Fatalf("Availability() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestCountAnomalies(t *testing.T) {
	t.Parallel()

	history := snapshotSeries(true, false, false, true)
	if got := CountAnomalies(history); got != 2 {
		t.Fatalf("CountAnomalies() = %d, want 2", got)
	}
}

func TestBuildCheckpointIsPureAggregation(t *testing.T) {
	t.Parallel()

	takenAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	history := snapshotSeries(true, true, false)
	history[2].TakenAt = takenAt
	history[2].Elapsed = 15 * time.Minute

	cp := BuildCheckpoint(1, history)
	if cp.Seq != 1 {
		t.Errorf("Seq = %d", cp.Seq)
	}
	if cp.Snapshots != 3 || cp.Healthy != 2 {
		t.Errorf("Snapshots/Healthy = %d/%d, want 3/2", cp.Snapshots, cp.Healthy)
	}
	if cp.AvailabilityPct != 66.67 {
		t.Errorf("AvailabilityPct = %v", cp.AvailabilityPct)
	}
	if cp.Anomalies != 1 {
		t.Errorf("Anomalies = %d", cp.Anomalies)
	}
	if !cp.TakenAt.Equal(takenAt) || cp.Elapsed != 15*time.Minute {
		t.Errorf("TakenAt/Elapsed = %v/%v", cp.TakenAt, cp.Elapsed)
	}
	if cp.Current.Seq != 3 {
		t.Errorf("Current.Seq = %d, want 3", cp.Current.Seq)
	}

	// Rebuilding from the same history yields the identical summary.
	again := BuildCheckpoint(1, history)
	if again.AvailabilityPct != cp.AvailabilityPct || again.Healthy != cp.Healthy {
		t.Error("recomputed checkpoint differs")
	}
}
