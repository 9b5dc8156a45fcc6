// Package soak implements the long-window reliability certification: a
// one-time baseline capture, a periodic snapshot/checkpoint sampling loop
// with drift classification, and a finalization verdict.
package soak

import (
	"time"
)

// Severity classifies an anomaly. Both severities abort the run: the
// zero-tolerance policy is deliberate (see DESIGN.md).
type Severity uint8

const (
	// Sev1 is a hard deviation: service unreachable, PID changed, or the
	// configuration content hash moved.
	Sev1 Severity = iota + 1
	// Sev2 is resource drift: memory or handle growth past threshold, or a
	// fatal-pattern burst in recent log output.
	Sev2
)

func (s Severity) String() string {
	switch s {
	case Sev1:
		return "sev1"
	case Sev2:
		return "sev2"
	default:
		return "unknown"
	}
}

// ServiceBaseline is the reference state of one service at baseline time.
type ServiceBaseline struct {
	PID     int   `json:"pid"`
	RSSKB   int64 `json:"rss_kb"`
	Handles int64 `json:"handles"`
	Threads int64 `json:"threads"`
}

// Baseline is the ground truth every later snapshot is compared against.
// Captured once per run; read-only afterward.
type Baseline struct {
	CapturedAt time.Time                  `json:"captured_at"`
	ConfigHash string                     `json:"config_hash"`
	Services   map[string]ServiceBaseline `json:"services"`
}

// ServiceSample is one service's slot in a snapshot. Metric pointers are nil
// when the signal could not be read, so the record shape is stable.
type ServiceSample struct {
	Healthy    bool   `json:"healthy"`
	PID        int    `json:"pid,omitempty"`
	PIDMatches bool   `json:"pid_matches"`
	RSSKB      *int64 `json:"rss_kb,omitempty"`
	Handles    *int64 `json:"handles,omitempty"`
	Threads    *int64 `json:"threads,omitempty"`
}

// AnomalyEvent is one classified deviation. Never mutated after creation.
type AnomalyEvent struct {
	Severity Severity           `json:"severity"`
	Subject  string             `json:"subject"` // service name, "config", or "logs"
	Detail   string             `json:"detail"`
	Values   map[string]float64 `json:"values,omitempty"` // metrics that triggered it
}

// SkewStatus is the advisory clock-skew reading attached to snapshots.
type SkewStatus struct {
	OffsetMS  float64   `json:"offset_ms"`
	Healthy   bool      `json:"healthy"`
	CheckedAt time.Time `json:"checked_at"`
}

// Snapshot is one point-in-time observation of the whole stack. Immutable
// once written; persisted per tick so the series can be replayed.
type Snapshot struct {
	Seq         int                      `json:"seq"`
	TakenAt     time.Time                `json:"taken_at"`
	Elapsed     time.Duration            `json:"elapsed"`
	Services    map[string]ServiceSample `json:"services"`
	ConfigHash  string                   `json:"config_hash"`
	ConfigDrift bool                     `json:"config_drift"`
	LogBursts   int                      `json:"log_bursts"`
	ClockSkew   *SkewStatus              `json:"clock_skew,omitempty"`
	Anomalies   []AnomalyEvent           `json:"anomalies"`
	AllHealthy  bool                     `json:"all_healthy"` // always len(Anomalies) == 0
}

// Checkpoint folds the full snapshot history so far into cumulative
// statistics. Always recomputed from history, never carried forward.
type Checkpoint struct {
	Seq             int           `json:"seq"`
	TakenAt         time.Time     `json:"taken_at"`
	Elapsed         time.Duration `json:"elapsed"`
	Snapshots       int           `json:"snapshots"`
	Healthy         int           `json:"healthy"`
	AvailabilityPct float64       `json:"availability_pct"`
	Anomalies       int           `json:"anomalies"`
	Current         Snapshot      `json:"current"`
}

// Marker is an advisory event in the run timeline (interim review).
type Marker struct {
	Kind    string        `json:"kind"`
	At      time.Time     `json:"at"`
	Elapsed time.Duration `json:"elapsed"`
	Note    string        `json:"note"`
}

// Verdict is the finalization result: a logical AND over every
// release-safety signal, with the evidence that produced it.
type Verdict struct {
	RenderedAt       time.Time `json:"rendered_at"`
	ConfigMatch      bool      `json:"config_match"`
	PIDStable        bool      `json:"pid_stable"`
	FinalHealthy     bool      `json:"final_healthy"`
	AvailabilityPct  float64   `json:"availability_pct"`
	AvailabilityOK   bool      `json:"availability_ok"`
	Anomalies        int       `json:"anomalies"`
	Deterministic    bool      `json:"deterministic"`
	SpotCheckMatched bool      `json:"spot_check_matched"`
	Pass             bool      `json:"pass"`
}
