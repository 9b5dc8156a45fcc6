package soak

import (
	"context"
	"fmt"

	"vigil/internal/stack"
)

// Sampler produces one fully-populated snapshot per tick. Snapshots are
// never partial: a sub-probe that cannot complete leaves its slot unknown,
// keeping the record shape stable across ticks.
type Sampler struct {
	Roster        stack.Roster
	Prober        Prober
	Baseline      Baseline
	ConfigPath    string
	Thresholds    Thresholds
	FatalPatterns []string
	LogTailLines  int
	Clock         Clock
	Skew          func() *SkewStatus // advisory, optional
}

// Sample probes every service, classifies drift against the baseline, scans
// log tails for fatal patterns, and re-hashes the config file.
func (s *Sampler) Sample(ctx context.Context, seq int) Snapshot {
	now := s.Clock.Now()
	snap := Snapshot{
		Seq:      seq,
		TakenAt:  now,
		Elapsed:  now.Sub(s.Baseline.CapturedAt),
		Services: make(map[string]ServiceSample, len(s.Roster.Services)),
	}

	results := s.Prober.ProbeAll(ctx, s.Roster)
	for _, name := range s.Roster.Names() {
		res := results[name]
		base := s.Baseline.Services[name]

		sample := ServiceSample{
			Healthy:    res.Healthy(),
			PID:        res.PID,
			PIDMatches: res.PIDKnown && res.PID == base.PID,
		}
		if res.Metrics != nil {
			rss, handles, threads := res.Metrics.RSSKB, res.Metrics.Handles, res.Metrics.Threads
			sample.RSSKB = &rss
			sample.Handles = &handles
			sample.Threads = &threads
		}
		snap.Services[name] = sample

		snap.Anomalies = append(snap.Anomalies, classifyService(name, sample, base, s.Thresholds)...)
	}

	snap.ConfigHash = HashConfig(s.ConfigPath)
	snap.ConfigDrift = snap.ConfigHash != s.Baseline.ConfigHash
	if snap.ConfigDrift {
		snap.Anomalies = append(snap.Anomalies, AnomalyEvent{
			Severity: Sev1,
			Subject:  "config",
			Detail:   fmt.Sprintf("config content hash changed from %s to %s", short(s.Baseline.ConfigHash), short(snap.ConfigHash)),
		})
	}

	// One aggregated event per tick regardless of how many lines matched.
	snap.LogBursts = s.scanLogs()
	if snap.LogBursts > 0 {
		snap.Anomalies = append(snap.Anomalies, AnomalyEvent{
			Severity: Sev2,
			Subject:  "logs",
			Detail:   fmt.Sprintf("%d fatal-pattern lines in recent service output", snap.LogBursts),
			Values:   map[string]float64{"lines": float64(snap.LogBursts)},
		})
	}

	if s.Skew != nil {
		snap.ClockSkew = s.Skew()
	}

	snap.AllHealthy = len(snap.Anomalies) == 0
	return snap
}

func (s *Sampler) scanLogs() int {
	total := 0
	for _, svc := range s.Roster.Services {
		lines := tailLines(svc.LogFile, s.LogTailLines)
		total += countFatalLines(lines, s.FatalPatterns)
	}
	return total
}

func short(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
