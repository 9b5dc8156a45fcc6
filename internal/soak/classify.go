package soak

import "fmt"

// Thresholds are the drift limits, supplied by configuration.
type Thresholds struct {
	MemoryDriftPct float64
	HandleDriftAbs int64
}

// classifyService compares one service sample against its baseline entry.
// Thresholds are evaluated independently per metric, so one service can
// contribute several events in a single tick.
func classifyService(name string, s ServiceSample, base ServiceBaseline, t Thresholds) []AnomalyEvent {
	var events []AnomalyEvent

	if !s.Healthy {
		events = append(events, AnomalyEvent{
			Severity: Sev1,
			Subject:  name,
			Detail:   "service unreachable",
		})
	}
	if s.PID != 0 && !s.PIDMatches {
		events = append(events, AnomalyEvent{
			Severity: Sev1,
			Subject:  name,
			Detail:   fmt.Sprintf("pid changed from %d to %d", base.PID, s.PID),
			Values:   map[string]float64{"baseline_pid": float64(base.PID), "pid": float64(s.PID)},
		})
	}

	if s.RSSKB != nil && base.RSSKB > 0 {
		limit := float64(base.RSSKB) * (1 + t.MemoryDriftPct/100)
		if float64(*s.RSSKB) > limit {
			events = append(events, AnomalyEvent{
				Severity: Sev2,
				Subject:  name,
				Detail:   fmt.Sprintf("resident memory %d kB exceeds baseline %d kB by more than %.0f%%", *s.RSSKB, base.RSSKB, t.MemoryDriftPct),
				Values:   map[string]float64{"rss_kb": float64(*s.RSSKB), "baseline_rss_kb": float64(base.RSSKB)},
			})
		}
	}
	if s.Handles != nil && *s.Handles > base.Handles+t.HandleDriftAbs {
		events = append(events, AnomalyEvent{
			Severity: Sev2,
			Subject:  name,
			Detail:   fmt.Sprintf("open handles %d exceed baseline %d by more than %d", *s.Handles, base.Handles, t.HandleDriftAbs),
			Values:   map[string]float64{"handles": float64(*s.Handles), "baseline_handles": float64(base.Handles)},
		})
	}

	return events
}
