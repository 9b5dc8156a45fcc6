package soak

import "testing"

func int64p(v int64) *int64 { return &v }

func TestClassifyService(t *testing.T) {
	t.Parallel()

	base := ServiceBaseline{PID: 100, RSSKB: 1000, Handles: 50, Threads: 8}
	thresholds := Thresholds{MemoryDriftPct: 50, HandleDriftAbs: 500}

	cases := []struct {
		name       string
		sample     ServiceSample
		wantCount  int
		wantSev    []Severity
	}{
		{
			name: "healthy steady state",
			sample: ServiceSample{
				Healthy: true, PID: 100, PIDMatches: true,
				RSSKB: int64p(1100), Handles: int64p(60), Threads: int64p(8),
			},
			wantCount: 0,
		},
		{
			name:      "unreachable service",
			sample:    ServiceSample{Healthy: false},
			wantCount: 1,
			wantSev:   []Severity{Sev1},
		},
		{
			name: "silent restart",
			sample: ServiceSample{
				Healthy: true, PID: 999, PIDMatches: false,
				RSSKB: int64p(1000), Handles: int64p(50),
			},
			wantCount: 1,
			wantSev:   []Severity{Sev1},
		},
		{
			name: "memory drift beyond threshold",
			sample: ServiceSample{
				Healthy: true, PID: 100, PIDMatches: true,
				RSSKB: int64p(1501), Handles: int64p(50),
			},
			wantCount: 1,
			wantSev:   []Severity{Sev2},
		},
		{
			name: "memory at exactly the limit is not drift",
			sample: ServiceSample{
				Healthy: true, PID: 100, PIDMatches: true,
				RSSKB: int64p(1500), Handles: int64p(50),
			},
			wantCount: 0,
		},
		{
			name: "handle drift beyond threshold",
			sample: ServiceSample{
				Healthy: true, PID: 100, PIDMatches: true,
				RSSKB: int64p(1000), Handles: int64p(551),
			},
			wantCount: 1,
			wantSev:   []Severity{Sev2},
		},
		{
			name: "multiple independent events in one tick",
			sample: ServiceSample{
				Healthy: false, PID: 999, PIDMatches: false,
				RSSKB: int64p(2000), Handles: int64p(600),
			},
			wantCount: 4,
			wantSev:   []Severity{Sev1, Sev1, Sev2, Sev2},
		},
		{
			name: "unknown metrics classify nothing",
			sample: ServiceSample{
				Healthy: true, PID: 100, PIDMatches: true,
			},
			wantCount: 0,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			events := classifyService("api", tc.sample, base, thresholds)
			if len(events) != tc.wantCount {
				t.Fatalf("event count = %d, want %d (%v)", len(events), tc.wantCount, events)
			}
			for i, want := range tc.wantSev {
				if events[i].Severity != want {
					t.Errorf("event %d severity = %s, want %s", i, events[i].Severity, want)
				}
				if events[i].Subject != "api" {
					t.Errorf("event %d subject = %q", i, events[i].Subject)
				}
			}
		})
	}
}

func TestClassifyServiceZeroBaselineMemory(t *testing.T) {
	t.Parallel()

	// A baseline without metrics cannot anchor relative drift.
	sample := ServiceSample{Healthy: true, PID: 100, PIDMatches: true, RSSKB: int64p(999999)}
	events := classifyService("api", sample, ServiceBaseline{PID: 100}, Thresholds{MemoryDriftPct: 50, HandleDriftAbs: 500})
	for _, e := range events {
		if e.Severity == Sev2 {
			t.Fatalf("memory drift classified against zero baseline: %v", e)
		}
	}
}
