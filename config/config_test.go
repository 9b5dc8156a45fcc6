package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vigil.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadOverridesDefaults(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
stack:
  compose-file: deploy/compose.yaml
soak:
  duration: 24h
  snapshot-interval: 1m
  checkpoint-interval: 30m
gate:
  cycles: 5
lock:
  command: ./run-suite.sh
  workload: full
  spot-workload: smoke
  expected-passed: 18
  expected-failed: 2
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Stack.ComposeFile != "deploy/compose.yaml" {
		t.Errorf("ComposeFile = %q", cfg.Stack.ComposeFile)
	}
	if cfg.Soak.Duration != 24*time.Hour || cfg.Soak.SnapshotInterval != time.Minute {
		t.Errorf("soak window = %s/%s", cfg.Soak.Duration, cfg.Soak.SnapshotInterval)
	}
	if cfg.Gate.Cycles != 5 {
		t.Errorf("Cycles = %d", cfg.Gate.Cycles)
	}
	if cfg.Lock.ExpectedPassed != 18 || cfg.Lock.ExpectedFailed != 2 {
		t.Errorf("lock expectations = %d/%d", cfg.Lock.ExpectedPassed, cfg.Lock.ExpectedFailed)
	}

	// Untouched knobs keep their defaults.
	def := Defaults()
	if cfg.Soak.MemoryDriftPct != def.Soak.MemoryDriftPct {
		t.Errorf("MemoryDriftPct = %v", cfg.Soak.MemoryDriftPct)
	}
	if cfg.Stack.HealthPath != def.Stack.HealthPath {
		t.Errorf("HealthPath = %q", cfg.Stack.HealthPath)
	}
	if len(cfg.Soak.FatalPatterns) == 0 {
		t.Error("FatalPatterns default lost")
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil || !strings.Contains(err.Error(), "does not exist") {
		t.Fatalf("Load() error = %v", err)
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "soak: [not, a, mapping]\n")
	if _, err := Load(path); err == nil {
		t.Fatal("Load() error = nil for malformed yaml")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"defaults are valid", func(c *Config) {}, ""},
		{"zero duration", func(c *Config) { c.Soak.Duration = 0 }, "duration"},
		{"zero snapshot interval", func(c *Config) { c.Soak.SnapshotInterval = 0 }, "snapshot interval"},
		{
			"checkpoint shorter than snapshot",
			func(c *Config) { c.Soak.CheckpointInterval = c.Soak.SnapshotInterval / 2 },
			"shorter than snapshot interval",
		},
		{"negative memory threshold", func(c *Config) { c.Soak.MemoryDriftPct = -1 }, "memory drift"},
		{"zero handle threshold", func(c *Config) { c.Soak.HandleDriftAbs = 0 }, "handle drift"},
		{"zero cycles", func(c *Config) { c.Gate.Cycles = 0 }, "cycles"},
		{"zero startup timeout", func(c *Config) { c.Gate.StartupTimeout = 0 }, "startup timeout"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := Defaults()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("Validate() error = %v, want %q", err, tc.wantErr)
			}
		})
	}
}
