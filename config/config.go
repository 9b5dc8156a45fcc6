// Package config loads the certification run configuration.
//
// Every knob the engine uses (soak window, cadences, drift thresholds,
// gate cycle count, workload identifiers) is supplied here. Nothing is
// hard-coded in the engine packages.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Stack describes where the monitored stack lives on this host.
type Stack struct {
	ComposeFile     string `yaml:"compose-file"`     // roster source: service names + published ports
	ConfigFile      string `yaml:"config-file"`      // active stack configuration, content-hashed
	PIDDir          string `yaml:"pid-dir"`          // <name>.pid files recorded by the supervisor
	LogDir          string `yaml:"log-dir"`          // <name>.log tails scanned for fatal patterns
	HealthPath      string `yaml:"health-path"`      // health endpoint path, defaults to /healthz
	ContainerPrefix string `yaml:"container-prefix"` // container name prefix for supervised services
}

// Soak configures the long-window soak certification.
type Soak struct {
	Duration           time.Duration `yaml:"duration"`
	SnapshotInterval   time.Duration `yaml:"snapshot-interval"`
	CheckpointInterval time.Duration `yaml:"checkpoint-interval"`
	MemoryDriftPct     float64       `yaml:"memory-drift-pct"`
	HandleDriftAbs     int64         `yaml:"handle-drift-abs"`
	LogTailLines       int           `yaml:"log-tail-lines"`
	FatalPatterns      []string      `yaml:"fatal-patterns"`
	ProbeTimeout       time.Duration `yaml:"probe-timeout"`
	MinAvailabilityPct float64       `yaml:"min-availability-pct"`
}

// Gate configures the start/stop cycle gate.
type Gate struct {
	Cycles         int           `yaml:"cycles"`
	StartupTimeout time.Duration `yaml:"startup-timeout"`
	SettleDelay    time.Duration `yaml:"settle-delay"`
}

// Lock configures the determinism lock and its finalization spot-check.
// Command is invoked with Args plus the workload id as the final argument
// and must print {"passed": N, "failed": M} as its last stdout line.
type Lock struct {
	Command        string   `yaml:"command"`
	Args           []string `yaml:"args"`
	Dir            string   `yaml:"dir"`
	Workload       string   `yaml:"workload"`
	SpotWorkload   string   `yaml:"spot-workload"`
	ExpectedPassed int      `yaml:"expected-passed"`
	ExpectedFailed int      `yaml:"expected-failed"`
}

// Store configures the audit store.
type Store struct {
	Path string `yaml:"path"`
}

// Config is the full certification configuration.
type Config struct {
	Stack Stack `yaml:"stack"`
	Soak  Soak  `yaml:"soak"`
	Gate  Gate  `yaml:"gate"`
	Lock  Lock  `yaml:"lock"`
	Store Store `yaml:"store"`
}

// Defaults mirror the reference deployment: a 48 h window sampled every
// 5 minutes with hourly checkpoints, +50% memory and +500 handle drift
// thresholds, and a 10-cycle gate.
func Defaults() Config {
	return Config{
		Stack: Stack{
			ComposeFile:     "compose.yaml",
			ConfigFile:      "stack.yaml",
			PIDDir:          "run",
			LogDir:          "logs",
			HealthPath:      "/healthz",
			ContainerPrefix: "vigil-",
		},
		Soak: Soak{
			Duration:           48 * time.Hour,
			SnapshotInterval:   5 * time.Minute,
			CheckpointInterval: time.Hour,
			MemoryDriftPct:     50,
			HandleDriftAbs:     500,
			LogTailLines:       200,
			FatalPatterns:      []string{"panic:", "fatal error", "SIGSEGV", "out of memory", "Traceback (most recent call last)"},
			ProbeTimeout:       3 * time.Second,
			MinAvailabilityPct: 99.9,
		},
		Gate: Gate{
			Cycles:         10,
			StartupTimeout: 90 * time.Second,
			SettleDelay:    2 * time.Second,
		},
		Lock: Lock{
			Workload:     "full",
			SpotWorkload: "smoke",
		},
		Store: Store{Path: "vigil.db"},
	}
}

// Load reads a config file on top of the defaults. A missing file is an
// error: certifying against an implicit configuration defeats the audit.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("config %s does not exist", path)
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the engine cannot honor.
func (c Config) Validate() error {
	if c.Soak.Duration <= 0 {
		return fmt.Errorf("soak duration must be positive")
	}
	if c.Soak.SnapshotInterval <= 0 {
		return fmt.Errorf("snapshot interval must be positive")
	}
	if c.Soak.CheckpointInterval < c.Soak.SnapshotInterval {
		return fmt.Errorf("checkpoint interval %s is shorter than snapshot interval %s",
			c.Soak.CheckpointInterval, c.Soak.SnapshotInterval)
	}
	if c.Soak.MemoryDriftPct <= 0 {
		return fmt.Errorf("memory drift threshold must be positive")
	}
	if c.Soak.HandleDriftAbs <= 0 {
		return fmt.Errorf("handle drift threshold must be positive")
	}
	if c.Gate.Cycles <= 0 {
		return fmt.Errorf("gate cycles must be positive")
	}
	if c.Gate.StartupTimeout <= 0 {
		return fmt.Errorf("gate startup timeout must be positive")
	}
	return nil
}
