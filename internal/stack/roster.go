// Package stack describes the monitored service stack: a fixed roster of
// locally-running services, each with a health port, a recorded PID, and a
// log file.
package stack

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/compose-spec/compose-go/v2/loader"
	compose "github.com/compose-spec/compose-go/v2/types"
)

const composeSpecFilename = "compose.yaml"

// ServiceSpec identifies one monitored service. Immutable after load.
type ServiceSpec struct {
	Name       string // unique roster key, also the compose service name
	Image      string // container image the supervisor runs
	Port       int    // published TCP port serving the health endpoint
	TargetPort int    // container-side port behind the publication
	PIDFile    string // well-known location of the recorded process id
	LogFile    string // recent output scanned for fatal patterns
}

// Roster is the fixed set of monitored services for one certification run.
type Roster struct {
	Services []ServiceSpec
}

// Names returns the service names in roster order.
func (r Roster) Names() []string {
	out := make([]string, len(r.Services))
	for i, s := range r.Services {
		out[i] = s.Name
	}
	return out
}

// Lookup returns the spec for name. The bool is false when absent.
func (r Roster) Lookup(name string) (ServiceSpec, bool) {
	for _, s := range r.Services {
		if s.Name == name {
			return s, true
		}
	}
	return ServiceSpec{}, false
}

// LoadRoster parses a Docker Compose file into a monitored-service roster.
// Each service must publish exactly one TCP port; that port is taken as the
// health port. PID and log locations are derived from the service name under
// pidDir and logDir.
func LoadRoster(ctx context.Context, composePath, pidDir, logDir string) (Roster, error) {
	data, err := os.ReadFile(composePath)
	if err != nil {
		return Roster{}, fmt.Errorf("read compose file: %w", err)
	}

	configDetails := compose.ConfigDetails{
		ConfigFiles: []compose.ConfigFile{
			{Filename: composeSpecFilename, Content: data},
		},
	}
	project, err := loader.LoadWithContext(ctx, configDetails)
	if err != nil {
		return Roster{}, fmt.Errorf("parse compose spec: %w", err)
	}
	if len(project.Services) == 0 {
		return Roster{}, fmt.Errorf("compose spec has no services")
	}

	var roster Roster
	for name, svc := range project.Services {
		port, target, err := publishedPort(svc)
		if err != nil {
			return Roster{}, fmt.Errorf("service %q: %w", name, err)
		}
		roster.Services = append(roster.Services, ServiceSpec{
			Name:       name,
			Image:      svc.Image,
			Port:       port,
			TargetPort: target,
			PIDFile:    filepath.Join(pidDir, name+".pid"),
			LogFile:    filepath.Join(logDir, name+".log"),
		})
	}

	// Compose service maps iterate in random order; the roster order must be
	// stable so probe results and persisted records line up across ticks.
	sort.Slice(roster.Services, func(i, j int) bool {
		return roster.Services[i].Name < roster.Services[j].Name
	})

	return roster, roster.validate()
}

func publishedPort(svc compose.ServiceConfig) (published, target int, err error) {
	if len(svc.Ports) != 1 {
		return 0, 0, fmt.Errorf("expected exactly one published port, got %d", len(svc.Ports))
	}
	p := svc.Ports[0]
	if p.Protocol != "" && !strings.EqualFold(p.Protocol, "tcp") {
		return 0, 0, fmt.Errorf("health port must be tcp, got %q", p.Protocol)
	}
	published, err = strconv.Atoi(p.Published)
	if err != nil || published <= 0 {
		return 0, 0, fmt.Errorf("invalid published port %q", p.Published)
	}
	target = int(p.Target)
	if target == 0 {
		target = published
	}
	return published, target, nil
}

func (r Roster) validate() error {
	seenName := make(map[string]struct{}, len(r.Services))
	seenPort := make(map[int]string, len(r.Services))
	for _, s := range r.Services {
		if _, dup := seenName[s.Name]; dup {
			return fmt.Errorf("duplicate service name %q", s.Name)
		}
		seenName[s.Name] = struct{}{}
		if other, dup := seenPort[s.Port]; dup {
			return fmt.Errorf("services %q and %q share port %d", other, s.Name, s.Port)
		}
		seenPort[s.Port] = s.Name
	}
	return nil
}

// ReadPID reads the recorded process id for a service. A missing or
// malformed pid file yields ok=false: the absence of a recorded pid is a
// normal observation, not an error.
func (s ServiceSpec) ReadPID() (int, bool) {
	data, err := os.ReadFile(s.PIDFile)
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, false
	}
	return pid, true
}
