// Package cmdutil wires the engine components from configuration. Every
// subcommand starts here so the wiring stays consistent.
package cmdutil

import (
	"context"
	"fmt"
	"strings"
	"time"

	"vigil/config"
	"vigil/internal/adapter/docker"
	"vigil/internal/probe"
	"vigil/internal/soak"
	"vigil/internal/stack"
	"vigil/internal/store"
	"vigil/internal/supervisor"
)

// Env bundles the shared pieces built from one config file.
type Env struct {
	Config config.Config
	Roster stack.Roster
	Store  *store.Store
	Prober *probe.Prober
	Clock  soak.Clock
}

// Setup loads config, parses the roster, and opens the audit store.
func Setup(ctx context.Context, configPath string) (*Env, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	roster, err := stack.LoadRoster(ctx, cfg.Stack.ComposeFile, cfg.Stack.PIDDir, cfg.Stack.LogDir)
	if err != nil {
		return nil, fmt.Errorf("load roster: %w", err)
	}

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, err
	}

	return &Env{
		Config: cfg,
		Roster: roster,
		Store:  st,
		Prober: &probe.Prober{
			Timeout:    cfg.Soak.ProbeTimeout,
			HealthPath: cfg.Stack.HealthPath,
		},
		Clock: soak.RealClock{},
	}, nil
}

func (e *Env) Close() {
	if e == nil || e.Store == nil {
		return
	}
	_ = e.Store.Close()
}

// Supervisor builds the docker-backed service supervisor, waiting for the
// daemon to become reachable.
func (e *Env) Supervisor(ctx context.Context) (supervisor.Supervisor, error) {
	return docker.NewSupervisor(ctx, e.Roster, e.Config.Stack.ContainerPrefix)
}

// Restart returns a function that brings the whole stack to a clean healthy
// state: stop every service, start every service, wait until all probes
// pass or the gate startup timeout elapses.
func (e *Env) Restart(sup supervisor.Supervisor) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		for _, name := range e.Roster.Names() {
			if err := sup.Stop(ctx, name); err != nil {
				return fmt.Errorf("stop %s: %w", name, err)
			}
		}
		for _, name := range e.Roster.Names() {
			if _, err := sup.Start(ctx, name); err != nil {
				return fmt.Errorf("start %s: %w", name, err)
			}
		}

		deadline := e.Clock.Now().Add(e.Config.Gate.StartupTimeout)
		for {
			results := e.Prober.ProbeAll(ctx, e.Roster)
			var unhealthy []string
			for _, name := range e.Roster.Names() {
				if !results[name].Healthy() {
					unhealthy = append(unhealthy, name)
				}
			}
			if len(unhealthy) == 0 {
				return nil
			}
			if !e.Clock.Now().Before(deadline) {
				return fmt.Errorf("stack not healthy within %s: %s",
					e.Config.Gate.StartupTimeout, strings.Join(unhealthy, ", "))
			}
			if !e.Clock.Sleep(ctx, 2*time.Second) {
				return ctx.Err()
			}
		}
	}
}
