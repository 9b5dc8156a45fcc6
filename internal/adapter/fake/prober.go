package fake

import (
	"context"
	"sync"

	"vigil/internal/gate"
	"vigil/internal/probe"
	"vigil/internal/soak"
	"vigil/internal/stack"
)

var (
	_ soak.Prober = (*Prober)(nil)
	_ gate.Prober = (*Prober)(nil)
)

// Prober returns scripted per-service probe results.
type Prober struct {
	CallRecorder
	mu      sync.Mutex
	results map[string]probe.Result

	// OnProbe, when set, is invoked before each ProbeAll and may mutate the
	// scripted results (e.g. flip a service unhealthy on tick 3).
	OnProbe func(p *Prober)
}

func NewProber() *Prober {
	return &Prober{results: make(map[string]probe.Result)}
}

// SetHealthy scripts a fully healthy service with the given pid and metrics.
func (p *Prober) SetHealthy(name string, pid int, m probe.ProcessMetrics) {
	p.mu.Lock()
	defer p.mu.Unlock()
	metrics := m
	p.results[name] = probe.Result{
		PID:           pid,
		PIDKnown:      true,
		PIDAlive:      true,
		PortListening: true,
		HealthOK:      true,
		Metrics:       &metrics,
	}
}

// SetResult scripts an arbitrary probe result.
func (p *Prober) SetResult(name string, res probe.Result) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.results[name] = res
}

// SetDown scripts a fully unreachable service.
func (p *Prober) SetDown(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.results[name] = probe.Result{}
}

func (p *Prober) ProbeAll(_ context.Context, roster stack.Roster) map[string]probe.Result {
	p.record("ProbeAll")
	if p.OnProbe != nil {
		p.OnProbe(p)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]probe.Result, len(roster.Services))
	for _, svc := range roster.Services {
		out[svc.Name] = p.results[svc.Name]
	}
	return out
}
