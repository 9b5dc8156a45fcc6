// Package gate certifies clean start/stop behavior: N consecutive cycles of
// stop → start → await-healthy → stop → verify-zero-survivors. The gate is
// all-or-nothing; one failed cycle fails the whole sequence, and a rerun
// starts over from cycle 1.
package gate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"vigil/internal/check"
	"vigil/internal/probe"
	"vigil/internal/stack"
	"vigil/internal/supervisor"
)

// healthPollInterval is 2s: fast enough to catch readiness promptly without
// hammering freshly-started services.
const healthPollInterval = 2 * time.Second

// Clock abstracts time so gate timeouts run under virtual time in tests.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) bool
}

// Prober reads the live state of the roster.
// Production: *probe.Prober
// Testing: fake with scripted per-service results
type Prober interface {
	ProbeAll(ctx context.Context, roster stack.Roster) map[string]probe.Result
}

// CycleResult records one gate iteration.
type CycleResult struct {
	Cycle   int        `json:"cycle"`
	Phase   CyclePhase `json:"phase"` // terminal: passed or failed
	Zombies int        `json:"zombies"`
	Reason  string     `json:"reason,omitempty"`
}

// Result is the gate verdict: the conjunction over all cycles.
type Result struct {
	Cycles []CycleResult `json:"cycles"`
	Pass   bool          `json:"pass"`
}

// Gate drives the cycle sequence.
type Gate struct {
	Roster         stack.Roster
	Supervisor     supervisor.Supervisor
	Prober         Prober
	Clock          Clock
	Cycles         int
	StartupTimeout time.Duration
	SettleDelay    time.Duration       // wait after stop before counting survivors
	PIDAlive       func(pid int) bool // defaults to probe.PIDAlive
	OnEvent        func(kind, message string)
}

func (g *Gate) pidAlive(pid int) bool {
	if g.PIDAlive != nil {
		return g.PIDAlive(pid)
	}
	return probe.PIDAlive(pid)
}

func (g *Gate) emit(kind, message string) {
	if g.OnEvent != nil {
		g.OnEvent(kind, message)
	}
	slog.Debug("gate event", "event", kind, "message", message)
}

// Run executes every configured cycle even after a failure, so the evidence
// trail covers the full sequence; the overall verdict is still FAIL on the
// first failed cycle. The returned error reports infrastructure faults only.
func (g *Gate) Run(ctx context.Context) (Result, error) {
	check.Assert(g.Supervisor != nil, "Gate.Run: Supervisor must not be nil")
	check.Assert(g.Prober != nil, "Gate.Run: Prober must not be nil")
	check.Assert(g.Cycles > 0, "Gate.Run: Cycles must be positive")

	log := slog.With("component", "cycle-gate")
	log.Info("cycle gate started", "cycles", g.Cycles, "startup_timeout", g.StartupTimeout)

	res := Result{Pass: true}
	for i := 1; i <= g.Cycles; i++ {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		cr := g.runCycle(ctx, i)
		res.Cycles = append(res.Cycles, cr)
		if cr.Phase != CyclePassed || cr.Zombies > 0 {
			res.Pass = false
			log.Warn("gate cycle failed", "cycle", i, "zombies", cr.Zombies, "reason", cr.Reason)
		} else {
			log.Info("gate cycle passed", "cycle", i)
		}
	}

	log.Info("cycle gate finished", "pass", res.Pass)
	return res, nil
}

func (g *Gate) runCycle(ctx context.Context, cycle int) CycleResult {
	cr := CycleResult{Cycle: cycle}
	phase := CycleStopping
	fail := func(reason string) CycleResult {
		cr.Phase = phase.Transition(CycleFailed)
		cr.Reason = reason
		return cr
	}

	// Clean slate: stop everything before starting, idempotently.
	g.emit("gate.cycle", fmt.Sprintf("cycle %d: stopping stack", cycle))
	if err := g.stopAll(ctx); err != nil {
		return fail(fmt.Sprintf("initial stop: %v", err))
	}

	phase = phase.Transition(CycleStarting)
	g.emit("gate.cycle", fmt.Sprintf("cycle %d: starting stack", cycle))
	pids := make(map[string]int, len(g.Roster.Services))
	for _, name := range g.Roster.Names() {
		pid, err := g.Supervisor.Start(ctx, name)
		if err != nil {
			return fail(fmt.Sprintf("start %s: %v", name, err))
		}
		pids[name] = pid
	}

	phase = phase.Transition(CycleAwaitingHealthy)
	if unhealthy, ok := g.awaitHealthy(ctx); !ok {
		return fail(fmt.Sprintf("stack not healthy within %s: %s", g.StartupTimeout, unhealthy))
	}

	phase = phase.Transition(CycleStoppingAgain)
	g.emit("gate.cycle", fmt.Sprintf("cycle %d: stopping stack after healthy", cycle))
	if err := g.stopAll(ctx); err != nil {
		return fail(fmt.Sprintf("stop: %v", err))
	}

	phase = phase.Transition(CycleVerifyingCleanup)
	if g.SettleDelay > 0 {
		g.Clock.Sleep(ctx, g.SettleDelay)
	}
	cr.Zombies = g.countZombies(pids)
	if cr.Zombies > 0 {
		return fail(fmt.Sprintf("%d process(es) survived stop", cr.Zombies))
	}

	cr.Phase = phase.Transition(CyclePassed)
	return cr
}

func (g *Gate) stopAll(ctx context.Context) error {
	for _, name := range g.Roster.Names() {
		if err := g.Supervisor.Stop(ctx, name); err != nil {
			return fmt.Errorf("stop %s: %w", name, err)
		}
	}
	return nil
}

// awaitHealthy polls the roster until every service is healthy or the
// startup timeout elapses. Returns the names still unhealthy on timeout.
func (g *Gate) awaitHealthy(ctx context.Context) (string, bool) {
	deadline := g.Clock.Now().Add(g.StartupTimeout)
	for {
		results := g.Prober.ProbeAll(ctx, g.Roster)
		unhealthy := ""
		for _, name := range g.Roster.Names() {
			if !results[name].Healthy() {
				if unhealthy != "" {
					unhealthy += ", "
				}
				unhealthy += name
			}
		}
		if unhealthy == "" {
			return "", true
		}
		if !g.Clock.Now().Before(deadline) {
			return unhealthy, false
		}
		if !g.Clock.Sleep(ctx, healthPollInterval) {
			return unhealthy, false
		}
	}
}

// countZombies checks the PIDs recorded at start of this cycle. A pid still
// alive after stop is a leaked process.
func (g *Gate) countZombies(pids map[string]int) int {
	zombies := 0
	for name, pid := range pids {
		if pid <= 0 {
			continue
		}
		if g.pidAlive(pid) {
			slog.Warn("zombie process after stop", "service", name, "pid", pid)
			zombies++
		}
	}
	return zombies
}
