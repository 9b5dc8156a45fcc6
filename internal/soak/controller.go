package soak

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"vigil/internal/check"
)

// ErrRunAborted wraps the anomaly that stopped a soak run. Both severities
// abort: zero tolerance is the release-safety policy of this design.
var ErrRunAborted = errors.New("soak run aborted")

// Controller owns the sampling loop. Single writer to History; ticks are
// synchronous: classification and persistence of tick n complete before
// tick n+1 starts, and external cancellation is honored only between ticks
// so every persisted record is whole.
type Controller struct {
	Sampler            *Sampler
	History            History
	Clock              Clock
	SnapshotInterval   time.Duration
	CheckpointInterval time.Duration
	Duration           time.Duration
	OnEvent            func(kind, message string)

	mu    sync.Mutex
	phase RunPhase
}

// Phase reports the controller's current lifecycle state.
func (c *Controller) Phase() RunPhase {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase == 0 {
		return RunRunning
	}
	return c.phase
}

func (c *Controller) transition(to RunPhase) {
	c.mu.Lock()
	cur := c.phase
	if cur == 0 {
		cur = RunRunning
	}
	c.phase = cur.Transition(to)
	c.mu.Unlock()
}

func (c *Controller) emit(kind, message string) {
	if c.OnEvent != nil {
		c.OnEvent(kind, message)
	}
	slog.Debug("soak event", "event", kind, "message", message)
}

// Run drives the sampling loop until the window elapses, an anomaly aborts
// the run, or ctx is canceled at a tick boundary. A persistence failure is
// an infrastructure fault: the run stops with a plain wrapped error, never
// an ErrRunAborted, and whatever history exists stays intact.
func (c *Controller) Run(ctx context.Context) error {
	check.Assert(c.Sampler != nil, "Controller.Run: Sampler must not be nil")
	check.Assert(c.History != nil, "Controller.Run: History must not be nil")

	c.mu.Lock()
	c.phase = RunRunning
	c.mu.Unlock()

	start := c.Clock.Now()
	lastCheckpoint := start
	snapSeq := 0
	cpSeq := 0
	interimAt := c.Duration/2 + c.SnapshotInterval // halfway plus one tick of grace
	interimEmitted := false

	log := slog.With("component", "soak-controller")
	log.Info("soak window started", "duration", c.Duration, "snapshot_interval", c.SnapshotInterval)

	for {
		if !c.Clock.Sleep(ctx, c.SnapshotInterval) {
			log.Info("soak loop stopped externally", "snapshots", snapSeq)
			return ctx.Err()
		}

		snapSeq++
		snap := c.Sampler.Sample(ctx, snapSeq)
		if err := c.History.AppendSnapshot(ctx, snap); err != nil {
			return fmt.Errorf("persist snapshot %d: %w", snapSeq, err)
		}
		c.emit("soak.snapshot", fmt.Sprintf("snapshot %d: healthy=%t anomalies=%d", snapSeq, snap.AllHealthy, len(snap.Anomalies)))

		now := c.Clock.Now()
		if now.Sub(lastCheckpoint) >= c.CheckpointInterval {
			history, err := c.History.Snapshots(ctx)
			if err != nil {
				return fmt.Errorf("load history for checkpoint: %w", err)
			}
			cpSeq++
			cp := BuildCheckpoint(cpSeq, history)
			if err := c.History.AppendCheckpoint(ctx, cp); err != nil {
				return fmt.Errorf("persist checkpoint %d: %w", cpSeq, err)
			}
			lastCheckpoint = now
			c.emit("soak.checkpoint", fmt.Sprintf("checkpoint %d: availability=%.2f%% anomalies=%d", cpSeq, cp.AvailabilityPct, cp.Anomalies))
		}

		if len(snap.Anomalies) > 0 {
			c.transition(RunAborted)
			worst := worstAnomaly(snap.Anomalies)
			log.Error("soak run aborted", "severity", worst.Severity.String(), "subject", worst.Subject, "detail", worst.Detail)
			return fmt.Errorf("%w: %s %s: %s", ErrRunAborted, worst.Severity, worst.Subject, worst.Detail)
		}

		elapsed := now.Sub(start)
		if elapsed >= c.Duration {
			c.transition(RunCompleted)
			log.Info("soak window completed", "snapshots", snapSeq, "checkpoints", cpSeq)
			return nil
		}

		if !interimEmitted && elapsed >= interimAt {
			interimEmitted = true
			m := Marker{
				Kind:    "interim-review",
				At:      now,
				Elapsed: elapsed,
				Note:    fmt.Sprintf("halfway review point after %d snapshots", snapSeq),
			}
			if err := c.History.AppendMarker(ctx, m); err != nil {
				return fmt.Errorf("persist interim marker: %w", err)
			}
			c.emit("soak.interim", m.Note)
		}
	}
}

// worstAnomaly prefers SEV-1 over SEV-2 so the abort reason names the
// highest-severity deviation in the tick.
func worstAnomaly(events []AnomalyEvent) AnomalyEvent {
	check.Assert(len(events) > 0, "worstAnomaly: events must not be empty")
	worst := events[0]
	for _, e := range events[1:] {
		if e.Severity < worst.Severity {
			worst = e
		}
	}
	return worst
}
