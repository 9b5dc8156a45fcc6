package fake

import (
	"context"
	"sync"

	"vigil/internal/adapter/fake/fault"
	"vigil/internal/soak"
)

var _ soak.History = (*History)(nil)

const (
	FaultHistoryAppendSnapshot   = "history.append_snapshot"
	FaultHistoryAppendCheckpoint = "history.append_checkpoint"
	FaultHistorySnapshots        = "history.snapshots"
)

// History is an in-memory append-only run history.
type History struct {
	CallRecorder
	mu          sync.Mutex
	snapshots   []soak.Snapshot
	checkpoints []soak.Checkpoint
	markers     []soak.Marker
	faults      *fault.Injector
}

func NewHistory() *History {
	return &History{faults: fault.NewInjector()}
}

func (h *History) FailOnce(point string, err error) { h.faults.FailOnce(point, err) }
func (h *History) FailAlways(point string, err error) { h.faults.FailAlways(point, err) }

func (h *History) AppendSnapshot(_ context.Context, snap soak.Snapshot) error {
	h.record("AppendSnapshot", snap.Seq)
	if err := h.faults.Eval(FaultHistoryAppendSnapshot, snap); err != nil {
		return err
	}
	h.mu.Lock()
	h.snapshots = append(h.snapshots, snap)
	h.mu.Unlock()
	return nil
}

func (h *History) AppendCheckpoint(_ context.Context, cp soak.Checkpoint) error {
	h.record("AppendCheckpoint", cp.Seq)
	if err := h.faults.Eval(FaultHistoryAppendCheckpoint, cp); err != nil {
		return err
	}
	h.mu.Lock()
	h.checkpoints = append(h.checkpoints, cp)
	h.mu.Unlock()
	return nil
}

func (h *History) AppendMarker(_ context.Context, m soak.Marker) error {
	h.record("AppendMarker", m.Kind)
	h.mu.Lock()
	h.markers = append(h.markers, m)
	h.mu.Unlock()
	return nil
}

func (h *History) Snapshots(_ context.Context) ([]soak.Snapshot, error) {
	h.record("Snapshots")
	if err := h.faults.Eval(FaultHistorySnapshots); err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]soak.Snapshot, len(h.snapshots))
	copy(out, h.snapshots)
	return out, nil
}

// Checkpoints returns the recorded checkpoints.
func (h *History) Checkpoints() []soak.Checkpoint {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]soak.Checkpoint, len(h.checkpoints))
	copy(out, h.checkpoints)
	return out
}

// Markers returns the recorded markers.
func (h *History) Markers() []soak.Marker {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]soak.Marker, len(h.markers))
	copy(out, h.markers)
	return out
}
