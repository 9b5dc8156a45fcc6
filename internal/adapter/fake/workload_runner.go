package fake

import (
	"context"
	"fmt"
	"sync"

	"vigil/internal/supervisor"
)

var _ supervisor.WorkloadRunner = (*WorkloadRunner)(nil)

// Outcome is one scripted workload result.
type Outcome struct {
	Passed int
	Failed int
}

// WorkloadRunner replays scripted outcomes per workload id, in order. When
// the script runs out the last outcome repeats, which models a genuinely
// deterministic workload.
type WorkloadRunner struct {
	CallRecorder
	mu       sync.Mutex
	script   map[string][]Outcome
	consumed map[string]int

	RunErr error // returned on every Run when set
}

func NewWorkloadRunner() *WorkloadRunner {
	return &WorkloadRunner{
		script:   make(map[string][]Outcome),
		consumed: make(map[string]int),
	}
}

// Script appends outcomes for a workload id.
func (w *WorkloadRunner) Script(workloadID string, outcomes ...Outcome) {
	w.mu.Lock()
	w.script[workloadID] = append(w.script[workloadID], outcomes...)
	w.mu.Unlock()
}

func (w *WorkloadRunner) Run(_ context.Context, workloadID string) (int, int, error) {
	w.record("Run", workloadID)
	if w.RunErr != nil {
		return 0, 0, w.RunErr
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	outcomes := w.script[workloadID]
	if len(outcomes) == 0 {
		return 0, 0, fmt.Errorf("workload %q: no outcome scripted", workloadID)
	}
	idx := w.consumed[workloadID]
	if idx >= len(outcomes) {
		idx = len(outcomes) - 1
	} else {
		w.consumed[workloadID]++
	}
	out := outcomes[idx]
	return out.Passed, out.Failed, nil
}
