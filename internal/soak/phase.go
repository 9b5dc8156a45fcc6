package soak

import (
	"encoding/json"
	"fmt"
	"strings"

	"vigil/internal/check"
)

// RunPhase is the soak controller's lifecycle state.
type RunPhase uint8

const (
	RunRunning RunPhase = iota + 1
	RunAborted
	RunCompleted
)

func (p RunPhase) String() string {
	switch p {
	case RunRunning:
		return "running"
	case RunAborted:
		return "aborted"
	case RunCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

func (p RunPhase) IsValid() bool {
	switch p {
	case RunRunning, RunAborted, RunCompleted:
		return true
	default:
		return false
	}
}

// Transition enforces the legal state machine: running is the only state
// with outgoing edges; aborted and completed are terminal.
func (p RunPhase) Transition(to RunPhase) RunPhase {
	ok := false
	switch p {
	case RunRunning:
		ok = to == RunAborted || to == RunCompleted
	case RunAborted, RunCompleted:
		ok = false
	}
	check.Assertf(ok, "run phase transition: %s -> %s", p, to)
	if !ok {
		return p
	}
	return to
}

func (p RunPhase) MarshalJSON() ([]byte, error) {
	if !p.IsValid() {
		return nil, fmt.Errorf("invalid run phase: %d", p)
	}
	return json.Marshal(p.String())
}

func (p *RunPhase) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	next, ok := ParseRunPhase(raw)
	if !ok {
		return fmt.Errorf("invalid run phase: %q", raw)
	}
	*p = next
	return nil
}

func ParseRunPhase(raw string) (RunPhase, bool) {
	switch strings.TrimSpace(raw) {
	case "running":
		return RunRunning, true
	case "aborted":
		return RunAborted, true
	case "completed":
		return RunCompleted, true
	default:
		return 0, false
	}
}
