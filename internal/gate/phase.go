package gate

import (
	"encoding/json"
	"fmt"
	"strings"

	"vigil/internal/check"
)

// CyclePhase tracks one gate cycle through its stop/start/verify sequence.
type CyclePhase uint8

const (
	CycleStopping CyclePhase = iota + 1
	CycleStarting
	CycleAwaitingHealthy
	CycleStoppingAgain
	CycleVerifyingCleanup
	CyclePassed
	CycleFailed
)

func (p CyclePhase) String() string {
	switch p {
	case CycleStopping:
		return "stopping"
	case CycleStarting:
		return "starting"
	case CycleAwaitingHealthy:
		return "awaiting_healthy"
	case CycleStoppingAgain:
		return "stopping_again"
	case CycleVerifyingCleanup:
		return "verifying_cleanup"
	case CyclePassed:
		return "passed"
	case CycleFailed:
		return "failed"
	default:
		return "unknown"
	}
}

func (p CyclePhase) IsValid() bool {
	return p >= CycleStopping && p <= CycleFailed
}

// Terminal reports whether the cycle reached a verdict.
func (p CyclePhase) Terminal() bool {
	return p == CyclePassed || p == CycleFailed
}

// Transition enforces the cycle's legal edges. A cycle can fail from any
// non-terminal state; it can only pass from cleanup verification.
func (p CyclePhase) Transition(to CyclePhase) CyclePhase {
	ok := false
	switch p {
	case CycleStopping:
		ok = to == CycleStarting || to == CycleFailed
	case CycleStarting:
		ok = to == CycleAwaitingHealthy || to == CycleFailed
	case CycleAwaitingHealthy:
		ok = to == CycleStoppingAgain || to == CycleFailed
	case CycleStoppingAgain:
		ok = to == CycleVerifyingCleanup || to == CycleFailed
	case CycleVerifyingCleanup:
		ok = to == CyclePassed || to == CycleFailed
	case CyclePassed, CycleFailed:
		ok = false
	}
	check.Assertf(ok, "gate cycle transition: %s -> %s", p, to)
	if !ok {
		return p
	}
	return to
}

func (p CyclePhase) MarshalJSON() ([]byte, error) {
	if !p.IsValid() {
		return nil, fmt.Errorf("invalid cycle phase: %d", p)
	}
	return json.Marshal(p.String())
}

func (p *CyclePhase) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	next, ok := ParseCyclePhase(raw)
	if !ok {
		return fmt.Errorf("invalid cycle phase: %q", raw)
	}
	*p = next
	return nil
}

func ParseCyclePhase(raw string) (CyclePhase, bool) {
	switch strings.TrimSpace(raw) {
	case "stopping":
		return CycleStopping, true
	case "starting":
		return CycleStarting, true
	case "awaiting_healthy":
		return CycleAwaitingHealthy, true
	case "stopping_again":
		return CycleStoppingAgain, true
	case "verifying_cleanup":
		return CycleVerifyingCleanup, true
	case "passed":
		return CyclePassed, true
	case "failed":
		return CycleFailed, true
	default:
		return 0, false
	}
}
