package gate

import (
	"encoding/json"
	"testing"
)

func TestCyclePhaseHappyPath(t *testing.T) {
	t.Parallel()

	p := CycleStopping
	for _, next := range []CyclePhase{
		CycleStarting,
		CycleAwaitingHealthy,
		CycleStoppingAgain,
		CycleVerifyingCleanup,
		CyclePassed,
	} {
		p = p.Transition(next)
		if p != next {
			t.Fatalf("transition to %s landed on %s", next, p)
		}
	}
	if !p.Terminal() {
		t.Error("passed phase not terminal")
	}
}

func TestCyclePhaseFailsFromAnyNonTerminal(t *testing.T) {
	t.Parallel()

	for _, from := range []CyclePhase{
		CycleStopping,
		CycleStarting,
		CycleAwaitingHealthy,
		CycleStoppingAgain,
		CycleVerifyingCleanup,
	} {
		if got := from.Transition(CycleFailed); got != CycleFailed {
			t.Errorf("%s -> failed landed on %s", from, got)
		}
	}
}

func TestCyclePhaseJSONRoundTrip(t *testing.T) {
	t.Parallel()

	for p := CycleStopping; p <= CycleFailed; p++ {
		data, err := json.Marshal(p)
		if err != nil {
			t.Fatalf("Marshal(%s) error = %v", p, err)
		}
		var back CyclePhase
		if err := json.Unmarshal(data, &back); err != nil {
			t.Fatalf("Unmarshal(%s) error = %v", data, err)
		}
		if back != p {
			t.Errorf("round trip %s -> %s", p, back)
		}
	}

	if _, err := json.Marshal(CyclePhase(42)); err == nil {
		t.Error("Marshal accepted invalid phase")
	}
	var p CyclePhase
	if err := json.Unmarshal([]byte(`"exploded"`), &p); err == nil {
		t.Error("Unmarshal accepted unknown phase")
	}
}
