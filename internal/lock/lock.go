// Package lock implements the determinism lock: a fixed workload must
// produce byte-identical pass/fail outcomes across two independent
// executions against a freshly-restarted stack.
package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"vigil/internal/check"
	"vigil/internal/soak"
	"vigil/internal/supervisor"
)

// ErrNonDeterministic means the two outcome tuples differed. Always a hard
// failure; there is no configurable tolerance.
var ErrNonDeterministic = errors.New("workload outcomes are non-deterministic")

// Result holds both outcome tuples and the equality verdict.
type Result struct {
	Run1Passed    int  `json:"run1_passed"`
	Run1Failed    int  `json:"run1_failed"`
	Run2Passed    int  `json:"run2_passed"`
	Run2Failed    int  `json:"run2_failed"`
	Deterministic bool `json:"deterministic"`
}

// Lock runs the two-execution protocol.
type Lock struct {
	Runner   supervisor.WorkloadRunner
	Restart  func(ctx context.Context) error // brings the stack to a clean healthy state
	Workload string
}

// Run restarts, executes, restarts, executes, and compares the tuples.
// Errors report infrastructure faults (restart or runner broken), never
// non-determinism itself; that lives in Result.Deterministic.
func (l *Lock) Run(ctx context.Context) (Result, error) {
	check.Assert(l.Runner != nil, "Lock.Run: Runner must not be nil")
	check.Assert(l.Restart != nil, "Lock.Run: Restart must not be nil")

	log := slog.With("component", "determinism-lock", "workload", l.Workload)

	var res Result
	for run := 1; run <= 2; run++ {
		if err := l.Restart(ctx); err != nil {
			return Result{}, fmt.Errorf("restart before run %d: %w", run, err)
		}
		passed, failed, err := l.Runner.Run(ctx, l.Workload)
		if err != nil {
			return Result{}, fmt.Errorf("workload run %d: %w", run, err)
		}
		log.Info("workload run finished", "run", run, "passed", passed, "failed", failed)
		if run == 1 {
			res.Run1Passed, res.Run1Failed = passed, failed
		} else {
			res.Run2Passed, res.Run2Failed = passed, failed
		}
	}

	res.Deterministic = res.Run1Passed == res.Run2Passed && res.Run1Failed == res.Run2Failed
	if !res.Deterministic {
		log.Error("non-deterministic outcome",
			"run1", fmt.Sprintf("%d/%d", res.Run1Passed, res.Run1Failed),
			"run2", fmt.Sprintf("%d/%d", res.Run2Passed, res.Run2Failed))
	}
	return res, nil
}

var _ soak.SpotChecker = (*SpotCheck)(nil)

// SpotCheck adapts a Lock into the finalizer's determinism spot-check.
type SpotCheck struct {
	Lock *Lock
}

func (s *SpotCheck) Check(ctx context.Context) (soak.SpotResult, error) {
	res, err := s.Lock.Run(ctx)
	if err != nil {
		return soak.SpotResult{}, err
	}
	return soak.SpotResult{
		Deterministic: res.Deterministic,
		Passed:        res.Run2Passed,
		Failed:        res.Run2Failed,
	}, nil
}
