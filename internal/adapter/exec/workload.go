// Package exec adapts an external test-suite command to the workload runner
// contract. The command receives the workload id as its final argument and
// must print a JSON object {"passed": N, "failed": M} as its last stdout
// line.
package exec

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"vigil/internal/supervisor"
)

var _ supervisor.WorkloadRunner = (*WorkloadRunner)(nil)

// WorkloadRunner shells out to the configured command.
type WorkloadRunner struct {
	Command string
	Args    []string
	Dir     string
}

type outcome struct {
	Passed int `json:"passed"`
	Failed int `json:"failed"`
}

// Run executes the workload. A non-zero exit is tolerated when the outcome
// line is present; failing tests are an outcome, not an infrastructure
// fault.
func (r *WorkloadRunner) Run(ctx context.Context, workloadID string) (int, int, error) {
	args := append(append([]string{}, r.Args...), workloadID)
	cmd := exec.CommandContext(ctx, r.Command, args...)
	cmd.Dir = r.Dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	out, parseErr := parseOutcome(stdout.String())
	if parseErr != nil {
		if runErr != nil {
			return 0, 0, fmt.Errorf("workload %q: %w (stderr: %s)", workloadID, runErr, strings.TrimSpace(stderr.String()))
		}
		return 0, 0, fmt.Errorf("workload %q: %w", workloadID, parseErr)
	}
	return out.Passed, out.Failed, nil
}

func parseOutcome(stdout string) (outcome, error) {
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	last := strings.TrimSpace(lines[len(lines)-1])
	var out outcome
	if err := json.Unmarshal([]byte(last), &out); err != nil {
		return outcome{}, fmt.Errorf("parse outcome line %q: %w", last, err)
	}
	if out.Passed < 0 || out.Failed < 0 {
		return outcome{}, fmt.Errorf("negative counts in outcome %q", last)
	}
	return out, nil
}
