package exec

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRunParsesOutcomeLine(t *testing.T) {
	t.Parallel()

	r := &WorkloadRunner{
		Command: "/bin/sh",
		Args:    []string{"-c", `echo "running suite..."; echo '{"passed": 18, "failed": 2}'`},
	}

	passed, failed, err := r.Run(context.Background(), "full")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if passed != 18 || failed != 2 {
		t.Errorf("outcome = %d/%d, want 18/2", passed, failed)
	}
}

func TestRunToleratesNonZeroExitWithOutcome(t *testing.T) {
	t.Parallel()

	// Failing tests exit non-zero but still report; that is an outcome,
	// not an infrastructure fault.
	r := &WorkloadRunner{
		Command: "/bin/sh",
		Args:    []string{"-c", `echo '{"passed": 17, "failed": 3}'; exit 1`},
	}

	passed, failed, err := r.Run(context.Background(), "full")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if passed != 17 || failed != 3 {
		t.Errorf("outcome = %d/%d, want 17/3", passed, failed)
	}
}

func TestRunAppendsWorkloadID(t *testing.T) {
	t.Parallel()

	// With sh -c the appended workload id arrives as $0.
	idFile := filepath.Join(t.TempDir(), "workload-id")
	r := &WorkloadRunner{
		Command: "/bin/sh",
		Args:    []string{"-c", `printf %s "$0" > ` + idFile + `; echo '{"passed": 1, "failed": 0}'`},
	}

	if _, _, err := r.Run(context.Background(), "smoke"); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	got, err := os.ReadFile(idFile)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "smoke" {
		t.Errorf("workload id = %q, want smoke", got)
	}
}

func TestRunRejectsMissingOutcome(t *testing.T) {
	t.Parallel()

	r := &WorkloadRunner{
		Command: "/bin/sh",
		Args:    []string{"-c", `echo "no json here"`},
	}
	_, _, err := r.Run(context.Background(), "full")
	if err == nil || !strings.Contains(err.Error(), "parse outcome") {
		t.Fatalf("Run() error = %v, want parse failure", err)
	}
}

func TestRunSurfacesCrashWithStderr(t *testing.T) {
	t.Parallel()

	r := &WorkloadRunner{
		Command: "/bin/sh",
		Args:    []string{"-c", `echo "suite exploded" >&2; exit 7`},
	}
	_, _, err := r.Run(context.Background(), "full")
	if err == nil || !strings.Contains(err.Error(), "suite exploded") {
		t.Fatalf("Run() error = %v, want crash with stderr", err)
	}
}

func TestRunRejectsNegativeCounts(t *testing.T) {
	t.Parallel()

	r := &WorkloadRunner{
		Command: "/bin/sh",
		Args:    []string{"-c", `echo '{"passed": -1, "failed": 0}'`},
	}
	if _, _, err := r.Run(context.Background(), "full"); err == nil {
		t.Fatal("Run() error = nil for negative counts")
	}
}
