// Package supervisor defines the contracts vigil consumes to control the
// monitored stack. The engine never manages processes itself; it drives
// these ports.
package supervisor

import "context"

// Supervisor starts and stops monitored services. Both operations are
// idempotent and safe against an already-running or already-stopped service.
// Production: adapter/docker.Supervisor
// Testing: fake.Supervisor
type Supervisor interface {
	// Start launches the service and returns its process id.
	Start(ctx context.Context, serviceName string) (pid int, err error)
	// Stop terminates the service.
	Stop(ctx context.Context, serviceName string) error
}

// WorkloadRunner executes a fixed test workload against the running stack
// and reports its pass/fail outcome tuple.
// Production: adapter/exec.WorkloadRunner
// Testing: fake.WorkloadRunner
type WorkloadRunner interface {
	Run(ctx context.Context, workloadID string) (passed, failed int, err error)
}
