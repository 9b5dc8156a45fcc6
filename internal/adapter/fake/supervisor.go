package fake

import (
	"context"
	"sync"

	"vigil/internal/adapter/fake/fault"
	"vigil/internal/supervisor"
)

var _ supervisor.Supervisor = (*Supervisor)(nil)

const (
	FaultSupervisorStart = "supervisor.start"
	FaultSupervisorStop  = "supervisor.stop"
)

// Supervisor is an in-memory service supervisor. Started services receive
// monotonically increasing pids; a scripted leak keeps a pid alive after
// Stop so zombie detection can be exercised.
type Supervisor struct {
	CallRecorder
	mu      sync.Mutex
	nextPID int
	running map[string]int
	alive   map[int]bool
	leaks   map[string]int // service -> remaining stops that leak the pid
	faults  *fault.Injector
}

func NewSupervisor() *Supervisor {
	return &Supervisor{
		nextPID: 1000,
		running: make(map[string]int),
		alive:   make(map[int]bool),
		leaks:   make(map[string]int),
		faults:  fault.NewInjector(),
	}
}

func (s *Supervisor) FailOnce(point string, err error) { s.faults.FailOnce(point, err) }
func (s *Supervisor) FailAlways(point string, err error) { s.faults.FailAlways(point, err) }

// LeakOnStop makes the next n stops of service leave its process alive.
func (s *Supervisor) LeakOnStop(service string, n int) {
	s.mu.Lock()
	s.leaks[service] = n
	s.mu.Unlock()
}

// PIDAlive reports whether a pid handed out by this fake is still alive.
func (s *Supervisor) PIDAlive(pid int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.alive[pid]
}

// PID returns the current pid of a running service, 0 when stopped.
func (s *Supervisor) PID(service string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running[service]
}

func (s *Supervisor) Start(_ context.Context, serviceName string) (int, error) {
	s.record("Start", serviceName)
	if err := s.faults.Eval(FaultSupervisorStart, serviceName); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if pid, ok := s.running[serviceName]; ok {
		return pid, nil // idempotent
	}
	s.nextPID++
	pid := s.nextPID
	s.running[serviceName] = pid
	s.alive[pid] = true
	return pid, nil
}

func (s *Supervisor) Stop(_ context.Context, serviceName string) error {
	s.record("Stop", serviceName)
	if err := s.faults.Eval(FaultSupervisorStop, serviceName); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	pid, ok := s.running[serviceName]
	if !ok {
		return nil // idempotent
	}
	delete(s.running, serviceName)
	if s.leaks[serviceName] > 0 {
		s.leaks[serviceName]--
		return nil // pid stays alive: a zombie
	}
	delete(s.alive, pid)
	return nil
}
