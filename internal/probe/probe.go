// Package probe answers three independent questions about a monitored
// service: is its recorded process alive, is its port accepting connections,
// and does its health endpoint respond. Probes are pure reads; a missing
// signal is an unhealthy observation, never an error.
package probe

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"vigil/internal/stack"
)

const defaultTimeout = 3 * time.Second

// Result is one probe of one service. Shape is stable: fields a sub-probe
// could not populate are left at their zero value with the matching
// Known/Alive flag false.
type Result struct {
	PID           int             `json:"pid,omitempty"`
	PIDKnown      bool            `json:"pid_known"`
	PIDAlive      bool            `json:"pid_alive"`
	PortListening bool            `json:"port_listening"`
	HealthOK      bool            `json:"health_ok"`
	Metrics       *ProcessMetrics `json:"metrics,omitempty"` // nil when unreadable
}

// Healthy reports whether every sub-check passed.
func (r Result) Healthy() bool {
	return r.PIDKnown && r.PIDAlive && r.PortListening && r.HealthOK
}

// Prober probes services over loopback. Safe for concurrent use.
type Prober struct {
	Timeout    time.Duration // per sub-check; defaults to 3s
	HealthPath string        // defaults to /healthz

	httpOnce sync.Once
	httpCli  *http.Client
}

func (p *Prober) timeout() time.Duration {
	if p.Timeout > 0 {
		return p.Timeout
	}
	return defaultTimeout
}

func (p *Prober) healthPath() string {
	if p.HealthPath != "" {
		return p.HealthPath
	}
	return "/healthz"
}

func (p *Prober) client() *http.Client {
	p.httpOnce.Do(func() {
		p.httpCli = &http.Client{
			Timeout: p.timeout(),
			Transport: &http.Transport{
				MaxIdleConns:    20,
				IdleConnTimeout: 30 * time.Second,
			},
		}
	})
	return p.httpCli
}

// Probe runs all sub-checks for one service. Sub-check failures are folded
// into the result; Probe itself never returns an error.
func (p *Prober) Probe(ctx context.Context, svc stack.ServiceSpec) Result {
	var res Result

	if pid, ok := svc.ReadPID(); ok {
		res.PID = pid
		res.PIDKnown = true
		res.PIDAlive = PIDAlive(pid)
		if m, err := ReadProcessMetrics(pid); err == nil {
			res.Metrics = &m
		}
	}

	res.PortListening = portListening(svc.Port, p.timeout())
	res.HealthOK = p.healthOK(ctx, svc.Port)

	return res
}

// ProbeAll probes the whole roster concurrently, one goroutine per service.
// The returned map always has one entry per roster service.
func (p *Prober) ProbeAll(ctx context.Context, roster stack.Roster) map[string]Result {
	results := make(map[string]Result, len(roster.Services))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, svc := range roster.Services {
		wg.Add(1)
		go func(svc stack.ServiceSpec) {
			defer wg.Done()
			r := p.Probe(ctx, svc)
			mu.Lock()
			results[svc.Name] = r
			mu.Unlock()
		}(svc)
	}
	wg.Wait()

	return results
}

// PIDAlive sends signal 0. EPERM still means the process exists.
func PIDAlive(pid int) bool {
	err := unix.Kill(pid, 0)
	return err == nil || err == unix.EPERM
}

func portListening(port int, timeout time.Duration) bool {
	conn, err := net.DialTimeout("tcp", fmt.Sprintf("127.0.0.1:%d", port), timeout)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

func (p *Prober) healthOK(ctx context.Context, port int) bool {
	reqCtx, cancel := context.WithTimeout(ctx, p.timeout())
	defer cancel()

	url := fmt.Sprintf("http://127.0.0.1:%d%s", port, p.healthPath())
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	resp, err := p.client().Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}
