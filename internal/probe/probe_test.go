package probe

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"vigil/internal/stack"
)

func writePID(t *testing.T, dir, name string, pid int) string {
	t.Helper()
	path := filepath.Join(dir, name+".pid")
	if err := os.WriteFile(path, []byte(strconv.Itoa(pid)+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// healthServer runs a loopback /healthz endpoint and returns its port.
func healthServer(t *testing.T, status int) int {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/healthz" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)

	_, portStr, err := net.SplitHostPort(srv.Listener.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	port, _ := strconv.Atoi(portStr)
	return port
}

func TestProbeHealthyService(t *testing.T) {
	t.Parallel()

	port := healthServer(t, http.StatusOK)
	dir := t.TempDir()
	svc := stack.ServiceSpec{
		Name:    "api",
		Port:    port,
		PIDFile: writePID(t, dir, "api", os.Getpid()),
	}

	p := &Prober{Timeout: 2 * time.Second}
	res := p.Probe(context.Background(), svc)

	if !res.PIDKnown || res.PID != os.Getpid() || !res.PIDAlive {
		t.Errorf("pid checks = %+v", res)
	}
	if !res.PortListening || !res.HealthOK {
		t.Errorf("port/health checks = %+v", res)
	}
	if !res.Healthy() {
		t.Fatalf("Healthy() = false: %+v", res)
	}
	if res.Metrics == nil || res.Metrics.RSSKB == 0 {
		t.Errorf("metrics not read for own process: %+v", res.Metrics)
	}
}

func TestProbeMissingPIDFileIsObservation(t *testing.T) {
	t.Parallel()

	port := healthServer(t, http.StatusOK)
	svc := stack.ServiceSpec{
		Name:    "api",
		Port:    port,
		PIDFile: filepath.Join(t.TempDir(), "api.pid"),
	}

	p := &Prober{Timeout: 2 * time.Second}
	res := p.Probe(context.Background(), svc)

	if res.PIDKnown {
		t.Error("PIDKnown = true without pid file")
	}
	if res.Healthy() {
		t.Error("Healthy() = true without a recorded pid")
	}
	// The remaining sub-checks still ran.
	if !res.PortListening || !res.HealthOK {
		t.Errorf("independent sub-checks skipped: %+v", res)
	}
}

func TestProbeFailingHealthEndpoint(t *testing.T) {
	t.Parallel()

	port := healthServer(t, http.StatusServiceUnavailable)
	dir := t.TempDir()
	svc := stack.ServiceSpec{
		Name:    "api",
		Port:    port,
		PIDFile: writePID(t, dir, "api", os.Getpid()),
	}

	p := &Prober{Timeout: 2 * time.Second}
	res := p.Probe(context.Background(), svc)

	if res.HealthOK {
		t.Error("HealthOK = true for 503")
	}
	if !res.PortListening {
		t.Error("PortListening = false while server is up")
	}
	if res.Healthy() {
		t.Error("Healthy() = true for 503")
	}
}

func TestProbeDownService(t *testing.T) {
	t.Parallel()

	// Reserve a port and close it so nothing listens there.
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	_, portStr, _ := net.SplitHostPort(l.Addr().String())
	port, _ := strconv.Atoi(portStr)
	_ = l.Close()

	svc := stack.ServiceSpec{
		Name:    "api",
		Port:    port,
		PIDFile: filepath.Join(t.TempDir(), "api.pid"),
	}

	p := &Prober{Timeout: 500 * time.Millisecond}
	res := p.Probe(context.Background(), svc)

	if res.PortListening || res.HealthOK || res.Healthy() {
		t.Errorf("down service reported up: %+v", res)
	}
}

func TestProbeAllCoversRoster(t *testing.T) {
	t.Parallel()

	port := healthServer(t, http.StatusOK)
	dir := t.TempDir()
	roster := stack.Roster{Services: []stack.ServiceSpec{
		{Name: "api", Port: port, PIDFile: writePID(t, dir, "api", os.Getpid())},
		{Name: "ghost", Port: 1, PIDFile: filepath.Join(dir, "ghost.pid")},
	}}

	p := &Prober{Timeout: 500 * time.Millisecond}
	results := p.ProbeAll(context.Background(), roster)

	if len(results) != 2 {
		t.Fatalf("result count = %d, want one entry per service", len(results))
	}
	if !results["api"].Healthy() {
		t.Errorf("api = %+v", results["api"])
	}
	if results["ghost"].Healthy() {
		t.Errorf("ghost = %+v", results["ghost"])
	}
}

func TestPIDAlive(t *testing.T) {
	t.Parallel()

	if !PIDAlive(os.Getpid()) {
		t.Error("own process reported dead")
	}
}

func TestProbeIsIdempotent(t *testing.T) {
	t.Parallel()

	port := healthServer(t, http.StatusOK)
	dir := t.TempDir()
	svc := stack.ServiceSpec{
		Name:    "api",
		Port:    port,
		PIDFile: writePID(t, dir, "api", os.Getpid()),
	}

	p := &Prober{Timeout: 2 * time.Second}
	first := p.Probe(context.Background(), svc)
	second := p.Probe(context.Background(), svc)

	if first.Healthy() != second.Healthy() ||
		first.PID != second.PID ||
		fmt.Sprintf("%t%t%t", first.PIDAlive, first.PortListening, first.HealthOK) !=
			fmt.Sprintf("%t%t%t", second.PIDAlive, second.PortListening, second.HealthOK) {
		t.Errorf("repeated probe diverged: %+v vs %+v", first, second)
	}
}
