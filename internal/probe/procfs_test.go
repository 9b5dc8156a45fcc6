package probe

import (
	"os"
	"path/filepath"
	"testing"
)

func fakeProc(t *testing.T, pid string, status string, fds int) string {
	t.Helper()
	root := t.TempDir()
	pidDir := filepath.Join(root, pid)
	if err := os.MkdirAll(filepath.Join(pidDir, "fd"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(pidDir, "status"), []byte(status), 0o644); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < fds; i++ {
		if err := os.WriteFile(filepath.Join(pidDir, "fd", string(rune('0'+i))), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func TestReadProcessMetrics(t *testing.T) {
	status := "Name:\tapi\nVmRSS:\t  51234 kB\nThreads:\t12\n"
	oldRoot := procRoot
	procRoot = fakeProc(t, "4242", status, 3)
	defer func() { procRoot = oldRoot }()

	m, err := ReadProcessMetrics(4242)
	if err != nil {
		t.Fatalf("ReadProcessMetrics() error = %v", err)
	}
	if m.RSSKB != 51234 {
		t.Errorf("RSSKB = %d, want 51234", m.RSSKB)
	}
	if m.Threads != 12 {
		t.Errorf("Threads = %d, want 12", m.Threads)
	}
	if m.Handles != 3 {
		t.Errorf("Handles = %d, want 3", m.Handles)
	}
}

func TestReadProcessMetricsMissingProcess(t *testing.T) {
	oldRoot := procRoot
	procRoot = t.TempDir()
	defer func() { procRoot = oldRoot }()

	if _, err := ReadProcessMetrics(1); err == nil {
		t.Fatal("ReadProcessMetrics() error = nil for missing process")
	}
}

func TestReadProcessMetricsKernelThreadHasNoRSS(t *testing.T) {
	status := "Name:\tkworker\nThreads:\t1\n"
	oldRoot := procRoot
	procRoot = fakeProc(t, "77", status, 0)
	defer func() { procRoot = oldRoot }()

	m, err := ReadProcessMetrics(77)
	if err != nil {
		t.Fatalf("ReadProcessMetrics() error = %v", err)
	}
	if m.RSSKB != 0 {
		t.Errorf("RSSKB = %d, want 0", m.RSSKB)
	}
}

func TestParseStatusKB(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want int64
	}{
		{"  51234 kB", 51234},
		{"0 kB", 0},
		{"", 0},
		{"garbage", 0},
	}
	for _, tc := range cases {
		if got := parseStatusKB(tc.in); got != tc.want {
			t.Errorf("parseStatusKB(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
