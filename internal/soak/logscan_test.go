package soak

import (
	"os"
	"path/filepath"
	"testing"
)

func writeLog(t *testing.T, lines string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "svc.log")
	if err := os.WriteFile(path, []byte(lines), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestTailLines(t *testing.T) {
	t.Parallel()

	path := writeLog(t, "one\ntwo\nthree\nfour\n")

	got := tailLines(path, 2)
	if len(got) != 2 || got[0] != "three" || got[1] != "four" {
		t.Fatalf("tailLines(2) = %v", got)
	}

	got = tailLines(path, 10)
	if len(got) != 4 {
		t.Fatalf("tailLines(10) = %v", got)
	}

	if got := tailLines(path, 0); got != nil {
		t.Fatalf("tailLines(0) = %v, want nil", got)
	}
	if got := tailLines(filepath.Join(t.TempDir(), "missing.log"), 5); got != nil {
		t.Fatalf("tailLines(missing) = %v, want nil", got)
	}
}

func TestCountFatalLines(t *testing.T) {
	t.Parallel()

	patterns := []string{"panic:", "fatal error", "SIGSEGV"}
	lines := []string{
		"2026-03-01 request served in 4ms",
		"panic: runtime error: index out of range",
		"fatal error: concurrent map writes",
		"panic: fatal error combined still counts once",
		"all quiet",
	}
	if got := countFatalLines(lines, patterns); got != 3 {
		t.Fatalf("countFatalLines() = %d, want 3", got)
	}
	if got := countFatalLines(lines, nil); got != 0 {
		t.Fatalf("countFatalLines(no patterns) = %d, want 0", got)
	}
	if got := countFatalLines(lines, []string{""}); got != 0 {
		t.Fatalf("countFatalLines(empty pattern) = %d, want 0", got)
	}
}

func TestConfigHash(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "stack.yaml")
	if err := os.WriteFile(path, []byte("replicas: 3\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	first := HashConfig(path)
	if first == ConfigAbsent || len(first) != 64 {
		t.Fatalf("HashConfig() = %q", first)
	}
	if again := HashConfig(path); again != first {
		t.Fatal("hash not stable for unchanged content")
	}

	if err := os.WriteFile(path, []byte("replicas: 4\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if changed := HashConfig(path); changed == first {
		t.Fatal("hash unchanged after content edit")
	}

	if got := HashConfig(filepath.Join(t.TempDir(), "missing.yaml")); got != ConfigAbsent {
		t.Fatalf("HashConfig(missing) = %q, want %q", got, ConfigAbsent)
	}
}
