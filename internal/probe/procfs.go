package probe

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ProcessMetrics are the resource signals compared against the baseline.
type ProcessMetrics struct {
	RSSKB   int64 `json:"rss_kb"`
	Handles int64 `json:"handles"`
	Threads int64 `json:"threads"`
}

// procRoot is swapped out by tests.
var procRoot = "/proc"

// ReadProcessMetrics reads VmRSS and thread count from /proc/<pid>/status
// and the open descriptor count from /proc/<pid>/fd.
func ReadProcessMetrics(pid int) (ProcessMetrics, error) {
	var m ProcessMetrics
	pidDir := filepath.Join(procRoot, strconv.Itoa(pid))

	data, err := os.ReadFile(filepath.Join(pidDir, "status"))
	if err != nil {
		return m, fmt.Errorf("read status: %w", err)
	}
	for _, line := range strings.Split(string(data), "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		switch key {
		case "VmRSS":
			m.RSSKB = parseStatusKB(value)
		case "Threads":
			m.Threads, _ = strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		}
	}

	// fd entries may be unreadable for foreign processes; treat that as an
	// absent signal rather than a failed read.
	if entries, err := os.ReadDir(filepath.Join(pidDir, "fd")); err == nil {
		m.Handles = int64(len(entries))
	}

	return m, nil
}

// parseStatusKB parses a /proc status value like "1234 kB".
// Returns 0 when the field is empty (kernel threads have no VmRSS).
func parseStatusKB(s string) int64 {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return 0
	}
	n, _ := strconv.ParseInt(fields[0], 10, 64)
	return n
}
