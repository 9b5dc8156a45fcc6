package soak

import (
	"os"
	"strings"
)

// maxTailBytes bounds how much of a log file is read per scan. 256 KiB
// comfortably covers a couple hundred lines of service output.
const maxTailBytes = 256 * 1024

// tailLines returns up to n trailing lines of the file at path. An unreadable
// log is an absent signal: nil is returned, never an error.
func tailLines(path string, n int) []string {
	if n <= 0 {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil
	}
	offset := info.Size() - maxTailBytes
	if offset < 0 {
		offset = 0
	}
	buf := make([]byte, info.Size()-offset)
	if _, err := f.ReadAt(buf, offset); err != nil {
		return nil
	}

	lines := strings.Split(strings.TrimRight(string(buf), "\n"), "\n")
	if offset > 0 && len(lines) > 0 {
		lines = lines[1:] // first line may be cut mid-way
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines
}

// countFatalLines counts lines containing any of the fatal-pattern
// substrings. The pattern list is data-driven configuration.
func countFatalLines(lines, patterns []string) int {
	count := 0
	for _, line := range lines {
		for _, p := range patterns {
			if p != "" && strings.Contains(line, p) {
				count++
				break
			}
		}
	}
	return count
}
