package soak

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
)

// ConfigAbsent is the content-hash sentinel for a missing config file.
// Absence is a monitorable fact: a baseline of "absent" followed by "absent"
// is stable, while any transition to or from a real hash is drift.
const ConfigAbsent = "absent"

// HashConfig returns the SHA-256 hex digest of the file at path, or
// ConfigAbsent when the file cannot be read.
func HashConfig(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ConfigAbsent
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
