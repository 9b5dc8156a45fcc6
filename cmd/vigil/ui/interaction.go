package ui

import (
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

const (
	envNoColor = "NO_COLOR"
	envCI      = "CI"
	envTerm    = "TERM"
)

var colorState struct {
	mu          sync.RWMutex
	initialized bool
	enabled     bool
}

// ConfigureColor decides whether styled output is emitted. Certification
// runs mostly execute in CI, where plain output is preferred.
func ConfigureColor(noColor bool) {
	enabled := detectColor(noColor)

	colorState.mu.Lock()
	colorState.initialized = true
	colorState.enabled = enabled
	colorState.mu.Unlock()

	if enabled {
		lipgloss.SetColorProfile(termenv.ColorProfile())
		return
	}
	lipgloss.SetColorProfile(termenv.Ascii)
}

// ColorEnabled reports whether styled output is active, configuring
// defaults on first use.
func ColorEnabled() bool {
	colorState.mu.RLock()
	if colorState.initialized {
		enabled := colorState.enabled
		colorState.mu.RUnlock()
		return enabled
	}
	colorState.mu.RUnlock()

	ConfigureColor(false)

	colorState.mu.RLock()
	enabled := colorState.enabled
	colorState.mu.RUnlock()
	return enabled
}

func detectColor(noColor bool) bool {
	if noColor {
		return false
	}
	if os.Getenv(envNoColor) != "" {
		return false
	}
	if strings.EqualFold(os.Getenv(envCI), "true") {
		return false
	}
	term := strings.ToLower(strings.TrimSpace(os.Getenv(envTerm)))
	if term == "" || term == "dumb" {
		return false
	}
	fi, err := os.Stderr.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
