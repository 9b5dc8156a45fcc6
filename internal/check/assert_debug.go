//go:build debug

// Package check provides build-tagged assertions. The engine's state
// machines assert their transition tables with these; release builds
// compile them away.
package check

import "fmt"

// Assert panics when cond is false. Active only under -tags debug.
func Assert(cond bool, msg string) {
	if !cond {
		panic("invariant violated: " + msg)
	}
}

// Assertf is Assert with a formatted message.
func Assertf(cond bool, format string, args ...any) {
	if !cond {
		panic("invariant violated: " + fmt.Sprintf(format, args...))
	}
}
