//go:build !debug

package check

// Assert compiles to a no-op outside debug builds.
func Assert(_ bool, _ string) {}

// Assertf compiles to a no-op outside debug builds.
func Assertf(_ bool, _ string, _ ...any) {}
