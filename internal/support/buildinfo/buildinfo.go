// Package buildinfo carries version metadata injected at build time.
package buildinfo

// Version is overridden via -ldflags at release build time.
var Version = "dev"
