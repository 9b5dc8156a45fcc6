// Package fault injects scripted failures into the fakes. Each fake
// exposes named points; a test arms a point and the fake's next matching
// call observes the scripted error.
package fault

import (
	"fmt"
	"strings"
	"sync"

	"vigil/internal/check"
)

// Hook decides per call whether a point fails, given the call arguments.
type Hook func(args ...any) error

type script struct {
	queued []error // one-shot errors, consumed front to back
	sticky error
	hook   Hook
}

// Injector holds the armed faults for one fake instance.
type Injector struct {
	mu      sync.Mutex
	scripts map[string]*script
}

func NewInjector() *Injector {
	return &Injector{scripts: make(map[string]*script)}
}

// FailOnce queues err for a single future evaluation of point.
func (in *Injector) FailOnce(point string, err error) {
	check.Assert(err != nil, "fault.FailOnce: err must not be nil")
	in.mu.Lock()
	defer in.mu.Unlock()
	sc := in.arm(point)
	sc.queued = append(sc.queued, err)
}

// FailAlways makes every future evaluation of point return err.
func (in *Injector) FailAlways(point string, err error) {
	check.Assert(err != nil, "fault.FailAlways: err must not be nil")
	in.mu.Lock()
	defer in.mu.Unlock()
	in.arm(point).sticky = err
}

// SetHook installs an argument-aware hook on point.
func (in *Injector) SetHook(point string, hook Hook) {
	check.Assert(hook != nil, "fault.SetHook: hook must not be nil")
	in.mu.Lock()
	defer in.mu.Unlock()
	in.arm(point).hook = hook
}

// Reset disarms every point.
func (in *Injector) Reset() {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.scripts = make(map[string]*script)
}

// Eval reports whether point fails for this call.
// Precedence: hook, then queued one-shots, then the sticky error.
func (in *Injector) Eval(point string, args ...any) error {
	in.mu.Lock()
	sc := in.scripts[point]
	if sc == nil {
		in.mu.Unlock()
		return nil
	}
	hook := sc.hook
	var once error
	if len(sc.queued) > 0 {
		once = sc.queued[0]
		sc.queued = sc.queued[1:]
	}
	sticky := sc.sticky
	in.mu.Unlock()

	if hook != nil {
		if err := hook(args...); err != nil {
			return fmt.Errorf("fault at %s: %w", point, err)
		}
	}
	if once != nil {
		return fmt.Errorf("fault at %s: %w", point, once)
	}
	if sticky != nil {
		return fmt.Errorf("fault at %s: %w", point, sticky)
	}
	return nil
}

// arm returns the script for point. Callers hold in.mu.
func (in *Injector) arm(point string) *script {
	check.Assert(strings.TrimSpace(point) != "", "fault: point must not be empty")
	sc := in.scripts[point]
	if sc == nil {
		sc = &script{}
		in.scripts[point] = sc
	}
	return sc
}
