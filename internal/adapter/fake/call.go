package fake

import "sync"

// Call is one recorded invocation on a fake.
type Call struct {
	Method string
	Args   []any
}

// CallRecorder is embedded by the fakes to capture invocations for test
// assertions. Safe for concurrent use.
type CallRecorder struct {
	mu    sync.Mutex
	calls []Call
}

func (r *CallRecorder) record(method string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, Call{Method: method, Args: args})
}

// Calls returns the recorded invocations of method in call order. An empty
// method selects every call.
func (r *CallRecorder) Calls(method string) []Call {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Call, 0, len(r.calls))
	for _, c := range r.calls {
		if method == "" || c.Method == method {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Reset discards everything recorded so far.
func (r *CallRecorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}
