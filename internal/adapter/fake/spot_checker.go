package fake

import (
	"context"

	"vigil/internal/soak"
)

var _ soak.SpotChecker = (*SpotChecker)(nil)

// SpotChecker returns a canned determinism spot-check result.
type SpotChecker struct {
	CallRecorder
	Result soak.SpotResult
	Err    error
}

func (s *SpotChecker) Check(_ context.Context) (soak.SpotResult, error) {
	s.record("Check")
	if s.Err != nil {
		return soak.SpotResult{}, s.Err
	}
	return s.Result, nil
}
