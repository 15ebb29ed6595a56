package agent

import (
	"context"
	"errors"
)

// seqLLM returns queued responses in order, one per Generate call.
type seqLLM struct {
	responses []string
	errs      []error
	calls     int
}

func (s *seqLLM) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	i := s.calls
	s.calls++
	var resp string
	var err error
	if i < len(s.responses) {
		resp = s.responses[i]
	}
	if i < len(s.errs) {
		err = s.errs[i]
	}
	return resp, err
}

var errBoom = errors.New("boom")
