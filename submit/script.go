package submit

import (
	"context"
	"sync"

	"github.com/voralis/formpilot/idgen"
)

// Script is a deterministic Submitter: it plays back a fixed sequence of
// outcomes (nil = success) and repeats the last one once exhausted. Intended
// for tests and dry runs where randomness is unwanted.
type Script struct {
	mu       sync.Mutex
	outcomes []error
	i        int
	newID    idgen.Generator

	// Calls records every payload submitted, in call order.
	Calls []Payload
}

// NewScript creates a Script submitter. With no outcomes every call succeeds.
func NewScript(outcomes ...error) *Script {
	return &Script{
		outcomes: outcomes,
		newID:    idgen.Sequential("acc_"),
	}
}

func (s *Script) Submit(ctx context.Context, p Payload) (*Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Calls = append(s.Calls, p)

	var out error
	if len(s.outcomes) > 0 {
		idx := s.i
		if idx >= len(s.outcomes) {
			idx = len(s.outcomes) - 1
		}
		out = s.outcomes[idx]
		s.i++
	}
	if out != nil {
		return nil, out
	}
	return &Receipt{
		Email:             p.Email,
		AccountID:         s.newID(),
		Message:           "registration accepted",
		NeedsVerification: false,
	}, nil
}

// CallCount returns how many submissions the script has seen.
func (s *Script) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Calls)
}
