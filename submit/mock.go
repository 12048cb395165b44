package submit

import (
	"context"
	"sync"
	"time"

	"github.com/voralis/formpilot/idgen"
)

// Rand is the slice of randomness Mock needs. *math/rand/v2.Rand satisfies it.
type Rand interface {
	IntN(n int) int
}

// Outcomes weights the simulated results of a Mock submission. Weights are
// relative; they need not sum to 100.
type Outcomes struct {
	Success    int
	EmailTaken int
	RateLimit  int
	Server     int
	Network    int
}

// DefaultOutcomes leans heavily toward success, mirroring a cooperative
// target service.
var DefaultOutcomes = Outcomes{Success: 70, EmailTaken: 10, RateLimit: 8, Server: 6, Network: 6}

// Mock simulates the signup backend with weighted random outcomes and a
// small random latency. There is no real backend; this is the stand-in.
type Mock struct {
	mu       sync.Mutex
	rng      Rand
	outcomes Outcomes
	latency  [2]time.Duration
	newID    idgen.Generator
	verify   bool
}

// MockOption configures a Mock submitter.
type MockOption func(*Mock)

// WithOutcomes overrides the outcome weights.
func WithOutcomes(o Outcomes) MockOption {
	return func(m *Mock) { m.outcomes = o }
}

// WithLatency sets the simulated response latency range.
func WithLatency(min, max time.Duration) MockOption {
	return func(m *Mock) { m.latency = [2]time.Duration{min, max} }
}

// WithIDGenerator sets the account ID generator.
func WithIDGenerator(gen idgen.Generator) MockOption {
	return func(m *Mock) { m.newID = gen }
}

// WithVerification makes successful registrations require verification.
func WithVerification(v bool) MockOption {
	return func(m *Mock) { m.verify = v }
}

// NewMock creates a Mock submitter driven by the given RNG.
func NewMock(rng Rand, opts ...MockOption) *Mock {
	m := &Mock{
		rng:      rng,
		outcomes: DefaultOutcomes,
		latency:  [2]time.Duration{200 * time.Millisecond, 800 * time.Millisecond},
		newID:    idgen.Prefixed("acc_", idgen.Default),
		verify:   true,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Submit draws an outcome and either mints a Receipt or returns one of the
// fixed failure conditions.
func (m *Mock) Submit(ctx context.Context, p Payload) (*Receipt, error) {
	if err := m.sleep(ctx); err != nil {
		return nil, err
	}
	if err := m.draw(); err != nil {
		return nil, err
	}
	return &Receipt{
		Email:             p.Email,
		AccountID:         m.newID(),
		Message:           "registration accepted",
		NeedsVerification: m.verify,
	}, nil
}

// CheckAvailability simulates the pre-submission probe: the address is free
// unless the email-taken outcome is drawn.
func (m *Mock) CheckAvailability(ctx context.Context, email string) error {
	m.mu.Lock()
	taken := m.outcomes.EmailTaken > 0 && m.rng.IntN(m.total()) < m.outcomes.EmailTaken
	m.mu.Unlock()
	if taken {
		return ErrEmailTaken
	}
	return nil
}

func (m *Mock) total() int {
	o := m.outcomes
	return o.Success + o.EmailTaken + o.RateLimit + o.Server + o.Network
}

func (m *Mock) draw() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := m.rng.IntN(m.total())
	o := m.outcomes
	switch {
	case n < o.Success:
		return nil
	case n < o.Success+o.EmailTaken:
		return ErrEmailTaken
	case n < o.Success+o.EmailTaken+o.RateLimit:
		return ErrRateLimited
	case n < o.Success+o.EmailTaken+o.RateLimit+o.Server:
		return ErrServer
	default:
		return ErrNetwork
	}
}

func (m *Mock) sleep(ctx context.Context) error {
	m.mu.Lock()
	span := m.latency[1] - m.latency[0]
	d := m.latency[0]
	if span > 0 {
		d += time.Duration(m.rng.IntN(int(span)))
	}
	m.mu.Unlock()

	if d <= 0 {
		return nil
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
