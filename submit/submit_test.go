package submit

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestIsTransient(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{ErrRateLimited, true},
		{ErrServer, true},
		{ErrNetwork, true},
		{fmt.Errorf("submit: post form: %w", ErrNetwork), true},
		{errors.New("connection reset by peer"), true},
		{errors.New("request timeout"), true},
		{ErrEmailTaken, false},
		{errors.New("invalid password"), false},
		{nil, false},
	}
	for _, tc := range cases {
		if got := IsTransient(tc.err); got != tc.want {
			t.Errorf("IsTransient(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}

func TestScript_PlaysOutcomesInOrder(t *testing.T) {
	s := NewScript(ErrRateLimited, nil)
	ctx := context.Background()
	p := Payload{Email: "alexsmith01@outlook.com"}

	if _, err := s.Submit(ctx, p); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("first call: got %v, want rate limited", err)
	}

	rec, err := s.Submit(ctx, p)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if rec.Email != p.Email {
		t.Errorf("receipt email: got %q, want %q", rec.Email, p.Email)
	}
	if rec.AccountID != "acc_0" {
		t.Errorf("account id: got %q, want acc_0", rec.AccountID)
	}

	// Exhausted scripts repeat the last outcome.
	if _, err := s.Submit(ctx, p); err != nil {
		t.Errorf("third call: got %v, want success", err)
	}
	if s.CallCount() != 3 {
		t.Errorf("call count: got %d, want 3", s.CallCount())
	}
}

type seqRand struct {
	vals []int
	i    int
}

func (r *seqRand) IntN(n int) int {
	v := r.vals[r.i%len(r.vals)]
	r.i++
	return v % n
}

func TestMock_OutcomeDistribution(t *testing.T) {
	// Weights 1/1/1/1/1 with a scripted RNG: each draw index maps to one
	// outcome bucket. Latency zeroed so no RNG draw is spent on sleep.
	outcomes := Outcomes{Success: 1, EmailTaken: 1, RateLimit: 1, Server: 1, Network: 1}
	want := []error{nil, ErrEmailTaken, ErrRateLimited, ErrServer, ErrNetwork}

	for n, wantErr := range want {
		m := NewMock(&seqRand{vals: []int{n}},
			WithOutcomes(outcomes), WithLatency(0, 0))
		_, err := m.Submit(context.Background(), Payload{Email: "x@outlook.com"})
		if !errors.Is(err, wantErr) && !(err == nil && wantErr == nil) {
			t.Errorf("draw %d: got %v, want %v", n, err, wantErr)
		}
	}
}
