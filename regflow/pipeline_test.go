package regflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/voralis/formpilot/submit"
)

// seqRand plays back a fixed value sequence, wrapping around.
type seqRand struct {
	vals []int
	i    int
}

func (r *seqRand) IntN(n int) int {
	v := r.vals[r.i%len(r.vals)]
	r.i++
	return v % n
}

func noSleep(context.Context, time.Duration) error { return nil }

func TestExecuteSteps_AbortOnFailure(t *testing.T) {
	o := New(submit.NewScript(), WithSleepFunc(noSleep))

	boom := errors.New("step two exploded")
	var ran []string
	mk := func(name string, err error) Step {
		return Step{Name: name, Run: func(ctx context.Context, in any) (any, error) {
			ran = append(ran, name)
			return in, err
		}}
	}

	steps := []Step{
		mk("one", nil),
		mk("two", boom),
		mk("three", nil),
		mk("four", nil),
		mk("five", nil),
	}

	p := Profile{Name: "test"}
	_, err := o.executeSteps(context.Background(), p, 0, 0, steps)
	if !errors.Is(err, boom) {
		t.Fatalf("got %v, want exactly the step error", err)
	}
	if len(ran) != 2 {
		t.Errorf("steps run: got %v, want only one and two", ran)
	}
}

func TestExecuteSteps_ThreadsOutputs(t *testing.T) {
	o := New(submit.NewScript(), WithSleepFunc(noSleep))

	steps := []Step{
		{Name: "first", Run: func(ctx context.Context, in any) (any, error) {
			if in != nil {
				t.Errorf("first step input: got %v, want nil", in)
			}
			return 1, nil
		}},
		{Name: "second", Run: func(ctx context.Context, in any) (any, error) {
			return in.(int) + 1, nil
		}},
	}

	out, err := o.executeSteps(context.Background(), Profile{Name: "test"}, 0, 0, steps)
	if err != nil {
		t.Fatal(err)
	}
	if out != 2 {
		t.Errorf("output: got %v, want 2", out)
	}
}

func TestExecuteSteps_HumanDelayBetweenSteps(t *testing.T) {
	var delays []time.Duration
	record := func(_ context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}

	o := New(submit.NewScript(), WithSleepFunc(record))

	nop := func(ctx context.Context, in any) (any, error) { return in, nil }
	steps := []Step{{Name: "a", Run: nop}, {Name: "b", Run: nop}, {Name: "c", Run: nop}}

	p := Profile{Name: "test", HumanLikeDelay: true}
	min, max := 1000*time.Millisecond, 3000*time.Millisecond
	if _, err := o.executeSteps(context.Background(), p, min, max, steps); err != nil {
		t.Fatal(err)
	}

	// No delay before the first step; one before each subsequent step.
	if len(delays) != 2 {
		t.Fatalf("delays: got %d, want 2", len(delays))
	}
	for _, d := range delays {
		if d < min || d > max {
			t.Errorf("delay %v outside [%v, %v]", d, min, max)
		}
	}
}

func TestExecuteSteps_NoDelayWithoutHumanLike(t *testing.T) {
	var calls int
	record := func(context.Context, time.Duration) error { calls++; return nil }

	o := New(submit.NewScript(), WithSleepFunc(record))
	nop := func(ctx context.Context, in any) (any, error) { return in, nil }
	steps := []Step{{Name: "a", Run: nop}, {Name: "b", Run: nop}}

	if _, err := o.executeSteps(context.Background(), Profile{Name: "t"}, time.Second, time.Second, steps); err != nil {
		t.Fatal(err)
	}
	if calls != 0 {
		t.Errorf("sleep calls: got %d, want 0", calls)
	}
}

func TestExecute_SmartAdaptedDelaysWidenOnSlowNetwork(t *testing.T) {
	var delays []time.Duration
	record := func(_ context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}

	// RNG pinned to zero: every human-like draw lands on the range minimum,
	// so the draws expose which range was in effect.
	noon := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	o := New(submit.NewScript(),
		WithSleepFunc(record),
		WithRand(&seqRand{vals: []int{0}}),
		WithProber(StaticProber{Env: Environment{NetworkClass: "2g"}}),
		WithClock(func() time.Time { return noon }),
	)

	if _, err := o.Execute(context.Background(), ProfileSmart, validData()); err != nil {
		t.Fatal(err)
	}

	// Nine smart steps, so eight inter-step delays. The first three run
	// before "adapt config"; everything after draws from the 2G range.
	if len(delays) != 8 {
		t.Fatalf("delays: got %d, want 8", len(delays))
	}
	for i, d := range delays[:3] {
		if d != 2000*time.Millisecond {
			t.Errorf("delay %d: got %v, want profile minimum 2s", i, d)
		}
	}
	for i, d := range delays[3:] {
		if d != 5000*time.Millisecond {
			t.Errorf("delay %d: got %v, want adapted 2G minimum 5s", i+3, d)
		}
	}
}

func TestAdaptDelayRange(t *testing.T) {
	day := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	night := time.Date(2026, 3, 10, 23, 0, 0, 0, time.UTC)

	cases := []struct {
		class        string
		at           time.Time
		wantMin, max time.Duration
	}{
		{"2g", day, 5000 * time.Millisecond, 10000 * time.Millisecond},
		{"3g", day, 3000 * time.Millisecond, 6000 * time.Millisecond},
		{"4g", day, 1000 * time.Millisecond, 3000 * time.Millisecond},
		{"4g", night, 700 * time.Millisecond, 2100 * time.Millisecond},
	}
	for _, tc := range cases {
		min, max := adaptDelayRange(Environment{NetworkClass: tc.class}, tc.at)
		if min != tc.wantMin || max != tc.max {
			t.Errorf("%s at %02d:00: got [%v, %v], want [%v, %v]",
				tc.class, tc.at.Hour(), min, max, tc.wantMin, tc.max)
		}
	}
}
