package regflow

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/voralis/formpilot/submit"
)

// fnSubmitter adapts a function into a Submitter.
type fnSubmitter struct {
	mu    sync.Mutex
	fn    func(p submit.Payload) (*submit.Receipt, error)
	calls int
}

func (f *fnSubmitter) Submit(_ context.Context, p submit.Payload) (*submit.Receipt, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.fn(p)
}

func (f *fnSubmitter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestExecute_StandardEndToEnd(t *testing.T) {
	sub := submit.NewScript()
	o := New(sub, WithSleepFunc(noSleep))

	res, err := o.Execute(context.Background(), ProfileStandard, validData())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if !res.Success {
		t.Error("success: got false, want true")
	}
	if res.Email != "alexsmith01@outlook.com" {
		t.Errorf("email: got %q, want %q", res.Email, "alexsmith01@outlook.com")
	}
	if res.Password != "Abc12345!" {
		t.Errorf("password: got %q, want %q", res.Password, "Abc12345!")
	}
	if res.AccountID == "" {
		t.Error("account id: got empty")
	}
	if res.Profile != ProfileStandard {
		t.Errorf("profile: got %q, want standard", res.Profile)
	}

	c := o.Stats().Get(ProfileStandard)
	if c.Attempts != 1 || c.Successes != 1 || c.Failures != 0 {
		t.Errorf("stats: got %+v, want 1 attempt, 1 success", c)
	}
}

func TestExecute_UnknownStrategy(t *testing.T) {
	o := New(submit.NewScript(), WithSleepFunc(noSleep))

	_, err := o.Execute(context.Background(), "bogus", validData())
	var use *UnknownStrategyError
	if !errors.As(err, &use) {
		t.Fatalf("got %v, want UnknownStrategyError", err)
	}
	if use.Name != "bogus" {
		t.Errorf("name: got %q", use.Name)
	}
}

func TestExecute_ValidationFailureNeverSubmits(t *testing.T) {
	sub := submit.NewScript()
	o := New(sub, WithSleepFunc(noSleep))

	d := validData()
	d.Password = "short"
	_, err := o.Execute(context.Background(), ProfileStandard, d)

	var wp *WeakPasswordError
	if !errors.As(err, &wp) {
		t.Fatalf("got %v, want WeakPasswordError", err)
	}
	if sub.CallCount() != 0 {
		t.Errorf("submissions: got %d, want 0", sub.CallCount())
	}

	c := o.Stats().Get(ProfileStandard)
	if c.Attempts != 1 || c.Failures != 1 {
		t.Errorf("stats: got %+v, want 1 attempt, 1 failure", c)
	}
}

func TestExecute_StepFailurePropagates(t *testing.T) {
	sub := submit.NewScript(submit.ErrEmailTaken)
	o := New(sub, WithSleepFunc(noSleep))

	_, err := o.Execute(context.Background(), ProfileStandard, validData())

	var sf *StepFailure
	if !errors.As(err, &sf) {
		t.Fatalf("got %v, want StepFailure", err)
	}
	if sf.Step != "submit" {
		t.Errorf("step: got %q, want submit", sf.Step)
	}
	if !errors.Is(err, submit.ErrEmailTaken) {
		t.Errorf("cause: got %v, want email taken", sf.Err)
	}
}

func TestExecute_SmartRetriesTransientFailures(t *testing.T) {
	sub := submit.NewScript(submit.ErrRateLimited, submit.ErrServer, nil)
	o := New(sub, WithSleepFunc(noSleep))

	res, err := o.Execute(context.Background(), ProfileSmart, validData())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !res.Success {
		t.Error("success: got false")
	}
	if sub.CallCount() != 3 {
		t.Errorf("submissions: got %d, want 3 (two transient failures retried)", sub.CallCount())
	}

	c := o.Stats().Get(ProfileSmart)
	if c.Successes != 1 {
		t.Errorf("stats: got %+v, want 1 success", c)
	}
}

func TestExecute_SmartNonTransientNotRetried(t *testing.T) {
	sub := submit.NewScript(submit.ErrEmailTaken)
	o := New(sub, WithSleepFunc(noSleep))

	_, err := o.Execute(context.Background(), ProfileSmart, validData())
	if !errors.Is(err, submit.ErrEmailTaken) {
		t.Fatalf("got %v, want email taken", err)
	}
	if sub.CallCount() != 1 {
		t.Errorf("submissions: got %d, want 1", sub.CallCount())
	}
}

func TestExecute_SmartExhaustsRetries(t *testing.T) {
	sub := submit.NewScript(submit.ErrServer) // repeats forever
	o := New(sub, WithSleepFunc(noSleep))

	_, err := o.Execute(context.Background(), ProfileSmart, validData())
	if !errors.Is(err, submit.ErrServer) {
		t.Fatalf("got %v, want server error", err)
	}
	if sub.CallCount() != 5 {
		t.Errorf("submissions: got %d, want retry count 5", sub.CallCount())
	}

	c := o.Stats().Get(ProfileSmart)
	if c.Attempts != 1 || c.Failures != 1 {
		t.Errorf("stats: got %+v, want 1 attempt, 1 failure", c)
	}
}

func TestExecute_AggressiveFirstSuccessWins(t *testing.T) {
	rngVals := []int{7, 3, 5, 11, 2, 4, 9}

	// Replay the variant construction with an identical RNG to learn each
	// variant's email ahead of the race.
	shadow := New(submit.NewScript(), WithRand(&seqRand{vals: rngVals}), WithSleepFunc(noSleep))
	variants := shadow.buildVariants(validData(), 3)
	winner := variants[1].Email + "@" + DefaultDomain

	for i, v := range variants {
		for j := i + 1; j < len(variants); j++ {
			if v.Email == variants[j].Email {
				t.Fatalf("variant emails collide: %q", v.Email)
			}
		}
	}
	if variants[1].FirstName == "Alex" {
		t.Fatal("variant 1 kept the original name pair, want a fresh one")
	}

	sub := &fnSubmitter{fn: func(p submit.Payload) (*submit.Receipt, error) {
		if p.Email == winner {
			return &submit.Receipt{Email: p.Email, AccountID: "acc_win", Message: "ok"}, nil
		}
		return nil, submit.ErrServer
	}}

	o := New(sub, WithRand(&seqRand{vals: rngVals}), WithSleepFunc(noSleep))
	res, err := o.Execute(context.Background(), ProfileAggressive, validData())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Email != winner {
		t.Errorf("result email: got %q, want variant 1's %q", res.Email, winner)
	}
	if res.AccountID != "acc_win" {
		t.Errorf("account id: got %q", res.AccountID)
	}

	c := o.Stats().Get(ProfileAggressive)
	if c.Attempts != 1 || c.Successes != 1 || c.Failures != 0 {
		t.Errorf("stats: got %+v, want exactly one attempt and one success", c)
	}
}

func TestExecute_AggressiveAllVariantsFail(t *testing.T) {
	sub := &fnSubmitter{fn: func(submit.Payload) (*submit.Receipt, error) {
		return nil, submit.ErrNetwork
	}}
	o := New(sub, WithSleepFunc(noSleep))

	_, err := o.Execute(context.Background(), ProfileAggressive, validData())
	if !errors.Is(err, submit.ErrNetwork) {
		t.Fatalf("got %v, want network error", err)
	}
	if sub.callCount() != 3 {
		t.Errorf("submissions: got %d, want 3", sub.callCount())
	}

	c := o.Stats().Get(ProfileAggressive)
	if c.Attempts != 1 || c.Failures != 1 {
		t.Errorf("stats: got %+v, want 1 attempt, 1 failure", c)
	}
}

func TestExecute_FallbackStrategies(t *testing.T) {
	// A custom profile that always fails at submission, falling back to
	// standard which succeeds.
	sub := submit.NewScript(submit.ErrServer, nil)
	o := New(sub, WithSleepFunc(noSleep), WithProfiles(Profile{
		Name:               "fragile",
		RetryCount:         1,
		FallbackStrategies: []string{ProfileStandard},
	}))

	res, err := o.Execute(context.Background(), "fragile", validData())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Profile != ProfileStandard {
		t.Errorf("profile: got %q, want fallback standard", res.Profile)
	}

	if f := o.Stats().Get("fragile"); f.Attempts != 1 || f.Failures != 1 {
		t.Errorf("fragile stats: got %+v", f)
	}
	if s := o.Stats().Get(ProfileStandard); s.Attempts != 1 || s.Successes != 1 {
		t.Errorf("standard stats: got %+v", s)
	}
}

func TestGenerateData_IsValid(t *testing.T) {
	o := New(submit.NewScript(), WithRand(&seqRand{vals: []int{5, 8, 1, 3, 9, 2, 7, 4, 6, 0}}))

	d := o.GenerateData()
	if err := Validate(d); err != nil {
		t.Fatalf("generated data invalid: %v (%+v)", err, d)
	}
	if PasswordClass(PasswordScore(d.Password)) != "strong" {
		t.Errorf("generated password %q not strong", d.Password)
	}
}
