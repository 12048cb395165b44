// Package regflow is the multi-strategy registration orchestrator. Given raw
// form data it picks a policy profile, runs that profile's pipeline of named
// steps under the profile's delay/retry/parallelism rules, and yields exactly
// one result or one terminal error.
//
// Three built-in profiles ship with the package: standard (baseline serial
// pipeline), smart (adaptive retry and environment-aware delays) and
// aggressive (three concurrent data variants, first success wins). Profiles
// are selected by name at execution time or recommended from context; every
// execution updates per-profile statistics that feed future recommendations.
//
// All collaborators are injected: the submission backend, the notification
// sink, the randomness source and the clock, so tests run deterministically
// against scripted outcomes.
package regflow

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/voralis/formpilot/notify"
	"github.com/voralis/formpilot/submit"
)

// Result is the outcome of one successful pipeline run. Immutable after
// creation.
type Result struct {
	Success           bool      `json:"success"`
	Email             string    `json:"email"`
	Password          string    `json:"password"`
	AccountID         string    `json:"account_id"`
	Message           string    `json:"message"`
	NeedsVerification bool      `json:"needs_verification"`
	Profile           string    `json:"profile"`
	StartedAt         time.Time `json:"started_at"`
	FinishedAt        time.Time `json:"finished_at"`
}

// DefaultDomain is the mail domain appended to the desired local part.
const DefaultDomain = "outlook.com"

// Orchestrator executes registration strategies. Create one per session via
// New; it owns the session's strategy statistics.
type Orchestrator struct {
	profiles  []Profile
	byName    map[string]Profile
	stats     *Stats
	submitter submit.Submitter
	notifier  notify.Notifier
	logger    *slog.Logger
	rng       *lockedRand
	identity  *IdentityGen
	env       Prober
	domain    string
	sleep     func(context.Context, time.Duration) error
	now       func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithProfiles appends (or, by name, overrides) strategy profiles.
func WithProfiles(profiles ...Profile) Option {
	return func(o *Orchestrator) {
		for _, p := range profiles {
			if _, ok := o.byName[p.Name]; ok {
				for i := range o.profiles {
					if o.profiles[i].Name == p.Name {
						o.profiles[i] = p
					}
				}
			} else {
				o.profiles = append(o.profiles, p)
			}
			o.byName[p.Name] = p
		}
	}
}

// WithNotifier sets the progress/notification sink.
func WithNotifier(n notify.Notifier) Option {
	return func(o *Orchestrator) { o.notifier = n }
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithRand sets the randomness source (for deterministic tests).
func WithRand(r Rand) Option {
	return func(o *Orchestrator) {
		o.rng = &lockedRand{r: r}
		o.identity = NewIdentityGen(o.rng)
	}
}

// WithProber sets the environment detection collaborator.
func WithProber(p Prober) Option {
	return func(o *Orchestrator) { o.env = p }
}

// WithDomain overrides the mail domain.
func WithDomain(d string) Option {
	return func(o *Orchestrator) { o.domain = d }
}

// WithSleepFunc replaces the inter-step suspension (for tests).
func WithSleepFunc(f func(context.Context, time.Duration) error) Option {
	return func(o *Orchestrator) { o.sleep = f }
}

// WithClock replaces the time source (for tests).
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithStats shares a pre-loaded statistics table.
func WithStats(s *Stats) Option {
	return func(o *Orchestrator) { o.stats = s }
}

// New creates an Orchestrator over the given submission collaborator, with
// the built-in profiles registered.
func New(sub submit.Submitter, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		profiles:  BuiltinProfiles(),
		byName:    make(map[string]Profile),
		stats:     NewStats(),
		submitter: sub,
		notifier:  notify.Nop{},
		logger:    slog.Default(),
		env:       StaticProber{},
		domain:    DefaultDomain,
		sleep:     ctxSleep,
		now:       time.Now,
	}
	for _, p := range o.profiles {
		o.byName[p.Name] = p
	}
	o.rng = &lockedRand{r: defaultRand{}}
	o.identity = NewIdentityGen(o.rng)
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Profiles returns the registered profiles in declaration order.
func (o *Orchestrator) Profiles() []Profile {
	out := make([]Profile, len(o.profiles))
	copy(out, o.profiles)
	return out
}

// Stats exposes the session statistics table.
func (o *Orchestrator) Stats() *Stats {
	return o.stats
}

// Execute runs the named strategy over the given data and returns exactly
// one result or one terminal error. On a terminal, non-validation failure
// the profile's fallback strategies (if any) are tried in order.
func (o *Orchestrator) Execute(ctx context.Context, profileName string, data FormData) (*Result, error) {
	p, ok := o.byName[profileName]
	if !ok {
		return nil, &UnknownStrategyError{Name: profileName}
	}

	res, err := o.executeProfile(ctx, p, data)
	if err == nil {
		return res, nil
	}
	if isValidationError(err) {
		return nil, err
	}

	for _, name := range p.FallbackStrategies {
		fp, ok := o.byName[name]
		if !ok {
			o.logger.Warn("regflow: unknown fallback strategy", "name", name)
			continue
		}
		o.notifier.Notify(ctx, notify.Warning, "strategy fallback",
			p.Name+" failed, trying "+name)
		if res, ferr := o.executeProfile(ctx, fp, data); ferr == nil {
			return res, nil
		}
	}
	return nil, err
}

// executeProfile runs one profile to completion and records its statistics:
// the attempt before running, the success or failure after.
func (o *Orchestrator) executeProfile(ctx context.Context, p Profile, data FormData) (*Result, error) {
	o.stats.Attempt(p.Name)
	start := o.now()

	o.logger.Info("regflow: executing strategy", "profile", p.Name)

	var res *Result
	var err error
	if p.ParallelAttempts > 1 {
		res, err = o.executeParallel(ctx, p, data, start)
	} else {
		var steps []Step
		if p.AdaptiveRetry {
			steps = o.smartSteps(p, data, start)
		} else {
			steps = o.standardSteps(p, data, start)
		}
		var out any
		out, err = o.executeSteps(ctx, p, p.DelayMin, p.DelayMax, steps)
		if err == nil {
			res = out.(*Result)
		}
	}

	if err != nil {
		o.stats.Failure(p.Name)
		o.notifier.Notify(ctx, notify.Error, "registration failed",
			p.Name+": "+err.Error())
		return nil, err
	}

	o.stats.Success(p.Name)
	o.notifier.Notify(ctx, notify.Success, "registration complete", res.Email)
	return res, nil
}

// executeParallel races ParallelAttempts cloned data variants, each through
// its own full mini-pipeline. The first variant to succeed wins; the
// eventual outcomes of the others are discarded. No cancellation signal is
// sent to the losers.
func (o *Orchestrator) executeParallel(ctx context.Context, p Profile, data FormData, start time.Time) (*Result, error) {
	n := p.ParallelAttempts
	variants := o.buildVariants(data, n)

	type outcome struct {
		res *Result
		err error
	}
	ch := make(chan outcome, n)

	for _, v := range variants {
		go func(v FormData) {
			steps := o.standardSteps(p, v, start)
			out, err := o.executeSteps(ctx, p, p.DelayMin, p.DelayMax, steps)
			if err != nil {
				ch <- outcome{err: err}
				return
			}
			ch <- outcome{res: out.(*Result)}
		}(v)
	}

	var lastErr error
	for i := 0; i < n; i++ {
		oc := <-ch
		if oc.err == nil {
			return oc.res, nil
		}
		lastErr = oc.err
	}
	return nil, lastErr
}

// buildVariants clones the data n times. Every variant's email gets a random
// numeric suffix; variants after the first also get freshly generated name
// pairs. Variants are built serially, before any goroutine launches, so each
// mini-pipeline operates on its own copy.
func (o *Orchestrator) buildVariants(data FormData, n int) []FormData {
	variants := make([]FormData, n)
	for i := range variants {
		v := data
		if i > 0 {
			v.FirstName, v.LastName = o.identity.NamePair()
		}
		v.Email = data.Email + o.identity.EmailSuffix()
		variants[i] = v
	}
	return variants
}

// GenerateData draws a complete random registration identity.
func (o *Orchestrator) GenerateData() FormData {
	return o.identity.FormData()
}

func isValidationError(err error) bool {
	var mf *MissingFieldError
	var wp *WeakPasswordError
	return errors.As(err, &mf) || errors.As(err, &wp) || errors.Is(err, ErrEmailTooShort)
}

// lockedRand serialises draws so concurrent variant pipelines can share one
// source.
type lockedRand struct {
	mu sync.Mutex
	r  Rand
}

func (l *lockedRand) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.IntN(n)
}

// defaultRand draws from the shared math/rand/v2 generator.
type defaultRand struct{}

func (defaultRand) IntN(n int) int { return rand.IntN(n) }
