package regflow

import (
	"context"
	"fmt"
	"time"

	"github.com/voralis/formpilot/notify"
	"github.com/voralis/formpilot/submit"
)

// runState is the carry threaded through a pipeline run.
type runState struct {
	data         FormData
	payload      submit.Payload
	env          Environment
	delayMin     time.Duration
	delayMax     time.Duration
	alternatives []string
	receipt      *submit.Receipt
	startedAt    time.Time
}

// standardSteps builds the baseline pipeline:
// validate input → build payload → submit → validate response → finalize.
func (o *Orchestrator) standardSteps(p Profile, data FormData, startedAt time.Time) []Step {
	steps := []Step{
		o.stepValidate(data, startedAt),
		o.stepBuildPayload(),
		o.stepSubmit(),
	}
	if p.ValidateSteps {
		steps = append(steps, o.stepValidateResponse())
	}
	return append(steps, o.stepFinalize(p))
}

// smartSteps builds the adaptive pipeline: data optimization, environment
// detection, delay adaptation and an availability probe surround a
// retry-wrapped submission.
func (o *Orchestrator) smartSteps(p Profile, data FormData, startedAt time.Time) []Step {
	steps := []Step{
		o.stepValidate(data, startedAt),
		o.stepOptimizeData(),
		o.stepDetectEnvironment(),
		o.stepAdaptConfig(p),
		o.stepBuildPayload(),
		o.stepCheckAvailability(p),
		o.stepSubmitWithRetry(p),
	}
	if p.ValidateSteps {
		steps = append(steps, o.stepValidateResponse())
	}
	return append(steps, o.stepFinalize(p))
}

func (o *Orchestrator) stepValidate(data FormData, startedAt time.Time) Step {
	return Step{Name: "validate input", Run: func(ctx context.Context, _ any) (any, error) {
		if err := Validate(data); err != nil {
			return nil, err
		}
		return &runState{
			data:      data,
			delayMin:  0,
			delayMax:  0,
			startedAt: startedAt,
		}, nil
	}}
}

func (o *Orchestrator) stepOptimizeData() Step {
	return Step{Name: "optimize data", Run: func(ctx context.Context, in any) (any, error) {
		st := in.(*runState)
		o.identity.Complete(&st.data)
		st.alternatives = o.identity.Alternatives(st.data, 3)
		return st, nil
	}}
}

func (o *Orchestrator) stepDetectEnvironment() Step {
	return Step{Name: "detect environment", Run: func(ctx context.Context, in any) (any, error) {
		st := in.(*runState)
		env, err := o.env.Probe(ctx)
		if err != nil {
			// Detection is advisory. A failed probe falls back to the
			// default environment instead of aborting the run.
			o.logger.Warn("regflow: environment probe failed", "error", err)
			env, _ = StaticProber{}.Probe(ctx)
		}
		st.env = env
		return st, nil
	}}
}

func (o *Orchestrator) stepAdaptConfig(p Profile) Step {
	return Step{Name: "adapt config", Run: func(ctx context.Context, in any) (any, error) {
		st := in.(*runState)
		st.delayMin, st.delayMax = adaptDelayRange(st.env, o.now())
		o.logger.Debug("regflow: delays adapted",
			"network", st.env.NetworkClass,
			"delay_min", st.delayMin, "delay_max", st.delayMax)
		return st, nil
	}}
}

func (o *Orchestrator) stepBuildPayload() Step {
	return Step{Name: "build payload", Run: func(ctx context.Context, in any) (any, error) {
		st := in.(*runState)
		st.payload = st.data.payload(o.domain)
		return st, nil
	}}
}

func (o *Orchestrator) stepCheckAvailability(p Profile) Step {
	return Step{Name: "check availability", Run: func(ctx context.Context, in any) (any, error) {
		st := in.(*runState)
		ac, ok := o.submitter.(submit.AvailabilityChecker)
		if !ok {
			return st, nil
		}
		err := ac.CheckAvailability(ctx, st.payload.Email)
		if err == nil {
			return st, nil
		}
		if p.ErrorRecovery && len(st.alternatives) > 0 {
			st.data.Email = st.alternatives[0]
			st.alternatives = st.alternatives[1:]
			st.payload = st.data.payload(o.domain)
			o.notifier.Notify(ctx, notify.Warning, "email unavailable",
				"switched to alternative "+st.payload.Email)
			return st, nil
		}
		return nil, &StepFailure{Step: "check availability", Err: err}
	}}
}

func (o *Orchestrator) stepSubmit() Step {
	return Step{Name: "submit", Run: func(ctx context.Context, in any) (any, error) {
		st := in.(*runState)
		rec, err := o.submitter.Submit(ctx, st.payload)
		if err != nil {
			return nil, &StepFailure{Step: "submit", Err: err}
		}
		st.receipt = rec
		return st, nil
	}}
}

// stepSubmitWithRetry retries transient submission failures up to the
// profile's retry count with linear backoff: baseDelay × attemptNumber,
// where baseDelay is the adapted minimum delay. Non-transient failures
// propagate immediately.
func (o *Orchestrator) stepSubmitWithRetry(p Profile) Step {
	return Step{Name: "submit with retry", Run: func(ctx context.Context, in any) (any, error) {
		st := in.(*runState)
		base := st.delayMin
		if base <= 0 {
			base = p.DelayMin
		}

		var lastErr error
		for attempt := 1; attempt <= p.RetryCount; attempt++ {
			rec, err := o.submitter.Submit(ctx, st.payload)
			if err == nil {
				st.receipt = rec
				return st, nil
			}
			if !submit.IsTransient(err) {
				return nil, &StepFailure{Step: "submit with retry", Err: err}
			}
			lastErr = err
			o.logger.Info("regflow: transient submission failure",
				"attempt", attempt, "of", p.RetryCount, "error", err)
			if attempt < p.RetryCount {
				if serr := o.sleep(ctx, base*time.Duration(attempt)); serr != nil {
					return nil, serr
				}
			}
		}
		return nil, &StepFailure{Step: "submit with retry",
			Err: fmt.Errorf("retries exhausted: %w", lastErr)}
	}}
}

func (o *Orchestrator) stepValidateResponse() Step {
	return Step{Name: "validate response", Run: func(ctx context.Context, in any) (any, error) {
		st := in.(*runState)
		if st.receipt == nil {
			return nil, &StepFailure{Step: "validate response",
				Err: fmt.Errorf("no receipt from submission")}
		}
		if st.receipt.Email != st.payload.Email {
			return nil, &StepFailure{Step: "validate response",
				Err: fmt.Errorf("receipt email %q does not match payload %q",
					st.receipt.Email, st.payload.Email)}
		}
		return st, nil
	}}
}

func (o *Orchestrator) stepFinalize(p Profile) Step {
	return Step{Name: "finalize", Run: func(ctx context.Context, in any) (any, error) {
		st := in.(*runState)
		res := &Result{
			Success:           true,
			Email:             st.payload.Email,
			Password:          st.data.Password,
			AccountID:         st.receipt.AccountID,
			Message:           st.receipt.Message,
			NeedsVerification: st.receipt.NeedsVerification,
			Profile:           p.Name,
			StartedAt:         st.startedAt,
			FinishedAt:        o.now(),
		}
		return res, nil
	}}
}
