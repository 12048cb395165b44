package regflow

import (
	"context"
	"time"

	"github.com/voralis/formpilot/notify"
)

// Step is one named pipeline stage. Run receives the previous step's output
// (nil for the first step) and returns its own. An error aborts the whole
// pipeline immediately; later steps never run.
type Step struct {
	Name string
	Run  func(ctx context.Context, in any) (any, error)
}

// executeSteps runs steps strictly sequentially. Before every step after the
// first, a profile with human-like delay suspends for a uniformly random
// duration inside [delayMin, delayMax]; when a step adapts the delay range
// (the carried state holds a non-zero one), later draws use the adapted
// range. Step transitions emit progress notifications; the notifier never
// affects control flow.
func (o *Orchestrator) executeSteps(ctx context.Context, p Profile, delayMin, delayMax time.Duration, steps []Step) (any, error) {
	var out any
	for i, st := range steps {
		if i > 0 && p.HumanLikeDelay {
			if err := o.sleep(ctx, o.randomDelay(delayMin, delayMax)); err != nil {
				return nil, err
			}
		}

		o.notifier.Notify(ctx, notify.Info, "pipeline step",
			p.Name+": "+st.Name)
		o.logger.Debug("regflow: step", "profile", p.Name, "step", st.Name, "index", i)

		var err error
		out, err = st.Run(ctx, out)
		if err != nil {
			o.logger.Warn("regflow: step failed",
				"profile", p.Name, "step", st.Name, "error", err)
			return nil, err
		}

		if rs, ok := out.(*runState); ok && rs.delayMax > 0 {
			delayMin, delayMax = rs.delayMin, rs.delayMax
		}
	}
	return out, nil
}

// randomDelay draws a uniform duration from [min, max].
func (o *Orchestrator) randomDelay(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(o.rng.IntN(int(max-min)+1))
}

// ctxSleep is the default sleep function: context-aware suspension.
func ctxSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
