package e2e

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const DefaultScenarioTimeout = 30 * time.Second

type Status string

const (
	StatusPass Status = "pass"
	StatusFail Status = "fail"
	StatusSkip Status = "skip"
)

type Result struct {
	Scenario string
	Status   Status
	Err      error
	Duration time.Duration
}

type Report struct {
	Results  []Result
	Duration time.Duration
}

func (r Report) Count(s Status) int {
	n := 0
	for _, res := range r.Results {
		if res.Status == s {
			n++
		}
	}
	return n
}

// Err is non-nil when any scenario failed. It is the only failure signal
// callers need to check.
func (r Report) Err() error {
	failed := r.Count(StatusFail)
	if failed == 0 {
		return nil
	}
	return fmt.Errorf("%d of %d scenarios failed", failed, len(r.Results))
}

type Runner struct {
	env      *Env
	timeout  time.Duration
	log      *zap.SugaredLogger
	onResult func(Result)
}

type RunnerOption func(*Runner)

func WithScenarioTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) { r.timeout = d }
}

// WithResultHook is called after each scenario, e.g. to advance a progress bar.
func WithResultHook(fn func(Result)) RunnerOption {
	return func(r *Runner) { r.onResult = fn }
}

func NewRunner(env *Env, opts ...RunnerOption) *Runner {
	r := &Runner{
		env:      env,
		timeout:  DefaultScenarioTimeout,
		log:      env.Log,
		onResult: func(Result) {},
	}
	if r.log == nil {
		r.log = zap.NewNop().Sugar()
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes scenarios one after another, each under its own timeout.
// Once ctx is done the remaining scenarios are reported as skipped.
func (r *Runner) Run(ctx context.Context, scenarios []Scenario) Report {
	start := time.Now()
	rep := Report{Results: make([]Result, 0, len(scenarios))}

	for _, s := range scenarios {
		var res Result
		if err := ctx.Err(); err != nil {
			res = Result{Scenario: s.Name, Status: StatusSkip, Err: fmt.Errorf("%w: %v", ErrSkipped, err)}
		} else {
			res = r.runOne(ctx, s)
		}

		switch res.Status {
		case StatusFail:
			r.log.Errorw("scenario failed", "scenario", s.Name, "duration", res.Duration, "error", res.Err)
		case StatusSkip:
			r.log.Warnw("scenario skipped", "scenario", s.Name, "reason", res.Err)
		default:
			r.log.Infow("scenario passed", "scenario", s.Name, "duration", res.Duration)
		}

		rep.Results = append(rep.Results, res)
		r.onResult(res)
	}

	rep.Duration = time.Since(start)
	return rep
}

func (r *Runner) runOne(ctx context.Context, s Scenario) (res Result) {
	sctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	res.Scenario = s.Name
	defer func() {
		if p := recover(); p != nil {
			res.Err = fmt.Errorf("panic: %v", p)
		}
		res.Duration = time.Since(start)
		switch {
		case res.Err == nil:
			res.Status = StatusPass
		case errors.Is(res.Err, ErrSkipped):
			res.Status = StatusSkip
		default:
			res.Status = StatusFail
		}
	}()

	res.Err = s.Run(sctx, r.env)
	return res
}
