package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vk/stagegrid/internal/ctxlog"
	"github.com/vk/stagegrid/internal/facts"
	"github.com/vk/stagegrid/internal/hooks"
	"github.com/vk/stagegrid/internal/params"
	"github.com/vk/stagegrid/internal/stage"
	"github.com/vk/stagegrid/internal/verdict"
)

// Skip reasons recorded on outcomes.
const (
	ReasonConditionFalse = "condition false"
	ReasonPreviousFailed = "previous stage failed"
	ReasonRunAborted     = "run aborted"
)

// Runner executes a Pipeline.
type Runner struct {
	pipeline    *Pipeline
	observer    Observer
	gracePeriod time.Duration
	maxParallel int
	hookTimeout time.Duration
	newRunID    func() string
}

// Option configures a Runner.
type Option func(*Runner)

// WithObserver registers a progress observer.
func WithObserver(o Observer) Option {
	return func(r *Runner) {
		if o != nil {
			r.observer = o
		}
	}
}

// WithGracePeriod sets how long a cancelled action may take to return.
func WithGracePeriod(d time.Duration) Option {
	return func(r *Runner) { r.gracePeriod = d }
}

// WithMaxParallel bounds how many members of a parallel group run at once.
// Zero or less means unbounded.
func WithMaxParallel(n int) Option {
	return func(r *Runner) { r.maxParallel = n }
}

// WithHookTimeout bounds each finalization hook.
func WithHookTimeout(d time.Duration) Option {
	return func(r *Runner) { r.hookTimeout = d }
}

// WithRunID overrides run ID generation.
func WithRunID(fn func() string) Option {
	return func(r *Runner) { r.newRunID = fn }
}

// NewRunner creates a Runner for p.
func NewRunner(p *Pipeline, opts ...Option) *Runner {
	r := &Runner{
		pipeline: p,
		observer: NopObserver{},
		newRunID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes the pipeline once.
//
// Parameter problems are returned as a *params.ConfigError before anything
// runs; no hooks fire and no reports are produced in that case. Otherwise Run
// always returns a complete report listing every stage, and a nil error.
// Run-fatal errors (condition or prepare failures) and aborts through ctx are
// recorded on the report and force a Failure verdict.
func (r *Runner) Run(ctx context.Context, overrides map[string]string) (*verdict.Report, error) {
	p := r.pipeline
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline %q: %w", p.Name, err)
	}
	values, err := params.Resolve(p.Parameters, overrides)
	if err != nil {
		return nil, err
	}

	runID := r.newRunID()
	ctx, logger := ctxlog.With(ctx, "run_id", runID)

	report := &verdict.Report{
		RunID:     runID,
		Pipeline:  p.Name,
		StartedAt: time.Now(),
		Params:    values.Native(),
	}
	logger.Info("🚀 Starting pipeline run", "pipeline", p.Name, "params", report.Params)
	r.observer.RunStarted(p.Name)

	store := facts.New()
	exec := &execution{runner: r, facts: store, params: values}

	exec.prepare(ctx)
	for i := range p.Groups {
		g := &p.Groups[i]
		if exec.halted(ctx) {
			report.Outcomes = append(report.Outcomes, exec.skipGroup(ctx, g, "", exec.haltReason(ctx))...)
			continue
		}
		outcomes, failed := exec.runGroup(ctx, g, "")
		report.Outcomes = append(report.Outcomes, outcomes...)
		if failed {
			exec.block()
		}
	}

	fatal := exec.fatalError()
	if fatal == nil && ctx.Err() != nil {
		report.Aborted = true
		fatal = fmt.Errorf("%w: %v", stage.ErrAborted, context.Cause(ctx))
	}
	if fatal != nil {
		report.Err = fatal
		report.Error = fatal.Error()
	}
	report.Verdict = verdict.Final(report.Outcomes, fatal != nil)
	report.Facts = nativeFacts(store)
	report.Duration = time.Since(report.StartedAt)

	r.observer.RunFinished(report.Clone())
	if fatal != nil {
		logger.Error("❌ Pipeline run ended with a fatal error", "error", fatal, "verdict", report.Verdict)
	} else {
		logger.Info("🏁 Pipeline run finished", "verdict", report.Verdict, "duration", report.Duration)
	}

	r.finalize(ctx, *report)
	return report, nil
}

func (r *Runner) finalize(ctx context.Context, report verdict.Report) {
	ctx = context.WithoutCancel(ctx)
	logger := ctxlog.FromContext(ctx)

	failures := hooks.Dispatcher{Timeout: r.hookTimeout}.Finalize(ctx, r.pipeline.Hooks, report)
	if len(failures) > 0 {
		logger.Warn("Some finalization hooks failed.", "count", len(failures))
	}
	for i, rep := range r.pipeline.Reporters {
		if err := rep.Report(ctx, report.Clone()); err != nil {
			logger.Warn("Reporter failed.", "reporter", i, "error", err)
		}
	}
}

func nativeFacts(store *facts.Store) map[string]any {
	snapshot := store.Snapshot()
	out := make(map[string]any, len(snapshot))
	for k, v := range snapshot {
		out[k] = facts.Native(v)
	}
	return out
}
