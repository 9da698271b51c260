package pipeline

import (
	"context"
	"sync"

	"github.com/vk/stagegrid/internal/action"
	"github.com/vk/stagegrid/internal/ctxlog"
	"github.com/vk/stagegrid/internal/facts"
	"github.com/vk/stagegrid/internal/params"
	"github.com/vk/stagegrid/internal/stage"
	"golang.org/x/sync/errgroup"
)

// execution holds the mutable state of a single run.
type execution struct {
	runner *Runner
	facts  *facts.Store
	params *params.Values

	mu      sync.Mutex
	fatal   error
	blocked bool
}

func (e *execution) setFatal(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.fatal == nil {
		e.fatal = err
	}
}

func (e *execution) fatalError() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.fatal
}

// block stops the run after a top-level group failed.
func (e *execution) block() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.blocked = true
}

// halted reports whether no further stage may start.
func (e *execution) halted(ctx context.Context) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.fatal != nil || e.blocked || ctx.Err() != nil
}

// haltReason explains why the remaining groups are skipped. An abort through
// ctx wins over the failure it caused.
func (e *execution) haltReason(ctx context.Context) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.blocked && e.fatal == nil && ctx.Err() == nil {
		return ReasonPreviousFailed
	}
	return ReasonRunAborted
}

func (e *execution) prepare(ctx context.Context) {
	logger := ctxlog.FromContext(ctx)
	for _, prep := range e.runner.pipeline.Preparers {
		if ctx.Err() != nil {
			return
		}
		logger.Debug("Running preparer.", "preparer", prep.Name)
		if err := prep.Preparer.Prepare(ctx, e.facts, e.params); err != nil {
			e.setFatal(&PrepareError{Preparer: prep.Name, Err: err})
			return
		}
	}
	logger.Info("Prepare phase complete.", "facts", e.facts.Keys())
}

// runGroup executes g and returns its outcomes in declared order plus
// whether the group failed.
func (e *execution) runGroup(ctx context.Context, g *Group, prefix string) ([]stage.Outcome, bool) {
	path := joinPath(prefix, g.Name)
	ctx, logger := ctxlog.With(ctx, "group", path)

	decisions, ok := e.resolve(ctx, g)
	if !ok {
		return e.skipGroup(ctx, g, prefix, ReasonRunAborted), true
	}

	logger.Debug("Starting group.", "kind", g.Kind, "members", len(g.Members))
	var outcomes []stage.Outcome
	switch g.Kind {
	case Parallel:
		outcomes = e.runParallel(ctx, g, path, decisions)
	default:
		outcomes = e.runSequence(ctx, g, path, decisions)
	}
	failed := anyBlocking(outcomes)
	logger.Debug("Group finished.", "failed", failed)
	return outcomes, failed
}

// resolve evaluates the conditions of g's direct stage members before any of
// them runs, and checks those of nested groups too, so a condition error
// anywhere below g aborts the run before any member of g has started.
// Facts are frozen after the prepare phase, so nested groups re-resolving
// later see the same decisions. A condition error is fatal for the run.
func (e *execution) resolve(ctx context.Context, g *Group) ([]bool, bool) {
	decisions := make([]bool, len(g.Members))
	for i, m := range g.Members {
		if m.Group != nil {
			if _, ok := e.resolve(ctx, m.Group); !ok {
				return nil, false
			}
			continue
		}
		run, err := stage.ShouldRun(*m.Stage, e.facts, e.params)
		if err != nil {
			ctxlog.FromContext(ctx).Error("❌ Condition evaluation failed; aborting run", "stage", m.Stage.Name, "error", err)
			e.setFatal(err)
			return nil, false
		}
		decisions[i] = run
	}
	return decisions, true
}

func (e *execution) runSequence(ctx context.Context, g *Group, path string, decisions []bool) []stage.Outcome {
	var outcomes []stage.Outcome
	stopped := ""
	for i, m := range g.Members {
		if stopped == "" && e.halted(ctx) {
			stopped = ReasonRunAborted
		}
		if stopped != "" {
			outcomes = append(outcomes, e.skipMember(ctx, m, path, stopped)...)
			continue
		}
		outs, failed := e.runMember(ctx, m, path, decisions[i])
		outcomes = append(outcomes, outs...)
		if failed {
			stopped = ReasonPreviousFailed
			if e.halted(ctx) {
				stopped = ReasonRunAborted
			}
		}
	}
	return outcomes
}

func (e *execution) runParallel(ctx context.Context, g *Group, path string, decisions []bool) []stage.Outcome {
	results := make([][]stage.Outcome, len(g.Members))

	// A failing branch never cancels its siblings, so the group is not
	// derived from ctx.
	var eg errgroup.Group
	if e.runner.maxParallel > 0 {
		eg.SetLimit(e.runner.maxParallel)
	}
	for i, m := range g.Members {
		eg.Go(func() error {
			if e.halted(ctx) {
				results[i] = e.skipMember(ctx, m, path, ReasonRunAborted)
				return nil
			}
			results[i], _ = e.runMember(ctx, m, path, decisions[i])
			return nil
		})
	}
	_ = eg.Wait()

	var outcomes []stage.Outcome
	for _, r := range results {
		outcomes = append(outcomes, r...)
	}
	return outcomes
}

func (e *execution) runMember(ctx context.Context, m Member, path string, run bool) ([]stage.Outcome, bool) {
	if m.Group != nil {
		return e.runGroup(ctx, m.Group, path)
	}

	spec := *m.Stage
	stagePath := joinPath(path, spec.Name)
	var out stage.Outcome
	if !run {
		out = stage.MarkSkipped(ctx, spec, stagePath, ReasonConditionFalse)
	} else {
		e.runner.observer.StageStarted(stagePath)
		env := action.Env{Path: stagePath, Facts: e.facts, Params: e.params}
		out = stage.Execute(ctx, spec, env, stage.Options{GracePeriod: e.runner.gracePeriod})
	}
	e.runner.observer.StageFinished(out)
	return []stage.Outcome{out}, out.Blocking()
}

func (e *execution) skipMember(ctx context.Context, m Member, path, reason string) []stage.Outcome {
	if m.Group != nil {
		return e.skipGroup(ctx, m.Group, path, reason)
	}
	out := stage.MarkSkipped(ctx, *m.Stage, joinPath(path, m.Stage.Name), reason)
	e.runner.observer.StageFinished(out)
	return []stage.Outcome{out}
}

func (e *execution) skipGroup(ctx context.Context, g *Group, prefix, reason string) []stage.Outcome {
	path := joinPath(prefix, g.Name)
	var outcomes []stage.Outcome
	for _, m := range g.Members {
		outcomes = append(outcomes, e.skipMember(ctx, m, path, reason)...)
	}
	return outcomes
}

func anyBlocking(outcomes []stage.Outcome) bool {
	for _, o := range outcomes {
		if o.Blocking() {
			return true
		}
	}
	return false
}
