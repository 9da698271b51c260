package builder

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/stagegrid/internal/action"
	"github.com/vk/stagegrid/internal/condition"
	"github.com/vk/stagegrid/internal/config"
	"github.com/vk/stagegrid/internal/ctxlog"
	"github.com/vk/stagegrid/internal/facts"
	"github.com/vk/stagegrid/internal/params"
	"github.com/vk/stagegrid/internal/registry"
	"github.com/vk/stagegrid/internal/stage"
	"github.com/vk/stagegrid/internal/verdict"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// boundAction decodes its arguments at invocation time and runs a
// registered action.
type boundAction struct {
	id      string
	handler *registry.RegisteredAction
	args    map[string]hcl.Expression
	conv    config.Converter
}

// Invoke implements action.Action.
func (a *boundAction) Invoke(ctx context.Context, env action.Env) action.Result {
	logger := ctxlog.FromContext(ctx)
	input := a.handler.NewInput()
	evalCtx := evalContext(env.Facts, env.Params, env.Vars)
	if err := a.conv.DecodeArguments(ctx, input, a.args, evalCtx); err != nil {
		return action.Fail(fmt.Errorf("%s: decoding arguments: %w", a.id, err))
	}
	logger.Debug("Invoking action.", "id", a.id)
	return a.handler.Run(ctx, env, input)
}

// boundPreparer decodes its arguments against the parameters and the facts
// recorded so far, then runs a registered preparer.
type boundPreparer struct {
	id      string
	handler *registry.RegisteredPreparer
	args    map[string]hcl.Expression
	conv    config.Converter
}

// Prepare implements pipeline.Preparer.
func (p *boundPreparer) Prepare(ctx context.Context, store *facts.Store, values *params.Values) error {
	input := p.handler.NewInput()
	if err := p.conv.DecodeArguments(ctx, input, p.args, evalContext(store, values, nil)); err != nil {
		return fmt.Errorf("%s: decoding arguments: %w", p.id, err)
	}
	return p.handler.Prepare(ctx, store, values, input)
}

// boundHook runs an action as a finalization hook, exposing the report as
// the `run` variable.
type boundHook struct {
	name    string
	timeout time.Duration
	act     *boundAction
}

func (h *boundHook) Name() string { return h.name }

// Run implements hooks.Hook.
func (h *boundHook) Run(ctx context.Context, report verdict.Report) error {
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}
	store, err := facts.FromNative(report.Facts)
	if err != nil {
		return err
	}
	values, err := params.FromNative(report.Params)
	if err != nil {
		return err
	}
	runVal, err := runObject(h.act.conv, report)
	if err != nil {
		return err
	}

	res := h.act.Invoke(ctx, action.Env{
		Path:   "hook/" + h.name,
		Facts:  store,
		Params: values,
		Vars:   map[string]cty.Value{"run": runVal},
	})
	if res.Failed() {
		return res.Err
	}
	for _, w := range res.Warnings {
		ctxlog.FromContext(ctx).Warn("Hook reported a warning.", "hook", h.name, "warning", w)
	}
	return nil
}

// evalContext builds the HCL evaluation context for late-bound arguments.
func evalContext(f facts.Reader, p *params.Values, vars map[string]cty.Value) *hcl.EvalContext {
	if f == nil {
		f = facts.New()
	}
	variables := map[string]cty.Value{
		"fact":  facts.Object(f),
		"param": p.Object(),
	}
	for k, v := range vars {
		variables[k] = v
	}

	funcs := condition.Functions(f, p)
	for name, fn := range map[string]function.Function{
		"format":    stdlib.FormatFunc,
		"join":      stdlib.JoinFunc,
		"replace":   stdlib.ReplaceFunc,
		"trimspace": stdlib.TrimSpaceFunc,
		"coalesce":  stdlib.CoalesceFunc,
	} {
		funcs[name] = fn
	}
	return &hcl.EvalContext{Variables: variables, Functions: funcs}
}

// runObject exposes a report to hook expressions.
func runObject(conv config.Converter, report verdict.Report) (cty.Value, error) {
	stages := make([]cty.Value, 0, len(report.Outcomes))
	var failed []cty.Value
	for _, o := range report.Outcomes {
		stages = append(stages, cty.ObjectVal(map[string]cty.Value{
			"path":   cty.StringVal(o.Path),
			"name":   cty.StringVal(o.Name),
			"status": cty.StringVal(o.Status.String()),
			"detail": cty.StringVal(o.Detail),
		}))
		if o.Status.IsFailure() {
			failed = append(failed, cty.StringVal(o.Path))
		}
	}

	tally := report.Counts()
	counts := make(map[string]int)
	for _, status := range []stage.Status{stage.Skipped, stage.Success, stage.Failed, stage.TimedOut} {
		counts[status.String()] = tally[status]
	}
	countsVal, err := conv.ToCtyValue(counts)
	if err != nil {
		return cty.NilVal, fmt.Errorf("converting stage counts: %w", err)
	}

	return cty.ObjectVal(map[string]cty.Value{
		"id":       cty.StringVal(report.RunID),
		"pipeline": cty.StringVal(report.Pipeline),
		"verdict":  cty.StringVal(report.Verdict.String()),
		"error":    cty.StringVal(report.Error),
		"aborted":  cty.BoolVal(report.Aborted),
		"duration": cty.StringVal(report.Duration.Round(time.Millisecond).String()),
		"stages":   tupleOrEmpty(stages),
		"failed":   tupleOrEmpty(failed),
		"counts":   countsVal,
	}), nil
}

func tupleOrEmpty(vals []cty.Value) cty.Value {
	if len(vals) == 0 {
		return cty.EmptyTupleVal
	}
	return cty.TupleVal(vals)
}
