package builder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vk/stagegrid/internal/condition"
	"github.com/vk/stagegrid/internal/config"
	"github.com/vk/stagegrid/internal/ctxlog"
	"github.com/vk/stagegrid/internal/hooks"
	"github.com/vk/stagegrid/internal/params"
	"github.com/vk/stagegrid/internal/pipeline"
	"github.com/vk/stagegrid/internal/registry"
	"github.com/vk/stagegrid/internal/stage"
)

// Options tune how a model is built.
type Options struct {
	// DefaultTimeout applies to stages that declare no timeout. Zero means
	// no limit.
	DefaultTimeout time.Duration
}

// builder accumulates errors while walking a model.
type builder struct {
	reg      *registry.Registry
	conv     config.Converter
	opts     Options
	declared map[string]struct{}
	errs     []error
}

func (b *builder) fail(format string, args ...any) {
	b.errs = append(b.errs, fmt.Errorf(format, args...))
}

// Build constructs a validated pipeline from a config model.
func Build(ctx context.Context, model *config.Model, reg *registry.Registry, conv config.Converter, opts Options) (*pipeline.Pipeline, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Build: Starting pipeline construction.", "pipeline", model.Name)

	b := &builder{reg: reg, conv: conv, opts: opts, declared: make(map[string]struct{})}
	p := &pipeline.Pipeline{Name: model.Name, Hooks: hooks.NewSet()}

	for _, decl := range model.Parameters {
		p.Parameters = append(p.Parameters, b.buildParameter(decl))
	}
	logger.Debug("Build: Parameters declared.", "count", len(p.Parameters))

	for _, prep := range model.Prepares {
		if np, ok := b.buildPreparer(prep); ok {
			p.Preparers = append(p.Preparers, np)
		}
	}

	for _, g := range model.Groups {
		p.Groups = append(p.Groups, b.buildGroup(g, ""))
	}
	logger.Debug("Build: Groups bound.", "groups", len(p.Groups), "stages", model.StageCount())

	for _, h := range model.Hooks {
		if event, hook, ok := b.buildHook(h); ok {
			p.Hooks.Add(event, hook)
		}
	}

	if len(b.errs) == 0 {
		if err := p.Validate(); err != nil {
			b.errs = append(b.errs, err)
		}
	}
	if len(b.errs) > 0 {
		return nil, fmt.Errorf("pipeline %q is invalid: %w", model.Name, errors.Join(b.errs...))
	}

	logger.Info("Build: Pipeline construction successful.", "pipeline", p.Name, "stages", len(p.StagePaths()), "hooks", p.Hooks.Len())
	return p, nil
}

func (b *builder) buildParameter(decl *config.Parameter) params.Declaration {
	if _, dup := b.declared[decl.Name]; dup {
		b.fail("parameter %q is declared more than once", decl.Name)
	}
	b.declared[decl.Name] = struct{}{}
	d := params.Declaration{Name: decl.Name, Type: decl.Type, Description: decl.Description}
	if decl.Default != nil {
		d.Default = *decl.Default
	}
	return d
}

func (b *builder) buildPreparer(prep *config.Prepare) (pipeline.NamedPreparer, bool) {
	id := fmt.Sprintf("prepare.%s.%s", prep.PreparerType, prep.Name)
	handler, ok := b.reg.Preparer(prep.PreparerType)
	if !ok {
		b.fail("%s: unknown preparer type %q (available: %v)", id, prep.PreparerType, b.reg.PreparerNames())
		return pipeline.NamedPreparer{}, false
	}
	if err := b.conv.CheckArguments(handler.NewInput(), prep.Arguments); err != nil {
		b.fail("%s: %w", id, err)
	}
	b.checkArguments(id, prep.Arguments, false)
	return pipeline.NamedPreparer{
		Name:     prep.Name,
		Preparer: &boundPreparer{id: id, handler: handler, args: prep.Arguments, conv: b.conv},
	}, true
}

func (b *builder) buildGroup(g *config.Group, prefix string) pipeline.Group {
	path := joinPath(prefix, g.Name)
	out := pipeline.Group{Name: g.Name}
	switch g.Kind {
	case config.KindSequence:
		out.Kind = pipeline.Sequence
	case config.KindParallel:
		out.Kind = pipeline.Parallel
	default:
		b.fail("group %q: unknown kind %q", path, g.Kind)
	}

	for _, m := range g.Members {
		switch {
		case m.Stage != nil:
			if spec, ok := b.buildStage(m.Stage, path); ok {
				out.Members = append(out.Members, pipeline.StageMember(spec))
			}
		case m.Group != nil:
			out.Members = append(out.Members, pipeline.GroupMember(b.buildGroup(m.Group, path)))
		}
	}
	return out
}

func (b *builder) buildStage(s *config.Stage, groupPath string) (stage.Spec, bool) {
	path := joinPath(groupPath, s.Name)
	handler, ok := b.reg.Action(s.ActionType)
	if !ok {
		b.fail("stage %q: unknown action type %q (available: %v)", path, s.ActionType, b.reg.ActionNames())
		return stage.Spec{}, false
	}

	spec := stage.Spec{
		Name:            s.Name,
		ContinueOnError: s.ContinueOnError,
		Action:          &boundAction{id: path, handler: handler, args: s.Arguments, conv: b.conv},
		Timeout:         b.opts.DefaultTimeout,
	}
	if s.Timeout != "" {
		d, err := parseTimeout(s.Timeout)
		if err != nil {
			b.fail("stage %q: %w", path, err)
		}
		spec.Timeout = d
	}
	if s.When != nil {
		b.checkReferences("stage "+path+" `when`", s.When, false)
		spec.When = condition.NewExpr(s.When)
	}
	if err := b.conv.CheckArguments(handler.NewInput(), s.Arguments); err != nil {
		b.fail("stage %q: %w", path, err)
	}
	b.checkArguments("stage "+path, s.Arguments, false)
	return spec, true
}

func (b *builder) buildHook(h *config.Hook) (hooks.Event, hooks.Hook, bool) {
	id := fmt.Sprintf("hook.%s.%s", h.ActionType, h.Name)
	event, err := hooks.ParseEvent(h.On)
	if err != nil {
		b.fail("%s: %w", id, err)
		return 0, nil, false
	}
	handler, ok := b.reg.Action(h.ActionType)
	if !ok {
		b.fail("%s: unknown action type %q (available: %v)", id, h.ActionType, b.reg.ActionNames())
		return 0, nil, false
	}
	var timeout time.Duration
	if h.Timeout != "" {
		if timeout, err = parseTimeout(h.Timeout); err != nil {
			b.fail("%s: %w", id, err)
		}
	}
	if err := b.conv.CheckArguments(handler.NewInput(), h.Arguments); err != nil {
		b.fail("%s: %w", id, err)
	}
	b.checkArguments(id, h.Arguments, true)
	return event, &boundHook{
		name:    h.Name,
		timeout: timeout,
		act:     &boundAction{id: id, handler: handler, args: h.Arguments, conv: b.conv},
	}, true
}

func parseTimeout(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q: %w", s, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid timeout %q: must not be negative", s)
	}
	return d, nil
}

func joinPath(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}
