// This file contains the logic for translating decoded HCL blocks into the
// format-agnostic configuration model defined in the config package.

package hcl_adapter

import (
	"context"
	"fmt"

	"github.com/vk/stagegrid/internal/config"
	"github.com/vk/stagegrid/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
)

// translateParameter converts a parameter block, evaluating its type and
// default as constants.
func translateParameter(ctx context.Context, name string, p *ParameterBlock) (*config.Parameter, error) {
	logger := ctxlog.FromContext(ctx).With("parameter", name)
	logger.Debug("Translating HCL parameter to internal config model.")

	out := &config.Parameter{Name: name, Description: p.Description, Type: cty.String}
	if isExprDefined(ctx, p.Type, "type") {
		t, err := typeExprToCtyType(ctx, p.Type)
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", name, err)
		}
		out.Type = t
	}
	if isExprDefined(ctx, p.Default, "default") {
		val, diags := p.Default.Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("invalid default value for parameter %q: %w", name, diags)
		}
		if !val.IsNull() {
			out.Default = &val
			if !isExprDefined(ctx, p.Type, "type") {
				out.Type = val.Type()
			}
		}
	}
	return out, nil
}

func translatePrepare(preparerType, name string, p *PrepareBlock) *config.Prepare {
	return &config.Prepare{
		PreparerType: preparerType,
		Name:         name,
		Arguments:    extractArguments(p.Arguments),
	}
}

// translateStage converts a stage block. An omitted `when` is left nil.
func translateStage(ctx context.Context, actionType, name string, s *StageBlock) *config.Stage {
	logger := ctxlog.FromContext(ctx).With("stage_action", actionType, "stage_name", name)
	ctx = ctxlog.WithLogger(ctx, logger)
	logger.Debug("Translating HCL stage to internal config model.")

	st := &config.Stage{
		ActionType:      actionType,
		Name:            name,
		Timeout:         s.Timeout,
		ContinueOnError: s.ContinueOnError,
		Arguments:       extractArguments(s.Arguments),
	}
	if isExprDefined(ctx, s.When, "when") {
		st.When = s.When
	}
	return st
}

func translateHook(actionType, name string, h *HookBlock) *config.Hook {
	on := h.On
	if on == "" {
		on = "always"
	}
	return &config.Hook{
		ActionType: actionType,
		Name:       name,
		On:         on,
		Timeout:    h.Timeout,
		Arguments:  extractArguments(h.Arguments),
	}
}
