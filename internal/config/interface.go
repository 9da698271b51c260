package config

import (
	"context"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
)

// Loader is the interface for a format-specific configuration loader.
type Loader interface {
	// Load reads pipeline definitions from the given paths, translates them
	// into the format-agnostic model, and returns a matching Converter.
	Load(ctx context.Context, paths ...string) (*Model, Converter, error)
}

// Converter is the interface for a format-specific data binding and type
// conversion implementation. It acts as the bridge between the raw
// configuration and the Go input structs of actions and preparers.
type Converter interface {
	// CheckArguments statically verifies that args fit the input struct:
	// every argument is known and every required argument is present.
	CheckArguments(inputStruct any, args map[string]hcl.Expression) error

	// DecodeArguments evaluates args in evalCtx and decodes them into the
	// input struct, which must be a non-nil pointer.
	DecodeArguments(ctx context.Context, inputStruct any, args map[string]hcl.Expression, evalCtx *hcl.EvalContext) error

	// ToCtyValue converts a native Go value into its equivalent cty.Value.
	ToCtyValue(v any) (cty.Value, error)
}
