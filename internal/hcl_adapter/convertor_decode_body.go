package hcl_adapter

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/stagegrid/internal/ctxlog"
)

// argTag is the struct tag naming an input field's argument.
const argTag = "stagegrid"

// inputField describes one tagged field of an input struct.
type inputField struct {
	name     string
	optional bool
	index    int
}

// inputFields lists the tagged fields of an input struct type.
func inputFields(structType reflect.Type) []inputField {
	var fields []inputField
	for i := 0; i < structType.NumField(); i++ {
		fieldDef := structType.Field(i)
		if !fieldDef.IsExported() {
			continue
		}
		tag := fieldDef.Tag.Get(argTag)
		parts := strings.Split(tag, ",")
		if parts[0] == "" || parts[0] == "-" {
			continue
		}
		f := inputField{name: parts[0], index: i}
		for _, opt := range parts[1:] {
			if opt == "optional" {
				f.optional = true
			}
		}
		fields = append(fields, f)
	}
	return fields
}

func structTypeOf(inputStruct any) (reflect.Type, error) {
	t := reflect.TypeOf(inputStruct)
	if t == nil || t.Kind() != reflect.Ptr || t.Elem().Kind() != reflect.Struct {
		return nil, fmt.Errorf("inputStruct must be a pointer to a struct, got %T", inputStruct)
	}
	return t.Elem(), nil
}

// CheckArguments verifies that every argument maps to a tagged field and
// that every required field has an argument.
func (c *Converter) CheckArguments(inputStruct any, args map[string]hcl.Expression) error {
	structType, err := structTypeOf(inputStruct)
	if err != nil {
		return err
	}
	fields := inputFields(structType)
	known := make(map[string]struct{}, len(fields))
	var names []string
	for _, f := range fields {
		known[f.name] = struct{}{}
		names = append(names, f.name)
		if _, ok := args[f.name]; !ok && !f.optional {
			return fmt.Errorf("missing required argument %q", f.name)
		}
	}
	var unknown []string
	for name := range args {
		if _, ok := known[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		sort.Strings(names)
		return fmt.Errorf("unsupported argument(s) %s; expected one of [%s]", strings.Join(unknown, ", "), strings.Join(names, ", "))
	}
	return nil
}

// DecodeArguments iterates through the tagged fields of a Go struct, finds
// the corresponding HCL arguments, evaluates them and uses the recursive
// `decode` helper to populate the fields. Omitted optional fields keep the
// value they already hold, so callers can pre-fill defaults.
func (c *Converter) DecodeArguments(ctx context.Context, inputStruct any, args map[string]hcl.Expression, evalCtx *hcl.EvalContext) error {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Starting HCL argument decoding.")

	if err := c.CheckArguments(inputStruct, args); err != nil {
		return err
	}
	structVal := reflect.ValueOf(inputStruct)
	if structVal.IsNil() {
		return fmt.Errorf("inputStruct must be a non-nil pointer")
	}
	structVal = structVal.Elem()

	for _, f := range inputFields(structVal.Type()) {
		argExpr, provided := args[f.name]
		if !provided {
			continue
		}
		val, diags := argExpr.Value(evalCtx)
		if diags.HasErrors() {
			return diags
		}
		if err := c.decode(ctx, val, structVal.Field(f.index)); err != nil {
			return fmt.Errorf("failed to decode argument '%s': %w", f.name, err)
		}
	}
	logger.Debug("Finished HCL argument decoding successfully.")
	return nil
}
