// Package params implements the run configuration surface: named parameters
// with a declared type and default, resolved once at run start into an
// immutable set of RunParameters.
package params

import (
	"fmt"
	"sort"
	"strings"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// ConfigError reports an invalid parameter declaration or invocation value.
type ConfigError struct {
	Parameter string
	Reason    string
}

func (e *ConfigError) Error() string {
	if e.Parameter == "" {
		return fmt.Sprintf("invalid run configuration: %s", e.Reason)
	}
	return fmt.Sprintf("invalid parameter %q: %s", e.Parameter, e.Reason)
}

// Declaration describes a single run parameter.
type Declaration struct {
	Name        string
	Type        cty.Type
	Default     cty.Value
	Description string
}

// Values is the immutable, resolved set of run parameters.
type Values struct {
	values map[string]cty.Value
}

// Empty returns a parameter set with no declarations.
func Empty() *Values {
	return &Values{values: map[string]cty.Value{}}
}

// Resolve validates the declarations, applies the overrides on top of the
// declared defaults and returns the resulting immutable set. Overrides for
// parameters that were never declared are rejected.
func Resolve(decls []Declaration, overrides map[string]string) (*Values, error) {
	values := make(map[string]cty.Value, len(decls))

	for _, d := range decls {
		if d.Name == "" {
			return nil, &ConfigError{Reason: "parameter declaration without a name"}
		}
		if _, dup := values[d.Name]; dup {
			return nil, &ConfigError{Parameter: d.Name, Reason: "declared more than once"}
		}
		if !d.Type.Equals(cty.String) && !d.Type.Equals(cty.Bool) {
			return nil, &ConfigError{Parameter: d.Name, Reason: fmt.Sprintf("type must be string or bool, got %s", d.Type.FriendlyName())}
		}

		def := d.Default
		if def.Type() == cty.NilType || def.IsNull() {
			def = zeroValue(d.Type)
		}
		converted, err := convert.Convert(def, d.Type)
		if err != nil {
			return nil, &ConfigError{Parameter: d.Name, Reason: fmt.Sprintf("default does not match type %s: %v", d.Type.FriendlyName(), err)}
		}
		values[d.Name] = converted
	}

	for name, raw := range overrides {
		declared, ok := values[name]
		if !ok {
			return nil, &ConfigError{Parameter: name, Reason: "unknown parameter"}
		}
		v, err := convert.Convert(cty.StringVal(raw), declared.Type())
		if err != nil {
			return nil, &ConfigError{Parameter: name, Reason: fmt.Sprintf("cannot use %q as %s", raw, declared.Type().FriendlyName())}
		}
		values[name] = v
	}

	return &Values{values: values}, nil
}

// ParseOverrides turns "name=value" pairs into an override map.
func ParseOverrides(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		name, value, ok := strings.Cut(p, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, &ConfigError{Reason: fmt.Sprintf("malformed parameter %q, expected name=value", p)}
		}
		if _, dup := out[name]; dup {
			return nil, &ConfigError{Parameter: name, Reason: "given more than once"}
		}
		out[name] = value
	}
	return out, nil
}

// Get returns the value of a declared parameter.
func (v *Values) Get(name string) (cty.Value, bool) {
	if v == nil {
		return cty.NilVal, false
	}
	val, ok := v.values[name]
	return val, ok
}

// Names returns the declared parameter names in sorted order.
func (v *Values) Names() []string {
	if v == nil {
		return nil
	}
	names := make([]string, 0, len(v.values))
	for n := range v.values {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Object returns the parameters as a cty object, ready for HCL evaluation.
func (v *Values) Object() cty.Value {
	if v == nil || len(v.values) == 0 {
		return cty.EmptyObjectVal
	}
	attrs := make(map[string]cty.Value, len(v.values))
	for k, val := range v.values {
		attrs[k] = val
	}
	return cty.ObjectVal(attrs)
}

// Native returns the parameters as plain Go values, for reports.
func (v *Values) Native() map[string]any {
	if v == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(v.values))
	for k, val := range v.values {
		if val.Type().Equals(cty.Bool) {
			out[k] = val.True()
		} else {
			out[k] = val.AsString()
		}
	}
	return out
}

// FromNative rebuilds resolved parameters from plain bool and string values,
// such as the parameters recorded on a report.
func FromNative(values map[string]any) (*Values, error) {
	out := make(map[string]cty.Value, len(values))
	for k, v := range values {
		switch tv := v.(type) {
		case bool:
			out[k] = cty.BoolVal(tv)
		case string:
			out[k] = cty.StringVal(tv)
		default:
			return nil, &ConfigError{Parameter: k, Reason: fmt.Sprintf("unsupported value type %T", v)}
		}
	}
	return &Values{values: out}, nil
}

func zeroValue(t cty.Type) cty.Value {
	if t.Equals(cty.Bool) {
		return cty.False
	}
	return cty.StringVal("")
}
