package condition

import (
	"errors"
	"fmt"

	"github.com/vk/stagegrid/internal/facts"
	"github.com/vk/stagegrid/internal/params"
	"github.com/zclconf/go-cty/cty"
)

// ConditionError reports a condition that could not be evaluated.
type ConditionError struct {
	Ref    string
	Reason string
	Err    error
}

func (e *ConditionError) Error() string {
	msg := "condition error"
	if e.Ref != "" {
		msg = fmt.Sprintf("condition error at %s", e.Ref)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConditionError) Unwrap() error { return e.Err }

// Condition decides whether a stage runs.
type Condition interface {
	Evaluate(f facts.Reader, p *params.Values) (bool, error)
}

// Func adapts an ordinary function to the Condition interface.
type Func func(f facts.Reader, p *params.Values) (bool, error)

// Evaluate calls fn.
func (fn Func) Evaluate(f facts.Reader, p *params.Values) (bool, error) {
	return fn(f, p)
}

var (
	// Always is satisfied unconditionally.
	Always Condition = Func(func(facts.Reader, *params.Values) (bool, error) { return true, nil })
	// Never is never satisfied.
	Never Condition = Func(func(facts.Reader, *params.Values) (bool, error) { return false, nil })
)

// Fact is satisfied when the boolean fact key is true.
func Fact(key string) Condition {
	return Func(func(f facts.Reader, _ *params.Values) (bool, error) {
		v, err := lookupFact(f, key)
		if err != nil {
			return false, err
		}
		if !v.Type().Equals(cty.Bool) {
			return false, &ConditionError{Ref: "fact." + key, Reason: fmt.Sprintf("expected a bool fact, got %s", v.Type().FriendlyName())}
		}
		return v.True(), nil
	})
}

// FactEquals is satisfied when fact key equals want.
func FactEquals(key string, want cty.Value) Condition {
	return Func(func(f facts.Reader, _ *params.Values) (bool, error) {
		v, err := lookupFact(f, key)
		if err != nil {
			return false, err
		}
		return v.RawEquals(want), nil
	})
}

// HasFact is satisfied when fact key is present. It never fails.
func HasFact(key string) Condition {
	return Func(func(f facts.Reader, _ *params.Values) (bool, error) {
		return f.Has(key), nil
	})
}

// Param is satisfied when the boolean parameter name is true.
func Param(name string) Condition {
	return Func(func(_ facts.Reader, p *params.Values) (bool, error) {
		v, err := lookupParam(p, name)
		if err != nil {
			return false, err
		}
		if !v.Type().Equals(cty.Bool) {
			return false, &ConditionError{Ref: "param." + name, Reason: fmt.Sprintf("expected a bool parameter, got %s", v.Type().FriendlyName())}
		}
		return v.True(), nil
	})
}

// ParamEquals is satisfied when parameter name equals want.
func ParamEquals(name string, want cty.Value) Condition {
	return Func(func(_ facts.Reader, p *params.Values) (bool, error) {
		v, err := lookupParam(p, name)
		if err != nil {
			return false, err
		}
		return v.RawEquals(want), nil
	})
}

// And is satisfied when every operand is satisfied. All operands are
// evaluated; the first error wins.
func And(conds ...Condition) Condition {
	return Func(func(f facts.Reader, p *params.Values) (bool, error) {
		results, err := evaluateAll(conds, f, p)
		if err != nil {
			return false, err
		}
		for _, r := range results {
			if !r {
				return false, nil
			}
		}
		return true, nil
	})
}

// Or is satisfied when at least one operand is satisfied. All operands are
// evaluated; the first error wins.
func Or(conds ...Condition) Condition {
	return Func(func(f facts.Reader, p *params.Values) (bool, error) {
		results, err := evaluateAll(conds, f, p)
		if err != nil {
			return false, err
		}
		for _, r := range results {
			if r {
				return true, nil
			}
		}
		return false, nil
	})
}

// Not negates c.
func Not(c Condition) Condition {
	return Func(func(f facts.Reader, p *params.Values) (bool, error) {
		ok, err := Evaluate(c, f, p)
		if err != nil {
			return false, err
		}
		return !ok, nil
	})
}

// Evaluate runs c, treating a nil condition as Always. Errors that are not
// already a *ConditionError are wrapped in one.
func Evaluate(c Condition, f facts.Reader, p *params.Values) (bool, error) {
	if c == nil {
		return true, nil
	}
	if p == nil {
		p = params.Empty()
	}
	ok, err := c.Evaluate(f, p)
	if err != nil {
		var condErr *ConditionError
		if !errors.As(err, &condErr) {
			err = &ConditionError{Err: err}
		}
		return false, err
	}
	return ok, nil
}

func evaluateAll(conds []Condition, f facts.Reader, p *params.Values) ([]bool, error) {
	results := make([]bool, len(conds))
	var firstErr error
	for i, c := range conds {
		ok, err := Evaluate(c, f, p)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		results[i] = ok
	}
	return results, firstErr
}

func lookupFact(f facts.Reader, key string) (cty.Value, error) {
	v, err := f.Get(key)
	if err != nil {
		return cty.NilVal, &ConditionError{Ref: "fact." + key, Reason: "undeclared fact", Err: err}
	}
	return v, nil
}

func lookupParam(p *params.Values, name string) (cty.Value, error) {
	if p == nil {
		p = params.Empty()
	}
	v, ok := p.Get(name)
	if !ok {
		return cty.NilVal, &ConditionError{Ref: "param." + name, Reason: "undeclared parameter"}
	}
	return v, nil
}
