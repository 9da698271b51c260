package condition

import (
	"strings"

	"github.com/vk/stagegrid/internal/facts"
	"github.com/vk/stagegrid/internal/params"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// Functions returns the functions available to condition expressions.
func Functions(f facts.Reader, p *params.Values) map[string]function.Function {
	return map[string]function.Function{
		"has_fact": presenceFunc(f.Has),
		"has_param": presenceFunc(func(name string) bool {
			_, ok := p.Get(name)
			return ok
		}),
		"startswith": stringPredicateFunc(strings.HasPrefix),
		"endswith":   stringPredicateFunc(strings.HasSuffix),
		"contains":   stringPredicateFunc(strings.Contains),
		"lower":      stdlib.LowerFunc,
		"upper":      stdlib.UpperFunc,
	}
}

func presenceFunc(has func(string) bool) function.Function {
	return function.New(&function.Spec{
		Params: []function.Parameter{
			{Name: "name", Type: cty.String},
		},
		Type: function.StaticReturnType(cty.Bool),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			return cty.BoolVal(has(args[0].AsString())), nil
		},
	})
}

func stringPredicateFunc(pred func(s, sub string) bool) function.Function {
	return function.New(&function.Spec{
		Params: []function.Parameter{
			{Name: "str", Type: cty.String},
			{Name: "substr", Type: cty.String},
		},
		Type: function.StaticReturnType(cty.Bool),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			return cty.BoolVal(pred(args[0].AsString(), args[1].AsString())), nil
		},
	})
}
