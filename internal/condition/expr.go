package condition

import (
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/vk/stagegrid/internal/facts"
	"github.com/vk/stagegrid/internal/params"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// Expr is a condition written as an HCL expression. The expression may
// reference `fact.<name>` and `param.<name>` and call the functions returned
// by Functions.
type Expr struct {
	expr hcl.Expression
}

// NewExpr wraps an already parsed HCL expression.
func NewExpr(expr hcl.Expression) *Expr {
	return &Expr{expr: expr}
}

// ParseExpr parses src as an HCL expression.
func ParseExpr(src string) (*Expr, error) {
	expr, diags := hclsyntax.ParseExpression([]byte(src), "when", hcl.InitialPos)
	if diags.HasErrors() {
		return nil, fmt.Errorf("invalid condition expression %q: %w", src, diags)
	}
	return &Expr{expr: expr}, nil
}

// String returns the source range of the expression.
func (e *Expr) String() string {
	return e.expr.Range().String()
}

// Evaluate checks every reference against the fact store and the declared
// parameters before evaluating the expression, so a misspelled name is
// always an error even when it sits in a branch that would not be taken.
func (e *Expr) Evaluate(f facts.Reader, p *params.Values) (bool, error) {
	if p == nil {
		p = params.Empty()
	}
	for _, traversal := range e.expr.Variables() {
		if err := checkReference(traversal, f, p); err != nil {
			return false, err
		}
	}

	evalCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"fact":  facts.Object(f),
			"param": p.Object(),
		},
		Functions: Functions(f, p),
	}

	val, diags := e.expr.Value(evalCtx)
	if diags.HasErrors() {
		return false, &ConditionError{Ref: e.String(), Err: diags}
	}
	if !val.IsKnown() || val.IsNull() {
		return false, &ConditionError{Ref: e.String(), Reason: "expression did not produce a value"}
	}
	boolVal, err := convert.Convert(val, cty.Bool)
	if err != nil {
		return false, &ConditionError{Ref: e.String(), Reason: fmt.Sprintf("expected a bool result, got %s", val.Type().FriendlyName())}
	}
	return boolVal.True(), nil
}

// checkReference validates a single `root.name` traversal.
func checkReference(traversal hcl.Traversal, f facts.Reader, p *params.Values) error {
	root := traversal.RootName()
	ref := traversalString(traversal)

	if root != "fact" && root != "param" {
		return &ConditionError{Ref: ref, Reason: fmt.Sprintf("unknown variable %q, expected fact or param", root)}
	}
	name, ok := secondStep(traversal)
	if !ok {
		return &ConditionError{Ref: ref, Reason: fmt.Sprintf("must reference a single %s by name", root)}
	}

	switch root {
	case "fact":
		if !f.Has(name) {
			return &ConditionError{Ref: ref, Reason: "undeclared fact", Err: &facts.MissingFactError{Key: name}}
		}
	case "param":
		if _, declared := p.Get(name); !declared {
			return &ConditionError{Ref: ref, Reason: "undeclared parameter"}
		}
	}
	return nil
}

// secondStep extracts the name from `fact.name` or `fact["name"]`.
func secondStep(traversal hcl.Traversal) (string, bool) {
	if len(traversal) < 2 {
		return "", false
	}
	switch step := traversal[1].(type) {
	case hcl.TraverseAttr:
		return step.Name, true
	case hcl.TraverseIndex:
		if step.Key.Type().Equals(cty.String) && step.Key.IsKnown() && !step.Key.IsNull() {
			return step.Key.AsString(), true
		}
	}
	return "", false
}

func traversalString(traversal hcl.Traversal) string {
	parts := []string{traversal.RootName()}
	if name, ok := secondStep(traversal); ok {
		parts = append(parts, name)
	}
	return strings.Join(parts, ".")
}
