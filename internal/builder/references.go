package builder

import (
	"fmt"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
)

// checkArguments scans every argument expression for references.
func (b *builder) checkArguments(owner string, args map[string]hcl.Expression, allowRun bool) {
	names := make([]string, 0, len(args))
	for name := range args {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		b.checkReferences(fmt.Sprintf("%s argument %q", owner, name), args[name], allowRun)
	}
}

// checkReferences verifies that an expression only refers to variables in
// scope and to declared parameters. Facts cannot be checked here because
// they only exist once the prepare phase has run.
func (b *builder) checkReferences(owner string, expr hcl.Expression, allowRun bool) {
	for _, traversal := range expr.Variables() {
		root := traversal.RootName()
		switch root {
		case "fact":
		case "param":
			name, ok := attrStep(traversal)
			if !ok {
				continue
			}
			if _, declared := b.declared[name]; !declared {
				b.fail("%s: reference to undeclared parameter %q at %s", owner, name, traversal.SourceRange())
			}
		case "run":
			if !allowRun {
				b.fail("%s: `run` is only available in hooks (at %s)", owner, traversal.SourceRange())
			}
		default:
			b.fail("%s: unknown variable %q at %s (expected fact.*, param.*%s)", owner, root, traversal.SourceRange(), runHint(allowRun))
		}
	}
}

// attrStep returns the name accessed directly under the traversal root.
func attrStep(traversal hcl.Traversal) (string, bool) {
	if len(traversal) < 2 {
		return "", false
	}
	switch step := traversal[1].(type) {
	case hcl.TraverseAttr:
		return step.Name, true
	case hcl.TraverseIndex:
		if step.Key.Type() == cty.String && step.Key.IsKnown() && !step.Key.IsNull() {
			return step.Key.AsString(), true
		}
	}
	return "", false
}

func runHint(allowRun bool) string {
	if allowRun {
		return " or run.*"
	}
	return ""
}
