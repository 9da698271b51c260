// This file contains the logic for parsing parameter type expressions
// (`string`, `bool`) into their corresponding cty.Type objects.

package hcl_adapter

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/vk/stagegrid/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
)

// typeExprToCtyType converts an HCL type keyword into its cty.Type
// equivalent. Run parameters are scalar, so type constructors such as
// list(string) are rejected here with a clear message.
func typeExprToCtyType(ctx context.Context, expr hcl.Expression) (cty.Type, error) {
	logger := ctxlog.FromContext(ctx)

	switch v := expr.(type) {
	case *hclsyntax.ScopeTraversalExpr:
		if len(v.Traversal) != 1 {
			return cty.NilType, fmt.Errorf("invalid type keyword: traversal path is not a single identifier")
		}
		rootName := v.Traversal.RootName()
		logger.Debug("Parsing type expression as a primitive.", "keyword", rootName)
		switch rootName {
		case "string":
			return cty.String, nil
		case "bool":
			return cty.Bool, nil
		case "number", "any":
			return cty.NilType, fmt.Errorf("type %q is not supported for parameters (use string or bool)", rootName)
		default:
			return cty.NilType, fmt.Errorf("unknown primitive type %q", rootName)
		}

	case *hclsyntax.FunctionCallExpr:
		return cty.NilType, fmt.Errorf("type constructor %s() is not supported for parameters (use string or bool)", v.Name)

	case *hclsyntax.TemplateExpr:
		// Accept the quoted form, type = "string".
		val, diags := v.Value(nil)
		if diags.HasErrors() || !val.Type().Equals(cty.String) || val.IsNull() {
			return cty.NilType, fmt.Errorf("invalid type expression")
		}
		switch val.AsString() {
		case "string":
			return cty.String, nil
		case "bool":
			return cty.Bool, nil
		default:
			return cty.NilType, fmt.Errorf("unknown primitive type %q", val.AsString())
		}

	default:
		return cty.NilType, fmt.Errorf("unsupported expression for type definition: %T", v)
	}
}
