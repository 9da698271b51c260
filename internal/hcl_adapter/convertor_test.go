package hcl_adapter

import (
	"context"
	"testing"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

type sampleInput struct {
	Command  string            `stagegrid:"command"`
	Shell    string            `stagegrid:"shell,optional"`
	Codes    []int             `stagegrid:"warn_exit_codes,optional"`
	Env      map[string]string `stagegrid:"env,optional"`
	Extra    map[string]any    `stagegrid:"extra,optional"`
	Verbose  bool              `stagegrid:"verbose,optional"`
	internal string
}

func parseArgs(t *testing.T, src map[string]string) map[string]hcl.Expression {
	t.Helper()
	args := make(map[string]hcl.Expression, len(src))
	for name, text := range src {
		expr, diags := hclsyntax.ParseExpression([]byte(text), name+".hcl", hcl.InitialPos)
		require.False(t, diags.HasErrors(), diags.Error())
		args[name] = expr
	}
	return args
}

func TestConverter_DecodeArguments(t *testing.T) {
	args := parseArgs(t, map[string]string{
		"command":         `"make ${param.target}"`,
		"warn_exit_codes": `[1, 2]`,
		"env":             `{ CI = "true", BRANCH = param.target }`,
		"extra":           `{ retries = 3, tags = ["a", "b"] }`,
		"verbose":         `fact.isMaven`,
	})
	evalCtx := &hcl.EvalContext{Variables: map[string]cty.Value{
		"param": cty.ObjectVal(map[string]cty.Value{"target": cty.StringVal("release")}),
		"fact":  cty.ObjectVal(map[string]cty.Value{"isMaven": cty.True}),
	}}

	in := &sampleInput{Shell: "sh"}
	require.NoError(t, NewConverter().DecodeArguments(context.Background(), in, args, evalCtx))

	assert.Equal(t, "make release", in.Command)
	assert.Equal(t, "sh", in.Shell, "omitted optional keeps its preset")
	assert.Equal(t, []int{1, 2}, in.Codes)
	assert.Equal(t, map[string]string{"CI": "true", "BRANCH": "release"}, in.Env)
	assert.Equal(t, map[string]any{"retries": int64(3), "tags": []any{"a", "b"}}, in.Extra)
	assert.True(t, in.Verbose)
}

func TestConverter_CheckArguments(t *testing.T) {
	conv := NewConverter()

	assert.NoError(t, conv.CheckArguments(&sampleInput{}, parseArgs(t, map[string]string{"command": `"x"`})))

	err := conv.CheckArguments(&sampleInput{}, parseArgs(t, map[string]string{"shell": `"bash"`}))
	assert.ErrorContains(t, err, `missing required argument "command"`)

	err = conv.CheckArguments(&sampleInput{}, parseArgs(t, map[string]string{"command": `"x"`, "comand": `"y"`}))
	assert.ErrorContains(t, err, "unsupported argument(s) comand")

	assert.Error(t, conv.CheckArguments(sampleInput{}, nil))
	assert.NoError(t, conv.CheckArguments(&struct{}{}, nil))
}

func TestConverter_DecodeTypeMismatch(t *testing.T) {
	args := parseArgs(t, map[string]string{"command": `"x"`, "warn_exit_codes": `"not a list"`})
	err := NewConverter().DecodeArguments(context.Background(), &sampleInput{}, args, nil)
	assert.ErrorContains(t, err, "warn_exit_codes")
}

func TestConverter_ToCtyValue(t *testing.T) {
	v, err := NewConverter().ToCtyValue(map[string]string{"a": "b"})
	require.NoError(t, err)
	assert.Equal(t, cty.MapVal(map[string]cty.Value{"a": cty.StringVal("b")}), v)

	v, err = NewConverter().ToCtyValue(nil)
	require.NoError(t, err)
	assert.Equal(t, cty.NilVal, v)
}
