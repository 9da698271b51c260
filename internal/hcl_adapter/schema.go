package hcl_adapter

import "github.com/hashicorp/hcl/v2"

// Top-level block types of a pipeline file.
const (
	blockPipeline  = "pipeline"
	blockParameter = "parameter"
	blockPrepare   = "prepare"
	blockSequence  = "sequence"
	blockParallel  = "parallel"
	blockStage     = "stage"
	blockHook      = "hook"
)

// fileSchema lists the blocks allowed at the top level of a file. Blocks are
// read with Content rather than gohcl so that their source order survives.
var fileSchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: blockPipeline, LabelNames: []string{"name"}},
		{Type: blockParameter, LabelNames: []string{"name"}},
		{Type: blockPrepare, LabelNames: []string{"type", "name"}},
		{Type: blockSequence, LabelNames: []string{"name"}},
		{Type: blockParallel, LabelNames: []string{"name"}},
		{Type: blockHook, LabelNames: []string{"type", "name"}},
	},
}

// groupSchema lists the members allowed inside a sequence or parallel block.
var groupSchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: blockStage, LabelNames: []string{"type", "name"}},
		{Type: blockSequence, LabelNames: []string{"name"}},
		{Type: blockParallel, LabelNames: []string{"name"}},
	},
}

// PipelineBlock is the optional `pipeline "name" {}` block.
type PipelineBlock struct {
	Description string `hcl:"description,optional"`
}

// ParameterBlock is a `parameter "name" {}` block.
type ParameterBlock struct {
	Type        hcl.Expression `hcl:"type,optional"`
	Default     hcl.Expression `hcl:"default,optional"`
	Description string         `hcl:"description,optional"`
}

// ArgumentsBlock holds the free-form `arguments {}` attributes.
type ArgumentsBlock struct {
	Body hcl.Body `hcl:",remain"`
}

// PrepareBlock is a `prepare "type" "name" {}` block.
type PrepareBlock struct {
	Arguments *ArgumentsBlock `hcl:"arguments,block"`
}

// StageBlock is a `stage "type" "name" {}` block.
type StageBlock struct {
	When            hcl.Expression  `hcl:"when,optional"`
	Timeout         string          `hcl:"timeout,optional"`
	ContinueOnError bool            `hcl:"continue_on_error,optional"`
	Arguments       *ArgumentsBlock `hcl:"arguments,block"`
}

// HookBlock is a `hook "type" "name" {}` block.
type HookBlock struct {
	On        string          `hcl:"on,optional"`
	Timeout   string          `hcl:"timeout,optional"`
	Arguments *ArgumentsBlock `hcl:"arguments,block"`
}
