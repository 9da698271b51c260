package hcl_adapter

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/stagegrid/internal/config"
	"github.com/vk/stagegrid/internal/ctxlog"
	"github.com/vk/stagegrid/internal/fsutil"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new HCL configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses every .hcl file found under paths and merges their blocks into
// a single model. Files are processed in lexical order, so groups declared
// across several files run in file order.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, config.Converter, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	files, err := fsutil.FindHCLFiles(paths...)
	if err != nil {
		return nil, nil, err
	}
	if len(files) == 0 {
		return nil, nil, fmt.Errorf("no .hcl files found in %v", paths)
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	model := &config.Model{}
	parser := hclparse.NewParser()
	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}
		if err := l.loadFile(ctx, hclFile.Body, model); err != nil {
			return nil, nil, fmt.Errorf("failed to decode HCL file %s: %w", file, err)
		}
	}
	if model.Name == "" {
		model.Name = defaultName(paths)
	}

	logger.Debug("HCL loading complete.",
		"pipeline", model.Name,
		"parameters", len(model.Parameters),
		"prepares", len(model.Prepares),
		"groups", len(model.Groups),
		"stages", model.StageCount(),
		"hooks", len(model.Hooks),
	)
	return model, NewConverter(), nil
}

func (l *Loader) loadFile(ctx context.Context, body hcl.Body, model *config.Model) error {
	content, diags := body.Content(fileSchema)
	if diags.HasErrors() {
		return diags
	}

	for _, block := range content.Blocks {
		switch block.Type {
		case blockPipeline:
			if model.Name != "" {
				return fmt.Errorf("%s: pipeline name already declared as %q", block.DefRange, model.Name)
			}
			var pb PipelineBlock
			if diags := gohcl.DecodeBody(block.Body, nil, &pb); diags.HasErrors() {
				return diags
			}
			model.Name = block.Labels[0]
			model.Description = pb.Description

		case blockParameter:
			var pb ParameterBlock
			if diags := gohcl.DecodeBody(block.Body, nil, &pb); diags.HasErrors() {
				return diags
			}
			param, err := translateParameter(ctx, block.Labels[0], &pb)
			if err != nil {
				return err
			}
			model.Parameters = append(model.Parameters, param)

		case blockPrepare:
			var pb PrepareBlock
			if diags := gohcl.DecodeBody(block.Body, nil, &pb); diags.HasErrors() {
				return diags
			}
			model.Prepares = append(model.Prepares, translatePrepare(block.Labels[0], block.Labels[1], &pb))

		case blockSequence, blockParallel:
			group, err := l.loadGroup(ctx, block)
			if err != nil {
				return err
			}
			model.Groups = append(model.Groups, group)

		case blockHook:
			var hb HookBlock
			if diags := gohcl.DecodeBody(block.Body, nil, &hb); diags.HasErrors() {
				return diags
			}
			model.Hooks = append(model.Hooks, translateHook(block.Labels[0], block.Labels[1], &hb))
		}
	}
	return nil
}

// loadGroup reads a sequence or parallel block, keeping its members in
// source order.
func (l *Loader) loadGroup(ctx context.Context, block *hcl.Block) (*config.Group, error) {
	group := &config.Group{Kind: block.Type, Name: block.Labels[0]}
	logger := ctxlog.FromContext(ctx).With("group", group.Name, "kind", group.Kind)
	logger.Debug("Loading group.")

	content, diags := block.Body.Content(groupSchema)
	if diags.HasErrors() {
		return nil, diags
	}
	for _, inner := range content.Blocks {
		switch inner.Type {
		case blockStage:
			var sb StageBlock
			if diags := gohcl.DecodeBody(inner.Body, nil, &sb); diags.HasErrors() {
				return nil, diags
			}
			stage := translateStage(ctxlog.WithLogger(ctx, logger), inner.Labels[0], inner.Labels[1], &sb)
			group.Members = append(group.Members, &config.Member{Stage: stage})
		default:
			nested, err := l.loadGroup(ctx, inner)
			if err != nil {
				return nil, err
			}
			group.Members = append(group.Members, &config.Member{Group: nested})
		}
	}
	return group, nil
}

func defaultName(paths []string) string {
	if len(paths) == 0 {
		return "pipeline"
	}
	abs, err := filepath.Abs(paths[0])
	if err != nil {
		return filepath.Base(paths[0])
	}
	name := filepath.Base(abs)
	if ext := filepath.Ext(name); ext == ".hcl" {
		name = name[:len(name)-len(ext)]
	}
	return name
}
