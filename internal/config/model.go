package config

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
)

// Group kinds.
const (
	KindSequence = "sequence"
	KindParallel = "parallel"
)

// Model is the unified, format-agnostic representation of a pipeline
// definition, merged from every source file.
type Model struct {
	Name        string
	Description string
	Parameters  []*Parameter
	Prepares    []*Prepare
	Groups      []*Group
	Hooks       []*Hook
}

// Parameter is a declared run parameter.
type Parameter struct {
	Name        string
	Type        cty.Type
	Default     *cty.Value
	Description string
}

// Prepare is a configured fact preparer.
type Prepare struct {
	PreparerType string
	Name         string
	Arguments    map[string]hcl.Expression
}

// Group is a `sequence` or `parallel` block.
type Group struct {
	Kind    string
	Name    string
	Members []*Member
}

// Member is exactly one of a stage or a nested group, in source order.
type Member struct {
	Stage *Stage
	Group *Group
}

// Stage is the format-agnostic representation of a `stage` block.
type Stage struct {
	ActionType      string
	Name            string
	When            hcl.Expression
	Timeout         string
	ContinueOnError bool
	Arguments       map[string]hcl.Expression
}

// Hook is the format-agnostic representation of a `hook` block.
type Hook struct {
	ActionType string
	Name       string
	On         string
	Timeout    string
	Arguments  map[string]hcl.Expression
}

// StageCount returns the number of stages in the model.
func (m *Model) StageCount() int {
	n := 0
	var walk func(g *Group)
	walk = func(g *Group) {
		for _, mem := range g.Members {
			if mem.Stage != nil {
				n++
			} else if mem.Group != nil {
				walk(mem.Group)
			}
		}
	}
	for _, g := range m.Groups {
		walk(g)
	}
	return n
}
