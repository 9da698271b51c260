package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/stagegrid/internal/facts"
	"github.com/vk/stagegrid/internal/hooks"
	"github.com/vk/stagegrid/internal/params"
	"github.com/vk/stagegrid/internal/stage"
	"github.com/vk/stagegrid/internal/verdict"
)

// Preparer populates the fact store before the first group runs.
type Preparer interface {
	Prepare(ctx context.Context, store *facts.Store, p *params.Values) error
}

// PreparerFunc adapts a function to the Preparer interface.
type PreparerFunc func(ctx context.Context, store *facts.Store, p *params.Values) error

// Prepare calls fn.
func (fn PreparerFunc) Prepare(ctx context.Context, store *facts.Store, p *params.Values) error {
	return fn(ctx, store, p)
}

// NamedPreparer labels a preparer for logs and errors.
type NamedPreparer struct {
	Name     string
	Preparer Preparer
}

// PrepareError wraps a failure of the prepare phase.
type PrepareError struct {
	Preparer string
	Err      error
}

func (e *PrepareError) Error() string {
	return fmt.Sprintf("prepare %q failed: %v", e.Preparer, e.Err)
}

func (e *PrepareError) Unwrap() error { return e.Err }

// Reporter receives the final report of a run.
type Reporter interface {
	Report(ctx context.Context, report verdict.Report) error
}

// ReporterFunc adapts a function to the Reporter interface.
type ReporterFunc func(ctx context.Context, report verdict.Report) error

// Report calls fn.
func (fn ReporterFunc) Report(ctx context.Context, report verdict.Report) error {
	return fn(ctx, report)
}

// Observer is notified of run progress. Implementations must be safe for
// concurrent use since parallel stages report concurrently.
type Observer interface {
	RunStarted(pipeline string)
	StageStarted(path string)
	StageFinished(outcome stage.Outcome)
	RunFinished(report verdict.Report)
}

// NopObserver ignores every notification.
type NopObserver struct{}

func (NopObserver) RunStarted(string) {}
func (NopObserver) StageStarted(string) {}
func (NopObserver) StageFinished(stage.Outcome) {}
func (NopObserver) RunFinished(verdict.Report) {}

// Pipeline is a complete, static pipeline definition.
type Pipeline struct {
	Name       string
	Parameters []params.Declaration
	Preparers  []NamedPreparer
	Groups     []Group
	Hooks      *hooks.Set
	Reporters  []Reporter
}

// Validate checks the pipeline definition.
func (p *Pipeline) Validate() error {
	seen := make(map[string]struct{}, len(p.Groups))
	for i := range p.Groups {
		g := &p.Groups[i]
		if err := g.Validate(); err != nil {
			return err
		}
		if _, dup := seen[g.Name]; dup {
			return fmt.Errorf("duplicate top-level group name %q", g.Name)
		}
		seen[g.Name] = struct{}{}
	}
	for i, prep := range p.Preparers {
		if prep.Preparer == nil {
			return fmt.Errorf("preparer %d (%q) is nil", i, prep.Name)
		}
	}
	for i, r := range p.Reporters {
		if r == nil {
			return fmt.Errorf("reporter %d is nil", i)
		}
	}
	if len(p.Groups) == 0 {
		return errors.New("pipeline has no groups")
	}
	return nil
}

// StagePaths lists every stage path in the pipeline in declared order.
func (p *Pipeline) StagePaths() []string {
	var paths []string
	for i := range p.Groups {
		paths = append(paths, p.Groups[i].StagePaths("")...)
	}
	return paths
}
