// Package report renders run reports for humans and machines.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/vk/stagegrid/internal/pipeline"
	"github.com/vk/stagegrid/internal/verdict"
	"gopkg.in/yaml.v3"
)

// New creates a reporter for the given format writing to w.
func New(format string, w io.Writer) (pipeline.Reporter, error) {
	switch format {
	case "json":
		return &JSONReporter{w: w}, nil
	case "yaml":
		return &YAMLReporter{w: w}, nil
	case "text", "":
		return NewText(w), nil
	default:
		return nil, fmt.Errorf("unknown report format: %s (supported: text, json, yaml)", format)
	}
}

// JSONReporter writes the report as indented JSON.
type JSONReporter struct {
	w io.Writer
}

// Report implements pipeline.Reporter.
func (r *JSONReporter) Report(_ context.Context, rep verdict.Report) error {
	encoder := json.NewEncoder(r.w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(rep)
}

// YAMLReporter writes the report as YAML.
type YAMLReporter struct {
	w io.Writer
}

// Report implements pipeline.Reporter.
func (r *YAMLReporter) Report(_ context.Context, rep verdict.Report) error {
	encoder := yaml.NewEncoder(r.w)
	encoder.SetIndent(2)
	defer encoder.Close()
	return encoder.Encode(rep)
}

// FileReporter writes the report in a given format to a file, creating
// parent directories as needed.
type FileReporter struct {
	Path   string
	Format string
}

// Report implements pipeline.Reporter.
func (r *FileReporter) Report(ctx context.Context, rep verdict.Report) error {
	if err := os.MkdirAll(filepath.Dir(r.Path), 0o755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}
	f, err := os.Create(r.Path)
	if err != nil {
		return fmt.Errorf("creating report file: %w", err)
	}
	defer f.Close()

	inner, err := New(r.Format, f)
	if err != nil {
		return err
	}
	if err := inner.Report(ctx, rep); err != nil {
		return fmt.Errorf("writing %s report to %s: %w", r.Format, r.Path, err)
	}
	return f.Close()
}

var (
	_ pipeline.Reporter = (*JSONReporter)(nil)
	_ pipeline.Reporter = (*YAMLReporter)(nil)
	_ pipeline.Reporter = (*FileReporter)(nil)
	_ pipeline.Reporter = (*TextReporter)(nil)
)
