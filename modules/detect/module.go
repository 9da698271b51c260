// Package detect provides the `detect` preparer, which inspects a project
// directory and records facts about its build layout.
package detect

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vk/stagegrid/internal/ctxlog"
	"github.com/vk/stagegrid/internal/facts"
	"github.com/vk/stagegrid/internal/params"
	"github.com/vk/stagegrid/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the detect preparer.
type Input struct {
	Dir string `stagegrid:"dir,optional"`
	// Prefix is prepended to every fact name.
	Prefix string `stagegrid:"prefix,optional"`
}

// SetDefaults implements registry.Defaulter.
func (in *Input) SetDefaults() {
	in.Dir = "."
}

// marker is a layout fact and the files that establish it.
type marker struct {
	fact        string
	projectType string
	files       []string
}

// markers are checked in order; the first match names the project type.
var markers = []marker{
	{fact: "isMaven", projectType: "maven", files: []string{"pom.xml"}},
	{fact: "isGradle", projectType: "gradle", files: []string{"build.gradle", "build.gradle.kts"}},
	{fact: "isNode", projectType: "node", files: []string{"package.json"}},
	{fact: "isGo", projectType: "go", files: []string{"go.mod"}},
	{fact: "isPython", projectType: "python", files: []string{"pyproject.toml", "setup.py", "requirements.txt"}},
	{fact: "hasDockerfile", files: []string{"Dockerfile"}},
}

// Prepare records one bool fact per marker plus projectType.
func (m *Module) Prepare(ctx context.Context, store *facts.Store, _ *params.Values, input *Input) error {
	logger := ctxlog.FromContext(ctx).With("preparer", "detect", "dir", input.Dir)

	info, err := os.Stat(input.Dir)
	if err != nil {
		return fmt.Errorf("detect: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("detect: %s is not a directory", input.Dir)
	}

	projectType := "unknown"
	var errs []error
	for _, mk := range markers {
		found := anyExists(input.Dir, mk.files)
		if found && mk.projectType != "" && projectType == "unknown" {
			projectType = mk.projectType
		}
		if err := store.SetBool(input.Prefix+mk.fact, found); err != nil {
			errs = append(errs, err)
		}
	}
	if err := store.SetString(input.Prefix+"projectType", projectType); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("detect: %w", err)
	}
	logger.Info("Detected project layout.", "projectType", projectType)
	return nil
}

// Register registers the detect preparer with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterPreparer("detect", registry.NewPreparer("Records facts about the project build layout.", m.Prepare))
}

func anyExists(dir string, names []string) bool {
	for _, name := range names {
		if info, err := os.Stat(filepath.Join(dir, name)); err == nil && !info.IsDir() {
			return true
		}
	}
	return false
}
