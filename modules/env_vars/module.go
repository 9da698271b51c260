// Package env_vars provides the `env` preparer, which turns environment
// variables into facts.
package env_vars

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/vk/stagegrid/internal/ctxlog"
	"github.com/vk/stagegrid/internal/facts"
	"github.com/vk/stagegrid/internal/params"
	"github.com/vk/stagegrid/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct {
	// LookupEnv reads a variable. Nil means os.LookupEnv.
	LookupEnv func(key string) (string, bool)
}

// Input defines the arguments for the env preparer. Both maps go from fact
// name to environment variable name.
type Input struct {
	// Presence facts are true when the variable is set and not blank.
	Presence map[string]string `stagegrid:"presence,optional"`
	// Values facts hold the variable's value, or Default when it is unset.
	Values  map[string]string `stagegrid:"values,optional"`
	Default string            `stagegrid:"default,optional"`
}

// Prepare records one fact per mapping, in fact-name order.
func (m *Module) Prepare(ctx context.Context, store *facts.Store, _ *params.Values, input *Input) error {
	logger := ctxlog.FromContext(ctx).With("preparer", "env")
	lookup := m.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}

	var errs []error
	for _, name := range sortedKeys(input.Presence) {
		v, ok := lookup(input.Presence[name])
		present := ok && strings.TrimSpace(v) != ""
		logger.Debug("Recording presence fact.", "fact", name, "variable", input.Presence[name], "present", present)
		if err := store.SetBool(name, present); err != nil {
			errs = append(errs, err)
		}
	}
	for _, name := range sortedKeys(input.Values) {
		v, ok := lookup(input.Values[name])
		if !ok {
			v = input.Default
		}
		if err := store.SetString(name, v); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("env: %w", err)
	}
	return nil
}

// Register registers the env preparer with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterPreparer("env", registry.NewPreparer("Records facts from environment variables.", m.Prepare))
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
