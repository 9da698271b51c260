// Package static provides the `static` preparer, which records literal facts
// declared in the pipeline file.
package static

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/vk/stagegrid/internal/facts"
	"github.com/vk/stagegrid/internal/params"
	"github.com/vk/stagegrid/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the static preparer.
type Input struct {
	Facts map[string]any `stagegrid:"facts"`
}

// Prepare records every entry of Facts. Values must be bools or strings.
func (m *Module) Prepare(_ context.Context, store *facts.Store, _ *params.Values, input *Input) error {
	keys := make([]string, 0, len(input.Facts))
	for k := range input.Facts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var errs []error
	for _, k := range keys {
		var err error
		switch v := input.Facts[k].(type) {
		case bool:
			err = store.SetBool(k, v)
		case string:
			err = store.SetString(k, v)
		default:
			err = fmt.Errorf("fact %q must be a bool or a string, got %T", k, v)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("static: %w", err)
	}
	return nil
}

// Register registers the static preparer with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterPreparer("static", registry.NewPreparer("Records literal facts.", m.Prepare))
}
