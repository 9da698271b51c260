// Package print provides the `print` action, which writes a message and an
// optional set of values to standard output.
package print

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"github.com/vk/stagegrid/internal/action"
	"github.com/vk/stagegrid/internal/ctxlog"
	"github.com/vk/stagegrid/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct {
	// Out receives the printed lines. Nil means os.Stdout.
	Out io.Writer

	mu sync.Mutex
}

// Input defines the arguments for the print action.
type Input struct {
	Message string            `stagegrid:"message,optional"`
	Values  map[string]string `stagegrid:"values,optional"`
}

// Run prints the message followed by the values, sorted by key.
func (m *Module) Run(ctx context.Context, env action.Env, input *Input) action.Result {
	ctxlog.FromContext(ctx).Debug("Printing input", "path", env.Path)

	out := m.Out
	if out == nil {
		out = os.Stdout
	}
	// Parallel stages share the writer; keep each block together.
	m.mu.Lock()
	defer m.mu.Unlock()

	if input.Message == "" && len(input.Values) == 0 {
		fmt.Fprintf(out, "[%s] (null)\n", env.Path)
		return action.Ok()
	}
	if input.Message != "" {
		fmt.Fprintf(out, "[%s] %s\n", env.Path, input.Message)
	}

	keys := make([]string, 0, len(input.Values))
	for k := range input.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(out, "      %s = %q\n", k, input.Values[k])
	}
	return action.Ok()
}

// Register registers the print action with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterAction("print", registry.NewAction("Prints a message and values to stdout.", m.Run))
}
