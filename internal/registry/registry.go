package registry

import (
	"fmt"
	"log/slog"
	"sort"
)

// Module is the interface that all core modules must implement to be registered.
type Module interface {
	Register(r *Registry)
}

// Registry holds all the registered actions and preparers for a single
// application instance.
type Registry struct {
	actions   map[string]*RegisteredAction
	preparers map[string]*RegisteredPreparer
}

// New creates and initializes a new Registry instance.
func New() *Registry {
	return &Registry{
		actions:   make(map[string]*RegisteredAction),
		preparers: make(map[string]*RegisteredPreparer),
	}
}

// Load creates a registry and registers every module into it.
func Load(modules ...Module) *Registry {
	r := New()
	for _, m := range modules {
		m.Register(r)
	}
	return r
}

// RegisterAction registers an action under the type label name.
func (r *Registry) RegisterAction(name string, handler *RegisteredAction) {
	if _, exists := r.actions[name]; exists {
		panic(fmt.Sprintf("action with name '%s' already registered", name))
	}
	slog.Debug("Registering action.", "name", name)
	r.actions[name] = handler
}

// RegisterPreparer registers a preparer under the type label name.
func (r *Registry) RegisterPreparer(name string, handler *RegisteredPreparer) {
	if _, exists := r.preparers[name]; exists {
		panic(fmt.Sprintf("preparer with name '%s' already registered", name))
	}
	slog.Debug("Registering preparer.", "name", name)
	r.preparers[name] = handler
}

// Action looks up an action by name.
func (r *Registry) Action(name string) (*RegisteredAction, bool) {
	h, ok := r.actions[name]
	return h, ok
}

// Preparer looks up a preparer by name.
func (r *Registry) Preparer(name string) (*RegisteredPreparer, bool) {
	h, ok := r.preparers[name]
	return h, ok
}

// ActionNames returns the registered action names, sorted.
func (r *Registry) ActionNames() []string {
	return sortedKeys(r.actions)
}

// PreparerNames returns the registered preparer names, sorted.
func (r *Registry) PreparerNames() []string {
	return sortedKeys(r.preparers)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
