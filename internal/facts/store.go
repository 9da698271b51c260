package facts

import (
	"fmt"
	"sort"
	"sync"

	"github.com/zclconf/go-cty/cty"
)

// Reader is the read-only view of a Store handed to conditions and actions.
type Reader interface {
	Get(key string) (cty.Value, error)
	Has(key string) bool
	Keys() []string
	Snapshot() map[string]cty.Value
}

// Store is the append-only fact record of a single run.
type Store struct {
	mu     sync.RWMutex
	values map[string]cty.Value
}

// New creates an empty Store.
func New() *Store {
	return &Store{values: make(map[string]cty.Value)}
}

// Set records a new fact. Only known, non-null bool and string values are
// accepted, and a key can be written exactly once.
func (s *Store) Set(key string, value cty.Value) error {
	if key == "" {
		return fmt.Errorf("fact key cannot be empty")
	}
	if !value.IsKnown() || value.IsNull() {
		return fmt.Errorf("fact %q must have a known, non-null value", key)
	}
	if !value.Type().Equals(cty.Bool) && !value.Type().Equals(cty.String) {
		return fmt.Errorf("fact %q must be a bool or a string, got %s", key, value.Type().FriendlyName())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.values[key]; exists {
		return &DuplicateFactError{Key: key}
	}
	s.values[key] = value
	return nil
}

// SetBool is a convenience wrapper around Set for boolean facts.
func (s *Store) SetBool(key string, value bool) error {
	return s.Set(key, cty.BoolVal(value))
}

// SetString is a convenience wrapper around Set for string facts.
func (s *Store) SetString(key, value string) error {
	return s.Set(key, cty.StringVal(value))
}

// Get returns the value of a fact or a *MissingFactError.
func (s *Store) Get(key string) (cty.Value, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	if !ok {
		return cty.NilVal, &MissingFactError{Key: key}
	}
	return v, nil
}

// Has reports whether a fact is present.
func (s *Store) Has(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.values[key]
	return ok
}

// Keys returns all fact keys in sorted order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Snapshot returns a copy of every fact currently recorded.
func (s *Store) Snapshot() map[string]cty.Value {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]cty.Value, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Native converts a fact value into a plain Go bool or string.
func Native(v cty.Value) any {
	if v.Type().Equals(cty.Bool) {
		return v.True()
	}
	return v.AsString()
}

// Object returns the facts of r as a cty object, for use as the `fact`
// variable of an HCL evaluation context.
func Object(r Reader) cty.Value {
	snap := r.Snapshot()
	if len(snap) == 0 {
		return cty.EmptyObjectVal
	}
	return cty.ObjectVal(snap)
}

// FromNative rebuilds a Store from plain bool and string values, such as the
// facts recorded on a report.
func FromNative(values map[string]any) (*Store, error) {
	s := New()
	for k, v := range values {
		var err error
		switch tv := v.(type) {
		case bool:
			err = s.SetBool(k, tv)
		case string:
			err = s.SetString(k, tv)
		default:
			err = fmt.Errorf("fact %q has unsupported type %T", k, v)
		}
		if err != nil {
			return nil, err
		}
	}
	return s, nil
}
