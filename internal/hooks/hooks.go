// Package hooks dispatches finalization hooks once a run's verdict is known.
//
// The hooks registered for Always run first, then the hooks registered for
// the event matching the verdict. Hooks are best effort: their errors,
// panics and timeouts are logged and collected but never change the verdict.
package hooks

import (
	"context"
	"fmt"

	"github.com/vk/stagegrid/internal/verdict"
)

// Event selects when a hook fires.
type Event int

const (
	Always Event = iota
	OnSuccess
	OnUnstable
	OnFailure
)

var eventNames = []string{"always", "success", "unstable", "failure"}

func (e Event) String() string {
	if int(e) >= 0 && int(e) < len(eventNames) {
		return eventNames[e]
	}
	return fmt.Sprintf("event(%d)", int(e))
}

// ParseEvent parses the textual form used in pipeline files.
func ParseEvent(s string) (Event, error) {
	for i, name := range eventNames {
		if name == s {
			return Event(i), nil
		}
	}
	return 0, fmt.Errorf("unknown hook event %q (expected one of always, success, unstable, failure)", s)
}

// EventFor maps a verdict to its hook event.
func EventFor(v verdict.Verdict) Event {
	switch v {
	case verdict.Success:
		return OnSuccess
	case verdict.Unstable:
		return OnUnstable
	default:
		return OnFailure
	}
}

// Hook is a finalization action.
type Hook interface {
	Name() string
	Run(ctx context.Context, report verdict.Report) error
}

type funcHook struct {
	name string
	fn   func(context.Context, verdict.Report) error
}

func (h funcHook) Name() string { return h.name }

func (h funcHook) Run(ctx context.Context, report verdict.Report) error {
	return h.fn(ctx, report)
}

// Func adapts a function to the Hook interface.
func Func(name string, fn func(context.Context, verdict.Report) error) Hook {
	return funcHook{name: name, fn: fn}
}

// Set holds hooks per event in registration order.
type Set struct {
	byEvent map[Event][]Hook
}

// NewSet returns an empty Set.
func NewSet() *Set {
	return &Set{byEvent: make(map[Event][]Hook)}
}

// Add registers h for event e.
func (s *Set) Add(e Event, h Hook) {
	if s.byEvent == nil {
		s.byEvent = make(map[Event][]Hook)
	}
	s.byEvent[e] = append(s.byEvent[e], h)
}

// For returns the hooks registered for e.
func (s *Set) For(e Event) []Hook {
	if s == nil {
		return nil
	}
	return s.byEvent[e]
}

// Len returns the total number of registered hooks.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	n := 0
	for _, hs := range s.byEvent {
		n += len(hs)
	}
	return n
}
