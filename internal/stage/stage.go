// Package stage implements a single pipeline stage: its specification, its
// state machine and its immutable outcome record.
package stage

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vk/stagegrid/internal/action"
	"github.com/vk/stagegrid/internal/condition"
)

var (
	// ErrTimeout is the cause recorded for a stage that exceeded its timeout.
	ErrTimeout = errors.New("timeout")
	// ErrAborted is the cause recorded for a stage interrupted by a run abort.
	ErrAborted = errors.New("aborted")
)

// Spec is the static definition of a stage.
type Spec struct {
	Name string
	// When decides whether the stage runs. A nil condition always runs.
	When   condition.Condition
	Action action.Action
	// Timeout bounds the action's wall-clock time. Zero means no limit.
	Timeout         time.Duration
	ContinueOnError bool
}

// Validate checks the spec for programming errors.
func (s Spec) Validate() error {
	if s.Name == "" {
		return errors.New("stage name cannot be empty")
	}
	if strings.Contains(s.Name, "/") {
		return fmt.Errorf("stage name %q cannot contain '/'", s.Name)
	}
	if s.Action == nil {
		return fmt.Errorf("stage %q has no action", s.Name)
	}
	if s.Timeout < 0 {
		return fmt.Errorf("stage %q has a negative timeout", s.Name)
	}
	return nil
}

// Outcome is the immutable record of one executed or skipped stage.
type Outcome struct {
	Name            string        `json:"name" yaml:"name"`
	Path            string        `json:"path" yaml:"path"`
	Status          Status        `json:"status" yaml:"status"`
	Detail          string        `json:"detail,omitempty" yaml:"detail,omitempty"`
	Warnings        []string      `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	ContinueOnError bool          `json:"continue_on_error" yaml:"continue_on_error"`
	StartedAt       time.Time     `json:"started_at,omitempty" yaml:"started_at,omitempty"`
	Duration        time.Duration `json:"duration" yaml:"duration"`
	Err             error         `json:"-" yaml:"-"`
}

// Ran reports whether the stage's action was invoked.
func (o Outcome) Ran() bool {
	return o.Status != Skipped && o.Status != Pending
}

// Blocking reports whether the outcome is a failure that stops forward
// progress, i.e. a failure without continue-on-error.
func (o Outcome) Blocking() bool {
	return o.Status.IsFailure() && !o.ContinueOnError
}

// Tolerated reports whether the outcome is a failure that was allowed to
// continue.
func (o Outcome) Tolerated() bool {
	return o.Status.IsFailure() && o.ContinueOnError
}

// Clone returns a deep copy of the outcome.
func (o Outcome) Clone() Outcome {
	if o.Warnings != nil {
		o.Warnings = append([]string(nil), o.Warnings...)
	}
	return o
}

// Skip builds the outcome of a stage that was not executed.
func Skip(spec Spec, path, reason string) Outcome {
	return Outcome{
		Name:            spec.Name,
		Path:            path,
		Status:          Skipped,
		Detail:          reason,
		ContinueOnError: spec.ContinueOnError,
	}
}
