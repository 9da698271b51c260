// Package action defines the contract between the engine and the external
// unit of work a stage performs.
//
// The engine does not care what an action does. It invokes it with a
// cancellable context and consumes a three-valued Result. Actions must watch
// ctx.Done() and return promptly once it fires; the engine stops waiting
// after a grace period and does not kill anything on the action's behalf.
package action

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vk/stagegrid/internal/facts"
	"github.com/vk/stagegrid/internal/params"
	"github.com/zclconf/go-cty/cty"
)

// Status is the kind of Result an action produced.
type Status int

const (
	// StatusOK means the action succeeded.
	StatusOK Status = iota
	// StatusWarning means the action succeeded but reported warnings.
	StatusWarning
	// StatusError means the action failed.
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusWarning:
		return "warning"
	case StatusError:
		return "error"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Result is the outcome of a single invocation.
type Result struct {
	Status   Status
	Warnings []string
	Err      error
}

// Ok returns a successful Result.
func Ok() Result {
	return Result{Status: StatusOK}
}

// Warn returns a successful Result carrying warnings.
func Warn(warnings ...string) Result {
	if len(warnings) == 0 {
		return Ok()
	}
	return Result{Status: StatusWarning, Warnings: warnings}
}

// Fail returns a failed Result. A nil err is replaced by a generic one so a
// failed Result always carries a cause.
func Fail(err error) Result {
	if err == nil {
		err = errors.New("action failed")
	}
	return Result{Status: StatusError, Err: err}
}

// Failf is Fail with fmt.Errorf formatting.
func Failf(format string, args ...any) Result {
	return Fail(fmt.Errorf(format, args...))
}

// FromError returns Ok for a nil error and Fail otherwise.
func FromError(err error) Result {
	if err != nil {
		return Fail(err)
	}
	return Ok()
}

// Failed reports whether the Result is an error.
func (r Result) Failed() bool {
	return r.Status == StatusError
}

func (r Result) String() string {
	switch r.Status {
	case StatusError:
		return fmt.Sprintf("error: %v", r.Err)
	case StatusWarning:
		return "ok with warnings: " + strings.Join(r.Warnings, "; ")
	default:
		return "ok"
	}
}

// Env is what an action can see of the run.
type Env struct {
	// Path identifies the stage (or hook) invoking the action.
	Path   string
	Facts  facts.Reader
	Params *params.Values
	// Vars holds additional expression variables, such as `run` for hooks.
	Vars map[string]cty.Value
}

// Action is the external unit of work performed by a stage.
type Action interface {
	Invoke(ctx context.Context, env Env) Result
}

// Func adapts an ordinary function to the Action interface.
type Func func(ctx context.Context, env Env) Result

// Invoke calls fn.
func (fn Func) Invoke(ctx context.Context, env Env) Result {
	return fn(ctx, env)
}
