package registry

import (
	"context"

	"github.com/vk/stagegrid/internal/action"
	"github.com/vk/stagegrid/internal/facts"
	"github.com/vk/stagegrid/internal/params"
)

// Defaulter is implemented by input structs that pre-fill default values
// before arguments are decoded over them.
type Defaulter interface {
	SetDefaults()
}

// RegisteredAction holds the compiled Go parts of an action.
type RegisteredAction struct {
	Description string
	// NewInput returns a pointer to a fresh, tagged input struct.
	NewInput func() any
	Run      func(ctx context.Context, env action.Env, input any) action.Result
}

// RegisteredPreparer holds the compiled Go parts of a preparer.
type RegisteredPreparer struct {
	Description string
	// NewInput returns a pointer to a fresh, tagged input struct.
	NewInput func() any
	Prepare  func(ctx context.Context, store *facts.Store, p *params.Values, input any) error
}

// NewAction builds a RegisteredAction around a typed handler.
func NewAction[T any](description string, fn func(ctx context.Context, env action.Env, input *T) action.Result) *RegisteredAction {
	return &RegisteredAction{
		Description: description,
		NewInput:    newInput[T],
		Run: func(ctx context.Context, env action.Env, input any) action.Result {
			return fn(ctx, env, input.(*T))
		},
	}
}

// NewPreparer builds a RegisteredPreparer around a typed handler.
func NewPreparer[T any](description string, fn func(ctx context.Context, store *facts.Store, p *params.Values, input *T) error) *RegisteredPreparer {
	return &RegisteredPreparer{
		Description: description,
		NewInput:    newInput[T],
		Prepare: func(ctx context.Context, store *facts.Store, p *params.Values, input any) error {
			return fn(ctx, store, p, input.(*T))
		},
	}
}

func newInput[T any]() any {
	in := new(T)
	if d, ok := any(in).(Defaulter); ok {
		d.SetDefaults()
	}
	return in
}
