package stage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vk/stagegrid/internal/action"
	"github.com/vk/stagegrid/internal/condition"
	"github.com/vk/stagegrid/internal/ctxlog"
	"github.com/vk/stagegrid/internal/facts"
	"github.com/vk/stagegrid/internal/params"
)

// DefaultGracePeriod is how long Execute waits for an action to return after
// its context was cancelled.
const DefaultGracePeriod = 5 * time.Second

// Options tune Execute.
type Options struct {
	// GracePeriod bounds the wait for a cancelled action. Zero selects
	// DefaultGracePeriod.
	GracePeriod time.Duration
}

func (o Options) gracePeriod() time.Duration {
	if o.GracePeriod <= 0 {
		return DefaultGracePeriod
	}
	return o.GracePeriod
}

// ShouldRun evaluates the stage's condition against the current facts and
// parameters. Any error is fatal for the run.
func ShouldRun(spec Spec, f facts.Reader, p *params.Values) (bool, error) {
	ok, err := condition.Evaluate(spec.When, f, p)
	if err != nil {
		return false, fmt.Errorf("stage %q: %w", spec.Name, err)
	}
	return ok, nil
}

// machine enforces the stage state transitions for a single execution.
type machine struct {
	state  Status
	logger *slog.Logger
}

func (m *machine) advance(next Status) {
	if !m.state.CanTransition(next) {
		panic(fmt.Sprintf("illegal stage transition %s -> %s", m.state, next))
	}
	m.logger.Debug("Stage state changed.", "from", m.state, "to", next)
	m.state = next
}

// Execute runs the stage's action and records the outcome.
//
// The timeout is enforced by an independent timer. When it fires, or when
// ctx is cancelled, the action's context is cancelled and Execute waits up to
// the grace period for it to return before recording TimedOut or an aborted
// Failed outcome. Execute never blocks longer than timeout plus grace period.
// A panicking action is recorded as Failed.
func Execute(ctx context.Context, spec Spec, env action.Env, opts Options) Outcome {
	logger := ctxlog.FromContext(ctx).With("stage", env.Path)
	m := &machine{state: Pending, logger: logger}
	m.advance(Running)

	logger.Info("▶️ Starting stage")
	start := time.Now()
	out := Outcome{
		Name:            spec.Name,
		Path:            env.Path,
		StartedAt:       start,
		ContinueOnError: spec.ContinueOnError,
	}

	actionCtx, cancel := context.WithCancel(ctxlog.WithLogger(ctx, logger))
	defer cancel()

	done := make(chan action.Result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- action.Failf("action panicked: %v", r)
			}
		}()
		done <- spec.Action.Invoke(actionCtx, env)
	}()

	var expired <-chan time.Time
	if spec.Timeout > 0 {
		timer := time.NewTimer(spec.Timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case res := <-done:
		switch {
		case res.Failed() && ctx.Err() != nil:
			out.Status, out.Err = Failed, abortCause(ctx)
		case res.Failed():
			out.Status, out.Err = Failed, res.Err
		default:
			out.Status = Success
			out.Warnings = append([]string(nil), res.Warnings...)
		}
	case <-expired:
		cancel()
		awaitCancelled(logger, done, opts.gracePeriod())
		out.Status, out.Err = TimedOut, fmt.Errorf("%w after %s", ErrTimeout, spec.Timeout)
	case <-ctx.Done():
		cancel()
		awaitCancelled(logger, done, opts.gracePeriod())
		out.Status, out.Err = Failed, abortCause(ctx)
	}

	m.advance(out.Status)
	out.Duration = time.Since(start)
	if out.Err != nil {
		out.Detail = out.Err.Error()
	}

	switch out.Status {
	case Success:
		if len(out.Warnings) > 0 {
			logger.Warn("⚠️ Stage finished with warnings", "warnings", out.Warnings, "duration", out.Duration)
		} else {
			logger.Info("✅ Finished stage", "duration", out.Duration)
		}
	default:
		logger.Error("❌ Stage failed", "status", out.Status, "error", out.Err, "continue_on_error", out.ContinueOnError)
	}
	return out
}

// MarkSkipped builds the outcome of a stage whose condition was false or whose
// sequence was aborted, passing through the state machine.
func MarkSkipped(ctx context.Context, spec Spec, path, reason string) Outcome {
	logger := ctxlog.FromContext(ctx).With("stage", path)
	m := &machine{state: Pending, logger: logger}
	m.advance(Skipped)
	logger.Info("⏭️ Skipping stage", "reason", reason)
	return Skip(spec, path, reason)
}

func abortCause(ctx context.Context) error {
	cause := context.Cause(ctx)
	if cause == nil || errors.Is(cause, context.Canceled) {
		return ErrAborted
	}
	return fmt.Errorf("%w: %v", ErrAborted, cause)
}

func awaitCancelled(logger *slog.Logger, done <-chan action.Result, grace time.Duration) {
	timer := time.NewTimer(grace)
	defer timer.Stop()
	select {
	case <-done:
	case <-timer.C:
		logger.Warn("Action did not stop within the grace period; abandoning it.", "grace_period", grace)
	}
}
