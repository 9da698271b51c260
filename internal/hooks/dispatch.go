package hooks

import (
	"context"
	"fmt"
	"time"

	"github.com/vk/stagegrid/internal/ctxlog"
	"github.com/vk/stagegrid/internal/verdict"
)

// DefaultTimeout bounds a single hook invocation.
const DefaultTimeout = 30 * time.Second

// Failure records a hook that did not complete cleanly.
type Failure struct {
	Hook  string
	Event Event
	Err   error
}

func (f Failure) Error() string {
	return fmt.Sprintf("hook %q (%s): %v", f.Hook, f.Event, f.Err)
}

// Dispatcher runs hooks for a finished run.
type Dispatcher struct {
	// Timeout bounds each hook. Zero selects DefaultTimeout.
	Timeout time.Duration
}

// Finalize runs the Always hooks and then the hooks of the event matching
// the report's verdict. Each hook receives its own copy of the report.
// Hooks run even if ctx is already cancelled.
func (d Dispatcher) Finalize(ctx context.Context, set *Set, report verdict.Report) []Failure {
	ctx = context.WithoutCancel(ctx)
	var failures []Failure
	for _, e := range []Event{Always, EventFor(report.Verdict)} {
		for _, h := range set.For(e) {
			if err := d.run(ctx, h, report.Clone()); err != nil {
				failures = append(failures, Failure{Hook: h.Name(), Event: e, Err: err})
			}
		}
	}
	return failures
}

func (d Dispatcher) run(ctx context.Context, h Hook, report verdict.Report) error {
	logger := ctxlog.FromContext(ctx).With("hook", h.Name())
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	ctx, cancel := context.WithTimeout(ctxlog.WithLogger(ctx, logger), timeout)
	defer cancel()

	logger.Debug("Running hook.", "verdict", report.Verdict)
	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("hook panicked: %v", r)
			}
		}()
		done <- h.Run(ctx, report)
	}()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		err = fmt.Errorf("hook timed out after %s", timeout)
	}
	if err != nil {
		logger.Warn("Hook failed; the verdict is unaffected.", "error", err)
		return err
	}
	logger.Debug("Hook finished.")
	return nil
}
