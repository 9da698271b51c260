// Package shell provides the `shell` action, which runs a command line through
// the platform shell.
package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/vk/stagegrid/internal/action"
	"github.com/vk/stagegrid/internal/ctxlog"
	"github.com/vk/stagegrid/internal/registry"
)

// tailLines is how much of the output a failure detail carries.
const tailLines = 20

// Module implements the registry.Module interface for this package.
type Module struct {
	// Stdout and Stderr receive the command's output. Nil means the
	// process's own streams.
	Stdout io.Writer
	Stderr io.Writer
	// WaitDelay bounds how long a cancelled command may hold its pipes open.
	WaitDelay time.Duration
}

// Input defines the arguments for the shell action.
type Input struct {
	Command       string            `stagegrid:"command"`
	Dir           string            `stagegrid:"dir,optional"`
	Env           map[string]string `stagegrid:"env,optional"`
	WarnExitCodes []int             `stagegrid:"warn_exit_codes,optional"`
}

// interpreter is the platform shell, resolved once per process.
var interpreter = sync.OnceValue(func() []string {
	if runtime.GOOS == "windows" {
		return []string{"cmd", "/C"}
	}
	return []string{"sh", "-c"}
})

// Interpreter returns the argv prefix used to run command lines.
func Interpreter() []string {
	return slices.Clone(interpreter())
}

// Run executes the command line and maps its exit status to a Result.
func (m *Module) Run(ctx context.Context, env action.Env, input *Input) action.Result {
	logger := ctxlog.FromContext(ctx).With("action", "shell")
	if strings.TrimSpace(input.Command) == "" {
		return action.Failf("command cannot be empty")
	}

	argv := append(Interpreter(), input.Command)
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = input.Dir
	cmd.WaitDelay = m.WaitDelay
	if cmd.WaitDelay == 0 {
		cmd.WaitDelay = 2 * time.Second
	}
	if len(input.Env) > 0 {
		cmd.Env = os.Environ()
		for k, v := range input.Env {
			cmd.Env = append(cmd.Env, k+"="+v)
		}
	}

	tail := &tailBuffer{max: tailLines}
	cmd.Stdout = io.MultiWriter(orDefault(m.Stdout, os.Stdout), tail)
	cmd.Stderr = io.MultiWriter(orDefault(m.Stderr, os.Stderr), tail)

	logger.Debug("Running command.", "argv", argv, "dir", input.Dir)
	err := cmd.Run()
	if err == nil {
		return action.Ok()
	}

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) || ctx.Err() != nil {
		return action.Fail(fmt.Errorf("failed to run command: %w", err))
	}
	code := exitErr.ExitCode()
	if slices.Contains(input.WarnExitCodes, code) {
		logger.Warn("Command exited with a tolerated code.", "code", code)
		return action.Warn(fmt.Sprintf("command exited with code %d", code))
	}
	if out := tail.String(); out != "" {
		return action.Failf("command exited with code %d:\n%s", code, out)
	}
	return action.Failf("command exited with code %d", code)
}

// Register registers the shell action with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterAction("shell", registry.NewAction("Runs a command line through the platform shell.", m.Run))
}

func orDefault(w, def io.Writer) io.Writer {
	if w == nil {
		return def
	}
	return w
}

// tailBuffer keeps the last max lines written to it.
type tailBuffer struct {
	mu      sync.Mutex
	max     int
	lines   []string
	partial bytes.Buffer
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.partial.Write(p)
	for {
		line, err := t.partial.ReadString('\n')
		if err != nil {
			// Incomplete line; keep it for the next write.
			t.partial.Reset()
			t.partial.WriteString(line)
			break
		}
		t.push(strings.TrimRight(line, "\r\n"))
	}
	return len(p), nil
}

func (t *tailBuffer) push(line string) {
	t.lines = append(t.lines, line)
	if len(t.lines) > t.max {
		t.lines = t.lines[len(t.lines)-t.max:]
	}
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	lines := slices.Clone(t.lines)
	if rest := strings.TrimSpace(t.partial.String()); rest != "" {
		lines = append(lines, rest)
		if len(lines) > t.max {
			lines = lines[len(lines)-t.max:]
		}
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
