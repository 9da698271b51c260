package shell

import (
	"bytes"
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/stagegrid/internal/action"
	"github.com/vk/stagegrid/internal/registry"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("tests use POSIX shell syntax")
	}
}

func newModule() (*Module, *bytes.Buffer) {
	var out bytes.Buffer
	return &Module{Stdout: &out, Stderr: &out}, &out
}

func TestInterpreter_ResolvedOnce(t *testing.T) {
	first := Interpreter()
	first[0] = "mutated"
	assert.NotEqual(t, "mutated", Interpreter()[0])
	if runtime.GOOS == "windows" {
		assert.Equal(t, []string{"cmd", "/C"}, Interpreter())
	} else {
		assert.Equal(t, []string{"sh", "-c"}, Interpreter())
	}
}

func TestRun_Success(t *testing.T) {
	skipOnWindows(t)
	m, out := newModule()

	res := m.Run(context.Background(), action.Env{Path: "build/compile"}, &Input{
		Command: `echo "hello $GREETING"`,
		Env:     map[string]string{"GREETING": "world"},
	})

	assert.Equal(t, action.StatusOK, res.Status)
	assert.Equal(t, "hello world\n", out.String())
}

func TestRun_Dir(t *testing.T) {
	skipOnWindows(t)
	m, out := newModule()
	dir := t.TempDir()

	res := m.Run(context.Background(), action.Env{}, &Input{Command: "pwd", Dir: dir})

	require.Equal(t, action.StatusOK, res.Status)
	assert.Contains(t, out.String(), dir)
}

func TestRun_FailureCarriesOutputTail(t *testing.T) {
	skipOnWindows(t)
	m, _ := newModule()

	res := m.Run(context.Background(), action.Env{}, &Input{Command: "echo compiling; echo broken >&2; exit 3"})

	require.True(t, res.Failed())
	assert.Contains(t, res.Err.Error(), "exited with code 3")
	assert.Contains(t, res.Err.Error(), "broken")
}

func TestRun_WarnExitCode(t *testing.T) {
	skipOnWindows(t)
	m, _ := newModule()

	res := m.Run(context.Background(), action.Env{}, &Input{Command: "exit 2", WarnExitCodes: []int{1, 2}})

	assert.Equal(t, action.StatusWarning, res.Status)
	assert.Equal(t, []string{"command exited with code 2"}, res.Warnings)
}

func TestRun_EmptyCommand(t *testing.T) {
	m, _ := newModule()
	res := m.Run(context.Background(), action.Env{}, &Input{Command: "  "})
	assert.True(t, res.Failed())
}

func TestRun_CancelKillsCommand(t *testing.T) {
	skipOnWindows(t)
	m, _ := newModule()
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	res := m.Run(ctx, action.Env{}, &Input{Command: "sleep 10"})

	assert.True(t, res.Failed())
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestTailBuffer(t *testing.T) {
	tb := &tailBuffer{max: 2}
	_, _ = tb.Write([]byte("one\ntwo\nthr"))
	_, _ = tb.Write([]byte("ee\nfour"))
	assert.Equal(t, "three\nfour", tb.String())
}

func TestRegister(t *testing.T) {
	r := registry.Load(&Module{})
	h, ok := r.Action("shell")
	require.True(t, ok)
	assert.IsType(t, &Input{}, h.NewInput())
	require.NoError(t, r.ValidateRegistry(context.Background()))
}
