package app

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/stagegrid/internal/params"
	"github.com/vk/stagegrid/internal/stage"
	"github.com/vk/stagegrid/internal/verdict"
	"github.com/vk/stagegrid/modules/print"
	"github.com/vk/stagegrid/modules/shell"
	"github.com/vk/stagegrid/modules/static"
)

const unstablePipeline = `
pipeline "ci" {}

parameter "branch" {
  default = "main"
}

prepare "static" "layout" {
  arguments {
    facts = {
      isMaven = false
      isGo    = true
    }
  }
}

sequence "build" {
  stage "print" "A" {
    arguments {
      message = "building ${param.branch}"
    }
  }
  stage "print" "B" {
    when = fact.isMaven
    arguments {
      message = "mvn package"
    }
  }
}

parallel "checks" {
  stage "print" "C" {
    when = fact.isGo
    arguments {
      message = "go vet"
    }
  }
  stage "shell" "D" {
    continue_on_error = true
    arguments {
      command = "exit 1"
    }
  }
}

hook "print" "summary" {
  on = "always"
  arguments {
    message = "build ${run.verdict}, failed: ${join(",", run.failed)}"
  }
}

hook "print" "celebrate" {
  on = "success"
  arguments {
    message = "all green"
  }
}
`

func TestRun_EndToEndUnstable(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses POSIX shell")
	}
	printed := &SafeBuffer{}
	dir := t.TempDir()
	cfg := &Config{
		PipelinePath: WritePipeline(t, unstablePipeline),
		Params:       []string{"branch=develop"},
		ReportJSON:   filepath.Join(dir, "out", "report.json"),
		ReportYAML:   filepath.Join(dir, "out", "report.yaml"),
	}
	a, out, _ := SetupAppTest(t, cfg, &print.Module{Out: printed}, &shell.Module{Stdout: io.Discard, Stderr: io.Discard}, &static.Module{})

	rep, err := a.Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, rep)

	assert.Equal(t, verdict.Unstable, rep.Verdict)
	statuses := map[string]stage.Status{}
	for _, o := range rep.Outcomes {
		statuses[o.Path] = o.Status
	}
	assert.Equal(t, map[string]stage.Status{
		"build/A":  stage.Success,
		"build/B":  stage.Skipped,
		"checks/C": stage.Success,
		"checks/D": stage.Failed,
	}, statuses)

	assert.Contains(t, printed.String(), "[build/A] building develop")
	assert.Contains(t, printed.String(), "build unstable, failed: checks/D")
	assert.NotContains(t, printed.String(), "all green")
	assert.Contains(t, out.String(), "UNSTABLE")

	raw, err := os.ReadFile(cfg.ReportJSON)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "unstable", decoded["verdict"])
	assert.FileExists(t, cfg.ReportYAML)
}

func TestRun_UnknownParameterRunsNothing(t *testing.T) {
	printed := &SafeBuffer{}
	cfg := &Config{
		PipelinePath: WritePipeline(t, unstablePipeline),
		Params:       []string{"nope=1"},
	}
	a, out, _ := SetupAppTest(t, cfg, &print.Module{Out: printed}, &shell.Module{}, &static.Module{})

	rep, err := a.Run(context.Background())

	assert.Nil(t, rep)
	var cfgErr *params.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Empty(t, printed.String())
	assert.Empty(t, out.String())
}

func TestRun_InvalidPipeline(t *testing.T) {
	cfg := &Config{PipelinePath: WritePipeline(t, `
sequence "build" {
  stage "teleport" "A" {}
}
`)}
	a, _, _ := SetupAppTest(t, cfg)

	_, err := a.Run(context.Background())

	require.ErrorIs(t, err, ErrInvalidPipeline)
	assert.Contains(t, err.Error(), "teleport")
}

func TestRun_SyntaxError(t *testing.T) {
	cfg := &Config{PipelinePath: WritePipeline(t, `sequence "build" {`)}
	a, _, _ := SetupAppTest(t, cfg)

	_, err := a.Run(context.Background())

	require.ErrorIs(t, err, ErrInvalidPipeline)
}

func TestValidate_PrintsStagePaths(t *testing.T) {
	cfg := &Config{PipelinePath: WritePipeline(t, unstablePipeline)}
	a, out, _ := SetupAppTest(t, cfg)

	p, err := a.Validate(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "ci", p.Name)
	assert.Contains(t, out.String(), `Pipeline "ci" is valid.`)
	assert.Contains(t, out.String(), "checks/D")
}

func TestNewApp_UsesCoreModules(t *testing.T) {
	a, _, _ := SetupAppTest(t, &Config{PipelinePath: "unused"})

	assert.Equal(t, []string{"http_request", "print", "s3_upload", "shell", "socketio_emit"}, a.Registry().ActionNames())
	assert.Equal(t, []string{"detect", "env", "static"}, a.Registry().PreparerNames())
}

func TestHealthCheckMux(t *testing.T) {
	a, _, _ := SetupAppTest(t, &Config{PipelinePath: "unused"})
	srv := httptest.NewServer(a.healthCheckMux())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK\n", string(body))

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestNewConfig(t *testing.T) {
	_, err := NewConfig(Config{})
	assert.Error(t, err)

	_, err = NewConfig(Config{PipelinePath: "p.hcl", LogFormat: "xml"})
	assert.ErrorContains(t, err, "log format")

	_, err = NewConfig(Config{PipelinePath: "p.hcl", MaxParallel: -1})
	assert.ErrorContains(t, err, "max parallel")

	cfg, err := NewConfig(Config{PipelinePath: "p.hcl", LogLevel: "debug"})
	require.NoError(t, err)
	assert.Equal(t, "p.hcl", cfg.PipelinePath)
}

func TestNewLogger(t *testing.T) {
	testCases := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"loud", slog.LevelInfo},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.want, parseLevel(tc.level), tc.level)
	}

	var buf SafeBuffer
	newLogger("warn", "json", &buf).Info("hidden")
	newLogger("warn", "json", &buf).Warn("shown", "stage", "build/A")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
	assert.Contains(t, buf.String(), `"app":"stagegrid"`)
}
