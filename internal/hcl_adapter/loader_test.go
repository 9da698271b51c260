package hcl_adapter

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/stagegrid/internal/config"
	"github.com/zclconf/go-cty/cty"
)

func writeHCL(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const fullPipeline = `
pipeline "ci" {
  description = "build and check"
}

parameter "branch" {
  type    = string
  default = "main"
}

parameter "deploy" {
  type = bool
}

parameter "target" {
  default = "prod"
}

prepare "detect" "layout" {
  arguments {
    dir = "."
  }
}

sequence "build" {
  stage "shell" "compile" {
    when    = fact.isMaven && param.branch == "main"
    timeout = "10m"
    arguments {
      command = "mvn -B package"
    }
  }

  parallel "checks" {
    stage "shell" "lint" {
      continue_on_error = true
      arguments {
        command = "make lint"
      }
    }
    stage "shell" "test" {
      arguments {
        command = "make test"
      }
    }
  }

  stage "print" "done" {
    arguments {
      message = "built"
    }
  }
}

hook "print" "summary" {
  arguments {
    message = "build ${run.verdict}"
  }
}

hook "print" "alert" {
  on      = "failure"
  timeout = "5s"
}
`

func TestLoader_FullPipeline(t *testing.T) {
	dir := t.TempDir()
	writeHCL(t, dir, "pipeline.hcl", fullPipeline)

	model, conv, err := NewLoader().Load(context.Background(), dir)
	require.NoError(t, err)
	require.NotNil(t, conv)

	assert.Equal(t, "ci", model.Name)
	assert.Equal(t, "build and check", model.Description)

	require.Len(t, model.Parameters, 3)
	assert.Equal(t, "branch", model.Parameters[0].Name)
	assert.Equal(t, cty.String, model.Parameters[0].Type)
	require.NotNil(t, model.Parameters[0].Default)
	assert.Equal(t, cty.StringVal("main"), *model.Parameters[0].Default)
	assert.Equal(t, cty.Bool, model.Parameters[1].Type)
	assert.Nil(t, model.Parameters[1].Default)
	assert.Equal(t, cty.String, model.Parameters[2].Type, "type inferred from default")

	require.Len(t, model.Prepares, 1)
	assert.Equal(t, "detect", model.Prepares[0].PreparerType)
	assert.Contains(t, model.Prepares[0].Arguments, "dir")

	require.Len(t, model.Groups, 1)
	build := model.Groups[0]
	assert.Equal(t, config.KindSequence, build.Kind)
	require.Len(t, build.Members, 3)

	compile := build.Members[0].Stage
	require.NotNil(t, compile)
	assert.Equal(t, "shell", compile.ActionType)
	assert.Equal(t, "10m", compile.Timeout)
	assert.NotNil(t, compile.When)

	checks := build.Members[1].Group
	require.NotNil(t, checks, "nested group keeps its source position")
	assert.Equal(t, config.KindParallel, checks.Kind)
	require.Len(t, checks.Members, 2)
	assert.True(t, checks.Members[0].Stage.ContinueOnError)
	assert.Nil(t, checks.Members[1].Stage.When)

	assert.Equal(t, "done", build.Members[2].Stage.Name)
	assert.Equal(t, 4, model.StageCount())

	require.Len(t, model.Hooks, 2)
	assert.Equal(t, "always", model.Hooks[0].On)
	assert.Equal(t, "failure", model.Hooks[1].On)
	assert.Equal(t, "5s", model.Hooks[1].Timeout)
	assert.Nil(t, model.Hooks[1].Arguments)
}

func TestLoader_MergesFilesInOrder(t *testing.T) {
	dir := t.TempDir()
	writeHCL(t, dir, "20-test.hcl", `sequence "test" {
  stage "print" "t" {}
}`)
	writeHCL(t, dir, "10-build.hcl", `sequence "build" {
  stage "print" "b" {}
}`)

	model, _, err := NewLoader().Load(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, model.Groups, 2)
	assert.Equal(t, "build", model.Groups[0].Name)
	assert.Equal(t, "test", model.Groups[1].Name)
	assert.Equal(t, filepath.Base(dir), model.Name)
}

func TestLoader_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		content string
		wantErr string
	}{
		{"syntax error", `sequence "x" {`, "failed to parse"},
		{"unknown block", `step "x" "y" {}`, "Unsupported block type"},
		{"stage at top level", `stage "print" "x" {}`, "Unsupported block type"},
		{"unknown stage attribute", `sequence "s" {
  stage "print" "x" {
    retries = 3
  }
}`, "Unsupported argument"},
		{"unsupported parameter type", `parameter "n" {
  type = number
}`, "not supported for parameters"},
		{"duplicate pipeline", `pipeline "a" {}
pipeline "b" {}`, "already declared"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			path := writeHCL(t, dir, "p.hcl", tc.content)
			_, _, err := NewLoader().Load(context.Background(), path)
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestLoader_NoFiles(t *testing.T) {
	_, _, err := NewLoader().Load(context.Background(), t.TempDir())
	assert.ErrorContains(t, err, "no .hcl files")
}
