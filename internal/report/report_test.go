package report

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/stagegrid/internal/stage"
	"github.com/vk/stagegrid/internal/verdict"
	"gopkg.in/yaml.v3"
)

func sampleReport() verdict.Report {
	return verdict.Report{
		RunID:    "run-42",
		Pipeline: "ci",
		Verdict:  verdict.Unstable,
		Outcomes: []stage.Outcome{
			{Name: "A", Path: "main/A", Status: stage.Success, Duration: 1500 * time.Millisecond},
			{Name: "B", Path: "main/B", Status: stage.Skipped, Detail: "condition false"},
			{Name: "D", Path: "checks/D", Status: stage.Failed, Detail: "exit status 2", ContinueOnError: true},
			{Name: "E", Path: "checks/E", Status: stage.Success, Warnings: []string{"3 flaky tests"}},
		},
		Params: map[string]any{"branch": "main"},
		Facts:  map[string]any{"hasX": true},
	}
}

func TestNew_UnknownFormat(t *testing.T) {
	_, err := New("xml", &bytes.Buffer{})
	assert.ErrorContains(t, err, "unknown report format")
}

func TestJSONReporter(t *testing.T) {
	var buf bytes.Buffer
	r, err := New("json", &buf)
	require.NoError(t, err)
	require.NoError(t, r.Report(context.Background(), sampleReport()))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "unstable", decoded["verdict"])
	assert.Equal(t, "run-42", decoded["run_id"])
	outcomes := decoded["outcomes"].([]any)
	require.Len(t, outcomes, 4)
	assert.Equal(t, "skipped", outcomes[1].(map[string]any)["status"])
	assert.Equal(t, "exit status 2", outcomes[2].(map[string]any)["detail"])
}

func TestYAMLReporter(t *testing.T) {
	var buf bytes.Buffer
	r, err := New("yaml", &buf)
	require.NoError(t, err)
	require.NoError(t, r.Report(context.Background(), sampleReport()))

	var decoded struct {
		Verdict  string `yaml:"verdict"`
		Outcomes []struct {
			Path   string `yaml:"path"`
			Status string `yaml:"status"`
		} `yaml:"outcomes"`
	}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "unstable", decoded.Verdict)
	require.Len(t, decoded.Outcomes, 4)
	assert.Equal(t, "checks/D", decoded.Outcomes[2].Path)
	assert.Equal(t, "failed", decoded.Outcomes[2].Status)
}

func TestTextReporter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewText(&buf).Report(context.Background(), sampleReport()))
	out := buf.String()

	assert.Contains(t, out, "Pipeline ci (run run-42)")
	assert.Contains(t, out, "main/A")
	assert.Contains(t, out, "SKIPPED")
	assert.Contains(t, out, "FAILED (allowed)")
	assert.Contains(t, out, "warning: 3 flaky tests")
	assert.Contains(t, out, "2 succeeded, 1 failed, 0 timed out, 1 skipped")
	assert.Contains(t, out, "Verdict:")
	assert.Contains(t, out, "UNSTABLE")
}

func TestFileReporter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "run.json")
	r := &FileReporter{Path: path, Format: "json"}
	require.NoError(t, r.Report(context.Background(), sampleReport()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"verdict": "unstable"`)
}
