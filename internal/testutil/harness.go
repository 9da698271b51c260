package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/stagegrid/internal/app"
	"github.com/vk/stagegrid/internal/hcl_adapter"
	"github.com/vk/stagegrid/internal/registry"
	"github.com/vk/stagegrid/internal/verdict"
)

// HarnessResult holds the outcomes of an integration test run.
type HarnessResult struct {
	LogOutput string
	// Output is what the run wrote to stdout, i.e. the text summary.
	Output string
	Report *verdict.Report
	Err    error
	App    *app.App
}

// RunIntegrationTest provides a standardized harness for running integration
// tests using a default background context and configuration.
func RunIntegrationTest(t *testing.T, files map[string]string, modules ...registry.Module) *HarnessResult {
	t.Helper()
	return RunIntegrationTestWithContext(context.Background(), t, files, nil, modules...)
}

// RunIntegrationTestWithContext writes files into a temporary directory and
// runs it as one pipeline. configure may adjust the app configuration.
func RunIntegrationTestWithContext(ctx context.Context, t *testing.T, files map[string]string, configure func(*app.Config), modules ...registry.Module) *HarnessResult {
	t.Helper()

	// 1. Write all HCL files to a temporary pipeline directory. Relative
	// paths such as "stages/build.hcl" create subdirectories.
	tmpDir := t.TempDir()
	for name, content := range files {
		filePath := filepath.Join(tmpDir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(filePath), 0o755))
		require.NoError(t, os.WriteFile(filePath, []byte(content), 0o644))
	}

	// 2. Configure the app.
	cfg := &app.Config{
		PipelinePath: tmpDir,
		LogLevel:     "debug",
		LogFormat:    "text",
	}
	if configure != nil {
		configure(cfg)
	}

	logBuffer := &app.SafeBuffer{}
	outBuffer := &app.SafeBuffer{}

	var testApp *app.App
	var panicErr any
	func() {
		defer func() {
			if r := recover(); r != nil {
				panicErr = r
			}
		}()
		testApp = app.NewApp(outBuffer, logBuffer, cfg, hcl_adapter.NewLoader(), modules...)
	}()
	if panicErr != nil {
		return &HarnessResult{
			LogOutput: logBuffer.String(),
			Err:       fmt.Errorf("application startup panicked | %v", panicErr),
		}
	}

	// 3. Run.
	report, runErr := testApp.Run(ctx)

	if os.Getenv("STAGEGRID_TEST_LOGS") == "true" {
		t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logBuffer.String())
	}

	return &HarnessResult{
		LogOutput: logBuffer.String(),
		Output:    outBuffer.String(),
		Report:    report,
		Err:       runErr,
		App:       testApp,
	}
}

// SafeBuffer is a thread-safe buffer for capturing output in tests.
type SafeBuffer = app.SafeBuffer
