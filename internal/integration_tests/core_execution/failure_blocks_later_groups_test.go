package integration_tests

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vk/stagegrid/internal/pipeline"
	"github.com/vk/stagegrid/internal/stage"
	"github.com/vk/stagegrid/internal/testutil"
	"github.com/vk/stagegrid/internal/verdict"
)

// TestCoreExecution_FailureBlocksLaterStages validates that a blocking
// failure skips the rest of its sequence and every later group.
func TestCoreExecution_FailureBlocksLaterStages(t *testing.T) {
	t.Parallel()
	// --- Arrange ---
	pipelineHCL := `
        sequence "build" {
            stage "sleeper" "compile" {
                arguments {
                    id   = "compile"
                    fail = true
                }
            }
            stage "sleeper" "package" {
                arguments {
                    id = "package"
                }
            }
        }

        parallel "checks" {
            stage "sleeper" "lint" {
                arguments {
                    id = "lint"
                }
            }
            sequence "tests" {
                stage "sleeper" "unit" {
                    arguments {
                        id = "unit"
                    }
                }
            }
        }
    `
	sleeper := testutil.NewMockSleeperModule(nil, time.Millisecond)

	// --- Act ---
	result := testutil.RunIntegrationTest(t, map[string]string{"main.hcl": pipelineHCL}, sleeper)

	// --- Assert ---
	require.NoError(t, result.Err)
	require.Equal(t, verdict.Failure, result.Report.Verdict)
	require.Equal(t, map[string]stage.Status{
		"build/compile":     stage.Failed,
		"build/package":     stage.Skipped,
		"checks/lint":       stage.Skipped,
		"checks/tests/unit": stage.Skipped,
	}, testutil.Statuses(result))

	for _, path := range []string{"build/package", "checks/lint", "checks/tests/unit"} {
		o, _ := result.Report.Outcome(path)
		require.Equal(t, pipeline.ReasonPreviousFailed, o.Detail, path)
	}
	require.Len(t, sleeper.Records(), 1)
	require.Equal(t, []string{"build/compile"}, failedPaths(result))
}

func failedPaths(result *testutil.HarnessResult) []string {
	var out []string
	for _, o := range result.Report.Failures() {
		out = append(out, o.Path)
	}
	return out
}
