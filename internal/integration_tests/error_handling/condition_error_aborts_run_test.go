package integration_tests

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vk/stagegrid/internal/condition"
	"github.com/vk/stagegrid/internal/facts"
	"github.com/vk/stagegrid/internal/pipeline"
	"github.com/vk/stagegrid/internal/stage"
	"github.com/vk/stagegrid/internal/testutil"
	"github.com/vk/stagegrid/internal/verdict"
	"github.com/vk/stagegrid/modules/print"
)

// TestErrorHandling_UndeclaredFactAbortsRun validates that a condition
// reading a fact nobody set is fatal for the run, while the always hooks
// still fire.
func TestErrorHandling_UndeclaredFactAbortsRun(t *testing.T) {
	t.Parallel()
	// --- Arrange ---
	pipelineHCL := `
        sequence "build" {
            stage "sleeper" "compile" {
                arguments {
                    id = "compile"
                }
            }
        }

        sequence "quality" {
            stage "sleeper" "sonar" {
                when = fact.sonarConfigured
                arguments {
                    id = "sonar"
                }
            }
            stage "sleeper" "report" {
                arguments {
                    id = "report"
                }
            }
        }

        hook "print" "notify" {
            on = "always"
            arguments {
                message = "verdict=${run.verdict} aborted=${run.aborted}"
            }
        }

        hook "print" "on_failure" {
            on = "failure"
            arguments {
                message = "failure: ${run.error}"
            }
        }
    `
	printed := &testutil.SafeBuffer{}
	sleeper := testutil.NewMockSleeperModule(nil, time.Millisecond)

	// --- Act ---
	result := testutil.RunIntegrationTest(t, map[string]string{"main.hcl": pipelineHCL}, sleeper, &print.Module{Out: printed})

	// --- Assert ---
	require.NoError(t, result.Err)
	require.Equal(t, verdict.Failure, result.Report.Verdict)

	var condErr *condition.ConditionError
	require.True(t, errors.As(result.Report.Err, &condErr), "report error: %v", result.Report.Err)
	var missing *facts.MissingFactError
	require.True(t, errors.As(result.Report.Err, &missing))

	testutil.AssertStageStatus(t, result, "build/compile", stage.Success)
	testutil.AssertStageStatus(t, result, "quality/sonar", stage.Skipped)
	testutil.AssertStageStatus(t, result, "quality/report", stage.Skipped)
	o, _ := result.Report.Outcome("quality/report")
	require.Equal(t, pipeline.ReasonRunAborted, o.Detail)

	require.Contains(t, printed.String(), "verdict=failure aborted=false")
	require.Contains(t, printed.String(), "failure: ")
	require.Contains(t, printed.String(), "sonarConfigured")
}
