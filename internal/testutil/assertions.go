package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/stagegrid/internal/stage"
)

// AssertStageStatus checks that the run report lists the stage at path with
// the wanted status.
func AssertStageStatus(t *testing.T, result *HarnessResult, path string, want stage.Status) {
	t.Helper()
	require.NotNil(t, result.Report, "run produced no report: %v", result.Err)
	o, ok := result.Report.Outcome(path)
	require.True(t, ok, "stage %q is missing from the report", path)
	require.Equal(t, want, o.Status, "stage %q: %s", path, o.Detail)
}

// Statuses maps every stage path in the report to its status.
func Statuses(result *HarnessResult) map[string]stage.Status {
	out := make(map[string]stage.Status)
	if result.Report == nil {
		return out
	}
	for _, o := range result.Report.Outcomes {
		out[o.Path] = o.Status
	}
	return out
}
