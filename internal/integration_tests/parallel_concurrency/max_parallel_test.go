package integration_tests

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vk/stagegrid/internal/app"
	"github.com/vk/stagegrid/internal/testutil"
	"github.com/vk/stagegrid/internal/verdict"
)

// TestParallelConcurrency_MaxParallelIsRespected validates that a parallel
// group never runs more members at once than --max-parallel allows.
func TestParallelConcurrency_MaxParallelIsRespected(t *testing.T) {
	t.Parallel()
	// --- Arrange ---
	var b strings.Builder
	b.WriteString(`parallel "matrix" {` + "\n")
	for i := 0; i < 6; i++ {
		fmt.Fprintf(&b, "  stage \"sleeper\" \"s%d\" {\n    arguments {\n      id = \"s%d\"\n    }\n  }\n", i, i)
	}
	b.WriteString("}\n")
	sleeper := testutil.NewMockSleeperModule(nil, 40*time.Millisecond)

	// --- Act ---
	result := testutil.RunIntegrationTestWithContext(context.Background(), t,
		map[string]string{"main.hcl": b.String()},
		func(cfg *app.Config) { cfg.MaxParallel = 2 },
		sleeper)

	// --- Assert ---
	require.NoError(t, result.Err)
	require.Equal(t, verdict.Success, result.Report.Verdict)
	require.Len(t, sleeper.Records(), 6)
	require.LessOrEqual(t, sleeper.MaxConcurrent(), 2)
	require.GreaterOrEqual(t, sleeper.MaxConcurrent(), 1)
}
