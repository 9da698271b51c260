package integration_tests

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vk/stagegrid/internal/app"
	"github.com/vk/stagegrid/internal/stage"
	"github.com/vk/stagegrid/internal/testutil"
	"github.com/vk/stagegrid/modules/static"
)

// TestHCLFeatures_ConditionalWhen validates that `when` expressions combine
// facts, parameters and the has_fact function.
func TestHCLFeatures_ConditionalWhen(t *testing.T) {
	t.Parallel()
	// --- Arrange ---
	pipelineHCL := `
        parameter "deploy" {
            type    = bool
            default = false
        }

        parameter "branch" {
            default = "main"
        }

        prepare "static" "layout" {
            arguments {
                facts = {
                    isGo        = true
                    projectType = "go"
                }
            }
        }

        sequence "build" {
            stage "sleeper" "go_build" {
                when = fact.isGo && fact.projectType == "go"
                arguments {
                    id = "go_build"
                }
            }
            stage "sleeper" "deploy" {
                when = param.deploy && param.branch == "main"
                arguments {
                    id = "deploy"
                }
            }
            stage "sleeper" "sonar" {
                when = has_fact("sonarConfigured")
                arguments {
                    id = "sonar"
                }
            }
        }
    `
	testCases := []struct {
		name      string
		overrides []string
		want      map[string]stage.Status
	}{
		{
			name: "defaults",
			want: map[string]stage.Status{
				"build/go_build": stage.Success,
				"build/deploy":   stage.Skipped,
				"build/sonar":    stage.Skipped,
			},
		},
		{
			name:      "deploy on main",
			overrides: []string{"deploy=true"},
			want: map[string]stage.Status{
				"build/go_build": stage.Success,
				"build/deploy":   stage.Success,
				"build/sonar":    stage.Skipped,
			},
		},
		{
			name:      "deploy on a feature branch",
			overrides: []string{"deploy=true", "branch=feature/x"},
			want: map[string]stage.Status{
				"build/go_build": stage.Success,
				"build/deploy":   stage.Skipped,
				"build/sonar":    stage.Skipped,
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			sleeper := testutil.NewMockSleeperModule(nil, time.Millisecond)

			// --- Act ---
			result := testutil.RunIntegrationTestWithContext(context.Background(), t,
				map[string]string{"main.hcl": pipelineHCL},
				func(cfg *app.Config) { cfg.Params = tc.overrides },
				sleeper, &static.Module{})

			// --- Assert ---
			require.NoError(t, result.Err)
			require.Equal(t, tc.want, testutil.Statuses(result))
		})
	}
}
