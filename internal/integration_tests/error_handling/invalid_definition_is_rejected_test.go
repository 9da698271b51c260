package integration_tests

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vk/stagegrid/internal/app"
	"github.com/vk/stagegrid/internal/testutil"
)

// TestErrorHandling_InvalidDefinitionIsRejected validates that problems in
// the pipeline files stop the run before anything executes.
func TestErrorHandling_InvalidDefinitionIsRejected(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name        string
		hcl         string
		errContains string
	}{
		{
			name:        "syntax error",
			hcl:         `sequence "build" {`,
			errContains: "main.hcl",
		},
		{
			name: "required argument missing",
			hcl: `
                sequence "build" {
                    stage "sleeper" "compile" {
                        arguments {}
                    }
                }
            `,
			errContains: `missing required argument "id"`,
		},
		{
			name: "unsupported argument",
			hcl: `
                sequence "build" {
                    stage "sleeper" "compile" {
                        arguments {
                            id    = "compile"
                            color = "blue"
                        }
                    }
                }
            `,
			errContains: "color",
		},
		{
			name: "duplicate stage names",
			hcl: `
                parallel "checks" {
                    stage "sleeper" "lint" {
                        arguments {
                            id = "a"
                        }
                    }
                    stage "sleeper" "lint" {
                        arguments {
                            id = "b"
                        }
                    }
                }
            `,
			errContains: "lint",
		},
		{
			name: "undeclared parameter",
			hcl: `
                sequence "build" {
                    stage "sleeper" "compile" {
                        when = param.deploy
                        arguments {
                            id = "compile"
                        }
                    }
                }
            `,
			errContains: "deploy",
		},
		{
			name: "invalid timeout",
			hcl: `
                sequence "build" {
                    stage "sleeper" "compile" {
                        timeout = "forever"
                        arguments {
                            id = "compile"
                        }
                    }
                }
            `,
			errContains: "forever",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			sleeper := testutil.NewMockSleeperModule(nil, time.Millisecond)

			result := testutil.RunIntegrationTest(t, map[string]string{"main.hcl": tc.hcl}, sleeper)

			require.Error(t, result.Err)
			require.True(t, errors.Is(result.Err, app.ErrInvalidPipeline), "got: %v", result.Err)
			require.Contains(t, result.Err.Error(), tc.errContains)
			require.Nil(t, result.Report)
			require.Empty(t, sleeper.Records())
		})
	}
}
