package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/vk/stagegrid/internal/app"
	"github.com/vk/stagegrid/internal/hcl_adapter"
	"github.com/vk/stagegrid/internal/hooks"
	"github.com/vk/stagegrid/internal/params"
	"github.com/vk/stagegrid/internal/registry"
	"github.com/vk/stagegrid/internal/stage"
	"github.com/vk/stagegrid/internal/verdict"
)

// Process exit codes.
const (
	ExitOK       = 0
	ExitFailure  = 1
	ExitUsage    = 2
	ExitUnstable = 3
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func usageError(err error) error {
	return &ExitError{Code: ExitUsage, Message: err.Error()}
}

// options collects the flag values shared by all subcommands.
type options struct {
	logLevel        string
	logFormat       string
	healthcheckPort int
	params          []string
	maxParallel     int
	gracePeriod     time.Duration
	defaultTimeout  time.Duration
	hookTimeout     time.Duration
	reportJSON      string
	reportYAML      string
	failOnUnstable  bool
}

// version is reported by --version. It is overridden at link time.
var version = "dev"

// Execute parses args, runs the selected command and returns nil or an
// *ExitError carrying the process exit code.
func Execute(ctx context.Context, args []string, outW, errW io.Writer, modules ...registry.Module) error {
	root := NewRootCommand(outW, errW, modules...)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err == nil {
		return nil
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr
	}
	// Anything cobra rejects on its own (unknown commands) is a usage error.
	return usageError(err)
}

// NewRootCommand builds the stagegrid command tree.
func NewRootCommand(outW, errW io.Writer, modules ...registry.Module) *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "stagegrid",
		Short:         "stagegrid - a declarative CI pipeline engine",
		Long:          "stagegrid runs staged build pipelines declared in HCL: sequential and parallel groups of stages gated by facts and parameters, with a success, unstable or failure verdict.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(outW)
	root.SetErr(errW)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError(err)
	})

	pf := root.PersistentFlags()
	pf.StringVar(&opts.logLevel, "log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	pf.StringVar(&opts.logFormat, "log-format", "text", "Log output format. Options: 'text' or 'json'.")
	pf.DurationVar(&opts.defaultTimeout, "default-timeout", 0, "Timeout for stages that declare none. 0 means no limit.")

	root.AddCommand(newRunCommand(opts, outW, errW, modules))
	root.AddCommand(newValidateCommand(opts, outW, errW, modules))
	return root
}

func newRunCommand(opts *options, outW, errW io.Writer, modules []registry.Module) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run PIPELINE_PATH",
		Short: "Run a pipeline from an .hcl file or a directory of .hcl files",
		Args:  pathArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.appConfig(args[0])
			if err != nil {
				return err
			}
			a := app.NewApp(outW, errW, cfg, hcl_adapter.NewLoader(), modules...)
			rep, err := a.Run(cmd.Context())
			if err != nil {
				return runError(err)
			}
			return verdictError(rep, opts.failOnUnstable)
		},
	}

	f := cmd.Flags()
	f.StringArrayVarP(&opts.params, "param", "p", nil, "Set a pipeline parameter as name=value. Repeatable.")
	f.IntVar(&opts.healthcheckPort, "healthcheck-port", 0, "Port for the HTTP health check and metrics server. 0 is disabled.")
	f.IntVar(&opts.maxParallel, "max-parallel", 0, "Maximum number of stages a parallel group runs at once. 0 means unlimited.")
	f.DurationVar(&opts.gracePeriod, "grace-period", stage.DefaultGracePeriod, "How long a cancelled stage may take to stop.")
	f.DurationVar(&opts.hookTimeout, "hook-timeout", hooks.DefaultTimeout, "Timeout for each finalization hook.")
	f.StringVar(&opts.reportJSON, "report-json", "", "Write a JSON report to this file.")
	f.StringVar(&opts.reportYAML, "report-yaml", "", "Write a YAML report to this file.")
	f.BoolVar(&opts.failOnUnstable, "fail-on-unstable", false, "Exit with code 3 when the verdict is unstable.")
	return cmd
}

func newValidateCommand(opts *options, outW, errW io.Writer, modules []registry.Module) *cobra.Command {
	return &cobra.Command{
		Use:   "validate PIPELINE_PATH",
		Short: "Load and check a pipeline without running it",
		Args:  pathArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.appConfig(args[0])
			if err != nil {
				return err
			}
			a := app.NewApp(outW, errW, cfg, hcl_adapter.NewLoader(), modules...)
			if _, err := a.Validate(cmd.Context()); err != nil {
				return &ExitError{Code: ExitUsage, Message: err.Error()}
			}
			return nil
		},
	}
}

func pathArg(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return usageError(fmt.Errorf("%s requires exactly one PIPELINE_PATH argument, got %d", cmd.Name(), len(args)))
	}
	return nil
}

// appConfig validates the flag values and builds the app configuration.
func (o *options) appConfig(path string) (*app.Config, error) {
	cfg, err := app.NewConfig(app.Config{
		PipelinePath:    path,
		Params:          o.params,
		LogFormat:       strings.ToLower(o.logFormat),
		LogLevel:        strings.ToLower(o.logLevel),
		HealthcheckPort: o.healthcheckPort,
		MaxParallel:     o.maxParallel,
		GracePeriod:     o.gracePeriod,
		DefaultTimeout:  o.defaultTimeout,
		HookTimeout:     o.hookTimeout,
		ReportJSON:      o.reportJSON,
		ReportYAML:      o.reportYAML,
	})
	if err != nil {
		return nil, usageError(err)
	}
	return cfg, nil
}

// runError maps an error that prevented the run from starting.
func runError(err error) error {
	var cfgErr *params.ConfigError
	if errors.As(err, &cfgErr) || errors.Is(err, app.ErrInvalidPipeline) {
		return &ExitError{Code: ExitUsage, Message: err.Error()}
	}
	return &ExitError{Code: ExitFailure, Message: err.Error()}
}

// verdictError maps a finished run to its exit code.
func verdictError(rep *verdict.Report, failOnUnstable bool) error {
	switch rep.Verdict {
	case verdict.Failure:
		msg := fmt.Sprintf("pipeline %q failed", rep.Pipeline)
		if rep.Error != "" {
			msg += ": " + rep.Error
		}
		return &ExitError{Code: ExitFailure, Message: msg}
	case verdict.Unstable:
		if failOnUnstable {
			return &ExitError{Code: ExitUnstable, Message: fmt.Sprintf("pipeline %q is unstable", rep.Pipeline)}
		}
	}
	return nil
}
