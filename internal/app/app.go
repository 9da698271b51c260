package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/vk/stagegrid/internal/builder"
	"github.com/vk/stagegrid/internal/config"
	"github.com/vk/stagegrid/internal/ctxlog"
	"github.com/vk/stagegrid/internal/metrics"
	"github.com/vk/stagegrid/internal/pipeline"
	"github.com/vk/stagegrid/internal/registry"
)

// ErrInvalidPipeline wraps every problem found while loading or building a
// pipeline definition.
var ErrInvalidPipeline = errors.New("invalid pipeline definition")

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW       io.Writer
	logger     *slog.Logger
	config     *Config
	loader     config.Loader
	registry   *registry.Registry
	metrics    *metrics.Metrics
	httpServer *http.Server
}

// NewApp is the constructor for the main application. Reports are written to
// outW and logs to logW. With no modules given, the core modules are used.
func NewApp(outW, logW io.Writer, cfg *Config, loader config.Loader, modules ...registry.Module) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	if len(modules) == 0 {
		modules = coreModules()
	}
	reg := registry.Load(modules...)
	logger.Debug("All Go modules registered.", "count", len(modules), "actions", reg.ActionNames(), "preparers", reg.PreparerNames())

	// A broken module is a programmer error, so we panic.
	if err := reg.ValidateRegistry(ctx); err != nil {
		panic(err)
	}
	logger.Debug("Registry validation passed.")

	return &App{
		outW:     outW,
		logger:   logger,
		config:   cfg,
		loader:   loader,
		registry: reg,
		metrics:  metrics.New(),
	}
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Metrics returns the application's metrics collector.
func (a *App) Metrics() *metrics.Metrics {
	return a.metrics
}

// Load reads the pipeline definition and binds it to the registry.
func (a *App) Load(ctx context.Context) (*pipeline.Pipeline, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)

	model, converter, err := a.loader.Load(ctx, a.config.PipelinePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPipeline, err)
	}
	a.logger.Debug("Configuration loaded and translated into unified model.", "pipeline", model.Name)

	p, err := builder.Build(ctx, model, a.registry, converter, builder.Options{DefaultTimeout: a.config.DefaultTimeout})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPipeline, err)
	}
	return p, nil
}

// Validate loads and builds the pipeline without running it, and prints the
// stage paths it would execute.
func (a *App) Validate(ctx context.Context) (*pipeline.Pipeline, error) {
	p, err := a.Load(ctx)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(a.outW, "Pipeline %q is valid.\n", p.Name)
	for _, path := range p.StagePaths() {
		fmt.Fprintf(a.outW, "  %s\n", path)
	}
	return p, nil
}
