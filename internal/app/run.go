package app

import (
	"context"

	"github.com/vk/stagegrid/internal/ctxlog"
	"github.com/vk/stagegrid/internal/params"
	"github.com/vk/stagegrid/internal/pipeline"
	"github.com/vk/stagegrid/internal/report"
	"github.com/vk/stagegrid/internal/verdict"
)

// Run loads the pipeline and executes it once. A nil report comes with an
// error describing why nothing ran.
func (a *App) Run(ctx context.Context) (*verdict.Report, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if a.config.HealthcheckPort > 0 {
		a.healthCheckServer(ctx)
		defer func() { _ = a.closeHealthCheckServer(ctx) }()
	}

	overrides, err := params.ParseOverrides(a.config.Params)
	if err != nil {
		return nil, err
	}
	p, err := a.Load(ctx)
	if err != nil {
		return nil, err
	}
	if err := a.attachReporters(p); err != nil {
		return nil, err
	}

	runner := pipeline.NewRunner(p,
		pipeline.WithObserver(a.metrics),
		pipeline.WithMaxParallel(a.config.MaxParallel),
		pipeline.WithGracePeriod(a.config.GracePeriod),
		pipeline.WithHookTimeout(a.config.HookTimeout),
	)
	rep, err := runner.Run(ctx, overrides)
	if err != nil {
		return nil, err
	}

	a.logger.Debug("App.Run method finished.", "verdict", rep.Verdict)
	return rep, nil
}

// attachReporters adds the stdout summary and any requested report files.
func (a *App) attachReporters(p *pipeline.Pipeline) error {
	text, err := report.New("text", a.outW)
	if err != nil {
		return err
	}
	p.Reporters = append(p.Reporters, text)

	files := []struct{ path, format string }{
		{a.config.ReportJSON, "json"},
		{a.config.ReportYAML, "yaml"},
	}
	for _, f := range files {
		if f.path == "" {
			continue
		}
		a.logger.Debug("Writing report file.", "path", f.path, "format", f.format)
		p.Reporters = append(p.Reporters, &report.FileReporter{Path: f.path, Format: f.format})
	}
	return nil
}
