package app

import (
	"errors"
	"fmt"
	"time"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	PipelinePath string // .hcl file or directory
	Params       []string

	LogFormat       string
	LogLevel        string
	HealthcheckPort int

	MaxParallel    int
	GracePeriod    time.Duration
	DefaultTimeout time.Duration
	HookTimeout    time.Duration

	ReportJSON string
	ReportYAML string
}

// NewConfig validates cfg and returns a copy of it.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.PipelinePath == "" {
		return nil, errors.New("PipelinePath is a required configuration field and cannot be empty")
	}
	switch cfg.LogFormat {
	case "", "text", "json":
	default:
		return nil, fmt.Errorf("invalid log format %q: must be 'text' or 'json'", cfg.LogFormat)
	}
	switch cfg.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("invalid log level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.LogLevel)
	}
	if cfg.HealthcheckPort < 0 || cfg.HealthcheckPort > 65535 {
		return nil, fmt.Errorf("invalid healthcheck port %d", cfg.HealthcheckPort)
	}
	if cfg.MaxParallel < 0 {
		return nil, fmt.Errorf("max parallel cannot be negative, got %d", cfg.MaxParallel)
	}
	for name, d := range map[string]time.Duration{
		"grace period":    cfg.GracePeriod,
		"default timeout": cfg.DefaultTimeout,
		"hook timeout":    cfg.HookTimeout,
	} {
		if d < 0 {
			return nil, fmt.Errorf("%s cannot be negative, got %s", name, d)
		}
	}
	return &cfg, nil
}
