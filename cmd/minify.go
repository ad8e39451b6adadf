package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/denysvitali/minify-runner/internal/models"
	"github.com/denysvitali/minify-runner/pkg/config"
	"github.com/denysvitali/minify-runner/pkg/executor"
	"github.com/denysvitali/minify-runner/pkg/guard"
	"github.com/denysvitali/minify-runner/pkg/minifier"
	"github.com/denysvitali/minify-runner/pkg/runner"
	"github.com/denysvitali/minify-runner/pkg/telemetry"
)

// loadConfig loads the configuration and applies flags viper cannot bind directly
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if ignoreSync {
		cfg.Guard.Enabled = false
	}
	if noSourceMap {
		cfg.Minify.JS.SourceMap = false
	}
	return cfg, nil
}

// startTelemetry initializes OpenTelemetry when enabled and returns its cleanup
func startTelemetry(cfg *config.Config) func() {
	if !cfg.Telemetry.Enabled {
		return func() {}
	}

	logger.Info("Initializing OpenTelemetry")
	cleanup, err := telemetry.Initialize(cfg.Telemetry, logger)
	if err != nil {
		logger.Warnf("Failed to initialize telemetry: %v", err)
		return func() {}
	}
	return cleanup
}

// buildRunner wires the guard, executor and engine selected by cfg
func buildRunner(cfg *config.Config) (*runner.Runner, *executor.Executor, error) {
	exec := executor.New(logger)

	engine, err := minifier.New(cfg, exec, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create minifier: %w", err)
	}

	var g guard.Guard = guard.NewProcessGuard(cfg.Guard.Process, logger)
	if !cfg.Guard.Enabled {
		g = guard.Noop{}
	}

	return runner.New(cfg, logger, g, engine), exec, nil
}

// runMinify returns a cobra handler minifying assets of kind
func runMinify(kind models.Kind) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		defer startTelemetry(cfg)()

		r, _, err := buildRunner(cfg)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		var path string
		if len(args) > 0 {
			path = args[0]
		}

		report, err := r.Run(ctx, r.DefaultOptions(kind, path))
		if err != nil {
			return err
		}

		if report.HasFailures() {
			_, failed, _ := report.Counts()
			return fmt.Errorf("%d file(s) could not be minified", failed)
		}
		return nil
	}
}
