// Package runner implements a minification run: the sync guard gate,
// single-file or walk selection, and sequential invocation of the engine.
package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/denysvitali/minify-runner/internal/models"
	"github.com/denysvitali/minify-runner/pkg/config"
	"github.com/denysvitali/minify-runner/pkg/guard"
	"github.com/denysvitali/minify-runner/pkg/minifier"
	"github.com/denysvitali/minify-runner/pkg/selector"
)

// Options controls a single run
type Options struct {
	Kind models.Kind
	// Path optionally names a single file to minify
	Path       string
	Strict     bool
	IgnoreSync bool
	DryRun     bool
}

// Runner executes minification runs one at a time
type Runner struct {
	cfg    *config.Config
	logger *logrus.Logger
	guard  guard.Guard
	engine minifier.Engine
	tracer trace.Tracer

	runMu sync.Mutex

	mu        sync.RWMutex
	startTime time.Time
	lastRun   time.Time
	last      *models.Report
}

// New creates a runner
func New(cfg *config.Config, logger *logrus.Logger, g guard.Guard, engine minifier.Engine) *Runner {
	if g == nil {
		g = guard.Noop{}
	}
	now := time.Now()
	return &Runner{
		cfg:       cfg,
		logger:    logger,
		guard:     g,
		engine:    engine,
		tracer:    otel.Tracer("minify-runner"),
		startTime: now,
		lastRun:   now,
	}
}

// DefaultOptions returns run options seeded from the configuration
func (r *Runner) DefaultOptions(kind models.Kind, path string) Options {
	return Options{
		Kind:       kind,
		Path:       path,
		Strict:     r.cfg.Minify.Strict,
		IgnoreSync: !r.cfg.Guard.Enabled,
		DryRun:     r.cfg.Minify.DryRun,
	}
}

// Run performs one minification run. A non-nil report is returned whenever
// the run got past configuration checks, even if err is non-nil.
func (r *Runner) Run(ctx context.Context, opts Options) (*models.Report, error) {
	if opts.Kind.MediaType() == "" {
		return nil, fmt.Errorf("unsupported asset kind %q", opts.Kind)
	}

	r.runMu.Lock()
	defer r.runMu.Unlock()

	ctx, span := r.tracer.Start(ctx, "minify_run")
	defer span.End()

	span.SetAttributes(
		attribute.String("kind", string(opts.Kind)),
		attribute.String("path", opts.Path),
		attribute.Bool("strict", opts.Strict),
		attribute.String("engine", r.engine.Name()),
	)

	report := &models.Report{
		Kind:    opts.Kind,
		Root:    r.cfg.Minify.Root,
		DryRun:  opts.DryRun,
		Results: []models.Result{},
		Started: time.Now(),
	}
	defer func() {
		report.Finished = time.Now()
		r.mu.Lock()
		r.last = report
		r.lastRun = report.Finished
		r.mu.Unlock()
	}()

	if !opts.IgnoreSync && guard.Detected(ctx, r.guard, r.logger) {
		r.logger.Infof("found %s running, so won't minify", r.guard.Name())
		report.Mode = models.ModeGuarded
		report.SyncDetected = true
		span.SetAttributes(attribute.Bool("sync_detected", true))
		return report, nil
	}

	matcher := selector.NewMatcher(opts.Kind, opts.Strict)
	matcher.Logger = r.logger

	var candidates []models.Candidate
	if opts.Path != "" && matcher.Selectable(opts.Path) {
		report.Mode = models.ModeSingle
		r.logger.Infof("trying to minify %s ...", opts.Path)
		candidates = []models.Candidate{matcher.Single(opts.Path)}
	} else {
		report.Mode = models.ModeWalk
		if opts.Path != "" {
			r.logger.Warnf("%s is not a %s source file, minifying everything instead", opts.Path, opts.Kind)
		} else {
			r.logger.Info("no arg, minifying everything...")
		}

		var err error
		candidates, err = matcher.Discover(r.cfg.Minify.Root, r.cfg.Minify.ExcludeDirs)
		if err != nil {
			span.RecordError(err)
			return report, fmt.Errorf("failed to scan %s: %w", r.cfg.Minify.Root, err)
		}
	}

	span.SetAttributes(
		attribute.String("mode", string(report.Mode)),
		attribute.Int("candidates", len(candidates)),
	)

	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Add(r.minifyOne(ctx, c, opts.DryRun))
	}

	ok, failed, skipped := report.Counts()
	entry := r.logger.WithFields(logrus.Fields{
		"kind":    opts.Kind,
		"mode":    report.Mode,
		"ok":      ok,
		"failed":  failed,
		"skipped": skipped,
	})
	switch {
	case report.Mode == models.ModeSingle:
		entry.Infof("done minifying %s", opts.Path)
	case failed > 0:
		entry.Warn("done, but some files could not be minified")
	default:
		entry.Info("done, all is minified!")
	}

	return report, nil
}

func (r *Runner) minifyOne(ctx context.Context, c models.Candidate, dryRun bool) models.Result {
	entry := r.logger.WithFields(logrus.Fields{
		"path":   c.Path,
		"output": c.Output,
	})

	if dryRun {
		entry.Info("would minify")
		return models.Result{Candidate: c, Status: models.StatusSkipped}
	}

	entry.Info("minifying")
	start := time.Now()
	err := r.engine.Minify(ctx, c)
	res := models.Result{
		Candidate: c,
		Status:    models.StatusOK,
		Duration:  time.Since(start),
	}
	if err == nil {
		return res
	}

	res.Status = models.StatusFailed
	res.ExitCode = -1
	res.Error = err.Error()

	var toolErr *minifier.ToolError
	if errors.As(err, &toolErr) {
		res.ExitCode = toolErr.ExitCode
		res.Stderr = toolErr.Stderr
	}

	entry.WithField("exit_code", res.ExitCode).Errorf("minification failed: %v", err)
	return res
}

// Engine returns the engine used by the runner
func (r *Runner) Engine() minifier.Engine {
	return r.engine
}

// Root returns the directory walked by the runner
func (r *Runner) Root() string {
	return r.cfg.Minify.Root
}

// Confine resolves a client-supplied path against the root directory and
// rejects paths outside of it. An empty path stays empty.
func (r *Runner) Confine(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	return selector.Confine(r.cfg.Minify.Root, path)
}

// SyncStatus queries the guard without running anything
func (r *Runner) SyncStatus(ctx context.Context) models.SyncStatus {
	status := models.SyncStatus{
		Process: r.guard.Name(),
		Enabled: r.cfg.Guard.Enabled,
	}
	running, err := r.guard.Running(ctx)
	if err != nil {
		status.Error = err.Error()
		return status
	}
	status.Running = running
	return status
}

// Stats returns the start time, the time of the last run and its report.
// It does not wait for a run in progress.
func (r *Runner) Stats() (started, lastRun time.Time, last *models.Report) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.startTime, r.lastRun, r.last
}
