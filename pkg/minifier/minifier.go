// Package minifier turns a selected candidate into its minified artifact,
// either by running an external tool or in process.
package minifier

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/denysvitali/minify-runner/internal/models"
	"github.com/denysvitali/minify-runner/pkg/config"
	"github.com/denysvitali/minify-runner/pkg/executor"
)

// Engine minifies a single candidate
type Engine interface {
	Name() string
	Minify(ctx context.Context, c models.Candidate) error
}

// ToolError describes a failed minification of one file
type ToolError struct {
	Path     string
	Tool     string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ToolError) Error() string {
	msg := fmt.Sprintf("minifying %s with %s failed (exit code %d)", e.Path, e.Tool, e.ExitCode)
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		msg += ": " + stderr
	} else if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

// New creates the engine selected by cfg.Minify.Engine
func New(cfg *config.Config, exec *executor.Executor, logger *logrus.Logger) (Engine, error) {
	switch cfg.Minify.Engine {
	case config.EngineExternal, "":
		return NewExternal(cfg.Minify, exec, logger), nil
	case config.EngineBuiltin:
		return NewBuiltin(logger), nil
	default:
		return nil, fmt.Errorf("unknown engine %q", cfg.Minify.Engine)
	}
}
