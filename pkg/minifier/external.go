package minifier

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/denysvitali/minify-runner/internal/models"
	"github.com/denysvitali/minify-runner/pkg/config"
	"github.com/denysvitali/minify-runner/pkg/executor"
)

// External minifies by running csso or terser
type External struct {
	cfg    config.MinifyConfig
	exec   *executor.Executor
	logger *logrus.Logger
}

// NewExternal creates an engine that shells out to the configured tools
func NewExternal(cfg config.MinifyConfig, exec *executor.Executor, logger *logrus.Logger) *External {
	return &External{cfg: cfg, exec: exec, logger: logger}
}

// Name returns the engine name
func (e *External) Name() string {
	return config.EngineExternal
}

// Minify runs the external tool for c and waits for it
func (e *External) Minify(ctx context.Context, c models.Candidate) error {
	cmd, err := e.Command(c)
	if err != nil {
		return &ToolError{Path: c.Path, Tool: e.toolName(c.Kind), ExitCode: -1, Err: err}
	}

	res := e.exec.Run(ctx, cmd)
	if res.Stdout != "" {
		e.logger.Debugf("%s: %s", cmd.Name, res.Stdout)
	}
	if !res.Success() {
		return &ToolError{
			Path:     c.Path,
			Tool:     cmd.Name,
			ExitCode: res.ExitCode,
			Stderr:   res.Stderr,
			Err:      res.Err,
		}
	}
	return nil
}

// Command builds the invocation for c:
//
//	csso <in> -o <out>
//	terser <in> -c -m [--source-map <opts>] -o <out>
func (e *External) Command(c models.Candidate) (executor.Command, error) {
	var args []string
	switch c.Kind {
	case models.KindCSS:
		args = []string{c.Path, "-o", c.Output}
	case models.KindJS:
		args = []string{c.Path, "-c", "-m"}
		if e.cfg.JS.SourceMap {
			args = append(args, "--source-map")
			if c.Single {
				args = append(args, sourceMapOptions(e.cfg.JS.SourceMapRoot, c.SourceMap))
			}
		}
		args = append(args, "-o", c.Output)
	default:
		return executor.Command{}, fmt.Errorf("unsupported asset kind %q", c.Kind)
	}

	return executor.Command{
		Name:    e.resolveTool(e.toolName(c.Kind)),
		Args:    args,
		Timeout: e.cfg.Timeout,
	}, nil
}

func sourceMapOptions(root, url string) string {
	if root == "" {
		return fmt.Sprintf("url='%s'", url)
	}
	return fmt.Sprintf("root='%s',url='%s'", root, url)
}

func (e *External) toolName(kind models.Kind) string {
	switch kind {
	case models.KindCSS:
		return e.cfg.CSS.Tool
	case models.KindJS:
		return e.cfg.JS.Tool
	default:
		return ""
	}
}

// resolveTool prefers a locally installed node_modules binary, then PATH
func (e *External) resolveTool(name string) string {
	if e.cfg.ToolsDir != "" && filepath.Base(name) == name {
		local := filepath.Join(e.cfg.ToolsDir, "node_modules", ".bin", name)
		if info, err := os.Stat(local); err == nil && !info.IsDir() {
			return local
		}
	}
	if path, err := exec.LookPath(name); err == nil {
		return path
	}
	return name
}
