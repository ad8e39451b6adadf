package minifier

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/js"

	"github.com/denysvitali/minify-runner/internal/models"
	"github.com/denysvitali/minify-runner/pkg/config"
)

const builtinTool = "tdewolff/minify"

// Builtin minifies in process without any external tool. It does not
// produce source maps.
type Builtin struct {
	m      *minify.M
	logger *logrus.Logger
}

// NewBuiltin creates an in-process engine
func NewBuiltin(logger *logrus.Logger) *Builtin {
	m := minify.New()
	m.AddFunc(models.KindCSS.MediaType(), css.Minify)
	m.AddFunc(models.KindJS.MediaType(), js.Minify)
	return &Builtin{m: m, logger: logger}
}

// Name returns the engine name
func (b *Builtin) Name() string {
	return config.EngineBuiltin
}

// Minify reads c.Path, minifies it and writes c.Output
func (b *Builtin) Minify(ctx context.Context, c models.Candidate) error {
	if err := ctx.Err(); err != nil {
		return &ToolError{Path: c.Path, Tool: builtinTool, ExitCode: -1, Err: err}
	}

	mediaType := c.Kind.MediaType()
	if mediaType == "" {
		return &ToolError{Path: c.Path, Tool: builtinTool, ExitCode: -1, Err: fmt.Errorf("unsupported asset kind %q", c.Kind)}
	}

	src, err := os.ReadFile(c.Path)
	if err != nil {
		return &ToolError{Path: c.Path, Tool: builtinTool, ExitCode: 1, Err: err}
	}

	out, err := b.m.Bytes(mediaType, src)
	if err != nil {
		return &ToolError{Path: c.Path, Tool: builtinTool, ExitCode: 1, Stderr: err.Error(), Err: err}
	}

	if err := os.WriteFile(c.Output, out, 0644); err != nil {
		return &ToolError{Path: c.Path, Tool: builtinTool, ExitCode: 1, Err: err}
	}

	b.logger.Debugf("Minified %s: %d -> %d bytes", c.Path, len(src), len(out))
	return nil
}
