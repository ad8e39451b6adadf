package executor

import (
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Command describes a single external process invocation
type Command struct {
	Name    string
	Args    []string
	Dir     string
	Env     []string
	Timeout time.Duration
}

// Result holds the captured outcome of a command
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
	TimedOut bool
	PID      int
	// Err is set when the command could not be started or did not exit cleanly
	Err error
}

// Success reports whether the command ran and exited with status 0
func (r *Result) Success() bool {
	return r.Err == nil && r.ExitCode == 0
}

// Executor runs external commands synchronously
type Executor struct {
	logger *logrus.Logger
	tracer trace.Tracer
}

// New creates a new executor
func New(logger *logrus.Logger) *Executor {
	return &Executor{
		logger: logger,
		tracer: otel.Tracer("minify-runner"),
	}
}
