package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

// exitCodeTimeout is the conventional exit status of timeout(1)
const exitCodeTimeout = 124

// Run executes cmd and waits for it to finish
func (e *Executor) Run(ctx context.Context, cmd Command) *Result {
	_, span := e.tracer.Start(ctx, "exec")
	defer span.End()

	span.SetAttributes(
		attribute.String("command", cmd.Name),
		attribute.StringSlice("args", cmd.Args),
		attribute.String("dir", cmd.Dir),
	)

	e.logger.Debugf("Executing command: %s %s", cmd.Name, strings.Join(cmd.Args, " "))

	execCtx := ctx
	var cancel context.CancelFunc
	if cmd.Timeout > 0 {
		execCtx, cancel = context.WithTimeout(ctx, cmd.Timeout)
		defer cancel()
	}

	c := exec.CommandContext(execCtx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	c.Env = append(os.Environ(), cmd.Env...)

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	start := time.Now()
	err := c.Run()
	result := &Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}
	if c.Process != nil {
		result.PID = c.Process.Pid
	}

	if err != nil {
		var exitErr *exec.ExitError
		switch {
		case errors.Is(execCtx.Err(), context.DeadlineExceeded):
			result.ExitCode = exitCodeTimeout
			result.TimedOut = true
			result.Err = fmt.Errorf("command timed out after %s", cmd.Timeout)
			e.logger.Warnf("Command timed out: %s", cmd.Name)
		case errors.As(err, &exitErr):
			result.ExitCode = exitErr.ExitCode()
			result.Err = err
		default:
			// failed to start, e.g. binary missing
			result.ExitCode = -1
			result.Err = err
		}
		span.RecordError(result.Err)
	}

	span.SetAttributes(attribute.Int("exit_code", result.ExitCode))
	e.logger.Debugf("Command exited with code %d in %s", result.ExitCode, result.Duration)

	return result
}
