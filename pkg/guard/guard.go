// Package guard detects background processes that must not race with
// minification, such as a file synchronization daemon.
package guard

import (
	"context"
	"fmt"
	"strings"

	"github.com/shirou/gopsutil/v4/process"
	"github.com/sirupsen/logrus"
)

// Guard reports whether a conflicting process is running
type Guard interface {
	Name() string
	Running(ctx context.Context) (bool, error)
}

// ProcessLister returns the names of all running processes
type ProcessLister func(ctx context.Context) ([]string, error)

// ProcessGuard matches running processes by name, like pgrep does
type ProcessGuard struct {
	name   string
	list   ProcessLister
	logger *logrus.Logger
}

// NewProcessGuard creates a guard for processes whose name contains name
func NewProcessGuard(name string, logger *logrus.Logger) *ProcessGuard {
	return &ProcessGuard{
		name:   name,
		list:   listProcessNames,
		logger: logger,
	}
}

// WithLister replaces the process lister, mostly for tests
func (g *ProcessGuard) WithLister(list ProcessLister) *ProcessGuard {
	g.list = list
	return g
}

// Name returns the process name the guard looks for
func (g *ProcessGuard) Name() string {
	return g.name
}

// Running reports whether a matching process exists
func (g *ProcessGuard) Running(ctx context.Context) (bool, error) {
	if g.name == "" {
		return false, nil
	}

	names, err := g.list(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to list processes: %w", err)
	}

	for _, n := range names {
		if strings.Contains(n, g.name) {
			g.logger.Debugf("Process %q matches guard %q", n, g.name)
			return true, nil
		}
	}
	return false, nil
}

// Detected runs g and treats any failure as "not running"
func Detected(ctx context.Context, g Guard, logger *logrus.Logger) bool {
	running, err := g.Running(ctx)
	if err != nil {
		logger.Warnf("Could not determine whether %s is running, continuing: %v", g.Name(), err)
		return false
	}
	return running
}

// Noop never detects anything
type Noop struct{}

// Name returns an empty name
func (Noop) Name() string { return "" }

// Running always returns false
func (Noop) Running(context.Context) (bool, error) { return false, nil }

func listProcessNames(ctx context.Context) ([]string, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(procs))
	for _, p := range procs {
		// processes may exit between listing and inspection
		name, err := p.NameWithContext(ctx)
		if err != nil {
			continue
		}
		names = append(names, name)
	}
	return names, nil
}
