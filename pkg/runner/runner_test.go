package runner

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/denysvitali/minify-runner/internal/models"
	"github.com/denysvitali/minify-runner/pkg/config"
	"github.com/denysvitali/minify-runner/pkg/minifier"
)

type recordingEngine struct {
	calls []models.Candidate
	fail  map[string]error
}

func (e *recordingEngine) Name() string { return "recording" }

func (e *recordingEngine) Minify(_ context.Context, c models.Candidate) error {
	e.calls = append(e.calls, c)
	if err, ok := e.fail[filepath.Base(c.Path)]; ok {
		return err
	}
	return nil
}

func (e *recordingEngine) bases() []string {
	names := make([]string, 0, len(e.calls))
	for _, c := range e.calls {
		names = append(names, filepath.Base(c.Path))
	}
	sort.Strings(names)
	return names
}

type fakeGuard struct {
	running bool
	err     error
}

func (g fakeGuard) Name() string { return "syncthing" }

func (g fakeGuard) Running(context.Context) (bool, error) { return g.running, g.err }

func setup(t *testing.T, files ...string) (string, *config.Config) {
	t.Helper()
	root := t.TempDir()
	for _, name := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
	}
	cfg := config.Default()
	cfg.Minify.Root = root
	return root, cfg
}

type blockingEngine struct {
	started chan struct{}
	release chan struct{}
}

func (e *blockingEngine) Name() string { return "blocking" }

func (e *blockingEngine) Minify(ctx context.Context, _ models.Candidate) error {
	close(e.started)
	select {
	case <-e.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func newTestRunner(cfg *config.Config, g fakeGuard, engine minifier.Engine) *Runner {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return New(cfg, logger, g, engine)
}

func TestRunWalk(t *testing.T) {
	_, cfg := setup(t, "a.css", "a.min.css", "b.CSS.txt", "sub/c.css", "sub/c.min.css", "site.js")
	engine := &recordingEngine{}
	r := newTestRunner(cfg, fakeGuard{}, engine)

	report, err := r.Run(context.Background(), r.DefaultOptions(models.KindCSS, ""))
	require.NoError(t, err)

	assert.Equal(t, models.ModeWalk, report.Mode)
	assert.Equal(t, []string{"a.css", "b.CSS.txt", "c.css"}, engine.bases())
	assert.Len(t, report.Results, 3)
	assert.False(t, report.HasFailures())
	for _, c := range engine.calls {
		assert.False(t, c.Single)
	}
}

func TestRunScenarioOverwritesExistingOutput(t *testing.T) {
	root, cfg := setup(t, "a.css", "a.min.css", "b.CSS.txt")
	engine := &recordingEngine{}
	r := newTestRunner(cfg, fakeGuard{}, engine)

	_, err := r.Run(context.Background(), r.DefaultOptions(models.KindCSS, ""))
	require.NoError(t, err)

	require.Len(t, engine.calls, 2)
	outputs := map[string]string{}
	for _, c := range engine.calls {
		outputs[filepath.Base(c.Path)] = c.Output
	}
	assert.Equal(t, filepath.Join(root, "a.min.css"), outputs["a.css"])
	assert.Equal(t, filepath.Join(root, "b.CSS.min.css"), outputs["b.CSS.txt"])
	assert.NotContains(t, outputs, "a.min.css")
}

func TestRunSingleFile(t *testing.T) {
	root, cfg := setup(t, "a.css", "b.css", "c.css")
	engine := &recordingEngine{}
	r := newTestRunner(cfg, fakeGuard{}, engine)

	path := filepath.Join(root, "b.css")
	report, err := r.Run(context.Background(), r.DefaultOptions(models.KindCSS, path))
	require.NoError(t, err)

	assert.Equal(t, models.ModeSingle, report.Mode)
	require.Len(t, engine.calls, 1)
	assert.Equal(t, path, engine.calls[0].Path)
	assert.Equal(t, filepath.Join(root, "b.min.css"), engine.calls[0].Output)
	assert.True(t, engine.calls[0].Single)
}

func TestRunSingleJSCarriesSourceMap(t *testing.T) {
	_, cfg := setup(t)
	engine := &recordingEngine{}
	r := newTestRunner(cfg, fakeGuard{}, engine)

	_, err := r.Run(context.Background(), r.DefaultOptions(models.KindJS, "js/router.js"))
	require.NoError(t, err)

	require.Len(t, engine.calls, 1)
	assert.Equal(t, "js/router.min.js", engine.calls[0].Output)
	assert.Equal(t, "js/router.min.js.map", engine.calls[0].SourceMap)
}

func TestRunNonMatchingArgFallsBackToWalk(t *testing.T) {
	_, cfg := setup(t, "a.css", "notes.txt")
	engine := &recordingEngine{}
	r := newTestRunner(cfg, fakeGuard{}, engine)

	report, err := r.Run(context.Background(), r.DefaultOptions(models.KindCSS, "notes.txt"))
	require.NoError(t, err)

	assert.Equal(t, models.ModeWalk, report.Mode)
	assert.Equal(t, []string{"a.css"}, engine.bases())
}

func TestRunMinifiedArgIsNeverInvoked(t *testing.T) {
	root, cfg := setup(t, "a.min.css")
	engine := &recordingEngine{}
	r := newTestRunner(cfg, fakeGuard{}, engine)

	report, err := r.Run(context.Background(), r.DefaultOptions(models.KindCSS, filepath.Join(root, "a.min.css")))
	require.NoError(t, err)

	assert.Equal(t, models.ModeWalk, report.Mode)
	assert.Empty(t, engine.calls)
}

func TestRunGuarded(t *testing.T) {
	_, cfg := setup(t, "a.css", "b.css")

	t.Run("sync process running aborts", func(t *testing.T) {
		engine := &recordingEngine{}
		r := newTestRunner(cfg, fakeGuard{running: true}, engine)

		for _, path := range []string{"", "a.css"} {
			report, err := r.Run(context.Background(), r.DefaultOptions(models.KindCSS, path))
			require.NoError(t, err)
			assert.Equal(t, models.ModeGuarded, report.Mode)
			assert.True(t, report.SyncDetected)
			assert.Empty(t, report.Results)
		}
		assert.Empty(t, engine.calls)
	})

	t.Run("ignore sync", func(t *testing.T) {
		engine := &recordingEngine{}
		r := newTestRunner(cfg, fakeGuard{running: true}, engine)

		opts := r.DefaultOptions(models.KindCSS, "")
		opts.IgnoreSync = true
		report, err := r.Run(context.Background(), opts)
		require.NoError(t, err)
		assert.Equal(t, models.ModeWalk, report.Mode)
		assert.Len(t, engine.calls, 2)
	})

	t.Run("guard disabled in config", func(t *testing.T) {
		disabled := *cfg
		disabled.Guard.Enabled = false
		engine := &recordingEngine{}
		r := newTestRunner(&disabled, fakeGuard{running: true}, engine)

		_, err := r.Run(context.Background(), r.DefaultOptions(models.KindCSS, ""))
		require.NoError(t, err)
		assert.Len(t, engine.calls, 2)
	})

	t.Run("guard failure fails open", func(t *testing.T) {
		engine := &recordingEngine{}
		r := newTestRunner(cfg, fakeGuard{err: errors.New("no procfs")}, engine)

		report, err := r.Run(context.Background(), r.DefaultOptions(models.KindCSS, ""))
		require.NoError(t, err)
		assert.False(t, report.SyncDetected)
		assert.Len(t, engine.calls, 2)
	})
}

func TestRunContinuesAfterFailure(t *testing.T) {
	_, cfg := setup(t, "a.css", "b.css", "c.css")
	engine := &recordingEngine{fail: map[string]error{
		"b.css": &minifier.ToolError{Path: "b.css", Tool: "csso", ExitCode: 2, Stderr: "Parse error"},
	}}
	r := newTestRunner(cfg, fakeGuard{}, engine)

	report, err := r.Run(context.Background(), r.DefaultOptions(models.KindCSS, ""))
	require.NoError(t, err)

	assert.Len(t, engine.calls, 3)
	assert.True(t, report.HasFailures())

	ok, failed, skipped := report.Counts()
	assert.Equal(t, 2, ok)
	assert.Equal(t, 1, failed)
	assert.Equal(t, 0, skipped)

	for _, res := range report.Results {
		if filepath.Base(res.Candidate.Path) == "b.css" {
			assert.Equal(t, models.StatusFailed, res.Status)
			assert.Equal(t, 2, res.ExitCode)
			assert.Equal(t, "Parse error", res.Stderr)
			assert.Contains(t, res.Error, "Parse error")
		}
	}
}

func TestRunDryRun(t *testing.T) {
	_, cfg := setup(t, "a.js", "b.js", "b.min.js")
	engine := &recordingEngine{}
	r := newTestRunner(cfg, fakeGuard{}, engine)

	opts := r.DefaultOptions(models.KindJS, "")
	opts.DryRun = true
	report, err := r.Run(context.Background(), opts)
	require.NoError(t, err)

	assert.Empty(t, engine.calls)
	_, _, skipped := report.Counts()
	assert.Equal(t, 2, skipped)
}

func TestRunStrict(t *testing.T) {
	_, cfg := setup(t, "a.css", "b.CSS.txt")
	engine := &recordingEngine{}
	r := newTestRunner(cfg, fakeGuard{}, engine)

	opts := r.DefaultOptions(models.KindCSS, "")
	opts.Strict = true
	_, err := r.Run(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.css"}, engine.bases())
}

func TestRunCancelled(t *testing.T) {
	_, cfg := setup(t, "a.css", "b.css")
	engine := &recordingEngine{}
	r := newTestRunner(cfg, fakeGuard{}, engine)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := r.Run(ctx, r.DefaultOptions(models.KindCSS, ""))
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, report)
	assert.Empty(t, engine.calls)
}

func TestRunUnsupportedKind(t *testing.T) {
	_, cfg := setup(t)
	r := newTestRunner(cfg, fakeGuard{}, &recordingEngine{})

	_, err := r.Run(context.Background(), Options{Kind: "html"})
	assert.Error(t, err)
}

func TestStatsAndSyncStatus(t *testing.T) {
	_, cfg := setup(t, "a.css")
	r := newTestRunner(cfg, fakeGuard{running: true}, &recordingEngine{})

	_, _, last := r.Stats()
	assert.Nil(t, last)

	_, err := r.Run(context.Background(), r.DefaultOptions(models.KindCSS, ""))
	require.NoError(t, err)

	started, lastRun, last := r.Stats()
	require.NotNil(t, last)
	assert.Equal(t, models.ModeGuarded, last.Mode)
	assert.False(t, lastRun.Before(started))

	status := r.SyncStatus(context.Background())
	assert.Equal(t, "syncthing", status.Process)
	assert.True(t, status.Running)
	assert.True(t, status.Enabled)
}

func TestStatsDoNotWaitForRunInProgress(t *testing.T) {
	_, cfg := setup(t, "a.css")
	engine := &blockingEngine{started: make(chan struct{}), release: make(chan struct{})}
	r := newTestRunner(cfg, fakeGuard{}, engine)

	done := make(chan error, 1)
	go func() {
		_, err := r.Run(context.Background(), r.DefaultOptions(models.KindCSS, ""))
		done <- err
	}()
	<-engine.started

	stats := make(chan *models.Report, 1)
	go func() {
		_, _, last := r.Stats()
		stats <- last
	}()

	select {
	case last := <-stats:
		assert.Nil(t, last)
	case <-time.After(2 * time.Second):
		t.Fatal("Stats blocked while a run was in progress")
	}

	close(engine.release)
	require.NoError(t, <-done)

	_, _, last := r.Stats()
	require.NotNil(t, last)
	assert.Equal(t, models.ModeWalk, last.Mode)
}
