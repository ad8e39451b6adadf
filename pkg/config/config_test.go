package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	t.Run("relative root becomes absolute", func(t *testing.T) {
		dir := t.TempDir()
		sub := filepath.Join(dir, "assets")
		require.NoError(t, os.Mkdir(sub, 0755))
		t.Chdir(dir)

		cfg := Default()
		cfg.Minify.Root = "assets"
		require.NoError(t, Normalize(cfg))

		resolved, err := filepath.EvalSymlinks(cfg.Minify.Root)
		require.NoError(t, err)
		expected, err := filepath.EvalSymlinks(sub)
		require.NoError(t, err)
		assert.True(t, filepath.IsAbs(cfg.Minify.Root))
		assert.Equal(t, expected, resolved)
	})

	t.Run("empty root defaults to working directory", func(t *testing.T) {
		dir := t.TempDir()
		t.Chdir(dir)

		cfg := Default()
		require.NoError(t, Normalize(cfg))

		wd, err := os.Getwd()
		require.NoError(t, err)
		assert.Equal(t, wd, cfg.Minify.Root)
	})

	t.Run("missing root", func(t *testing.T) {
		cfg := Default()
		cfg.Minify.Root = filepath.Join(t.TempDir(), "does-not-exist")
		assert.Error(t, Normalize(cfg))
	})

	t.Run("root is a file", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "a.css")
		require.NoError(t, os.WriteFile(file, []byte("a{}"), 0644))

		cfg := Default()
		cfg.Minify.Root = file
		assert.Error(t, Normalize(cfg))
	})

	t.Run("unknown engine", func(t *testing.T) {
		cfg := Default()
		cfg.Minify.Root = t.TempDir()
		cfg.Minify.Engine = "uglify"
		assert.Error(t, Normalize(cfg))
	})

	t.Run("empty engine defaults to external", func(t *testing.T) {
		cfg := Default()
		cfg.Minify.Root = t.TempDir()
		cfg.Minify.Engine = ""
		require.NoError(t, Normalize(cfg))
		assert.Equal(t, EngineExternal, cfg.Minify.Engine)
	})

	t.Run("negative timeout", func(t *testing.T) {
		cfg := Default()
		cfg.Minify.Root = t.TempDir()
		cfg.Minify.Timeout = -time.Second
		assert.Error(t, Normalize(cfg))
	})
}

func TestLoadDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	viper.Set("minify.root", dir)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, dir, cfg.Minify.Root)
	assert.Equal(t, EngineExternal, cfg.Minify.Engine)
	assert.Equal(t, "csso", cfg.Minify.CSS.Tool)
	assert.Equal(t, "terser", cfg.Minify.JS.Tool)
	assert.True(t, cfg.Minify.JS.SourceMap)
	assert.True(t, cfg.Guard.Enabled)
	assert.Equal(t, "syncthing", cfg.Guard.Process)
	assert.Equal(t, time.Duration(0), cfg.Minify.Timeout)
	assert.False(t, cfg.Telemetry.Enabled)
	assert.Equal(t, 8000, cfg.Server.Port)
}

func TestLoadOverrides(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	viper.Set("minify.root", dir)
	viper.Set("minify.engine", EngineBuiltin)
	viper.Set("minify.timeout", "30s")
	viper.Set("minify.exclude_dirs", []string{"node_modules", ".git"})
	viper.Set("guard.process", "dropbox")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EngineBuiltin, cfg.Minify.Engine)
	assert.Equal(t, 30*time.Second, cfg.Minify.Timeout)
	assert.Equal(t, []string{"node_modules", ".git"}, cfg.Minify.ExcludeDirs)
	assert.Equal(t, "dropbox", cfg.Guard.Process)
}
