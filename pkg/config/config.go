package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Minify    MinifyConfig    `mapstructure:"minify"`
	Guard     GuardConfig     `mapstructure:"guard"`
	Server    ServerConfig    `mapstructure:"server"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Log       LogConfig       `mapstructure:"log"`
}

// MinifyConfig contains file selection and tool configuration
type MinifyConfig struct {
	Root        string        `mapstructure:"root"`
	Engine      string        `mapstructure:"engine"`
	Strict      bool          `mapstructure:"strict"`
	DryRun      bool          `mapstructure:"dry_run"`
	Timeout     time.Duration `mapstructure:"timeout"`
	ToolsDir    string        `mapstructure:"tools_dir"`
	ExcludeDirs []string      `mapstructure:"exclude_dirs"`
	CSS         CSSConfig     `mapstructure:"css"`
	JS          JSConfig      `mapstructure:"js"`
}

// CSSConfig configures the CSS minifier
type CSSConfig struct {
	Tool string `mapstructure:"tool"`
}

// JSConfig configures the JS minifier
type JSConfig struct {
	Tool          string `mapstructure:"tool"`
	SourceMap     bool   `mapstructure:"source_map"`
	SourceMapRoot string `mapstructure:"source_map_root"`
}

// GuardConfig configures the sync process guard
type GuardConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Process string `mapstructure:"process"`
}

// ServerConfig contains server-specific configuration
type ServerConfig struct {
	Port          int    `mapstructure:"port"`
	SessionAPIKey string `mapstructure:"session_api_key"`
}

// TelemetryConfig contains telemetry configuration
type TelemetryConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// LogConfig contains logging configuration
type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

const (
	EngineExternal = "external"
	EngineBuiltin  = "builtin"
)

// Load loads the configuration from viper
func Load() (*Config, error) {
	cfg := &Config{}

	setDefaults()

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, err
	}

	if err := postProcess(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Default returns a configuration populated with default values only
func Default() *Config {
	return &Config{
		Minify: MinifyConfig{
			Engine: EngineExternal,
			CSS:    CSSConfig{Tool: "csso"},
			JS:     JSConfig{Tool: "terser", SourceMap: true},
		},
		Guard:  GuardConfig{Enabled: true, Process: "syncthing"},
		Server: ServerConfig{Port: 8000},
		Log:    LogConfig{Level: "info"},
	}
}

func setDefaults() {
	// Minify defaults
	viper.SetDefault("minify.engine", EngineExternal)
	viper.SetDefault("minify.strict", false)
	viper.SetDefault("minify.dry_run", false)
	viper.SetDefault("minify.timeout", "0s")
	viper.SetDefault("minify.exclude_dirs", []string{})
	viper.SetDefault("minify.css.tool", "csso")
	viper.SetDefault("minify.js.tool", "terser")
	viper.SetDefault("minify.js.source_map", true)

	// Guard defaults
	viper.SetDefault("guard.enabled", true)
	viper.SetDefault("guard.process", "syncthing")

	// Server defaults
	viper.SetDefault("server.port", 8000)

	// Telemetry is opt-in for a CLI
	viper.SetDefault("telemetry.enabled", false)

	// Log defaults
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.json", false)

	_ = viper.BindEnv("server.session_api_key", "SESSION_API_KEY")
	_ = viper.BindEnv("telemetry.endpoint", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

func postProcess(cfg *Config) error {
	return Normalize(cfg)
}

// Normalize validates cfg and resolves relative paths against the current directory
func Normalize(cfg *Config) error {
	if cfg.Minify.Root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return err
		}
		cfg.Minify.Root = wd
	}

	if !filepath.IsAbs(cfg.Minify.Root) {
		abs, err := filepath.Abs(cfg.Minify.Root)
		if err != nil {
			return err
		}
		cfg.Minify.Root = abs
	}

	info, err := os.Stat(cfg.Minify.Root)
	if err != nil {
		return fmt.Errorf("root directory %s: %w", cfg.Minify.Root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("root %s is not a directory", cfg.Minify.Root)
	}

	if cfg.Minify.ToolsDir != "" && !filepath.IsAbs(cfg.Minify.ToolsDir) {
		abs, err := filepath.Abs(cfg.Minify.ToolsDir)
		if err != nil {
			return err
		}
		cfg.Minify.ToolsDir = abs
	}

	switch cfg.Minify.Engine {
	case "":
		cfg.Minify.Engine = EngineExternal
	case EngineExternal, EngineBuiltin:
	default:
		return fmt.Errorf("unknown engine %q (expected %s or %s)", cfg.Minify.Engine, EngineExternal, EngineBuiltin)
	}

	if cfg.Minify.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %s", cfg.Minify.Timeout)
	}

	if cfg.Server.SessionAPIKey == "" {
		cfg.Server.SessionAPIKey = os.Getenv("SESSION_API_KEY")
	}

	return nil
}
