package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Version is set at build time
var Version = "dev"

var (
	cfgFile    string
	ignoreSync bool
	logger     = logrus.New()
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "minify-runner",
	Short: "Minify CSS and JS assets with external tools",
	Long: `Walks a directory tree (or takes a single file) and produces .min.css / .min.js
siblings by running csso or terser. Nothing is minified while a file
synchronization daemon such as syncthing is running.`,
	SilenceUsage: true,
	Version:      Version,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.minify-runner.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")

	// Run flags shared by every command that can trigger a run
	rootCmd.PersistentFlags().String("root", "", "Directory to walk (default is the current directory)")
	rootCmd.PersistentFlags().String("engine", "external", "Minifier engine (external, builtin)")
	rootCmd.PersistentFlags().Bool("strict", false, "Require the file name to end with the extension instead of containing it")
	rootCmd.PersistentFlags().Bool("dry-run", false, "List the files that would be minified without minifying them")
	rootCmd.PersistentFlags().Duration("timeout", 0, "Per-file timeout for the external tool (0 disables it)")
	rootCmd.PersistentFlags().String("tools-dir", "", "Directory whose node_modules/.bin holds csso and terser")
	rootCmd.PersistentFlags().StringSlice("exclude-dir", nil, "Directory names to skip while walking")
	rootCmd.PersistentFlags().BoolVar(&ignoreSync, "ignore-sync", false, "Minify even if the sync process is running")
	rootCmd.PersistentFlags().String("sync-process", "syncthing", "Name of the sync process to look for")

	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log.json", rootCmd.PersistentFlags().Lookup("log-json"))
	_ = viper.BindPFlag("minify.root", rootCmd.PersistentFlags().Lookup("root"))
	_ = viper.BindPFlag("minify.engine", rootCmd.PersistentFlags().Lookup("engine"))
	_ = viper.BindPFlag("minify.strict", rootCmd.PersistentFlags().Lookup("strict"))
	_ = viper.BindPFlag("minify.dry_run", rootCmd.PersistentFlags().Lookup("dry-run"))
	_ = viper.BindPFlag("minify.timeout", rootCmd.PersistentFlags().Lookup("timeout"))
	_ = viper.BindPFlag("minify.tools_dir", rootCmd.PersistentFlags().Lookup("tools-dir"))
	_ = viper.BindPFlag("minify.exclude_dirs", rootCmd.PersistentFlags().Lookup("exclude-dir"))
	_ = viper.BindPFlag("guard.process", rootCmd.PersistentFlags().Lookup("sync-process"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	// A missing .env file is fine
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".minify-runner" (without extension).
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".minify-runner")
	}

	// e.g. minify.engine becomes MINIFY_ENGINE
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}

	setupLogging()
}

func setupLogging() {
	level, err := logrus.ParseLevel(viper.GetString("log.level"))
	if err != nil {
		logger.Warnf("Invalid log level '%s', using 'info'", viper.GetString("log.level"))
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if viper.GetBool("log.json") {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}
}

func GetLogger() *logrus.Logger {
	return logger
}
