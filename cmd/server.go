package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/denysvitali/minify-runner/pkg/server"
)

// serverCmd represents the serve command
var serverCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve minification runs over HTTP",
	Long: `Start an HTTP server that runs the minifier on request (POST /minify) and reports
the sync guard state and the outcome of the last run.`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(serverCmd)

	serverCmd.Flags().IntP("port", "p", 8000, "Port to listen on")
	serverCmd.Flags().String("session-api-key", "", "API key for session authentication")
	serverCmd.Flags().Bool("enable-telemetry", false, "Enable OpenTelemetry tracing")
	serverCmd.Flags().String("otel-endpoint", "", "OpenTelemetry endpoint (if empty, uses auto-export)")

	_ = viper.BindPFlag("server.port", serverCmd.Flags().Lookup("port"))
	_ = viper.BindPFlag("server.session_api_key", serverCmd.Flags().Lookup("session-api-key"))
	_ = viper.BindPFlag("telemetry.enabled", serverCmd.Flags().Lookup("enable-telemetry"))
	_ = viper.BindPFlag("telemetry.endpoint", serverCmd.Flags().Lookup("otel-endpoint"))
}

func runServer(cmd *cobra.Command, args []string) error {
	logger := GetLogger()
	logger.Info("Starting minify-runner server")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	defer startTelemetry(cfg)()

	r, exec, err := buildRunner(cfg)
	if err != nil {
		return err
	}

	srv := server.New(cfg, logger, r, exec)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- srv.Start()
	}()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-interrupt:
		logger.Infof("Received signal %v, shutting down...", sig)

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Errorf("Server shutdown error: %v", err)
			return err
		}

		logger.Info("Server stopped gracefully")
		return nil
	}
}
