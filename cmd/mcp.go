package cmd

import (
	"github.com/spf13/cobra"

	"github.com/denysvitali/minify-runner/pkg/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the minifier as MCP tools over stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		defer startTelemetry(cfg)()

		r, _, err := buildRunner(cfg)
		if err != nil {
			return err
		}

		logger.Info("Serving MCP over stdio")
		return mcp.NewServer(logger, r, Version).ServeStdio()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
