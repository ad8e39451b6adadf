// Package mcp exposes minification runs as Model Context Protocol tools.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"

	"github.com/denysvitali/minify-runner/internal/models"
	"github.com/denysvitali/minify-runner/pkg/runner"
)

// Server wraps the mcp-go server with the minification tools
type Server struct {
	logger    *logrus.Logger
	runner    *runner.Runner
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP server
func NewServer(logger *logrus.Logger, r *runner.Runner, version string) *Server {
	mcpServer := server.NewMCPServer(
		"minify-runner",
		version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	s := &Server{
		logger:    logger,
		runner:    r,
		mcpServer: mcpServer,
	}
	s.registerTools()

	return s
}

// ServeStdio serves MCP over stdin/stdout until the input is closed
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// MCPServer returns the underlying mcp-go server
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *Server) registerTools() {
	minifyTool := mcp.NewTool("minify",
		mcp.WithDescription("Minify CSS or JS files. With a path only that file is minified, otherwise every non-minified file under the root directory."),
		mcp.WithString("kind",
			mcp.Required(),
			mcp.Description("Asset kind: css or js"),
			mcp.Enum(string(models.KindCSS), string(models.KindJS)),
		),
		mcp.WithString("path",
			mcp.Description("Single file to minify, relative to the root directory"),
		),
		mcp.WithBoolean("strict",
			mcp.Description("Only select files whose name ends with the extension"),
		),
		mcp.WithBoolean("dry_run",
			mcp.Description("List the files that would be minified without running the minifier"),
		),
	)
	s.mcpServer.AddTool(minifyTool, s.handleMinify)

	syncStatusTool := mcp.NewTool("sync_status",
		mcp.WithDescription("Report whether the file synchronization daemon is running"),
	)
	s.mcpServer.AddTool(syncStatusTool, s.handleSyncStatus)
}

func (s *Server) handleMinify(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kindStr, err := request.RequireString("kind")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("kind parameter error: %v", err)), nil
	}

	kind, err := models.ParseKind(kindStr)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	path, err := s.runner.Confine(request.GetString("path", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	opts := s.runner.DefaultOptions(kind, path)
	opts.Strict = request.GetBool("strict", opts.Strict)
	opts.DryRun = request.GetBool("dry_run", opts.DryRun)

	report, err := s.runner.Run(ctx, opts)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("minification failed: %v", err)), nil
	}

	text := formatReport(report)
	if report.HasFailures() {
		return mcp.NewToolResultError(text), nil
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleSyncStatus(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status := s.runner.SyncStatus(ctx)
	data, err := json.Marshal(status)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode status: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func formatReport(report *models.Report) string {
	if report.SyncDetected {
		return "Sync process is running, nothing was minified."
	}

	ok, failed, skipped := report.Counts()

	var b strings.Builder
	fmt.Fprintf(&b, "Mode: %s\nMinified: %d, failed: %d, skipped: %d\n", report.Mode, ok, failed, skipped)
	for _, res := range report.Results {
		fmt.Fprintf(&b, "- [%s] %s -> %s", res.Status, res.Candidate.Path, res.Candidate.Output)
		if res.Error != "" {
			fmt.Fprintf(&b, ": %s", res.Error)
		}
		b.WriteString("\n")
	}
	return b.String()
}
