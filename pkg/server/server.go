package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/denysvitali/minify-runner/internal/models"
	"github.com/denysvitali/minify-runner/pkg/config"
	"github.com/denysvitali/minify-runner/pkg/executor"
	"github.com/denysvitali/minify-runner/pkg/runner"
	"github.com/denysvitali/minify-runner/pkg/telemetry"
)

// Server exposes minification runs over HTTP
type Server struct {
	config   *config.Config
	logger   *logrus.Logger
	runner   *runner.Runner
	executor *executor.Executor
	engine   *gin.Engine
	server   *http.Server
}

// New creates a new server instance
func New(cfg *config.Config, logger *logrus.Logger, r *runner.Runner, exec *executor.Executor) *Server {
	if logger.Level == logrus.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(ginLogger(logger))

	if cfg.Telemetry.Enabled {
		engine.Use(otelgin.Middleware("minify-runner"))
	}

	engine.Use(corsMiddleware())

	if cfg.Server.SessionAPIKey != "" {
		engine.Use(authMiddleware(cfg.Server.SessionAPIKey))
	}

	server := &Server{
		config:   cfg,
		logger:   logger,
		runner:   r,
		executor: exec,
		engine:   engine,
	}
	server.setupRoutes()

	return server
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.config.Server.Port),
		Handler: s.engine,
	}

	s.logger.Infof("Starting server on port %d", s.config.Server.Port)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Engine returns the gin engine for testing purposes
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) setupRoutes() {
	s.engine.GET("/alive", s.handleAlive)
	s.engine.GET("/server_info", s.handleServerInfo)
	s.engine.GET("/sync_status", s.handleSyncStatus)
	s.engine.POST("/minify", s.handleMinify)
}

func (s *Server) handleAlive(c *gin.Context) {
	if s.runner == nil {
		c.JSON(http.StatusOK, gin.H{"status": "not initialized"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleServerInfo(c *gin.Context) {
	now := time.Now()
	started, lastRun, last := s.runner.Stats()

	response := models.ServerInfoResponse{
		Uptime:    now.Sub(started).Seconds(),
		IdleTime:  now.Sub(lastRun).Seconds(),
		Root:      s.runner.Root(),
		Engine:    s.runner.Engine().Name(),
		LastRun:   models.SummarizeReport(last),
		Sync:      s.runner.SyncStatus(c.Request.Context()),
		Resources: s.executor.SystemStats(s.runner.Root()),
	}

	s.logger.Debugf("Server info endpoint response: uptime=%.2fs, idle_time=%.2fs", response.Uptime, response.IdleTime)
	c.JSON(http.StatusOK, response)
}

func (s *Server) handleSyncStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.runner.SyncStatus(c.Request.Context()))
}

func (s *Server) handleMinify(c *gin.Context) {
	ctx, span := otel.Tracer("minify-runner").Start(c.Request.Context(), "handle_minify")
	defer span.End()

	var req models.MinifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	kind, err := models.ParseKind(req.Kind)
	if err != nil {
		span.RecordError(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	span.SetAttributes(attribute.String("kind", string(kind)))

	if s.config.Telemetry.Enabled {
		telemetry.ReportJSON(ctx, s.logger, "minify_request", req)
	}

	path, err := s.runner.Confine(req.Path)
	if err != nil {
		span.RecordError(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	opts := s.runner.DefaultOptions(kind, path)
	opts.Strict = opts.Strict || req.Strict
	opts.IgnoreSync = opts.IgnoreSync || req.IgnoreSync
	opts.DryRun = opts.DryRun || req.DryRun

	report, err := s.runner.Run(ctx, opts)
	if err != nil {
		span.RecordError(err)
		s.logger.Errorf("Minification run failed: %v", err)
		status := http.StatusInternalServerError
		if errors.Is(err, context.Canceled) {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"error": err.Error(), "report": report})
		return
	}

	if s.config.Telemetry.Enabled {
		telemetry.ReportJSON(ctx, s.logger, "minify_report", models.SummarizeReport(report))
	}

	c.JSON(http.StatusOK, report)
}

// ginLogger creates a gin logger middleware using logrus
func ginLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		statusCode := c.Writer.Status()
		entry := logger.WithFields(logrus.Fields{
			"status":     statusCode,
			"method":     c.Request.Method,
			"path":       path,
			"ip":         c.ClientIP(),
			"latency":    time.Since(start),
			"user_agent": c.Request.UserAgent(),
		})

		if raw != "" {
			entry = entry.WithField("query", raw)
		}

		if statusCode >= 500 {
			entry.Error("Server error")
		} else if statusCode >= 400 {
			entry.Warn("Client error")
		} else {
			entry.Info("Request completed")
		}
	}
}

// corsMiddleware adds CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, Authorization, X-Session-API-Key")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// authMiddleware validates API key
func authMiddleware(expectedAPIKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("X-Session-API-Key") != expectedAPIKey {
			c.JSON(http.StatusForbidden, gin.H{"error": "Invalid API Key"})
			c.Abort()
			return
		}
		c.Next()
	}
}
