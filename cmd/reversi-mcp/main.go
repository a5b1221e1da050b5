package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dmmcquay/reversi-mcp/internal/config"
	"github.com/dmmcquay/reversi-mcp/internal/engine"
	"github.com/dmmcquay/reversi-mcp/internal/health"
	"github.com/dmmcquay/reversi-mcp/internal/logging"
	mcptools "github.com/dmmcquay/reversi-mcp/internal/mcp"
	"github.com/dmmcquay/reversi-mcp/internal/metrics"
	"github.com/dmmcquay/reversi-mcp/internal/ratelimit"
	"github.com/dmmcquay/reversi-mcp/internal/retry"
	httpserver "github.com/dmmcquay/reversi-mcp/internal/server"
	"github.com/dmmcquay/reversi-mcp/internal/shutdown"
	"github.com/mark3labs/mcp-go/server"
)

var (
	// Version information injected at build time.
	GitCommit = "unknown"
	BuildTime = "unknown"
)

func main() {
	var (
		showVersion bool
		configPath  string
		noHTTP      bool
	)
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.StringVar(&configPath, "config", "", "Path to a JSON or YAML config file")
	flag.BoolVar(&noHTTP, "no-http", false, "Serve MCP on stdio only, without the HTTP server")
	flag.Parse()

	if configPath == "" {
		configPath = config.GetConfigPath()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if showVersion {
		fmt.Printf("reversi-mcp version %s\n", cfg.Server.Version)
		fmt.Printf("Git commit: %s\n", GitCommit)
		fmt.Printf("Build time: %s\n", BuildTime)
		os.Exit(0)
	}

	// stdout carries the MCP protocol, so logs go to stderr.
	logger := logging.NewLoggerFromConfig(&logging.Config{
		Level:   cfg.Logging.Level,
		Format:  logging.LogFormat(cfg.Logging.Format),
		Service: cfg.Server.Name,
		Version: cfg.Server.Version,
		Prefix:  cfg.Logging.Prefix,
		Output:  os.Stderr,
	})
	logger.Info("Starting reversi MCP server version %s (commit: %s, built: %s)",
		cfg.Server.Version, GitCommit, BuildTime)

	prom := metrics.NewPrometheusCollector()
	collector := metrics.NewCollector()

	eng := engine.NewEngine(&cfg.Engine, logger)
	eng.SetRecorder(metrics.Recorders{prom, collector})
	logger.Info("Engine ready", "depth", eng.Depth())

	rateLimiter := ratelimit.NewLimiter(&cfg.RateLimit, logger)

	checker := health.NewChecker(logger, cfg.Server.Version, GitCommit)
	checker.RegisterCheck("engine", health.PingCheck(eng))
	checker.Observe(func(name string, err error) {
		prom.RecordEngineHealthCheck(err == nil)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdowns := shutdown.NewManager(logger)
	shutdowns.Register("rate-limiter", func(context.Context) error {
		rateLimiter.Stop()
		return nil
	})

	if !noHTTP {
		httpServer := httpserver.NewHTTPServer(httpserver.Options{
			Addr:    cfg.Server.HTTPAddr,
			Engine:  eng,
			Limiter: rateLimiter,
			Checker: checker,
			Logger:  logger,
		})
		err := retry.Do(ctx, retry.BindPolicy(), func(context.Context) error {
			return httpServer.Start()
		}, func(attempt int, err error, wait time.Duration) {
			logger.Warn("HTTP listener not ready, retrying", "attempt", attempt, "wait", wait, "error", err)
		})
		if err != nil {
			logger.Error("Failed to start HTTP server", "error", err)
			os.Exit(1)
		}
		shutdowns.Register("http", httpServer.Stop)
	}
	shutdowns.HandleSignals(ctx)

	mcpServer := server.NewMCPServer(
		cfg.Server.Name,
		cfg.Server.Version,
		server.WithLogging(),
	)

	middleware := mcptools.NewMiddleware(logger, collector, rateLimiter)
	middleware.SetPrometheus(prom)

	tools := mcptools.NewToolsHandler(eng, logger)
	tools.SetMiddleware(middleware)
	tools.SetStatusSources(cfg.Server.Version, checker, rateLimiter, collector)
	tools.RegisterTools(mcpServer)

	logger.Info("Reversi MCP server ready")

	done := make(chan error, 1)
	go func() {
		done <- server.ServeStdio(mcpServer)
	}()

	select {
	case err := <-done:
		if err != nil {
			logger.Error("Server error", "error", err)
		}
	case <-shutdowns.Done():
		logger.Info("Server stopped by signal")
	}

	if err := shutdowns.Shutdown(shutdown.DefaultTimeout); err != nil {
		os.Exit(1)
	}
}
