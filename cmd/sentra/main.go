package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"golang.org/x/sync/errgroup"

	"github.com/umbra-sec/sentra/internal/config"
	"github.com/umbra-sec/sentra/internal/history"
	"github.com/umbra-sec/sentra/internal/mcp"
	"github.com/umbra-sec/sentra/internal/monitor"
	"github.com/umbra-sec/sentra/internal/telemetry"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run0())
}

func run0() int {
	level := slog.LevelInfo
	if os.Getenv("SENTRA_LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	// Logs go to stderr: on the stdio transport, stdout carries the
	// protocol frames.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, logger); err != nil {
		slog.Error("fatal error", "error", err)
		return 1
	}
	return 0
}

func run(ctx context.Context, logger *slog.Logger) error {
	// Load .env file if present (non-fatal; production won't have one).
	_ = godotenv.Load()

	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	slog.Info("sentra starting", "version", version, "transport", cfg.Transport)

	// Initialize OpenTelemetry.
	otelShutdown, err := telemetry.Init(ctx, cfg.OTELEndpoint, cfg.ServiceName, version, cfg.OTELInsecure)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() { _ = otelShutdown(context.Background()) }()

	// Open the run history store (optional — disabled if the path is empty).
	var runs *history.Store
	if cfg.HistoryPath != "" {
		runs, err = history.Open(cfg.HistoryPath)
		if err != nil {
			return fmt.Errorf("history: %w", err)
		}
		defer func() { _ = runs.Close() }()
		logger.Info("history: enabled", "path", cfg.HistoryPath)
	} else {
		logger.Info("history: disabled (no SENTRA_HISTORY_PATH)")
	}

	// Create the Azure Monitor Logs client. Without credentials the server
	// still starts: the mock-data tool works offline, and the live search
	// tool reports the missing client per call.
	var logs mcp.LogsClient
	if cfg.AzureConfigured() {
		client, err := monitor.NewClient(monitor.Config{
			TenantID:     cfg.TenantID,
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			WorkspaceID:  cfg.WorkspaceID,
			Endpoint:     cfg.LogsEndpoint,
			AuthEndpoint: cfg.AuthEndpoint,
			Timeout:      cfg.QueryTimeout,
		})
		if err != nil {
			return fmt.Errorf("monitor: %w", err)
		}
		logs = client
		logger.Info("azure monitor logs: enabled", "workspace_id", cfg.WorkspaceID)
	} else {
		logger.Warn("azure monitor logs: disabled (missing Azure credentials)")
	}

	// Create MCP server.
	srv := mcp.New(logs, nil, runs, logger, version)

	if cfg.Transport == "stdio" {
		logger.Info("serving MCP over stdio")
		stdio := mcpserver.NewStdioServer(srv.MCPServer())
		stdio.SetErrorLogger(slog.NewLogLogger(logger.Handler(), slog.LevelError))
		if err := stdio.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("stdio serve: %w", err)
		}
		slog.Info("sentra stopped")
		return nil
	}

	// Streamable HTTP transport.
	streamable := mcpserver.NewStreamableHTTPServer(srv.MCPServer(),
		mcpserver.WithEndpointPath("/mcp"),
	)
	httpSrv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      streamable,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("serving MCP over HTTP", "port", cfg.Port, "path", "/mcp")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		// Wait for shutdown signal or a serve failure.
		<-gctx.Done()
		slog.Info("sentra shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return httpSrv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		return err
	}

	slog.Info("sentra stopped")
	return nil
}
