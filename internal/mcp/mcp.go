// Package mcp implements the Model Context Protocol server for sentra.
//
// Two tools are exposed: sentinel_logs_search runs a KQL query against a
// Log Analytics workspace with automatic time-window resolution, and
// sentinel_logs_search_with_dummy_data tests a query against
// caller-supplied mock data by synthesizing an in-query datatable and
// rewriting the query before execution.
package mcp

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel/metric"

	"github.com/umbra-sec/sentra/internal/history"
	"github.com/umbra-sec/sentra/internal/monitor"
	"github.com/umbra-sec/sentra/internal/telemetry"
)

// LogsClient executes a KQL query over a time window against the live
// backend. Implementations carry their own timeout policy; this server
// never retries a failed execution.
type LogsClient interface {
	Query(ctx context.Context, query string, window time.Duration) (*monitor.QueryResult, error)
}

// Validator checks KQL syntax before a mock-data run. ok=false with a
// nil error means the query is syntactically invalid for the returned
// reasons; a non-nil error means the check itself could not run.
type Validator interface {
	Validate(ctx context.Context, query string) (ok bool, errs []string, err error)
}

// AcceptAllValidator treats every query as valid. It stands in when no
// KQL front end is wired; the live engine still rejects bad syntax.
type AcceptAllValidator struct{}

// Validate implements Validator.
func (AcceptAllValidator) Validate(context.Context, string) (bool, []string, error) {
	return true, nil, nil
}

// Server wires the query tools and resources onto an MCP server.
type Server struct {
	mcpServer *mcpserver.MCPServer
	logs      LogsClient // nil when Azure credentials are not configured
	validator Validator
	runs      *history.Store // nil disables run history
	logger    *slog.Logger

	queryCount   metric.Int64Counter
	queryLatency metric.Float64Histogram
}

// New creates and configures a new MCP server with all tools and
// resources. logs may be nil (tools report the missing client at call
// time) and runs may be nil (history disabled).
func New(logs LogsClient, validator Validator, runs *history.Store, logger *slog.Logger, version string) *Server {
	if validator == nil {
		validator = AcceptAllValidator{}
	}
	s := &Server{
		logs:      logs,
		validator: validator,
		runs:      runs,
		logger:    logger,
	}

	meter := telemetry.Meter("sentra/mcp")
	s.queryCount, _ = meter.Int64Counter("sentra.queries",
		metric.WithDescription("Query tool invocations"))
	s.queryLatency, _ = meter.Float64Histogram("sentra.query.duration",
		metric.WithDescription("Query execution latency"),
		metric.WithUnit("ms"))

	s.mcpServer = mcpserver.NewMCPServer(
		"sentra",
		version,
		mcpserver.WithResourceCapabilities(true, true),
		mcpserver.WithToolCapabilities(true),
	)

	s.registerResources()
	s.registerTools()

	return s
}

// MCPServer returns the underlying mcp-go server for transport setup.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}

func errorResult(msg string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}

// jsonResult marshals v as the tool result body. isError marks domain
// failures; protocol-level errors are never used for those.
func jsonResult(v any, isError bool) *mcplib.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult("encode tool result: " + err.Error())
	}
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: string(data)},
		},
		IsError: isError,
	}
}
