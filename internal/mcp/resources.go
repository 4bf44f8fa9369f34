package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	mcplib "github.com/mark3labs/mcp-go/mcp"
)

const runsRecentURI = "sentra://runs/recent"

func (s *Server) registerResources() {
	// sentra://runs/recent — recently executed query runs.
	s.mcpServer.AddResource(
		mcplib.NewResource(
			runsRecentURI,
			"Recent Query Runs",
			mcplib.WithResourceDescription("Recently executed query runs with outcome, window, and latency"),
			mcplib.WithMIMEType("application/json"),
		),
		s.handleRunsRecent,
	)
}

func (s *Server) handleRunsRecent(ctx context.Context, request mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	if s.runs == nil {
		return nil, fmt.Errorf("mcp: run history is disabled")
	}

	runs, err := s.runs.Recent(ctx, 20)
	if err != nil {
		return nil, fmt.Errorf("mcp: recent runs: %w", err)
	}

	data, err := json.MarshalIndent(map[string]any{
		"runs":  runs,
		"total": len(runs),
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("mcp: marshal runs: %w", err)
	}

	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      runsRecentURI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
