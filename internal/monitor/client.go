// Package monitor implements a client for the Azure Monitor Logs query
// API: authenticated KQL execution over a Log Analytics workspace.
package monitor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/umbra-sec/sentra/internal/timespan"
)

// DefaultEndpoint is the public Logs query API base URL.
const DefaultEndpoint = "https://api.loganalytics.io"

// DefaultAuthEndpoint is the AAD token authority base URL.
const DefaultAuthEndpoint = "https://login.microsoftonline.com"

// DefaultQueryTimeout bounds a single workspace query.
const DefaultQueryTimeout = 60 * time.Second

// Config holds the settings needed to construct a Client.
type Config struct {
	TenantID     string
	ClientID     string
	ClientSecret string

	// WorkspaceID is the Log Analytics workspace GUID queries run against.
	WorkspaceID string

	// Endpoint is the Logs API base URL. Defaults to DefaultEndpoint.
	Endpoint string

	// AuthEndpoint is the AAD authority base URL. Defaults to
	// DefaultAuthEndpoint; overridable for sovereign clouds and tests.
	AuthEndpoint string

	// Timeout applies to each query execution. Defaults to
	// DefaultQueryTimeout.
	Timeout time.Duration

	// HTTPClient is an optional custom HTTP client.
	HTTPClient *http.Client
}

// Client executes KQL queries against a Log Analytics workspace.
// All methods are safe for concurrent use. The client never retries; the
// caller owns retry policy.
type Client struct {
	endpoint    string
	workspaceID string
	timeout     time.Duration
	client      *http.Client
	tokens      *tokenManager
}

// NewClient creates a Client from the given configuration.
func NewClient(cfg Config) (*Client, error) {
	if cfg.TenantID == "" || cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("monitor: TenantID, ClientID, and ClientSecret are required")
	}
	if cfg.WorkspaceID == "" {
		return nil, fmt.Errorf("monitor: WorkspaceID is required")
	}

	endpoint := strings.TrimRight(cfg.Endpoint, "/")
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	authEndpoint := cfg.AuthEndpoint
	if authEndpoint == "" {
		authEndpoint = DefaultAuthEndpoint
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultQueryTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		endpoint:    endpoint,
		workspaceID: cfg.WorkspaceID,
		timeout:     timeout,
		client:      httpClient,
		tokens:      newTokenManager(authEndpoint, cfg.TenantID, cfg.ClientID, cfg.ClientSecret, endpoint+"/.default", httpClient),
	}, nil
}

// Query runs a KQL statement against the workspace over the given time
// window. An empty result set is a valid zero-row QueryResult, not an
// error.
func (c *Client) Query(ctx context.Context, query string, window time.Duration) (*QueryResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(queryRequest{
		Query:    query,
		Timespan: timespan.FormatISO8601(window),
	})
	if err != nil {
		return nil, fmt.Errorf("monitor: encode query request: %w", err)
	}

	reqURL := fmt.Sprintf("%s/v1/workspaces/%s/query", c.endpoint, c.workspaceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("monitor: build query request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("monitor: execute query: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return nil, fmt.Errorf("monitor: read query response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(data))}
		var envelope errorEnvelope
		if err := json.Unmarshal(data, &envelope); err == nil && envelope.Error.Message != "" {
			apiErr.Code = envelope.Error.Code
			apiErr.Message = envelope.Error.Message
		}
		return nil, apiErr
	}

	var qr queryResponse
	if err := json.Unmarshal(data, &qr); err != nil {
		return nil, fmt.Errorf("monitor: decode query response: %w", err)
	}

	result := &QueryResult{Columns: []Column{}, Rows: []map[string]any{}}
	if len(qr.Tables) == 0 {
		return result, nil
	}

	table := qr.Tables[0]
	for i, col := range table.Columns {
		result.Columns = append(result.Columns, Column{Name: col.Name, Type: col.Type, Ordinal: i})
	}
	for _, row := range table.Rows {
		m := make(map[string]any, len(result.Columns))
		for i, col := range result.Columns {
			if i < len(row) {
				m[col.Name] = row[i]
			}
		}
		result.Rows = append(result.Rows, m)
	}
	return result, nil
}
