package mcp

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/umbra-sec/sentra/internal/history"
	"github.com/umbra-sec/sentra/internal/mockdata"
	"github.com/umbra-sec/sentra/internal/monitor"
	"github.com/umbra-sec/sentra/internal/timespan"
)

const (
	toolSearch = "sentinel_logs_search"
	toolDummy  = "sentinel_logs_search_with_dummy_data"
)

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcplib.NewTool(toolSearch,
			mcplib.WithDescription(`Run a KQL query against Azure Monitor Logs.

The time window is resolved in priority order: the timespan parameter when
given, a window detected from ago()/startof*() expressions in the query
text (widened by a small buffer), or a conservative 7-day default.`),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithOpenWorldHintAnnotation(true),
			mcplib.WithString("query",
				mcplib.Description("The KQL query to run"),
				mcplib.Required(),
			),
			mcplib.WithString("timespan",
				mcplib.Description("Time window, e.g. '90d', '12h', '30m', or ISO 8601 like 'P90D', 'PT4H'. Auto-detected from the query when omitted."),
			),
		),
		s.handleSearch,
	)

	s.mcpServer.AddTool(
		mcplib.NewTool(toolDummy,
			mcplib.WithDescription(`Test a KQL query against mock data using a datatable construct.

Mock data is supplied as XML (<rows> of <row> elements, preferred) or CSV
(header plus rows). The tool synthesizes an in-query datatable literal,
rewrites the query so the target table reads from it, and executes the
result against the live engine for a realistic simulation that never
touches real table data.`),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithOpenWorldHintAnnotation(true),
			mcplib.WithString("query",
				mcplib.Description("The KQL query to test"),
				mcplib.Required(),
			),
			mcplib.WithString("table_name",
				mcplib.Description("Table the query reads from; mock data substitutes for it"),
				mcplib.DefaultString("TestTable"),
			),
			mcplib.WithString("mock_data_xml",
				mcplib.Description("Mock rows as XML: a document of <row> elements whose children are columns"),
			),
			mcplib.WithString("mock_data_csv",
				mcplib.Description("Mock rows as CSV: header line plus one line per row"),
			),
		),
		s.handleDummySearch,
	)
}

// searchResponse is the JSON body returned by both query tools.
type searchResponse struct {
	Valid           bool             `json:"valid"`
	Errors          []string         `json:"errors"`
	Error           string           `json:"error,omitempty"`
	Query           string           `json:"query,omitempty"`
	Timespan        string           `json:"timespan,omitempty"`
	ResultCount     int              `json:"result_count"`
	Columns         []monitor.Column `json:"columns"`
	Rows            []map[string]any `json:"rows"`
	ExecutionTimeMS int64            `json:"execution_time_ms"`
	Warnings        []string         `json:"warnings"`
	Message         string           `json:"message"`
}

func failedSearch(msg string, warnings []string) searchResponse {
	return searchResponse{
		Valid:    false,
		Errors:   []string{msg},
		Error:    msg,
		Columns:  []monitor.Column{},
		Rows:     []map[string]any{},
		Warnings: append(warnings, msg),
		Message:  msg,
	}
}

func (s *Server) handleSearch(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	query := request.GetString("query", "")
	explicit := request.GetString("timespan", "")

	if query == "" {
		s.logger.Error("missing required parameter: query")
		return jsonResult(failedSearch("missing required parameter: query", nil), true), nil
	}

	resp, isErr := s.runSearch(ctx, toolSearch, query, explicit)
	return jsonResult(resp, isErr), nil
}

// runSearch resolves the window, executes the query, and shapes the
// response. Shared by the live tool and the mock-data tool.
func (s *Server) runSearch(ctx context.Context, tool, query, explicit string) (searchResponse, bool) {
	if s.logs == nil {
		msg := "Azure Monitor Logs client is not initialized. Check your credentials and configuration."
		s.logger.Error(msg)
		return failedSearch(msg, nil), true
	}

	window, source, err := timespan.Resolve(explicit, query)
	if err != nil {
		msg := fmt.Sprintf("invalid timespan format: %v", err)
		s.logger.Error("invalid timespan format", "timespan", explicit, "error", err)
		return failedSearch(msg, nil), true
	}
	switch source {
	case timespan.SourceExplicit:
		s.logger.Info("parsed explicit timespan", "timespan", explicit, "window", window)
	case timespan.SourceDetected:
		s.logger.Info("auto-detected timespan from query", "window", window)
	default:
		s.logger.Info("no timespan provided and no time filter detected in query, using default",
			"window", window)
	}

	warnings := largeResultWarnings(query)

	start := time.Now()
	result, execErr := s.logs.Query(ctx, query, window)
	elapsed := time.Since(start)

	s.observe(ctx, tool, elapsed, execErr == nil)
	s.recordRun(ctx, tool, query, window, result, elapsed, execErr)

	if execErr != nil {
		msg := fmt.Sprintf("error executing query: %v", execErr)
		if errors.Is(execErr, context.DeadlineExceeded) {
			msg = "query timed out"
		}
		s.logger.Error("query execution failed", "error", execErr)
		return failedSearch(msg, warnings), true
	}

	resp := searchResponse{
		Valid:           true,
		Errors:          []string{},
		Query:           query,
		Timespan:        explicit,
		ResultCount:     len(result.Rows),
		Columns:         result.Columns,
		Rows:            result.Rows,
		ExecutionTimeMS: elapsed.Milliseconds(),
		Warnings:        warnings,
		Message:         "Query executed successfully",
	}
	if len(result.Columns) == 0 && len(result.Rows) == 0 {
		resp.Message = "Query returned no tables or results"
	}
	return resp, false
}

// dummyResponse wraps a mock-data run with its rewrite metadata.
type dummyResponse struct {
	Valid         bool            `json:"valid"`
	Errors        []string        `json:"errors"`
	Error         string          `json:"error,omitempty"`
	OriginalQuery string          `json:"original_query"`
	TableName     string          `json:"table_name"`
	DatatableVar  string          `json:"datatable_var"`
	TestQuery     string          `json:"test_query"`
	Result        *searchResponse `json:"result"`
}

// missingMockDataResponse is the onboarding-flavored error returned when
// neither mock data channel is supplied: it embeds a valid example of
// each format.
type missingMockDataResponse struct {
	Valid         bool     `json:"valid"`
	Errors        []string `json:"errors"`
	Error         string   `json:"error"`
	SampleFormats struct {
		XML string `json:"mock_data_xml"`
		CSV string `json:"mock_data_csv"`
	} `json:"sample_formats"`
}

func (s *Server) handleDummySearch(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	query := request.GetString("query", "")
	tableName := request.GetString("table_name", "TestTable")

	if query == "" {
		s.logger.Error("missing required parameter: query")
		return errorResult("missing required parameter: query"), nil
	}

	mockXML := request.GetString("mock_data_xml", "")
	mockCSV := request.GetString("mock_data_csv", "")

	var records []mockdata.Record
	var err error
	switch {
	case mockXML != "":
		records, err = mockdata.DecodeXML(mockXML)
	case mockCSV != "":
		records, err = mockdata.DecodeCSV(mockCSV)
	default:
		s.logger.Error("missing required mock data")
		resp := missingMockDataResponse{
			Errors: []string{"missing required mock data in a supported format (XML or CSV)"},
			Error:  "provide mock data as mock_data_xml or mock_data_csv",
		}
		resp.SampleFormats.XML = mockdata.SampleXML
		resp.SampleFormats.CSV = mockdata.SampleCSV
		return jsonResult(resp, true), nil
	}
	if err != nil {
		s.logger.Error("failed to decode mock data", "error", err)
		return errorResult(fmt.Sprintf("failed to decode mock data: %v", err)), nil
	}

	ok, validationErrs, err := s.validator.Validate(ctx, query)
	if err != nil {
		s.logger.Error("KQL validation error", "error", err)
		return errorResult(fmt.Sprintf("KQL validation error: %v", err)), nil
	}
	if !ok {
		s.logger.Error("KQL validation failed", "errors", validationErrs)
		return jsonResult(dummyResponse{
			Errors:        validationErrs,
			Error:         "KQL validation failed",
			OriginalQuery: query,
			TableName:     tableName,
		}, true), nil
	}

	dt, err := mockdata.Synthesize(records, tableName)
	if err != nil {
		s.logger.Error("failed to generate datatable", "error", err)
		return errorResult(fmt.Sprintf("failed to generate datatable: %v", err)), nil
	}

	testQuery, err := mockdata.BuildTestQuery(dt, query)
	if err != nil {
		s.logger.Error("failed to rewrite query", "error", err)
		return errorResult(fmt.Sprintf("failed to rewrite query: %v", err)), nil
	}

	// The rewritten text carries the original query's time filters, so
	// window detection runs over it the same way a live search would.
	inner, isErr := s.runSearch(ctx, toolDummy, testQuery, "")

	resp := dummyResponse{
		Valid:         inner.Valid,
		Errors:        inner.Errors,
		Error:         inner.Error,
		OriginalQuery: query,
		TableName:     tableName,
		DatatableVar:  dt.BindingName,
		TestQuery:     testQuery,
		Result:        &inner,
	}
	return jsonResult(resp, isErr), nil
}

var takeLimitPattern = regexp.MustCompile(`(?i)\b(take|limit)\s+(\d+)`)

// largeResultWarnings flags take/limit clauses above 250 rows.
func largeResultWarnings(query string) []string {
	warnings := []string{}
	if m := takeLimitPattern.FindStringSubmatch(query); m != nil {
		if n, err := strconv.Atoi(m[2]); err == nil && n > 250 {
			warnings = append(warnings,
				fmt.Sprintf("Large result set requested (%d rows). Consider using a smaller limit for better performance.", n))
		}
	}
	return warnings
}

func (s *Server) observe(ctx context.Context, tool string, elapsed time.Duration, ok bool) {
	attrs := metric.WithAttributes(
		attribute.String("tool", tool),
		attribute.Bool("ok", ok),
	)
	s.queryCount.Add(ctx, 1, attrs)
	s.queryLatency.Record(ctx, float64(elapsed.Milliseconds()), attrs)
}

// recordRun writes the execution to history. History is advisory: a
// store failure is logged, never surfaced to the caller.
func (s *Server) recordRun(ctx context.Context, tool, query string, window time.Duration, result *monitor.QueryResult, elapsed time.Duration, execErr error) {
	if s.runs == nil {
		return
	}
	run := history.Run{
		Tool:       tool,
		Query:      query,
		WindowDays: int(window / (24 * time.Hour)),
		DurationMS: elapsed.Milliseconds(),
		OK:         execErr == nil,
	}
	if result != nil {
		run.RowCount = len(result.Rows)
	}
	if execErr != nil {
		run.Error = execErr.Error()
	}
	if err := s.runs.Record(ctx, run); err != nil {
		s.logger.Warn("failed to record run history", "error", err)
	}
}
