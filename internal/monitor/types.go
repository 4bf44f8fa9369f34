package monitor

// Column describes one column of a query result table.
type Column struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Ordinal int    `json:"ordinal"`
}

// QueryResult is the decoded outcome of a workspace query: the primary
// table's columns in wire order, plus rows keyed by column name.
type QueryResult struct {
	Columns []Column
	Rows    []map[string]any
}

// Wire shapes for the Logs query API.

type queryRequest struct {
	Query    string `json:"query"`
	Timespan string `json:"timespan,omitempty"`
}

type wireColumn struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type wireTable struct {
	Name    string       `json:"name"`
	Columns []wireColumn `json:"columns"`
	Rows    [][]any      `json:"rows"`
}

type queryResponse struct {
	Tables []wireTable `json:"tables"`
}
