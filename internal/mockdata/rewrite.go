package mockdata

import (
	"fmt"
	"regexp"
)

// rewriteMarker separates the synthesized definition block from the
// rewritten query in the assembled text.
const rewriteMarker = "// Original query with mock data table"

// Rewrite replaces every whole-word occurrence of table in query with
// alias. Word-boundary matching leaves identifiers that merely contain
// the table name as a substring untouched. Like the window detector, the
// pass is plain text matching: an occurrence inside a string or comment
// literal is rewritten too.
func Rewrite(query, table, alias string) (string, error) {
	re, err := regexp.Compile(`\b` + regexp.QuoteMeta(table) + `\b`)
	if err != nil {
		return "", fmt.Errorf("rewrite query: compile pattern for table %q: %w", table, err)
	}
	return re.ReplaceAllString(query, alias), nil
}

// BuildTestQuery assembles the final executable text: the datatable
// definition block, a marker comment, then the query rewritten to read
// from the synthetic binding.
func BuildTestQuery(dt *Datatable, query string) (string, error) {
	rewritten, err := Rewrite(query, dt.TableName, dt.BindingName)
	if err != nil {
		return "", err
	}
	return dt.Definition + "\n\n" + rewriteMarker + "\n" + rewritten, nil
}
