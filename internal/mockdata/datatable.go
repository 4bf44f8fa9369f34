package mockdata

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrNoRecords is returned by Synthesize for an empty record list.
var ErrNoRecords = errors.New("mock data must contain at least one record")

// ColumnType is a KQL scalar type name used in a datatable declaration.
type ColumnType string

const (
	TypeBool     ColumnType = "bool"
	TypeLong     ColumnType = "long"
	TypeReal     ColumnType = "real"
	TypeDatetime ColumnType = "datetime"
	TypeDynamic  ColumnType = "dynamic"
	TypeString   ColumnType = "string"
)

// Column is one synthesized datatable column.
type Column struct {
	Name string
	Type ColumnType
}

// Datatable is a synthesized KQL literal table plus its alias binding.
type Datatable struct {
	Columns     []Column
	Rows        []string // rendered row literals, input order
	TableName   string   // the real table name the caller's query references
	BindingName string   // name the datatable literal is bound to
	Definition  string   // the full two-statement let block
}

// bindingSuffix derives the datatable binding name from the table name.
// The suffix keeps the binding from ever colliding with a KQL keyword
// while the alias statement keeps the original name resolvable.
const bindingSuffix = "Dummy"

var datetimePrefix = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}`)

// Synthesize builds a datatable literal from decoded records.
//
// Column set and order come from the first record; later records may
// carry extra keys, which are ignored for schema purposes. A column's
// type comes from the first record's value, except that a timestamp-
// prefixed string in any record forces the column to datetime.
func Synthesize(records []Record, tableName string) (*Datatable, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("synthesize datatable for %q: %w", tableName, ErrNoRecords)
	}

	first := records[0]
	columns := make([]Column, 0, first.Len())
	for _, name := range first.Columns() {
		columns = append(columns, Column{Name: name, Type: inferType(records, name, first)})
	}

	rows := make([]string, 0, len(records))
	for _, rec := range records {
		cells := make([]string, 0, len(columns))
		for _, col := range columns {
			v, ok := rec.Get(col.Name)
			if !ok {
				cells = append(cells, nullLiteral(col.Type))
				continue
			}
			cells = append(cells, renderLiteral(v, col.Type))
		}
		rows = append(rows, strings.Join(cells, ", "))
	}

	binding := tableName + bindingSuffix
	dt := &Datatable{
		Columns:     columns,
		Rows:        rows,
		TableName:   tableName,
		BindingName: binding,
	}
	dt.Definition = renderDefinition(dt)
	return dt, nil
}

func inferType(records []Record, column string, first Record) ColumnType {
	// A timestamp-looking string anywhere in the column wins.
	for _, rec := range records {
		if v, ok := rec.Get(column); ok && v.Kind == KindString && datetimePrefix.MatchString(v.Str) {
			return TypeDatetime
		}
	}

	v, _ := first.Get(column)
	switch v.Kind {
	case KindBool:
		return TypeBool
	case KindLong:
		return TypeLong
	case KindReal:
		return TypeReal
	case KindDynamic:
		return TypeDynamic
	default:
		return TypeString
	}
}

// renderLiteral renders a value as a KQL literal for the given column
// type. The column type, not the value's own tag, decides the rule: a
// later record may disagree with the inferred type, and the literal must
// still slot into the declared column.
func renderLiteral(v Value, typ ColumnType) string {
	switch typ {
	case TypeDatetime:
		s := stringify(v)
		// Idempotent: a value already wrapped stays as-is.
		if strings.HasPrefix(s, "datetime(") {
			return s
		}
		return "datetime(" + s + ")"
	case TypeBool:
		if isTruthy(v) {
			return "true"
		}
		return "false"
	case TypeLong, TypeReal:
		return stringify(v)
	case TypeDynamic:
		data, err := json.Marshal(v.Native())
		if err != nil {
			// Dyn only ever holds decoded JSON, so this cannot fire;
			// render the failure visibly rather than panicking.
			return `dynamic(null)`
		}
		return "dynamic(" + string(data) + ")"
	default: // string
		return `"` + strings.ReplaceAll(stringify(v), `"`, `\"`) + `"`
	}
}

// nullLiteral fills a cell for a record that lacks the column entirely.
func nullLiteral(typ ColumnType) string {
	if typ == TypeString {
		return `""`
	}
	return string(typ) + "(null)"
}

func stringify(v Value) string {
	switch v.Kind {
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindLong:
		return strconv.FormatInt(v.Long, 10)
	case KindReal:
		return strconv.FormatFloat(v.Real, 'g', -1, 64)
	case KindDynamic:
		data, err := json.Marshal(v.Dyn)
		if err != nil {
			return ""
		}
		return string(data)
	default:
		return v.Str
	}
}

func isTruthy(v Value) bool {
	switch v.Kind {
	case KindBool:
		return v.Bool
	case KindLong:
		return v.Long != 0
	case KindReal:
		return v.Real != 0
	case KindDynamic:
		return v.Dyn != nil
	default:
		return v.Str != ""
	}
}

func renderDefinition(dt *Datatable) string {
	colDefs := make([]string, 0, len(dt.Columns))
	for _, col := range dt.Columns {
		colDefs = append(colDefs, fmt.Sprintf("%s:%s", col.Name, col.Type))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "let %s = datatable(\n    %s\n) [\n    %s\n];\n",
		dt.BindingName,
		strings.Join(colDefs, ",\n    "),
		strings.Join(dt.Rows, ",\n    "),
	)
	fmt.Fprintf(&b, "let %s = %s;", dt.TableName, dt.BindingName)
	return b.String()
}
