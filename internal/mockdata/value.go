// Package mockdata turns caller-supplied mock data (XML or CSV) into a
// KQL datatable literal that can stand in for a real table.
//
// The pipeline is Decode* -> Synthesize -> BuildTestQuery: payloads decode
// into ordered typed records, records synthesize into a datatable plus an
// alias binding, and the original query is rewritten so references to the
// real table resolve to the synthetic one. Every step is a pure function
// of its input.
package mockdata

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Kind tags a decoded cell value.
type Kind int

const (
	KindString Kind = iota
	KindBool
	KindLong
	KindReal
	KindDynamic
)

// Value is a decoded cell: a closed tagged union over the shapes a mock
// data leaf can take. The tag determines the rendering rule when the
// value becomes a datatable literal.
type Value struct {
	Kind Kind
	Bool bool
	Long int64
	Real float64
	Str  string
	Dyn  any // JSON-compatible: map[string]any, []any, or scalars
}

// Native returns the value as a plain Go value suitable for JSON encoding.
func (v Value) Native() any {
	switch v.Kind {
	case KindBool:
		return v.Bool
	case KindLong:
		return v.Long
	case KindReal:
		return v.Real
	case KindDynamic:
		return v.Dyn
	default:
		return v.Str
	}
}

// coerceScalar applies the scalar coercion ladder to a leaf token:
// all-digit text becomes a long, digits with exactly one dot become a
// real, true/false (any case) become a bool, a {...} body that parses as
// JSON becomes dynamic, and anything else stays a string.
func coerceScalar(text string) Value {
	if isDigits(text) {
		if n, err := strconv.ParseInt(text, 10, 64); err == nil {
			return Value{Kind: KindLong, Long: n}
		}
	}
	if isDecimal(text) {
		if f, err := strconv.ParseFloat(text, 64); err == nil {
			return Value{Kind: KindReal, Real: f}
		}
	}
	switch strings.ToLower(text) {
	case "true":
		return Value{Kind: KindBool, Bool: true}
	case "false":
		return Value{Kind: KindBool, Bool: false}
	}
	if strings.HasPrefix(text, "{") && strings.HasSuffix(text, "}") {
		var dyn any
		if err := json.Unmarshal([]byte(text), &dyn); err == nil {
			return Value{Kind: KindDynamic, Dyn: dyn}
		}
	}
	return Value{Kind: KindString, Str: text}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// isDecimal accepts digit runs with exactly one dot, e.g. "3.14", ".5", "5.".
func isDecimal(s string) bool {
	if strings.Count(s, ".") != 1 {
		return false
	}
	rest := strings.Replace(s, ".", "", 1)
	return isDigits(rest)
}
