// Package timespan resolves the time window for a KQL query execution.
//
// A window comes from one of three places, in priority order: an explicit
// timespan string supplied by the caller (parsed by Parse), a relative-time
// expression detected inside the query text itself (DetectWindowDays), or a
// conservative default. Resolve applies that policy.
package timespan

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Error kinds reported by Parse. Check with errors.Is; the concrete error
// is always a *ParseError carrying the offending input.
var (
	ErrEmpty       = errors.New("empty timespan")
	ErrGrammar     = errors.New("timespan grammar mismatch")
	ErrZero        = errors.New("zero duration")
	ErrNonPositive = errors.New("non-positive duration")
)

// ParseError describes a timespan string that could not be parsed.
type ParseError struct {
	Input  string // the literal input, untrimmed
	kind   error
	reason string
}

func (e *ParseError) Error() string { return e.reason }

func (e *ParseError) Unwrap() error { return e.kind }

func parseErrorf(input string, kind error, format string, args ...any) *ParseError {
	return &ParseError{Input: input, kind: kind, reason: fmt.Sprintf(format, args...)}
}

var (
	// ISO 8601 durations restricted to days/hours/minutes/seconds.
	// Months, years, and fractional components are not supported.
	isoPattern = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?$`)

	// Simple grammar: positive integer followed by d, h, or m.
	simplePattern = regexp.MustCompile(`^(\d+)([dhm])$`)
)

// New builds a duration from whole day/hour/minute/second components.
// A total of zero or less is rejected: a query window must always cover
// some elapsed time.
func New(days, hours, minutes, seconds int) (time.Duration, error) {
	d := time.Duration(days)*24*time.Hour +
		time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second
	if d <= 0 {
		return 0, ErrNonPositive
	}
	return d, nil
}

// Parse parses an explicit timespan string into a duration.
//
// Two grammars are supported:
//   - simple: "90d", "12h", "30m"
//   - ISO 8601: "P90D", "PT4H", "P1DT12H", "PT30M", "PT45S", "P7DT6H30M"
//
// A string beginning with "P" (case-insensitive) is parsed exclusively as
// ISO 8601 and never falls back to the simple grammar, so "Pxyz" is a
// terminal error rather than a simple-grammar retry.
func Parse(input string) (time.Duration, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return 0, parseErrorf(input, ErrEmpty, "empty timespan provided")
	}
	if strings.HasPrefix(strings.ToUpper(trimmed), "P") {
		return parseISO8601(trimmed)
	}
	return parseSimple(trimmed)
}

func parseISO8601(input string) (time.Duration, error) {
	m := isoPattern.FindStringSubmatch(strings.ToUpper(input))
	if m == nil {
		return 0, parseErrorf(input, ErrGrammar,
			"invalid ISO 8601 duration format: %q. Expected format like P90D, PT4H, P1DT12H", input)
	}

	days := atoiDefault(m[1])
	hours := atoiDefault(m[2])
	minutes := atoiDefault(m[3])
	seconds := atoiDefault(m[4])

	if days == 0 && hours == 0 && minutes == 0 && seconds == 0 {
		return 0, parseErrorf(input, ErrZero,
			"invalid ISO 8601 duration: %q specifies zero duration", input)
	}
	d, err := New(days, hours, minutes, seconds)
	if err != nil {
		return 0, parseErrorf(input, err, "invalid ISO 8601 duration: %q: %v", input, err)
	}
	return d, nil
}

func parseSimple(input string) (time.Duration, error) {
	m := simplePattern.FindStringSubmatch(strings.ToLower(input))
	if m == nil {
		return 0, parseErrorf(input, ErrGrammar,
			"invalid timespan format: %q. Use formats like '90d', '12h', '30m', or ISO 8601 like 'P90D', 'PT4H'", input)
	}

	value, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, parseErrorf(input, ErrGrammar, "invalid timespan magnitude: %q", input)
	}
	if value <= 0 {
		return 0, parseErrorf(input, ErrNonPositive, "timespan value must be positive, got: %d", value)
	}

	switch m[2] {
	case "d":
		return New(value, 0, 0, 0)
	case "h":
		return New(0, value, 0, 0)
	default:
		return New(0, 0, value, 0)
	}
}

func atoiDefault(s string) int {
	if s == "" {
		return 0
	}
	n, _ := strconv.Atoi(s)
	return n
}

// FormatISO8601 renders a duration as an ISO 8601 duration string using
// day/hour/minute/second components, e.g. "P7D", "PT4H30M", "P1DT12H".
// Sub-second precision is truncated.
func FormatISO8601(d time.Duration) string {
	total := int64(d / time.Second)
	if total <= 0 {
		return "PT0S"
	}

	days := total / 86400
	total %= 86400
	hours := total / 3600
	total %= 3600
	minutes := total / 60
	seconds := total % 60

	var b strings.Builder
	b.WriteByte('P')
	if days > 0 {
		fmt.Fprintf(&b, "%dD", days)
	}
	if hours > 0 || minutes > 0 || seconds > 0 {
		b.WriteByte('T')
		if hours > 0 {
			fmt.Fprintf(&b, "%dH", hours)
		}
		if minutes > 0 {
			fmt.Fprintf(&b, "%dM", minutes)
		}
		if seconds > 0 {
			fmt.Fprintf(&b, "%dS", seconds)
		}
	}
	return b.String()
}
