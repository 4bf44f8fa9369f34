package timespan

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	agoPattern     = regexp.MustCompile(`(?i)ago\s*\(\s*(\d+)\s*([dhm])\s*\)`)
	startofPattern = regexp.MustCompile(`(?i)startof\w+\s*\(\s*ago\s*\(\s*(\d+)\s*([dhm])\s*\)\s*\)`)
)

// DetectWindowDays scans query text for relative-time expressions and
// returns the largest implied window in whole days.
//
// Two pattern families are recognized, case-insensitively, anywhere in
// the text: ago(N<unit>) and startof<word>(ago(N<unit>)), with unit d, h,
// or m. Hours convert to days by flooring with a minimum of one; minutes
// always count as one day, so sub-day filters still get a usable window.
//
// The scan is plain text matching with no awareness of string or comment
// literals; a pattern inside either still counts. That is an accepted
// trade-off against carrying a full KQL front end.
func DetectWindowDays(query string) (int, bool) {
	maxDays := 0
	found := false

	for _, pattern := range []*regexp.Regexp{agoPattern, startofPattern} {
		for _, m := range pattern.FindAllStringSubmatch(query, -1) {
			value, err := strconv.Atoi(m[1])
			if err != nil {
				continue
			}
			days := unitDays(value, strings.ToLower(m[2]))
			if !found || days > maxDays {
				maxDays = days
				found = true
			}
		}
	}

	return maxDays, found
}

func unitDays(value int, unit string) int {
	switch unit {
	case "d":
		return value
	case "h":
		if d := value / 24; d > 1 {
			return d
		}
		return 1
	default: // "m"
		return 1
	}
}

// Source reports how a window was resolved.
type Source int

const (
	SourceExplicit Source = iota // caller-supplied timespan, validated by Parse
	SourceDetected               // inferred from the query text, with buffer
	SourceDefault                // neither supplied nor detected
)

func (s Source) String() string {
	switch s {
	case SourceExplicit:
		return "explicit"
	case SourceDetected:
		return "detected"
	default:
		return "default"
	}
}

// DefaultWindow bounds queries that carry no explicit or detected window.
// It keeps an unconstrained query from scanning unbounded history.
const DefaultWindow = 7 * 24 * time.Hour

// Resolve picks the time window for a query execution.
//
// An explicit timespan always wins and is validated through Parse; a parse
// failure is terminal, never silently replaced by detection. Otherwise a
// window detected in the query text is widened by max(1, days/10) buffer
// days so a slightly-off heuristic still covers the data the query asks
// for. With neither, DefaultWindow applies.
func Resolve(explicit, query string) (time.Duration, Source, error) {
	if strings.TrimSpace(explicit) != "" {
		d, err := Parse(explicit)
		if err != nil {
			return 0, SourceExplicit, err
		}
		return d, SourceExplicit, nil
	}

	if days, ok := DetectWindowDays(query); ok {
		buffer := days / 10
		if buffer < 1 {
			buffer = 1
		}
		return time.Duration(days+buffer) * 24 * time.Hour, SourceDetected, nil
	}

	return DefaultWindow, SourceDefault, nil
}
