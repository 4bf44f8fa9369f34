package timespan

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectWindowDays(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  int
		found bool
	}{
		{
			name:  "single ago in days",
			query: "SecurityEvent | where TimeGenerated > ago(30d)",
			want:  30,
			found: true,
		},
		{
			name:  "max across matches",
			query: "T | where A > ago(30d) or B > ago(6h)",
			want:  30,
			found: true,
		},
		{
			name:  "hours floor to days",
			query: "T | where TimeGenerated > ago(90h)",
			want:  3,
			found: true,
		},
		{
			name:  "hours clamp to one day",
			query: "T | where TimeGenerated > ago(6h)",
			want:  1,
			found: true,
		},
		{
			name:  "minutes count as one day",
			query: "T | where TimeGenerated > ago(5m)",
			want:  1,
			found: true,
		},
		{
			name:  "startofday family",
			query: "T | where TimeGenerated >= startofday(ago(14d))",
			want:  14,
			found: true,
		},
		{
			name:  "startofweek with internal spacing",
			query: "T | where X >= startofweek( ago( 21 d ) )",
			want:  21,
			found: true,
		},
		{
			name:  "case insensitive",
			query: "T | where X > AGO(10D)",
			want:  10,
			found: true,
		},
		{
			name:  "no time filter",
			query: "T | summarize count() by Computer",
			found: false,
		},
		{
			name:  "ago without unit does not match",
			query: "T | where X > ago(7)",
			found: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			days, found := DetectWindowDays(tc.query)
			assert.Equal(t, tc.found, found)
			if tc.found {
				assert.Equal(t, tc.want, days)
			}
		})
	}
}

func TestResolveExplicitWins(t *testing.T) {
	// The query mentions a 90-day window, but the explicit timespan rules.
	d, source, err := Resolve("12h", "T | where X > ago(90d)")
	require.NoError(t, err)
	assert.Equal(t, SourceExplicit, source)
	assert.Equal(t, 12*time.Hour, d)
}

func TestResolveExplicitParseFailureIsTerminal(t *testing.T) {
	// A bad explicit timespan must not fall through to detection.
	_, source, err := Resolve("Pxyz", "T | where X > ago(90d)")
	require.Error(t, err)
	assert.Equal(t, SourceExplicit, source)
	assert.ErrorIs(t, err, ErrGrammar)
}

func TestResolveDetectedAddsBuffer(t *testing.T) {
	// 90 detected days get a max(1, 90/10) = 9 day buffer.
	d, source, err := Resolve("", "T | where X > ago(90d)")
	require.NoError(t, err)
	assert.Equal(t, SourceDetected, source)
	assert.Equal(t, 99*24*time.Hour, d)

	// Small windows still get at least one buffer day.
	d, source, err = Resolve("", "T | where X > ago(3d)")
	require.NoError(t, err)
	assert.Equal(t, SourceDetected, source)
	assert.Equal(t, 4*24*time.Hour, d)
}

func TestResolveDefaultWindow(t *testing.T) {
	d, source, err := Resolve("", "T | summarize count()")
	require.NoError(t, err)
	assert.Equal(t, SourceDefault, source)
	assert.Equal(t, 7*24*time.Hour, d)
}

func TestSourceString(t *testing.T) {
	assert.Equal(t, "explicit", SourceExplicit.String())
	assert.Equal(t, "detected", SourceDetected.String())
	assert.Equal(t, "default", SourceDefault.String())
}
