package mockdata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoerceScalar(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Value
	}{
		{"integer", "4624", Value{Kind: KindLong, Long: 4624}},
		{"zero", "0", Value{Kind: KindLong, Long: 0}},
		{"decimal", "3.14", Value{Kind: KindReal, Real: 3.14}},
		{"leading dot decimal", ".5", Value{Kind: KindReal, Real: 0.5}},
		{"trailing dot decimal", "5.", Value{Kind: KindReal, Real: 5}},
		{"two dots is a string", "1.2.3", Value{Kind: KindString, Str: "1.2.3"}},
		{"bool true", "true", Value{Kind: KindBool, Bool: true}},
		{"bool mixed case", "False", Value{Kind: KindBool, Bool: false}},
		{"plain string", "TestComputer", Value{Kind: KindString, Str: "TestComputer"}},
		{"negative stays string", "-5", Value{Kind: KindString, Str: "-5"}},
		{"timestamp stays string at this stage", "2023-01-01T12:00:00Z", Value{Kind: KindString, Str: "2023-01-01T12:00:00Z"}},
		{"braces but not json", "{not json}", Value{Kind: KindString, Str: "{not json}"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, coerceScalar(tc.in))
		})
	}
}

func TestCoerceScalarDynamic(t *testing.T) {
	v := coerceScalar(`{"IpAddress":"192.168.1.1","Port":445}`)
	require.Equal(t, KindDynamic, v.Kind)

	m, ok := v.Dyn.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "192.168.1.1", m["IpAddress"])
	assert.Equal(t, float64(445), m["Port"])
}

func TestDecodeXML(t *testing.T) {
	records, err := DecodeXML(SampleXML)
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, []string{"TimeGenerated", "EventID", "Computer", "Properties"}, rec.Columns())

	v, ok := rec.Get("TimeGenerated")
	require.True(t, ok)
	assert.Equal(t, Value{Kind: KindString, Str: "2023-01-01T12:00:00Z"}, v)

	v, ok = rec.Get("EventID")
	require.True(t, ok)
	assert.Equal(t, Value{Kind: KindLong, Long: 4624}, v)

	// Nested element becomes a one-level dynamic mapping with coerced leaves.
	v, ok = rec.Get("Properties")
	require.True(t, ok)
	require.Equal(t, KindDynamic, v.Kind)
	nested, ok := v.Dyn.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "192.168.1.1", nested["IpAddress"])
	assert.Equal(t, int64(445), nested["Port"])
}

func TestDecodeXMLMultipleRows(t *testing.T) {
	payload := `<rows>
		<row><a>1</a><b>x</b></row>
		<row><a>2</a><b>y</b></row>
		<row><a>3</a><b>z</b></row>
	</rows>`

	records, err := DecodeXML(payload)
	require.NoError(t, err)
	require.Len(t, records, 3)

	v, _ := records[2].Get("a")
	assert.Equal(t, int64(3), v.Long)
	v, _ = records[2].Get("b")
	assert.Equal(t, "z", v.Str)
}

func TestDecodeXMLInlineJSON(t *testing.T) {
	payload := `<rows><row><Props>{"key": "value"}</Props></row></rows>`

	records, err := DecodeXML(payload)
	require.NoError(t, err)

	v, ok := records[0].Get("Props")
	require.True(t, ok)
	assert.Equal(t, KindDynamic, v.Kind)
}

func TestDecodeXMLErrors(t *testing.T) {
	_, err := DecodeXML("<rows><row></rows>")
	require.Error(t, err)
	var derr *DecodeError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "xml", derr.Channel)
	assert.Equal(t, "<rows><row></rows>", derr.Input)

	_, err = DecodeXML("<rows></rows>")
	require.Error(t, err)
	require.ErrorAs(t, err, &derr)
	assert.Contains(t, derr.Err.Error(), "no <row> elements")
}

func TestDecodeCSV(t *testing.T) {
	records, err := DecodeCSV(SampleCSV)
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, []string{"TimeGenerated", "EventID", "Computer", "Account"}, rec.Columns())

	v, _ := rec.Get("EventID")
	assert.Equal(t, Value{Kind: KindLong, Long: 4624}, v)
	v, _ = rec.Get("Account")
	assert.Equal(t, Value{Kind: KindString, Str: "TestUser"}, v)
}

func TestDecodeCSVCoercion(t *testing.T) {
	payload := "count,score,active,name\n42,99.5,true,alice\n0,.5,False,bob"

	records, err := DecodeCSV(payload)
	require.NoError(t, err)
	require.Len(t, records, 2)

	v, _ := records[0].Get("count")
	assert.Equal(t, KindLong, v.Kind)
	v, _ = records[0].Get("score")
	assert.Equal(t, KindReal, v.Kind)
	v, _ = records[1].Get("active")
	assert.Equal(t, Value{Kind: KindBool, Bool: false}, v)
	v, _ = records[1].Get("name")
	assert.Equal(t, Value{Kind: KindString, Str: "bob"}, v)
}

func TestDecodeCSVErrors(t *testing.T) {
	// Header only: no data rows.
	_, err := DecodeCSV("a,b,c")
	require.Error(t, err)
	var derr *DecodeError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "csv", derr.Channel)

	// Ragged row.
	_, err = DecodeCSV("a,b\n1,2,3")
	require.Error(t, err)
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "csv", derr.Channel)

	// Empty payload.
	_, err = DecodeCSV("")
	require.Error(t, err)
}
