package mockdata

import (
	"encoding/csv"
	"encoding/xml"
	"errors"
	"fmt"
	"strings"
)

// Sample payloads returned to callers who supplied no mock data at all,
// so the error doubles as format documentation.
const (
	SampleXML = `<rows>
    <row>
        <TimeGenerated>2023-01-01T12:00:00Z</TimeGenerated>
        <EventID>4624</EventID>
        <Computer>TestComputer</Computer>
        <Properties>
            <IpAddress>192.168.1.1</IpAddress>
            <Port>445</Port>
        </Properties>
    </row>
</rows>`

	SampleCSV = "TimeGenerated,EventID,Computer,Account\n2023-01-01T12:00:00Z,4624,TestComputer,TestUser"
)

// DecodeError reports a mock-data payload that could not be decoded.
type DecodeError struct {
	Channel string // "xml" or "csv"
	Input   string // the offending payload
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode mock data (%s): %v", e.Channel, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

type xmlNode struct {
	XMLName  xml.Name
	Text     string    `xml:",chardata"`
	Children []xmlNode `xml:",any"`
}

type xmlDoc struct {
	Rows []xmlNode `xml:"row"`
}

// DecodeXML decodes a document of top-level <row> elements into records.
//
// A child element with text content becomes a scalar column, coerced per
// the scalar ladder. A child with no text but nested elements becomes a
// dynamic mapping of its children, exactly one level deep: grandchildren
// are coerced as scalars, never recursed further. Deeper structure and
// text-less grandchildren are dropped.
func DecodeXML(payload string) ([]Record, error) {
	var doc xmlDoc
	if err := xml.Unmarshal([]byte(payload), &doc); err != nil {
		return nil, &DecodeError{Channel: "xml", Input: payload, Err: err}
	}
	if len(doc.Rows) == 0 {
		return nil, &DecodeError{Channel: "xml", Input: payload, Err: errors.New("no <row> elements found")}
	}

	records := make([]Record, 0, len(doc.Rows))
	for _, row := range doc.Rows {
		var rec Record
		for _, child := range row.Children {
			name := child.XMLName.Local
			text := strings.TrimSpace(child.Text)
			switch {
			case text != "":
				rec.Set(name, coerceScalar(text))
			case len(child.Children) > 0:
				nested := make(map[string]any, len(child.Children))
				for _, grand := range child.Children {
					gt := strings.TrimSpace(grand.Text)
					if gt == "" {
						continue
					}
					nested[grand.XMLName.Local] = coerceScalar(gt).Native()
				}
				if len(nested) > 0 {
					rec.Set(name, Value{Kind: KindDynamic, Dyn: nested})
				}
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

// DecodeCSV decodes header-plus-rows CSV text into records. Cell values
// undergo the same scalar coercion as XML leaf values.
func DecodeCSV(payload string) ([]Record, error) {
	reader := csv.NewReader(strings.NewReader(payload))
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, &DecodeError{Channel: "csv", Input: payload, Err: err}
	}
	if len(rows) < 2 {
		return nil, &DecodeError{Channel: "csv", Input: payload, Err: errors.New("need a header row and at least one data row")}
	}

	header := rows[0]
	records := make([]Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		var rec Record
		for i, name := range header {
			if i < len(row) {
				rec.Set(name, coerceScalar(row[i]))
			}
		}
		records = append(records, rec)
	}
	return records, nil
}
