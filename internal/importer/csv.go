package importer

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/matsen/bibmerge/internal/entry"
)

// Special CSV columns; every other column is a field.
const (
	csvTypeColumn = "type"
	csvKeyColumn  = "key"
)

// ParseCSV parses a CSV file whose header row names the fields. A "type"
// column sets the entry type (default misc) and a "key" column the citation
// key (default "row<N>"). Rows with the wrong number of columns are skipped
// with a warning.
func ParseCSV(data []byte, path string) (*ParserResult, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing CSV: %w", err)
	}

	result := NewParserResult(path)
	if len(records) == 0 {
		return result, nil
	}

	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if header[i] == "" {
			return nil, fmt.Errorf("parsing CSV: empty column name at position %d", i+1)
		}
	}

	for n, row := range records[1:] {
		rowNum := n + 2 // 1-indexed, after the header
		if len(row) != len(header) {
			result.warnf("row %d: has %d columns, want %d", rowNum, len(row), len(header))
			continue
		}

		e := entry.New("misc", "")
		for i, value := range row {
			value = strings.TrimSpace(value)
			switch header[i] {
			case csvTypeColumn:
				if value != "" {
					e.Type = strings.ToLower(value)
				}
			case csvKeyColumn:
				e.Key = value
			default:
				e.SetField(header[i], value)
			}
		}
		if len(e.FieldNames()) == 0 {
			continue // Blank row
		}
		if e.Key == "" {
			e.Key = "row" + strconv.Itoa(rowNum)
		}
		result.Database.InsertEntry(e)
	}

	return result, nil
}
