package render

import (
	"encoding/csv"
	"fmt"
	"io"
)

// CSV writes records as comma separated rows, one per record.
func CSV(w io.Writer, records []map[string]interface{}, columns []Column, includeHeaders bool) error {
	if len(columns) == 0 {
		return fmt.Errorf("no columns to render")
	}
	cw := csv.NewWriter(w)
	if includeHeaders {
		headers := make([]string, len(columns))
		for i, c := range columns {
			headers[i] = c.Header
		}
		if err := cw.Write(headers); err != nil {
			return fmt.Errorf("write csv header: %w", err)
		}
	}
	row := make([]string, len(columns))
	for _, rec := range records {
		for i, c := range columns {
			row[i] = Cell(rec, c.Path)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
