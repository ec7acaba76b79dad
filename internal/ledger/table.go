// Package ledger parses the delimited registry and ledger tables into
// typed records. Parsing is contained at the row level: a malformed
// field falls back to its documented default and never aborts the rest
// of the table.
package ledger

import (
	"errors"
	"strings"
)

// ErrNoHeader is returned when a table has no usable header row.
var ErrNoHeader = errors.New("ledger table has no header row")

// Table is a parsed delimited table with case-insensitive header lookup.
type Table struct {
	headers map[string]int
	rows    [][]string
}

// ParseTable splits raw delimited text into a Table. Fields may be
// quoted and may contain the delimiter inside quotes, so rows are split
// by tracking quote state character by character rather than by naive
// splitting. A doubled quote inside a quoted field is an escaped quote.
func ParseTable(raw string, delim rune) (*Table, error) {
	var rows [][]string
	for _, line := range strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		rows = append(rows, splitRow(line, delim))
	}
	return TableFromRows(rows)
}

// TableFromRows builds a Table from an already-split values matrix,
// such as the one the Sheets API returns. The first row is the header.
func TableFromRows(rows [][]string) (*Table, error) {
	if len(rows) == 0 {
		return nil, ErrNoHeader
	}
	headers := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		h = strings.ToLower(strings.TrimSpace(h))
		if h == "" {
			continue
		}
		if _, dup := headers[h]; !dup {
			headers[h] = i
		}
	}
	if len(headers) == 0 {
		return nil, ErrNoHeader
	}
	return &Table{headers: headers, rows: rows[1:]}, nil
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Get returns the named column of row i, or "" when the column is
// unknown or the row is short. Column order is never assumed.
func (t *Table) Get(i int, column string) string {
	idx, ok := t.headers[strings.ToLower(column)]
	if !ok {
		return ""
	}
	row := t.rows[i]
	if idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// HasColumn reports whether the header row contains the named column.
func (t *Table) HasColumn(column string) bool {
	_, ok := t.headers[strings.ToLower(column)]
	return ok
}

func splitRow(line string, delim rune) []string {
	var (
		fields   []string
		field    strings.Builder
		inQuotes bool
	)
	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '"':
			if inQuotes && i+1 < len(runes) && runes[i+1] == '"' {
				field.WriteRune('"')
				i++
				continue
			}
			inQuotes = !inQuotes
		case r == delim && !inQuotes:
			fields = append(fields, field.String())
			field.Reset()
		default:
			field.WriteRune(r)
		}
	}
	fields = append(fields, field.String())
	return fields
}
