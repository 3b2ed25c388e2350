// Package schema declares the tabular layouts the loaders understand and the
// helpers that map header names to row positions.
//
// Columns are declared once as FieldSpecs. Loaders never index a row by a
// literal header string; they ask a HeaderIndex for the cell of a spec, which
// also handles alternate header spellings (aliases) used by older exports.
package schema

import (
	"fmt"
	"strconv"
	"strings"
)

// FieldType represents the expected data type for a column.
type FieldType int

const (
	FieldText FieldType = iota
	FieldNumeric
)

// FieldSpec describes a single column of a tabular source.
type FieldSpec struct {
	Name     string    // Canonical header name
	Aliases  []string  // Alternate header names, tried in order after Name
	Type     FieldType // Expected data type
	Required bool      // Header (or one alias) must be present
}

// headers returns Name followed by the aliases.
func (f FieldSpec) headers() []string {
	return append([]string{f.Name}, f.Aliases...)
}

// HeaderIndex maps column names (lowercase) to their position in a row.
type HeaderIndex map[string]int

// MakeHeaderIndex creates a HeaderIndex from a header row.
// Keys are cleaned and lowercased; the first occurrence of a repeated
// header wins.
func MakeHeaderIndex(header []string) HeaderIndex {
	idx := make(HeaderIndex, len(header))
	for i, h := range header {
		key := strings.ToLower(CleanCell(h))
		if key == "" {
			continue
		}
		if _, seen := idx[key]; !seen {
			idx[key] = i
		}
	}
	return idx
}

// Has reports whether the header row carries the column or one of its aliases.
func (idx HeaderIndex) Has(spec FieldSpec) bool {
	for _, h := range spec.headers() {
		if _, ok := idx[strings.ToLower(h)]; ok {
			return true
		}
	}
	return false
}

// Cell returns the cleaned value of the column for a row. When the canonical
// column is empty for this row, the aliases are tried in order, so a file
// carrying both "모델명" and "차종" falls back per row.
func (idx HeaderIndex) Cell(row []string, spec FieldSpec) string {
	for _, h := range spec.headers() {
		pos, ok := idx[strings.ToLower(h)]
		if !ok || pos >= len(row) {
			continue
		}
		if v := CleanCell(row[pos]); v != "" {
			return v
		}
	}
	return ""
}

// Int returns the column parsed with ParseInt.
func (idx HeaderIndex) Int(row []string, spec FieldSpec) int {
	return ParseInt(idx.Cell(row, spec))
}

// ValidateHeaders checks that every required column exists in the headers.
// Returns the header index, or an error listing the missing columns.
func ValidateHeaders(headers []string, specs []FieldSpec) (HeaderIndex, error) {
	idx := MakeHeaderIndex(headers)
	var missing []string

	for _, spec := range specs {
		if spec.Required && !idx.Has(spec) {
			missing = append(missing, spec.Name)
		}
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}

	return idx, nil
}

// CleanCell removes common spreadsheet artifacts from a cell value:
// surrounding whitespace, an Excel formula prefix (="...") and surrounding quotes.
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	s = strings.Trim(s, `"'`)

	return strings.TrimSpace(s)
}

// numericNoise is stripped from numeric cells before parsing.
var numericNoise = strings.NewReplacer(",", "", " ", "", "만원", "", "원", "")

// ParseInt parses the leading integer of a numeric cell.
//
// Thousands separators and unit suffixes are ignored, a fractional part is
// truncated, and anything that does not start with a number yields 0.
// "1,234" -> 1234, "686.7" -> 686, "12abc" -> 12, "" -> 0, "abc" -> 0.
func ParseInt(s string) int {
	s = numericNoise.Replace(CleanCell(s))

	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0
	}

	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}
