package dataset

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind selects the coercion applied to a column's text value.
type Kind int

const (
	Text Kind = iota
	Number
	Date
	Code
)

func (k Kind) String() string {
	switch k {
	case Text:
		return "text"
	case Number:
		return "number"
	case Date:
		return "date"
	case Code:
		return "code"
	}
	return "unknown"
}

// Column describes one expected column of a worksheet.
type Column struct {
	Name     string
	Kind     Kind
	Required bool
	// StripQuote removes the leading apostrophe written to keep Sheets from
	// reformatting lot and invoice numbers.
	StripQuote bool
	// Width left-pads Code values with zeros.
	Width int
}

// Schema is the typed contract between raw sheet text and the rest of the
// system.
type Schema struct {
	Columns []Column
	// Strict drops columns that are not declared.
	Strict bool
	// NormalizeHeaders trims and upper-cases sheet headers before matching.
	NormalizeHeaders bool
}

// SchemaError reports required columns missing from a worksheet.
type SchemaError struct {
	Dataset string
	Sheet   string
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("dataset %s: sheet %q is missing columns %s", e.Dataset, e.Sheet, strings.Join(e.Missing, ", "))
}

// Names returns the declared column names in order.
func (s Schema) Names() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// Column looks up a declared column by name.
func (s Schema) Column(name string) (Column, bool) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

func (s Schema) normalize(h string) string {
	h = strings.TrimSpace(h)
	if s.NormalizeHeaders {
		h = strings.ToUpper(h)
	}
	return h
}

// Zero returns the value used for a declared column absent from the sheet.
func (c Column) Zero() any {
	switch c.Kind {
	case Number:
		return float64(0)
	case Date:
		return time.Time{}
	}
	return ""
}

// Coerce converts the raw text of a cell.
func (c Column) Coerce(raw string) any {
	switch c.Kind {
	case Number:
		return ParseNumber(raw)
	case Date:
		return ParseDate(raw)
	case Code:
		return NormalizeCode(raw, c.Width)
	}
	v := strings.TrimSpace(raw)
	if c.StripQuote {
		v = strings.ReplaceAll(v, "'", "")
	}
	return v
}

// ParseNumber accepts both "12.5" and "12,5". Unparsable, empty, NaN and
// infinite values are 0.
func ParseNumber(raw string) float64 {
	v := strings.TrimSpace(raw)
	if v == "" {
		return 0
	}
	v = strings.ReplaceAll(v, ",", ".")
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

var dateLayouts = []string{
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"02/01/2006",
	"2/1/2006",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseDate reads day-first dates in the dashboard's time zone. Unparsable
// values yield the zero time.
func ParseDate(raw string) time.Time {
	v := strings.TrimSpace(raw)
	if v == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, v, Zone); err == nil {
			return t
		}
	}
	return time.Time{}
}

// NormalizeCode strips a trailing ".0" left by numeric formatting and
// zero-pads to width.
func NormalizeCode(raw string, width int) string {
	v := strings.TrimSpace(strings.ReplaceAll(raw, "'", ""))
	v = strings.TrimSuffix(v, ".0")
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	if width > 0 && len(v) < width {
		v = strings.Repeat("0", width-len(v)) + v
	}
	return v
}
