package sheets

import (
	"context"
	"fmt"
	"strings"
)

// Location identifies one worksheet inside a spreadsheet.
type Location struct {
	SpreadsheetID string
	Sheet         string
}

func (l Location) String() string {
	return l.SpreadsheetID + "/" + l.Sheet
}

// A1 returns the sheet-qualified A1 range. An empty cells argument selects
// the whole worksheet.
func (l Location) A1(cells string) string {
	quoted := "'" + strings.ReplaceAll(l.Sheet, "'", "''") + "'"
	if cells == "" {
		return quoted
	}
	return fmt.Sprintf("%s!%s", quoted, cells)
}

// Table is the raw content of a worksheet: the first row becomes Header and
// every following row is padded to the header width.
type Table struct {
	Header []string
	Rows   [][]string
}

// Empty reports whether the worksheet had no content at all.
func (t Table) Empty() bool {
	return len(t.Header) == 0 && len(t.Rows) == 0
}

type TableReader interface {
	ReadTable(ctx context.Context, loc Location) (Table, error)
	ReadHeader(ctx context.Context, loc Location) ([]string, error)
}

type TableWriter interface {
	AppendRows(ctx context.Context, loc Location, rows [][]interface{}) error
	OverwriteTable(ctx context.Context, loc Location, header []interface{}, rows [][]interface{}) error
	EnsureSheetExists(ctx context.Context, loc Location) error
}

// TableClient is everything the session layer needs from the remote side.
type TableClient interface {
	TableReader
	TableWriter
}

// newTable converts the loosely typed values returned by the API.
func newTable(values [][]interface{}) Table {
	if len(values) == 0 {
		return Table{}
	}
	header := toStrings(values[0], 0)
	rows := make([][]string, 0, len(values)-1)
	for _, v := range values[1:] {
		rows = append(rows, toStrings(v, len(header)))
	}
	return Table{Header: header, Rows: rows}
}

func toStrings(row []interface{}, width int) []string {
	n := len(row)
	if width > n {
		n = width
	}
	out := make([]string, n)
	for i, v := range row {
		if v == nil {
			continue
		}
		out[i] = fmt.Sprint(v)
	}
	return out
}
