package dataset

import (
	"fmt"
	"strings"
	"time"
)

const (
	DateLayout = "02/01/2006"
	// TimestampLayout is how request and access timestamps are written.
	TimestampLayout = "02/01/2006 15:04"
	// AccessLayout carries seconds for the access log.
	AccessLayout = "02/01/2006 15:04:05"
)

// Encode lays rows out in header order. Header cells are matched against row
// keys ignoring surrounding spaces and case; unmatched cells stay empty.
func Encode(header []string, rows []Row) [][]interface{} {
	out := make([][]interface{}, 0, len(rows))
	for _, r := range rows {
		byName := make(map[string]any, len(r))
		for k, v := range r {
			byName[foldKey(k)] = v
		}
		values := make([]interface{}, len(header))
		for i, h := range header {
			v, ok := byName[foldKey(h)]
			if !ok {
				values[i] = ""
				continue
			}
			values[i] = EncodeValue(v)
		}
		out = append(out, values)
	}
	return out
}

// EncodeValue converts a row value to something the Sheets API accepts.
func EncodeValue(v any) interface{} {
	switch t := v.(type) {
	case nil:
		return ""
	case string, float64, int, int64, bool:
		return t
	case time.Time:
		if t.IsZero() {
			return ""
		}
		return t.In(Zone).Format(AccessLayout)
	}
	return fmt.Sprint(v)
}

// HeaderRow converts column names to an API row.
func HeaderRow(names []string) []interface{} {
	out := make([]interface{}, len(names))
	for i, n := range names {
		out[i] = n
	}
	return out
}

func foldKey(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
