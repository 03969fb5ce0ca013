package dataset

import (
	"sort"
	"time"

	"painel/pkg/sheets"
)

// Zone is the time zone of the dashboard's users.
var Zone = loadZone()

func loadZone() *time.Location {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		return time.FixedZone("BRT", -3*60*60)
	}
	return loc
}

// Volatility decides which TTL a dataset's memoized reads get.
type Volatility int

const (
	Operational Volatility = iota
	Reference
)

// Partition is one worksheet contributing rows to a dataset.
type Partition struct {
	Name     string
	Location sheets.Location
}

// Dataset is a named logical table backed by one or more worksheets.
type Dataset struct {
	Key        string
	Partitions []Partition
	Schema     Schema
	Volatility Volatility
	TTL        time.Duration
	// PartitionColumn receives the partition name on every row of an
	// aggregated dataset.
	PartitionColumn string
	// SortBy orders decoded rows by one column, stable for equal values.
	SortBy     string
	Descending bool
}

// Aggregated reports whether the dataset spans several worksheets.
func (d Dataset) Aggregated() bool {
	return len(d.Partitions) > 1
}

// PartitionKey is the stale-cache key of one partition.
func (d Dataset) PartitionKey(p Partition) string {
	return d.Key + "/" + p.Name
}

// Columns lists the snapshot columns, including the partition tag.
func (d Dataset) Columns() []string {
	cols := d.Schema.Names()
	if d.Aggregated() && d.PartitionColumn != "" {
		cols = append(cols, d.PartitionColumn)
	}
	return cols
}

// Decode validates a raw table against the schema and coerces every value.
// A table without any content decodes to an empty snapshot.
func (d Dataset) Decode(t sheets.Table, sheet string, at time.Time) (Snapshot, error) {
	s := d.Schema
	if t.Empty() {
		return NewSnapshot(d.Key, s.Names(), nil, at), nil
	}

	index := map[string]int{}
	var extras []string
	for i, h := range t.Header {
		name := s.normalize(h)
		if name == "" {
			continue
		}
		if _, dup := index[name]; dup {
			continue
		}
		index[name] = i
		if _, declared := s.Column(name); !declared && !s.Strict {
			extras = append(extras, name)
		}
	}

	var missing []string
	for _, c := range s.Columns {
		if _, ok := index[c.Name]; !ok && c.Required {
			missing = append(missing, c.Name)
		}
	}
	if len(missing) > 0 {
		return Snapshot{}, &SchemaError{Dataset: d.Key, Sheet: sheet, Missing: missing}
	}

	rows := make([]Row, 0, len(t.Rows))
	for _, raw := range t.Rows {
		if blank(raw) {
			continue
		}
		row := make(Row, len(s.Columns)+len(extras))
		for _, c := range s.Columns {
			i, ok := index[c.Name]
			if !ok {
				row[c.Name] = c.Zero()
				continue
			}
			row[c.Name] = c.Coerce(cell(raw, i))
		}
		for _, name := range extras {
			row[name] = cell(raw, index[name])
		}
		rows = append(rows, row)
	}

	if d.SortBy != "" {
		sortRows(rows, d.SortBy, d.Descending)
	}
	return NewSnapshot(d.Key, append(s.Names(), extras...), rows, at), nil
}

func sortRows(rows []Row, col string, desc bool) {
	sort.SliceStable(rows, func(i, j int) bool {
		if desc {
			return less(rows[j][col], rows[i][col])
		}
		return less(rows[i][col], rows[j][col])
	})
}

// less orders values of the same kind. Zero dates sort first.
func less(a, b any) bool {
	switch x := a.(type) {
	case time.Time:
		y, ok := b.(time.Time)
		return ok && x.Before(y)
	case float64:
		y, ok := b.(float64)
		return ok && x < y
	case string:
		y, ok := b.(string)
		return ok && x < y
	}
	return false
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

func blank(row []string) bool {
	for _, v := range row {
		if v != "" {
			return false
		}
	}
	return true
}
