package dataset

import (
	"encoding/json"
	"time"
)

// Row maps a column name to a coerced value: string, float64 or time.Time.
type Row map[string]any

func (r Row) clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Snapshot is an immutable point-in-time read of one dataset. Accessors hand
// out copies so the cached value can be shared between callers.
type Snapshot struct {
	dataset   string
	columns   []string
	rows      []Row
	fetchedAt time.Time
}

func NewSnapshot(dataset string, columns []string, rows []Row, fetchedAt time.Time) Snapshot {
	s := Snapshot{
		dataset:   dataset,
		columns:   append([]string(nil), columns...),
		rows:      make([]Row, len(rows)),
		fetchedAt: fetchedAt,
	}
	for i, r := range rows {
		s.rows[i] = r.clone()
	}
	return s
}

// Empty returns a snapshot with no rows, used when nothing was ever fetched.
func Empty(dataset string) Snapshot {
	return Snapshot{dataset: dataset}
}

func (s Snapshot) Dataset() string      { return s.dataset }
func (s Snapshot) FetchedAt() time.Time { return s.fetchedAt }
func (s Snapshot) Len() int             { return len(s.rows) }

func (s Snapshot) Columns() []string {
	return append([]string(nil), s.columns...)
}

// Row returns a copy of row i.
func (s Snapshot) Row(i int) Row {
	return s.rows[i].clone()
}

// Rows returns a deep copy of every row.
func (s Snapshot) Rows() []Row {
	out := make([]Row, len(s.rows))
	for i, r := range s.rows {
		out[i] = r.clone()
	}
	return out
}

type snapshotJSON struct {
	Dataset   string     `json:"dataset"`
	Columns   []string   `json:"columns"`
	Rows      []Row      `json:"rows"`
	FetchedAt *time.Time `json:"fetched_at,omitempty"`
}

func (s Snapshot) MarshalJSON() ([]byte, error) {
	out := snapshotJSON{
		Dataset: s.dataset,
		Columns: s.columns,
		Rows:    s.rows,
	}
	if out.Columns == nil {
		out.Columns = []string{}
	}
	if out.Rows == nil {
		out.Rows = []Row{}
	}
	if !s.fetchedAt.IsZero() {
		out.FetchedAt = &s.fetchedAt
	}
	return json.Marshal(out)
}
