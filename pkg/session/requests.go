package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"painel/pkg/dataset"
)

// StatusPending is the status of a freshly submitted request.
const StatusPending = "Pendente"

var (
	ErrNotRequestQueue = errors.New("dataset is not a request queue")
	ErrNotTargetTable  = errors.New("dataset is not a target table")
)

// RecordAccess appends a login to the access log.
func (s *Session) RecordAccess(ctx context.Context, login, name string) error {
	return s.Write(ctx, WriteRequest{
		Dataset: dataset.AccessLog,
		Mode:    Append,
		Rows: []dataset.Row{{
			"Data":  s.now().In(dataset.Zone).Format(dataset.AccessLayout),
			"Login": login,
			"Nome":  name,
		}},
	})
}

// SubmitRequest appends a request (photos, certificates, invoices, access)
// with the current timestamp and a pending status. Lot and invoice numbers are
// written with a leading apostrophe so Sheets keeps their leading zeros.
func (s *Session) SubmitRequest(ctx context.Context, key string, fields dataset.Row) error {
	ds, err := s.lookup(key)
	if err != nil {
		return err
	}
	if _, ok := ds.Schema.Column("Status"); !ok {
		return fmt.Errorf("%w: %s", ErrNotRequestQueue, key)
	}

	row := dataset.Row{}
	for k, v := range fields {
		row[k] = v
	}
	row["Data"] = s.now().In(dataset.Zone).Format(dataset.TimestampLayout)
	row["Status"] = StatusPending
	for _, c := range ds.Schema.Columns {
		if !c.StripQuote {
			continue
		}
		v, ok := row[c.Name]
		if !ok || v == nil {
			continue
		}
		text, ok := v.(string)
		if !ok {
			text = fmt.Sprint(dataset.EncodeValue(v))
		}
		if !strings.HasPrefix(text, "'") {
			text = "'" + text
		}
		row[c.Name] = text
	}
	return s.Write(ctx, WriteRequest{Dataset: key, Mode: Append, Rows: []dataset.Row{row}})
}

// SaveTargets overwrites a two-column target table (key column, META).
func (s *Session) SaveTargets(ctx context.Context, key string, targets map[string]float64) error {
	ds, err := s.lookup(key)
	if err != nil {
		return err
	}
	if len(ds.Schema.Columns) != 2 {
		return fmt.Errorf("%w: %s", ErrNotTargetTable, key)
	}
	keyCol, valCol := ds.Schema.Columns[0].Name, ds.Schema.Columns[1].Name

	names := make([]string, 0, len(targets))
	for k := range targets {
		names = append(names, k)
	}
	sort.Strings(names)
	rows := make([]dataset.Row, len(names))
	for i, n := range names {
		rows[i] = dataset.Row{keyCol: n, valCol: targets[n]}
	}
	return s.Write(ctx, WriteRequest{Dataset: key, Mode: Overwrite, Rows: rows})
}
