package session

import (
	"context"
	"fmt"
	"sort"

	log "github.com/sirupsen/logrus"

	"painel/pkg/dataset"
	"painel/pkg/metrics"
	"painel/pkg/retry"
	"painel/pkg/sheets"
)

type Mode string

const (
	Append    Mode = "append"
	Overwrite Mode = "overwrite"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case Append, Overwrite:
		return Mode(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

// WriteRequest is a set of rows to persist in one dataset.
type WriteRequest struct {
	Dataset string
	Rows    []dataset.Row
	Mode    Mode
}

// Write persists rows. Unlike reads, a failed write is always returned to the
// caller. A successful write invalidates the memoized reads of every dataset
// backed by the same worksheet.
func (s *Session) Write(ctx context.Context, req WriteRequest) error {
	ds, err := s.lookup(req.Dataset)
	if err != nil {
		return err
	}
	if req.Mode != Append && req.Mode != Overwrite {
		return fmt.Errorf("%w: %q", ErrInvalidMode, req.Mode)
	}
	if ds.Aggregated() {
		return fmt.Errorf("%w: %s", ErrNotWritable, ds.Key)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return s.write(ctx, ds, req)
}

func (s *Session) write(ctx context.Context, ds dataset.Dataset, req WriteRequest) error {
	if req.Mode == Append && len(req.Rows) == 0 {
		return nil
	}
	loc := ds.Partitions[0].Location
	entry := s.log.WithFields(log.Fields{"dataset": ds.Key, "mode": req.Mode, "rows": len(req.Rows)})

	policy := s.policy
	policy.OnAttempt = func(attempt int, class retry.Class, err error) {
		entry.WithError(err).Debugf("write attempt %d failed (%s)", attempt, class)
	}
	res := retry.Do(ctx, policy, func(ctx context.Context) (struct{}, error) {
		if err := s.client.EnsureSheetExists(ctx, loc); err != nil {
			return struct{}{}, err
		}
		if req.Mode == Append {
			return struct{}{}, s.appendRows(ctx, ds, loc, req.Rows)
		}
		header := overwriteHeader(ds, req.Rows)
		return struct{}{}, s.client.OverwriteTable(ctx, loc, dataset.HeaderRow(header), dataset.Encode(header, req.Rows))
	})

	if res.Failed() {
		metrics.Writes.WithLabelValues(ds.Key, string(req.Mode), "error").Inc()
		entry.WithError(res.Err).Error("write failed")
		return fmt.Errorf("writing %d rows to %s (%s after %d attempts): %w", len(req.Rows), ds.Key, res.Class, res.Attempts, res.Err)
	}
	metrics.Writes.WithLabelValues(ds.Key, string(req.Mode), "ok").Inc()
	for _, key := range s.catalog.SharingLocation(loc) {
		s.memo.Invalidate(key)
	}
	entry.Info("write committed")
	return nil
}

// appendRows lays rows out in the order of the sheet's existing header. An
// empty sheet gets the schema header first.
func (s *Session) appendRows(ctx context.Context, ds dataset.Dataset, loc sheets.Location, rows []dataset.Row) error {
	header, err := s.client.ReadHeader(ctx, loc)
	if err != nil {
		return err
	}
	var values [][]interface{}
	if len(header) == 0 {
		header = ds.Schema.Names()
		values = append(values, dataset.HeaderRow(header))
	}
	values = append(values, dataset.Encode(header, rows)...)
	return s.client.AppendRows(ctx, loc, values)
}

// overwriteHeader is the schema header followed, for non-strict schemas, by
// any extra keys found in the rows.
func overwriteHeader(ds dataset.Dataset, rows []dataset.Row) []string {
	header := ds.Schema.Names()
	if ds.Schema.Strict {
		return header
	}
	seen := map[string]bool{}
	for _, h := range header {
		seen[h] = true
	}
	var extras []string
	for _, r := range rows {
		for k := range r {
			if !seen[k] {
				seen[k] = true
				extras = append(extras, k)
			}
		}
	}
	sort.Strings(extras)
	return append(header, extras...)
}
