package session

import (
	"context"

	"painel/pkg/cache"
	"painel/pkg/dataset"
	"painel/pkg/metrics"
	"painel/pkg/retry"
)

// aggregate pulls every partition of ds in order, tags each row with its
// partition name and concatenates them. A failed partition falls back to its
// own last known snapshot and is skipped when it never had one; the batch as
// a whole never fails. The limiter keeps reads under the per-minute quota.
//
// The bool result is false when any partition was stale or skipped, so the
// combined snapshot is not memoized.
func (s *Session) aggregate(ctx context.Context, ds dataset.Dataset) (dataset.Snapshot, bool) {
	entry := s.log.WithField("dataset", ds.Key)
	complete := true
	var rows []dataset.Row

	for i, p := range ds.Partitions {
		if err := s.limiter.Wait(ctx); err != nil {
			remaining := len(ds.Partitions) - i
			entry.WithError(err).Warnf("pacing interrupted, skipping %d remaining partitions", remaining)
			metrics.PartitionsSkipped.WithLabelValues(ds.Key).Add(float64(remaining))
			complete = false
			break
		}

		snap, outcome := s.stale.Resolve(ds.PartitionKey(p), func() retry.Result[dataset.Snapshot] {
			return s.fetch(ctx, ds, p)
		})
		switch outcome {
		case cache.Miss:
			entry.WithField("partition", p.Name).Warn("partition unavailable, skipping")
			metrics.PartitionsSkipped.WithLabelValues(ds.Key).Inc()
			complete = false
			continue
		case cache.StaleHit:
			complete = false
		}

		for _, r := range snap.Rows() {
			if ds.PartitionColumn != "" {
				r[ds.PartitionColumn] = p.Name
			}
			rows = append(rows, r)
		}
	}

	entry.Debugf("aggregated %d rows from %d partitions", len(rows), len(ds.Partitions))
	return dataset.NewSnapshot(ds.Key, ds.Columns(), rows, s.now()), complete
}
