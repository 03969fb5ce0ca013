package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"painel/pkg/cache"
	"painel/pkg/dataset"
	"painel/pkg/metrics"
	"painel/pkg/retry"
	"painel/pkg/sheets"
)

var (
	ErrUnknownDataset = errors.New("unknown dataset")
	ErrNotFound       = errors.New("session not found")
	ErrClosed         = errors.New("session closed")
	ErrInvalidMode    = errors.New("invalid write mode")
	ErrNotWritable    = errors.New("dataset spans several worksheets and cannot be written")
)

type Options struct {
	Catalog dataset.Catalog
	Client  sheets.TableClient
	Policy  retry.Policy
	// PartitionDelay paces partition reads of aggregated datasets. Zero
	// disables pacing.
	PartitionDelay time.Duration
	Now            func() time.Time
}

// Session is the per-user context: it owns the stale cache and the memo store
// and shares the process-wide client handle. Work inside one session runs
// sequentially.
type Session struct {
	ID string

	mu      sync.Mutex
	closed  bool
	catalog dataset.Catalog
	client  sheets.TableClient
	policy  retry.Policy
	stale   *cache.Stale
	memo    *cache.Memo
	limiter *rate.Limiter
	now     func() time.Time
	log     *log.Entry
}

func New(opts Options) *Session {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	limit := rate.Inf
	if opts.PartitionDelay > 0 {
		limit = rate.Every(opts.PartitionDelay)
	}
	id := uuid.NewString()
	s := &Session{
		ID:      id,
		catalog: opts.Catalog,
		client:  opts.Client,
		policy:  opts.Policy,
		stale:   cache.NewStale(),
		memo:    cache.NewMemoWithClock(now),
		limiter: rate.NewLimiter(limit, 1),
		now:     now,
		log:     log.WithField("session", id),
	}
	s.stale.OnFallback = func(key string, outcome cache.Outcome, class retry.Class) {
		metrics.FetchResults.WithLabelValues(key, outcome.String()).Inc()
	}
	return s
}

func (s *Session) lookup(key string) (dataset.Dataset, error) {
	ds, ok := s.catalog.Lookup(key)
	if !ok {
		return dataset.Dataset{}, fmt.Errorf("%w: %s", ErrUnknownDataset, key)
	}
	return ds, nil
}

// Get returns the current snapshot of a dataset. Read failures never surface
// here: the last known snapshot, or an empty one, is returned instead. The
// only errors are an unknown dataset or a closed session.
func (s *Session) Get(ctx context.Context, key string) (dataset.Snapshot, error) {
	ds, err := s.lookup(key)
	if err != nil {
		return dataset.Snapshot{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return dataset.Snapshot{}, ErrClosed
	}
	snap, _ := s.load(ctx, ds)
	return snap, nil
}

// Select returns the rows of a dataset whose columns equal the given values,
// compared as trimmed case-insensitive text. Each distinct filter is memoized
// separately and invalidated together with its dataset.
func (s *Session) Select(ctx context.Context, key string, where map[string]string) (dataset.Snapshot, error) {
	if len(where) == 0 {
		return s.Get(ctx, key)
	}
	ds, err := s.lookup(key)
	if err != nil {
		return dataset.Snapshot{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return dataset.Snapshot{}, ErrClosed
	}
	snap, hit := s.memo.Do(ds.Key, filterArgs(where), ds.TTL, func() (dataset.Snapshot, bool) {
		base, cacheable := s.load(ctx, ds)
		return filter(base, where), cacheable
	})
	if hit {
		metrics.MemoHits.WithLabelValues(ds.Key).Inc()
	}
	return snap, nil
}

// Refresh invalidates every memoized read so the next Get goes to the sheet.
func (s *Session) Refresh() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memo.Clear()
	s.log.Debug("memo cleared")
}

// Close tears the session down and releases its cached snapshots.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.memo.Clear()
	s.stale.Reset()
}

// Catalog returns the datasets the session can serve.
func (s *Session) Catalog() dataset.Catalog {
	return s.catalog
}

// load reads through the memo store. The bool reports whether the snapshot is
// current (memo hit or fresh fetch) rather than a fallback.
func (s *Session) load(ctx context.Context, ds dataset.Dataset) (dataset.Snapshot, bool) {
	current := true
	snap, hit := s.memo.Do(ds.Key, "", ds.TTL, func() (dataset.Snapshot, bool) {
		var snap dataset.Snapshot
		if ds.Aggregated() {
			snap, current = s.aggregate(ctx, ds)
		} else {
			snap, current = s.readSingle(ctx, ds)
		}
		return snap, current
	})
	if hit {
		metrics.MemoHits.WithLabelValues(ds.Key).Inc()
		s.log.WithField("dataset", ds.Key).Debug("served from memo")
		return snap, true
	}
	return snap, current
}

func (s *Session) readSingle(ctx context.Context, ds dataset.Dataset) (dataset.Snapshot, bool) {
	fresh := false
	snap := s.stale.GetResilient(ds.Key, func() retry.Result[dataset.Snapshot] {
		res := s.fetch(ctx, ds, ds.Partitions[0])
		fresh = !res.Failed()
		return res
	})
	return snap, fresh
}

// fetch reads and decodes one partition through the retry policy. Schema
// violations are fatal: retrying cannot fix a renamed column.
func (s *Session) fetch(ctx context.Context, ds dataset.Dataset, p dataset.Partition) retry.Result[dataset.Snapshot] {
	start := time.Now()
	entry := s.log.WithFields(log.Fields{"dataset": ds.Key, "sheet": p.Location.Sheet})

	policy := s.policy
	prev := policy.OnAttempt
	policy.OnAttempt = func(attempt int, class retry.Class, err error) {
		metrics.FetchAttempts.WithLabelValues(ds.Key, class.String()).Inc()
		entry.WithError(err).Debugf("attempt %d failed (%s)", attempt, class)
		if prev != nil {
			prev(attempt, class, err)
		}
	}

	res := retry.Do(ctx, policy, func(ctx context.Context) (dataset.Snapshot, error) {
		table, err := s.client.ReadTable(ctx, p.Location)
		if err != nil {
			return dataset.Snapshot{}, err
		}
		snap, err := ds.Decode(table, p.Location.Sheet, s.now())
		if err != nil {
			return dataset.Snapshot{}, retry.Fatal(err)
		}
		return snap, nil
	})

	metrics.FetchDuration.WithLabelValues(ds.Key).Observe(time.Since(start).Seconds())
	if !res.Failed() {
		metrics.FetchResults.WithLabelValues(ds.Key, cache.Fresh.String()).Inc()
		entry.Debugf("fetched %d rows in %d attempts", res.Value.Len(), res.Attempts)
	}
	return res
}

func filterArgs(where map[string]string) string {
	keys := make([]string, 0, len(where))
	for k := range where {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + where[k]
	}
	return strings.Join(parts, "&")
}

func filter(snap dataset.Snapshot, where map[string]string) dataset.Snapshot {
	var rows []dataset.Row
	for _, r := range snap.Rows() {
		match := true
		for col, want := range where {
			v, ok := r[col]
			if !ok || !matches(v, strings.TrimSpace(want)) {
				match = false
				break
			}
		}
		if match {
			rows = append(rows, r)
		}
	}
	return dataset.NewSnapshot(snap.Dataset(), snap.Columns(), rows, snap.FetchedAt())
}

// matches compares a cell with a filter value. Dates match the day alone or
// the day with minutes or seconds, all day-first in the local zone.
func matches(v any, want string) bool {
	if t, ok := v.(time.Time); ok {
		if t.IsZero() {
			return want == ""
		}
		t = t.In(dataset.Zone)
		for _, layout := range []string{dataset.DateLayout, dataset.TimestampLayout, dataset.AccessLayout} {
			if t.Format(layout) == want {
				return true
			}
		}
		return false
	}
	return strings.EqualFold(strings.TrimSpace(fmt.Sprint(v)), want)
}
