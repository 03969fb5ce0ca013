package cache

import (
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"painel/pkg/dataset"
)

type memoEntry struct {
	value   dataset.Snapshot
	expires time.Time
}

// Memo memoizes snapshots for a TTL. Entries are grouped by dataset so that a
// write can invalidate every argument variant of the dataset it touched.
type Memo struct {
	mu      sync.Mutex
	entries map[string]map[string]memoEntry
	// gen is bumped on invalidation so an in-flight call started before it
	// does not repopulate the cache with pre-write data.
	gen   map[string]uint64
	epoch uint64
	group singleflight.Group
	now   func() time.Time
}

func NewMemo() *Memo {
	return NewMemoWithClock(time.Now)
}

func NewMemoWithClock(now func() time.Time) *Memo {
	return &Memo{
		entries: map[string]map[string]memoEntry{},
		gen:     map[string]uint64{},
		now:     now,
	}
}

// Do returns the memoized value for (dataset, args) while it is younger than
// ttl. Otherwise fn runs; its value is kept only when fn reports it as
// cacheable. Concurrent misses for the same key share one fn call. The bool
// result is true on a hit.
func (m *Memo) Do(datasetKey, args string, ttl time.Duration, fn func() (dataset.Snapshot, bool)) (dataset.Snapshot, bool) {
	if v, ok := m.lookup(datasetKey, args); ok {
		return v, true
	}

	m.mu.Lock()
	gen, epoch := m.gen[datasetKey], m.epoch
	m.mu.Unlock()

	v, _, _ := m.group.Do(datasetKey+"\x00"+args, func() (interface{}, error) {
		snap, cacheable := fn()
		if cacheable && ttl > 0 {
			m.store(datasetKey, args, gen, epoch, snap, ttl)
		}
		return snap, nil
	})
	return v.(dataset.Snapshot), false
}

func (m *Memo) lookup(datasetKey, args string) (dataset.Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[datasetKey][args]
	if !ok {
		return dataset.Snapshot{}, false
	}
	if !m.now().Before(e.expires) {
		delete(m.entries[datasetKey], args)
		return dataset.Snapshot{}, false
	}
	return e.value, true
}

func (m *Memo) store(datasetKey, args string, gen, epoch uint64, snap dataset.Snapshot, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gen[datasetKey] != gen || m.epoch != epoch {
		return
	}
	if m.entries[datasetKey] == nil {
		m.entries[datasetKey] = map[string]memoEntry{}
	}
	m.entries[datasetKey][args] = memoEntry{value: snap, expires: m.now().Add(ttl)}
}

// Invalidate drops every entry of one dataset.
func (m *Memo) Invalidate(datasetKey string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, datasetKey)
	m.gen[datasetKey]++
}

// Clear drops every entry.
func (m *Memo) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.epoch++
	m.entries = map[string]map[string]memoEntry{}
}

// Len counts live and expired entries not yet evicted.
func (m *Memo) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.entries {
		n += len(e)
	}
	return n
}
