package cache

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"painel/pkg/dataset"
	"painel/pkg/retry"
)

// Outcome tells how Resolve produced its snapshot.
type Outcome int

const (
	Fresh Outcome = iota
	StaleHit
	Miss
)

func (o Outcome) String() string {
	switch o {
	case Fresh:
		return "fresh"
	case StaleHit:
		return "stale"
	}
	return "miss"
}

// Slot holds the last good snapshot of one key.
type Slot struct {
	Snapshot  dataset.Snapshot
	FetchedAt time.Time
}

// Stale keeps the last successfully fetched snapshot per key and serves it
// when a fresh fetch fails. Once a slot is filled it is only ever replaced.
type Stale struct {
	mu    sync.Mutex
	slots map[string]Slot
	now   func() time.Time

	// OnFallback is called whenever a failed fetch is absorbed.
	OnFallback func(key string, outcome Outcome, class retry.Class)
}

func NewStale() *Stale {
	return &Stale{
		slots: map[string]Slot{},
		now:   time.Now,
	}
}

// GetResilient returns the fetched snapshot, the previous one when the fetch
// failed, or an empty snapshot when nothing was ever fetched for key. The
// caller is deliberately not told that the data may be stale.
func (s *Stale) GetResilient(key string, fetch func() retry.Result[dataset.Snapshot]) dataset.Snapshot {
	snap, outcome := s.Resolve(key, fetch)
	if outcome == Miss {
		return dataset.Empty(key)
	}
	return snap
}

// Resolve is GetResilient with the outcome exposed, for callers such as the
// batch aggregator that must skip partitions that have nothing to offer.
func (s *Stale) Resolve(key string, fetch func() retry.Result[dataset.Snapshot]) (dataset.Snapshot, Outcome) {
	res := fetch()
	if !res.Failed() {
		s.Store(key, res.Value)
		return res.Value, Fresh
	}

	slot, ok := s.Peek(key)
	outcome := Miss
	if ok {
		outcome = StaleHit
	}
	log.WithFields(log.Fields{
		"key":      key,
		"class":    res.Class,
		"attempts": res.Attempts,
		"outcome":  outcome,
	}).WithError(res.Err).Warn("fetch failed, serving last known data")
	if s.OnFallback != nil {
		s.OnFallback(key, outcome, res.Class)
	}
	return slot.Snapshot, outcome
}

// Store replaces the slot for key.
func (s *Stale) Store(key string, snap dataset.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots[key] = Slot{Snapshot: snap, FetchedAt: s.now()}
}

func (s *Stale) Peek(key string) (Slot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, ok := s.slots[key]
	return slot, ok
}

// Reset drops every slot. Only used on session teardown.
func (s *Stale) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots = map[string]Slot{}
}
