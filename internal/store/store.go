package store

import (
	"hash/fnv"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sente-labs/chatstore/internal/metrics"
)

// Key is the structured composite key: a namespace partition plus a local key.
// Two keys are distinct unless both fields match, so a local key containing
// any delimiter can never collide across namespaces.
type Key struct {
	Namespace string
	Local     string
}

// Outcome reports why a read did or did not return a value, so callers can
// distinguish an absent key from one that was present but past its TTL.
type Outcome int

const (
	// OutcomeHit means a live entry was found.
	OutcomeHit Outcome = iota
	// OutcomeMiss means no entry existed under the key.
	OutcomeMiss
	// OutcomeExpired means an entry existed but its TTL had elapsed; the
	// read removed it.
	OutcomeExpired
)

// String renders the outcome for logs and metric labels.
func (o Outcome) String() string {
	switch o {
	case OutcomeHit:
		return "hit"
	case OutcomeMiss:
		return "miss"
	case OutcomeExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// entry is the stored record. Values are opaque to the store; each consumer
// owns the concrete type it puts under its namespace.
type entry struct {
	value        any
	createdAt    time.Time
	expiresAt    time.Time
	accessCount  int64
	lastAccessed time.Time
}

// EntryInfo is the per-entry metadata returned by List. The payload itself is
// deliberately omitted so admin listings never leak values.
type EntryInfo struct {
	Namespace    string        `json:"namespace"`
	Local        string        `json:"local"`
	CreatedAt    time.Time     `json:"createdAt"`
	ExpiresAt    time.Time     `json:"expiresAt"`
	RemainingTTL time.Duration `json:"remainingTTL"`
	AccessCount  int64         `json:"accessCount"`
	LastAccessed time.Time     `json:"lastAccessed,omitzero"`
}

// Stats is a point-in-time snapshot of the store. The hit, miss, and expired
// counters are monotonic across the process lifetime and never reset.
type Stats struct {
	TotalEntries int            `json:"totalEntries"`
	Namespaces   map[string]int `json:"namespaces"`
	Hits         uint64         `json:"hits"`
	Misses       uint64         `json:"misses"`
	ExpiredReads uint64         `json:"expiredReads"`
	SweptTotal   uint64         `json:"sweptTotal"`
	HitRate      float64        `json:"hitRate"`
	ApproxBytes  int64          `json:"approxBytes"`
	DefaultTTL   time.Duration  `json:"defaultTTL"`
}

// shard is one independently locked partition of the key space.
type shard struct {
	mu      sync.Mutex
	entries map[Key]*entry
}

// Options configures a Store.
type Options struct {
	// DefaultTTL applies to Set calls that pass a non-positive TTL.
	DefaultTTL time.Duration
	// Shards is the number of lock partitions. Values below one fall back
	// to the default of 16.
	Shards  int
	Logger  *slog.Logger
	Metrics *metrics.Recorder
}

// Store is an in-process namespaced key/value cache with TTL eviction. The key
// space is partitioned into independently locked shards so a full-table
// operation only ever stalls one partition at a time. All state is volatile;
// a restart discards everything.
type Store struct {
	defaultTTL time.Duration
	shards     []*shard
	logger     *slog.Logger
	metrics    *metrics.Recorder

	hits    atomic.Uint64
	misses  atomic.Uint64
	expired atomic.Uint64
	swept   atomic.Uint64
}

const defaultShardCount = 16

// New constructs a Store from the supplied options.
func New(opts Options) *Store {
	if opts.DefaultTTL <= 0 {
		opts.DefaultTTL = 24 * time.Hour
	}
	if opts.Shards < 1 {
		opts.Shards = defaultShardCount
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	shards := make([]*shard, opts.Shards)
	for i := range shards {
		shards[i] = &shard{entries: make(map[Key]*entry)}
	}
	return &Store{
		defaultTTL: opts.DefaultTTL,
		shards:     shards,
		logger:     opts.Logger.With(slog.String("subsystem", "store")),
		metrics:    opts.Metrics,
	}
}

// DefaultTTL reports the TTL applied when Set is called without one.
func (s *Store) DefaultTTL() time.Duration { return s.defaultTTL }

func (s *Store) shardFor(key Key) *shard {
	h := fnv.New64a()
	_, _ = h.Write([]byte(key.Namespace))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(key.Local))
	return s.shards[h.Sum64()%uint64(len(s.shards))]
}

// Get returns the value under key. Expired entries are removed on the way out
// and reported as OutcomeExpired; both absence and expiry count as misses in
// the store-wide counters. A hit increments the entry's access count and
// stamps its last-accessed time. Get never extends the entry's TTL; callers
// that want sliding expiration use Touch or Set.
func (s *Store) Get(key Key) (any, Outcome) {
	start := time.Now()
	sh := s.shardFor(key)
	sh.mu.Lock()
	e, ok := sh.entries[key]
	if !ok {
		sh.mu.Unlock()
		s.misses.Add(1)
		s.metrics.ObserveStore(key.Namespace, metrics.StoreOperationGet, OutcomeMiss.String(), time.Since(start))
		return nil, OutcomeMiss
	}
	now := time.Now()
	if now.After(e.expiresAt) {
		delete(sh.entries, key)
		sh.mu.Unlock()
		s.misses.Add(1)
		s.expired.Add(1)
		s.metrics.ObserveStore(key.Namespace, metrics.StoreOperationGet, OutcomeExpired.String(), time.Since(start))
		return nil, OutcomeExpired
	}
	e.accessCount++
	e.lastAccessed = now
	value := e.value
	sh.mu.Unlock()
	s.hits.Add(1)
	s.metrics.ObserveStore(key.Namespace, metrics.StoreOperationGet, OutcomeHit.String(), time.Since(start))
	return value, OutcomeHit
}

// Peek reads a value without touching its access statistics and without
// counting toward the hit/miss ratio. Lazy expiry still applies: an expired
// entry is removed and reported as such.
func (s *Store) Peek(key Key) (any, Outcome) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	e, ok := sh.entries[key]
	if !ok {
		return nil, OutcomeMiss
	}
	if time.Now().After(e.expiresAt) {
		delete(sh.entries, key)
		s.expired.Add(1)
		return nil, OutcomeExpired
	}
	return e.value, OutcomeHit
}

// Set writes value under key with the given TTL, or the store default when ttl
// is non-positive. An existing entry is fully overwritten, access statistics
// included, and the expiry deadline restarts from now.
func (s *Store) Set(key Key, value any, ttl time.Duration) {
	start := time.Now()
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	now := time.Now()
	e := &entry{
		value:     value,
		createdAt: now,
		expiresAt: now.Add(ttl),
	}
	sh := s.shardFor(key)
	sh.mu.Lock()
	sh.entries[key] = e
	sh.mu.Unlock()
	s.metrics.ObserveStore(key.Namespace, metrics.StoreOperationSet, "stored", time.Since(start))
}

// Touch restarts the TTL window of a live entry from now without reading the
// value or altering its access statistics. It reports whether a live entry
// was present; expired entries are removed rather than revived.
func (s *Store) Touch(key Key, ttl time.Duration) bool {
	start := time.Now()
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	sh := s.shardFor(key)
	sh.mu.Lock()
	e, ok := sh.entries[key]
	if !ok {
		sh.mu.Unlock()
		s.metrics.ObserveStore(key.Namespace, metrics.StoreOperationTouch, OutcomeMiss.String(), time.Since(start))
		return false
	}
	now := time.Now()
	if now.After(e.expiresAt) {
		delete(sh.entries, key)
		sh.mu.Unlock()
		s.expired.Add(1)
		s.metrics.ObserveStore(key.Namespace, metrics.StoreOperationTouch, OutcomeExpired.String(), time.Since(start))
		return false
	}
	e.expiresAt = now.Add(ttl)
	sh.mu.Unlock()
	s.metrics.ObserveStore(key.Namespace, metrics.StoreOperationTouch, OutcomeHit.String(), time.Since(start))
	return true
}

// Delete removes the entry under key and reports whether one existed.
func (s *Store) Delete(key Key) bool {
	start := time.Now()
	sh := s.shardFor(key)
	sh.mu.Lock()
	_, ok := sh.entries[key]
	if ok {
		delete(sh.entries, key)
	}
	sh.mu.Unlock()
	result := "absent"
	if ok {
		result = "deleted"
	}
	s.metrics.ObserveStore(key.Namespace, metrics.StoreOperationDelete, result, time.Since(start))
	return ok
}

// Exists reports whether a live entry is stored under key. It shares Peek's
// semantics: lazy expiry applies, but the entry's access count is left alone.
func (s *Store) Exists(key Key) bool {
	_, outcome := s.Peek(key)
	return outcome == OutcomeHit
}

// CleanupExpired is the eager half of expiration: it scans every shard and
// removes all entries whose TTL has elapsed, returning the number removed.
// Each shard is locked only for its own scan, so foreground traffic on other
// shards proceeds during the sweep.
func (s *Store) CleanupExpired() int {
	removed := 0
	now := time.Now()
	for _, sh := range s.shards {
		sh.mu.Lock()
		for key, e := range sh.entries {
			if now.After(e.expiresAt) {
				delete(sh.entries, key)
				removed++
			}
		}
		sh.mu.Unlock()
	}
	if removed > 0 {
		s.swept.Add(uint64(removed))
	}
	return removed
}

// ClearNamespace removes every entry in the given namespace and returns how
// many were removed.
func (s *Store) ClearNamespace(ns string) int {
	removed := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		for key := range sh.entries {
			if key.Namespace == ns {
				delete(sh.entries, key)
				removed++
			}
		}
		sh.mu.Unlock()
	}
	s.logger.Debug("namespace cleared", slog.String("namespace", ns), slog.Int("removed", removed))
	return removed
}

// ClearAll empties the store and returns the number of entries removed.
func (s *Store) ClearAll() int {
	removed := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		removed += len(sh.entries)
		sh.entries = make(map[Key]*entry)
		sh.mu.Unlock()
	}
	s.logger.Info("store cleared", slog.Int("removed", removed))
	return removed
}

// List returns metadata for every live entry in the namespace, payloads
// excluded. Entries already past their TTL are skipped but left for the
// sweeper or the next read to remove.
func (s *Store) List(ns string) []EntryInfo {
	now := time.Now()
	var infos []EntryInfo
	for _, sh := range s.shards {
		sh.mu.Lock()
		for key, e := range sh.entries {
			if key.Namespace != ns || now.After(e.expiresAt) {
				continue
			}
			infos = append(infos, EntryInfo{
				Namespace:    key.Namespace,
				Local:        key.Local,
				CreatedAt:    e.createdAt,
				ExpiresAt:    e.expiresAt,
				RemainingTTL: e.expiresAt.Sub(now),
				AccessCount:  e.accessCount,
				LastAccessed: e.lastAccessed,
			})
		}
		sh.mu.Unlock()
	}
	return infos
}

// Range calls fn for every live entry in the namespace until fn returns
// false. Values are snapshotted shard by shard before fn runs, so fn may call
// back into the store without deadlocking. Mutations made through the value
// itself are not synchronized; consumers storing pointer payloads must
// re-Set to publish changes.
func (s *Store) Range(ns string, fn func(local string, value any) bool) {
	now := time.Now()
	type pair struct {
		local string
		value any
	}
	for _, sh := range s.shards {
		sh.mu.Lock()
		snapshot := make([]pair, 0, len(sh.entries))
		for key, e := range sh.entries {
			if key.Namespace != ns || now.After(e.expiresAt) {
				continue
			}
			snapshot = append(snapshot, pair{local: key.Local, value: e.value})
		}
		sh.mu.Unlock()
		for _, p := range snapshot {
			if !fn(p.local, p.value) {
				return
			}
		}
	}
}

// Stats snapshots the store. Only live entries are counted; an expired entry
// awaiting its lazy or eager removal is already invisible here.
func (s *Store) Stats() Stats {
	now := time.Now()
	st := Stats{
		Namespaces:   make(map[string]int),
		Hits:         s.hits.Load(),
		Misses:       s.misses.Load(),
		ExpiredReads: s.expired.Load(),
		SweptTotal:   s.swept.Load(),
		DefaultTTL:   s.defaultTTL,
	}
	for _, sh := range s.shards {
		sh.mu.Lock()
		for key, e := range sh.entries {
			if now.After(e.expiresAt) {
				continue
			}
			st.TotalEntries++
			st.Namespaces[key.Namespace]++
			st.ApproxBytes += int64(len(key.Namespace) + len(key.Local) + entryOverheadBytes)
		}
		sh.mu.Unlock()
	}
	if total := st.Hits + st.Misses; total > 0 {
		st.HitRate = float64(st.Hits) / float64(total)
	}
	return st
}

// entryOverheadBytes is a rough per-entry bookkeeping cost used for the size
// estimate; payloads are opaque so their size cannot be measured here.
const entryOverheadBytes = 96
