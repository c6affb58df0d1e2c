package faq

import (
	"fmt"
	"hash/fnv"
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/sente-labs/chatstore/internal/metrics"
	"github.com/sente-labs/chatstore/internal/store"
)

// Namespaces owned by the FAQ layer. Records and their per-(service,language)
// aggregates live apart so clearing answers never discards the counters.
const (
	nsFAQ      = "faq"
	nsFAQStats = "faq_stats"
)

// Record is one cached question/answer pair. AccessCount and LastAccessed
// belong to the record itself, independent of the store's entry bookkeeping,
// so they survive the re-store performed on every hit.
type Record struct {
	Question     string    `json:"question"`
	Answer       string    `json:"answer"`
	Language     string    `json:"language"`
	Service      string    `json:"service"`
	CreatedAt    time.Time `json:"createdAt"`
	AccessCount  int64     `json:"accessCount"`
	LastAccessed time.Time `json:"lastAccessed,omitzero"`
}

// StatRecord aggregates cache activity for one (service, language) pair. It
// lives on its own, much longer schedule than the records it counts.
type StatRecord struct {
	Service         string    `json:"service"`
	Language        string    `json:"language"`
	CacheHits       int64     `json:"cacheHits"`
	CachedResponses int64     `json:"cachedResponses"`
	LastHit         time.Time `json:"lastHit,omitzero"`
	LastCache       time.Time `json:"lastCache,omitzero"`
}

// Options configures a Cache.
type Options struct {
	// RecordTTL is the physical lifetime of cached answers.
	RecordTTL time.Duration
	// StatsTTL is the lifetime of the per-(service,language) aggregates.
	StatsTTL time.Duration
	// Languages and Services enumerate what the surrounding chatbot
	// supports; lookups and stores outside them are refused here, the store
	// itself enforces nothing.
	Languages []string
	Services  []string
	Admission Admission
	Logger    *slog.Logger
	Metrics   *metrics.Recorder
}

// Cache is the FAQ response cache: exact-key matching over a hash of the
// normalized question plus language and service. There is no semantic
// similarity; two questions hit the same record only when they normalize to
// the same string.
type Cache struct {
	entries   *store.Store
	recordTTL time.Duration
	statsTTL  time.Duration
	languages map[string]struct{}
	services  map[string]struct{}
	admission atomic.Pointer[Admission]
	logger    *slog.Logger
	metrics   *metrics.Recorder
}

// New builds the FAQ layer on top of the entry store.
func New(entries *store.Store, opts Options) *Cache {
	if opts.RecordTTL <= 0 {
		opts.RecordTTL = 24 * time.Hour
	}
	if opts.StatsTTL <= 0 {
		opts.StatsTTL = 720 * time.Hour
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	c := &Cache{
		entries:   entries,
		recordTTL: opts.RecordTTL,
		statsTTL:  opts.StatsTTL,
		languages: toSet(opts.Languages),
		services:  toSet(opts.Services),
		logger:    opts.Logger.With(slog.String("subsystem", "faq")),
		metrics:   opts.Metrics,
	}
	adm := opts.Admission
	c.admission.Store(&adm)
	return c
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[strings.ToLower(strings.TrimSpace(v))] = struct{}{}
	}
	return set
}

// SetAdmission swaps the cache-worthiness rules in place. The config watcher
// calls this when the admission phrase lists change on disk.
func (c *Cache) SetAdmission(a Admission) {
	c.admission.Store(&a)
	c.logger.Info("admission rules updated",
		slog.Int("error_indicators", len(a.ErrorIndicators)),
		slog.Int("personal_indicators", len(a.PersonalIndicators)))
}

// normalize folds case and trims whitespace. Deliberately nothing more: the
// cache matches exact normalized text, not meaning.
func normalize(question string) string {
	return strings.ToLower(strings.TrimSpace(question))
}

// recordKey hashes the normalized question together with language and service
// so identical triples always collide to the same record.
func recordKey(question, language, service string) store.Key {
	h := fnv.New64a()
	_, _ = h.Write([]byte(normalize(question)))
	_, _ = h.Write([]byte("|"))
	_, _ = h.Write([]byte(language))
	_, _ = h.Write([]byte("|"))
	_, _ = h.Write([]byte(service))
	return store.Key{Namespace: nsFAQ, Local: fmt.Sprintf("%016x", h.Sum64())}
}

func statKey(service, language string) store.Key {
	return store.Key{Namespace: nsFAQStats, Local: service + "|" + language}
}

func (c *Cache) supported(language, service string) bool {
	if _, ok := c.languages[strings.ToLower(language)]; !ok {
		return false
	}
	_, ok := c.services[strings.ToLower(service)]
	return ok
}

// Lookup returns the cached answer for an exact normalized question match.
// A hit bumps the record's own access count and rewrites it, which restarts
// the record's physical TTL; popular answers therefore stay cached for as
// long as they keep being asked.
func (c *Cache) Lookup(question, language, service string) (*Record, bool) {
	if !c.supported(language, service) {
		c.logger.Debug("lookup outside supported enumerations",
			slog.String("language", language),
			slog.String("service", service))
		c.metrics.ObserveFAQLookup(service, language, metrics.LookupMiss)
		return nil, false
	}
	value, outcome := c.entries.Get(recordKey(question, language, service))
	if outcome != store.OutcomeHit {
		result := metrics.LookupMiss
		if outcome == store.OutcomeExpired {
			result = metrics.LookupExpired
		}
		c.metrics.ObserveFAQLookup(service, language, result)
		return nil, false
	}
	rec, ok := value.(*Record)
	if !ok {
		c.logger.Error("faq entry holds foreign payload",
			slog.String("language", language),
			slog.String("service", service))
		c.metrics.ObserveFAQLookup(service, language, metrics.LookupMiss)
		return nil, false
	}
	updated := *rec
	updated.AccessCount++
	updated.LastAccessed = time.Now()
	c.entries.Set(recordKey(question, language, service), &updated, c.recordTTL)
	c.bumpStats(service, language, func(st *StatRecord) {
		st.CacheHits++
		st.LastHit = time.Now()
	})
	c.metrics.ObserveFAQLookup(service, language, metrics.LookupHit)
	result := updated
	return &result, true
}

// Store caches an answer after it passes the admission heuristic. It reports
// whether the answer was admitted and, when it was not, a human-readable
// reason. Rejection is not an error: short answers, error-shaped answers, and
// personal replies simply stay out of the shared cache.
func (c *Cache) Store(question, answer, language, service string) (bool, string) {
	if !c.supported(language, service) {
		reason := fmt.Sprintf("unsupported language %q or service %q", language, service)
		c.metrics.ObserveFAQAdmission(service, language, metrics.AdmissionUnsupported)
		c.logger.Debug("response not cached", slog.String("reason", reason))
		return false, reason
	}
	verdict, reason := c.admission.Load().Check(answer)
	if verdict != metrics.AdmissionStored {
		c.metrics.ObserveFAQAdmission(service, language, verdict)
		c.logger.Debug("response not cached",
			slog.String("service", service),
			slog.String("language", language),
			slog.String("reason", reason))
		return false, reason
	}
	rec := &Record{
		Question:  question,
		Answer:    answer,
		Language:  language,
		Service:   service,
		CreatedAt: time.Now(),
	}
	c.entries.Set(recordKey(question, language, service), rec, c.recordTTL)
	c.bumpStats(service, language, func(st *StatRecord) {
		st.CachedResponses++
		st.LastCache = time.Now()
	})
	c.metrics.ObserveFAQAdmission(service, language, metrics.AdmissionStored)
	return true, ""
}

// bumpStats read-modify-writes the (service, language) aggregate. Peek keeps
// the stat entry's store-level access count out of the picture; the aggregate
// counters are the only numbers that matter here.
func (c *Cache) bumpStats(service, language string, mutate func(*StatRecord)) {
	key := statKey(service, language)
	st := &StatRecord{Service: service, Language: language}
	if value, outcome := c.entries.Peek(key); outcome == store.OutcomeHit {
		if existing, ok := value.(*StatRecord); ok {
			copied := *existing
			st = &copied
		} else {
			c.logger.Error("faq stat entry holds foreign payload",
				slog.String("service", service),
				slog.String("language", language))
		}
	}
	mutate(st)
	c.entries.Set(key, st, c.statsTTL)
}

// Stats returns the aggregate for one (service, language) pair.
func (c *Cache) Stats(service, language string) (StatRecord, bool) {
	value, outcome := c.entries.Peek(statKey(service, language))
	if outcome != store.OutcomeHit {
		return StatRecord{}, false
	}
	st, ok := value.(*StatRecord)
	if !ok {
		return StatRecord{}, false
	}
	return *st, true
}

// ClearService removes every cached record for the service. This is a linear
// scan over the whole faq namespace regardless of how selective the filter is.
func (c *Cache) ClearService(service string) int {
	return c.clear(func(rec *Record) bool { return rec.Service == service })
}

// ClearLanguage removes every cached record in the language.
func (c *Cache) ClearLanguage(language string) int {
	return c.clear(func(rec *Record) bool { return rec.Language == language })
}

func (c *Cache) clear(match func(*Record) bool) int {
	var locals []string
	c.entries.Range(nsFAQ, func(local string, value any) bool {
		rec, ok := value.(*Record)
		if !ok {
			return true
		}
		if match(rec) {
			locals = append(locals, local)
		}
		return true
	})
	removed := 0
	for _, local := range locals {
		if c.entries.Delete(store.Key{Namespace: nsFAQ, Local: local}) {
			removed++
		}
	}
	return removed
}

// Popular lists the most-asked records for a language, optionally narrowed to
// one service, ordered by access count descending.
func (c *Cache) Popular(language, service string, limit int) []Record {
	if limit <= 0 {
		limit = 10
	}
	var records []Record
	c.entries.Range(nsFAQ, func(_ string, value any) bool {
		rec, ok := value.(*Record)
		if !ok {
			return true
		}
		if rec.Language != language {
			return true
		}
		if service != "" && rec.Service != service {
			return true
		}
		records = append(records, *rec)
		return true
	})
	sort.Slice(records, func(i, j int) bool {
		if records[i].AccessCount != records[j].AccessCount {
			return records[i].AccessCount > records[j].AccessCount
		}
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})
	if len(records) > limit {
		records = records[:limit]
	}
	return records
}
