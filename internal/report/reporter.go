package report

import (
	"sort"
	"time"

	"github.com/sente-labs/chatstore/internal/store"
)

// Overview is the admin-facing snapshot: store-wide counters plus a summary
// per namespace.
type Overview struct {
	GeneratedAt time.Time          `json:"generatedAt"`
	Store       store.Stats        `json:"store"`
	Namespaces  []NamespaceSummary `json:"namespaces"`
}

// NamespaceSummary condenses one namespace's listing.
type NamespaceSummary struct {
	Namespace    string `json:"namespace"`
	Entries      int    `json:"entries"`
	TotalReads   int64  `json:"totalReads"`
	ExpiringSoon int    `json:"expiringSoon"`
}

// expiringSoonWindow is the remaining-TTL threshold below which an entry is
// reported as about to expire.
const expiringSoonWindow = 5 * time.Minute

// Reporter is a read-only aggregation over the entry store's namespace
// listings. It holds no state and never mutates the store beyond the lazy
// expiry its listings already imply.
type Reporter struct {
	entries *store.Store
}

// New wires a reporter to the store it summarizes.
func New(entries *store.Store) *Reporter {
	return &Reporter{entries: entries}
}

// Overview snapshots the store and summarizes every namespace it currently
// holds, sorted by name for stable output.
func (r *Reporter) Overview() Overview {
	stats := r.entries.Stats()
	summaries := make([]NamespaceSummary, 0, len(stats.Namespaces))
	for ns := range stats.Namespaces {
		summaries = append(summaries, r.summarize(ns))
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Namespace < summaries[j].Namespace
	})
	return Overview{
		GeneratedAt: time.Now(),
		Store:       stats,
		Namespaces:  summaries,
	}
}

// Namespace returns the per-entry metadata listing for one namespace, sorted
// by local key. Payloads are never included.
func (r *Reporter) Namespace(ns string) []store.EntryInfo {
	infos := r.entries.List(ns)
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Local < infos[j].Local
	})
	return infos
}

func (r *Reporter) summarize(ns string) NamespaceSummary {
	summary := NamespaceSummary{Namespace: ns}
	for _, info := range r.entries.List(ns) {
		summary.Entries++
		summary.TotalReads += info.AccessCount
		if info.RemainingTTL < expiringSoonWindow {
			summary.ExpiringSoon++
		}
	}
	return summary
}
