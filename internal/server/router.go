package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sente-labs/chatstore/internal/faq"
	"github.com/sente-labs/chatstore/internal/report"
	"github.com/sente-labs/chatstore/internal/store"
)

// AdminDeps carries the collaborators the admin surface exposes.
type AdminDeps struct {
	Reporter *report.Reporter
	FAQ      *faq.Cache
	Entries  *store.Store
	Logger   *slog.Logger
}

// NewAdminHandler builds the admin HTTP surface: read-only statistics from
// the reporter plus the scoped invalidation operations the surrounding
// service exposes to operators.
func NewAdminHandler(deps AdminDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	logger = logger.With(slog.String("subsystem", "admin"))

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("GET /stats", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, deps.Reporter.Overview())
	})

	mux.HandleFunc("GET /namespaces/{ns}", func(w http.ResponseWriter, r *http.Request) {
		ns := r.PathValue("ns")
		infos := deps.Reporter.Namespace(ns)
		if infos == nil {
			infos = []store.EntryInfo{}
		}
		writeJSON(w, http.StatusOK, infos)
	})

	mux.HandleFunc("DELETE /namespaces/{ns}", func(w http.ResponseWriter, r *http.Request) {
		ns := r.PathValue("ns")
		removed := deps.Entries.ClearNamespace(ns)
		logger.Info("namespace cleared via admin",
			slog.String("namespace", ns),
			slog.Int("removed", removed))
		writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
	})

	mux.HandleFunc("DELETE /faq/service/{service}", func(w http.ResponseWriter, r *http.Request) {
		service := r.PathValue("service")
		removed := deps.FAQ.ClearService(service)
		logger.Info("faq service cache cleared",
			slog.String("service", service),
			slog.Int("removed", removed))
		writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
	})

	mux.HandleFunc("DELETE /faq/language/{language}", func(w http.ResponseWriter, r *http.Request) {
		language := r.PathValue("language")
		removed := deps.FAQ.ClearLanguage(language)
		logger.Info("faq language cache cleared",
			slog.String("language", language),
			slog.Int("removed", removed))
		writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
	})

	mux.HandleFunc("GET /faq/popular", func(w http.ResponseWriter, r *http.Request) {
		language := r.URL.Query().Get("language")
		if language == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "language query parameter required"})
			return
		}
		service := r.URL.Query().Get("service")
		limit := 10
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed <= 0 {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
				return
			}
			limit = parsed
		}
		records := deps.FAQ.Popular(language, service, limit)
		if records == nil {
			records = []faq.Record{}
		}
		writeJSON(w, http.StatusOK, records)
	})

	return mux
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
