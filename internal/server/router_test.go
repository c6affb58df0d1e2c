package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gavv/httpexpect/v2"
	"github.com/stretchr/testify/require"

	"github.com/sente-labs/chatstore/internal/faq"
	"github.com/sente-labs/chatstore/internal/report"
	"github.com/sente-labs/chatstore/internal/store"
)

const cachedAnswer = "Bring your national ID and birth notification to the NIRA office."

func newAdminExpect(t *testing.T) (*httpexpect.Expect, *store.Store, *faq.Cache) {
	t.Helper()
	entries := store.New(store.Options{DefaultTTL: time.Minute})
	cache := faq.New(entries, faq.Options{
		Languages: []string{"en", "lg"},
		Services:  []string{"nira", "ura"},
		Admission: faq.Admission{MinAnswerLength: 20},
	})
	handler := NewAdminHandler(AdminDeps{
		Reporter: report.New(entries),
		FAQ:      cache,
		Entries:  entries,
	})
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	expect := httpexpect.WithConfig(httpexpect.Config{
		BaseURL:  srv.URL,
		Reporter: httpexpect.NewRequireReporter(t),
	})
	return expect, entries, cache
}

func TestHealthz(t *testing.T) {
	expect, _, _ := newAdminExpect(t)
	expect.GET("/healthz").Expect().
		Status(http.StatusOK).
		JSON().Object().HasValue("status", "ok")
}

func TestStatsEndpoint(t *testing.T) {
	expect, entries, _ := newAdminExpect(t)
	entries.Set(store.Key{Namespace: "sessions", Local: "s1"}, "v", 0)
	entries.Get(store.Key{Namespace: "sessions", Local: "s1"})

	body := expect.GET("/stats").Expect().
		Status(http.StatusOK).
		JSON().Object()
	body.Path("$.store.totalEntries").Number().IsEqual(1)
	body.Path("$.store.hits").Number().IsEqual(1)
	body.Value("namespaces").Array().Length().IsEqual(1)
}

func TestNamespaceListingEndpoint(t *testing.T) {
	expect, entries, _ := newAdminExpect(t)
	entries.Set(store.Key{Namespace: "sessions", Local: "s1"}, "v", 0)

	list := expect.GET("/namespaces/sessions").Expect().
		Status(http.StatusOK).
		JSON().Array()
	list.Length().IsEqual(1)
	first := list.Value(0).Object()
	first.HasValue("namespace", "sessions")
	first.HasValue("local", "s1")
	first.NotContainsKey("value")

	expect.GET("/namespaces/empty").Expect().
		Status(http.StatusOK).
		JSON().Array().IsEmpty()
}

func TestClearNamespaceEndpoint(t *testing.T) {
	expect, entries, _ := newAdminExpect(t)
	entries.Set(store.Key{Namespace: "sessions", Local: "s1"}, "v", 0)
	entries.Set(store.Key{Namespace: "faq", Local: "f1"}, "v", 0)

	expect.DELETE("/namespaces/sessions").Expect().
		Status(http.StatusOK).
		JSON().Object().HasValue("removed", 1)

	require.Equal(t, 1, entries.Stats().TotalEntries)
}

func TestClearFAQEndpoints(t *testing.T) {
	expect, _, cache := newAdminExpect(t)
	stored, reason := cache.Store("q1", cachedAnswer, "en", "nira")
	require.True(t, stored, reason)
	stored, reason = cache.Store("q2", cachedAnswer, "lg", "ura")
	require.True(t, stored, reason)

	expect.DELETE("/faq/service/nira").Expect().
		Status(http.StatusOK).
		JSON().Object().HasValue("removed", 1)

	expect.DELETE("/faq/language/lg").Expect().
		Status(http.StatusOK).
		JSON().Object().HasValue("removed", 1)

	_, ok := cache.Lookup("q1", "en", "nira")
	require.False(t, ok)
}

func TestPopularEndpoint(t *testing.T) {
	expect, _, cache := newAdminExpect(t)
	stored, reason := cache.Store("q1", cachedAnswer, "en", "nira")
	require.True(t, stored, reason)
	_, ok := cache.Lookup("q1", "en", "nira")
	require.True(t, ok)

	list := expect.GET("/faq/popular").
		WithQuery("language", "en").
		WithQuery("limit", 5).
		Expect().
		Status(http.StatusOK).
		JSON().Array()
	list.Length().IsEqual(1)
	list.Value(0).Object().HasValue("question", "q1")

	expect.GET("/faq/popular").Expect().
		Status(http.StatusBadRequest)

	expect.GET("/faq/popular").
		WithQuery("language", "en").
		WithQuery("limit", "zero").
		Expect().
		Status(http.StatusBadRequest)
}
