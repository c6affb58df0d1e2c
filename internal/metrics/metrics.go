package metrics

import (
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// StoreOperation identifies the entry-store method being instrumented.
type StoreOperation string

const (
	// StoreOperationGet records value lookups; peeks are deliberately not
	// instrumented, matching their exclusion from the hit/miss counters.
	StoreOperationGet StoreOperation = "get"
	// StoreOperationSet records writes.
	StoreOperationSet StoreOperation = "set"
	// StoreOperationDelete records single-key removals.
	StoreOperationDelete StoreOperation = "delete"
	// StoreOperationTouch records explicit TTL refreshes.
	StoreOperationTouch StoreOperation = "touch"
)

// LookupResult captures the outcome of a store read.
type LookupResult string

const (
	// LookupHit indicates the read returned a live entry.
	LookupHit LookupResult = "hit"
	// LookupMiss indicates the key was absent.
	LookupMiss LookupResult = "miss"
	// LookupExpired indicates the key was present but past its TTL.
	LookupExpired LookupResult = "expired"
)

// SessionEvent labels session lifecycle transitions.
type SessionEvent string

const (
	// SessionCreated counts new sessions.
	SessionCreated SessionEvent = "created"
	// SessionEnded counts explicit soft deletes.
	SessionEnded SessionEvent = "ended"
	// SessionTimedOut counts sessions ended by the activity timeout.
	SessionTimedOut SessionEvent = "timed_out"
	// SessionCompacted counts ended sessions removed after the grace period.
	SessionCompacted SessionEvent = "compacted"
)

// AdmissionResult labels the outcome of the FAQ cache-worthiness check.
type AdmissionResult string

const (
	// AdmissionStored indicates the answer was admitted and cached.
	AdmissionStored AdmissionResult = "stored"
	// AdmissionTooShort indicates the answer failed the length floor.
	AdmissionTooShort AdmissionResult = "too_short"
	// AdmissionErrorIndicator indicates the answer matched an error phrase.
	AdmissionErrorIndicator AdmissionResult = "error_indicator"
	// AdmissionPersonalData indicates the answer matched a personal-data phrase.
	AdmissionPersonalData AdmissionResult = "personal_data"
	// AdmissionUnsupported indicates an unknown language or service type.
	AdmissionUnsupported AdmissionResult = "unsupported"
)

// Recorder publishes Prometheus metrics for store, session, and FAQ activity.
type Recorder struct {
	gatherer prometheus.Gatherer
	handler  http.Handler

	storeOperations *prometheus.CounterVec
	storeLatency    *prometheus.HistogramVec
	sweepRuns       prometheus.Counter
	sweepRemoved    prometheus.Counter
	sessionEvents   *prometheus.CounterVec
	faqLookups      *prometheus.CounterVec
	faqAdmissions   *prometheus.CounterVec
}

// NewRecorder constructs a Prometheus-backed Recorder. When reg is nil a dedicated
// registry is created so multiple recorders can coexist without conflicting with
// the global default registerer.
func NewRecorder(reg *prometheus.Registry) *Recorder {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	reg.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	storeOperations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chatstore",
		Subsystem: "store",
		Name:      "operations_total",
		Help:      "Entry store operations by namespace and result.",
	}, []string{"namespace", "operation", "result"})

	storeLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "chatstore",
		Subsystem: "store",
		Name:      "operation_duration_seconds",
		Help:      "Latency distribution for entry store operations.",
		Buckets:   []float64{0.000005, 0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
	}, []string{"operation"})

	sweepRuns := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "chatstore",
		Subsystem: "sweep",
		Name:      "runs_total",
		Help:      "Completed eager-expiration sweeps.",
	})

	sweepRemoved := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "chatstore",
		Subsystem: "sweep",
		Name:      "removed_total",
		Help:      "Entries removed by eager-expiration sweeps.",
	})

	sessionEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chatstore",
		Subsystem: "session",
		Name:      "events_total",
		Help:      "Session lifecycle events.",
	}, []string{"event"})

	faqLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chatstore",
		Subsystem: "faq",
		Name:      "lookups_total",
		Help:      "FAQ cache lookups by service, language, and result.",
	}, []string{"service", "language", "result"})

	faqAdmissions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chatstore",
		Subsystem: "faq",
		Name:      "admissions_total",
		Help:      "FAQ cache admission decisions.",
	}, []string{"service", "language", "result"})

	reg.MustRegister(storeOperations, storeLatency, sweepRuns, sweepRemoved, sessionEvents, faqLookups, faqAdmissions)

	handler := promhttp.HandlerFor(reg, promhttp.HandlerOpts{})

	return &Recorder{
		gatherer:        reg,
		handler:         handler,
		storeOperations: storeOperations,
		storeLatency:    storeLatency,
		sweepRuns:       sweepRuns,
		sweepRemoved:    sweepRemoved,
		sessionEvents:   sessionEvents,
		faqLookups:      faqLookups,
		faqAdmissions:   faqAdmissions,
	}
}

// Handler exposes the Prometheus HTTP handler for the recorder's registry.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "metrics unavailable", http.StatusServiceUnavailable)
		})
	}
	return r.handler
}

// Gatherer returns the underlying Prometheus gatherer for tests and advanced
// integrations.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	if r == nil {
		return prometheus.NewRegistry()
	}
	return r.gatherer
}

// ObserveStore records one entry-store operation with its result and latency.
func (r *Recorder) ObserveStore(namespace string, operation StoreOperation, result string, duration time.Duration) {
	if r == nil {
		return
	}
	opLabel := string(operation)
	if opLabel == "" {
		opLabel = string(StoreOperationGet)
	}
	r.storeOperations.WithLabelValues(normalizeLabel(namespace), opLabel, normalizeLabel(result)).Inc()
	r.storeLatency.WithLabelValues(opLabel).Observe(duration.Seconds())
}

// ObserveSweep records one completed sweep and the number of entries it removed.
func (r *Recorder) ObserveSweep(removed int) {
	if r == nil {
		return
	}
	r.sweepRuns.Inc()
	r.sweepRemoved.Add(float64(removed))
}

// ObserveSession records a session lifecycle event.
func (r *Recorder) ObserveSession(event SessionEvent) {
	if r == nil {
		return
	}
	r.sessionEvents.WithLabelValues(string(event)).Inc()
}

// ObserveFAQLookup records the result of an FAQ cache lookup.
func (r *Recorder) ObserveFAQLookup(service, language string, result LookupResult) {
	if r == nil {
		return
	}
	resLabel := string(result)
	if resLabel == "" {
		resLabel = string(LookupMiss)
	}
	r.faqLookups.WithLabelValues(normalizeLabel(service), normalizeLabel(language), resLabel).Inc()
}

// ObserveFAQAdmission records an FAQ cache admission decision.
func (r *Recorder) ObserveFAQAdmission(service, language string, result AdmissionResult) {
	if r == nil {
		return
	}
	r.faqAdmissions.WithLabelValues(normalizeLabel(service), normalizeLabel(language), string(result)).Inc()
}

func normalizeLabel(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "unknown"
	}
	return trimmed
}
