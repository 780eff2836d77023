// Package metrics exposes tutor and server metrics to Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/abhisek/aitutor/internal/mastery"
	"github.com/abhisek/aitutor/internal/tutor"
)

// Metrics holds every collector on its own registry.
type Metrics struct {
	registry *prometheus.Registry

	mutations       *prometheus.CounterVec
	persistFailures prometheus.Counter
	xp              prometheus.Gauge
	level           prometheus.Gauge
	struggling      prometheus.Gauge
	concepts        *prometheus.GaugeVec
	lessons         prometheus.Gauge

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	llmRequests  *prometheus.CounterVec
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		mutations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "aitutor_state_mutations_total",
			Help: "Tutor state mutations by operation.",
		}, []string{"op"}),
		persistFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "aitutor_persist_failures_total",
			Help: "Snapshot saves that failed.",
		}),
		xp: f.NewGauge(prometheus.GaugeOpts{
			Name: "aitutor_learner_xp",
			Help: "Learner experience points.",
		}),
		level: f.NewGauge(prometheus.GaugeOpts{
			Name: "aitutor_learner_level",
			Help: "Learner level derived from XP.",
		}),
		struggling: f.NewGauge(prometheus.GaugeOpts{
			Name: "aitutor_learner_struggling",
			Help: "1 when the learner is flagged as struggling.",
		}),
		concepts: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "aitutor_concept_mastery",
			Help: "Effective (decayed) mastery per concept.",
		}, []string{"concept"}),
		lessons: f.NewGauge(prometheus.GaugeOpts{
			Name: "aitutor_lessons_completed",
			Help: "Number of completed lessons.",
		}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "aitutor_http_requests_total",
			Help: "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "aitutor_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		llmRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "aitutor_collaborator_requests_total",
			Help: "Chat and speech collaborator calls by kind and outcome.",
		}, []string{"kind", "outcome"}),
	}
}

// Mutation counts a state mutation.
func (m *Metrics) Mutation(op string) {
	m.mutations.WithLabelValues(op).Inc()
}

// PersistFailure counts a failed snapshot save.
func (m *Metrics) PersistFailure() {
	m.persistFailures.Inc()
}

// ObserveState updates the learner gauges.
func (m *Metrics) ObserveState(s tutor.State) {
	m.xp.Set(float64(s.XP))
	m.level.Set(float64(s.Level()))
	m.lessons.Set(float64(len(s.CompletedLessons)))
	if s.IsStruggling {
		m.struggling.Set(1)
	} else {
		m.struggling.Set(0)
	}
	now := time.Now()
	m.concepts.Reset()
	for id, c := range s.ConceptMastery {
		m.concepts.WithLabelValues(id).Set(mastery.ApplyDecay(c, now))
	}
}

// Collaborator counts a chat or speech call. outcome is "ok", "cached",
// "blocked", "error", "fallback" or "superseded".
func (m *Metrics) Collaborator(kind, outcome string) {
	m.llmRequests.WithLabelValues(kind, outcome).Inc()
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(route string, code int, d time.Duration) {
	m.httpRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
