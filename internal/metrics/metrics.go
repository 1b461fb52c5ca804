// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics provides Prometheus metrics for paper-reader.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all collectors. Each Metrics owns its registry so tests and
// multiple sessions can create independent instances.
type Metrics struct {
	registry *prometheus.Registry

	// Entity mutations by operation (create, update, delete) and status.
	MutationsTotal   *prometheus.CounterVec
	MutationDuration *prometheus.HistogramVec
	PropagatedEdits  prometheus.Counter

	// Find activity by mode.
	SearchesTotal *prometheus.CounterVec
	SearchMatches prometheus.Histogram
	Navigations   *prometheus.CounterVec

	// Highlight engine.
	HighlightRecomputes prometheus.Counter
	HighlightsVisible   prometheus.Gauge

	// HTTP server.
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	WSConnections   prometheus.Gauge

	EntitiesLoaded prometheus.Gauge
}

// New creates and registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	m := &Metrics{registry: reg}

	m.MutationsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paper_reader_entity_mutations_total",
			Help: "Total number of entity mutations sent to the backend",
		},
		[]string{"operation", "status"},
	)

	m.MutationDuration = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "paper_reader_entity_mutation_duration_seconds",
			Help:    "Duration of entity mutations in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	m.PropagatedEdits = f.NewCounter(
		prometheus.CounterOpts{
			Name: "paper_reader_propagated_edits_total",
			Help: "Total number of patches issued to entities equivalent to the edited one",
		},
	)

	m.SearchesTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paper_reader_searches_total",
			Help: "Total number of searches started, by mode",
		},
		[]string{"mode"},
	)

	m.SearchMatches = f.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "paper_reader_search_matches",
			Help:    "Number of entities matched by symbol and term searches",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100, 250},
		},
	)

	m.Navigations = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paper_reader_navigations_total",
			Help: "Total number of viewport navigations, by outcome",
		},
		[]string{"status"},
	)

	m.HighlightRecomputes = f.NewCounter(
		prometheus.CounterOpts{
			Name: "paper_reader_highlight_recomputes_total",
			Help: "Total number of faceted highlight recomputations",
		},
	)

	m.HighlightsVisible = f.NewGauge(
		prometheus.GaugeOpts{
			Name: "paper_reader_highlights_visible",
			Help: "Number of faceted highlights currently visible",
		},
	)

	m.RequestsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paper_reader_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "status"},
	)

	m.RequestDuration = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "paper_reader_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	m.WSConnections = f.NewGauge(
		prometheus.GaugeOpts{
			Name: "paper_reader_ws_connections",
			Help: "Number of open websocket sessions",
		},
	)

	m.EntitiesLoaded = f.NewGauge(
		prometheus.GaugeOpts{
			Name: "paper_reader_entities_loaded",
			Help: "Number of entities in the most recently loaded store",
		},
	)

	return m
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordMutation counts a mutation and observes its duration.
func (m *Metrics) RecordMutation(operation string, duration time.Duration, ok bool) {
	if m == nil {
		return
	}
	status := "success"
	if !ok {
		status = "failure"
	}
	m.MutationsTotal.WithLabelValues(operation, status).Inc()
	m.MutationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordSearch counts a search start and, for entity searches, its match count.
func (m *Metrics) RecordSearch(mode string, matches int) {
	if m == nil {
		return
	}
	m.SearchesTotal.WithLabelValues(mode).Inc()
	if matches >= 0 {
		m.SearchMatches.Observe(float64(matches))
	}
}

// RecordNavigation counts a navigation attempt.
func (m *Metrics) RecordNavigation(ok bool) {
	if m == nil {
		return
	}
	if ok {
		m.Navigations.WithLabelValues("success").Inc()
	} else {
		m.Navigations.WithLabelValues("failure").Inc()
	}
}

// RecordHighlights counts a recompute and sets the visible gauge.
func (m *Metrics) RecordHighlights(visible int) {
	if m == nil {
		return
	}
	m.HighlightRecomputes.Inc()
	m.HighlightsVisible.Set(float64(visible))
}

// RecordRequest counts an HTTP request and observes its duration.
func (m *Metrics) RecordRequest(route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(route, statusClass(status)).Inc()
	m.RequestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

// RecordPropagated counts patches issued to entities equivalent to an edited one.
func (m *Metrics) RecordPropagated(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.PropagatedEdits.Add(float64(n))
}

// RecordLoad sets the loaded entity gauge.
func (m *Metrics) RecordLoad(entities int) {
	if m == nil {
		return
	}
	m.EntitiesLoaded.Set(float64(entities))
}

// RecordWSConnection adjusts the open websocket gauge by delta.
func (m *Metrics) RecordWSConnection(delta int) {
	if m == nil {
		return
	}
	m.WSConnections.Add(float64(delta))
}
