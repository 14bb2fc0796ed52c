// Package metrics exposes Prometheus counters for feed refreshes.
package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"reddot-watch/feedsreader/internal/fetch"
)

const namespace = "feedsreader"

// Metrics groups the collectors of the application. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	registry  *prometheus.Registry
	fetches   *prometheus.CounterVec
	parses    *prometheus.CounterVec
	entries   prometheus.Counter
	unread    prometheus.Gauge
	refreshes prometheus.Counter
}

// New creates the collectors and registers them on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_fetches_total",
			Help:      "Feed downloads by result.",
		}, []string{"result"}),
		parses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_parses_total",
			Help:      "Feed parses by result.",
		}, []string{"result"}),
		entries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_entries_total",
			Help:      "Entries found in parsed feeds.",
		}),
		unread: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "unread_items",
			Help:      "Unread count shown on the toolbar badge.",
		}),
		refreshes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refreshes_total",
			Help:      "Feed refresh cycles started.",
		}),
	}

	m.registry.MustRegister(
		m.fetches, m.parses, m.entries, m.unread, m.refreshes,
		collectors.NewGoCollector(),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveFetch counts a download attempt.
func (m *Metrics) ObserveFetch(err error) {
	if m == nil {
		return
	}
	var statusErr *fetch.StatusError
	switch {
	case err == nil:
		m.fetches.WithLabelValues("ok").Inc()
	case errors.As(err, &statusErr):
		m.fetches.WithLabelValues("status").Inc()
	default:
		m.fetches.WithLabelValues("network").Inc()
	}
}

// ObserveParse counts a parse attempt and the entries it produced.
func (m *Metrics) ObserveParse(entries int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.parses.WithLabelValues("error").Inc()
		return
	}
	m.parses.WithLabelValues("ok").Inc()
	m.entries.Add(float64(entries))
}

// SetUnread records the unread count.
func (m *Metrics) SetUnread(n int) {
	if m == nil {
		return
	}
	m.unread.Set(float64(n))
}

// IncRefresh counts a refresh cycle.
func (m *Metrics) IncRefresh() {
	if m == nil {
		return
	}
	m.refreshes.Inc()
}
