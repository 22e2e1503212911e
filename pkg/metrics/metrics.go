// Package metrics exposes Prometheus collectors for the presentation engine.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "acctview"

// Metrics groups the engine's collectors.
type Metrics struct {
	commits  *prometheus.CounterVec
	requests prometheus.Counter
	results  *prometheus.CounterVec
	items    prometheus.Gauge
}

// New registers the collectors with reg. A nil reg leaves them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		commits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "states_committed_total",
			Help:      "Display states committed, by transition hint.",
		}, []string{"hint"}),
		requests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "block_requests_total",
			Help:      "Block requests sent on the command channel.",
		}),
		results: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "block_results_total",
			Help:      "Block results received, by outcome.",
		}, []string{"outcome"}),
		items: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "display_items",
			Help:      "Rows in the current display state.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.commits, m.requests, m.results, m.items)
	}
	return m
}

// Committed records a committed state.
func (m *Metrics) Committed(hint string, items int) {
	if m == nil {
		return
	}
	m.commits.WithLabelValues(hint).Inc()
	m.items.Set(float64(items))
}

// Requested records a sent block request.
func (m *Metrics) Requested() {
	if m == nil {
		return
	}
	m.requests.Inc()
}

// Resulted records a received block result.
func (m *Metrics) Resulted(outcome string) {
	if m == nil {
		return
	}
	m.results.WithLabelValues(outcome).Inc()
}
