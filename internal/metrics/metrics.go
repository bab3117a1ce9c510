// Package metrics exposes Prometheus instrumentation for the link index.
//
// A nil *Metrics is valid and records nothing, so library code can accept
// one unconditionally.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Reconcile outcomes.
const (
	ResultUpdated = "updated"
	ResultDeleted = "deleted"
	ResultSkipped = "skipped"
	ResultFailed  = "failed"
)

type Metrics struct {
	reconciles    *prometheus.CounterVec
	references    *prometheus.CounterVec
	drainItems    prometheus.Counter
	drainFailures prometheus.Counter
	drainDuration prometheus.Histogram
	queueDepth    prometheus.Gauge
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		reconciles: f.NewCounterVec(prometheus.CounterOpts{
			Name: "wlh_reconciliations_total",
			Help: "Reconciliation passes by outcome",
		}, []string{"result"}),
		references: f.NewCounterVec(prometheus.CounterOpts{
			Name: "wlh_references_total",
			Help: "Extracted references by resolution outcome",
		}, []string{"outcome"}),
		drainItems: f.NewCounter(prometheus.CounterOpts{
			Name: "wlh_queue_drained_items_total",
			Help: "Documents taken from the pending queue by drains",
		}),
		drainFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "wlh_queue_drain_failures_total",
			Help: "Documents whose reconciliation failed during a drain",
		}),
		drainDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "wlh_queue_drain_duration_seconds",
			Help:    "Time to drain the pending queue",
			Buckets: []float64{0.001, 0.01, 0.1, 1, 10, 60},
		}),
		queueDepth: f.NewGauge(prometheus.GaugeOpts{
			Name: "wlh_queue_depth",
			Help: "Documents currently pending reconciliation",
		}),
	}
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveReconcile(result string) {
	if m == nil {
		return
	}
	m.reconciles.WithLabelValues(result).Inc()
}

// ObserveReference counts one reference. An empty outcome means it resolved.
func (m *Metrics) ObserveReference(outcome string) {
	if m == nil {
		return
	}
	if outcome == "" {
		outcome = "resolved"
	}
	m.references.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveDrain(items, failed int, took time.Duration) {
	if m == nil {
		return
	}
	m.drainItems.Add(float64(items))
	m.drainFailures.Add(float64(failed))
	m.drainDuration.Observe(took.Seconds())
}

func (m *Metrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(n))
}
