// Package metrics holds the Prometheus collectors of the service.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
)

const namespace = "alertdesk"

// Metrics groups the collectors on a private registry. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	AlertsIngested *prometheus.CounterVec
	IngestRejected *prometheus.CounterVec
	ChartQueries   *prometheus.CounterVec
	StoredAlerts   *prometheus.GaugeVec
	HTTPRequests   *prometheus.CounterVec
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		AlertsIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_ingested_total",
			Help:      "Alerts accepted through the webhook.",
		}, []string{"strategy"}),
		IngestRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_rejected_total",
			Help:      "Webhook calls rejected, by reason.",
		}, []string{"reason"}),
		ChartQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chart_queries_total",
			Help:      "Chart queries by resolved mode and outcome.",
		}, []string{"mode", "outcome"}),
		StoredAlerts: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stored_alerts",
			Help:      "Alerts currently stored, per strategy.",
		}, []string{"strategy"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
	}

	m.registry.MustRegister(
		m.AlertsIngested,
		m.IngestRejected,
		m.ChartQueries,
		m.StoredAlerts,
		m.HTTPRequests,
		collectors.NewGoCollector(),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveIngest(strategy string) {
	if m == nil {
		return
	}
	m.AlertsIngested.WithLabelValues(strategy).Inc()
}

func (m *Metrics) ObserveRejected(reason string) {
	if m == nil {
		return
	}
	m.IngestRejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) ObserveChart(mode, outcome string) {
	if m == nil {
		return
	}
	m.ChartQueries.WithLabelValues(mode, outcome).Inc()
}

func (m *Metrics) ObserveRequest(method, route string, status int) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}

// SetStored replaces the per-strategy gauge with counts.
func (m *Metrics) SetStored(counts map[string]int64) {
	if m == nil {
		return
	}
	m.StoredAlerts.Reset()
	for name, n := range counts {
		m.StoredAlerts.WithLabelValues(name).Set(float64(n))
	}
}

// Value reads the current value of a single counter or gauge.
func Value(c prometheus.Collector) float64 {
	ch := make(chan prometheus.Metric, 1)
	go func() {
		c.Collect(ch)
		close(ch)
	}()

	var value float64
	for metric := range ch {
		metricProto := &dto.Metric{}
		if err := metric.Write(metricProto); err != nil {
			continue
		}
		if metricProto.Counter != nil {
			value = metricProto.Counter.GetValue()
		} else if metricProto.Gauge != nil {
			value = metricProto.Gauge.GetValue()
		}
	}
	return value
}
