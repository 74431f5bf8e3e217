package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"discord-dashboard/internal/model"
)

const namespace = "discord_dashboard"

// Metrics groups the dashboard collectors on a private registry. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	upstreamRequests *prometheus.CounterVec
	refreshes        *prometheus.CounterVec
	messagesSent     *prometheus.CounterVec
	refreshDuration  prometheus.Histogram
	streamClients    prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		upstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Chat platform reads and writes by endpoint and data origin.",
		}, []string{"endpoint", "origin"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refreshes_total",
			Help:      "Dashboard refresh attempts by outcome.",
		}, []string{"outcome"}),
		messagesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_sent_total",
			Help:      "Messages submitted from the dashboard by data origin.",
		}, []string{"origin"}),
		refreshDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "refresh_duration_seconds",
			Help:      "Time spent waiting for the refresh fan-out to settle.",
			Buckets:   prometheus.DefBuckets,
		}),
		streamClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stream_clients",
			Help:      "Connected live-update clients.",
		}),
	}

	m.registry.MustRegister(
		m.upstreamRequests,
		m.refreshes,
		m.messagesSent,
		m.refreshDuration,
		m.streamClients,
		collectors.NewGoCollector(),
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveUpstream(endpoint string, origin model.Origin) {
	if m == nil {
		return
	}
	m.upstreamRequests.WithLabelValues(endpoint, string(origin)).Inc()
}

func (m *Metrics) ObserveRefresh(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.refreshes.WithLabelValues(outcome).Inc()
	if elapsed > 0 {
		m.refreshDuration.Observe(elapsed.Seconds())
	}
}

func (m *Metrics) ObserveMessageSent(origin model.Origin) {
	if m == nil {
		return
	}
	m.messagesSent.WithLabelValues(string(origin)).Inc()
}

func (m *Metrics) SetStreamClients(n int) {
	if m == nil {
		return
	}
	m.streamClients.Set(float64(n))
}
