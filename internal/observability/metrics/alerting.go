// Package metrics defines the Prometheus collectors of the alert engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "alertd"

// AlertMetrics groups the engine collectors in a private registry so tests
// and multiple engines never collide on the default registerer. All record
// methods are safe on a nil receiver.
type AlertMetrics struct {
	registry *prometheus.Registry

	readings            *prometheus.CounterVec
	readingsDropped     *prometheus.CounterVec
	evaluations         prometheus.Counter
	evaluationDuration  prometheus.Histogram
	violations          *prometheus.CounterVec
	deliveries          *prometheus.CounterVec
	suppressed          prometheus.Counter
	staleDropped        prometheus.Counter
	fetchFailures       *prometheus.CounterVec
	sideChannelFailures *prometheus.CounterVec
	sideChannelSent     *prometheus.CounterVec
	streamClients       prometheus.Gauge
	streamMessages      *prometheus.CounterVec
}

// NewAlertMetrics creates the collectors and registers them together with
// the Go runtime and process collectors.
func NewAlertMetrics() *AlertMetrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &AlertMetrics{
		registry: reg,
		readings: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "readings_total",
			Help:      "Sensor readings received, by intake source",
		}, []string{"source"}),
		readingsDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "readings_dropped_total",
			Help:      "Sensor readings dropped before evaluation",
		}, []string{"reason"}),
		evaluations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluations_total",
			Help:      "Evaluation passes run against a reading",
		}),
		evaluationDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "evaluation_duration_seconds",
			Help:      "Time spent evaluating and delivering one reading",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5},
		}),
		violations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "violations_total",
			Help:      "Threshold violations found, before cooldown",
		}, []string{"severity"}),
		deliveries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_total",
			Help:      "Notifications delivered to the log and toast queue",
		}, []string{"kind", "severity"}),
		suppressed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cooldown_suppressed_total",
			Help:      "Violations suppressed by the cooldown window",
		}),
		staleDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_evaluations_dropped_total",
			Help:      "Evaluations discarded after a device switch",
		}),
		fetchFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_failures_total",
			Help:      "Failed fetches from collaborators",
		}, []string{"source"}),
		sideChannelFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "side_channel_failures_total",
			Help:      "Audio or OS notification failures",
		}, []string{"channel"}),
		sideChannelSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "side_channel_sent_total",
			Help:      "Audio signals played and OS notifications sent",
		}, []string{"channel"}),
		streamClients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stream_clients",
			Help:      "Clients connected to the notification stream",
		}),
		streamMessages: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_messages_total",
			Help:      "Messages written to notification stream clients",
		}, []string{"event"}),
	}
}

// RegisterStateGauges exposes engine state sampled at scrape time.
func (m *AlertMetrics) RegisterStateGauges(unread, activeToasts, healthy func() float64) {
	if m == nil {
		return
	}
	factory := promauto.With(m.registry)
	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "notifications_unread",
		Help:      "Unread notifications in the log",
	}, unread)
	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "toasts_active",
		Help:      "Toasts visible or being removed",
	}, activeToasts)
	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "healthy",
		Help:      "1 when the engine health signal is green",
	}, healthy)
}

// Registry returns the registry holding all collectors.
func (m *AlertMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *AlertMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *AlertMetrics) RecordReading(source string) {
	if m == nil {
		return
	}
	m.readings.WithLabelValues(source).Inc()
}

func (m *AlertMetrics) RecordReadingDropped(reason string) {
	if m == nil {
		return
	}
	m.readingsDropped.WithLabelValues(reason).Inc()
}

func (m *AlertMetrics) RecordEvaluation(seconds float64) {
	if m == nil {
		return
	}
	m.evaluations.Inc()
	m.evaluationDuration.Observe(seconds)
}

func (m *AlertMetrics) RecordViolation(severity string) {
	if m == nil {
		return
	}
	m.violations.WithLabelValues(severity).Inc()
}

func (m *AlertMetrics) RecordDelivery(kind, severity string) {
	if m == nil {
		return
	}
	m.deliveries.WithLabelValues(kind, severity).Inc()
}

func (m *AlertMetrics) RecordSuppressed() {
	if m == nil {
		return
	}
	m.suppressed.Inc()
}

func (m *AlertMetrics) RecordStaleDropped() {
	if m == nil {
		return
	}
	m.staleDropped.Inc()
}

func (m *AlertMetrics) RecordFetchFailure(source string) {
	if m == nil {
		return
	}
	m.fetchFailures.WithLabelValues(source).Inc()
}

func (m *AlertMetrics) RecordSideChannel(channel string, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.sideChannelFailures.WithLabelValues(channel).Inc()
		return
	}
	m.sideChannelSent.WithLabelValues(channel).Inc()
}

// StreamConnected tracks a stream client for as long as the returned
// function has not been called.
func (m *AlertMetrics) StreamConnected() func() {
	if m == nil {
		return func() {}
	}
	m.streamClients.Inc()
	return m.streamClients.Dec
}

func (m *AlertMetrics) RecordStreamMessage(event string) {
	if m == nil {
		return
	}
	m.streamMessages.WithLabelValues(event).Inc()
}
