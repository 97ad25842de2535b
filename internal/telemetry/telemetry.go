// Package telemetry holds the prometheus collectors for the notification path.
//
// A nil *Metrics is valid and records nothing, so components can be built
// without a registry in tests.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "focusdesk"

type Metrics struct {
	registry *prometheus.Registry

	decisions *prometheus.CounterVec
	removals  *prometheus.CounterVec
	forwarded *prometheus.CounterVec
	dropped   *prometheus.CounterVec
	records   *prometheus.CounterVec
	session   prometheus.Gauge
	conns     *prometheus.GaugeVec
}

// New builds a fresh registry with process and Go collectors plus the
// notification collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "policy",
			Name:      "decisions_total",
			Help:      "Policy decisions for posted notifications by verdict and reason.",
		}, []string{"verdict", "reason"}),
		removals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "removals_total",
			Help:      "Removal signals by outcome.",
		}, []string{"outcome"}),
		forwarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "forwarder",
			Name:      "delivered_total",
			Help:      "Events delivered to the consumer by action.",
		}, []string{"action"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "forwarder",
			Name:      "dropped_total",
			Help:      "Events dropped because no consumer was attached or the consumer failed.",
		}, []string{"action"}),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingress",
			Name:      "records_total",
			Help:      "Ingress records by kind.",
		}, []string{"kind"}),
		session: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "active",
			Help:      "1 while the host surface is in the foreground.",
		}),
		conns: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "transport",
			Name:      "connections",
			Help:      "Open connections by endpoint.",
		}, []string{"endpoint"}),
	}
	reg.MustRegister(m.decisions, m.removals, m.forwarded, m.dropped, m.records, m.session, m.conns)
	return m
}

// Registry returns the underlying registry, or nil for a nil Metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// SubscriberFunc exposes f as the forwarder_subscribed gauge.
func (m *Metrics) SubscriberFunc(f func() bool) {
	if m == nil || f == nil {
		return
	}
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "forwarder",
		Name:      "subscribed",
		Help:      "1 while a consumer is subscribed.",
	}, func() float64 {
		if f() {
			return 1
		}
		return 0
	}))
}

func (m *Metrics) Decision(verdict, reason string) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(verdict, reason).Inc()
}

func (m *Metrics) Removal(outcome string) {
	if m == nil {
		return
	}
	m.removals.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Forwarded(action string) {
	if m == nil {
		return
	}
	m.forwarded.WithLabelValues(action).Inc()
}

func (m *Metrics) Dropped(action string) {
	if m == nil {
		return
	}
	m.dropped.WithLabelValues(action).Inc()
}

func (m *Metrics) Record(kind string) {
	if m == nil {
		return
	}
	m.records.WithLabelValues(kind).Inc()
}

func (m *Metrics) Session(active bool) {
	if m == nil {
		return
	}
	if active {
		m.session.Set(1)
	} else {
		m.session.Set(0)
	}
}

// Conn tracks one connection on endpoint; call the returned func on close.
func (m *Metrics) Conn(endpoint string) func() {
	if m == nil {
		return func() {}
	}
	g := m.conns.WithLabelValues(endpoint)
	g.Inc()
	return g.Dec
}
