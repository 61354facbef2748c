// Package observability holds the Prometheus collectors shared by the bus,
// the monitoring agent, the risk engine and the decision log.
//
// Collectors are registered on a caller-supplied Registerer so tests can use
// a private registry. Every recording method is safe on a nil *Metrics,
// which lets components run without instrumentation.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "complybus"

type Metrics struct {
	EventsPublished    *prometheus.CounterVec
	HandlerFailures    *prometheus.CounterVec
	DispatchDropped    *prometheus.CounterVec
	AlertsRaised       prometheus.Counter
	CriticalWindowSize prometheus.Gauge
	ProfilesCalculated *prometheus.CounterVec
	SimulationsRun     prometheus.Counter
	DecisionsLogged    *prometheus.CounterVec
	ReportsGenerated   prometheus.Counter
}

// NewMetrics builds the collectors and registers them on reg when reg is
// non-nil. Registering twice on the same registry panics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		EventsPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "bus",
				Name:      "events_published_total",
				Help:      "Events dispatched by the bus, by event type",
			},
			[]string{"event_type"},
		),
		HandlerFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "bus",
				Name:      "handler_failures_total",
				Help:      "Handler invocations that returned an error or panicked, by event type",
			},
			[]string{"event_type"},
		),
		DispatchDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "bus",
				Name:      "dispatch_dropped_total",
				Help:      "Publishes dropped because the nested dispatch depth limit was reached",
			},
			[]string{"event_type"},
		),
		AlertsRaised: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "monitoring",
				Name:      "alerts_raised_total",
				Help:      "Critical threshold alerts raised by the monitoring agent",
			},
		),
		CriticalWindowSize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: "monitoring",
				Name:      "critical_window_events",
				Help:      "Critical events currently inside the rolling window",
			},
		),
		ProfilesCalculated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "risk",
				Name:      "profiles_calculated_total",
				Help:      "Risk profiles calculated, by resulting risk level",
			},
			[]string{"risk_level"},
		),
		SimulationsRun: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "risk",
				Name:      "simulations_total",
				Help:      "What-if scenarios evaluated",
			},
		),
		DecisionsLogged: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "audit",
				Name:      "decisions_logged_total",
				Help:      "Decisions appended to the decision log, by agent",
			},
			[]string{"agent"},
		),
		ReportsGenerated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "reporting",
				Name:      "reports_generated_total",
				Help:      "Compliance reports generated from report requests",
			},
		),
	}

	if reg != nil {
		reg.MustRegister(
			m.EventsPublished,
			m.HandlerFailures,
			m.DispatchDropped,
			m.AlertsRaised,
			m.CriticalWindowSize,
			m.ProfilesCalculated,
			m.SimulationsRun,
			m.DecisionsLogged,
			m.ReportsGenerated,
		)
	}
	return m
}

func (m *Metrics) EventPublished(eventType string) {
	if m == nil {
		return
	}
	m.EventsPublished.WithLabelValues(eventType).Inc()
}

func (m *Metrics) HandlerFailed(eventType string) {
	if m == nil {
		return
	}
	m.HandlerFailures.WithLabelValues(eventType).Inc()
}

func (m *Metrics) DispatchDroppedByDepth(eventType string) {
	if m == nil {
		return
	}
	m.DispatchDropped.WithLabelValues(eventType).Inc()
}

func (m *Metrics) AlertRaised() {
	if m == nil {
		return
	}
	m.AlertsRaised.Inc()
}

func (m *Metrics) SetCriticalWindow(n int) {
	if m == nil {
		return
	}
	m.CriticalWindowSize.Set(float64(n))
}

func (m *Metrics) ProfileCalculated(level string) {
	if m == nil {
		return
	}
	m.ProfilesCalculated.WithLabelValues(level).Inc()
}

func (m *Metrics) SimulationRun() {
	if m == nil {
		return
	}
	m.SimulationsRun.Inc()
}

func (m *Metrics) DecisionLogged(agent string) {
	if m == nil {
		return
	}
	m.DecisionsLogged.WithLabelValues(agent).Inc()
}

func (m *Metrics) ReportGenerated() {
	if m == nil {
		return
	}
	m.ReportsGenerated.Inc()
}
