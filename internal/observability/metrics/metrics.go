package metrics

import "github.com/prometheus/client_golang/prometheus"

// FlowMetrics exposes counters/histograms for the intake dialogue flow.
type FlowMetrics struct {
	sessionsStarted   prometheus.Counter
	sessionsCompleted *prometheus.CounterVec
	transitionsTotal  *prometheus.CounterVec
	flowErrorsTotal   *prometheus.CounterVec
	validationLatency prometheus.Histogram
}

func NewFlowMetrics(reg prometheus.Registerer) *FlowMetrics {
	m := &FlowMetrics{
		sessionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "intake",
			Subsystem: "flow",
			Name:      "sessions_started_total",
			Help:      "Total intake sessions started",
		}),
		sessionsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "intake",
			Subsystem: "flow",
			Name:      "sessions_completed_total",
			Help:      "Total intake sessions reaching a terminal node",
		}, []string{"outcome"}),
		transitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "intake",
			Subsystem: "flow",
			Name:      "transitions_total",
			Help:      "Total node transitions",
		}, []string{"from", "to"}),
		flowErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "intake",
			Subsystem: "flow",
			Name:      "errors_total",
			Help:      "Total flow errors by kind",
		}, []string{"kind"}),
		validationLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "intake",
			Subsystem: "flow",
			Name:      "address_validation_seconds",
			Help:      "Latency of USPS address validation calls",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.sessionsStarted, m.sessionsCompleted, m.transitionsTotal, m.flowErrorsTotal, m.validationLatency)
	return m
}

func (m *FlowMetrics) ObserveSessionStarted() {
	if m == nil {
		return
	}
	m.sessionsStarted.Inc()
}

func (m *FlowMetrics) ObserveSessionCompleted(outcome string) {
	if m == nil {
		return
	}
	m.sessionsCompleted.WithLabelValues(outcome).Inc()
}

func (m *FlowMetrics) ObserveTransition(from, to string) {
	if m == nil {
		return
	}
	m.transitionsTotal.WithLabelValues(from, to).Inc()
}

func (m *FlowMetrics) ObserveFlowError(kind string) {
	if m == nil {
		return
	}
	m.flowErrorsTotal.WithLabelValues(kind).Inc()
}

func (m *FlowMetrics) ObserveValidationLatency(seconds float64) {
	if m == nil {
		return
	}
	m.validationLatency.Observe(seconds)
}
