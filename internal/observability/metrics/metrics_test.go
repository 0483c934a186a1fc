package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestFlowMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewFlowMetrics(reg)
	m.ObserveSessionStarted()
	m.ObserveSessionCompleted("booked")
	m.ObserveTransition("initial", "confirm_first_name")
	m.ObserveFlowError("missing_field")
	m.ObserveValidationLatency(0.25)
}

func TestFlowMetricsNilSafe(t *testing.T) {
	var m *FlowMetrics
	m.ObserveSessionStarted()
	m.ObserveSessionCompleted("no_slot")
	m.ObserveTransition("a", "b")
	m.ObserveFlowError("parse_failure")
	m.ObserveValidationLatency(0.1)
}
