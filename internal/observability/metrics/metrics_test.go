package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestLeadMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewLeadMetrics(reg)
	m.ObserveSubmission("accepted", 0.02)
	m.ObserveSubmission("spam", 0.001)
	m.ObserveSideEffect("crm", "ok")
	m.ObserveSideEffect("email", "error")
}

func TestLeadMetricsNilSafe(t *testing.T) {
	var m *LeadMetrics
	m.ObserveSubmission("accepted", 0.1)
	m.ObserveSideEffect("crm", "ok")
}
