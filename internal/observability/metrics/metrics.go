package metrics

import "github.com/prometheus/client_golang/prometheus"

// LeadMetrics exposes counters/histograms for the lead intake pipeline.
type LeadMetrics struct {
	submissionsTotal *prometheus.CounterVec
	sideEffectsTotal *prometheus.CounterVec
	submitDuration   *prometheus.HistogramVec
}

func NewLeadMetrics(reg prometheus.Registerer) *LeadMetrics {
	m := &LeadMetrics{
		submissionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "microburbs",
			Subsystem: "leads",
			Name:      "submissions_total",
			Help:      "Total lead submissions by outcome",
		}, []string{"outcome"}),
		sideEffectsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "microburbs",
			Subsystem: "leads",
			Name:      "side_effects_total",
			Help:      "CRM/email side effect attempts by status",
		}, []string{"effect", "status"}),
		submitDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "microburbs",
			Subsystem: "leads",
			Name:      "submit_duration_seconds",
			Help:      "Latency of lead submission processing",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.submissionsTotal, m.sideEffectsTotal, m.submitDuration)
	return m
}

// ObserveSubmission records one pipeline run. Outcome is one of
// accepted, spam, invalid, rate_limited.
func (m *LeadMetrics) ObserveSubmission(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.submissionsTotal.WithLabelValues(outcome).Inc()
	m.submitDuration.WithLabelValues(outcome).Observe(seconds)
}

// ObserveSideEffect records a CRM forward or confirmation email attempt.
func (m *LeadMetrics) ObserveSideEffect(effect, status string) {
	if m == nil {
		return
	}
	m.sideEffectsTotal.WithLabelValues(effect, status).Inc()
}
