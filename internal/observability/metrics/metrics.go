package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters/histograms for the booking wizard.
type BookingMetrics struct {
	sessionsStarted *prometheus.CounterVec
	transitions     *prometheus.CounterVec
	upstreamLatency *prometheus.HistogramVec
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		sessionsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quickbooking",
			Subsystem: "wizard",
			Name:      "sessions_started_total",
			Help:      "Total wizard sessions started from QR launches",
		}, []string{"outcome"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quickbooking",
			Subsystem: "wizard",
			Name:      "transitions_total",
			Help:      "Total wizard commands applied to sessions",
		}, []string{"command", "outcome"}),
		upstreamLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "quickbooking",
			Subsystem: "upstream",
			Name:      "call_latency_seconds",
			Help:      "Latency of calls to the scheduling API",
			Buckets:   prometheus.DefBuckets,
		}, []string{"call"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.sessionsStarted, m.transitions, m.upstreamLatency)
	return m
}

func (m *BookingMetrics) ObserveSessionStarted(outcome string) {
	if m == nil {
		return
	}
	m.sessionsStarted.WithLabelValues(outcome).Inc()
}

func (m *BookingMetrics) ObserveTransition(command, outcome string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(command, outcome).Inc()
}

func (m *BookingMetrics) ObserveUpstreamLatency(call string, seconds float64) {
	if m == nil {
		return
	}
	m.upstreamLatency.WithLabelValues(call).Observe(seconds)
}
