package temporal

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Revert outcomes recorded by Metrics.
const (
	outcomeReverted = "reverted"
	outcomeDeclined = "declined"
	outcomePanicked = "panicked"
	outcomeForced   = "forced"
)

// Metrics exports per-category scheduler collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	active          *prometheus.GaugeVec
	reverts         *prometheus.CounterVec
	ownerViolations *prometheus.CounterVec
	tickDuration    *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		active: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "tempworld",
			Subsystem: "temporal",
			Name:      "active_entries",
			Help:      "Registered temporary objects per category.",
		}, []string{"category"}),
		reverts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tempworld",
			Subsystem: "temporal",
			Name:      "reverts_total",
			Help:      "Revert attempts per category and outcome.",
		}, []string{"category", "outcome"}),
		ownerViolations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tempworld",
			Subsystem: "temporal",
			Name:      "owner_violations_total",
			Help:      "Structural calls made outside the ticking goroutine.",
		}, []string{"category"}),
		tickDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "tempworld",
			Subsystem: "temporal",
			Name:      "tick_duration_seconds",
			Help:      "Time spent advancing a category wheel.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 8),
		}, []string{"category"}),
	}
	reg.MustRegister(m.active, m.reverts, m.ownerViolations, m.tickDuration)
	return m
}

func (m *Metrics) setActive(category string, n int) {
	if m == nil {
		return
	}
	m.active.WithLabelValues(category).Set(float64(n))
}

func (m *Metrics) revert(category, outcome string) {
	if m == nil {
		return
	}
	m.reverts.WithLabelValues(category, outcome).Inc()
}

func (m *Metrics) ownerViolation(category string) {
	if m == nil {
		return
	}
	m.ownerViolations.WithLabelValues(category).Inc()
}

// tickTimer returns a function that observes the elapsed tick time.
func (m *Metrics) tickTimer(category string) func() {
	if m == nil {
		return func() {}
	}
	timer := prometheus.NewTimer(m.tickDuration.WithLabelValues(category))
	return func() { timer.ObserveDuration() }
}
