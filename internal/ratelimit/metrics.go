package ratelimit

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the Prometheus instrumentation for the façade. A nil
// *Metrics is valid everywhere it's accepted: callers that don't want
// metrics simply pass nil and the façade skips recording.
type Metrics struct {
	hits      *prometheus.CounterVec
	refreshes prometheus.Counter
	cooldowns prometheus.Counter
	duration  prometheus.Histogram
}

// NewMetrics registers the rate limiter's counters and histogram against
// reg. Pass prometheus.DefaultRegisterer for the global registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		hits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "riotlimit_hits_total",
			Help: "Outcomes of Hit calls, labeled by decision and source.",
		}, []string{"decision", "source"}),
		refreshes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "riotlimit_refresh_total",
			Help: "Number of Refresh calls processed.",
		}),
		cooldowns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "riotlimit_cooldowns_installed_total",
			Help: "Number of cooldown keys installed from 429 responses.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "riotlimit_admission_duration_seconds",
			Help:    "Latency of the atomic admission script round trip.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.hits, m.refreshes, m.cooldowns, m.duration)
	return m
}

// ObserveHit records one Hit outcome.
func (m *Metrics) ObserveHit(decision, source string) {
	if m == nil {
		return
	}
	m.hits.WithLabelValues(decision, source).Inc()
}

// ObserveRefresh records one Refresh call.
func (m *Metrics) ObserveRefresh() {
	if m == nil {
		return
	}
	m.refreshes.Inc()
}

// ObserveCooldownInstalled records one cooldown installation.
func (m *Metrics) ObserveCooldownInstalled() {
	if m == nil {
		return
	}
	m.cooldowns.Inc()
}

// ObserveAdmissionDuration records the admission script's round-trip time in
// seconds.
func (m *Metrics) ObserveAdmissionDuration(seconds float64) {
	if m == nil {
		return
	}
	m.duration.Observe(seconds)
}
