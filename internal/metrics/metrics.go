// Package metrics exposes judge counters to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is safe to use through a nil pointer, which records nothing.
type Metrics struct {
	submissions  *prometheus.CounterVec
	testRuns     *prometheus.CounterVec
	phase        *prometheus.HistogramVec
	systemErrors *prometheus.CounterVec
	inFlight     prometheus.Gauge
}

// New registers the judge collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		submissions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "judge_submissions_total",
			Help: "Judged submissions by language and overall verdict.",
		}, []string{"language", "verdict"}),
		testRuns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "judge_test_runs_total",
			Help: "Executed test cases by language and verdict.",
		}, []string{"language", "verdict"}),
		phase: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "judge_phase_duration_seconds",
			Help:    "Duration of compile and run phases.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"language", "phase"}),
		systemErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "judge_system_errors_total",
			Help: "Infrastructure failures by stage.",
		}, []string{"stage"}),
		inFlight: f.NewGauge(prometheus.GaugeOpts{
			Name: "judge_jobs_in_flight",
			Help: "Submissions currently being judged.",
		}),
	}
}

func (m *Metrics) Submission(language, verdict string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(language, verdict).Inc()
}

func (m *Metrics) TestRun(language, verdict string) {
	if m == nil {
		return
	}
	m.testRuns.WithLabelValues(language, verdict).Inc()
}

func (m *Metrics) Phase(language, phase string, d time.Duration) {
	if m == nil {
		return
	}
	m.phase.WithLabelValues(language, phase).Observe(d.Seconds())
}

func (m *Metrics) SystemError(stage string) {
	if m == nil {
		return
	}
	m.systemErrors.WithLabelValues(stage).Inc()
}

// JobStarted returns the function marking the job done.
func (m *Metrics) JobStarted() func() {
	if m == nil {
		return func() {}
	}
	m.inFlight.Inc()
	return m.inFlight.Dec
}
