package metrics_test

import (
	"testing"
	"time"

	"github.com/programme-lv/judge/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	m.Submission("python", "Accepted")
	m.Submission("python", "Accepted")
	m.TestRun("python", "Wrong Answer")
	m.SystemError("compile")
	m.Phase("cpp", "compile", 300*time.Millisecond)
	done := m.JobStarted()

	count, err := testutil.GatherAndCount(reg, "judge_submissions_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	assert.Equal(t, 1.0, gaugeValue(t, reg, "judge_jobs_in_flight"))
	done()
	assert.Equal(t, 0.0, gaugeValue(t, reg, "judge_jobs_in_flight"))
}

func gaugeValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() == name {
			return f.GetMetric()[0].GetGauge().GetValue()
		}
	}
	t.Fatalf("%s not registered", name)
	return 0
}

func TestNilMetricsRecordNothing(t *testing.T) {
	var m *metrics.Metrics
	assert.NotPanics(t, func() {
		m.Submission("c", "Accepted")
		m.TestRun("c", "Accepted")
		m.Phase("c", "run", time.Second)
		m.SystemError("run")
		m.JobStarted()()
	})
}
