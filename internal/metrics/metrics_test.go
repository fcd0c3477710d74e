package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveItemAndRun(t *testing.T) {
	t.Parallel()

	m := New(prometheus.NewRegistry())
	m.ObserveItem("promote", "success")
	m.ObserveItem("promote", "success")
	m.ObserveItem("promote", "not_found")
	m.ObserveRun("promote", "errors", 2*time.Second)
	m.IncrementSweeps()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.BatchItems.WithLabelValues("promote", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BatchItems.WithLabelValues("promote", "not_found")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BatchRuns.WithLabelValues("promote", "errors")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SweepsStarted))
}

func TestNilMetricsIsNoop(t *testing.T) {
	t.Parallel()

	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveItem("x", "success")
		m.ObserveRun("x", "clean", time.Second)
		m.IncrementSweeps()
	})
}
