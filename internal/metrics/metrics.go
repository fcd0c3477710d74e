package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks batch runs and their per-item outcomes.
type Metrics struct {
	BatchItems       *prometheus.CounterVec
	BatchRuns        *prometheus.CounterVec
	BatchRunDuration *prometheus.HistogramVec
	SweepsStarted    prometheus.Counter
}

// New registers the collectors on reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		BatchItems: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "membersync_batch_items_total",
			Help: "Batch items processed, by job and outcome",
		}, []string{"job", "outcome"}),
		BatchRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "membersync_batch_runs_total",
			Help: "Batch runs finished, by job and result (clean, errors, aborted)",
		}, []string{"job", "result"}),
		BatchRunDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "membersync_batch_run_duration_seconds",
			Help:    "Wall-clock duration of batch runs",
			Buckets: []float64{1, 5, 30, 60, 300, 900, 1800, 3600},
		}, []string{"job"}),
		SweepsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "membersync_structure_sweeps_started_total",
			Help: "Background structure sweeps started by the scheduler",
		}),
	}
}

func (m *Metrics) ObserveItem(job, outcome string) {
	if m == nil {
		return
	}
	m.BatchItems.WithLabelValues(job, outcome).Inc()
}

func (m *Metrics) ObserveRun(job, result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.BatchRuns.WithLabelValues(job, result).Inc()
	m.BatchRunDuration.WithLabelValues(job).Observe(elapsed.Seconds())
}

func (m *Metrics) IncrementSweeps() {
	if m == nil {
		return
	}
	m.SweepsStarted.Inc()
}
