package usecase

import (
	"context"
	"io"
	"log/slog"
	"time"

	"MemberSync/internal/metrics"
	"MemberSync/internal/ports"
)

// Sweeper wires the interval driver with the structure enforcement job.
// Sweeps are not serialized: safety relies on the job being idempotent.
type Sweeper struct {
	driver    ports.Scheduler
	jobs      *Jobs
	sink      ports.ProgressSink
	publisher ports.ReportPublisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewSweeper returns a helper to start/stop the recurring sweep. sink and publisher may be nil.
func NewSweeper(driver ports.Scheduler, jobs *Jobs, sink ports.ProgressSink, publisher ports.ReportPublisher, m *metrics.Metrics, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Sweeper{driver: driver, jobs: jobs, sink: sink, publisher: publisher, metrics: m, logger: logger}
}

// Start registers the sweep with the provided scheduler.
func (s *Sweeper) Start(ctx context.Context) error {
	if s.driver == nil || s.jobs == nil {
		return nil
	}
	return s.driver.Start(ctx, func(trigger time.Time) {
		s.Sweep(ctx, trigger)
	})
}

// Sweep runs one structure enforcement pass and logs its outcome.
func (s *Sweeper) Sweep(ctx context.Context, trigger time.Time) {
	s.metrics.IncrementSweeps()
	s.logger.Info("structure sweep triggered", "at", trigger)

	report, err := s.jobs.EnforceStructure(ctx, s.sink)
	if err != nil {
		s.logger.Error("structure sweep failed", "error", err)
		return
	}
	s.logger.Info("structure sweep done", "summary", report.Summary())

	if s.publisher == nil || report.Clean() {
		return
	}
	attachment, _ := report.Attachment()
	if err := s.publisher.PublishReport(ctx, JobStructureEnforcement, report.Summary(), false, attachment); err != nil {
		s.logger.Warn("publish sweep report", "error", err)
	}
}

// Stop gracefully tears down the underlying scheduler.
func (s *Sweeper) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}
	return s.driver.Stop(ctx)
}
