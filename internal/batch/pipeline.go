package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"MemberSync/internal/domain"
	"MemberSync/internal/metrics"
	"MemberSync/internal/ports"
)

// DefaultThrottle is the pause between items of a rate-limited job.
const DefaultThrottle = time.Second

// Job describes one batch run over Items. S is whatever Lookup resolves an item to.
//
// Validate and Label are optional. Lookup must wrap domain.ErrNotFound for
// missing subjects and may wrap domain.ErrInvalidInput to reject an item it
// cannot process. Any other Lookup error aborts the whole run.
type Job[T, S any] struct {
	Name     string
	Items    []T
	Label    func(T) string
	Validate func(T) error
	Lookup   func(context.Context, T) (S, error)
	Apply    func(context.Context, T, S) error
	Throttle time.Duration
}

// Runner carries what every batch run shares: logging, metrics and the clock.
type Runner struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
	sleep   func(context.Context, time.Duration) error
	now     func() time.Time
}

// NewRunner builds a Runner. Both arguments may be nil.
func NewRunner(logger *slog.Logger, m *metrics.Metrics) *Runner {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Runner{
		logger:  logger,
		metrics: m,
		sleep:   sleepContext,
		now:     time.Now,
	}
}

// Run visits job.Items strictly in order, one at a time, and returns a report
// with exactly one outcome per item. Progress for an item is published before
// any of its side effects.
func Run[T, S any](ctx context.Context, r *Runner, sink ports.ProgressSink, job Job[T, S]) (*Report, error) {
	if job.Lookup == nil || job.Apply == nil {
		return nil, fmt.Errorf("batch %s: lookup and apply are required", job.Name)
	}

	report := &Report{
		RunID:     uuid.New(),
		Job:       job.Name,
		Total:     len(job.Items),
		StartedAt: r.now(),
		Outcomes:  make([]Outcome, 0, len(job.Items)),
	}
	log := r.logger.With("job", job.Name, "run_id", report.RunID.String())
	log.Info("batch started", "total", report.Total, "throttle", job.Throttle)

	for i, item := range job.Items {
		if i > 0 && job.Throttle > 0 {
			if err := r.sleep(ctx, job.Throttle); err != nil {
				r.finish(log, report, "aborted")
				return nil, fmt.Errorf("batch %s interrupted after %d items: %w", job.Name, i, err)
			}
		}

		outcome := Outcome{Index: i + 1, Label: labelOf(job.Label, item)}
		r.publish(ctx, log, sink, ports.Progress{
			Job:   job.Name,
			Index: outcome.Index,
			Total: report.Total,
			Label: outcome.Label,
		})

		if job.Validate != nil {
			if err := job.Validate(item); err != nil {
				outcome.Status, outcome.Reason = InvalidInput, err.Error()
				r.record(log, report, outcome)
				continue
			}
		}

		subject, err := job.Lookup(ctx, item)
		switch {
		case err == nil:
		case errors.Is(err, domain.ErrNotFound):
			outcome.Status = NotFound
			r.record(log, report, outcome)
			continue
		case errors.Is(err, domain.ErrInvalidInput):
			outcome.Status, outcome.Reason = InvalidInput, err.Error()
			r.record(log, report, outcome)
			continue
		default:
			r.finish(log, report, "aborted")
			return nil, fmt.Errorf("batch %s: lookup %s: %w", job.Name, outcome.Label, err)
		}

		if err := job.Apply(ctx, item, subject); err != nil {
			outcome.Status, outcome.Reason = ProcessingError, err.Error()
			r.record(log, report, outcome)
			continue
		}

		outcome.Status = Success
		r.record(log, report, outcome)
	}

	result := "clean"
	if !report.Clean() {
		result = "errors"
	}
	r.finish(log, report, result)
	return report, nil
}

func (r *Runner) publish(ctx context.Context, log *slog.Logger, sink ports.ProgressSink, p ports.Progress) {
	if sink == nil {
		return
	}
	if err := sink.Publish(ctx, p); err != nil {
		log.Debug("progress publish failed", "index", p.Index, "error", err)
	}
}

func (r *Runner) record(log *slog.Logger, report *Report, outcome Outcome) {
	report.Outcomes = append(report.Outcomes, outcome)
	r.metrics.ObserveItem(report.Job, outcome.Status.String())
	if outcome.Status != Success {
		log.Debug("batch item failed", "index", outcome.Index, "label", outcome.Label,
			"status", outcome.Status.String(), "reason", outcome.Reason)
	}
}

func (r *Runner) finish(log *slog.Logger, report *Report, result string) {
	report.FinishedAt = r.now()
	elapsed := report.FinishedAt.Sub(report.StartedAt)
	r.metrics.ObserveRun(report.Job, result, elapsed)
	log.Info("batch finished",
		"result", result,
		"elapsed", elapsed,
		"success", report.Count(Success),
		"invalid", report.Count(InvalidInput),
		"not_found", report.Count(NotFound),
		"failed", report.Count(ProcessingError))
}

func labelOf[T any](label func(T) string, item T) string {
	if label != nil {
		return label(item)
	}
	return fmt.Sprint(item)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
