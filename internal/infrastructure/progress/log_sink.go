package progress

import (
	"context"
	"log/slog"

	"MemberSync/internal/ports"
)

// LogSink publishes progress as structured log lines. It never fails.
type LogSink struct {
	logger *slog.Logger
	level  slog.Level
}

var _ ports.ProgressSink = (*LogSink)(nil)

// NewLogSink logs progress at level.
func NewLogSink(logger *slog.Logger, level slog.Level) *LogSink {
	return &LogSink{logger: logger, level: level}
}

func (s *LogSink) Publish(ctx context.Context, p ports.Progress) error {
	if s.logger == nil {
		return nil
	}
	s.logger.Log(ctx, s.level, "batch progress", "job", p.Job, "index", p.Index, "total", p.Total, "subject", p.Label)
	return nil
}
