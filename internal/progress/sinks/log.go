// Package sinks provides progress.Sink implementations.
package sinks

import (
	"context"

	"go.uber.org/zap"

	"github.com/nexthing8-cmd/okky-jobs-backend/internal/progress"
)

// LogSink mirrors crawl events into structured logs.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires a Zap logger to the sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Consume logs each event in the batch using structured fields.
func (s *LogSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		fields := []zap.Field{
			zap.Int64("run_id", evt.RunID),
			zap.String("kind", string(evt.Kind)),
			zap.Time("ts", evt.TS),
		}
		if evt.Kind == progress.KindProgress {
			fields = append(fields, zap.Int("percent", evt.Percent))
		}
		switch evt.Kind {
		case progress.KindError:
			s.logger.Error(evt.Message, fields...)
		case progress.KindWarning:
			s.logger.Warn(evt.Message, fields...)
		default:
			s.logger.Info(evt.Message, fields...)
		}
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *LogSink) Close(context.Context) error {
	return nil
}
