package notify

import (
	"context"
	"log/slog"
)

// LogSink writes notifications to the log instead of delivering them.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a LogSink.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Send(ctx context.Context, subject, body string, recipients []string) error {
	if err := checkRecipients(SinkLog, recipients); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "notification",
		"recipients", recipients,
		"subject", subject,
		"body_length", len(body),
	)
	return nil
}
