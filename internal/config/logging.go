package config

import (
	"io"
	"log/slog"
)

// NewLogger builds the process logger. Validate has already rejected unknown
// levels and formats; anything else falls back to info/text.
func (l LoggingConfig) NewLogger(w io.Writer) *slog.Logger {
	level, _ := ParseLevel(l.Level)
	opts := &slog.HandlerOptions{Level: level}

	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
