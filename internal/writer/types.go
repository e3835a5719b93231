package writer

import (
	"time"
)

// WriterConfig contains configuration for batch writers.
type WriterConfig struct {
	// BatchSize is the number of rows to accumulate before flushing.
	BatchSize int

	// FlushInterval is the maximum time between flushes.
	FlushInterval time.Duration

	// QueueLimit caps queued entries. Zero means 100 batches.
	QueueLimit int
}

// DefaultWriterConfig returns sensible defaults.
func DefaultWriterConfig() WriterConfig {
	return WriterConfig{
		BatchSize:     100,
		FlushInterval: 2 * time.Second,
	}
}

func (c WriterConfig) withDefaults() WriterConfig {
	d := DefaultWriterConfig()
	if c.BatchSize <= 0 {
		c.BatchSize = d.BatchSize
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = d.FlushInterval
	}
	if c.QueueLimit <= 0 {
		c.QueueLimit = c.BatchSize * 100
	}
	return c
}

// responseLogRow represents a row for the response_logs table.
type responseLogRow struct {
	Path         string
	StatusCode   int
	ResponseTime int64 // Milliseconds
	CreatedAt    time.Time
}

// WriterMetrics holds metrics for a writer.
type WriterMetrics struct {
	Inserts int64
	Errors  int64
	Flushes int64
	Dropped int64
}
