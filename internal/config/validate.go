package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rickgao/bankrates/internal/model"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if err := c.Database.validate("database"); err != nil {
		return err
	}

	if c.Ingest.Interval <= 0 {
		return errors.New("ingest.interval must be > 0")
	}
	if c.Ingest.Timeout <= 0 {
		return errors.New("ingest.timeout must be > 0")
	}
	if c.Ingest.Timeout > c.Ingest.Interval {
		return fmt.Errorf("ingest.timeout (%s) cannot exceed ingest.interval (%s)", c.Ingest.Timeout, c.Ingest.Interval)
	}
	if c.Ingest.Concurrency < 0 {
		return errors.New("ingest.concurrency must be >= 0")
	}
	// A failed fetch waits for the next cycle.
	if c.Ingest.MaxRetries != 0 {
		return fmt.Errorf("ingest.max_retries must be 0, got %d: scheduled cycles never retry", c.Ingest.MaxRetries)
	}

	for name := range c.Sources {
		if !model.Source(name).Valid() {
			return fmt.Errorf("sources.%s is not a known source", name)
		}
	}

	if err := c.Notify.validate(); err != nil {
		return err
	}

	if c.HTTP.Port < 1 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.HTTP.HealthPort < 1 || c.HTTP.HealthPort > 65535 {
		return fmt.Errorf("http.health_port must be between 1 and 65535, got %d", c.HTTP.HealthPort)
	}

	if c.Writer.BatchSize < 1 {
		return errors.New("writer.batch_size must be >= 1")
	}

	if _, err := ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}

func (n *NotifyConfig) validate() error {
	switch n.Sink {
	case "log":
	case "smtp":
		if n.SMTP.Host == "" {
			return errors.New("notify.smtp.host is required")
		}
		if n.SMTP.From == "" {
			return errors.New("notify.smtp.from is required")
		}
	case "kafka":
		if len(n.Kafka.Brokers) == 0 {
			return errors.New("notify.kafka.brokers is required")
		}
	default:
		return fmt.Errorf("notify.sink must be smtp, kafka or log, got %q", n.Sink)
	}
	if len(n.Recipients) == 0 {
		return errors.New("notify.recipients is required")
	}
	return nil
}

// ParseLevel converts a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown level %q", s)
}
