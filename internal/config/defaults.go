package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultDBPort         = 5432
	DefaultDBSSLMode      = "prefer"
	DefaultMaxConns       = 10
	DefaultMinConns       = 2
	DefaultCacheTTL       = 10 * time.Minute
	DefaultIngestInterval = 15 * time.Minute
	DefaultIngestTimeout  = 30 * time.Second
	DefaultUserAgent      = "bankrates-ingester/1.0"
	DefaultNotifySink     = "log"
	DefaultSMTPPort       = 587
	DefaultKafkaTopic     = "notifications.contact"
	DefaultHTTPPort       = 8000
	DefaultHealthPort     = 8080
	DefaultBatchSize      = 100
	DefaultFlushInterval  = 2 * time.Second
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "text"
)

func (c *Config) applyDefaults() {
	// Database defaults
	if c.Database.Port == 0 {
		c.Database.Port = DefaultDBPort
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = DefaultDBSSLMode
	}
	if c.Database.MaxConns == 0 {
		c.Database.MaxConns = DefaultMaxConns
	}
	if c.Database.MinConns == 0 {
		c.Database.MinConns = DefaultMinConns
	}

	// Cache defaults
	if c.Redis.TTL == 0 {
		c.Redis.TTL = DefaultCacheTTL
	}

	// Ingest defaults
	if c.Ingest.Interval == 0 {
		c.Ingest.Interval = DefaultIngestInterval
	}
	if c.Ingest.Timeout == 0 {
		c.Ingest.Timeout = DefaultIngestTimeout
	}
	if c.Ingest.UserAgent == "" {
		c.Ingest.UserAgent = DefaultUserAgent
	}

	// Notify defaults
	if c.Notify.Sink == "" {
		c.Notify.Sink = DefaultNotifySink
	}
	if c.Notify.SMTP.Port == 0 {
		c.Notify.SMTP.Port = DefaultSMTPPort
	}
	if c.Notify.Kafka.Topic == "" {
		c.Notify.Kafka.Topic = DefaultKafkaTopic
	}

	// HTTP defaults
	if c.HTTP.Port == 0 {
		c.HTTP.Port = DefaultHTTPPort
	}
	if c.HTTP.HealthPort == 0 {
		c.HTTP.HealthPort = DefaultHealthPort
	}

	// Writer defaults
	if c.Writer.BatchSize == 0 {
		c.Writer.BatchSize = DefaultBatchSize
	}
	if c.Writer.FlushInterval == 0 {
		c.Writer.FlushInterval = DefaultFlushInterval
	}

	// Logging defaults
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}
}
