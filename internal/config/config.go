package config

import "time"

// Config is the root configuration shared by the ingester and the API server.
type Config struct {
	Instance InstanceConfig          `yaml:"instance"`
	Database DBConfig                `yaml:"database"`
	Redis    RedisConfig             `yaml:"redis"`
	Ingest   IngestConfig            `yaml:"ingest"`
	Sources  map[string]SourceConfig `yaml:"sources"`
	Notify   NotifyConfig            `yaml:"notify"`
	HTTP     HTTPConfig              `yaml:"http"`
	Writer   WriterConfig            `yaml:"writer"`
	Logging  LoggingConfig           `yaml:"logging"`
}

// InstanceConfig identifies this process.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
	Migrate  bool   `yaml:"migrate"` // Apply embedded migrations on startup
}

// RedisConfig holds the latest-rates cache connection. An empty Addr selects
// the in-process cache.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

// IngestConfig holds ingestion cycle settings.
type IngestConfig struct {
	Interval    time.Duration `yaml:"interval"`
	Timeout     time.Duration `yaml:"timeout"`     // Per-cycle deadline
	Concurrency int           `yaml:"concurrency"` // 0 = one goroutine per source
	UserAgent   string        `yaml:"user_agent"`
	MaxRetries  int           `yaml:"max_retries"` // Must be 0; kept so stale configs fail loudly
}

// SourceConfig overrides a built-in source descriptor.
type SourceConfig struct {
	Enabled   *bool    `yaml:"enabled"`
	Endpoints []string `yaml:"endpoints"`
}

// IsEnabled reports whether the source should be polled. Sources are enabled
// unless explicitly switched off.
func (s SourceConfig) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// NotifyConfig selects and configures the notification sink.
type NotifyConfig struct {
	Sink       string      `yaml:"sink"` // smtp, kafka or log
	Recipients []string    `yaml:"recipients"`
	SMTP       SMTPConfig  `yaml:"smtp"`
	Kafka      KafkaConfig `yaml:"kafka"`
}

// SMTPConfig holds SMTP relay settings.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

// KafkaConfig holds the notification topic settings.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// HTTPConfig holds listener settings.
type HTTPConfig struct {
	Port       int `yaml:"port"`        // API server
	HealthPort int `yaml:"health_port"` // Ingester health endpoint
}

// WriterConfig holds response log writer settings.
type WriterConfig struct {
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}
