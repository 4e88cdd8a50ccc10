package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds the complete application configuration.
type Config struct {
	API      APIConfig      `mapstructure:"api"`
	Worker   WorkerConfig   `mapstructure:"worker"`
	Database DatabaseConfig `mapstructure:"database"`
	NATS     NATSConfig     `mapstructure:"nats"`
	Gemini   GeminiConfig   `mapstructure:"gemini"`
	Qdrant   QdrantConfig   `mapstructure:"qdrant"`
	Sync     SyncConfig     `mapstructure:"sync"`
	Log      LogConfig      `mapstructure:"log"`
}

// APIConfig holds HTTP API server configuration.
type APIConfig struct {
	Host         string        `mapstructure:"host"`
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// WorkerConfig holds worker configuration.
type WorkerConfig struct {
	Concurrency int           `mapstructure:"concurrency"`
	QueueGroup  string        `mapstructure:"queue_group"`
	JobTimeout  time.Duration `mapstructure:"job_timeout"`
}

// DatabaseConfig holds job store database configuration.
type DatabaseConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	Name           string `mapstructure:"name"`
	SSLMode        string `mapstructure:"sslmode"`
	Schema         string `mapstructure:"schema"`
	MaxConnections int    `mapstructure:"max_connections"`
}

// DSN returns the database connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// NATSConfig holds NATS configuration.
type NATSConfig struct {
	URL           string        `mapstructure:"url"`
	MaxReconnects int           `mapstructure:"max_reconnects"`
	ReconnectWait time.Duration `mapstructure:"reconnect_wait"`
}

// GeminiConfig holds the embedding provider configuration.
type GeminiConfig struct {
	APIKey            string        `mapstructure:"api_key"`
	BaseURL           string        `mapstructure:"base_url"`
	Model             string        `mapstructure:"model"`
	Timeout           time.Duration `mapstructure:"timeout"`
	BatchLimit        int           `mapstructure:"batch_limit"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
	Dimensions        int           `mapstructure:"dimensions"`
}

// QdrantConfig holds the vector store configuration.
type QdrantConfig struct {
	URL            string        `mapstructure:"url"`
	APIKey         string        `mapstructure:"api_key"`
	Timeout        time.Duration `mapstructure:"timeout"`
	DistanceMetric string        `mapstructure:"distance_metric"`
}

// SyncConfig holds sync engine tuning.
type SyncConfig struct {
	DefaultBatchSize  int           `mapstructure:"default_batch_size"`
	DefaultBatchDelay time.Duration `mapstructure:"default_batch_delay"`
	StaleJobTimeout   time.Duration `mapstructure:"stale_job_timeout"`
	ReapInterval      time.Duration `mapstructure:"reap_interval"`
	RetentionPeriod   time.Duration `mapstructure:"retention_period"`
	CleanupInterval   time.Duration `mapstructure:"cleanup_interval"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// New creates a new Config instance from Viper.
func New(v *viper.Viper) (*Config, error) {
	var config Config

	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Database.User == "" {
		return errors.New("database user is required")
	}
	if c.Database.Host == "" {
		return errors.New("database host is required")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		return errors.New("database port must be between 1 and 65535")
	}
	if c.NATS.URL == "" {
		return errors.New("nats url is required")
	}
	if c.Worker.Concurrency <= 0 {
		return errors.New("worker concurrency must be positive")
	}
	if c.Sync.DefaultBatchSize <= 0 {
		return errors.New("sync default batch size must be positive")
	}
	if c.Sync.StaleJobTimeout <= 0 {
		return errors.New("sync stale job timeout must be positive")
	}
	if c.Sync.RetentionPeriod <= 0 {
		return errors.New("sync retention period must be positive")
	}
	return nil
}

// SetDefaults registers default values for every configuration key.
func SetDefaults(v *viper.Viper) {
	// API defaults
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", "8080")
	v.SetDefault("api.read_timeout", "10s")
	v.SetDefault("api.write_timeout", "10s")

	// Worker defaults
	v.SetDefault("worker.concurrency", 5)
	v.SetDefault("worker.queue_group", "sync-workers")
	v.SetDefault("worker.job_timeout", "30m")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "vectorsync")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.schema", "vectorsync")
	v.SetDefault("database.max_connections", 25)

	// NATS defaults
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.max_reconnects", 5)
	v.SetDefault("nats.reconnect_wait", "2s")

	// Embedding provider defaults
	v.SetDefault("gemini.model", "gemini-embedding-001")
	v.SetDefault("gemini.timeout", "30s")
	v.SetDefault("gemini.batch_limit", 100)
	v.SetDefault("gemini.requests_per_minute", 60)
	v.SetDefault("gemini.dimensions", 768)

	// Vector store defaults
	v.SetDefault("qdrant.url", "http://localhost:6333")
	v.SetDefault("qdrant.timeout", "30s")
	v.SetDefault("qdrant.distance_metric", "Cosine")

	// Sync engine defaults
	v.SetDefault("sync.default_batch_size", 100)
	v.SetDefault("sync.default_batch_delay", "1s")
	v.SetDefault("sync.stale_job_timeout", "30m")
	v.SetDefault("sync.reap_interval", "5m")
	v.SetDefault("sync.retention_period", "168h")
	v.SetDefault("sync.cleanup_interval", "1h")

	// Logging defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}
