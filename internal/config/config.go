package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the reliability engine
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Storage      StorageConfig      `mapstructure:"storage"`
	Adapter      AdapterConfig      `mapstructure:"adapter"`
	Manifests    ManifestsConfig    `mapstructure:"manifests"`
	Correlation  CorrelationConfig  `mapstructure:"correlation"`
	Graph        GraphConfig        `mapstructure:"graph"`
	Notification NotificationConfig `mapstructure:"notification"`
	Log          LogConfig          `mapstructure:"log"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// StorageConfig selects and configures the budget repository backend.
type StorageConfig struct {
	Backend  string         `mapstructure:"backend"` // sqlite | postgres
	SQLite   SQLiteConfig   `mapstructure:"sqlite"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// SQLiteConfig holds the embedded database settings
type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

// PostgresConfig holds PostgreSQL connection settings
type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"sslmode"`
}

// DSN builds a pgx-compatible connection string.
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode)
}

// AdapterConfig selects and configures the SLI time-series source.
type AdapterConfig struct {
	Provider   string           `mapstructure:"provider"` // prometheus | synthetic
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	Synthetic  SyntheticConfig  `mapstructure:"synthetic"`
	Step       time.Duration    `mapstructure:"step"`
}

// PrometheusConfig holds the range-query client settings
type PrometheusConfig struct {
	URL            string        `mapstructure:"url"`
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxConcurrency int64         `mapstructure:"max_concurrency"`
	MaxRetries     int           `mapstructure:"max_retries"`
}

// SyntheticConfig points at fixture files for offline evaluation
type SyntheticConfig struct {
	FixtureDir string `mapstructure:"fixture_dir"`
}

// ManifestsConfig locates service manifests and the evaluation cadence.
type ManifestsConfig struct {
	Dir        string        `mapstructure:"dir"`
	SchemaPath string        `mapstructure:"schema_path"`
	Interval   time.Duration `mapstructure:"interval"`
}

// CorrelationConfig tunes the deployment correlation windows.
type CorrelationConfig struct {
	BeforeWindow    string  `mapstructure:"before_window"`
	AfterWindow     string  `mapstructure:"after_window"`
	LookbackHours   int     `mapstructure:"lookback_hours"`
	MinConfidence   float64 `mapstructure:"min_confidence"`
	ParallelWorkers int     `mapstructure:"parallel_workers"`
}

// GraphConfig selects the service dependency source.
type GraphConfig struct {
	Backend string      `mapstructure:"backend"` // static | neo4j
	Neo4j   Neo4jConfig `mapstructure:"neo4j"`
}

// Neo4jConfig holds the graph database connection settings
type Neo4jConfig struct {
	URI      string `mapstructure:"uri"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
}

// NotificationConfig declares the outbound alert channels.
type NotificationConfig struct {
	Webhooks []WebhookConfig `mapstructure:"webhooks"`
	LogSink  bool            `mapstructure:"log_sink"`
	Timeout  time.Duration   `mapstructure:"timeout"`
}

// WebhookConfig is one HTTP notification target
type WebhookConfig struct {
	Name string `mapstructure:"name"`
	URL  string `mapstructure:"url"`
}

// LogConfig holds structured logging settings
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("server.port", 8090)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "60s")

	v.SetDefault("storage.backend", "sqlite")
	v.SetDefault("storage.sqlite.path", "halcyon.db")
	v.SetDefault("storage.postgres.host", "localhost")
	v.SetDefault("storage.postgres.port", 5432)
	v.SetDefault("storage.postgres.user", "halcyon")
	v.SetDefault("storage.postgres.password", "")
	v.SetDefault("storage.postgres.database", "halcyon")
	v.SetDefault("storage.postgres.sslmode", "disable")

	v.SetDefault("adapter.provider", "prometheus")
	v.SetDefault("adapter.step", "5m")
	v.SetDefault("adapter.prometheus.url", "http://localhost:9090")
	v.SetDefault("adapter.prometheus.timeout", "30s")
	v.SetDefault("adapter.prometheus.max_concurrency", 4)
	v.SetDefault("adapter.prometheus.max_retries", 2)
	v.SetDefault("adapter.synthetic.fixture_dir", "fixtures")

	v.SetDefault("manifests.dir", "manifests")
	v.SetDefault("manifests.schema_path", "schemas/service_v1.json")
	v.SetDefault("manifests.interval", "5m")

	v.SetDefault("correlation.before_window", "30m")
	v.SetDefault("correlation.after_window", "2h")
	v.SetDefault("correlation.lookback_hours", 24)
	v.SetDefault("correlation.min_confidence", 0.3)
	v.SetDefault("correlation.parallel_workers", 4)

	v.SetDefault("graph.backend", "static")
	v.SetDefault("graph.neo4j.uri", "bolt://localhost:7687")
	v.SetDefault("graph.neo4j.username", "neo4j")
	v.SetDefault("graph.neo4j.password", "")
	v.SetDefault("graph.neo4j.database", "neo4j")

	v.SetDefault("notification.log_sink", true)
	v.SetDefault("notification.timeout", "10s")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read from config file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Environment variables override file config
	v.SetEnvPrefix("HALCYON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	switch c.Adapter.Provider {
	case "prometheus", "synthetic":
	default:
		return fmt.Errorf("unknown adapter provider %q", c.Adapter.Provider)
	}
	switch c.Graph.Backend {
	case "static", "neo4j":
	default:
		return fmt.Errorf("unknown graph backend %q", c.Graph.Backend)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Manifests.Interval <= 0 {
		return fmt.Errorf("manifests.interval must be positive")
	}
	if c.Correlation.MinConfidence < 0 || c.Correlation.MinConfidence > 1 {
		return fmt.Errorf("correlation.min_confidence must be in [0,1]")
	}
	return nil
}
