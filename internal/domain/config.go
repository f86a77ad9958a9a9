package domain

import "time"

// Config holds the complete LAVS configuration.
type Config struct {
	// Server settings
	Server ServerConfig `json:"server"`

	// Component configurations
	Repository RepositoryConfig `json:"repository"`
	Cache      CacheConfig      `json:"cache"`
	EventBus   EventBusConfig   `json:"eventBus"`

	// Pipeline settings
	Pipeline PipelineConfig `json:"pipeline"`

	// WeightProfilePath optionally points at a YAML file overriding the
	// built-in weight profiles. Loaded once at start.
	WeightProfilePath string `json:"weightProfilePath"`

	// Observability
	Logging LoggingConfig `json:"logging"`
	Tracing TracingConfig `json:"tracing"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	ReadTimeout  int    `json:"readTimeout"`  // seconds
	WriteTimeout int    `json:"writeTimeout"` // seconds

	// MaxUploadBytes bounds accepted file submissions.
	MaxUploadBytes int64 `json:"maxUploadBytes"`
}

// PipelineConfig holds evaluation pipeline settings.
type PipelineConfig struct {
	// ProducerTimeout bounds each evidence producer invocation. A producer
	// exceeding it is recorded as unavailable, not treated as a fatal error.
	ProducerTimeout time.Duration `json:"producerTimeout"`

	// LookupTimeout bounds external lookups (WHOIS, page fetch).
	LookupTimeout time.Duration `json:"lookupTimeout"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled     bool   `json:"enabled"`
	ServiceName string `json:"serviceName"`
}

// DefaultConfig returns the standalone single-node configuration: SQLite
// config store, in-memory cache, channel bus.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           8080,
			ReadTimeout:    30,
			WriteTimeout:   60,
			MaxUploadBytes: 64 << 20, // 64 MiB
		},
		Repository: RepositoryConfig{
			Driver:     "sqlite",
			SQLitePath: "./lavs.db",
		},
		Cache: CacheConfig{
			Type:         "memory",
			LocalMaxSize: 10000,
			LocalTTL:     12 * time.Hour,
		},
		EventBus: EventBusConfig{
			Type:              "channel",
			ChannelBufferSize: 1000,
		},
		Pipeline: PipelineConfig{
			ProducerTimeout: 20 * time.Second,
			LookupTimeout:   8 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "lavs",
		},
	}
}

// ClusterConfig returns a configuration for multi-node deployments:
// PostgreSQL config store, Redis lookup cache, NATS event bus.
func ClusterConfig() *Config {
	cfg := DefaultConfig()
	cfg.Repository = RepositoryConfig{
		Driver:       "postgres",
		PostgresHost: "localhost",
		PostgresPort: 5432,
		PostgresDB:   "lavs",
	}
	cfg.Cache = CacheConfig{
		Type:      "redis",
		RedisAddr: "localhost:6379",
		LocalTTL:  12 * time.Hour,
	}
	cfg.EventBus = EventBusConfig{
		Type:              "nats",
		NATSUrl:           "nats://localhost:4222",
		NATSMaxReconnects: 10,
		NATSReconnectWait: 5,
	}
	cfg.Tracing.Enabled = true
	return cfg
}
