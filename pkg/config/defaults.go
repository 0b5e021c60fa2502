package config

import (
	"strings"
	"time"

	"github.com/blastkit/blast/pkg/outbox"
	"github.com/blastkit/blast/pkg/worker"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// Zero values (0, "", false, nil) are replaced with defaults; explicit values
// are preserved.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyShutdownTimeoutDefaults(cfg)
	cfg.Database.ApplyDefaults()
	cfg.Redis.ApplyDefaults()
	applyBrokerDefaults(&cfg.Broker)
	applyStorageDefaults(&cfg.Storage)
	applyOutboxDefaults(&cfg.Outbox)
	applyWorkerDefaults(&cfg.Worker)
	applyMetricsDefaults(&cfg.Metrics)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize log level to uppercase for consistent internal representation
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyShutdownTimeoutDefaults(cfg *Config) {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
}

// applyBrokerDefaults sets event bus defaults. The driver defaults to none;
// RabbitMQ settings only matter when the driver selects it.
func applyBrokerDefaults(cfg *BrokerConfig) {
	if cfg.Driver == "" {
		cfg.Driver = "none"
	}
	cfg.RabbitMQ.ApplyDefaults()
	cfg.RabbitMQ.Enabled = cfg.Driver == "rabbitmq"
}

// applyStorageDefaults sets file service defaults.
func applyStorageDefaults(cfg *StorageConfig) {
	if cfg.Backend == "" {
		cfg.Backend = "local"
	}
	if cfg.Backend == "local" && cfg.Local.Dir == "" {
		cfg.Local.Dir = "/var/lib/blast/files"
	}
	cfg.S3.ApplyDefaults()
}

func applyOutboxDefaults(cfg *OutboxConfig) {
	if cfg.DispatchStrategy == "" {
		cfg.DispatchStrategy = string(outbox.StrategyDirect)
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = outbox.DefaultBatchSize
	}
}

func applyWorkerDefaults(cfg *WorkerConfig) {
	if cfg.DispatchInterval == 0 {
		cfg.DispatchInterval = worker.DefaultDispatchInterval
	}
}

// applyMetricsDefaults sets metrics defaults.
func applyMetricsDefaults(cfg *MetricsConfig) {
	// Enabled defaults to false; port defaults only once enabled
	if cfg.Enabled && cfg.Port == 0 {
		cfg.Port = 9090
	}
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is useful for generating sample configuration files and for tests.
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
